// Copyright 2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/beevik/c8asm/asm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplaceExt(t *testing.T) {
	assert.Equal(t, "dir/game.ch8", replaceExt("dir/game.asm", ".ch8"))
	assert.Equal(t, "game.map", replaceExt("game", ".map"))
	assert.Equal(t, "a.b/game.map", replaceExt("a.b/game.ch8", ".map"))
}

func TestAssembleFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "pong.asm")
	require.NoError(t, os.WriteFile(src, []byte("top:\n\tCLS\n\tJP top\n"), 0644))

	rom := filepath.Join(dir, "out", "pong.ch8")
	require.NoError(t, os.Mkdir(filepath.Dir(rom), 0755))

	err := assembleFile(context.Background(), src, rom, 0)
	require.NoError(t, err)

	code, err := os.ReadFile(rom)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0xe0, 0x12, 0x00}, code)

	sourceMap := readSourceMap(replaceExt(rom, ".map"), code)
	require.NotNil(t, sourceMap)
	assert.Equal(t, uint16(0x200), sourceMap.Origin)
	assert.Equal(t, []asm.Label{{Name: "top", Address: 0x200}}, sourceMap.Labels)

	assert.Nil(t, readSourceMap(replaceExt(rom, ".map"), []byte{0x00, 0xe0}))
	assert.Nil(t, readSourceMap(filepath.Join(dir, "none.map"), code))
}

func TestAssembleFileError(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "bad.asm")
	require.NoError(t, os.WriteFile(src, []byte("\tJP nowhere\n"), 0644))

	rom := filepath.Join(dir, "bad.ch8")
	err := assembleFile(context.Background(), src, rom, 0)
	assert.True(t, errors.Is(err, asm.ErrUndefinedSymbol))

	_, err = os.Stat(rom)
	assert.True(t, os.IsNotExist(err))
}

func TestDisasmAct(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "pong.asm")
	require.NoError(t, os.WriteFile(src, []byte("top:\n\tCLS\n\tJP top\n"), 0644))

	rom := filepath.Join(dir, "pong.ch8")
	require.NoError(t, assembleFile(context.Background(), src, rom, 0))

	var buf bytes.Buffer
	disasmCmd.SetOut(&buf)
	defer disasmCmd.SetOut(nil)

	require.NoError(t, disasmAct(disasmCmd, []string{rom}))
	expected := "top:\n" +
		fmt.Sprintf("%-32s ; pong.asm:2\n", "200-   00 E0   CLS") +
		fmt.Sprintf("%-32s ; pong.asm:3\n", "202-   12 00   JP 0x200")
	assert.Equal(t, expected, buf.String())

	// Without a source map there are no labels or source lines.
	require.NoError(t, os.Remove(filepath.Join(dir, "pong.map")))
	buf.Reset()
	require.NoError(t, disasmAct(disasmCmd, []string{rom}))
	assert.Equal(t, "200-   00 E0   CLS\n202-   12 00   JP 0x200\n", buf.String())
}

func TestAssembleActReportsFailure(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.asm")
	bad := filepath.Join(dir, "bad.asm")
	require.NoError(t, os.WriteFile(good, []byte("CLS\n"), 0644))
	require.NoError(t, os.WriteFile(bad, []byte("CLS\n\tJP nowhere\n"), 0644))

	err := assembleAct(assembleCmd, []string{good, bad})
	require.Error(t, err)
	assert.True(t, errors.Is(err, asm.ErrUndefinedSymbol))
	assert.Contains(t, err.Error(), "bad.asm")

	code, err := os.ReadFile(filepath.Join(dir, "good.ch8"))
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0xe0}, code)

	_, err = os.Stat(filepath.Join(dir, "bad.ch8"))
	assert.True(t, os.IsNotExist(err))
}

func TestAssembleActOutputNeedsOneFile(t *testing.T) {
	output = "out.ch8"
	defer func() { output = "" }()

	err := assembleAct(assembleCmd, []string{"a.asm", "b.asm"})
	assert.Error(t, err)
}
