// Copyright 2014 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package disasm

import (
	"io"
	"strings"
	"testing"

	"github.com/beevik/c8asm/asm"
	"github.com/beevik/c8asm/chip8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func load(t *testing.T, src string, origin uint16) (*chip8.FlatMemory, int) {
	t.Helper()
	assembly, _, err := asm.Assemble(strings.NewReader(src), "test", origin, io.Discard, 0)
	require.NoError(t, err)

	m := chip8.NewFlatMemory()
	m.StoreBytes(origin, assembly.Code)
	return m, len(assembly.Code)
}

func TestDisassemble(t *testing.T) {
	src := `
$SPRITE_LEN 5
.set x = V1, y = V2
start:
	CLS
	LD I, sprite
	DRW .x, .y, $SPRITE_LEN
	LD .x, K
	LD F, VA
	LD I, VF
	LD V3, I
	JP V0, start
	SHR V4
	SKNP VB
	JP start
sprite:
	.data 0xF0, 0x90`

	m, n := load(t, src, 0x200)
	require.Equal(t, 24, n)

	expected := []string{
		"CLS",
		"LD I, 0x216",
		"DRW V1, V2, 5",
		"LD V1, K",
		"LD F, VA",
		"LD I, VF",
		"LD V3, I",
		"JP V0, 0x200",
		"SHR V4",
		"SKNP VB",
		"JP 0x200",
		".data 0xF0, 0x90",
	}

	addr := uint16(0x200)
	for _, exp := range expected {
		var line string
		line, addr = Disassemble(m, addr)
		assert.Equal(t, exp, line)
	}
	assert.Equal(t, uint16(0x218), addr)
}

// Assembling the disassembly of an assembled program reproduces the
// original machine code.
func TestRoundTrip(t *testing.T) {
	src := `
$LEN 0xF
$KEY 0x0A
.name counter = V7, timer = DT, sound = ST
.set target = loop
	SYS 0x123
loop:
	CALL sub
	SE .counter, $KEY
	SE V1, V2
	SNE V3, 0xFF
	SNE V4, V5
	LD .counter, 0
	LD V6, V7
	LD V8, .timer
	LD .timer, V9
	LD .sound, VA
	LD B, VB
	ADD .counter, 1
	ADD VC, VD
	ADD I, VE
	OR V0, V1
	AND V2, V3
	XOR V4, V5
	SUB V6, V7
	SUBN V8, V9
	SHR VA, VB
	SHL VC
	SHL VD, VE
	RND VF, 0x3C
	DRW V0, V1, $LEN
	SKP VE
	JP .target
sub:
	RET`

	m, n := load(t, src, 0x200)

	var listing []string
	for addr := uint16(0x200); addr < uint16(0x200+n); {
		var line string
		line, addr = Disassemble(m, addr)
		listing = append(listing, line)
	}

	m2, n2 := load(t, strings.Join(listing, "\n"), 0x200)
	require.Equal(t, n, n2)

	b1, b2 := make([]byte, n), make([]byte, n2)
	m.LoadBytes(0x200, b1)
	m2.LoadBytes(0x200, b2)
	assert.Equal(t, b1, b2)
}

func TestDisassembleData(t *testing.T) {
	m := chip8.NewFlatMemory()
	m.StoreBytes(0x300, []byte{0xff, 0xff, 0x51, 0x23})

	line, next := Disassemble(m, 0x300)
	assert.Equal(t, ".data 0xFF, 0xFF", line)
	assert.Equal(t, uint16(0x302), next)

	line, _ = Disassemble(m, next)
	assert.Equal(t, ".data 0x51, 0x23", line)
}
