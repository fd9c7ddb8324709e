// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"testing"

	"github.com/beevik/c8asm/chip8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sym(kind tokenKind, name string) token {
	return token{kind: kind, name: name, text: newFstring(1, name)}
}

func num(v int) token {
	return token{kind: tokNumber, value: v, text: newFstring(1, "n")}
}

func TestSymbolResolve(t *testing.T) {
	s := newSymbolTable("test")
	require.NoError(t, s.defineConstant(sym(tokConstant, "LEN"), 5))
	require.NoError(t, s.defineLabel(sym(tokLabel, "start"), 0x200))
	require.NoError(t, s.defineAlias(sym(tokIdentifier, "x"), token{kind: tokRegister, value: 3}))
	require.NoError(t, s.defineAlias(sym(tokIdentifier, "len"), sym(tokConstant, "LEN")))
	require.NoError(t, s.defineAlias(sym(tokIdentifier, "timer"), token{kind: tokSpecial, value: int(chip8.ST)}))
	require.NoError(t, s.defineAlias(sym(tokIdentifier, "go"), sym(tokIdentifier, "start")))

	tests := []struct {
		tok   token
		kind  operandKind
		value int
		alias string
	}{
		{sym(tokConstant, "LEN"), opValue, 5, ""},
		{sym(tokIdentifier, "start"), opValue, 0x200, ""},
		{num(0x12), opValue, 0x12, ""},
		{token{kind: tokRegister, value: 7}, opRegister, 7, ""},
		{sym(tokAlias, "x"), opRegister, 3, "x"},
		{sym(tokAlias, "len"), opValue, 5, "len"},
		{sym(tokAlias, "timer"), opSpecial, int(chip8.ST), "timer"},
		{sym(tokAlias, "go"), opValue, 0x200, "go"},
	}

	for _, tt := range tests {
		o, err := s.resolve(tt.tok)
		require.NoError(t, err, tt.tok.name)
		assert.Equal(t, tt.kind, o.kind, tt.tok.name)
		assert.Equal(t, tt.value, o.value, tt.tok.name)
		assert.Equal(t, tt.alias, o.alias, tt.tok.name)
	}
}

func TestSymbolNamespaces(t *testing.T) {
	s := newSymbolTable("test")
	require.NoError(t, s.defineConstant(sym(tokConstant, "x"), 1))
	require.NoError(t, s.defineLabel(sym(tokLabel, "x"), 0x300))
	require.NoError(t, s.defineAlias(sym(tokIdentifier, "x"), num(2)))

	o, err := s.resolve(sym(tokConstant, "x"))
	require.NoError(t, err)
	assert.Equal(t, 1, o.value)

	o, err = s.resolve(sym(tokIdentifier, "x"))
	require.NoError(t, err)
	assert.Equal(t, 0x300, o.value)

	o, err = s.resolve(sym(tokAlias, "x"))
	require.NoError(t, err)
	assert.Equal(t, 2, o.value)
}

func TestSymbolDuplicates(t *testing.T) {
	s := newSymbolTable("test")
	require.NoError(t, s.defineConstant(sym(tokConstant, "A"), 1))
	assert.ErrorIs(t, s.defineConstant(sym(tokConstant, "A"), 1), ErrDuplicateSymbol)

	require.NoError(t, s.defineAlias(sym(tokIdentifier, "a"), num(1)))
	assert.ErrorIs(t, s.defineAlias(sym(tokIdentifier, "a"), num(2)), ErrDuplicateSymbol)

	require.NoError(t, s.defineLabel(sym(tokLabel, "a"), 0x200))
	assert.ErrorIs(t, s.defineLabel(sym(tokLabel, "a"), 0x200), ErrDuplicateSymbol)

	assert.ErrorIs(t, s.defineAlias(sym(tokIdentifier, "assert_addr"), num(1)), ErrSyntax)
}

func TestSymbolErrors(t *testing.T) {
	s := newSymbolTable("test")
	require.NoError(t, s.defineAlias(sym(tokIdentifier, "a"), sym(tokAlias, "b")))
	require.NoError(t, s.defineAlias(sym(tokIdentifier, "b"), sym(tokAlias, "c")))
	require.NoError(t, s.defineAlias(sym(tokIdentifier, "c"), sym(tokAlias, "a")))
	require.NoError(t, s.defineAlias(sym(tokIdentifier, "d"), sym(tokConstant, "MISSING")))
	require.NoError(t, s.defineAlias(sym(tokIdentifier, "e"), token{kind: tokRegister, value: 1}))
	require.NoError(t, s.defineAlias(sym(tokIdentifier, "f"), sym(tokAlias, "e")))

	_, err := s.resolve(sym(tokAlias, "a"))
	assert.ErrorIs(t, err, ErrAliasCycle)

	// Aliases do not chain, even when the chain would end in an operand.
	_, err = s.resolve(sym(tokAlias, "f"))
	assert.ErrorIs(t, err, ErrAliasCycle)
	assert.Contains(t, err.Error(), "alias '.f' refers to alias '.e'")

	_, err = s.resolve(sym(tokAlias, "missing"))
	assert.ErrorIs(t, err, ErrUndefinedSymbol)

	_, err = s.resolve(sym(tokAlias, "d"))
	assert.ErrorIs(t, err, ErrUndefinedSymbol)

	_, err = s.resolve(sym(tokConstant, "NONE"))
	assert.ErrorIs(t, err, ErrUndefinedSymbol)

	_, err = s.resolve(sym(tokIdentifier, "nowhere"))
	assert.ErrorIs(t, err, ErrUndefinedSymbol)
}

func TestSymbolFreeze(t *testing.T) {
	s := newSymbolTable("test")
	s.freeze()
	assert.Panics(t, func() {
		s.defineLabel(sym(tokLabel, "late"), 0x200)
	})
}
