// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"fmt"

	"github.com/beevik/c8asm/chip8"
)

type operandKind byte

const (
	opRegister operandKind = iota // V register index
	opSpecial                     // special operand
	opValue                       // number, constant or label address
)

// An operand is an instruction, data or directive argument after all
// symbolic references have been resolved.
type operand struct {
	kind  operandKind
	value int    // register index, special operand or numeric value
	alias string // first alias followed to reach the operand, if any
	tok   token  // the token as written in the source
}

// The symbolTable holds the three namespaces of an assembly job:
// constants, aliases and labels.
type symbolTable struct {
	file      string           // source file, for error reporting
	constants map[string]int   // $NAME -> value
	aliases   map[string]token // .name -> bound operand token
	labels    map[string]int   // name -> address
	frozen    bool             // true once layout has completed
}

func newSymbolTable(file string) *symbolTable {
	return &symbolTable{
		file:      file,
		constants: make(map[string]int),
		aliases:   make(map[string]token),
		labels:    make(map[string]int),
	}
}

func (s *symbolTable) checkFrozen() {
	if s.frozen {
		panic("symbol table modified after layout")
	}
}

func (s *symbolTable) defineConstant(name token, value int) error {
	s.checkFrozen()
	if _, ok := s.constants[name.name]; ok {
		return newError(ErrDuplicateSymbol, s.file, name.text, "constant '$%s' already defined", name.name)
	}
	s.constants[name.name] = value
	return nil
}

func (s *symbolTable) defineAlias(name token, target token) error {
	s.checkFrozen()
	if isDirective(name.name) {
		return newError(ErrSyntax, s.file, name.text, "alias name '%s' is a directive keyword", name.name)
	}
	if _, ok := s.aliases[name.name]; ok {
		return newError(ErrDuplicateSymbol, s.file, name.text, "alias '.%s' already defined", name.name)
	}
	s.aliases[name.name] = target
	return nil
}

func (s *symbolTable) defineLabel(name token, addr int) error {
	s.checkFrozen()
	if _, ok := s.labels[name.name]; ok {
		return newError(ErrDuplicateSymbol, s.file, name.text, "label '%s' already defined", name.name)
	}
	s.labels[name.name] = addr
	return nil
}

func (s *symbolTable) freeze() {
	s.frozen = true
}

// resolve converts an operand token into its final operand. An alias
// is a one-level redirect: an alias bound to another alias is rejected as
// a cycle, as is an alias bound to itself. Errors are reported at the
// position of the referencing token.
func (s *symbolTable) resolve(t token) (operand, error) {
	o := operand{tok: t}

	if t.kind == tokAlias {
		o.alias = t.name
		bound, ok := s.aliases[t.name]
		if !ok {
			return o, newError(ErrUndefinedSymbol, s.file, o.tok.text, "alias '.%s' not defined", t.name)
		}
		switch {
		case bound.kind == tokAlias && bound.name == t.name:
			return o, newError(ErrAliasCycle, s.file, o.tok.text, "alias '.%s' refers back to itself", t.name)
		case bound.kind == tokAlias:
			return o, newError(ErrAliasCycle, s.file, o.tok.text, "alias '.%s' refers to alias '.%s'", t.name, bound.name)
		}
		t = bound
	}

	switch t.kind {
	case tokRegister:
		o.kind, o.value = opRegister, t.value
	case tokSpecial:
		o.kind, o.value = opSpecial, t.value
	case tokNumber:
		o.kind, o.value = opValue, t.value
	case tokConstant:
		v, ok := s.constants[t.name]
		if !ok {
			return o, newError(ErrUndefinedSymbol, s.file, o.tok.text, "constant '$%s' not defined", t.name)
		}
		o.kind, o.value = opValue, v
	case tokIdentifier:
		addr, ok := s.labels[t.name]
		if !ok {
			return o, newError(ErrUndefinedSymbol, s.file, o.tok.text, "label '%s' not defined", t.name)
		}
		o.kind, o.value = opValue, addr
	default:
		return o, newError(ErrSyntax, s.file, o.tok.text, "'%s' is not an operand", t.text.str)
	}
	return o, nil
}

// String returns the operand as it would be written without symbols.
func (o operand) String() string {
	switch o.kind {
	case opRegister:
		return chip8.RegisterName(o.value)
	case opSpecial:
		return chip8.Special(o.value).String()
	default:
		return fmt.Sprintf("$%X", o.value)
	}
}
