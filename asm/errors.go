// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"errors"
	"fmt"
	"strings"
)

// Kinds of assembly errors. Every *Error returned by the assembler
// unwraps to exactly one of these.
var (
	ErrLex               = errors.New("lex error")
	ErrLiteral           = errors.New("literal error")
	ErrSyntax            = errors.New("syntax error")
	ErrDuplicateSymbol   = errors.New("duplicate symbol")
	ErrUndefinedSymbol   = errors.New("undefined symbol")
	ErrAliasCycle        = errors.New("alias cycle")
	ErrAssertionFailed   = errors.New("assertion failed")
	ErrOperandOutOfRange = errors.New("operand out of range")
	ErrLayoutMismatch    = errors.New("layout mismatch")
	ErrImageTooLarge     = errors.New("image too large")
)

// An Error describes a fatal problem found while assembling a source
// file, along with the position of the offending text.
type Error struct {
	Kind   error  // one of the Err* kinds
	File   string // name of the source file
	Line   int    // 1-based source line
	Column int    // 1-based source column
	Msg    string // description of the problem

	// Expected and Actual hold the asserted and the real address when
	// Kind is ErrAssertionFailed.
	Expected int
	Actual   int
}

func (e *Error) Error() string {
	kind := e.Kind.Error()
	kind = strings.ToUpper(kind[:1]) + kind[1:]
	return fmt.Sprintf("%s in '%s' line %d, col %d: %s", kind, e.File, e.Line, e.Column, e.Msg)
}

// Unwrap returns the error's kind, so that errors.Is may be used to test
// it.
func (e *Error) Unwrap() error {
	return e.Kind
}

func newError(kind error, file string, pos fstring, format string, args ...any) *Error {
	return &Error{
		Kind:   kind,
		File:   file,
		Line:   pos.row,
		Column: pos.column + 1,
		Msg:    fmt.Sprintf(format, args...),
	}
}
