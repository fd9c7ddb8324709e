// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"bufio"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/beevik/c8asm/chip8"
)

type tokenKind byte

const (
	tokMnemonic   tokenKind = iota // CHIP-8 instruction keyword
	tokRegister                    // V0 through VF
	tokSpecial                     // I, F, B, K, DT or ST
	tokNumber                      // numeric literal
	tokIdentifier                  // label reference
	tokConstant                    // $NAME
	tokAlias                       // .name
	tokDirective                   // .set, .name, .data or .assert_addr
	tokLabel                       // name:
	tokComma                       // ,
	tokEquals                      // =
)

var tokenKindName = []string{
	"mnemonic",
	"register",
	"special",
	"number",
	"identifier",
	"constant",
	"alias",
	"directive",
	"label",
	"comma",
	"equals",
}

func (k tokenKind) String() string {
	return tokenKindName[k]
}

// A token is a single lexical item read from a line of source.
type token struct {
	kind  tokenKind
	text  fstring // raw text of the token, including any leader
	name  string  // name without its '$', '.' or ':' decoration
	value int     // number value, register index or special operand
}

// isDirective returns true if the name is a directive keyword.
func isDirective(name string) bool {
	switch name {
	case "set", "name", "data", "assert_addr":
		return true
	default:
		return false
	}
}

// isReserved returns true if the name is a mnemonic, register or special
// operand name.
func isReserved(name string) bool {
	if chip8.GetInstructionSet().IsMnemonic(name) {
		return true
	}
	if _, ok := chip8.LookupRegister(name); ok {
		return true
	}
	_, ok := chip8.LookupSpecial(name)
	return ok
}

// The lexer produces the tokens of a source file one line at a time. It
// may be reset to read the source again from the start.
type lexer struct {
	file  string   // name of the source file
	lines []string // all source lines
	row   int      // number of lines already read
}

// Read all source lines. Lines may be of any length. A read failure is
// reported as a lex error on the line that could not be read.
func newLexer(r io.Reader, file string) (*lexer, error) {
	l := &lexer{file: file}
	br := bufio.NewReader(r)
	for {
		s, err := br.ReadString('\n')
		if len(s) > 0 {
			s = strings.TrimSuffix(s, "\n")
			s = strings.TrimSuffix(s, "\r")
			l.lines = append(l.lines, s)
		}
		switch {
		case err == io.EOF:
			return l, nil
		case err != nil:
			pos := newFstring(len(l.lines)+1, "")
			return nil, newError(ErrLex, file, pos, "read failed: %v", err)
		}
	}
}

// reset rewinds the lexer to the first line of the source.
func (l *lexer) reset() {
	l.row = 0
}

// next tokenizes the next source line. It returns false when the source
// is exhausted.
func (l *lexer) next() (line fstring, tokens []token, ok bool, err error) {
	if l.row >= len(l.lines) {
		return fstring{}, nil, false, nil
	}
	l.row++
	line = newFstring(l.row, l.lines[l.row-1])
	tokens, err = l.tokenize(line.stripTrailingComment())
	return line, tokens, true, err
}

func (l *lexer) tokenize(line fstring) ([]token, error) {
	var tokens []token
	for {
		line = line.consumeWhitespace()
		if line.isEmpty() {
			return tokens, nil
		}

		var t token
		var err error
		switch c := line.str[0]; {
		case c == ',':
			t, line = token{kind: tokComma, text: line.trunc(1)}, line.consume(1)
		case c == '=':
			t, line = token{kind: tokEquals, text: line.trunc(1)}, line.consume(1)
		case c == '$' || c == '.':
			t, line, err = l.lexPrefixed(line)
		case line.startsWith(decimal):
			t, line, err = l.lexNumber(line)
		case line.startsWith(identifierStartChar):
			t, line, err = l.lexWord(line)
		case c >= utf8.RuneSelf:
			r, _ := utf8.DecodeRuneInString(line.str)
			err = newError(ErrLex, l.file, line, "non-ASCII character '%c'", r)
		default:
			err = newError(ErrLex, l.file, line, "unexpected character '%c'", c)
		}
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, t)
	}
}

// Lex a constant reference, an alias reference or a directive.
func (l *lexer) lexPrefixed(line fstring) (token, fstring, error) {
	leader := line.str[0]
	rest := line.consume(1)
	name, remain := rest.consumeWhile(identifierChar)
	text := line.trunc(len(name.str) + 1)
	if name.isEmpty() {
		return token{}, remain, newError(ErrLex, l.file, line, "missing name after '%c'", leader)
	}

	t := token{text: text, name: name.str}
	switch {
	case leader == '$':
		t.kind = tokConstant
	case isDirective(name.str):
		t.kind = tokDirective
	default:
		t.kind = tokAlias
	}
	return t, remain, nil
}

// Lex a numeric literal.
func (l *lexer) lexNumber(line fstring) (token, fstring, error) {
	text, remain := line.consumeWhile(alphanumeric)
	v, err := ParseLiteral(text.str)
	if err != nil {
		return token{}, remain, newError(ErrLiteral, l.file, text, "%v", err)
	}
	return token{kind: tokNumber, text: text, name: text.str, value: v}, remain, nil
}

// Lex a mnemonic, register, special operand, identifier or label
// definition.
func (l *lexer) lexWord(line fstring) (token, fstring, error) {
	text, remain := line.consumeWhile(identifierChar)
	t := token{text: text, name: text.str}

	if remain.startsWithChar(':') {
		if isReserved(text.str) {
			return token{}, remain, newError(ErrLex, l.file, text, "reserved word '%s' cannot be a label", text.str)
		}
		t.kind = tokLabel
		t.text = line.trunc(len(text.str) + 1)
		return t, remain.consume(1), nil
	}

	if chip8.GetInstructionSet().IsMnemonic(text.str) {
		t.kind = tokMnemonic
	} else if r, ok := chip8.LookupRegister(text.str); ok {
		t.kind, t.value = tokRegister, r
	} else if s, ok := chip8.LookupSpecial(text.str); ok {
		t.kind, t.value = tokSpecial, int(s)
	} else {
		t.kind = tokIdentifier
	}
	return t, remain, nil
}
