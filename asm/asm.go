// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package asm implements a two-pass CHIP-8 macro assembler.
//
// The first pass lays out the program: it assigns every label its
// address, records constants and aliases, and checks .assert_addr
// directives. The second pass resolves every operand against the frozen
// symbol table and emits the big-endian instruction words and data bytes.
//
// An alias resolves one level deep. Binding an alias to another alias is
// accepted at definition but fails with ErrAliasCycle where it is used.
package asm

import (
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/beevik/c8asm/chip8"
)

type directiveData struct {
	fn func(a *assembler, directive token, args []token) error
}

var directives = map[string]directiveData{
	"set":         {fn: (*assembler).parseAlias},
	"name":        {fn: (*assembler).parseAlias},
	"data":        {fn: (*assembler).parseData},
	"assert_addr": {fn: (*assembler).parseAssertion},
}

// A segment is a single statement of the source: an instruction, a group
// of data bytes, or a definition that occupies no space.
type segment interface {
	position() fstring
}

// A label definition assigns the current address to a name.
type labelDef struct {
	name token
	addr int
}

func (l *labelDef) position() fstring {
	return l.name.text
}

// A constant definition binds a $NAME to a value.
type constDef struct {
	name  token
	value token
}

func (c *constDef) position() fstring {
	return c.name.text
}

// An alias definition holds the bindings of a .set or .name directive.
type aliasDef struct {
	directive token
	bindings  []binding
}

type binding struct {
	name   token
	target token
}

func (d *aliasDef) position() fstring {
	return d.directive.text
}

// An assertion checks the current address during layout.
type assertion struct {
	directive token
	value     token
}

func (s *assertion) position() fstring {
	return s.directive.text
}

// An instruction segment contains a single 2-byte instruction.
type instruction struct {
	addr     int                // address assigned to the segment
	mnemonic token              // instruction mnemonic
	operands []token            // operands as written
	inst     *chip8.Instruction // selected variant, set while encoding
	resolved []operand          // operands after symbol resolution
}

func (i *instruction) position() fstring {
	return i.mnemonic.text
}

// Format the instruction with its resolved operands.
func (i *instruction) String() string {
	if len(i.resolved) == 0 {
		return i.mnemonic.name
	}
	ops := make([]string, len(i.resolved))
	for j, o := range i.resolved {
		ops[j] = o.String()
	}
	return i.mnemonic.name + " " + strings.Join(ops, ", ")
}

// A data segment contains one or more byte values.
type data struct {
	addr      int     // address assigned to the segment
	directive token   // the .data directive
	values    []token // all byte values
}

func (d *data) position() fstring {
	return d.directive.text
}

// The assembler is a state object used during the assembly of
// machine code from assembly code.
type assembler struct {
	instSet     *chip8.InstructionSet // CHIP-8 instructions
	file        string                // name of the source file
	origin      int                   // requested origin
	pc          int                   // the layout cursor
	code        []byte                // generated machine code
	lexer       *lexer                // source tokenizer
	symbols     *symbolTable          // constants, aliases and labels
	segments    []segment             // all parsed statements
	sourceLines []SourceLine          // address to source line mappings
	labels      []Label               // label addresses
	out         io.Writer             // output used for verbose output
	verbose     bool                  // verbose output
}

// Assembly contains the assembled machine code.
type Assembly struct {
	Code []byte // Assembled machine code
}

// ReadFrom reads machine code from a binary input source.
func (a *Assembly) ReadFrom(r io.Reader) (n int64, err error) {
	a.Code, err = io.ReadAll(r)
	n = int64(len(a.Code))
	if n > chip8.MemorySize {
		return n, fmt.Errorf("code exceeded 4K size")
	}
	return n, err
}

// WriteTo saves machine code as binary data into an output writer.
func (a *Assembly) WriteTo(w io.Writer) (n int64, err error) {
	nn, err := w.Write(a.Code)
	return int64(nn), err
}

// Option type used by the Assemble function.
type Option uint

// Options for the Assemble function.
const (
	Verbose  Option = 1 << iota // verbose output during assembly
	PadImage                    // zero-pad the code to the end of memory
)

// AssembleFile reads a file containing CHIP-8 assembly code, assembles it
// at the conventional program start address, and produces a ROM file and
// a source map file.
func AssembleFile(path string, options Option, out io.Writer) error {
	return AssembleFileAt(path, chip8.ProgramStart, options, out)
}

// AssembleFileAt reads a file containing CHIP-8 assembly code, assembles
// it at the origin address, and produces a ROM file (.ch8) and a source
// map file (.map) next to it.
func AssembleFileAt(path string, origin uint16, options Option, out io.Writer) error {
	inFile, err := os.Open(path)
	if err != nil {
		return err
	}
	defer inFile.Close()

	assembly, sourceMap, err := Assemble(inFile, path, origin, out, options)
	if err != nil {
		return err
	}

	ext := filepath.Ext(path)
	prefix := path[:len(path)-len(ext)]
	romPath := prefix + ".ch8"
	romFile, err := os.OpenFile(romPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	defer romFile.Close()

	_, err = assembly.WriteTo(romFile)
	if err != nil {
		return err
	}

	mapPath := prefix + ".map"
	mapFile, err := os.OpenFile(mapPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	defer mapFile.Close()

	_, err = sourceMap.WriteTo(mapFile)
	if err != nil {
		return err
	}

	if out != nil {
		fmt.Fprintf(out, "Assembled '%s' to produce '%s' and '%s'.\n",
			filepath.Base(path),
			filepath.Base(romPath),
			filepath.Base(mapPath))
	}
	return nil
}

// Assemble reads CHIP-8 assembly code from the provided stream and
// assembles it into byte code intended to be loaded at the origin
// address. The first error encountered aborts assembly; it is returned as
// an *Error and no code is produced.
func Assemble(r io.Reader, filename string, origin uint16, out io.Writer, options Option) (*Assembly, *SourceMap, error) {
	if out == nil {
		out = os.Stdout
	}

	lex, err := newLexer(r, filename)
	if err != nil {
		return nil, nil, err
	}

	a := &assembler{
		instSet:  chip8.GetInstructionSet(),
		file:     filename,
		origin:   int(origin),
		pc:       -1,
		lexer:    lex,
		symbols:  newSymbolTable(filename),
		segments: make([]segment, 0, 32),
		out:      out,
		verbose:  (options & Verbose) != 0,
	}

	// Assembly consists of the following steps
	steps := []func(a *assembler) error{
		(*assembler).parse,  // Parse the assembly code into segments
		(*assembler).layout, // Pass 1: assign addresses and define symbols
		(*assembler).encode, // Pass 2: generate the machine code
	}

	// Execute assembler steps, stopping at the first error.
	for _, step := range steps {
		if err := step(a); err != nil {
			a.logError(err)
			return nil, nil, err
		}
	}

	if options&PadImage != 0 {
		a.pad()
	}

	assembly := &Assembly{
		Code: a.code,
	}

	sourceMap := &SourceMap{
		Origin: uint16(a.origin),
		Size:   uint32(len(a.code)),
		CRC:    crc32.ChecksumIEEE(a.code),
		File:   filename,
		Lines:  a.sourceLines,
		Labels: sortLabels(a.labels),
	}

	return assembly, sourceMap, nil
}

// Read the assembly code and parse each line into segments.
func (a *assembler) parse() error {
	a.logSection("Parsing assembly code")

	a.lexer.reset()
	for {
		line, tokens, ok, err := a.lexer.next()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		err = a.parseLine(line, tokens)
		if err != nil {
			return err
		}
	}
}

// Parse the tokens of a single line of assembly code.
func (a *assembler) parseLine(line fstring, tokens []token) error {
	if len(tokens) == 0 {
		return nil
	}

	if tokens[0].kind == tokLabel {
		a.logLine(tokens[0].text, "label=%s", tokens[0].name)
		a.segments = append(a.segments, &labelDef{name: tokens[0]})
		tokens = tokens[1:]
		if len(tokens) == 0 {
			return nil
		}
	}

	t := tokens[0]
	switch t.kind {
	case tokConstant:
		return a.parseConstant(t, tokens[1:])
	case tokDirective:
		d := directives[t.name]
		return d.fn(a, t, tokens[1:])
	case tokMnemonic:
		return a.parseInstruction(t, tokens[1:])
	case tokIdentifier:
		return a.errorf(ErrSyntax, t.text, "unknown mnemonic '%s'", t.name)
	default:
		return a.errorf(ErrSyntax, t.text, "unexpected %s '%s'", t.kind, t.text.str)
	}
}

// Split a token list into comma-separated groups.
func (a *assembler) splitList(tokens []token) ([][]token, error) {
	var groups [][]token
	var group []token
	for _, t := range tokens {
		if t.kind == tokComma {
			if len(group) == 0 {
				return nil, a.errorf(ErrSyntax, t.text, "unexpected ','")
			}
			groups = append(groups, group)
			group = nil
			continue
		}
		group = append(group, t)
	}
	if len(group) == 0 {
		if len(tokens) > 0 {
			return nil, a.errorf(ErrSyntax, tokens[len(tokens)-1].text, "expected a value after ','")
		}
		return nil, nil
	}
	return append(groups, group), nil
}

// Return true if the token may be used as an instruction operand or an
// alias target.
func isOperand(t token) bool {
	switch t.kind {
	case tokRegister, tokSpecial, tokNumber, tokConstant, tokAlias, tokIdentifier:
		return true
	default:
		return false
	}
}

// Return true if the token may be used as a number in a directive.
func isNumeric(t token) bool {
	return t.kind == tokNumber || t.kind == tokConstant
}

// Parse a list of single-token values accepted by the filter.
func (a *assembler) parseValues(args []token, accept func(t token) bool) ([]token, error) {
	groups, err := a.splitList(args)
	if err != nil {
		return nil, err
	}
	values := make([]token, 0, len(groups))
	for _, g := range groups {
		if len(g) != 1 || !accept(g[0]) {
			return nil, a.errorf(ErrSyntax, g[0].text, "invalid operand '%s'", g[0].text.str)
		}
		values = append(values, g[0])
	}
	return values, nil
}

// Parse a constant definition of the form:
//
//	$NAME value
func (a *assembler) parseConstant(name token, args []token) error {
	a.logLine(name.text, "constant=%s", name.name)
	if len(args) != 1 || !isNumeric(args[0]) {
		return a.errorf(ErrSyntax, name.text, "constant '$%s' requires a single numeric value", name.name)
	}
	a.segments = append(a.segments, &constDef{name: name, value: args[0]})
	return nil
}

// Parse an alias directive of the form:
//
//	.set name = operand[, name = operand...]
func (a *assembler) parseAlias(directive token, args []token) error {
	a.logLine(directive.text, "alias")
	groups, err := a.splitList(args)
	if err != nil {
		return err
	}
	if len(groups) == 0 {
		return a.errorf(ErrSyntax, directive.text, "'.%s' requires at least one binding", directive.name)
	}

	d := &aliasDef{directive: directive}
	for _, g := range groups {
		if len(g) != 3 || g[1].kind != tokEquals {
			return a.errorf(ErrSyntax, g[0].text, "alias binding must have the form 'name = operand'")
		}
		if g[0].kind != tokIdentifier {
			return a.errorf(ErrSyntax, g[0].text, "invalid alias name '%s'", g[0].text.str)
		}
		if !isOperand(g[2]) {
			return a.errorf(ErrSyntax, g[2].text, "invalid alias target '%s'", g[2].text.str)
		}
		d.bindings = append(d.bindings, binding{name: g[0], target: g[2]})
	}
	a.segments = append(a.segments, d)
	return nil
}

// Parse a data directive of the form:
//
//	.data value[, value...]
func (a *assembler) parseData(directive token, args []token) error {
	a.logLine(directive.text, "data")
	values, err := a.parseValues(args, isNumeric)
	if err != nil {
		return err
	}
	if len(values) == 0 {
		return a.errorf(ErrSyntax, directive.text, "'.data' requires at least one value")
	}
	for _, v := range values {
		if v.kind == tokNumber && v.value > 0xff {
			return a.errorf(ErrLiteral, v.text, "data value '%s' exceeds $FF", v.text.str)
		}
	}
	a.segments = append(a.segments, &data{directive: directive, values: values})
	return nil
}

// Parse an address assertion of the form:
//
//	.assert_addr address
func (a *assembler) parseAssertion(directive token, args []token) error {
	a.logLine(directive.text, "assert_addr")
	if len(args) != 1 || !isNumeric(args[0]) {
		return a.errorf(ErrSyntax, directive.text, "'.assert_addr' requires a single address")
	}
	a.segments = append(a.segments, &assertion{directive: directive, value: args[0]})
	return nil
}

// Parse an instruction and its operands.
func (a *assembler) parseInstruction(mnemonic token, args []token) error {
	a.logLine(mnemonic.text, "instruction=%s", mnemonic.name)
	operands, err := a.parseValues(args, isOperand)
	if err != nil {
		return err
	}
	if len(operands) > 3 {
		return a.errorf(ErrSyntax, operands[3].text, "too many operands for '%s'", mnemonic.name)
	}
	a.segments = append(a.segments, &instruction{mnemonic: mnemonic, operands: operands})
	return nil
}

// Pass 1. Assign an address to every instruction, data item and label,
// define constants and aliases, and check address assertions.
func (a *assembler) layout() error {
	a.logSection("Laying out code")

	if a.origin > chip8.MaxAddress {
		return &Error{
			Kind: ErrImageTooLarge,
			File: a.file,
			Msg:  fmt.Sprintf("origin $%X is outside CHIP-8 memory", a.origin),
		}
	}

	a.pc = a.origin
	for _, s := range a.segments {
		switch ss := s.(type) {
		case *labelDef:
			ss.addr = a.pc
			if err := a.symbols.defineLabel(ss.name, ss.addr); err != nil {
				return err
			}
			a.labels = append(a.labels, Label{Name: ss.name.name, Address: uint16(ss.addr)})
			a.log("%04X  %s:", ss.addr, ss.name.name)

		case *constDef:
			o, err := a.symbols.resolve(ss.value)
			if err != nil {
				return err
			}
			if err := a.symbols.defineConstant(ss.name, o.value); err != nil {
				return err
			}
			a.log("      $%s = $%X", ss.name.name, o.value)

		case *aliasDef:
			for _, b := range ss.bindings {
				if err := a.symbols.defineAlias(b.name, b.target); err != nil {
					return err
				}
				a.log("      .%s = %s", b.name.name, b.target.text.str)
			}

		case *assertion:
			o, err := a.symbols.resolve(ss.value)
			if err != nil {
				return err
			}
			if o.value != a.pc {
				e := a.errorf(ErrAssertionFailed, ss.value.text,
					"expected address $%04X, actual address $%04X", o.value, a.pc)
				e.Expected, e.Actual = o.value, a.pc
				return e
			}
			a.log("%04X  .assert_addr ok", a.pc)

		case *instruction:
			ss.addr = a.pc
			a.addSourceLine(ss.addr, ss.mnemonic.text)
			a.log("%04X  %s Len:2", ss.addr, ss.mnemonic.name)
			a.pc += 2

		case *data:
			ss.addr = a.pc
			a.addSourceLine(ss.addr, ss.directive.text)
			a.log("%04X  .data Len:%d", ss.addr, len(ss.values))
			a.pc += len(ss.values)
		}

		if a.pc > chip8.MemorySize {
			return a.errorf(ErrImageTooLarge, s.position(),
				"code extends past the end of memory to $%X", a.pc)
		}
	}

	a.symbols.freeze()
	a.log("Size: %d bytes", a.pc-a.origin)
	return nil
}

// Pass 2. Resolve all operands against the frozen symbol table and
// generate machine code.
func (a *assembler) encode() error {
	a.logSection("Generating code")

	a.code = make([]byte, 0, a.pc-a.origin)
	for _, s := range a.segments {
		switch ss := s.(type) {
		case *instruction:
			if err := a.checkLayout(ss.addr, ss.mnemonic.text); err != nil {
				return err
			}
			word, err := a.encodeInstruction(ss)
			if err != nil {
				return err
			}
			b := wordBytes(word)
			a.code = append(a.code, b...)
			a.log("%04X-   %-8s    %s", ss.addr, byteString(b), ss.String())

		case *data:
			if err := a.checkLayout(ss.addr, ss.directive.text); err != nil {
				return err
			}
			start := len(a.code)
			for _, v := range ss.values {
				o, err := a.symbols.resolve(v)
				if err != nil {
					return err
				}
				if o.value > 0xff {
					return a.errorf(ErrLiteral, v.text, "data value $%X exceeds $FF", o.value)
				}
				a.code = append(a.code, byte(o.value))
			}
			a.logBytes(ss.addr, a.code[start:])
		}
	}

	if len(a.code) != a.pc-a.origin {
		return &Error{
			Kind: ErrLayoutMismatch,
			File: a.file,
			Msg:  fmt.Sprintf("generated %d bytes, layout expected %d", len(a.code), a.pc-a.origin),
		}
	}
	return nil
}

// Verify that the encoder is writing at the address assigned by the
// layout pass.
func (a *assembler) checkLayout(addr int, pos fstring) error {
	if actual := a.origin + len(a.code); actual != addr {
		return a.errorf(ErrLayoutMismatch, pos,
			"item laid out at $%04X but encoded at $%04X", addr, actual)
	}
	return nil
}

// Zero-pad the code up to the end of CHIP-8 memory.
func (a *assembler) pad() {
	n := chip8.MemorySize - a.origin
	if len(a.code) < n {
		a.code = append(a.code, make([]byte, n-len(a.code))...)
	}
}

func (a *assembler) addSourceLine(addr int, pos fstring) {
	a.sourceLines = append(a.sourceLines, SourceLine{Address: addr, Line: pos.row})
}

// Create an error of the requested kind at the source position.
func (a *assembler) errorf(kind error, pos fstring, format string, args ...any) *Error {
	return newError(kind, a.file, pos, format, args...)
}

// In verbose mode, log an assembly error along with the source line
// that caused it.
func (a *assembler) logError(err error) {
	if !a.verbose {
		return
	}
	fmt.Fprintln(a.out, err)

	var e *Error
	if errors.As(err, &e) && e.Line > 0 && e.Line <= len(a.lexer.lines) {
		fmt.Fprintln(a.out, a.lexer.lines[e.Line-1])
		fmt.Fprintf(a.out, "%s^\n", strings.Repeat("-", e.Column-1))
	}
}

// In verbose mode, log a string to the output.
func (a *assembler) log(format string, args ...any) {
	if a.verbose {
		fmt.Fprintf(a.out, format, args...)
		fmt.Fprintf(a.out, "\n")
	}
}

// In verbose mode, log a string and its associated line
// of assembly code.
func (a *assembler) logLine(pos fstring, format string, args ...any) {
	if a.verbose {
		detail := fmt.Sprintf(format, args...)
		fmt.Fprintf(a.out, "%-3d %-3d | %-20s | %s\n", pos.row, pos.column+1, detail, pos.full)
	}
}

// In verbose mode, log a series of bytes with starting address.
func (a *assembler) logBytes(addr int, b []byte) {
	if a.verbose {
		for i, n := 0, len(b); i < n; i += 3 {
			j := min(i+3, n)
			a.log("%04X-*  %s", addr+i, byteString(b[i:j]))
		}
	}
}

// In verbose mode, log a section header to the output.
func (a *assembler) logSection(name string) {
	if a.verbose {
		fmt.Fprintln(a.out, strings.Repeat("-", len(name)+6))
		fmt.Fprintf(a.out, "-- %s --\n", name)
		fmt.Fprintln(a.out, strings.Repeat("-", len(name)+6))
	}
}

func sortLabels(labels []Label) []Label {
	sort.SliceStable(labels, func(i, j int) bool {
		return labels[i].Address < labels[j].Address
	})
	return labels
}
