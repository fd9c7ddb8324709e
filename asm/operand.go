// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"github.com/beevik/c8asm/chip8"
)

// Return true if the resolved operand can fill the instruction field.
func fieldAccepts(f chip8.Field, o operand) bool {
	switch {
	case f.Kind == chip8.FieldV0:
		return o.kind == opRegister && o.value == 0
	case f.IsRegister():
		return o.kind == opRegister
	case f.Kind == chip8.FieldSpecial:
		return o.kind == opSpecial && chip8.Special(o.value) == f.Special
	default:
		return o.kind == opValue
	}
}

// Given a mnemonic and its resolved operands, select the instruction
// variant whose operand pattern matches.
func (a *assembler) findMatchingInstruction(mnemonic token, ops []operand) (*chip8.Instruction, error) {
	variants := a.instSet.GetInstructions(mnemonic.name)

	for _, inst := range variants {
		fields := inst.Fields()
		if len(fields) != len(ops) {
			continue
		}
		match := true
		for i, f := range fields {
			if !fieldAccepts(f, ops[i]) {
				match = false
				break
			}
		}
		if match {
			return inst, nil
		}
	}

	// An alias standing where a register belongs is a range error rather
	// than a syntax error.
	for _, inst := range variants {
		fields := inst.Fields()
		if len(fields) != len(ops) {
			continue
		}
		for i, f := range fields {
			o := ops[i]
			if f.IsRegister() && o.alias != "" && o.kind != opRegister {
				return nil, a.errorf(ErrOperandOutOfRange, o.tok.text,
					"alias '.%s' resolves to %s, not a register", o.alias, o)
			}
		}
	}

	return nil, a.errorf(ErrSyntax, mnemonic.text, "invalid operands for '%s'", mnemonic.name)
}

// Check that every operand value fits the field that will hold it.
func (a *assembler) checkRanges(inst *chip8.Instruction, ops []operand) error {
	for i, f := range inst.Fields() {
		o := ops[i]
		if f.IsImmediate() && o.value > f.Max() {
			return a.errorf(ErrOperandOutOfRange, o.tok.text,
				"value $%X does not fit in %s (max $%X)", o.value, fieldName[f.Kind], f.Max())
		}
	}
	return nil
}

var fieldName = []string{
	"a register field",
	"a register field",
	"a register field",
	"a byte",
	"an address",
	"a nibble",
	"a special field",
}

// Resolve the operands of an instruction and encode it.
func (a *assembler) encodeInstruction(ss *instruction) (uint16, error) {
	ops := make([]operand, 0, len(ss.operands))
	for _, t := range ss.operands {
		o, err := a.symbols.resolve(t)
		if err != nil {
			return 0, err
		}
		ops = append(ops, o)
	}

	inst, err := a.findMatchingInstruction(ss.mnemonic, ops)
	if err != nil {
		return 0, err
	}
	if err := a.checkRanges(inst, ops); err != nil {
		return 0, err
	}

	values := make([]int, len(ops))
	for i, o := range ops {
		values[i] = o.value
	}
	ss.inst, ss.resolved = inst, ops
	return inst.Encode(values), nil
}
