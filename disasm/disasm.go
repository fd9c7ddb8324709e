// Copyright 2014 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package disasm implements a CHIP-8 instruction set
// disassembler.
package disasm

import (
	"fmt"
	"strings"

	"github.com/beevik/c8asm/chip8"
)

// Disassembler formatting for operand fields
var fieldFormat = []string{
	"V%X",    // FieldVX
	"V%X",    // FieldVY
	"V0",     // FieldV0
	"0x%02X", // FieldByte
	"0x%03X", // FieldAddr
	"%d",     // FieldNibble
	"%s",     // FieldSpecial
}

// Disassemble the machine code in memory 'm' at address 'addr'. Return a
// 'line' string representing the disassembled instruction and a 'next'
// address that starts the following line of machine code. Words that are
// not valid instructions are returned as a .data directive.
func Disassemble(m chip8.Memory, addr uint16) (line string, next uint16) {
	word := m.LoadWord(addr)
	next = addr + 2

	inst := chip8.GetInstructionSet().Decode(word)
	if inst == nil {
		line = fmt.Sprintf(".data 0x%02X, 0x%02X", word>>8, word&0xff)
		return
	}

	fields := inst.Fields()
	if len(fields) == 0 {
		return inst.Name, next
	}

	values := inst.Operands(word)
	ops := make([]string, len(fields))
	for i, f := range fields {
		switch f.Kind {
		case chip8.FieldV0:
			ops[i] = fieldFormat[f.Kind]
		case chip8.FieldSpecial:
			ops[i] = fmt.Sprintf(fieldFormat[f.Kind], f.Special)
		default:
			ops[i] = fmt.Sprintf(fieldFormat[f.Kind], values[i])
		}
	}
	line = inst.Name + " " + strings.Join(ops, ", ")
	return
}
