// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package chip8

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstructionVariants(t *testing.T) {
	set := GetInstructionSet()

	counts := map[string]int{
		"CLS": 1, "RET": 1, "SYS": 1, "JP": 2, "CALL": 1, "SE": 2, "SNE": 2,
		"LD": 11, "ADD": 3, "OR": 1, "AND": 1, "XOR": 1, "SUB": 1, "SUBN": 1,
		"SHR": 2, "SHL": 2, "RND": 1, "DRW": 1, "SKP": 1, "SKNP": 1,
	}
	for name, n := range counts {
		assert.Len(t, set.GetInstructions(name), n, name)
		assert.True(t, set.IsMnemonic(name), name)
	}

	assert.False(t, set.IsMnemonic("ld"))
	assert.False(t, set.IsMnemonic("NOP"))
	assert.Empty(t, set.GetInstructions("jp"))
}

func TestEncode(t *testing.T) {
	set := GetInstructionSet()
	find := func(name string, mode Mode) *Instruction {
		for _, inst := range set.GetInstructions(name) {
			if inst.Mode == mode {
				return inst
			}
		}
		t.Fatalf("no %s variant with mode %d", name, mode)
		return nil
	}

	tests := []struct {
		name   string
		mode   Mode
		values []int
		word   uint16
	}{
		{"CLS", IMP, nil, 0x00e0},
		{"JP", ADDR, []int{0x234}, 0x1234},
		{"JP", V0ADDR, []int{0, 0x300}, 0xb300},
		{"SE", VXKK, []int{1, 0x22}, 0x3122},
		{"SNE", VXVY, []int{3, 4}, 0x9340},
		{"LD", IADDR, []int{0, 0xfff}, 0xafff},
		{"LD", VXK, []int{8, 0}, 0xf80a},
		{"LD", IVX, []int{0, 0xd}, 0xfd55},
		{"LD", VXI, []int{0xe, 0}, 0xfe65},
		{"SHR", VX, []int{1}, 0x8106},
		{"DRW", VXVYN, []int{1, 2, 5}, 0xd125},
		{"SKNP", VX, []int{0xb}, 0xeba1},
	}

	for _, tt := range tests {
		inst := find(tt.name, tt.mode)
		assert.Equal(t, tt.word, inst.Encode(tt.values), tt.name)
	}
}

func TestDecode(t *testing.T) {
	set := GetInstructionSet()

	tests := []struct {
		word     uint16
		name     string
		mode     Mode
		operands []int
	}{
		{0x00e0, "CLS", IMP, []int{}},
		{0x00ee, "RET", IMP, []int{}},
		{0x0123, "SYS", ADDR, []int{0x123}},
		{0x1234, "JP", ADDR, []int{0x234}},
		{0xb300, "JP", V0ADDR, []int{0, 0x300}},
		{0x5120, "SE", VXVY, []int{1, 2}},
		{0x8560, "LD", VXVY, []int{5, 6}},
		{0xf707, "LD", VXDT, []int{7, 0}},
		{0xfc33, "LD", BVX, []int{0, 0xc}},
		{0xf31e, "ADD", IVX, []int{0, 3}},
		{0x8106, "SHR", VX, []int{1}},
		{0x8126, "SHR", VXVY, []int{1, 2}},
		{0x812e, "SHL", VXVY, []int{1, 2}},
		{0xd125, "DRW", VXVYN, []int{1, 2, 5}},
		{0xea9e, "SKP", VX, []int{0xa}},
	}

	for _, tt := range tests {
		inst := set.Decode(tt.word)
		require.NotNil(t, inst, "%04X", tt.word)
		assert.Equal(t, tt.name, inst.Name, "%04X", tt.word)
		assert.Equal(t, tt.mode, inst.Mode, "%04X", tt.word)
		assert.Equal(t, tt.operands, inst.Operands(tt.word), "%04X", tt.word)
	}

	for _, word := range []uint16{0x5121, 0x912f, 0x8008, 0xe000, 0xf0ff, 0xffff} {
		assert.Nil(t, set.Decode(word), "%04X", word)
	}
}

func TestEncodeDecodeAllVariants(t *testing.T) {
	set := GetInstructionSet()
	for i := range set.instructions {
		inst := &set.instructions[i]
		values := make([]int, len(inst.Fields()))
		for j, f := range inst.Fields() {
			switch f.Kind {
			case FieldVX:
				values[j] = 0xa
			case FieldVY:
				values[j] = 0x5
			case FieldByte, FieldAddr, FieldNibble:
				values[j] = f.Max() - 1
			}
		}

		word := inst.Encode(values)
		decoded := set.Decode(word)
		require.NotNil(t, decoded, "%s %04X", inst.Name, word)
		assert.Equal(t, inst.Name, decoded.Name)
		assert.Equal(t, inst.Mode, decoded.Mode)
		assert.Equal(t, values, decoded.Operands(word))
	}
}

func TestFields(t *testing.T) {
	assert.Equal(t, 0xff, Field{Kind: FieldByte}.Max())
	assert.Equal(t, 0xfff, Field{Kind: FieldAddr}.Max())
	assert.Equal(t, 0xf, Field{Kind: FieldNibble}.Max())
	assert.Equal(t, uint16(0x0f00), Field{Kind: FieldVX}.Bits())
	assert.Equal(t, uint16(0x00f0), Field{Kind: FieldVY}.Bits())
	assert.True(t, Field{Kind: FieldV0}.IsRegister())
	assert.False(t, Field{Kind: FieldSpecial, Special: I}.IsImmediate())
}

func TestRegisters(t *testing.T) {
	for i := 0; i < NumRegisters; i++ {
		name := RegisterName(i)
		r, ok := LookupRegister(name)
		assert.True(t, ok, name)
		assert.Equal(t, i, r, name)
	}

	for _, name := range []string{"v0", "VG", "V10", "V", "I"} {
		_, ok := LookupRegister(name)
		assert.False(t, ok, name)
	}

	for _, s := range []Special{I, F, B, K, DT, ST} {
		found, ok := LookupSpecial(s.String())
		assert.True(t, ok)
		assert.Equal(t, s, found)
	}
	_, ok := LookupSpecial("dt")
	assert.False(t, ok)
}

func TestFlatMemory(t *testing.T) {
	m := NewFlatMemory()
	m.StoreBytes(ProgramStart, []byte{0x12, 0x34, 0x56})
	assert.Equal(t, uint16(0x1234), m.LoadWord(ProgramStart))
	assert.Equal(t, byte(0x56), m.LoadByte(ProgramStart+2))

	b := make([]byte, 3)
	m.LoadBytes(ProgramStart, b)
	assert.Equal(t, []byte{0x12, 0x34, 0x56}, b)

	m.StoreByte(MaxAddress, 0xab)
	m.StoreByte(0, 0xcd)
	assert.Equal(t, uint16(0xabcd), m.LoadWord(MaxAddress))
	assert.Equal(t, byte(0xab), m.LoadByte(MemorySize+MaxAddress))
}

func TestDecodeOverlappingEncodings(t *testing.T) {
	set := GetInstructionSet()
	find := func(name string, mode Mode) *Instruction {
		for _, inst := range set.GetInstructions(name) {
			if inst.Mode == mode {
				return inst
			}
		}
		t.Fatalf("no %s variant with mode %d", name, mode)
		return nil
	}

	tests := []struct {
		inst    *Instruction
		values  []int
		decoded string
		mode    Mode
	}{
		{find("SYS", ADDR), []int{0x0e0}, "CLS", IMP},
		{find("SYS", ADDR), []int{0x0ee}, "RET", IMP},
		{find("SHR", VXVY), []int{1, 0}, "SHR", VX},
		{find("SHL", VXVY), []int{2, 0}, "SHL", VX},
	}

	for _, tt := range tests {
		word := tt.inst.Encode(tt.values)
		d := set.Decode(word)
		require.NotNil(t, d, "%04X", word)
		assert.Equal(t, tt.decoded, d.Name, "%04X", word)
		assert.Equal(t, tt.mode, d.Mode, "%04X", word)
		assert.Equal(t, word, d.Encode(d.Operands(word)), "%04X", word)
	}
}
