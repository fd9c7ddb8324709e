// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package chip8 describes the CHIP-8 instruction set and memory layout
// shared by the assembler and the disassembler.
package chip8

// Mode describes the operand pattern of an instruction variant.
type Mode byte

// All possible operand patterns
const (
	IMP    Mode = iota // no operands
	ADDR               // nnn
	V0ADDR             // V0, nnn
	VXKK               // Vx, kk
	VXVY               // Vx, Vy
	VX                 // Vx
	VXVYN              // Vx, Vy, n
	IADDR              // I, nnn
	VXDT               // Vx, DT
	VXK                // Vx, K
	DTVX               // DT, Vx
	STVX               // ST, Vx
	FVX                // F, Vx
	BVX                // B, Vx
	IVX                // I, Vx
	VXI                // Vx, I
)

// A FieldKind identifies what an operand field holds and where it is
// stored in the 16-bit instruction word.
type FieldKind byte

// All operand field kinds
const (
	FieldVX      FieldKind = iota // register index, bits 8-11
	FieldVY                       // register index, bits 4-7
	FieldV0                       // register V0, not encoded
	FieldByte                     // 8-bit immediate, bits 0-7
	FieldAddr                     // 12-bit address, bits 0-11
	FieldNibble                   // 4-bit immediate, bits 0-3
	FieldSpecial                  // fixed special operand, not encoded
)

// A Field describes one operand slot of an instruction variant.
type Field struct {
	Kind    FieldKind
	Special Special // valid only when Kind is FieldSpecial
}

var fieldLayout = []struct {
	shift uint
	max   int
}{
	{8, 0xf},   // VX
	{4, 0xf},   // VY
	{0, 0},     // V0
	{0, 0xff},  // Byte
	{0, 0xfff}, // Addr
	{0, 0xf},   // Nibble
	{0, 0},     // Special
}

// IsRegister returns true if the field expects a V register.
func (f Field) IsRegister() bool {
	return f.Kind == FieldVX || f.Kind == FieldVY || f.Kind == FieldV0
}

// IsImmediate returns true if the field expects a numeric value.
func (f Field) IsImmediate() bool {
	return f.Kind == FieldByte || f.Kind == FieldAddr || f.Kind == FieldNibble
}

// Max returns the largest value the field can hold.
func (f Field) Max() int {
	return fieldLayout[f.Kind].max
}

// Bits returns the mask of instruction word bits occupied by the field.
func (f Field) Bits() uint16 {
	l := fieldLayout[f.Kind]
	return uint16(l.max) << l.shift
}

func (f Field) encode(v int) uint16 {
	l := fieldLayout[f.Kind]
	return uint16(v&l.max) << l.shift
}

func (f Field) decode(word uint16) int {
	l := fieldLayout[f.Kind]
	return int(word>>l.shift) & l.max
}

var (
	vx = Field{Kind: FieldVX}
	vy = Field{Kind: FieldVY}
	v0 = Field{Kind: FieldV0}
	kk = Field{Kind: FieldByte}
	nn = Field{Kind: FieldAddr}
	n  = Field{Kind: FieldNibble}
)

func special(s Special) Field {
	return Field{Kind: FieldSpecial, Special: s}
}

// Operand fields for each mode, in source order.
var modeFields = [][]Field{
	{},                // IMP
	{nn},              // ADDR
	{v0, nn},          // V0ADDR
	{vx, kk},          // VXKK
	{vx, vy},          // VXVY
	{vx},              // VX
	{vx, vy, n},       // VXVYN
	{special(I), nn},  // IADDR
	{vx, special(DT)}, // VXDT
	{vx, special(K)},  // VXK
	{special(DT), vx}, // DTVX
	{special(ST), vx}, // STVX
	{special(F), vx},  // FVX
	{special(B), vx},  // BVX
	{special(I), vx},  // IVX
	{vx, special(I)},  // VXI
}

// Fields returns the operand fields of the mode in source order.
func (m Mode) Fields() []Field {
	return modeFields[m]
}

// Opcode data for a (mnemonic, mode) pair
type opcodeData struct {
	name   string
	mode   Mode
	opcode uint16
}

// All valid (mnemonic, mode) pairs. Decoding walks this list in order, so
// more specific encodings must come before the general ones they overlap.
var data = []opcodeData{
	{"CLS", IMP, 0x00e0},
	{"RET", IMP, 0x00ee},
	{"SYS", ADDR, 0x0000},

	{"JP", ADDR, 0x1000},
	{"JP", V0ADDR, 0xb000},
	{"CALL", ADDR, 0x2000},

	{"SE", VXKK, 0x3000},
	{"SE", VXVY, 0x5000},
	{"SNE", VXKK, 0x4000},
	{"SNE", VXVY, 0x9000},

	{"LD", VXKK, 0x6000},
	{"LD", VXVY, 0x8000},
	{"LD", IADDR, 0xa000},
	{"LD", VXDT, 0xf007},
	{"LD", VXK, 0xf00a},
	{"LD", DTVX, 0xf015},
	{"LD", STVX, 0xf018},
	{"LD", FVX, 0xf029},
	{"LD", BVX, 0xf033},
	{"LD", IVX, 0xf055},
	{"LD", VXI, 0xf065},

	{"ADD", VXKK, 0x7000},
	{"ADD", VXVY, 0x8004},
	{"ADD", IVX, 0xf01e},

	{"OR", VXVY, 0x8001},
	{"AND", VXVY, 0x8002},
	{"XOR", VXVY, 0x8003},
	{"SUB", VXVY, 0x8005},
	{"SUBN", VXVY, 0x8007},

	{"SHR", VX, 0x8006},
	{"SHR", VXVY, 0x8006},
	{"SHL", VX, 0x800e},
	{"SHL", VXVY, 0x800e},

	{"RND", VXKK, 0xc000},
	{"DRW", VXVYN, 0xd000},

	{"SKP", VX, 0xe09e},
	{"SKNP", VX, 0xe0a1},
}

// An Instruction describes one variant of a CHIP-8 instruction: its
// mnemonic, its operand pattern and the opcode template into which the
// operand fields are merged.
type Instruction struct {
	Name   string // all-caps mnemonic
	Mode   Mode   // operand pattern
	Opcode uint16 // instruction word with all operand fields zero
	mask   uint16 // bits of the word fixed by the opcode
}

// Fields returns the instruction's operand fields in source order.
func (i *Instruction) Fields() []Field {
	return i.Mode.Fields()
}

// Encode merges operand values into the opcode template. Values are
// given in source order, one per field; values for unencoded fields
// (V0 and specials) are ignored. Values are truncated to their field
// width, so callers must range check them first.
func (i *Instruction) Encode(values []int) uint16 {
	word := i.Opcode
	for j, f := range i.Fields() {
		if j < len(values) {
			word |= f.encode(values[j])
		}
	}
	return word
}

// Matches returns true if the instruction word is an encoding of this
// instruction variant.
func (i *Instruction) Matches(word uint16) bool {
	return word&i.mask == i.Opcode
}

// Operands extracts the operand values of an instruction word, one per
// field in source order. Unencoded fields yield 0.
func (i *Instruction) Operands(word uint16) []int {
	fields := i.Fields()
	values := make([]int, len(fields))
	for j, f := range fields {
		values[j] = f.decode(word)
	}
	return values
}

// An InstructionSet holds every CHIP-8 instruction variant.
type InstructionSet struct {
	instructions []Instruction             // all variants in table order
	variants     map[string][]*Instruction // variants of each mnemonic
}

// GetInstructions returns all variants of the mnemonic. Mnemonics are
// case sensitive and upper case.
func (s *InstructionSet) GetInstructions(name string) []*Instruction {
	return s.variants[name]
}

// IsMnemonic returns true if the name is a CHIP-8 mnemonic.
func (s *InstructionSet) IsMnemonic(name string) bool {
	_, ok := s.variants[name]
	return ok
}

// Decode finds the instruction variant encoded by the word. It returns
// nil if the word is not a valid instruction.
//
// Some encodings overlap, and Decode prefers the more specific variant:
// SYS 0x0E0 and SYS 0x0EE decode as CLS and RET, and SHR/SHL VX, V0
// decode as the single-operand SHR/SHL VX. The decoded instruction
// encodes to the same word, so only the spelling differs.
func (s *InstructionSet) Decode(word uint16) *Instruction {
	for i := range s.instructions {
		if s.instructions[i].Matches(word) {
			return &s.instructions[i]
		}
	}
	return nil
}

func newInstructionSet() *InstructionSet {
	set := &InstructionSet{
		instructions: make([]Instruction, len(data)),
		variants:     make(map[string][]*Instruction),
	}

	for i, d := range data {
		inst := &set.instructions[i]
		inst.Name = d.name
		inst.Mode = d.mode
		inst.Opcode = d.opcode
		inst.mask = 0xffff
		for _, f := range d.mode.Fields() {
			inst.mask &^= f.Bits()
		}
		if inst.Opcode&^inst.mask != 0 {
			panic("opcode template overlaps operand fields")
		}
		set.variants[inst.Name] = append(set.variants[inst.Name], inst)
	}
	return set
}

var instructionSet = newInstructionSet()

// GetInstructionSet returns the CHIP-8 instruction set.
func GetInstructionSet() *InstructionSet {
	return instructionSet
}
