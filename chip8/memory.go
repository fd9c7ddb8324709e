// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package chip8

// Memory layout
const (
	MemorySize   = 0x1000 // total addressable memory
	ProgramStart = 0x200  // conventional load address of programs
	MaxAddress   = MemorySize - 1
)

// The Memory interface presents the CHIP-8 address space. Addresses wrap
// at 12 bits.
type Memory interface {
	// LoadByte loads a single byte from the address and returns it.
	LoadByte(addr uint16) byte

	// LoadBytes loads multiple bytes from the address and stores them into
	// the buffer 'b'.
	LoadBytes(addr uint16, b []byte)

	// LoadWord loads a big-endian 16-bit instruction word from the address.
	LoadWord(addr uint16) uint16

	// StoreByte stores a byte to the requested address.
	StoreByte(addr uint16, v byte)

	// StoreBytes stores multiple bytes to the requested address.
	StoreBytes(addr uint16, b []byte)
}

// FlatMemory represents the entire 4K CHIP-8 address space as a single
// buffer.
type FlatMemory struct {
	b [MemorySize]byte
}

// NewFlatMemory creates a new CHIP-8 memory space.
func NewFlatMemory() *FlatMemory {
	return &FlatMemory{}
}

// LoadByte loads a single byte from the address and returns it.
func (m *FlatMemory) LoadByte(addr uint16) byte {
	return m.b[addr&MaxAddress]
}

// LoadBytes loads multiple bytes from the address and returns them.
func (m *FlatMemory) LoadBytes(addr uint16, b []byte) {
	for i := range b {
		b[i] = m.b[(int(addr)+i)&MaxAddress]
	}
}

// LoadWord loads a big-endian 16-bit instruction word from the address.
func (m *FlatMemory) LoadWord(addr uint16) uint16 {
	return uint16(m.LoadByte(addr))<<8 | uint16(m.LoadByte(addr+1))
}

// StoreByte stores a byte at the requested address.
func (m *FlatMemory) StoreByte(addr uint16, v byte) {
	m.b[addr&MaxAddress] = v
}

// StoreBytes stores multiple bytes to the requested address.
func (m *FlatMemory) StoreBytes(addr uint16, b []byte) {
	for i, v := range b {
		m.b[(int(addr)+i)&MaxAddress] = v
	}
}
