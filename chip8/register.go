// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package chip8

import "fmt"

// NumRegisters is the number of general purpose V registers.
const NumRegisters = 16

// LookupRegister returns the index of a V register name ("V0" through
// "VF"). Register names are upper case.
func LookupRegister(name string) (int, bool) {
	if len(name) != 2 || name[0] != 'V' {
		return 0, false
	}
	c := name[1]
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0'), true
	case c >= 'A' && c <= 'F':
		return int(c-'A') + 10, true
	default:
		return 0, false
	}
}

// RegisterName returns the source name of the V register with index i.
func RegisterName(i int) string {
	return fmt.Sprintf("V%X", i&0xf)
}

// Special identifies one of the named non-V operands.
type Special byte

// Special operands
const (
	I  Special = iota + 1 // index register
	F                     // font sprite location
	B                     // BCD store
	K                     // key press
	DT                    // delay timer
	ST                    // sound timer
)

var specialNames = []string{"", "I", "F", "B", "K", "DT", "ST"}

func (s Special) String() string {
	if int(s) < len(specialNames) {
		return specialNames[s]
	}
	return "?"
}

// LookupSpecial returns the special operand with the given name.
func LookupSpecial(name string) (Special, bool) {
	for i := 1; i < len(specialNames); i++ {
		if specialNames[i] == name {
			return Special(i), true
		}
	}
	return 0, false
}
