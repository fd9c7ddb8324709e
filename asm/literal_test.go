// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLiteral(t *testing.T) {
	tests := []struct {
		text  string
		value int
	}{
		{"0", 0},
		{"42", 42},
		{"007", 7},
		{"65535", 0xffff},
		{"0x0", 0},
		{"0xFF", 0xff},
		{"0xff", 0xff},
		{"0x000abc", 0xabc},
		{"0X1F", 0x1f},
		{"0b00000011", 3},
		{"0b01110", 14},
		{"0b1", 1},
		{"0b1111111111111111", 0xffff},
	}

	for _, tt := range tests {
		v, err := ParseLiteral(tt.text)
		require.NoError(t, err, tt.text)
		assert.Equal(t, tt.value, v, tt.text)
	}
}

func TestParseLiteralErrors(t *testing.T) {
	tests := []struct {
		text string
		msg  string
	}{
		{"0x", "hexadecimal literal '0x' has no digits"},
		{"0b", "binary literal '0b' has no digits"},
		{"0xG1", "invalid hexadecimal literal '0xG1'"},
		{"0b12", "invalid binary literal '0b12'"},
		{"12ab", "invalid decimal literal '12ab'"},
		{"65536", "literal '65536' exceeds $FFFF"},
		{"0x10000", "literal '0x10000' exceeds $FFFF"},
	}

	for _, tt := range tests {
		_, err := ParseLiteral(tt.text)
		assert.EqualError(t, err, tt.msg, tt.text)
	}
}
