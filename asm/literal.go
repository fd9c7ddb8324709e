// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"errors"
	"fmt"
	"strconv"
)

// MaxLiteral is the largest value a numeric literal may hold.
const MaxLiteral = 0xffff

// ParseLiteral converts the text of a numeric literal into its value.
// Literals may be decimal, hexadecimal with a 0x prefix or binary with a
// 0b prefix. Any number of digits may be used, but the value must fit in
// 16 bits.
func ParseLiteral(s string) (int, error) {
	base, digits, kind := 10, s, "decimal"
	if len(s) > 1 && s[0] == '0' {
		switch s[1] {
		case 'x', 'X':
			base, digits, kind = 16, s[2:], "hexadecimal"
		case 'b', 'B':
			base, digits, kind = 2, s[2:], "binary"
		}
	}

	if digits == "" {
		return 0, fmt.Errorf("%s literal '%s' has no digits", kind, s)
	}

	v, err := strconv.ParseUint(digits, base, 16)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return 0, fmt.Errorf("literal '%s' exceeds $%X", s, MaxLiteral)
		}
		return 0, fmt.Errorf("invalid %s literal '%s'", kind, s)
	}
	return int(v), nil
}
