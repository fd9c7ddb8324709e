// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"encoding/json"
	"io"
	"sort"
)

// A SourceMap describes the mapping between source code line numbers and
// assembly code addresses.
type SourceMap struct {
	Origin uint16       // Load address of the code
	Size   uint32       // Size of the code in bytes
	CRC    uint32       // CRC-32 checksum of the code
	File   string       // Source file name
	Lines  []SourceLine // Address mappings, sorted by address
	Labels []Label      // Label addresses, sorted by address
}

// A SourceLine represents a mapping between a machine code address and
// the source code line number used to generate it.
type SourceLine struct {
	Address int // Machine code address
	Line    int // Source code line number
}

// A Label describes the address assigned to a label.
type Label struct {
	Name    string
	Address uint16
}

// Search searches the source map for a mapping with the requested address.
func (s *SourceMap) Search(addr int) (filename string, line int) {
	i := sort.Search(len(s.Lines), func(i int) bool {
		return s.Lines[i].Address >= addr
	})
	if i < len(s.Lines) && s.Lines[i].Address == addr {
		return s.File, s.Lines[i].Line
	}
	return "", -1
}

// Label returns the name of the first label assigned to the address.
func (s *SourceMap) Label(addr uint16) (name string, ok bool) {
	i := sort.Search(len(s.Labels), func(i int) bool {
		return s.Labels[i].Address >= addr
	})
	if i < len(s.Labels) && s.Labels[i].Address == addr {
		return s.Labels[i].Name, true
	}
	return "", false
}

// Contains returns true if the address lies within the mapped code.
func (s *SourceMap) Contains(addr uint16) bool {
	return addr >= s.Origin && uint32(addr) < uint32(s.Origin)+s.Size
}

// ReadFrom reads the contents of an exported source map file.
func (s *SourceMap) ReadFrom(r io.Reader) (n int64, err error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return 0, err
	}

	err = json.Unmarshal(b, s)
	if err != nil {
		return 0, err
	}
	return int64(len(b)), nil
}

// WriteTo writes the contents of the source map to an output stream.
func (s *SourceMap) WriteTo(w io.Writer) (n int64, err error) {
	b, err := json.Marshal(*s)
	if err != nil {
		return 0, err
	}

	nn, err := w.Write(b)
	return int64(nn), err
}
