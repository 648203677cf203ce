// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package symbolizer

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"fmt"
)

// Object is a read-only view of an ELF file held in memory.
// It borrows the buffer passed to ParseObject.
type Object struct {
	data []byte
	file *elf.File
}

// ParseObject parses data as an ELF file.
// All parsing failures are reported as ErrMalformedObject.
func ParseObject(data []byte) (obj *Object, err error) {
	defer func() {
		if r := recover(); r != nil {
			obj, err = nil, fmt.Errorf("%w: %v", ErrMalformedObject, r)
		}
	}()
	file, err := elf.NewFile(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedObject, err)
	}
	return &Object{
		data: data,
		file: file,
	}, nil
}

func (obj *Object) ByteOrder() binary.ByteOrder {
	return obj.file.ByteOrder
}

func (obj *Object) Class() elf.Class {
	return obj.file.Class
}

func (obj *Object) Machine() elf.Machine {
	return obj.file.Machine
}

// Section returns the section with the given name, or nil.
func (obj *Object) Section(name string) *elf.Section {
	return obj.file.Section(name)
}

func (obj *Object) SectionNames() []string {
	var names []string
	for _, s := range obj.file.Sections {
		if s.Name != "" {
			names = append(names, s.Name)
		}
	}
	return names
}

// raw returns the bytes of s as stored in the file (compressed sections stay compressed).
// The result aliases the input buffer.
func (obj *Object) raw(s *elf.Section) ([]byte, error) {
	if s.Type == elf.SHT_NOBITS {
		return nil, nil
	}
	end := s.Offset + s.FileSize
	if end < s.Offset || end > uint64(len(obj.data)) {
		return nil, fmt.Errorf("section %v [0x%x-0x%x) is out of file bounds (0x%x)",
			s.Name, s.Offset, end, len(obj.data))
	}
	return obj.data[s.Offset:end:end], nil
}

// symbols returns function symbols from .symtab and .dynsym.
func (obj *Object) symbols() []elf.Symbol {
	var res []elf.Symbol
	if syms, err := obj.file.Symbols(); err == nil {
		res = append(res, syms...)
	}
	if syms, err := obj.file.DynamicSymbols(); err == nil {
		res = append(res, syms...)
	}
	return res
}
