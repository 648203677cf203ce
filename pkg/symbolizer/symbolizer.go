// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package symbolizer maps program counters of an ELF binary to functions and
// source locations using the DWARF debug info embedded in the binary.
package symbolizer

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedObject is returned when the input is not a parseable object file.
	ErrMalformedObject = errors.New("malformed object file")
	// ErrMalformedDebugInfo is returned when debug sections are present but inconsistent.
	ErrMalformedDebugInfo = errors.New("malformed debug info")
)

// Frame is one logical stack entry for a PC.
// A single PC yields several frames when it lies in inlined code,
// the innermost (directly executing) frame comes first.
type Frame struct {
	PC uint64
	// Func is the raw (possibly mangled) name. It is empty if the function has no name.
	Func string
	// File is empty and Line is 0 when unknown.
	File   string
	Line   int
	Column int
	// Inline is set if the frame's code was inlined into the next frame.
	Inline bool
	Lang   Lang
}

// Lang is the source language family of the compilation unit a frame belongs to.
type Lang int

const (
	LangUnknown Lang = iota
	LangC
	LangCPlusPlus
	LangRust
	LangGo
	LangAssembly
)

func (lang Lang) String() string {
	switch lang {
	case LangC:
		return "C"
	case LangCPlusPlus:
		return "C++"
	case LangRust:
		return "Rust"
	case LangGo:
		return "Go"
	case LangAssembly:
		return "assembly"
	default:
		return "unknown"
	}
}

// langFromDWARF converts a DW_AT_language value into a language family.
func langFromDWARF(val any) Lang {
	code, ok := val.(int64)
	if !ok {
		return LangUnknown
	}
	switch code {
	case 0x01, 0x02, 0x0c, 0x1d, 0x2c: // C89, C, C99, C11, C17
		return LangC
	case 0x04, 0x19, 0x1a, 0x21, 0x2a, 0x2b: // C++, C++03, C++11, C++14, C++17, C++20
		return LangCPlusPlus
	case 0x1c:
		return LangRust
	case 0x16:
		return LangGo
	case 0x8001: // DW_LANG_Mips_Assembler
		return LangAssembly
	default:
		return LangUnknown
	}
}

// Symbolize resolves all pcs and returns their frames concatenated in pcs order.
func (idx *Index) Symbolize(pcs ...uint64) []Frame {
	var frames []Frame
	for _, pc := range pcs {
		frames = append(frames, idx.FramesFor(pc)...)
	}
	return frames
}

func (frame Frame) String() string {
	return fmt.Sprintf("0x%x %v %v:%v", frame.PC, frame.Func, frame.File, frame.Line)
}
