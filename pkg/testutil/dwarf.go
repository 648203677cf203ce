// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package testutil

import (
	"bytes"
	"encoding/binary"
	"sort"
)

// DebugInfo describes DWARF 4 debug info of a 32-bit little-endian program.
type DebugInfo struct {
	Units []Unit
}

// Unit is a compilation unit. Files are numbered from 1 in line rows, decl_file and call_file.
type Unit struct {
	Name  string
	Lang  uint16
	Low   uint32
	High  uint32
	Files []string
	Lines []LineRow
	Funcs []Func
	// NoLines omits DW_AT_stmt_list.
	NoLines bool
}

type LineRow struct {
	Addr uint32
	File int
	Line int
	// End terminates the sequence at Addr, File and Line are ignored.
	End bool
}

type Func struct {
	Name        string
	LinkageName string
	Low         uint32
	High        uint32
	DeclFile    int
	DeclLine    int
	Inlined     []Inlined
}

// Inlined is an inlined call of the abstract function Name.
type Inlined struct {
	Name     string
	Low      uint32
	High     uint32
	CallFile int
	CallLine int
	Inlined  []Inlined
}

// Section is a named ELF section.
type Section struct {
	Name string
	Data []byte
}

const (
	abbrevUnit = iota + 1
	abbrevFunc
	abbrevLinkageFunc
	abbrevAbstractFunc
	abbrevInlined
	abbrevUnitNoLines
)

// DWARF constants used by the builder.
const (
	tagCompileUnit       = 0x11
	tagSubprogram        = 0x2e
	tagInlinedSubroutine = 0x1d

	attrName           = 0x03
	attrLanguage       = 0x13
	attrLowpc          = 0x11
	attrHighpc         = 0x12
	attrStmtList       = 0x10
	attrDeclFile       = 0x3a
	attrDeclLine       = 0x3b
	attrLinkageName    = 0x6e
	attrInline         = 0x20
	attrAbstractOrigin = 0x31
	attrCallFile       = 0x58
	attrCallLine       = 0x59

	formAddr      = 0x01
	formData2     = 0x05
	formData4     = 0x06
	formString    = 0x08
	formData1     = 0x0b
	formStrp      = 0x0e
	formRef4      = 0x13
	formSecOffset = 0x17

	// DW_LANG_* values.
	LangC99           = 0x0c
	LangCPlusPlus     = 0x04
	LangRust          = 0x1c
	LangMipsAssembler = 0x8001
)

func abbrevTable() []byte {
	buf := new(bytes.Buffer)
	abbrev := func(code, tag int, children bool, attrs ...int) {
		uleb(buf, uint64(code))
		uleb(buf, uint64(tag))
		if children {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
		}
		for _, a := range attrs {
			uleb(buf, uint64(a))
		}
		buf.Write([]byte{0, 0})
	}
	abbrev(abbrevUnit, tagCompileUnit, true,
		attrName, formString, attrLanguage, formData2,
		attrLowpc, formAddr, attrHighpc, formData4, attrStmtList, formSecOffset)
	abbrev(abbrevUnitNoLines, tagCompileUnit, true,
		attrName, formString, attrLanguage, formData2,
		attrLowpc, formAddr, attrHighpc, formData4)
	abbrev(abbrevFunc, tagSubprogram, true,
		attrName, formStrp, attrDeclFile, formData1, attrDeclLine, formData2,
		attrLowpc, formAddr, attrHighpc, formData4)
	abbrev(abbrevLinkageFunc, tagSubprogram, true,
		attrLinkageName, formStrp, attrName, formStrp, attrDeclFile, formData1, attrDeclLine, formData2,
		attrLowpc, formAddr, attrHighpc, formData4)
	abbrev(abbrevAbstractFunc, tagSubprogram, false,
		attrName, formStrp, attrInline, formData1)
	abbrev(abbrevInlined, tagInlinedSubroutine, true,
		attrAbstractOrigin, formRef4, attrLowpc, formAddr, attrHighpc, formData4,
		attrCallFile, formData1, attrCallLine, formData2)
	buf.WriteByte(0)
	return buf.Bytes()
}

// Sections returns .debug_abbrev, .debug_info, .debug_line and .debug_str.
func (d *DebugInfo) Sections() []Section {
	var str stringTable
	info := new(bytes.Buffer)
	line := new(bytes.Buffer)
	for _, u := range d.Units {
		lineOff := uint32(line.Len())
		writeLineProgram(line, &u)
		writeUnit(info, &u, lineOff, &str)
	}
	return []Section{
		{".debug_abbrev", abbrevTable()},
		{".debug_info", info.Bytes()},
		{".debug_line", line.Bytes()},
		{".debug_str", str.bytes()},
	}
}

func writeUnit(out *bytes.Buffer, u *Unit, lineOff uint32, str *stringTable) {
	le := binary.LittleEndian
	buf := new(bytes.Buffer)
	// Header: unit_length (patched below), version, abbrev offset, address size.
	buf.Write(make([]byte, 4))
	binary.Write(buf, le, uint16(4))
	binary.Write(buf, le, uint32(0))
	buf.WriteByte(4)

	if u.NoLines {
		uleb(buf, abbrevUnitNoLines)
	} else {
		uleb(buf, abbrevUnit)
	}
	buf.WriteString(u.Name)
	buf.WriteByte(0)
	binary.Write(buf, le, u.Lang)
	binary.Write(buf, le, u.Low)
	binary.Write(buf, le, u.High-u.Low)
	if !u.NoLines {
		binary.Write(buf, le, lineOff)
	}

	// Abstract functions go first, so that their offsets are known to inlined entries.
	origins := make(map[string]uint32)
	var collect func([]Inlined)
	collect = func(list []Inlined) {
		for _, in := range list {
			if _, ok := origins[in.Name]; !ok {
				origins[in.Name] = uint32(buf.Len())
				uleb(buf, abbrevAbstractFunc)
				binary.Write(buf, le, str.add(in.Name))
				buf.WriteByte(3) // DW_INL_declared_inlined
			}
			collect(in.Inlined)
		}
	}
	for _, fn := range u.Funcs {
		collect(fn.Inlined)
	}

	var inlined func([]Inlined)
	inlined = func(list []Inlined) {
		for _, in := range list {
			uleb(buf, abbrevInlined)
			binary.Write(buf, le, origins[in.Name])
			binary.Write(buf, le, in.Low)
			binary.Write(buf, le, in.High-in.Low)
			buf.WriteByte(byte(in.CallFile))
			binary.Write(buf, le, uint16(in.CallLine))
			inlined(in.Inlined)
			buf.WriteByte(0)
		}
	}
	for _, fn := range u.Funcs {
		if fn.LinkageName != "" {
			uleb(buf, abbrevLinkageFunc)
			binary.Write(buf, le, str.add(fn.LinkageName))
		} else {
			uleb(buf, abbrevFunc)
		}
		binary.Write(buf, le, str.add(fn.Name))
		buf.WriteByte(byte(fn.DeclFile))
		binary.Write(buf, le, uint16(fn.DeclLine))
		binary.Write(buf, le, fn.Low)
		binary.Write(buf, le, fn.High-fn.Low)
		inlined(fn.Inlined)
		buf.WriteByte(0)
	}
	buf.WriteByte(0)

	data := buf.Bytes()
	le.PutUint32(data, uint32(len(data)-4))
	out.Write(data)
}

// DWARF 4 line program header parameters.
const (
	lineBase   = -5
	lineRange  = 14
	opcodeBase = 13
)

var standardOpcodeLengths = []byte{0, 1, 1, 1, 1, 0, 0, 0, 1, 0, 0, 1}

func writeLineProgram(out *bytes.Buffer, u *Unit) {
	if u.NoLines {
		return
	}
	le := binary.LittleEndian
	hdr := new(bytes.Buffer)
	hdr.WriteByte(1) // minimum_instruction_length
	hdr.WriteByte(1) // maximum_operations_per_instruction
	hdr.WriteByte(1) // default_is_stmt
	hdr.WriteByte(lineBase & 0xff)
	hdr.WriteByte(lineRange)
	hdr.WriteByte(opcodeBase)
	hdr.Write(standardOpcodeLengths)
	hdr.WriteByte(0) // no include_directories
	for _, file := range u.Files {
		hdr.WriteString(file)
		hdr.WriteByte(0)
		uleb(hdr, 0) // directory
		uleb(hdr, 0) // mtime
		uleb(hdr, 0) // length
	}
	hdr.WriteByte(0)

	prog := new(bytes.Buffer)
	setAddress := func(addr uint32) {
		prog.Write([]byte{0, 5, 2}) // DW_LNE_set_address
		binary.Write(prog, le, addr)
	}
	rows := append([]LineRow{}, u.Lines...)
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Addr < rows[j].Addr })
	line := 1
	for _, row := range rows {
		setAddress(row.Addr)
		if row.End {
			prog.Write([]byte{0, 1, 1}) // DW_LNE_end_sequence
			line = 1
			continue
		}
		prog.WriteByte(4) // DW_LNS_set_file
		uleb(prog, uint64(row.File))
		prog.WriteByte(3) // DW_LNS_advance_line
		sleb(prog, int64(row.Line-line))
		line = row.Line
		prog.WriteByte(1) // DW_LNS_copy
	}
	if len(rows) == 0 || !rows[len(rows)-1].End {
		setAddress(u.High)
		prog.Write([]byte{0, 1, 1})
	}

	binary.Write(out, le, uint32(2+4+hdr.Len()+prog.Len()))
	binary.Write(out, le, uint16(4))
	binary.Write(out, le, uint32(hdr.Len()))
	out.Write(hdr.Bytes())
	out.Write(prog.Bytes())
}

func uleb(buf *bytes.Buffer, v uint64) {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		buf.WriteByte(b)
		if v == 0 {
			return
		}
	}
}

func sleb(buf *bytes.Buffer, v int64) {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v == 0 && b&0x40 == 0 || v == -1 && b&0x40 != 0 {
			buf.WriteByte(b)
			return
		}
		buf.WriteByte(b | 0x80)
	}
}
