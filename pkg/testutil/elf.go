// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package testutil

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"fmt"

	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

// ELF builds little-endian 32-bit Xtensa ELF executables for tests.
type ELF struct {
	sections []elfSection
	symbols  []elf.Sym32
	strtab   stringTable
}

type elfSection struct {
	name  string
	typ   elf.SectionType
	flags elf.SectionFlag
	data  []byte
}

func NewELF() *ELF {
	return new(ELF)
}

// AddSection adds a PROGBITS section with the given contents.
func (b *ELF) AddSection(name string, data []byte) *ELF {
	b.sections = append(b.sections, elfSection{name: name, typ: elf.SHT_PROGBITS, data: data})
	return b
}

// AddCompressedSection adds a SHF_COMPRESSED section, data is compressed with typ.
func (b *ELF) AddCompressedSection(name string, data []byte, typ elf.CompressionType) *ELF {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.LittleEndian, elf.Chdr32{
		Type:      uint32(typ),
		Size:      uint32(len(data)),
		Addralign: 1,
	})
	buf.Write(Compress(data, typ))
	b.sections = append(b.sections, elfSection{
		name:  name,
		typ:   elf.SHT_PROGBITS,
		flags: elf.SHF_COMPRESSED,
		data:  buf.Bytes(),
	})
	return b
}

// AddGNUCompressedSection adds a legacy .zdebug_* section for a .debug_* name.
func (b *ELF) AddGNUCompressedSection(name string, data []byte) *ELF {
	buf := new(bytes.Buffer)
	buf.WriteString("ZLIB")
	binary.Write(buf, binary.BigEndian, uint64(len(data)))
	buf.Write(Compress(data, elf.COMPRESS_ZLIB))
	return b.AddSection(".zdebug_"+name[len(".debug_"):], buf.Bytes())
}

// AddMiniDebugInfo adds .gnu_debugdata holding the xz-compressed embedded object.
func (b *ELF) AddMiniDebugInfo(embedded []byte) *ELF {
	buf := new(bytes.Buffer)
	w, err := xz.NewWriter(buf)
	if err != nil {
		panic(err)
	}
	if _, err := w.Write(embedded); err != nil {
		panic(err)
	}
	if err := w.Close(); err != nil {
		panic(err)
	}
	return b.AddSection(".gnu_debugdata", buf.Bytes())
}

// AddDebugInfo adds all sections of the DWARF description as plain sections.
func (b *ELF) AddDebugInfo(d *DebugInfo) *ELF {
	for _, s := range d.Sections() {
		b.AddSection(s.Name, s.Data)
	}
	return b
}

// AddSymbol adds a global function symbol to .symtab.
func (b *ELF) AddSymbol(name string, value, size uint32) *ELF {
	b.symbols = append(b.symbols, elf.Sym32{
		Name:  b.strtab.add(name),
		Value: value,
		Size:  size,
		Info:  elf.ST_INFO(elf.STB_GLOBAL, elf.STT_FUNC),
		Shndx: uint16(elf.SHN_ABS),
	})
	return b
}

// Bytes returns the ELF file image.
func (b *ELF) Bytes() []byte {
	sections := append([]elfSection{}, b.sections...)
	if len(b.symbols) != 0 {
		symtab := new(bytes.Buffer)
		binary.Write(symtab, binary.LittleEndian, elf.Sym32{})
		for _, sym := range b.symbols {
			binary.Write(symtab, binary.LittleEndian, sym)
		}
		sections = append(sections,
			elfSection{name: ".symtab", typ: elf.SHT_SYMTAB, data: symtab.Bytes()},
			elfSection{name: ".strtab", typ: elf.SHT_STRTAB, data: b.strtab.bytes()},
		)
	}
	var shstrtab stringTable
	names := make([]uint32, len(sections))
	for i, s := range sections {
		names[i] = shstrtab.add(s.name)
	}
	shstrtabName := shstrtab.add(".shstrtab")
	sections = append(sections, elfSection{name: ".shstrtab", typ: elf.SHT_STRTAB, data: shstrtab.bytes()})
	names = append(names, shstrtabName)

	const ehsize, shentsize = 52, 40
	buf := new(bytes.Buffer)
	buf.Write(make([]byte, ehsize))
	headers := []elf.Section32{{}}
	for i, s := range sections {
		for buf.Len()%4 != 0 {
			buf.WriteByte(0)
		}
		hdr := elf.Section32{
			Name:      names[i],
			Type:      uint32(s.typ),
			Flags:     uint32(s.flags),
			Off:       uint32(buf.Len()),
			Size:      uint32(len(s.data)),
			Addralign: 1,
		}
		if s.typ == elf.SHT_SYMTAB {
			// .strtab follows .symtab.
			hdr.Link = uint32(len(headers) + 1)
			hdr.Info = 1
			hdr.Entsize = elf.Sym32Size
			hdr.Addralign = 4
		}
		headers = append(headers, hdr)
		buf.Write(s.data)
	}
	for buf.Len()%4 != 0 {
		buf.WriteByte(0)
	}
	shoff := buf.Len()
	for _, hdr := range headers {
		binary.Write(buf, binary.LittleEndian, hdr)
	}
	var ident [elf.EI_NIDENT]byte
	copy(ident[:], elf.ELFMAG)
	ident[elf.EI_CLASS] = byte(elf.ELFCLASS32)
	ident[elf.EI_DATA] = byte(elf.ELFDATA2LSB)
	ident[elf.EI_VERSION] = byte(elf.EV_CURRENT)
	ehdr := new(bytes.Buffer)
	binary.Write(ehdr, binary.LittleEndian, elf.Header32{
		Ident:     ident,
		Type:      uint16(elf.ET_EXEC),
		Machine:   uint16(elf.EM_XTENSA),
		Version:   uint32(elf.EV_CURRENT),
		Entry:     0x40100000,
		Shoff:     uint32(shoff),
		Ehsize:    ehsize,
		Shentsize: shentsize,
		Shnum:     uint16(len(headers)),
		Shstrndx:  uint16(len(headers) - 1),
	})
	res := buf.Bytes()
	copy(res, ehdr.Bytes())
	return res
}

// Compress compresses data in the format of the given ELF compression type.
func Compress(data []byte, typ elf.CompressionType) []byte {
	buf := new(bytes.Buffer)
	switch typ {
	case elf.COMPRESS_ZLIB:
		w := zlib.NewWriter(buf)
		w.Write(data)
		w.Close()
	case elf.COMPRESS_ZSTD:
		w, err := zstd.NewWriter(nil)
		if err != nil {
			panic(err)
		}
		buf.Write(w.EncodeAll(data, nil))
		w.Close()
	default:
		panic(fmt.Sprintf("unknown compression %v", typ))
	}
	return buf.Bytes()
}

// stringTable is an ELF/DWARF string table with deduplication, offset 0 is the empty string.
type stringTable struct {
	buf     []byte
	offsets map[string]uint32
}

func (st *stringTable) add(s string) uint32 {
	if st.offsets == nil {
		st.buf = []byte{0}
		st.offsets = map[string]uint32{"": 0}
	}
	if off, ok := st.offsets[s]; ok {
		return off
	}
	off := uint32(len(st.buf))
	st.buf = append(st.buf, s...)
	st.buf = append(st.buf, 0)
	st.offsets[s] = off
	return off
}

func (st *stringTable) bytes() []byte {
	if st.offsets == nil {
		return []byte{0}
	}
	return st.buf
}
