// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package symbolizer

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/google/hardliner/pkg/log"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

// SectionStore returns section contents of an Object, decompressing them if necessary.
// Uncompressed sections alias the object buffer. Decompressed sections are kept in the
// store's arena, so they stay valid and are decompressed only once while the store is alive.
type SectionStore struct {
	obj   *Object
	mu    sync.Mutex
	arena map[string][]byte
}

func NewSectionStore(obj *Object) *SectionStore {
	return &SectionStore{
		obj:   obj,
		arena: make(map[string][]byte),
	}
}

// Section returns contents of the named section.
// A missing section is not an error, the result is empty in that case.
func (ss *SectionStore) Section(name string) ([]byte, error) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	if data, ok := ss.arena[name]; ok {
		return data, nil
	}
	s := ss.obj.Section(name)
	if s == nil {
		if !strings.HasPrefix(name, ".debug_") {
			return nil, nil
		}
		// Old GNU toolchains name zlib-compressed sections .zdebug_*.
		s = ss.obj.Section(".zdebug_" + strings.TrimPrefix(name, ".debug_"))
		if s == nil {
			return nil, nil
		}
	}
	raw, err := ss.obj.raw(s)
	if err != nil {
		return nil, err
	}
	var data []byte
	switch {
	case s.Flags&elf.SHF_COMPRESSED != 0:
		data, err = ss.decompressELF(raw)
	case strings.HasPrefix(s.Name, ".zdebug_"):
		data, err = decompressGNU(raw)
	default:
		return raw, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decompress %v: %w", s.Name, err)
	}
	log.Logf(2, "decompressed %v: %v -> %v bytes", s.Name, len(raw), len(data))
	ss.arena[name] = data
	return data, nil
}

// MiniDebugInfo returns the object embedded in the xz-compressed .gnu_debugdata section,
// or nil if there is none.
func (ss *SectionStore) MiniDebugInfo() (*Object, error) {
	const name = ".gnu_debugdata"
	ss.mu.Lock()
	data, ok := ss.arena[name]
	ss.mu.Unlock()
	if !ok {
		s := ss.obj.Section(name)
		if s == nil {
			return nil, nil
		}
		raw, err := ss.obj.raw(s)
		if err != nil {
			return nil, err
		}
		r, err := xz.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("failed to decompress %v: %w", name, err)
		}
		data, err = io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("failed to decompress %v: %w", name, err)
		}
		ss.mu.Lock()
		ss.arena[name] = data
		ss.mu.Unlock()
	}
	return ParseObject(data)
}

func (ss *SectionStore) decompressELF(raw []byte) ([]byte, error) {
	var typ elf.CompressionType
	var size uint64
	var hdr int
	r := bytes.NewReader(raw)
	switch ss.obj.Class() {
	case elf.ELFCLASS32:
		var ch elf.Chdr32
		if err := binary.Read(r, ss.obj.ByteOrder(), &ch); err != nil {
			return nil, err
		}
		typ, size, hdr = elf.CompressionType(ch.Type), uint64(ch.Size), binary.Size(ch)
	case elf.ELFCLASS64:
		var ch elf.Chdr64
		if err := binary.Read(r, ss.obj.ByteOrder(), &ch); err != nil {
			return nil, err
		}
		typ, size, hdr = elf.CompressionType(ch.Type), ch.Size, binary.Size(ch)
	default:
		return nil, fmt.Errorf("unsupported ELF class %v", ss.obj.Class())
	}
	return decompress(typ, raw[hdr:], size)
}

// decompressGNU handles the legacy .zdebug format: "ZLIB", 8-byte big-endian size, zlib stream.
func decompressGNU(raw []byte) ([]byte, error) {
	if len(raw) < 12 || string(raw[:4]) != "ZLIB" {
		return nil, fmt.Errorf("bad .zdebug header")
	}
	return decompress(elf.COMPRESS_ZLIB, raw[12:], binary.BigEndian.Uint64(raw[4:12]))
}

func decompress(typ elf.CompressionType, compressed []byte, size uint64) ([]byte, error) {
	var data []byte
	switch typ {
	case elf.COMPRESS_ZLIB:
		r, err := zlib.NewReader(bytes.NewReader(compressed))
		if err != nil {
			return nil, err
		}
		defer r.Close()
		data, err = io.ReadAll(io.LimitReader(r, int64(size)))
		if err != nil {
			return nil, err
		}
	case elf.COMPRESS_ZSTD:
		// The decoder never accepts windows below MinWindowSize.
		dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1),
			zstd.WithDecoderMaxMemory(max(size, zstd.MinWindowSize)))
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		data, err = dec.DecodeAll(compressed, nil)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown compression type %v", typ)
	}
	if uint64(len(data)) != size {
		return nil, fmt.Errorf("decompressed size %v, header says %v", len(data), size)
	}
	return data, nil
}
