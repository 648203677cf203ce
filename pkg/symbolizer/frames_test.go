// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package symbolizer

import (
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/hardliner/pkg/testutil"
)

func loadIndex(t *testing.T, data []byte, symtab bool) *Index {
	t.Helper()
	obj, err := ParseObject(data)
	if err != nil {
		t.Fatal(err)
	}
	idx, err := LoadIndex(obj, NewSectionStore(obj), symtab)
	if err != nil {
		t.Fatal(err)
	}
	return idx
}

func TestFramesFor(t *testing.T) {
	idx := loadIndex(t, testutil.SampleELF(), false)
	tests := []struct {
		pc     uint64
		frames []Frame
	}{
		{
			pc: testutil.ChecksumStart,
			frames: []Frame{
				{PC: testutil.ChecksumStart, Func: "compute_checksum", File: "checksum.c", Line: 15, Lang: LangC},
			},
		},
		{
			pc: testutil.ChecksumLine17,
			frames: []Frame{
				{PC: testutil.ChecksumLine17, Func: "compute_checksum", File: "checksum.c", Line: 17, Lang: LangC},
			},
		},
		{
			pc: testutil.ChecksumLine17 + 2,
			frames: []Frame{
				{PC: testutil.ChecksumLine17 + 2, Func: "compute_checksum", File: "checksum.c", Line: 17, Lang: LangC},
			},
		},
		{
			pc: testutil.CRCUpdatePC,
			frames: []Frame{
				{PC: testutil.CRCUpdatePC, Func: "crc_update", File: "crc.h", Line: 5, Inline: true, Lang: LangC},
				{PC: testutil.CRCUpdatePC, Func: "compute_checksum", File: "checksum.c", Line: 22, Lang: LangC},
			},
		},
		{
			pc: testutil.CRCBytePC,
			frames: []Frame{
				{PC: testutil.CRCBytePC, Func: "crc_byte", File: "crc.h", Line: 3, Inline: true, Lang: LangC},
				{PC: testutil.CRCBytePC, Func: "crc_update", File: "crc.h", Line: 7, Inline: true, Lang: LangC},
				{PC: testutil.CRCBytePC, Func: "compute_checksum", File: "checksum.c", Line: 22, Lang: LangC},
			},
		},
		{
			pc: testutil.ChecksumEnd - 1,
			frames: []Frame{
				{PC: testutil.ChecksumEnd - 1, Func: "compute_checksum", File: "checksum.c", Line: 23, Lang: LangC},
			},
		},
		{
			// No line rows, the function is known but the location is not.
			pc: testutil.ResetStatePC,
			frames: []Frame{
				{PC: testutil.ResetStatePC, Func: "reset_state", Lang: LangC},
			},
		},
		{
			pc: testutil.WifiRunPC,
			frames: []Frame{
				{PC: testutil.WifiRunPC, Func: testutil.WifiRunMangled, File: "wifi.cpp", Line: 31, Lang: LangCPlusPlus},
			},
		},
		{
			pc: testutil.RustPanicPC,
			frames: []Frame{
				{PC: testutil.RustPanicPC, Func: testutil.RustPanicMangled, File: "lib.rs", Line: 8, Lang: LangRust},
			},
		},
		{pc: testutil.ChecksumEnd},
		{pc: testutil.UnitGapPC},
		{pc: testutil.UnknownPC},
		{pc: 0},
		{pc: 0x3ffffdf0},
	}
	for _, test := range tests {
		got := idx.FramesFor(test.pc)
		if diff := cmp.Diff(test.frames, got); diff != "" {
			t.Errorf("pc 0x%x: frames mismatch (-want +got):\n%s", test.pc, diff)
		}
	}
}

func TestSymbolize(t *testing.T) {
	idx := loadIndex(t, testutil.SampleELF(), false)
	frames := idx.Symbolize(testutil.UnknownPC, testutil.CRCUpdatePC, testutil.ChecksumLine17)
	var got []string
	for _, frame := range frames {
		got = append(got, frame.Func)
	}
	want := []string{"crc_update", "compute_checksum", "compute_checksum"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("functions mismatch (-want +got):\n%s", diff)
	}
}

func TestFrameIter(t *testing.T) {
	idx := loadIndex(t, testutil.SampleELF(), false)
	it := idx.Frames(testutil.CRCBytePC)
	var first []string
	for frame, ok := it.Next(); ok; frame, ok = it.Next() {
		first = append(first, frame.Func)
	}
	if _, ok := it.Next(); ok {
		t.Fatalf("exhausted iterator returned a frame")
	}
	it.Reset()
	var second []string
	for frame, ok := it.Next(); ok; frame, ok = it.Next() {
		second = append(second, frame.Func)
	}
	want := []string{"crc_byte", "crc_update", "compute_checksum"}
	if diff := cmp.Diff(want, first); diff != "" {
		t.Fatalf("first pass mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want, second); diff != "" {
		t.Fatalf("second pass mismatch (-want +got):\n%s", diff)
	}
	if _, ok := idx.Frames(testutil.UnknownPC).Next(); ok {
		t.Fatalf("unknown pc produced a frame")
	}
}

func TestNoDebugInfo(t *testing.T) {
	idx := loadIndex(t, testutil.NewELF().AddSection(".text", make([]byte, 64)).Bytes(), false)
	for _, pc := range []uint64{0, testutil.ChecksumLine17, testutil.UnknownPC} {
		if frames := idx.FramesFor(pc); len(frames) != 0 {
			t.Fatalf("pc 0x%x: got frames %v without debug info", pc, frames)
		}
	}
}

func TestMalformedDebugInfo(t *testing.T) {
	data := testutil.NewELF().
		AddSection(".debug_info", []byte{7, 0, 0, 0, 99, 0, 0, 0, 0, 0, 4}).
		AddSection(".debug_abbrev", []byte{0}).
		Bytes()
	obj, err := ParseObject(data)
	if err != nil {
		t.Fatal(err)
	}
	_, err = LoadIndex(obj, NewSectionStore(obj), false)
	if !errors.Is(err, ErrMalformedDebugInfo) {
		t.Fatalf("got error %v, want ErrMalformedDebugInfo", err)
	}
}

func TestSymbolTableFallback(t *testing.T) {
	mini := testutil.NewELF().AddSymbol("mini_func", 0x40070000, 0x10).Bytes()
	data := testutil.NewELF().
		AddDebugInfo(testutil.SampleDebugInfo()).
		AddSymbol("app_main", 0x40050000, 0x20).
		AddSymbol("unsized_isr", 0x40060000, 0).
		AddSymbol("gap_handler", 0x40010040, 0x40).
		AddMiniDebugInfo(mini).
		Bytes()
	tests := []struct {
		pc   uint64
		want string
	}{
		{0x40050000, "app_main"},
		{0x4005001f, "app_main"},
		{0x40050020, ""},
		{0x40060100, "unsized_isr"},
		{0x40061000, ""},
		{0x40070008, "mini_func"},
		{testutil.UnitGapPC, "gap_handler"},
		// DWARF still wins where it knows the function.
		{testutil.ChecksumLine17, "compute_checksum"},
		{testutil.UnknownPC, ""},
	}
	idx := loadIndex(t, data, true)
	for _, test := range tests {
		frames := idx.FramesFor(test.pc)
		got := ""
		if len(frames) != 0 {
			got = frames[0].Func
		}
		if got != test.want {
			t.Errorf("pc 0x%x: got %q, want %q", test.pc, got, test.want)
		}
	}
	// Without the option symbols are not consulted.
	idx = loadIndex(t, data, false)
	if frames := idx.FramesFor(0x40050000); len(frames) != 0 {
		t.Fatalf("symbol table used without the option: %v", frames)
	}
}

func TestConcurrentFrames(t *testing.T) {
	idx := loadIndex(t, testutil.SampleELF(), false)
	pcs := []uint64{
		testutil.ChecksumLine17, testutil.CRCUpdatePC, testutil.CRCBytePC,
		testutil.WifiRunPC, testutil.RustPanicPC, testutil.UnknownPC,
	}
	want := make([][]Frame, len(pcs))
	for i, pc := range pcs {
		want[i] = loadIndex(t, testutil.SampleELF(), false).FramesFor(pc)
	}
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range pcs {
				pc := pcs[(i+g)%len(pcs)]
				if diff := cmp.Diff(want[(i+g)%len(pcs)], idx.FramesFor(pc)); diff != "" {
					t.Errorf("pc 0x%x: frames mismatch (-want +got):\n%s", pc, diff)
				}
			}
		}()
	}
	wg.Wait()
}
