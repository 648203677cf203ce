// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package testutil

// Addresses of the sample firmware described by SampleDebugInfo.
const (
	ChecksumStart    = 0x40010000
	ChecksumEnd      = 0x40010040
	ChecksumLine17   = 0x40010010 // checksum.c:17
	CRCUpdatePC      = 0x40010020 // crc_update inlined into compute_checksum
	CRCBytePC        = 0x40010024 // crc_byte inlined into crc_update
	UnitGapPC        = 0x40010050 // inside checksum.c unit, outside any function
	ResetStatePC     = 0x40010084 // reset_state, no line rows
	WifiRunPC        = 0x40020010
	RustPanicPC      = 0x40030004
	UnknownPC        = 0xdeadbeef
	WifiRunMangled   = "_ZN9wifi_task3runEv"
	RustPanicMangled = "_ZN4core9panicking5panic17h0123456789abcdefE"
)

// SampleDebugInfo returns debug info of a small ESP8266-like firmware with C, C++ and Rust units.
func SampleDebugInfo() *DebugInfo {
	return &DebugInfo{
		Units: []Unit{
			{
				Name:  "checksum.c",
				Lang:  LangC99,
				Low:   0x40010000,
				High:  0x40010100,
				Files: []string{"checksum.c", "crc.h"},
				Lines: []LineRow{
					{Addr: 0x40010000, File: 1, Line: 15},
					{Addr: 0x40010010, File: 1, Line: 17},
					{Addr: 0x40010020, File: 2, Line: 5},
					{Addr: 0x40010024, File: 2, Line: 3},
					{Addr: 0x40010028, File: 2, Line: 6},
					{Addr: 0x40010030, File: 1, Line: 23},
					{Addr: 0x40010040, End: true},
				},
				Funcs: []Func{
					{
						Name:     "compute_checksum",
						Low:      ChecksumStart,
						High:     ChecksumEnd,
						DeclFile: 1,
						DeclLine: 12,
						Inlined: []Inlined{
							{
								Name:     "crc_update",
								Low:      0x40010020,
								High:     0x40010030,
								CallFile: 1,
								CallLine: 22,
								Inlined: []Inlined{
									{
										Name:     "crc_byte",
										Low:      0x40010024,
										High:     0x40010028,
										CallFile: 2,
										CallLine: 7,
									},
								},
							},
						},
					},
					{
						Name:     "reset_state",
						Low:      0x40010080,
						High:     0x40010090,
						DeclFile: 1,
						DeclLine: 40,
					},
				},
			},
			{
				Name:  "wifi.cpp",
				Lang:  LangCPlusPlus,
				Low:   0x40020000,
				High:  0x40020020,
				Files: []string{"wifi.cpp"},
				Lines: []LineRow{
					{Addr: 0x40020000, File: 1, Line: 30},
					{Addr: 0x40020010, File: 1, Line: 31},
				},
				Funcs: []Func{
					{
						Name:        "run",
						LinkageName: WifiRunMangled,
						Low:         0x40020000,
						High:        0x40020020,
						DeclFile:    1,
						DeclLine:    29,
					},
				},
			},
			{
				Name:  "lib.rs",
				Lang:  LangRust,
				Low:   0x40030000,
				High:  0x40030010,
				Files: []string{"lib.rs"},
				Lines: []LineRow{
					{Addr: 0x40030000, File: 1, Line: 8},
				},
				Funcs: []Func{
					{
						Name:        "panic",
						LinkageName: RustPanicMangled,
						Low:         0x40030000,
						High:        0x40030010,
						DeclFile:    1,
						DeclLine:    7,
					},
				},
			},
		},
	}
}

// SampleELF returns the sample firmware with plain debug sections.
func SampleELF() []byte {
	return NewELF().AddSection(".text", make([]byte, 16)).AddDebugInfo(SampleDebugInfo()).Bytes()
}
