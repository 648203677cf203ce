// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package report

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

const esp8266Dump = `
Exception (28):
epc1=0x40201234 epc2=0x00000000 epc3=0x00000000 excvaddr=0x00000000 depc=0x00000000

>>>stack>>>

ctx: cont
sp: 3ffffdf0 end: 3fffffc0 offset: 01a0
3fffff90:  40201234 00000000 3ffee620 40202c3e
<<<stack<<<
`

func addrs(matches []AddressMatch) []uint64 {
	var res []uint64
	for _, m := range matches {
		res = append(res, m.Addr)
	}
	return res
}

func TestExtractAddresses(t *testing.T) {
	tests := []struct {
		text string
		want []uint64
	}{
		{"", nil},
		{"no addresses here", nil},
		{"Exception: epc1=0x40010010", []uint64{0x40010010}},
		{"40201234 3ffe8000 40201234", []uint64{0x40201234, 0x3ffe8000, 0x40201234}},
		{"addr=0XDEADBEEF", []uint64{0xdeadbeef}},
		{"40201234: ret", []uint64{0x40201234}},
		// Too long or glued to other word characters.
		{"123456789 deadbeef0 xdeadbeef _40201234", nil},
		{"4020123", nil},
		{"a0x40010010 x40010010 0x0x40010010", nil},
		{"(0x40010010)", []uint64{0x40010010}},
		{
			esp8266Dump,
			[]uint64{
				0x40201234, 0, 0, 0, 0,
				0x3ffffdf0, 0x3fffffc0,
				0x3fffff90, 0x40201234, 0, 0x3ffee620, 0x40202c3e,
			},
		},
	}
	for i, test := range tests {
		got := addrs(ExtractAddresses([]byte(test.text)))
		if diff := cmp.Diff(test.want, got); diff != "" {
			t.Errorf("#%v: %q: addresses mismatch (-want +got):\n%s", i, test.text, diff)
		}
	}
}

func TestExtractSpans(t *testing.T) {
	text := "Exception: epc1=0x40010010 a2=3ffe8000"
	want := []AddressMatch{
		{Addr: 0x40010010, Text: "0x40010010", Start: 16, End: 26},
		{Addr: 0x3ffe8000, Text: "3ffe8000", Start: 30, End: 38},
	}
	got := ExtractAddresses([]byte(text))
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("matches mismatch (-want +got):\n%s", diff)
	}
	for _, m := range got {
		if text[m.Start:m.End] != m.Text {
			t.Fatalf("span [%v:%v] is %q, text is %q", m.Start, m.End, text[m.Start:m.End], m.Text)
		}
	}
}

func TestExtractPrefix(t *testing.T) {
	e, err := NewExtractor("40")
	if err != nil {
		t.Fatal(err)
	}
	got := addrs(e.Extract([]byte(esp8266Dump)))
	want := []uint64{0x40201234, 0x40201234, 0x40202c3e}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("addresses mismatch (-want +got):\n%s", diff)
	}
}

func TestExtractorBadPrefix(t *testing.T) {
	for _, prefix := range []string{"zz", "4020123456", "0x40"} {
		if _, err := NewExtractor(prefix); err == nil {
			t.Errorf("NewExtractor(%q) did not fail", prefix)
		}
	}
}
