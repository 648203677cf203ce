// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package report extracts code addresses from fault dumps printed by embedded devices.
package report

import (
	"fmt"
	"regexp"
	"strconv"
)

// AddressWidth is the number of hex digits in an address token.
// Fault handlers of 32-bit targets print registers and stack words zero-padded to this width.
const AddressWidth = 8

// AddressMatch is one address token found in a dump.
type AddressMatch struct {
	Addr uint64
	// Text is the matched token including an optional 0x prefix, [Start, End) is its span.
	Text  string
	Start int
	End   int
}

// Extractor finds address tokens in dump text.
type Extractor struct {
	re *regexp.Regexp
}

var defaultExtractor = mustExtractor("")

// NewExtractor returns an extractor for tokens of AddressWidth hex digits.
// If prefix is not empty, only tokens starting with these hex digits are extracted
// (e.g. "40" selects ESP8266 IRAM/flash code addresses and skips data words).
func NewExtractor(prefix string) (*Extractor, error) {
	if len(prefix) >= AddressWidth {
		return nil, fmt.Errorf("address prefix %q is too long", prefix)
	}
	if prefix != "" {
		if _, err := strconv.ParseUint(prefix, 16, 64); err != nil {
			return nil, fmt.Errorf("address prefix %q is not a hex number", prefix)
		}
	}
	// The token starts at a word boundary, either with the digits or with 0x,
	// so that a longer hex run or word is not taken apart.
	digits := fmt.Sprintf("[0-9a-fA-F]{%v}", AddressWidth-len(prefix))
	if prefix != "" {
		digits = "(?i:" + prefix + ")" + digits
	}
	expr := `\b(?:0[xX])?(` + digits + `)\b`
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, err
	}
	return &Extractor{re: re}, nil
}

func mustExtractor(prefix string) *Extractor {
	e, err := NewExtractor(prefix)
	if err != nil {
		panic(err)
	}
	return e
}

// Extract returns all address tokens in text in the order of appearance.
// Repeated addresses are returned every time they occur.
func (e *Extractor) Extract(text []byte) []AddressMatch {
	var res []AddressMatch
	for _, m := range e.re.FindAllSubmatchIndex(text, -1) {
		addr, err := strconv.ParseUint(string(text[m[2]:m[3]]), 16, 64)
		if err != nil {
			continue
		}
		res = append(res, AddressMatch{
			Addr:  addr,
			Text:  string(text[m[0]:m[1]]),
			Start: m[0],
			End:   m[1],
		})
	}
	return res
}

// ExtractAddresses is Extract with the default (unanchored) pattern.
func ExtractAddresses(text []byte) []AddressMatch {
	return defaultExtractor.Extract(text)
}
