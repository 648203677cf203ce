// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package symbolizer

import (
	"testing"

	"github.com/google/hardliner/pkg/testutil"
)

func TestDemangle(t *testing.T) {
	tests := []struct {
		raw   string
		lang  Lang
		style DemangleStyle
		want  string
	}{
		{"compute_checksum", LangC, DemangleFull, "compute_checksum"},
		{"main", LangUnknown, DemangleFull, "main"},
		{testutil.WifiRunMangled, LangCPlusPlus, DemangleFull, "wifi_task::run()"},
		{testutil.WifiRunMangled, LangCPlusPlus, DemangleTemplates, "wifi_task::run"},
		{testutil.WifiRunMangled, LangCPlusPlus, DemangleSimplified, "wifi_task::run"},
		{testutil.WifiRunMangled, LangCPlusPlus, DemangleNone, testutil.WifiRunMangled},
		// C units may still refer to C++ functions.
		{testutil.WifiRunMangled, LangC, DemangleFull, "wifi_task::run()"},
		{testutil.WifiRunMangled, LangUnknown, DemangleFull, "wifi_task::run()"},
		{"_ZN3foo3barIiEEvT_", LangCPlusPlus, DemangleFull, "void foo::bar<int>(int)"},
		{"_ZN3foo3barIiEEvT_", LangCPlusPlus, DemangleSimplified, "foo::bar"},
		{testutil.RustPanicMangled, LangRust, DemangleFull, "core::panicking::panic"},
		{testutil.RustPanicMangled, LangUnknown, DemangleFull, "core::panicking::panic"},
		{"_RNvC6_123foo3bar", LangRust, DemangleFull, "123foo::bar"},
		// Malformed mangled names are kept.
		{"_Z!", LangCPlusPlus, DemangleFull, "_Z!"},
		{"_ZN9wifi_task", LangCPlusPlus, DemangleFull, "_ZN9wifi_task"},
		{"", LangC, DemangleFull, UnknownFunc},
		{"\xff\xfe", LangCPlusPlus, DemangleFull, UnknownFunc},
		{"\xff\xfe", LangC, DemangleNone, UnknownFunc},
	}
	for _, test := range tests {
		got := Demangle(test.raw, test.lang, test.style)
		if got != test.want {
			t.Errorf("Demangle(%q, %v, %v) = %q, want %q", test.raw, test.lang, test.style, got, test.want)
		}
	}
}

func TestParseDemangleStyle(t *testing.T) {
	for in, want := range map[string]DemangleStyle{
		"":           DemangleFull,
		"full":       DemangleFull,
		"templates":  DemangleTemplates,
		"simplified": DemangleSimplified,
		"none":       DemangleNone,
	} {
		got, err := ParseDemangleStyle(in)
		if err != nil || got != want {
			t.Errorf("ParseDemangleStyle(%q) = %q, %v, want %q", in, got, err, want)
		}
	}
	if _, err := ParseDemangleStyle("pretty"); err == nil {
		t.Errorf("unknown style accepted")
	}
}
