// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package symbolizer

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ianlancetaylor/demangle"
)

// UnknownFunc replaces names that can't be presented.
const UnknownFunc = "unknown_func"

// DemangleStyle controls how much of a demangled signature is kept.
type DemangleStyle string

const (
	// DemangleFull keeps parameters and template arguments.
	DemangleFull DemangleStyle = "full"
	// DemangleTemplates drops function parameters.
	DemangleTemplates DemangleStyle = "templates"
	// DemangleSimplified drops parameters and template arguments.
	DemangleSimplified DemangleStyle = "simplified"
	// DemangleNone leaves linkage names as is.
	DemangleNone DemangleStyle = "none"
)

func ParseDemangleStyle(s string) (DemangleStyle, error) {
	switch style := DemangleStyle(s); style {
	case "":
		return DemangleFull, nil
	case DemangleFull, DemangleTemplates, DemangleSimplified, DemangleNone:
		return style, nil
	}
	return "", fmt.Errorf("unknown demangling style %q (want full, templates, simplified or none)", s)
}

func (style DemangleStyle) options() []demangle.Option {
	switch style {
	case DemangleTemplates:
		return []demangle.Option{demangle.NoParams}
	case DemangleSimplified:
		return []demangle.Option{demangle.NoParams, demangle.NoTemplateParams}
	default:
		return []demangle.Option{demangle.NoClones}
	}
}

// Demangle converts a raw symbol name into a readable one.
// Names that are not mangled, or can't be demangled, are returned unchanged.
// Names that are not valid UTF-8 are replaced with UnknownFunc.
func Demangle(raw string, lang Lang, style DemangleStyle) string {
	if raw == "" || !utf8.ValidString(raw) {
		return UnknownFunc
	}
	if style == DemangleNone {
		return raw
	}
	mangled := strings.HasPrefix(raw, "_Z") || strings.HasPrefix(raw, "_R")
	opts := style.options()
	switch lang {
	case LangC, LangAssembly, LangGo:
		// These don't mangle, but may still reference C++/Rust symbols.
		if !mangled {
			return raw
		}
	case LangCPlusPlus:
		// Legacy Rust names look like C++ names, don't guess in C++ units.
		ast, err := demangle.ToAST(raw, opts...)
		if err != nil {
			return raw
		}
		return demangle.ASTToString(ast, opts...)
	}
	res, err := demangle.ToString(raw, opts...)
	if err != nil {
		return raw
	}
	return res
}
