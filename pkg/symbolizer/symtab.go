// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package symbolizer

import (
	"debug/elf"
	"sort"

	"github.com/google/hardliner/pkg/log"
)

// Upper bound for the extent of a symbol with unknown size.
const maxUnsizedSymbol = 4096

// symbolTable answers PC lookups from ELF function symbols.
type symbolTable struct {
	symbols []elf.Symbol
}

// loadSymbolTable collects function symbols from .symtab, .dynsym and
// the MiniDebugInfo object embedded in .gnu_debugdata.
func loadSymbolTable(obj *Object, store *SectionStore) *symbolTable {
	all := obj.symbols()
	mini, err := store.MiniDebugInfo()
	if err != nil {
		log.Logf(0, "ignoring .gnu_debugdata: %v", err)
	} else if mini != nil {
		all = append(all, mini.symbols()...)
	}
	st := new(symbolTable)
	for _, sym := range all {
		if elf.ST_TYPE(sym.Info) != elf.STT_FUNC || sym.Value == 0 || sym.Name == "" {
			continue
		}
		st.symbols = append(st.symbols, sym)
	}
	sort.Slice(st.symbols, func(i, j int) bool {
		si, sj := st.symbols[i], st.symbols[j]
		if si.Value != sj.Value {
			return si.Value < sj.Value
		}
		if si.Size != sj.Size {
			return si.Size < sj.Size
		}
		return si.Name > sj.Name
	})
	log.Logf(1, "loaded %v function symbols", len(st.symbols))
	return st
}

func (st *symbolTable) lookup(pc uint64) string {
	idx := sort.Search(len(st.symbols), func(i int) bool {
		return st.symbols[i].Value > pc
	})
	if idx == 0 {
		return ""
	}
	s := st.symbols[idx-1]
	limit := s.Value + s.Size
	if s.Size == 0 {
		limit = s.Value + maxUnsizedSymbol
		if idx < len(st.symbols) && st.symbols[idx].Value < limit {
			limit = st.symbols[idx].Value
		}
	}
	if pc >= limit {
		return ""
	}
	return s.Name
}
