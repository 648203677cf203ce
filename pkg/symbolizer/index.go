// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package symbolizer

import (
	"debug/dwarf"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/google/hardliner/pkg/log"
)

// Sections passed to dwarf.New, in the order of its arguments.
var dwarfSections = []string{
	".debug_abbrev",
	".debug_aranges",
	".debug_frame",
	".debug_info",
	".debug_line",
	".debug_pubnames",
	".debug_ranges",
	".debug_str",
}

// DWARF 5 sections added with (*dwarf.Data).AddSection.
var dwarf5Sections = []string{
	".debug_addr",
	".debug_line_str",
	".debug_str_offsets",
	".debug_rnglists",
}

// Index is an address-indexed view of DWARF debug info.
// Line tables and subprogram lists are parsed on first use and cached,
// the information returned for a PC never changes after BuildIndex.
type Index struct {
	dw       *dwarf.Data
	cuRanges []entryRange
	langs    map[dwarf.Offset]Lang
	symbols  *symbolTable

	mu        sync.Mutex
	lineCache map[dwarf.Offset]*parsedCU
	subCache  map[dwarf.Offset][]entryRange
}

type entryRange struct {
	low   uint64
	high  uint64
	entry *dwarf.Entry
}

type parsedCU struct {
	entries []dwarf.LineEntry
	files   []*dwarf.LineFile
}

// BuildIndex loads debug sections with lookup and indexes compilation units by address.
// Missing sections are fine; an object without .debug_info produces an empty index.
// Inconsistent debug info is reported as ErrMalformedDebugInfo.
func BuildIndex(lookup func(name string) ([]byte, error)) (idx *Index, err error) {
	defer func() {
		if r := recover(); r != nil {
			idx, err = nil, fmt.Errorf("%w: %v", ErrMalformedDebugInfo, r)
		}
	}()
	sections := make(map[string][]byte)
	for _, list := range [][]string{dwarfSections, dwarf5Sections, {".debug_types"}} {
		for _, name := range list {
			data, err := lookup(name)
			if err != nil {
				return nil, fmt.Errorf("%w: %w", ErrMalformedDebugInfo, err)
			}
			sections[name] = data
		}
	}
	idx = &Index{
		langs:     make(map[dwarf.Offset]Lang),
		lineCache: make(map[dwarf.Offset]*parsedCU),
		subCache:  make(map[dwarf.Offset][]entryRange),
	}
	if len(sections[".debug_info"]) == 0 {
		return idx, nil
	}
	var args [8][]byte
	for i, name := range dwarfSections {
		args[i] = sections[name]
	}
	dw, err := dwarf.New(args[0], args[1], args[2], args[3], args[4], args[5], args[6], args[7])
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedDebugInfo, err)
	}
	for _, name := range dwarf5Sections {
		if err := dw.AddSection(name, sections[name]); err != nil {
			return nil, fmt.Errorf("%w: %v: %w", ErrMalformedDebugInfo, name, err)
		}
	}
	if types := sections[".debug_types"]; len(types) != 0 {
		if err := dw.AddTypes("types", types); err != nil {
			return nil, fmt.Errorf("%w: .debug_types: %w", ErrMalformedDebugInfo, err)
		}
	}
	idx.dw = dw
	if err := idx.buildIndex(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedDebugInfo, err)
	}
	return idx, nil
}

// LoadIndex builds the index from the object's debug sections.
// If symtab is set, ELF symbol tables are used for PCs not covered by DWARF.
func LoadIndex(obj *Object, store *SectionStore, symtab bool) (*Index, error) {
	idx, err := BuildIndex(store.Section)
	if err != nil {
		return nil, err
	}
	if symtab {
		idx.symbols = loadSymbolTable(obj, store)
	}
	return idx, nil
}

func (idx *Index) buildIndex() error {
	r := idx.dw.Reader()
	for {
		entry, err := r.Next()
		if err != nil {
			return err
		}
		if entry == nil {
			break
		}
		if entry.Tag != dwarf.TagCompileUnit && entry.Tag != dwarf.TagPartialUnit {
			r.SkipChildren()
			continue
		}
		idx.langs[entry.Offset] = langFromDWARF(entry.Val(dwarf.AttrLanguage))
		ranges, err := idx.dw.Ranges(entry)
		if err != nil {
			return fmt.Errorf("unit at 0x%x: %w", entry.Offset, err)
		}
		if len(ranges) == 0 {
			// Some producers don't describe unit ranges, use the functions instead.
			subs, err := idx.subprograms(entry)
			if err != nil {
				return fmt.Errorf("unit at 0x%x: %w", entry.Offset, err)
			}
			for _, sub := range subs {
				ranges = append(ranges, [2]uint64{sub.low, sub.high})
			}
		}
		for _, rng := range ranges {
			if rng[0] >= rng[1] {
				continue
			}
			idx.cuRanges = append(idx.cuRanges, entryRange{
				low:   rng[0],
				high:  rng[1],
				entry: entry,
			})
		}
		r.SkipChildren()
	}
	sortRanges(idx.cuRanges)
	log.Logf(1, "indexed %v compilation unit ranges", len(idx.cuRanges))
	return nil
}

func sortRanges(ranges []entryRange) {
	sort.SliceStable(ranges, func(i, j int) bool {
		if ranges[i].low != ranges[j].low {
			return ranges[i].low < ranges[j].low
		}
		return ranges[i].high > ranges[j].high
	})
}

// findRange returns the entry of the innermost range containing pc.
// Ranges must be sorted with sortRanges.
func findRange(ranges []entryRange, pc uint64) *dwarf.Entry {
	i := sort.Search(len(ranges), func(i int) bool {
		return ranges[i].low > pc
	})
	for i--; i >= 0; i-- {
		if pc < ranges[i].high {
			return ranges[i].entry
		}
	}
	return nil
}

func (idx *Index) findCU(pc uint64) *dwarf.Entry {
	return findRange(idx.cuRanges, pc)
}

func (idx *Index) lineTable(cu *dwarf.Entry) (*parsedCU, error) {
	idx.mu.Lock()
	p, ok := idx.lineCache[cu.Offset]
	idx.mu.Unlock()
	if ok {
		return p, nil
	}
	p = new(parsedCU)
	lr, err := idx.dw.LineReader(cu)
	if err != nil {
		return nil, err
	}
	if lr != nil {
		var entry dwarf.LineEntry
		for {
			if err := lr.Next(&entry); err != nil {
				if err == io.EOF {
					break
				}
				return nil, err
			}
			p.entries = append(p.entries, entry)
		}
		// End-of-sequence rows go first so that a sequence starting at the same
		// address wins the lookup.
		sort.SliceStable(p.entries, func(i, j int) bool {
			if p.entries[i].Address != p.entries[j].Address {
				return p.entries[i].Address < p.entries[j].Address
			}
			return p.entries[i].EndSequence && !p.entries[j].EndSequence
		})
		p.files = lr.Files()
	}
	idx.mu.Lock()
	idx.lineCache[cu.Offset] = p
	idx.mu.Unlock()
	return p, nil
}

// lookup returns the line table row covering pc.
func (p *parsedCU) lookup(pc uint64) *dwarf.LineEntry {
	i := sort.Search(len(p.entries), func(i int) bool {
		return p.entries[i].Address > pc
	})
	if i == 0 || p.entries[i-1].EndSequence {
		return nil
	}
	return &p.entries[i-1]
}

func (p *parsedCU) file(idx int64) string {
	if idx < 0 || idx >= int64(len(p.files)) || p.files[idx] == nil {
		return ""
	}
	return p.files[idx].Name
}

func (idx *Index) function(cu *dwarf.Entry, pc uint64) (*dwarf.Entry, error) {
	subs, err := idx.subprograms(cu)
	if err != nil {
		return nil, err
	}
	return findRange(subs, pc), nil
}

func (idx *Index) subprograms(cu *dwarf.Entry) ([]entryRange, error) {
	idx.mu.Lock()
	subs, ok := idx.subCache[cu.Offset]
	idx.mu.Unlock()
	if ok {
		return subs, nil
	}
	r := idx.dw.Reader()
	r.Seek(cu.Offset)
	if _, err := r.Next(); err != nil {
		return nil, err
	}
	if cu.Children {
		if err := idx.collectSubprograms(r, &subs); err != nil {
			return nil, err
		}
	}
	sortRanges(subs)
	idx.mu.Lock()
	idx.subCache[cu.Offset] = subs
	idx.mu.Unlock()
	return subs, nil
}

// collectSubprograms reads sibling entries up to the terminating null entry.
// Subprograms nested in namespaces and types (C++, Rust) are collected as well.
func (idx *Index) collectSubprograms(r *dwarf.Reader, subs *[]entryRange) error {
	for {
		entry, err := r.Next()
		if err != nil {
			return err
		}
		if entry == nil || entry.Tag == 0 {
			return nil
		}
		switch entry.Tag {
		case dwarf.TagCompileUnit, dwarf.TagPartialUnit:
			// Missing null entry at the end of the previous unit.
			return nil
		case dwarf.TagSubprogram:
			ranges, err := idx.dw.Ranges(entry)
			if err != nil {
				return err
			}
			for _, rng := range ranges {
				if rng[0] < rng[1] {
					*subs = append(*subs, entryRange{low: rng[0], high: rng[1], entry: entry})
				}
			}
			if entry.Children {
				r.SkipChildren()
			}
		case dwarf.TagNamespace, dwarf.TagModule, dwarf.TagClassType,
			dwarf.TagStructType, dwarf.TagUnionType:
			if entry.Children {
				if err := idx.collectSubprograms(r, subs); err != nil {
					return err
				}
			}
		default:
			if entry.Children {
				r.SkipChildren()
			}
		}
	}
}

// entryAt reads the entry at the given offset.
func (idx *Index) entryAt(off dwarf.Offset) (*dwarf.Entry, error) {
	r := idx.dw.Reader()
	r.Seek(off)
	entry, err := r.Next()
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, fmt.Errorf("no entry at 0x%x", off)
	}
	return entry, nil
}
