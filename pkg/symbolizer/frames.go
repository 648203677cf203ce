// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package symbolizer

import (
	"debug/dwarf"

	"github.com/google/hardliner/pkg/log"
)

// DW_AT_MIPS_linkage_name, emitted by older GCC instead of DW_AT_linkage_name.
const attrMIPSLinkageName dwarf.Attr = 0x2007

// Maximum length of abstract_origin/specification chains we follow.
const maxOriginDepth = 16

// FramesFor returns frames for pc, innermost first.
// The result is empty if pc is not inside a known function or if the debug info
// for that particular pc can't be read.
func (idx *Index) FramesFor(pc uint64) (frames []Frame) {
	defer func() {
		if r := recover(); r != nil {
			log.Logf(0, "panic while symbolizing 0x%x: %v", pc, r)
			frames = nil
		}
	}()
	frames, err := idx.framesFor(pc)
	if err != nil {
		log.Logf(1, "failed to symbolize 0x%x: %v", pc, err)
		return nil
	}
	return frames
}

func (idx *Index) framesFor(pc uint64) ([]Frame, error) {
	var cu *dwarf.Entry
	if idx.dw != nil {
		cu = idx.findCU(pc)
	}
	if cu == nil {
		return idx.symbolFrames(pc, nil), nil
	}
	p, err := idx.lineTable(cu)
	if err != nil {
		return nil, err
	}
	row := p.lookup(pc)
	fn, err := idx.function(cu, pc)
	if err != nil {
		return nil, err
	}
	if fn == nil {
		return idx.symbolFrames(pc, row), nil
	}
	chain, err := idx.inlineChain(fn, pc)
	if err != nil {
		return nil, err
	}
	lang := idx.langs[cu.Offset]
	frames := make([]Frame, 0, len(chain))
	// chain goes from the subprogram to the innermost inlined entry,
	// frames go the other way.
	for i := len(chain) - 1; i >= 0; i-- {
		die := chain[i]
		frame := Frame{
			PC:     pc,
			Func:   idx.name(die),
			Inline: i > 0,
			Lang:   lang,
		}
		if i < len(chain)-1 {
			call := chain[i+1]
			callFile, _ := call.Val(dwarf.AttrCallFile).(int64)
			callLine, _ := call.Val(dwarf.AttrCallLine).(int64)
			callColumn, _ := call.Val(dwarf.AttrCallColumn).(int64)
			frame.File = p.file(callFile)
			frame.Line = int(callLine)
			frame.Column = int(callColumn)
		} else if row != nil {
			frame.File, frame.Line, frame.Column = rowLocation(row)
		}
		frames = append(frames, frame)
	}
	return frames, nil
}

// symbolFrames is used when DWARF does not know a function for pc.
func (idx *Index) symbolFrames(pc uint64, row *dwarf.LineEntry) []Frame {
	if idx.symbols == nil {
		return nil
	}
	name := idx.symbols.lookup(pc)
	if name == "" {
		return nil
	}
	frame := Frame{PC: pc, Func: name}
	if row != nil {
		frame.File, frame.Line, frame.Column = rowLocation(row)
	}
	return []Frame{frame}
}

func rowLocation(row *dwarf.LineEntry) (string, int, int) {
	file := ""
	if row.File != nil {
		file = row.File.Name
	}
	return file, row.Line, row.Column
}

// inlineChain returns fn followed by the nested inlined subroutines containing pc,
// outermost first.
func (idx *Index) inlineChain(fn *dwarf.Entry, pc uint64) ([]*dwarf.Entry, error) {
	chain := []*dwarf.Entry{fn}
	if !fn.Children {
		return chain, nil
	}
	r := idx.dw.Reader()
	r.Seek(fn.Offset)
	if _, err := r.Next(); err != nil {
		return nil, err
	}
	if _, err := idx.findInlined(r, pc, &chain); err != nil {
		return nil, err
	}
	return chain, nil
}

// findInlined scans sibling entries up to the terminating null entry and appends
// the inlined subroutine containing pc and, recursively, its inlined callees.
// Lexical blocks are transparent.
func (idx *Index) findInlined(r *dwarf.Reader, pc uint64, chain *[]*dwarf.Entry) (bool, error) {
	for {
		entry, err := r.Next()
		if err != nil {
			return false, err
		}
		if entry == nil || entry.Tag == 0 {
			return false, nil
		}
		ranges, err := idx.dw.Ranges(entry)
		if err != nil {
			return false, err
		}
		covers := false
		for _, rng := range ranges {
			if pc >= rng[0] && pc < rng[1] {
				covers = true
				break
			}
		}
		switch {
		case covers && entry.Tag == dwarf.TagInlinedSubroutine:
			*chain = append(*chain, entry)
			if entry.Children {
				if _, err := idx.findInlined(r, pc, chain); err != nil {
					return false, err
				}
			}
			return true, nil
		case entry.Children && (covers || entry.Tag == dwarf.TagLexDwarfBlock && len(ranges) == 0):
			found, err := idx.findInlined(r, pc, chain)
			if err != nil || found {
				return found, err
			}
		case entry.Children:
			r.SkipChildren()
		}
	}
}

// name returns the linkage name of die if any, or its plain name,
// following abstract origins and specifications.
func (idx *Index) name(die *dwarf.Entry) string {
	for depth := 0; die != nil && depth < maxOriginDepth; depth++ {
		for _, attr := range []dwarf.Attr{dwarf.AttrLinkageName, attrMIPSLinkageName, dwarf.AttrName} {
			if name, ok := die.Val(attr).(string); ok && name != "" {
				return name
			}
		}
		die = idx.origin(die)
	}
	return ""
}

func (idx *Index) origin(die *dwarf.Entry) *dwarf.Entry {
	for _, attr := range []dwarf.Attr{dwarf.AttrAbstractOrigin, dwarf.AttrSpecification} {
		off, ok := die.Val(attr).(dwarf.Offset)
		if !ok {
			continue
		}
		origin, err := idx.entryAt(off)
		if err != nil {
			log.Logf(1, "bad %v reference 0x%x in entry 0x%x: %v", attr, off, die.Offset, err)
			return nil
		}
		return origin
	}
	return nil
}

// FrameIter lazily produces frames for one PC. The sequence is finite
// and can be restarted with Reset.
type FrameIter struct {
	idx      *Index
	pc       uint64
	frames   []Frame
	pos      int
	resolved bool
}

func (idx *Index) Frames(pc uint64) *FrameIter {
	return &FrameIter{idx: idx, pc: pc}
}

func (it *FrameIter) Next() (Frame, bool) {
	if !it.resolved {
		it.frames = it.idx.FramesFor(it.pc)
		it.resolved = true
	}
	if it.pos >= len(it.frames) {
		return Frame{}, false
	}
	it.pos++
	return it.frames[it.pos-1], true
}

func (it *FrameIter) Reset() {
	it.pos = 0
}
