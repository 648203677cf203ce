// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package decoder turns fault dumps of embedded devices into symbolized stack frames
// using the debug info of the firmware binary.
package decoder

import (
	"fmt"
	"strings"

	"github.com/google/hardliner/pkg/log"
	"github.com/google/hardliner/pkg/report"
	"github.com/google/hardliner/pkg/stat"
	"github.com/google/hardliner/pkg/symbolizer"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
)

// DecodedAddress is one frame of an address found in a dump.
type DecodedAddress struct {
	Address      uint64 `json:"address"`
	FunctionName string `json:"function_name"`
	Location     string `json:"location"`
	Inline       bool   `json:"inline"`
}

// Decoder decodes dumps against one binary. The binary buffer must stay unmodified
// while the decoder is in use. Decode may be called concurrently.
type Decoder struct {
	cfg       *Config
	style     symbolizer.DemangleStyle
	extractor *report.Extractor
	index     *symbolizer.Index
	cache     symbolizer.Cache

	stats          *stat.Set
	statAddresses  *stat.Val
	statResolved   *stat.Val
	statUnresolved *stat.Val
	statFrames     *stat.Val
	statInline     *stat.Val
	statDepth      *stat.Val
}

// Decode decodes dump against bin with the default config.
// If bin can't be loaded, the result is empty.
func Decode(bin []byte, dump string) []DecodedAddress {
	d, err := New(bin, nil)
	if err != nil {
		log.Logf(0, "%v", err)
		return nil
	}
	return d.Decode(dump)
}

// New loads the binary and indexes its debug info. A nil cfg means DefaultConfig.
func New(bin []byte, cfg *Config) (d *Decoder, err error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	defer func() {
		if r := recover(); r != nil {
			d, err = nil, fmt.Errorf("failed to load binary: %v", r)
		}
	}()
	style, err := symbolizer.ParseDemangleStyle(cfg.Demangle)
	if err != nil {
		return nil, err
	}
	extractor, err := report.NewExtractor(cfg.AddressPrefix)
	if err != nil {
		return nil, err
	}
	obj, err := symbolizer.ParseObject(bin)
	if err != nil {
		return nil, fmt.Errorf("failed to load binary: %w", err)
	}
	log.Logf(1, "loaded %v %v binary, sections: %v",
		obj.Machine(), obj.Class(), strings.Join(obj.SectionNames(), " "))
	index, err := symbolizer.LoadIndex(obj, symbolizer.NewSectionStore(obj), cfg.Symtab)
	if err != nil {
		return nil, fmt.Errorf("failed to load binary: %w", err)
	}
	d = &Decoder{
		cfg:       cfg,
		style:     style,
		extractor: extractor,
		index:     index,
		stats:     stat.NewSet(),
	}
	d.initStats()
	return d, nil
}

func (d *Decoder) initStats() {
	d.statAddresses = d.stats.New("addresses", "Address tokens found in dumps",
		stat.Console, stat.Prometheus("hardliner_addresses"))
	d.statResolved = d.stats.New("resolved", "Addresses resolved to at least one frame",
		stat.Console, stat.Prometheus("hardliner_resolved"))
	d.statUnresolved = d.stats.New("unresolved", "Addresses outside of known functions",
		stat.Console, stat.Prometheus("hardliner_unresolved"))
	d.statFrames = d.stats.New("frames", "Frames produced", stat.Prometheus("hardliner_frames"))
	d.statInline = d.stats.New("inline frames", "Frames of inlined calls",
		stat.Prometheus("hardliner_inline_frames"))
	d.statDepth = d.stats.New("frames per address", "Number of frames per resolved address",
		stat.Distribution{})
	d.stats.New("cache hits", "Addresses served from the frame cache",
		func() int { return d.cache.Hits() }, stat.Prometheus("hardliner_cache_hits"))
}

// Decode finds addresses in dump and returns their frames.
// Addresses follow the order of the dump, frames of an address go innermost first.
// Addresses that don't belong to any known function produce nothing.
func (d *Decoder) Decode(dump string) (res []DecodedAddress) {
	defer func() {
		if r := recover(); r != nil {
			log.Logf(0, "panic while decoding: %v", r)
			res = nil
		}
	}()
	matches := d.extractor.Extract([]byte(dump))
	d.statAddresses.Add(len(matches))
	results := make([][]DecodedAddress, len(matches))
	if d.cfg.Workers <= 1 || len(matches) <= 1 {
		for i, m := range matches {
			results[i] = d.resolve(m.Addr)
		}
	} else {
		var eg errgroup.Group
		eg.SetLimit(d.cfg.Workers)
		for i, m := range matches {
			eg.Go(func() error {
				results[i] = d.resolve(m.Addr)
				return nil
			})
		}
		eg.Wait()
	}
	for _, frames := range results {
		res = append(res, frames...)
	}
	log.Logf(1, "decoded %v addresses into %v frames", len(matches), len(res))
	return res
}

func (d *Decoder) resolve(pc uint64) (res []DecodedAddress) {
	defer func() {
		if r := recover(); r != nil {
			log.Logf(0, "panic while resolving 0x%x: %v", pc, r)
			res = nil
		}
	}()
	frames := d.cache.Frames(d.index.FramesFor, pc)
	for _, frame := range frames {
		if frame.Func == "" {
			// Nameless subprograms don't identify a function.
			continue
		}
		res = append(res, DecodedAddress{
			Address:      pc,
			FunctionName: symbolizer.Demangle(frame.Func, frame.Lang, d.style),
			Location:     FormatLocation(stripPrefix(frame.File, d.cfg.StripPrefixes), frame.Line),
			Inline:       frame.Inline,
		})
		if frame.Inline {
			d.statInline.Add(1)
		}
	}
	if len(res) == 0 {
		d.statUnresolved.Add(1)
		return nil
	}
	d.statResolved.Add(1)
	d.statFrames.Add(len(res))
	d.statDepth.Add(len(res))
	return res
}

// Stats returns decoding statistics accumulated over all Decode calls.
func (d *Decoder) Stats() []stat.UI {
	return d.stats.Collect(stat.All)
}

// Registry returns the Prometheus registry with the decoder gauges.
func (d *Decoder) Registry() *prometheus.Registry {
	return d.stats.Registry()
}
