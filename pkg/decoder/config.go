// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package decoder

import (
	"fmt"

	"github.com/google/hardliner/pkg/config"
	"github.com/google/hardliner/pkg/report"
	"github.com/google/hardliner/pkg/symbolizer"
)

// Config controls decoding. It can be loaded from JSON or YAML files:
//
//	{
//		"address_prefix": "40",
//		"demangle": "simplified",
//		"workers": 4,
//		"symtab": true,
//		"strip_prefixes": ["/home/build/esp/"]
//	}
type Config struct {
	// Only addresses starting with these hex digits are decoded (none by default).
	AddressPrefix string `json:"address_prefix" yaml:"address_prefix"`
	// Demangling style: full, templates, simplified or none.
	Demangle string `json:"demangle" yaml:"demangle"`
	// Number of addresses resolved in parallel.
	Workers int `json:"workers" yaml:"workers"`
	// Fall back to ELF symbols for addresses DWARF does not describe.
	Symtab bool `json:"symtab" yaml:"symtab"`
	// Build directory prefixes removed from source file names.
	StripPrefixes []string `json:"strip_prefixes" yaml:"strip_prefixes"`
}

func DefaultConfig() *Config {
	return &Config{
		Demangle: string(symbolizer.DemangleFull),
		Workers:  1,
	}
}

// LoadConfig loads and validates a config file, missing fields keep default values.
func LoadConfig(filename string) (*Config, error) {
	cfg := DefaultConfig()
	if err := config.LoadFile(filename, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%v: %w", filename, err)
	}
	return cfg, nil
}

func (cfg *Config) Validate() error {
	if _, err := report.NewExtractor(cfg.AddressPrefix); err != nil {
		return fmt.Errorf("bad address_prefix: %w", err)
	}
	if _, err := symbolizer.ParseDemangleStyle(cfg.Demangle); err != nil {
		return fmt.Errorf("bad demangle: %w", err)
	}
	if cfg.Workers < 0 {
		return fmt.Errorf("bad workers: %v", cfg.Workers)
	}
	for _, prefix := range cfg.StripPrefixes {
		if prefix == "" {
			return fmt.Errorf("empty strip prefix")
		}
	}
	return nil
}
