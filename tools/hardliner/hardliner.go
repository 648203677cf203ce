// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// hardliner symbolizes addresses found in fault dumps of ESP8266-class devices.
//
// Usage:
//
//	hardliner [flags] firmware.elf [dump.txt]
//
// The dump is read from stdin if the file is not given or is "-".
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/google/hardliner/pkg/decoder"
	"github.com/google/hardliner/pkg/log"
	"github.com/google/hardliner/pkg/osutil"
	"github.com/google/hardliner/pkg/stat"
	"github.com/google/hardliner/pkg/tool"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	flagConfig   = flag.String("config", "", "decoder config file (JSON or YAML)")
	flagPrefix   = flag.String("prefix", "", "decode only addresses starting with these hex digits (e.g. 40)")
	flagDemangle = flag.String("demangle", "", "demangling style: full, templates, simplified or none")
	flagWorkers  = flag.Int("j", 0, "number of addresses resolved in parallel")
	flagSymtab   = flag.Bool("symtab", false, "use ELF symbols for addresses without debug info")
	flagStrip    = flag.String("strip", "", "comma-separated source path prefixes to strip")
	flagJSON     = flag.Bool("json", false, "print one JSON object per frame")
	flagColor    = flag.Bool("color", true, "colorize output")
	flagStats    = flag.Bool("stats", false, "print decoding statistics to stderr")
	flagOutput   = flag.String("o", "", "write frames to this file instead of stdout")
	flagMetrics  = flag.String("metrics", "", "write decoding statistics in Prometheus text format to this file")
)

func main() {
	defer tool.Init()()
	args := flag.Args()
	if len(args) < 1 || len(args) > 2 {
		fmt.Fprintf(os.Stderr, "usage: hardliner [flags] firmware.elf [dump.txt]\n")
		flag.PrintDefaults()
		os.Exit(1)
	}
	cfg, err := loadConfig()
	if err != nil {
		tool.Fail(err)
	}
	if err := osutil.IsAccessible(args[0]); err != nil {
		tool.Fail(err)
	}
	bin, err := os.ReadFile(args[0])
	if err != nil {
		tool.Failf("failed to read binary: %v", err)
	}
	dumpFile := ""
	if len(args) == 2 {
		dumpFile = args[1]
	}
	dump, err := osutil.ReadInput(dumpFile, os.Stdin)
	if err != nil {
		tool.Fail(err)
	}
	d, err := decoder.New(bin, cfg)
	if err != nil {
		tool.Fail(err)
	}
	res := d.Decode(string(dump))
	if !*flagColor || (*flagOutput != "" && *flagOutput != "-") {
		color.NoColor = true
	}
	if err := writeOutput(*flagOutput, res, *flagJSON); err != nil {
		tool.Failf("failed to write output: %v", err)
	}
	if *flagStats {
		printStats(os.Stderr, d.Stats())
	} else if log.V(1) {
		printStats(log.VerboseWriter(1), d.Stats())
	}
	if *flagMetrics != "" {
		if err := prometheus.WriteToTextfile(*flagMetrics, d.Registry()); err != nil {
			tool.Failf("failed to write metrics: %v", err)
		}
	}
}

// loadConfig reads the config file, if any, and applies flag overrides.
func loadConfig() (*decoder.Config, error) {
	cfg := decoder.DefaultConfig()
	if *flagConfig != "" {
		var err error
		if cfg, err = decoder.LoadConfig(*flagConfig); err != nil {
			return nil, err
		}
	}
	if *flagPrefix != "" {
		cfg.AddressPrefix = *flagPrefix
	}
	if *flagDemangle != "" {
		cfg.Demangle = *flagDemangle
	}
	if *flagWorkers != 0 {
		cfg.Workers = *flagWorkers
	}
	if *flagSymtab {
		cfg.Symtab = true
	}
	if *flagStrip != "" {
		cfg.StripPrefixes = append(cfg.StripPrefixes, strings.Split(*flagStrip, ",")...)
	}
	return cfg, cfg.Validate()
}

// writeOutput prints res to filename, or to stdout if filename is empty or "-".
func writeOutput(filename string, res []decoder.DecodedAddress, jsonOut bool) error {
	buf := new(bytes.Buffer)
	if err := printResults(buf, res, jsonOut); err != nil {
		return err
	}
	return osutil.WriteFile(filename, buf.Bytes(), color.Output)
}

func printResults(w io.Writer, res []decoder.DecodedAddress, jsonOut bool) error {
	if jsonOut {
		enc := json.NewEncoder(w)
		for _, addr := range res {
			if err := enc.Encode(addr); err != nil {
				return err
			}
		}
		return nil
	}
	bold := color.New(color.Bold).SprintFunc()
	blue := color.New(color.FgBlue).SprintFunc()
	for _, addr := range res {
		inline := ""
		if addr.Inline {
			inline = " [inlined]"
		}
		if _, err := fmt.Fprintf(w, "0x%08x: %v at %v%v\n", addr.Address,
			bold(addr.FunctionName), blue(addr.Location), inline); err != nil {
			return err
		}
	}
	return nil
}

func printStats(w io.Writer, stats []stat.UI) {
	for _, ui := range stats {
		fmt.Fprintf(w, "%-24v%v\n", ui.Name+":", ui.Value)
	}
}
