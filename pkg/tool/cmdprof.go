// Copyright 2020 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package tool

import (
	"flag"
	"os"
	"runtime"
	"runtime/pprof"

	"github.com/google/hardliner/pkg/log"
)

var (
	flagCPUProfile = flag.String("cpuprofile", "", "write CPU profile to this file")
	flagMEMProfile = flag.String("memprofile", "", "write memory profile to this file")
)

// Init parses flags and starts profiling if requested.
// The returned function stops profiling and must be called before the tool exits.
func Init() func() {
	flag.Parse()
	return installProfiling(*flagCPUProfile, *flagMEMProfile)
}

func installProfiling(cpuprof, memprof string) func() {
	stop := func() {}
	if cpuprof != "" {
		f, err := os.Create(cpuprof)
		if err != nil {
			Failf("failed to create cpuprofile file: %v", err)
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			Failf("failed to start cpu profile: %v", err)
		}
		stop = func() {
			pprof.StopCPUProfile()
			f.Close()
			log.Logf(1, "cpu profile written to %v", cpuprof)
		}
	}
	if memprof == "" {
		return stop
	}
	return func() {
		stop()
		f, err := os.Create(memprof)
		if err != nil {
			Failf("failed to create memprofile file: %v", err)
		}
		defer f.Close()
		runtime.GC()
		if err := pprof.WriteHeapProfile(f); err != nil {
			Failf("failed to write mem profile: %v", err)
		}
		log.Logf(1, "memory profile written to %v", memprof)
	}
}
