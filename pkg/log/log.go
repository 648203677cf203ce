// Copyright 2016 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package log provides functionality similar to standard log package with some extensions:
//   - verbosity levels
//   - global verbosity setting that can be used by multiple packages
//   - ability to redirect output (e.g. when embedded in another program)
package log

import (
	"flag"
	"io"
	golog "log"
	"os"
	"sync/atomic"
)

var (
	flagV     = flag.Int("vv", 0, "verbosity")
	verbosity atomic.Int64
	verbSet   atomic.Bool
	logger    atomic.Pointer[golog.Logger]
)

func init() {
	logger.Store(golog.New(os.Stderr, "", golog.LstdFlags))
}

// SetVerbosity overrides the -vv flag value.
func SetVerbosity(v int) {
	verbosity.Store(int64(v))
	verbSet.Store(true)
}

// SetOutput redirects log output to w.
func SetOutput(w io.Writer) {
	logger.Store(golog.New(w, "", golog.LstdFlags))
}

// V reports whether messages of verbosity v are printed.
func V(v int) bool {
	if verbSet.Load() {
		return int64(v) <= verbosity.Load()
	}
	return v <= *flagV
}

func Logf(v int, msg string, args ...interface{}) {
	if V(v) {
		logger.Load().Printf(msg, args...)
	}
}

// VerboseWriter logs everything written to it at the given verbosity.
type VerboseWriter int

func (w VerboseWriter) Write(data []byte) (int, error) {
	Logf(int(w), "%s", data)
	return len(data), nil
}
