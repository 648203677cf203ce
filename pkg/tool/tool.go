// Copyright 2020 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package tool contains helpers shared by command line tools.
package tool

import (
	"fmt"
	"os"
)

// Failf prints the message to stderr and exits with status 1.
func Failf(msg string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, msg+"\n", args...)
	os.Exit(1)
}

// Fail prints err to stderr and exits with status 1.
func Fail(err error) {
	Failf("%v", err)
}
