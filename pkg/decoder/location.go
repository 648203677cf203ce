// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package decoder

import (
	"fmt"
	"strings"
)

// FormatLocation renders a source location as "file:line" using "?" for unknown parts.
func FormatLocation(file string, line int) string {
	if file == "" {
		file = "?"
	}
	if line <= 0 {
		return file + ":?"
	}
	return fmt.Sprintf("%v:%v", file, line)
}

func stripPrefix(file string, prefixes []string) string {
	for _, prefix := range prefixes {
		if strings.HasPrefix(file, prefix) {
			file = file[len(prefix):]
			break
		}
	}
	return strings.TrimPrefix(file, "./")
}
