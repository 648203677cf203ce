// Copyright 2016 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

type testConfig struct {
	Prefix  string   `json:"prefix" yaml:"prefix"`
	Workers int      `json:"workers" yaml:"workers"`
	Strip   []string `json:"strip" yaml:"strip"`
	Nested  *struct {
		Flag bool `json:"flag" yaml:"flag"`
	} `json:"nested" yaml:"nested"`
}

func TestLoadData(t *testing.T) {
	tests := []struct {
		input  string
		output testConfig
		err    string
	}{
		{
			`{"prefix": "40"}`,
			testConfig{Prefix: "40"},
			"",
		},
		{
			"# decoder settings\n{\n\t# hex digits\n\t\"workers\": 4\n}",
			testConfig{Workers: 4},
			"",
		},
		{
			`{"strip": ["/home/build/", "/opt/sdk/"]}`,
			testConfig{Strip: []string{"/home/build/", "/opt/sdk/"}},
			"",
		},
		{
			`{"foobar": 42}`,
			testConfig{},
			`unknown field "foobar"`,
		},
		{
			`{"workers": "many"}`,
			testConfig{},
			"cannot unmarshal string",
		},
	}
	for i, test := range tests {
		t.Run(fmt.Sprint(i), func(t *testing.T) {
			var cfg testConfig
			err := LoadData([]byte(test.input), &cfg)
			checkErr(t, err, test.err)
			if test.err == "" && !reflect.DeepEqual(test.output, cfg) {
				t.Fatalf("bad output: want:\n%#v\n, got:\n%#v", test.output, cfg)
			}
		})
	}
}

func TestLoadYAML(t *testing.T) {
	tests := []struct {
		input  string
		output testConfig
		err    string
	}{
		{
			"",
			testConfig{},
			"",
		},
		{
			"prefix: \"40\"\nworkers: 2\nstrip:\n  - /home/build/\n",
			testConfig{Prefix: "40", Workers: 2, Strip: []string{"/home/build/"}},
			"",
		},
		{
			"# comment\nnested:\n  flag: true\n",
			testConfig{Nested: &struct {
				Flag bool `json:"flag" yaml:"flag"`
			}{Flag: true}},
			"",
		},
		{
			"foobar: 42\n",
			testConfig{},
			"field foobar not found",
		},
	}
	for i, test := range tests {
		t.Run(fmt.Sprint(i), func(t *testing.T) {
			var cfg testConfig
			err := LoadYAML([]byte(test.input), &cfg)
			checkErr(t, err, test.err)
			if test.err == "" && !reflect.DeepEqual(test.output, cfg) {
				t.Fatalf("bad output: want:\n%#v\n, got:\n%#v", test.output, cfg)
			}
		})
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"cfg.json": `{"prefix": "40", "workers": 3}`,
		"cfg.yaml": "prefix: \"40\"\nworkers: 3\n",
		"cfg.YML":  "prefix: \"40\"\nworkers: 3\n",
	}
	for name, data := range files {
		file := filepath.Join(dir, name)
		if err := os.WriteFile(file, []byte(data), 0644); err != nil {
			t.Fatal(err)
		}
		var cfg testConfig
		if err := LoadFile(file, &cfg); err != nil {
			t.Fatalf("%v: %v", name, err)
		}
		want := testConfig{Prefix: "40", Workers: 3}
		if !reflect.DeepEqual(want, cfg) {
			t.Fatalf("%v: want %+v, got %+v", name, want, cfg)
		}
	}
	var cfg testConfig
	checkErr(t, LoadFile("", &cfg), "no config file specified")
	checkErr(t, LoadFile(filepath.Join(dir, "missing.json"), &cfg), "failed to read config file")
}

func checkErr(t *testing.T, err error, want string) {
	t.Helper()
	if want == "" {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		return
	}
	if err == nil || !strings.Contains(err.Error(), want) {
		t.Fatalf("bad err: want '%v', got '%v'", want, err)
	}
}
