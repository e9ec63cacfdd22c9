// Copyright 2026 Google Inc. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package blame reads the logs written by resource merging that record, for each line range of
// a merged file, the source file it came from.
package blame

import (
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"path"
	"path/filepath"
	"sort"

	"github.com/google/blueprint/pathtools"
)

type position struct {
	StartLine int `json:"startLine"`
	EndLine   int `json:"endLine,omitempty"`
}

type mapping struct {
	To     position `json:"to"`
	Source string   `json:"source"`
	From   position `json:"from"`
}

type fileEntry struct {
	OutputFile string    `json:"outputFile"`
	Map        []mapping `json:"map"`
}

// Log maps positions in merged files to their sources. The zero value is an empty log.
type Log struct {
	files map[string][]mapping
}

// LoadFile reads one blame log file.
func LoadFile(fs pathtools.FileSystem, name string) (*Log, error) {
	f, err := fs.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	l := &Log{}
	if err := l.read(name, f); err != nil {
		return nil, err
	}
	return l, nil
}

// LoadDir reads every .json blame log below the root of fsys.
func LoadDir(fsys fs.FS) (*Log, error) {
	l := &Log{}
	err := fs.WalkDir(fsys, ".", func(name string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || path.Ext(name) != ".json" {
			return nil
		}
		f, err := fsys.Open(name)
		if err != nil {
			return err
		}
		defer f.Close()
		return l.read(name, f)
	})
	if err != nil {
		return nil, err
	}
	return l, nil
}

func (l *Log) read(name string, r io.Reader) error {
	var entries []fileEntry
	if err := json.NewDecoder(r).Decode(&entries); err != nil {
		return fmt.Errorf("%s: malformed blame log: %w", name, err)
	}
	if l.files == nil {
		l.files = make(map[string][]mapping)
	}
	for _, e := range entries {
		key := filepath.Clean(e.OutputFile)
		l.files[key] = append(l.files[key], e.Map...)
		sort.SliceStable(l.files[key], func(i, j int) bool {
			return l.files[key][i].To.StartLine < l.files[key][j].To.StartLine
		})
	}
	return nil
}

// Find returns the source file and line that produced line of the merged file.
func (l *Log) Find(file string, line int) (string, int, bool) {
	if l == nil {
		return "", 0, false
	}
	for _, m := range l.files[filepath.Clean(file)] {
		end := m.To.EndLine
		if end == 0 {
			end = m.To.StartLine
		}
		if line < m.To.StartLine || line > end {
			continue
		}
		return m.Source, m.From.StartLine + line - m.To.StartLine, true
	}
	return "", 0, false
}
