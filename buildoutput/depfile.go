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

package buildoutput

import (
	"path/filepath"
	"sort"

	"github.com/google/blueprint/deptools"
	"github.com/google/blueprint/pathtools"
)

// DepFileName returns the default depfile of a manifest directory, output.d.
func DepFileName(dir string) string {
	return pathtools.ReplaceExtension(filepath.Join(dir, JSONFileName), "d")
}

// WriteDepFile writes a depfile declaring that target depends on every input in deps. Duplicate
// inputs are listed once, in sorted order.
func WriteDepFile(filename, target string, deps []string) error {
	unique := make(map[string]bool, len(deps))
	var sorted []string
	for _, d := range deps {
		if d == "" || unique[d] {
			continue
		}
		unique[d] = true
		sorted = append(sorted, d)
	}
	sort.Strings(sorted)
	return deptools.WriteDepFile(filename, target, sorted)
}
