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

package splits

import (
	"sort"
	"strings"
)

// Split names as written by aapt2 in pure split file names. When several languages share one
// split, aapt2 joins them with an underscore instead of the comma used in split filters, and
// some aapt2 versions drop the 'r' region marker ("fr-rCA" becomes "fr-CA").

const (
	filterSeparator  = ","
	mangledSeparator = "_"
	regionMarker     = "-r"
)

// Mangle converts a split filter value into the token aapt2 uses in output file names.
func Mangle(identifier string) string {
	return strings.ReplaceAll(identifier, filterSeparator, mangledSeparator)
}

// Unmangle converts a token from an aapt2 output file name back into a split filter value.
// The region marker is restored whenever the token carries none; this must stay in sync with
// the aapt2 versions that still drop it.
func Unmangle(token string) string {
	value := strings.ReplaceAll(token, mangledSeparator, filterSeparator)
	if strings.Contains(value, regionMarker) {
		return value
	}
	return strings.ReplaceAll(value, "-", regionMarker)
}

// UnmangleSet returns the individual language identifiers encoded in token.
func UnmangleSet(token string) []string {
	return strings.Split(Unmangle(token), filterSeparator)
}

// IsValidSplit returns true if fragment, the part of a packaged resource file name that follows
// the ".ap__" marker, was produced for config. A density fragment may carry a suffix added by
// aapt2, so densities are matched by prefix.
func IsValidSplit(config *OutputConfiguration, fragment string) bool {
	if density, ok := config.Filter(Density); ok && density.Identifier != "" {
		if strings.HasPrefix(fragment, density.Identifier) {
			return true
		}
	}

	language, ok := config.Filter(Language)
	if !ok {
		return false
	}
	return sameLanguages(UnmangleSet(fragment), UnmangleSet(language.Identifier))
}

// sameLanguages reports whether a and b hold the same identifiers, in any order.
func sameLanguages(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	a = append([]string(nil), a...)
	b = append([]string(nil), b...)
	sort.Strings(a)
	sort.Strings(b)
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
