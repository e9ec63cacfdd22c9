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
	"testing"

	"android/resplit/testutil"
)

func TestUnmangle(t *testing.T) {
	testCases := []struct {
		token    string
		expected string
	}{
		{token: "en", expected: "en"},
		{token: "en_fr-rCA", expected: "en,fr-rCA"},
		{token: "fr-CA", expected: "fr-rCA"},
		{token: "fr_fr-CA", expected: "fr,fr-rCA"},
		{token: "hdpi", expected: "hdpi"},
		{token: "", expected: ""},
		// Once any region marker is present nothing is rewritten.
		{token: "zh-rTW_zh-HK", expected: "zh-rTW,zh-HK"},
	}
	for _, tc := range testCases {
		t.Run(tc.token, func(t *testing.T) {
			testutil.AssertStringEquals(t, "unmangled", tc.expected, Unmangle(tc.token))
		})
	}
}

func TestUnmangleSet(t *testing.T) {
	testutil.AssertArrayString(t, "en_fr-rCA", []string{"en", "fr-rCA"}, UnmangleSet("en_fr-rCA"))
	testutil.AssertArrayString(t, "en", []string{"en"}, UnmangleSet("en"))
}

func TestMangle(t *testing.T) {
	testutil.AssertStringEquals(t, "two languages", "en_fr-rCA", Mangle("en,fr-rCA"))
	testutil.AssertStringEquals(t, "single", "hdpi", Mangle("hdpi"))
}

func TestUnmangleIsIdempotentThroughMangle(t *testing.T) {
	tokens := []string{"en", "en_fr-rCA", "fr-CA", "de_fr_it", "pt-BR_es-rUS", "b+sr+Latn", "xxhdpi"}
	for _, token := range tokens {
		decoded := Unmangle(token)
		testutil.AssertStringEquals(t, token, decoded, Unmangle(Mangle(decoded)))
		testutil.AssertStringEquals(t, token+" twice", decoded, Unmangle(Mangle(Unmangle(Mangle(decoded)))))
	}
}

func TestIsValidSplit(t *testing.T) {
	hdpi := &OutputConfiguration{Type: ConfigurationSplit, FullName: "app-hdpi",
		Filters: []FilterData{{Density, "hdpi"}}}
	frCA := &OutputConfiguration{Type: ConfigurationSplit, FullName: "app-fr-CA",
		Filters: []FilterData{{Language, "fr-CA"}}}
	frLanguages := &OutputConfiguration{Type: ConfigurationSplit, FullName: "app-fr",
		Filters: []FilterData{{Language, "fr,fr-rCA"}}}
	noFilters := &OutputConfiguration{Type: Main, FullName: "app"}

	testCases := []struct {
		name     string
		config   *OutputConfiguration
		fragment string
		expected bool
	}{
		{"density exact", hdpi, "hdpi", true},
		{"density with aapt suffix", hdpi, "hdpi_v4", true},
		{"other density", hdpi, "xhdpi", false},
		{"language with dropped region marker", frCA, "fr-CA", true},
		{"language with region marker", frCA, "fr-rCA", true},
		{"language mismatch", frCA, "fr", false},
		{"joined languages", frLanguages, "fr_fr-rCA", true},
		{"joined languages without marker", frLanguages, "fr_fr-CA", true},
		{"joined languages in another order", frLanguages, "fr-rCA_fr", true},
		{"density fragment for language config", frCA, "hdpi", false},
		{"no filters", noFilters, "hdpi", false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			testutil.AssertBoolEquals(t, tc.fragment, tc.expected, IsValidSplit(tc.config, tc.fragment))
		})
	}
}
