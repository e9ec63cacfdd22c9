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
	"fmt"
	"strings"
)

// FilterType is one dimension an output can be restricted on.
type FilterType string

const (
	Density  FilterType = "DENSITY"
	Language FilterType = "LANGUAGE"
	Abi      FilterType = "ABI"
)

// OutputType distinguishes the main archive from full and configuration splits.
type OutputType string

const (
	// Main is the base output of a variant.
	Main OutputType = "MAIN"
	// FullSplit is a complete archive restricted on one or more filters (multi-apk).
	FullSplit OutputType = "FULL_SPLIT"
	// ConfigurationSplit is a pure split produced as a side output of linking another
	// configuration. It never gets its own compiler invocation.
	ConfigurationSplit OutputType = "SPLIT"
)

// FilterData is a single filter of an output configuration, e.g. DENSITY=hdpi.
type FilterData struct {
	FilterType FilterType `json:"filterType"`
	Identifier string     `json:"value"`
}

func (f FilterData) String() string {
	return string(f.FilterType) + "=" + f.Identifier
}

// OutputConfiguration identifies one requested packaging unit. It is created once per variant
// output before dispatch and treated as immutable afterwards; use the With* helpers to derive
// modified copies.
type OutputConfiguration struct {
	Type        OutputType   `json:"type"`
	Filters     []FilterData `json:"splits"`
	VersionCode int          `json:"versionCode"`
	VersionName string       `json:"versionName,omitempty"`
	Enabled     bool         `json:"enabled"`
	OutputFile  string       `json:"outputFile,omitempty"`
	FullName    string       `json:"fullName"`
	BaseName    string       `json:"baseName"`
	DisplayName string       `json:"displayName,omitempty"`
}

// Filter returns the filter of the given type, if the configuration has one.
func (c *OutputConfiguration) Filter(filterType FilterType) (FilterData, bool) {
	for _, f := range c.Filters {
		if f.FilterType == filterType {
			return f, true
		}
	}
	return FilterData{}, false
}

// RequiresCompilation reports whether linking this configuration may generate the shared
// R class, symbols and proguard rules: true for the main output or any output without a
// density filter.
func (c *OutputConfiguration) RequiresCompilation() bool {
	if c.Type == Main {
		return true
	}
	_, hasDensity := c.Filter(Density)
	return !hasDensity
}

// RequiresAapt reports whether the configuration needs its own link invocation. Configuration
// splits are produced by linking their producer and never need one.
func (c *OutputConfiguration) RequiresAapt() bool {
	return c.Type != ConfigurationSplit
}

// FilterName joins the filter identifiers, e.g. "hdpi-x86".
func (c *OutputConfiguration) FilterName() string {
	var parts []string
	for _, f := range c.Filters {
		parts = append(parts, f.Identifier)
	}
	return strings.Join(parts, "-")
}

// WithOutputFile returns a copy of the configuration with OutputFile set.
func (c *OutputConfiguration) WithOutputFile(name string) *OutputConfiguration {
	ret := *c
	ret.Filters = append([]FilterData(nil), c.Filters...)
	ret.OutputFile = name
	return &ret
}

func (c *OutputConfiguration) String() string {
	if len(c.Filters) == 0 {
		return fmt.Sprintf("%s{%s}", c.Type, c.FullName)
	}
	filters := make([]string, len(c.Filters))
	for i, f := range c.Filters {
		filters[i] = f.String()
	}
	return fmt.Sprintf("%s{%s %s}", c.Type, c.FullName, strings.Join(filters, ","))
}

// NewConfigurationSplit creates the pure split configuration for one density or language filter
// produced while linking producer. The split is named after the producer so its archive can be
// found next to the producer's.
func NewConfigurationSplit(filterType FilterType, value, displayName string,
	producer *OutputConfiguration) *OutputConfiguration {

	if displayName == "" {
		displayName = value
	}
	return &OutputConfiguration{
		Type:        ConfigurationSplit,
		Filters:     []FilterData{{FilterType: filterType, Identifier: value}},
		VersionCode: producer.VersionCode,
		VersionName: producer.VersionName,
		Enabled:     true,
		FullName:    producer.FullName + "-" + Mangle(value),
		BaseName:    producer.FullName,
		DisplayName: displayName,
	}
}
