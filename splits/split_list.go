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
	"encoding/json"
	"fmt"
	"io"

	"github.com/google/blueprint/pathtools"
)

// MultiOutputPolicy selects how a variant with filters is packaged.
type MultiOutputPolicy string

const (
	// Splits produces one base archive plus pure splits.
	Splits MultiOutputPolicy = "SPLITS"
	// MultiApk produces one full archive per filter combination.
	MultiApk MultiOutputPolicy = "MULTI_APK"
)

// resourceConfigsType is the split type used in the split list artifact for resource
// configuration filters (resConfigs), which restrict packaging without creating splits.
const resourceConfigsType = "ResConfigs"

// Filter is one requested value of a split dimension.
type Filter struct {
	Value      string `json:"value"`
	SimpleName string `json:"simpleName,omitempty"`
}

// DisplayName returns the user-facing name of the filter.
func (f Filter) DisplayName() string {
	if f.SimpleName != "" {
		return f.SimpleName
	}
	return f.Value
}

type splitListEntry struct {
	SplitType string   `json:"splitType"`
	Filters   []Filter `json:"filters"`
}

// SplitList is the set of requested filter values per dimension, as persisted by split
// discovery. It is read-only once loaded.
type SplitList struct {
	filters         map[FilterType][]Filter
	resourceConfigs []string
}

// EmptySplitList is used when a variant cannot have splits.
var EmptySplitList = &SplitList{filters: map[FilterType][]Filter{}}

// NewSplitList builds a split list in memory.
func NewSplitList(filters map[FilterType][]Filter, resourceConfigs []string) *SplitList {
	l := &SplitList{filters: make(map[FilterType][]Filter, len(filters))}
	for k, v := range filters {
		l.filters[k] = append([]Filter(nil), v...)
	}
	l.resourceConfigs = append([]string(nil), resourceConfigs...)
	return l
}

// LoadSplitList reads the split list artifact at path. An empty path yields EmptySplitList.
func LoadSplitList(fs pathtools.FileSystem, path string) (*SplitList, error) {
	if path == "" {
		return EmptySplitList, nil
	}
	f, err := fs.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	return parseSplitList(path, data)
}

func parseSplitList(path string, data []byte) (*SplitList, error) {
	var entries []splitListEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("%s: malformed split list: %w", path, err)
	}

	l := &SplitList{filters: map[FilterType][]Filter{}}
	for _, e := range entries {
		switch e.SplitType {
		case string(Density), string(Language), string(Abi):
			ft := FilterType(e.SplitType)
			l.filters[ft] = append(l.filters[ft], e.Filters...)
		case resourceConfigsType:
			for _, f := range e.Filters {
				l.resourceConfigs = append(l.resourceConfigs, f.Value)
			}
		default:
			return nil, fmt.Errorf("%s: unknown split type %q", path, e.SplitType)
		}
	}
	return l, nil
}

// Filters returns the requested filters of one dimension.
func (l *SplitList) Filters(filterType FilterType) []Filter {
	return l.filters[filterType]
}

// ResourceConfigs returns the requested resource configuration qualifiers.
func (l *SplitList) ResourceConfigs() []string {
	return l.resourceConfigs
}

// ForEach calls fn for every non-empty dimension, densities first, then languages, then ABIs.
func (l *SplitList) ForEach(fn func(FilterType, []Filter)) {
	for _, ft := range []FilterType{Density, Language, Abi} {
		if filters := l.filters[ft]; len(filters) > 0 {
			fn(ft, filters)
		}
	}
}

// Splits returns the split filters aapt2 must produce pure splits for under policy.
func (l *SplitList) Splits(policy MultiOutputPolicy) []string {
	if policy != Splits {
		return nil
	}
	var ret []string
	for _, ft := range []FilterType{Density, Language} {
		for _, f := range l.filters[ft] {
			ret = append(ret, f.Value)
		}
	}
	return ret
}
