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

	"github.com/google/blueprint/pathtools"

	"android/resplit/testutil"
)

const splitListJSON = `[
  {"splitType": "DENSITY", "filters": [{"value": "hdpi"}, {"value": "xhdpi"}]},
  {"splitType": "LANGUAGE", "filters": [{"value": "fr,fr-rCA", "simpleName": "fr"}, {"value": "de"}]},
  {"splitType": "ABI", "filters": [{"value": "x86"}]},
  {"splitType": "ResConfigs", "filters": [{"value": "en"}, {"value": "fr"}]}
]`

func TestLoadSplitList(t *testing.T) {
	fs := pathtools.MockFs(map[string][]byte{
		"out/split-list.json": []byte(splitListJSON),
		"out/bad.json":        []byte(`[{"splitType": "SCREEN", "filters": []}]`),
	})

	list, err := LoadSplitList(fs, "out/split-list.json")
	testutil.FailIfErrored(t, "load", err)

	testutil.AssertDeepEquals(t, "densities",
		[]Filter{{Value: "hdpi"}, {Value: "xhdpi"}}, list.Filters(Density))
	testutil.AssertStringEquals(t, "language display name", "fr", list.Filters(Language)[0].DisplayName())
	testutil.AssertStringEquals(t, "language display name fallback", "de", list.Filters(Language)[1].DisplayName())
	testutil.AssertArrayString(t, "resource configs", []string{"en", "fr"}, list.ResourceConfigs())

	testutil.AssertArrayString(t, "splits policy",
		[]string{"hdpi", "xhdpi", "fr,fr-rCA", "de"}, list.Splits(Splits))
	testutil.AssertIntEquals(t, "multi apk policy", 0, len(list.Splits(MultiApk)))

	var order []FilterType
	list.ForEach(func(ft FilterType, _ []Filter) { order = append(order, ft) })
	testutil.AssertDeepEquals(t, "iteration order", []FilterType{Density, Language, Abi}, order)

	_, err = LoadSplitList(fs, "out/bad.json")
	testutil.AssertErrorMessageContains(t, "unknown type", `unknown split type "SCREEN"`, err)

	_, err = LoadSplitList(fs, "out/missing.json")
	if err == nil {
		t.Errorf("expected error for missing split list")
	}
}

func TestEmptySplitList(t *testing.T) {
	list, err := LoadSplitList(pathtools.MockFs(nil), "")
	testutil.FailIfErrored(t, "load", err)
	if list != EmptySplitList {
		t.Errorf("expected EmptySplitList for empty path")
	}
	testutil.AssertIntEquals(t, "splits", 0, len(list.Splits(Splits)))
	list.ForEach(func(ft FilterType, _ []Filter) {
		t.Errorf("unexpected dimension %s", ft)
	})
}

func TestNewConfigurationSplit(t *testing.T) {
	producer := &OutputConfiguration{Type: Main, FullName: "debug", VersionCode: 12, VersionName: "1.2"}
	split := NewConfigurationSplit(Language, "fr,fr-rCA", "fr", producer)

	testutil.AssertStringEquals(t, "full name", "debug-fr_fr-rCA", split.FullName)
	testutil.AssertStringEquals(t, "base name", "debug", split.BaseName)
	testutil.AssertIntEquals(t, "version code", 12, split.VersionCode)
	testutil.AssertBoolEquals(t, "requires aapt", false, split.RequiresAapt())
	testutil.AssertStringEquals(t, "filter name", "fr,fr-rCA", split.FilterName())

	withFile := split.WithOutputFile("resources-debug.ap__fr_fr-rCA")
	testutil.AssertStringEquals(t, "copy", "resources-debug.ap__fr_fr-rCA", withFile.OutputFile)
	testutil.AssertStringEquals(t, "original untouched", "", split.OutputFile)
}
