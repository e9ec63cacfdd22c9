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
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/blueprint/pathtools"

	"android/resplit/splits"
	"android/resplit/testutil"
)

func testElements(dir string) *BuildElements {
	main := &splits.OutputConfiguration{Type: splits.Main, FullName: "debug", BaseName: "debug",
		VersionCode: 3, VersionName: "1.0.3", Enabled: true}
	hdpi := &splits.OutputConfiguration{Type: splits.FullSplit, FullName: "hdpiDebug", BaseName: "debug",
		Filters: []splits.FilterData{{FilterType: splits.Density, Identifier: "hdpi"}}, Enabled: true}
	return NewBuildElements(
		BuildOutput{Type: ProcessedRes, Config: main, Path: filepath.Join(dir, "resources-debug.ap_"),
			Properties: map[string]string{"packageId": "com.example", "minSdkVersion": "21"}},
		BuildOutput{Type: ProcessedRes, Config: hdpi, Path: filepath.Join(dir, "resources-hdpiDebug.ap_")},
	)
}

func TestSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	elements := testElements(dir)
	testutil.FailIfErrored(t, "save", elements.Save(dir))

	data, err := os.ReadFile(filepath.Join(dir, JSONFileName))
	testutil.FailIfErrored(t, "read", err)
	testutil.AssertStringDoesContain(t, "relative path", string(data), `"path": "resources-debug.ap_"`)
	testutil.AssertStringDoesContain(t, "artifact type", string(data), `"type": "PROCESSED_RES"`)

	loaded, err := Load(pathtools.OsFs, dir)
	testutil.FailIfErrored(t, "load", err)
	testutil.AssertDeepEquals(t, "round trip", elements.Elements()[0], loaded.Elements()[0])
	testutil.AssertIntEquals(t, "len", 2, loaded.Len())

	pb, err := os.ReadFile(filepath.Join(dir, ProtoFileName))
	testutil.FailIfErrored(t, "read proto", err)
	fromProto, err := unmarshalProto(pb)
	testutil.FailIfErrored(t, "unmarshal", err)
	testutil.AssertStringEquals(t, "proto path", "resources-hdpiDebug.ap_", fromProto.Elements()[1].Path)
	testutil.AssertDeepEquals(t, "proto config", elements.Elements()[1].Config, fromProto.Elements()[1].Config)
	testutil.AssertDeepEquals(t, "proto properties", elements.Elements()[0].Properties, fromProto.Elements()[0].Properties)
}

func TestLoadMissingManifest(t *testing.T) {
	elements, err := Load(pathtools.MockFs(nil), "out/merged_manifests")
	testutil.FailIfErrored(t, "load", err)
	testutil.AssertBoolEquals(t, "empty", true, elements.IsEmpty())
}

func TestLoadFromMockFs(t *testing.T) {
	fs := pathtools.MockFs(map[string][]byte{
		"feature/processed_res/output.json": []byte(`[
  {"outputType": {"type": "PROCESSED_RES"},
   "apkData": {"type": "FULL_SPLIT", "fullName": "hdpiDebug", "splits": [{"filterType": "DENSITY", "value": "hdpi"}]},
   "path": "resources-hdpiDebug.ap_", "properties": {}},
  {"outputType": {"type": "PROCESSED_RES"},
   "apkData": {"type": "MAIN", "fullName": "debug"},
   "path": "resources-debug.ap_", "properties": {}}
]`),
		"broken/output.json": []byte(`{`),
	})
	elements, err := Load(fs, "feature/processed_res")
	testutil.FailIfErrored(t, "load", err)

	main, ok := elements.ElementByOutputType(splits.Main)
	testutil.AssertBoolEquals(t, "has main", true, ok)
	testutil.AssertStringEquals(t, "main path", filepath.Join("feature/processed_res", "resources-debug.ap_"), main.Path)
	_, ok = elements.ElementByOutputType(splits.ConfigurationSplit)
	testutil.AssertBoolEquals(t, "no configuration split", false, ok)

	hdpi, _ := elements.Elements()[0].Config.Filter(splits.Density)
	testutil.AssertStringEquals(t, "filter", "hdpi", hdpi.Identifier)

	testutil.AssertIntEquals(t, "by artifact type", 2, elements.ByArtifactType(ProcessedRes).Len())
	testutil.AssertIntEquals(t, "other artifact type", 0, elements.ByArtifactType(MergedManifests).Len())

	_, err = Load(fs, "broken")
	testutil.AssertErrorMessageContains(t, "malformed", "malformed build output manifest", err)
}

func TestLoadFromProto(t *testing.T) {
	dir := t.TempDir()
	elements := testElements(dir)
	testutil.FailIfErrored(t, "save", elements.Save(dir))
	testutil.FailIfErrored(t, "remove json", os.Remove(filepath.Join(dir, JSONFileName)))

	loaded, err := Load(pathtools.OsFs, dir)
	testutil.FailIfErrored(t, "load", err)
	testutil.AssertArrayString(t, "paths", elements.Paths(), loaded.Paths())
	testutil.AssertDeepEquals(t, "config", elements.Elements()[1].Config, loaded.Elements()[1].Config)

	fs := pathtools.MockFs(map[string][]byte{"out/" + ProtoFileName: {0x0a, 0x05}})
	_, err = Load(fs, "out")
	testutil.AssertErrorMessageContains(t, "truncated", "malformed build output proto", err)
}

func TestUnmarshalProtoRejectsTruncatedInput(t *testing.T) {
	pb := MarshalProto(testElements("out"))
	_, err := unmarshalProto(pb[:len(pb)-3])
	testutil.AssertErrorMessageContains(t, "truncated", "malformed build output proto", err)
}

func TestWriteDepFile(t *testing.T) {
	dir := t.TempDir()
	depfile := DepFileName(dir)
	testutil.AssertStringEquals(t, "name", filepath.Join(dir, "output.d"), depfile)

	err := WriteDepFile(depfile, "out/output.json", []string{"res/b.flat", "AndroidManifest.xml", "res/b.flat", ""})
	testutil.FailIfErrored(t, "write", err)
	data, err := os.ReadFile(depfile)
	testutil.FailIfErrored(t, "read", err)
	testutil.AssertStringEquals(t, "depfile", "out/output.json: \\\n AndroidManifest.xml \\\n res/b.flat\n",
		string(data))
	if strings.Count(string(data), "res/b.flat") != 1 {
		t.Errorf("expected duplicate inputs to be listed once")
	}
}
