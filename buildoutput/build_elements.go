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

// Package buildoutput holds the manifest recording which file was produced for each output
// configuration, and the reconciliation of pure split archives found on disk.
package buildoutput

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/blueprint/pathtools"

	"android/resplit/splits"
)

// ArtifactType is the kind of file a BuildOutput points at.
type ArtifactType string

const (
	MergedManifests                    ArtifactType = "MERGED_MANIFESTS"
	ProcessedRes                       ArtifactType = "PROCESSED_RES"
	DensityOrLanguageSplitProcessedRes ArtifactType = "DENSITY_OR_LANGUAGE_SPLIT_PROCESSED_RES"
)

const (
	// JSONFileName is the manifest read by downstream steps.
	JSONFileName = "output.json"
	// ProtoFileName is the binary twin of JSONFileName.
	ProtoFileName = "output.pb"
)

// BuildOutput is one produced file and the output configuration it was produced for.
type BuildOutput struct {
	Type       ArtifactType
	Config     *splits.OutputConfiguration
	Path       string
	Properties map[string]string
}

func (o BuildOutput) String() string {
	return fmt.Sprintf("%s %s -> %s", o.Type, o.Config, o.Path)
}

// BuildElements is an ordered, append-only list of build outputs.
type BuildElements struct {
	outputs []BuildOutput
}

func NewBuildElements(outputs ...BuildOutput) *BuildElements {
	return &BuildElements{outputs: append([]BuildOutput(nil), outputs...)}
}

// Add appends outputs.
func (e *BuildElements) Add(outputs ...BuildOutput) {
	e.outputs = append(e.outputs, outputs...)
}

// Elements returns the outputs in order.
func (e *BuildElements) Elements() []BuildOutput {
	return append([]BuildOutput(nil), e.outputs...)
}

func (e *BuildElements) Len() int {
	return len(e.outputs)
}

func (e *BuildElements) IsEmpty() bool {
	return len(e.outputs) == 0
}

// ElementByOutputType returns the first output whose configuration has the given output type.
func (e *BuildElements) ElementByOutputType(outputType splits.OutputType) (BuildOutput, bool) {
	for _, o := range e.outputs {
		if o.Config != nil && o.Config.Type == outputType {
			return o, true
		}
	}
	return BuildOutput{}, false
}

// ByArtifactType returns the outputs of one artifact type.
func (e *BuildElements) ByArtifactType(artifactType ArtifactType) *BuildElements {
	ret := &BuildElements{}
	for _, o := range e.outputs {
		if o.Type == artifactType {
			ret.outputs = append(ret.outputs, o)
		}
	}
	return ret
}

// Paths returns the path of every output, in order.
func (e *BuildElements) Paths() []string {
	ret := make([]string, len(e.outputs))
	for i, o := range e.outputs {
		ret[i] = o.Path
	}
	return ret
}

type jsonOutputType struct {
	Type ArtifactType `json:"type"`
}

type jsonBuildOutput struct {
	OutputType jsonOutputType              `json:"outputType"`
	ApkData    *splits.OutputConfiguration `json:"apkData"`
	Path       string                      `json:"path"`
	Properties map[string]string           `json:"properties"`
}

// Save writes output.json, with paths relative to dir, and output.pb into dir.
func (e *BuildElements) Save(dir string) error {
	if err := os.MkdirAll(dir, 0777); err != nil {
		return err
	}

	relative := make([]BuildOutput, len(e.outputs))
	for i, o := range e.outputs {
		if rel, err := filepath.Rel(dir, o.Path); err == nil {
			o.Path = filepath.ToSlash(rel)
		}
		relative[i] = o
	}

	data, err := marshalJSON(relative)
	if err != nil {
		return err
	}
	if err := writeFileAtomically(filepath.Join(dir, JSONFileName), data); err != nil {
		return err
	}
	return writeFileAtomically(filepath.Join(dir, ProtoFileName), MarshalProto(&BuildElements{outputs: relative}))
}

func marshalJSON(outputs []BuildOutput) ([]byte, error) {
	entries := make([]jsonBuildOutput, len(outputs))
	for i, o := range outputs {
		props := o.Properties
		if props == nil {
			props = map[string]string{}
		}
		entries[i] = jsonBuildOutput{
			OutputType: jsonOutputType{o.Type},
			ApkData:    o.Config,
			Path:       o.Path,
			Properties: props,
		}
	}
	return json.MarshalIndent(entries, "", "  ")
}

func writeFileAtomically(name string, data []byte) error {
	tmp := name + ".tmp"
	if err := os.WriteFile(tmp, data, 0666); err != nil {
		return err
	}
	return os.Rename(tmp, name)
}

// Load reads the output.json manifest in dir, resolving paths against dir. Directories holding
// only output.pb are read from it. A missing manifest yields an empty BuildElements.
func Load(fs pathtools.FileSystem, dir string) (*BuildElements, error) {
	name := filepath.Join(dir, JSONFileName)
	exists, _, err := fs.Exists(name)
	if err != nil {
		return nil, err
	}
	if !exists {
		return loadProto(fs, dir)
	}

	data, err := readFile(fs, name)
	if err != nil {
		return nil, err
	}

	var entries []jsonBuildOutput
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("%s: malformed build output manifest: %w", name, err)
	}
	e := &BuildElements{}
	for _, entry := range entries {
		path := filepath.FromSlash(entry.Path)
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, path)
		}
		e.outputs = append(e.outputs, BuildOutput{
			Type:       entry.OutputType.Type,
			Config:     entry.ApkData,
			Path:       path,
			Properties: entry.Properties,
		})
	}
	return e, nil
}

func loadProto(fs pathtools.FileSystem, dir string) (*BuildElements, error) {
	name := filepath.Join(dir, ProtoFileName)
	exists, _, err := fs.Exists(name)
	if err != nil {
		return nil, err
	}
	if !exists {
		return &BuildElements{}, nil
	}
	data, err := readFile(fs, name)
	if err != nil {
		return nil, err
	}
	e, err := unmarshalProto(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	for i, o := range e.outputs {
		path := filepath.FromSlash(o.Path)
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, path)
		}
		e.outputs[i].Path = path
	}
	return e, nil
}

func readFile(fs pathtools.FileSystem, name string) ([]byte, error) {
	f, err := fs.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
