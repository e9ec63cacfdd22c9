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
	"io"
	"io/fs"
	"log/slog"
	"strings"

	"android/resplit/splits"
)

const (
	// ResourceFilePrefix starts the name of every packaged resource archive.
	ResourceFilePrefix = "resources-"
	// ResourceFileExtension is the extension of a packaged resource archive. Pure splits
	// append "_<mangled split>" to the archive they were produced with.
	ResourceFileExtension = ".ap_"
)

// ResourceFileName returns the name of the archive linked for the output named fullName.
func ResourceFileName(fullName string) string {
	return ResourceFilePrefix + fullName + ResourceFileExtension
}

// Reconciler binds pure split archives written by aapt2 to the configuration splits they were
// requested for. It must only run once every link of the batch has finished.
type Reconciler struct {
	Logger *slog.Logger
}

// Reconciliation is the result of one scan.
type Reconciliation struct {
	// Outputs holds one DENSITY_OR_LANGUAGE_SPLIT_PROCESSED_RES output per bound configuration,
	// in configuration order. Paths are relative to the scanned directory.
	Outputs []BuildOutput
	// Missing holds the configurations no file was found for.
	Missing []*splits.OutputConfiguration
}

// Reconcile scans the root of fsys for "resources-<base name>.ap__<suffix>" files and binds the
// first one, in lexical order, that is a valid split for each configuration. A file bound to one
// configuration is never bound to another. Configurations without a file are logged and
// reported in Missing; that is not an error here.
func (r *Reconciler) Reconcile(fsys fs.FS, configs []*splits.OutputConfiguration) (*Reconciliation, error) {
	logger := r.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}

	claimed := make(map[string]bool)
	result := &Reconciliation{}
	for _, c := range configs {
		name, ok := findPackagedResForSplit(names, claimed, c)
		if !ok {
			logger.Warn("cannot find output for split", "split", c.String())
			result.Missing = append(result.Missing, c)
			continue
		}
		claimed[name] = true
		result.Outputs = append(result.Outputs, BuildOutput{
			Type:   DensityOrLanguageSplitProcessedRes,
			Config: c.WithOutputFile(name),
			Path:   name,
		})
	}
	return result, nil
}

func findPackagedResForSplit(names []string, claimed map[string]bool, c *splits.OutputConfiguration) (string, bool) {
	baseName := c.BaseName
	if baseName == "" {
		baseName = c.FullName
	}
	prefix := ResourceFileName(baseName) + "_"
	for _, name := range names {
		if claimed[name] || !strings.HasPrefix(name, prefix) {
			continue
		}
		suffix := strings.TrimPrefix(name, prefix)
		if suffix != "" && splits.IsValidSplit(c, suffix) {
			return name, true
		}
	}
	return "", false
}
