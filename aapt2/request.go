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

package aapt2

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"android/resplit/splits"
)

// Options are the user supplied aapt options shared by every split of a variant.
type Options struct {
	NoCompress           []string
	AdditionalParameters []string
}

// LinkRequest describes one aapt2 link invocation. It is built per split and discarded once
// the compiler returns. The code generation outputs are only set for the codegen split.
type LinkRequest struct {
	AndroidJar        string
	Manifest          string
	ResourceOutputApk string

	SourceOutputDir               string
	SymbolOutputDir               string
	ProguardOutputFile            string
	MainDexListProguardOutputFile string
	CustomPackageForR             string

	// Compiled resources (.flat files) of the variant, linked as overlays.
	ResourceFiles []string
	// Static library archives, only used by namespaced builds.
	StaticLibraries []string
	// Archives whose resources may be referenced but are not packaged.
	Imports []string
	// Base archives of features this package depends on.
	DependentFeatures []string
	// Symbol lists with package name of the libraries of a non-namespaced codegen split.
	// aapt2 does not read them; the caller generates the library R classes from them once the
	// link produced R.txt.
	LibrarySymbolTables []string

	ResourceConfigs        []string
	Splits                 []string
	PreferredDensity       string
	PackageID              *int
	AllowReservedPackageID bool
	StaticLibrary          bool
	Debuggable             bool
	PseudoLocalize         bool

	Options Options

	// IntermediateDir, when set, receives argument files for long input lists.
	IntermediateDir string
}

// Pseudo-locales added to the requested configurations when pseudo-localization is enabled.
var pseudoLocales = []string{"en-rXA", "ar-rXB"}

// Validate checks the request is complete enough to be sent to aapt2.
func (r *LinkRequest) Validate() error {
	var errs []error
	if r.Manifest == "" {
		errs = append(errs, errors.New("manifest is required"))
	}
	if r.ResourceOutputApk == "" {
		errs = append(errs, errors.New("resource output archive is required"))
	}
	seen := make(map[string]bool, len(r.Splits))
	for _, s := range r.Splits {
		out := SplitOutputPath(r.ResourceOutputApk, s)
		if seen[out] {
			errs = append(errs, fmt.Errorf("split %q maps to an output %q that is already used", s, out))
		}
		seen[out] = true
	}
	if r.PackageID != nil && (*r.PackageID < 0 || *r.PackageID > 0xff) {
		errs = append(errs, fmt.Errorf("package id 0x%x is out of range", *r.PackageID))
	}
	return errors.Join(errs...)
}

// SplitOutputPath returns the archive aapt2 writes for a pure split, e.g.
// resources-debug.ap_ + "fr,fr-rCA" -> resources-debug.ap__fr_fr-rCA.
func SplitOutputPath(archive, split string) string {
	return archive + "_" + splits.Mangle(split)
}

// LinkCommand returns the arguments of "aapt2 link" for req. When the request has an
// intermediate dir, the resource file list is written to an argument file in it.
func LinkCommand(req *LinkRequest) ([]string, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var args []string
	if req.AndroidJar != "" {
		args = append(args, "-I", req.AndroidJar)
	}
	for _, i := range req.Imports {
		args = append(args, "-I", i)
	}
	for _, f := range req.DependentFeatures {
		args = append(args, "-I", f)
	}
	args = append(args, "--manifest", req.Manifest)

	if len(req.ResourceFiles) > 0 {
		resArgs, err := resourceFileArgs(req)
		if err != nil {
			return nil, err
		}
		args = append(args, resArgs...)
	}
	args = append(args, "--auto-add-overlay")
	args = append(args, req.StaticLibraries...)

	if req.StaticLibrary {
		args = append(args, "--static-lib")
	}
	if req.SourceOutputDir != "" {
		args = append(args, "--java", req.SourceOutputDir)
	}
	if req.CustomPackageForR != "" {
		args = append(args, "--custom-package", req.CustomPackageForR)
	}
	if req.SymbolOutputDir != "" {
		args = append(args, "--output-text-symbols", filepath.Join(req.SymbolOutputDir, "R.txt"))
	}
	if req.ProguardOutputFile != "" {
		args = append(args, "--proguard", req.ProguardOutputFile)
	}
	if req.MainDexListProguardOutputFile != "" {
		args = append(args, "--proguard-main-dex", req.MainDexListProguardOutputFile)
	}

	if len(req.ResourceConfigs) > 0 {
		configs := append([]string(nil), req.ResourceConfigs...)
		if req.PseudoLocalize {
			configs = append(configs, pseudoLocales...)
		}
		args = append(args, "-c", strings.Join(configs, ","))
	}
	if req.PreferredDensity != "" {
		args = append(args, "--preferred-density", req.PreferredDensity)
	}
	for _, s := range req.Splits {
		args = append(args, "--split", SplitOutputPath(req.ResourceOutputApk, s)+":"+s)
	}

	if req.PackageID != nil {
		args = append(args, "--package-id", fmt.Sprintf("0x%02x", *req.PackageID))
		if req.AllowReservedPackageID {
			args = append(args, "--allow-reserved-package-id")
		}
	}
	if req.Debuggable {
		args = append(args, "--debug-mode")
	}
	for _, ext := range req.Options.NoCompress {
		args = append(args, "-0", ext)
	}

	args = append(args, "-o", req.ResourceOutputApk)
	args = append(args, req.Options.AdditionalParameters...)
	return args, nil
}

// resourceFileArgs passes compiled resources as overlays, through an argument file when possible.
// aapt2 splits argument files on whitespace, so lists containing such paths stay inline.
func resourceFileArgs(req *LinkRequest) ([]string, error) {
	if req.IntermediateDir == "" || !canWriteFileList(req.ResourceFiles) {
		var args []string
		for _, f := range req.ResourceFiles {
			args = append(args, "-R", f)
		}
		return args, nil
	}

	listFile := filepath.Join(req.IntermediateDir, filepath.Base(req.ResourceOutputApk)+".res.list")
	if err := os.MkdirAll(req.IntermediateDir, 0777); err != nil {
		return nil, err
	}
	f, err := os.Create(listFile)
	if err != nil {
		return nil, err
	}
	if err := WriteFileList(f, req.ResourceFiles); err != nil {
		f.Close()
		return nil, err
	}
	if err := f.Close(); err != nil {
		return nil, err
	}
	// aapt2 filepath arguments that start with "@" mean file-list files.
	return []string{"-R", "@" + listFile}, nil
}
