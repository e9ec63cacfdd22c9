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

// Package dispatch links the resources of every output of a variant. The split that generates
// the R class and symbols is linked first on the calling goroutine; all other splits are then
// linked concurrently, and the pure splits aapt2 wrote on the side are reconciled into the
// build output manifest once every link finished.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/google/blueprint/pathtools"

	"android/resplit/aapt2"
	"android/resplit/buildoutput"
	"android/resplit/splits"
	"android/resplit/symbols"
)

// ErrLinkerUnavailable is returned when the configured way of invoking aapt2 is not usable.
var ErrLinkerUnavailable = errors.New("no aapt2 linker available")

// Packages that may not use a reserved package id before Android O.
const minSdkAllowingReservedPackageID = 26

// R package of namespaced features, which get an extra empty R class.
const namespacedFeatureRPackage = "dummy"

// LinkerMode selects how aapt2 is invoked.
type LinkerMode string

const (
	// DaemonPool leases a daemon from a Manager for every link.
	DaemonPool LinkerMode = "daemon"
	// ProcessPerCall creates a dedicated linker for every link.
	ProcessPerCall LinkerMode = "process"
)

// SplitError is the failure of a batch, naming the split that failed first.
type SplitError struct {
	FullName string
	Err      error
}

func (e *SplitError) Error() string {
	return fmt.Sprintf("failed to process resources for %s: %s", e.FullName, e.Err)
}

func (e *SplitError) Unwrap() error { return e.Err }

// LinkOptions are the link settings shared by every split.
type LinkOptions struct {
	Debuggable     bool
	PseudoLocalize bool
	// PackageID overrides the resource package id when not nil.
	PackageID     *int
	MinSdkVersion int
	Options       aapt2.Options
}

// Request describes the outputs of one variant to link.
type Request struct {
	// ManifestDir holds the MERGED_MANIFESTS manifest, one merged manifest per output.
	ManifestDir string
	SplitList   *splits.SplitList
	Policy      splits.MultiOutputPolicy
	// CanHaveSplits is false for variants that only produce their main output.
	CanHaveSplits bool

	// ResourceDir holds the compiled (.flat) resources of the variant.
	ResourceDir string
	AndroidJar  string

	// OutputDir receives the linked archives and the PROCESSED_RES manifest.
	OutputDir                     string
	SourceOutputDir               string
	SymbolOutputDir               string
	SymbolsWithPackageNameFile    string
	ProguardOutputFile            string
	MainDexListProguardOutputFile string

	// ApplicationID is the package of the generated R class.
	ApplicationID string
	// Dependencies are library symbol lists with package name, or static libraries when
	// namespaced. The R classes of the libraries are generated next to this one's.
	Dependencies []string
	Imports      []string
	// FeaturePackages are PROCESSED_RES manifest dirs of the features this one depends on.
	FeaturePackages []string

	Link               LinkOptions
	BuildTargetDensity string
	Namespaced         bool
	Library            bool
	Feature            bool

	IntermediateDir string
	// DepFile, when set, receives the inputs of the PROCESSED_RES manifest.
	DepFile string
}

// Dispatcher links the splits of a variant.
type Dispatcher struct {
	Mode LinkerMode
	// Daemons and ServiceKey are used in DaemonPool mode.
	Daemons    *aapt2.Manager
	ServiceKey aapt2.ServiceKey
	// NewProcessLinker is used in ProcessPerCall mode. Linkers it returns are never shared.
	NewProcessLinker func() aapt2.Linker
	// Blame, when set, points compiler errors at the sources of merged resources.
	Blame      aapt2.SourceFinder
	MaxWorkers int
	Logger     *slog.Logger

	mu sync.Mutex
	// States of the batch started last.
	states *splitStates
}

func (d *Dispatcher) logger() *slog.Logger {
	if d.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return d.Logger
}

// States returns the state of every split of the last batch.
func (d *Dispatcher) States() map[string]TaskState {
	d.mu.Lock()
	states := d.states
	d.mu.Unlock()
	if states == nil {
		return nil
	}
	return states.snapshot()
}

// checkLinker verifies the configured mode can produce linkers. It is a precondition of any
// dispatch, never retried.
func (d *Dispatcher) checkLinker() error {
	switch d.Mode {
	case DaemonPool:
		if d.Daemons == nil {
			return fmt.Errorf("%w: daemon mode without a daemon manager", ErrLinkerUnavailable)
		}
		if _, err := d.Daemons.Pool(d.ServiceKey); err != nil {
			return fmt.Errorf("%w: %v", ErrLinkerUnavailable, err)
		}
	case ProcessPerCall:
		if d.NewProcessLinker == nil {
			return fmt.Errorf("%w: process mode without a linker factory", ErrLinkerUnavailable)
		}
	default:
		return fmt.Errorf("%w: unknown mode %q", ErrLinkerUnavailable, d.Mode)
	}
	return nil
}

// acquire returns a linker for one link and the function releasing it.
func (d *Dispatcher) acquire(ctx context.Context) (aapt2.Linker, func(), error) {
	switch d.Mode {
	case DaemonPool:
		lease, err := d.Daemons.Lease(ctx, d.ServiceKey)
		if err != nil {
			return nil, nil, err
		}
		return lease, func() { lease.Close() }, nil
	default:
		linker := d.NewProcessLinker()
		if linker == nil {
			return nil, nil, fmt.Errorf("%w: linker factory returned nil", ErrLinkerUnavailable)
		}
		return linker, func() {}, nil
	}
}

// batch holds what every split of one Run shares. It is read-only once dispatch starts, except
// for states. Tasks of an aborted batch only ever touch their own batch.
type batch struct {
	req             *Request
	manifests       map[string]buildoutput.BuildOutput
	resourceFiles   []string
	featurePackages []string
	states          *splitStates
}

// Run links every output of req and writes the PROCESSED_RES manifest into req.OutputDir.
// Planning and precondition errors are returned before anything is linked. The first failing
// split aborts the batch with a *SplitError once every other split finished; a done ctx aborts
// it with ErrInterrupted. No manifest is written for an aborted batch.
func (d *Dispatcher) Run(ctx context.Context, req *Request) (*buildoutput.BuildElements, error) {
	logger := d.logger()
	splitList := req.SplitList
	if splitList == nil {
		splitList = splits.EmptySplitList
	}

	manifests, err := buildoutput.Load(pathtools.OsFs, req.ManifestDir)
	if err != nil {
		return nil, err
	}
	manifests = manifests.ByArtifactType(buildoutput.MergedManifests)
	if manifests.IsEmpty() {
		return nil, fmt.Errorf("no merged manifests in %s", req.ManifestDir)
	}

	b := &batch{req: req, manifests: make(map[string]buildoutput.BuildOutput)}
	var configs []*splits.OutputConfiguration
	for _, m := range manifests.Elements() {
		if m.Config == nil {
			return nil, fmt.Errorf("merged manifest %s has no output configuration", m.Path)
		}
		configs = append(configs, m.Config)
		b.manifests[m.Config.FullName] = m
	}

	plan, err := splits.NewPlan(configs, splits.PlanOptions{
		CanHaveSplits: req.CanHaveSplits,
		GenerateCode:  true,
	})
	if err != nil {
		return nil, err
	}
	if err := d.checkLinker(); err != nil {
		return nil, err
	}

	if b.featurePackages, err = resolveFeaturePackages(req.FeaturePackages, plan.Codegen); err != nil {
		return nil, err
	}
	if b.resourceFiles, err = compiledResources(req.ResourceDir); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(req.OutputDir, 0777); err != nil {
		return nil, err
	}

	var names []string
	for _, c := range plan.All() {
		names = append(names, c.FullName)
	}
	b.states = newSplitStates(names)
	d.mu.Lock()
	d.states = b.states
	d.mu.Unlock()

	// The codegen split runs to completion before any other split is submitted, so its R class
	// and symbols exist before anything consumes them.
	codegen, err := d.runSplit(ctx, b, splitList, plan.Codegen, true)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %v", ErrInterrupted, err)
		}
		return nil, &SplitError{FullName: plan.Codegen.FullName, Err: err}
	}

	executor := NewExecutor[buildoutput.BuildOutput](ctx, d.MaxWorkers)
	for _, c := range plan.Packaging {
		c := c
		executor.Submit(c.FullName, func(ctx context.Context) (buildoutput.BuildOutput, error) {
			return d.runSplit(ctx, b, splitList, c, false)
		})
	}
	results, err := executor.Wait(ctx)
	if err != nil {
		logger.Error("resource processing interrupted", "error", err)
		return nil, err
	}

	var packaged []buildoutput.BuildOutput
	for _, r := range results {
		if r.Err != nil {
			return nil, &SplitError{FullName: r.Name, Err: r.Err}
		}
		packaged = append(packaged, r.Value)
	}
	sort.SliceStable(packaged, func(i, j int) bool {
		return packaged[i].Config.FullName < packaged[j].Config.FullName
	})

	elements := buildoutput.NewBuildElements(codegen)
	elements.Add(packaged...)

	if req.Policy == splits.Splits {
		reconciled, err := d.reconcile(req.OutputDir, splitList, plan.Codegen)
		if err != nil {
			return nil, err
		}
		elements.Add(reconciled...)
	}

	if err := elements.Save(req.OutputDir); err != nil {
		return nil, err
	}
	if req.DepFile != "" {
		target := filepath.Join(req.OutputDir, buildoutput.JSONFileName)
		if err := buildoutput.WriteDepFile(req.DepFile, target, b.inputs()); err != nil {
			return nil, err
		}
	}
	logger.Info("processed resources", "outputs", elements.Len(), "dir", req.OutputDir)
	logger.Debug("resource packages", "paths", elements.Paths())
	return elements, nil
}

// runSplit links one split, tracking its state.
func (d *Dispatcher) runSplit(ctx context.Context, b *batch, splitList *splits.SplitList,
	config *splits.OutputConfiguration, generateCode bool) (buildoutput.BuildOutput, error) {

	if err := b.states.transition(config.FullName, Pending, Running); err != nil {
		return buildoutput.BuildOutput{}, err
	}
	out, err := d.linkSplit(ctx, b, splitList, config, generateCode)
	next := Succeeded
	if err != nil {
		next = Failed
	}
	if terr := b.states.transition(config.FullName, Running, next); terr != nil && err == nil {
		err = terr
	}
	return out, err
}

func (d *Dispatcher) linkSplit(ctx context.Context, b *batch, splitList *splits.SplitList,
	config *splits.OutputConfiguration, generateCode bool) (buildoutput.BuildOutput, error) {

	req := b.req
	manifest := b.manifests[config.FullName]
	resOut := filepath.Join(req.OutputDir, buildoutput.ResourceFileName(config.FullName))

	link := &aapt2.LinkRequest{
		AndroidJar:        req.AndroidJar,
		Manifest:          manifest.Path,
		ResourceOutputApk: resOut,
		Imports:           req.Imports,
		DependentFeatures: b.featurePackages,
		ResourceConfigs:   splitList.ResourceConfigs(),
		Splits:            splitList.Splits(req.Policy),
		PreferredDensity:  preferredDensity(config, splitList, req.BuildTargetDensity),
		PackageID:         req.Link.PackageID,
		StaticLibrary:     req.Library && req.Namespaced,
		Debuggable:        req.Link.Debuggable,
		PseudoLocalize:    req.Link.PseudoLocalize,
		Options:           req.Link.Options,
		IntermediateDir:   req.IntermediateDir,
	}
	link.AllowReservedPackageID = req.Link.PackageID != nil && req.Link.MinSdkVersion < minSdkAllowingReservedPackageID
	if req.Namespaced {
		link.StaticLibraries = req.Dependencies
	} else {
		if generateCode {
			link.LibrarySymbolTables = req.Dependencies
		}
		link.ResourceFiles = b.resourceFiles
	}

	if generateCode {
		link.CustomPackageForR = req.ApplicationID
		if req.Namespaced && req.Feature {
			link.CustomPackageForR = namespacedFeatureRPackage
		}
		// Clean the sources in case the package name changed.
		if req.SourceOutputDir != "" {
			if err := cleanDir(req.SourceOutputDir); err != nil {
				return buildoutput.BuildOutput{}, err
			}
			link.SourceOutputDir = req.SourceOutputDir
		}
		if req.SymbolOutputDir != "" {
			if err := os.MkdirAll(req.SymbolOutputDir, 0777); err != nil {
				return buildoutput.BuildOutput{}, err
			}
			link.SymbolOutputDir = req.SymbolOutputDir
		}
		link.ProguardOutputFile = req.ProguardOutputFile
		link.MainDexListProguardOutputFile = req.MainDexListProguardOutputFile
	}

	if err := d.link(ctx, link); err != nil {
		return buildoutput.BuildOutput{}, err
	}
	d.logger().Debug("aapt output file", "split", config.FullName, "path", resOut)

	if len(link.LibrarySymbolTables) > 0 && link.SourceOutputDir != "" && link.SymbolOutputDir != "" {
		err := symbols.GenerateLibraryRClasses(filepath.Join(link.SymbolOutputDir, "R.txt"),
			link.LibrarySymbolTables, link.CustomPackageForR, link.SourceOutputDir)
		if err != nil {
			return buildoutput.BuildOutput{}, err
		}
	}

	if generateCode && (req.Library || len(req.Dependencies) > 0) &&
		req.SymbolsWithPackageNameFile != "" && req.SymbolOutputDir != "" {
		err := symbols.WriteSymbolListWithPackageName(filepath.Join(req.SymbolOutputDir, "R.txt"),
			manifest.Path, req.SymbolsWithPackageNameFile)
		if err != nil {
			return buildoutput.BuildOutput{}, err
		}
	}

	return buildoutput.BuildOutput{
		Type:       buildoutput.ProcessedRes,
		Config:     config,
		Path:       resOut,
		Properties: manifest.Properties,
	}, nil
}

// link runs one link with a linker that is released on every path.
func (d *Dispatcher) link(ctx context.Context, req *aapt2.LinkRequest) error {
	linker, release, err := d.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()
	return aapt2.RewriteError(linker.Link(ctx, req), d.Blame)
}

// preferredDensity is the density filter of the split; without one, the build target density
// unless specific resource configurations were requested.
func preferredDensity(config *splits.OutputConfiguration, splitList *splits.SplitList, buildTargetDensity string) string {
	if density, ok := config.Filter(splits.Density); ok {
		return density.Identifier
	}
	if len(splitList.ResourceConfigs()) == 0 {
		return buildTargetDensity
	}
	return ""
}

// reconcile binds the pure splits aapt2 wrote next to the producer's archive.
func (d *Dispatcher) reconcile(outputDir string, splitList *splits.SplitList,
	producer *splits.OutputConfiguration) ([]buildoutput.BuildOutput, error) {

	var configs []*splits.OutputConfiguration
	splitList.ForEach(func(filterType splits.FilterType, filters []splits.Filter) {
		if filterType != splits.Density && filterType != splits.Language {
			return
		}
		for _, f := range filters {
			configs = append(configs, splits.NewConfigurationSplit(filterType, f.Value, f.DisplayName(), producer))
		}
	})
	if len(configs) == 0 {
		return nil, nil
	}

	r := &buildoutput.Reconciler{Logger: d.logger()}
	result, err := r.Reconcile(os.DirFS(outputDir), configs)
	if err != nil {
		return nil, err
	}
	outputs := result.Outputs
	for i := range outputs {
		outputs[i].Path = filepath.Join(outputDir, outputs[i].Path)
	}
	return outputs, nil
}

// resolveFeaturePackages returns the base archive of every feature this variant depends on.
func resolveFeaturePackages(dirs []string, mainSplit *splits.OutputConfiguration) ([]string, error) {
	var ret []string
	for _, dir := range dirs {
		elements, err := buildoutput.Load(pathtools.OsFs, dir)
		if err != nil {
			return nil, err
		}
		elements = elements.ByArtifactType(buildoutput.ProcessedRes)
		if elements.IsEmpty() {
			continue
		}
		main, ok := elements.ElementByOutputType(splits.Main)
		if !ok {
			return nil, fmt.Errorf("cannot find PROCESSED_RES output for %s in %s", mainSplit, dir)
		}
		ret = append(ret, main.Path)
	}
	return ret, nil
}

// compiledResources lists the .flat files below dir in lexical order.
func compiledResources(dir string) ([]string, error) {
	if dir == "" {
		return nil, nil
	}
	var ret []string
	err := fs.WalkDir(os.DirFS(dir), ".", func(name string, e fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !e.IsDir() && filepath.Ext(name) == ".flat" {
			ret = append(ret, filepath.Join(dir, filepath.FromSlash(name)))
		}
		return nil
	})
	return ret, err
}

func cleanDir(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return err
	}
	return os.MkdirAll(dir, 0777)
}

// inputs lists the files the PROCESSED_RES manifest depends on.
func (b *batch) inputs() []string {
	var deps []string
	for _, m := range b.manifests {
		deps = append(deps, m.Path)
	}
	deps = append(deps, b.resourceFiles...)
	deps = append(deps, b.req.Dependencies...)
	deps = append(deps, b.req.Imports...)
	deps = append(deps, b.featurePackages...)
	if b.req.AndroidJar != "" {
		deps = append(deps, b.req.AndroidJar)
	}
	return deps
}
