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

// process_resources links the resources of every output of a variant with aapt2 and writes the
// PROCESSED_RES build output manifest.
//
// Usage:
//
//	process_resources --manifests <dir> --res-dir <dir> --out <dir> [flags]
//
// Arguments starting with "@" are replaced by the whitespace separated arguments in the named
// file.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/blueprint/pathtools"
	"github.com/spf13/pflag"

	"android/resplit/aapt2"
	"android/resplit/blame"
	"android/resplit/buildoutput"
	"android/resplit/config"
	"android/resplit/dispatch"
	"android/resplit/splits"
)

type options struct {
	config        string
	manifests     string
	splitList     string
	resDir        string
	out           string
	sourceOut     string
	symbolOut     string
	symbolsOut    string
	proguard      string
	mainDexRules  string
	applicationID string
	dependencies  []string
	imports       []string
	features      []string
	blameDir      string
	intermediates string
	depfile       string
	writeDepfile  bool
	jobs          int
	verbose       bool
}

func newFlagSet(o *options) *pflag.FlagSet {
	flags := pflag.NewFlagSet("process_resources", pflag.ContinueOnError)
	flags.StringVar(&o.config, "config", "", "configuration file (default: $"+config.EnvVar+")")
	flags.StringVar(&o.manifests, "manifests", "", "directory holding the merged manifests output.json")
	flags.StringVar(&o.splitList, "split-list", "", "split list artifact")
	flags.StringVar(&o.resDir, "res-dir", "", "directory of compiled resources")
	flags.StringVar(&o.out, "out", "", "resource package output directory")
	flags.StringVar(&o.sourceOut, "source-out", "", "directory for the generated R sources")
	flags.StringVar(&o.symbolOut, "symbol-out", "", "directory for the R.txt symbol table")
	flags.StringVar(&o.symbolsOut, "symbols-with-package", "", "symbol list with package name output")
	flags.StringVar(&o.proguard, "proguard", "", "proguard rules output")
	flags.StringVar(&o.mainDexRules, "main-dex-proguard", "", "main dex proguard rules output")
	flags.StringVar(&o.applicationID, "application-id", "", "package of the generated R class (default: link.custom_package)")
	flags.StringArrayVar(&o.dependencies, "dependency", nil, "library symbol table, or static library when namespaced")
	flags.StringArrayVar(&o.imports, "import", nil, "resource archive to link against")
	flags.StringArrayVar(&o.features, "feature-package", nil, "PROCESSED_RES directory of a feature this one depends on")
	flags.StringVar(&o.blameDir, "blame-dir", "", "merge blame log, or directory of them, used to locate errors in merged resources")
	flags.StringVar(&o.intermediates, "intermediates", "", "directory for argument files")
	flags.StringVar(&o.depfile, "depfile", "", "depfile to write")
	flags.BoolVar(&o.writeDepfile, "write-depfile", false, "write the depfile next to the output manifest when --depfile is not set")
	flags.IntVarP(&o.jobs, "jobs", "j", -1, "maximum concurrently linked splits (default: dispatch.max_workers)")
	flags.BoolVarP(&o.verbose, "verbose", "v", false, "debug logging")
	return flags
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "process_resources: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	args, err := aapt2.ExpandFileLists(args, func(name string) (io.ReadCloser, error) {
		return os.Open(name)
	})
	if err != nil {
		return err
	}

	var o options
	flags := newFlagSet(&o)
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if flags.NArg() > 0 {
		return fmt.Errorf("unexpected argument: %s", flags.Arg(0))
	}

	logLevel := slog.LevelInfo
	if o.verbose || os.Getenv("RESPLIT_DEBUG") != "" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	cfg, err := loadConfig(o.config)
	if err != nil {
		return err
	}
	req, err := newRequest(&o, cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	d, manager, err := newDispatcher(&o, cfg, logger)
	if err != nil {
		return err
	}
	if manager != nil {
		defer func() {
			if err := manager.Shutdown(); err != nil {
				logger.Warn("aapt2 daemons did not shut down cleanly", "error", err)
			}
		}()
	}

	_, err = d.Run(ctx, req)
	return err
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

func newDispatcher(o *options, cfg *config.Config, logger *slog.Logger) (*dispatch.Dispatcher, *aapt2.Manager, error) {
	d := &dispatch.Dispatcher{
		MaxWorkers: cfg.Dispatch.MaxWorkers,
		Logger:     logger,
	}
	if o.jobs >= 0 {
		d.MaxWorkers = o.jobs
	}
	if o.blameDir != "" {
		log, err := loadBlame(o.blameDir)
		if err != nil {
			return nil, nil, fmt.Errorf("loading merge blame logs: %w", err)
		}
		d.Blame = log
	}

	switch cfg.Aapt2.Mode {
	case config.ProcessMode:
		d.Mode = dispatch.ProcessPerCall
		d.NewProcessLinker = func() aapt2.Linker {
			return aapt2.NewProcessLinker(cfg.Aapt2.Path, logger)
		}
		return d, nil, nil
	default:
		manager := aapt2.NewManager(aapt2.ManagerOptions{
			MaxDaemons:     cfg.Aapt2.MaxDaemons,
			StartupTimeout: cfg.StartupTimeout(),
			Logger:         logger,
		})
		key, err := manager.Register(cfg.Aapt2.Path)
		if err != nil {
			return nil, nil, err
		}
		d.Mode = dispatch.DaemonPool
		d.Daemons = manager
		d.ServiceKey = key
		return d, manager, nil
	}
}

func loadBlame(path string) (*blame.Log, error) {
	isDir, err := pathtools.OsFs.IsDir(path)
	if err != nil {
		return nil, err
	}
	if isDir {
		return blame.LoadDir(os.DirFS(path))
	}
	return blame.LoadFile(pathtools.OsFs, path)
}

func newRequest(o *options, cfg *config.Config) (*dispatch.Request, error) {
	if o.manifests == "" || o.out == "" {
		return nil, errors.New("--manifests and --out are required")
	}
	depfile := o.depfile
	if depfile == "" && o.writeDepfile {
		depfile = buildoutput.DepFileName(o.out)
	}
	splitList, err := splits.LoadSplitList(pathtools.OsFs, o.splitList)
	if err != nil {
		return nil, err
	}

	policy := splits.Splits
	if cfg.Dispatch.MultiOutputPolicy == "multi_apk" {
		policy = splits.MultiApk
	}
	applicationID := o.applicationID
	if applicationID == "" {
		applicationID = cfg.Link.CustomPackage
	}
	var packageID *int
	if cfg.Link.PackageID != 0 {
		id := cfg.Link.PackageID
		packageID = &id
	}

	return &dispatch.Request{
		ManifestDir:                   o.manifests,
		SplitList:                     splitList,
		Policy:                        policy,
		CanHaveSplits:                 cfg.Dispatch.CanHaveSplits,
		ResourceDir:                   o.resDir,
		AndroidJar:                    cfg.Aapt2.AndroidJar,
		OutputDir:                     o.out,
		SourceOutputDir:               o.sourceOut,
		SymbolOutputDir:               o.symbolOut,
		SymbolsWithPackageNameFile:    o.symbolsOut,
		ProguardOutputFile:            o.proguard,
		MainDexListProguardOutputFile: o.mainDexRules,
		ApplicationID:                 applicationID,
		Dependencies:                  o.dependencies,
		Imports:                       o.imports,
		FeaturePackages:               o.features,
		Link: dispatch.LinkOptions{
			Debuggable:     cfg.Link.Debuggable,
			PseudoLocalize: cfg.Link.PseudoLocales,
			PackageID:      packageID,
			MinSdkVersion:  cfg.Link.MinSdkVersion,
			Options: aapt2.Options{
				NoCompress:           cfg.Link.NoCompress,
				AdditionalParameters: cfg.Link.AdditionalParameters,
			},
		},
		BuildTargetDensity: cfg.Dispatch.BuildTargetDensity,
		Namespaced:         cfg.Link.Namespaced,
		Library:            cfg.Link.Library,
		Feature:            cfg.Link.Feature,
		IntermediateDir:    o.intermediates,
		DepFile:            depfile,
	}, nil
}
