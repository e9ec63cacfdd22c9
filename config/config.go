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

// Package config loads the configuration of process_resources.
//
// Configuration is read from one YAML file, named by the --config flag or the RESPLIT_CONFIG
// environment variable. Values in the file override the defaults; ${VAR} references in paths
// are expanded from the environment and relative paths are resolved against the directory of
// the file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvVar names the environment variable Load reads the config path from.
const EnvVar = "RESPLIT_CONFIG"

// Aapt2Mode selects how aapt2 is invoked.
type Aapt2Mode string

const (
	// DaemonMode leases long lived daemons from a pool.
	DaemonMode Aapt2Mode = "daemon"
	// ProcessMode runs one aapt2 process per link.
	ProcessMode Aapt2Mode = "process"
)

// Config is the configuration of one process_resources invocation.
type Config struct {
	Aapt2    Aapt2Config    `yaml:"aapt2"`
	Dispatch DispatchConfig `yaml:"dispatch"`
	Link     LinkConfig     `yaml:"link"`
}

// Aapt2Config locates aapt2 and configures its daemons.
type Aapt2Config struct {
	// Path of the aapt2 binary.
	Path string `yaml:"path"`
	// Mode is "daemon" or "process". Default: daemon
	Mode Aapt2Mode `yaml:"mode"`
	// MaxDaemons bounds the daemons started in daemon mode. Default: 4
	MaxDaemons int `yaml:"max_daemons"`
	// AndroidJar is the platform jar resources are linked against.
	AndroidJar string `yaml:"android_jar"`
	// StartupTimeout bounds how long a daemon may take to become ready. Default: 30s
	StartupTimeout string `yaml:"startup_timeout"`
}

// DispatchConfig configures how splits are scheduled.
type DispatchConfig struct {
	// MaxWorkers bounds concurrently linked splits. 0 uses the number of CPUs.
	MaxWorkers int `yaml:"max_workers"`
	// MultiOutputPolicy is "splits" or "multi_apk". Default: splits
	MultiOutputPolicy string `yaml:"multi_output_policy"`
	// CanHaveSplits is false for variants that only produce their main output. Default: true
	CanHaveSplits bool `yaml:"can_have_splits"`
	// BuildTargetDensity is the density of the device being built for, if known.
	BuildTargetDensity string `yaml:"build_target_density"`
}

// LinkConfig holds the link options shared by every split.
type LinkConfig struct {
	Debuggable           bool     `yaml:"debuggable"`
	PseudoLocales        bool     `yaml:"pseudo_locales"`
	PackageID            int      `yaml:"package_id"`
	MinSdkVersion        int      `yaml:"min_sdk_version"`
	CustomPackage        string   `yaml:"custom_package"`
	Namespaced           bool     `yaml:"namespaced"`
	Library              bool     `yaml:"library"`
	Feature              bool     `yaml:"feature"`
	NoCompress           []string `yaml:"no_compress"`
	AdditionalParameters []string `yaml:"additional_parameters"`
}

// Default returns the configuration used as a base before loading the config file.
func Default() *Config {
	return &Config{
		Aapt2: Aapt2Config{
			Path:           "aapt2",
			Mode:           DaemonMode,
			MaxDaemons:     4,
			StartupTimeout: "30s",
		},
		Dispatch: DispatchConfig{
			MultiOutputPolicy: "splits",
			CanHaveSplits:     true,
		},
	}
}

// Load loads the configuration file named by RESPLIT_CONFIG. Without it, the defaults are
// returned.
func Load() (*Config, error) {
	path := os.Getenv(EnvVar)
	if path == "" {
		cfg := Default()
		return cfg, cfg.Validate()
	}
	return LoadFile(path)
}

// LoadFile loads and validates the configuration file at path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg, err := Parse(data, filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse parses a configuration file whose relative paths are relative to dir.
func Parse(data []byte, dir string) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	cfg.expandVariables()
	cfg.resolvePaths(dir)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default} from the environment.
func expandVars(s string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if value := os.Getenv(parts[1]); value != "" {
			return value
		}
		return parts[2]
	})
}

func (c *Config) expandVariables() {
	c.Aapt2.Path = expandVars(c.Aapt2.Path)
	c.Aapt2.AndroidJar = expandVars(c.Aapt2.AndroidJar)
}

// joinPath joins the path strings in the argument list, taking absolute paths into account.
// That is, if one of the strings is an absolute path, the ones before are ignored.
func joinPath(base string, rest ...string) string {
	result := base
	for _, next := range rest {
		if filepath.IsAbs(next) {
			result = next
		} else {
			result = filepath.Join(result, next)
		}
	}
	return result
}

func (c *Config) resolvePaths(dir string) {
	// A bare command name is looked up in PATH.
	if filepath.Base(c.Aapt2.Path) != c.Aapt2.Path {
		c.Aapt2.Path = joinPath(dir, c.Aapt2.Path)
	}
	if c.Aapt2.AndroidJar != "" {
		c.Aapt2.AndroidJar = joinPath(dir, c.Aapt2.AndroidJar)
	}
}

// StartupTimeout returns the parsed aapt2 startup timeout.
func (c *Config) StartupTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Aapt2.StartupTimeout)
	return d
}

// Validate checks the configuration for errors, reporting all of them.
func (c *Config) Validate() error {
	var errs []error

	if c.Aapt2.Path == "" {
		errs = append(errs, errors.New("aapt2.path is required"))
	}
	if c.Aapt2.Mode != DaemonMode && c.Aapt2.Mode != ProcessMode {
		errs = append(errs, fmt.Errorf("aapt2.mode must be %q or %q, got %q", DaemonMode, ProcessMode, c.Aapt2.Mode))
	}
	if c.Aapt2.MaxDaemons < 1 {
		errs = append(errs, fmt.Errorf("aapt2.max_daemons must be positive, got %d", c.Aapt2.MaxDaemons))
	}
	if d, err := time.ParseDuration(c.Aapt2.StartupTimeout); err != nil {
		errs = append(errs, fmt.Errorf("aapt2.startup_timeout: %w", err))
	} else if d < 0 {
		errs = append(errs, fmt.Errorf("aapt2.startup_timeout must not be negative"))
	}

	if c.Dispatch.MaxWorkers < 0 {
		errs = append(errs, fmt.Errorf("dispatch.max_workers must not be negative, got %d", c.Dispatch.MaxWorkers))
	}
	switch c.Dispatch.MultiOutputPolicy {
	case "splits", "multi_apk":
	default:
		errs = append(errs, fmt.Errorf("dispatch.multi_output_policy must be splits or multi_apk, got %q",
			c.Dispatch.MultiOutputPolicy))
	}

	if c.Link.PackageID < 0 || c.Link.PackageID > 0xff {
		errs = append(errs, fmt.Errorf("link.package_id 0x%x is out of range", c.Link.PackageID))
	}
	if c.Link.MinSdkVersion < 0 {
		errs = append(errs, fmt.Errorf("link.min_sdk_version must not be negative"))
	}

	return errors.Join(errs...)
}
