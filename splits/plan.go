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
	"errors"
	"fmt"
)

var (
	ErrNoCodegenSplit           = errors.New("no output configuration can generate code")
	ErrConflictingConfiguration = errors.New("conflicting output configurations")
)

// PlanError is returned for planning failures, before any split is dispatched.
type PlanError struct {
	Kind error
	Msg  string
}

func (e *PlanError) Error() string {
	if e.Msg == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind.Error(), e.Msg)
}

func (e *PlanError) Unwrap() error { return e.Kind }

// PlanOptions carries the variant level facts planning depends on.
type PlanOptions struct {
	// CanHaveSplits is false for variant types that only ever produce their main output;
	// packaging splits are then never dispatched.
	CanHaveSplits bool
	// GenerateCode requires that one configuration is selected to generate sources.
	GenerateCode bool
}

// Plan is the split of a batch of output configurations into the single configuration that
// generates the shared R class and symbols, which must finish before anything else runs, and
// the configurations that are only packaged and may run concurrently.
type Plan struct {
	Codegen   *OutputConfiguration
	Packaging []*OutputConfiguration
}

// NewPlan selects the first configuration, in the given order, that is the main output or has
// no density filter as the codegen configuration.
func NewPlan(configs []*OutputConfiguration, opts PlanOptions) (*Plan, error) {
	seen := make(map[string]bool, len(configs))
	for i, c := range configs {
		if c == nil {
			return nil, &PlanError{ErrConflictingConfiguration, fmt.Sprintf("configuration %d is nil", i)}
		}
		if seen[c.FullName] {
			return nil, &PlanError{ErrConflictingConfiguration,
				fmt.Sprintf("duplicate full name %q", c.FullName)}
		}
		seen[c.FullName] = true
	}

	plan := &Plan{}
	remaining := make([]*OutputConfiguration, 0, len(configs))
	for _, c := range configs {
		if plan.Codegen == nil && c.RequiresCompilation() {
			plan.Codegen = c
			continue
		}
		remaining = append(remaining, c)
	}

	if plan.Codegen == nil && opts.GenerateCode {
		return nil, &PlanError{ErrNoCodegenSplit,
			fmt.Sprintf("none of %d configurations is a main output or density-less", len(configs))}
	}

	if opts.CanHaveSplits {
		for _, c := range remaining {
			if c.RequiresAapt() {
				plan.Packaging = append(plan.Packaging, c)
			}
		}
	}
	return plan, nil
}

// All returns the codegen configuration, if any, followed by the packaging configurations.
func (p *Plan) All() []*OutputConfiguration {
	var ret []*OutputConfiguration
	if p.Codegen != nil {
		ret = append(ret, p.Codegen)
	}
	return append(ret, p.Packaging...)
}
