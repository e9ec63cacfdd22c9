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
	"math/rand"
	"testing"

	"android/resplit/testutil"
)

func densitySplit(name, density string) *OutputConfiguration {
	return &OutputConfiguration{Type: FullSplit, FullName: name,
		Filters: []FilterData{{Density, density}}}
}

func TestNewPlan(t *testing.T) {
	main := &OutputConfiguration{Type: Main, FullName: "debug"}
	hdpi := densitySplit("hdpiDebug", "hdpi")
	xhdpi := densitySplit("xhdpiDebug", "xhdpi")
	abi := &OutputConfiguration{Type: FullSplit, FullName: "x86Debug",
		Filters: []FilterData{{Abi, "x86"}}}
	pure := &OutputConfiguration{Type: ConfigurationSplit, FullName: "debug-fr",
		Filters: []FilterData{{Language, "fr"}}}

	testCases := []struct {
		name      string
		configs   []*OutputConfiguration
		opts      PlanOptions
		codegen   string
		packaging []string
	}{
		{
			name:      "main first",
			configs:   []*OutputConfiguration{main, hdpi, xhdpi},
			opts:      PlanOptions{CanHaveSplits: true, GenerateCode: true},
			codegen:   "debug",
			packaging: []string{"hdpiDebug", "xhdpiDebug"},
		},
		{
			name:      "main last",
			configs:   []*OutputConfiguration{hdpi, xhdpi, main},
			opts:      PlanOptions{CanHaveSplits: true, GenerateCode: true},
			codegen:   "debug",
			packaging: []string{"hdpiDebug", "xhdpiDebug"},
		},
		{
			name:      "density-less full split generates code",
			configs:   []*OutputConfiguration{hdpi, abi, xhdpi},
			opts:      PlanOptions{CanHaveSplits: true, GenerateCode: true},
			codegen:   "x86Debug",
			packaging: []string{"hdpiDebug", "xhdpiDebug"},
		},
		{
			name:      "configuration splits are never packaged",
			configs:   []*OutputConfiguration{main, pure, hdpi},
			opts:      PlanOptions{CanHaveSplits: true, GenerateCode: true},
			codegen:   "debug",
			packaging: []string{"hdpiDebug"},
		},
		{
			name:    "variant without splits",
			configs: []*OutputConfiguration{main, hdpi},
			opts:    PlanOptions{CanHaveSplits: false, GenerateCode: true},
			codegen: "debug",
		},
		{
			name:      "no codegen when not requested",
			configs:   []*OutputConfiguration{hdpi, xhdpi},
			opts:      PlanOptions{CanHaveSplits: true},
			packaging: []string{"hdpiDebug", "xhdpiDebug"},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			plan, err := NewPlan(tc.configs, tc.opts)
			testutil.FailIfErrored(t, "plan", err)
			codegen := ""
			if plan.Codegen != nil {
				codegen = plan.Codegen.FullName
			}
			testutil.AssertStringEquals(t, "codegen", tc.codegen, codegen)
			var packaging []string
			for _, c := range plan.Packaging {
				packaging = append(packaging, c.FullName)
			}
			testutil.AssertDeepEquals(t, "packaging", tc.packaging, packaging)
		})
	}
}

func TestNewPlanSingleCodegenUnderShuffle(t *testing.T) {
	configs := []*OutputConfiguration{
		{Type: Main, FullName: "release"},
		densitySplit("mdpiRelease", "mdpi"),
		densitySplit("hdpiRelease", "hdpi"),
		densitySplit("xhdpiRelease", "xhdpi"),
		densitySplit("xxhdpiRelease", "xxhdpi"),
		densitySplit("xxxhdpiRelease", "xxxhdpi"),
	}
	r := rand.New(rand.NewSource(42))
	for i := 0; i < 50; i++ {
		r.Shuffle(len(configs), func(a, b int) { configs[a], configs[b] = configs[b], configs[a] })
		plan, err := NewPlan(configs, PlanOptions{CanHaveSplits: true, GenerateCode: true})
		testutil.FailIfErrored(t, "plan", err)
		testutil.AssertStringEquals(t, "codegen", "release", plan.Codegen.FullName)
		testutil.AssertIntEquals(t, "packaging", len(configs)-1, len(plan.Packaging))
		for _, c := range plan.Packaging {
			if c == plan.Codegen {
				t.Fatalf("codegen configuration %s is also packaged", c)
			}
		}
	}
}

func TestNewPlanErrors(t *testing.T) {
	_, err := NewPlan([]*OutputConfiguration{densitySplit("hdpi", "hdpi")},
		PlanOptions{CanHaveSplits: true, GenerateCode: true})
	testutil.AssertErrorIs(t, "no codegen", ErrNoCodegenSplit, err)

	_, err = NewPlan([]*OutputConfiguration{{Type: Main, FullName: "debug"}, densitySplit("debug", "hdpi")},
		PlanOptions{CanHaveSplits: true, GenerateCode: true})
	testutil.AssertErrorIs(t, "duplicate", ErrConflictingConfiguration, err)
	testutil.AssertErrorMessageContains(t, "duplicate", `"debug"`, err)

	_, err = NewPlan([]*OutputConfiguration{nil}, PlanOptions{})
	testutil.AssertErrorIs(t, "nil", ErrConflictingConfiguration, err)
}
