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

package dispatch

import (
	"testing"

	"android/resplit/testutil"
)

func TestSplitStateTransitions(t *testing.T) {
	testCases := []struct {
		from, to TaskState
		allowed  bool
	}{
		{Pending, Running, true},
		{Running, Succeeded, true},
		{Running, Failed, true},
		{Pending, Succeeded, false},
		{Pending, Failed, false},
		{Succeeded, Running, false},
		{Failed, Pending, false},
		{Running, Pending, false},
	}
	for _, tc := range testCases {
		t.Run(string(tc.from)+"->"+string(tc.to), func(t *testing.T) {
			testutil.AssertBoolEquals(t, "allowed", tc.allowed, isAllowedTransition(tc.from, tc.to))
		})
	}
}

func TestSplitStates(t *testing.T) {
	s := newSplitStates([]string{"debug", "debug-hdpi"})
	testutil.FailIfErrored(t, "start", s.transition("debug", Pending, Running))
	testutil.FailIfErrored(t, "finish", s.transition("debug", Running, Succeeded))

	err := s.transition("debug-hdpi", Running, Failed)
	testutil.AssertErrorMessageContains(t, "stale state", "expected RUNNING, got PENDING", err)
	err = s.transition("debug", Succeeded, Running)
	testutil.AssertErrorMessageContains(t, "terminal state", "disallowed transition", err)
	err = s.transition("release", Pending, Running)
	testutil.AssertErrorMessageContains(t, "unknown", `unknown split "release"`, err)

	snapshot := s.snapshot()
	testutil.AssertStringEquals(t, "debug", string(Succeeded), string(snapshot["debug"]))
	testutil.AssertStringEquals(t, "debug-hdpi", string(Pending), string(snapshot["debug-hdpi"]))
	testutil.AssertBoolEquals(t, "terminal", true, snapshot["debug"].IsTerminal())
	testutil.AssertBoolEquals(t, "not terminal", false, snapshot["debug-hdpi"].IsTerminal())
}
