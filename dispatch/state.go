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
	"fmt"
	"sync"
)

// TaskState is the progress of one split.
type TaskState string

const (
	Pending   TaskState = "PENDING"
	Running   TaskState = "RUNNING"
	Succeeded TaskState = "SUCCEEDED"
	Failed    TaskState = "FAILED"
)

// IsTerminal reports whether the state is final.
func (s TaskState) IsTerminal() bool {
	return s == Succeeded || s == Failed
}

func isAllowedTransition(from, to TaskState) bool {
	switch from {
	case Pending:
		return to == Running
	case Running:
		return to == Succeeded || to == Failed
	default:
		return false
	}
}

// splitStates tracks the state of every split of a batch. It is shared by the tasks of a batch,
// each of which only touches its own split.
type splitStates struct {
	mu     sync.Mutex
	states map[string]TaskState
}

func newSplitStates(names []string) *splitStates {
	s := &splitStates{states: make(map[string]TaskState, len(names))}
	for _, n := range names {
		s.states[n] = Pending
	}
	return s
}

// transition moves name from the expected state to another, rejecting any transition the state
// machine does not allow.
func (s *splitStates) transition(name string, from, to TaskState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.states[name]
	if !ok {
		return fmt.Errorf("unknown split %q", name)
	}
	if cur != from {
		return fmt.Errorf("invalid transition for %q: expected %s, got %s", name, from, cur)
	}
	if !isAllowedTransition(from, to) {
		return fmt.Errorf("disallowed transition for %q: %s -> %s", name, from, to)
	}
	s.states[name] = to
	return nil
}

func (s *splitStates) snapshot() map[string]TaskState {
	s.mu.Lock()
	defer s.mu.Unlock()
	ret := make(map[string]TaskState, len(s.states))
	for k, v := range s.states {
		ret[k] = v
	}
	return ret
}
