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
	"strings"
)

var (
	// ErrDaemonBroken is returned once a daemon stopped following the protocol. A broken
	// daemon is never handed out again.
	ErrDaemonBroken = errors.New("aapt2 daemon is broken")
	// ErrPoolClosed is returned by leases requested after Shutdown.
	ErrPoolClosed = errors.New("aapt2 daemon pool is shut down")
	// ErrServiceNotRegistered is returned for leases on an unknown service key.
	ErrServiceNotRegistered = errors.New("aapt2 service is not registered")
	// ErrLeaseReleased is returned when a released lease is used again.
	ErrLeaseReleased = errors.New("aapt2 daemon lease already released")
)

// Message is one diagnostic printed by aapt2.
type Message struct {
	Severity string
	File     string
	Line     int
	Column   int
	Text     string
}

func (m Message) String() string {
	var b strings.Builder
	if m.File != "" {
		b.WriteString(m.File)
		if m.Line > 0 {
			fmt.Fprintf(&b, ":%d", m.Line)
			if m.Column > 0 {
				fmt.Fprintf(&b, ":%d", m.Column)
			}
		}
		b.WriteString(": ")
	}
	b.WriteString(m.Severity)
	b.WriteString(": ")
	b.WriteString(m.Text)
	return b.String()
}

// Error is a failed aapt2 invocation.
type Error struct {
	Op       string
	Messages []Message
	// Raw output of the invocation.
	Output []string
	Err    error
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "aapt2 %s failed", e.Op)
	if e.Err != nil {
		fmt.Fprintf(&b, ": %s", e.Err)
	}
	reported := false
	for _, m := range e.Messages {
		if m.Severity != "error" {
			continue
		}
		b.WriteString("\n")
		b.WriteString(m.String())
		reported = true
	}
	// Crashes print nothing aapt2 itself formats; show what there is.
	if !reported {
		for _, line := range e.Output {
			if strings.TrimSpace(line) == "" {
				continue
			}
			b.WriteString("\n")
			b.WriteString(line)
		}
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// SourceFinder maps a position in a merged resource file back to the file it was merged from.
type SourceFinder interface {
	Find(file string, line int) (source string, sourceLine int, ok bool)
}

// RewriteError points the diagnostics of an aapt2 failure at original source files. The context
// err wraps the failure in is kept. Errors that are not aapt2 failures, or a nil finder, leave
// err untouched.
func RewriteError(err error, finder SourceFinder) error {
	var aaptErr *Error
	if finder == nil || !errors.As(err, &aaptErr) {
		return err
	}

	rewritten := *aaptErr
	rewritten.Messages = make([]Message, len(aaptErr.Messages))
	for i, m := range aaptErr.Messages {
		if m.File != "" {
			if source, line, ok := finder.Find(m.File, m.Line); ok {
				m.File = source
				m.Line = line
				m.Column = 0
			}
		}
		rewritten.Messages[i] = m
	}
	if err == error(aaptErr) {
		return &rewritten
	}
	return &rewrittenError{outer: err, original: aaptErr, rewritten: &rewritten}
}

// rewrittenError keeps the context wrapped around an *Error whose diagnostics were rewritten.
type rewrittenError struct {
	outer     error
	original  *Error
	rewritten *Error
}

func (e *rewrittenError) Error() string {
	return strings.Replace(e.outer.Error(), e.original.Error(), e.rewritten.Error(), 1)
}

func (e *rewrittenError) Unwrap() []error { return []error{e.rewritten, e.outer} }
