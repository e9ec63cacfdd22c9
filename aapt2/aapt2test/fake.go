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

// Package aapt2test provides in-process aapt2 daemons speaking the daemon line protocol, for
// tests that must not depend on a real aapt2 binary.
package aapt2test

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync"

	"android/resplit/aapt2"
)

// Response is what a fake daemon answers to one command.
type Response struct {
	// Output lines printed on stderr before the status.
	Output []string
	// Fail makes the daemon report the command as failed.
	Fail bool
	// Crash makes the daemon exit without answering.
	Crash bool
}

// Handler answers one command. args[0] is the command name ("l" for link).
type Handler func(args []string) Response

// Succeed answers every command successfully.
func Succeed([]string) Response { return Response{} }

// Fake is a factory of fake daemons sharing one handler.
type Fake struct {
	Handler Handler

	mu      sync.Mutex
	started int
	running int
}

// Start starts a fake daemon. Its signature matches aapt2.ManagerOptions.Start.
func (f *Fake) Start(ctx context.Context, aapt2Path, name string) (*aapt2.Daemon, error) {
	f.mu.Lock()
	f.started++
	f.running++
	f.mu.Unlock()

	d := NewDaemon(name, f.Handler, func() {
		f.mu.Lock()
		f.running--
		f.mu.Unlock()
	})
	if err := d.WaitReady(ctx); err != nil {
		d.Shutdown()
		return nil, err
	}
	return d, nil
}

// Started returns how many daemons were started.
func (f *Fake) Started() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.started
}

// Running returns how many daemons have not exited yet.
func (f *Fake) Running() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running
}

// NewDaemon returns a daemon served by handler over in-memory pipes. exited, if not nil, is
// called once the fake has stopped.
func NewDaemon(name string, handler Handler, exited func()) *aapt2.Daemon {
	if handler == nil {
		handler = Succeed
	}
	stdinR, stdinW := io.Pipe()
	stdoutR, stdoutW := io.Pipe()
	stderrR, stderrW := io.Pipe()

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer stderrW.Close()
		defer stdoutW.Close()
		defer stdinR.Close()
		if exited != nil {
			defer exited()
		}

		fmt.Fprintln(stdoutW, "Ready")
		scanner := bufio.NewScanner(stdinR)
		var command []string
		for scanner.Scan() {
			line := scanner.Text()
			if line != "" {
				command = append(command, line)
				continue
			}
			if len(command) == 0 {
				continue
			}
			if len(command) == 1 && command[0] == "quit" {
				return
			}
			resp := handler(command)
			command = nil
			if resp.Crash {
				return
			}
			for _, l := range resp.Output {
				fmt.Fprintln(stderrW, l)
			}
			if resp.Fail {
				fmt.Fprintln(stderrW, "Error")
			}
			fmt.Fprintln(stderrW, "Done")
		}
	}()

	return aapt2.NewDaemon(name, stdinW, stdoutR, stderrR, func() error {
		<-done
		return nil
	})
}
