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
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"
)

// Lines of the aapt2 daemon protocol. The daemon prints readyLine on stdout once it accepts
// commands. A command is sent as one argument per line followed by an empty line; the daemon
// answers on stderr with the command's diagnostics, errorLine if the command failed, and
// doneLine last.
const (
	readyLine   = "Ready"
	doneLine    = "Done"
	errorLine   = "Error"
	linkCommand = "l"
	quitCommand = "quit"
)

// Grace period for a daemon to exit after quit before it is killed.
const shutdownTimeout = 10 * time.Second

// Daemon is a running "aapt2 daemon". It serves one command at a time and must not be used by
// two goroutines concurrently; the Pool guarantees that for leased daemons.
type Daemon struct {
	name   string
	stdin  io.WriteCloser
	output <-chan string
	ready  <-chan bool
	wait   func() error
	broken bool
	closed bool
}

// NewDaemon wires a daemon to an already running process. wait is called on shutdown once
// stdin has been closed and returns when the process has exited.
func NewDaemon(name string, stdin io.WriteCloser, stdout, stderr io.Reader, wait func() error) *Daemon {
	ready := make(chan bool, 1)
	go func() {
		scanner := bufio.NewScanner(stdout)
		signalled := false
		for scanner.Scan() {
			if !signalled && strings.TrimSpace(scanner.Text()) == readyLine {
				ready <- true
				signalled = true
			}
		}
		if !signalled {
			ready <- false
		}
	}()

	output := make(chan string)
	go func() {
		defer close(output)
		scanner := bufio.NewScanner(stderr)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for scanner.Scan() {
			output <- scanner.Text()
		}
	}()

	return &Daemon{
		name:   name,
		stdin:  stdin,
		output: output,
		ready:  ready,
		wait:   wait,
	}
}

// StartDaemon spawns "aapt2 daemon" and waits until it is ready to accept commands.
func StartDaemon(ctx context.Context, aapt2Path, name string) (*Daemon, error) {
	cmd := exec.Command(aapt2Path, "daemon")
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting %s: %w", name, err)
	}

	wait := func() error {
		done := make(chan error, 1)
		go func() { done <- cmd.Wait() }()
		select {
		case err := <-done:
			return err
		case <-time.After(shutdownTimeout):
			cmd.Process.Kill()
			return <-done
		}
	}

	d := NewDaemon(name, stdin, stdout, stderr, wait)
	if err := d.WaitReady(ctx); err != nil {
		d.Shutdown()
		return nil, err
	}
	return d, nil
}

func (d *Daemon) String() string {
	return d.name
}

// Broken reports whether the daemon stopped following the protocol.
func (d *Daemon) Broken() bool {
	return d.broken
}

// WaitReady blocks until the daemon announced it accepts commands.
func (d *Daemon) WaitReady(ctx context.Context) error {
	select {
	case ok := <-d.ready:
		if !ok {
			d.broken = true
			return fmt.Errorf("%s exited before it was ready: %w", d.name, ErrDaemonBroken)
		}
		return nil
	case <-ctx.Done():
		d.broken = true
		return fmt.Errorf("%s did not start: %w", d.name, ctx.Err())
	}
}

// Link runs one link command.
func (d *Daemon) Link(ctx context.Context, req *LinkRequest) error {
	args, err := LinkCommand(req)
	if err != nil {
		return err
	}
	return d.run(ctx, "link", append([]string{linkCommand}, args...))
}

func (d *Daemon) run(ctx context.Context, op string, command []string) error {
	if d.broken || d.closed {
		return fmt.Errorf("%s: %w", d.name, ErrDaemonBroken)
	}
	for _, arg := range command {
		if strings.ContainsAny(arg, "\r\n") {
			return fmt.Errorf("aapt2 %s: argument %q contains a line break", op, arg)
		}
	}

	var b strings.Builder
	for _, arg := range command {
		b.WriteString(arg)
		b.WriteString("\n")
	}
	b.WriteString("\n")

	// The command is written asynchronously so that a daemon that stops reading cannot
	// block past cancellation.
	written := make(chan error, 1)
	go func() {
		_, err := io.WriteString(d.stdin, b.String())
		written <- err
	}()

	var output []string
	failed := false
	for {
		select {
		case err := <-written:
			if err != nil {
				d.broken = true
				return fmt.Errorf("%s: writing command: %v: %w", d.name, err, ErrDaemonBroken)
			}
			written = nil
		case line, ok := <-d.output:
			if !ok {
				d.broken = true
				return fmt.Errorf("%s exited during %s: %w", d.name, op, ErrDaemonBroken)
			}
			switch strings.TrimSpace(line) {
			case doneLine:
				if failed {
					return &Error{Op: op, Messages: ParseOutput(output), Output: output}
				}
				return nil
			case errorLine:
				failed = true
			default:
				output = append(output, line)
			}
		case <-ctx.Done():
			// The daemon is still busy with the command and can't be reused.
			d.broken = true
			return fmt.Errorf("%s: %s interrupted: %w", d.name, op, ctx.Err())
		}
	}
}

// Shutdown asks the daemon to exit and waits for it. A broken daemon is not asked.
func (d *Daemon) Shutdown() error {
	if d.closed {
		return nil
	}
	d.closed = true
	if !d.broken {
		io.WriteString(d.stdin, quitCommand+"\n\n")
	}
	d.stdin.Close()
	go func() {
		// Drain so the process never blocks on a full stderr pipe while exiting.
		for range d.output {
		}
	}()
	if d.wait == nil {
		return nil
	}
	return d.wait()
}
