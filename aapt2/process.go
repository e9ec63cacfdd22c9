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
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/blueprint/proptools"
)

var errConcurrentUse = errors.New("aapt2 process linker used by two callers at once")

// ProcessLinker runs one aapt2 process per link. It is created per task and must not be shared
// between goroutines.
type ProcessLinker struct {
	aapt2Path string
	logger    *slog.Logger
	busy      atomic.Bool
}

func NewProcessLinker(aapt2Path string, logger *slog.Logger) *ProcessLinker {
	if logger == nil {
		logger = discardLogger
	}
	return &ProcessLinker{aapt2Path: aapt2Path, logger: logger}
}

// Link runs "aapt2 link" and waits for it to exit.
func (p *ProcessLinker) Link(ctx context.Context, req *LinkRequest) error {
	if !p.busy.CompareAndSwap(false, true) {
		return errConcurrentUse
	}
	defer p.busy.Store(false)

	args, err := LinkCommand(req)
	if err != nil {
		return err
	}
	args = append([]string{"link"}, args...)

	cmd := exec.CommandContext(ctx, p.aapt2Path, args...)
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	p.logger.Debug("executing aapt2", "command",
		strings.Join(proptools.ShellEscapeList(append([]string{p.aapt2Path}, args...)), " "))
	started := time.Now()
	err = cmd.Run()
	if cmd.ProcessState != nil {
		p.logger.Debug("aapt2 finished", "exit_code", cmd.ProcessState.ExitCode(),
			"real", time.Since(started).Round(time.Millisecond))
	}
	if err != nil {
		lines := strings.Split(strings.TrimRight(output.String(), "\n"), "\n")
		return &Error{Op: "link", Messages: ParseOutput(lines), Output: lines, Err: err}
	}
	return nil
}
