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
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/blueprint/proptools"
)

// Linker links resources for one split.
type Linker interface {
	Link(ctx context.Context, req *LinkRequest) error
}

// StartFunc starts a new daemon, ready to accept commands.
type StartFunc func(ctx context.Context, name string) (*Daemon, error)

// Stats counts pool activity. A pool with no lease in flight has Leased == Released.
type Stats struct {
	Started   int
	Leased    int
	Released  int
	Discarded int
}

// Pool is a bounded set of daemons of one aapt2 installation. A daemon is leased by exactly one
// caller at a time and returned to the pool when the lease is closed.
type Pool struct {
	name   string
	start  StartFunc
	logger *slog.Logger

	// One token per daemon that may exist; leases block while it is full.
	sem chan struct{}

	mu       sync.Mutex
	idle     []*Daemon
	closed   bool
	nextID   int
	stats    Stats
	inFlight sync.WaitGroup
}

// NewPool returns a pool of at most maxDaemons daemons created with start.
func NewPool(name string, maxDaemons int, start StartFunc, logger *slog.Logger) *Pool {
	if maxDaemons < 1 {
		maxDaemons = 1
	}
	if logger == nil {
		logger = discardLogger
	}
	return &Pool{
		name:   name,
		start:  start,
		logger: logger,
		sem:    make(chan struct{}, maxDaemons),
	}
}

// Lease returns an idle daemon, starting one if none is idle. It blocks while every daemon is
// leased. The returned lease must be closed, typically with defer, on every path.
func (p *Pool) Lease(ctx context.Context) (*LeasedDaemon, error) {
	select {
	case p.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		<-p.sem
		return nil, ErrPoolClosed
	}
	p.inFlight.Add(1)
	var d *Daemon
	if n := len(p.idle); n > 0 {
		d = p.idle[n-1]
		p.idle = p.idle[:n-1]
	}
	p.nextID++
	id := p.nextID
	p.mu.Unlock()

	if d == nil {
		var err error
		d, err = p.start(ctx, fmt.Sprintf("%s #%d", p.name, id))
		if err != nil {
			p.inFlight.Done()
			<-p.sem
			return nil, err
		}
		p.logger.Debug("started aapt2 daemon", "daemon", d.String())
		p.mu.Lock()
		p.stats.Started++
		p.mu.Unlock()
	}

	p.mu.Lock()
	p.stats.Leased++
	p.mu.Unlock()
	return &LeasedDaemon{pool: p, daemon: d}, nil
}

func (p *Pool) release(d *Daemon) {
	defer func() {
		<-p.sem
		p.inFlight.Done()
	}()

	p.mu.Lock()
	p.stats.Released++
	if !d.Broken() {
		p.idle = append(p.idle, d)
		p.mu.Unlock()
		return
	}
	p.stats.Discarded++
	p.mu.Unlock()

	p.logger.Warn("discarding broken aapt2 daemon", "daemon", d.String())
	if err := d.Shutdown(); err != nil {
		p.logger.Debug("broken aapt2 daemon exited", "daemon", d.String(), "error", err)
	}
}

// Stats returns a snapshot of the pool counters.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

// Shutdown refuses new leases, waits for leases in flight to be released and then stops every
// idle daemon.
func (p *Pool) Shutdown() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	p.inFlight.Wait()

	p.mu.Lock()
	idle := p.idle
	p.idle = nil
	p.mu.Unlock()

	var errs []error
	for _, d := range idle {
		if err := d.Shutdown(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", d, err))
		}
	}
	return errors.Join(errs...)
}

// LeasedDaemon is a daemon borrowed from a Pool.
type LeasedDaemon struct {
	pool     *Pool
	daemon   *Daemon
	released atomic.Bool
}

// Link runs a link command on the leased daemon.
func (l *LeasedDaemon) Link(ctx context.Context, req *LinkRequest) error {
	if l.released.Load() {
		return ErrLeaseReleased
	}
	args, err := LinkCommand(req)
	if err != nil {
		return err
	}
	l.pool.logger.Debug("aapt2 daemon link", "daemon", l.daemon.String(),
		"command", strings.Join(proptools.ShellEscapeList(args), " "))
	return l.daemon.run(ctx, "link", append([]string{linkCommand}, args...))
}

// Close returns the daemon to its pool. Closing more than once has no effect.
func (l *LeasedDaemon) Close() error {
	if l.released.CompareAndSwap(false, true) {
		l.pool.release(l.daemon)
	}
	return nil
}
