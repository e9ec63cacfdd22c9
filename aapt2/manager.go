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
	"io"
	"log/slog"
	"sync"
	"time"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// ServiceKey identifies the daemon pool of one aapt2 installation within a Manager.
type ServiceKey struct {
	id   int
	path string
}

func (k ServiceKey) String() string {
	return fmt.Sprintf("aapt2-%d(%s)", k.id, k.path)
}

// ManagerOptions configure the pools created by a Manager.
type ManagerOptions struct {
	// MaxDaemons bounds the daemons of each registered installation.
	MaxDaemons int
	// StartupTimeout bounds how long a new daemon may take to become ready. Zero means no limit.
	StartupTimeout time.Duration
	// Start overrides how daemons are started, for tests.
	Start func(ctx context.Context, aapt2Path, name string) (*Daemon, error)
	Logger *slog.Logger
}

// Manager owns the daemon pools of a build. It is created by the build driver, passed to the
// code that needs daemons, and shut down when the build ends.
type Manager struct {
	opts ManagerOptions

	mu     sync.Mutex
	keys   map[string]ServiceKey
	pools  map[ServiceKey]*Pool
	closed bool
}

func NewManager(opts ManagerOptions) *Manager {
	if opts.MaxDaemons < 1 {
		opts.MaxDaemons = 1
	}
	if opts.Start == nil {
		opts.Start = StartDaemon
	}
	if opts.Logger == nil {
		opts.Logger = discardLogger
	}
	return &Manager{
		opts:  opts,
		keys:  make(map[string]ServiceKey),
		pools: make(map[ServiceKey]*Pool),
	}
}

// Register creates the pool for the aapt2 binary at aapt2Path. Registering the same path again
// returns the existing key.
func (m *Manager) Register(aapt2Path string) (ServiceKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ServiceKey{}, ErrPoolClosed
	}
	if key, ok := m.keys[aapt2Path]; ok {
		return key, nil
	}

	key := ServiceKey{id: len(m.keys) + 1, path: aapt2Path}
	start := func(ctx context.Context, name string) (*Daemon, error) {
		if m.opts.StartupTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, m.opts.StartupTimeout)
			defer cancel()
		}
		return m.opts.Start(ctx, aapt2Path, name)
	}
	m.keys[aapt2Path] = key
	m.pools[key] = NewPool(key.String(), m.opts.MaxDaemons, start, m.opts.Logger)
	m.opts.Logger.Debug("registered aapt2 service", "key", key.String())
	return key, nil
}

// Pool returns the pool registered for key.
func (m *Manager) Pool(key ServiceKey) (*Pool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pool, ok := m.pools[key]
	if !ok {
		return nil, fmt.Errorf("%s: %w", key, ErrServiceNotRegistered)
	}
	return pool, nil
}

// Lease leases a daemon from the pool registered for key.
func (m *Manager) Lease(ctx context.Context, key ServiceKey) (*LeasedDaemon, error) {
	pool, err := m.Pool(key)
	if err != nil {
		return nil, err
	}
	return pool.Lease(ctx)
}

// Shutdown shuts down every pool. It waits for leases in flight.
func (m *Manager) Shutdown() error {
	m.mu.Lock()
	m.closed = true
	pools := make([]*Pool, 0, len(m.pools))
	for _, p := range m.pools {
		pools = append(pools, p)
	}
	m.mu.Unlock()

	var errs []error
	for _, p := range pools {
		errs = append(errs, p.Shutdown())
	}
	return errors.Join(errs...)
}
