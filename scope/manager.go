// Package scope provides the cancellation-scope primitives the engine's
// server and background components share: a Manager that supervises a set
// of long-running services under one cancellable context, and a generic
// accept-loop Server built on top of it. Adapted from the teacher's
// server.Server, which inlined an atomic shutdown flag and a sync.WaitGroup
// directly into the server struct — here that bookkeeping is pulled out
// into a reusable supervisor so pipeline/multiplex servers and any future
// background task share the same lifecycle.
package scope

import (
	"context"
	"os"
	"os/signal"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Manager supervises a group of long-running services under one
// cancellable context, mirroring the spec's background-service manager:
// AddService registers one more task, Cancel/CancelOnSignal trigger
// shutdown, and Wait blocks until every registered task has returned.
type Manager struct {
	ctx    context.Context
	cancel context.CancelFunc
	group  *errgroup.Group
	gctx   context.Context

	mu      sync.Mutex
	signals chan os.Signal
}

// NewManager creates a Manager whose services observe cancellation of
// parent (or of Cancel/CancelOnSignal being invoked).
func NewManager(parent context.Context) *Manager {
	ctx, cancel := context.WithCancel(parent)
	group, gctx := errgroup.WithContext(ctx)
	return &Manager{ctx: ctx, cancel: cancel, group: group, gctx: gctx}
}

// Context returns the scope context services should observe for
// cancellation; it is done when Cancel is called, a signal arrives, or any
// registered service returns a non-nil error.
func (m *Manager) Context() context.Context { return m.gctx }

// AddService registers one long-running task. Its ctx argument is done
// exactly when the manager's scope ends. If fn returns a non-nil error, the
// manager cancels every other registered service.
func (m *Manager) AddService(fn func(ctx context.Context) error) {
	m.group.Go(func() error {
		return fn(m.gctx)
	})
}

// Cancel ends the scope directly, without waiting for any service to fail.
func (m *Manager) Cancel() {
	m.cancel()
}

// CancelOnSignal ends the scope the first time one of the given OS signals
// arrives (SIGINT/SIGTERM, typically).
func (m *Manager) CancelOnSignal(signals ...os.Signal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.signals != nil {
		return
	}
	m.signals = make(chan os.Signal, 1)
	signal.Notify(m.signals, signals...)
	go func() {
		select {
		case <-m.signals:
			m.cancel()
		case <-m.ctx.Done():
		}
	}()
}

// Wait blocks until every registered service has returned, then returns the
// first non-nil error among them (if any).
func (m *Manager) Wait() error {
	err := m.group.Wait()
	m.mu.Lock()
	if m.signals != nil {
		signal.Stop(m.signals)
	}
	m.mu.Unlock()
	return err
}
