// Package ipc binds local inter-process sockets — Unix domain sockets on
// this platform — as a transport.Binder, matching spec §6's requirement
// that a named local endpoint (as opposed to a TCP port) has its own
// conflict-handling policy for a leftover socket file from a previous,
// uncleanly terminated run.
package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"

	"minirpc/rpcerr"
	"minirpc/transport"
)

// ConflictPolicy decides what Bind does when the requested path already
// exists on disk.
type ConflictPolicy int

const (
	// Error fails Bind if the path already exists.
	Error ConflictPolicy = iota
	// Ignore attempts to bind over the path as-is, surfacing whatever
	// error the platform socket call produces.
	Ignore
	// Overwrite removes the stale path before binding.
	Overwrite
)

// SecurityAttributes configures filesystem permissions applied to a newly
// created socket path. It is a placeholder for platform-specific ACL
// support; on Unix it maps directly to a chmod.
type SecurityAttributes struct {
	Mode os.FileMode
}

// Binder implements transport.Binder over Unix domain sockets.
type Binder struct {
	Policy   ConflictPolicy
	Security *SecurityAttributes
}

func (b Binder) Bind(ctx context.Context, address string) (transport.Acceptor, error) {
	if err := b.handleConflict(address); err != nil {
		return nil, err
	}
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "unix", address)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", rpcerr.ErrTransport, err)
	}
	if b.Security != nil {
		if err := os.Chmod(address, b.Security.Mode); err != nil {
			ln.Close()
			return nil, fmt.Errorf("%w: %v", rpcerr.ErrTransport, err)
		}
	}
	return &acceptor{ln: ln, path: address}, nil
}

func (b Binder) handleConflict(address string) error {
	_, statErr := os.Stat(address)
	exists := statErr == nil
	if !exists {
		return nil
	}
	switch b.Policy {
	case Error:
		return fmt.Errorf("%w: socket path %q already exists", rpcerr.ErrTransport, address)
	case Overwrite:
		if err := os.Remove(address); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %v", rpcerr.ErrTransport, err)
		}
		return nil
	case Ignore:
		return nil
	default:
		return fmt.Errorf("%w: unknown conflict policy", rpcerr.ErrTransport)
	}
}

func (b Binder) Dial(ctx context.Context, address string) (transport.Conn, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", address)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", rpcerr.ErrTransport, err)
	}
	return conn, nil
}

type acceptor struct {
	ln        net.Listener
	path      string
	closeOnce sync.Once
}

func (a *acceptor) Accept(ctx context.Context) (transport.Conn, error) {
	type result struct {
		conn net.Conn
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		conn, err := a.ln.Accept()
		ch <- result{conn, err}
	}()
	select {
	case r := <-ch:
		if r.err != nil {
			return nil, fmt.Errorf("%w: %v", rpcerr.ErrTransport, r.err)
		}
		return r.conn, nil
	case <-ctx.Done():
		_ = a.Close()
		return nil, ctx.Err()
	}
}

func (a *acceptor) Close() error {
	var err error
	a.closeOnce.Do(func() {
		err = a.ln.Close()
		os.Remove(a.path)
	})
	return err
}
