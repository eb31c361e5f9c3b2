// Package transport defines the byte-stream trait the engine consumes
// (spec §6) and the concrete binders the core integrates with: TCP here,
// Unix-domain/named-pipe in transport/ipc, in-process channels in
// transport/local, and child-process stdio in transport/stdio.
package transport

import (
	"context"
	"io"
)

// Conn is a bidirectional byte-stream connection — one accepted or dialed
// endpoint of a binding.
type Conn interface {
	io.ReadWriteCloser
}

// Acceptor is a lazy sequence of inbound connections on a bound address.
// Accept errors are non-fatal per item; the caller may continue accepting.
// Closing the acceptor closes the underlying binding.
type Acceptor interface {
	Accept(ctx context.Context) (Conn, error)
	Close() error
}

// Binder is the transport trait consumed by scope.Server and client.Client:
// Bind listens for inbound connections, Dial opens an outbound one.
type Binder interface {
	Bind(ctx context.Context, address string) (Acceptor, error)
	Dial(ctx context.Context, address string) (Conn, error)
}

// AddrAcceptor is implemented by acceptors that can report their actual
// bound address — useful after binding to a "host:0" style address that
// lets the OS choose a port.
type AddrAcceptor interface {
	Acceptor
	Addr() string
}
