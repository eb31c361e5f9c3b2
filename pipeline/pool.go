package pipeline

import (
	"context"
	"errors"
	"fmt"

	"minirpc/codec"
	"minirpc/rpcerr"
	"minirpc/transport"
)

// PooledClient is the pipeline protocol's alternative to multiplex.Client's
// single shared connection: since a pipeline connection carries at most one
// request in flight, concurrency instead comes from holding several
// independent pipeline connections in a transport.ConnPool and borrowing one
// per call.
type PooledClient[Req, Res any] struct {
	pool  *transport.ConnPool
	codec codec.Codec
}

// NewPooledClient dials address over binder lazily, maintaining up to
// maxConns independent pipeline connections.
func NewPooledClient[Req, Res any](binder transport.Binder, address string, maxConns int, c codec.Codec) *PooledClient[Req, Res] {
	pool := transport.NewConnPool(address, maxConns, func() (transport.Conn, error) {
		return binder.Dial(context.Background(), address)
	})
	return &PooledClient[Req, Res]{pool: pool, codec: c}
}

// Call borrows a pooled connection, drives one pipeline request/response
// over it, and returns the connection to the pool — marking it unusable on
// transport failure so the pool discards rather than reuses it.
func (p *PooledClient[Req, Res]) Call(ctx context.Context, req Req) (Res, error) {
	var zero Res

	pc, err := p.pool.Get()
	if err != nil {
		return zero, fmt.Errorf("acquire pooled connection: %w", err)
	}

	client := NewClient[Req, Res](pc, p.codec)
	res, callErr := client.Call(ctx, req)
	if errors.Is(callErr, rpcerr.ErrTransport) || errors.Is(callErr, rpcerr.ErrProtocol) {
		pc.MarkUnusable()
	}
	p.pool.Put(pc)

	return res, callErr
}

// Close shuts down the underlying pool, closing every pooled connection.
func (p *PooledClient[Req, Res]) Close() error {
	return p.pool.Close()
}
