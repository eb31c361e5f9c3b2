package pipeline

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"minirpc/codec"
	"minirpc/protocol"
	"minirpc/rpcerr"
	"minirpc/transport"
)

// Client drives the pipeline protocol from the calling side: at most one
// request is in flight on the connection at a time, serialized by mu, since
// pipeline correlation is purely positional rather than tag-based. Callers
// wanting concurrent outstanding requests should use multiplex.Client
// instead, or use PooledClient, which spreads calls over several pipeline
// connections held in a transport.ConnPool.
type Client[Req, Res any] struct {
	conn  transport.Conn
	codec codec.Codec
	seq   atomic.Uint32
	mu    sync.Mutex
}

// NewClient wraps an already-dialed connection in the pipeline protocol.
func NewClient[Req, Res any](conn transport.Conn, c codec.Codec) *Client[Req, Res] {
	return &Client[Req, Res]{conn: conn, codec: c}
}

// Ready reports whether the client can accept a Call; a pipeline client is
// always ready as long as ctx itself hasn't been cancelled, since readiness
// here isn't gated by any shared resource.
func (c *Client[Req, Res]) Ready(ctx context.Context) error {
	return ctx.Err()
}

// Call sends req and blocks for the matching response. Concurrent Call
// invocations on the same Client are serialized; each waits its turn to
// write its request and read the next frame back.
func (c *Client[Req, Res]) Call(ctx context.Context, req Req) (Res, error) {
	var zero Res

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return zero, err
	}

	seq := c.seq.Add(1)
	body, err := c.codec.Encode(req)
	if err != nil {
		return zero, fmt.Errorf("encode request: %w", err)
	}
	if err := writeFrame(c.conn, protocol.MsgTypeRequest, byte(c.codec.Type()), seq, body); err != nil {
		return zero, err
	}

	header, respBody, err := readFrame(c.conn)
	if err != nil {
		return zero, err
	}
	if header.Seq != seq {
		return zero, fmt.Errorf("%w: response seq %d does not match request seq %d", rpcerr.ErrProtocol, header.Seq, seq)
	}
	if header.MsgType == protocol.MsgTypeError {
		return zero, fmt.Errorf("remote call failed: %s", string(respBody))
	}

	return decodeBody[Res](c.codec, respBody)
}

// Close closes the underlying connection.
func (c *Client[Req, Res]) Close() error {
	return c.conn.Close()
}
