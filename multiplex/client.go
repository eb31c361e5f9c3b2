package multiplex

import (
	"context"
	"fmt"
	"sync"
	"time"

	"minirpc/codec"
	"minirpc/protocol"
	"minirpc/rpcerr"
	"minirpc/transport"
)

const defaultHeartbeatInterval = 15 * time.Second

// Client drives the multiplex protocol: Call may be invoked concurrently
// from many goroutines, each getting its own tag and blocking only for its
// own response. One background goroutine owns all reads off the connection
// (readers must be single per connection to parse frame boundaries,
// matching the teacher's handleConn) and dispatches each response to the
// caller awaiting its tag; a second background goroutine emits periodic
// heartbeat frames so idle connections aren't mistaken for dead ones.
type Client[Req, Res any] struct {
	conn  transport.Conn
	codec codec.Codec
	slab  *slab[Res]

	writeMu sync.Mutex

	cancel context.CancelFunc
	done   chan struct{}
}

// NewClient wraps an already-dialed connection in the multiplex protocol
// and starts its background receive and heartbeat loops. ctx bounds the
// lifetime of those loops; cancelling it (or calling Close) tears the
// client down and fails every outstanding call.
func NewClient[Req, Res any](ctx context.Context, conn transport.Conn, c codec.Codec) *Client[Req, Res] {
	loopCtx, cancel := context.WithCancel(ctx)
	client := &Client[Req, Res]{
		conn:   conn,
		codec:  c,
		slab:   newSlab[Res](),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go client.recvLoop()
	go client.heartbeatLoop(loopCtx)
	// Closing conn once ctx is done unblocks recvLoop, which then fails
	// every outstanding call.
	context.AfterFunc(ctx, func() { conn.Close() })
	return client
}

func (c *Client[Req, Res]) Ready(ctx context.Context) error {
	return ctx.Err()
}

// Call sends req under a fresh tag and blocks until the matching response
// arrives, the connection fails, or ctx is done.
func (c *Client[Req, Res]) Call(ctx context.Context, req Req) (Res, error) {
	var zero Res
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	tag, e := c.slab.alloc()

	body, err := c.codec.Encode(req)
	if err != nil {
		c.slab.take(tag)
		return zero, fmt.Errorf("encode request: %w", err)
	}

	header := protocol.Header{
		CodecType: byte(c.codec.Type()),
		MsgType:   protocol.MsgTypeRequest,
		Seq:       uint32(tag),
		BodyLen:   uint32(len(body)),
	}

	c.writeMu.Lock()
	writeErr := protocol.Encode(c.conn, &header, body)
	c.writeMu.Unlock()
	if writeErr != nil {
		c.slab.take(tag)
		return zero, fmt.Errorf("%w: %v", rpcerr.ErrTransport, writeErr)
	}

	select {
	case r := <-e.respCh:
		return r.value, r.err
	case <-ctx.Done():
		c.slab.take(tag)
		return zero, ctx.Err()
	case <-c.done:
		return zero, fmt.Errorf("%w: client closed", rpcerr.ErrTransport)
	}
}

func (c *Client[Req, Res]) recvLoop() {
	defer close(c.done)
	for {
		header, body, err := protocol.Decode(c.conn)
		if err != nil {
			c.slab.failAll(fmt.Errorf("%w: %v", rpcerr.ErrTransport, err))
			return
		}
		if header.MsgType == protocol.MsgTypeHeartbeat {
			continue
		}

		tag := uint64(header.Seq)
		e, ok := c.slab.take(tag)
		if !ok {
			continue
		}

		if header.MsgType == protocol.MsgTypeError {
			e.respCh <- callResult[Res]{err: fmt.Errorf("remote call failed: %s", string(body))}
			continue
		}

		var res Res
		if err := c.codec.Decode(body, &res); err != nil {
			e.respCh <- callResult[Res]{err: fmt.Errorf("%w: %v", rpcerr.ErrDecode, err)}
			continue
		}
		e.respCh <- callResult[Res]{value: res}
	}
}

func (c *Client[Req, Res]) heartbeatLoop(ctx context.Context) {
	ticker := time.NewTicker(defaultHeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			header := protocol.Header{MsgType: protocol.MsgTypeHeartbeat}
			c.writeMu.Lock()
			_ = protocol.Encode(c.conn, &header, nil)
			c.writeMu.Unlock()
		case <-ctx.Done():
			return
		}
	}
}

// Close cancels the background loops and closes the underlying connection.
func (c *Client[Req, Res]) Close() error {
	c.cancel()
	return c.conn.Close()
}
