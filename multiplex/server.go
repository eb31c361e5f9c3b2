// Package multiplex implements the tag-correlated request/response protocol
// over a single connection: many requests may be outstanding at once, each
// tagged with a numeric identifier the server echoes back on its matching
// response so out-of-order completion doesn't confuse the caller. It is the
// adapted, codec-agnostic descendant of the teacher's Header.Seq-based
// client.Client (seq counter, pending map, and the per-connection
// heartbeat loop that previously lived in transport.ClientTransport).
package multiplex

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"minirpc/codec"
	"minirpc/protocol"
	"minirpc/rpcerr"
	"minirpc/service"
	"minirpc/transport"
)

// Serve drives one connection under the multiplex protocol: a single
// goroutine reads frames sequentially off conn (reads must stay ordered to
// parse frame boundaries), but each decoded request is dispatched to its
// own goroutine for concurrent processing against svc — directly adapted
// from the teacher's handleConn/handleRequest split, generalized from its
// RPCMessage-specific reflection dispatch to the generic Service contract.
// A per-connection write mutex, shared across every request goroutine,
// keeps concurrent responses from interleaving their frames on the wire.
func Serve[Req, Res any](ctx context.Context, conn transport.Conn, svc service.Service[service.Request[Req], Res], c codec.Codec) error {
	var writeMu sync.Mutex
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		header, body, err := protocol.Decode(conn)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("%w: %v", rpcerr.ErrProtocol, err)
		}
		if header.MsgType == protocol.MsgTypeHeartbeat {
			continue
		}

		wg.Add(1)
		go func(header *protocol.Header, body []byte) {
			defer wg.Done()
			handleRequest(ctx, conn, &writeMu, svc, c, header, body)
		}(header, body)
	}
}

func handleRequest[Req, Res any](
	ctx context.Context,
	conn transport.Conn,
	writeMu *sync.Mutex,
	svc service.Service[service.Request[Req], Res],
	c codec.Codec,
	header *protocol.Header,
	body []byte,
) {
	var req Req
	if err := c.Decode(body, &req); err != nil {
		writeErrorFrame(conn, writeMu, header.Seq, fmt.Errorf("%w: %v", rpcerr.ErrDecode, err))
		return
	}

	if err := svc.Ready(ctx); err != nil {
		writeErrorFrame(conn, writeMu, header.Seq, err)
		return
	}

	res, err := svc.Call(ctx, service.Request[Req]{Ctx: ctx, Value: req})
	if err != nil {
		writeErrorFrame(conn, writeMu, header.Seq, err)
		return
	}

	encoded, err := c.Encode(res)
	if err != nil {
		writeErrorFrame(conn, writeMu, header.Seq, fmt.Errorf("encode response: %w", err))
		return
	}

	replyHeader := protocol.Header{
		CodecType: byte(c.Type()),
		MsgType:   protocol.MsgTypeResponse,
		Seq:       header.Seq,
		BodyLen:   uint32(len(encoded)),
	}
	writeMu.Lock()
	defer writeMu.Unlock()
	_ = protocol.Encode(conn, &replyHeader, encoded)
}

func writeErrorFrame(conn transport.Conn, writeMu *sync.Mutex, seq uint32, callErr error) {
	header := protocol.Header{MsgType: protocol.MsgTypeError, Seq: seq, BodyLen: uint32(len(callErr.Error()))}
	writeMu.Lock()
	defer writeMu.Unlock()
	_ = protocol.Encode(conn, &header, []byte(callErr.Error()))
}
