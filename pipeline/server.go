package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"

	"minirpc/codec"
	"minirpc/protocol"
	"minirpc/service"
	"minirpc/transport"
)

// Serve drives one connection under the pipeline protocol: read a request
// frame, run it to completion against svc, write the matching response
// frame, then read the next. Because requests are handled one at a time in
// the order they arrive, responses are naturally returned in the same
// order — the defining property of the pipeline protocol — at the cost of
// one slow request blocking every request behind it on the same
// connection. Heartbeat frames are skipped, matching the teacher's
// handleConn loop.
func Serve[Req, Res any](ctx context.Context, conn transport.Conn, svc service.Service[service.Request[Req], Res], c codec.Codec) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		header, body, err := readFrame(conn)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if header.MsgType == protocol.MsgTypeHeartbeat {
			continue
		}

		req, err := decodeBody[Req](c, body)
		if err != nil {
			if werr := writeErrorFrame(conn, header.Seq, err); werr != nil {
				return werr
			}
			continue
		}

		if err := svc.Ready(ctx); err != nil {
			return fmt.Errorf("service not ready: %w", err)
		}

		res, callErr := svc.Call(ctx, service.Request[Req]{Ctx: ctx, Value: req})
		if callErr != nil {
			if werr := writeErrorFrame(conn, header.Seq, callErr); werr != nil {
				return werr
			}
			continue
		}

		encoded, err := c.Encode(res)
		if err != nil {
			return fmt.Errorf("encode response: %w", err)
		}
		if err := writeFrame(conn, protocol.MsgTypeResponse, byte(c.Type()), header.Seq, encoded); err != nil {
			return err
		}
	}
}

// writeErrorFrame reports a failed call via a dedicated MsgTypeError frame,
// whose body is the plain UTF-8 error text — it carries no Res-shaped
// payload, so the client can tell a failure from a genuine response before
// ever invoking the codec.
func writeErrorFrame(conn transport.Conn, seq uint32, callErr error) error {
	return writeFrame(conn, protocol.MsgTypeError, 0, seq, []byte(callErr.Error()))
}
