// Package pipeline implements the strict-FIFO request/response protocol
// over a single connection: the client may have at most the requests it has
// sent outstanding, the server answers them in the order it received them,
// and correlation is purely positional — no tag travels on the wire. It is
// the generalized, codec-agnostic descendant of the teacher's
// protocol.Header/server.handleConn pair, restricted to one request in
// flight per connection at a time rather than the teacher's per-request
// goroutine fan-out (that concurrent-dispatch shape belongs to multiplex).
package pipeline

import (
	"fmt"
	"io"

	"minirpc/codec"
	"minirpc/protocol"
	"minirpc/rpcerr"
)

// readFrame reads one request/response frame off r, returning its header
// (which records the codec type the body was encoded with) and its body.
func readFrame(r io.Reader) (*protocol.Header, []byte, error) {
	header, body, err := protocol.Decode(r)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", rpcerr.ErrProtocol, err)
	}
	return header, body, nil
}

func writeFrame(w io.Writer, msgType protocol.MsgType, codecType byte, seq uint32, body []byte) error {
	header := protocol.Header{
		CodecType: codecType,
		MsgType:   msgType,
		Seq:       seq,
		BodyLen:   uint32(len(body)),
	}
	if err := protocol.Encode(w, &header, body); err != nil {
		return fmt.Errorf("%w: %v", rpcerr.ErrTransport, err)
	}
	return nil
}

func decodeBody[T any](c codec.Codec, body []byte) (T, error) {
	var v T
	if err := c.Decode(body, &v); err != nil {
		var zero T
		return zero, fmt.Errorf("%w: %v", rpcerr.ErrDecode, err)
	}
	return v, nil
}
