// Package rpcerr defines the sentinel error kinds shared across the engine.
//
// Transports, protocol drivers, codecs and the router wrap their failures in
// these sentinels (with fmt.Errorf's %w verb, or an Unwrap method) so callers
// can use errors.Is regardless of which transport, codec, or protocol
// produced the failure. Transport I/O, decode, protocol, ready-rejection,
// route-miss, route-insert-conflict, and cancelled each get one sentinel
// here; errors returned by a user handler are passed through unwrapped.
// No engine code path returns ErrCancelled or ErrNotReady: a call ended by
// cancellation returns its context's own error.
package rpcerr

import "errors"

var (
	// ErrTransport marks a fatal connection-level I/O failure.
	ErrTransport = errors.New("rpc: transport error")
	// ErrDecode marks a codec failure to decode a frame's body. The frame
	// boundary is intact, so the call fails but the connection stays in use.
	ErrDecode = errors.New("rpc: decode error")
	// ErrProtocol marks a framing-level failure: a frame header that cannot
	// be read or validated, or a pipeline response whose seq does not match
	// its request. A multiplex response with an unknown tag is discarded
	// without an error and does not end the connection.
	ErrProtocol = errors.New("rpc: protocol error")
	// ErrRouteMiss marks a route or key lookup miss in the router.
	ErrRouteMiss = errors.New("rpc: route not found")
	// ErrRouteConflict marks a duplicate or ambiguous pattern at insert time.
	ErrRouteConflict = errors.New("rpc: conflicting route pattern")
	// ErrCancelled marks a future/call resolved because its scope was cancelled.
	ErrCancelled = errors.New("rpc: cancelled")
	// ErrNotReady marks a Service rejecting Ready() without being cancelled.
	ErrNotReady = errors.New("rpc: service not ready")
	// ErrDroppedResponse marks a ChannelFactory responder dropped without a reply.
	ErrDroppedResponse = errors.New("rpc: response dropped without a reply")
)
