// Package service defines the polymorphic service contract every processing
// stage in the engine satisfies: user handlers, middleware, the router, and
// the HTTP adapter all speak Service[Req, Res].
//
// Go has no non-blocking Poll primitive as ergonomic as the original
// poll_ready/Pending split, so Ready blocks until capacity is reserved, the service rejects the caller,
// or ctx is done. Reserving Ready's capacity for exactly one subsequent Call
// is the caller's responsibility — the interface can't enforce it statically,
// matching spec §4.1's contract notes.
package service

import "context"

// Service is a readiness-gated asynchronous function Req -> Res.
type Service[Req, Res any] interface {
	// Ready blocks until the service can accept exactly one Call, returns an
	// error if the service permanently or transiently refuses work, or
	// returns ctx.Err() if ctx is done first.
	Ready(ctx context.Context) error
	// Call must not be invoked without Ready returning nil immediately before.
	Call(ctx context.Context, req Req) (Res, error)
}

// Layer transforms an inner service into an outer one, the composition
// primitive behind middleware. Applying layers as a(b(inner)) makes b the
// innermost.
type Layer[ReqIn, ResIn, ReqOut, ResOut any] func(inner Service[ReqIn, ResIn]) Service[ReqOut, ResOut]

// Func is the plain function shape that AlwaysReady wraps into a Service.
type Func[Req, Res any] func(ctx context.Context, req Req) (Res, error)

// AlwaysReady wraps a Func as a Service whose Ready never blocks; it
// returns an error only when ctx is already done.
// Handlers meant to sit behind a Router should be shaped this way — see
// router.Router's head-of-line-blocking readiness contract.
type AlwaysReady[Req, Res any] struct {
	Fn Func[Req, Res]
}

func (a AlwaysReady[Req, Res]) Ready(ctx context.Context) error { return ctx.Err() }

func (a AlwaysReady[Req, Res]) Call(ctx context.Context, req Req) (Res, error) {
	return a.Fn(ctx, req)
}
