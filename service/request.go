package service

import "context"

// Request is the envelope a user handler observes: a value paired with a
// context carrying the cancellation token and lifecycle of the connection's
// enclosing scope (see package scope). Routed flows wrap Value further into
// a router.Routed before it reaches the handler.
type Request[T any] struct {
	Ctx   context.Context
	Value T
}

// RequestLayer injects ctx into every inbound value, producing the Request
// envelope a Service[Request[Req], Res] handler expects. This is the Go
// analogue of spec §4.1's RequestService layer.
func RequestLayer[Req, Res any](ctx context.Context) Layer[Request[Req], Res, Req, Res] {
	return func(inner Service[Request[Req], Res]) Service[Req, Res] {
		return &requestService[Req, Res]{ctx: ctx, inner: inner}
	}
}

type requestService[Req, Res any] struct {
	ctx   context.Context
	inner Service[Request[Req], Res]
}

func (s *requestService[Req, Res]) Ready(ctx context.Context) error {
	return s.inner.Ready(ctx)
}

func (s *requestService[Req, Res]) Call(ctx context.Context, req Req) (Res, error) {
	return s.inner.Call(ctx, Request[Req]{Ctx: s.ctx, Value: req})
}
