// Package router implements URL-pattern dispatch over a set of inner
// Services: it parses a registered pattern into static, ":param", and
// "*catchall" segments, matches an incoming path against that trie, and
// forwards the request — tagged with whatever key its route extracted —
// to the matching inner Service. It generalizes the teacher's flat
// "ServiceName.MethodName" string-split dispatch in server.businessHandler
// into a real path trie, grounded in the method-keyed HTTP routing the
// original system exposed.
package router

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"minirpc/rpcerr"
	"minirpc/service"
)

// Routed is the value a matched route hands to its inner Service: which
// pattern matched, the key that pattern's extractor produced, and the
// original request value.
type Routed[K, T any] struct {
	Route string
	Key   K
	Value T
}

// InsertError reports why a pattern could not be registered — most
// commonly a conflict with an already-registered pattern.
type InsertError struct {
	Route  string
	Reason string
}

func (e *InsertError) Error() string {
	return fmt.Sprintf("route %q: %s", e.Route, e.Reason)
}

// Unwrap makes errors.Is(err, rpcerr.ErrRouteConflict) true for an InsertError.
func (e *InsertError) Unwrap() error { return rpcerr.ErrRouteConflict }

// Extractor turns the path parameters captured while matching a pattern
// into the route's key type. Unkeyed routes use NoKey, whose extractor
// ignores params entirely.
type Extractor[K any] func(params map[string]string) (K, error)

// NoKey is the key type for routes that don't extract anything from their
// path — every match produces the same zero value.
type NoKey struct{}

// Unkeyed is the Extractor for routes that don't need a key.
func Unkeyed(params map[string]string) (NoKey, error) { return NoKey{}, nil }

type route[K, Req, Res any] struct {
	pattern   string
	extractor Extractor[K]
	service   service.Service[service.Request[Routed[K, Req]], Res]
}

// Router dispatches by URL path to a registered inner Service, forwarding
// each match as a Routed[K, Req] value. All registered services share one
// Req/Res shape; routes differentiate by the K value their pattern
// extracts (path parameters) plus which pattern matched.
type Router[K, Req, Res any] struct {
	mu   sync.RWMutex
	root *node[K, Req, Res]
}

// New creates an empty Router.
func New[K, Req, Res any]() *Router[K, Req, Res] {
	return &Router[K, Req, Res]{root: newNode[K, Req, Res]()}
}

// Insert registers pattern (e.g. "/users/:id/orders/*rest") against svc,
// using extractor to build the route's key from captured path parameters.
// It fails with *InsertError if pattern conflicts with an existing route —
// two ":param" segments with different names at the same position, a second
// "*catchall" at the same position, a catchall that is not the last segment,
// or re-registering the same exact pattern. A static segment and a ":param"
// may share a position; matching then prefers the static one.
func (r *Router[K, Req, Res]) Insert(pattern string, extractor Extractor[K], svc service.Service[service.Request[Routed[K, Req]], Res]) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.root.insert(splitSegments(pattern), &route[K, Req, Res]{pattern: pattern, extractor: extractor, service: svc})
}

// Ready blocks until every registered route's inner service reports ready,
// or ctx is done, or any one of them reports an error — a router is only
// as ready as its least-ready route, so a caller must not route a request
// until the whole tree can accept one. This is the head-of-line-blocking
// readiness spec requires: one perpetually-unready route holds up routing
// to every other route on the same Router.
func (r *Router[K, Req, Res]) Ready(ctx context.Context) error {
	r.mu.RLock()
	routes := r.root.collectRoutes(nil)
	r.mu.RUnlock()

	g, gctx := errgroup.WithContext(ctx)
	for _, rt := range routes {
		rt := rt
		g.Go(func() error { return rt.service.Ready(gctx) })
	}
	return g.Wait()
}

// Call matches path against the registered patterns and forwards req to
// the winning route's inner service. It returns rpcerr.ErrRouteMiss (via
// errRouteMiss's wrapping, see route_miss.go) when no pattern matches.
func (r *Router[K, Req, Res]) Call(ctx context.Context, path string, req Req) (Res, error) {
	var zero Res

	r.mu.RLock()
	rt, params, ok := r.root.match(splitSegments(path), map[string]string{})
	r.mu.RUnlock()
	if !ok {
		return zero, errRouteMiss(path)
	}

	key, err := rt.extractor(params)
	if err != nil {
		return zero, fmt.Errorf("extract route key for %q: %w", path, err)
	}

	routed := Routed[K, Req]{Route: rt.pattern, Key: key, Value: req}
	return rt.service.Call(ctx, service.Request[Routed[K, Req]]{Ctx: ctx, Value: routed})
}
