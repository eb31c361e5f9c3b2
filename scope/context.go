package scope

import (
	"context"

	"github.com/google/uuid"
)

type connKey struct{}

// ConnInfo carries per-connection metadata attached to every request's
// context, so handlers and middleware can observe which connection a call
// arrived on without threading a parameter through every Service.
type ConnInfo struct {
	ID         string
	RemoteAddr string
}

// WithConn returns a child context carrying info, retrievable with
// ConnFromContext. service.Request[T] deliberately carries a plain
// context.Context rather than a scope-specific type, so this attaches
// connection metadata as a context value instead.
func WithConn(ctx context.Context, info ConnInfo) context.Context {
	return context.WithValue(ctx, connKey{}, info)
}

// ConnFromContext retrieves the ConnInfo attached by WithConn, if any.
func ConnFromContext(ctx context.Context) (ConnInfo, bool) {
	info, ok := ctx.Value(connKey{}).(ConnInfo)
	return info, ok
}

// NewConnID mints a unique per-connection identifier.
func NewConnID() string {
	return uuid.NewString()
}
