package router

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"minirpc/service"
)

type params map[string]string

func byParams(p map[string]string) (params, error) {
	return params(p), nil
}

func handler(fn func(ctx context.Context, req service.Request[Routed[params, string]]) (string, error)) service.Service[service.Request[Routed[params, string]], string] {
	return service.AlwaysReady[service.Request[Routed[params, string]], string]{Fn: fn}
}

func echoKey(_ context.Context, req service.Request[Routed[params, string]]) (string, error) {
	return req.Value.Key["id"], nil
}

func TestRouterStaticAndParamDispatch(t *testing.T) {
	r := New[params, string, string]()

	require.NoError(t, r.Insert("/health", byParams, handler(func(ctx context.Context, req service.Request[Routed[params, string]]) (string, error) {
		return "ok", nil
	})))
	require.NoError(t, r.Insert("/users/:id", byParams, handler(echoKey)))

	res, err := r.Call(context.Background(), "/health", "")
	require.NoError(t, err)
	require.Equal(t, "ok", res)

	res, err = r.Call(context.Background(), "/users/42", "")
	require.NoError(t, err)
	require.Equal(t, "42", res)
}

func TestRouterCatchall(t *testing.T) {
	r := New[params, string, string]()
	require.NoError(t, r.Insert("/files/*path", byParams, handler(func(ctx context.Context, req service.Request[Routed[params, string]]) (string, error) {
		return req.Value.Key["path"], nil
	})))

	res, err := r.Call(context.Background(), "/files/a/b/c.txt", "")
	require.NoError(t, err)
	require.Equal(t, "a/b/c.txt", res)
}

func TestRouterMissReturnsRouteMiss(t *testing.T) {
	r := New[params, string, string]()
	_, err := r.Call(context.Background(), "/nowhere", "")
	require.Error(t, err)
}

func TestRouterStaticPreferredOverParam(t *testing.T) {
	r := New[params, string, string]()
	require.NoError(t, r.Insert("/users/:id", byParams, handler(echoKey)))
	require.NoError(t, r.Insert("/users/me", byParams, handler(func(ctx context.Context, req service.Request[Routed[params, string]]) (string, error) {
		return "static-me", nil
	})))

	res, err := r.Call(context.Background(), "/users/me", "")
	require.NoError(t, err)
	require.Equal(t, "static-me", res)

	res, err = r.Call(context.Background(), "/users/7", "")
	require.NoError(t, err)
	require.Equal(t, "7", res)
}

func TestRouterDuplicateExactPatternErrors(t *testing.T) {
	r := New[params, string, string]()
	require.NoError(t, r.Insert("/a", byParams, handler(echoKey)))
	err := r.Insert("/a", byParams, handler(echoKey))
	require.Error(t, err)
	var insertErr *InsertError
	require.ErrorAs(t, err, &insertErr)
}

func TestRouterReadySucceedsWhenRoutesReady(t *testing.T) {
	r := New[params, string, string]()
	require.NoError(t, r.Insert("/slow", byParams, service.AlwaysReady[service.Request[Routed[params, string]], string]{
		Fn: func(ctx context.Context, req service.Request[Routed[params, string]]) (string, error) { return "", nil },
	}))

	require.NoError(t, r.Ready(context.Background()))
}
