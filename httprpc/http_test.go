package httprpc

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"minirpc/router"
	"minirpc/service"
)

type params map[string]string

type addRequest struct {
	A int `json:"a"`
	B int `json:"b"`
}

type addResponse struct {
	Sum int `json:"sum"`
}

func TestHandlerDispatchesByMethodAndPath(t *testing.T) {
	r := router.New[params, addRequest, addResponse]()
	err := r.Insert(MethodPath(http.MethodPost, "/add"), func(p map[string]string) (params, error) {
		return params(p), nil
	}, service.AlwaysReady[service.Request[router.Routed[params, addRequest]], addResponse]{
		Fn: func(ctx context.Context, req service.Request[router.Routed[params, addRequest]]) (addResponse, error) {
			return addResponse{Sum: req.Value.Value.A + req.Value.Value.B}, nil
		},
	})
	require.NoError(t, err)

	handler := &Handler[params, addRequest, addResponse]{
		Router: r,
		Decode: JSONDecoder[addRequest](),
		Encode: JSONEncoder[addResponse](),
	}

	req := httptest.NewRequest(http.MethodPost, "/add", strings.NewReader(`{"a":2,"b":3}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"sum":5}`, rec.Body.String())
}

func TestHandlerMissingRouteReturns404(t *testing.T) {
	r := router.New[params, addRequest, addResponse]()
	handler := &Handler[params, addRequest, addResponse]{
		Router: r,
		Decode: JSONDecoder[addRequest](),
		Encode: JSONEncoder[addResponse](),
	}

	req := httptest.NewRequest(http.MethodGet, "/missing", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}
