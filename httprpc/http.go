// Package httprpc adapts an HTTP server onto the routing/service core: each
// inbound request is decoded into a typed value, dispatched through a
// router.Router keyed by HTTP method and path, and the typed result is
// encoded back onto the http.ResponseWriter. This is the HTTP-facing
// counterpart to the original system's method-keyed router, reimplemented
// as a thin net/http.Handler rather than a bespoke HTTP server loop.
package httprpc

import (
	"encoding/json"
	"errors"
	"net/http"

	"minirpc/router"
	"minirpc/rpcerr"
)

// MethodPath prefixes path with the HTTP method so method and path are
// routed together — "GET /users/:id" and "POST /users/:id" are distinct
// routes even though they share a path pattern.
func MethodPath(method, path string) string {
	return method + " " + path
}

// Decoder builds a Req value from the inbound *http.Request.
type Decoder[Req any] func(r *http.Request) (Req, error)

// Encoder writes res (or, if err is non-nil, the failure) to w.
type Encoder[Res any] func(w http.ResponseWriter, res Res, err error)

// Handler implements net/http.Handler by routing every request through a
// router.Router. K is the router's key type, usually path parameters.
type Handler[K, Req, Res any] struct {
	Router  *router.Router[K, Req, Res]
	Decode  Decoder[Req]
	Encode  Encoder[Res]
}

func (h *Handler[K, Req, Res]) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var zero Res

	req, err := h.Decode(r)
	if err != nil {
		h.Encode(w, zero, err)
		return
	}

	res, err := h.Router.Call(r.Context(), MethodPath(r.Method, r.URL.Path), req)
	h.Encode(w, res, err)
}

// JSONDecoder builds a Decoder that unmarshals the request body as JSON
// into Req.
func JSONDecoder[Req any]() Decoder[Req] {
	return func(r *http.Request) (Req, error) {
		var req Req
		if r.Body == nil || r.Body == http.NoBody {
			return req, nil
		}
		defer r.Body.Close()
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return req, err
		}
		return req, nil
	}
}

// JSONEncoder builds an Encoder that writes res (or the error) as JSON,
// mapping rpcerr sentinels to HTTP status codes.
func JSONEncoder[Res any]() Encoder[Res] {
	return func(w http.ResponseWriter, res Res, err error) {
		w.Header().Set("Content-Type", "application/json")
		if err != nil {
			w.WriteHeader(statusFor(err))
			json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
			return
		}
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(res)
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, rpcerr.ErrRouteMiss):
		return http.StatusNotFound
	case errors.Is(err, rpcerr.ErrDecode):
		return http.StatusBadRequest
	case errors.Is(err, rpcerr.ErrCancelled):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
