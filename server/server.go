// Package server implements the RPC server with service registration, middleware chain,
// concurrent request processing, and graceful shutdown.
//
// Request processing pipeline:
//
//	Accept conn → multiplex.Serve (one read loop, one goroutine per request)
//	  → Codec.Decode → Middleware Chain → businessHandler (reflect.Call) → Codec.Encode → write response
//
// The accept loop, per-connection framing, and request correlation are no
// longer hand-rolled here — they live in scope.Server and multiplex.Serve,
// which this package drives with a Service built from the middleware chain
// and the reflection-based method dispatcher below.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"minirpc/codec"
	"minirpc/message"
	"minirpc/middleware"
	"minirpc/multiplex"
	"minirpc/registry"
	"minirpc/scope"
	"minirpc/service"
	"minirpc/transport"
)

// Server is the RPC server that registers services and handles incoming requests.
type Server struct {
	serviceMap    map[string]*reflectService // Registered services: "Arith" → *reflectService
	middlewares   []middleware.Middleware // Registered middlewares (applied in order)
	handler       middleware.HandlerFunc  // The final handler chain: middleware(middleware(...(businessHandler)))
	registry      registry.Registry       // Service registry (etcd), nil if not using discovery
	advertiseAddr string                  // Address registered in etcd (e.g., "127.0.0.1:8080")
	// Different from listen address (":8080") because etcd needs a routable IP
	codecType CodecType
	logger    *zap.Logger

	cancel context.CancelFunc
	done   chan struct{}
	runErr error

	boundMu sync.Mutex
	bound   chan struct{}
	addr    string
}

// CodecType selects the wire codec the server negotiates per connection.
type CodecType = codec.CodecType

// NewServer creates a new RPC server with an empty service map.
func NewServer() *Server {
	return &Server{
		serviceMap: make(map[string]*reflectService),
		codecType:  codec.CodecTypeJSON,
		logger:     zap.NewNop(),
		bound:      make(chan struct{}),
	}
}

// Addr blocks until the server has bound its listening address (or ctx is
// done) and returns it — useful when Serve was given an OS-assigned port
// ("host:0") and the caller needs to learn which port was chosen.
func (svr *Server) Addr(ctx context.Context) (string, error) {
	select {
	case <-svr.bound:
		svr.boundMu.Lock()
		defer svr.boundMu.Unlock()
		return svr.addr, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// SetLogger overrides the server's structured logger (a no-op logger by default).
func (svr *Server) SetLogger(logger *zap.Logger) { svr.logger = logger }

// SetCodec overrides the wire codec used for request/response bodies.
func (svr *Server) SetCodec(t CodecType) { svr.codecType = t }

// Register registers a service receiver (e.g., &Arith{}) with the server.
// The struct's exported methods that match the RPC signature will be available for remote calls.
func (svr *Server) Register(rcvr any) error {
	svc, err := NewService(rcvr)
	if err != nil {
		return err
	}
	svr.serviceMap[svc.name] = svc
	return nil
}

// Use registers a middleware. Middlewares are applied in the order they are added.
func (svr *Server) Use(mw middleware.Middleware) {
	svr.middlewares = append(svr.middlewares, mw)
}

// Serve starts the server: binds address over binder, optionally registers
// with etcd, and drives every accepted connection under the multiplex
// protocol until ctx is cancelled or Shutdown is called.
//
// Parameters:
//   - advertiseAddr: the address to register in etcd (e.g., "127.0.0.1:8080").
//     If empty, the address the binder actually bound to is advertised
//     instead — the only option that works with an OS-assigned port
//     ("host:0"), since the real port isn't known until after Bind returns.
//   - reg: the registry implementation. Pass nil to skip service discovery.
func (svr *Server) Serve(ctx context.Context, binder transport.Binder, address string, advertiseAddr string, reg registry.Registry) error {
	svr.handler = middleware.Chain(svr.middlewares...)(svr.businessHandler)
	svr.registry = reg

	runCtx, cancel := context.WithCancel(ctx)
	svr.cancel = cancel
	svr.done = make(chan struct{})

	bizService := service.AlwaysReady[service.Request[message.RPCMessage], message.RPCMessage]{
		Fn: func(ctx context.Context, req service.Request[message.RPCMessage]) (message.RPCMessage, error) {
			resp := svr.handler(ctx, &req.Value)
			return *resp, nil
		},
	}
	factory := service.FuncFactory[message.RPCMessage, message.RPCMessage](
		func() (service.Service[service.Request[message.RPCMessage], message.RPCMessage], error) {
			return bizService, nil
		},
	)

	c := codec.GetCodec(svr.codecType)
	srv := &scope.Server[message.RPCMessage, message.RPCMessage]{
		Binder:  binder,
		Factory: factory,
		Logger:  svr.logger,
		Drive: func(ctx context.Context, conn transport.Conn, svc service.Service[service.Request[message.RPCMessage], message.RPCMessage]) error {
			return multiplex.Serve[message.RPCMessage, message.RPCMessage](ctx, conn, svc, c)
		},
		OnBound: func(addr string) {
			svr.boundMu.Lock()
			svr.addr = addr
			svr.boundMu.Unlock()

			if reg != nil {
				registered := advertiseAddr
				if registered == "" {
					registered = addr
				}
				svr.advertiseAddr = registered
				for serviceName := range svr.serviceMap {
					if err := reg.Register(runCtx, serviceName, registry.ServiceInstance{
						Addr: registered,
					}, 10); err != nil { // TTL = 10 seconds, KeepAlive renews automatically
						svr.logger.Warn("failed to register service", zap.String("service", serviceName), zap.Error(err))
					}
				}
			}

			close(svr.bound)
		},
	}

	go func() {
		defer close(svr.done)
		svr.runErr = srv.Run(runCtx, address)
	}()

	return nil
}

// Shutdown performs graceful shutdown:
//  1. Deregister all services from etcd (clients stop routing to this server)
//  2. Cancel the server's scope, which stops accepting new connections and
//     tears down in-flight ones
//  3. Wait for the accept loop and every connection to finish, bounded by timeout
func (svr *Server) Shutdown(timeout time.Duration) error {
	for serviceName := range svr.serviceMap {
		if svr.registry != nil {
			svr.registry.Deregister(context.Background(), serviceName, svr.advertiseAddr)
		}
	}

	if svr.cancel != nil {
		svr.cancel()
	}

	select {
	case <-svr.done:
		return svr.runErr
	case <-time.After(timeout):
		return fmt.Errorf("timeout waiting for ongoing requests to finish")
	}
}

// businessHandler is the core handler that dispatches RPC requests to registered services.
// It is wrapped by the middleware chain and has the HandlerFunc signature.
//
// Flow: parse "Service.Method" → find service → find method → reflect.New(args) →
// json.Unmarshal(payload, args) → reflect.Call → json.Marshal(reply) → return RPCMessage
func (svr *Server) businessHandler(ctx context.Context, req *message.RPCMessage) *message.RPCMessage {
	// Parse "ServiceName.MethodName"
	split := strings.Split(req.ServiceMethod, ".")
	if len(split) != 2 {
		return &message.RPCMessage{Error: "invalid service method format"}
	}
	serviceName := split[0]
	methodName := split[1]

	// Look up the service and method in the registry
	svc, ok := svr.serviceMap[serviceName]
	if !ok {
		return &message.RPCMessage{Error: fmt.Sprintf("unknown service %q", serviceName)}
	}
	method, ok := svc.method[methodName]
	if !ok {
		return &message.RPCMessage{Error: fmt.Sprintf("unknown method %q on service %q", methodName, serviceName)}
	}

	// Create new instances of args and reply types via reflection
	argv := reflect.New(method.ArgType)     // e.g., reflect.New(Args) → *Args
	replyv := reflect.New(method.ReplyType) // e.g., reflect.New(Reply) → *Reply

	// Deserialize the request payload into the args struct
	err := json.Unmarshal(req.Payload, argv.Interface())
	if err != nil {
		return &message.RPCMessage{Error: err.Error()}
	}

	// Invoke the method via reflection: receiver.Method(args, reply)
	methodErr := svc.Call(method, argv, replyv)

	// Serialize the reply struct to JSON
	replyMessage, err := json.Marshal(replyv.Interface())
	if err != nil {
		svr.logger.Warn("failed to marshal method result", zap.Error(err))
	}

	// Build the response RPCMessage
	rpcMessage := &message.RPCMessage{
		ServiceMethod: req.ServiceMethod,
		Payload:       replyMessage,
	}
	if methodErr != nil {
		rpcMessage.Error = methodErr.Error()
	}
	return rpcMessage
}
