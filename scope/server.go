package scope

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"minirpc/service"
	"minirpc/transport"
)

// ConnServer drives one accepted connection to completion: it owns framing,
// request correlation, and dispatch against a freshly minted Service for
// that connection. pipeline.Serve and multiplex.Serve take one more
// argument, the codec; a closure that binds it gives either one this shape,
// so Server is generic over which protocol drives a connection.
type ConnServer[Req, Res any] func(ctx context.Context, conn transport.Conn, svc service.Service[service.Request[Req], Res]) error

// Server runs the accept loop common to every protocol: bind, accept
// connections under a Manager-supervised scope, mint one Service per
// connection via Factory, and hand the connection to Drive. This is the
// adapted, protocol-agnostic form of the teacher's Server.Serve/handleConn,
// which inlined TCP accept, a WaitGroup, and a reflection dispatcher
// together in one type.
type Server[Req, Res any] struct {
	Binder  transport.Binder
	Factory service.Factory[Req, Res]
	Drive   ConnServer[Req, Res]
	Logger  *zap.Logger

	// OnBound, if set, is called once with the acceptor's actual bound
	// address right after a successful Bind — useful when address asks
	// for an OS-assigned port ("host:0") and the caller needs to learn
	// which port was chosen.
	OnBound func(addr string)
}

// Run binds address and serves connections until ctx is cancelled. Accept
// errors other than cancellation are logged and retried with backoff, so
// Run does not return because of them. It returns nil on orderly
// cancellation.
func (s *Server[Req, Res]) Run(ctx context.Context, address string) error {
	logger := s.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	acceptor, err := s.Binder.Bind(ctx, address)
	if err != nil {
		return fmt.Errorf("bind %s: %w", address, err)
	}

	if s.OnBound != nil {
		if aa, ok := acceptor.(transport.AddrAcceptor); ok {
			s.OnBound(aa.Addr())
		}
	}

	mgr := NewManager(ctx)
	mgr.AddService(func(ctx context.Context) error {
		defer acceptor.Close()
		var retryDelay time.Duration
		for {
			conn, err := acceptor.Accept(ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
					return nil
				}

				// Per-item accept failures (e.g. a transient EMFILE) don't
				// end the loop; back off like net/http.Server.Serve does,
				// so a persistently failing listener doesn't spin.
				if retryDelay == 0 {
					retryDelay = 5 * time.Millisecond
				} else {
					retryDelay *= 2
				}
				if retryDelay > time.Second {
					retryDelay = time.Second
				}
				logger.Warn("accept error, retrying", zap.Error(err), zap.Duration("retry_in", retryDelay))
				select {
				case <-time.After(retryDelay):
				case <-ctx.Done():
					return nil
				}
				continue
			}
			retryDelay = 0

			svc, err := s.Factory.New()
			if err != nil {
				logger.Error("service factory failed", zap.Error(err))
				conn.Close()
				continue
			}

			connID := NewConnID()
			mgr.AddService(func(ctx context.Context) error {
				defer conn.Close()
				connCtx := WithConn(ctx, ConnInfo{ID: connID})

				// The protocol driver blocks inside a synchronous Decode
				// with no context awareness of its own; closing conn is
				// what unblocks it once this connection's scope ends.
				watchDone := make(chan struct{})
				go func() {
					select {
					case <-connCtx.Done():
						conn.Close()
					case <-watchDone:
					}
				}()
				defer close(watchDone)

				if err := s.Drive(connCtx, conn, svc); err != nil {
					logger.Debug("connection ended", zap.String("conn_id", connID), zap.Error(err))
				}
				return nil
			})
		}
	})

	return mgr.Wait()
}
