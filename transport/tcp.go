package transport

import (
	"context"
	"fmt"
	"net"
	"sync"

	"minirpc/rpcerr"
)

// TCPBinder implements Binder over plain TCP sockets. It is the adapted
// form of the teacher's ad hoc net.Listen/net.Dial calls in
// server.Server.Serve and client.Client.getTransport, lifted out of those
// call sites into a reusable concrete transport per spec §6.
type TCPBinder struct{}

func (TCPBinder) Bind(ctx context.Context, address string) (Acceptor, error) {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", address)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", rpcerr.ErrTransport, err)
	}
	return &tcpAcceptor{ln: ln}, nil
}

func (TCPBinder) Dial(ctx context.Context, address string) (Conn, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", rpcerr.ErrTransport, err)
	}
	return conn, nil
}

type tcpAcceptor struct {
	ln        net.Listener
	closeOnce sync.Once
}

// Accept races the listener's blocking Accept against ctx, since
// net.Listener has no context-aware Accept. Closing the listener is what
// unblocks the background Accept call on cancellation.
func (a *tcpAcceptor) Accept(ctx context.Context) (Conn, error) {
	type result struct {
		conn net.Conn
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		conn, err := a.ln.Accept()
		ch <- result{conn, err}
	}()
	select {
	case r := <-ch:
		if r.err != nil {
			return nil, fmt.Errorf("%w: %v", rpcerr.ErrTransport, r.err)
		}
		return r.conn, nil
	case <-ctx.Done():
		_ = a.Close()
		return nil, ctx.Err()
	}
}

// Addr reports the listener's bound address, useful after binding to
// address "host:0" to discover the OS-assigned port.
func (a *tcpAcceptor) Addr() string {
	return a.ln.Addr().String()
}

func (a *tcpAcceptor) Close() error {
	var err error
	a.closeOnce.Do(func() { err = a.ln.Close() })
	return err
}
