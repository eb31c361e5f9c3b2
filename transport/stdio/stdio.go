// Package stdio wires the engine to a process's standard streams, or to a
// spawned child process's streams, matching spec §4.8's requirement that a
// stream bridge need not involve a socket at all. Grounded in the teacher's
// Conn-shaped transport story, generalized to os.Stdin/os.Stdout and to
// exec.Cmd pipes.
package stdio

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"

	"minirpc/rpcerr"
	"minirpc/transport"
)

// conn joins an independent reader and writer into one transport.Conn.
type conn struct {
	r io.ReadCloser
	w io.WriteCloser
}

func (c *conn) Read(p []byte) (int, error)  { return c.r.Read(p) }
func (c *conn) Write(p []byte) (int, error) { return c.w.Write(p) }
func (c *conn) Close() error {
	rerr := c.r.Close()
	werr := c.w.Close()
	if rerr != nil {
		return rerr
	}
	return werr
}

// ServerAcceptor hands out exactly one connection, bound to the current
// process's stdin/stdout. A second Accept call blocks until closed, since a
// process has only one stdio pair to offer.
type ServerAcceptor struct {
	once   sync.Once
	served chan transport.Conn
	closed chan struct{}
}

// NewServerAcceptor wraps the current process's stdin/stdout as a
// one-shot transport.Acceptor.
func NewServerAcceptor() *ServerAcceptor {
	return &ServerAcceptor{
		served: make(chan transport.Conn, 1),
		closed: make(chan struct{}),
	}
}

func (a *ServerAcceptor) Accept(ctx context.Context) (transport.Conn, error) {
	a.once.Do(func() {
		a.served <- &conn{r: os.Stdin, w: os.Stdout}
	})
	select {
	case c, ok := <-a.served:
		if !ok {
			return nil, fmt.Errorf("%w: stdio acceptor exhausted", rpcerr.ErrTransport)
		}
		return c, nil
	case <-a.closed:
		return nil, fmt.Errorf("%w: stdio acceptor closed", rpcerr.ErrTransport)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (a *ServerAcceptor) Close() error {
	select {
	case <-a.closed:
	default:
		close(a.closed)
	}
	return nil
}

// DialChild spawns a child process and wires the returned transport.Conn to
// its stdin/stdout, so the engine can speak its wire protocol over a pipe to
// a subprocess instead of a socket.
func DialChild(ctx context.Context, name string, args ...string) (transport.Conn, *exec.Cmd, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", rpcerr.ErrTransport, err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", rpcerr.ErrTransport, err)
	}
	if err := cmd.Start(); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", rpcerr.ErrTransport, err)
	}
	return &conn{r: stdout, w: stdin}, cmd, nil
}
