package transport

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTCPBinderRoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var binder TCPBinder
	acceptor, err := binder.Bind(ctx, "127.0.0.1:0")
	require.NoError(t, err)
	defer acceptor.Close()

	addr := acceptor.(*tcpAcceptor).ln.Addr().String()

	serverConnCh := make(chan Conn, 1)
	go func() {
		conn, err := acceptor.Accept(ctx)
		require.NoError(t, err)
		serverConnCh <- conn
	}()

	client, err := binder.Dial(ctx, addr)
	require.NoError(t, err)
	defer client.Close()

	server := <-serverConnCh
	defer server.Close()

	_, err = client.Write([]byte("ping"))
	require.NoError(t, err)

	buf := make([]byte, 4)
	_, err = server.Read(buf)
	require.NoError(t, err)
	require.Equal(t, "ping", string(buf))
}

func TestTCPBinderAcceptCancelled(t *testing.T) {
	ctx := context.Background()
	var binder TCPBinder
	acceptor, err := binder.Bind(ctx, "127.0.0.1:0")
	require.NoError(t, err)
	defer acceptor.Close()

	cancelCtx, cancel := context.WithCancel(ctx)
	cancel()
	_, err = acceptor.Accept(cancelCtx)
	require.Error(t, err)
}
