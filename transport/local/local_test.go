package local

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBinderRoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	b := NewBinder(Unbounded)
	acceptor, err := b.Bind(ctx, "svc")
	require.NoError(t, err)
	defer acceptor.Close()

	serverCh := make(chan struct{})
	go func() {
		defer close(serverCh)
		conn, err := acceptor.Accept(ctx)
		require.NoError(t, err)
		buf := make([]byte, 5)
		_, err = conn.Read(buf)
		require.NoError(t, err)
		require.Equal(t, "hello", string(buf))
	}()

	client, err := b.Dial(ctx, "svc")
	require.NoError(t, err)
	_, err = client.Write([]byte("hello"))
	require.NoError(t, err)

	<-serverCh
}

func TestBinderDialUnknownAddress(t *testing.T) {
	b := NewBinder(Unbounded)
	_, err := b.Dial(context.Background(), "missing")
	require.Error(t, err)
}

func TestBinderDuplicateBind(t *testing.T) {
	ctx := context.Background()
	b := NewBinder(Unbounded)
	_, err := b.Bind(ctx, "svc")
	require.NoError(t, err)
	_, err = b.Bind(ctx, "svc")
	require.Error(t, err)
}
