package stdio

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestServerAcceptorSingleUse(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	a := NewServerAcceptor()
	conn, err := a.Accept(ctx)
	require.NoError(t, err)
	require.NotNil(t, conn)
}

func TestServerAcceptorCloseUnblocks(t *testing.T) {
	a := NewServerAcceptor()
	_, err := a.Accept(context.Background())
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := a.Accept(context.Background())
		done <- err
	}()

	require.NoError(t, a.Close())
	select {
	case err := <-done:
		require.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("Accept did not unblock after Close")
	}
}

func TestDialChildEcho(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	conn, cmd, err := DialChild(ctx, "cat")
	require.NoError(t, err)
	defer conn.Close()
	defer cmd.Wait()

	_, err = conn.Write([]byte("ping"))
	require.NoError(t, err)

	buf := make([]byte, 4)
	_, err = conn.Read(buf)
	require.NoError(t, err)
	require.Equal(t, "ping", string(buf))
}
