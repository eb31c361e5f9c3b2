package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"minirpc/codec"
	"minirpc/service"
	"minirpc/transport/local"
)

type echoRequest struct {
	Text string
}

type echoResponse struct {
	Text string
}

func echoFactory() service.Factory[echoRequest, echoResponse] {
	return service.FuncFactory[echoRequest, echoResponse](func() (service.Service[service.Request[echoRequest], echoResponse], error) {
		return service.AlwaysReady[service.Request[echoRequest], echoResponse]{
			Fn: func(ctx context.Context, req service.Request[echoRequest]) (echoResponse, error) {
				return echoResponse{Text: req.Value.Text}, nil
			},
		}, nil
	})
}

func TestPipelineEchoInOrder(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	binder := local.NewBinder(local.Unbounded)
	acceptor, err := binder.Bind(ctx, "echo")
	require.NoError(t, err)
	defer acceptor.Close()

	factory := echoFactory()

	serverErr := make(chan error, 1)
	go func() {
		conn, err := acceptor.Accept(ctx)
		if err != nil {
			serverErr <- err
			return
		}
		svc, err := factory.New()
		if err != nil {
			serverErr <- err
			return
		}
		serverErr <- Serve[echoRequest, echoResponse](ctx, conn, svc, &codec.JSONCodec{})
	}()

	conn, err := binder.Dial(ctx, "echo")
	require.NoError(t, err)
	client := NewClient[echoRequest, echoResponse](conn, &codec.JSONCodec{})
	defer client.Close()

	for i := 0; i < 5; i++ {
		res, err := client.Call(ctx, echoRequest{Text: "hello"})
		require.NoError(t, err)
		require.Equal(t, "hello", res.Text)
	}
}

func TestPipelineCallError(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	binder := local.NewBinder(local.Unbounded)
	acceptor, err := binder.Bind(ctx, "fail")
	require.NoError(t, err)
	defer acceptor.Close()

	factory := service.FuncFactory[echoRequest, echoResponse](func() (service.Service[service.Request[echoRequest], echoResponse], error) {
		return service.AlwaysReady[service.Request[echoRequest], echoResponse]{
			Fn: func(ctx context.Context, req service.Request[echoRequest]) (echoResponse, error) {
				return echoResponse{}, context.DeadlineExceeded
			},
		}, nil
	})

	go func() {
		conn, err := acceptor.Accept(ctx)
		require.NoError(t, err)
		svc, err := factory.New()
		require.NoError(t, err)
		_ = Serve[echoRequest, echoResponse](ctx, conn, svc, &codec.JSONCodec{})
	}()

	conn, err := binder.Dial(ctx, "fail")
	require.NoError(t, err)
	client := NewClient[echoRequest, echoResponse](conn, &codec.JSONCodec{})
	defer client.Close()

	_, err = client.Call(ctx, echoRequest{Text: "boom"})
	require.Error(t, err)
}
