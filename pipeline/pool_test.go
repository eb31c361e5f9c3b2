package pipeline

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"minirpc/codec"
	"minirpc/transport/local"
)

func TestPooledClientServesConcurrentCalls(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	binder := local.NewBinder(local.Unbounded)
	acceptor, err := binder.Bind(ctx, "echo-pool")
	require.NoError(t, err)
	defer acceptor.Close()

	factory := echoFactory()

	const poolSize = 3
	var wg sync.WaitGroup
	wg.Add(poolSize)
	go func() {
		for i := 0; i < poolSize; i++ {
			conn, err := acceptor.Accept(ctx)
			if err != nil {
				wg.Done()
				continue
			}
			svc, err := factory.New()
			require.NoError(t, err)
			go func() {
				defer wg.Done()
				_ = Serve[echoRequest, echoResponse](ctx, conn, svc, &codec.JSONCodec{})
			}()
		}
	}()

	pooled := NewPooledClient[echoRequest, echoResponse](binder, "echo-pool", poolSize, &codec.JSONCodec{})
	defer pooled.Close()

	var callers sync.WaitGroup
	errs := make(chan error, poolSize)
	for i := 0; i < poolSize; i++ {
		callers.Add(1)
		go func(n int) {
			defer callers.Done()
			res, err := pooled.Call(ctx, echoRequest{Text: "hi"})
			if err != nil {
				errs <- err
				return
			}
			if res.Text != "hi" {
				errs <- fmt.Errorf("unexpected echo text %q", res.Text)
			}
		}(i)
	}
	callers.Wait()
	close(errs)
	for err := range errs {
		t.Fatal(err)
	}

	wg.Wait()
}
