package client

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"minirpc/codec"
	"minirpc/loadbalance"
	"minirpc/middleware"
	"minirpc/registry"
	"minirpc/server"
	"minirpc/transport/local"
)

type Args struct {
	A, B int
}

type Reply struct {
	Result int
}

type Arith struct{}

func (a *Arith) Add(args *Args, reply *Reply) error {
	reply.Result = args.A + args.B
	return nil
}

// MockRegistry is an in-memory registry.Registry for tests that don't need etcd.
type MockRegistry struct {
	mu        sync.Mutex
	instances map[string][]registry.ServiceInstance
}

func NewMockRegistry() *MockRegistry {
	return &MockRegistry{instances: make(map[string][]registry.ServiceInstance)}
}

func (m *MockRegistry) Register(ctx context.Context, serviceName string, inst registry.ServiceInstance, ttl int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.instances[serviceName] = append(m.instances[serviceName], inst)
	return nil
}

func (m *MockRegistry) Deregister(ctx context.Context, serviceName string, addr string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	insts := m.instances[serviceName]
	for i, inst := range insts {
		if inst.Addr == addr {
			m.instances[serviceName] = append(insts[:i], insts[i+1:]...)
			break
		}
	}
	return nil
}

func (m *MockRegistry) Discover(ctx context.Context, serviceName string) ([]registry.ServiceInstance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]registry.ServiceInstance(nil), m.instances[serviceName]...), nil
}

func (m *MockRegistry) Watch(ctx context.Context, serviceName string) <-chan []registry.ServiceInstance {
	ch := make(chan []registry.ServiceInstance)
	go func() {
		<-ctx.Done()
		close(ch)
	}()
	return ch
}

func TestClientWithRegistryAndLB(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	binder := local.NewBinder(local.Unbounded)

	svr := server.NewServer()
	svr.Use(middleware.LoggingMiddleware(zap.NewNop()))
	require.NoError(t, svr.Register(&Arith{}))
	require.NoError(t, svr.Serve(ctx, binder, "arith-1", "arith-1", nil))
	defer svr.Shutdown(time.Second)

	addr, err := svr.Addr(ctx)
	require.NoError(t, err)

	reg := NewMockRegistry()
	require.NoError(t, reg.Register(ctx, "Arith", registry.ServiceInstance{Addr: addr, Weight: 1}, 10))

	bal := &loadbalance.RoundRobinBalancer{}
	cl := NewClientWithBinder(reg, bal, binder, codec.CodecTypeJSON, 4)
	defer cl.Close()

	reply := &Reply{}
	require.NoError(t, cl.Call(ctx, "Arith.Add", &Args{A: 1, B: 2}, reply))
	require.Equal(t, 3, reply.Result)

	reply2 := &Reply{}
	require.NoError(t, cl.Call(ctx, "Arith.Add", &Args{A: 10, B: 20}, reply2))
	require.Equal(t, 30, reply2.Result)
}

func TestClientMultipleInstances(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	binder := local.NewBinder(local.Unbounded)

	svr1 := server.NewServer()
	require.NoError(t, svr1.Register(&Arith{}))
	require.NoError(t, svr1.Serve(ctx, binder, "arith-a", "arith-a", nil))
	defer svr1.Shutdown(time.Second)

	svr2 := server.NewServer()
	require.NoError(t, svr2.Register(&Arith{}))
	require.NoError(t, svr2.Serve(ctx, binder, "arith-b", "arith-b", nil))
	defer svr2.Shutdown(time.Second)

	addr1, err := svr1.Addr(ctx)
	require.NoError(t, err)
	addr2, err := svr2.Addr(ctx)
	require.NoError(t, err)

	reg := NewMockRegistry()
	require.NoError(t, reg.Register(ctx, "Arith", registry.ServiceInstance{Addr: addr1, Weight: 1}, 10))
	require.NoError(t, reg.Register(ctx, "Arith", registry.ServiceInstance{Addr: addr2, Weight: 1}, 10))

	bal := &loadbalance.RoundRobinBalancer{}
	cl := NewClientWithBinder(reg, bal, binder, codec.CodecTypeJSON, 4)
	defer cl.Close()

	for i := 0; i < 10; i++ {
		reply := &Reply{}
		require.NoError(t, cl.Call(ctx, "Arith.Add", &Args{A: i, B: i}, reply))
		require.Equal(t, i*2, reply.Result)
	}
}
