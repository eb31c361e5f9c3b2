// Package client implements the RPC client with service discovery, load balancing,
// and a shared multiplexed connection pool per server address.
//
// Call flow:
//
//	Call(ctx, "Arith.Add", args, reply)
//	  → Registry.Discover(ctx, "Arith") → get instance list from etcd
//	  → Balancer.Pick(instances)        → select one address
//	  → getClient(ctx, addr)            → get a shared multiplex.Client (round-robin pool)
//	  → multiplex.Client.Call(ctx, req) → send request, wait for its response by tag
//	  → json.Unmarshal → reply          → done
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"minirpc/codec"
	"minirpc/loadbalance"
	"minirpc/message"
	"minirpc/multiplex"
	"minirpc/registry"
	"minirpc/transport"
)

// Client manages the full RPC call lifecycle: service discovery → load balancing → connection → call.
type Client struct {
	registry registry.Registry     // Service discovery (etcd or mock)
	balancer loadbalance.Balancer  // Load balancing strategy
	binder   transport.Binder      // Dials the wire transport (TCP by default)
	codec    codec.Codec           // Serialization format

	mu      sync.Mutex                                                              // Protects pools (not the clients themselves)
	pools   map[string][]*multiplex.Client[message.RPCMessage, message.RPCMessage] // Per-address connection pool (shared, not borrowed)
	poolSize int                                                                    // Number of connections per address
	counter  uint64                                                                 // Atomic counter for round-robin selection
}

// NewClient creates a client with the given registry, load balancer, codec type, and pool size.
//
// poolSize determines how many connections are maintained per server address.
// Each connection is multiplexed, so even poolSize=1 handles concurrent calls.
// Larger pools reduce write lock contention under very high concurrency.
func NewClient(reg registry.Registry, bal loadbalance.Balancer, codecType codec.CodecType, poolSize int) *Client {
	return NewClientWithBinder(reg, bal, transport.TCPBinder{}, codecType, poolSize)
}

// NewClientWithBinder is NewClient with an explicit transport.Binder, so
// tests (and non-TCP deployments) can dial over transport/local or
// transport/ipc instead of a real TCP socket.
func NewClientWithBinder(reg registry.Registry, bal loadbalance.Balancer, binder transport.Binder, codecType codec.CodecType, poolSize int) *Client {
	return &Client{
		registry: reg,
		balancer: bal,
		binder:   binder,
		codec:    codec.GetCodec(codecType),
		pools:    make(map[string][]*multiplex.Client[message.RPCMessage, message.RPCMessage]),
		poolSize: poolSize,
	}
}

// getClient returns a shared multiplex.Client for the given address using
// round-robin selection across the address's pool.
//
// Design: connections are SHARED, not borrowed/returned. Each multiplex.Client
// already supports concurrent Call from many goroutines, so there's no need
// to exclusively hold a connection during a call — only its own response wait
// blocks the caller, not the connection itself.
//
// Lock strategy:
//   - mu.Lock protects the pools map (read + write). This is nanosecond-level.
//   - Dialing happens inside the lock only on first access (pool creation).
//     Subsequent calls just read the map and select via atomic counter — no
//     lock needed for selection.
func (c *Client) getClient(ctx context.Context, addr string) (*multiplex.Client[message.RPCMessage, message.RPCMessage], error) {
	n := atomic.AddUint64(&c.counter, 1)

	c.mu.Lock()
	pool, ok := c.pools[addr]

	if !ok {
		pool = make([]*multiplex.Client[message.RPCMessage, message.RPCMessage], c.poolSize)
		c.pools[addr] = pool
		for i := 0; i < c.poolSize; i++ {
			conn, err := c.binder.Dial(ctx, addr)
			if err != nil {
				c.mu.Unlock()
				return nil, err
			}
			pool[i] = multiplex.NewClient[message.RPCMessage, message.RPCMessage](context.Background(), conn, c.codec)
		}
	}
	c.mu.Unlock()

	return pool[n%uint64(c.poolSize)], nil
}

// Call performs a synchronous RPC call.
//
// Steps:
//  1. Parse serviceMethod ("Arith.Add" → service="Arith")
//  2. Discover instances from registry
//  3. Pick an instance using load balancer
//  4. Get a shared multiplexed connection for that instance
//  5. Send the request and wait for the response
//  6. Unmarshal the response payload into reply
func (c *Client) Call(ctx context.Context, serviceMethod string, args any, reply any) error {
	split := strings.Split(serviceMethod, ".")
	if len(split) != 2 {
		return fmt.Errorf("invalid serviceMethod format: %v", serviceMethod)
	}
	serviceName := split[0]

	instances, err := c.registry.Discover(ctx, serviceName)
	if err != nil {
		return err
	}

	instance, err := c.balancer.Pick(instances)
	if err != nil {
		return err
	}

	mc, err := c.getClient(ctx, instance.Addr)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("marshal args: %w", err)
	}

	resp, err := mc.Call(ctx, message.RPCMessage{
		ServiceMethod: serviceMethod,
		Payload:       payload,
	})
	if err != nil {
		return err
	}

	if resp.Error != "" {
		return fmt.Errorf("server error: %v", resp.Error)
	}

	return json.Unmarshal(resp.Payload, reply)
}

// Close tears down every pooled connection across every discovered address.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var firstErr error
	for _, pool := range c.pools {
		for _, mc := range pool {
			if mc == nil {
				continue
			}
			if err := mc.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
