// Package registry defines the service discovery interface and data types.
//
// Service discovery solves the problem of "how does the client find the server?"
// Instead of hardcoding IP:port, servers register themselves in a central registry (etcd),
// and clients query the registry to find available instances.
package registry

import "context"

// ServiceInstance represents a single running instance of a service.
type ServiceInstance struct {
	Addr    string // Network address, e.g., "127.0.0.1:8080"
	Weight  int    // Weight for load balancing (higher = more traffic)
	Version string // Service version for canary deployments
}

// Registry is the interface for service registration and discovery.
// Implementations include EtcdRegistry (production) and MockRegistry (testing).
// Every method takes a context so a caller can bound registry calls by the
// same cancellation scope as the request that triggered them, instead of
// letting a slow registry call run unbounded.
type Registry interface {
	// Register adds a service instance to the registry with a TTL lease.
	// The instance will be automatically removed if KeepAlive stops (e.g., server crashes).
	Register(ctx context.Context, serviceName string, instance ServiceInstance, ttl int64) error

	// Deregister removes a service instance from the registry.
	// Called during graceful shutdown BEFORE closing the listener.
	Deregister(ctx context.Context, serviceName string, addr string) error

	// Discover returns all currently registered instances for a service.
	// The client calls this to get the instance list for load balancing.
	Discover(ctx context.Context, serviceName string) ([]ServiceInstance, error)

	// Watch returns a channel that emits updated instance lists whenever
	// the service's instances change (new instances, removals, etc.).
	// This enables real-time service discovery without polling. The
	// returned channel closes when ctx is done.
	Watch(ctx context.Context, serviceName string) <-chan []ServiceInstance
}
