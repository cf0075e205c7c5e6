package cache

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-monolith/mono"
	"github.com/redis/go-redis/v9"
)

// Module owns the Redis connection and exposes the Cache to other
// modules. It is optional: when no Redis address is configured, main
// simply does not register it and the generator runs uncached.
type Module struct {
	cache     *Cache
	client    *redis.Client
	redisAddr string
	prefix    string
	ttl       time.Duration
}

// Compile-time interface checks.
var _ mono.Module = (*Module)(nil)
var _ mono.HealthCheckableModule = (*Module)(nil)

// NewModule creates a cache module for the given Redis address.
func NewModule(redisAddr string) *Module {
	return &Module{
		redisAddr: redisAddr,
		prefix:    "stepgen:",
		ttl:       time.Hour,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "cache"
}

// Start connects to Redis and verifies the connection.
func (m *Module) Start(ctx context.Context) error {
	m.client = redis.NewClient(&redis.Options{
		Addr:         m.redisAddr,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := m.client.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("failed to connect to redis at %s: %w", m.redisAddr, err)
	}

	m.cache = New(m.client, m.prefix, m.ttl)

	log.Printf("[cache] Module started (redis: %s, ttl: %s)", m.redisAddr, m.ttl)
	return nil
}

// Stop closes the Redis connection.
func (m *Module) Stop(_ context.Context) error {
	if m.client != nil {
		m.client.Close()
	}
	log.Println("[cache] Module stopped")
	return nil
}

// Health returns the health status of the module.
func (m *Module) Health(ctx context.Context) mono.HealthStatus {
	if m.cache == nil {
		return mono.HealthStatus{Healthy: false, Message: "cache not initialized"}
	}
	if err := m.cache.Ping(ctx); err != nil {
		return mono.HealthStatus{Healthy: false, Message: fmt.Sprintf("redis ping failed: %v", err)}
	}
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{"redis": m.redisAddr, "stats": m.cache.GetStats()},
	}
}

// Cache returns the cache instance, or nil before Start.
func (m *Module) Cache() *Cache {
	return m.cache
}
