package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/markethub/backend/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
)

// TokenStore caches Shopify admin access tokens keyed by shop domain.
// Tokens are long-lived offline tokens; the cache only avoids repeating
// the code exchange, so a miss is never an error.
type TokenStore interface {
	Get(ctx context.Context, shopDomain string) (string, bool, error)
	Set(ctx context.Context, shopDomain, token string, ttl time.Duration) error
	Delete(ctx context.Context, shopDomain string) error
}

// NewRedisClient creates a Redis client from application configuration
// and verifies connectivity.
func NewRedisClient(cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return client, nil
}

// RedisTokenStore implements TokenStore using Redis. Suitable for
// distributed deployments where multiple instances share tokens.
type RedisTokenStore struct {
	client    redis.UniversalClient
	keyPrefix string
}

// NewRedisTokenStore creates a Redis-backed token store
func NewRedisTokenStore(client redis.UniversalClient) *RedisTokenStore {
	return &RedisTokenStore{
		client:    client,
		keyPrefix: "shopify:token:",
	}
}

// Get returns the cached token for a shop, if present
func (s *RedisTokenStore) Get(ctx context.Context, shopDomain string) (string, bool, error) {
	token, err := s.client.Get(ctx, s.keyPrefix+shopDomain).Result()
	if err != nil {
		if err == redis.Nil {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to load token: %w", err)
	}
	return token, true, nil
}

// Set caches the token for a shop. A zero ttl keeps it until deleted.
func (s *RedisTokenStore) Set(ctx context.Context, shopDomain, token string, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.keyPrefix+shopDomain, token, ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache token: %w", err)
	}
	return nil
}

// Delete drops the cached token for a shop
func (s *RedisTokenStore) Delete(ctx context.Context, shopDomain string) error {
	if err := s.client.Del(ctx, s.keyPrefix+shopDomain).Err(); err != nil && err != redis.Nil {
		return fmt.Errorf("failed to delete token: %w", err)
	}
	return nil
}

var _ TokenStore = (*RedisTokenStore)(nil)

// InMemoryTokenStore implements TokenStore with a process-local map.
// Suitable for single-instance deployments and testing.
type InMemoryTokenStore struct {
	mu      sync.RWMutex
	entries map[string]inMemoryToken
}

type inMemoryToken struct {
	token     string
	expiresAt time.Time // zero means no expiry
}

// NewInMemoryTokenStore creates an in-memory token store
func NewInMemoryTokenStore() *InMemoryTokenStore {
	return &InMemoryTokenStore{
		entries: make(map[string]inMemoryToken),
	}
}

// Get returns the cached token for a shop, if present and not expired
func (s *InMemoryTokenStore) Get(_ context.Context, shopDomain string) (string, bool, error) {
	s.mu.RLock()
	entry, ok := s.entries[shopDomain]
	s.mu.RUnlock()

	if !ok {
		return "", false, nil
	}
	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		s.mu.Lock()
		delete(s.entries, shopDomain)
		s.mu.Unlock()
		return "", false, nil
	}
	return entry.token, true, nil
}

// Set caches the token for a shop
func (s *InMemoryTokenStore) Set(_ context.Context, shopDomain, token string, ttl time.Duration) error {
	entry := inMemoryToken{token: token}
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}

	s.mu.Lock()
	s.entries[shopDomain] = entry
	s.mu.Unlock()
	return nil
}

// Delete drops the cached token for a shop
func (s *InMemoryTokenStore) Delete(_ context.Context, shopDomain string) error {
	s.mu.Lock()
	delete(s.entries, shopDomain)
	s.mu.Unlock()
	return nil
}

var _ TokenStore = (*InMemoryTokenStore)(nil)
