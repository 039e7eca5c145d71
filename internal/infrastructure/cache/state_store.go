package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// InstallState is the anti-forgery payload minted when an install flow
// starts and checked when the OAuth callback returns.
type InstallState struct {
	ShopDomain string    `json:"shop_domain"`
	CreatedAt  time.Time `json:"created_at"`
}

// StateStore persists pending OAuth install states under their random
// state token. Consume is one-shot: a state can only be redeemed once.
type StateStore interface {
	Save(ctx context.Context, state string, payload InstallState, ttl time.Duration) error
	Consume(ctx context.Context, state string) (*InstallState, error)
}

// RedisStateStore implements StateStore backed by Redis
type RedisStateStore struct {
	client    redis.UniversalClient
	keyPrefix string
}

// NewRedisStateStore creates a Redis-backed state store
func NewRedisStateStore(client redis.UniversalClient) *RedisStateStore {
	return &RedisStateStore{
		client:    client,
		keyPrefix: "shopify:state:",
	}
}

// Save stores the encoded state payload with TTL
func (s *RedisStateStore) Save(ctx context.Context, state string, payload InstallState, ttl time.Duration) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	if err := s.client.Set(ctx, s.keyPrefix+state, data, ttl).Err(); err != nil {
		return fmt.Errorf("persist state: %w", err)
	}
	return nil
}

// Consume loads, decodes and deletes the state payload. Returns nil
// when the state is unknown or already redeemed.
func (s *RedisStateStore) Consume(ctx context.Context, state string) (*InstallState, error) {
	key := s.keyPrefix + state

	data, err := s.client.GetDel(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("load state: %w", err)
	}

	var payload InstallState
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("decode state: %w", err)
	}
	return &payload, nil
}

var _ StateStore = (*RedisStateStore)(nil)

// InMemoryStateStore implements StateStore with a process-local map.
// Suitable for single-instance deployments and testing.
type InMemoryStateStore struct {
	mu      sync.Mutex
	entries map[string]inMemoryState
}

type inMemoryState struct {
	payload   InstallState
	expiresAt time.Time
}

// NewInMemoryStateStore creates an in-memory state store
func NewInMemoryStateStore() *InMemoryStateStore {
	return &InMemoryStateStore{
		entries: make(map[string]inMemoryState),
	}
}

// Save stores the state payload with TTL
func (s *InMemoryStateStore) Save(_ context.Context, state string, payload InstallState, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[state] = inMemoryState{
		payload:   payload,
		expiresAt: time.Now().Add(ttl),
	}
	return nil
}

// Consume returns and removes the state payload, or nil if unknown,
// expired, or already redeemed
func (s *InMemoryStateStore) Consume(_ context.Context, state string) (*InstallState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[state]
	if !ok {
		return nil, nil
	}
	delete(s.entries, state)

	if time.Now().After(entry.expiresAt) {
		return nil, nil
	}
	payload := entry.payload
	return &payload, nil
}

var _ StateStore = (*InMemoryStateStore)(nil)
