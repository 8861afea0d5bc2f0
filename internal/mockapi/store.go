package mockapi

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"esbilla/internal/backend"
	dErrors "esbilla/pkg/domain-errors"
)

// Store keeps the last decision per tenant and footprint so sync can return
// it on sibling domains.
type Store interface {
	Save(ctx context.Context, tenantID, footprint string, c backend.LastConsent) error
	// Last returns nil without error when nothing is recorded.
	Last(ctx context.Context, tenantID, footprint string) (*backend.LastConsent, error)
}

// MemoryStore is a process-local Store.
type MemoryStore struct {
	mu   sync.RWMutex
	last map[string]backend.LastConsent
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{last: make(map[string]backend.LastConsent)}
}

func (s *MemoryStore) Save(_ context.Context, tenantID, footprint string, c backend.LastConsent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last[key(tenantID, footprint)] = c
	return nil
}

func (s *MemoryStore) Last(_ context.Context, tenantID, footprint string) (*backend.LastConsent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.last[key(tenantID, footprint)]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

// DefaultRedisTTL bounds how long a synced decision is kept.
const DefaultRedisTTL = 365 * 24 * time.Hour

// RedisStore is a Store shared by every backend instance.
type RedisStore struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewRedisStore(client redis.Cmdable, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultRedisTTL
	}
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Save(ctx context.Context, tenantID, footprint string, c backend.LastConsent) error {
	payload, err := json.Marshal(c)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "encode last consent")
	}
	if err := s.client.Set(ctx, key(tenantID, footprint), payload, s.ttl).Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "save last consent")
	}
	return nil
}

func (s *RedisStore) Last(ctx context.Context, tenantID, footprint string) (*backend.LastConsent, error) {
	raw, err := s.client.Get(ctx, key(tenantID, footprint)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "read last consent")
	}
	var c backend.LastConsent
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeBadData, "decode last consent")
	}
	return &c, nil
}

func key(tenantID, footprint string) string {
	return "esbilla:consent:" + tenantID + ":" + footprint
}
