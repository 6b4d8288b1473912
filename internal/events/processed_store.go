// Package events tracks which webhook deliveries were already handled so
// that retried callbacks do not re-drive the dialog engine.
package events

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ProcessedStore records handled webhook events in Redis with a TTL.
type ProcessedStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewProcessedStore creates a store; entries expire after ttl.
func NewProcessedStore(rdb *redis.Client, ttl time.Duration) *ProcessedStore {
	if rdb == nil {
		panic("events: redis client required")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &ProcessedStore{rdb: rdb, ttl: ttl}
}

// AlreadyProcessed checks if we've seen this provider event id.
func (s *ProcessedStore) AlreadyProcessed(ctx context.Context, provider, eventID string) (bool, error) {
	n, err := s.rdb.Exists(ctx, processedKey(provider, eventID)).Result()
	if err != nil {
		return false, fmt.Errorf("events: check processed: %w", err)
	}
	return n > 0, nil
}

// MarkProcessed records an event id for the provider, returning false if
// it was already recorded.
func (s *ProcessedStore) MarkProcessed(ctx context.Context, provider, eventID string) (bool, error) {
	ok, err := s.rdb.SetNX(ctx, processedKey(provider, eventID), "1", s.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("events: mark processed: %w", err)
	}
	return ok, nil
}

func processedKey(provider, eventID string) string {
	return fmt.Sprintf("processed:%s:%s", provider, eventID)
}
