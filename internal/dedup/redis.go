package dedup

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gonggit/spring-batch-quartz/internal/engine"
)

// DefaultClaimTTL bounds how long a claimed key blocks replays. It only
// needs to outlive the longest plausible duplicate window, not the job
// history.
const DefaultClaimTTL = 24 * time.Hour

// RedisStore claims keys via SETNX so the guarantee holds across process
// restarts and multiple engine instances sharing one Redis.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, ttl: DefaultClaimTTL}
}

// WithTTL overrides the claim TTL. Zero keeps claims forever.
func (s *RedisStore) WithTTL(ttl time.Duration) *RedisStore {
	s.ttl = ttl
	return s
}

func (s *RedisStore) Claim(ctx context.Context, key string) error {
	ok, err := s.client.SetNX(ctx, claimKey(key), time.Now().UTC().Format(time.RFC3339Nano), s.ttl).Result()
	if err != nil {
		return fmt.Errorf("redis setnx: %w", err)
	}
	if !ok {
		return engine.ErrDuplicateRequest
	}
	return nil
}

func claimKey(key string) string {
	return "batchcron:exec:" + key
}
