package ratelimit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// State is the governor's shareable RateState: the earliest instant the next
// request may be sent and the quota left since LastReset's local day.
type State struct {
	NextAllowed time.Time `json:"next_allowed"`
	Remaining   int       `json:"remaining"`
	LastReset   time.Time `json:"last_reset"`
}

// Store shares RateState with other processes behind the same apparent
// client identity. Implementations are best-effort: the governor logs and
// ignores store failures, and its in-memory state stays authoritative.
type Store interface {
	Load(ctx context.Context) (*State, error)
	Save(ctx context.Context, state State) error
}

// KV is the key-value surface the Redis store needs. Both the plain and the
// metrics-instrumented client in pkg/redis satisfy it.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

const storeTTL = 48 * time.Hour

// RedisStore shares RateState through Redis as a JSON blob per tier.
type RedisStore struct {
	kv  KV
	key string
	log *slog.Logger
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore creates a Redis-backed Store for the named tier.
func NewRedisStore(kv KV, tier string, log *slog.Logger) *RedisStore {
	if log == nil {
		log = slog.Default()
	}

	return &RedisStore{
		kv:  kv,
		key: "pubproxy:ratestate:" + tier,
		log: log,
	}
}

// Load fetches the shared state, returning nil when no process has written
// one yet.
func (s *RedisStore) Load(ctx context.Context) (*State, error) {
	data, err := s.kv.Get(ctx, s.key)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("load rate state: %w", err)
	}

	var state State
	if err := json.Unmarshal([]byte(data), &state); err != nil {
		return nil, fmt.Errorf("decode rate state: %w", err)
	}

	return &state, nil
}

// Save publishes the state for other processes. The TTL only bounds growth
// of abandoned keys; staleness is handled by the day check on load.
func (s *RedisStore) Save(ctx context.Context, state State) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode rate state: %w", err)
	}

	if err := s.kv.Set(ctx, s.key, payload, storeTTL); err != nil {
		return fmt.Errorf("save rate state: %w", err)
	}

	return nil
}
