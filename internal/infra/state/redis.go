package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/logship/logship/internal/core/domain"
)

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
}

// RedisStore keeps UploadState as a JSON blob under the key. Useful when
// several hosts ship records under one shared bookkeeping namespace.
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &RedisStore{rdb: rdb}, nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

// Load reads the state blob. An absent key is the zero state.
func (s *RedisStore) Load(ctx context.Context, key string) (*domain.UploadState, error) {
	data, err := s.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.NewUploadState(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("get upload state: %w", err)
	}

	st := domain.NewUploadState()
	if err := json.Unmarshal(data, st); err != nil {
		return nil, fmt.Errorf("parse upload state: %w", err)
	}

	return st, nil
}

// Save writes the state blob. No TTL: bookkeeping must outlive quiet periods.
func (s *RedisStore) Save(ctx context.Context, key string, st *domain.UploadState) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("serialize upload state: %w", err)
	}

	if err := s.rdb.Set(ctx, key, data, 0).Err(); err != nil {
		return fmt.Errorf("set upload state: %w", err)
	}

	return nil
}
