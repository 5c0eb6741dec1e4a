package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// CacheService is a JSON read-through cache over Redis. Cached values are
// projections only; balances are always mutated against the store.
type CacheService struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCacheService(client *redis.Client, defaultTTL time.Duration) *CacheService {
	return &CacheService{
		client: client,
		ttl:    defaultTTL,
	}
}

// Base operations
func (s *CacheService) Set(ctx context.Context, key string, value interface{}) error {
	return s.SetWithTTL(ctx, key, value, s.ttl)
}

func (s *CacheService) SetWithTTL(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return errors.Wrap(err, "marshal cache value")
	}
	return s.client.Set(ctx, key, data, ttl).Err()
}

// Get decodes the value at key into dest. A miss reports false with no error.
func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, errors.Wrap(err, "get cache value")
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, errors.Wrap(err, "unmarshal cache value")
	}
	return true, nil
}

func (s *CacheService) Delete(ctx context.Context, keys ...string) error {
	return s.client.Del(ctx, keys...).Err()
}

// GenerateKey builds "<entity>:<keyType>:<value>".
func GenerateKey(entityType, keyType string, value interface{}) string {
	return fmt.Sprintf("%s:%s:%v", entityType, keyType, value)
}

func accountKey(userID string) string {
	return GenerateKey("account", "user", userID)
}

// Account summary caching
func (s *CacheService) CacheAccount(ctx context.Context, userID string, summary interface{}) error {
	return s.Set(ctx, accountKey(userID), summary)
}

func (s *CacheService) GetAccount(ctx context.Context, userID string, dest interface{}) (bool, error) {
	return s.Get(ctx, accountKey(userID), dest)
}

func (s *CacheService) InvalidateAccount(ctx context.Context, userID string) error {
	return s.Delete(ctx, accountKey(userID))
}

func (s *CacheService) HealthCheck(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return errors.Wrap(err, "redis connection failed")
	}
	return nil
}

func (s *CacheService) Close() error {
	return s.client.Close()
}
