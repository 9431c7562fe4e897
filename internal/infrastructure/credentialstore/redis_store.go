package credentialstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"

	"github.com/riskibarqy/halo-stats/internal/domain/credential"
)

const DefaultRedisKey = "halo-stats:credential-bundle"

// RedisStore shares one bundle between several collector processes.
type RedisStore struct {
	client redis.UniversalClient
	key    string
}

func NewRedisStore(client redis.UniversalClient, key string) *RedisStore {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisStore{client: client, key: key}
}

// NewRedisStoreFromURL parses a redis:// URL such as redis://localhost:6379/0.
func NewRedisStoreFromURL(rawURL, key string) (*RedisStore, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return NewRedisStore(redis.NewClient(opts), key), nil
}

func (s *RedisStore) Load(ctx context.Context) (credential.Bundle, bool, error) {
	raw, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return credential.Bundle{}, false, nil
	}
	if err != nil {
		return credential.Bundle{}, false, fmt.Errorf("get credential bundle: %w", err)
	}

	var bundle credential.Bundle
	if err := sonic.Unmarshal(raw, &bundle); err != nil {
		return credential.Bundle{}, false, fmt.Errorf("decode credential bundle: %w", err)
	}
	return bundle, true, nil
}

// Save writes the whole bundle with a single SET; readers never see a mix of
// old and new fields.
func (s *RedisStore) Save(ctx context.Context, bundle credential.Bundle) error {
	raw, err := sonic.Marshal(bundle)
	if err != nil {
		return fmt.Errorf("encode credential bundle: %w", err)
	}
	if err := s.client.Set(ctx, s.key, raw, 0).Err(); err != nil {
		return fmt.Errorf("set credential bundle: %w", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
