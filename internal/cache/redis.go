package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const DefaultRedisPrefix = "ytrag:transcript"

// RedisStore keeps each entry as a JSON array under <prefix>:<videoId>.
// Redis owns durability, so Persist is a no-op.
type RedisStore struct {
	client redis.Cmdable
	prefix string
	log    *zap.Logger
}

func NewRedisStore(client redis.Cmdable, prefix string, log *zap.Logger) *RedisStore {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &RedisStore{client: client, prefix: prefix, log: log.Named("cache")}
}

// Load checks that the server is reachable.
func (s *RedisStore) Load(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, sourceID string) ([]string, bool, error) {
	raw, err := s.client.Get(ctx, s.key(sourceID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read cached transcript: %w", err)
	}
	chunks, ok := decodeChunks(s.log, sourceID, raw)
	return chunks, ok, nil
}

func (s *RedisStore) Put(ctx context.Context, sourceID string, chunks []string) error {
	if chunks == nil {
		chunks = []string{}
	}
	data, err := json.Marshal(chunks)
	if err != nil {
		return fmt.Errorf("encode chunks: %w", err)
	}
	if err := s.client.Set(ctx, s.key(sourceID), data, 0).Err(); err != nil {
		return fmt.Errorf("write cached transcript: %w", err)
	}
	return nil
}

func (s *RedisStore) Persist(context.Context) error { return nil }

func (s *RedisStore) key(sourceID string) string {
	return s.prefix + ":" + sourceID
}
