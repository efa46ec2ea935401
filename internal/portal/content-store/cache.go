package contentstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const DefaultCacheTTL = time.Hour

// CachedStore читает содержимое через кэш redis. Запись идет в основное хранилище,
// затем обновляет кэш. Ошибки redis не мешают работе с основным хранилищем.
type CachedStore struct {
	next   Store
	client *redis.Client
	ttl    time.Duration
	prefix string
}

func NewCachedStore(next Store, client *redis.Client, ttl time.Duration) *CachedStore {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedStore{next: next, client: client, ttl: ttl, prefix: "editor-content:"}
}

// NewRedisClient подключается к redis по адресу вида redis://host:port/db.
func NewRedisClient(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return client, nil
}

func (s *CachedStore) key(key Key) string {
	return s.prefix + key.String()
}

func (s *CachedStore) LoadContent(ctx context.Context, key Key) (*string, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}

	cached, err := s.client.Get(ctx, s.key(key)).Result()
	switch {
	case err == nil:
		return &cached, nil
	case !errors.Is(err, redis.Nil):
		slog.Warn("Read editor content cache", "key", key.String(), "err", err)
	}

	content, err := s.next.LoadContent(ctx, key)
	if err != nil || content == nil {
		return content, err
	}
	if err := s.client.Set(ctx, s.key(key), *content, s.ttl).Err(); err != nil {
		slog.Warn("Write editor content cache", "key", key.String(), "err", err)
	}
	return content, nil
}

func (s *CachedStore) SaveContent(ctx context.Context, key Key, content string) error {
	if err := s.next.SaveContent(ctx, key, content); err != nil {
		// Кэш мог устареть, если запись прошла частично
		s.client.Del(ctx, s.key(key))
		return err
	}
	if err := s.client.Set(ctx, s.key(key), content, s.ttl).Err(); err != nil {
		slog.Warn("Write editor content cache", "key", key.String(), "err", err)
		s.client.Del(ctx, s.key(key))
	}
	return nil
}
