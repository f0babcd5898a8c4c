// Package redis persists the granted directory handle so that a restarted
// server can rebind the local project and the mirror without asking again.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	storyRepo "yarny/internal/domain/repositories/story"
)

const defaultKey = "yarny:handle"

// HandleStore implements storyRepo.HandleStore on a single Redis key.
type HandleStore struct {
	client *redis.Client
	key    string
}

var _ storyRepo.HandleStore = (*HandleStore)(nil)

// NewHandleStore connects to redisURL and checks the connection. An empty
// key uses "yarny:handle".
func NewHandleStore(redisURL, key string) (*HandleStore, error) {
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
	return NewHandleStoreWithClient(client, key), nil
}

// NewHandleStoreWithClient wraps an existing client. An empty key uses
// "yarny:handle".
func NewHandleStoreWithClient(client *redis.Client, key string) *HandleStore {
	if key == "" {
		key = defaultKey
	}
	return &HandleStore{client: client, key: key}
}

func (s *HandleStore) Save(ctx context.Context, record *storyRepo.HandleRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal handle record: %w", err)
	}
	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("save handle record: %w", err)
	}
	return nil
}

func (s *HandleStore) Load(ctx context.Context) (*storyRepo.HandleRecord, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load handle record: %w", err)
	}

	var record storyRepo.HandleRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("unmarshal handle record: %w", err)
	}
	return &record, nil
}

func (s *HandleStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("clear handle record: %w", err)
	}
	return nil
}

// Close closes the Redis connection
func (s *HandleStore) Close() error {
	return s.client.Close()
}
