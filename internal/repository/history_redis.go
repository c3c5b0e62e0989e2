package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"bookcraft-backend/internal/session"
)

// RedisHistoryStore stores each history record as a JSON document under its
// storage key.
type RedisHistoryStore struct {
	client *redis.Client
}

func NewRedisHistoryStore(client *redis.Client) *RedisHistoryStore {
	return &RedisHistoryStore{client: client}
}

func (r *RedisHistoryStore) Get(ctx context.Context, key string) (session.Record, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return session.Record{}, session.ErrNoRecord
	}
	if err != nil {
		return session.Record{}, err
	}

	var rec session.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return session.Record{}, fmt.Errorf("%w: %v", session.ErrCorrupt, err)
	}
	return rec, nil
}

// Put stamps the record with the Redis server time.
func (r *RedisHistoryStore) Put(ctx context.Context, key string, history string) error {
	now, err := r.client.Time(ctx).Result()
	if err != nil {
		return fmt.Errorf("read server time: %w", err)
	}

	data, err := json.Marshal(session.Record{History: history, UpdatedAt: now.UTC()})
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key, data, 0).Err()
}
