package database

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisClients holds one connection pool for history records and one for
// pub/sub. Subscriptions pin connections, so they do not share a pool.
type RedisClients struct {
	Store  *redis.Client
	PubSub *redis.Client
}

func NewRedisClients(redisURL string) (*RedisClients, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store, err := dialRedis(ctx, opt, "store")
	if err != nil {
		return nil, err
	}
	pubsub, err := dialRedis(ctx, opt, "pubsub")
	if err != nil {
		store.Close()
		return nil, err
	}
	return &RedisClients{Store: store, PubSub: pubsub}, nil
}

func dialRedis(ctx context.Context, base *redis.Options, role string) (*redis.Client, error) {
	opt := *base
	opt.ClientName = "bookcraft-" + role
	client := redis.NewClient(&opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis %s ping: %w", role, err)
	}
	return client, nil
}

func (r *RedisClients) Close() {
	r.Store.Close()
	r.PubSub.Close()
}
