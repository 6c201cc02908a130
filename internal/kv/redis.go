// README: Redis-backed SetStore with TTL refresh on write.
package kv

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis stores each set as a Redis SET. Keys are refreshed to ttl on every
// write so active drivers never lose state; idle keys age out.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

func (r *Redis) Add(ctx context.Context, key string, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	vals := make([]interface{}, len(members))
	for i, m := range members {
		vals[i] = m
	}
	pipe := r.client.Pipeline()
	pipe.SAdd(ctx, key, vals...)
	if r.ttl > 0 {
		pipe.Expire(ctx, key, r.ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (r *Redis) Members(ctx context.Context, key string) ([]string, error) {
	members, err := r.client.SMembers(ctx, key).Result()
	if err == redis.Nil {
		return nil, nil
	}
	return members, err
}

func (r *Redis) Contains(ctx context.Context, key, member string) (bool, error) {
	return r.client.SIsMember(ctx, key, member).Result()
}
