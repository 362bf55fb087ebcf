package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/Simplici0/buildest/internal/estimate"
)

const keyPrefix = "estimate:session:"

// RedisStore keeps sessions in redis as JSON with a sliding TTL.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore returns a store backed by client. A zero ttl keeps sessions
// forever.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

// Create stores state under a fresh id.
func (r *RedisStore) Create(ctx context.Context, state estimate.State) (string, error) {
	data, err := encode(state)
	if err != nil {
		return "", err
	}

	id := uuid.NewString()
	if err := r.client.Set(ctx, keyPrefix+id, data, r.ttl).Err(); err != nil {
		return "", fmt.Errorf("store session %s: %w", id, err)
	}
	return id, nil
}

// Get returns the state stored under id, or ErrNotFound once it has expired.
func (r *RedisStore) Get(ctx context.Context, id string) (estimate.State, error) {
	data, err := r.client.Get(ctx, keyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return estimate.State{}, ErrNotFound
	}
	if err != nil {
		return estimate.State{}, fmt.Errorf("load session %s: %w", id, err)
	}
	return decode(data)
}

// Put overwrites an existing session and refreshes its TTL.
func (r *RedisStore) Put(ctx context.Context, id string, state estimate.State) error {
	data, err := encode(state)
	if err != nil {
		return err
	}

	ok, err := r.client.SetXX(ctx, keyPrefix+id, data, r.ttl).Result()
	if err != nil {
		return fmt.Errorf("store session %s: %w", id, err)
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

// Delete removes the session, returning ErrNotFound when it is unknown.
func (r *RedisStore) Delete(ctx context.Context, id string) error {
	n, err := r.client.Del(ctx, keyPrefix+id).Result()
	if err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
