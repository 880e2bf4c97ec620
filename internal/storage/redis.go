package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces memory records in Redis.
const DefaultKeyPrefix = "memory:"

const maxMergeAttempts = 10

// ErrMergeConflict is returned when optimistic merges keep colliding.
var ErrMergeConflict = errors.New("memory merge kept conflicting")

// RedisStore keeps one JSON document per user. Merges run under WATCH so a
// concurrent writer forces a re-read instead of a lost update.
type RedisStore struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

// NewRedisStore connects to redisURL and verifies the connection.
func NewRedisStore(ctx context.Context, redisURL, prefix string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return NewRedisStoreWithClient(client, prefix), nil
}

// NewRedisStoreWithClient wraps an existing client.
func NewRedisStoreWithClient(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &RedisStore{client: client, prefix: prefix, now: time.Now}
}

func (r *RedisStore) key(userID string) string {
	return r.prefix + userID
}

func (r *RedisStore) decode(raw string, err error, userID string) (*Record, error) {
	if errors.Is(err, redis.Nil) {
		return NewRecord(userID, r.now()), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get memory record: %w", err)
	}
	var rec Record
	if err := sonic.UnmarshalString(raw, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal memory record: %w", err)
	}
	return normalize(&rec, userID, r.now()), nil
}

func (r *RedisStore) Get(ctx context.Context, userID string) (*Record, error) {
	raw, err := r.client.Get(ctx, r.key(userID)).Result()
	return r.decode(raw, err, userID)
}

func (r *RedisStore) Merge(ctx context.Context, userID string, patch Patch) (*Record, error) {
	key := r.key(userID)
	var merged *Record

	txf := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Result()
		rec, err := r.decode(raw, err, userID)
		if err != nil {
			return err
		}
		rec.Apply(patch, r.now())

		data, err := sonic.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to marshal memory record: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			return nil
		})
		if err == nil {
			merged = rec
		}
		return err
	}

	for attempt := 0; attempt < maxMergeAttempts; attempt++ {
		err := r.client.Watch(ctx, txf, key)
		if err == nil {
			return merged, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return nil, err
	}
	return nil, fmt.Errorf("%w: user %s", ErrMergeConflict, userID)
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
