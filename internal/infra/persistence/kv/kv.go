// Package kv persists the front desk state to a key-value server, one key per
// bucket, which mirrors the browser storage the snapshots came from.
package kv

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// ErrKeyMissing reports a key that is not set.
var ErrKeyMissing = errors.New("key missing")

// KVStore abstracts the key-value server so tests can replace Redis.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	// SetAll writes every value atomically.
	SetAll(ctx context.Context, values map[string][]byte) error
	Close() error
}

// RedisKVStore implements KVStore on go-redis.
type RedisKVStore struct {
	client *redis.Client
	prefix string
}

// RedisOptions configures NewRedisKVStore.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	// Prefix is prepended to every key.
	Prefix string
}

// NewRedisKVStore connects to Redis and verifies the connection.
func NewRedisKVStore(ctx context.Context, opts RedisOptions) (*RedisKVStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &RedisKVStore{client: client, prefix: opts.Prefix}, nil
}

// Get returns the value stored under key.
func (r *RedisKVStore) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrKeyMissing
		}
		return nil, err
	}
	return val, nil
}

// SetAll writes values inside one MULTI/EXEC block.
func (r *RedisKVStore) SetAll(ctx context.Context, values map[string][]byte) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for k, v := range values {
			pipe.Set(ctx, r.prefix+k, v, 0)
		}
		return nil
	})
	return err
}

// Close closes the client.
func (r *RedisKVStore) Close() error { return r.client.Close() }
