// Package redis provides a key-value store backed by Redis key expiry.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vadimbarashkov/url-registry/internal/entity"
)

// Store keeps registry entries as plain Redis strings under a key prefix.
type Store struct {
	client    redis.UniversalClient
	ttl       time.Duration
	keyPrefix string
}

// New creates a Store whose new entries expire after ttl. A zero ttl disables expiry.
func New(client redis.UniversalClient, ttl time.Duration, keyPrefix string) *Store {
	return &Store{
		client:    client,
		ttl:       ttl,
		keyPrefix: keyPrefix,
	}
}

func (s *Store) key(k string) string {
	return s.keyPrefix + k
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	const op = "adapter.store.redis.Store.Get"

	data, err := s.client.Get(ctx, s.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%s: %w", op, entity.ErrEntryNotFound)
		}

		return nil, fmt.Errorf("%s: failed to get key: %w", op, err)
	}

	return data, nil
}

// Set overwrites an existing key in place, keeping its expiry. Keys that do
// not exist yet are created with the store's ttl.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	const op = "adapter.store.redis.Store.Set"

	err := s.client.SetArgs(ctx, s.key(key), value, redis.SetArgs{
		Mode:    "XX",
		KeepTTL: true,
	}).Err()
	if err == nil {
		return nil
	}

	if !errors.Is(err, redis.Nil) {
		return fmt.Errorf("%s: failed to overwrite key: %w", op, err)
	}

	if err := s.client.Set(ctx, s.key(key), value, s.ttl).Err(); err != nil {
		return fmt.Errorf("%s: failed to create key: %w", op, err)
	}

	return nil
}

func (s *Store) ExtendTTL(ctx context.Context, key string, threshold, extendTo time.Duration) error {
	const op = "adapter.store.redis.Store.ExtendTTL"

	remaining, err := s.client.PTTL(ctx, s.key(key)).Result()
	if err != nil {
		return fmt.Errorf("%s: failed to get ttl: %w", op, err)
	}

	// -2: missing key, -1: no expiry.
	if remaining < 0 || remaining >= threshold {
		return nil
	}

	if err := s.client.PExpire(ctx, s.key(key), extendTo).Err(); err != nil {
		return fmt.Errorf("%s: failed to extend ttl: %w", op, err)
	}

	return nil
}
