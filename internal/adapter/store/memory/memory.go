// Package memory provides an in-process key-value store with entry lifetimes.
// It is meant for development and tests; contents are lost on restart.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/vadimbarashkov/url-registry/internal/entity"
)

type entry struct {
	value     []byte
	expiresAt time.Time // zero means the entry never expires
}

// Store is a map-backed store. New entries live for the configured TTL until
// their lifetime is extended.
type Store struct {
	mu      sync.RWMutex
	entries map[string]entry
	ttl     time.Duration
	now     func() time.Time
}

// New creates a Store whose new entries expire after ttl. A zero ttl disables expiry.
func New(ttl time.Duration) *Store {
	return &Store{
		entries: make(map[string]entry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (s *Store) alive(e entry) bool {
	return e.expiresAt.IsZero() || s.now().Before(e.expiresAt)
}

// Get returns a copy of the value stored under key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[key]
	if !ok || !s.alive(e) {
		return nil, entity.ErrEntryNotFound
	}

	return append([]byte(nil), e.value...), nil
}

// Set stores value under key, keeping the remaining lifetime of a live entry.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok || !s.alive(e) {
		e = entry{}
		if s.ttl > 0 {
			e.expiresAt = s.now().Add(s.ttl)
		}
	}

	e.value = append([]byte(nil), value...)
	s.entries[key] = e

	return nil
}

// ExtendTTL sets the lifetime of key to extendTo when less than threshold remains.
// Missing keys and keys without expiry are left alone.
func (s *Store) ExtendTTL(ctx context.Context, key string, threshold, extendTo time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok || !s.alive(e) || e.expiresAt.IsZero() {
		return nil
	}

	now := s.now()
	if e.expiresAt.Sub(now) < threshold {
		e.expiresAt = now.Add(extendTo)
		s.entries[key] = e
	}

	return nil
}

// TTL returns the remaining lifetime of key. Entries without expiry report -1.
func (s *Store) TTL(_ context.Context, key string) (time.Duration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[key]
	if !ok || !s.alive(e) {
		return 0, entity.ErrEntryNotFound
	}

	if e.expiresAt.IsZero() {
		return -1, nil
	}

	return e.expiresAt.Sub(s.now()), nil
}
