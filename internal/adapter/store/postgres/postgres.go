// Package postgres provides a key-value store kept in a PostgreSQL table.
// Expiry is evaluated against the database clock.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/vadimbarashkov/url-registry/internal/entity"
)

type Store struct {
	db  *sqlx.DB
	ttl time.Duration
}

// New creates a Store whose new entries expire after ttl. A zero ttl disables expiry.
func New(db *sqlx.DB, ttl time.Duration) *Store {
	return &Store{
		db:  db,
		ttl: ttl,
	}
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	const op = "adapter.store.postgres.Store.Get"
	const query = `SELECT value FROM kv_entries
		WHERE key = $1 AND (expires_at IS NULL OR expires_at > now())`

	var value []byte

	if err := s.db.GetContext(ctx, &value, query, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, entity.ErrEntryNotFound)
		}

		return nil, fmt.Errorf("%s: failed to get row from kv_entries table: %w", op, err)
	}

	return value, nil
}

// Set upserts value under key. A live entry keeps its expiry, a missing or
// expired one starts over with the store's ttl.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	const op = "adapter.store.postgres.Store.Set"
	const query = `INSERT INTO kv_entries (key, value, expires_at)
		VALUES ($1, $2, CASE WHEN $3::bigint > 0 THEN now() + $3::bigint * interval '1 millisecond' END)
		ON CONFLICT (key) DO UPDATE SET
			value = EXCLUDED.value,
			expires_at = CASE
				WHEN kv_entries.expires_at IS NOT NULL AND kv_entries.expires_at <= now() THEN EXCLUDED.expires_at
				ELSE kv_entries.expires_at
			END`

	if _, err := s.db.ExecContext(ctx, query, key, value, s.ttl.Milliseconds()); err != nil {
		return fmt.Errorf("%s: failed to upsert into kv_entries table: %w", op, err)
	}

	return nil
}

func (s *Store) ExtendTTL(ctx context.Context, key string, threshold, extendTo time.Duration) error {
	const op = "adapter.store.postgres.Store.ExtendTTL"
	const query = `UPDATE kv_entries
		SET expires_at = now() + $3::bigint * interval '1 millisecond'
		WHERE key = $1
			AND expires_at > now()
			AND expires_at < now() + $2::bigint * interval '1 millisecond'`

	if _, err := s.db.ExecContext(ctx, query, key, threshold.Milliseconds(), extendTo.Milliseconds()); err != nil {
		return fmt.Errorf("%s: failed to update kv_entries table row: %w", op, err)
	}

	return nil
}

// DeleteExpired removes entries whose lifetime has run out and returns how many were removed.
func (s *Store) DeleteExpired(ctx context.Context) (int64, error) {
	const op = "adapter.store.postgres.Store.DeleteExpired"
	const query = `DELETE FROM kv_entries WHERE expires_at <= now()`

	res, err := s.db.ExecContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("%s: failed to delete from kv_entries table: %w", op, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: failed to get number of affected rows: %w", op, err)
	}

	return n, nil
}
