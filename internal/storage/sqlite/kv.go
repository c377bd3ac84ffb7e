package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	dashboard "github.com/eugener/ghdash/internal"
	"github.com/eugener/ghdash/internal/storage"
)

// sizeExpr counts bytes rather than characters so the quota matches len() in Go.
const sizeExpr = `length(CAST(key AS BLOB)) + length(CAST(value AS BLOB))`

// Get returns the value stored under key.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.read.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %q: %w", key, err)
	}
	return value, true, nil
}

// Set upserts key. The size check and the write share one transaction on the
// single writer connection, so concurrent writers cannot overshoot the quota.
func (s *Store) Set(ctx context.Context, key, value string) error {
	tx, err := s.write.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("set %q: begin: %w", key, err)
	}
	defer tx.Rollback()

	if s.maxBytes > 0 {
		var others int64
		err := tx.QueryRowContext(ctx,
			`SELECT COALESCE(SUM(`+sizeExpr+`), 0) FROM kv WHERE key <> ?`, key,
		).Scan(&others)
		if err != nil {
			return fmt.Errorf("set %q: measure: %w", key, err)
		}
		if others+int64(len(key)+len(value)) > s.maxBytes {
			return fmt.Errorf("set %q: %w", key, dashboard.ErrQuotaExceeded)
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}
	return tx.Commit()
}

// Delete removes key if present.
func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.write.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete %q: %w", key, err)
	}
	return nil
}

// Usage reports the number of keys and bytes stored.
func (s *Store) Usage(ctx context.Context) (storage.Usage, error) {
	var u storage.Usage
	err := s.read.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(`+sizeExpr+`), 0) FROM kv`,
	).Scan(&u.Keys, &u.Bytes)
	if err != nil {
		return storage.Usage{}, fmt.Errorf("usage: %w", err)
	}
	return u, nil
}
