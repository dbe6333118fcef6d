package kv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/MohammedShoaib07/campus-care/internal/db"
	"github.com/jmoiron/sqlx"
)

// sqlKV is the kv_entries table access shared by the SQLite and
// PostgreSQL backends.
type sqlKV struct {
	db     *sqlx.DB
	origin string

	// afterWrite runs inside the write transaction; used for NOTIFY.
	afterWrite func(ctx context.Context, tx *sqlx.Tx, key string, deleted bool) error
}

type entryStamp struct {
	Name      string `db:"name"`
	UpdatedAt int64  `db:"updated_at"`
}

func (s *sqlKV) get(ctx context.Context, key string) ([]byte, error) {
	var value string
	query := s.db.Rebind(`SELECT value FROM kv_entries WHERE name = ?`)
	if err := s.db.GetContext(ctx, &value, query, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("kv: get %s: %w", key, err)
	}
	return []byte(value), nil
}

func (s *sqlKV) set(ctx context.Context, key string, value []byte, stamp int64) error {
	query := s.db.Rebind(`
		INSERT INTO kv_entries (name, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (name) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`)
	return db.WithTransaction(ctx, s.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, query, key, string(value), stamp); err != nil {
			return fmt.Errorf("kv: set %s: %w", key, err)
		}
		if s.afterWrite != nil {
			return s.afterWrite(ctx, tx, key, false)
		}
		return nil
	})
}

func (s *sqlKV) delete(ctx context.Context, key string) (bool, error) {
	query := s.db.Rebind(`DELETE FROM kv_entries WHERE name = ?`)
	var deleted bool
	err := db.WithTransaction(ctx, s.db, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, query, key)
		if err != nil {
			return fmt.Errorf("kv: delete %s: %w", key, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("kv: delete %s: %w", key, err)
		}
		deleted = n > 0
		if deleted && s.afterWrite != nil {
			return s.afterWrite(ctx, tx, key, true)
		}
		return nil
	})
	return deleted, err
}

func (s *sqlKV) stamps(ctx context.Context) ([]entryStamp, error) {
	var rows []entryStamp
	if err := s.db.SelectContext(ctx, &rows, `SELECT name, updated_at FROM kv_entries`); err != nil {
		return nil, fmt.Errorf("kv: list stamps: %w", err)
	}
	return rows, nil
}
