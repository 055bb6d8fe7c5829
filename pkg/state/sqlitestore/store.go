// Package sqlitestore implements state.Store on SQLite.
package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/goliatone/go-assoc/pkg/state"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Store keeps one row per node in the assoc_nodes table.
type Store struct {
	db *sql.DB
}

// Open opens the database at path and creates the schema. Use ":memory:"
// for a private in-memory database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: open: %w", err)
	}
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlitestore: ping: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlitestore: enable WAL: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlitestore: migrate: %w", err)
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS assoc_nodes (
		type TEXT NOT NULL,
		id TEXT NOT NULL,
		attrs JSON NOT NULL,
		etag TEXT NOT NULL,
		updated_at DATETIME NOT NULL,
		PRIMARY KEY (type, id)
	);`)
	return err
}

func (s *Store) Load(ctx context.Context, ref state.Ref) (map[string]any, state.Meta, bool, error) {
	if _, err := ref.Identifier(); err != nil {
		return nil, state.Meta{}, false, err
	}
	var (
		raw  []byte
		meta state.Meta
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT attrs, etag, updated_at FROM assoc_nodes WHERE type = ? AND id = ?`,
		ref.Type, ref.ID,
	).Scan(&raw, &meta.ETag, &meta.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, state.Meta{}, false, nil
	}
	if err != nil {
		return nil, state.Meta{}, false, fmt.Errorf("sqlitestore: load %s/%s: %w", ref.Type, ref.ID, err)
	}
	var attrs map[string]any
	if err := json.Unmarshal(raw, &attrs); err != nil {
		return nil, state.Meta{}, false, fmt.Errorf("sqlitestore: decode %s/%s: %w", ref.Type, ref.ID, err)
	}
	return attrs, meta, true, nil
}

func (s *Store) Save(ctx context.Context, ref state.Ref, attrs map[string]any, meta state.Meta) (state.Meta, error) {
	if _, err := ref.Identifier(); err != nil {
		return state.Meta{}, err
	}
	raw, err := json.Marshal(attrs)
	if err != nil {
		return state.Meta{}, fmt.Errorf("sqlitestore: encode %s/%s: %w", ref.Type, ref.ID, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return state.Meta{}, err
	}
	defer tx.Rollback()

	var stored string
	err = tx.QueryRowContext(ctx, `SELECT etag FROM assoc_nodes WHERE type = ? AND id = ?`, ref.Type, ref.ID).Scan(&stored)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return state.Meta{}, err
	default:
		if err := state.CheckETag(meta.ETag, stored); err != nil {
			return state.Meta{}, err
		}
	}

	saved := meta
	saved.ETag = uuid.NewString()
	saved.UpdatedAt = time.Now().UTC()
	_, err = tx.ExecContext(ctx, `
	INSERT INTO assoc_nodes (type, id, attrs, etag, updated_at) VALUES (?, ?, ?, ?, ?)
	ON CONFLICT (type, id) DO UPDATE SET attrs = excluded.attrs, etag = excluded.etag, updated_at = excluded.updated_at`,
		ref.Type, ref.ID, raw, saved.ETag, saved.UpdatedAt,
	)
	if err != nil {
		return state.Meta{}, fmt.Errorf("sqlitestore: save %s/%s: %w", ref.Type, ref.ID, err)
	}
	if err := tx.Commit(); err != nil {
		return state.Meta{}, err
	}
	return saved, nil
}

func (s *Store) Delete(ctx context.Context, ref state.Ref) error {
	if _, err := ref.Identifier(); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM assoc_nodes WHERE type = ? AND id = ?`, ref.Type, ref.ID)
	if err != nil {
		return fmt.Errorf("sqlitestore: delete %s/%s: %w", ref.Type, ref.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return state.ErrNotFound
	}
	return nil
}

var _ state.Store = (*Store)(nil)
