package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/mulefind/internal/models"
	"github.com/hyperjump/mulefind/internal/query"
)

// SQLiteStore implements KnownStore using SQLite.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Every pooled connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStore{db: db, now: time.Now}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS known_files (
		hash TEXT NOT NULL,
		size INTEGER NOT NULL,
		name TEXT NOT NULL,
		sources INTEGER NOT NULL DEFAULT 0,
		network TEXT NOT NULL DEFAULT '',
		path TEXT,
		extra TEXT,
		first_seen TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		last_seen TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		seen_count INTEGER NOT NULL DEFAULT 1,
		PRIMARY KEY (hash, size, name)
	);

	CREATE INDEX IF NOT EXISTS idx_known_last_seen ON known_files(last_seen);
	CREATE INDEX IF NOT EXISTS idx_known_path ON known_files(path);
	`
	_, err := db.Exec(schema)
	return err
}

// Track upserts hits in one transaction. Re-tracking a hit refreshes its sources,
// network and last_seen and bumps seen_count.
func (s *SQLiteStore) Track(ctx context.Context, hits []*models.Hit) error {
	if len(hits) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO known_files (hash, size, name, sources, network, path, extra, first_seen, last_seen, seen_count)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 1)
		 ON CONFLICT(hash, size, name) DO UPDATE SET
			sources = excluded.sources,
			network = excluded.network,
			path = COALESCE(excluded.path, known_files.path),
			extra = excluded.extra,
			last_seen = excluded.last_seen,
			seen_count = known_files.seen_count + 1`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := s.now()
	for _, h := range hits {
		if h == nil {
			continue
		}
		extra, path, err := encodeExtra(h.Extra)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, h.Hash, h.Size, h.Name, h.Sources, h.Network, path, extra, now, now); err != nil {
			return fmt.Errorf("failed to track %s: %w", h.Name, err)
		}
	}
	return tx.Commit()
}

// encodeExtra splits the path out of extra and marshals the rest.
func encodeExtra(extra map[string]interface{}) (sql.NullString, sql.NullString, error) {
	var path sql.NullString
	rest := make(map[string]interface{}, len(extra))
	for k, v := range extra {
		if p, ok := v.(string); ok && k == PathKey {
			path = sql.NullString{String: p, Valid: p != ""}
			continue
		}
		rest[k] = v
	}
	if len(rest) == 0 {
		return sql.NullString{}, path, nil
	}
	b, err := json.Marshal(rest)
	if err != nil {
		return sql.NullString{}, path, fmt.Errorf("failed to marshal extra: %w", err)
	}
	return sql.NullString{String: string(b), Valid: true}, path, nil
}

const selectKnown = `SELECT hash, size, name, sources, network, path, extra FROM known_files`

// Search scans known files newest first and keeps those matching q.
func (s *SQLiteStore) Search(ctx context.Context, q *query.Query, limit int) ([]*models.Hit, error) {
	rows, err := s.db.QueryContext(ctx, selectKnown+` ORDER BY last_seen DESC, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hits []*models.Hit
	for rows.Next() {
		h, err := scanHit(rows)
		if err != nil {
			return nil, err
		}
		if !q.Match(h.Name) {
			continue
		}
		hits = append(hits, h)
		if limit > 0 && len(hits) >= limit {
			break
		}
	}
	return hits, rows.Err()
}

// List returns known files with offset and limit, newest first.
func (s *SQLiteStore) List(ctx context.Context, offset, limit int) ([]*models.Hit, error) {
	rows, err := s.db.QueryContext(ctx,
		selectKnown+` ORDER BY last_seen DESC, name LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hits []*models.Hit
	for rows.Next() {
		h, err := scanHit(rows)
		if err != nil {
			return nil, err
		}
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

func scanHit(rows *sql.Rows) (*models.Hit, error) {
	var h models.Hit
	var path, extra sql.NullString
	if err := rows.Scan(&h.Hash, &h.Size, &h.Name, &h.Sources, &h.Network, &path, &extra); err != nil {
		return nil, err
	}
	if extra.Valid && extra.String != "" {
		if err := json.Unmarshal([]byte(extra.String), &h.Extra); err != nil {
			return nil, fmt.Errorf("failed to unmarshal extra: %w", err)
		}
	}
	if path.Valid {
		if h.Extra == nil {
			h.Extra = make(map[string]interface{})
		}
		h.Extra[PathKey] = path.String
	}
	return &h, nil
}

// Count returns the number of known files.
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM known_files`).Scan(&count)
	return count, err
}

// RemovePath deletes entries recorded for path and returns how many were removed.
func (s *SQLiteStore) RemovePath(ctx context.Context, path string) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM known_files WHERE path = ?`, path)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
