// Package configstore implements C1: a persistent keyed blob store of each
// moderated community's active flair configuration, backed by a single
// embedded SQLite file. It is grounded on the database open/init idiom the
// pack's jra3-linear-fuse repo uses (file: URI, WAL mode, embedded schema),
// adapted to a single-writer coarse-lock store rather than a read-heavy
// cache.
package configstore

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/flair-helper/flairhelper/internal/flairconfig"
	"github.com/flair-helper/flairhelper/pkg/logger"
)

//go:embed schema.sql
var schemaSQL string

var log = logger.New("configstore")

// Store is the Config Store (C1). A single *sql.DB with SetMaxOpenConns(1)
// serializes all database access; Put additionally holds mu so that
// concurrent writers run one at a time.
type Store struct {
	db *sql.DB
	mu sync.Mutex // serializes Put calls
}

// Open opens or creates the config store at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create config store directory: %w", err)
		}
	}

	escapedPath := strings.ReplaceAll(path, " ", "%20")
	db, err := sql.Open("sqlite", "file:"+escapedPath+"?_time_format=sqlite")
	if err != nil {
		return nil, fmt.Errorf("open config store: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize config store schema: %w", err)
	}

	log.Printf("config store opened: path=%s", path)
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the active configuration for community, or nil if none has
// ever been ingested (the "absent" state of invariant I1).
func (s *Store) Get(ctx context.Context, community string) (*flairconfig.Config, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT config FROM configs WHERE subreddit = ?`, community).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get config for %s: %w", community, err)
	}
	cfg, err := flairconfig.UnmarshalCanonical([]byte(raw))
	if err != nil {
		return nil, fmt.Errorf("parse stored config for %s: %w", community, err)
	}
	return cfg, nil
}

// Put upserts community's active configuration, atomically. Callers that
// need diff-before-write semantics (the ingestor) should call Get first and
// compare with flairconfig.Equal; Put itself always writes.
func (s *Store) Put(ctx context.Context, community string, cfg *flairconfig.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := cfg.MarshalCanonical()
	if err != nil {
		return fmt.Errorf("marshal config for %s: %w", community, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO configs (subreddit, config, updated_at)
		VALUES (?, ?, strftime('%s','now'))
		ON CONFLICT(subreddit) DO UPDATE SET config = excluded.config, updated_at = excluded.updated_at
	`, community, string(raw))
	if err != nil {
		return fmt.Errorf("put config for %s: %w", community, err)
	}
	log.Printf("config updated: community=%s", community)
	return nil
}

// ListCommunities returns every community with a stored configuration.
func (s *Store) ListCommunities(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT subreddit FROM configs ORDER BY subreddit`)
	if err != nil {
		return nil, fmt.Errorf("list communities: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan community name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Empty reports whether the store has no configurations at all.
func (s *Store) Empty(ctx context.Context) (bool, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM configs`).Scan(&count); err != nil {
		return false, fmt.Errorf("count configs: %w", err)
	}
	return count == 0, nil
}
