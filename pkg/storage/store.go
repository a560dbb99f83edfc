// Package storage persists profile snapshots and their pictures. The
// snapshot table backs the cache-fallback path: when live retrieval is
// exhausted, the most recent snapshot for a handle is served instead.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"igprofile/pkg/instagram"
	"igprofile/pkg/logger"
)

// ErrNoSnapshot is returned when a handle has never been snapshotted
var ErrNoSnapshot = errors.New("no snapshot for profile")

const schema = `
CREATE TABLE IF NOT EXISTS profile_snapshots (
	id                  INTEGER PRIMARY KEY AUTOINCREMENT,
	username            TEXT NOT NULL,
	full_name           TEXT NOT NULL DEFAULT '',
	biography           TEXT NOT NULL DEFAULT '',
	followers           INTEGER NOT NULL DEFAULT 0,
	profile_picture_url TEXT NOT NULL DEFAULT '',
	profile_image_path  TEXT NOT NULL DEFAULT '',
	scraped_at          TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_snapshots_username
	ON profile_snapshots (username, scraped_at DESC);
`

// Store wraps the snapshot database
type Store struct {
	db     *sql.DB
	logger logger.Logger
}

// Open creates (or opens) the snapshot database at path and applies
// the schema.
func Open(path string, log logger.Logger) (*Store, error) {
	if log == nil {
		log = logger.GetLogger()
	}

	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{db: db, logger: log}, nil
}

// OpenMemory opens an in-memory store. Intended for tests.
func OpenMemory(log logger.Logger) (*Store, error) {
	if log == nil {
		log = logger.GetLogger()
	}

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// each connection would get its own in-memory database
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &Store{db: db, logger: log}, nil
}

// Close closes the underlying database
func (s *Store) Close() error {
	return s.db.Close()
}

// Save appends a snapshot row for a freshly retrieved profile
func (s *Store) Save(ctx context.Context, profile *instagram.Profile) error {
	scrapedAt := profile.ScrapedAt
	if scrapedAt.IsZero() {
		scrapedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO profile_snapshots
			(username, full_name, biography, followers, profile_picture_url, profile_image_path, scraped_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		profile.Username, profile.FullName, profile.Biography,
		profile.Followers, profile.ProfilePictureURL, profile.ProfileImagePath,
		scrapedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}

	s.logger.DebugWithFields("snapshot saved", map[string]interface{}{
		"username":  profile.Username,
		"followers": profile.Followers,
	})
	return nil
}

// Latest returns the most recent snapshot for a handle, marked as a
// cache hit.
func (s *Store) Latest(ctx context.Context, username string) (*instagram.Profile, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT username, full_name, biography, followers, profile_picture_url, profile_image_path, scraped_at
		FROM profile_snapshots
		WHERE username = ?
		ORDER BY scraped_at DESC
		LIMIT 1`, username)

	var profile instagram.Profile
	err := row.Scan(
		&profile.Username, &profile.FullName, &profile.Biography,
		&profile.Followers, &profile.ProfilePictureURL, &profile.ProfileImagePath,
		&profile.ScrapedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}

	profile.IsCached = true
	return &profile, nil
}

// History returns up to limit snapshots for a handle, newest first
func (s *Store) History(ctx context.Context, username string, limit int) ([]*instagram.Profile, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT username, full_name, biography, followers, profile_picture_url, profile_image_path, scraped_at
		FROM profile_snapshots
		WHERE username = ?
		ORDER BY scraped_at DESC
		LIMIT ?`, username, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []*instagram.Profile
	for rows.Next() {
		var profile instagram.Profile
		if err := rows.Scan(
			&profile.Username, &profile.FullName, &profile.Biography,
			&profile.Followers, &profile.ProfilePictureURL, &profile.ProfileImagePath,
			&profile.ScrapedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		profile.IsCached = true
		snapshots = append(snapshots, &profile)
	}
	return snapshots, rows.Err()
}

// Prune deletes snapshots older than the cutoff, returning the number
// removed.
func (s *Store) Prune(ctx context.Context, olderThan time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM profile_snapshots WHERE scraped_at < ?`, olderThan)
	if err != nil {
		return 0, fmt.Errorf("failed to prune snapshots: %w", err)
	}
	return result.RowsAffected()
}
