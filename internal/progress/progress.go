// Package progress provides a PostgreSQL-backed playback position store.
package progress

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/mediahub/mediahub/internal/metrics"
)

// Record is a saved playback position for one user and media file.
type Record struct {
	UserID    string    `json:"user_id"`
	MediaPath string    `json:"media_path"`
	Position  float64   `json:"position"`
	Duration  float64   `json:"duration"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store persists playback positions in PostgreSQL.
type Store struct {
	db *sql.DB
}

// New opens a connection pool and verifies connectivity.
func New(databaseURL string) (*Store, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewWithDB wraps an existing connection, used by tests.
func NewWithDB(db *sql.DB) *Store {
	return &Store{db: db}
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS playback_progress (
			user_id    TEXT NOT NULL,
			media_path TEXT NOT NULL,
			position   DOUBLE PRECISION NOT NULL,
			duration   DOUBLE PRECISION NOT NULL DEFAULT 0,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (user_id, media_path)
		)`)
	if err != nil {
		return fmt.Errorf("migrate playback_progress: %w", err)
	}
	return nil
}

// Save upserts the playback position for a user and media path.
func (s *Store) Save(ctx context.Context, userID, mediaPath string, position, duration float64) error {
	start := time.Now()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO playback_progress (user_id, media_path, position, duration, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (user_id, media_path)
		DO UPDATE SET position = $3, duration = $4, updated_at = now()`,
		userID, mediaPath, position, duration)
	metrics.RecordDBQuery("progress_save", time.Since(start))
	if err != nil {
		return fmt.Errorf("save progress: %w", err)
	}
	return nil
}

// Get returns the saved position for a user and media path, or
// sql.ErrNoRows when none exists.
func (s *Store) Get(ctx context.Context, userID, mediaPath string) (*Record, error) {
	start := time.Now()
	var rec Record
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, media_path, position, duration, updated_at
		FROM playback_progress
		WHERE user_id = $1 AND media_path = $2`,
		userID, mediaPath).Scan(&rec.UserID, &rec.MediaPath, &rec.Position, &rec.Duration, &rec.UpdatedAt)
	metrics.RecordDBQuery("progress_get", time.Since(start))
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListForUser returns all saved positions for a user, most recent first.
func (s *Store) ListForUser(ctx context.Context, userID string) ([]Record, error) {
	start := time.Now()
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, media_path, position, duration, updated_at
		FROM playback_progress
		WHERE user_id = $1
		ORDER BY updated_at DESC`, userID)
	metrics.RecordDBQuery("progress_list", time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("list progress: %w", err)
	}
	defer rows.Close()

	var recs []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.UserID, &rec.MediaPath, &rec.Position, &rec.Duration, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan progress: %w", err)
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}
