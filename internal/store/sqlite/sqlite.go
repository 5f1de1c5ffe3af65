package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/fedichat/livechat-connector/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS room_metadata (
	room       TEXT PRIMARY KEY,
	raw        BLOB NOT NULL,
	fetched_at DATETIME NOT NULL
);
`

// SQLiteStore implements store.MetadataStore for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLite store and applies the schema.
// dbPath is the path to the SQLite database file.
func New(dbPath string) (*SQLiteStore, error) {
	return NewWithSetup(dbPath, func(db *sql.DB) error {
		_, err := db.Exec(schema)
		return err
	})
}

// NewWithSetup creates a new SQLite store and runs a setup function.
// Useful for tests to apply an alternative schema without migrations.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if setup != nil {
		if err := setup(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// GetRoomMetadata returns the cached record for a room.
func (s *SQLiteStore) GetRoomMetadata(ctx context.Context, room string) (*store.RoomMetadataRecord, error) {
	rec := store.RoomMetadataRecord{Room: room}
	err := s.db.QueryRowContext(ctx,
		`SELECT raw, fetched_at FROM room_metadata WHERE room = ?`, room,
	).Scan(&rec.Raw, &rec.FetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get room metadata: %w", err)
	}
	return &rec, nil
}

// PutRoomMetadata inserts or replaces the cached record for a room.
func (s *SQLiteStore) PutRoomMetadata(ctx context.Context, room string, raw []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO room_metadata (room, raw, fetched_at) VALUES (?, ?, ?)
		 ON CONFLICT(room) DO UPDATE SET raw = excluded.raw, fetched_at = excluded.fetched_at`,
		room, raw, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("put room metadata: %w", err)
	}
	return nil
}

// DeleteRoomMetadata removes the cached record for a room.
func (s *SQLiteStore) DeleteRoomMetadata(ctx context.Context, room string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM room_metadata WHERE room = ?`, room)
	if err != nil {
		return fmt.Errorf("delete room metadata: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
