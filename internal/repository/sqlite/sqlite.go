// Package sqlite implements the repository interfaces on SQLite through
// database/sql and the pure Go modernc.org/sqlite driver.
//
// CONNECTION SETTINGS:
// sql.DB is a pool, and SQLite PRAGMAs are per connection. Running
// "PRAGMA foreign_keys=ON" once would only configure whichever connection
// happened to run it, so the PRAGMAs travel in the DSN instead and the
// driver applies them to every connection it opens:
//
//   - foreign_keys(1)    the ON DELETE CASCADE rules below depend on it
//   - journal_mode(WAL)  readers keep working while a sync is writing
//   - busy_timeout(5000) concurrent writers wait instead of failing with
//     SQLITE_BUSY
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	// Registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

// TokenCipher protects provider tokens at rest. Open must accept anything
// Seal produced.
type TokenCipher interface {
	Seal(plaintext string) (string, error)
	Open(value string) (string, error)
}

type plaintextCipher struct{}

func (plaintextCipher) Seal(s string) (string, error) { return s, nil }
func (plaintextCipher) Open(s string) (string, error) { return s, nil }

// DB owns the connection pool and hands out the per-table stores.
type DB struct {
	conn   *sql.DB
	cipher TokenCipher
}

type Option func(*DB)

// WithTokenCipher seals access and refresh tokens before they are written.
func WithTokenCipher(c TokenCipher) Option {
	return func(db *DB) { db.cipher = c }
}

// New opens (creating if needed) the database file at dbPath and runs
// migrations.
func New(dbPath string, opts ...Option) (*DB, error) {
	conn, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	db := &DB{conn: conn, cipher: plaintextCipher{}}
	for _, opt := range opts {
		opt(db)
	}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

func dsn(dbPath string) string {
	sep := "?"
	if strings.Contains(dbPath, "?") {
		sep = "&"
	}
	return dbPath + sep + "_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
}

// Ping checks that the database file is still reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) Users() *UserStore   { return &UserStore{db: db} }
func (db *DB) Graph() *GraphStore  { return &GraphStore{db: db} }
func (db *DB) Photos() *PhotoStore { return &PhotoStore{conn: db.conn} }
func (db *DB) Votes() *VoteStore   { return &VoteStore{conn: db.conn} }
func (db *DB) Themes() *ThemeStore { return &ThemeStore{conn: db.conn} }

// migrate creates the schema. Every statement is idempotent.
//
// Deleting a user cascades to the edges they own, the edges that point at
// them, their photos, the votes on those photos and the votes they cast.
func (db *DB) migrate() error {
	steps := []struct {
		name string
		sql  string
	}{
		{"users", `
			CREATE TABLE IF NOT EXISTS users (
				id                 TEXT PRIMARY KEY,
				external_user_id   TEXT NOT NULL UNIQUE,
				display_name       TEXT NOT NULL DEFAULT '',
				profile_url        TEXT NOT NULL DEFAULT '',
				profile_photo_url  TEXT NOT NULL DEFAULT '',
				access_token       TEXT NOT NULL DEFAULT '',
				refresh_token      TEXT NOT NULL DEFAULT '',
				token_expires_in   INTEGER NOT NULL DEFAULT 0,
				token_expires_at   INTEGER NOT NULL DEFAULT 0,
				created_at         DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at         DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			);`},
		{"edges", `
			CREATE TABLE IF NOT EXISTS directed_user_edges (
				owner_user_id  TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				friend_user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				PRIMARY KEY (owner_user_id, friend_user_id)
			);
			CREATE INDEX IF NOT EXISTS idx_edges_friend ON directed_user_edges(friend_user_id);`},
		{"themes", `
			CREATE TABLE IF NOT EXISTS themes (
				id           TEXT PRIMARY KEY,
				display_name TEXT NOT NULL,
				start        TEXT NOT NULL UNIQUE,
				created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			);`},
		{"photos", `
			CREATE TABLE IF NOT EXISTS photos (
				id                  TEXT PRIMARY KEY,
				owner_user_id       TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				owner_display_name  TEXT NOT NULL DEFAULT '',
				owner_profile_url   TEXT NOT NULL DEFAULT '',
				owner_profile_photo TEXT NOT NULL DEFAULT '',
				theme_id            TEXT NOT NULL REFERENCES themes(id),
				theme_display_name  TEXT NOT NULL DEFAULT '',
				image_path          TEXT NOT NULL DEFAULT '',
				created_at          DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			);
			CREATE INDEX IF NOT EXISTS idx_photos_owner ON photos(owner_user_id);
			CREATE INDEX IF NOT EXISTS idx_photos_theme ON photos(theme_id);`},
		{"votes", `
			CREATE TABLE IF NOT EXISTS votes (
				id            TEXT PRIMARY KEY,
				owner_user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				photo_id      TEXT NOT NULL REFERENCES photos(id) ON DELETE CASCADE,
				UNIQUE (owner_user_id, photo_id)
			);
			CREATE INDEX IF NOT EXISTS idx_votes_photo ON votes(photo_id);`},
	}

	for _, s := range steps {
		if _, err := db.conn.Exec(s.sql); err != nil {
			return fmt.Errorf("creating %s: %w", s.name, err)
		}
	}
	return nil
}

func isForeignKeyViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
