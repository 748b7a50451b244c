package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/sakif/photohunt/internal/model"
	"github.com/sakif/photohunt/internal/repository"
)

// GraphStore implements repository.GraphRepository and hands out dedicated
// sessions to background syncs.
type GraphStore struct {
	db *DB
}

var (
	_ repository.GraphRepository     = (*GraphStore)(nil)
	_ repository.GraphSessionFactory = (*GraphStore)(nil)
	_ repository.GraphSession        = (*graphSession)(nil)
)

// execer is satisfied by *sql.DB and *sql.Conn.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *GraphStore) FriendIDs(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.db.conn.QueryContext(ctx,
		`SELECT friend_user_id FROM directed_user_edges WHERE owner_user_id = ? ORDER BY friend_user_id`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing friend ids of %s: %w", userID, err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("sqlite: scanning friend id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *GraphStore) Friends(ctx context.Context, userID string) ([]model.User, error) {
	rows, err := s.db.conn.QueryContext(ctx,
		`SELECT `+prefixed("u", userColumns)+`
		 FROM directed_user_edges e
		 JOIN users u ON u.id = e.friend_user_id
		 WHERE e.owner_user_id = ?
		 ORDER BY u.display_name, u.id`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing friends of %s: %w", userID, err)
	}
	defer rows.Close()

	users := &UserStore{db: s.db}
	friends := []model.User{}
	for rows.Next() {
		u, err := users.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning friend: %w", err)
		}
		friends = append(friends, *u)
	}
	return friends, rows.Err()
}

func (s *GraphStore) FriendPhotos(ctx context.Context, userID string) ([]model.Photo, error) {
	rows, err := s.db.conn.QueryContext(ctx,
		photoSelect+`
		 JOIN directed_user_edges e ON e.friend_user_id = p.owner_user_id
		 WHERE e.owner_user_id = ?
		 ORDER BY p.created_at DESC, p.id`,
		userID, userID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing friend photos of %s: %w", userID, err)
	}
	defer rows.Close()

	return scanPhotos(rows)
}

func (s *GraphStore) UpsertEdge(ctx context.Context, ownerID, friendID string) error {
	return upsertEdge(ctx, s.db.conn, ownerID, friendID)
}

// Acquire reserves a pool connection for one sync. The session must be
// released.
func (s *GraphStore) Acquire(ctx context.Context) (repository.GraphSession, error) {
	conn, err := s.db.conn.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("sqlite: acquiring connection: %w", err)
	}
	return &graphSession{conn: conn}, nil
}

type graphSession struct {
	conn *sql.Conn
}

// idBatch keeps IN lists well under SQLite's bound parameter limit.
const idBatch = 500

func (g *graphSession) UserIDsByExternalIDs(ctx context.Context, externalIDs []string) ([]string, error) {
	ids := make([]string, 0, len(externalIDs))
	for start := 0; start < len(externalIDs); start += idBatch {
		batch := externalIDs[start:min(start+idBatch, len(externalIDs))]

		args := make([]any, len(batch))
		for i, id := range batch {
			args[i] = id
		}
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(batch)), ",")

		found, err := queryStrings(ctx, g.conn,
			`SELECT id FROM users WHERE external_user_id IN (`+placeholders+`)`, args...)
		if err != nil {
			return nil, fmt.Errorf("sqlite: resolving external ids: %w", err)
		}
		ids = append(ids, found...)
	}
	return ids, nil
}

func (g *graphSession) UpsertEdge(ctx context.Context, ownerID, friendID string) error {
	return upsertEdge(ctx, g.conn, ownerID, friendID)
}

func (g *graphSession) Release() error {
	return g.conn.Close()
}

func upsertEdge(ctx context.Context, db execer, ownerID, friendID string) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO directed_user_edges (owner_user_id, friend_user_id) VALUES (?, ?)
		 ON CONFLICT (owner_user_id, friend_user_id) DO NOTHING`,
		ownerID, friendID)
	if err != nil {
		return fmt.Errorf("sqlite: upserting edge %s -> %s: %w", ownerID, friendID, err)
	}
	return nil
}

func queryStrings(ctx context.Context, db execer, query string, args ...any) ([]string, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// prefixed qualifies each column in a comma separated list with alias.
func prefixed(alias, columns string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = alias + "." + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}
