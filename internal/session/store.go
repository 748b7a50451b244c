// Package session keeps server-side sessions: an opaque session id mapped to
// the id of the user who connected in that session.
//
// Two stores are provided. MemoryStore suits a single server process;
// RedisStore lets several processes share sessions.
package session

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("session: not found")

type Store interface {
	// Save binds id to userID until ttl elapses.
	Save(ctx context.Context, id, userID string, ttl time.Duration) error
	// Get returns the user bound to id, or ErrNotFound.
	Get(ctx context.Context, id string) (string, error)
	// Delete removes id. Deleting an unknown id is not an error.
	Delete(ctx context.Context, id string) error
	Close() error
}
