package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/xid"

	"github.com/sakif/photohunt/internal/apperror"
	"github.com/sakif/photohunt/internal/repository"
)

// VoteStore implements repository.VoteRepository.
type VoteStore struct {
	conn *sql.DB
}

var _ repository.VoteRepository = (*VoteStore)(nil)

func (s *VoteStore) Cast(ctx context.Context, ownerID, photoID string) (bool, error) {
	res, err := s.conn.ExecContext(ctx,
		`INSERT INTO votes (id, owner_user_id, photo_id) VALUES (?, ?, ?)
		 ON CONFLICT (owner_user_id, photo_id) DO NOTHING`,
		xid.New().String(), ownerID, photoID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return false, apperror.NotFound("photo", photoID)
		}
		return false, fmt.Errorf("sqlite: casting vote on %s: %w", photoID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite: casting vote on %s: %w", photoID, err)
	}
	return n == 1, nil
}
