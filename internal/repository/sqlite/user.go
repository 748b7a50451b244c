package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/photohunt/internal/apperror"
	"github.com/sakif/photohunt/internal/model"
	"github.com/sakif/photohunt/internal/repository"
)

// UserStore implements repository.UserRepository.
type UserStore struct {
	db *DB
}

var _ repository.UserRepository = (*UserStore)(nil)

const userColumns = `id, external_user_id, display_name, profile_url, profile_photo_url,
	access_token, refresh_token, token_expires_in, token_expires_at, created_at, updated_at`

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func (s *UserStore) GetByID(ctx context.Context, id string) (*model.User, error) {
	u, err := s.scan(s.db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("user", id)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: getting user %s: %w", id, err)
	}
	return u, nil
}

func (s *UserStore) GetByExternalID(ctx context.Context, externalID string) (*model.User, error) {
	u, err := s.scan(s.db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE external_user_id = ?`, externalID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("user", externalID)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: getting user by external id %s: %w", externalID, err)
	}
	return u, nil
}

// Save inserts a new user or updates an existing one in place. A user
// without an ID is matched on its external id, so two first connects for the
// same account end up on one row. The caller's struct receives the stored ID
// and timestamps.
func (s *UserStore) Save(ctx context.Context, user *model.User) error {
	access, err := s.db.cipher.Seal(user.AccessToken)
	if err != nil {
		return fmt.Errorf("sqlite: sealing access token: %w", err)
	}
	refresh, err := s.db.cipher.Seal(user.RefreshToken)
	if err != nil {
		return fmt.Errorf("sqlite: sealing refresh token: %w", err)
	}

	now := time.Now().UTC()

	if user.ID == "" {
		return s.upsert(ctx, user, access, refresh, now)
	}

	user.UpdatedAt = now
	res, err := s.db.conn.ExecContext(ctx,
		`UPDATE users SET external_user_id = ?, display_name = ?, profile_url = ?, profile_photo_url = ?,
			access_token = ?, refresh_token = ?, token_expires_in = ?, token_expires_at = ?, updated_at = ?
		 WHERE id = ?`,
		user.ExternalUserID, user.DisplayName, user.ProfileURL, user.ProfilePhotoURL,
		access, refresh, user.TokenExpiresIn, user.TokenExpiresAt, user.UpdatedAt,
		user.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating user %s: %w", user.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.NotFound("user", user.ID)
	}
	return nil
}

// upsert inserts user, or updates the row that already holds its external id.
// An empty refresh token keeps the stored one.
func (s *UserStore) upsert(ctx context.Context, user *model.User, access, refresh string, now time.Time) error {
	var storedRefresh string
	err := s.db.conn.QueryRowContext(ctx,
		`INSERT INTO users (`+userColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(external_user_id) DO UPDATE SET
			display_name = excluded.display_name,
			profile_url = excluded.profile_url,
			profile_photo_url = excluded.profile_photo_url,
			access_token = excluded.access_token,
			refresh_token = CASE WHEN excluded.refresh_token = '' THEN users.refresh_token ELSE excluded.refresh_token END,
			token_expires_in = excluded.token_expires_in,
			token_expires_at = excluded.token_expires_at,
			updated_at = excluded.updated_at
		 RETURNING id, refresh_token, created_at`,
		xid.New().String(), user.ExternalUserID, user.DisplayName, user.ProfileURL, user.ProfilePhotoURL,
		access, refresh, user.TokenExpiresIn, user.TokenExpiresAt, now, now,
	).Scan(&user.ID, &storedRefresh, &user.CreatedAt)
	if err != nil {
		return fmt.Errorf("sqlite: upserting user (externalID=%s): %w", user.ExternalUserID, err)
	}
	user.UpdatedAt = now

	if user.RefreshToken, err = s.db.cipher.Open(storedRefresh); err != nil {
		return fmt.Errorf("sqlite: opening refresh token of user %s: %w", user.ID, err)
	}
	return nil
}

// Delete removes the user. Foreign keys cascade to edges, photos and votes.
func (s *UserStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.conn.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting user %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.NotFound("user", id)
	}
	return nil
}

func (s *UserStore) scan(row rowScanner) (*model.User, error) {
	var u model.User
	var access, refresh string
	err := row.Scan(
		&u.ID, &u.ExternalUserID, &u.DisplayName, &u.ProfileURL, &u.ProfilePhotoURL,
		&access, &refresh, &u.TokenExpiresIn, &u.TokenExpiresAt, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return s.db.openTokens(&u, access, refresh)
}

func (db *DB) openTokens(u *model.User, access, refresh string) (*model.User, error) {
	var err error
	if u.AccessToken, err = db.cipher.Open(access); err != nil {
		return nil, fmt.Errorf("opening access token of user %s: %w", u.ID, err)
	}
	if u.RefreshToken, err = db.cipher.Open(refresh); err != nil {
		return nil, fmt.Errorf("opening refresh token of user %s: %w", u.ID, err)
	}
	return u, nil
}
