package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/photohunt/internal/apperror"
	"github.com/sakif/photohunt/internal/model"
	"github.com/sakif/photohunt/internal/repository"
)

// PhotoStore implements repository.PhotoRepository.
type PhotoStore struct {
	conn *sql.DB
}

var _ repository.PhotoRepository = (*PhotoStore)(nil)

// photoSelect reads photos with their vote count. Its single placeholder is
// the viewer whose vote sets the voted column.
const photoSelect = `
	SELECT p.id, p.owner_user_id, p.owner_display_name, p.owner_profile_url, p.owner_profile_photo,
		p.theme_id, p.theme_display_name, p.image_path, p.created_at,
		(SELECT COUNT(*) FROM votes v WHERE v.photo_id = p.id),
		EXISTS (SELECT 1 FROM votes v WHERE v.photo_id = p.id AND v.owner_user_id = ?)
	FROM photos p`

func (s *PhotoStore) Create(ctx context.Context, photo *model.Photo) error {
	photo.ID = xid.New().String()
	if photo.Created.IsZero() {
		photo.Created = time.Now().UTC()
	}

	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO photos (id, owner_user_id, owner_display_name, owner_profile_url, owner_profile_photo,
			theme_id, theme_display_name, image_path, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		photo.ID, photo.OwnerUserID, photo.OwnerDisplayName, photo.OwnerProfileURL, photo.OwnerProfilePhoto,
		photo.ThemeID, photo.ThemeDisplayName, photo.ImagePath, photo.Created,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating photo: %w", err)
	}
	return nil
}

func (s *PhotoStore) GetByID(ctx context.Context, id, viewerID string) (*model.Photo, error) {
	p, err := scanPhoto(s.conn.QueryRowContext(ctx, photoSelect+` WHERE p.id = ?`, viewerID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("photo", id)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: getting photo %s: %w", id, err)
	}
	return p, nil
}

// List returns photos matching filter, newest first.
func (s *PhotoStore) List(ctx context.Context, filter repository.PhotoFilter) ([]model.Photo, error) {
	var where []string
	args := []any{filter.ViewerID}

	if filter.OwnerUserID != "" {
		where = append(where, "p.owner_user_id = ?")
		args = append(args, filter.OwnerUserID)
	}
	if filter.ThemeID != "" {
		where = append(where, "p.theme_id = ?")
		args = append(args, filter.ThemeID)
	}

	query := photoSelect
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY p.created_at DESC, p.id"

	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing photos: %w", err)
	}
	defer rows.Close()

	return scanPhotos(rows)
}

// Delete removes the photo and, through the foreign key, its votes.
func (s *PhotoStore) Delete(ctx context.Context, id string) error {
	res, err := s.conn.ExecContext(ctx, `DELETE FROM photos WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting photo %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.NotFound("photo", id)
	}
	return nil
}

func scanPhoto(row rowScanner) (*model.Photo, error) {
	var p model.Photo
	err := row.Scan(
		&p.ID, &p.OwnerUserID, &p.OwnerDisplayName, &p.OwnerProfileURL, &p.OwnerProfilePhoto,
		&p.ThemeID, &p.ThemeDisplayName, &p.ImagePath, &p.Created,
		&p.NumVotes, &p.Voted,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func scanPhotos(rows *sql.Rows) ([]model.Photo, error) {
	photos := []model.Photo{}
	for rows.Next() {
		p, err := scanPhoto(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning photo: %w", err)
		}
		photos = append(photos, *p)
	}
	return photos, rows.Err()
}
