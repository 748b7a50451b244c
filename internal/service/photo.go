package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/photohunt/internal/apperror"
	"github.com/sakif/photohunt/internal/model"
	"github.com/sakif/photohunt/internal/repository"
)

// MeUserID stands for the session user in photo queries.
const MeUserID = "me"

// PhotoQuery mirrors the filters of the photo listing endpoint.
type PhotoQuery struct {
	UserID   string // owner id, or MeUserID
	ThemeID  string
	Friends  bool   // photos of UserID's friends instead of UserID's own
	ViewerID string // session user, empty when anonymous
}

// PhotoService lists, deletes and votes on photos.
type PhotoService struct {
	photos repository.PhotoRepository
	votes  repository.VoteRepository
	users  repository.UserRepository
	graph  repository.GraphRepository
	logger *slog.Logger
}

func NewPhotoService(
	photos repository.PhotoRepository,
	votes repository.VoteRepository,
	users repository.UserRepository,
	graph repository.GraphRepository,
	logger *slog.Logger,
) *PhotoService {
	return &PhotoService{
		photos: photos,
		votes:  votes,
		users:  users,
		graph:  graph,
		logger: logger,
	}
}

// Get returns one photo with Voted set for viewerID.
func (s *PhotoService) Get(ctx context.Context, photoID, viewerID string) (*model.Photo, error) {
	photoID = strings.TrimSpace(photoID)
	if photoID == "" {
		return nil, apperror.ValidationFailed("photoId", "photo ID is required")
	}
	return s.photos.GetByID(ctx, photoID, viewerID)
}

// List resolves a PhotoQuery.
//
//   - UserID "me" and Friends both need a session user.
//   - Friends lists photos owned by the user's friends.
//   - ThemeID narrows any of the above; on its own it lists the theme.
//   - With neither UserID nor ThemeID the result is empty.
func (s *PhotoService) List(ctx context.Context, q PhotoQuery) ([]model.Photo, error) {
	ownerID := q.UserID
	if ownerID == MeUserID || q.Friends {
		if q.ViewerID == "" {
			return nil, apperror.Unauthorized()
		}
	}
	if ownerID == MeUserID {
		ownerID = q.ViewerID
	}

	if ownerID == "" {
		if q.ThemeID == "" {
			return []model.Photo{}, nil
		}
		return s.list(ctx, repository.PhotoFilter{ThemeID: q.ThemeID, ViewerID: q.ViewerID})
	}

	if _, err := s.users.GetByID(ctx, ownerID); err != nil {
		return nil, err
	}

	if !q.Friends {
		return s.list(ctx, repository.PhotoFilter{OwnerUserID: ownerID, ThemeID: q.ThemeID, ViewerID: q.ViewerID})
	}

	photos, err := s.graph.FriendPhotos(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("service/photo: listing friend photos of %s: %w", ownerID, err)
	}
	if q.ThemeID == "" {
		return photos, nil
	}
	filtered := photos[:0]
	for _, p := range photos {
		if p.ThemeID == q.ThemeID {
			filtered = append(filtered, p)
		}
	}
	return filtered, nil
}

func (s *PhotoService) list(ctx context.Context, f repository.PhotoFilter) ([]model.Photo, error) {
	photos, err := s.photos.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("service/photo: listing photos: %w", err)
	}
	return photos, nil
}

// Delete removes a photo owned by userID. Photos that do not exist and
// photos owned by someone else are both reported as not found.
func (s *PhotoService) Delete(ctx context.Context, photoID, userID string) error {
	if userID == "" {
		return apperror.Unauthorized()
	}

	photo, err := s.photos.GetByID(ctx, photoID, userID)
	if err != nil && !errors.Is(err, apperror.ErrNotFound) {
		return err
	}
	if err != nil || photo.OwnerUserID != userID {
		return photoNotFound()
	}

	if err := s.photos.Delete(ctx, photoID); err != nil {
		return err
	}
	s.logger.Info("photo deleted", slog.String("photoID", photoID), slog.String("userID", userID))
	return nil
}

// Vote records userID's vote on photoID and returns the photo as userID now
// sees it. Voting again changes nothing.
func (s *PhotoService) Vote(ctx context.Context, photoID, userID string) (*model.Photo, error) {
	if userID == "" {
		return nil, apperror.Unauthorized()
	}
	photoID = strings.TrimSpace(photoID)
	if photoID == "" {
		return nil, apperror.ValidationFailed("photoId", "photo ID is required")
	}

	if _, err := s.photos.GetByID(ctx, photoID, userID); err != nil {
		return nil, err
	}

	created, err := s.votes.Cast(ctx, userID, photoID)
	if err != nil {
		return nil, err
	}
	if created {
		s.logger.Info("vote cast", slog.String("photoID", photoID), slog.String("userID", userID))
	}

	return s.photos.GetByID(ctx, photoID, userID)
}

func photoNotFound() *apperror.AppError {
	return &apperror.AppError{
		Err:     apperror.ErrNotFound,
		Kind:    apperror.KindNotFound,
		Message: "Photo with given ID does not exist",
	}
}
