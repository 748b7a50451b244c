package handler

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"

	"github.com/sakif/photohunt/internal/auth"
	"github.com/sakif/photohunt/internal/model"
	"github.com/sakif/photohunt/internal/service"
)

// PhotoService is implemented by *service.PhotoService.
type PhotoService interface {
	Get(ctx context.Context, photoID, viewerID string) (*model.Photo, error)
	List(ctx context.Context, q service.PhotoQuery) ([]model.Photo, error)
	Delete(ctx context.Context, photoID, userID string) error
	Vote(ctx context.Context, photoID, userID string) (*model.Photo, error)
}

type PhotoHandler struct {
	photos PhotoService
	logger *slog.Logger
}

func NewPhotoHandler(photos PhotoService, logger *slog.Logger) *PhotoHandler {
	return &PhotoHandler{photos: photos, logger: logger}
}

// HandleList returns one photo or a list of photos.
//
// HTTP: GET /api/photos
//
//	?photoId=ID                  one photo
//	?themeId=ID                  photos for a theme
//	?userId=ID|me                photos by a user ("me" needs a session)
//	?userId=...&friends=true     photos by that user's friends (needs a session)
//
// themeId combines with userId and friends.
func (h *PhotoHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	viewerID, _ := auth.UserIDFromContext(r.Context())

	if photoID := q.Get("photoId"); photoID != "" {
		photo, err := h.photos.Get(r.Context(), photoID, viewerID)
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, model.NewPhotoView(photo, baseURL(r)))
		return
	}

	photos, err := h.photos.List(r.Context(), service.PhotoQuery{
		UserID:   q.Get("userId"),
		ThemeID:  q.Get("themeId"),
		Friends:  q.Get("friends") == "true",
		ViewerID: viewerID,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, model.NewPhotoViews(photos, baseURL(r)))
}

// HandleDelete deletes a photo the caller owns.
//
// HTTP: DELETE /api/photos?photoId=ID
// Auth: required
func (h *PhotoHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	if err := h.photos.Delete(r.Context(), r.URL.Query().Get("photoId"), userID); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, "Photo successfully deleted")
}

// photoRef accepts ids sent either as JSON strings or numbers.
type photoRef string

func (p *photoRef) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*p = ""
		return nil
	}
	*p = photoRef(bytes.Trim(b, `"`))
	return nil
}

type voteRequest struct {
	PhotoID photoRef `json:"photoId"`
}

// HandleVote records the caller's vote and returns the photo with voted set.
//
// HTTP: PUT /api/votes {"photoId": ID}
// Auth: required
func (h *PhotoHandler) HandleVote(w http.ResponseWriter, r *http.Request) {
	var req voteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	userID, _ := auth.UserIDFromContext(r.Context())
	photo, err := h.photos.Vote(r.Context(), string(req.PhotoID), userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, model.NewPhotoView(photo, baseURL(r)))
}

// HandleUploadURL tells clients where to post image data.
//
// HTTP: POST /api/images
func (h *PhotoHandler) HandleUploadURL(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"url": baseURL(r) + "/api/photos"})
}
