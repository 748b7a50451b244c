package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/sakif/photohunt/internal/model"
)

// ThemeService is implemented by *service.ThemeService.
type ThemeService interface {
	List(ctx context.Context) ([]model.Theme, error)
}

type ThemeHandler struct {
	themes ThemeService
	logger *slog.Logger
}

func NewThemeHandler(themes ThemeService, logger *slog.Logger) *ThemeHandler {
	return &ThemeHandler{themes: themes, logger: logger}
}

// HandleList returns every theme, newest first. Today's theme is created on
// first use.
//
// HTTP: GET /api/themes
func (h *ThemeHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	themes, err := h.themes.List(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, model.NewThemeViews(themes))
}
