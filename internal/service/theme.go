package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sakif/photohunt/internal/model"
	"github.com/sakif/photohunt/internal/repository"
)

// ThemeService keeps a theme scheduled for every day the app is used.
type ThemeService struct {
	themes repository.ThemeRepository
	now    func() time.Time
}

func NewThemeService(themes repository.ThemeRepository) *ThemeService {
	return &ThemeService{themes: themes, now: time.Now}
}

// Current returns today's theme, creating the default one if nothing is
// scheduled.
func (s *ThemeService) Current(ctx context.Context) (*model.Theme, error) {
	theme, err := s.themes.GetOrCreate(ctx, s.now(), model.DefaultThemeName)
	if err != nil {
		return nil, fmt.Errorf("service/theme: getting current theme: %w", err)
	}
	return theme, nil
}

// List ensures today's theme exists and returns all themes, newest first.
func (s *ThemeService) List(ctx context.Context) ([]model.Theme, error) {
	if _, err := s.Current(ctx); err != nil {
		return nil, err
	}
	themes, err := s.themes.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/theme: listing themes: %w", err)
	}
	return themes, nil
}
