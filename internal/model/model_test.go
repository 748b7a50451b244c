package model

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/photohunt/internal/apperror"
)

func TestTokenData_Validate(t *testing.T) {
	tests := []struct {
		name    string
		params  TokenDataParams
		wantErr bool
	}{
		{"code only", TokenDataParams{Code: "4/abc"}, false},
		{"access token only", TokenDataParams{AccessToken: "ya29"}, false},
		{"both", TokenDataParams{Code: "4/abc", AccessToken: "ya29"}, false},
		{"neither", TokenDataParams{RefreshToken: "r", ExpiresIn: 3600}, true},
		{"empty", TokenDataParams{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewTokenData(tt.params).Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			var appErr *apperror.AppError
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, apperror.KindMissingCredential, appErr.Kind)
		})
	}
}

func TestThumbnailPath(t *testing.T) {
	assert.Equal(t, "/images/abc/square.jpg", thumbnailPath("/images/abc/original.jpg"))
	assert.Equal(t, "/images/square.png", thumbnailPath("/images/x.png"))
	assert.Equal(t, "", thumbnailPath(""))
}

func TestNewPhotoView(t *testing.T) {
	p := &Photo{
		ID:               "p1",
		OwnerUserID:      "u1",
		OwnerDisplayName: "Ada",
		ThemeID:          "t1",
		ThemeDisplayName: "Beautiful",
		ImagePath:        "/images/p1/original.jpg",
		Created:          time.Date(2024, 3, 9, 15, 4, 0, 0, time.UTC),
		NumVotes:         3,
		Voted:            true,
	}

	v := NewPhotoView(p, "https://photohunt.example")

	assert.Equal(t, "2024-03-09", v.Created)
	assert.Equal(t, "https://photohunt.example/images/p1/original.jpg", v.FullsizeURL)
	assert.Equal(t, "https://photohunt.example/images/p1/square.jpg", v.ThumbnailURL)
	assert.Equal(t, "https://photohunt.example/index.html?photoId=p1&action=vote", v.VoteCtaURL)
	assert.Equal(t, "https://photohunt.example/photo.html?photoId=p1", v.PhotoContentURL)
	assert.Equal(t, 3, v.NumVotes)
	assert.True(t, v.Voted)
}

func TestNewThemeViews(t *testing.T) {
	day := time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC)
	views := NewThemeViews([]Theme{{ID: "t1", DisplayName: "Beautiful", Created: day, Start: day}})

	require.Len(t, views, 1)
	assert.Equal(t, ThemeView{ID: "t1", DisplayName: "Beautiful", Created: "2024-03-09", Start: "2024-03-09"}, views[0])
	assert.Empty(t, NewThemeViews(nil))
	assert.NotNil(t, NewThemeViews(nil))
}
