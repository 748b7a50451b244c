package model

import (
	"fmt"
	"path"
	"time"
)

// Theme is the daily subject photos are submitted for.
type Theme struct {
	ID          string
	DisplayName string
	Created     time.Time
	Start       time.Time // date the hunt starts, truncated to the day (UTC)
}

// DefaultThemeName is used when no theme has been scheduled for today.
const DefaultThemeName = "Beautiful"

type ThemeView struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Created     string `json:"created"`
	Start       string `json:"start"`
}

const dateLayout = "2006-01-02"

func NewThemeViews(themes []Theme) []ThemeView {
	views := make([]ThemeView, 0, len(themes))
	for _, t := range themes {
		views = append(views, ThemeView{
			ID:          t.ID,
			DisplayName: t.DisplayName,
			Created:     t.Created.Format(dateLayout),
			Start:       t.Start.Format(dateLayout),
		})
	}
	return views
}

// Photo is a user's submission for a theme. The image bytes live in external
// storage; ImagePath is the server-relative path of the full size file.
//
// Owner and theme names are denormalized at upload time, as the listing
// endpoints render them without joins.
type Photo struct {
	ID                string
	OwnerUserID       string
	OwnerDisplayName  string
	OwnerProfileURL   string
	OwnerProfilePhoto string
	ThemeID           string
	ThemeDisplayName  string
	ImagePath         string
	Created           time.Time

	NumVotes int  // filled by listing queries
	Voted    bool // whether the viewing user voted on it
}

// Vote is a single user's vote on a single photo.
type Vote struct {
	ID          string
	OwnerUserID string
	PhotoID     string
}

// PhotoView is the JSON projection of a Photo. Absolute URLs are built from
// the base URL of the request being served.
type PhotoView struct {
	ID                string `json:"id"`
	OwnerUserID       string `json:"ownerUserId"`
	OwnerDisplayName  string `json:"ownerDisplayName"`
	OwnerProfileURL   string `json:"ownerProfileUrl"`
	OwnerProfilePhoto string `json:"ownerProfilePhoto"`
	ThemeID           string `json:"themeId"`
	ThemeDisplayName  string `json:"themeDisplayName"`
	Created           string `json:"created"`
	FullsizeURL       string `json:"fullsizeUrl"`
	ThumbnailURL      string `json:"thumbnailUrl"`
	NumVotes          int    `json:"numVotes"`
	Voted             bool   `json:"voted"`
	VoteCtaURL        string `json:"voteCtaUrl"`
	PhotoContentURL   string `json:"photoContentUrl"`
}

func NewPhotoView(p *Photo, baseURL string) PhotoView {
	return PhotoView{
		ID:                p.ID,
		OwnerUserID:       p.OwnerUserID,
		OwnerDisplayName:  p.OwnerDisplayName,
		OwnerProfileURL:   p.OwnerProfileURL,
		OwnerProfilePhoto: p.OwnerProfilePhoto,
		ThemeID:           p.ThemeID,
		ThemeDisplayName:  p.ThemeDisplayName,
		Created:           p.Created.Format(dateLayout),
		FullsizeURL:       baseURL + p.ImagePath,
		ThumbnailURL:      baseURL + thumbnailPath(p.ImagePath),
		NumVotes:          p.NumVotes,
		Voted:             p.Voted,
		VoteCtaURL:        fmt.Sprintf("%s/index.html?photoId=%s&action=vote", baseURL, p.ID),
		PhotoContentURL:   fmt.Sprintf("%s/photo.html?photoId=%s", baseURL, p.ID),
	}
}

func NewPhotoViews(photos []Photo, baseURL string) []PhotoView {
	views := make([]PhotoView, 0, len(photos))
	for i := range photos {
		views = append(views, NewPhotoView(&photos[i], baseURL))
	}
	return views
}

// thumbnailPath maps "/images/abc/original.jpg" to "/images/abc/square.jpg",
// the 400x400 rendition written by the image store.
func thumbnailPath(imagePath string) string {
	if imagePath == "" {
		return ""
	}
	dir, file := path.Split(imagePath)
	return dir + "square" + path.Ext(file)
}
