// Package model defines the data structures used throughout the application.
package model

import "time"

// User is a person who has connected their Google account to PhotoHunt.
//
// ExternalUserID is Google's stable id for the account and the natural key
// used on reconnect: a second connect with the same ExternalUserID updates
// this row and keeps ID, so edges, photos and votes stay attached.
//
// AccessToken and RefreshToken never leave the server. Handlers render a
// User through UserView.
type User struct {
	ID              string
	ExternalUserID  string
	DisplayName     string
	ProfileURL      string
	ProfilePhotoURL string
	AccessToken     string
	RefreshToken    string
	TokenExpiresIn  int64 // seconds
	TokenExpiresAt  int64 // epoch millis
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// UserView is the only shape of a User ever serialized to clients.
type UserView struct {
	ID                    string `json:"id"`
	ExternalUserID        string `json:"externalUserId"`
	DisplayName           string `json:"displayName"`
	PublicProfileURL      string `json:"publicProfileUrl"`
	PublicProfilePhotoURL string `json:"publicProfilePhotoUrl"`
	TokenExpiresAt        int64  `json:"tokenExpiresAt"`
}

func NewUserView(u *User) UserView {
	return UserView{
		ID:                    u.ID,
		ExternalUserID:        u.ExternalUserID,
		DisplayName:           u.DisplayName,
		PublicProfileURL:      u.ProfileURL,
		PublicProfilePhotoURL: u.ProfilePhotoURL,
		TokenExpiresAt:        u.TokenExpiresAt,
	}
}

func NewUserViews(users []User) []UserView {
	views := make([]UserView, 0, len(users))
	for i := range users {
		views = append(views, NewUserView(&users[i]))
	}
	return views
}
