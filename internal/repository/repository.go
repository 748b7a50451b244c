// Package repository declares the storage interfaces the services depend on.
// The sqlite subpackage implements them.
package repository

import (
	"context"
	"time"

	"github.com/sakif/photohunt/internal/model"
)

type UserRepository interface {
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByExternalID(ctx context.Context, externalID string) (*model.User, error)
	// Save updates user when user.ID is set. Otherwise it inserts user, or
	// updates the row already holding user.ExternalUserID, and sets user.ID
	// to the stored row's id.
	Save(ctx context.Context, user *model.User) error
	// Delete removes the user together with their edges (both directions),
	// photos and votes.
	Delete(ctx context.Context, id string) error
}

// GraphRepository reads and writes the directed friend graph.
type GraphRepository interface {
	FriendIDs(ctx context.Context, userID string) ([]string, error)
	Friends(ctx context.Context, userID string) ([]model.User, error)
	// FriendPhotos returns photos owned by userID's friends, with Voted set
	// from userID's point of view.
	FriendPhotos(ctx context.Context, userID string) ([]model.Photo, error)
	// UpsertEdge creates owner -> friend. Creating an existing edge is a no-op.
	UpsertEdge(ctx context.Context, ownerID, friendID string) error
}

// GraphSession is a store session owned by one background sync. It must be
// released exactly once.
type GraphSession interface {
	// UserIDsByExternalIDs maps provider ids to local user ids. Ids with no
	// local user are left out.
	UserIDsByExternalIDs(ctx context.Context, externalIDs []string) ([]string, error)
	UpsertEdge(ctx context.Context, ownerID, friendID string) error
	Release() error
}

type GraphSessionFactory interface {
	Acquire(ctx context.Context) (GraphSession, error)
}

// PhotoFilter narrows List. Empty fields do not filter. ViewerID only
// affects Photo.Voted.
type PhotoFilter struct {
	OwnerUserID string
	ThemeID     string
	ViewerID    string
}

type PhotoRepository interface {
	// Create stores a photo whose image files already exist at ImagePath.
	// No HTTP route uploads images yet; this seeds photos and backs a
	// future upload path.
	Create(ctx context.Context, photo *model.Photo) error
	GetByID(ctx context.Context, id, viewerID string) (*model.Photo, error)
	List(ctx context.Context, filter PhotoFilter) ([]model.Photo, error)
	Delete(ctx context.Context, id string) error
}

type VoteRepository interface {
	// Cast records ownerID's vote on photoID and reports whether a new vote
	// was created. Voting twice is not an error.
	Cast(ctx context.Context, ownerID, photoID string) (bool, error)
}

type ThemeRepository interface {
	// GetOrCreate returns the theme starting on day, creating one named name
	// if there is none.
	GetOrCreate(ctx context.Context, day time.Time, name string) (*model.Theme, error)
	// List returns all themes, newest start first.
	List(ctx context.Context) ([]model.Theme, error)
}
