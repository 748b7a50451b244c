package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/sakif/photohunt/internal/apperror"
	"github.com/sakif/photohunt/internal/identity"
	"github.com/sakif/photohunt/internal/model"
	"github.com/sakif/photohunt/internal/repository"
	"github.com/sakif/photohunt/internal/worker"
)

const testClientID = "1234-app.apps.googleusercontent.com"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// =========================================================================
// IDENTITY PROVIDER
// =========================================================================

// fakeProvider is a scriptable identity.Client.
type fakeProvider struct {
	mu sync.Mutex

	exchange    *identity.TokenPair
	exchangeErr error
	info        *identity.TokenInfo
	infoErr     error
	profile     *identity.Profile
	profileErr  error
	revokeErr   error

	pages    map[string]*identity.ConnectionsPage
	pageErrs map[string]error

	exchanged []string
	revoked   []string
	listed    []string
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		exchange: &identity.TokenPair{AccessToken: "tok1", ExpiresIn: 3600},
		info:     &identity.TokenInfo{IssuedTo: testClientID, ExpiresIn: 3600},
		profile:  &identity.Profile{ExternalID: "g1", DisplayName: "Ada"},
		pages:    map[string]*identity.ConnectionsPage{"": {}},
	}
}

func (f *fakeProvider) ExchangeCode(_ context.Context, code string) (*identity.TokenPair, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exchanged = append(f.exchanged, code)
	return f.exchange, f.exchangeErr
}

func (f *fakeProvider) VerifyToken(context.Context, string) (*identity.TokenInfo, error) {
	return f.info, f.infoErr
}

func (f *fakeProvider) RevokeToken(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revoked = append(f.revoked, token)
	return f.revokeErr
}

func (f *fakeProvider) FetchProfile(context.Context, string) (*identity.Profile, error) {
	return f.profile, f.profileErr
}

func (f *fakeProvider) ListConnections(_ context.Context, _ string, pageToken string) (*identity.ConnectionsPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listed = append(f.listed, pageToken)
	if err := f.pageErrs[pageToken]; err != nil {
		return nil, err
	}
	page, ok := f.pages[pageToken]
	if !ok {
		return nil, fmt.Errorf("unexpected page token %q", pageToken)
	}
	return page, nil
}

// =========================================================================
// STORAGE
// =========================================================================

// fakeStore is an in-memory users + edges store implementing
// UserRepository, GraphRepository and GraphSessionFactory.
type fakeStore struct {
	mu    sync.Mutex
	users map[string]*model.User
	edges map[[2]string]bool

	nextID           int
	friendPhotos     map[string][]model.Photo
	saveErr          error
	deleteErr        error
	sessionUpsertErr error
	acquired         int
	released         int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users: make(map[string]*model.User),
		edges: make(map[[2]string]bool),
	}
}

func (f *fakeStore) addUser(externalID string) *model.User {
	u := &model.User{ExternalUserID: externalID, DisplayName: "User " + externalID}
	if err := f.Save(context.Background(), u); err != nil {
		panic(err)
	}
	return u
}

func (f *fakeStore) GetByID(_ context.Context, id string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	copied := *u
	return &copied, nil
}

func (f *fakeStore) GetByExternalID(_ context.Context, externalID string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.ExternalUserID == externalID {
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("user", externalID)
}

func (f *fakeStore) Save(_ context.Context, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	if user.ID == "" {
		f.nextID++
		user.ID = fmt.Sprintf("user-%d", f.nextID)
	}
	copied := *user
	f.users[user.ID] = &copied
	return nil
}

func (f *fakeStore) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.users[id]; !ok {
		return apperror.NotFound("user", id)
	}
	delete(f.users, id)
	for e := range f.edges {
		if e[0] == id || e[1] == id {
			delete(f.edges, e)
		}
	}
	return nil
}

func (f *fakeStore) userCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.users)
}

func (f *fakeStore) FriendIDs(_ context.Context, userID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := []string{}
	for e := range f.edges {
		if e[0] == userID {
			ids = append(ids, e[1])
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (f *fakeStore) Friends(ctx context.Context, userID string) ([]model.User, error) {
	ids, _ := f.FriendIDs(ctx, userID)
	f.mu.Lock()
	defer f.mu.Unlock()
	users := []model.User{}
	for _, id := range ids {
		users = append(users, *f.users[id])
	}
	return users, nil
}

func (f *fakeStore) FriendPhotos(_ context.Context, userID string) ([]model.Photo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Photo{}, f.friendPhotos[userID]...), nil
}

func (f *fakeStore) UpsertEdge(_ context.Context, ownerID, friendID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[ownerID]; !ok {
		return errors.New("FOREIGN KEY constraint failed")
	}
	f.edges[[2]string{ownerID, friendID}] = true
	return nil
}

func (f *fakeStore) edgeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.edges)
}

func (f *fakeStore) Acquire(context.Context) (repository.GraphSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acquired++
	return &fakeGraphSession{store: f, upsertErr: f.sessionUpsertErr}, nil
}

type fakeGraphSession struct {
	store     *fakeStore
	upsertErr error
}

func (s *fakeGraphSession) UserIDsByExternalIDs(_ context.Context, externalIDs []string) ([]string, error) {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	want := make(map[string]bool, len(externalIDs))
	for _, id := range externalIDs {
		want[id] = true
	}
	var ids []string
	for _, u := range s.store.users {
		if want[u.ExternalUserID] {
			ids = append(ids, u.ID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *fakeGraphSession) UpsertEdge(ctx context.Context, ownerID, friendID string) error {
	if s.upsertErr != nil {
		return s.upsertErr
	}
	return s.store.UpsertEdge(ctx, ownerID, friendID)
}

func (s *fakeGraphSession) Release() error {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	s.store.released++
	return nil
}

// fakePhotos implements PhotoRepository and VoteRepository over a map.
type fakePhotos struct {
	mu     sync.Mutex
	photos map[string]*model.Photo
	votes  map[[2]string]bool
	lists  []repository.PhotoFilter
	nextID int
}

func newFakePhotos() *fakePhotos {
	return &fakePhotos{
		photos: make(map[string]*model.Photo),
		votes:  make(map[[2]string]bool),
	}
}

func (f *fakePhotos) Create(_ context.Context, p *model.Photo) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	p.ID = fmt.Sprintf("photo-%d", f.nextID)
	copied := *p
	f.photos[p.ID] = &copied
	return nil
}

func (f *fakePhotos) view(p *model.Photo, viewerID string) model.Photo {
	v := *p
	v.NumVotes = 0
	for k := range f.votes {
		if k[1] == p.ID {
			v.NumVotes++
		}
	}
	v.Voted = f.votes[[2]string{viewerID, p.ID}]
	return v
}

func (f *fakePhotos) GetByID(_ context.Context, id, viewerID string) (*model.Photo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.photos[id]
	if !ok {
		return nil, apperror.NotFound("photo", id)
	}
	v := f.view(p, viewerID)
	return &v, nil
}

func (f *fakePhotos) List(_ context.Context, filter repository.PhotoFilter) ([]model.Photo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists = append(f.lists, filter)
	out := []model.Photo{}
	for _, p := range f.photos {
		if filter.OwnerUserID != "" && p.OwnerUserID != filter.OwnerUserID {
			continue
		}
		if filter.ThemeID != "" && p.ThemeID != filter.ThemeID {
			continue
		}
		out = append(out, f.view(p, filter.ViewerID))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakePhotos) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.photos[id]; !ok {
		return apperror.NotFound("photo", id)
	}
	delete(f.photos, id)
	for k := range f.votes {
		if k[1] == id {
			delete(f.votes, k)
		}
	}
	return nil
}

func (f *fakePhotos) Cast(_ context.Context, ownerID, photoID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.photos[photoID]; !ok {
		return false, apperror.NotFound("photo", photoID)
	}
	k := [2]string{ownerID, photoID}
	if f.votes[k] {
		return false, nil
	}
	f.votes[k] = true
	return true, nil
}

// fakeThemes keys themes by their start date.
type fakeThemes struct {
	mu     sync.Mutex
	themes map[string]*model.Theme
}

func newFakeThemes() *fakeThemes {
	return &fakeThemes{themes: make(map[string]*model.Theme)}
}

func (f *fakeThemes) GetOrCreate(_ context.Context, day time.Time, name string) (*model.Theme, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	start := day.UTC().Truncate(24 * time.Hour)
	key := start.Format(time.DateOnly)
	if t, ok := f.themes[key]; ok {
		copied := *t
		return &copied, nil
	}
	t := &model.Theme{ID: "theme-" + key, DisplayName: name, Created: day, Start: start}
	f.themes[key] = t
	copied := *t
	return &copied, nil
}

func (f *fakeThemes) List(context.Context) ([]model.Theme, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Theme, 0, len(f.themes))
	for _, t := range f.themes {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.After(out[j].Start) })
	return out, nil
}

// =========================================================================
// SCHEDULING
// =========================================================================

type recordingScheduler struct {
	mu    sync.Mutex
	users []model.User
}

func (r *recordingScheduler) Schedule(user *model.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users = append(r.users, *user)
}

// inlinePool runs tasks on the caller's goroutine.
type inlinePool struct {
	err   error
	names []string
}

func (p *inlinePool) Submit(name string, task worker.Task) error {
	if p.err != nil {
		return p.err
	}
	p.names = append(p.names, name)
	task(context.Background())
	return nil
}
