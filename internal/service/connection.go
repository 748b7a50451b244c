// Package service holds the business rules. Handlers call services; services
// call the identity provider and the repositories through interfaces so each
// rule can be tested with plain fakes.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sakif/photohunt/internal/apperror"
	"github.com/sakif/photohunt/internal/identity"
	"github.com/sakif/photohunt/internal/metrics"
	"github.com/sakif/photohunt/internal/model"
	"github.com/sakif/photohunt/internal/repository"
)

// TokenVerifier is implemented by *auth.Verifier.
type TokenVerifier interface {
	Verify(ctx context.Context, accessToken string) (*identity.TokenInfo, error)
}

// SyncScheduler is implemented by *GraphSyncer.
type SyncScheduler interface {
	Schedule(user *model.User)
}

// ConnectionService links and unlinks provider accounts.
type ConnectionService struct {
	client   identity.Client
	verifier TokenVerifier
	users    repository.UserRepository
	graph    repository.GraphRepository
	syncer   SyncScheduler
	metrics  *metrics.Metrics
	logger   *slog.Logger
	now      func() time.Time
}

func NewConnectionService(
	client identity.Client,
	verifier TokenVerifier,
	users repository.UserRepository,
	graph repository.GraphRepository,
	syncer SyncScheduler,
	m *metrics.Metrics,
	logger *slog.Logger,
) *ConnectionService {
	return &ConnectionService{
		client:   client,
		verifier: verifier,
		users:    users,
		graph:    graph,
		syncer:   syncer,
		metrics:  m,
		logger:   logger,
		now:      time.Now,
	}
}

// Connect turns client-supplied credentials into a verified local user,
// stores the user's tokens and schedules a friend graph sync. The caller
// establishes the session for the returned user.
func (s *ConnectionService) Connect(ctx context.Context, td model.TokenData) (*model.User, error) {
	user, err := s.connect(ctx, td)
	if err != nil {
		s.metrics.ConnectResult(metrics.ResultFailure)
		return nil, err
	}
	s.metrics.ConnectResult(metrics.ResultSuccess)

	s.logger.Info("user connected",
		slog.String("userID", user.ID),
		slog.String("externalUserID", user.ExternalUserID),
	)

	snapshot := *user
	s.syncer.Schedule(&snapshot)

	return user, nil
}

func (s *ConnectionService) connect(ctx context.Context, td model.TokenData) (*model.User, error) {
	if err := td.Validate(); err != nil {
		return nil, err
	}

	accessToken := td.AccessToken()
	refreshToken := td.RefreshToken()
	if td.HasCode() {
		pair, err := s.client.ExchangeCode(ctx, td.Code())
		if err != nil {
			return nil, apperror.TokenExchangeFailed(err)
		}
		accessToken = pair.AccessToken
		refreshToken = pair.RefreshToken
	}

	info, err := s.verifier.Verify(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	profile, err := s.client.FetchProfile(ctx, accessToken)
	if err != nil {
		return nil, apperror.ProfileFetchFailed(err)
	}

	user, err := s.users.GetByExternalID(ctx, profile.ExternalID)
	switch {
	case errors.Is(err, apperror.ErrNotFound):
		user = &model.User{ExternalUserID: profile.ExternalID}
	case err != nil:
		return nil, fmt.Errorf("service/connection: looking up user %s: %w", profile.ExternalID, err)
	}

	user.DisplayName = profile.DisplayName
	user.ProfileURL = profile.ProfileURL
	user.ProfilePhotoURL = profile.ProfilePhotoURL
	user.AccessToken = accessToken
	if refreshToken != "" {
		user.RefreshToken = refreshToken
	}
	user.TokenExpiresIn = info.ExpiresIn
	user.TokenExpiresAt = s.now().UnixMilli() + info.ExpiresIn*1000

	if err := s.users.Save(ctx, user); err != nil {
		return nil, fmt.Errorf("service/connection: saving user %s: %w", profile.ExternalID, err)
	}
	return user, nil
}

// Disconnect revokes the user's token at the provider and deletes the user
// with everything they own, edges in both directions included. A failed revoke is logged and does not stop the
// local cleanup.
func (s *ConnectionService) Disconnect(ctx context.Context, userID string) error {
	if userID == "" {
		return apperror.Unauthorized()
	}

	user, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, apperror.ErrNotFound) {
		return apperror.Unauthorized()
	}
	if err != nil {
		return fmt.Errorf("service/connection: loading user %s: %w", userID, err)
	}

	if err := s.client.RevokeToken(ctx, user.AccessToken); err != nil {
		revokeErr := apperror.TokenRevocationFailed(err)
		s.metrics.RevokeFailed()
		s.logger.Warn("token revocation failed, deleting local data anyway",
			slog.String("userID", userID),
			slog.String("error", revokeErr.Error()),
		)
	}

	// Edges, photos and votes go with the user row in the same statement.
	if err := s.users.Delete(ctx, userID); err != nil && !errors.Is(err, apperror.ErrNotFound) {
		return fmt.Errorf("service/connection: deleting user %s: %w", userID, err)
	}

	s.metrics.Disconnected()
	s.logger.Info("user disconnected", slog.String("userID", userID))
	return nil
}

// CurrentUser returns the user bound to the session, or Unauthorized when
// the session's user no longer exists.
func (s *ConnectionService) CurrentUser(ctx context.Context, userID string) (*model.User, error) {
	if userID == "" {
		return nil, apperror.Unauthorized()
	}
	user, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, apperror.ErrNotFound) {
		return nil, apperror.Unauthorized()
	}
	if err != nil {
		return nil, fmt.Errorf("service/connection: loading user %s: %w", userID, err)
	}
	return user, nil
}

// Friends lists the local users in userID's friend graph.
func (s *ConnectionService) Friends(ctx context.Context, userID string) ([]model.User, error) {
	if _, err := s.CurrentUser(ctx, userID); err != nil {
		return nil, err
	}
	friends, err := s.graph.Friends(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/connection: listing friends of %s: %w", userID, err)
	}
	return friends, nil
}
