package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sakif/photohunt/internal/identity"
	"github.com/sakif/photohunt/internal/metrics"
	"github.com/sakif/photohunt/internal/model"
	"github.com/sakif/photohunt/internal/repository"
	"github.com/sakif/photohunt/internal/worker"
)

// TaskSubmitter is implemented by *worker.Pool.
type TaskSubmitter interface {
	Submit(name string, task worker.Task) error
}

// GraphSyncer copies a user's provider connections into the local friend
// graph. Syncs are additive: edges are created, never removed.
type GraphSyncer struct {
	client   identity.Client
	sessions repository.GraphSessionFactory
	pool     TaskSubmitter
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

func NewGraphSyncer(
	client identity.Client,
	sessions repository.GraphSessionFactory,
	pool TaskSubmitter,
	m *metrics.Metrics,
	logger *slog.Logger,
) *GraphSyncer {
	return &GraphSyncer{
		client:   client,
		sessions: sessions,
		pool:     pool,
		metrics:  m,
		logger:   logger,
	}
}

var _ SyncScheduler = (*GraphSyncer)(nil)

// Schedule queues a sync for user and returns immediately. When the queue is
// full the sync is dropped; the next connect schedules another.
func (s *GraphSyncer) Schedule(user *model.User) {
	owner := *user
	err := s.pool.Submit("graph-sync:"+owner.ID, func(ctx context.Context) {
		if err := s.Sync(ctx, &owner); err != nil {
			s.logger.Error("friend graph sync failed",
				slog.String("userID", owner.ID),
				slog.String("error", err.Error()),
			)
		}
	})
	if err != nil {
		s.metrics.SyncDroppedTask()
		s.logger.Warn("friend graph sync not scheduled",
			slog.String("userID", owner.ID),
			slog.String("error", err.Error()),
		)
	}
}

// Sync reads every page of owner's connections and links owner to each
// connection that already has a local account.
//
// A page that fails to load ends pagination; the ids gathered so far are
// still linked and the page error is returned afterwards.
func (s *GraphSyncer) Sync(ctx context.Context, owner *model.User) (err error) {
	var (
		externalIDs []string
		pages       int
		edges       int
		pageErr     error
	)

	defer func() {
		result := metrics.ResultSuccess
		if err != nil {
			result = metrics.ResultFailure
			if pages > 0 && errors.Is(err, pageErr) {
				result = metrics.ResultPartial
			}
		}
		s.metrics.SyncFinished(result, pages, edges)
	}()

	for page, listErr := range identity.Connections(ctx, s.client, owner.AccessToken, "") {
		if listErr != nil {
			pageErr = listErr
			break
		}
		pages++
		externalIDs = append(externalIDs, page.IDs...)
	}

	if len(externalIDs) > 0 {
		edges, err = s.link(ctx, owner.ID, externalIDs)
		if err != nil {
			return err
		}
	}

	s.logger.Info("friend graph synced",
		slog.String("userID", owner.ID),
		slog.Int("pages", pages),
		slog.Int("connections", len(externalIDs)),
		slog.Int("edges", edges),
	)

	if pageErr != nil {
		return fmt.Errorf("service/graphsync: reading connections of %s after %d pages: %w", owner.ID, pages, pageErr)
	}
	return nil
}

// link upserts owner -> friend for every external id with a local user,
// on a store session held for the duration of the call.
func (s *GraphSyncer) link(ctx context.Context, ownerID string, externalIDs []string) (int, error) {
	sess, err := s.sessions.Acquire(ctx)
	if err != nil {
		return 0, fmt.Errorf("service/graphsync: acquiring store session: %w", err)
	}
	defer func() {
		if err := sess.Release(); err != nil {
			s.logger.Warn("releasing store session", slog.String("error", err.Error()))
		}
	}()

	friendIDs, err := sess.UserIDsByExternalIDs(ctx, externalIDs)
	if err != nil {
		return 0, fmt.Errorf("service/graphsync: resolving connections of %s: %w", ownerID, err)
	}

	edges := 0
	for _, friendID := range friendIDs {
		if friendID == ownerID {
			continue
		}
		if err := sess.UpsertEdge(ctx, ownerID, friendID); err != nil {
			return edges, fmt.Errorf("service/graphsync: linking %s -> %s: %w", ownerID, friendID, err)
		}
		edges++
	}
	return edges, nil
}
