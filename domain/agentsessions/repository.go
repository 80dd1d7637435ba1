package agentsessions

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/uptrace/bun"

	"github.com/forgehub/platform/pkg/apperror"
	"github.com/forgehub/platform/pkg/logger"
)

// Repository handles database operations for agent sessions.
type Repository struct {
	db  bun.IDB
	log *slog.Logger
}

func NewRepository(db bun.IDB, log *slog.Logger) *Repository {
	return &Repository{db: db, log: log.With(logger.Scope("agentsessions.repo"))}
}

func (r *Repository) Create(ctx context.Context, s *AgentSession) error {
	_, err := r.db.NewInsert().Model(s).Exec(ctx)
	if err != nil {
		r.log.Error("failed to create agent session", logger.Error(err))
		return apperror.ErrDatabase.WithInternal(err)
	}
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (*AgentSession, error) {
	s := new(AgentSession)
	err := r.db.NewSelect().Model(s).Where("id = ?", id).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.log.Error("failed to get agent session", logger.Error(err))
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	return s, nil
}

func (r *Repository) ListByProject(ctx context.Context, projectID string) ([]*AgentSession, error) {
	var rows []*AgentSession
	err := r.db.NewSelect().Model(&rows).
		Where("project_id = ?", projectID).
		OrderExpr("created_at DESC").
		Scan(ctx)
	if err != nil {
		r.log.Error("failed to list agent sessions", logger.Error(err))
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	return rows, nil
}

// ListActive returns every session not yet in a terminal state, used by
// the reaper to watch pod phases.
func (r *Repository) ListActive(ctx context.Context) ([]*AgentSession, error) {
	var rows []*AgentSession
	err := r.db.NewSelect().Model(&rows).
		Where("status IN (?)", bun.In([]Status{StatusPending, StatusRunning})).
		Scan(ctx)
	if err != nil {
		r.log.Error("failed to list active agent sessions", logger.Error(err))
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	return rows, nil
}

func (r *Repository) SetPodName(ctx context.Context, id, podName string) error {
	_, err := r.db.NewUpdate().Model((*AgentSession)(nil)).
		Set("pod_name = ?", podName).
		Set("status = ?", StatusRunning).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		r.log.Error("failed to set pod name", logger.Error(err))
		return apperror.ErrDatabase.WithInternal(err)
	}
	return nil
}

// Finish transitions a session to a terminal status, recording the
// observed token cost (if any) and the finish timestamp.
func (r *Repository) Finish(ctx context.Context, id string, status Status, costTokens *int64) error {
	q := r.db.NewUpdate().Model((*AgentSession)(nil)).
		Set("status = ?", status).
		Set("finished_at = now()")
	if costTokens != nil {
		q = q.Set("cost_tokens = ?", *costTokens)
	}
	_, err := q.Where("id = ?", id).Exec(ctx)
	if err != nil {
		r.log.Error("failed to finish agent session", logger.Error(err))
		return apperror.ErrDatabase.WithInternal(err)
	}
	return nil
}

// CorrelationByID looks up the project/user that a session belongs to,
// for enriching telemetry rows that only carry a session id.
func (r *Repository) CorrelationByID(ctx context.Context, id string) (projectID, userID string, err error) {
	s := new(AgentSession)
	selErr := r.db.NewSelect().Model(s).Column("project_id", "user_id").Where("id = ?", id).Scan(ctx)
	if selErr != nil {
		if errors.Is(selErr, sql.ErrNoRows) {
			return "", "", nil
		}
		r.log.Error("failed to resolve session correlation", logger.Error(selErr))
		return "", "", apperror.ErrDatabase.WithInternal(selErr)
	}
	return s.ProjectID, s.UserID, nil
}
