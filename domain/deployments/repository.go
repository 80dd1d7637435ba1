package deployments

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/uptrace/bun"

	"github.com/forgehub/platform/pkg/apperror"
	"github.com/forgehub/platform/pkg/logger"
)

// Repository handles database operations for deployments and their
// history.
type Repository struct {
	db  bun.IDB
	log *slog.Logger
}

func NewRepository(db bun.IDB, log *slog.Logger) *Repository {
	return &Repository{db: db, log: log.With(logger.Scope("deployments.repo"))}
}

func (r *Repository) Create(ctx context.Context, d *Deployment) error {
	_, err := r.db.NewInsert().Model(d).Exec(ctx)
	if err != nil {
		r.log.Error("failed to create deployment", logger.Error(err))
		return apperror.ErrDatabase.WithInternal(err)
	}
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (*Deployment, error) {
	d := new(Deployment)
	err := r.db.NewSelect().Model(d).Where("id = ?", id).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.log.Error("failed to get deployment by id", logger.Error(err))
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	return d, nil
}

func (r *Repository) ListByProject(ctx context.Context, projectID string) ([]*Deployment, error) {
	var rows []*Deployment
	err := r.db.NewSelect().Model(&rows).
		Where("project_id = ?", projectID).
		OrderExpr("created_at DESC").
		Scan(ctx)
	if err != nil {
		r.log.Error("failed to list deployments", logger.Error(err))
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	return rows, nil
}

// ListNeedingReconcile returns every deployment whose current_status
// hasn't converged, or whose desired_status demands action regardless of
// current_status (stopped/rollback can be requested from any state).
func (r *Repository) ListNeedingReconcile(ctx context.Context) ([]*Deployment, error) {
	var rows []*Deployment
	err := r.db.NewSelect().Model(&rows).
		Where("current_status IN (?, ?)", CurrentPending, CurrentSyncing).
		WhereOr("desired_status IN (?, ?)", DesiredStopped, DesiredRollback).
		Scan(ctx)
	if err != nil {
		r.log.Error("failed to list deployments needing reconcile", logger.Error(err))
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	return rows, nil
}

// ListExpiredPreviews returns previews whose expires_at has passed and
// which are still desired active, for the TTL sweeper.
func (r *Repository) ListExpiredPreviews(ctx context.Context, now time.Time) ([]*Deployment, error) {
	var rows []*Deployment
	err := r.db.NewSelect().Model(&rows).
		Where("is_preview = true").
		Where("desired_status = ?", DesiredActive).
		Where("expires_at IS NOT NULL AND expires_at < ?", now).
		Scan(ctx)
	if err != nil {
		r.log.Error("failed to list expired previews", logger.Error(err))
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	return rows, nil
}

// FindPreviewByBranch locates the active preview for projectID/branch,
// used by the merge-hook cleanup path.
func (r *Repository) FindPreviewByBranch(ctx context.Context, projectID, branch string) (*Deployment, error) {
	d := new(Deployment)
	err := r.db.NewSelect().Model(d).
		Where("project_id = ?", projectID).
		Where("is_preview = true").
		Where("branch = ?", branch).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.log.Error("failed to find preview by branch", logger.Error(err))
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	return d, nil
}

// SetImageRef rewrites image_ref and resets current_status to pending,
// per the reconciler's "any write of image_ref resets to pending" rule.
func (r *Repository) SetImageRef(ctx context.Context, id, imageRef string) error {
	_, err := r.db.NewUpdate().
		Model((*Deployment)(nil)).
		Set("image_ref = ?", imageRef).
		Set("current_status = ?", CurrentPending).
		Set("updated_at = now()").
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		r.log.Error("failed to set image ref", logger.Error(err))
		return apperror.ErrDatabase.WithInternal(err)
	}
	return nil
}

// SetDesiredStatus rewrites desired_status and resets current_status to
// pending, per the same reconciler rule.
func (r *Repository) SetDesiredStatus(ctx context.Context, id string, desired DesiredStatus) error {
	_, err := r.db.NewUpdate().
		Model((*Deployment)(nil)).
		Set("desired_status = ?", desired).
		Set("current_status = ?", CurrentPending).
		Set("updated_at = now()").
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		r.log.Error("failed to set desired status", logger.Error(err))
		return apperror.ErrDatabase.WithInternal(err)
	}
	return nil
}

// SetCurrentStatus advances current_status without touching desired_status,
// used by the reconciler as it moves pending -> syncing -> healthy|failed.
func (r *Repository) SetCurrentStatus(ctx context.Context, id string, status CurrentStatus) error {
	_, err := r.db.NewUpdate().
		Model((*Deployment)(nil)).
		Set("current_status = ?", status).
		Set("updated_at = now()").
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		r.log.Error("failed to set current status", logger.Error(err))
		return apperror.ErrDatabase.WithInternal(err)
	}
	return nil
}

func (r *Repository) AppendHistory(ctx context.Context, h *DeploymentHistory) error {
	_, err := r.db.NewInsert().Model(h).Exec(ctx)
	if err != nil {
		r.log.Error("failed to append deployment history", logger.Error(err))
		return apperror.ErrDatabase.WithInternal(err)
	}
	return nil
}

// ListHistory returns the most recent history entries for a deployment,
// newest first.
func (r *Repository) ListHistory(ctx context.Context, deploymentID string, limit int) ([]*DeploymentHistory, error) {
	var rows []*DeploymentHistory
	err := r.db.NewSelect().Model(&rows).
		Where("deployment_id = ?", deploymentID).
		OrderExpr("created_at DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		r.log.Error("failed to list deployment history", logger.Error(err))
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	return rows, nil
}

// LatestDeployableImage returns the most recent deploy history entry
// whose image_ref differs from currentImageRef, for rollback.
func (r *Repository) LatestDeployableImage(ctx context.Context, deploymentID, currentImageRef string) (string, bool, error) {
	rows, err := r.ListHistory(ctx, deploymentID, 50)
	if err != nil {
		return "", false, err
	}
	for _, h := range rows {
		if h.Action != ActionDeploy {
			continue
		}
		if h.Detail != "" && h.Detail != currentImageRef {
			return h.Detail, true, nil
		}
	}
	return "", false, nil
}
