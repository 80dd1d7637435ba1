package deployments

import (
	"context"
	"log/slog"
	"time"

	"github.com/forgehub/platform/pkg/logger"
)

// Sweeper periodically stops previews past their expires_at, and fields
// the merge-hook cleanup request for a source branch's preview.
type Sweeper struct {
	repo *Repository
	log  *slog.Logger
}

func NewSweeper(repo *Repository, log *slog.Logger) *Sweeper {
	return &Sweeper{repo: repo, log: log.With(logger.Scope("deployments.sweeper"))}
}

// Sweep sets desired_status=stopped on every preview past its expires_at.
// The reconciler's next tick then scales it down; Sweep itself only
// flips intent.
func (s *Sweeper) Sweep(ctx context.Context) error {
	rows, err := s.repo.ListExpiredPreviews(ctx, time.Now())
	if err != nil {
		return err
	}
	for _, d := range rows {
		if err := s.repo.SetDesiredStatus(ctx, d.ID, DesiredStopped); err != nil {
			s.log.Error("failed to stop expired preview", slog.String("deployment_id", d.ID), logger.Error(err))
			continue
		}
		if err := s.repo.AppendHistory(ctx, &DeploymentHistory{
			DeploymentID: d.ID,
			Action:       ActionExpire,
			ToStatus:     string(CurrentPending),
			Detail:       "preview expired",
		}); err != nil {
			s.log.Error("failed to record preview expiry", slog.String("deployment_id", d.ID), logger.Error(err))
		}
	}
	return nil
}

// CleanupBranch enqueues preview cleanup for a merged branch, called from
// the merge-request merge hook. A no-op if no preview tracks that branch.
func (s *Sweeper) CleanupBranch(ctx context.Context, projectID, branch string) error {
	d, err := s.repo.FindPreviewByBranch(ctx, projectID, branch)
	if err != nil {
		return err
	}
	if d == nil {
		return nil
	}
	if err := s.repo.SetDesiredStatus(ctx, d.ID, DesiredStopped); err != nil {
		return err
	}
	return s.repo.AppendHistory(ctx, &DeploymentHistory{
		DeploymentID: d.ID,
		Action:       ActionStop,
		ToStatus:     string(CurrentPending),
		Detail:       "branch merged",
	})
}
