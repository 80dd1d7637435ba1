package deployments

import (
	"context"
	"log/slog"
	"time"

	"github.com/forgehub/platform/pkg/apperror"
	"github.com/forgehub/platform/pkg/logger"
)

type Service struct {
	repo    *Repository
	sweeper *Sweeper
	log     *slog.Logger
}

func NewService(repo *Repository, sweeper *Sweeper, log *slog.Logger) *Service {
	return &Service{repo: repo, sweeper: sweeper, log: log.With(logger.Scope("deployments.svc"))}
}

// Create registers a deployment (or preview, when branch is non-empty)
// for environment, starting in desired=active/current=pending so the
// reconciler picks it up on its next tick.
func (s *Service) Create(ctx context.Context, projectID, environment, imageRef string, branch string, ttlHours *int) (*Deployment, error) {
	if environment == "" {
		return nil, apperror.ErrBadRequest.WithMessage("environment is required")
	}
	if imageRef == "" {
		return nil, apperror.ErrBadRequest.WithMessage("imageRef is required")
	}

	d := &Deployment{
		ProjectID:     projectID,
		Environment:   environment,
		ImageRef:      imageRef,
		DesiredStatus: DesiredActive,
		CurrentStatus: CurrentPending,
	}
	if branch != "" {
		slug := Slugify(branch)
		d.IsPreview = true
		d.Branch = &branch
		d.BranchSlug = &slug
		if ttlHours != nil {
			d.TTLHours = ttlHours
			expires := time.Now().Add(time.Duration(*ttlHours) * time.Hour)
			d.ExpiresAt = &expires
		}
	}
	if err := s.repo.Create(ctx, d); err != nil {
		return nil, err
	}
	if err := s.repo.AppendHistory(ctx, &DeploymentHistory{
		DeploymentID: d.ID,
		Action:       ActionDeploy,
		ToStatus:     string(CurrentPending),
		Detail:       imageRef,
	}); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Deployment, error) {
	d, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, apperror.ErrNotFound
	}
	return d, nil
}

func (s *Service) List(ctx context.Context, projectID string) ([]*Deployment, error) {
	return s.repo.ListByProject(ctx, projectID)
}

func (s *Service) History(ctx context.Context, deploymentID string) ([]*DeploymentHistory, error) {
	return s.repo.ListHistory(ctx, deploymentID, 100)
}

// Deploy rewrites image_ref, resetting current_status to pending so the
// reconciler re-applies the cluster object on its next tick.
func (s *Service) Deploy(ctx context.Context, id, imageRef string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.SetImageRef(ctx, id, imageRef); err != nil {
		return err
	}
	return s.repo.AppendHistory(ctx, &DeploymentHistory{
		DeploymentID: id,
		Action:       ActionDeploy,
		ToStatus:     string(CurrentPending),
		Detail:       imageRef,
	})
}

// Stop flips desired_status to stopped; the reconciler scales the
// cluster Deployment to zero replicas on its next tick.
func (s *Service) Stop(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return s.repo.SetDesiredStatus(ctx, id, DesiredStopped)
}

// Rollback flips desired_status to rollback; the reconciler picks the
// latest differing deploy image from history on its next tick.
func (s *Service) Rollback(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return s.repo.SetDesiredStatus(ctx, id, DesiredRollback)
}

// Resume flips desired_status back to active, e.g. to restart a
// previously stopped deployment.
func (s *Service) Resume(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return s.repo.SetDesiredStatus(ctx, id, DesiredActive)
}

// NotifyMerged is the merge-request merge hook: enqueues preview cleanup
// for the source branch.
func (s *Service) NotifyMerged(ctx context.Context, projectID, branch string) error {
	return s.sweeper.CleanupBranch(ctx, projectID, branch)
}
