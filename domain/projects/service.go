package projects

import (
	"context"
	"log/slog"

	"github.com/forgehub/platform/pkg/apperror"
	"github.com/forgehub/platform/pkg/logger"
)

// Service handles business logic for projects.
type Service struct {
	repo *Repository
	log  *slog.Logger
}

// NewService creates a new projects service.
func NewService(repo *Repository, log *slog.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log.With(logger.Scope("projects.svc")),
	}
}

// Create registers a new project owned by ownerID. Any authenticated
// user may create a project; the creator becomes its owner and gains
// implicit full access per spec's effective-permission union rule.
func (s *Service) Create(ctx context.Context, ownerID, name, repoPath string, visibility Visibility) (*Project, error) {
	if name == "" {
		return nil, apperror.ErrBadRequest.WithMessage("name is required")
	}
	if err := validateVisibility(visibility); err != nil {
		return nil, err
	}
	p := &Project{
		Name:       name,
		OwnerID:    ownerID,
		Visibility: visibility,
		RepoPath:   repoPath,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Get fetches a project by ID. Visibility/role-based access control is
// the caller's responsibility (domain/permissions' project:read check,
// which already knows how to union ownership, role grants, and public
// visibility) — this method only distinguishes existence.
func (s *Service) Get(ctx context.Context, id string) (*Project, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, apperror.ErrProjectNotFound
	}
	return p, nil
}

// List returns projects visible to callerID: all public projects plus
// callerID's own private ones.
func (s *Service) List(ctx context.Context, callerID string) ([]*Project, error) {
	return s.repo.List(ctx, callerID)
}

// Update modifies a project's mutable fields. Callers must already
// have authorized project:write at this project's scope.
func (s *Service) Update(ctx context.Context, id, name, repoPath string, visibility Visibility) (*Project, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, apperror.ErrProjectNotFound
	}
	if name != "" {
		p.Name = name
	}
	if repoPath != "" {
		p.RepoPath = repoPath
	}
	if visibility != "" {
		if err := validateVisibility(visibility); err != nil {
			return nil, err
		}
		p.Visibility = visibility
	}
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Delete soft-deletes a project. Callers must already have authorized
// project:delete at this project's scope.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.SoftDelete(ctx, id)
}

func validateVisibility(v Visibility) error {
	if v != VisibilityPublic && v != VisibilityPrivate {
		return apperror.ErrBadRequest.WithMessage("visibility must be public or private")
	}
	return nil
}
