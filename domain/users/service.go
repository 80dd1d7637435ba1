package users

import (
	"context"
	"log/slog"

	"github.com/forgehub/platform/pkg/apperror"
	"github.com/forgehub/platform/pkg/logger"
)

// Service handles business logic for users.
type Service struct {
	repo *Repository
	log  *slog.Logger
}

// NewService creates a new users service.
func NewService(repo *Repository, log *slog.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log.With(logger.Scope("users.svc")),
	}
}

// CreateHuman registers a password-authenticating user.
func (s *Service) CreateHuman(ctx context.Context, name, email, password string) (*User, error) {
	if name == "" || password == "" {
		return nil, apperror.ErrBadRequest.WithMessage("name and password are required")
	}
	if existing, err := s.repo.GetByName(ctx, name); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, apperror.ErrConflict.WithMessage("a user with this name already exists")
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, apperror.ErrCrypto.WithInternal(err)
	}

	u := &User{
		Name:         name,
		Email:        email,
		PasswordHash: &hash,
		Kind:         KindHuman,
		IsActive:     true,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// CreateAgent mints an ephemeral, password-less identity for an agent
// session. The caller is responsible for also creating the scoped API
// token and role assignment that accompany it.
func (s *Service) CreateAgent(ctx context.Context, name string) (*User, error) {
	u := &User{
		Name:     name,
		Kind:     KindAgent,
		IsActive: true,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// GetByID fetches a user, returning apperror.ErrUserNotFound when absent.
func (s *Service) GetByID(ctx context.Context, id string) (*User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, apperror.ErrUserNotFound
	}
	return u, nil
}

// FindForLogin looks a user up by name for the login flow (sessions.Service.Login).
// It returns (nil, nil) when no such user exists; the caller is expected
// to still run VerifyPassword against DummyPasswordHash in that case so
// that login timing does not reveal account existence.
func (s *Service) FindForLogin(ctx context.Context, name string) (*User, error) {
	return s.repo.GetByName(ctx, name)
}

// Deactivate marks a user inactive. It does not revoke the user's
// sessions or API tokens; callers coordinating that (e.g. the auth
// domain) must do so in the same transaction as this call.
func (s *Service) Deactivate(ctx context.Context, id string) error {
	return s.repo.Deactivate(ctx, id)
}
