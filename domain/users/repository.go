package users

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/uptrace/bun"

	"github.com/forgehub/platform/pkg/apperror"
	"github.com/forgehub/platform/pkg/logger"
)

// Repository handles database operations for users.
type Repository struct {
	db  bun.IDB
	log *slog.Logger
}

// NewRepository creates a new users repository.
func NewRepository(db bun.IDB, log *slog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With(logger.Scope("users.repo")),
	}
}

// Create inserts a new user row.
func (r *Repository) Create(ctx context.Context, u *User) error {
	_, err := r.db.NewInsert().Model(u).Exec(ctx)
	if err != nil {
		r.log.Error("failed to create user", logger.Error(err))
		return apperror.ErrDatabase.WithInternal(err)
	}
	return nil
}

// GetByID fetches a user by ID.
func (r *Repository) GetByID(ctx context.Context, id string) (*User, error) {
	u := new(User)
	err := r.db.NewSelect().Model(u).Where("id = ?", id).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.log.Error("failed to get user by id", logger.Error(err))
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	return u, nil
}

// GetByName fetches a user by its unique name, used for login lookups.
func (r *Repository) GetByName(ctx context.Context, name string) (*User, error) {
	u := new(User)
	err := r.db.NewSelect().Model(u).Where("name = ?", name).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.log.Error("failed to get user by name", logger.Error(err))
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	return u, nil
}

// Deactivate marks a user inactive. It does not revoke the user's sessions
// or API tokens (see Service.Deactivate).
func (r *Repository) Deactivate(ctx context.Context, id string) error {
	res, err := r.db.NewUpdate().
		Model((*User)(nil)).
		Set("is_active = false").
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		r.log.Error("failed to deactivate user", logger.Error(err))
		return apperror.ErrDatabase.WithInternal(err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return apperror.ErrDatabase.WithInternal(err)
	}
	if rows == 0 {
		return apperror.ErrNotFound
	}
	return nil
}
