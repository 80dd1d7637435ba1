package projects

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/uptrace/bun"

	"github.com/forgehub/platform/pkg/apperror"
	"github.com/forgehub/platform/pkg/logger"
)

// Repository handles database operations for projects.
type Repository struct {
	db  bun.IDB
	log *slog.Logger
}

// NewRepository creates a new projects repository.
func NewRepository(db bun.IDB, log *slog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With(logger.Scope("projects.repo")),
	}
}

// Create inserts a new project row.
func (r *Repository) Create(ctx context.Context, p *Project) error {
	_, err := r.db.NewInsert().Model(p).Exec(ctx)
	if err != nil {
		r.log.Error("failed to create project", logger.Error(err))
		return apperror.ErrDatabase.WithInternal(err)
	}
	return nil
}

// GetByID fetches a project by ID, excluding soft-deleted rows.
func (r *Repository) GetByID(ctx context.Context, id string) (*Project, error) {
	p := new(Project)
	err := r.db.NewSelect().Model(p).
		Where("id = ?", id).
		Where("is_deleted = false").
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.log.Error("failed to get project by id", logger.Error(err))
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	return p, nil
}

// List returns non-deleted projects visible to the caller: public
// projects plus any private ones owned by ownerID.
func (r *Repository) List(ctx context.Context, ownerID string) ([]*Project, error) {
	var rows []*Project
	err := r.db.NewSelect().Model(&rows).
		Where("is_deleted = false").
		Where("(visibility = ? OR owner_id = ?)", VisibilityPublic, ownerID).
		OrderExpr("created_at DESC").
		Scan(ctx)
	if err != nil {
		r.log.Error("failed to list projects", logger.Error(err))
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	return rows, nil
}

// Update persists name, visibility, and repo_path changes.
func (r *Repository) Update(ctx context.Context, p *Project) error {
	res, err := r.db.NewUpdate().
		Model(p).
		Column("name", "visibility", "repo_path", "updated_at").
		Where("id = ? AND is_deleted = false", p.ID).
		Exec(ctx)
	if err != nil {
		r.log.Error("failed to update project", logger.Error(err))
		return apperror.ErrDatabase.WithInternal(err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return apperror.ErrDatabase.WithInternal(err)
	}
	if rows == 0 {
		return apperror.ErrProjectNotFound
	}
	return nil
}

// SoftDelete marks a project deleted without removing its row.
func (r *Repository) SoftDelete(ctx context.Context, id string) error {
	res, err := r.db.NewUpdate().
		Model((*Project)(nil)).
		Set("is_deleted = true").
		Set("updated_at = now()").
		Where("id = ? AND is_deleted = false", id).
		Exec(ctx)
	if err != nil {
		r.log.Error("failed to delete project", logger.Error(err))
		return apperror.ErrDatabase.WithInternal(err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return apperror.ErrDatabase.WithInternal(err)
	}
	if rows == 0 {
		return apperror.ErrProjectNotFound
	}
	return nil
}
