package secrets

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/uptrace/bun"

	"github.com/forgehub/platform/pkg/apperror"
	"github.com/forgehub/platform/pkg/logger"
)

// Repository handles data access for secrets.
type Repository struct {
	db  bun.IDB
	log *slog.Logger
}

func NewRepository(db bun.IDB, log *slog.Logger) *Repository {
	return &Repository{db: db, log: log.With(logger.Scope("secrets.repo"))}
}

// Upsert inserts a secret or, on a (project_id, name) conflict, replaces the
// ciphertext and bumps version. The partial-unique index on project_id IS
// NULL enforces global-name uniqueness for project_id = NULL rows.
func (r *Repository) Upsert(ctx context.Context, projectID *string, name string, encrypted []byte, scope Scope, actor string) (*Secret, error) {
	sec := &Secret{
		ProjectID:      projectID,
		Name:           name,
		EncryptedValue: encrypted,
		Scope:          scope,
		Version:        1,
		CreatedBy:      actor,
	}

	conflictTarget := "(project_id, name)"
	if projectID == nil {
		conflictTarget = "(name) WHERE project_id IS NULL"
	}

	_, err := r.db.NewInsert().
		Model(sec).
		On("CONFLICT "+conflictTarget+" DO UPDATE").
		Set("encrypted_value = EXCLUDED.encrypted_value").
		Set("scope = EXCLUDED.scope").
		Set("version = core.secrets.version + 1").
		Set("updated_at = now()").
		Returning("*").
		Exec(ctx)
	if err != nil {
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	return sec, nil
}

// Resolve selects the row visible for (project_id, name), preferring the
// project-scoped row over the global one when both exist.
func (r *Repository) Resolve(ctx context.Context, projectID *string, name string) (*Secret, error) {
	var sec Secret
	q := r.db.NewSelect().
		Model(&sec).
		Where("name = ?", name).
		OrderExpr("project_id IS NULL ASC"). // project-scoped (non-null) sorts first
		Limit(1)

	if projectID != nil {
		q = q.Where("(project_id = ? OR project_id IS NULL)", *projectID)
	} else {
		q = q.Where("project_id IS NULL")
	}

	if err := q.Scan(ctx); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	return &sec, nil
}

func (r *Repository) List(ctx context.Context, projectID *string) ([]Secret, error) {
	var rows []Secret
	q := r.db.NewSelect().Model(&rows).Order("name ASC")
	if projectID != nil {
		q = q.Where("project_id = ?", *projectID)
	} else {
		q = q.Where("project_id IS NULL")
	}
	if err := q.Scan(ctx); err != nil {
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	return rows, nil
}

// Delete removes a secret and reports whether a row existed.
func (r *Repository) Delete(ctx context.Context, projectID *string, name string) (bool, error) {
	q := r.db.NewDelete().Model((*Secret)(nil)).Where("name = ?", name)
	if projectID != nil {
		q = q.Where("project_id = ?", *projectID)
	} else {
		q = q.Where("project_id IS NULL")
	}
	res, err := q.Exec(ctx)
	if err != nil {
		return false, apperror.ErrDatabase.WithInternal(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, apperror.ErrDatabase.WithInternal(err)
	}
	return n > 0, nil
}
