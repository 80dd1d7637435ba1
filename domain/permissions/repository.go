package permissions

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

// Repository reads and writes roles, assignments, and delegations, and
// answers the project-ownership/visibility questions the permission
// engine's union rule depends on.
type Repository struct {
	db  bun.IDB
	log *slog.Logger
}

func NewRepository(db bun.IDB, log *slog.Logger) *Repository {
	return &Repository{db: db, log: log.With(logger.Scope("permissions.repo"))}
}

// PermissionsForAssignedRoles returns every permission string granted
// by roles assigned to userID, matching either a global assignment
// (project_id IS NULL) or one scoped to projectID.
func (r *Repository) PermissionsForAssignedRoles(ctx context.Context, userID string, projectID *string) ([]string, error) {
	var perms []string
	q := r.db.NewSelect().
		ColumnExpr("DISTINCT rp.permission").
		TableExpr("core.role_permissions AS rp").
		Join("JOIN core.role_assignments AS ra ON ra.role_id = rp.role_id").
		Where("ra.user_id = ?", userID)

	if projectID != nil {
		q = q.Where("ra.project_id IS NULL OR ra.project_id = ?", *projectID)
	} else {
		q = q.Where("ra.project_id IS NULL")
	}

	if err := q.Scan(ctx, &perms); err != nil {
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	return perms, nil
}

// PermissionsForActiveDelegations returns every permission granted to
// userID via a currently-valid delegation matching the given scope.
func (r *Repository) PermissionsForActiveDelegations(ctx context.Context, userID string, projectID *string) ([]string, error) {
	var perms []string
	q := r.db.NewSelect().
		ColumnExpr("DISTINCT permission").
		TableExpr("core.delegations").
		Where("delegate_id = ?", userID).
		Where("revoked_at IS NULL").
		Where("expires_at > ?", time.Now())

	if projectID != nil {
		q = q.Where("project_id IS NULL OR project_id = ?", *projectID)
	} else {
		q = q.Where("project_id IS NULL")
	}

	if err := q.Scan(ctx, &perms); err != nil {
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	return perms, nil
}

// ProjectOwnerAndVisibility returns the owning user and visibility of
// a project, or apperror.ErrNotFound if it does not exist or is
// soft-deleted.
func (r *Repository) ProjectOwnerAndVisibility(ctx context.Context, projectID string) (ownerID, visibility string, err error) {
	row := struct {
		OwnerID    string `bun:"owner_id"`
		Visibility string `bun:"visibility"`
	}{}
	dbErr := r.db.NewSelect().
		ColumnExpr("owner_id, visibility").
		TableExpr("core.projects").
		Where("id = ? AND NOT is_deleted", projectID).
		Scan(ctx, &row)
	if dbErr != nil {
		if errors.Is(dbErr, sql.ErrNoRows) {
			return "", "", apperror.ErrNotFound
		}
		return "", "", apperror.ErrDatabase.WithInternal(dbErr)
	}
	return row.OwnerID, row.Visibility, nil
}

// CreateDelegation inserts a new delegation row.
func (r *Repository) CreateDelegation(ctx context.Context, d *Delegation) error {
	_, err := r.db.NewInsert().Model(d).Exec(ctx)
	if err != nil {
		return apperror.ErrDatabase.WithInternal(err)
	}
	return nil
}

// GetDelegation returns a delegation by ID.
func (r *Repository) GetDelegation(ctx context.Context, id string) (*Delegation, error) {
	d := new(Delegation)
	err := r.db.NewSelect().Model(d).Where("id = ?", id).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	return d, nil
}

// RevokeDelegation sets revoked_at=now() for a delegation, returning
// apperror.ErrNotFound if it does not exist.
func (r *Repository) RevokeDelegation(ctx context.Context, id string) error {
	res, err := r.db.NewUpdate().
		TableExpr("core.delegations").
		Set("revoked_at = now()").
		Where("id = ? AND revoked_at IS NULL", id).
		Exec(ctx)
	if err != nil {
		return apperror.ErrDatabase.WithInternal(err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return apperror.ErrNotFound
	}
	return nil
}

// AssignRole grants userID a role, optionally scoped to projectID.
func (r *Repository) AssignRole(ctx context.Context, a *RoleAssignment) error {
	_, err := r.db.NewInsert().Model(a).
		On("CONFLICT (user_id, role_id, project_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return apperror.ErrDatabase.WithInternal(err)
	}
	return nil
}

// RoleByName resolves a role by its unique name.
func (r *Repository) RoleByName(ctx context.Context, name string) (*Role, error) {
	role := new(Role)
	err := r.db.NewSelect().Model(role).Where("name = ?", name).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	return role, nil
}
