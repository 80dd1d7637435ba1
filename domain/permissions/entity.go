package permissions

import (
	"time"

	"github.com/uptrace/bun"
)

// Role is a named, possibly-system-defined bundle of permission strings.
type Role struct {
	bun.BaseModel `bun:"table:core.roles,alias:rl"`

	ID          string    `bun:"id,pk,type:uuid,default:uuid_generate_v4()"`
	Name        string    `bun:"name,notnull,unique"`
	Description string    `bun:"description,notnull"`
	IsSystem    bool      `bun:"is_system,notnull,default:false"`
	CreatedAt   time.Time `bun:"created_at,notnull,default:now()"`
}

// RolePermission binds one permission string to a role.
type RolePermission struct {
	bun.BaseModel `bun:"table:core.role_permissions,alias:rp"`

	RoleID     string `bun:"role_id,pk,type:uuid"`
	Permission string `bun:"permission,pk"`
}

// RoleAssignment grants a user a role, globally or within one project.
type RoleAssignment struct {
	bun.BaseModel `bun:"table:core.role_assignments,alias:ra"`

	ID        string    `bun:"id,pk,type:uuid,default:uuid_generate_v4()"`
	UserID    string    `bun:"user_id,notnull,type:uuid"`
	RoleID    string    `bun:"role_id,notnull,type:uuid"`
	ProjectID *string   `bun:"project_id,type:uuid"`
	CreatedAt time.Time `bun:"created_at,notnull,default:now()"`
}

// Delegation grants one permission at one scope from delegator to
// delegate until it expires or is revoked.
type Delegation struct {
	bun.BaseModel `bun:"table:core.delegations,alias:dg"`

	ID          string     `bun:"id,pk,type:uuid,default:uuid_generate_v4()"`
	DelegatorID string     `bun:"delegator_id,notnull,type:uuid"`
	DelegateID  string     `bun:"delegate_id,notnull,type:uuid"`
	Permission  string     `bun:"permission,notnull"`
	ProjectID   *string    `bun:"project_id,type:uuid"`
	ExpiresAt   time.Time  `bun:"expires_at,notnull"`
	RevokedAt   *time.Time `bun:"revoked_at"`
	CreatedAt   time.Time  `bun:"created_at,notnull,default:now()"`
}

// Valid reports whether the delegation is currently in force.
func (d *Delegation) Valid(now time.Time) bool {
	return d.RevokedAt == nil && d.ExpiresAt.After(now)
}

// DTO is the public representation of a delegation.
type DTO struct {
	ID          string     `json:"id"`
	DelegatorID string     `json:"delegatorId"`
	DelegateID  string     `json:"delegateId"`
	Permission  string     `json:"permission"`
	ProjectID   *string    `json:"projectId,omitempty"`
	ExpiresAt   time.Time  `json:"expiresAt"`
	RevokedAt   *time.Time `json:"revokedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

func (d *Delegation) ToDTO() DTO {
	return DTO{
		ID:          d.ID,
		DelegatorID: d.DelegatorID,
		DelegateID:  d.DelegateID,
		Permission:  d.Permission,
		ProjectID:   d.ProjectID,
		ExpiresAt:   d.ExpiresAt,
		RevokedAt:   d.RevokedAt,
		CreatedAt:   d.CreatedAt,
	}
}
