package deployments

import (
	"time"

	"github.com/uptrace/bun"
)

// DesiredStatus is operator intent: what the reconciler should drive
// current_status toward.
type DesiredStatus string

const (
	DesiredActive   DesiredStatus = "active"
	DesiredStopped  DesiredStatus = "stopped"
	DesiredRollback DesiredStatus = "rollback"
)

// CurrentStatus is the reconciler's observed state machine:
// pending -> syncing -> (healthy | failed).
type CurrentStatus string

const (
	CurrentPending CurrentStatus = "pending"
	CurrentSyncing CurrentStatus = "syncing"
	CurrentHealthy CurrentStatus = "healthy"
	CurrentFailed  CurrentStatus = "failed"
)

// Deployment is a row in core.deployments: one environment (or preview)
// of a project tracked by the reconciler.
type Deployment struct {
	bun.BaseModel `bun:"table:core.deployments,alias:d"`

	ID             string        `bun:"id,pk,type:uuid,default:uuid_generate_v4()"`
	ProjectID      string        `bun:"project_id,notnull,type:uuid"`
	Environment    string        `bun:"environment,notnull"`
	ImageRef       string        `bun:"image_ref,notnull"`
	DesiredStatus  DesiredStatus `bun:"desired_status,notnull,default:'active'"`
	CurrentStatus  CurrentStatus `bun:"current_status,notnull,default:'pending'"`
	IsPreview      bool          `bun:"is_preview,notnull,default:false"`
	Branch         *string       `bun:"branch"`
	BranchSlug     *string       `bun:"branch_slug"`
	TTLHours       *int          `bun:"ttl_hours"`
	ExpiresAt      *time.Time    `bun:"expires_at"`
	CreatedAt      time.Time     `bun:"created_at,notnull,default:now()"`
	UpdatedAt      time.Time     `bun:"updated_at,notnull,default:now()"`
}

// DTO is the public representation of a deployment.
type DTO struct {
	ID            string        `json:"id"`
	ProjectID     string        `json:"projectId"`
	Environment   string        `json:"environment"`
	ImageRef      string        `json:"imageRef"`
	DesiredStatus DesiredStatus `json:"desiredStatus"`
	CurrentStatus CurrentStatus `json:"currentStatus"`
	IsPreview     bool          `json:"isPreview"`
	Branch        *string       `json:"branch,omitempty"`
	BranchSlug    *string       `json:"branchSlug,omitempty"`
	ExpiresAt     *time.Time    `json:"expiresAt,omitempty"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

func (d *Deployment) ToDTO() DTO {
	return DTO{
		ID:            d.ID,
		ProjectID:     d.ProjectID,
		Environment:   d.Environment,
		ImageRef:      d.ImageRef,
		DesiredStatus: d.DesiredStatus,
		CurrentStatus: d.CurrentStatus,
		IsPreview:     d.IsPreview,
		Branch:        d.Branch,
		BranchSlug:    d.BranchSlug,
		ExpiresAt:     d.ExpiresAt,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
}

// ClusterName is the cluster Deployment object name the reconciler
// applies/updates, matching {project-name}-{environment}.
func ClusterName(projectName, environment string) string {
	return Slugify(projectName) + "-" + Slugify(environment)
}

// DeploymentHistory is a row in core.deployment_history: one transition
// recorded for audit and rollback.
type DeploymentHistory struct {
	bun.BaseModel `bun:"table:core.deployment_history,alias:dh"`

	ID           string    `bun:"id,pk,type:uuid,default:uuid_generate_v4()"`
	DeploymentID string    `bun:"deployment_id,notnull,type:uuid"`
	Action       string    `bun:"action,notnull"`
	FromStatus   *string   `bun:"from_status"`
	ToStatus     string    `bun:"to_status,notnull"`
	Detail       string    `bun:"detail,notnull,default:''"`
	CreatedAt    time.Time `bun:"created_at,notnull,default:now()"`
}

// History actions.
const (
	ActionDeploy   = "deploy"
	ActionStop     = "stop"
	ActionRollback = "rollback"
	ActionSync     = "sync"
	ActionExpire   = "expire"
)
