package agentsessions

import (
	"time"

	"github.com/uptrace/bun"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusStopped   Status = "stopped"
	StatusFailed    Status = "failed"
)

// AgentSession is a row in core.agent_sessions: one spawn of the coding
// agent against a project, from identity mint through pod teardown.
type AgentSession struct {
	bun.BaseModel `bun:"table:core.agent_sessions,alias:as"`

	ID             string         `bun:"id,pk,type:uuid,default:uuid_generate_v4()"`
	ProjectID      string         `bun:"project_id,notnull,type:uuid"`
	UserID         string         `bun:"user_id,notnull,type:uuid"`
	AgentUserID    *string        `bun:"agent_user_id,type:uuid"`
	Prompt         string         `bun:"prompt,notnull"`
	Provider       string         `bun:"provider,notnull"`
	ProviderConfig map[string]any `bun:"provider_config,type:jsonb,notnull"`
	Branch         *string        `bun:"branch"`
	PodName        *string        `bun:"pod_name"`
	Status         Status         `bun:"status,notnull,default:'pending'"`
	CostTokens     *int64         `bun:"cost_tokens"`
	CreatedAt      time.Time      `bun:"created_at,notnull,default:now()"`
	FinishedAt     *time.Time     `bun:"finished_at"`
}

// DTO is the public representation of an agent session.
type DTO struct {
	ID          string     `json:"id"`
	ProjectID   string     `json:"projectId"`
	UserID      string     `json:"userId"`
	Prompt      string     `json:"prompt"`
	Provider    string     `json:"provider"`
	Branch      *string    `json:"branch,omitempty"`
	PodName     *string    `json:"podName,omitempty"`
	Status      Status     `json:"status"`
	CostTokens  *int64     `json:"costTokens,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	FinishedAt  *time.Time `json:"finishedAt,omitempty"`
}

func (a *AgentSession) ToDTO() DTO {
	return DTO{
		ID:         a.ID,
		ProjectID:  a.ProjectID,
		UserID:     a.UserID,
		Prompt:     a.Prompt,
		Provider:   a.Provider,
		Branch:     a.Branch,
		PodName:    a.PodName,
		Status:     a.Status,
		CostTokens: a.CostTokens,
		CreatedAt:  a.CreatedAt,
		FinishedAt: a.FinishedAt,
	}
}

// ShortID returns the first 8 hex characters of a session id, used to
// derive pod names and the default branch name. UUIDs always have at
// least 8 hex characters before their first hyphen.
func ShortID(sessionID string) string {
	if len(sessionID) < 8 {
		return sessionID
	}
	return sessionID[:8]
}

// DefaultBranch returns the branch an agent session checks out when the
// caller does not supply one.
func DefaultBranch(sessionID string) string {
	return "agent/" + ShortID(sessionID)
}

// PodName returns the deterministic pod name for a session.
func PodName(sessionID string) string {
	return "agent-" + ShortID(sessionID)
}
