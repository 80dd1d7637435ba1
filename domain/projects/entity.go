package projects

import (
	"time"

	"github.com/uptrace/bun"
)

// Visibility controls implicit read access: public projects grant
// read to every authenticated user, private ones don't.
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

// Project is a row in core.projects.
type Project struct {
	bun.BaseModel `bun:"table:core.projects,alias:p"`

	ID         string     `bun:"id,pk,type:uuid,default:uuid_generate_v4()"`
	Name       string     `bun:"name,notnull"`
	OwnerID    string     `bun:"owner_id,notnull,type:uuid"`
	Visibility Visibility `bun:"visibility,notnull,default:'private'"`
	RepoPath   string     `bun:"repo_path,notnull"`
	IsDeleted  bool       `bun:"is_deleted,notnull,default:false"`
	CreatedAt  time.Time  `bun:"created_at,notnull,default:now()"`
	UpdatedAt  time.Time  `bun:"updated_at,notnull,default:now()"`
}

// DTO is the public representation of a project.
type DTO struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	OwnerID    string     `json:"ownerId"`
	Visibility Visibility `json:"visibility"`
	RepoPath   string     `json:"repoPath"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

func (p *Project) ToDTO() DTO {
	return DTO{
		ID:         p.ID,
		Name:       p.Name,
		OwnerID:    p.OwnerID,
		Visibility: p.Visibility,
		RepoPath:   p.RepoPath,
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
	}
}
