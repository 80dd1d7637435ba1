package secrets

import (
	"time"

	"github.com/uptrace/bun"
)

// Scope restricts where a secret may be inlined.
type Scope string

const (
	ScopeAll      Scope = "all"
	ScopePipeline Scope = "pipeline"
	ScopeDeploy   Scope = "deploy"
)

// Secret is a row in core.secrets. EncryptedValue is the raw nonce||ciphertext
// envelope produced by Crypto.Encrypt; it is never exposed through the DTO.
type Secret struct {
	bun.BaseModel `bun:"table:core.secrets,alias:sec"`

	ID             string    `bun:"id,pk,type:uuid,default:uuid_generate_v4()"`
	ProjectID      *string   `bun:"project_id,type:uuid"`
	Name           string    `bun:"name,notnull"`
	EncryptedValue []byte    `bun:"encrypted_value,notnull"`
	Scope          Scope     `bun:"scope,notnull"`
	Version        int       `bun:"version,notnull,default:1"`
	CreatedBy      string    `bun:"created_by,notnull,type:uuid"`
	CreatedAt      time.Time `bun:"created_at,notnull,default:now()"`
	UpdatedAt      time.Time `bun:"updated_at,notnull,default:now()"`
}

// DTO is the response shape for list/get endpoints. Ciphertext never appears.
type DTO struct {
	ID        string    `json:"id"`
	ProjectID *string   `json:"projectId,omitempty"`
	Name      string    `json:"name"`
	Scope     Scope     `json:"scope"`
	Version   int       `json:"version"`
	CreatedBy string    `json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (s *Secret) ToDTO() DTO {
	return DTO{
		ID:        s.ID,
		ProjectID: s.ProjectID,
		Name:      s.Name,
		Scope:     s.Scope,
		Version:   s.Version,
		CreatedBy: s.CreatedBy,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}
