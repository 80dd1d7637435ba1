package apitoken

import (
	"time"

	"github.com/uptrace/bun"
)

// ApiToken is a row in core.api_tokens. Only the SHA-256 hash of the raw
// token is stored; the raw value is handed back exactly once, at
// creation. Tokens are not revocable before their natural expiry — only
// deactivating the owning user ends their validity early.
type ApiToken struct {
	bun.BaseModel `bun:"table:core.api_tokens,alias:at"`

	ID        string     `bun:"id,pk,type:uuid,default:uuid_generate_v4()"`
	UserID    string     `bun:"user_id,notnull,type:uuid"`
	Name      string     `bun:"name,notnull"`
	TokenHash string     `bun:"token_hash,notnull,unique"`
	Scopes    []string   `bun:"scopes,array"`
	ExpiresAt *time.Time `bun:"expires_at"`
	CreatedAt time.Time  `bun:"created_at,notnull,default:now()"`
}

// DTO is the public representation of a token; the hash never appears.
type DTO struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Scopes    []string   `json:"scopes"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

func (t *ApiToken) ToDTO() DTO {
	return DTO{
		ID:        t.ID,
		Name:      t.Name,
		Scopes:    t.Scopes,
		ExpiresAt: t.ExpiresAt,
		CreatedAt: t.CreatedAt,
	}
}

// CreatedDTO extends DTO with the raw token, returned only at creation.
type CreatedDTO struct {
	DTO
	Token string `json:"token"`
}
