package users

import (
	"time"

	"github.com/uptrace/bun"
)

// Kind discriminates why a User row exists.
type Kind string

const (
	KindHuman          Kind = "human"
	KindAgent          Kind = "agent"
	KindServiceAccount Kind = "service_account"
)

// User is a row in core.users. Only KindHuman may authenticate with a
// password or spawn agent sessions; agent and service_account users hold
// tokens only.
type User struct {
	bun.BaseModel `bun:"table:core.users,alias:usr"`

	ID           string    `bun:"id,pk,type:uuid,default:uuid_generate_v4()"`
	Name         string    `bun:"name,notnull,unique"`
	Email        string    `bun:"email"`
	PasswordHash *string   `bun:"password_hash"`
	Kind         Kind      `bun:"kind,notnull"`
	IsActive     bool      `bun:"is_active,notnull,default:true"`
	CreatedAt    time.Time `bun:"created_at,notnull,default:now()"`
}

// DTO is the public representation of a user; password_hash never appears.
type DTO struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Kind      Kind      `json:"kind"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
}

func (u *User) ToDTO() DTO {
	return DTO{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Kind:      u.Kind,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
	}
}
