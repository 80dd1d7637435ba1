package sessions

import (
	"time"

	"github.com/uptrace/bun"
)

// Session is a row in core.auth_sessions. Only the SHA-256 hash of the
// raw bearer token is ever persisted; the raw value is returned once,
// at creation time, and never again.
type Session struct {
	bun.BaseModel `bun:"table:core.auth_sessions,alias:ses"`

	ID        string    `bun:"id,pk,type:uuid,default:uuid_generate_v4()"`
	UserID    string    `bun:"user_id,notnull"`
	TokenHash string    `bun:"token_hash,notnull,unique"`
	ExpiresAt time.Time `bun:"expires_at,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull,default:now()"`
}
