package notifications

import (
	"time"

	"github.com/uptrace/bun"
)

// Channel is the delivery surface for a notification.
type Channel string

const (
	ChannelInApp Channel = "in_app"
	ChannelEmail Channel = "email"
)

// Status tracks delivery/read state. Unread means status is Pending or Sent.
type Status string

const (
	StatusPending Status = "pending"
	StatusSent    Status = "sent"
	StatusRead    Status = "read"
)

// Notification is a row in core.notifications.
type Notification struct {
	bun.BaseModel `bun:"table:core.notifications,alias:n"`

	ID               string    `bun:"id,pk,type:uuid,default:uuid_generate_v4()"`
	UserID           string    `bun:"user_id,notnull,type:uuid"`
	NotificationType string    `bun:"notification_type,notnull"`
	Subject          string    `bun:"subject,notnull"`
	Channel          Channel   `bun:"channel,notnull,default:'in_app'"`
	Status           Status    `bun:"status,notnull,default:'pending'"`
	CreatedAt        time.Time `bun:"created_at,notnull,default:now()"`
}

// DTO is the public representation of a notification.
type DTO struct {
	ID               string    `json:"id"`
	UserID           string    `json:"userId"`
	NotificationType string    `json:"notificationType"`
	Subject          string    `json:"subject"`
	Channel          Channel   `json:"channel"`
	Status           Status    `json:"status"`
	CreatedAt        time.Time `json:"createdAt"`
}

func (n *Notification) ToDTO() DTO {
	return DTO{
		ID:               n.ID,
		UserID:           n.UserID,
		NotificationType: n.NotificationType,
		Subject:          n.Subject,
		Channel:          n.Channel,
		Status:           n.Status,
		CreatedAt:        n.CreatedAt,
	}
}

// IsUnread reports whether status is pending or sent.
func (n *Notification) IsUnread() bool {
	return n.Status == StatusPending || n.Status == StatusSent
}
