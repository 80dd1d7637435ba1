package webhooks

import (
	"encoding/json"
	"time"

	"github.com/uptrace/bun"
)

type DeliveryStatus string

const (
	DeliveryPending    DeliveryStatus = "pending"
	DeliveryProcessing DeliveryStatus = "processing"
	DeliveryDelivered  DeliveryStatus = "delivered"
	DeliveryFailed     DeliveryStatus = "failed"
	DeliveryDropped    DeliveryStatus = "dropped"
)

type Webhook struct {
	bun.BaseModel `bun:"table:core.webhooks,alias:w"`

	ID        string    `bun:"id,pk,type:uuid,default:uuid_generate_v4()"`
	ProjectID string    `bun:"project_id,notnull,type:uuid"`
	URL       string    `bun:"url,notnull"`
	Events    []string  `bun:"events,array,notnull"`
	Secret    *string   `bun:"secret"`
	IsActive  bool      `bun:"is_active,notnull,default:true"`
	CreatedAt time.Time `bun:"created_at,notnull,default:now()"`
}

type WebhookDTO struct {
	ID        string   `json:"id"`
	ProjectID string   `json:"projectId"`
	URL       string   `json:"url"`
	Events    []string `json:"events"`
	HasSecret bool     `json:"hasSecret"`
	IsActive  bool     `json:"isActive"`
}

func (w *Webhook) ToDTO() WebhookDTO {
	return WebhookDTO{
		ID:        w.ID,
		ProjectID: w.ProjectID,
		URL:       w.URL,
		Events:    w.Events,
		HasSecret: w.Secret != nil && *w.Secret != "",
		IsActive:  w.IsActive,
	}
}

// Matches reports whether the webhook is active and subscribed to event.
func (w *Webhook) Matches(event string) bool {
	if !w.IsActive {
		return false
	}
	for _, e := range w.Events {
		if e == event {
			return true
		}
	}
	return false
}

type Delivery struct {
	bun.BaseModel `bun:"table:core.webhook_deliveries,alias:wd"`

	ID           string          `bun:"id,pk,type:uuid,default:uuid_generate_v4()"`
	WebhookID    string          `bun:"webhook_id,notnull,type:uuid"`
	Event        string          `bun:"event,notnull"`
	Payload      json.RawMessage `bun:"payload,type:jsonb,notnull"`
	Status       DeliveryStatus  `bun:"status,notnull,default:'pending'"`
	Priority     int             `bun:"priority,notnull,default:0"`
	AttemptCount int             `bun:"attempt_count,notnull,default:0"`
	LastError    *string         `bun:"last_error"`
	ScheduledAt  time.Time       `bun:"scheduled_at,notnull,default:now()"`
	StartedAt    *time.Time      `bun:"started_at"`
	CompletedAt  *time.Time      `bun:"completed_at"`
	UpdatedAt    time.Time       `bun:"updated_at,notnull,default:now()"`
	CreatedAt    time.Time       `bun:"created_at,notnull,default:now()"`
}

// Envelope is the canonical JSON body sent to webhook endpoints.
type Envelope struct {
	Event     string          `json:"event"`
	ProjectID string          `json:"project_id"`
	Timestamp time.Time       `json:"ts"`
	Data      json.RawMessage `json:"data"`
}
