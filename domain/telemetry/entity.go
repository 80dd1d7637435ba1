package telemetry

import (
	"time"

	"github.com/uptrace/bun"
)

type Kind string

const (
	KindSpan   Kind = "span"
	KindLog    Kind = "log"
	KindMetric Kind = "metric"
)

// Row is a single normalized telemetry record: one span, log line, or
// metric point. The schema is intentionally flat — OTLP's nested
// resource/scope/record structure collapses into one row per leaf
// record plus the resource attributes that contextualize it.
type Row struct {
	bun.BaseModel `bun:"table:telemetry.rows,alias:tr"`

	ID         string         `bun:"id,pk,type:uuid,default:uuid_generate_v4()"`
	Kind       Kind           `bun:"kind,notnull"`
	Service    string         `bun:"service,notnull"`
	SessionID  *string        `bun:"session_id,type:uuid"`
	ProjectID  *string        `bun:"project_id,type:uuid"`
	UserID     *string        `bun:"user_id,type:uuid"`
	TraceID    *string        `bun:"trace_id"`
	SpanID     *string        `bun:"span_id"`
	Name       *string        `bun:"name"`
	Value      *float64       `bun:"value"`
	AttrsJSON  map[string]any `bun:"attrs_json,type:jsonb,notnull"`
	ObservedAt time.Time      `bun:"observed_at,notnull,default:now()"`
}
