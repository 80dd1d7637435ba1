package telemetry

import (
	"time"

	"github.com/google/uuid"

	commonpb "go.opentelemetry.io/proto/otlp/common/v1"
)

// severityName maps an OTLP SeverityNumber (1-24) to the platform's
// reduced severity vocabulary.
func severityName(n int32) string {
	switch {
	case n >= 1 && n <= 4:
		return "trace"
	case n >= 5 && n <= 8:
		return "debug"
	case n >= 13 && n <= 16:
		return "warn"
	case n >= 17 && n <= 20:
		return "error"
	case n >= 21 && n <= 24:
		return "fatal"
	default:
		// covers 9-12 and any unrecognized/unset value
		return "info"
	}
}

// spanKindName maps the OTLP Span.SpanKind enum to its lowercase name.
// Unknown values default to "internal".
func spanKindName(k int32) string {
	switch k {
	case 2:
		return "server"
	case 3:
		return "client"
	case 4:
		return "producer"
	case 5:
		return "consumer"
	default:
		return "internal"
	}
}

// statusName maps an OTLP Status.StatusCode to "ok"/"error"/"unset".
func statusName(code int32) string {
	switch code {
	case 1:
		return "ok"
	case 2:
		return "error"
	default:
		return "unset"
	}
}

// nanosToTime converts OTLP's uint64 Unix-nanosecond timestamps to
// time.Time, falling back to the epoch on overflow or a zero value.
func nanosToTime(nanos uint64) time.Time {
	if nanos == 0 || nanos > 1<<62 {
		return time.Unix(0, 0).UTC()
	}
	return time.Unix(0, int64(nanos)).UTC()
}

// parseUUIDAttr parses s as a UUID, returning nil on failure rather than
// an error — malformed session/project/user attributes are dropped, not
// fatal to ingest.
func parseUUIDAttr(s string) *string {
	if s == "" {
		return nil
	}
	if _, err := uuid.Parse(s); err != nil {
		return nil
	}
	return &s
}

// attrValue recursively converts an OTLP AnyValue into a plain Go value
// suitable for JSON encoding: scalars pass through, arrays become
// slices, kvlists become maps, and an unset value becomes nil.
func attrValue(v *commonpb.AnyValue) any {
	if v == nil {
		return nil
	}
	switch val := v.Value.(type) {
	case *commonpb.AnyValue_StringValue:
		return val.StringValue
	case *commonpb.AnyValue_BoolValue:
		return val.BoolValue
	case *commonpb.AnyValue_IntValue:
		return val.IntValue
	case *commonpb.AnyValue_DoubleValue:
		return val.DoubleValue
	case *commonpb.AnyValue_ArrayValue:
		if val.ArrayValue == nil {
			return []any{}
		}
		out := make([]any, len(val.ArrayValue.Values))
		for i, item := range val.ArrayValue.Values {
			out[i] = attrValue(item)
		}
		return out
	case *commonpb.AnyValue_KvlistValue:
		if val.KvlistValue == nil {
			return map[string]any{}
		}
		return attrsToMap(val.KvlistValue.Values)
	default:
		return nil
	}
}

// attrsToMap converts a flat OTLP KeyValue slice into a JSON-ready map.
func attrsToMap(kvs []*commonpb.KeyValue) map[string]any {
	out := make(map[string]any, len(kvs))
	for _, kv := range kvs {
		out[kv.Key] = attrValue(kv.Value)
	}
	return out
}

// attrString returns the string value of attr named key, or "" if
// absent or not a string.
func attrString(kvs []*commonpb.KeyValue, key string) string {
	for _, kv := range kvs {
		if kv.Key == key {
			if s, ok := kv.Value.GetValue().(*commonpb.AnyValue_StringValue); ok {
				return s.StringValue
			}
		}
	}
	return ""
}

// serviceName extracts resource attribute service.name, defaulting to
// "unknown" per the OTLP semantic-convention fallback.
func serviceName(resourceAttrs []*commonpb.KeyValue) string {
	if s := attrString(resourceAttrs, "service.name"); s != "" {
		return s
	}
	return "unknown"
}

// resolveUUIDAttr looks for key on the record's own attributes first,
// falling back to the resource's attributes. It never overrides an
// already-resolved value — callers only call this when the field is
// still unset.
func resolveUUIDAttr(recordAttrs, resourceAttrs []*commonpb.KeyValue, key string) *string {
	if s := attrString(recordAttrs, key); s != "" {
		if v := parseUUIDAttr(s); v != nil {
			return v
		}
	}
	if s := attrString(resourceAttrs, key); s != "" {
		return parseUUIDAttr(s)
	}
	return nil
}
