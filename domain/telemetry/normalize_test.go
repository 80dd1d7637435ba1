package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"

	commonpb "go.opentelemetry.io/proto/otlp/common/v1"
)

func TestSeverityName(t *testing.T) {
	assert.Equal(t, "trace", severityName(1))
	assert.Equal(t, "debug", severityName(8))
	assert.Equal(t, "info", severityName(9))
	assert.Equal(t, "info", severityName(0))
	assert.Equal(t, "warn", severityName(13))
	assert.Equal(t, "error", severityName(17))
	assert.Equal(t, "fatal", severityName(24))
}

func TestSpanKindName(t *testing.T) {
	assert.Equal(t, "internal", spanKindName(0))
	assert.Equal(t, "server", spanKindName(2))
	assert.Equal(t, "client", spanKindName(3))
	assert.Equal(t, "producer", spanKindName(4))
	assert.Equal(t, "consumer", spanKindName(5))
	assert.Equal(t, "internal", spanKindName(99))
}

func TestStatusName(t *testing.T) {
	assert.Equal(t, "unset", statusName(0))
	assert.Equal(t, "ok", statusName(1))
	assert.Equal(t, "error", statusName(2))
}

func TestNanosToTime_ZeroFallsBackToEpoch(t *testing.T) {
	assert.True(t, nanosToTime(0).Equal(nanosToTime(0)))
	assert.Equal(t, int64(0), nanosToTime(0).Unix())
}

func TestParseUUIDAttr(t *testing.T) {
	assert.Nil(t, parseUUIDAttr(""))
	assert.Nil(t, parseUUIDAttr("not-a-uuid"))
	v := parseUUIDAttr("550e8400-e29b-41d4-a716-446655440000")
	if assert.NotNil(t, v) {
		assert.Equal(t, "550e8400-e29b-41d4-a716-446655440000", *v)
	}
}

func TestAttrsToMap_ConvertsScalarsArraysAndKvlists(t *testing.T) {
	kvs := []*commonpb.KeyValue{
		{Key: "name", Value: &commonpb.AnyValue{Value: &commonpb.AnyValue_StringValue{StringValue: "svc"}}},
		{Key: "ok", Value: &commonpb.AnyValue{Value: &commonpb.AnyValue_BoolValue{BoolValue: true}}},
		{Key: "tags", Value: &commonpb.AnyValue{Value: &commonpb.AnyValue_ArrayValue{ArrayValue: &commonpb.ArrayValue{
			Values: []*commonpb.AnyValue{
				{Value: &commonpb.AnyValue_StringValue{StringValue: "a"}},
			},
		}}}},
	}
	out := attrsToMap(kvs)
	assert.Equal(t, "svc", out["name"])
	assert.Equal(t, true, out["ok"])
	assert.Equal(t, []any{"a"}, out["tags"])
}

func TestServiceName_DefaultsToUnknown(t *testing.T) {
	assert.Equal(t, "unknown", serviceName(nil))
	kvs := []*commonpb.KeyValue{
		{Key: "service.name", Value: &commonpb.AnyValue{Value: &commonpb.AnyValue_StringValue{StringValue: "api"}}},
	}
	assert.Equal(t, "api", serviceName(kvs))
}
