package telemetry

import (
	"context"
	"log/slog"

	"google.golang.org/protobuf/proto"

	collectorlogspb "go.opentelemetry.io/proto/otlp/collector/logs/v1"
	collectormetricspb "go.opentelemetry.io/proto/otlp/collector/metrics/v1"
	collectortracepb "go.opentelemetry.io/proto/otlp/collector/trace/v1"
	commonpb "go.opentelemetry.io/proto/otlp/common/v1"
	logspb "go.opentelemetry.io/proto/otlp/logs/v1"
	metricspb "go.opentelemetry.io/proto/otlp/metrics/v1"
	resourcepb "go.opentelemetry.io/proto/otlp/resource/v1"
	tracepb "go.opentelemetry.io/proto/otlp/trace/v1"

	"github.com/forgehub/platform/domain/agentsessions"
	"github.com/forgehub/platform/pkg/apperror"
	"github.com/forgehub/platform/pkg/logger"
)

// Service decodes OTLP/HTTP protobuf export requests and persists them as
// normalized telemetry rows.
type Service struct {
	repo     *Repository
	sessions *agentsessions.Repository
	log      *slog.Logger
}

func NewService(repo *Repository, sessions *agentsessions.Repository, log *slog.Logger) *Service {
	return &Service{repo: repo, sessions: sessions, log: log.With(logger.Scope("telemetry.svc"))}
}

// enrichCorrelation fills in a row's project/user from its agent session
// when the exporter only supplied session.id: span/log/metric attributes
// on an agent pod reliably carry SESSION_ID but not always the project or
// issuing user. Never overrides a value the exporter did supply.
func (s *Service) enrichCorrelation(ctx context.Context, rows []*Row) {
	cache := make(map[string][2]string)
	for _, row := range rows {
		if row.SessionID == nil {
			continue
		}
		if row.ProjectID != nil && row.UserID != nil {
			continue
		}
		sessionID := *row.SessionID
		ids, ok := cache[sessionID]
		if !ok {
			projectID, userID, err := s.sessions.CorrelationByID(ctx, sessionID)
			if err != nil {
				s.log.Error("failed to enrich telemetry correlation", logger.Error(err))
				continue
			}
			ids = [2]string{projectID, userID}
			cache[sessionID] = ids
		}
		projectID, userID := ids[0], ids[1]
		if row.ProjectID == nil && projectID != "" {
			row.ProjectID = &projectID
		}
		if row.UserID == nil && userID != "" {
			row.UserID = &userID
		}
	}
}

// IngestTraces decodes an ExportTraceServiceRequest and stores one row per
// span.
func (s *Service) IngestTraces(ctx context.Context, body []byte) error {
	req := &collectortracepb.ExportTraceServiceRequest{}
	if err := proto.Unmarshal(body, req); err != nil {
		return apperror.ErrBadRequest.WithMessage("invalid OTLP trace payload").WithInternal(err)
	}

	var rows []*Row
	for _, rs := range req.ResourceSpans {
		resourceAttrs := resourceAttributes(rs.Resource)
		service := serviceName(resourceAttrs)
		for _, ss := range rs.ScopeSpans {
			for _, span := range ss.Spans {
				rows = append(rows, spanToRow(span, service, resourceAttrs))
			}
		}
	}
	s.enrichCorrelation(ctx, rows)
	return s.repo.InsertBatch(ctx, rows)
}

// IngestLogs decodes an ExportLogsServiceRequest and stores one row per
// log record.
func (s *Service) IngestLogs(ctx context.Context, body []byte) error {
	req := &collectorlogspb.ExportLogsServiceRequest{}
	if err := proto.Unmarshal(body, req); err != nil {
		return apperror.ErrBadRequest.WithMessage("invalid OTLP logs payload").WithInternal(err)
	}

	var rows []*Row
	for _, rl := range req.ResourceLogs {
		resourceAttrs := resourceAttributes(rl.Resource)
		service := serviceName(resourceAttrs)
		for _, sl := range rl.ScopeLogs {
			for _, rec := range sl.LogRecords {
				rows = append(rows, logRecordToRow(rec, service, resourceAttrs))
			}
		}
	}
	s.enrichCorrelation(ctx, rows)
	return s.repo.InsertBatch(ctx, rows)
}

// IngestMetrics decodes an ExportMetricsServiceRequest and stores one row
// per data point across the gauge/sum/histogram/summary metric types.
func (s *Service) IngestMetrics(ctx context.Context, body []byte) error {
	req := &collectormetricspb.ExportMetricsServiceRequest{}
	if err := proto.Unmarshal(body, req); err != nil {
		return apperror.ErrBadRequest.WithMessage("invalid OTLP metrics payload").WithInternal(err)
	}

	var rows []*Row
	for _, rm := range req.ResourceMetrics {
		resourceAttrs := resourceAttributes(rm.Resource)
		service := serviceName(resourceAttrs)
		for _, sm := range rm.ScopeMetrics {
			for _, metric := range sm.Metrics {
				rows = append(rows, metricToRows(metric, service, resourceAttrs)...)
			}
		}
	}
	s.enrichCorrelation(ctx, rows)
	return s.repo.InsertBatch(ctx, rows)
}

func resourceAttributes(r *resourcepb.Resource) []*commonpb.KeyValue {
	if r == nil {
		return nil
	}
	return r.Attributes
}

func spanToRow(span *tracepb.Span, service string, resourceAttrs []*commonpb.KeyValue) *Row {
	name := span.Name
	traceID := hexID(span.TraceId)
	spanID := hexID(span.SpanId)

	attrs := attrsToMap(span.Attributes)
	attrs["kind"] = spanKindName(int32(span.Kind))
	attrs["status"] = statusName(int32(span.Status.GetCode()))

	return &Row{
		Kind:       KindSpan,
		Service:    service,
		SessionID:  resolveUUIDAttr(span.Attributes, resourceAttrs, "session.id"),
		ProjectID:  resolveUUIDAttr(span.Attributes, resourceAttrs, "project.id"),
		UserID:     resolveUUIDAttr(span.Attributes, resourceAttrs, "user.id"),
		TraceID:    &traceID,
		SpanID:     &spanID,
		Name:       &name,
		AttrsJSON:  attrs,
		ObservedAt: nanosToTime(span.StartTimeUnixNano),
	}
}

func logRecordToRow(rec *logspb.LogRecord, service string, resourceAttrs []*commonpb.KeyValue) *Row {
	severity := severityName(int32(rec.SeverityNumber))
	traceID := hexID(rec.TraceId)
	spanID := hexID(rec.SpanId)

	attrs := attrsToMap(rec.Attributes)
	attrs["severity"] = severity
	if rec.Body != nil {
		attrs["body"] = attrValue(rec.Body)
	}

	return &Row{
		Kind:       KindLog,
		Service:    service,
		SessionID:  resolveUUIDAttr(rec.Attributes, resourceAttrs, "session.id"),
		ProjectID:  resolveUUIDAttr(rec.Attributes, resourceAttrs, "project.id"),
		UserID:     resolveUUIDAttr(rec.Attributes, resourceAttrs, "user.id"),
		TraceID:    &traceID,
		SpanID:     &spanID,
		Name:       &severity,
		AttrsJSON:  attrs,
		ObservedAt: nanosToTime(rec.TimeUnixNano),
	}
}

func metricToRows(metric *metricspb.Metric, service string, resourceAttrs []*commonpb.KeyValue) []*Row {
	name := metric.Name
	switch data := metric.Data.(type) {
	case *metricspb.Metric_Gauge:
		return numberPointsToRows(data.Gauge.DataPoints, name, service, resourceAttrs)
	case *metricspb.Metric_Sum:
		return numberPointsToRows(data.Sum.DataPoints, name, service, resourceAttrs)
	case *metricspb.Metric_Histogram:
		rows := make([]*Row, 0, len(data.Histogram.DataPoints))
		for _, dp := range data.Histogram.DataPoints {
			v := dp.GetSum()
			rows = append(rows, &Row{
				Kind:       KindMetric,
				Service:    service,
				ProjectID:  resolveUUIDAttr(dp.Attributes, resourceAttrs, "project.id"),
				UserID:     resolveUUIDAttr(dp.Attributes, resourceAttrs, "user.id"),
				SessionID:  resolveUUIDAttr(dp.Attributes, resourceAttrs, "session.id"),
				Name:       &name,
				Value:      &v,
				AttrsJSON:  attrsToMap(dp.Attributes),
				ObservedAt: nanosToTime(dp.TimeUnixNano),
			})
		}
		return rows
	case *metricspb.Metric_Summary:
		rows := make([]*Row, 0, len(data.Summary.DataPoints))
		for _, dp := range data.Summary.DataPoints {
			v := dp.Sum
			rows = append(rows, &Row{
				Kind:       KindMetric,
				Service:    service,
				ProjectID:  resolveUUIDAttr(dp.Attributes, resourceAttrs, "project.id"),
				UserID:     resolveUUIDAttr(dp.Attributes, resourceAttrs, "user.id"),
				SessionID:  resolveUUIDAttr(dp.Attributes, resourceAttrs, "session.id"),
				Name:       &name,
				Value:      &v,
				AttrsJSON:  attrsToMap(dp.Attributes),
				ObservedAt: nanosToTime(dp.TimeUnixNano),
			})
		}
		return rows
	default:
		return nil
	}
}

func numberPointsToRows(points []*metricspb.NumberDataPoint, name, service string, resourceAttrs []*commonpb.KeyValue) []*Row {
	rows := make([]*Row, 0, len(points))
	for _, dp := range points {
		var v float64
		switch val := dp.Value.(type) {
		case *metricspb.NumberDataPoint_AsDouble:
			v = val.AsDouble
		case *metricspb.NumberDataPoint_AsInt:
			v = float64(val.AsInt)
		}
		rows = append(rows, &Row{
			Kind:       KindMetric,
			Service:    service,
			ProjectID:  resolveUUIDAttr(dp.Attributes, resourceAttrs, "project.id"),
			UserID:     resolveUUIDAttr(dp.Attributes, resourceAttrs, "user.id"),
			SessionID:  resolveUUIDAttr(dp.Attributes, resourceAttrs, "session.id"),
			Name:       &name,
			Value:      &v,
			AttrsJSON:  attrsToMap(dp.Attributes),
			ObservedAt: nanosToTime(dp.TimeUnixNano),
		})
	}
	return rows
}

func hexID(b []byte) string {
	const hexDigits = "0123456789abcdef"
	out := make([]byte, len(b)*2)
	for i, c := range b {
		out[i*2] = hexDigits[c>>4]
		out[i*2+1] = hexDigits[c&0x0f]
	}
	return string(out)
}
