package telemetry

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"google.golang.org/protobuf/proto"

	collectorlogspb "go.opentelemetry.io/proto/otlp/collector/logs/v1"
	collectormetricspb "go.opentelemetry.io/proto/otlp/collector/metrics/v1"
	collectortracepb "go.opentelemetry.io/proto/otlp/collector/trace/v1"

	"github.com/forgehub/platform/pkg/apperror"
)

// Handler implements the OTLP/HTTP protobuf ingest endpoints.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Traces accepts an ExportTraceServiceRequest.
// @Summary      OTLP trace ingest
// @Tags         telemetry
// @Accept       application/x-protobuf
// @Router       /v1/traces [post]
// @Security     bearerAuth
func (h *Handler) Traces(c echo.Context) error {
	body, err := readBody(c)
	if err != nil {
		return err
	}
	if err := h.svc.IngestTraces(c.Request().Context(), body); err != nil {
		return err
	}
	return protoResponse(c, &collectortracepb.ExportTraceServiceResponse{})
}

// Logs accepts an ExportLogsServiceRequest.
// @Summary      OTLP logs ingest
// @Tags         telemetry
// @Accept       application/x-protobuf
// @Router       /v1/logs [post]
// @Security     bearerAuth
func (h *Handler) Logs(c echo.Context) error {
	body, err := readBody(c)
	if err != nil {
		return err
	}
	if err := h.svc.IngestLogs(c.Request().Context(), body); err != nil {
		return err
	}
	return protoResponse(c, &collectorlogspb.ExportLogsServiceResponse{})
}

// Metrics accepts an ExportMetricsServiceRequest.
// @Summary      OTLP metrics ingest
// @Tags         telemetry
// @Accept       application/x-protobuf
// @Router       /v1/metrics [post]
// @Security     bearerAuth
func (h *Handler) Metrics(c echo.Context) error {
	body, err := readBody(c)
	if err != nil {
		return err
	}
	if err := h.svc.IngestMetrics(c.Request().Context(), body); err != nil {
		return err
	}
	return protoResponse(c, &collectormetricspb.ExportMetricsServiceResponse{})
}

func readBody(c echo.Context) ([]byte, error) {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return nil, apperror.ErrBadRequest.WithMessage("could not read request body")
	}
	return body, nil
}

func protoResponse(c echo.Context, msg proto.Message) error {
	out, err := proto.Marshal(msg)
	if err != nil {
		return apperror.ErrInternal.WithInternal(err)
	}
	return c.Blob(http.StatusOK, "application/x-protobuf", out)
}
