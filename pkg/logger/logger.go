// Package logger provides slog construction and structured-attribute helpers
// shared across the service, plus a separate flat-file HTTP access logger.
package logger

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"go.uber.org/fx"
)

var Module = fx.Module("logger",
	fx.Provide(NewLogger),
	fx.Provide(NewHTTPLogger),
)

// Scope tags a log line with the component that emitted it.
func Scope(scope string) slog.Attr {
	return slog.String("scope", scope)
}

// Error wraps an error as a structured attribute. err may be nil.
func Error(err error) slog.Attr {
	return slog.Any("error", err)
}

// NewLogger builds the process-wide slog.Logger. LOG_LEVEL selects the
// minimum level (debug/info/warn|warning/error, case-insensitive, default
// info); GO_ENV=production switches to a JSON handler.
func NewLogger() *slog.Logger {
	level := parseLevel(os.Getenv("LOG_LEVEL"))

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.EqualFold(os.Getenv("GO_ENV"), "production") {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}

func parseLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "info", "":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// HTTPLogger appends one line per request to a dedicated access-log file,
// independent of the structured application log.
type HTTPLogger struct {
	mu   sync.Mutex
	file *os.File
}

// NewHTTPLogger opens (creating if needed) the access log at the path in
// HTTP_ACCESS_LOG_PATH. An empty path, or a file that cannot be opened,
// disables file output; LogRequest becomes a no-op.
func NewHTTPLogger() *HTTPLogger {
	path := os.Getenv("HTTP_ACCESS_LOG_PATH")
	if path == "" {
		return &HTTPLogger{}
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return &HTTPLogger{}
	}

	return &HTTPLogger{file: f}
}

// LogRequest appends one access-log line. Safe for concurrent use.
func (h *HTTPLogger) LogRequest(ip, method, uri string, status int, latency time.Duration, userAgent, requestID string) {
	if h == nil || h.file == nil {
		return
	}

	line := fmt.Sprintf("%s %s %q %q %d %s %q %s\n",
		time.Now().UTC().Format(time.RFC3339Nano),
		ip, method, uri, status, latency, userAgent, requestID)

	h.mu.Lock()
	defer h.mu.Unlock()
	_, _ = h.file.WriteString(line)
}

// Close releases the underlying file handle, if any.
func (h *HTTPLogger) Close() error {
	if h == nil || h.file == nil {
		return nil
	}
	return h.file.Close()
}
