package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/uptrace/bun"

	"github.com/forgehub/platform/domain/apitoken"
	"github.com/forgehub/platform/domain/health"
	"github.com/forgehub/platform/domain/permissions"
	"github.com/forgehub/platform/domain/secrets"
	"github.com/forgehub/platform/domain/sessions"
	"github.com/forgehub/platform/domain/users"
	"github.com/forgehub/platform/internal/config"
	"github.com/forgehub/platform/pkg/apperror"
	"github.com/forgehub/platform/pkg/auth"
)

// TestServer wraps an Echo instance for testing.
type TestServer struct {
	Echo           *echo.Echo
	TestDB         *TestDB
	DB             bun.IDB
	Config         *config.Config
	Log            *slog.Logger
	AuthMiddleware *auth.Middleware
	Perms          *permissions.Service
}

// NewTestServer creates a test server with all in-scope routes registered.
func NewTestServer(testDB *TestDB) *TestServer {
	return newTestServerWithDB(testDB, testDB.GetDB())
}

// newTestServerWithDB creates a test server with a specific DB connection.
func newTestServerWithDB(testDB *TestDB, db bun.IDB) *TestServer {
	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = apperror.HTTPErrorHandler(log)

	// Permissions: a real resolver is wired here, not nil, so that
	// RequireScopes/RequireAuth and apitoken issuance enforce the same
	// RoleAssignment/Delegation rules as production.
	permsRepo := permissions.NewRepository(db, log)
	permsSvc := permissions.NewService(permsRepo, log)

	authMiddleware := auth.NewMiddleware(db, testDB.Config, log, permsSvc)

	// Health routes (public)
	healthHandler := health.NewHandler(testDB.Pool, testDB.Config)
	e.GET("/health", healthHandler.Health)
	e.GET("/healthz", healthHandler.Healthz)
	e.GET("/ready", healthHandler.Ready)
	e.GET("/debug", healthHandler.Debug)

	// Protected test routes for exercising the auth middleware itself.
	protected := e.Group("/api/test")
	protected.Use(authMiddleware.RequireAuth())
	protected.GET("/me", func(c echo.Context) error {
		user := auth.GetUser(c)
		if user == nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "No user in context")
		}
		return c.JSON(http.StatusOK, map[string]any{
			"id":        user.ID,
			"name":      user.Name,
			"email":     user.Email,
			"scopes":    user.Scopes,
			"projectId": user.ProjectID,
		})
	})

	scopedGroup := e.Group("/api/test/scoped")
	scopedGroup.Use(authMiddleware.RequireAuth())
	scopedGroup.Use(authMiddleware.RequireScopes("project:read"))
	scopedGroup.GET("", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]any{"message": "You have project:read scope"})
	})

	projectGroup := e.Group("/api/test/project")
	projectGroup.Use(authMiddleware.RequireAuth())
	projectGroup.Use(authMiddleware.RequireProjectID())
	projectGroup.GET("", func(c echo.Context) error {
		user := auth.GetUser(c)
		return c.JSON(http.StatusOK, map[string]any{
			"message":   "Project ID required endpoint",
			"projectId": user.ProjectID,
		})
	})

	// Users
	usersRepo := users.NewRepository(db, log)
	usersSvc := users.NewService(usersRepo, log)
	usersHandler := users.NewHandler(usersSvc)
	users.RegisterRoutes(e, usersHandler, authMiddleware)

	// Login sessions
	sessionsRepo := sessions.NewRepository(db, log)
	sessionsSvc := sessions.NewService(sessionsRepo, usersSvc, testDB.Config, log)
	sessionsHandler := sessions.NewHandler(sessionsSvc)
	sessions.RegisterRoutes(e, sessionsHandler, authMiddleware)

	// Secret engine
	secretsCrypto, _ := secrets.NewCryptoFromConfig(testDB.Config)
	secretsRepo := secrets.NewRepository(db, log)
	secretsSvc := secrets.NewService(secretsRepo, secretsCrypto, log)
	secretsHandler := secrets.NewHandler(secretsSvc)
	secrets.RegisterRoutes(e, secretsHandler, authMiddleware)

	// API tokens: issuance is gated by the same permsSvc, so a test can't
	// mint a token with scopes its issuer doesn't actually hold.
	apitokenRepo := apitoken.NewRepository(db, log)
	apitokenSvc := apitoken.NewService(apitokenRepo, permsSvc, log)
	apitokenHandler := apitoken.NewHandler(apitokenSvc)
	apitoken.RegisterRoutes(e, apitokenHandler, authMiddleware)

	return &TestServer{
		Echo:           e,
		TestDB:         testDB,
		DB:             db,
		Config:         testDB.Config,
		Log:            log,
		AuthMiddleware: authMiddleware,
		Perms:          permsSvc,
	}
}

// Request performs an HTTP request against the test server.
func (s *TestServer) Request(method, path string, opts ...RequestOption) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for _, opt := range opts {
		opt(req)
	}
	rec := httptest.NewRecorder()
	s.Echo.ServeHTTP(rec, req)
	return rec
}

// GET performs a GET request.
func (s *TestServer) GET(path string, opts ...RequestOption) *httptest.ResponseRecorder {
	return s.Request(http.MethodGet, path, opts...)
}

// POST performs a POST request.
func (s *TestServer) POST(path string, opts ...RequestOption) *httptest.ResponseRecorder {
	return s.Request(http.MethodPost, path, opts...)
}

// PUT performs a PUT request.
func (s *TestServer) PUT(path string, opts ...RequestOption) *httptest.ResponseRecorder {
	return s.Request(http.MethodPut, path, opts...)
}

// DELETE performs a DELETE request.
func (s *TestServer) DELETE(path string, opts ...RequestOption) *httptest.ResponseRecorder {
	return s.Request(http.MethodDelete, path, opts...)
}

// PATCH performs a PATCH request.
func (s *TestServer) PATCH(path string, opts ...RequestOption) *httptest.ResponseRecorder {
	return s.Request(http.MethodPatch, path, opts...)
}

// RequestOption modifies an HTTP request.
type RequestOption func(*http.Request)

// WithHeader adds a header to the request.
func WithHeader(key, value string) RequestOption {
	return func(r *http.Request) {
		r.Header.Set(key, value)
	}
}

// WithAuth adds an Authorization header.
func WithAuth(token string) RequestOption {
	return WithHeader("Authorization", "Bearer "+token)
}

// WithProjectID adds an X-Project-ID header.
func WithProjectID(projectID string) RequestOption {
	return WithHeader("X-Project-ID", projectID)
}

// WithJSON adds Content-Type: application/json header.
func WithJSON() RequestOption {
	return WithHeader("Content-Type", "application/json")
}

// WithBody adds a request body.
func WithBody(body string) RequestOption {
	return func(r *http.Request) {
		r.Body = io.NopCloser(strings.NewReader(body))
		r.ContentLength = int64(len(body))
	}
}

// WithRawAuth adds a raw Authorization header value.
func WithRawAuth(value string) RequestOption {
	return WithHeader("Authorization", value)
}

// WithJSONBody sets Content-Type to application/json and marshals the body to JSON.
func WithJSONBody(body any) RequestOption {
	return func(r *http.Request) {
		data, err := json.Marshal(body)
		if err != nil {
			panic(err)
		}
		r.Header.Set("Content-Type", "application/json")
		r.Body = io.NopCloser(strings.NewReader(string(data)))
		r.ContentLength = int64(len(data))
	}
}

// MultipartForm represents a multipart form for testing file uploads.
type MultipartForm struct {
	body        *bytes.Buffer
	writer      *multipart.Writer
	contentType string
}

// NewMultipartForm creates a new multipart form builder.
func NewMultipartForm() *MultipartForm {
	body := new(bytes.Buffer)
	writer := multipart.NewWriter(body)
	return &MultipartForm{body: body, writer: writer}
}

// AddFile adds a file to the multipart form.
func (m *MultipartForm) AddFile(fieldName, filename string, content []byte) error {
	part, err := m.writer.CreateFormFile(fieldName, filename)
	if err != nil {
		return err
	}
	_, err = part.Write(content)
	return err
}

// AddField adds a regular field to the multipart form.
func (m *MultipartForm) AddField(fieldName, value string) error {
	return m.writer.WriteField(fieldName, value)
}

// Close finalizes the multipart form and returns the content type.
func (m *MultipartForm) Close() string {
	m.writer.Close()
	m.contentType = m.writer.FormDataContentType()
	return m.contentType
}

// WithMultipartForm adds a multipart form body to the request.
func WithMultipartForm(form *MultipartForm) RequestOption {
	return func(r *http.Request) {
		r.Header.Set("Content-Type", form.contentType)
		r.Body = io.NopCloser(bytes.NewReader(form.body.Bytes()))
		r.ContentLength = int64(form.body.Len())
	}
}
