package auth

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/uptrace/bun"

	"github.com/forgehub/platform/internal/config"
	"github.com/forgehub/platform/pkg/apperror"
	"github.com/forgehub/platform/pkg/logger"
)

const (
	sessionTokenPrefix = "plat_"
	apiTokenPrefix     = "plat_api_"
)

// AuthUser represents an authenticated principal: a human, an agent, or
// a service account.
type AuthUser struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Email  string   `json:"email,omitempty"`
	Kind   string   `json:"kind"`
	Scopes []string `json:"scopes,omitempty"`

	// ProjectID is the scope declared via the X-Project-ID header, used
	// by project-scoped handlers and by permission resolution.
	ProjectID string `json:"projectId,omitempty"`

	// APITokenID is set when authentication was via an API token rather
	// than a session.
	APITokenID string `json:"apiTokenId,omitempty"`
}

type contextKey string

const (
	UserContextKey    contextKey = "auth_user"
	ProjectContextKey contextKey = "project_context"
)

// GetUser retrieves the authenticated user from the Echo context.
func GetUser(c echo.Context) *AuthUser {
	if user, ok := c.Get(string(UserContextKey)).(*AuthUser); ok {
		return user
	}
	return nil
}

// GetProjectID extracts the project scope from the auth user context.
func GetProjectID(c echo.Context) (string, error) {
	user := GetUser(c)
	if user == nil {
		return "", apperror.ErrUnauthenticated
	}
	if user.ProjectID == "" {
		return "", apperror.ErrBadRequest.WithMessage("x-project-id header required")
	}
	return user.ProjectID, nil
}

// PermissionResolver computes a principal's effective permission set,
// optionally narrowed to a project scope. It is satisfied by
// domain/permissions.Service; the middleware depends only on this
// interface to avoid importing that domain package directly.
type PermissionResolver interface {
	EffectivePermissions(ctx context.Context, userID string, projectID *string) ([]string, error)
}

// Middleware handles authentication for routes.
type Middleware struct {
	db    bun.IDB
	cfg   *config.Config
	log   *slog.Logger
	perms PermissionResolver
}

// NewMiddleware creates a new auth middleware. perms may be nil during
// early bring-up; session-authenticated requests then carry no scopes
// until domain/permissions is wired in.
func NewMiddleware(db bun.IDB, cfg *config.Config, log *slog.Logger, perms PermissionResolver) *Middleware {
	return &Middleware{
		db:    db,
		cfg:   cfg,
		log:   log.With(logger.Scope("auth")),
		perms: perms,
	}
}

// RequireAuth returns middleware that requires authentication.
func (m *Middleware) RequireAuth() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user, err := m.authenticate(c)
			if err != nil {
				m.log.Warn("authentication failed", logger.Error(err))
				return m.authError(c, err)
			}

			user.ProjectID = c.Request().Header.Get("X-Project-ID")
			c.Set(string(UserContextKey), user)

			return next(c)
		}
	}
}

// RequireProjectID returns middleware that requires X-Project-ID header.
func (m *Middleware) RequireProjectID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user := GetUser(c)
			if user == nil {
				return apperror.ErrUnauthenticated
			}
			if user.ProjectID == "" {
				return apperror.ErrBadRequest.WithMessage("x-project-id header required")
			}
			return next(c)
		}
	}
}

// RequireScopes returns middleware that requires the principal's
// effective permission set to contain every listed scope.
func (m *Middleware) RequireScopes(scopes ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user := GetUser(c)
			if user == nil {
				return apperror.ErrUnauthenticated
			}

			held := make(map[string]bool, len(user.Scopes))
			for _, s := range user.Scopes {
				held[s] = true
			}

			var missing []string
			for _, required := range scopes {
				if !held[required] {
					missing = append(missing, required)
				}
			}

			if len(missing) > 0 {
				return apperror.ErrInsufficientPermissions.WithDetails(map[string]any{"missing": missing})
			}

			return next(c)
		}
	}
}

func (m *Middleware) authenticate(c echo.Context) (*AuthUser, error) {
	token := m.extractToken(c.Request())
	if token == "" {
		return nil, apperror.ErrMissingToken
	}
	return m.validateToken(c.Request().Context(), token)
}

func (m *Middleware) extractToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if strings.HasPrefix(h, "Bearer ") {
			return strings.TrimPrefix(h, "Bearer ")
		}
	}
	// SSE endpoints can't set headers, so accept a query parameter too.
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	return ""
}

func (m *Middleware) validateToken(ctx context.Context, token string) (*AuthUser, error) {
	switch {
	case strings.HasPrefix(token, apiTokenPrefix):
		return m.validateAPIToken(ctx, token)
	case strings.HasPrefix(token, sessionTokenPrefix):
		return m.validateSessionToken(ctx, token)
	default:
		return nil, apperror.ErrInvalidToken
	}
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

type principalRow struct {
	ID     string `bun:"id"`
	Name   string `bun:"name"`
	Email  string `bun:"email"`
	Kind   string `bun:"kind"`
	Active bool   `bun:"is_active"`
}

func (m *Middleware) validateSessionToken(ctx context.Context, token string) (*AuthUser, error) {
	tokenHash := hashToken(token)

	var row principalRow
	err := m.db.NewSelect().
		TableExpr("core.auth_sessions AS ses").
		ColumnExpr("usr.id, usr.name, usr.email, usr.kind, usr.is_active").
		Join("INNER JOIN core.users AS usr ON usr.id = ses.user_id").
		Where("ses.token_hash = ?", tokenHash).
		Where("ses.expires_at > ?", time.Now()).
		Scan(ctx, &row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrInvalidToken
		}
		return nil, apperror.ErrInvalidToken.WithInternal(err)
	}
	if !row.Active {
		return nil, apperror.ErrInvalidToken
	}

	scopes, err := m.resolveScopes(ctx, row.ID, nil)
	if err != nil {
		m.log.Warn("permission resolution failed", logger.Error(err))
	}

	return &AuthUser{ID: row.ID, Name: row.Name, Email: row.Email, Kind: row.Kind, Scopes: scopes}, nil
}

func (m *Middleware) validateAPIToken(ctx context.Context, token string) (*AuthUser, error) {
	tokenHash := hashToken(token)

	var result struct {
		principalRow
		TokenID   string   `bun:"token_id"`
		Scopes    []string `bun:"scopes,array"`
		ExpiresAt *time.Time `bun:"expires_at"`
	}

	err := m.db.NewSelect().
		TableExpr("core.api_tokens AS tok").
		ColumnExpr("usr.id, usr.name, usr.email, usr.kind, usr.is_active").
		ColumnExpr("tok.id AS token_id").
		ColumnExpr("tok.scopes").
		ColumnExpr("tok.expires_at").
		Join("INNER JOIN core.users AS usr ON usr.id = tok.user_id").
		Where("tok.token_hash = ?", tokenHash).
		Scan(ctx, &result)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrInvalidToken
		}
		return nil, apperror.ErrInvalidToken.WithInternal(err)
	}
	if !result.Active {
		return nil, apperror.ErrInvalidToken
	}
	if result.ExpiresAt != nil && result.ExpiresAt.Before(time.Now()) {
		return nil, apperror.ErrTokenExpired
	}

	scopes := result.Scopes
	if effective, err := m.resolveScopes(ctx, result.ID, nil); err == nil {
		scopes = intersect(effective, result.Scopes)
	} else {
		m.log.Warn("permission resolution failed", logger.Error(err))
	}

	return &AuthUser{
		ID:         result.ID,
		Name:       result.Name,
		Email:      result.Email,
		Kind:       result.Kind,
		Scopes:     scopes,
		APITokenID: result.TokenID,
	}, nil
}

// resolveScopes defers to the injected PermissionResolver; with none
// wired it returns an empty set rather than failing the request, so
// RequireAuth alone still works before domain/permissions exists.
func (m *Middleware) resolveScopes(ctx context.Context, userID string, projectID *string) ([]string, error) {
	if m.perms == nil {
		return nil, nil
	}
	return m.perms.EffectivePermissions(ctx, userID, projectID)
}

func intersect(a, b []string) []string {
	set := make(map[string]bool, len(a))
	for _, v := range a {
		set[v] = true
	}
	var out []string
	for _, v := range b {
		if set[v] {
			out = append(out, v)
		}
	}
	return out
}

func (m *Middleware) authError(c echo.Context, err error) error {
	status, body := apperror.ToHTTPError(err)
	return c.JSON(status, body)
}
