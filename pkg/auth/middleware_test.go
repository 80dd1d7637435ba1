package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractToken_BearerHeader(t *testing.T) {
	m := &Middleware{}
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer plat_abc123")

	assert.Equal(t, "plat_abc123", m.extractToken(r))
}

func TestExtractToken_QueryParamFallback(t *testing.T) {
	m := &Middleware{}
	r := httptest.NewRequest(http.MethodGet, "/?token=plat_xyz", nil)

	assert.Equal(t, "plat_xyz", m.extractToken(r))
}

func TestExtractToken_Missing(t *testing.T) {
	m := &Middleware{}
	r := httptest.NewRequest(http.MethodGet, "/", nil)

	assert.Empty(t, m.extractToken(r))
}

func TestRequireScopes_MissingScopeForbidden(t *testing.T) {
	e := echo.New()
	m := &Middleware{}

	handler := m.RequireScopes("project:read")(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set(string(UserContextKey), &AuthUser{ID: "u1", Scopes: []string{"secret:write"}})

	err := handler(c)
	var appErr interface{ Error() string }
	require.ErrorAs(t, err, &appErr)
}

func TestRequireScopes_HasScopeAllowed(t *testing.T) {
	e := echo.New()
	m := &Middleware{}

	handler := m.RequireScopes("project:read")(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set(string(UserContextKey), &AuthUser{ID: "u1", Scopes: []string{"project:read"}})

	require.NoError(t, handler(c))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestIntersect(t *testing.T) {
	got := intersect([]string{"a", "b", "c"}, []string{"b", "c", "d"})
	assert.ElementsMatch(t, []string{"b", "c"}, got)
}
