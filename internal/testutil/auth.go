package testutil

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/uptrace/bun"
)

// TestUser is a fixture for core.users.
type TestUser struct {
	ID       string
	Name     string
	Email    string
	Kind     string
	IsActive bool
}

var (
	// AdminUser is a standard human fixture with no built-in scopes;
	// callers wanting scoped access should also seed role assignments.
	AdminUser = TestUser{
		ID:       "00000000-0000-0000-0000-000000000001",
		Name:     "admin",
		Email:    "admin@test.local",
		Kind:     "human",
		IsActive: true,
	}

	// RegularUser is a second human fixture, distinct from AdminUser.
	RegularUser = TestUser{
		ID:       "00000000-0000-0000-0000-000000000002",
		Name:     "regular",
		Email:    "user@test.local",
		Kind:     "human",
		IsActive: true,
	}

	// InactiveUser is deactivated, used to test that deactivation ends
	// session and token validity.
	InactiveUser = TestUser{
		ID:       "00000000-0000-0000-0000-000000000003",
		Name:     "inactive",
		Email:    "inactive@test.local",
		Kind:     "human",
		IsActive: false,
	}

	// AgentUser is a password-less ephemeral identity fixture.
	AgentUser = TestUser{
		ID:       "00000000-0000-0000-0000-000000000004",
		Name:     "agent-fixture",
		Kind:     "agent",
		IsActive: true,
	}
)

// CreateTestUser inserts a user fixture into core.users.
func CreateTestUser(ctx context.Context, db bun.IDB, user TestUser) error {
	_, err := db.NewRaw(`
		INSERT INTO core.users (id, name, email, kind, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, NOW())
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			email = EXCLUDED.email,
			kind = EXCLUDED.kind,
			is_active = EXCLUDED.is_active
	`, user.ID, user.Name, user.Email, user.Kind, user.IsActive).Exec(ctx)
	return err
}

// SetupTestFixtures creates the standard set of user fixtures.
func SetupTestFixtures(ctx context.Context, db bun.IDB) error {
	for _, user := range []TestUser{AdminUser, RegularUser, InactiveUser, AgentUser} {
		if err := CreateTestUser(ctx, db, user); err != nil {
			return err
		}
	}
	return nil
}

// AuthHeader returns an Authorization header value for a token.
func AuthHeader(token string) string {
	return "Bearer " + token
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// NewRawSessionToken generates a plat_-prefixed token for use with
// CreateTestSession, mirroring domain/sessions' own format.
func NewRawSessionToken() string {
	buf := make([]byte, 32)
	_, _ = rand.Read(buf)
	return "plat_" + hex.EncodeToString(buf)
}

// CreateTestSession inserts a core.auth_sessions row for rawToken,
// expiring ttl from now.
func CreateTestSession(ctx context.Context, db bun.IDB, userID, rawToken string, ttl time.Duration) error {
	_, err := db.NewRaw(`
		INSERT INTO core.auth_sessions (id, user_id, token_hash, expires_at, created_at)
		VALUES (uuid_generate_v4(), ?, ?, ?, NOW())
	`, userID, hashToken(rawToken), time.Now().Add(ttl)).Exec(ctx)
	return err
}

// CreateExpiredTestSession inserts an already-expired session, used to
// verify the middleware rejects it.
func CreateExpiredTestSession(ctx context.Context, db bun.IDB, userID, rawToken string) error {
	_, err := db.NewRaw(`
		INSERT INTO core.auth_sessions (id, user_id, token_hash, expires_at, created_at)
		VALUES (uuid_generate_v4(), ?, ?, NOW() - INTERVAL '1 hour', NOW())
	`, userID, hashToken(rawToken)).Exec(ctx)
	return err
}

// CreateTestAPIToken inserts a core.api_tokens row for rawToken.
func CreateTestAPIToken(ctx context.Context, db bun.IDB, userID, rawToken, name string, scopes []string, expiresAt *time.Time) error {
	_, err := db.NewRaw(`
		INSERT INTO core.api_tokens (id, user_id, name, token_hash, scopes, expires_at, created_at)
		VALUES (uuid_generate_v4(), ?, ?, ?, ?::text[], ?, NOW())
	`, userID, name, hashToken(rawToken), pgTextArray(scopes), expiresAt).Exec(ctx)
	return err
}

func pgTextArray(values []string) string {
	out := "{"
	for i, v := range values {
		if i > 0 {
			out += ","
		}
		out += v
	}
	return out + "}"
}

// TestProject is a fixture for core.projects.
type TestProject struct {
	ID         string
	Name       string
	OwnerID    string
	Visibility string
	RepoPath   string
}

// DefaultTestProject is a standard private project fixture.
var DefaultTestProject = TestProject{
	ID:         "00000000-0000-0000-0000-000000000100",
	Name:       "Test Project",
	OwnerID:    AdminUser.ID,
	Visibility: "private",
	RepoPath:   "/repos/test-project",
}

// CreateTestProject inserts a core.projects row.
func CreateTestProject(ctx context.Context, db bun.IDB, project TestProject) error {
	_, err := db.NewRaw(`
		INSERT INTO core.projects (id, name, owner_id, visibility, repo_path, is_deleted, created_at)
		VALUES (?, ?, ?, ?, ?, false, NOW())
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			visibility = EXCLUDED.visibility
	`, project.ID, project.Name, project.OwnerID, project.Visibility, project.RepoPath).Exec(ctx)
	return err
}

// StringPtr is a helper to create a pointer to a string.
func StringPtr(s string) *string {
	return &s
}

// System role IDs seeded by the core identity migration.
const (
	RoleAdmin     = "00000000-0000-0000-0000-0000000000a1"
	RoleDeveloper = "00000000-0000-0000-0000-0000000000a2"
	RoleViewer    = "00000000-0000-0000-0000-0000000000a3"
)

// AssignTestRole inserts a core.role_assignments row, granting userID the
// named system role (RoleAdmin/RoleDeveloper/RoleViewer) globally or, if
// projectID is non-nil, scoped to one project. Tests use this to exercise
// permissions.Service.EffectivePermissions/Require end-to-end instead of
// stubbing the resolver.
func AssignTestRole(ctx context.Context, db bun.IDB, userID, roleID string, projectID *string) error {
	_, err := db.NewRaw(`
		INSERT INTO core.role_assignments (id, user_id, role_id, project_id, created_at)
		VALUES (uuid_generate_v4(), ?, ?, ?, NOW())
		ON CONFLICT DO NOTHING
	`, userID, roleID, projectID).Exec(ctx)
	return err
}
