package sessions

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"time"

	"github.com/forgehub/platform/domain/users"
	"github.com/forgehub/platform/internal/config"
	"github.com/forgehub/platform/pkg/apperror"
	"github.com/forgehub/platform/pkg/logger"
)

const sessionTokenPrefix = "plat_"

// Service issues and validates login sessions.
type Service struct {
	repo       *Repository
	usersSvc   *users.Service
	sessionTTL time.Duration
	limiter    *LoginRateLimiter
	log        *slog.Logger
}

// NewService creates a new sessions service.
func NewService(repo *Repository, usersSvc *users.Service, cfg *config.Config, log *slog.Logger) *Service {
	return &Service{
		repo:       repo,
		usersSvc:   usersSvc,
		sessionTTL: cfg.Auth.SessionTTL,
		limiter:    NewLoginRateLimiter(cfg.Auth.LoginRateLimitAttempts, cfg.Auth.LoginRateLimitWindow),
		log:        log.With(logger.Scope("sessions.svc")),
	}
}

// Login verifies (name, password) for a source identity (the caller's
// remote address) and, on success, mints a new session, returning the raw
// bearer token exactly once.
func (s *Service) Login(ctx context.Context, source, name, password string) (string, time.Time, error) {
	if !s.limiter.Allow(source) {
		return "", time.Time{}, apperror.ErrRateLimited.WithMessage("too many login attempts, try again later")
	}

	u, err := s.usersSvc.FindForLogin(ctx, name)
	if err != nil {
		return "", time.Time{}, err
	}

	if u == nil || u.Kind != users.KindHuman || u.PasswordHash == nil {
		// Compare against the dummy hash regardless, so a nonexistent
		// or non-human account costs the same time as a real mismatch.
		_, _ = users.VerifyPassword(password, users.DummyPasswordHash)
		return "", time.Time{}, apperror.ErrUnauthenticated.WithMessage("invalid credentials")
	}

	if !u.IsActive {
		_, _ = users.VerifyPassword(password, users.DummyPasswordHash)
		return "", time.Time{}, apperror.ErrUnauthenticated.WithMessage("invalid credentials")
	}

	ok, err := users.VerifyPassword(password, *u.PasswordHash)
	if err != nil {
		return "", time.Time{}, apperror.ErrCrypto.WithInternal(err)
	}
	if !ok {
		return "", time.Time{}, apperror.ErrUnauthenticated.WithMessage("invalid credentials")
	}

	rawToken, tokenHash, err := generateToken(sessionTokenPrefix)
	if err != nil {
		return "", time.Time{}, apperror.ErrCrypto.WithInternal(err)
	}

	expiresAt := time.Now().Add(s.sessionTTL)
	session := &Session{
		UserID:    u.ID,
		TokenHash: tokenHash,
		ExpiresAt: expiresAt,
	}
	if err := s.repo.Create(ctx, session); err != nil {
		return "", time.Time{}, err
	}

	return rawToken, expiresAt, nil
}

// Logout revokes every session belonging to the given user.
func (s *Service) Logout(ctx context.Context, userID string) error {
	return s.repo.RevokeAllForUser(ctx, userID)
}

// Authenticate resolves a bearer session token into its owning user,
// rejecting expired sessions and sessions whose user has been
// deactivated.
func (s *Service) Authenticate(ctx context.Context, rawToken string) (*SessionWithUser, error) {
	hash := hashToken(rawToken)
	session, err := s.repo.GetByHash(ctx, hash)
	if err != nil {
		return nil, err
	}
	if session == nil || !session.UserIsActive {
		return nil, apperror.ErrInvalidToken
	}
	return session, nil
}

// generateToken produces a prefix + 64 hex char bearer token (32 random
// bytes) and the SHA-256 hex hash that is what gets persisted.
func generateToken(prefix string) (raw string, hash string, err error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", "", err
	}
	raw = prefix + hex.EncodeToString(buf)
	return raw, hashToken(raw), nil
}

func hashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
