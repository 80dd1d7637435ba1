package apitoken

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"time"

	"github.com/forgehub/platform/pkg/apperror"
	"github.com/forgehub/platform/pkg/auth"
	"github.com/forgehub/platform/pkg/logger"
)

const tokenPrefix = "plat_api_"

// Service handles business logic for API tokens.
type Service struct {
	repo  *Repository
	perms auth.PermissionResolver
	log   *slog.Logger
}

// NewService creates a new API token service. perms resolves the
// issuer's effective permissions so token creation can reject scope
// escalation; it may be nil before domain/permissions is wired, in
// which case all token creation is refused.
func NewService(repo *Repository, perms auth.PermissionResolver, log *slog.Logger) *Service {
	return &Service{
		repo:  repo,
		perms: perms,
		log:   log.With(logger.Scope("apitoken.svc")),
	}
}

// Create mints a new token for issuerID, rejecting any requested scope
// the issuer does not currently hold.
func (s *Service) Create(ctx context.Context, issuerID, name string, scopes []string, expiresAt *time.Time) (*CreatedDTO, error) {
	if name == "" {
		return nil, apperror.ErrBadRequest.WithMessage("name is required")
	}
	if len(scopes) == 0 {
		return nil, apperror.ErrBadRequest.WithMessage("at least one scope is required")
	}
	if s.perms == nil {
		return nil, apperror.ErrInternal.WithMessage("permission engine not available")
	}

	held, err := s.perms.EffectivePermissions(ctx, issuerID, nil)
	if err != nil {
		return nil, apperror.ErrInternal.WithInternal(err)
	}
	if escalated := missingScopes(held, scopes); len(escalated) > 0 {
		return nil, apperror.ErrForbidden.WithMessage("cannot grant scopes you do not hold: " + escalated[0])
	}

	rawToken, tokenHash, err := generateToken()
	if err != nil {
		return nil, apperror.ErrCrypto.WithInternal(err)
	}

	token := &ApiToken{
		UserID:    issuerID,
		Name:      name,
		TokenHash: tokenHash,
		Scopes:    scopes,
		ExpiresAt: expiresAt,
	}
	if err := s.repo.Create(ctx, token); err != nil {
		return nil, err
	}

	s.log.Info("created api token", slog.String("name", name), slog.String("userID", issuerID))

	return &CreatedDTO{DTO: token.ToDTO(), Token: rawToken}, nil
}

// ListByUser returns a user's tokens without their hashes.
func (s *Service) ListByUser(ctx context.Context, userID string) ([]DTO, error) {
	tokens, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	dtos := make([]DTO, len(tokens))
	for i, t := range tokens {
		dtos[i] = t.ToDTO()
	}
	return dtos, nil
}

// GetByID returns a single token owned by a user.
func (s *Service) GetByID(ctx context.Context, id, userID string) (*DTO, error) {
	token, err := s.repo.GetByID(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if token == nil {
		return nil, apperror.ErrNotFound
	}
	dto := token.ToDTO()
	return &dto, nil
}

// missingScopes returns the entries of requested that are not present
// in held, i.e. the scopes that would constitute an escalation.
func missingScopes(held, requested []string) []string {
	heldSet := make(map[string]bool, len(held))
	for _, p := range held {
		heldSet[p] = true
	}
	var missing []string
	for _, r := range requested {
		if !heldSet[r] {
			missing = append(missing, r)
		}
	}
	return missing
}

func generateToken() (raw string, hash string, err error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", "", err
	}
	raw = tokenPrefix + hex.EncodeToString(buf)
	sum := sha256.Sum256([]byte(raw))
	return raw, hex.EncodeToString(sum[:]), nil
}
