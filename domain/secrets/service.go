package secrets

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"github.com/forgehub/platform/pkg/apperror"
	"github.com/forgehub/platform/pkg/logger"
)

// placeholderRe matches ${{ secrets.NAME }} with exactly single spaces.
var placeholderRe = regexp.MustCompile(`\$\{\{ secrets\.([A-Za-z0-9_-]+) \}\}`)

// Service implements secret CRUD and template resolution.
type Service struct {
	repo   *Repository
	crypto *Crypto
	log    *slog.Logger
}

func NewService(repo *Repository, crypto *Crypto, log *slog.Logger) *Service {
	return &Service{repo: repo, crypto: crypto, log: log.With(logger.Scope("secrets.svc"))}
}

// UpsertProjectSecret creates or replaces a project-scoped secret.
func (s *Service) UpsertProjectSecret(ctx context.Context, projectID, name, value string, scope Scope, actor string) (*DTO, error) {
	return s.upsert(ctx, &projectID, name, value, scope, actor)
}

// UpsertGlobalSecret creates or replaces a global secret (project_id IS NULL).
func (s *Service) UpsertGlobalSecret(ctx context.Context, name, value string, scope Scope, actor string) (*DTO, error) {
	return s.upsert(ctx, nil, name, value, scope, actor)
}

func (s *Service) upsert(ctx context.Context, projectID *string, name, value string, scope Scope, actor string) (*DTO, error) {
	encrypted, err := s.crypto.EncryptString(value)
	if err != nil {
		s.log.Error("secret encryption failed", logger.Error(err))
		return nil, apperror.ErrCrypto.WithInternal(err)
	}

	sec, err := s.repo.Upsert(ctx, projectID, name, encrypted, scope, actor)
	if err != nil {
		return nil, err
	}
	dto := sec.ToDTO()
	return &dto, nil
}

// List never returns ciphertext.
func (s *Service) List(ctx context.Context, projectID *string) ([]DTO, error) {
	rows, err := s.repo.List(ctx, projectID)
	if err != nil {
		return nil, err
	}
	dtos := make([]DTO, len(rows))
	for i, r := range rows {
		dtos[i] = r.ToDTO()
	}
	return dtos, nil
}

// Delete reports whether a row existed.
func (s *Service) Delete(ctx context.Context, projectID *string, name string) (bool, error) {
	return s.repo.Delete(ctx, projectID, name)
}

// Resolve finds the secret visible to projectID with the given name and
// checks it against the requested usage scope: allow iff the secret's scope
// is "all", equals requestedScope, or requestedScope is "all".
func (s *Service) Resolve(ctx context.Context, projectID *string, name string, requestedScope Scope) (string, error) {
	sec, err := s.repo.Resolve(ctx, projectID, name)
	if err != nil {
		return "", err
	}
	if sec == nil {
		return "", apperror.ErrNotFound.WithMessage("secret not found")
	}
	if sec.Scope != ScopeAll && sec.Scope != requestedScope && requestedScope != ScopeAll {
		return "", apperror.ErrForbidden.WithMessage("secret not permitted for this scope")
	}

	plaintext, err := s.crypto.Decrypt(sec.EncryptedValue)
	if err != nil {
		s.log.Error("secret decryption failed", logger.Error(err), slog.String("name", name))
		return "", apperror.ErrCrypto.WithInternal(err)
	}
	return string(plaintext), nil
}

// Inline scans template for occurrences of ${{ secrets.NAME }} and substitutes
// each with its resolved value. On any resolution error the placeholder is
// left intact and a warning is logged; search_from advances past the
// substituted value so self-referential values can never recurse or loop.
func (s *Service) Inline(ctx context.Context, projectID *string, scope Scope, template string) string {
	var out strings.Builder
	searchFrom := 0

	for {
		loc := placeholderRe.FindStringSubmatchIndex(template[searchFrom:])
		if loc == nil {
			out.WriteString(template[searchFrom:])
			break
		}

		matchStart, matchEnd := searchFrom+loc[0], searchFrom+loc[1]
		nameStart, nameEnd := searchFrom+loc[2], searchFrom+loc[3]
		name := template[nameStart:nameEnd]

		out.WriteString(template[searchFrom:matchStart])

		value, err := s.Resolve(ctx, projectID, name, scope)
		if err != nil {
			s.log.Warn("secret placeholder left unresolved", slog.String("name", name), logger.Error(err))
			out.WriteString(template[matchStart:matchEnd])
			searchFrom = matchEnd
			continue
		}

		out.WriteString(value)
		searchFrom = matchEnd
	}

	return out.String()
}
