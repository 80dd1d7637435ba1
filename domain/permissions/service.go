package permissions

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/forgehub/platform/internal/cache"
	"github.com/forgehub/platform/pkg/apperror"
	"github.com/forgehub/platform/pkg/logger"
)

const cacheTTL = 60 * time.Second

// Service implements spec §4.2's effective-permission union rule and
// §4.3's delegation lifecycle. It satisfies pkg/auth.PermissionResolver.
type Service struct {
	repo  *Repository
	cache *cache.TTLCache[[]string]
	log   *slog.Logger

	// keysByUser tracks every cache key (one per project scope queried)
	// populated for a user, so InvalidateUser can drop all of them even
	// though the cache itself only invalidates by exact key.
	keysMu     sync.Mutex
	keysByUser map[string]map[string]bool
}

func NewService(repo *Repository, log *slog.Logger) *Service {
	return &Service{
		repo:       repo,
		cache:      cache.New[[]string](cacheTTL),
		log:        log.With(logger.Scope("permissions.svc")),
		keysByUser: make(map[string]map[string]bool),
	}
}

func (s *Service) trackKey(userID, key string) {
	s.keysMu.Lock()
	defer s.keysMu.Unlock()
	if s.keysByUser[userID] == nil {
		s.keysByUser[userID] = make(map[string]bool)
	}
	s.keysByUser[userID][key] = true
}

func cacheKey(userID string, projectID *string) string {
	if projectID == nil {
		return userID
	}
	return userID + ":" + *projectID
}

// EffectivePermissions computes the union of: permissions from assigned
// roles (global or project-scoped), active delegations, implicit owner
// access, and implicit public-project read — then caches the result for
// cacheTTL keyed by (user_id, project_id?). Satisfies
// pkg/auth.PermissionResolver.
func (s *Service) EffectivePermissions(ctx context.Context, userID string, projectID *string) ([]string, error) {
	key := cacheKey(userID, projectID)
	if cached, ok := s.cache.Get(key); ok {
		return cached, nil
	}

	set := make(map[string]bool)

	rolePerms, err := s.repo.PermissionsForAssignedRoles(ctx, userID, projectID)
	if err != nil {
		return nil, err
	}
	for _, p := range rolePerms {
		set[p] = true
	}

	delegationPerms, err := s.repo.PermissionsForActiveDelegations(ctx, userID, projectID)
	if err != nil {
		return nil, err
	}
	for _, p := range delegationPerms {
		set[p] = true
	}

	if projectID != nil {
		ownerID, visibility, err := s.repo.ProjectOwnerAndVisibility(ctx, *projectID)
		if err != nil && err != apperror.ErrNotFound {
			return nil, err
		}
		if err == nil {
			if ownerID == userID {
				for p := range KnownPermissions {
					set[p] = true
				}
			} else if visibility == "public" {
				set["project:read"] = true
			}
		}
	}

	perms := make([]string, 0, len(set))
	for p := range set {
		perms = append(perms, p)
	}

	s.cache.Set(key, perms)
	s.trackKey(userID, key)
	return perms, nil
}

// Require enforces that principal holds permission at the given scope,
// returning apperror.ErrUnauthenticated/ErrForbidden/ErrConcealed per
// spec §4.2's public-API contract. concealOnDeny should be true when
// the caller is checking read access to a private resource, so a
// missing grant is concealed as NotFound instead of Forbidden.
func (s *Service) Require(ctx context.Context, userID, permission string, projectID *string, concealOnDeny bool) error {
	if userID == "" {
		return apperror.ErrUnauthenticated
	}
	perms, err := s.EffectivePermissions(ctx, userID, projectID)
	if err != nil {
		return err
	}
	for _, p := range perms {
		if p == permission {
			return nil
		}
	}
	if concealOnDeny {
		return apperror.ErrConcealed
	}
	return apperror.ErrForbidden
}

// Delegate creates a delegation from delegator to delegate, enforcing
// spec §4.3: delegator must hold both admin:delegate and the target
// permission at the target scope, expiresAt must be in the future, and
// delegator must not equal delegate.
func (s *Service) Delegate(ctx context.Context, delegatorID, delegateID, permission string, projectID *string, expiresAt time.Time) (*Delegation, error) {
	if delegatorID == delegateID {
		return nil, apperror.ErrBadRequest.WithMessage("cannot delegate to yourself")
	}
	if !expiresAt.After(time.Now()) {
		return nil, apperror.ErrBadRequest.WithMessage("expiresAt must be in the future")
	}
	if !IsKnownPermission(permission) {
		return nil, apperror.ErrBadRequest.WithMessage(fmt.Sprintf("unknown permission %q", permission))
	}

	if err := s.Require(ctx, delegatorID, "admin:delegate", projectID, false); err != nil {
		return nil, err
	}
	if err := s.Require(ctx, delegatorID, permission, projectID, false); err != nil {
		return nil, err
	}

	d := &Delegation{
		DelegatorID: delegatorID,
		DelegateID:  delegateID,
		Permission:  permission,
		ProjectID:   projectID,
		ExpiresAt:   expiresAt,
	}
	if err := s.repo.CreateDelegation(ctx, d); err != nil {
		return nil, err
	}

	s.invalidate(delegateID)
	s.log.Info("created delegation",
		slog.String("delegator", delegatorID),
		slog.String("delegate", delegateID),
		slog.String("permission", permission))
	return d, nil
}

// RevokeDelegation revokes a delegation, requiring the caller to be
// its original delegator, and invalidates the delegate's permission
// cache entries.
func (s *Service) RevokeDelegation(ctx context.Context, id, revokerID string) error {
	d, err := s.repo.GetDelegation(ctx, id)
	if err != nil {
		return err
	}
	if d == nil {
		return apperror.ErrNotFound
	}
	if d.DelegatorID != revokerID {
		return apperror.ErrForbidden
	}
	if err := s.repo.RevokeDelegation(ctx, id); err != nil {
		return err
	}
	s.invalidate(d.DelegateID)
	return nil
}

// AssignRole grants userID a role by name, invalidating its cache entry.
func (s *Service) AssignRole(ctx context.Context, userID, roleName string, projectID *string) error {
	role, err := s.repo.RoleByName(ctx, roleName)
	if err != nil {
		return err
	}
	if role == nil {
		return apperror.ErrNotFound.WithMessage("unknown role " + roleName)
	}
	if err := s.repo.AssignRole(ctx, &RoleAssignment{UserID: userID, RoleID: role.ID, ProjectID: projectID}); err != nil {
		return err
	}
	s.invalidate(userID)
	return nil
}

// InvalidateUser drops every cached permission set for userID,
// regardless of project scope. Called on role (un)assignment,
// delegation create/revoke, and user deactivation.
func (s *Service) InvalidateUser(userID string) {
	s.invalidate(userID)
}

func (s *Service) invalidate(userID string) {
	s.keysMu.Lock()
	keys := s.keysByUser[userID]
	delete(s.keysByUser, userID)
	s.keysMu.Unlock()

	for key := range keys {
		s.cache.Invalidate(key)
	}
}

// GCCache drops every expired permission-cache entry. Called
// periodically by the scheduler rather than relying solely on the
// lazy expiry check in Get, so a user who never triggers a fresh
// lookup doesn't keep a stale entry (and its keysByUser bookkeeping)
// resident indefinitely. Matches scheduler.TaskFunc's signature.
func (s *Service) GCCache(ctx context.Context) error {
	s.cache.GC()
	return nil
}
