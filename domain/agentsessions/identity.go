package agentsessions

import (
	"context"
	"time"

	"github.com/forgehub/platform/domain/apitoken"
	"github.com/forgehub/platform/domain/permissions"
	"github.com/forgehub/platform/domain/users"
)

// mintedIdentity is the ephemeral User + API token created for one agent
// session's lifetime.
type mintedIdentity struct {
	User     *users.User
	RawToken string
}

// mintIdentity creates a password-less agent user, assigns it the
// project-scoped developer role so its EffectivePermissions cover the
// requested scopes, then issues an API token in its own name. Order
// matters: AssignRole must run before apitoken.Create, since Create
// rejects any scope the issuing identity does not itself hold.
func mintIdentity(
	ctx context.Context,
	usersSvc *users.Service,
	permsSvc *permissions.Service,
	apitokenSvc *apitoken.Service,
	projectID string,
	scopes []string,
	tokenTTL time.Duration,
	sessionID string,
) (*mintedIdentity, error) {
	agentUser, err := usersSvc.CreateAgent(ctx, "agent-"+sessionID)
	if err != nil {
		return nil, err
	}

	if err := permsSvc.AssignRole(ctx, agentUser.ID, "developer", &projectID); err != nil {
		return nil, err
	}

	expiresAt := time.Now().Add(tokenTTL)
	created, err := apitokenSvc.Create(ctx, agentUser.ID, "agent-session:"+sessionID, scopes, &expiresAt)
	if err != nil {
		return nil, err
	}

	return &mintedIdentity{User: agentUser, RawToken: created.Token}, nil
}
