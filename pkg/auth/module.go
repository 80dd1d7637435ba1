package auth

import (
	"go.uber.org/fx"
)

// Module provides the HTTP auth middleware. NewMiddleware depends on
// PermissionResolver, which domain/permissions.Module supplies; both
// modules must be included together in the fx graph.
var Module = fx.Module("auth",
	fx.Provide(NewMiddleware),
)
