package permissions

import (
	"go.uber.org/fx"

	"github.com/forgehub/platform/domain/scheduler"
	"github.com/forgehub/platform/pkg/auth"
)

// Module provides the authorization domain: roles, role assignments,
// delegations, and the cached effective-permission engine. Service is
// additionally provided as auth.PermissionResolver so pkg/auth and
// domain/apitoken can depend on the interface without importing this
// package directly.
var Module = fx.Module("permissions",
	fx.Provide(NewRepository),
	fx.Provide(NewService),
	fx.Provide(func(s *Service) auth.PermissionResolver { return s }),
	fx.Provide(NewHandler),
	fx.Invoke(RegisterRoutes),
	fx.Invoke(RegisterCacheGC),
)

// RegisterCacheGC schedules the permission-cache GC sweep on the
// shared scheduler rather than giving the cache its own ticker.
func RegisterCacheGC(s *scheduler.Scheduler, svc *Service, cfg *scheduler.Config) error {
	return s.AddIntervalTask("permission_cache_gc", cfg.PermissionCacheGCInterval, svc.GCCache)
}
