// Package main provides the entry point for the platform API server.
//
// @title Forgehub Platform API
// @version 0.1.0
// @description Identity, secrets, agent-session, deployment, webhook,
// @description and telemetry core for an internal developer platform.
// @contact.name Forgehub Platform Team
// @license.name Proprietary
// @host localhost:5300
// @BasePath /
// @schemes http https
//
// @securityDefinitions.apikey bearerAuth
// @in header
// @name Authorization
// @description Bearer session or API token (format: "Bearer <token>")
package main

import (
	"log/slog"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/forgehub/platform/domain/agentsessions"
	"github.com/forgehub/platform/domain/apitoken"
	"github.com/forgehub/platform/domain/deployments"
	"github.com/forgehub/platform/domain/email"
	"github.com/forgehub/platform/domain/health"
	"github.com/forgehub/platform/domain/notifications"
	"github.com/forgehub/platform/domain/permissions"
	"github.com/forgehub/platform/domain/projects"
	"github.com/forgehub/platform/domain/scheduler"
	"github.com/forgehub/platform/domain/secrets"
	"github.com/forgehub/platform/domain/sessions"
	"github.com/forgehub/platform/domain/telemetry"
	"github.com/forgehub/platform/domain/users"
	"github.com/forgehub/platform/domain/webhooks"
	"github.com/forgehub/platform/internal/config"
	"github.com/forgehub/platform/internal/database"
	"github.com/forgehub/platform/internal/jobs"
	"github.com/forgehub/platform/internal/migrate"
	"github.com/forgehub/platform/internal/server"
	"github.com/forgehub/platform/internal/storage"
	"github.com/forgehub/platform/pkg/auth"
	"github.com/forgehub/platform/pkg/logger"
)

func main() {
	// Load .env files if present (for local development)
	// Order matters: .env.local overrides .env
	// Note: Load() won't overwrite existing vars, Overload() will
	_ = godotenv.Load("../../.env")
	_ = godotenv.Overload("../../.env.local") // Overload ensures local values take precedence

	fx.New(
		// Logging
		fx.WithLogger(func(log *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: log}
		}),

		// Infrastructure modules
		logger.Module,
		config.Module,
		database.Module,
		migrate.Module,
		server.Module,
		storage.Module,
		jobs.Module,

		// Auth & authorization. permissions.Module must be included
		// alongside auth.Module: it supplies the auth.PermissionResolver
		// that NewMiddleware depends on.
		auth.Module,
		permissions.Module,

		// Domain modules
		health.Module,
		users.Module,
		sessions.Module,
		apitoken.Module,
		secrets.Module,
		projects.Module,
		notifications.Module,
		webhooks.Module,
		telemetry.Module,
		email.Module,

		// Scheduler (cron-driven reconciler ticks, preview sweeps,
		// permission-cache GC). agentsessions.Module registers its reaper
		// sweep on the same scheduler instance rather than running its own
		// ticker, so scheduler.Module must come first in practice but is
		// resolved by fx regardless of declaration order.
		scheduler.Module,
		agentsessions.Module,
		deployments.Module,
	).Run()
}
