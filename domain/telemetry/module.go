package telemetry

import (
	"go.uber.org/fx"
)

// Module provides the OTLP ingest domain dependencies.
var Module = fx.Module("telemetry",
	fx.Provide(NewRepository),
	fx.Provide(NewService),
	fx.Provide(NewHandler),
	fx.Invoke(RegisterRoutes),
)
