package sessions

import (
	"go.uber.org/fx"
)

// Module provides the login session domain.
var Module = fx.Module("sessions",
	fx.Provide(NewRepository),
	fx.Provide(NewService),
	fx.Provide(NewHandler),
	fx.Invoke(RegisterRoutes),
)
