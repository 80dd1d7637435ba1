package webhooks

import (
	"context"

	"go.uber.org/fx"
)

// Module provides the webhook-dispatch domain dependencies.
var Module = fx.Module("webhooks",
	fx.Provide(NewRepository),
	fx.Provide(NewDispatcher),
	fx.Provide(NewWorker),
	fx.Provide(NewService),
	fx.Provide(NewHandler),
	fx.Invoke(RegisterRoutes),
	fx.Invoke(RegisterWorkerLifecycle),
)

// RegisterWorkerLifecycle starts and stops the delivery worker alongside
// the server process.
func RegisterWorkerLifecycle(lc fx.Lifecycle, w *Worker) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return w.Start(ctx)
		},
		OnStop: func(ctx context.Context) error {
			return w.Stop(ctx)
		},
	})
}
