package session

import (
	"context"

	"github.com/runmux/runmux/util/logging"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func Module(params Params) fx.Option {
	return fx.Module("session",
		// provide session params
		fx.Supply(params),
		// scope the logger to this module
		logging.DecorateLogger("session"),
		// provide the session
		fx.Provide(NewLifecycleSession),
		// invoke session
		fx.Invoke(func(*Session) {}),
	)
}

type SessionParams struct {
	fx.In

	Context context.Context
	Params  Params
	Logger  *zap.Logger
}

// NewLifecycleSession builds a session and hooks it into the fx lifecycle:
// starting the app spawns the workers, a completed run shuts the app down
// with the session exit code, and stopping the app kills the run.
func NewLifecycleSession(
	params SessionParams,
	lc fx.Lifecycle,
	shutdowner fx.Shutdowner,
) *Session {
	session := New(params.Context, params.Params, params.Logger)

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			if err := session.Start(); err != nil {
				return err
			}

			go func() {
				code := session.Wait()
				shutdowner.Shutdown(fx.ExitCode(code))
			}()

			return nil
		},
		OnStop: func(ctx context.Context) error {
			return session.Shutdown(ctx)
		},
	})

	return session
}
