package app

import (
	"github.com/runmux/runmux/config"
	"github.com/runmux/runmux/internal/shell"
	"github.com/runmux/runmux/util/conf"
	"github.com/runmux/runmux/util/logging"
	"github.com/urfave/cli/v2"
	"go.uber.org/fx"
)

// New builds the application shell from the cli context, carrying the
// logger and the parsed configuration into the dependency graph.
func New(ctx *cli.Context) (*shell.Shell, error) {
	log, err := logging.LoggerFromContext(ctx.Context)
	if err != nil {
		return nil, err
	}

	config, err := conf.GetConfigFromContext[config.Config](ctx.Context)
	if err != nil {
		return nil, err
	}

	sharedModule := fx.Module(
		"shared",
		// provide global config
		fx.Supply(config),
	)

	return shell.New(log, sharedModule), nil
}
