package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/runmux/runmux/config"
	"github.com/runmux/runmux/internal/shell"
	"github.com/runmux/runmux/util/conf"
	"github.com/runmux/runmux/util/logging"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

var (
	appName  = "runmux"
	appUsage = `Run several commands concurrently and multiplex their
output into one colorized, name-prefixed terminal feed.`
	rootApp = &cli.App{
		Name:            appName,
		Usage:           appUsage,
		HideHelpCommand: true,
		Args:            true,
		Flags: []cli.Flag{
			// general flags
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "set the log level. Options: debug, info, warn, error, panic, fatal.",
				EnvVars: []string{"LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "log-format",
				EnvVars: []string{"LOG_FORMAT"},
			},
			// run flags
			&cli.StringFlag{
				Name:     "policy",
				Usage:    "restart policy applied when a worker terminates. Options: none, kill, kill-on-error, restart-on-error.",
				Aliases:  []string{"p"},
				Value:    "none",
				Category: "run",
				EnvVars:  []string{"RUNMUX_POLICY"},
			},
			&cli.IntFlag{
				Name:     "kill-timeout",
				Usage:    "grace period in seconds between SIGTERM and SIGKILL when cancelling workers.",
				Value:    5,
				Category: "run",
				EnvVars:  []string{"RUNMUX_KILL_TIMEOUT"},
			},
			&cli.BoolFlag{
				Name:     "verbose",
				Usage:    "also print SYSTEM lines for process start and exit.",
				Aliases:  []string{"v"},
				Category: "output",
				EnvVars:  []string{"RUNMUX_VERBOSE"},
			},
			&cli.BoolFlag{
				Name:     "stream-flags",
				Usage:    "annotate output lines with (o)/(e) stream markers.",
				Aliases:  []string{"f"},
				Category: "output",
				EnvVars:  []string{"RUNMUX_STREAM_FLAGS"},
			},
		},
		Before: func(ctx *cli.Context) error {
			// create the logger
			log, err := createLogger(ctx)
			if err != nil {
				return err
			}

			// inject logger into cli context
			ctx.Context = logging.ContextWithLogger(ctx.Context, log)

			// parse config using defaults, files, env and cli flags
			cfg, err := conf.Parse[config.Config](conf.ParseOptions{
				Cli:       ctx,
				Defaults:  config.DefaultConfig,
				EnvPrefix: "RUNMUX_",
				FileName:  "runmux.json",
				EnvFile:   ".env",
				Log:       log,
			})
			if err != nil {
				return err
			}

			// inject the config into the cli context
			ctx.Context = conf.ContextWithConfig(ctx.Context, cfg)

			return nil
		},
		After: func(ctx *cli.Context) error {
			log, err := logging.LoggerFromContext(ctx.Context)
			if err != nil {
				return err
			}

			log.Sync()

			return nil
		},
	}
)

func init() {
	cli.VersionFlag = &cli.BoolFlag{
		Name:               "version",
		Usage:              "print the version",
		DisableDefaultText: true,
	}
}

type ExecuteParams struct {
	Version  string
	Compiled time.Time
}

func Execute(params ExecuteParams) {
	rootApp.Version = params.Version
	rootApp.Compiled = params.Compiled

	run(context.Background(), os.Args)
}

func run(ctx context.Context, args []string) {
	err := rootApp.RunContext(ctx, args)

	// if app exited without error, return
	if err == nil {
		return
	}

	// propagate worker exit codes reported by the shell
	var exitErr *shell.ExitError
	if errors.As(err, &exitErr) {
		os.Exit(exitErr.ExitCode)
	}

	fmt.Fprintf(os.Stderr, "exit error: %s\n", err.Error())

	os.Exit(1)
}

func createLogger(ctx *cli.Context) (*zap.Logger, error) {
	level := getLogLevelFromCLI(ctx)
	format := getLogFormatFromCLI(ctx)

	var config zap.Config
	if format == "production" {
		config = zap.NewProductionConfig()
	} else {
		config = zap.NewDevelopmentConfig()
	}

	config.InitialFields = map[string]any{
		"app": appName,
	}

	config.Level = level

	return config.Build()
}

func getLogFormatFromCLI(ctx *cli.Context) string {
	format := ctx.String("log-format")
	if format != "" {
		return format
	}

	return "production"
}

func getLogLevelFromCLI(ctx *cli.Context) zap.AtomicLevel {
	lvl := ctx.String("log-level")

	if atom, err := zap.ParseAtomicLevel(lvl); err == nil {
		return atom
	}

	return zap.NewAtomicLevelAt(zap.InfoLevel)
}
