package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/runmux/runmux/app"
	"github.com/runmux/runmux/config"
	"github.com/runmux/runmux/console"
	"github.com/runmux/runmux/runner"
	"github.com/runmux/runmux/session"
	"github.com/runmux/runmux/util/conf"
	"github.com/urfave/cli/v2"
)

var (
	runCmdDescription = `The run command launches every given command in its own process,
captures their stdout and stderr as they are produced, and writes
a single merged, colorized feed to the terminal.

Commands are tokenized POSIX-style; they are not evaluated by a
shell. Each command gets a worker name used to prefix its output,
either from a --name flag (repeatable, applied in order) or a
generated one (cmd0, cmd1, ...).

When a worker terminates, the restart policy decides the fate of
the others: none, kill, kill-on-error or restart-on-error.`
	runCmd = &cli.Command{
		Name:        "run",
		Usage:       "Run commands concurrently and multiplex their output.",
		ArgsUsage:   "COMMAND [COMMAND...]",
		Description: runCmdDescription,
		Action:      runAction,
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:     "name",
				Usage:    "worker name for the command at the same position.",
				Aliases:  []string{"n"},
				Category: "run",
			},
			&cli.StringSliceFlag{
				Name:     "color",
				Usage:    "explicit color for a worker, as NAME=COLOR.",
				Category: "output",
			},
			&cli.StringFlag{
				Name:     "dir",
				Usage:    "working directory for all commands.",
				Aliases:  []string{"d"},
				Category: "run",
			},
		},
	}
)

func runAction(ctx *cli.Context) error {
	cfg, err := conf.GetConfigFromContext[config.Config](ctx.Context)
	if err != nil {
		return err
	}

	args := ctx.Args().Slice()
	if len(args) == 0 {
		return cli.Exit("no commands given", 2)
	}

	names := ctx.StringSlice("name")

	commands := make([]*runner.Command, 0, len(args))
	for i, commandString := range args {
		name := fmt.Sprintf("cmd%d", i)
		if i < len(names) {
			name = names[i]
		}

		command, err := runner.ParseCommand(name, commandString)
		if err != nil {
			return cli.Exit(fmt.Sprintf("invalid command %q: %s", commandString, err), 2)
		}

		if dir := ctx.String("dir"); dir != "" {
			command.Dir(dir)
		}

		commands = append(commands, command)
	}

	colors, err := parseColors(ctx.StringSlice("color"))
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}

	policy, err := runner.ParseRestartPolicy(cfg.Policy)
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}

	sh, err := app.New(ctx)
	if err != nil {
		return err
	}

	params := session.Params{
		Commands:    commands,
		Policy:      policy,
		KillTimeout: time.Duration(cfg.KillTimeout) * time.Second,
		Colors:      colors,
		Console: console.Options{
			Verbose:         cfg.Verbose,
			ShowStreamFlags: cfg.StreamFlags,
		},
		Out: os.Stdout,
	}

	return sh.Run(ctx.Context, session.Module(params))
}

func parseColors(specs []string) (map[string]console.Color, error) {
	colors := make(map[string]console.Color, len(specs))

	for _, spec := range specs {
		name, value, ok := strings.Cut(spec, "=")
		if !ok {
			return nil, fmt.Errorf("invalid color %q, expected NAME=COLOR", spec)
		}

		color, err := console.ParseColor(value)
		if err != nil {
			return nil, err
		}

		colors[name] = color
	}

	return colors, nil
}

func init() {
	rootApp.Commands = append(rootApp.Commands, runCmd)
}
