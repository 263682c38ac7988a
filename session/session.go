// Package session glues one runner to one console consumer and exposes
// the result as an fx-managed component with start/stop semantics.
package session

import (
	"context"
	"io"
	"time"

	"github.com/runmux/runmux/console"
	"github.com/runmux/runmux/runner"
	"go.uber.org/zap"
)

// Params describes one supervised session: the commands to run, the
// cross-worker restart policy and the presentation options.
type Params struct {
	Commands    []*runner.Command
	Policy      runner.RestartPolicy
	KillTimeout time.Duration
	Colors      map[string]console.Color
	Console     console.Options
	Out         io.Writer
}

type Session struct {
	ctx      context.Context
	params   Params
	handle   *runner.Handle
	consumer *console.Consumer
	done     chan struct{}
	log      *zap.Logger
}

func New(ctx context.Context, params Params, log *zap.Logger) *Session {
	return &Session{
		ctx:    ctx,
		params: params,
		log:    log,
	}
}

// Start spawns all workers and the console consumer. It fails fast on
// configuration errors (no commands, duplicate names) without spawning
// anything.
func (s *Session) Start() error {
	names := make([]string, 0, len(s.params.Commands))
	for _, command := range s.params.Commands {
		names = append(names, command.Name())
	}

	colors := console.Assign(names, s.params.Colors)

	r := runner.New(
		runner.WithPolicy(s.params.Policy),
		runner.WithKillTimeout(s.params.KillTimeout),
		runner.WithLogger(s.log.Named("runner")),
	).Add(s.params.Commands...)

	handle, feed, err := r.Run(s.ctx)
	if err != nil {
		s.log.Error("run failed", zap.Error(err))
		return err
	}

	s.handle = handle
	s.consumer = console.NewConsumer(
		s.params.Out,
		names,
		colors,
		s.params.Console,
		s.log.Named("console"),
	)

	s.done = make(chan struct{})

	go func() {
		defer close(s.done)
		s.consumer.Run(feed)
	}()

	return nil
}

// Wait blocks until the run completed and every message was rendered, then
// returns the session exit code: the first failing worker's exit code, or
// zero when every worker exited cleanly.
func (s *Session) Wait() int {
	s.handle.Join()
	<-s.done

	return s.consumer.ExitCode()
}

// Shutdown requests cancellation of all workers and waits for rendering to
// settle, or for ctx to expire. Safe to call after the run completed.
func (s *Session) Shutdown(ctx context.Context) error {
	if s.handle == nil {
		return nil
	}

	s.handle.Kill()

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
