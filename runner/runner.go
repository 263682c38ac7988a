// Package runner spawns a set of named processes concurrently, frames
// their stdout and stderr into terminator-tagged chunks, and fans every
// event into a single channel of output messages. A restart policy decides
// what happens to the remaining workers when one of them terminates.
package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultKillTimeout = 5 * time.Second

// respawnDelay spaces out restarts so a command that fails immediately
// does not respawn in a tight loop.
const respawnDelay = 250 * time.Millisecond

// channelCapacity buffers the shared channels. The policy engine always
// drains the workers' channel, so workers only ever block when the caller
// stops draining the consumer channel.
const channelCapacity = 64

// Runner accumulates command descriptors and run options, and spawns one
// worker per command on Run.
type Runner struct {
	commands    []*Command
	policy      RestartPolicy
	killTimeout time.Duration
	log         *zap.Logger
}

type Option func(*Runner)

// WithPolicy sets the restart policy applied when a worker terminates.
func WithPolicy(policy RestartPolicy) Option {
	return func(r *Runner) {
		r.policy = policy
	}
}

// WithKillTimeout sets the grace period between SIGTERM and SIGKILL when
// cancelling workers.
func WithKillTimeout(timeout time.Duration) Option {
	return func(r *Runner) {
		if timeout > 0 {
			r.killTimeout = timeout
		}
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(log *zap.Logger) Option {
	return func(r *Runner) {
		r.log = log
	}
}

func New(opts ...Option) *Runner {
	r := &Runner{
		policy:      RestartNone,
		killTimeout: defaultKillTimeout,
		log:         zap.NewNop(),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Add registers commands to run. Registration order is preserved for
// spawning; it has no effect on message ordering.
func (r *Runner) Add(commands ...*Command) *Runner {
	r.commands = append(r.commands, commands...)
	return r
}

// Run spawns one worker per registered command, all at once, and starts
// the policy engine. It returns a handle to join or kill the run, plus the
// channel carrying every worker's output messages. The caller must drain
// the channel; it is closed once every worker has produced its terminal
// message.
//
// Run fails before spawning anything when no commands are registered or
// two commands share a name.
func (r *Runner) Run(ctx context.Context) (*Handle, <-chan OutputMessage, error) {
	if len(r.commands) == 0 {
		return nil, nil, ErrNoCommands
	}

	descriptors := make(map[string]*Command, len(r.commands))
	for _, command := range r.commands {
		if _, ok := descriptors[command.name]; ok {
			return nil, nil, fmt.Errorf("%w: %q", ErrDuplicateName, command.name)
		}
		descriptors[command.name] = command
	}

	runCtx, cancel := context.WithCancel(ctx)

	log := r.log.With(zap.String("run_id", uuid.NewString()))

	in := make(chan OutputMessage, channelCapacity)
	out := make(chan OutputMessage, channelCapacity)

	spawn := func(command *Command, delay time.Duration) {
		w := &worker{
			command:     command.clone(),
			killTimeout: r.killTimeout,
			startDelay:  delay,
			out:         in,
			log:         log.Named("worker").With(zap.String("name", command.name)),
		}
		go w.run(runCtx)
	}

	engine := &policyEngine{
		policy:    r.policy,
		in:        in,
		out:       out,
		ctx:       runCtx,
		cancel:    cancel,
		remaining: len(r.commands),
		running:   make(map[string]bool, len(r.commands)),
		respawn: func(name string) {
			spawn(descriptors[name], respawnDelay)
		},
		log: log.Named("policy"),
	}

	log.Debug("spawning workers",
		zap.Int("count", len(r.commands)),
		zap.Stringer("policy", r.policy),
	)

	for _, command := range r.commands {
		spawn(command, 0)
	}

	done := make(chan struct{})

	go func() {
		engine.run()
		cancel()
		close(done)
	}()

	return &Handle{kill: cancel, done: done}, out, nil
}
