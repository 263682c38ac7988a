package runner

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// RestartPolicy decides the fate of the remaining fleet when one worker
// terminates.
type RestartPolicy int

const (
	// RestartNone leaves the remaining workers running.
	RestartNone RestartPolicy = iota

	// RestartKill cancels the remaining workers on the first termination,
	// regardless of exit code.
	RestartKill

	// RestartKillOnError cancels the remaining workers when a worker
	// fails: nonzero exit code, or death without one.
	RestartKillOnError

	// RestartOnError respawns a failed worker with the same command
	// descriptor. Clean exits are not respawned.
	RestartOnError
)

func (p RestartPolicy) String() string {
	switch p {
	case RestartKill:
		return "kill"
	case RestartKillOnError:
		return "kill-on-error"
	case RestartOnError:
		return "restart-on-error"
	default:
		return "none"
	}
}

// ParseRestartPolicy maps a policy name, as accepted on the command line,
// to its RestartPolicy value.
func ParseRestartPolicy(s string) (RestartPolicy, error) {
	switch s {
	case "", "none":
		return RestartNone, nil
	case "kill":
		return RestartKill, nil
	case "kill-on-error":
		return RestartKillOnError, nil
	case "restart-on-error":
		return RestartOnError, nil
	default:
		return RestartNone, fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
	}
}

type engineState int

const (
	stateActive engineState = iota
	stateCancelling
	stateComplete
)

// policyEngine is the sole reader of the workers' shared channel. It
// forwards every message unchanged to the consumer channel, tracks which
// workers are still alive, and applies the restart policy on terminal
// messages. The consumer channel is closed once every worker finished.
type policyEngine struct {
	policy    RestartPolicy
	in        <-chan OutputMessage
	out       chan<- OutputMessage
	ctx       context.Context
	cancel    context.CancelFunc
	respawn   func(name string)
	remaining int
	running   map[string]bool
	state     engineState
	log       *zap.Logger
}

func (e *policyEngine) run() {
	defer close(e.out)

	for e.remaining > 0 {
		msg := <-e.in
		e.out <- msg

		switch payload := msg.Payload.(type) {
		case Started:
			e.running[msg.Name] = true
		case Finished:
			e.onTerminal(msg.Name, failed(payload.ExitCode))
		case WorkerError:
			// terminal only when the worker never started (spawn
			// failure); stream errors of a live worker are not
			if !e.running[msg.Name] {
				e.onTerminal(msg.Name, true)
			}
		}
	}

	e.state = stateComplete
	e.log.Debug("all workers finished")
}

func (e *policyEngine) onTerminal(name string, failed bool) {
	e.running[name] = false

	if e.state == stateActive {
		switch e.policy {
		case RestartKill:
			e.cancelAll()
		case RestartKillOnError:
			if failed {
				e.cancelAll()
			}
		case RestartOnError:
			// a respawn keeps the fleet size, unless the run was
			// cancelled externally in the meantime
			if failed && e.ctx.Err() == nil {
				e.log.Info("respawning failed worker", zap.String("name", name))
				e.respawn(name)
				return
			}
		}
	}

	e.remaining--
}

func (e *policyEngine) cancelAll() {
	e.state = stateCancelling
	e.log.Debug("cancelling remaining workers")

	// cancelling a worker that already finished is a no-op
	e.cancel()
}

// failed reports whether an exit code counts as a failure for policy
// purposes. Death without a code counts as failure.
func failed(code *int) bool {
	return code == nil || *code != 0
}
