package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// worker owns exactly one spawned process and streams its output into the
// shared channel. A worker runs once; a restart is a new worker built from
// the same command descriptor.
type worker struct {
	command     *Command
	killTimeout time.Duration
	startDelay  time.Duration
	out         chan<- OutputMessage
	log         *zap.Logger
}

// run spawns the process and blocks until the worker has produced its
// terminal message. Cancelling ctx kills the process group: SIGTERM first,
// SIGKILL once the kill timeout expires.
func (w *worker) run(ctx context.Context) {
	if w.startDelay > 0 {
		select {
		case <-time.After(w.startDelay):
		case <-ctx.Done():
			// cancelled before the restart happened; the terminal message
			// must still be produced
			w.send(Finished{})
			return
		}
	}

	cmd := exec.Command(w.command.program, w.command.args...)

	if w.command.dir != "" {
		cmd.Dir = w.command.dir
	}

	if len(w.command.env) > 0 {
		env := os.Environ()
		for k, v := range w.command.env {
			env = append(env, fmt.Sprintf("%s=%s", k, v))
		}
		cmd.Env = env
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		w.send(WorkerError{Err: err})
		return
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		w.send(WorkerError{Err: err})
		return
	}

	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		w.log.Error("spawn failed", zap.Error(err))
		w.send(WorkerError{Err: err})
		return
	}

	pid := cmd.Process.Pid
	log := w.log.With(zap.Int("pid", pid))
	log.Debug("process started")

	w.send(Started{PID: pid})

	termination := make(chan struct{})

	go func() {
		select {
		case <-ctx.Done():
			w.kill(pid, termination)
		case <-termination:
		}
	}()

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		w.drain(stdout, false)
	}()

	go func() {
		defer wg.Done()
		w.drain(stderr, true)
	}()

	// Wait closes the pipes, so both drains must have finished first
	wg.Wait()

	code := exitCode(cmd.Wait())
	close(termination)

	if code != nil {
		log.Debug("process exited", zap.Int("code", *code))
	} else {
		log.Debug("process exited without exit status")
	}

	w.send(Finished{ExitCode: code})
}

// drain frames one of the process's streams into chunk messages until the
// stream ends. Read errors are reported but do not end the worker: the
// process itself may still be alive.
func (w *worker) drain(r io.Reader, isStderr bool) {
	scanner := newChunkScanner(r)

	for scanner.scan() {
		ending, data := splitChunk(scanner.chunk())

		// the scanner reuses its buffer between calls
		payload := make([]byte, len(data))
		copy(payload, data)

		if isStderr {
			w.send(Stderr{Ending: ending, Data: payload})
		} else {
			w.send(Stdout{Ending: ending, Data: payload})
		}
	}

	if err := scanner.Err(); err != nil {
		w.log.Error("stream read failed", zap.Error(err))
		w.send(WorkerError{Err: err})

		// keep the pipe flowing so the process is never blocked writing
		io.Copy(io.Discard, r)
	}
}

func (w *worker) send(payload OutputPayload) {
	w.out <- OutputMessage{Name: w.command.name, Payload: payload}
}

// kill signals the process group to stop, escalating from SIGTERM to
// SIGKILL when the process is still around after the kill timeout.
func (w *worker) kill(pid int, termination <-chan struct{}) {
	w.signal(pid, syscall.SIGTERM)

	select {
	case <-termination:
		return
	case <-time.After(w.killTimeout):
	}

	w.log.Warn("process did not stop in time, killing", zap.Int("pid", pid))
	w.signal(pid, syscall.SIGKILL)
}

func (w *worker) signal(pid int, signal syscall.Signal) {
	// negative pid signals the whole process group
	if pgid, err := syscall.Getpgid(pid); err == nil {
		_ = syscall.Kill(-pgid, signal)
	} else {
		_ = syscall.Kill(pid, signal)
	}
}

// exitCode decodes the result of cmd.Wait into an optional exit code. A
// process that died without exiting, e.g. killed by a signal, has none.
func exitCode(err error) *int {
	var code int

	if err == nil {
		return &code
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if status, ok := exitErr.Sys().(syscall.WaitStatus); ok {
			if c := status.ExitStatus(); c >= 0 {
				code = c
				return &code
			}
		}
	}

	return nil
}
