package session_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/runmux/runmux/console"
	"github.com/runmux/runmux/runner"
	"github.com/runmux/runmux/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSession_RunsToCompletion(t *testing.T) {
	var buf bytes.Buffer

	params := session.Params{
		Commands: []*runner.Command{
			runner.NewCommand("greet", "echo", "hi"),
		},
		Policy:  runner.RestartNone,
		Console: console.Options{},
		Out:     &buf,
	}

	s := session.New(context.Background(), params, zap.NewNop())

	require.NoError(t, s.Start())

	code := s.Wait()

	assert.Equal(t, 0, code)
	assert.Contains(t, buf.String(), "hi")
}

func TestSession_PropagatesExitCode(t *testing.T) {
	var buf bytes.Buffer

	params := session.Params{
		Commands: []*runner.Command{
			runner.NewCommand("failing", "sh", "-c", "exit 7"),
		},
		Out: &buf,
	}

	s := session.New(context.Background(), params, zap.NewNop())

	require.NoError(t, s.Start())
	assert.Equal(t, 7, s.Wait())
}

func TestSession_StartFailsWithoutCommands(t *testing.T) {
	s := session.New(context.Background(), session.Params{Out: &bytes.Buffer{}}, zap.NewNop())

	assert.ErrorIs(t, s.Start(), runner.ErrNoCommands)
}

func TestSession_ShutdownKillsTheRun(t *testing.T) {
	var buf bytes.Buffer

	params := session.Params{
		Commands: []*runner.Command{
			runner.NewCommand("slow", "sleep", "10"),
		},
		Out: &buf,
	}

	s := session.New(context.Background(), params, zap.NewNop())

	require.NoError(t, s.Start())

	code := make(chan int, 1)
	go func() {
		code <- s.Wait()
	}()

	require.NoError(t, s.Shutdown(context.Background()))

	select {
	case c := <-code:
		// killed by a signal, so no clean exit code
		assert.Equal(t, 1, c)
	case <-time.After(10 * time.Second):
		t.Fatal("session did not stop")
	}
}

func TestSession_ShutdownBeforeStartIsNoop(t *testing.T) {
	s := session.New(context.Background(), session.Params{}, zap.NewNop())

	assert.NoError(t, s.Shutdown(context.Background()))
}
