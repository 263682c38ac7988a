package runner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestParseRestartPolicy(t *testing.T) {
	tests := map[string]RestartPolicy{
		"":                 RestartNone,
		"none":             RestartNone,
		"kill":             RestartKill,
		"kill-on-error":    RestartKillOnError,
		"restart-on-error": RestartOnError,
	}

	for name, expected := range tests {
		t.Run(name, func(t *testing.T) {
			policy, err := ParseRestartPolicy(name)
			require.NoError(t, err)
			assert.Equal(t, expected, policy)
		})
	}
}

func TestParseRestartPolicy_Unknown(t *testing.T) {
	_, err := ParseRestartPolicy("reboot")
	assert.ErrorIs(t, err, ErrUnknownPolicy)
}

func TestFailed(t *testing.T) {
	zero, three := 0, 3

	assert.False(t, failed(&zero))
	assert.True(t, failed(&three))
	// death without an exit code counts as failure
	assert.True(t, failed(nil))
}

// MARK: - engine

type engineFixture struct {
	engine    *policyEngine
	in        chan OutputMessage
	ctx       context.Context
	respawned []string
}

func newEngineFixture(policy RestartPolicy, remaining int) *engineFixture {
	ctx, cancel := context.WithCancel(context.Background())

	f := &engineFixture{
		in:  make(chan OutputMessage, 64),
		ctx: ctx,
	}

	f.engine = &policyEngine{
		policy:    policy,
		in:        f.in,
		ctx:       ctx,
		cancel:    cancel,
		remaining: remaining,
		running:   make(map[string]bool, remaining),
		respawn: func(name string) {
			f.respawned = append(f.respawned, name)
		},
		log: zap.NewNop(),
	}

	return f
}

// run feeds the messages to the engine and returns everything it forwarded.
func (f *engineFixture) run(msgs ...OutputMessage) []OutputMessage {
	out := make(chan OutputMessage, 64)
	f.engine.out = out

	for _, msg := range msgs {
		f.in <- msg
	}

	f.engine.run()

	var forwarded []OutputMessage
	for msg := range out {
		forwarded = append(forwarded, msg)
	}

	return forwarded
}

func (f *engineFixture) cancelled() bool {
	return f.ctx.Err() != nil
}

func finished(name string, code int) OutputMessage {
	return OutputMessage{Name: name, Payload: Finished{ExitCode: &code}}
}

func started(name string) OutputMessage {
	return OutputMessage{Name: name, Payload: Started{PID: 1}}
}

func TestPolicyEngine_ForwardsEverythingAndCompletes(t *testing.T) {
	f := newEngineFixture(RestartNone, 2)

	msgs := []OutputMessage{
		started("a"),
		started("b"),
		{Name: "a", Payload: Stdout{Ending: Newline, Data: []byte("hi")}},
		finished("a", 0),
		finished("b", 0),
	}

	forwarded := f.run(msgs...)

	assert.Equal(t, msgs, forwarded)
	assert.Equal(t, stateComplete, f.engine.state)
	assert.False(t, f.cancelled())
}

func TestPolicyEngine_KillCancelsOnFirstTermination(t *testing.T) {
	f := newEngineFixture(RestartKill, 2)

	f.run(
		started("a"),
		started("b"),
		// a clean exit still triggers the kill policy
		finished("a", 0),
		finished("b", 0),
	)

	assert.True(t, f.cancelled())
	assert.Equal(t, stateComplete, f.engine.state)
}

func TestPolicyEngine_KillOnErrorIgnoresCleanExit(t *testing.T) {
	f := newEngineFixture(RestartKillOnError, 2)

	f.run(
		started("a"),
		started("b"),
		finished("a", 0),
		finished("b", 0),
	)

	assert.False(t, f.cancelled())
}

func TestPolicyEngine_KillOnErrorCancelsOnFailure(t *testing.T) {
	f := newEngineFixture(RestartKillOnError, 2)

	f.run(
		started("a"),
		started("b"),
		finished("a", 3),
		finished("b", 0),
	)

	assert.True(t, f.cancelled())
}

func TestPolicyEngine_RespawnsFailedWorker(t *testing.T) {
	f := newEngineFixture(RestartOnError, 1)

	f.run(
		started("a"),
		finished("a", 1),
		// the respawned worker's own lifecycle
		started("a"),
		finished("a", 0),
	)

	assert.Equal(t, []string{"a"}, f.respawned)
	assert.Equal(t, stateComplete, f.engine.state)
}

func TestPolicyEngine_DoesNotRespawnCleanExit(t *testing.T) {
	f := newEngineFixture(RestartOnError, 1)

	f.run(
		started("a"),
		finished("a", 0),
	)

	assert.Empty(t, f.respawned)
}

func TestPolicyEngine_SpawnErrorIsTerminal(t *testing.T) {
	f := newEngineFixture(RestartNone, 2)

	f.run(
		OutputMessage{Name: "a", Payload: WorkerError{Err: assert.AnError}},
		started("b"),
		finished("b", 0),
	)

	assert.Equal(t, stateComplete, f.engine.state)
}

func TestPolicyEngine_StreamErrorOfLiveWorkerIsNotTerminal(t *testing.T) {
	f := newEngineFixture(RestartNone, 1)

	f.run(
		started("a"),
		OutputMessage{Name: "a", Payload: WorkerError{Err: assert.AnError}},
		finished("a", 0),
	)

	assert.Equal(t, stateComplete, f.engine.state)
}
