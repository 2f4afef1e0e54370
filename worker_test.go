package main

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"i4.energy/across/atlink/at"
	"i4.energy/across/atlink/match"
	"i4.energy/across/atlink/sequence"
	"i4.energy/across/atlink/session"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func newTestWorker(t *testing.T) (*Worker, *session.TestTransport) {
	t.Helper()
	ctrl := gomock.NewController(t)
	tr := session.NewTestTransport()
	clock := session.NewTestClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

	config, err := session.NewConfigBuilder().
		WithDialer(session.NewMockDialer(ctrl)).
		WithClock(clock).
		WithTimeout(time.Second).
		Build()
	require.NoError(t, err)
	sess, err := session.NewWithTransport(tr, config)
	require.NoError(t, err)

	seq := sequence.New(sess, sequence.WithClock(clock), sequence.WithLogger(discard))
	w := NewWorker(sess, seq, discard)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Loop(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return w, tr
}

func TestWorkerExec(t *testing.T) {
	t.Run("Returns payload lines", func(t *testing.T) {
		w, tr := newTestWorker(t)
		tr.Reply("AT+CSQ\r", "AT+CSQ\r\r\n+CSQ: 21,99\r\n\r\nOK\r\n")

		result, err := w.Exec(context.Background(), session.Command{Text: at.CmdSignal})
		require.NoError(t, err)
		assert.True(t, result.Outcome.Succeeded())
		assert.Equal(t, []string{"+CSQ: 21,99"}, result.Lines)
	})

	t.Run("Reports device failures in the outcome", func(t *testing.T) {
		w, tr := newTestWorker(t)
		tr.Reply("AT+COPS?\r", "+CME ERROR: 30\r\n")

		result, err := w.Exec(context.Background(), session.Command{Text: at.CmdOperator})
		require.NoError(t, err)
		assert.Equal(t, match.Failure(match.ReasonCME), result.Outcome)
		assert.Empty(t, result.Lines)
	})

	t.Run("Serializes concurrent callers", func(t *testing.T) {
		w, tr := newTestWorker(t)
		const n = 8
		for range n {
			tr.Reply("AT\r", "OK\r\n")
		}

		errs := make(chan error, n)
		for range n {
			go func() {
				result, err := w.Exec(context.Background(), session.Command{Text: at.CmdAt})
				if err == nil {
					err = result.Outcome.Err()
				}
				errs <- err
			}()
		}
		for range n {
			assert.NoError(t, <-errs)
		}
		assert.Len(t, tr.Written(), n)
	})

	t.Run("Cancelled context", func(t *testing.T) {
		w := NewWorker(nil, nil, discard)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := w.Exec(ctx, session.Command{Text: at.CmdAt})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestWorkerScripts(t *testing.T) {
	w, tr := newTestWorker(t)
	script := sequence.Script{
		Name: "probe",
		Steps: []sequence.Step{
			{Name: "probe", Command: at.CmdAt, Halt: true},
		},
	}

	report, err := w.RunScript(context.Background(), script)
	require.ErrorIs(t, err, sequence.ErrHalted)
	assert.True(t, report.Halted)

	tr.Reply("AT\r", "OK\r\n")
	_, err = w.RunScript(context.Background(), script)
	require.ErrorIs(t, err, sequence.ErrHalted)
	assert.Len(t, tr.Written(), 1)

	require.NoError(t, w.Reset(context.Background()))
	report, err = w.RunScript(context.Background(), script)
	require.NoError(t, err)
	assert.True(t, report.Succeeded())
}

func TestWorkerLoopRunsOnce(t *testing.T) {
	w, _ := newTestWorker(t)
	// wait until the background Loop serves a request
	require.NoError(t, w.Reset(context.Background()))
	assert.ErrorIs(t, w.Loop(context.Background()), ErrLoopRunning)
}
