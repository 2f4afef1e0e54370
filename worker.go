package main

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"i4.energy/across/atlink/at"
	"i4.energy/across/atlink/match"
	"i4.energy/across/atlink/sequence"
	"i4.energy/across/atlink/session"
)

// ErrLoopRunning is returned when Loop is called while it is already running.
var ErrLoopRunning = errors.New("worker loop already running")

// CommandResult is the answer to a single command.
type CommandResult struct {
	Outcome match.Outcome
	// Lines holds the data lines of the response
	Lines []string
}

// Worker serializes access to one peripheral. The Loop goroutine is the
// only one touching the session; everything else talks to it through the
// request channel.
type Worker struct {
	runner    sequence.Runner
	sequencer *sequence.Sequencer
	logger    *slog.Logger

	// requests queues work for the Loop
	requests    chan *request
	loopRunning atomic.Bool
}

// request is one unit of work executed by the Loop: a command, a script or
// a reset of the sequencer.
type request struct {
	ctx      context.Context
	cmd      *session.Command
	script   *sequence.Script
	reset    bool
	respChan chan response
}

type response struct {
	result CommandResult
	report sequence.Report
	err    error
}

// NewWorker returns a Worker for runner. seq must run on the same runner.
func NewWorker(runner sequence.Runner, seq *sequence.Sequencer, logger *slog.Logger) *Worker {
	return &Worker{
		runner:    runner,
		sequencer: seq,
		logger:    logger,
		// No queue for requests
		requests: make(chan *request),
	}
}

// Loop executes requests one at a time until ctx is cancelled.
func (w *Worker) Loop(ctx context.Context) error {
	if !w.loopRunning.CompareAndSwap(false, true) {
		return ErrLoopRunning
	}
	defer w.loopRunning.Store(false)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case req := <-w.requests:
			req.respChan <- w.handle(req)
		}
	}
}

func (w *Worker) handle(req *request) response {
	switch {
	case req.reset:
		w.sequencer.Reset()
		return response{}
	case req.script != nil:
		report, err := w.sequencer.Run(req.ctx, *req.script)
		return response{report: report, err: err}
	}

	out, err := w.runner.Run(req.ctx, *req.cmd)
	if err != nil {
		return response{err: err}
	}
	result := CommandResult{Outcome: out}
	if out.Succeeded() {
		result.Lines = at.Payload(w.runner.Snapshot(), req.cmd.Text)
	}
	w.runner.Clear()
	w.logger.Debug("Command finished", "command", req.cmd.Text, "outcome", out.String())
	return response{result: result}
}

func (w *Worker) submit(ctx context.Context, req *request) (response, error) {
	req.ctx = ctx
	req.respChan = make(chan response, 1)

	select {
	case w.requests <- req:
	case <-ctx.Done():
		return response{}, ctx.Err()
	}

	select {
	case resp := <-req.respChan:
		return resp, resp.err
	case <-ctx.Done():
		// the Loop still answers into the buffered channel
		return response{}, ctx.Err()
	}
}

// Exec runs a single command on the peripheral.
func (w *Worker) Exec(ctx context.Context, cmd session.Command) (CommandResult, error) {
	resp, err := w.submit(ctx, &request{cmd: &cmd})
	return resp.result, err
}

// RunScript runs script on the peripheral. The report is returned even
// when the script fails.
func (w *Worker) RunScript(ctx context.Context, script sequence.Script) (sequence.Report, error) {
	resp, err := w.submit(ctx, &request{script: &script})
	return resp.report, err
}

// Reset clears a halted sequencer.
func (w *Worker) Reset(ctx context.Context) error {
	_, err := w.submit(ctx, &request{reset: true})
	return err
}
