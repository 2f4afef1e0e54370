package sequence

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"i4.energy/across/atlink/at"
	"i4.energy/across/atlink/match"
	"i4.energy/across/atlink/metrics"
	"i4.energy/across/atlink/nmea"
	"i4.energy/across/atlink/session"
)

// Runner executes one command to completion. *session.Session implements it.
type Runner interface {
	Run(ctx context.Context, cmd session.Command) (match.Outcome, error)
	Snapshot() []byte
	Clear()
}

// Script is an ordered list of steps run against one device.
type Script struct {
	Name string
	// Terminator is the line terminator the device expects. The sequencer
	// does not apply it; callers configure the session with it.
	Terminator string
	Steps      []Step
}

func (sc Script) validate() error {
	if len(sc.Steps) == 0 {
		return fmt.Errorf("%w: script %q has no steps", ErrInvalidScript, sc.Name)
	}
	for _, st := range sc.Steps {
		if err := st.validate(); err != nil {
			return err
		}
	}
	return nil
}

// StepResult is the record of one executed step.
type StepResult struct {
	Name     string
	Command  string
	Outcome  match.Outcome
	Attempts int
	// Lines holds the data lines of the response, without echo and result codes.
	Lines       []string
	Fields      map[string]string
	FieldErrors map[string]error
	Elapsed     time.Duration
}

// Report collects the results of a script run.
type Report struct {
	Script string
	Steps  []StepResult
	Halted bool
}

// Fields merges the extracted fields of all steps. Later steps win.
func (r Report) Fields() map[string]string {
	fields := make(map[string]string)
	for _, st := range r.Steps {
		for name, value := range st.Fields {
			fields[name] = value
		}
	}
	return fields
}

// Succeeded reports whether every step in the report succeeded.
func (r Report) Succeeded() bool {
	if r.Halted {
		return false
	}
	for _, st := range r.Steps {
		if !st.Outcome.Succeeded() {
			return false
		}
	}
	return true
}

// Sequencer runs scripts step by step on a Runner. It is not safe for
// concurrent use; one Sequencer owns its Runner.
type Sequencer struct {
	runner Runner
	clock  session.Clock
	logger *slog.Logger

	halted   bool
	haltedBy string
}

// Option configures a Sequencer.
type Option func(*Sequencer)

// WithLogger sets the logger used for step progress.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Sequencer) {
		s.logger = logger
	}
}

// WithClock sets the clock used for retry intervals and step timing.
func WithClock(clock session.Clock) Option {
	return func(s *Sequencer) {
		s.clock = clock
	}
}

func New(runner Runner, opts ...Option) *Sequencer {
	s := &Sequencer{
		runner: runner,
		clock:  session.SystemClock{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Halted reports whether the sequencer is halted, and by which step.
func (s *Sequencer) Halted() (bool, string) {
	return s.halted, s.haltedBy
}

// Reset leaves the halted state.
func (s *Sequencer) Reset() {
	s.halted = false
	s.haltedBy = ""
}

// Run executes the steps of script in order. It stops at the first failed
// step that is neither optional nor halting and returns ErrStepFailed; a
// failed Halt step returns ErrHalted and keeps the sequencer halted. The
// report holds every step executed so far.
func (s *Sequencer) Run(ctx context.Context, script Script) (Report, error) {
	report := Report{Script: script.Name}
	if s.halted {
		report.Halted = true
		return report, fmt.Errorf("%w by step %q", ErrHalted, s.haltedBy)
	}
	if err := script.validate(); err != nil {
		return report, err
	}

	logger := s.logger.With("script", script.Name)
	logger.Info("Running script", "steps", len(script.Steps))

	for _, step := range script.Steps {
		res, err := s.runStep(ctx, logger, step)
		if err != nil {
			return report, err
		}
		report.Steps = append(report.Steps, res)
		metrics.RecordStep(script.Name, step.Name, res.Outcome.Kind.String(), res.Attempts, res.Elapsed)

		if res.Outcome.Succeeded() {
			continue
		}
		if step.Halt {
			s.halted = true
			s.haltedBy = step.Name
			report.Halted = true
			metrics.RecordHalt(script.Name)
			logger.Error("Sequence halted", "step", step.Name, "outcome", res.Outcome.String())
			return report, fmt.Errorf("%w by step %q: %w", ErrHalted, step.Name, res.Outcome.Err())
		}
		if step.Optional {
			logger.Warn("Optional step failed", "step", step.Name, "outcome", res.Outcome.String())
			continue
		}
		return report, fmt.Errorf("%w: %q: %w", ErrStepFailed, step.Name, res.Outcome.Err())
	}

	logger.Info("Script finished", "steps", len(report.Steps))
	return report, nil
}

func (s *Sequencer) runStep(ctx context.Context, logger *slog.Logger, step Step) (StepResult, error) {
	res := StepResult{Name: step.Name, Command: step.Command}
	start := s.clock.Now()
	limit := step.attempts()

	var out match.Outcome
	for {
		res.Attempts++
		var err error
		out, err = s.runner.Run(ctx, step.command())
		if err != nil {
			return res, fmt.Errorf("step %q: %w", step.Name, err)
		}
		logger.Debug("Step attempt", "step", step.Name, "attempt", res.Attempts, "outcome", out.String())

		if out.Kind != match.KindTimeout || step.OnTimeout == TimeoutFinal || res.Attempts >= limit {
			break
		}
		if err := s.wait(ctx, step.Interval); err != nil {
			return res, fmt.Errorf("step %q: %w", step.Name, err)
		}
		if step.OnTimeout == TimeoutRetry {
			alive, err := s.probe(ctx, logger, step, &res.Attempts, limit)
			if err != nil {
				return res, err
			}
			if !alive {
				break
			}
		}
	}

	res.Outcome = out
	if out.Succeeded() {
		res.Lines = at.Payload(s.runner.Snapshot(), step.Command)
		s.extract(step, &res)
	}
	s.runner.Clear()
	res.Elapsed = s.clock.Now().Sub(start)

	logger.Info("Step finished",
		"step", step.Name,
		"outcome", out.String(),
		"attempts", res.Attempts,
		"elapsed", res.Elapsed,
	)
	return res, nil
}

// probe sends the liveness command until the device answers or the step's
// attempts are used up.
func (s *Sequencer) probe(ctx context.Context, logger *slog.Logger, step Step, attempts *int, limit int) (bool, error) {
	cmd := session.Command{
		Text:       step.probe(),
		Expect:     match.AT(),
		Timeout:    step.Timeout,
		Discipline: session.ClearOnSend,
	}
	for *attempts < limit {
		*attempts++
		out, err := s.runner.Run(ctx, cmd)
		if err != nil {
			return false, fmt.Errorf("step %q probe: %w", step.Name, err)
		}
		logger.Debug("Probe", "step", step.Name, "attempt", *attempts, "outcome", out.String())
		if out.Succeeded() {
			s.runner.Clear()
			return *attempts < limit, nil
		}
		if err := s.wait(ctx, step.Interval); err != nil {
			return false, fmt.Errorf("step %q probe: %w", step.Name, err)
		}
	}
	return false, nil
}

// extract reads each field from a fresh snapshot of the receive buffer.
// Fields of a sentence with a bad checksum are recorded as errors.
func (s *Sequencer) extract(step Step, res *StepResult) {
	verified := make(map[string]error)
	for _, f := range step.Fields {
		snapshot := s.runner.Snapshot()
		var err error
		if f.Checksum {
			var ok bool
			if err, ok = verified[f.Tag]; !ok {
				err = nmea.VerifyChecksum(snapshot, []byte(f.Tag))
				verified[f.Tag] = err
			}
		}

		var value []byte
		if err == nil {
			value, err = nmea.Extract(snapshot, []byte(f.Tag), f.Index, f.maxFields())
		}
		if err != nil {
			if res.FieldErrors == nil {
				res.FieldErrors = make(map[string]error)
			}
			res.FieldErrors[f.Name] = err
			continue
		}
		if res.Fields == nil {
			res.Fields = make(map[string]string)
		}
		res.Fields[f.Name] = string(value)
	}
}

func (s *Sequencer) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.clock.After(d):
		return nil
	}
}
