// Package session drives one command at a time over a byte-stream
// transport: it writes the command, accumulates the answer in a bounded
// buffer and classifies the result once a terminal marker shows up or the
// timeout budget runs out.
//
// A Session is single-owner and is not safe for concurrent use; the
// transport carries at most one outstanding command.
package session

import (
	"context"
	"fmt"
	"io"
	"time"

	"i4.energy/across/atlink/frame"
	"i4.energy/across/atlink/match"
)

// State is the position of a Session in its command cycle.
type State int

const (
	StateIdle State = iota
	StateSending
	StateAwaiting
	StateMatched
	StateTimedOut
	StateTransportFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSending:
		return "sending"
	case StateAwaiting:
		return "awaiting"
	case StateMatched:
		return "matched"
	case StateTimedOut:
		return "timed_out"
	case StateTransportFailed:
		return "transport_failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal reports whether the state ends a command attempt.
func (s State) Terminal() bool {
	return s == StateMatched || s == StateTimedOut || s == StateTransportFailed
}

// Command describes one command attempt. Zero fields fall back to the
// session configuration.
type Command struct {
	// Text is written followed by the configured terminator. An empty Text
	// writes nothing and only listens, as for GNSS sentence streams.
	Text         string
	Expect       match.Spec
	Timeout      time.Duration
	PollInterval time.Duration
	Discipline   Discipline
}

// Stats describes the traffic of the current or last command.
type Stats struct {
	Polls     int
	IdlePolls int
	BytesRead int
	Evicted   int
	Elapsed   time.Duration
}

// Session represents the command/response engine bound to one transport.
type Session struct {
	// transport provides the physical connection to the peripheral
	transport Transport
	// config contains the session configuration with defaults applied
	config Config
	// buf accumulates inbound bytes between polls
	buf *frame.Buffer
	// scratch receives a single transport read
	scratch []byte
	closed  bool

	state   State
	cmd     Command
	started time.Time
	outcome match.Outcome
	stats   Stats
}

// New dials the transport described by config and returns an idle Session.
func New(ctx context.Context, config Config) (*Session, error) {
	if config.Dialer == nil {
		return nil, ErrNoDialer
	}
	transport, err := config.Dialer.Dial(ctx)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	s, err := NewWithTransport(transport, config)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// NewWithTransport returns an idle Session on an already established
// transport. config.Dialer is ignored.
func NewWithTransport(transport Transport, config Config) (*Session, error) {
	if transport == nil {
		return nil, ErrNotInitialized
	}
	config.setDefaults()
	return &Session{
		transport: transport,
		config:    config,
		buf:       frame.New(config.BufferSize),
		scratch:   make([]byte, config.ChunkSize),
	}, nil
}

// Send writes cmd and arms the response timer. It fails with ErrBusy while
// a previous command is still awaiting its response. A failed write leaves
// the session in StateTransportFailed and returns the write error.
func (s *Session) Send(cmd Command) error {
	if s.closed {
		return ErrAlreadyClosed
	}
	if s.transport == nil {
		return ErrNotInitialized
	}
	if s.state == StateAwaiting {
		return ErrBusy
	}

	s.cmd = s.resolve(cmd)
	s.state = StateSending
	s.outcome = match.Outcome{}
	s.stats = Stats{}
	s.started = time.Time{}

	if s.cmd.Text != "" {
		wire := s.cmd.Text + s.config.Terminator
		n, err := s.transport.Write([]byte(wire))
		if err == nil && n < len(wire) {
			err = io.ErrShortWrite
		}
		if err != nil {
			err = fmt.Errorf("write command %q: %w", s.cmd.Text, err)
			s.finish(StateTransportFailed, match.TransportFailure(err))
			return err
		}
	}

	if s.cmd.Discipline == ClearOnSend {
		s.buf.Reset()
	}
	s.started = s.config.Clock.Now()
	s.state = StateAwaiting
	return nil
}

// PollOnce performs one read-append-scan cycle and returns the resulting
// state. Outside StateAwaiting it does nothing.
func (s *Session) PollOnce(now time.Time) State {
	if s.state != StateAwaiting {
		return s.state
	}

	s.stats.Polls++
	n, err := s.transport.Read(s.scratch)
	if n > 0 {
		res := s.buf.Append(s.scratch[:n])
		s.stats.BytesRead += res.Added
		s.stats.Evicted += res.Evicted
		if !res.Grew() {
			s.stats.IdlePolls++
		}
	} else {
		s.stats.IdlePolls++
	}
	if err != nil {
		s.finishAt(now, StateTransportFailed, match.TransportFailure(fmt.Errorf("read: %w", err)))
		return s.state
	}

	if out, ok := s.cmd.Expect.Scan(s.buf.Bytes()); ok {
		s.finishAt(now, StateMatched, out)
		return s.state
	}

	if now.Sub(s.started) >= s.cmd.Timeout {
		s.finishAt(now, StateTimedOut, match.Timeout())
	}
	return s.state
}

// Run sends cmd and polls until the command reaches a terminal state.
// Transport failures, device failures and timeouts are reported through
// the returned Outcome; the error is reserved for a closed or busy session
// and for context cancellation, which abandons the command.
func (s *Session) Run(ctx context.Context, cmd Command) (match.Outcome, error) {
	if err := s.Send(cmd); err != nil {
		if s.state == StateTransportFailed {
			return s.outcome, nil
		}
		return match.Outcome{}, err
	}

	clock := s.config.Clock
	for {
		if st := s.PollOnce(clock.Now()); st != StateAwaiting {
			return s.outcome, nil
		}
		select {
		case <-ctx.Done():
			s.state = StateIdle
			return match.Outcome{}, fmt.Errorf("command %q abandoned: %w", s.cmd.Text, ctx.Err())
		case <-clock.After(s.cmd.PollInterval):
		}
	}
}

// State returns the current state.
func (s *Session) State() State { return s.state }

// Outcome returns the outcome of the last finished command.
func (s *Session) Outcome() match.Outcome { return s.outcome }

// Stats returns the traffic counters of the current or last command.
func (s *Session) Stats() Stats { return s.stats }

// Bytes returns a read-only view of the receive buffer, valid until the
// next poll.
func (s *Session) Bytes() []byte { return s.buf.Bytes() }

// Snapshot returns an owned copy of the receive buffer.
func (s *Session) Snapshot() []byte { return s.buf.Snapshot() }

// Clear empties the receive buffer, typically after a response has been
// consumed.
func (s *Session) Clear() { s.buf.Reset() }

// Reset abandons any outstanding command, empties the buffer and returns
// the session to StateIdle.
func (s *Session) Reset() {
	s.buf.Reset()
	s.state = StateIdle
	s.outcome = match.Outcome{}
	s.stats = Stats{}
}

// Close releases the transport. After calling Close(), the session cannot
// be reused.
func (s *Session) Close() error {
	if s.closed {
		return ErrAlreadyClosed
	}
	s.closed = true
	s.state = StateIdle

	if s.transport != nil {
		return s.transport.Close()
	}
	return nil
}

func (s *Session) resolve(cmd Command) Command {
	if cmd.Expect.Empty() {
		cmd.Expect = s.config.Expect
	}
	if cmd.Timeout <= 0 {
		cmd.Timeout = s.config.Timeout
	}
	if cmd.PollInterval <= 0 {
		cmd.PollInterval = s.config.PollInterval
	}
	if cmd.Discipline == DisciplineDefault {
		cmd.Discipline = s.config.Discipline
	}
	return cmd
}

func (s *Session) finish(state State, out match.Outcome) {
	s.finishAt(s.config.Clock.Now(), state, out)
}

func (s *Session) finishAt(now time.Time, state State, out match.Outcome) {
	s.state = state
	s.outcome = out
	if !s.started.IsZero() {
		s.stats.Elapsed = now.Sub(s.started)
	}
}
