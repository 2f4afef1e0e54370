package sequence

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"i4.energy/across/atlink/at"
	"i4.energy/across/atlink/match"
	"i4.energy/across/atlink/nmea"
	"i4.energy/across/atlink/session"
)

// TimeoutPolicy decides what a step does when its command times out.
type TimeoutPolicy int

const (
	// TimeoutFinal treats a timeout as the step's result (one-shot commands).
	TimeoutFinal TimeoutPolicy = iota
	// TimeoutPoll issues the step again, up to Attempts times. Used for
	// status probes where no answer yet is not an error.
	TimeoutPoll
	// TimeoutRetry checks liveness with the probe command, up to Attempts
	// times, and re-issues the step once the device answers.
	TimeoutRetry
)

func ParseTimeoutPolicy(name string) (TimeoutPolicy, error) {
	switch name {
	case "", "final":
		return TimeoutFinal, nil
	case "poll":
		return TimeoutPoll, nil
	case "retry":
		return TimeoutRetry, nil
	default:
		return 0, fmt.Errorf("unknown timeout policy %q", name)
	}
}

func (p TimeoutPolicy) String() string {
	switch p {
	case TimeoutPoll:
		return "poll"
	case TimeoutRetry:
		return "retry"
	default:
		return "final"
	}
}

// Field names a positional field to extract from a step's response.
type Field struct {
	Name      string
	Tag       string
	Index     int
	MaxFields int
	// Checksum requires the sentence carrying Tag to end in a valid *hh.
	Checksum bool
}

// Step is one logical command of a script.
type Step struct {
	Name string
	// Command is written with the session terminator. Empty means listen.
	Command    string
	Expect     match.Spec
	Timeout    time.Duration
	Discipline session.Discipline
	OnTimeout  TimeoutPolicy
	// Attempts bounds the retries of TimeoutPoll and TimeoutRetry.
	Attempts int
	// Interval is the pause between two attempts.
	Interval time.Duration
	// Probe is the liveness command of TimeoutRetry, "AT" by default.
	Probe string
	// Halt puts the sequencer into its halted state when the step fails.
	Halt bool
	// Optional steps may fail without stopping the script.
	Optional bool
	Fields   []Field
}

func (st Step) expect() match.Spec {
	if st.Expect.Empty() {
		return match.AT()
	}
	return st.Expect
}

func (st Step) attempts() int {
	if st.Attempts < 1 {
		return 1
	}
	return st.Attempts
}

func (st Step) probe() string {
	if st.Probe == "" {
		return at.CmdAt
	}
	return st.Probe
}

func (st Step) command() session.Command {
	return session.Command{
		Text:       st.Command,
		Expect:     st.expect(),
		Timeout:    st.Timeout,
		Discipline: st.Discipline,
	}
}

func (st Step) validate() error {
	if st.Name == "" {
		return fmt.Errorf("%w: step without a name", ErrInvalidScript)
	}
	if st.Command == "" && st.Expect.Empty() {
		return fmt.Errorf("%w: step %q neither sends nor expects anything", ErrInvalidScript, st.Name)
	}
	if st.Command != "" && strings.TrimSpace(st.Command) == "" {
		return fmt.Errorf("%w: step %q has a blank command", ErrInvalidScript, st.Name)
	}
	if st.Timeout < 0 || st.Interval < 0 || st.Attempts < 0 {
		return fmt.Errorf("%w: step %q has negative limits", ErrInvalidScript, st.Name)
	}
	for _, f := range st.Fields {
		if f.Name == "" || f.Tag == "" {
			return fmt.Errorf("%w: step %q has a field without name or tag", ErrInvalidScript, st.Name)
		}
		if f.Index < 1 || f.Index > f.maxFields() {
			return fmt.Errorf("%w: step %q field %q: %w", ErrInvalidScript, st.Name, f.Name, nmea.ErrInvalidIndex)
		}
	}
	return nil
}

func (f Field) maxFields() int {
	if f.MaxFields > 0 {
		return f.MaxFields
	}
	return nmea.GGAFieldCount
}

// GGAFields returns the extraction list of every GGA field under tag.
func GGAFields(tag string) []Field {
	fields := make([]Field, 0, nmea.GGAFieldCount)
	for name, index := range nmea.FieldNames {
		fields = append(fields, Field{Name: name, Tag: tag, Index: index, MaxFields: nmea.GGAFieldCount, Checksum: true})
	}
	slices.SortFunc(fields, func(a, b Field) int { return a.Index - b.Index })
	return fields
}
