package session

import (
	"fmt"
	"time"

	"i4.energy/across/atlink/at"
	"i4.energy/across/atlink/frame"
	"i4.energy/across/atlink/match"
)

// Discipline decides whether sending a command discards what is already
// in the receive buffer.
type Discipline int

const (
	// DisciplineDefault defers to the session configuration.
	DisciplineDefault Discipline = iota
	// ClearOnSend gives every command a fresh response window.
	ClearOnSend
	// Accumulate keeps earlier bytes so a response may span several
	// attempts of the same logical command.
	Accumulate
)

// ParseDiscipline maps a configuration name to a Discipline.
func ParseDiscipline(name string) (Discipline, error) {
	switch name {
	case "":
		return DisciplineDefault, nil
	case "clear", "clear-on-send":
		return ClearOnSend, nil
	case "accumulate":
		return Accumulate, nil
	default:
		return 0, fmt.Errorf("unknown buffer discipline %q", name)
	}
}

func (d Discipline) String() string {
	switch d {
	case ClearOnSend:
		return "clear"
	case Accumulate:
		return "accumulate"
	default:
		return "default"
	}
}

func (c *Config) validate() error {
	if c.Dialer == nil {
		return ErrNoDialer
	}
	if c.Timeout < 0 || c.PollInterval < 0 {
		return fmt.Errorf("%w: negative duration", ErrInvalidConfig)
	}
	if c.BufferSize < 0 || c.ChunkSize < 0 {
		return fmt.Errorf("%w: negative size", ErrInvalidConfig)
	}
	return nil
}

type Config struct {
	Dialer Dialer
	// Terminator is appended to every command written.
	Terminator string
	// Timeout is the default response budget of a command.
	Timeout time.Duration
	// PollInterval is the delay between two polls in Run.
	PollInterval time.Duration
	// BufferSize is the capacity of the receive buffer.
	BufferSize int
	// ChunkSize is the size of a single transport read.
	ChunkSize  int
	Discipline Discipline
	// Expect is the default response spec of a command.
	Expect match.Spec
	Clock  Clock
}

func (c *Config) setDefaults() {
	if c.Terminator == "" {
		c.Terminator = at.CR
	}
	if c.Timeout == 0 {
		c.Timeout = 5 * time.Second
	}
	if c.PollInterval == 0 {
		c.PollInterval = 10 * time.Millisecond
	}
	if c.BufferSize == 0 {
		c.BufferSize = frame.DefaultCapacity
	}
	if c.ChunkSize == 0 {
		c.ChunkSize = 256
	}
	if c.Discipline == DisciplineDefault {
		c.Discipline = ClearOnSend
	}
	if c.Expect.Empty() {
		c.Expect = match.AT()
	}
	if c.Clock == nil {
		c.Clock = SystemClock{}
	}
}

// ConfigBuilder assembles a Config step by step.
type ConfigBuilder struct {
	config Config
}

func NewConfigBuilder() *ConfigBuilder {
	return &ConfigBuilder{}
}

func (b *ConfigBuilder) WithDialer(d Dialer) *ConfigBuilder {
	b.config.Dialer = d
	return b
}

func (b *ConfigBuilder) WithTerminator(term string) *ConfigBuilder {
	b.config.Terminator = term
	return b
}

func (b *ConfigBuilder) WithTimeout(d time.Duration) *ConfigBuilder {
	b.config.Timeout = d
	return b
}

func (b *ConfigBuilder) WithPollInterval(d time.Duration) *ConfigBuilder {
	b.config.PollInterval = d
	return b
}

func (b *ConfigBuilder) WithBufferSize(n int) *ConfigBuilder {
	b.config.BufferSize = n
	return b
}

func (b *ConfigBuilder) WithChunkSize(n int) *ConfigBuilder {
	b.config.ChunkSize = n
	return b
}

func (b *ConfigBuilder) WithDiscipline(d Discipline) *ConfigBuilder {
	b.config.Discipline = d
	return b
}

func (b *ConfigBuilder) WithExpect(spec match.Spec) *ConfigBuilder {
	b.config.Expect = spec
	return b
}

func (b *ConfigBuilder) WithClock(c Clock) *ConfigBuilder {
	b.config.Clock = c
	return b
}

// Build validates the configuration and fills in defaults.
func (b *ConfigBuilder) Build() (Config, error) {
	config := b.config
	if err := config.validate(); err != nil {
		return Config{}, err
	}
	config.setDefaults()
	return config, nil
}
