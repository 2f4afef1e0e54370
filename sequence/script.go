package sequence

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"i4.energy/across/atlink/at"
	"i4.energy/across/atlink/match"
	"i4.energy/across/atlink/session"
)

// scriptFile is the TOML layout of a script:
//
//	name = "modem-check"
//	terminator = "cr"
//
//	[[steps]]
//	name = "probe"
//	command = "AT"
//	timeout = "1s"
//	on_timeout = "poll"
//	attempts = 10
//	interval = "1s"
//	halt = true
//
//	[[steps]]
//	name = "fix"
//	sentence = "$GNGGA"
//	discipline = "accumulate"
//	gga = "$GNGGA"
type scriptFile struct {
	Name       string     `toml:"name"`
	Terminator string     `toml:"terminator"`
	Steps      []stepFile `toml:"steps"`
}

type stepFile struct {
	Name    string `toml:"name"`
	Command string `toml:"command"`
	// Expect is the success marker; Failures are the failure markers.
	// Without either the step expects a plain AT final result.
	Expect   string   `toml:"expect"`
	Failures []string `toml:"failures"`
	// Sentence waits for a complete line starting with the given tag.
	Sentence   string        `toml:"sentence"`
	Timeout    time.Duration `toml:"timeout"`
	OnTimeout  string        `toml:"on_timeout"`
	Attempts   int           `toml:"attempts"`
	Interval   time.Duration `toml:"interval"`
	Probe      string        `toml:"probe"`
	Halt       bool          `toml:"halt"`
	Optional   bool          `toml:"optional"`
	Discipline string        `toml:"discipline"`
	// GGA adds every GGA field of the sentence with this tag.
	GGA    string      `toml:"gga"`
	Fields []fieldFile `toml:"fields"`
}

type fieldFile struct {
	Name      string `toml:"name"`
	Tag       string `toml:"tag"`
	Index     int    `toml:"index"`
	MaxFields int    `toml:"max_fields"`
	Checksum  bool   `toml:"checksum"`
}

// LoadScript reads and parses the TOML script at path.
func LoadScript(path string) (Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Script{}, fmt.Errorf("read script: %w", err)
	}
	return ParseScript(string(data))
}

// ParseScript parses a TOML script. Unknown keys are rejected.
func ParseScript(data string) (Script, error) {
	var f scriptFile
	md, err := toml.Decode(data, &f)
	if err != nil {
		return Script{}, fmt.Errorf("%w: %w", ErrInvalidScript, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Script{}, fmt.Errorf("%w: unknown keys %s", ErrInvalidScript, strings.Join(keys, ", "))
	}

	term, err := parseTerminator(f.Terminator)
	if err != nil {
		return Script{}, err
	}
	script := Script{Name: f.Name, Terminator: term}
	if script.Name == "" {
		script.Name = "script"
	}

	for _, sf := range f.Steps {
		step, err := sf.step()
		if err != nil {
			return Script{}, err
		}
		script.Steps = append(script.Steps, step)
	}
	if err := script.validate(); err != nil {
		return Script{}, err
	}
	return script, nil
}

func parseTerminator(name string) (string, error) {
	switch strings.ToLower(name) {
	case "", "cr":
		return at.CR, nil
	case "crlf":
		return at.CRLF, nil
	default:
		return "", fmt.Errorf("%w: unknown terminator %q", ErrInvalidScript, name)
	}
}

func (sf stepFile) step() (Step, error) {
	policy, err := ParseTimeoutPolicy(sf.OnTimeout)
	if err != nil {
		return Step{}, fmt.Errorf("%w: step %q: %w", ErrInvalidScript, sf.Name, err)
	}
	discipline, err := session.ParseDiscipline(sf.Discipline)
	if err != nil {
		return Step{}, fmt.Errorf("%w: step %q: %w", ErrInvalidScript, sf.Name, err)
	}
	expect, err := sf.expect()
	if err != nil {
		return Step{}, err
	}

	step := Step{
		Name:       sf.Name,
		Command:    sf.Command,
		Expect:     expect,
		Timeout:    sf.Timeout,
		Discipline: discipline,
		OnTimeout:  policy,
		Attempts:   sf.Attempts,
		Interval:   sf.Interval,
		Probe:      sf.Probe,
		Halt:       sf.Halt,
		Optional:   sf.Optional,
	}
	if sf.GGA != "" {
		step.Fields = append(step.Fields, GGAFields(sf.GGA)...)
	}
	for _, ff := range sf.Fields {
		step.Fields = append(step.Fields, Field{
			Name:      ff.Name,
			Tag:       ff.Tag,
			Index:     ff.Index,
			MaxFields: ff.MaxFields,
			Checksum:  ff.Checksum,
		})
	}
	return step, nil
}

func (sf stepFile) expect() (match.Spec, error) {
	if sf.Sentence != "" {
		if sf.Expect != "" {
			return match.Spec{}, fmt.Errorf("%w: step %q sets both expect and sentence", ErrInvalidScript, sf.Name)
		}
		return match.Sentence(sf.Sentence).With(failures(sf.Failures)...), nil
	}
	if sf.Expect == "" {
		if len(sf.Failures) == 0 {
			return match.Spec{}, nil
		}
		return match.Expect(at.OK, failures(sf.Failures)...), nil
	}
	return match.Expect(sf.Expect, failures(sf.Failures)...), nil
}

func failures(patterns []string) []match.Rule {
	rules := make([]match.Rule, 0, len(patterns))
	for _, p := range patterns {
		rules = append(rules, match.Fail(p, match.ReasonFor(p)))
	}
	return rules
}
