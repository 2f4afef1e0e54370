package sequence

import (
	"fmt"
	"slices"
	"time"

	"i4.energy/across/atlink/at"
	"i4.energy/across/atlink/match"
	"i4.energy/across/atlink/session"
)

const (
	// registered answers of AT+CREG?: home network and roaming
	regHome    = "+CREG: 0,1"
	regRoaming = "+CREG: 0,5"
	simReady   = "+CPIN: READY"
)

var profiles = map[string]func() Script{
	"lte-apj":     LTEAPJ,
	"anynet-3gea": AnyNet3GEA,
	"ryb080i":     RYB080I,
	"gnss-12":     GNSS12,
	"gnss-rtk5":   GNSSRTK5,
}

// Profile returns the built-in script registered under name.
func Profile(name string) (Script, error) {
	p, ok := profiles[name]
	if !ok {
		return Script{}, fmt.Errorf("%w: %q", ErrUnknownProfile, name)
	}
	return p(), nil
}

// Profiles lists the names of the built-in scripts.
func Profiles() []string {
	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func registration() match.Spec {
	return match.Expect(regHome,
		match.Rule{Pattern: []byte(regRoaming), Result: match.OK()},
		match.Fail(at.ERROR, match.ReasonError),
		match.Fail(at.CmeError, match.ReasonCME),
	)
}

// probeStep waits for the modem to answer AT after power-up. A modem that
// never answers halts the sequence.
func probeStep() Step {
	return Step{
		Name:      "probe",
		Command:   at.CmdAt,
		Timeout:   time.Second,
		OnTimeout: TimeoutPoll,
		Attempts:  10,
		Interval:  time.Second,
		Halt:      true,
	}
}

// LTEAPJ brings up the LTE-APJ cellular board: CR terminated AT commands.
func LTEAPJ() Script {
	return Script{
		Name:       "lte-apj",
		Terminator: at.CR,
		Steps: []Step{
			probeStep(),
			{Name: "echo-off", Command: at.CmdEchoOff, Timeout: time.Second},
			{Name: "verbose-errors", Command: at.CmdVerboseErrs, Timeout: time.Second, Optional: true},
			{
				Name:      "full-functionality",
				Command:   at.CmdFullFunc,
				Timeout:   10 * time.Second,
				OnTimeout: TimeoutRetry,
				Attempts:  3,
				Interval:  time.Second,
			},
			{
				Name:      "registration",
				Command:   at.CmdRegStatus,
				Expect:    registration(),
				Timeout:   2 * time.Second,
				OnTimeout: TimeoutPoll,
				Attempts:  30,
				Interval:  2 * time.Second,
			},
			{Name: "signal", Command: at.CmdSignal, Timeout: time.Second, Optional: true},
		},
	}
}

// AnyNet3GEA brings up the AnyNet 3G-EA cellular board.
func AnyNet3GEA() Script {
	return Script{
		Name:       "anynet-3gea",
		Terminator: at.CR,
		Steps: []Step{
			probeStep(),
			{Name: "echo-off", Command: at.CmdEchoOff, Timeout: time.Second},
			{Name: "info", Command: at.CmdInfo, Timeout: time.Second, Optional: true},
			{
				Name:    "sim",
				Command: at.CmdSimStatus,
				Expect: match.Expect(simReady,
					match.Fail(at.ERROR, match.ReasonError),
					match.Fail(at.CmeError, match.ReasonCME),
				),
				Timeout: 5 * time.Second,
				Halt:    true,
			},
			{
				Name:      "registration",
				Command:   at.CmdRegStatus,
				Expect:    registration(),
				Timeout:   2 * time.Second,
				OnTimeout: TimeoutPoll,
				Attempts:  30,
				Interval:  2 * time.Second,
			},
			{Name: "operator", Command: at.CmdOperator, Timeout: 5 * time.Second, Optional: true},
			{Name: "signal", Command: at.CmdSignal, Timeout: time.Second, Optional: true},
		},
	}
}

// RYB080I waits for a peer on the RYB080I Bluetooth module. The module
// reports link changes unsolicited, so the link step only listens.
func RYB080I() Script {
	return Script{
		Name:       "ryb080i",
		Terminator: at.CRLF,
		Steps: []Step{
			{Name: "probe", Command: at.CmdAt, Timeout: time.Second, Optional: true},
			{
				Name:       "link",
				Expect:     match.PeerLink(),
				Timeout:    5 * time.Second,
				Discipline: session.Accumulate,
				OnTimeout:  TimeoutPoll,
				Attempts:   12,
			},
		},
	}
}

// GNSS12 reads one fix from a multi-constellation receiver.
func GNSS12() Script {
	return gnss("gnss-12", at.TagGNGGA)
}

// GNSSRTK5 reads one fix from the RTK receiver, which may talk either
// $GPGGA or $GNGGA depending on its constellation setup.
func GNSSRTK5() Script {
	return gnss("gnss-rtk5", at.TagGGA)
}

func gnss(name, tag string) Script {
	return Script{
		Name:       name,
		Terminator: at.CRLF,
		Steps: []Step{
			{
				Name:       "fix",
				Expect:     match.Sentence(tag),
				Timeout:    2 * time.Second,
				Discipline: session.Accumulate,
				OnTimeout:  TimeoutPoll,
				Attempts:   5,
				Fields:     GGAFields(tag),
			},
		},
	}
}
