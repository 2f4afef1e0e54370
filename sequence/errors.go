package sequence

import "errors"

var (
	// ErrHalted is returned once a step marked Halt has failed. The
	// sequencer refuses to run anything until Reset is called; this is the
	// fail-fast state used for hardware that does not come up.
	ErrHalted = errors.New("sequence halted")

	// ErrStepFailed is returned when a required step did not succeed.
	ErrStepFailed = errors.New("step failed")

	// ErrInvalidScript is returned for scripts that cannot be run.
	ErrInvalidScript = errors.New("invalid script")

	// ErrUnknownProfile is returned by Profile for names without a
	// built-in script.
	ErrUnknownProfile = errors.New("unknown profile")
)
