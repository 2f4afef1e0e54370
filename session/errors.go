package session

import "errors"

var (
	// ErrNoDialer is returned when a Session is constructed without a Dialer.
	//
	// This indicates a configuration error. A Dialer is required in order to
	// establish a connection to the peripheral.
	ErrNoDialer = errors.New("no dialer configured")

	// ErrNotInitialized is returned when an operation is attempted on a
	// Session that has no transport.
	//
	// This can occur if the Dialer returned no transport or if the Session
	// was not created via New.
	ErrNotInitialized = errors.New("session not initialized")

	// ErrAlreadyClosed is returned when Close is called on a Session that has
	// already been closed, or when a command is sent on a closed Session.
	ErrAlreadyClosed = errors.New("session already closed")

	// ErrBusy is returned when a command is sent while another one is still
	// awaiting its response. A transport carries one outstanding command.
	ErrBusy = errors.New("command already in progress")

	// ErrInvalidConfig is returned by ConfigBuilder.Build for values that
	// cannot work, such as negative durations.
	ErrInvalidConfig = errors.New("invalid session config")
)
