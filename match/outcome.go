// Package match recognizes command terminators in a receive buffer and
// classifies the result of a command attempt.
package match

import (
	"errors"
	"fmt"
)

var (
	// ErrTimeout is reported when no terminal marker arrived within the
	// command's timeout budget.
	ErrTimeout = errors.New("response timeout")

	// ErrProtocol is matched by every *ProtocolError.
	ErrProtocol = errors.New("device reported failure")

	// ErrTransport is matched by every transport failure outcome.
	ErrTransport = errors.New("transport failure")
)

// Kind is the class of a command outcome.
type Kind int

const (
	KindNone Kind = iota
	KindOK
	KindProtocolError
	KindTimeout
	KindTransportError
)

func (k Kind) String() string {
	switch k {
	case KindOK:
		return "ok"
	case KindProtocolError:
		return "protocol_error"
	case KindTimeout:
		return "timeout"
	case KindTransportError:
		return "transport_error"
	default:
		return "none"
	}
}

// Failure classes reported by devices. The reason of a protocol error is
// one of these, or any caller-defined string.
const (
	ReasonError            = "error"
	ReasonSendFail         = "send_fail"
	ReasonCME              = "cme_error"
	ReasonCMS              = "cms_error"
	ReasonNoCarrier        = "no_carrier"
	ReasonPeerDisconnected = "peer_disconnected"
	ReasonNoPeers          = "no_peers"
)

// Outcome is the classified result of one command attempt.
type Outcome struct {
	Kind Kind
	// Reason names the failure class of a protocol error.
	Reason string
	// Cause is the I/O error of a transport failure.
	Cause error
}

func OK() Outcome { return Outcome{Kind: KindOK} }

func Failure(reason string) Outcome { return Outcome{Kind: KindProtocolError, Reason: reason} }

func Timeout() Outcome { return Outcome{Kind: KindTimeout} }

func TransportFailure(cause error) Outcome {
	return Outcome{Kind: KindTransportError, Cause: cause}
}

// Succeeded reports whether the success marker was found.
func (o Outcome) Succeeded() bool { return o.Kind == KindOK }

// Terminal reports whether the outcome ends a command attempt.
func (o Outcome) Terminal() bool { return o.Kind != KindNone }

func (o Outcome) String() string {
	switch o.Kind {
	case KindProtocolError:
		return fmt.Sprintf("%s(%s)", o.Kind, o.Reason)
	case KindTransportError:
		return fmt.Sprintf("%s(%v)", o.Kind, o.Cause)
	default:
		return o.Kind.String()
	}
}

// Err converts the outcome into an error, nil for success.
func (o Outcome) Err() error {
	switch o.Kind {
	case KindOK:
		return nil
	case KindProtocolError:
		return &ProtocolError{Reason: o.Reason}
	case KindTimeout:
		return ErrTimeout
	case KindTransportError:
		if o.Cause == nil {
			return ErrTransport
		}
		return fmt.Errorf("%w: %w", ErrTransport, o.Cause)
	default:
		return errors.New("no outcome")
	}
}

// ProtocolError is a failure reported by the device itself.
type ProtocolError struct {
	Reason string
}

func (e *ProtocolError) Error() string {
	return "device reported failure: " + e.Reason
}

func (e *ProtocolError) Is(target error) bool {
	return target == ErrProtocol
}
