package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	tarm "github.com/tarm/serial"
	"go.bug.st/serial"
)

//go:generate mockgen -source=transport.go -destination=mock_transport.go -package=session

// Transport represents an established, bidirectional byte stream to a
// peripheral.
//
// Read must not block for long: returning (0, nil) means no data is
// available right now and is distinct from an error. Serial transports get
// this behaviour from a short read timeout. Typical implementations include
// serial ports, TCP connections to emulators, or in-memory fakes used for
// testing.
type Transport interface {
	io.ReadWriteCloser
}

// Dialer opens a Transport to a peripheral.
//
// Dialer abstracts how the connection is created (for example, via a
// serial port, TCP-based emulator, or test double) and is intended to be used
// during session construction only. Once a Transport is obtained, the Dialer
// is no longer needed.
type Dialer interface {
	// Dial is responsible for creating and returning a connected Transport. It may
	// perform blocking operations and should respect cancellation and deadlines
	// provided by the context. Dial returns an error if the transport cannot be
	// established.
	Dial(ctx context.Context) (Transport, error)
}

// Driver selects the serial port implementation used by SerialDialer.
type Driver int

const (
	// DriverBugst opens the port with go.bug.st/serial.
	DriverBugst Driver = iota
	// DriverTarm opens the port with github.com/tarm/serial.
	DriverTarm
)

// ParseDriver maps a configuration name to a Driver. The empty string
// selects DriverBugst.
func ParseDriver(name string) (Driver, error) {
	switch name {
	case "", "bugst":
		return DriverBugst, nil
	case "tarm":
		return DriverTarm, nil
	default:
		return 0, fmt.Errorf("unknown serial driver %q", name)
	}
}

func (d Driver) String() string {
	if d == DriverTarm {
		return "tarm"
	}
	return "bugst"
}

const (
	defaultBaudRate        = 115200
	defaultReadTimeout     = 10 * time.Millisecond
	errPortNameRequiredMsg = "session: serial port name is required"
	errContextNilMsg       = "session: context is nil"
)

// SerialDialer opens a peripheral attached to a local serial port. The
// driver is chosen once, when Dial runs.
type SerialDialer struct {
	PortName string
	BaudRate int
	// Mode overrides BaudRate and the 8N1 defaults of the bugst driver.
	Mode *serial.Mode
	// ReadTimeout bounds each Read so the port behaves as non-blocking.
	ReadTimeout time.Duration
	Driver      Driver
}

// Dial implements Dialer.
func (d SerialDialer) Dial(ctx context.Context) (Transport, error) {
	if ctx == nil {
		return nil, errors.New(errContextNilMsg)
	}
	if d.PortName == "" {
		return nil, errors.New(errPortNameRequiredMsg)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	readTimeout := d.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = defaultReadTimeout
	}

	switch d.Driver {
	case DriverTarm:
		return d.dialTarm(readTimeout)
	default:
		return d.dialBugst(readTimeout)
	}
}

func (d SerialDialer) dialBugst(readTimeout time.Duration) (Transport, error) {
	mode := d.Mode
	if mode == nil {
		mode = &serial.Mode{
			BaudRate: d.baudRate(),
			Parity:   serial.NoParity,
			DataBits: 8,
			StopBits: serial.OneStopBit,
		}
	}
	port, err := serial.Open(d.PortName, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", d.PortName, err)
	}
	if err := port.SetReadTimeout(readTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("set read timeout on %s: %w", d.PortName, err)
	}
	return port, nil
}

func (d SerialDialer) dialTarm(readTimeout time.Duration) (Transport, error) {
	port, err := tarm.OpenPort(&tarm.Config{
		Name:        d.PortName,
		Baud:        d.baudRate(),
		ReadTimeout: readTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", d.PortName, err)
	}
	return tarmPort{port}, nil
}

func (d SerialDialer) baudRate() int {
	if d.BaudRate > 0 {
		return d.BaudRate
	}
	return defaultBaudRate
}

// tarmPort adapts a tarm port, which reports an expired read timeout as
// io.EOF, to the Transport contract.
type tarmPort struct {
	*tarm.Port
}

func (p tarmPort) Read(b []byte) (int, error) {
	n, err := p.Port.Read(b)
	if errors.Is(err, io.EOF) {
		return n, nil
	}
	return n, err
}
