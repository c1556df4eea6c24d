package modem

//go:generate go tool mockgen -destination=mock_transport.go -package=modem . Transport,Dialer

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.bug.st/serial"
)

// Transport represents an established, bidirectional byte stream to the
// NB-IoT modem.
//
// A Transport is assumed to be already connected and ready for use. Typical
// implementations are serial ports, a WebSocket serial bridge, or in-memory
// fakes used for testing.
type Transport interface {
	io.ReadWriteCloser
}

// Dialer opens a Transport to the modem.
//
// Dialer abstracts how the modem connection is created and is intended to be
// used during modem construction only. Once a Transport is obtained, the
// Dialer is no longer needed.
type Dialer interface {
	// Dial is responsible for creating and returning a connected Transport. It
	// may perform blocking operations and should respect cancellation and
	// deadlines provided by the context.
	Dial(ctx context.Context) (Transport, error)
}

// DefaultMode is the line setting of the BC66 UART: 115200 baud, 8N1.
var DefaultMode = serial.Mode{
	BaudRate: 115200,
	DataBits: 8,
	Parity:   serial.NoParity,
	StopBits: serial.OneStopBit,
}

// SerialDialer opens the modem over a local serial port.
type SerialDialer struct {
	PortName string
	// Mode defaults to DefaultMode when nil.
	Mode *serial.Mode
}

func (d SerialDialer) Dial(ctx context.Context) (Transport, error) {
	if ctx == nil {
		return nil, errors.New("watchible: context is nil")
	}
	if d.PortName == "" {
		return nil, errors.New("watchible: serial port name is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mode := d.Mode
	if mode == nil {
		m := DefaultMode
		mode = &m
	}

	port, err := serial.Open(d.PortName, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", d.PortName, err)
	}
	// No hardware flow control on the modem UART.
	if err := port.SetRTS(false); err != nil {
		port.Close()
		return nil, fmt.Errorf("disable RTS on %s: %w", d.PortName, err)
	}
	return port, nil
}
