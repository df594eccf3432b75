package serialport

import (
	"fmt"
	"io"
	"time"

	"github.com/tarm/serial"
)

const (
	// DefaultBaud is the fixed rate the test stand controller listens at.
	DefaultBaud = 115200

	// defaultReadTimeout keeps port reads short so the protocol poll loop
	// can check its own deadline between reads.
	defaultReadTimeout = 100 * time.Millisecond
)

// greeting is written once during a connect probe. The controller ignores
// it; a successful write proves the port opens and accepts data.
const greeting = "Hello! First time meeting you! I'm UAV's Teststand2 Buddy!"

// Dialer opens the controller serial port. Connections are not kept alive:
// a port is opened immediately before a command exchange and closed right
// after it.
type Dialer struct {
	Baud        int
	ReadTimeout time.Duration
}

// NewDialer creates a Dialer with the fixed stand baud rate.
func NewDialer(baud int) *Dialer {
	if baud <= 0 {
		baud = DefaultBaud
	}
	return &Dialer{
		Baud:        baud,
		ReadTimeout: defaultReadTimeout,
	}
}

// Open opens the named port for one command exchange.
func (d *Dialer) Open(name string) (io.ReadWriteCloser, error) {
	config := &serial.Config{
		Name:        name,
		Baud:        d.Baud,
		Parity:      serial.ParityNone,
		Size:        8,
		StopBits:    serial.Stop1,
		ReadTimeout: d.ReadTimeout,
	}

	sp, err := serial.OpenPort(config)
	if err != nil {
		return nil, fmt.Errorf("opening port %s: %w", name, err)
	}
	return sp, nil
}

// Probe verifies the named port by opening it, writing a greeting and
// closing it again. Used by the connect action before the session commits
// to the port.
func (d *Dialer) Probe(name string) error {
	sp, err := d.Open(name)
	if err != nil {
		return err
	}
	defer func() { _ = sp.Close() }()

	if _, err = sp.Write([]byte(greeting)); err != nil {
		return fmt.Errorf("probing port %s: %w", name, err)
	}
	return nil
}
