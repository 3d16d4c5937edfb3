// Package serial opens a real serial-port connection to a DALI USB/RS-232
// dongle, implementing adapter.Transport over github.com/pkg/term the same
// way the teacher's serial_port.go wraps the same library for a TNC.
package serial

import (
	"fmt"

	"github.com/pkg/term"
)

// supportedBauds mirrors serial_port_open's switch over recognised bit
// rates; anything else is rejected rather than silently substituted.
var supportedBauds = map[int]bool{
	1200: true, 2400: true, 4800: true, 9600: true,
	19200: true, 38400: true, 57600: true, 115200: true,
}

// Transport is a *term.Term opened in raw mode, satisfying
// adapter.Transport (io.Reader, io.Writer, io.Closer).
type Transport struct {
	fd *term.Term
}

// Open opens device (e.g. "/dev/ttyUSB0") in raw mode and sets baud, a
// fixed bit rate a DALI dongle expects rather than negotiated. baud == 0
// leaves the port's current speed alone, matching serial_port_open.
func Open(device string, baud int) (*Transport, error) {
	fd, err := term.Open(device, term.RawMode)
	if err != nil {
		return nil, fmt.Errorf("serial: open %s: %w", device, err)
	}

	switch {
	case baud == 0:
		// Leave it alone.
	case supportedBauds[baud]:
		if err := fd.SetSpeed(baud); err != nil {
			fd.Close()
			return nil, fmt.Errorf("serial: set speed %d on %s: %w", baud, device, err)
		}
	default:
		fd.Close()
		return nil, fmt.Errorf("serial: unsupported baud rate %d", baud)
	}

	return &Transport{fd: fd}, nil
}

// Read implements io.Reader.
func (t *Transport) Read(p []byte) (int, error) { return t.fd.Read(p) }

// Write implements io.Writer. Like serial_port_write, a short write without
// an accompanying error is turned into an explicit error rather than
// silently reporting a partial count to the caller.
func (t *Transport) Write(p []byte) (int, error) {
	n, err := t.fd.Write(p)
	if err == nil && n != len(p) {
		return n, fmt.Errorf("serial: short write %d of %d bytes", n, len(p))
	}
	return n, err
}

// Close implements io.Closer.
func (t *Transport) Close() error { return t.fd.Close() }
