// Package looptest opens a pty pair so tests can exercise
// internal/transport/serial against a real device path — term.Open
// insists on a named device node, which an io.Pipe cannot offer — while a
// fake bus responder on the other end plays the part of the DALI dongle.
package looptest

import (
	"fmt"
	"os"

	"github.com/creack/pty"
)

// Pair is a loopback serial device: DevicePath names the pty's slave side,
// which code under test opens exactly as it would a real /dev/ttyUSB0.
// Responder is the master side, read and written by the test itself to
// play the part of the dongle/bus.
type Pair struct {
	DevicePath string
	responder  *os.File
	master     *os.File
}

// Open allocates a new pty pair.
func Open() (*Pair, error) {
	master, slave, err := pty.Open()
	if err != nil {
		return nil, fmt.Errorf("looptest: open pty: %w", err)
	}
	return &Pair{
		DevicePath: slave.Name(),
		responder:  master,
		master:     master,
	}, nil
}

// Read reads bytes the device-under-test wrote.
func (p *Pair) Read(b []byte) (int, error) { return p.responder.Read(b) }

// Write sends bytes to the device-under-test as if from the bus/dongle.
func (p *Pair) Write(b []byte) (int, error) { return p.responder.Write(b) }

// Close releases the pty pair.
func (p *Pair) Close() error { return p.master.Close() }
