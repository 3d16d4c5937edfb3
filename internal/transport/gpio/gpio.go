// Package gpio bit-bangs the same byte-stream protocol
// internal/dali/rpicodec speaks, directly over two GPIO lines instead of
// through a UART, for a Raspberry-Pi wired straight to the DALI bus the
// way original_source/src/drivers/dali_rpi/dali_rpi.rs's dongle firmware
// would if it had no onboard UART. A software-timed line toggle can't
// match a hardware UART's jitter, so this trades precision for not
// needing dedicated UART pins.
package gpio

import (
	"fmt"
	"sync"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

// Config names the chip and line offsets to bit-bang on.
type Config struct {
	// Chip is the gpiochip device name, e.g. "gpiochip0".
	Chip string
	// TxOffset is the output line carrying bytes to the bus.
	TxOffset int
	// RxOffset is the input line carrying bytes from the bus.
	RxOffset int
	// BaudRate is the software UART bit rate; 9600 matches the dongle
	// firmware's own default.
	BaudRate int
}

const defaultBaud = 9600

// Transport bit-bangs an 8N1 software UART over a GPIO line pair,
// satisfying adapter.Transport (io.Reader, io.Writer, io.Closer).
type Transport struct {
	tx *gpiocdev.Line
	rx *gpiocdev.Line

	bitPeriod time.Duration

	mu      sync.Mutex
	pending []byte
	byteCh  chan byte
}

// Open requests cfg's two lines and starts watching RxOffset for the
// falling edge that marks a start bit.
func Open(cfg Config) (*Transport, error) {
	baud := cfg.BaudRate
	if baud == 0 {
		baud = defaultBaud
	}

	t := &Transport{
		bitPeriod: time.Second / time.Duration(baud),
		byteCh:    make(chan byte, 64),
	}

	tx, err := gpiocdev.RequestLine(cfg.Chip, cfg.TxOffset, gpiocdev.AsOutput(1))
	if err != nil {
		return nil, fmt.Errorf("gpio: request tx line %d: %w", cfg.TxOffset, err)
	}
	t.tx = tx

	rx, err := gpiocdev.RequestLine(cfg.Chip, cfg.RxOffset,
		gpiocdev.AsInput,
		gpiocdev.WithBothEdges,
		gpiocdev.WithEventHandler(t.onEdge))
	if err != nil {
		tx.Close()
		return nil, fmt.Errorf("gpio: request rx line %d: %w", cfg.RxOffset, err)
	}
	t.rx = rx

	return t, nil
}

// onEdge samples a falling edge on rx as a start bit, then polls the line
// at bit-period intervals to recover the following 8 data bits.
func (t *Transport) onEdge(evt gpiocdev.LineEvent) {
	if evt.Type != gpiocdev.LineEventFallingEdge {
		return
	}
	var b byte
	time.Sleep(t.bitPeriod + t.bitPeriod/2) // align to the middle of bit 0
	for i := 0; i < 8; i++ {
		v, err := t.rx.Value()
		if err != nil {
			return
		}
		if v != 0 {
			b |= 1 << uint(i)
		}
		time.Sleep(t.bitPeriod)
	}
	select {
	case t.byteCh <- b:
	default:
		// Receiver backlog full; drop rather than block the edge handler.
	}
}

// Read implements io.Reader, blocking until at least one byte has been
// decoded off the line.
func (t *Transport) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	b, ok := <-t.byteCh
	if !ok {
		return 0, fmt.Errorf("gpio: transport closed")
	}
	p[0] = b
	n := 1
	for n < len(p) {
		select {
		case b := <-t.byteCh:
			p[n] = b
			n++
		default:
			return n, nil
		}
	}
	return n, nil
}

// Write implements io.Writer, bit-banging each byte as a start bit, 8
// data bits LSB first, and a stop bit.
func (t *Transport) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, b := range p {
		if err := t.writeByte(b); err != nil {
			return 0, err
		}
	}
	return len(p), nil
}

func (t *Transport) writeByte(b byte) error {
	if err := t.tx.SetValue(0); err != nil { // start bit
		return err
	}
	time.Sleep(t.bitPeriod)
	for i := 0; i < 8; i++ {
		v := 0
		if b&(1<<uint(i)) != 0 {
			v = 1
		}
		if err := t.tx.SetValue(v); err != nil {
			return err
		}
		time.Sleep(t.bitPeriod)
	}
	if err := t.tx.SetValue(1); err != nil { // stop bit, line idles high
		return err
	}
	time.Sleep(t.bitPeriod)
	return nil
}

// Close implements io.Closer.
func (t *Transport) Close() error {
	rxErr := t.rx.Close()
	txErr := t.tx.Close()
	if rxErr != nil {
		return rxErr
	}
	return txErr
}
