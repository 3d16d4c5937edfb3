// Package rpicodec implements the fixed 8-byte request/reply wire protocol
// the distilled driver's Raspberry-Pi-Pico dongle speaks, so any
// byte-stream adapter.Transport (serial, GPIO-bit-banged, or a pty
// loopback) can drive a real or simulated dongle through
// internal/dali/adapter without each transport reimplementing framing.
package rpicodec

import (
	"fmt"
	"time"

	"github.com/fluffware/go-dali/internal/dali/flags"
	"github.com/fluffware/go-dali/internal/dali/frame"
)

const packetSize = 8

const (
	resultOK      = 2
	resultAnswer  = 3
	resultTimeout = 10
)

const (
	eventFrame        = 4
	eventFramingError = 6
	eventBusPowerOff  = 7
	eventBusPowerOn   = 8
)

// Codec implements adapter.Codec over the dongle's 8-byte packets:
// [seq, flagsByte, priorityByte, widthByte, data0, data1, data2, data3].
// Replies reuse the same shape with flagsByte replaced by a result code.
type Codec struct{}

// Encode implements adapter.Codec. Frame25 has no slot in this protocol —
// the original dongle firmware rejects it outright, so this does too.
func (Codec) Encode(seq uint8, f frame.Frame, fl flags.Flags) ([]byte, error) {
	if f.BitLength() == 25 {
		return nil, fmt.Errorf("rpicodec: 25-bit frames not supported")
	}
	data := f.Bytes()
	if len(data) > 4 {
		return nil, fmt.Errorf("rpicodec: frame payload too wide (%d bytes)", len(data))
	}

	var flagsByte uint8
	if fl.ExpectReply() {
		flagsByte |= 0b01
	}
	if fl.SendTwice() {
		flagsByte |= 0b10
	}

	packet := make([]byte, packetSize)
	packet[0] = seq
	packet[1] = flagsByte
	packet[2] = uint8(fl.Priority()) | (2 << 3)
	packet[3] = uint8(f.BitLength())
	copy(packet[4:], data)
	return packet, nil
}

// Decode implements adapter.Codec.
func (Codec) Decode(buf []byte) (seq uint8, ev *frame.BusEvent, answer uint8, hasAnswer bool, consumed int, ok bool) {
	if len(buf) < packetSize {
		return 0, nil, 0, false, 0, false
	}
	p := buf[:packetSize]
	seq = p[0]

	if seq == 0 {
		return 0, decodeEvent(p), 0, false, packetSize, true
	}

	switch p[1] {
	case resultAnswer:
		return seq, nil, p[4], true, packetSize, true
	case resultOK, resultTimeout:
		return seq, nil, 0, false, packetSize, true
	default:
		return seq, nil, 0, false, packetSize, true
	}
}

func decodeEvent(p []byte) *frame.BusEvent {
	now := time.Now()
	switch p[1] {
	case eventFrame:
		f, evType, ok := decodeFrame(p)
		if !ok {
			return &frame.BusEvent{Type: frame.EventFramingError, Timestamp: now}
		}
		return &frame.BusEvent{Type: evType, Timestamp: now, Frame: f}
	case eventFramingError:
		return &frame.BusEvent{Type: frame.EventFramingError, Timestamp: now}
	case eventBusPowerOff:
		return &frame.BusEvent{Type: frame.EventBusPowerOff, Timestamp: now}
	case eventBusPowerOn:
		return &frame.BusEvent{Type: frame.EventBusPowerOn, Timestamp: now}
	default:
		return nil
	}
}

func decodeFrame(p []byte) (frame.Frame, frame.EventType, bool) {
	switch p[3] {
	case 8:
		return frame.Frame8{Value: p[4]}, frame.EventFrame8, true
	case 16:
		return frame.Frame16{Addr: p[4], Command: p[5]}, frame.EventFrame16, true
	case 24:
		return frame.Frame24{Addr: p[4], Instance: p[5], Opcode: p[6]}, frame.EventFrame24, true
	default:
		return nil, frame.EventFramingError, false
	}
}
