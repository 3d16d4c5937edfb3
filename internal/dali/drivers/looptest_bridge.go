package drivers

import (
	"context"
	"io"

	"github.com/fluffware/go-dali/internal/dali/driver"
	"github.com/fluffware/go-dali/internal/dali/flags"
	"github.com/fluffware/go-dali/internal/dali/frame"
	"github.com/fluffware/go-dali/internal/dali/simulator"
)

// Result codes from the dongle wire protocol rpicodec.Codec decodes;
// duplicated here (rather than exported from rpicodec) since this is the
// dongle-firmware side of the protocol, not the host side rpicodec
// speaks for a real adapter.
const (
	dongleResultOK      = 2
	dongleResultAnswer  = 3
	dongleResultTimeout = 10
)

// runFakeDongle reads request packets off rw (the looptest pty's master
// side) and answers them from bus, playing the part of the physical
// dongle firmware a real serial/gpio transport would talk to.
func runFakeDongle(ctx context.Context, rw io.ReadWriter, bus *simulator.Bus) {
	consumer := bus.Connect()
	defer consumer.Close()

	var buf []byte
	chunk := make([]byte, 64)
	for {
		n, err := rw.Read(chunk)
		if err != nil {
			return
		}
		buf = append(buf, chunk[:n]...)

		for len(buf) >= 8 {
			packet := buf[:8]
			buf = buf[8:]

			seq, f, fl, ok := decodeRequestPacket(packet)
			if !ok {
				continue
			}
			out := consumer.SendFrame(ctx, f, fl)
			reply, send := encodeReplyPacket(seq, out)
			if !send {
				continue
			}
			if _, err := rw.Write(reply); err != nil {
				return
			}
		}

		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}

// decodeRequestPacket parses rpicodec.Codec's 8-byte request shape:
// [seq, flagsByte, priorityByte, widthByte, d0, d1, d2, d3].
func decodeRequestPacket(packet []byte) (seq uint8, f frame.Frame, fl flags.Flags, ok bool) {
	if len(packet) < 8 {
		return 0, nil, flags.Flags{}, false
	}
	seq = packet[0]
	flagsByte := packet[1]
	priority := flags.Priority(packet[2] & 0x07)
	if priority == 0 {
		priority = flags.Priority5
	}
	fl = flags.New().
		WithPriority(priority).
		WithExpectReply(flagsByte&0b01 != 0).
		WithSendTwice(flagsByte&0b10 != 0)

	switch packet[3] {
	case 8:
		f = frame.Frame8{Value: packet[4]}
	case 16:
		f = frame.Frame16{Addr: packet[4], Command: packet[5]}
	case 24:
		f = frame.Frame24{Addr: packet[4], Instance: packet[5], Opcode: packet[6]}
	default:
		return seq, nil, fl, false
	}
	return seq, f, fl, true
}

// encodeReplyPacket mirrors rpicodec.Codec.Decode's reply shape for the
// result outcome has. A collision (MultipleDevices) result has no code in
// the original 3-value scheme (OK/Answer/Timeout) and is dropped, exactly
// as the original driver_thread's unmatched match arm silently ignores it
// and leaves the host to hit its own reply deadline.
func encodeReplyPacket(seq uint8, out driver.SendOutcome) ([]byte, bool) {
	reply := make([]byte, 8)
	reply[0] = seq
	switch {
	case out.MultipleDevices():
		return nil, false
	case out.NoDevice():
		reply[1] = dongleResultTimeout
	default:
		if b, answered := out.Answered(); answered {
			reply[1] = dongleResultAnswer
			reply[4] = b
		} else {
			reply[1] = dongleResultOK
		}
	}
	return reply, true
}
