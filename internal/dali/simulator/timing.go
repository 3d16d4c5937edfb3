// Package simulator models a single shared DALI bus with virtual gears
// attached, sufficient to exercise discovery, assignment and device-info
// queries without real hardware.
package simulator

import (
	"time"

	"github.com/fluffware/go-dali/internal/dali/frame"
)

const (
	bitTime   = 833 * time.Microsecond
	halfBit   = bitTime / 2
	frame8Dur  = 9 * bitTime
	frame16Dur = 17 * bitTime
	frame24Dur = 25 * bitTime
	frame25Dur = 26 * bitTime

	sendTwiceGap = 94 * time.Millisecond
	replyDelay   = 5 * time.Millisecond
	replyTimeout = 10 * time.Millisecond

	initTimeout = 15 * time.Minute
)

// frameDuration returns how long f occupies the bus, reduced by half a
// bit when the last transmitted bit is 1 (the final transition lands
// mid-bit).
func frameDuration(f frame.Frame) time.Duration {
	switch v := f.(type) {
	case frame.Frame8:
		return frame8Dur - lastBitAdjust(v.Value&1 == 1)
	case frame.Frame16:
		return frame16Dur - lastBitAdjust(v.Command&1 == 1)
	case frame.Frame24:
		return frame24Dur - lastBitAdjust(v.Opcode&1 == 1)
	case frame.Frame25:
		return frame25Dur - lastBitAdjust(v.Command&0x80 == 0x80)
	default:
		return frame16Dur
	}
}

func lastBitAdjust(lastBitOne bool) time.Duration {
	if lastBitOne {
		return halfBit
	}
	return 0
}

// sendDelay returns the minimum idle gap a sender must observe since the
// bus's last transition before transmitting, a settling time by priority
// plus an optional jitter bit-time to model backward-frame contention.
func sendDelay(priority uint8, jitter bool) time.Duration {
	// Settling times grow with lower priority (1 = highest).
	base := time.Duration(5+int(priority)) * bitTime
	if jitter {
		base += bitTime
	}
	return base
}
