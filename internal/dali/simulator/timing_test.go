package simulator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/fluffware/go-dali/internal/dali/frame"
)

func TestFrameDurationOddLastBit(t *testing.T) {
	even := frameDuration(frame.Frame16{Addr: 0x01, Command: 0x02})
	odd := frameDuration(frame.Frame16{Addr: 0x01, Command: 0x03})
	assert.Equal(t, halfBit, even-odd)
	assert.Equal(t, frame16Dur, even)
}

func TestFrameDurationByWidth(t *testing.T) {
	assert.Equal(t, frame8Dur, frameDuration(frame.Frame8{Value: 0x00}))
	assert.Equal(t, frame24Dur-halfBit, frameDuration(frame.Frame24{Opcode: 0x01}))
	assert.Equal(t, frame25Dur-halfBit, frameDuration(frame.Frame25{Command: 0x80}))
}

func TestSendDelayGrowsWithLowerPriority(t *testing.T) {
	d1 := sendDelay(1, false)
	d5 := sendDelay(5, false)
	assert.Less(t, d1, d5)
	assert.Equal(t, bitTime, sendDelay(1, true)-d1)
}

func TestFadeTimeTable(t *testing.T) {
	assert.Equal(t, time.Duration(0), fadeTimes[0])
	assert.Equal(t, 1000*time.Millisecond, fadeTimes[2])
	assert.Equal(t, 707*time.Millisecond, fadeTimes[1])
}
