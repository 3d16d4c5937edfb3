package rpicodec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluffware/go-dali/internal/dali/flags"
	"github.com/fluffware/go-dali/internal/dali/frame"
)

func TestEncodeFrame16(t *testing.T) {
	fl := flags.New().WithPriority(flags.Priority1).WithExpectReply(true).WithSendTwice(true)
	packet, err := Codec{}.Encode(7, frame.Frame16{Addr: 0x01, Command: 0xfe}, fl)
	require.NoError(t, err)
	assert.Equal(t, []byte{7, 0b11, 1 | (2 << 3), 16, 0x01, 0xfe, 0, 0}, packet)
}

func TestEncodeRejectsFrame25(t *testing.T) {
	_, err := Codec{}.Encode(1, frame.Frame25{Addr: 0x01, Command: 0x02}, flags.New())
	assert.Error(t, err)
}

func TestDecodeIncompletePacket(t *testing.T) {
	_, _, _, _, _, ok := Codec{}.Decode([]byte{1, 2, 3})
	assert.False(t, ok)
}

func TestDecodeAnswerReply(t *testing.T) {
	packet := []byte{7, resultAnswer, 0, 0, 0xaa, 0, 0, 0}
	seq, ev, answer, hasAnswer, consumed, ok := Codec{}.Decode(packet)
	require.True(t, ok)
	assert.Equal(t, uint8(7), seq)
	assert.Nil(t, ev)
	assert.True(t, hasAnswer)
	assert.Equal(t, uint8(0xaa), answer)
	assert.Equal(t, packetSize, consumed)
}

func TestDecodeOKReply(t *testing.T) {
	packet := []byte{3, resultOK, 0, 0, 0, 0, 0, 0}
	seq, _, _, hasAnswer, _, ok := Codec{}.Decode(packet)
	require.True(t, ok)
	assert.Equal(t, uint8(3), seq)
	assert.False(t, hasAnswer)
}

func TestDecodeUnsolicitedFrame16Event(t *testing.T) {
	packet := []byte{0, eventFrame, 0, 16, 0x01, 0x02, 0, 0}
	seq, ev, _, _, consumed, ok := Codec{}.Decode(packet)
	require.True(t, ok)
	assert.Equal(t, uint8(0), seq)
	require.NotNil(t, ev)
	assert.Equal(t, frame.EventFrame16, ev.Type)
	assert.Equal(t, frame.Frame16{Addr: 0x01, Command: 0x02}, ev.Frame)
	assert.Equal(t, packetSize, consumed)
}

func TestDecodeBusPowerEvents(t *testing.T) {
	off := []byte{0, eventBusPowerOff, 0, 0, 0, 0, 0, 0}
	_, ev, _, _, _, ok := Codec{}.Decode(off)
	require.True(t, ok)
	assert.Equal(t, frame.EventBusPowerOff, ev.Type)

	on := []byte{0, eventBusPowerOn, 0, 0, 0, 0, 0, 0}
	_, ev, _, _, _, ok = Codec{}.Decode(on)
	require.True(t, ok)
	assert.Equal(t, frame.EventBusPowerOn, ev.Type)
}

func TestDecodeConsumesOnlyOnePacketAtATime(t *testing.T) {
	two := append([]byte{3, resultOK, 0, 0, 0, 0, 0, 0}, []byte{4, resultOK, 0, 0, 0, 0, 0, 0}...)
	seq, _, _, _, consumed, ok := Codec{}.Decode(two)
	require.True(t, ok)
	assert.Equal(t, uint8(3), seq)
	assert.Equal(t, packetSize, consumed)
}
