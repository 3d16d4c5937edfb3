package control

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluffware/go-dali/internal/dali/addr"
)

func testShort(t *testing.T) addr.Short {
	t.Helper()
	s, err := addr.NewShort(7)
	require.NoError(t, err)
	return s
}

func TestDeviceCommandUsesDeviceInstance(t *testing.T) {
	a := addr.FromShort(testShort(t))
	f := IdentifyDevice(a).Frame()
	assert.Equal(t, uint8(a.Byte()), f.Addr)
	assert.Equal(t, instanceDevice, f.Instance)
	assert.Equal(t, uint8(0x00), f.Opcode)
	assert.True(t, IdentifyDevice(a).Twice())
}

func TestInstanceCommandCarriesInstanceByte(t *testing.T) {
	a := addr.FromShort(testShort(t))
	f := QueryInstanceType(a, 3).Frame()
	assert.Equal(t, uint8(3), f.Instance)
	assert.Equal(t, uint8(0x80), f.Opcode)
	assert.True(t, QueryInstanceType(a, 3).Answers())
}

func TestSpecialCommandsUseFixedAddr(t *testing.T) {
	f := Compare().Frame()
	assert.Equal(t, specialAddr, f.Addr)
	assert.Equal(t, uint8(0x03), f.Instance)
	assert.True(t, Compare().Answers())

	f = InitialiseAll().Frame()
	assert.Equal(t, uint8(0x01), f.Instance)
	assert.Equal(t, uint8(0xff), f.Opcode)
	assert.True(t, InitialiseAll().Twice())
}

func TestProgramShortAddressShiftsOutTagBit(t *testing.T) {
	s := testShort(t)
	a := addr.FromShort(s)
	f := ProgramShortAddress(a).Frame()
	assert.Equal(t, s.Value(), f.Opcode)
}
