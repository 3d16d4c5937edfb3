package gear

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluffware/go-dali/internal/dali/addr"
)

func testShort(t *testing.T) addr.Address {
	t.Helper()
	s, err := addr.NewShort(4)
	require.NoError(t, err)
	return addr.FromShort(s)
}

func TestDeviceCommandOpcodes(t *testing.T) {
	a := testShort(t)
	cases := []struct {
		name    string
		cmd     Command
		opcode  uint8
		answer  bool
		twice   bool
	}{
		{"OFF", OFF(a), 0x00, false, false},
		{"UP", UP(a), 0x01, false, false},
		{"RESET", Reset(a), 0x20, false, true},
		{"SET_SHORT_ADDRESS", SetShortAddress(a), 0x80, false, true},
		{"QUERY_STATUS", QueryStatus(a), 0x90, true, false},
		{"QUERY_ACTUAL_LEVEL", QueryActualLevel(a), 0xa0, true, false},
		{"QUERY_EXTENDED_VERSION_NUMBER", QueryExtendedVersionNumber(a), 0xff, true, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			f := c.cmd.Frame()
			assert.Equal(t, uint8(a.Byte()), f.Addr)
			assert.Equal(t, c.opcode, f.Command)
			assert.Equal(t, c.answer, c.cmd.Answers())
			assert.Equal(t, c.twice, c.cmd.Twice())
		})
	}
}

func TestOffsetCommands(t *testing.T) {
	a := testShort(t)
	assert.Equal(t, uint8(0x10), GotoScene(a, 0).Frame().Command)
	assert.Equal(t, uint8(0x1f), GotoScene(a, 15).Frame().Command)
	assert.Equal(t, uint8(0x40), SetScene(a, 0).Frame().Command)
	assert.Equal(t, uint8(0x4f), SetScene(a, 15).Frame().Command)
	assert.True(t, SetScene(a, 0).Twice())
	assert.Equal(t, uint8(0x60), AddToGroup(a, 0).Frame().Command)
	assert.Equal(t, uint8(0x70), RemoveFromGroup(a, 0).Frame().Command)
}

func TestDAPCClearsLevelBit(t *testing.T) {
	a := testShort(t)
	cmd := DAPC(a, 254)
	assert.Equal(t, a.Byte().Level(), addrByteOf(cmd.Frame().Addr))
	assert.Equal(t, uint8(254), cmd.Frame().Command)
	assert.True(t, cmd.Twice())
	assert.False(t, cmd.Answers())
}

func addrByteOf(b uint8) addr.AddressByte { return addr.AddressByte(b) }

func TestSpecialCommands(t *testing.T) {
	assert.Equal(t, [2]uint8{0xa1, 0x00}, bytesOf(Terminate()))
	assert.Equal(t, [2]uint8{0xa5, 0x00}, bytesOf(InitialiseAll()))
	assert.True(t, InitialiseAll().Twice())
	assert.Equal(t, [2]uint8{0xa5, 0xff}, bytesOf(InitialiseNoAddr()))
	assert.True(t, Compare().Answers())
	assert.Equal(t, [2]uint8{0xab, 0x00}, bytesOf(Withdraw()))
	assert.Equal(t, [2]uint8{0xbb, 0x00}, bytesOf(QueryShortAddress()))
}

func bytesOf(c Command) [2]uint8 {
	f := c.Frame()
	return [2]uint8{f.Addr, f.Command}
}

func TestSearchAddrBytes(t *testing.T) {
	assert.Equal(t, [2]uint8{0xb1, 0x12}, bytesOf(SearchAddrH(0x12)))
	assert.Equal(t, [2]uint8{0xb3, 0x34}, bytesOf(SearchAddrM(0x34)))
	assert.Equal(t, [2]uint8{0xb5, 0x56}, bytesOf(SearchAddrL(0x56)))
}
