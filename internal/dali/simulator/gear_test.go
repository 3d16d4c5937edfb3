package simulator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewGearDefaults(t *testing.T) {
	g := NewGear(1)
	assert.Equal(t, NoAddress, g.ShortAddress())
	assert.Equal(t, uint8(0xfe), g.ActualLevel())
}

func TestDAPCSetsLevelInstantlyWithZeroFade(t *testing.T) {
	g := NewGear(1)
	g.shortAddress = 4
	g.fade = 0x00
	now := time.Now()
	addrByte := uint8(4<<1) | 0x00 // short address 4, bit0 clear = level frame
	_, has := g.HandleFrame(now, addrByte, 100)
	assert.False(t, has)
	assert.Equal(t, uint8(100), g.ActualLevel())
}

func TestDAPCFadesOverTime(t *testing.T) {
	g := NewGear(1)
	g.shortAddress = 4
	g.fade = 0x40 // fade time index 4
	g.actualLevel = 0
	now := time.Now()
	addrByte := uint8(4 << 1)
	g.HandleFrame(now, addrByte, 254)
	assert.NotEqual(t, uint8(254), g.ActualLevel())

	later := now.Add(fadeTimes[4] + time.Millisecond)
	g.checkTimers(later)
	assert.Equal(t, uint8(254), g.ActualLevel())
}

func TestQueryStatusReflectsNoAddress(t *testing.T) {
	g := NewGear(1)
	now := time.Now()
	addrByte := uint8(0xff) // broadcast, command-frame form (bit 0 set)
	answer, has := g.HandleFrame(now, addrByte, 0x90)
	assert.True(t, has)
	assert.NotZero(t, answer&statusNoAddress)
}

func TestInitialiseRequiresSendTwice(t *testing.T) {
	g := NewGear(1)
	now := time.Now()
	g.HandleFrame(now, 0xa5, 0x00)
	assert.Equal(t, Disabled, g.initState)

	now2 := now.Add(time.Millisecond)
	g.HandleFrame(now2, 0xa5, 0x00)
	assert.Equal(t, Enabled, g.initState)
}

func TestWithdrawOnlyWhenAddressesMatch(t *testing.T) {
	g := NewGear(1)
	now := time.Now()
	g.HandleFrame(now, 0xa5, 0x00)
	g.HandleFrame(now.Add(time.Millisecond), 0xa5, 0x00)
	g.SetRandomAddress(0x123456)
	g.searchAddress = 0x654321

	g.HandleFrame(now.Add(2*time.Millisecond), 0xab, 0x00)
	assert.Equal(t, Enabled, g.initState, "withdraw must not fire when addresses differ")

	g.searchAddress = 0x123456
	g.HandleFrame(now.Add(3*time.Millisecond), 0xab, 0x00)
	assert.Equal(t, Withdrawn, g.initState)
}

func TestCompareAnswersWhenRandomLessOrEqualSearch(t *testing.T) {
	g := NewGear(1)
	now := time.Now()
	g.HandleFrame(now, 0xa5, 0x00)
	g.HandleFrame(now.Add(time.Millisecond), 0xa5, 0x00)
	g.SetRandomAddress(0x000100)
	g.searchAddress = 0x000200

	answer, has := g.HandleFrame(now.Add(2*time.Millisecond), 0xa9, 0x00)
	assert.True(t, has)
	assert.Equal(t, uint8(0xff), answer)
}

func TestProgramAndQueryShortAddress(t *testing.T) {
	g := NewGear(1)
	now := time.Now()
	g.HandleFrame(now, 0xa5, 0xff) // INITIALISE, no-address gears
	g.HandleFrame(now.Add(time.Millisecond), 0xa5, 0xff)
	g.SetRandomAddress(0x0a0b0c)
	g.searchAddress = 0x0a0b0c

	g.HandleFrame(now.Add(2*time.Millisecond), 0xb7, (7<<1)|0x01)
	assert.Equal(t, uint8(7), g.ShortAddress())

	answer, has := g.HandleFrame(now.Add(3*time.Millisecond), 0xbb, 0x00)
	assert.True(t, has)
	assert.Equal(t, (uint8(7)<<1)|0x01, answer)
}

func TestSetMaxLevelAndFadeTimeFromDTR0(t *testing.T) {
	g := NewGear(1)
	g.shortAddress = 2
	now := time.Now()
	deviceAddr := (uint8(2) << 1) | 0x01

	g.HandleFrame(now, 0xa3, 0x80) // DTR0 = 0x80
	g.HandleFrame(now, deviceAddr, 0x2a) // SET_MAX_LEVEL
	assert.Equal(t, uint8(0x80), g.maxLevel)

	g.HandleFrame(now, 0xa3, 0x07) // DTR0 = fade time index 7
	g.HandleFrame(now, deviceAddr, 0x2e)               // SET_FADE_TIME
	assert.Equal(t, uint8(0x70|0x07), g.fade, "low nibble (fade rate) is left untouched by SET_FADE_TIME")

	g.HandleFrame(now, 0xa3, 0x09) // DTR0 = 9 (100ms * 10)
	g.HandleFrame(now, deviceAddr, 0x30) // SET_EXTENDED_FADE_TIME
	assert.Equal(t, uint8(0x09), g.extendedFadeTime)

	answer, has := g.HandleFrame(now, deviceAddr, 0xa8) // QUERY_EXTENDED_FADE_TIME
	assert.True(t, has)
	assert.Equal(t, uint8(0x09), answer)
}
