package simulator

import (
	"math/rand"
	"time"
)

// NoAddress is the sentinel short-address value meaning "unassigned",
// distinct from the valid 0..63 range.
const NoAddress uint8 = 0xff

// InitState is a gear's position in the initialisation state machine
// gating the discovery-specific opcodes.
type InitState int

const (
	Disabled InitState = iota
	Enabled
	Withdrawn
)

// Status bits synthesised by QUERY_STATUS.
const (
	statusGearFailure = 1 << iota
	statusLampFailure
	statusLampOn
	statusLimitError
	statusFadeRunning
	statusResetState
	statusNoAddress
	statusPowerCycle
)

const deviceTypeLED uint8 = 6
const lightSourceLED uint8 = 6

var fadeTimes = func() [16]time.Duration {
	var t [16]time.Duration
	for n := 1; n < 16; n++ {
		shift := uint(n / 2)
		millis := uint64(1) << shift
		if n&1 == 1 {
			millis *= 707
		} else {
			millis *= 500
		}
		t[n] = time.Duration(millis) * time.Millisecond
	}
	return t
}()

var fadeMultiplier = [5]time.Duration{
	0,
	100 * time.Millisecond,
	time.Second,
	10 * time.Second,
	60 * time.Second,
}

var defaultBank0 = [...]byte{0x0a, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x01, 0x02}

// Gear is a simulated part-102 control gear: enough state to support
// discovery, address assignment, DAPC fading and the device-info query
// sequence.
type Gear struct {
	Powered bool

	actualLevel        uint8
	targetLevel        uint8
	powerOnLevel       uint8
	systemFailureLevel uint8
	minLevel           uint8
	maxLevel           uint8
	fade               uint8
	extendedFadeTime   uint8
	phm                uint8

	shortAddress  uint8
	searchAddress uint32
	randomAddress uint32

	initState InitState
	status    uint8
	groups    uint16
	scene     [16]uint8
	dtr0      uint8
	dtr1      uint8
	dtr2      uint8

	fadeStartLevel int32 // scaled by 128
	fadeEndLevel   int32
	fadeStart      time.Time
	fadeDuration   time.Duration
	initStart      time.Time

	lastFrameAddr uint8
	lastFrameCmd  uint8
	lastFrameAt   time.Time

	rng      *rand.Rand
	memBank0 []byte
}

// NewGear returns a freshly powered-up, unaddressed gear. seed selects the
// gear's private random source so Randomise draws are reproducible across
// a test run while differing between gears.
func NewGear(seed int64) *Gear {
	bank := make([]byte, len(defaultBank0))
	copy(bank, defaultBank0[:])
	return &Gear{
		Powered:            true,
		actualLevel:        0xfe,
		targetLevel:        0xfe,
		powerOnLevel:       0xfe,
		systemFailureLevel: 0xfe,
		maxLevel:           0xfe,
		minLevel:           1,
		fade:               0x07,
		shortAddress:       NoAddress,
		searchAddress:      0xffffff,
		randomAddress:      0xffffff,
		initState:          Disabled,
		scene:              [16]uint8{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff},
		rng:                rand.New(rand.NewSource(seed)),
		memBank0:           bank,
	}
}

// ShortAddress returns the gear's current short address value, or
// NoAddress if unassigned.
func (g *Gear) ShortAddress() uint8 { return g.shortAddress }

// RandomAddress returns the gear's 24-bit random address.
func (g *Gear) RandomAddress() uint32 { return g.randomAddress }

// SetRandomAddress seeds the gear's random address, used by tests to
// arrange a known discovery fixture instead of relying on Randomise's
// pseudo-random draw.
func (g *Gear) SetRandomAddress(addr uint32) { g.randomAddress = addr & 0xffffff }

// SetShortAddress seeds the gear's short address, used by tests to arrange
// a fixture gear as already commissioned without driving PROGRAM_SHORT_ADDRESS
// over the bus.
func (g *Gear) SetShortAddress(s uint8) { g.shortAddress = s }

// SetMemoryBank0 replaces the gear's bank-0 image, used by tests to
// arrange a fixture longer than the built-in 10-byte default.
func (g *Gear) SetMemoryBank0(data []byte) {
	g.memBank0 = append([]byte(nil), data...)
}

// ActualLevel returns the gear's current (possibly mid-fade) level.
func (g *Gear) ActualLevel() uint8 { return g.actualLevel }

// checkTimers advances fade progress and the initialisation auto-disable
// timer to the given bus time. Must be called before any query or state
// inspection so answers reflect elapsed time.
func (g *Gear) checkTimers(now time.Time) {
	if g.initState != Disabled && now.Sub(g.initStart) >= initTimeout {
		g.initState = Disabled
	}

	if g.status&statusFadeRunning != 0 {
		elapsed := now.Sub(g.fadeStart)
		if elapsed >= g.fadeDuration {
			g.actualLevel = g.targetLevel
			g.status &^= statusFadeRunning
		} else if g.fadeDuration > 0 {
			frac := float64(elapsed) / float64(g.fadeDuration)
			level := float64(g.fadeStartLevel) + frac*float64(g.fadeEndLevel-g.fadeStartLevel)
			g.actualLevel = uint8(int32(level) >> 7)
		}
	}
}

func (g *Gear) updateStatus() {
	const stored = statusGearFailure | statusLampFailure | statusLimitError | statusFadeRunning | statusResetState | statusPowerCycle
	g.status &= stored
	if g.actualLevel > 0 {
		g.status |= statusLampOn
	}
	if g.shortAddress == NoAddress {
		g.status |= statusNoAddress
	}
}

func (g *Gear) startFade(now time.Time) {
	noBasic := g.fade&0xf0 == 0
	noExtended := g.extendedFadeTime&0x70 == 0
	if noBasic && noExtended {
		g.actualLevel = g.targetLevel
		return
	}
	if noBasic {
		if g.extendedFadeTime == 0 || g.extendedFadeTime > 0x4f {
			g.actualLevel = g.targetLevel
			return
		}
		g.fadeDuration = fadeMultiplier[g.extendedFadeTime>>4] * time.Duration((g.extendedFadeTime&0x0f)+1)
	} else {
		g.fadeDuration = fadeTimes[g.fade>>4]
	}
	g.fadeStart = now
	g.fadeStartLevel = int32(g.actualLevel) << 7
	g.fadeEndLevel = int32(g.targetLevel) << 7
	g.status |= statusFadeRunning
}

// reply is the return shape of frame handling: whether the gear answers,
// and with what byte.
type reply struct {
	answer uint8
	ok     bool
}

func yes() reply    { return reply{answer: 0xff, ok: true} }
func no() reply     { return reply{} }
func byteReply(b uint8) reply { return reply{answer: b, ok: true} }

// HandleFrame delivers one 16-bit gear-command frame to the gear at bus
// time now, returning a backward-frame answer if one is due.
func (g *Gear) HandleFrame(now time.Time, addrByte, cmdByte uint8) (uint8, bool) {
	if !g.Powered {
		return 0, false
	}
	g.checkTimers(now)

	twice := g.lastFrameAddr == addrByte && g.lastFrameCmd == cmdByte &&
		!g.lastFrameAt.IsZero() && now.Sub(g.lastFrameAt) < frame16Dur+sendTwiceGap+2*bitTime
	g.lastFrameAddr = addrByte
	g.lastFrameCmd = cmdByte
	g.lastFrameAt = now

	addrField := addrByte >> 1
	var r reply
	switch {
	case addrField <= 0x3f && addrField == g.shortAddress:
		r = g.deviceCmd(addrByte, cmdByte)
	case addrField >= 0x40 && addrField <= 0x4f && g.groups&(1<<(addrField&0x0f)) != 0:
		r = g.deviceCmd(addrByte, cmdByte)
	case addrField == 0x7e && g.shortAddress == NoAddress:
		r = g.deviceCmd(addrByte, cmdByte)
	case addrField == 0x7f:
		r = g.deviceCmd(addrByte, cmdByte)
	default:
		r = g.specialCmd(now, addrByte, cmdByte, twice)
	}
	return r.answer, r.ok
}

func (g *Gear) deviceCmd(addrByte, cmdByte uint8) reply {
	if addrByte&1 == 0 {
		// Level (DAPC) frame: cmdByte is the target level, not an opcode.
		if cmdByte != 0xff {
			g.targetLevel = cmdByte
			g.startFade(g.lastFrameAt)
		}
		return no()
	}

	switch cmdByte {
	case 0x90: // QUERY_STATUS
		g.updateStatus()
		return byteReply(g.status)
	case 0x91: // QUERY_CONTROL_GEAR_PRESENT
		return yes()
	case 0xaa: // QUERY_CONTROL_GEAR_FAILURE
		return flagReply(g.status, statusGearFailure)
	case 0x92: // QUERY_LAMP_FAILURE
		return flagReply(g.status, statusLampFailure)
	case 0x93: // QUERY_LAMP_POWER_ON
		return boolReply(g.actualLevel > 0)
	case 0x94: // QUERY_LIMIT_ERROR
		return flagReply(g.status, statusLimitError)
	case 0x95: // QUERY_RESET_STATE
		return flagReply(g.status, statusResetState)
	case 0x96: // QUERY_MISSING_SHORT_ADDRESS
		return boolReply(g.shortAddress == NoAddress)
	case 0x97: // QUERY_VERSION_NUMBER
		return byteReply(2 << 2)
	case 0x99: // QUERY_DEVICE_TYPE
		return byteReply(deviceTypeLED)
	case 0xa7: // QUERY_NEXT_DEVICE_TYPE
		return no()
	case 0x9a: // QUERY_PHYSICAL_MINIMUM
		return byteReply(g.phm)
	case 0x9b: // QUERY_POWER_FAILURE
		return flagReply(g.status, statusPowerCycle)
	case 0x98: // QUERY_CONTENT_DTR0
		return byteReply(g.dtr0)
	case 0x9c: // QUERY_CONTENT_DTR1
		return byteReply(g.dtr1)
	case 0x9d: // QUERY_CONTENT_DTR2
		return byteReply(g.dtr2)
	case 0x9e: // QUERY_OPERATING_MODE
		return byteReply(0)
	case 0x9f: // QUERY_LIGHT_SOURCE_TYPE
		return byteReply(lightSourceLED)
	case 0xa0: // QUERY_ACTUAL_LEVEL
		return byteReply(g.actualLevel)
	case 0xa1: // QUERY_MAX_LEVEL
		return byteReply(g.maxLevel)
	case 0xa2: // QUERY_MIN_LEVEL
		return byteReply(g.minLevel)
	case 0xa3: // QUERY_POWER_ON_LEVEL
		return byteReply(g.powerOnLevel)
	case 0xa4: // QUERY_SYSTEM_FAILURE_LEVEL
		return byteReply(g.systemFailureLevel)
	case 0xa5: // QUERY_FADE
		return byteReply(g.fade)
	case 0xa8: // QUERY_EXTENDED_FADE_TIME
		return byteReply(g.extendedFadeTime)
	case 0xc0: // QUERY_GROUPS_0_7
		return byteReply(uint8(g.groups))
	case 0xc1: // QUERY_GROUPS_8_15
		return byteReply(uint8(g.groups >> 8))
	case 0xc2: // QUERY_RANDOM_ADDRESS_H
		return byteReply(uint8(g.randomAddress >> 16))
	case 0xc3: // QUERY_RANDOM_ADDRESS_M
		return byteReply(uint8(g.randomAddress >> 8))
	case 0xc4: // QUERY_RANDOM_ADDRESS_L
		return byteReply(uint8(g.randomAddress))
	case 0xc5: // READ_MEMORY_LOCATION
		return g.readMemoryLocation()
	default:
		if cmdByte >= 0xb0 && cmdByte <= 0xbf { // QUERY_SCENE_LEVEL_n
			return byteReply(g.scene[cmdByte-0xb0])
		}
		if cmdByte >= 0x60 && cmdByte <= 0x6f { // ADD_TO_GROUP_n
			g.groups |= 1 << (cmdByte - 0x60)
			return no()
		}
		if cmdByte >= 0x70 && cmdByte <= 0x7f { // REMOVE_FROM_GROUP_n
			g.groups &^= 1 << (cmdByte - 0x70)
			return no()
		}
		if cmdByte >= 0x40 && cmdByte <= 0x4f { // SET_SCENE_n
			g.scene[cmdByte-0x40] = g.actualLevel
			return no()
		}
		if cmdByte >= 0x50 && cmdByte <= 0x5f { // REMOVE_FROM_SCENE_n
			g.scene[cmdByte-0x50] = 0xff
			return no()
		}
		if cmdByte >= 0x10 && cmdByte <= 0x1f { // GOTO_SCENE_n
			level := g.scene[cmdByte-0x10]
			if level != 0xff {
				g.targetLevel = level
				g.startFade(g.lastFrameAt)
			}
			return no()
		}
		return g.simpleDeviceCmd(cmdByte)
	}
}

func (g *Gear) simpleDeviceCmd(cmdByte uint8) reply {
	switch cmdByte {
	case 0x00: // OFF
		g.targetLevel = 0
		g.actualLevel = 0
		g.status &^= statusFadeRunning
	case 0x05: // RECALL_MAX_LEVEL
		g.targetLevel = g.maxLevel
		g.startFade(g.lastFrameAt)
	case 0x06: // RECALL_MIN_LEVEL
		g.targetLevel = g.minLevel
		g.startFade(g.lastFrameAt)
	case 0x20: // RESET
		*g = *resetGear(g)
	case 0x2a: // SET_MAX_LEVEL
		g.maxLevel = g.dtr0
	case 0x2b: // SET_MIN_LEVEL
		g.minLevel = g.dtr0
	case 0x2c: // SET_SYSTEM_FAILURE_LEVEL
		g.systemFailureLevel = g.dtr0
	case 0x2d: // SET_POWER_ON_LEVEL
		g.powerOnLevel = g.dtr0
	case 0x2e: // SET_FADE_TIME, DTR0's low nibble becomes fade's high nibble
		g.fade = (g.fade & 0x0f) | (g.dtr0<<4)&0xf0
	case 0x2f: // SET_FADE_RATE, DTR0's low nibble becomes fade's low nibble
		g.fade = (g.fade & 0xf0) | (g.dtr0 & 0x0f)
	case 0x30: // SET_EXTENDED_FADE_TIME
		g.extendedFadeTime = g.dtr0
	case 0x80: // SET_SHORT_ADDRESS
		// handled through PROGRAM_SHORT_ADDRESS in discovery; direct
		// SET_SHORT_ADDRESS is accepted identically outside discovery.
		g.shortAddress = g.dtr0
	}
	return no()
}

func resetGear(old *Gear) *Gear {
	g := NewGear(0)
	g.rng = old.rng
	g.memBank0 = old.memBank0
	g.Powered = old.Powered
	g.shortAddress = old.shortAddress
	g.randomAddress = old.randomAddress
	g.initState = old.initState
	return g
}

func (g *Gear) readMemoryLocation() reply {
	if g.dtr1 != 0 {
		return no()
	}
	if int(g.dtr0) >= len(g.memBank0) {
		// Past the last location: no answer, but DTR0 still advances.
		if g.dtr0 < 0xff {
			g.dtr0++
		}
		return no()
	}
	b := g.memBank0[g.dtr0]
	g.dtr0++
	return byteReply(b)
}

func flagReply(status, flag uint8) reply { return boolReply(status&flag != 0) }

func boolReply(p bool) reply {
	if p {
		return yes()
	}
	return no()
}

// specialCmd dispatches the fixed-address special commands (discovery,
// initialisation, data-register transfer). addrByte is matched directly
// since these commands use reserved bytes outside the addressed/group/
// broadcast ranges already handled by HandleFrame.
func (g *Gear) specialCmd(now time.Time, addrByte, cmdByte uint8, twice bool) reply {
	switch addrByte {
	case 0xa1: // TERMINATE
		g.initState = Disabled
	case 0xa3: // DTR0
		g.dtr0 = cmdByte
	case 0xa5: // INITIALISE
		if !twice {
			break
		}
		matches := cmdByte == 0x00 ||
			(cmdByte == 0xff && g.shortAddress == NoAddress) ||
			(cmdByte&0x81 == 0x01 && cmdByte>>1 == g.shortAddress)
		if matches {
			g.initState = Enabled
			g.initStart = now
		}
	case 0xa7: // RANDOMISE
		if twice && g.initState != Disabled {
			g.randomAddress = g.rng.Uint32() & 0xffffff
		}
	case 0xa9: // COMPARE
		if g.initState == Enabled && g.randomAddress <= g.searchAddress {
			return yes()
		}
		return no()
	case 0xab: // WITHDRAW
		if g.initState == Enabled && g.randomAddress == g.searchAddress {
			g.initState = Withdrawn
		}
	case 0xad: // PING, no-op keepalive
	case 0xb1: // SEARCHADDRH
		if g.initState != Disabled {
			g.searchAddress = (g.searchAddress & 0x00ffff) | uint32(cmdByte)<<16
		}
	case 0xb3: // SEARCHADDRM
		if g.initState != Disabled {
			g.searchAddress = (g.searchAddress & 0xff00ff) | uint32(cmdByte)<<8
		}
	case 0xb5: // SEARCHADDRL
		if g.initState != Disabled {
			g.searchAddress = (g.searchAddress & 0xffff00) | uint32(cmdByte)
		}
	case 0xb7: // PROGRAM_SHORT_ADDRESS, only the selected gear accepts it
		if g.initState == Disabled || g.searchAddress != uint32(g.randomAddress) {
			break
		}
		if cmdByte&0x81 == 0x01 {
			g.shortAddress = cmdByte >> 1
		} else if cmdByte == NoAddress {
			g.shortAddress = NoAddress
		}
	case 0xb9: // VERIFY_SHORT_ADDRESS
		return boolReply(g.initState != Disabled && cmdByte&0x81 == 0x01 && cmdByte>>1 == g.shortAddress)
	case 0xbb: // QUERY_SHORT_ADDRESS
		if g.initState != Disabled && g.searchAddress == uint32(g.randomAddress) {
			return byteReply((g.shortAddress << 1) | 0x01)
		}
	case 0xc3: // DTR1
		g.dtr1 = cmdByte
	case 0xc5: // DTR2
		g.dtr2 = cmdByte
	case 0xc7: // WRITE_MEMORY_LOCATION
		g.writeMemoryLocation(cmdByte)
		return byteReply(cmdByte)
	case 0xc9: // WRITE_MEMORY_LOCATION_NO_REPLY
		g.writeMemoryLocation(cmdByte)
	}
	return no()
}

func (g *Gear) writeMemoryLocation(data uint8) {
	if g.dtr1 == 0 && int(g.dtr0) < len(g.memBank0) {
		g.memBank0[g.dtr0] = data
		g.dtr0++
	}
}
