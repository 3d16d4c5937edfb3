// Package gear implements the IEC 62386-102 16-bit gear command catalogue:
// typed constructors that yield the frame body and the send attributes
// (whether an answer is expected, whether the command must be sent twice)
// a caller pairs with it.
package gear

import (
	"github.com/fluffware/go-dali/internal/dali/addr"
	"github.com/fluffware/go-dali/internal/dali/frame"
)

// Command is a constructed 16-bit gear command together with its send
// attributes. It does not send itself — callers pass Frame() and the
// attributes to a driver.
type Command struct {
	frame  frame.Frame16
	answer bool
	twice  bool
}

// Frame returns the wire frame for this command.
func (c Command) Frame() frame.Frame16 { return c.frame }

// Answers reports whether this command expects a backward frame.
func (c Command) Answers() bool { return c.answer }

// Twice reports whether this command must be sent twice to take effect.
func (c Command) Twice() bool { return c.twice }

func dev(a addr.Address, opcode uint8) Command {
	return Command{frame: frame.Frame16{Addr: uint8(a.Byte()), Command: opcode}}
}

func devAnswer(a addr.Address, opcode uint8) Command {
	c := dev(a, opcode)
	c.answer = true
	return c
}

func devTwice(a addr.Address, opcode uint8) Command {
	c := dev(a, opcode)
	c.twice = true
	return c
}

func special(b1, b2 uint8) Command {
	return Command{frame: frame.Frame16{Addr: b1, Command: b2}}
}

func specialAnswer(b1, b2 uint8) Command {
	c := special(b1, b2)
	c.answer = true
	return c
}

func specialTwice(b1, b2 uint8) Command {
	c := special(b1, b2)
	c.twice = true
	return c
}

func specialData(b1, data uint8) Command { return special(b1, data) }

func specialDataAnswer(b1, data uint8) Command { return specialAnswer(b1, data) }

// DAPC is the Direct Arc Power Control level command. Its destination
// address always targets the level-frame form (bit 0 cleared); per
// IEC 62386-102 adapters must repeat it to guard against a missed
// transition.
func DAPC(a addr.Address, level uint8) Command {
	return Command{frame: frame.Frame16{Addr: uint8(a.Byte().Level()), Command: level}, twice: true}
}

func OFF(a addr.Address) Command                   { return dev(a, 0x00) }
func UP(a addr.Address) Command                     { return dev(a, 0x01) }
func DOWN(a addr.Address) Command                   { return dev(a, 0x02) }
func StepUp(a addr.Address) Command                 { return dev(a, 0x03) }
func StepDown(a addr.Address) Command               { return dev(a, 0x04) }
func RecallMaxLevel(a addr.Address) Command         { return dev(a, 0x05) }
func RecallMinLevel(a addr.Address) Command         { return dev(a, 0x06) }
func StepDownAndOff(a addr.Address) Command         { return dev(a, 0x07) }
func OnAndStepUp(a addr.Address) Command            { return dev(a, 0x08) }
func EnableDAPC(a addr.Address) Command             { return dev(a, 0x09) }
func GoToLastActiveLevel(a addr.Address) Command    { return dev(a, 0x0a) }

// GotoScene recalls scene n (0..15).
func GotoScene(a addr.Address, n uint8) Command { return dev(a, 0x10+n) }

func Reset(a addr.Address) Command                    { return devTwice(a, 0x20) }
func StoreActualLevelInDTR0(a addr.Address) Command    { return devTwice(a, 0x21) }
func SavePersistentVariables(a addr.Address) Command   { return devTwice(a, 0x22) }
func SetOperatingMode(a addr.Address) Command          { return devTwice(a, 0x23) }
func ResetMemoryBank(a addr.Address) Command           { return devTwice(a, 0x24) }
func IdentifyDevice(a addr.Address) Command            { return devTwice(a, 0x25) }
func SetMaxLevel(a addr.Address) Command               { return devTwice(a, 0x2a) }
func SetMinLevel(a addr.Address) Command                { return devTwice(a, 0x2b) }
func SetSystemFailureLevel(a addr.Address) Command      { return devTwice(a, 0x2c) }
func SetPowerOnLevel(a addr.Address) Command            { return devTwice(a, 0x2d) }
func SetFadeTime(a addr.Address) Command                { return devTwice(a, 0x2e) }
func SetFadeRate(a addr.Address) Command                { return devTwice(a, 0x2f) }
func SetExtendedFadeTime(a addr.Address) Command        { return devTwice(a, 0x30) }

// SetScene writes the current level into scene n (0..15).
func SetScene(a addr.Address, n uint8) Command { return devTwice(a, 0x40+n) }

// RemoveFromScene removes the gear from scene n (0..15).
func RemoveFromScene(a addr.Address, n uint8) Command { return devTwice(a, 0x50+n) }

// AddToGroup adds the gear to group n (0..15).
func AddToGroup(a addr.Address, n uint8) Command { return devTwice(a, 0x60+n) }

// RemoveFromGroup removes the gear from group n (0..15).
func RemoveFromGroup(a addr.Address, n uint8) Command { return devTwice(a, 0x70+n) }

func SetShortAddress(a addr.Address) Command   { return devTwice(a, 0x80) }
func EnableWriteMemory(a addr.Address) Command { return devTwice(a, 0x81) }

func QueryStatus(a addr.Address) Command                 { return devAnswer(a, 0x90) }
func QueryControlGearPresent(a addr.Address) Command     { return devAnswer(a, 0x91) }
func QueryLampFailure(a addr.Address) Command             { return devAnswer(a, 0x92) }
func QueryLampPowerOn(a addr.Address) Command              { return devAnswer(a, 0x93) }
func QueryLimitError(a addr.Address) Command                { return devAnswer(a, 0x94) }
func QueryResetState(a addr.Address) Command                 { return devAnswer(a, 0x95) }
func QueryMissingShortAddress(a addr.Address) Command        { return devAnswer(a, 0x96) }
func QueryVersionNumber(a addr.Address) Command              { return devAnswer(a, 0x97) }
func QueryContentDTR0(a addr.Address) Command                { return devAnswer(a, 0x98) }
func QueryDeviceType(a addr.Address) Command                 { return devAnswer(a, 0x99) }
func QueryPhysicalMinimum(a addr.Address) Command            { return devAnswer(a, 0x9a) }
func QueryPowerFailure(a addr.Address) Command                { return devAnswer(a, 0x9b) }
func QueryContentDTR1(a addr.Address) Command                 { return devAnswer(a, 0x9c) }
func QueryContentDTR2(a addr.Address) Command                 { return devAnswer(a, 0x9d) }
func QueryOperatingMode(a addr.Address) Command               { return devAnswer(a, 0x9e) }
func QueryLightSourceType(a addr.Address) Command             { return devAnswer(a, 0x9f) }
func QueryActualLevel(a addr.Address) Command                 { return devAnswer(a, 0xa0) }
func QueryMaxLevel(a addr.Address) Command                    { return devAnswer(a, 0xa1) }
func QueryMinLevel(a addr.Address) Command                    { return devAnswer(a, 0xa2) }
func QueryPowerOnLevel(a addr.Address) Command                { return devAnswer(a, 0xa3) }
func QuerySystemFailureLevel(a addr.Address) Command          { return devAnswer(a, 0xa4) }
func QueryFade(a addr.Address) Command                        { return devAnswer(a, 0xa5) }
func QueryManufacturerSpecificMode(a addr.Address) Command    { return devAnswer(a, 0xa6) }
func QueryNextDeviceType(a addr.Address) Command               { return devAnswer(a, 0xa7) }
func QueryExtendedFadeTime(a addr.Address) Command              { return devAnswer(a, 0xa8) }
func QueryControlGearFailure(a addr.Address) Command            { return devAnswer(a, 0xaa) }

// QuerySceneLevel returns the level stored for scene n (0..15).
func QuerySceneLevel(a addr.Address, n uint8) Command { return devAnswer(a, 0xb0+n) }

func QueryGroups0_7(a addr.Address) Command          { return devAnswer(a, 0xc0) }
func QueryGroups8_15(a addr.Address) Command         { return devAnswer(a, 0xc1) }
func QueryRandomAddressH(a addr.Address) Command     { return devAnswer(a, 0xc2) }
func QueryRandomAddressM(a addr.Address) Command     { return devAnswer(a, 0xc3) }
func QueryRandomAddressL(a addr.Address) Command     { return devAnswer(a, 0xc4) }
func ReadMemoryLocation(a addr.Address) Command      { return devAnswer(a, 0xc5) }
func QueryExtendedVersionNumber(a addr.Address) Command { return devAnswer(a, 0xff) }

// Terminate ends any active special (discovery/initialisation) session.
func Terminate() Command { return special(0xa1, 0x00) }

// InitialiseAddr matches only the gear at the given destination address;
// it must be followed by a second identical call to take effect.
func InitialiseAddr(a addr.Address) Command { return specialTwice(0xa5, uint8(a.Byte())) }

// InitialiseAll matches every gear regardless of address state.
func InitialiseAll() Command { return specialTwice(0xa5, 0x00) }

// InitialiseNoAddr matches only gears with no short address.
func InitialiseNoAddr() Command { return specialTwice(0xa5, 0xff) }

// Randomise assigns each enabled gear a fresh random address.
func Randomise() Command { return specialTwice(0xa7, 0x00) }

// Compare answers yes from every enabled gear whose random address is
// less than or equal to its search address.
func Compare() Command { return specialAnswer(0xa9, 0x00) }

// Withdraw removes the gear from further Compare responses.
func Withdraw() Command { return special(0xab, 0x00) }

// Ping is a no-op special command some gateways use as a keep-alive.
func Ping() Command { return special(0xad, 0x00) }

func SearchAddrH(data uint8) Command { return specialData(0xb1, data) }
func SearchAddrM(data uint8) Command { return specialData(0xb3, data) }
func SearchAddrL(data uint8) Command { return specialData(0xb5, data) }

// ProgramShortAddress writes the given address byte (a short-address byte
// or the masked/clear form) into the gear in initialisation (enabled or
// withdrawn) whose random address matches the current search address.
func ProgramShortAddress(a addr.Address) Command { return specialData(0xb7, uint8(a.Byte())) }

// ProgramShortAddressByte is ProgramShortAddress for raw address bytes not
// expressible as addr.Address (e.g. the masked "clear" operand 0xff).
func ProgramShortAddressByte(b uint8) Command { return specialData(0xb7, b) }

// VerifyShortAddress answers yes iff the gear's short address equals addr.
func VerifyShortAddress(a addr.Address) Command { return specialDataAnswer(0xb9, uint8(a.Byte())) }

// QueryShortAddress answers with the short address byte when the gear's
// search address equals its random address.
func QueryShortAddress() Command { return specialAnswer(0xbb, 0x00) }

func EnableDeviceType(data uint8) Command { return specialData(0xc1, data) }

func DTR0(data uint8) Command { return specialData(0xa3, data) }
func DTR1(data uint8) Command { return specialData(0xc3, data) }
func DTR2(data uint8) Command { return specialData(0xc5, data) }

func WriteMemoryLocation(data uint8) Command         { return specialDataAnswer(0xc7, data) }
func WriteMemoryLocationNoReply(data uint8) Command  { return specialData(0xc9, data) }

// LegacyOpcodes documents the older per-scene/per-group constant naming
// this catalogue's offset-based constructors (GotoScene, SetScene,
// RemoveFromScene, AddToGroup, RemoveFromGroup) superseded: one named
// constant per scene/group number rather than a base opcode plus offset.
// The opcode values are identical; this map exists only as a
// cross-reference for test vectors and is never consulted by a
// constructor above.
var LegacyOpcodes = map[string]uint8{
	"GO_TO_SCENE_0":        0x10,
	"GO_TO_SCENE_15":       0x1f,
	"SET_SCENE_0":          0x40,
	"SET_SCENE_15":         0x4f,
	"REMOVE_FROM_SCENE_0":  0x50,
	"REMOVE_FROM_SCENE_15": 0x5f,
	"ADD_TO_GROUP_0":       0x60,
	"ADD_TO_GROUP_15":      0x6f,
	"REMOVE_FROM_GROUP_0":  0x70,
	"REMOVE_FROM_GROUP_15": 0x7f,
}
