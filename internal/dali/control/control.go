// Package control implements the IEC 62386-103 24-bit control-device
// command catalogue, including instance-scoped commands for sensors and
// input devices.
package control

import (
	"github.com/fluffware/go-dali/internal/dali/addr"
	"github.com/fluffware/go-dali/internal/dali/frame"
)

// instanceDevice is the fixed instance byte addressing the whole device
// rather than one of its instances.
const instanceDevice uint8 = 0xfe

// Command is a constructed 24-bit control-device command together with
// its send attributes.
type Command struct {
	frame  frame.Frame24
	answer bool
	twice  bool
}

// Frame returns the wire frame for this command.
func (c Command) Frame() frame.Frame24 { return c.frame }

// Answers reports whether this command expects a backward frame.
func (c Command) Answers() bool { return c.answer }

// Twice reports whether this command must be sent twice to take effect.
func (c Command) Twice() bool { return c.twice }

func device(a addr.Address, opcode uint8) Command {
	return Command{frame: frame.Frame24{Addr: uint8(a.Byte()), Instance: instanceDevice, Opcode: opcode}}
}

func deviceAnswer(a addr.Address, opcode uint8) Command {
	c := device(a, opcode)
	c.answer = true
	return c
}

func deviceTwice(a addr.Address, opcode uint8) Command {
	c := device(a, opcode)
	c.twice = true
	return c
}

func instance(a addr.Address, inst, opcode uint8) Command {
	return Command{frame: frame.Frame24{Addr: uint8(a.Byte()), Instance: inst, Opcode: opcode}}
}

func instanceAnswer(a addr.Address, inst, opcode uint8) Command {
	c := instance(a, inst, opcode)
	c.answer = true
	return c
}

func instanceTwice(a addr.Address, inst, opcode uint8) Command {
	c := instance(a, inst, opcode)
	c.twice = true
	return c
}

const specialAddr uint8 = 0xc1

func special(inst, opcode uint8) Command {
	return Command{frame: frame.Frame24{Addr: specialAddr, Instance: inst, Opcode: opcode}}
}

func specialAnswer(inst, opcode uint8) Command {
	c := special(inst, opcode)
	c.answer = true
	return c
}

func specialTwice(inst, opcode uint8) Command {
	c := special(inst, opcode)
	c.twice = true
	return c
}

func specialData(opcode, data uint8) Command { return special(opcode, data) }

func specialDataAnswer(opcode, data uint8) Command { return specialAnswer(opcode, data) }

func IdentifyDevice(a addr.Address) Command         { return deviceTwice(a, 0x00) }
func ResetPowerCycleSeen(a addr.Address) Command    { return deviceTwice(a, 0x01) }
func Reset(a addr.Address) Command                  { return deviceTwice(a, 0x10) }
func ResetMemoryBank(a addr.Address) Command        { return deviceTwice(a, 0x11) }
func SetShortAddress(a addr.Address) Command        { return deviceTwice(a, 0x14) }
func EnableWriteMemory(a addr.Address) Command      { return deviceTwice(a, 0x15) }
func EnableApplicationController(a addr.Address) Command    { return deviceTwice(a, 0x16) }
func DisableApplicationController(a addr.Address) Command   { return deviceTwice(a, 0x17) }
func SetOperatingMode(a addr.Address) Command               { return deviceTwice(a, 0x18) }
func AddToDeviceGroups0_15(a addr.Address) Command           { return deviceTwice(a, 0x19) }
func AddToDeviceGroups16_31(a addr.Address) Command          { return deviceTwice(a, 0x1a) }
func RemoveFromDeviceGroups0_15(a addr.Address) Command      { return deviceTwice(a, 0x1b) }
func RemoveFromDeviceGroups16_31(a addr.Address) Command     { return deviceTwice(a, 0x1c) }
func StartQuiescentMode(a addr.Address) Command              { return deviceTwice(a, 0x1d) }
func StopQuiescentMode(a addr.Address) Command                { return deviceTwice(a, 0x1e) }
func EnablePowerCycleNotification(a addr.Address) Command     { return deviceTwice(a, 0x1f) }
func DisablePowerCycleNotification(a addr.Address) Command    { return deviceTwice(a, 0x20) }
func SavePersistentVariables(a addr.Address) Command          { return deviceTwice(a, 0x21) }

func QueryDeviceStatus(a addr.Address) Command                  { return deviceAnswer(a, 0x30) }
func QueryApplicationControllerError(a addr.Address) Command    { return deviceAnswer(a, 0x31) }
func QueryInputDeviceError(a addr.Address) Command               { return deviceAnswer(a, 0x32) }
func QueryMissingShortAddress(a addr.Address) Command            { return deviceAnswer(a, 0x33) }
func QueryVersionNumber(a addr.Address) Command                  { return deviceAnswer(a, 0x34) }
func QueryNumberOfInstances(a addr.Address) Command               { return deviceAnswer(a, 0x35) }
func QueryContentDTR0(a addr.Address) Command                     { return deviceAnswer(a, 0x36) }
func QueryContentDTR1(a addr.Address) Command                     { return deviceAnswer(a, 0x37) }
func QueryContentDTR2(a addr.Address) Command                     { return deviceAnswer(a, 0x38) }
func QueryRandomAddressH(a addr.Address) Command                  { return deviceAnswer(a, 0x39) }
func QueryRandomAddressM(a addr.Address) Command                  { return deviceAnswer(a, 0x3a) }
func QueryRandomAddressL(a addr.Address) Command                  { return deviceAnswer(a, 0x3b) }
func ReadMemoryLocation(a addr.Address) Command                   { return deviceAnswer(a, 0x3c) }
func QueryApplicationControlEnabled(a addr.Address) Command       { return deviceAnswer(a, 0x3d) }
func QueryOperatingMode(a addr.Address) Command                   { return deviceAnswer(a, 0x3e) }
func QueryManufacturerSpecificMode(a addr.Address) Command        { return deviceAnswer(a, 0x3f) }
func QueryQuiescentMode(a addr.Address) Command                   { return deviceAnswer(a, 0x40) }
func QueryDeviceGroups0_7(a addr.Address) Command                  { return deviceAnswer(a, 0x41) }
func QueryDeviceGroups8_15(a addr.Address) Command                 { return deviceAnswer(a, 0x42) }
func QueryDeviceGroups16_23(a addr.Address) Command                { return deviceAnswer(a, 0x43) }
func QueryDeviceGroups24_31(a addr.Address) Command                { return deviceAnswer(a, 0x44) }
func QueryPowerCycleNotification(a addr.Address) Command           { return deviceAnswer(a, 0x45) }
func QueryDeviceCapabilities(a addr.Address) Command                { return deviceAnswer(a, 0x46) }
func QueryExtendedVersionNumber(a addr.Address) Command             { return deviceAnswer(a, 0x47) }
func QueryResetState(a addr.Address) Command                        { return deviceAnswer(a, 0x48) }

func SetEventPriority(a addr.Address, inst uint8) Command        { return instanceTwice(a, inst, 0x61) }
func EnableInstance(a addr.Address, inst uint8) Command           { return instanceTwice(a, inst, 0x62) }
func DisableInstance(a addr.Address, inst uint8) Command          { return instanceTwice(a, inst, 0x63) }
func SetPrimaryInstanceGroup(a addr.Address, inst uint8) Command  { return instanceTwice(a, inst, 0x64) }
func SetInstanceGroup1(a addr.Address, inst uint8) Command        { return instanceTwice(a, inst, 0x65) }
func SetInstanceGroup2(a addr.Address, inst uint8) Command        { return instanceTwice(a, inst, 0x66) }
func SetEventScheme(a addr.Address, inst uint8) Command           { return instanceTwice(a, inst, 0x67) }
func SetEventFilter(a addr.Address, inst uint8) Command            { return instanceTwice(a, inst, 0x68) }

func QueryInstanceType(a addr.Address, inst uint8) Command         { return instanceAnswer(a, inst, 0x80) }
func QueryResolution(a addr.Address, inst uint8) Command            { return instanceAnswer(a, inst, 0x81) }
func QueryInstanceError(a addr.Address, inst uint8) Command         { return instanceAnswer(a, inst, 0x82) }
func QueryInstanceStatus(a addr.Address, inst uint8) Command        { return instanceAnswer(a, inst, 0x83) }
func QueryEventPriority(a addr.Address, inst uint8) Command         { return instanceAnswer(a, inst, 0x84) }
func QueryInstanceEnabled(a addr.Address, inst uint8) Command       { return instanceAnswer(a, inst, 0x86) }
func QueryPrimaryInstanceGroup(a addr.Address, inst uint8) Command  { return instanceAnswer(a, inst, 0x88) }
func QueryInstanceGroup1(a addr.Address, inst uint8) Command        { return instanceAnswer(a, inst, 0x89) }
func QueryInstanceGroup2(a addr.Address, inst uint8) Command        { return instanceAnswer(a, inst, 0x8a) }
func QueryEventScheme(a addr.Address, inst uint8) Command           { return instanceAnswer(a, inst, 0x8b) }
func QueryInputValue(a addr.Address, inst uint8) Command            { return instanceAnswer(a, inst, 0x8c) }
func QueryInputValueLatch(a addr.Address, inst uint8) Command       { return instanceAnswer(a, inst, 0x8d) }
func QueryFeatureType(a addr.Address, inst uint8) Command           { return instanceAnswer(a, inst, 0x8e) }
func QueryNextFeatureType(a addr.Address, inst uint8) Command       { return instanceAnswer(a, inst, 0x8f) }
func QueryEventFilter0_7(a addr.Address, inst uint8) Command        { return instanceAnswer(a, inst, 0x90) }
func QueryEventFilter8_15(a addr.Address, inst uint8) Command       { return instanceAnswer(a, inst, 0x91) }
func QueryEventFilter16_23(a addr.Address, inst uint8) Command      { return instanceAnswer(a, inst, 0x92) }

// Terminate ends any active special (discovery/initialisation) session.
func Terminate() Command { return special(0x00, 0x00) }

// InitialiseAddr matches only the control device at the given short
// address; it must be followed by a second identical call to take
// effect.
func InitialiseAddr(s addr.Short) Command { return specialTwice(0x01, s.Value()) }

// InitialiseNoAddr matches only devices with no short address.
func InitialiseNoAddr() Command { return specialTwice(0x01, 0x7f) }

// InitialiseAll matches every control device regardless of address state.
func InitialiseAll() Command { return specialTwice(0x01, 0xff) }

// Randomise assigns each enabled device a fresh random address.
func Randomise() Command { return specialTwice(0x02, 0x00) }

// Compare answers yes from every enabled device whose random address is
// less than or equal to its search address.
func Compare() Command { return specialAnswer(0x03, 0x00) }

// Withdraw removes the device from further Compare responses.
func Withdraw() Command { return special(0x04, 0x00) }

func SearchAddrH(data uint8) Command { return specialData(0x05, data) }
func SearchAddrM(data uint8) Command { return specialData(0x06, data) }
func SearchAddrL(data uint8) Command { return specialData(0x07, data) }

// ProgramShortAddress writes the short-address value (shifted out of its
// tag bit) into the withdrawn device matching the current search
// address.
func ProgramShortAddress(a addr.Address) Command { return specialData(0x08, uint8(a.Byte())>>1) }

func VerifyShortAddress(a addr.Address) Command {
	return specialDataAnswer(0x09, uint8(a.Byte())>>1)
}

func QueryShortAddress() Command { return specialAnswer(0x0a, 0x00) }

func WriteMemoryLocation(data uint8) Command        { return specialDataAnswer(0x20, data) }
func WriteMemoryLocationNoReply(data uint8) Command { return specialData(0x21, data) }

func DTR0(data uint8) Command        { return specialData(0x30, data) }
func DTR1(data uint8) Command        { return specialData(0x31, data) }
func DTR2(data uint8) Command        { return specialData(0x32, data) }
func SendTestFrame(data uint8) Command { return specialData(0x33, data) }

// DirectWriteMemory writes data at the given memory offset in one frame.
func DirectWriteMemory(offset, data uint8) Command {
	return Command{frame: frame.Frame24{Addr: 0xc5, Instance: offset, Opcode: data}, answer: true}
}

// DTR1DTR0 loads DTR1 and DTR0 in one frame.
func DTR1DTR0(data1, data0 uint8) Command {
	return Command{frame: frame.Frame24{Addr: 0xc7, Instance: data1, Opcode: data0}, answer: true}
}

// DTR2DTR1 loads DTR2 and DTR1 in one frame.
func DTR2DTR1(data2, data1 uint8) Command {
	return Command{frame: frame.Frame24{Addr: 0xc9, Instance: data2, Opcode: data1}, answer: true}
}
