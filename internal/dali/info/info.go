// Package info reads back a device's configuration over the bus: the
// fixed sequence of QUERY_* commands that together describe a control
// gear's or control device's current state, and the part-102 memory
// bank 0 identification block.
package info

import (
	"context"
	"fmt"

	"github.com/fluffware/go-dali/internal/dali/addr"
	"github.com/fluffware/go-dali/internal/dali/control"
	"github.com/fluffware/go-dali/internal/dali/driver"
	"github.com/fluffware/go-dali/internal/dali/flags"
	"github.com/fluffware/go-dali/internal/dali/gear"
)

func priority1() flags.Flags { return flags.New().WithPriority(flags.Priority1).WithExpectReply(true) }

func priority1NoReply() flags.Flags { return flags.New().WithPriority(flags.Priority1) }

// GearInfo collects everything QUERY_* can report about one part-102
// control gear. Every field has a companion Has* flag: DALI devices may
// legitimately not implement a given query, and a Timeout there is not
// an error, just an absent field.
type GearInfo struct {
	Status            uint8
	HasStatus         bool
	Version           uint8
	HasVersion        bool
	DeviceTypes       []uint8
	LightSourceType   uint8
	HasLightSourceType bool
	OperatingMode     uint8
	HasOperatingMode  bool
	Groups            uint16
	HasGroups         bool
	Scenes            [16]uint8
	HasScene          [16]bool
	PhysicalMin       uint8
	HasPhysicalMin    bool
	ActualLevel       uint8
	HasActualLevel    bool
	MinLevel          uint8
	HasMinLevel       bool
	MaxLevel          uint8
	HasMaxLevel       bool
	PowerOnLevel      uint8
	HasPowerOnLevel   bool
	FailureLevel      uint8
	HasFailureLevel   bool
	Fade              uint8
	HasFade           bool
	ExtendedFadeTime  uint8
	HasExtendedFadeTime bool
}

func queryGear(ctx context.Context, d driver.Driver, c gear.Command) (uint8, bool, error) {
	out := d.SendFrame(ctx, c.Frame(), priority1())
	if out.Err() != nil {
		return 0, false, out.Err()
	}
	b, ok := out.Answered()
	return b, ok, nil
}

// ReadGearInfo runs the fixed QUERY_* sequence against a against a single
// addressed gear. Queries are independent: one device not implementing a
// field (a bare Timeout) does not abort the remaining queries.
func ReadGearInfo(ctx context.Context, d driver.Driver, a addr.Address) (*GearInfo, error) {
	info := &GearInfo{}

	if b, ok, err := queryGear(ctx, d, gear.QueryStatus(a)); err != nil {
		return nil, err
	} else if ok {
		info.Status, info.HasStatus = b, true
	}

	if b, ok, err := queryGear(ctx, d, gear.QueryVersionNumber(a)); err != nil {
		return nil, err
	} else if ok {
		info.Version, info.HasVersion = b, true
	}

	dt, ok, err := queryGear(ctx, d, gear.QueryDeviceType(a))
	if err != nil {
		return nil, err
	}
	for ok {
		info.DeviceTypes = append(info.DeviceTypes, dt)
		if dt != 0xff {
			break
		}
		dt, ok, err = queryGear(ctx, d, gear.QueryNextDeviceType(a))
		if err != nil {
			return nil, err
		}
	}

	if b, ok, err := queryGear(ctx, d, gear.QueryLightSourceType(a)); err != nil {
		return nil, err
	} else if ok {
		info.LightSourceType, info.HasLightSourceType = b, true
	}

	if b, ok, err := queryGear(ctx, d, gear.QueryOperatingMode(a)); err != nil {
		return nil, err
	} else if ok {
		info.OperatingMode, info.HasOperatingMode = b, true
	}

	lo, okLo, err := queryGear(ctx, d, gear.QueryGroups0_7(a))
	if err != nil {
		return nil, err
	}
	hi, okHi, err := queryGear(ctx, d, gear.QueryGroups8_15(a))
	if err != nil {
		return nil, err
	}
	if okLo || okHi {
		info.Groups = uint16(lo) | uint16(hi)<<8
		info.HasGroups = true
	}

	for n := uint8(0); n < 16; n++ {
		b, ok, err := queryGear(ctx, d, gear.QuerySceneLevel(a, n))
		if err != nil {
			return nil, err
		}
		if ok {
			info.Scenes[n], info.HasScene[n] = b, true
		}
	}

	if b, ok, err := queryGear(ctx, d, gear.QueryPhysicalMinimum(a)); err != nil {
		return nil, err
	} else if ok {
		info.PhysicalMin, info.HasPhysicalMin = b, true
	}

	if b, ok, err := queryGear(ctx, d, gear.QueryActualLevel(a)); err != nil {
		return nil, err
	} else if ok {
		info.ActualLevel, info.HasActualLevel = b, true
	}

	if b, ok, err := queryGear(ctx, d, gear.QueryMinLevel(a)); err != nil {
		return nil, err
	} else if ok {
		info.MinLevel, info.HasMinLevel = b, true
	}

	if b, ok, err := queryGear(ctx, d, gear.QueryMaxLevel(a)); err != nil {
		return nil, err
	} else if ok {
		info.MaxLevel, info.HasMaxLevel = b, true
	}

	if b, ok, err := queryGear(ctx, d, gear.QueryPowerOnLevel(a)); err != nil {
		return nil, err
	} else if ok {
		info.PowerOnLevel, info.HasPowerOnLevel = b, true
	}

	if b, ok, err := queryGear(ctx, d, gear.QuerySystemFailureLevel(a)); err != nil {
		return nil, err
	} else if ok {
		info.FailureLevel, info.HasFailureLevel = b, true
	}

	if b, ok, err := queryGear(ctx, d, gear.QueryFade(a)); err != nil {
		return nil, err
	} else if ok {
		info.Fade, info.HasFade = b, true
	}

	if b, ok, err := queryGear(ctx, d, gear.QueryExtendedFadeTime(a)); err != nil {
		return nil, err
	} else if ok {
		info.ExtendedFadeTime, info.HasExtendedFadeTime = b, true
	}

	return info, nil
}

// FadeTimeSeconds decodes the QUERY_FADE high nibble into IEC
// 62386-102's fade-time table (seconds, not the driver's millisecond
// resolution): 0 for no fade, else 2^(n/2) * 0.707 for odd n and
// 2^(n/2) * 0.5 for even n.
func FadeTimeSeconds(fade uint8) float64 {
	n := fade >> 4
	if n == 0 {
		return 0
	}
	base := 0.5
	if n&1 == 1 {
		base = 0.707
	}
	return base * float64(uint32(1)<<(n/2))
}

// ControlInfo collects everything QUERY_* can report about one
// part-103 control device.
type ControlInfo struct {
	Version    uint8
	HasVersion bool
}

func queryControl(ctx context.Context, d driver.Driver, c control.Command) (uint8, bool, error) {
	out := d.SendFrame(ctx, c.Frame(), priority1())
	if out.Err() != nil {
		return 0, false, out.Err()
	}
	b, ok := out.Answered()
	return b, ok, nil
}

// ReadControlInfo runs the available QUERY_* sequence against a single
// addressed control device.
func ReadControlInfo(ctx context.Context, d driver.Driver, a addr.Address) (*ControlInfo, error) {
	info := &ControlInfo{}
	if b, ok, err := queryControl(ctx, d, control.QueryVersionNumber(a)); err != nil {
		return nil, err
	} else if ok {
		info.Version, info.HasVersion = b, true
	}
	return info, nil
}

func (i *GearInfo) String() string {
	return fmt.Sprintf("GearInfo{status=%#02x actual=%d min=%d max=%d groups=%#04x devices=%v}",
		i.Status, i.ActualLevel, i.MinLevel, i.MaxLevel, i.Groups, i.DeviceTypes)
}
