// Package assign implements address (re)assignment: programming or
// clearing a gear's short address by its random address, and swapping
// two gears' short addresses without a full rediscovery.
package assign

import (
	"context"
	"fmt"

	"github.com/fluffware/go-dali/internal/dali/addr"
	"github.com/fluffware/go-dali/internal/dali/discover"
	"github.com/fluffware/go-dali/internal/dali/driver"
	"github.com/fluffware/go-dali/internal/dali/flags"
	"github.com/fluffware/go-dali/internal/dali/gear"
)

// ValidationError reports that a gear's QUERY_SHORT_ADDRESS answer after
// a program/clear did not match what was just written — the bus may have
// a second gear sharing the same random address.
type ValidationError struct {
	Want addr.Short
	Got  uint8
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("assign: short address mismatch: wrote %s, read back %#02x", e.Want, e.Got)
}

func priority1() flags.Flags { return flags.New().WithPriority(flags.Priority1) }

func sendNoReply(ctx context.Context, d driver.Driver, c gear.Command) driver.SendOutcome {
	return d.SendFrame(ctx, c.Frame(), priority1())
}

func sendAnswer(ctx context.Context, d driver.Driver, c gear.Command) driver.SendOutcome {
	return d.SendFrame(ctx, c.Frame(), priority1().WithExpectReply(true))
}

func setSearchAddr(ctx context.Context, d driver.Driver, long discover.RandomAddress) error {
	if out := sendNoReply(ctx, d, gear.SearchAddrH(uint8(long>>16))); out.Err() != nil {
		return out.Err()
	}
	if out := sendNoReply(ctx, d, gear.SearchAddrM(uint8(long>>8))); out.Err() != nil {
		return out.Err()
	}
	if out := sendNoReply(ctx, d, gear.SearchAddrL(uint8(long))); out.Err() != nil {
		return out.Err()
	}
	return nil
}

// ProgramShortAddress writes short onto the gear with random address
// long, then verifies by querying the short address back.
func ProgramShortAddress(ctx context.Context, d driver.Driver, long discover.RandomAddress, short addr.Short) error {
	if err := setSearchAddr(ctx, d, long); err != nil {
		return err
	}
	out := sendNoReply(ctx, d, gear.ProgramShortAddress(addr.FromShort(short)))
	if out.Err() != nil {
		return out.Err()
	}
	ans := sendAnswer(ctx, d, gear.QueryShortAddress())
	if ans.Err() != nil {
		return ans.Err()
	}
	got, _ := ans.Answered()
	if got&0xfe != uint8(short.Byte())&0xfe {
		return &ValidationError{Want: short, Got: got}
	}
	return nil
}

// ClearShortAddress removes the short address from the gear with random
// address long.
func ClearShortAddress(ctx context.Context, d driver.Driver, long discover.RandomAddress) error {
	if err := setSearchAddr(ctx, d, long); err != nil {
		return err
	}
	out := sendNoReply(ctx, d, gear.ProgramShortAddressByte(0xff))
	if out.Err() != nil {
		return out.Err()
	}
	ans := sendAnswer(ctx, d, gear.QueryShortAddress())
	if ans.Err() != nil {
		return ans.Err()
	}
	got, has := ans.Answered()
	if has && got != 0xff {
		return &ValidationError{Want: addr.Short{}, Got: got}
	}
	return nil
}

// Remap is one entry of a short-address swap: the gear currently at
// random address Long should end up with short address New.
type Remap struct {
	Long discover.RandomAddress
	New  addr.Short
}

// Swap reassigns every gear in remap to its New short address. Every
// gear is cleared first, then programmed, so a swap between two gears
// already holding each other's target address cannot transiently
// collide.
func Swap(ctx context.Context, d driver.Driver, remap []Remap) error {
	for _, r := range remap {
		if err := ClearShortAddress(ctx, d, r.Long); err != nil {
			return err
		}
	}
	for _, r := range remap {
		if err := ProgramShortAddress(ctx, d, r.Long, r.New); err != nil {
			return err
		}
	}
	return nil
}
