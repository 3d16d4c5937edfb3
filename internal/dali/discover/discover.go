// Package discover implements bus discovery: reading every gear's random
// address via its short address where one is already assigned, then a
// binary search over the 24-bit random-address space for gears with no
// short address, using the bus's COMPARE/WITHDRAW protocol.
//
// Discover assumes exclusive use of the driver for its duration — the
// same constraint the Driver interface itself documents for SendFrame
// ordering.
package discover

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/fluffware/go-dali/internal/dali/addr"
	"github.com/fluffware/go-dali/internal/dali/driver"
	"github.com/fluffware/go-dali/internal/dali/flags"
	"github.com/fluffware/go-dali/internal/dali/gear"
)

// RandomAddress is a gear's 24-bit random address.
type RandomAddress uint32

// topSearchAddr is one past the largest legal random address.
const topSearchAddr RandomAddress = 0x1000000

// shortEnumerateRetries bounds how many times a single short address's
// random-address read is retried after a timeout before giving up on it.
const shortEnumerateRetries = 3

// Found reports one gear discovered on the bus.
type Found struct {
	Random         RandomAddress
	HasRandom      bool
	Short          addr.Short
	HasShort       bool
	RandomConflict bool
	ShortConflict  bool
}

func (f Found) String() string {
	switch {
	case f.RandomConflict:
		return fmt.Sprintf("conflict at random address %06x", f.Random)
	case f.HasRandom && f.HasShort:
		return fmt.Sprintf("random %06x short %s", f.Random, f.Short)
	case f.HasShort:
		return fmt.Sprintf("short %s (no random address)", f.Short)
	default:
		return fmt.Sprintf("random %06x (no short address)", f.Random)
	}
}

func priority1() flags.Flags { return flags.New().WithPriority(flags.Priority1) }

func sendCommand(ctx context.Context, d driver.Driver, c gear.Command) driver.SendOutcome {
	fl := priority1().WithExpectReply(c.Answers())
	out := d.SendFrame(ctx, c.Frame(), fl)
	if c.Twice() && out.Err() == nil {
		out = d.SendFrame(ctx, c.Frame(), fl)
	}
	return out
}

// QueryRandomAddress reads the random address currently stored by the
// gear at short, without running a search-address sequence. cmd/dali-swap-addr
// uses this directly to resolve the two short addresses it is asked to
// swap into the long addresses assign.ProgramShortAddress needs.
func QueryRandomAddress(ctx context.Context, d driver.Driver, short addr.Short) (RandomAddress, driver.SendOutcome) {
	return getRandomAddr(ctx, d, short)
}

// getRandomAddr reads the random address of the gear currently addressed
// by short, by querying QUERY_RANDOM_ADDRESS_{H,M,L} directly at that
// short address (no search-address sequence involved: this is the
// enumerate-by-short-address phase, distinct from the binary search
// phase below).
func getRandomAddr(ctx context.Context, d driver.Driver, short addr.Short) (RandomAddress, driver.SendOutcome) {
	a := addr.FromShort(short)
	h := sendCommand(ctx, d, gear.QueryRandomAddressH(a))
	if hb, ok := h.Answered(); ok {
		m := sendCommand(ctx, d, gear.QueryRandomAddressM(a))
		mb, ok := m.Answered()
		if !ok {
			return 0, m
		}
		l := sendCommand(ctx, d, gear.QueryRandomAddressL(a))
		lb, ok := l.Answered()
		if !ok {
			return 0, l
		}
		return RandomAddress(uint32(hb)<<16 | uint32(mb)<<8 | uint32(lb)), driver.OK()
	}
	return 0, h
}

// setSearchAddrChanged sends only the SEARCHADDR{H,M,L} bytes that differ
// between target and *current, and updates *current.
func setSearchAddrChanged(ctx context.Context, d driver.Driver, target RandomAddress, current *RandomAddress) error {
	diff := target ^ *current
	if diff&0xff0000 != 0 {
		if out := sendCommand(ctx, d, gear.SearchAddrH(uint8(target>>16))); out.Err() != nil {
			return out.Err()
		}
	}
	if diff&0x00ff00 != 0 {
		if out := sendCommand(ctx, d, gear.SearchAddrM(uint8(target>>8))); out.Err() != nil {
			return out.Err()
		}
	}
	if diff&0x0000ff != 0 {
		if out := sendCommand(ctx, d, gear.SearchAddrL(uint8(target))); out.Err() != nil {
			return out.Err()
		}
	}
	*current = target
	return nil
}

// highBit clears every bit except the highest set one.
func highBit(bits uint32) uint32 {
	if bits == 0 {
		return 0
	}
	bits |= bits >> 1
	bits |= bits >> 2
	bits |= bits >> 4
	bits |= bits >> 8
	bits |= bits >> 16
	return (bits >> 1) + 1
}

type searchOutcome int

const (
	searchNone searchOutcome = iota
	searchFound
	searchConflict
	searchReplyError
)

// findDevice searches [low, high) for the gear with the lowest random
// address, by bisecting on COMPARE answers. high_single tracks the
// highest pivot tried with only a single address at or below it;
// low_multiple tracks the lowest pivot tried with more than one. Either
// is a candidate bound for the next call once a device is found here.
func findDevice(ctx context.Context, d driver.Driver, low, high RandomAddress, current *RandomAddress) (searchOutcome, RandomAddress, uint32, uint32, bool, bool, error) {
	if low >= high {
		return searchNone, 0, 0, 0, false, false, nil
	}
	pivot := low + RandomAddress(highBit(uint32(high-low)/2))
	var highSingle, lowMultiple uint32
	var haveHighSingle, haveLowMultiple bool

	for {
		if err := setSearchAddrChanged(ctx, d, pivot, current); err != nil {
			return 0, 0, 0, 0, false, false, err
		}
		out := sendCommand(ctx, d, gear.Compare())
		answer, answered := out.Answered()
		switch {
		case out.Err() != nil:
			return 0, 0, 0, 0, false, false, out.Err()
		case answered && answer == 0xff:
			if !haveHighSingle || uint32(pivot) >= highSingle {
				highSingle = uint32(pivot) + 1
				haveHighSingle = true
			}
			if low >= pivot {
				return searchFound, pivot, highSingle, lowMultiple, haveHighSingle, haveLowMultiple, nil
			}
			high = pivot + 1
			pivot -= RandomAddress(highBit(uint32(pivot-low)/2)) + 1
		case answered:
			lowMultiple = uint32(pivot) + 1
			haveLowMultiple = true
			if low >= pivot {
				return searchReplyError, pivot, highSingle, lowMultiple, haveHighSingle, haveLowMultiple, nil
			}
			high = pivot
			pivot -= RandomAddress(highBit(uint32(pivot - low)))
		case out.NoDevice():
			if haveLowMultiple && uint32(pivot)+2 > lowMultiple {
				return searchConflict, pivot + 1, highSingle, lowMultiple, haveHighSingle, haveLowMultiple, nil
			}
			if pivot == high-1 {
				return searchNone, 0, highSingle, lowMultiple, haveHighSingle, haveLowMultiple, nil
			}
			low = pivot + 1
			pivot += RandomAddress(highBit(uint32(high-pivot) / 2))
		case out.MultipleDevices():
			lowMultiple = uint32(pivot) + 1
			haveLowMultiple = true
			if low >= pivot {
				return searchConflict, pivot, highSingle, lowMultiple, haveHighSingle, haveLowMultiple, nil
			}
			high = pivot
			pivot -= RandomAddress(highBit(uint32(pivot-low)/2)) + 1
		default:
			return 0, 0, 0, 0, false, false, fmt.Errorf("discover: unexpected send outcome %s", out)
		}
	}
}

// findUnaddressed runs the binary-search phase over gears already
// withdrawn from discovery (short-addressed ones were withdrawn by the
// caller), streaming each one found to out.
func findUnaddressed(ctx context.Context, d driver.Driver, out chan<- Found, current *RandomAddress) error {
	low := RandomAddress(0)
	high := topSearchAddr
	var haveHighSingle, haveLowMultiple bool
	var highSingle, lowMultiple uint32

	for {
		outcome, addrFound, hs, lm, hhs, hlm, err := findDevice(ctx, d, low, high, current)
		if err != nil {
			return err
		}
		highSingle, lowMultiple, haveHighSingle, haveLowMultiple = hs, lm, hhs, hlm

		switch outcome {
		case searchFound:
			if err := setSearchAddrChanged(ctx, d, addrFound, current); err != nil {
				return err
			}
			short, hasShort := queryShortAddress(ctx, d)
			send(ctx, out, Found{Random: addrFound, HasRandom: true, Short: short, HasShort: hasShort})
			sendCommand(ctx, d, gear.Withdraw())

			switch {
			case haveHighSingle && haveLowMultiple:
				if highSingle < lowMultiple {
					low = RandomAddress(highSingle)
				} else {
					low = 0
				}
				high = RandomAddress(lowMultiple)
			case haveHighSingle:
				low = RandomAddress(highSingle)
				high = topSearchAddr
			default:
				return fmt.Errorf("discover: found device but high_single unset")
			}
		case searchNone:
			if high == topSearchAddr {
				return nil
			}
			high = topSearchAddr
		case searchConflict:
			if err := setSearchAddrChanged(ctx, d, addrFound, current); err != nil {
				return err
			}
			sendCommand(ctx, d, gear.Withdraw())
			send(ctx, out, Found{Random: addrFound, HasRandom: true, RandomConflict: true})
			low = addrFound + 1
			high = topSearchAddr
		case searchReplyError:
			low = 0
			high = topSearchAddr
		}
	}
}

func queryShortAddress(ctx context.Context, d driver.Driver) (addr.Short, bool) {
	out := sendCommand(ctx, d, gear.QueryShortAddress())
	b, ok := out.Answered()
	if !ok || b == 0xff {
		return addr.Short{}, false
	}
	short, err := addr.NewShort(b >> 1)
	if err != nil {
		return addr.Short{}, false
	}
	return short, true
}

func send(ctx context.Context, out chan<- Found, f Found) {
	select {
	case out <- f:
	case <-ctx.Done():
	}
}

// Discover finds every gear on the bus: first by enumerating all 64
// short addresses (retrying a bare timeout a few times, since an
// unaddressed device never answers this phase), withdrawing every gear
// found so it drops out of COMPARE; then by binary search for whatever
// remains. Results stream on the returned channel, which is closed when
// discovery finishes or ctx is cancelled; a non-nil error, if any, is
// sent as the final channel event's error return via the accompanying
// error channel.
func Discover(ctx context.Context, d driver.Driver, logger *log.Logger) (<-chan Found, <-chan error) {
	out := make(chan Found, 64)
	errc := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errc)
		defer sendCommand(ctx, d, gear.Terminate())

		var foundShort [64]RandomAddress
		var haveShort [64]bool

		for i := 0; i < 64; i++ {
			short, err := addr.NewShort(uint8(i))
			if err != nil {
				errc <- err
				return
			}
			retries := shortEnumerateRetries
			for {
				ra, out2 := getRandomAddr(ctx, d, short)
				if out2.Err() != nil {
					errc <- out2.Err()
					return
				}
				if out2.NoDevice() {
					if retries == 0 {
						break
					}
					retries--
					continue
				}
				if out2.MultipleDevices() {
					send(ctx, out, Found{Short: short, HasShort: true, ShortConflict: true})
					break
				}
				foundShort[i] = ra
				haveShort[i] = true
				send(ctx, out, Found{Random: ra, HasRandom: true, Short: short, HasShort: true})
				break
			}
			if logger != nil {
				logger.Debug("enumerated short address", "short", short, "found", haveShort[i])
			}
		}

		out3 := sendCommand(ctx, d, gear.InitialiseAll())
		if out3.Err() != nil {
			errc <- out3.Err()
			return
		}

		current := RandomAddress(0xffffffff)
		for i := 0; i < 64; i++ {
			if !haveShort[i] {
				continue
			}
			if err := setSearchAddrChanged(ctx, d, foundShort[i], &current); err != nil {
				errc <- err
				return
			}
			sendCommand(ctx, d, gear.Withdraw())
		}

		if err := findUnaddressed(ctx, d, out, &current); err != nil {
			errc <- err
		}
	}()

	return out, errc
}
