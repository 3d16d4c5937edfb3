package simulator

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/fluffware/go-dali/internal/dali/driver"
	"github.com/fluffware/go-dali/internal/dali/flags"
	"github.com/fluffware/go-dali/internal/dali/frame"
)

// Clock abstracts the passage of time so Bus can run against either the
// wall clock or a virtual one that advances instantly, without changing
// any bus logic.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

// RealClock is the default Clock, backed by the operating system clock.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

func (RealClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// VirtualClock advances on demand rather than in real time, so a test
// exercising minutes of bus traffic (the 15-minute initialisation
// timeout, in particular) runs instantly.
type VirtualClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewVirtualClock returns a clock starting at start.
func NewVirtualClock(start time.Time) *VirtualClock {
	return &VirtualClock{now: start}
}

func (c *VirtualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *VirtualClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	if d > 0 {
		c.now = c.now.Add(d)
	}
	c.mu.Unlock()
	return nil
}

// eventQueueCapacity is the buffer size of each consumer's bus-event
// channel.
const eventQueueCapacity = 10

// Bus is a single shared DALI bus with any number of simulated gears and
// any number of connected consumers (each a driver.Driver). Collision
// modelling is deliberately coarse: concurrent SendFrame calls serialise
// on the bus and a frame is reported as a collision only when more than
// one gear answers it, not via bit-level contention.
type Bus struct {
	mu      sync.Mutex
	clock   Clock
	gears   []*Gear
	busFree time.Time

	subMu sync.Mutex
	subs  map[*Consumer]chan frame.BusEvent
}

// NewBus returns an empty bus using clock for timing.
func NewBus(clock Clock) *Bus {
	return &Bus{
		clock:   clock,
		busFree: clock.Now(),
		subs:    make(map[*Consumer]chan frame.BusEvent),
	}
}

// AddGear attaches a gear to the bus.
func (b *Bus) AddGear(g *Gear) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.gears = append(b.gears, g)
}

// Gears returns the attached gears, in attachment order.
func (b *Bus) Gears() []*Gear {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*Gear, len(b.gears))
	copy(out, b.gears)
	return out
}

// Connect returns a new driver.Driver handle onto the bus. Each
// connected consumer gets its own bus-event stream.
func (b *Bus) Connect() *Consumer {
	c := &Consumer{
		bus:    b,
		events: make(chan frame.BusEvent, eventQueueCapacity),
		closed: make(chan struct{}),
	}
	b.subMu.Lock()
	b.subs[c] = c.events
	b.subMu.Unlock()
	return c
}

func (b *Bus) disconnect(c *Consumer) {
	b.subMu.Lock()
	delete(b.subs, c)
	b.subMu.Unlock()
}

func (b *Bus) publish(ev frame.BusEvent) {
	b.subMu.Lock()
	defer b.subMu.Unlock()
	for c, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- frame.BusEvent{Type: frame.EventOverrun, Timestamp: ev.Timestamp}:
			default:
			}
		}
		_ = c
	}
}

func eventTypeOf(f frame.Frame) frame.EventType {
	switch f.(type) {
	case frame.Frame8:
		return frame.EventFrame8
	case frame.Frame16:
		return frame.EventFrame16
	case frame.Frame24:
		return frame.EventFrame24
	case frame.Frame25:
		return frame.EventFrame25
	default:
		return frame.EventFrame16
	}
}

// SendFrame transmits f onto the bus, waiting out the priority settling
// delay and the bus's prior occupancy, delivering it to every attached
// gear, and — when fl requests a reply — waiting out the backward-frame
// window to collect an answer.
func (b *Bus) SendFrame(ctx context.Context, f frame.Frame, fl flags.Flags) driver.SendOutcome {
	b.mu.Lock()
	defer b.mu.Unlock()

	if wait := b.busFree.Sub(b.clock.Now()); wait > 0 {
		if err := b.clock.Sleep(ctx, wait); err != nil {
			return driver.DriverError(err)
		}
	}
	if err := b.clock.Sleep(ctx, sendDelay(uint8(fl.Priority()), false)); err != nil {
		return driver.DriverError(err)
	}

	now := b.clock.Now()
	dur := frameDuration(f)
	b.busFree = now.Add(dur)

	var answers []uint8
	if f16, ok := f.(frame.Frame16); ok {
		for _, g := range b.gears {
			if ans, has := g.HandleFrame(now, f16.Addr, f16.Command); has {
				answers = append(answers, ans)
			}
		}
	}
	b.publish(frame.BusEvent{Type: eventTypeOf(f), Timestamp: now, Frame: f})

	if !fl.ExpectReply() {
		if err := b.clock.Sleep(ctx, dur); err != nil {
			return driver.DriverError(err)
		}
		return driver.OK()
	}

	replyWindow := frame8Dur + replyDelay
	b.busFree = b.busFree.Add(replyWindow)
	if err := b.clock.Sleep(ctx, dur+replyWindow); err != nil {
		return driver.DriverError(err)
	}

	switch len(answers) {
	case 0:
		return driver.Timeout()
	case 1:
		return driver.Answer(answers[0])
	default:
		return driver.Framing()
	}
}

// Consumer is a driver.Driver backed by a shared Bus.
type Consumer struct {
	bus    *Bus
	events chan frame.BusEvent
	once   sync.Once
	closed chan struct{}
}

var _ driver.Driver = (*Consumer)(nil)

func (c *Consumer) SendFrame(ctx context.Context, f frame.Frame, fl flags.Flags) driver.SendOutcome {
	return c.bus.SendFrame(ctx, f, fl)
}

func (c *Consumer) NextBusEvent(ctx context.Context) (frame.BusEvent, error) {
	select {
	case ev := <-c.events:
		return ev, nil
	case <-c.closed:
		return frame.BusEvent{}, &driver.OpenError{Cause: fmt.Errorf("simulator: driver closed")}
	case <-ctx.Done():
		return frame.BusEvent{}, ctx.Err()
	}
}

func (c *Consumer) CurrentTimestamp() time.Time { return c.bus.clock.Now() }

func (c *Consumer) WaitUntil(ctx context.Context, t time.Time) error {
	d := t.Sub(c.bus.clock.Now())
	if d <= 0 {
		return nil
	}
	return c.bus.clock.Sleep(ctx, d)
}

func (c *Consumer) Close() error {
	c.once.Do(func() {
		close(c.closed)
		c.bus.disconnect(c)
	})
	return nil
}

// RegisterFactory registers the "sim" driver name with reg: a bus with
// the requested number of fresh gears, each given a distinct seed so
// Randomise draws differ between them. The "gears" parameter is
// required; e.g. "sim:gears=3".
func RegisterFactory(reg *driver.Registry) {
	reg.Register("sim", func(params map[string]string) (driver.Driver, error) {
		raw, ok := params["gears"]
		if !ok {
			return nil, &driver.ParameterError{Msg: "sim: missing \"gears\" parameter"}
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return nil, &driver.ParameterError{Msg: fmt.Sprintf("sim: invalid \"gears\" value %q", raw)}
		}
		bus := NewBus(RealClock{})
		for i := 0; i < n; i++ {
			bus.AddGear(NewGear(int64(i) + 1))
		}
		return bus.Connect(), nil
	})
}
