package simulator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluffware/go-dali/internal/dali/addr"
	"github.com/fluffware/go-dali/internal/dali/driver"
	"github.com/fluffware/go-dali/internal/dali/flags"
	"github.com/fluffware/go-dali/internal/dali/frame"
	"github.com/fluffware/go-dali/internal/dali/gear"
)

func newTestBus(n int) (*Bus, []*Gear) {
	clock := NewVirtualClock(time.Unix(0, 0))
	bus := NewBus(clock)
	gears := make([]*Gear, n)
	for i := range gears {
		gears[i] = NewGear(int64(i) + 1)
		bus.AddGear(gears[i])
	}
	return bus, gears
}

func TestSendFrameDeliversToAddressedGear(t *testing.T) {
	bus, gears := newTestBus(2)
	gears[0].shortAddress = 0
	gears[1].shortAddress = 1

	short, err := addr.NewShort(0)
	require.NoError(t, err)
	a := addr.FromShort(short)
	cmd := gear.QueryStatus(a)

	c := bus.Connect()
	defer c.Close()

	outcome := c.SendFrame(context.Background(), cmd.Frame(), flags.New().WithExpectReply(true))
	_, ok := outcome.Answered()
	assert.True(t, ok)
}

func TestSendFrameTimeoutWhenNoGearAnswers(t *testing.T) {
	bus, gears := newTestBus(1)
	gears[0].shortAddress = 5

	short, err := addr.NewShort(3)
	require.NoError(t, err)
	a := addr.FromShort(short)
	cmd := gear.QueryStatus(a)

	c := bus.Connect()
	defer c.Close()

	outcome := c.SendFrame(context.Background(), cmd.Frame(), flags.New().WithExpectReply(true))
	assert.True(t, outcome.NoDevice())
}

func TestSendFrameFramingOnMultipleAnswers(t *testing.T) {
	bus, gears := newTestBus(2)
	gears[0].shortAddress = 0
	gears[0].groups = 1
	gears[1].shortAddress = 1
	gears[1].groups = 1

	group, err := addr.NewGearGroup(0)
	require.NoError(t, err)
	a := addr.FromGroup(group)
	cmd := gear.QueryStatus(a)

	c := bus.Connect()
	defer c.Close()

	outcome := c.SendFrame(context.Background(), cmd.Frame(), flags.New().WithExpectReply(true))
	assert.True(t, outcome.MultipleDevices())
}

func TestSendFrameNoExpectReplyReturnsOK(t *testing.T) {
	bus, gears := newTestBus(1)
	gears[0].shortAddress = 0

	short, err := addr.NewShort(0)
	require.NoError(t, err)
	a := addr.FromShort(short)
	cmd := gear.OFF(a)

	c := bus.Connect()
	defer c.Close()

	outcome := c.SendFrame(context.Background(), cmd.Frame(), flags.New())
	assert.True(t, outcome.IsOK())
}

func TestConsumerReceivesBusEvents(t *testing.T) {
	bus, gears := newTestBus(1)
	gears[0].shortAddress = 0

	c := bus.Connect()
	defer c.Close()

	short, _ := addr.NewShort(0)
	a := addr.FromShort(short)
	bus.SendFrame(context.Background(), gear.OFF(a).Frame(), flags.New())

	ev, err := c.NextBusEvent(context.Background())
	require.NoError(t, err)
	assert.Equal(t, frame.EventFrame16, ev.Type)
}

func TestConsumerCloseUnblocksNextBusEvent(t *testing.T) {
	bus, _ := newTestBus(0)
	c := bus.Connect()
	done := make(chan error, 1)
	go func() {
		_, err := c.NextBusEvent(context.Background())
		done <- err
	}()
	c.Close()
	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("NextBusEvent did not unblock after Close")
	}
}

func TestRegisterFactoryRequiresGearsParam(t *testing.T) {
	reg := driver.NewRegistry()
	RegisterFactory(reg)
	_, err := reg.Open("sim")
	assert.Error(t, err)
}

func TestRegisterFactoryOpensSimulatedBus(t *testing.T) {
	reg := driver.NewRegistry()
	RegisterFactory(reg)
	d, err := reg.Open("sim:gears=2")
	require.NoError(t, err)
	defer d.Close()
}
