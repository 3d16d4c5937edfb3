package assign

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluffware/go-dali/internal/dali/addr"
	"github.com/fluffware/go-dali/internal/dali/discover"
	"github.com/fluffware/go-dali/internal/dali/simulator"
)

func newBus(n int) (*simulator.Bus, []*simulator.Gear) {
	clock := simulator.NewVirtualClock(time.Unix(0, 0))
	bus := simulator.NewBus(clock)
	gears := make([]*simulator.Gear, n)
	for i := range gears {
		gears[i] = simulator.NewGear(int64(i) + 1)
		bus.AddGear(gears[i])
	}
	return bus, gears
}

// enable puts a gear into the Enabled init state, as INITIALISE would,
// without driving the bus — the assign package itself never issues
// INITIALISE (that's discover's job), so tests arrange it directly.
func enable(g *simulator.Gear) {
	now := time.Now()
	g.HandleFrame(now, 0xa5, 0x00)
	g.HandleFrame(now.Add(time.Millisecond), 0xa5, 0x00)
}

func TestProgramShortAddressWritesAndVerifies(t *testing.T) {
	bus, gears := newBus(1)
	gears[0].SetRandomAddress(0x0a0b0c)
	enable(gears[0])

	c := bus.Connect()
	defer c.Close()

	short, err := addr.NewShort(5)
	require.NoError(t, err)

	err = ProgramShortAddress(context.Background(), c, discover.RandomAddress(0x0a0b0c), short)
	require.NoError(t, err)
	assert.Equal(t, short.Value(), gears[0].ShortAddress())
}

func TestClearShortAddressRemovesIt(t *testing.T) {
	bus, gears := newBus(1)
	gears[0].SetRandomAddress(0x0a0b0c)
	gears[0].SetShortAddress(5)
	enable(gears[0])

	c := bus.Connect()
	defer c.Close()

	err := ClearShortAddress(context.Background(), c, discover.RandomAddress(0x0a0b0c))
	require.NoError(t, err)
	assert.Equal(t, simulator.NoAddress, gears[0].ShortAddress())
}

func TestSwapExchangesTwoShortAddresses(t *testing.T) {
	bus, gears := newBus(2)
	gears[0].SetRandomAddress(0x000111)
	gears[0].SetShortAddress(1)
	gears[1].SetRandomAddress(0x000222)
	gears[1].SetShortAddress(2)
	enable(gears[0])
	enable(gears[1])

	c := bus.Connect()
	defer c.Close()

	short1, err := addr.NewShort(2)
	require.NoError(t, err)
	short2, err := addr.NewShort(1)
	require.NoError(t, err)

	err = Swap(context.Background(), c, []Remap{
		{Long: discover.RandomAddress(0x000111), New: short1},
		{Long: discover.RandomAddress(0x000222), New: short2},
	})
	require.NoError(t, err)
	assert.Equal(t, uint8(2), gears[0].ShortAddress())
	assert.Equal(t, uint8(1), gears[1].ShortAddress())
}
