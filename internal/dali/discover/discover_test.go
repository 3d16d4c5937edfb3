package discover

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluffware/go-dali/internal/dali/addr"
	"github.com/fluffware/go-dali/internal/dali/simulator"
)

func collect(t *testing.T, out <-chan Found, errc <-chan error) []Found {
	t.Helper()
	var found []Found
	for f := range out {
		found = append(found, f)
	}
	if err, ok := <-errc; ok && err != nil {
		require.NoError(t, err)
	}
	return found
}

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

func TestDiscoverFindsShortAddressedGear(t *testing.T) {
	bus, gears := newBus(1)
	gears[0].SetRandomAddress(0x0a0b0c)

	short, err := addr.NewShort(3)
	require.NoError(t, err)
	gears[0].SetShortAddress(short.Value())

	c := bus.Connect()
	defer c.Close()

	out, errc := Discover(context.Background(), c, nil)
	found := collect(t, out, errc)

	require.Len(t, found, 1)
	assert.True(t, found[0].HasShort)
	assert.True(t, found[0].HasRandom)
	assert.Equal(t, RandomAddress(0x0a0b0c), found[0].Random)
	assert.Equal(t, short.Value(), found[0].Short.Value())
}

func TestDiscoverFindsSingleUnaddressedGear(t *testing.T) {
	bus, gears := newBus(1)
	gears[0].SetRandomAddress(0x000123)

	c := bus.Connect()
	defer c.Close()

	out, errc := Discover(context.Background(), c, nil)
	found := collect(t, out, errc)

	require.Len(t, found, 1)
	assert.False(t, found[0].HasShort)
	assert.True(t, found[0].HasRandom)
	assert.Equal(t, RandomAddress(0x000123), found[0].Random)
	assert.False(t, found[0].RandomConflict)
}

func TestDiscoverFindsTwoUnaddressedGears(t *testing.T) {
	bus, gears := newBus(2)
	gears[0].SetRandomAddress(0x000100)
	gears[1].SetRandomAddress(0x00f000)

	c := bus.Connect()
	defer c.Close()

	out, errc := Discover(context.Background(), c, nil)
	found := collect(t, out, errc)

	require.Len(t, found, 2)
	seen := map[RandomAddress]bool{}
	for _, f := range found {
		assert.True(t, f.HasRandom)
		assert.False(t, f.RandomConflict)
		seen[f.Random] = true
	}
	assert.True(t, seen[0x000100])
	assert.True(t, seen[0x00f000])
}

func TestDiscoverReportsRandomAddressConflict(t *testing.T) {
	bus, gears := newBus(2)
	gears[0].SetRandomAddress(0x00abcd)
	gears[1].SetRandomAddress(0x00abcd)

	c := bus.Connect()
	defer c.Close()

	out, errc := Discover(context.Background(), c, nil)
	found := collect(t, out, errc)

	require.Len(t, found, 1)
	assert.True(t, found[0].RandomConflict)
	assert.Equal(t, RandomAddress(0x00abcd), found[0].Random)
}

func TestFoundStringVariants(t *testing.T) {
	short, _ := addr.NewShort(0)
	cases := []Found{
		{RandomConflict: true, Random: 1},
		{HasRandom: true, Random: 2, HasShort: true, Short: short},
		{HasShort: true, Short: short},
		{HasRandom: true, Random: 3},
	}
	for _, f := range cases {
		assert.NotEmpty(t, f.String())
	}
}
