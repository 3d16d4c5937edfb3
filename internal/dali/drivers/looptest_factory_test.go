package drivers

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluffware/go-dali/internal/dali/flags"
	"github.com/fluffware/go-dali/internal/dali/frame"
)

func TestLooptestDriverRoundTripsThroughFakeDongle(t *testing.T) {
	r := NewRegistry(nil)
	d, err := r.Open("looptest:gears=1")
	require.NoError(t, err)
	defer d.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	out := d.SendFrame(ctx, frame.Frame16{Addr: 0xff, Command: 0x90}, flags.New().WithExpectReply(true))
	assert.NoError(t, out.Err())
}
