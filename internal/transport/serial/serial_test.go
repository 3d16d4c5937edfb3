package serial

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluffware/go-dali/internal/transport/looptest"
)

func TestOpenRejectsUnsupportedBaud(t *testing.T) {
	pair, err := looptest.Open()
	require.NoError(t, err)
	defer pair.Close()

	_, err = Open(pair.DevicePath, 4321)
	assert.Error(t, err)
}

func TestWriteAndReadRoundTrip(t *testing.T) {
	pair, err := looptest.Open()
	require.NoError(t, err)
	defer pair.Close()

	tr, err := Open(pair.DevicePath, 0)
	require.NoError(t, err)
	defer tr.Close()

	go func() {
		_, _ = pair.Write([]byte("hello"))
	}()

	buf := make([]byte, 5)
	done := make(chan struct{})
	go func() {
		_, _ = tr.Read(buf)
		close(done)
	}()

	select {
	case <-done:
		assert.Equal(t, "hello", string(buf))
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for loopback read")
	}
}
