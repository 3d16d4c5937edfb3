package hotplug

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEventTypesAreDistinct(t *testing.T) {
	assert.NotEqual(t, EventAdd, EventRemove)
}

func TestFindReturnsEmptyWhenNoDeviceMatches(t *testing.T) {
	// A vendor/product pair unlikely to be attached to any test host.
	node, err := Find("ffff", "ffff")
	if err != nil {
		t.Skipf("udev unavailable in this environment: %v", err)
	}
	assert.Equal(t, "", node)
}
