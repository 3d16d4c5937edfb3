package flags

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaults(t *testing.T) {
	f := New()
	assert.Equal(t, Priority5, f.Priority())
	assert.False(t, f.SendTwice())
	assert.False(t, f.ExpectReply())
}

func TestBuilderIsImmutable(t *testing.T) {
	base := New()
	withTwice := base.WithSendTwice(true)
	assert.False(t, base.SendTwice())
	assert.True(t, withTwice.SendTwice())
}

func TestWithPriorityPanicsOnInvalid(t *testing.T) {
	assert.Panics(t, func() {
		New().WithPriority(Priority(0))
	})
	assert.Panics(t, func() {
		New().WithPriority(Priority(6))
	})
}

func TestChaining(t *testing.T) {
	f := New().WithPriority(Priority1).WithSendTwice(true).WithExpectReply(true)
	assert.Equal(t, Priority1, f.Priority())
	assert.True(t, f.SendTwice())
	assert.True(t, f.ExpectReply())
}
