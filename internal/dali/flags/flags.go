// Package flags describes the per-send attributes that accompany a forward
// frame: priority, whether the frame must be sent twice, and whether a
// backward frame is expected in reply.
package flags

import "fmt"

// Priority is a DALI bus priority, 1 (highest) through 5 (lowest).
type Priority uint8

const (
	Priority1 Priority = 1
	Priority2 Priority = 2
	Priority3 Priority = 3
	Priority4 Priority = 4
	Priority5 Priority = 5
)

func (p Priority) valid() bool { return p >= Priority1 && p <= Priority5 }

// Flags is an immutable description of how a frame should be sent. Built
// with With* methods rather than field assignment or bit-or composition, so
// a Flags value obtained from New and the With* methods is always valid
// (the zero value Flags{}, with priority 0, is not).
type Flags struct {
	priority    Priority
	sendTwice   bool
	expectReply bool
}

// New returns the default flags: priority 5, sent once, no reply expected.
func New() Flags {
	return Flags{priority: Priority5}
}

// WithPriority returns a copy of f with the given priority. Panics if
// priority is out of the 1..5 range, since callers pass a compile-time
// constant in practice.
func (f Flags) WithPriority(p Priority) Flags {
	if !p.valid() {
		panic(fmt.Sprintf("flags: invalid priority %d", p))
	}
	f.priority = p
	return f
}

// WithSendTwice returns a copy of f marked (or unmarked) to be sent twice.
func (f Flags) WithSendTwice(twice bool) Flags {
	f.sendTwice = twice
	return f
}

// WithExpectReply returns a copy of f marked (or unmarked) as expecting a
// backward frame in reply.
func (f Flags) WithExpectReply(expect bool) Flags {
	f.expectReply = expect
	return f
}

func (f Flags) Priority() Priority  { return f.priority }
func (f Flags) SendTwice() bool     { return f.sendTwice }
func (f Flags) ExpectReply() bool   { return f.expectReply }

func (f Flags) String() string {
	return fmt.Sprintf("priority=%d twice=%t reply=%t", f.priority, f.sendTwice, f.expectReply)
}
