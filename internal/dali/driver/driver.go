// Package driver defines the abstract DALI driver interface, its typed
// errors, and a named registry for opening concrete drivers by a
// "name:key=value,..." spec string.
package driver

import (
	"context"
	"time"

	"github.com/fluffware/go-dali/internal/dali/flags"
	"github.com/fluffware/go-dali/internal/dali/frame"
)

// Driver is the abstraction every concrete adapter (serial, GPIO, the
// simulator, ...) implements. A single worker owns the bus; callers must
// not share a Driver across concurrent SendFrame calls without an
// external lock, since ordering guarantees only hold for calls issued in
// submission order.
type Driver interface {
	// SendFrame submits one frame for transmission and blocks until the
	// outcome is known. Cancelling ctx must not leave the bus in a broken
	// state: an in-flight wire transaction is either completed or timed
	// out by the worker and its result discarded, never aborted mid-wire.
	SendFrame(ctx context.Context, f frame.Frame, fl flags.Flags) SendOutcome

	// NextBusEvent blocks until the next observed frame or bus condition.
	// A single consumer is assumed per driver instance.
	NextBusEvent(ctx context.Context) (frame.BusEvent, error)

	// CurrentTimestamp returns the driver's current bus time.
	CurrentTimestamp() time.Time

	// WaitUntil blocks until the driver's bus time reaches t, or ctx is
	// cancelled.
	WaitUntil(ctx context.Context, t time.Time) error

	// Close signals the worker to finish in-flight work and stop. Any
	// requests still queued complete with a DriverError outcome.
	Close() error
}
