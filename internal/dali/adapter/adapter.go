// Package adapter implements the reference adapter driver: a worker
// goroutine bridging the abstract driver.Driver interface to a byte-stream
// transport, with sequence correlation, reply timeouts and event fan-out.
package adapter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/fluffware/go-dali/internal/dali/driver"
	"github.com/fluffware/go-dali/internal/dali/flags"
	"github.com/fluffware/go-dali/internal/dali/frame"
)

const (
	requestQueueCapacity = 10
	eventQueueCapacity   = 10
	replyDeadline        = time.Second
	resyncAge            = 200 * time.Millisecond
)

// Transport is the byte-stream the worker reads frames from and writes
// encoded commands to. A concrete serial/GPIO/pty connection satisfies
// this with no adaptation beyond opening the device.
type Transport interface {
	io.Reader
	io.Writer
	io.Closer
}

// Codec translates between frame.Frame values and the wire bytes a
// concrete transport carries, since different adapters speak different
// host-to-dongle protocols atop the same DALI bus semantics.
type Codec interface {
	// Encode returns the bytes to write for f tagged with sequence seq, or
	// an error if f's width is unsupported by this adapter.
	Encode(seq uint8, f frame.Frame, fl flags.Flags) ([]byte, error)
	// Decode consumes leading bytes of buf that form one complete reply,
	// returning the sequence byte (0 = unsolicited), the decoded event (if
	// any), the outcome payload byte (if a transaction reply), and the
	// number of bytes consumed. ok is false when buf does not yet hold a
	// complete frame.
	Decode(buf []byte) (seq uint8, ev *frame.BusEvent, answer uint8, hasAnswer bool, consumed int, ok bool)
}

type request struct {
	frame frame.Frame
	flags flags.Flags
	reply chan driver.SendOutcome
}

// Driver is a concrete driver.Driver backed by a Transport and Codec.
type Driver struct {
	transport Transport
	codec     Codec
	logger    *log.Logger

	requests chan request
	events   chan frame.BusEvent
	done     chan struct{}
	closed   chan struct{}
}

// Open starts the worker goroutine over transport, using codec to frame
// the wire protocol.
func Open(transport Transport, codec Codec, logger *log.Logger) *Driver {
	if logger == nil {
		logger = log.Default()
	}
	d := &Driver{
		transport: transport,
		codec:     codec,
		logger:    logger,
		requests:  make(chan request, requestQueueCapacity),
		events:    make(chan frame.BusEvent, eventQueueCapacity),
		done:      make(chan struct{}),
		closed:    make(chan struct{}),
	}
	go d.run()
	return d
}

// SendFrame implements driver.Driver.
func (d *Driver) SendFrame(ctx context.Context, f frame.Frame, fl flags.Flags) driver.SendOutcome {
	reply := make(chan driver.SendOutcome, 1)
	req := request{frame: f, flags: fl, reply: reply}

	// Once closed, the worker no longer drains the buffered queue.
	select {
	case <-d.done:
		return driver.DriverError(errors.New("no queue"))
	default:
	}

	select {
	case d.requests <- req:
	case <-d.done:
		return driver.DriverError(errors.New("no queue"))
	case <-ctx.Done():
		return driver.DriverError(ctx.Err())
	}

	select {
	case out := <-reply:
		return out
	case <-d.closed:
		// The worker has exited; take its reply if it sent one.
		select {
		case out := <-reply:
			return out
		default:
			return driver.DriverError(errors.New("no queue"))
		}
	case <-ctx.Done():
		// The worker still owns the in-flight wire transaction; it will
		// complete or time it out and discard the result. We only stop
		// waiting for it here.
		return driver.DriverError(ctx.Err())
	}
}

// NextBusEvent implements driver.Driver.
func (d *Driver) NextBusEvent(ctx context.Context) (frame.BusEvent, error) {
	select {
	case ev := <-d.events:
		return ev, nil
	case <-d.done:
		return frame.BusEvent{}, errors.New("driver closed")
	case <-ctx.Done():
		return frame.BusEvent{}, ctx.Err()
	}
}

// CurrentTimestamp implements driver.Driver.
func (d *Driver) CurrentTimestamp() time.Time { return time.Now() }

// WaitUntil implements driver.Driver.
func (d *Driver) WaitUntil(ctx context.Context, t time.Time) error {
	timer := time.NewTimer(time.Until(t))
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close implements driver.Driver: it stops accepting new requests and
// joins the worker.
func (d *Driver) Close() error {
	close(d.done)
	<-d.closed
	return d.transport.Close()
}

func (d *Driver) run() {
	defer close(d.closed)

	readErrs := make(chan error, 1)
	reads := make(chan []byte, 1)
	go d.readLoop(reads, readErrs)

	var buf []byte
	var bufStamp time.Time
	var inFlight *request
	var inFlightSeq uint8
	var deadline <-chan time.Time
	var deadlineTimer *time.Timer
	var seq uint8 = 1

	stopDeadline := func() {
		if deadlineTimer != nil {
			deadlineTimer.Stop()
			deadlineTimer = nil
		}
		deadline = nil
	}
	defer stopDeadline()

	fail := func(err error) {
		for {
			select {
			case req := <-d.requests:
				req.reply <- driver.DriverError(err)
			default:
				return
			}
		}
	}

	for {
		select {
		case <-d.done:
			if inFlight != nil {
				inFlight.reply <- driver.DriverError(errors.New("no queue"))
			}
			fail(errors.New("no queue"))
			return

		case req := <-d.requests:
			if inFlight != nil {
				// Shouldn't happen: the worker only reads a new request
				// once the in-flight one completes. Defensive drop.
				continue
			}
			encoded, err := d.codec.Encode(seq, req.frame, req.flags)
			if err != nil {
				req.reply <- driver.DriverError(err)
				continue
			}
			if _, err := d.transport.Write(encoded); err != nil {
				req.reply <- driver.DriverError(err)
				continue
			}
			r := req
			inFlight = &r
			inFlightSeq = seq
			seq = nextSeq(seq)
			deadlineTimer = time.NewTimer(replyDeadline)
			deadline = deadlineTimer.C

		case <-deadline:
			if inFlight != nil {
				d.logger.Debug("reply deadline expired", "seq", inFlightSeq)
				inFlight.reply <- driver.Timeout()
				inFlight = nil
			}
			stopDeadline()

		case chunk, ok := <-reads:
			if !ok {
				continue
			}
			now := time.Now()
			if len(buf) > 0 && now.Sub(bufStamp) > resyncAge {
				d.logger.Debug("discarding stale buffer", "age", now.Sub(bufStamp))
				buf = nil
			}
			buf = append(buf, chunk...)
			bufStamp = now
			buf = d.drainBuffer(buf, &inFlight, inFlightSeq, stopDeadline)

		case err := <-readErrs:
			d.logger.Error("transport read failed", "err", err)
			if inFlight != nil {
				inFlight.reply <- driver.DriverError(err)
				inFlight = nil
				stopDeadline()
			}
			fail(err)
			return
		}
	}
}

func (d *Driver) drainBuffer(buf []byte, inFlight **request, inFlightSeq uint8, stopDeadline func()) []byte {
	for {
		seq, ev, answer, hasAnswer, consumed, ok := d.codec.Decode(buf)
		if !ok {
			return buf
		}
		buf = buf[consumed:]

		switch {
		case seq == 0:
			if ev != nil {
				d.pushEvent(*ev)
			}
		case *inFlight != nil && seq == inFlightSeq:
			req := *inFlight
			*inFlight = nil
			stopDeadline()
			if hasAnswer {
				req.reply <- driver.Answer(answer)
			} else {
				req.reply <- driver.OK()
			}
		default:
			d.logger.Debug("reply sequence mismatch, dropping", "seq", seq)
		}
	}
}

func (d *Driver) pushEvent(ev frame.BusEvent) {
	select {
	case d.events <- ev:
	default:
		// Event queue is full: substitute Overrun for the oldest unread
		// event rather than blocking the worker on a lagging consumer.
		select {
		case <-d.events:
		default:
		}
		select {
		case d.events <- frame.BusEvent{Type: frame.EventOverrun, Timestamp: ev.Timestamp}:
		default:
		}
	}
}

func (d *Driver) readLoop(out chan<- []byte, errs chan<- error) {
	buf := make([]byte, 256)
	for {
		n, err := d.transport.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			select {
			case out <- chunk:
			case <-d.done:
				return
			}
		}
		if err != nil {
			select {
			case errs <- err:
			case <-d.done:
			}
			return
		}
	}
}

func nextSeq(seq uint8) uint8 {
	seq++
	if seq == 0 {
		seq = 1
	}
	return seq
}

// RejectWidth returns a DriverError outcome for a frame width the adapter
// does not support, per the submission-time rejection contract.
func RejectWidth(width int) driver.SendOutcome {
	return driver.DriverError(fmt.Errorf("adapter: unsupported frame width %d", width))
}
