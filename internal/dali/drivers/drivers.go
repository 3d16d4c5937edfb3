// Package drivers registers every concrete driver.Driver factory the
// cmd/dali-* binaries open by spec string, the same "name:key=value"
// registry the teacher's driver abstraction already defines. It is the
// one place that wires the simulator and every domain-stack transport
// together, so main() in each binary stays a thin flag-and-call shell.
package drivers

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/log"

	"github.com/fluffware/go-dali/internal/dali/adapter"
	"github.com/fluffware/go-dali/internal/dali/driver"
	"github.com/fluffware/go-dali/internal/dali/rpicodec"
	"github.com/fluffware/go-dali/internal/dali/simulator"
	"github.com/fluffware/go-dali/internal/transport/gpio"
	"github.com/fluffware/go-dali/internal/transport/looptest"
	"github.com/fluffware/go-dali/internal/transport/serial"
)

// NewRegistry returns a registry with "sim", "serial", "gpio" and
// "looptest" factories registered, logging worker activity through
// logger (may be nil to use the package default).
func NewRegistry(logger *log.Logger) *driver.Registry {
	r := driver.NewRegistry()
	r.Register("sim", simFactory)
	r.Register("serial", serialFactory(logger))
	r.Register("gpio", gpioFactory(logger))
	r.Register("looptest", looptestFactory(logger))
	return r
}

func intParam(params map[string]string, key string, def int) (int, error) {
	raw, ok := params[key]
	if !ok || raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &driver.ParameterError{Msg: fmt.Sprintf("%s must be an integer, got %q", key, raw)}
	}
	return v, nil
}

// simFactory builds an in-process simulated bus: "sim:gears=N,seed=S".
func simFactory(params map[string]string) (driver.Driver, error) {
	n, err := intParam(params, "gears", 1)
	if err != nil {
		return nil, err
	}
	seed, err := intParam(params, "seed", 1)
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, &driver.ParameterError{Msg: "gears must be >= 0"}
	}

	bus := simulator.NewBus(simulator.RealClock{})
	for i := 0; i < n; i++ {
		bus.AddGear(simulator.NewGear(int64(seed) + int64(i)))
	}
	return bus.Connect(), nil
}

// serialFactory builds a real dongle connection: "serial:path=/dev/ttyUSB0,baud=9600".
func serialFactory(logger *log.Logger) driver.Factory {
	return func(params map[string]string) (driver.Driver, error) {
		path, ok := params["path"]
		if !ok || path == "" {
			return nil, &driver.ParameterError{Msg: "serial driver requires path=<device>"}
		}
		baud, err := intParam(params, "baud", 9600)
		if err != nil {
			return nil, err
		}
		tr, err := serial.Open(path, baud)
		if err != nil {
			return nil, &driver.OpenError{Cause: err}
		}
		return adapter.Open(tr, rpicodec.Codec{}, logger), nil
	}
}

// gpioFactory builds a bit-banged GPIO connection:
// "gpio:chip=gpiochip0,tx=17,rx=27,baud=9600".
func gpioFactory(logger *log.Logger) driver.Factory {
	return func(params map[string]string) (driver.Driver, error) {
		chip, ok := params["chip"]
		if !ok || chip == "" {
			return nil, &driver.ParameterError{Msg: "gpio driver requires chip=<gpiochipN>"}
		}
		tx, err := intParam(params, "tx", -1)
		if err != nil {
			return nil, err
		}
		rx, err := intParam(params, "rx", -1)
		if err != nil {
			return nil, err
		}
		if tx < 0 || rx < 0 {
			return nil, &driver.ParameterError{Msg: "gpio driver requires tx=<offset> and rx=<offset>"}
		}
		baud, err := intParam(params, "baud", 0)
		if err != nil {
			return nil, err
		}
		tr, err := gpio.Open(gpio.Config{Chip: chip, TxOffset: tx, RxOffset: rx, BaudRate: baud})
		if err != nil {
			return nil, &driver.OpenError{Cause: err}
		}
		return adapter.Open(tr, rpicodec.Codec{}, logger), nil
	}
}

// looptestFactory builds a hardware-free driver for demos and smoke
// tests: it opens a pty pair, runs an in-process simulated bus behind a
// fake-dongle responder on the master side, and hands the slave side to
// the same serial transport a real dongle would use. Spec:
// "looptest:gears=N,seed=S".
func looptestFactory(logger *log.Logger) driver.Factory {
	return func(params map[string]string) (driver.Driver, error) {
		n, err := intParam(params, "gears", 1)
		if err != nil {
			return nil, err
		}
		seed, err := intParam(params, "seed", 1)
		if err != nil {
			return nil, err
		}

		pair, err := looptest.Open()
		if err != nil {
			return nil, &driver.OpenError{Cause: err}
		}

		bus := simulator.NewBus(simulator.RealClock{})
		for i := 0; i < n; i++ {
			bus.AddGear(simulator.NewGear(int64(seed) + int64(i)))
		}

		ctx, cancel := context.WithCancel(context.Background())
		go runFakeDongle(ctx, pair, bus)

		// Give the kernel pty a moment to settle before a second open.
		time.Sleep(10 * time.Millisecond)

		tr, err := serial.Open(pair.DevicePath, 0)
		if err != nil {
			cancel()
			pair.Close()
			return nil, &driver.OpenError{Cause: err}
		}

		d := adapter.Open(&closingTransport{Transport: tr, onClose: func() {
			cancel()
			pair.Close()
		}}, rpicodec.Codec{}, logger)
		return d, nil
	}
}

// closingTransport runs an extra cleanup hook when the wrapped transport
// closes, so looptestFactory can tear down its responder goroutine and
// pty pair alongside the adapter's own Close.
type closingTransport struct {
	*serial.Transport
	onClose func()
}

func (c *closingTransport) Close() error {
	err := c.Transport.Close()
	c.onClose()
	return err
}
