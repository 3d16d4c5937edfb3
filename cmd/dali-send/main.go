// Command dali-send transmits a sequence of raw DALI frames given as hex
// strings on the command line, interleaved with optional wait steps
// (wNNN, a pause of NNN milliseconds), and prints the outcome of each
// frame sent.
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/fluffware/go-dali/internal/config"
	"github.com/fluffware/go-dali/internal/dali/drivers"
	"github.com/fluffware/go-dali/internal/dali/flags"
	"github.com/fluffware/go-dali/internal/dali/frame"
	"github.com/fluffware/go-dali/internal/dalilog"
)

type step struct {
	wait  time.Duration
	frame frame.Frame
}

func parseSteps(args []string) ([]step, error) {
	steps := make([]step, 0, len(args))
	for _, a := range args {
		if strings.HasPrefix(a, "w") || strings.HasPrefix(a, "W") {
			ms, err := strconv.Atoi(a[1:])
			if err != nil {
				return nil, fmt.Errorf("invalid wait step %q: %w", a, err)
			}
			steps = append(steps, step{wait: time.Duration(ms) * time.Millisecond})
			continue
		}
		f, err := parseFrame(a)
		if err != nil {
			return nil, fmt.Errorf("invalid frame %q: %w", a, err)
		}
		steps = append(steps, step{frame: f})
	}
	return steps, nil
}

// parseFrame decodes a hex string into a frame whose width is implied by
// its length: 2 hex digits for Frame8, 4 for Frame16, 6 for Frame24.
func parseFrame(s string) (frame.Frame, error) {
	raw, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return nil, err
	}
	switch len(s) {
	case 2:
		return frame.Frame8{Value: uint8(raw)}, nil
	case 4:
		return frame.Frame16{Addr: uint8(raw >> 8), Command: uint8(raw)}, nil
	case 6:
		return frame.Frame24{Addr: uint8(raw >> 16), Instance: uint8(raw >> 8), Opcode: uint8(raw)}, nil
	default:
		return nil, fmt.Errorf("expected 2, 4 or 6 hex digits, got %d", len(s))
	}
}

func main() {
	device := pflag.StringP("device", "d", "", "Driver spec, e.g. serial:path=/dev/ttyUSB0,baud=9600")
	configPath := pflag.StringP("config", "c", "", "Optional YAML config file providing a default device")
	answer := pflag.BoolP("answer", "a", false, "Expect a backward frame in reply")
	twice := pflag.BoolP("twice", "t", false, "Send every frame twice")
	priority := pflag.IntP("priority", "p", 3, "Priority 1 (highest) to 5 (lowest)")
	repeat := pflag.IntP("repeat", "r", 1, "Repeat the whole sequence this many times")
	debug := pflag.Bool("debug", false, "Enable debug logging")
	help := pflag.Bool("help", false, "Display help text")

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s - send raw DALI frames\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nUsage: %s [OPTIONS] CMD [CMD ...]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Each CMD is a hex frame (2, 4 or 6 digits) or a wait step wNNN (NNN milliseconds).\n")
		pflag.PrintDefaults()
	}
	pflag.Parse()

	if *help {
		pflag.Usage()
		os.Exit(0)
	}
	if len(pflag.Args()) == 0 {
		fmt.Fprintf(os.Stderr, "at least one CMD required\n")
		os.Exit(1)
	}
	if *priority < 1 || *priority > 5 {
		fmt.Fprintf(os.Stderr, "priority must be 1..5, got %d\n", *priority)
		os.Exit(1)
	}

	steps, err := parseSteps(pflag.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
	spec := cfg.OverrideDriver(*device, "sim:gears=1")

	logger := dalilog.New(dalilog.Options{Debug: *debug, Prefix: "dali-send"})

	d, err := drivers.NewRegistry(logger).Open(spec)
	if err != nil {
		fmt.Fprintf(os.Stderr, "opening %s: %s\n", spec, err)
		os.Exit(1)
	}
	defer d.Close()

	// The dongle firmware needs a moment to settle after the port opens
	// before it reliably answers the first command.
	time.Sleep(200 * time.Millisecond)

	fl := flags.New().
		WithPriority(flags.Priority(*priority)).
		WithSendTwice(*twice).
		WithExpectReply(*answer)

	ctx := context.Background()
	for i := 0; i < *repeat; i++ {
		for _, s := range steps {
			if s.frame == nil {
				time.Sleep(s.wait)
				continue
			}
			out := d.SendFrame(ctx, s.frame, fl)
			fmt.Printf("Result: %s\n", out)
		}
	}
}
