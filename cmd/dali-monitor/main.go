// Command dali-monitor prints every frame and bus condition observed on
// the bus as it happens, along with the elapsed time since the
// previous event.
package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/fluffware/go-dali/internal/config"
	"github.com/fluffware/go-dali/internal/dali/drivers"
	"github.com/fluffware/go-dali/internal/dalilog"
)

func main() {
	device := pflag.StringP("device", "d", "", "Driver spec, e.g. serial:path=/dev/ttyUSB0,baud=9600")
	configPath := pflag.StringP("config", "c", "", "Optional YAML config file providing a default device")
	debug := pflag.Bool("debug", false, "Enable debug logging")
	help := pflag.Bool("help", false, "Display help text")

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s - monitor bus traffic\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nUsage: %s [OPTIONS]\n\n", os.Args[0])
		pflag.PrintDefaults()
	}
	pflag.Parse()

	if *help {
		pflag.Usage()
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
	spec := cfg.OverrideDriver(*device, "sim:gears=1")

	logger := dalilog.New(dalilog.Options{Debug: *debug, Prefix: "dali-monitor"})

	d, err := drivers.NewRegistry(logger).Open(spec)
	if err != nil {
		fmt.Fprintf(os.Stderr, "opening %s: %s\n", spec, err)
		os.Exit(1)
	}
	defer d.Close()

	ctx := context.Background()
	last := time.Time{}

	for {
		evt, err := d.NextBusEvent(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "monitor: %s\n", err)
			os.Exit(1)
		}

		var elapsed time.Duration
		if !last.IsZero() {
			elapsed = evt.Timestamp.Sub(last)
		}
		last = evt.Timestamp

		if evt.Frame != nil {
			fmt.Printf("+%8dms %-12s %s %s\n",
				elapsed.Milliseconds(), evt.Type, hex.EncodeToString(evt.Frame.Bytes()), evt.Frame)
		} else {
			fmt.Printf("+%8dms %-12s\n", elapsed.Milliseconds(), evt.Type)
		}
	}
}
