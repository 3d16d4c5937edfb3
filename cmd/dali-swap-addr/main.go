// Command dali-swap-addr exchanges the short addresses of two gears
// already on the bus, without a full rediscovery: it reads back each
// gear's random address through its current short address, then
// reprograms both short addresses the other way round.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/fluffware/go-dali/internal/config"
	"github.com/fluffware/go-dali/internal/dali/addr"
	"github.com/fluffware/go-dali/internal/dali/assign"
	"github.com/fluffware/go-dali/internal/dali/discover"
	"github.com/fluffware/go-dali/internal/dali/driver"
	"github.com/fluffware/go-dali/internal/dali/drivers"
	"github.com/fluffware/go-dali/internal/dali/flags"
	"github.com/fluffware/go-dali/internal/dali/gear"
	"github.com/fluffware/go-dali/internal/dalilog"
)

func main() {
	device := pflag.StringP("device", "d", "", "Driver spec, e.g. serial:path=/dev/ttyUSB0,baud=9600")
	configPath := pflag.StringP("config", "c", "", "Optional YAML config file providing a default device")
	debug := pflag.Bool("debug", false, "Enable debug logging")
	help := pflag.Bool("help", false, "Display help text")

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s - swap the short addresses of two gears\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nUsage: %s [OPTIONS] ADDR1 ADDR2\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "ADDR1 and ADDR2 are short addresses in display form (1-64).\n")
		pflag.PrintDefaults()
	}
	pflag.Parse()

	if *help {
		pflag.Usage()
		os.Exit(0)
	}
	if len(pflag.Args()) != 2 {
		fmt.Fprintf(os.Stderr, "exactly two arguments required (ADDR1 ADDR2), got %v\n", pflag.Args())
		os.Exit(1)
	}

	short1, err := addr.ShortFromString(pflag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid ADDR1: %s\n", err)
		os.Exit(1)
	}
	short2, err := addr.ShortFromString(pflag.Arg(1))
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid ADDR2: %s\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
	spec := cfg.OverrideDriver(*device, "sim:gears=1")

	logger := dalilog.New(dalilog.Options{Debug: *debug, Prefix: "dali-swap-addr"})

	d, err := drivers.NewRegistry(logger).Open(spec)
	if err != nil {
		fmt.Fprintf(os.Stderr, "opening %s: %s\n", spec, err)
		os.Exit(1)
	}
	defer d.Close()

	ctx := context.Background()

	long1, out1 := discover.QueryRandomAddress(ctx, d, short1)
	if err := checkQuery(short1, out1); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
	fmt.Printf("short %s -> random %06x\n", short1, long1)

	long2, out2 := discover.QueryRandomAddress(ctx, d, short2)
	if err := checkQuery(short2, out2); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
	fmt.Printf("short %s -> random %06x\n", short2, long2)

	// PROGRAM_SHORT_ADDRESS and QUERY_SHORT_ADDRESS only act on gears in
	// initialisation, so the swap runs between INITIALISE_ALL and TERMINATE.
	fl := flags.New().WithPriority(flags.Priority1)
	for i := 0; i < 2; i++ {
		if out := d.SendFrame(ctx, gear.InitialiseAll().Frame(), fl); out.Err() != nil {
			fmt.Fprintf(os.Stderr, "initialise failed: %s\n", out.Err())
			os.Exit(1)
		}
	}
	err = assign.Swap(ctx, d, []assign.Remap{
		{Long: long1, New: short2},
		{Long: long2, New: short1},
	})
	d.SendFrame(ctx, gear.Terminate().Frame(), fl)
	if err != nil {
		fmt.Fprintf(os.Stderr, "swap failed: %s\n", err)
		os.Exit(1)
	}

	fmt.Printf("swapped: %s now has random %06x, %s now has random %06x\n", short2, long1, short1, long2)
}

func checkQuery(short addr.Short, out driver.SendOutcome) error {
	if out.NoDevice() {
		return fmt.Errorf("no gear answers at short address %s", short)
	}
	if err := out.Err(); err != nil {
		return fmt.Errorf("querying short address %s: %w", short, err)
	}
	return nil
}
