// Command dali-discover enumerates every gear on the bus, reporting each
// one's random and short address (or a conflict), and can optionally
// clear conflicting short addresses or allocate fresh ones to
// unaddressed gears it finds.
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
	clearConflicts := pflag.Bool("clear-conflicts", false, "Clear the short address of every gear reporting a short-address conflict")
	allocate := pflag.Bool("allocate", false, "Assign an unused short address to every gear found with none")
	debug := pflag.Bool("debug", false, "Enable debug logging")
	help := pflag.Bool("help", false, "Display help text")

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s - discover gears on the bus\n", os.Args[0])
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

	logger := dalilog.New(dalilog.Options{Debug: *debug, Prefix: "dali-discover"})

	d, err := drivers.NewRegistry(logger).Open(spec)
	if err != nil {
		fmt.Fprintf(os.Stderr, "opening %s: %s\n", spec, err)
		os.Exit(1)
	}
	defer d.Close()

	ctx := context.Background()

	out, errc := discover.Discover(ctx, d, logger)
	var found []discover.Found
	for f := range out {
		fmt.Println(f)
		found = append(found, f)
	}
	if err := <-errc; err != nil {
		fmt.Fprintf(os.Stderr, "discovery failed: %s\n", err)
		os.Exit(1)
	}

	if *clearConflicts {
		if err := clearShortConflicts(ctx, d, found); err != nil {
			fmt.Fprintf(os.Stderr, "clearing conflicts: %s\n", err)
			os.Exit(1)
		}
	}

	if *allocate {
		if err := allocateShortAddresses(ctx, d, found); err != nil {
			fmt.Fprintf(os.Stderr, "allocating addresses: %s\n", err)
			os.Exit(1)
		}
	}
}

func sendSpecial(ctx context.Context, d driver.Driver, c gear.Command) driver.SendOutcome {
	fl := flags.New().WithPriority(flags.Priority1).WithExpectReply(c.Answers())
	out := d.SendFrame(ctx, c.Frame(), fl)
	if c.Twice() && out.Err() == nil {
		out = d.SendFrame(ctx, c.Frame(), fl)
	}
	return out
}

// clearShortConflicts initialises every gear, then clears the short
// address of each gear discover found, by random address, at a short
// address reported as conflicting, and finally releases the bus.
func clearShortConflicts(ctx context.Context, d driver.Driver, found []discover.Found) error {
	if out := sendSpecial(ctx, d, gear.InitialiseAll()); out.Err() != nil {
		return out.Err()
	}
	defer sendSpecial(ctx, d, gear.Terminate())

	conflicts := make(map[uint8]bool)
	for _, f := range found {
		if f.ShortConflict {
			conflicts[f.Short.Value()] = true
		}
	}
	for _, f := range found {
		if !f.HasRandom || f.RandomConflict || !f.HasShort || !conflicts[f.Short.Value()] {
			continue
		}
		if err := assign.ClearShortAddress(ctx, d, f.Random); err != nil {
			return err
		}
		fmt.Printf("cleared conflicting short address %s\n", f.Short)
	}
	return nil
}

// allocateShortAddresses initialises every unaddressed gear, then
// programs the next free short address slot onto each one found by
// discover with no short address, and finally releases the bus.
func allocateShortAddresses(ctx context.Context, d driver.Driver, found []discover.Found) error {
	used := make(map[uint8]bool)
	for _, f := range found {
		if f.HasShort {
			used[f.Short.Value()] = true
		}
	}
	nextFree := func() (addr.Short, bool) {
		for v := uint8(0); v < 64; v++ {
			if !used[v] {
				s, err := addr.NewShort(v)
				if err == nil {
					return s, true
				}
			}
		}
		return addr.Short{}, false
	}

	if out := sendSpecial(ctx, d, gear.InitialiseNoAddr()); out.Err() != nil {
		return out.Err()
	}
	defer sendSpecial(ctx, d, gear.Terminate())

	for _, f := range found {
		if f.HasShort || f.RandomConflict {
			continue
		}
		short, ok := nextFree()
		if !ok {
			return fmt.Errorf("no free short addresses remain")
		}
		if err := assign.ProgramShortAddress(ctx, d, f.Random, short); err != nil {
			return err
		}
		used[short.Value()] = true
		fmt.Printf("assigned short address %s to random %06x\n", short, f.Random)
	}
	return nil
}
