// Command dali-query reads back the configuration of one or a range of
// short addresses: control-gear status and level information, and
// optionally a control device's version and the part-102 memory bank 0
// identification block.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/fluffware/go-dali/internal/config"
	"github.com/fluffware/go-dali/internal/dali/addr"
	"github.com/fluffware/go-dali/internal/dali/drivers"
	"github.com/fluffware/go-dali/internal/dali/info"
	"github.com/fluffware/go-dali/internal/dalilog"
)

func main() {
	device := pflag.StringP("device", "d", "", "Driver spec, e.g. serial:path=/dev/ttyUSB0,baud=9600")
	configPath := pflag.StringP("config", "c", "", "Optional YAML config file providing a default device")
	memoryBanks := pflag.BoolP("memory-banks", "m", false, "Also read and print memory bank 0")
	control := pflag.BoolP("control", "C", false, "Query as a control device instead of a control gear")
	debug := pflag.Bool("debug", false, "Enable debug logging")
	help := pflag.Bool("help", false, "Display help text")

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s - read back gear or control device configuration\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nUsage: %s [OPTIONS] ADDR [END_ADDR]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "ADDR and END_ADDR are short addresses in display form (1-64).\n")
		fmt.Fprintf(os.Stderr, "If END_ADDR is given every address from ADDR to END_ADDR is queried.\n")
		pflag.PrintDefaults()
	}
	pflag.Parse()

	if *help {
		pflag.Usage()
		os.Exit(0)
	}
	args := pflag.Args()
	if len(args) < 1 || len(args) > 2 {
		fmt.Fprintf(os.Stderr, "one or two arguments required (ADDR [END_ADDR]), got %v\n", args)
		os.Exit(1)
	}

	start, err := addr.ShortFromString(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid ADDR: %s\n", err)
		os.Exit(1)
	}
	end := start
	if len(args) == 2 {
		end, err = addr.ShortFromString(args[1])
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid END_ADDR: %s\n", err)
			os.Exit(1)
		}
		if end.Value() < start.Value() {
			fmt.Fprintf(os.Stderr, "END_ADDR must not be before ADDR\n")
			os.Exit(1)
		}
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
	spec := cfg.OverrideDriver(*device, "sim:gears=1")

	logger := dalilog.New(dalilog.Options{Debug: *debug, Prefix: "dali-query"})

	d, err := drivers.NewRegistry(logger).Open(spec)
	if err != nil {
		fmt.Fprintf(os.Stderr, "opening %s: %s\n", spec, err)
		os.Exit(1)
	}
	defer d.Close()

	ctx := context.Background()

	for v := start.Value(); ; v++ {
		short, _ := addr.NewShort(v)
		a := addr.FromShort(short)

		if *control {
			ci, err := info.ReadControlInfo(ctx, d, a)
			if err != nil {
				fmt.Fprintf(os.Stderr, "address %s: %s\n", short, err)
				os.Exit(1)
			}
			fmt.Printf("%s: version=%#02x has_version=%t\n", short, ci.Version, ci.HasVersion)
		} else {
			gi, err := info.ReadGearInfo(ctx, d, a)
			if err != nil {
				fmt.Fprintf(os.Stderr, "address %s: %s\n", short, err)
				os.Exit(1)
			}
			fmt.Printf("%s: %s\n", short, gi)
		}

		if *memoryBanks {
			bank0, err := info.ReadMemoryBank0(ctx, d, a)
			if err != nil {
				fmt.Printf("  memory bank 0: %s\n", err)
			} else {
				fmt.Printf("  memory bank 0: %s\n", bank0)
			}
		}

		if v == end.Value() {
			break
		}
	}
}
