// Package config loads the optional YAML document CLI tools read before
// applying command-line overrides: the default driver spec string,
// discovery timeouts and retry counts. Flags always win over a loaded
// value, matching the teacher's flags-override-config pattern.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the full set of values a CLI tool may read from YAML.
type Config struct {
	// Driver is the default `--device` spec string when none is given
	// on the command line, e.g. "serial:path=/dev/ttyUSB0,baud=9600".
	Driver string `yaml:"driver"`

	// DiscoverRetries holds the file's discover_retries value. Nothing in
	// this repository reads it: discover.Discover uses its own fixed
	// per-address retry count.
	DiscoverRetries int `yaml:"discover_retries"`

	// DiscoverTimeoutMS holds the file's discover_timeout_ms value, in
	// milliseconds. Nothing in this repository reads it: discovery waits
	// for replies with the driver's own reply window.
	DiscoverTimeoutMS int `yaml:"discover_timeout_ms"`

	// LogLevel names the dalilog level ("debug", "info", "warn", "error").
	LogLevel string `yaml:"log_level"`
}

// Load reads and parses the YAML document at path. A missing file is not
// an error — it returns the zero Config, so callers can treat "no config
// file" the same as "default config".
func Load(path string) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(path) //nolint:gosec
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return cfg, nil
}

// OverrideDriver returns flagValue if it is non-empty, else cfg's
// configured default, else fallback.
func (cfg Config) OverrideDriver(flagValue, fallback string) string {
	if flagValue != "" {
		return flagValue
	}
	if cfg.Driver != "" {
		return cfg.Driver
	}
	return fallback
}
