// Package config reads the YAML configuration for the spicl tool.
package config

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/exp/slices"
	"gopkg.in/yaml.v3"
)

// DeviceConfig names the SPI device node and the bus parameters to negotiate.
// A zero Mode, Bits or SpeedHz leaves the corresponding hardware default
// untouched.
type DeviceConfig struct {
	Path    string `yaml:"Path"`
	Mode    uint8  `yaml:"Mode"`
	Bits    uint8  `yaml:"Bits"`
	SpeedHz uint32 `yaml:"SpeedHz"`
}

// LoggingConfig configures the slog setup.
type LoggingConfig struct {
	Level  string `yaml:"Level"`
	Format string `yaml:"Format"`
	File   string `yaml:"File"`
}

// MuxGPIO is one chip-select pin group: Low pins are driven low and High pins
// high before a transfer for the named device runs.
type MuxGPIO struct {
	Low  []int `yaml:"Low"`
	High []int `yaml:"High"`
}

type Config struct {
	Device  DeviceConfig       `yaml:"Device"`
	Logging LoggingConfig      `yaml:"Logging"`
	MuxGPIO map[string]MuxGPIO `yaml:"MuxGPIO"`
}

var (
	validLevels  = []string{"DEBUG", "INFO", "WARN", "ERROR"}
	validFormats = []string{"text", "json"}
)

// Default returns the configuration used when no config file is given.
func Default() *Config {
	conf := &Config{}
	conf.applyDefaults()
	return conf
}

// Read loads and validates a configuration file.
func Read(cfile string) (*Config, error) {
	f, err := os.Open(cfile)
	if err != nil {
		return nil, fmt.Errorf("can't open config file %s: %w", cfile, err)
	}
	defer f.Close()

	decoder := yaml.NewDecoder(f)
	decoder.KnownFields(true)

	var conf Config
	if err := decoder.Decode(&conf); err != nil {
		return nil, fmt.Errorf("can't decode config file %s: %w", cfile, err)
	}

	conf.applyDefaults()
	if err := conf.validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", cfile, err)
	}
	return &conf, nil
}

func (c *Config) applyDefaults() {
	if c.Device.Path == "" {
		c.Device.Path = "/dev/spidev0.0"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "INFO"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

func (c *Config) validate() error {
	if !slices.Contains(validLevels, strings.ToUpper(c.Logging.Level)) {
		return fmt.Errorf("unknown log level %q (want one of %v)", c.Logging.Level, validLevels)
	}
	if !slices.Contains(validFormats, strings.ToLower(c.Logging.Format)) {
		return fmt.Errorf("unknown log format %q (want one of %v)", c.Logging.Format, validFormats)
	}
	for name, gpio := range c.MuxGPIO {
		for _, pin := range append(append([]int{}, gpio.Low...), gpio.High...) {
			if pin < 0 || pin > 53 {
				return fmt.Errorf("mux group %q: GPIO pin %d out of range", name, pin)
			}
		}
	}
	return nil
}
