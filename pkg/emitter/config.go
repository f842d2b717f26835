package emitter

import (
	"flag"
	"io"
	"time"

	"github.com/robotalks/uartrand/pkg/mirror"
)

// Interval between the starts of consecutive emissions.
const Interval = time.Second

// Config defines the configurations for the emitter.
type Config struct {
	// Delimiter is appended after every value on the serial line.
	// Empty keeps values back to back, which is the default.
	Delimiter string
}

var defaultConfig Config

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Delimiter, "delimiter", defaultConfig.Delimiter,
		"Bytes appended after each value on the serial line, empty for none.")
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a config with defaults.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// NewEmitter creates an Emitter using the config.
func (c *Config) NewEmitter(port, console io.Writer, gen Sampler, mirrors ...mirror.Mirror) *Emitter {
	e := NewEmitter(port, console, gen)
	e.Delimiter = []byte(c.Delimiter)
	e.Mirrors = mirrors
	return e
}
