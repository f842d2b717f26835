// Package uart acquires the serial channel samples are written to.
package uart

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
)

// Pin identifies an I/O line on the board.
type Pin uint8

// Fixed line settings.
const (
	DefaultBaudRate = 9600
	DefaultIndex    = 1
	DefaultTX       = Pin(4)
	DefaultRX       = Pin(5)
	DefaultDevice   = "/dev/ttyS1"
)

// ErrInvalidConfig indicates the Config can't be used to open a port.
var ErrInvalidConfig = errors.New("invalid uart config")

// Port is an acquired serial channel.
type Port interface {
	io.ReadWriteCloser
}

// Config describes the serial channel.
type Config struct {
	Device string
	// Index and the pins name the board wiring, the host only reports them.
	Index    int
	BaudRate int
	TX       Pin
	RX       Pin
}

var defaultConfig = Config{
	Device:   DefaultDevice,
	Index:    DefaultIndex,
	BaudRate: DefaultBaudRate,
	TX:       DefaultTX,
	RX:       DefaultRX,
}

func init() {
	if val := os.Getenv("UARTRAND_DEVICE"); val != "" {
		defaultConfig.Device = val
	}
}

// SetupFlags sets command line flags.
// Only the device path is selectable, line settings are fixed.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Device, "device", defaultConfig.Device, "Serial device path.")
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

// Validate checks the config.
func (c *Config) Validate() error {
	if c.BaudRate <= 0 {
		return fmt.Errorf("%w: baud rate %d", ErrInvalidConfig, c.BaudRate)
	}
	if c.Device == "" {
		return fmt.Errorf("%w: device path required", ErrInvalidConfig)
	}
	if c.TX == c.RX {
		return fmt.Errorf("%w: TX and RX share pin %d", ErrInvalidConfig, c.TX)
	}
	return nil
}

// String implements fmt.Stringer.
func (c *Config) String() string {
	return fmt.Sprintf("UART%d %s %d baud TX=%d RX=%d", c.Index, c.Device, c.BaudRate, c.TX, c.RX)
}
