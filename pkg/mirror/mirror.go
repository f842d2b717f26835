// Package mirror provides extra observers of emitted samples besides the
// serial line and the console.
package mirror

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/robotalks/uartrand/pkg/sample"
)

// Mirror receives every emitted sample, after it's written to serial.
type Mirror interface {
	MirrorSample(ctx context.Context, s sample.Sample, at time.Time) error
}

// Func is the func form of Mirror.
type Func func(ctx context.Context, s sample.Sample, at time.Time) error

// MirrorSample implements Mirror.
func (f Func) MirrorSample(ctx context.Context, s sample.Sample, at time.Time) error {
	return f(ctx, s, at)
}

// Meta describes the emitter, published along with samples.
type Meta struct {
	ID        string `json:"id"`
	Device    string `json:"device"`
	BaudRate  int    `json:"baud_rate"`
	Interval  string `json:"interval"`
	Delimiter string `json:"delimiter,omitempty"`
}

// Config selects the enabled mirrors.
type Config struct {
	// MQTTBrokerURL enables the MQTT mirror.
	// e.g. mqtt://host:port/topic-prefix
	MQTTBrokerURL string
	// WebSocketAddr enables the websocket mirror listening on the address.
	WebSocketAddr string
}

var defaultConfig Config

func init() {
	if val := os.Getenv("UARTRAND_MQTT_URL"); val != "" {
		defaultConfig.MQTTBrokerURL = val
	}
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.MQTTBrokerURL, "mqtt", defaultConfig.MQTTBrokerURL, "MQTT broker URL to publish samples, empty to disable.")
	flag.StringVar(&defaultConfig.WebSocketAddr, "ws", defaultConfig.WebSocketAddr, "Listen address to stream samples over websocket, empty to disable.")
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

// NewMirrors creates the enabled mirrors.
func (c *Config) NewMirrors(meta Meta) ([]Mirror, error) {
	var mirrors []Mirror
	if c.MQTTBrokerURL != "" {
		m, err := NewMQTTFromURL(c.MQTTBrokerURL, meta)
		if err != nil {
			return nil, err
		}
		mirrors = append(mirrors, m)
	}
	if c.WebSocketAddr != "" {
		mirrors = append(mirrors, NewWebSocket(c.WebSocketAddr))
	}
	return mirrors, nil
}
