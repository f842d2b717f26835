package uart

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	c := NewConfig()
	require.Equal(t, 9600, c.BaudRate)
	require.Equal(t, Pin(4), c.TX)
	require.Equal(t, Pin(5), c.RX)
	require.Equal(t, 1, c.Index)
	require.NoError(t, c.Validate())
	require.NotSame(t, Default(), c)
}

func TestConfigValidate(t *testing.T) {
	testCases := []struct {
		name   string
		modify func(*Config)
	}{
		{"zero baud", func(c *Config) { c.BaudRate = 0 }},
		{"negative baud", func(c *Config) { c.BaudRate = -9600 }},
		{"shared pin", func(c *Config) { c.RX = c.TX }},
		{"no device", func(c *Config) { c.Device = "" }},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := NewConfig()
			tc.modify(c)
			err := c.Validate()
			require.True(t, errors.Is(err, ErrInvalidConfig), "%v", err)
		})
	}
}

func TestConfigString(t *testing.T) {
	c := NewConfig()
	c.Device = "/dev/ttyUSB0"
	require.Equal(t, "UART1 /dev/ttyUSB0 9600 baud TX=4 RX=5", c.String())
}
