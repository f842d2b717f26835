package uart

import (
	"fmt"

	"github.com/golang/glog"
	"go.bug.st/serial"
)

// Open acquires the serial port with 8N1 framing.
func (c *Config) Open() (Port, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	port, err := serial.Open(c.Device, &serial.Mode{
		BaudRate: c.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", c.Device, err)
	}
	glog.V(1).Infof("opened %s", c)
	return port, nil
}

// Devices lists serial devices found on the host.
func Devices() ([]string, error) {
	return serial.GetPortsList()
}
