// Package env provides information about the host the emitter runs on.
package env

import (
	"os"

	"github.com/denisbrodbeck/machineid"
	"github.com/golang/glog"
)

// AppID scopes the machine id so the raw id isn't exposed.
const AppID = "uartrand"

// MachineID retrieves the unique ID identifying the machine.
// It falls back to the hostname if the machine id isn't available.
func MachineID() string {
	id, err := machineid.ProtectedID(AppID)
	if err == nil {
		return id[:16]
	}
	glog.Warningf("machine id unavailable: %v", err)
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "unknown"
}
