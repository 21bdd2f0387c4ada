package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// ErrDeviceConfig indicates the scanner table file does not parse.
// Callers fall back to DefaultDevices.
var ErrDeviceConfig = fmt.Errorf("%w: device table", ErrBadConfig)

// Device is one scanner entry of the device table.
type Device struct {
	DeviceID string `json:"device_id"`
	IP       string `json:"ip"`
	Port     int    `json:"port"`
	Name     string `json:"name"`
	Location string `json:"location"`
	Enabled  bool   `json:"enabled"`
}

// Addr returns the TCP dial address.
func (d Device) Addr() string {
	return fmt.Sprintf("%s:%d", d.IP, d.Port)
}

// DefaultDevices is the single-device fallback used when no table file
// exists.
func DefaultDevices() []Device {
	return []Device{{
		DeviceID: "default",
		IP:       "192.168.1.201",
		Port:     4370,
		Name:     "Default Device",
		Location: "Main Location",
		Enabled:  true,
	}}
}

// LoadDevices reads the scanner table. A missing file yields the
// default single-device table; a malformed file is an error so the
// caller can decide between failing and falling back.
func LoadDevices(path string) ([]Device, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return DefaultDevices(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeviceConfig, err)
	}

	var devices []Device
	if err := json.Unmarshal(data, &devices); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeviceConfig, err)
	}
	if len(devices) == 0 {
		return nil, fmt.Errorf("%w: empty device table", ErrDeviceConfig)
	}

	seen := make(map[string]bool, len(devices))
	for _, d := range devices {
		if d.DeviceID == "" {
			return nil, fmt.Errorf("%w: device without device_id", ErrDeviceConfig)
		}
		if seen[d.DeviceID] {
			return nil, fmt.Errorf("%w: duplicate device_id %q", ErrDeviceConfig, d.DeviceID)
		}
		seen[d.DeviceID] = true
	}
	return devices, nil
}
