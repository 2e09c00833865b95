package engine

import (
	"fmt"
	"net"
)

// DeviceInfo describes one capture-capable network interface.
type DeviceInfo struct {
	Name        string
	Description string
	Addresses   []net.IP
}

// DefaultDevice picks the first listed device carrying an address,
// falling back to the first device of any kind.
func DefaultDevice() (string, error) {
	devs, err := Devices()
	if err != nil {
		return "", err
	}
	if len(devs) == 0 {
		return "", fmt.Errorf("engine: no capture devices found")
	}
	for _, d := range devs {
		if len(d.Addresses) > 0 {
			return d.Name, nil
		}
	}
	return devs[0].Name, nil
}

// drainRecords implements the bulk-dispatch contract on top of a
// session's single-record fetch. Bindings whose native layer has no bulk
// primitive share it.
func drainRecords(s Session, max int, fn func(Record)) (int, error) {
	n := 0
	for n < max {
		rec, err := s.NextRecord()
		if err != nil {
			return n, err
		}
		fn(rec)
		n++
	}
	return n, nil
}
