//go:build !linux && !cgo

package engine

import (
	"fmt"
	"net"
)

// Live capture needs either libpcap (cgo) or AF_PACKET (linux). File
// replay still works everywhere.

// OpenLive reports that live capture is unavailable in this build.
func OpenLive(device string) (Session, error) {
	return nil, fmt.Errorf("engine: live capture on %s: %w (build with cgo or on linux)", device, ErrNotSupported)
}

// Devices lists the host's network interfaces.
func Devices() ([]DeviceInfo, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("engine: listing devices: %w", err)
	}
	out := make([]DeviceInfo, 0, len(ifaces))
	for _, iface := range ifaces {
		info := DeviceInfo{Name: iface.Name}
		if addrs, err := iface.Addrs(); err == nil {
			for _, a := range addrs {
				if ipn, ok := a.(*net.IPNet); ok {
					info.Addresses = append(info.Addresses, ipn.IP)
				}
			}
		}
		out = append(out, info)
	}
	return out, nil
}
