package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/brosander/pcap-async/pkg/capture"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List capture devices",
	Run: func(cmd *cobra.Command, args []string) {
		runDevicesCommand()
	},
}

func runDevicesCommand() {
	devices, err := capture.ListDevices()
	if err != nil {
		exitWithError("failed to list devices", err)
	}
	if len(devices) == 0 {
		fmt.Println("no capture devices found")
		return
	}
	for _, dev := range devices {
		line := dev.Name
		if dev.Description != "" {
			line += " (" + dev.Description + ")"
		}
		if len(dev.Addresses) > 0 {
			addrs := make([]string, 0, len(dev.Addresses))
			for _, addr := range dev.Addresses {
				addrs = append(addrs, addr.String())
			}
			line += " [" + strings.Join(addrs, ", ") + "]"
		}
		fmt.Println(line)
	}
}
