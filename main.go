// Package main is the entry point for the pcap-async capture tool.
package main

import (
	"fmt"
	"os"

	"github.com/brosander/pcap-async/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
