package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/brosander/pcap-async/pkg/capture"
)

var replayFilter string

var replayCmd = &cobra.Command{
	Use:   "replay <savefile>",
	Short: "Stream packets from a pcap savefile",
	Long: `Read a pcap savefile and stream its packets as batches, applying an
optional capture filter in software. Prints a summary when the file is
exhausted.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runReplayCommand(args[0])
	},
}

func init() {
	replayCmd.Flags().StringVarP(&replayFilter, "filter", "f", "",
		"capture filter expression applied to replayed packets")
}

func runReplayCommand(path string) {
	cfg, err := loadConfig()
	if err != nil {
		exitWithError("failed to load config", err)
	}
	if replayFilter != "" {
		cfg.Capture.Filter = replayFilter
	}

	handle, err := capture.OpenFile(path)
	if err != nil {
		exitWithError("failed to open savefile", err)
	}
	defer handle.Close()

	streamCfg, err := cfg.Capture.StreamConfig()
	if err != nil {
		exitWithError("invalid replay settings", err)
	}
	streamCfg.CaptureFilter = cfg.Capture.Filter

	stream, err := capture.NewPacketStream(streamCfg, handle)
	if err != nil {
		exitWithError("failed to start packet stream", err)
	}

	var total, batches uint64
	var bytes uint64
	ctx := context.Background()
	for {
		packets, err := stream.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			exitWithError("replay failed", err)
		}
		batches++
		for _, pkt := range packets {
			total++
			bytes += uint64(pkt.CaptureLength())
		}
		logrus.WithFields(logrus.Fields{
			"batch": len(packets),
			"total": total,
		}).Debug("batch received")
	}

	fmt.Printf("%s: %d packets in %d batches, %d bytes\n", path, total, batches, bytes)
}
