package cmd

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/brosander/pcap-async/pkg/capture"
)

var (
	captureDevice string
	captureFilter string
	captureOutput string
	captureCount  uint64
)

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Stream packets from a live network interface",
	Long: `Capture packets from a live network interface and stream them as
batches. Ctrl-C interrupts the capture and drains in-flight packets cleanly.

With --output the captured packets are written to a pcap savefile that can be
read back with the replay command or any pcap tool.`,
	Run: func(cmd *cobra.Command, args []string) {
		runCaptureCommand()
	},
}

func init() {
	captureCmd.Flags().StringVarP(&captureDevice, "device", "i", "",
		"network interface to capture on (default: first device with an address)")
	captureCmd.Flags().StringVarP(&captureFilter, "filter", "f", "",
		"capture filter expression, e.g. \"udp port 5060\"")
	captureCmd.Flags().StringVarP(&captureOutput, "output", "w", "",
		"write captured packets to this pcap savefile")
	captureCmd.Flags().Uint64VarP(&captureCount, "count", "n", 0,
		"stop after this many packets (0 = until interrupted)")
}

func runCaptureCommand() {
	cfg, err := loadConfig()
	if err != nil {
		exitWithError("failed to load config", err)
	}
	if captureDevice != "" {
		cfg.Capture.Device = captureDevice
	}
	if captureFilter != "" {
		cfg.Capture.Filter = captureFilter
	}

	handle, err := openLiveHandle(cfg.Capture.Device)
	if err != nil {
		exitWithError("failed to open capture device", err)
	}
	defer handle.Close()

	streamCfg, err := cfg.Capture.StreamConfig()
	if err != nil {
		exitWithError("invalid capture settings", err)
	}

	stream, err := capture.NewPacketStream(streamCfg, handle)
	if err != nil {
		exitWithError("failed to start packet stream", err)
	}

	var writer *pcapgo.Writer
	if captureOutput != "" {
		out, err := os.Create(captureOutput)
		if err != nil {
			exitWithError("failed to create output file", err)
		}
		defer out.Close()
		writer = pcapgo.NewWriter(out)
		if err := writer.WriteFileHeader(uint32(streamCfg.SnapshotLength), layers.LinkTypeEthernet); err != nil {
			exitWithError("failed to write savefile header", err)
		}
	}

	// Ctrl-C interrupts the stream rather than killing the process so the
	// in-flight batch still gets drained and counted.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		logrus.WithField("signal", sig).Info("interrupting capture")
		handle.Interrupt()
	}()

	logrus.WithFields(logrus.Fields{
		"handle": handle.String(),
		"filter": cfg.Capture.Filter,
	}).Info("capture started")

	total, err := pump(context.Background(), stream, writer, captureCount, handle)
	if err != nil {
		exitWithError("capture failed", err)
	}

	if stats, err := handle.Stats(); err == nil {
		logrus.WithFields(logrus.Fields{
			"received": stats.Received,
			"dropped":  stats.Dropped,
		}).Info("capture statistics")
	}
	logrus.WithField("packets", total).Info("capture finished")
}

func openLiveHandle(device string) (*capture.Handle, error) {
	if device == "" {
		return capture.Lookup()
	}
	return capture.OpenLive(device)
}

// pump pulls batches until the stream ends or limit packets have been seen,
// writing each packet to the savefile when writer is non-nil.
func pump(ctx context.Context, stream *capture.PacketStream, writer *pcapgo.Writer, limit uint64, handle *capture.Handle) (uint64, error) {
	var total uint64
	for {
		packets, err := stream.Next(ctx)
		if errors.Is(err, io.EOF) {
			return total, nil
		}
		if err != nil {
			return total, err
		}
		for _, pkt := range packets {
			if writer != nil {
				if err := writer.WritePacket(pkt.CaptureInfo(), pkt.Data()); err != nil {
					return total, err
				}
			}
			total++
			if limit > 0 && total >= limit {
				handle.Interrupt()
			}
		}
		logrus.WithFields(logrus.Fields{
			"batch": len(packets),
			"total": total,
		}).Debug("batch received")
	}
}
