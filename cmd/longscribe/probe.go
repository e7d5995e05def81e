package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var flagProbeJSON bool

var probeCmd = &cobra.Command{
	Use:   "probe <media-file>",
	Short: "Inspect a media file and report its duration and format",
	Args:  cobra.ExactArgs(1),
	RunE:  runProbe,
}

func init() {
	probeCmd.Flags().BoolVar(&flagProbeJSON, "json", false, "print the probe result as JSON")
}

func runProbe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	loader := newMediaLoader(cfg.Media)
	info, err := loader.Probe(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	if flagProbeJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}
	fmt.Printf("format:    %s\n", info.Format)
	fmt.Printf("duration:  %.2fs\n", info.Duration)
	fmt.Printf("size:      %d bytes\n", info.SizeBytes)
	fmt.Printf("has audio: %t\n", info.HasAudio)
	if info.AudioCodec != "" {
		fmt.Printf("audio:     %s\n", info.AudioCodec)
	}
	if info.VideoCodec != "" {
		fmt.Printf("video:     %s %dx%d\n", info.VideoCodec, info.Width, info.Height)
	}
	return nil
}
