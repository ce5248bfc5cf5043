package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var probeCmd = &cobra.Command{
	Use:   "probe <file>",
	Short: "Show duration and geometry of a video",
	Args:  cobra.ExactArgs(1),
	RunE:  runProbe,
}

func init() {
	rootCmd.AddCommand(probeCmd)
}

// probeResult is the YAML shape printed by probe.
type probeResult struct {
	Path      string  `yaml:"path"`
	Duration  float64 `yaml:"duration_sec"`
	Width     int     `yaml:"width"`
	Height    int     `yaml:"height"`
	FrameRate float64 `yaml:"frame_rate"`
}

func runProbe(cmd *cobra.Command, args []string) error {
	info, err := newProcessor().Probe(commandContext(cmd), args[0])
	if err != nil {
		return fmt.Errorf("probe %s: %w", args[0], err)
	}

	enc := yaml.NewEncoder(cmd.OutOrStdout())
	defer func() { _ = enc.Close() }()
	return enc.Encode(probeResult{
		Path:      args[0],
		Duration:  info.Duration,
		Width:     info.Width,
		Height:    info.Height,
		FrameRate: info.FrameRate,
	})
}
