package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/maauso/gifstudio-api/internal/manifest"
)

var (
	renderManifest string
	renderOutput   string
	renderTimeout  time.Duration
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render a manifest to a file",
	Long: `Render the frames listed in a manifest with ffmpeg.

The output format comes from the manifest. --output overrides the manifest's
output path; one of the two must be set.`,
	Args: cobra.NoArgs,
	RunE: runRender,
}

func init() {
	rootCmd.AddCommand(renderCmd)

	renderCmd.Flags().StringVarP(&renderManifest, "manifest", "m", "", "manifest file (required)")
	renderCmd.Flags().StringVarP(&renderOutput, "output", "o", "", "output file, overrides the manifest")
	renderCmd.Flags().DurationVar(&renderTimeout, "timeout", 10*time.Minute, "abort the render after this long")
}

func runRender(cmd *cobra.Command, _ []string) error {
	if renderManifest == "" {
		return errors.New("--manifest is required")
	}
	logger := newLogger(cmd)

	m, err := manifest.Load(renderManifest)
	if err != nil {
		return err
	}
	spec, err := m.RenderSpec(renderOutput)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(spec.Output), 0o750); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt)
	defer stop()
	if renderTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, renderTimeout)
		defer cancel()
	}

	logger.Debug("rendering",
		slog.String("manifest", renderManifest),
		slog.String("format", string(spec.Format)),
		slog.Int("frames", len(spec.Frames)),
	)

	start := time.Now()
	if err := newProcessor().Render(ctx, spec); err != nil {
		return fmt.Errorf("render: %w", err)
	}

	logger.Info("render completed",
		slog.String("output", spec.Output),
		slog.Duration("elapsed", time.Since(start)),
	)
	fmt.Fprintln(cmd.OutOrStdout(), spec.Output)
	return nil
}
