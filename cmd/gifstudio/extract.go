package main

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/maauso/gifstudio-api/internal/manifest"
	"github.com/maauso/gifstudio-api/internal/media"
	"github.com/maauso/gifstudio-api/internal/project"
)

const manifestName = "render.yaml"

var (
	extractOutDir   string
	extractFPS      int
	extractStart    float64
	extractDuration float64
	extractMax      int
	extractFormat   string
)

var extractCmd = &cobra.Command{
	Use:   "extract <video>",
	Short: "Sample a video into frames and write a manifest",
	Long: `Sample a video into numbered PNG frames inside --out-dir and write
render.yaml next to them. The manifest can be edited and passed to render.`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().StringVarP(&extractOutDir, "out-dir", "d", "frames", "directory for frames and the manifest")
	extractCmd.Flags().IntVar(&extractFPS, "fps", project.DefaultFPS, "sampling rate, also used as the manifest fps")
	extractCmd.Flags().Float64Var(&extractStart, "start", 0, "skip this many seconds of the source")
	extractCmd.Flags().Float64Var(&extractDuration, "duration", 0, "limit the sampled span in seconds")
	extractCmd.Flags().IntVar(&extractMax, "max-frames", 300, "maximum number of frames")
	extractCmd.Flags().StringVar(&extractFormat, "format", string(project.DefaultFormat), "output format written to the manifest")
}

func runExtract(cmd *cobra.Command, args []string) error {
	logger := newLogger(cmd)
	src := args[0]

	m := &manifest.Manifest{
		Format: extractFormat,
		FPS:    extractFPS,
		Output: "output" + media.Format(extractFormat).Extension(),
	}
	if _, err := m.Settings(); err != nil {
		return err
	}

	frames, err := newProcessor().ExtractFrames(commandContext(cmd), src, extractOutDir, media.ExtractOpts{
		FPS:         extractFPS,
		StartSec:    extractStart,
		DurationSec: extractDuration,
		MaxFrames:   extractMax,
	})
	if err != nil {
		return fmt.Errorf("extract %s: %w", src, err)
	}

	m.Frames = make([]manifest.Frame, len(frames))
	for i, f := range frames {
		m.Frames[i] = manifest.Frame{Path: filepath.Base(f)}
	}

	path := filepath.Join(extractOutDir, manifestName)
	if err := m.Save(path); err != nil {
		return err
	}

	logger.Info("frames extracted",
		slog.String("source", src),
		slog.Int("frames", len(frames)),
		slog.String("manifest", path),
	)
	fmt.Fprintln(cmd.OutOrStdout(), path)
	return nil
}
