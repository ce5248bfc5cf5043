package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/maauso/gifstudio-api/internal/media"
)

var (
	ffmpegPath  string
	ffprobePath string
	verbose     bool
)

var rootCmd = &cobra.Command{
	Use:   "gifstudio",
	Short: "Render animated GIF, WebP and MP4 files from still frames",
	Long: `gifstudio renders the same output as the studio API without running a server.

A render is described by a YAML manifest listing frames, output settings and an
optional text or image overlay. Frames can be sampled from a video with the
extract command, which writes a matching manifest.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&ffmpegPath, "ffmpeg", envOr("FFMPEG_PATH", "ffmpeg"), "path to the ffmpeg binary")
	rootCmd.PersistentFlags().StringVar(&ffprobePath, "ffprobe", envOr("FFPROBE_PATH", "ffprobe"), "path to the ffprobe binary")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log debug output")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func newProcessor() *media.FFmpegProcessor {
	return media.NewFFmpegProcessor(ffmpegPath, ffprobePath)
}

func newLogger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}

// commandContext returns the command's context, which is nil when a run
// function is called directly.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
