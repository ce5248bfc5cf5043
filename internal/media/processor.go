// Package media provides image and video processing capabilities.
//
// All encoding work is delegated to the ffmpeg and ffprobe binaries. This
// package only builds their argument arrays and filter graphs and runs them.
package media

import (
	"context"
	"time"
)

// Format is an output container/codec family.
type Format string

const (
	// FormatGIF renders an animated GIF with a generated palette.
	FormatGIF Format = "gif"
	// FormatWebP renders an animated WebP.
	FormatWebP Format = "webp"
	// FormatMP4 renders an H.264 MP4.
	FormatMP4 Format = "mp4"
)

// IsValid returns true if the format is supported.
func (f Format) IsValid() bool {
	return f == FormatGIF || f == FormatWebP || f == FormatMP4
}

// Extension returns the file extension for the format, including the dot.
func (f Format) Extension() string {
	return "." + string(f)
}

// ContentType returns the MIME type of rendered output.
func (f Format) ContentType() string {
	switch f {
	case FormatGIF:
		return "image/gif"
	case FormatWebP:
		return "image/webp"
	case FormatMP4:
		return "video/mp4"
	default:
		return "application/octet-stream"
	}
}

// Position anchors an overlay inside the output frame.
type Position string

const (
	PositionTopLeft     Position = "top-left"
	PositionTopRight    Position = "top-right"
	PositionBottomLeft  Position = "bottom-left"
	PositionBottomRight Position = "bottom-right"
	PositionCenter      Position = "center"
)

// IsValid returns true if the position is known.
func (p Position) IsValid() bool {
	switch p {
	case PositionTopLeft, PositionTopRight, PositionBottomLeft, PositionBottomRight, PositionCenter:
		return true
	default:
		return false
	}
}

// Overlay describes a text and/or image drawn over every output frame.
type Overlay struct {
	// Text is drawn with the drawtext filter when non-empty.
	Text string
	// FontSize is the drawtext font size in pixels.
	FontSize int
	// FontColor is any ffmpeg color name or hex value.
	FontColor string
	// FontFile is an optional path to a TTF/OTF font.
	FontFile string
	// ImagePath is an image composited with the overlay filter when non-empty.
	ImagePath string
	// Position anchors both the text and the image.
	Position Position
	// Margin is the distance in pixels from the anchored edges.
	Margin int
	// Opacity applies to the image overlay, in (0, 1]. Zero means fully opaque.
	Opacity float64
}

// FrameInput is one still image in a render, with its display time.
type FrameInput struct {
	// Path is the local path of the image.
	Path string
	// Delay overrides the frame duration. Zero means 1/FPS.
	Delay time.Duration
}

// RenderSpec describes a complete render.
type RenderSpec struct {
	Frames  []FrameInput
	Output  string
	Format  Format
	FPS     int
	Width   int // 0 keeps source width
	Height  int // 0 keeps source height
	Loop    int // 0 loops forever; n plays n+1 times (GIF/WebP)
	Quality int // 1..100
	Overlay *Overlay
}

// ExtractOpts configures frame extraction from a video.
type ExtractOpts struct {
	// FPS is the sampling rate. Zero keeps every source frame.
	FPS int
	// StartSec skips the beginning of the source.
	StartSec float64
	// DurationSec limits the extracted span. Zero means until the end.
	DurationSec float64
	// MaxFrames caps the number of extracted frames. Zero means no cap.
	MaxFrames int
}

// Info is the subset of ffprobe output this package uses.
type Info struct {
	Duration  float64
	Width     int
	Height    int
	FrameRate float64
}

// Processor defines the interface for media operations used by the studio.
type Processor interface {
	// Probe returns the duration and primary video stream geometry of a file.
	Probe(ctx context.Context, path string) (Info, error)

	// ExtractFrames samples a video into numbered PNG files inside outDir
	// and returns their paths in playback order.
	ExtractFrames(ctx context.Context, src, outDir string, opts ExtractOpts) ([]string, error)

	// MakePreview writes a PNG no larger than maxDim on either side.
	MakePreview(ctx context.Context, src, dst string, maxDim int) error

	// Render encodes the frames of spec into spec.Output.
	Render(ctx context.Context, spec RenderSpec) error
}
