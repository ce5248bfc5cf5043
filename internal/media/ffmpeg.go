package media

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// Static errors for media operations.
var (
	// ErrFFprobeExecution is returned when ffprobe command fails.
	ErrFFprobeExecution = errors.New("ffprobe execution failed")
	// ErrNoVideoStream is returned when a probed file has no video stream.
	ErrNoVideoStream = errors.New("no video stream found")
	// ErrNothingExtracted is returned when frame extraction produced no images.
	ErrNothingExtracted = errors.New("no frames extracted")
)

// extractPattern is the file pattern used for extracted frames.
const extractPattern = "frame_%05d.png"

// Compile-time check that FFmpegProcessor implements Processor.
var _ Processor = (*FFmpegProcessor)(nil)

// FFmpegProcessor implements Processor using the ffmpeg and ffprobe CLIs.
type FFmpegProcessor struct {
	// ffmpegPath is the path to the ffmpeg binary. Defaults to "ffmpeg".
	ffmpegPath string
	// ffprobePath is the path to the ffprobe binary. Defaults to "ffprobe".
	ffprobePath string
}

// NewFFmpegProcessor creates a new FFmpegProcessor.
// Empty paths default to "ffmpeg" and "ffprobe" (found via PATH).
func NewFFmpegProcessor(ffmpegPath, ffprobePath string) *FFmpegProcessor {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &FFmpegProcessor{ffmpegPath: ffmpegPath, ffprobePath: ffprobePath}
}

// probeOutput mirrors the JSON printed by ffprobe -print_format json.
type probeOutput struct {
	Streams []struct {
		Width      int    `json:"width"`
		Height     int    `json:"height"`
		RFrameRate string `json:"r_frame_rate"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// Probe returns the duration and first video stream geometry of a file.
func (p *FFmpegProcessor) Probe(ctx context.Context, path string) (Info, error) {
	// #nosec G204 - ffprobePath is set by the application, not user input
	cmd := exec.CommandContext(ctx, p.ffprobePath,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height,r_frame_rate:format=duration",
		"-print_format", "json",
		path,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return Info{}, fmt.Errorf("ffprobe cancelled: %w", ctx.Err())
		}
		return Info{}, fmt.Errorf("%w: %w, stderr: %s", ErrFFprobeExecution, err, stderr.String())
	}

	return parseProbe(stdout.Bytes())
}

// parseProbe converts ffprobe JSON into Info.
func parseProbe(data []byte) (Info, error) {
	var out probeOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return Info{}, fmt.Errorf("parse ffprobe output: %w", err)
	}
	if len(out.Streams) == 0 {
		return Info{}, ErrNoVideoStream
	}

	info := Info{
		Width:     out.Streams[0].Width,
		Height:    out.Streams[0].Height,
		FrameRate: parseRate(out.Streams[0].RFrameRate),
	}
	if out.Format.Duration != "" {
		d, err := strconv.ParseFloat(strings.TrimSpace(out.Format.Duration), 64)
		if err != nil {
			return Info{}, fmt.Errorf("parse duration: %w", err)
		}
		info.Duration = d
	}
	return info, nil
}

// parseRate parses ffprobe rationals like "30000/1001". Unparseable values yield 0.
func parseRate(r string) float64 {
	num, den, found := strings.Cut(r, "/")
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0
	}
	if !found {
		return n
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d == 0 {
		return 0
	}
	return n / d
}

// BuildExtractArgs returns the ffmpeg arguments that sample src into outDir.
func BuildExtractArgs(src, outDir string, opts ExtractOpts) []string {
	args := []string{"-y", "-hide_banner"}
	if opts.StartSec > 0 {
		args = append(args, "-ss", strconv.FormatFloat(opts.StartSec, 'f', 3, 64))
	}
	args = append(args, "-i", src)
	if opts.DurationSec > 0 {
		args = append(args, "-t", strconv.FormatFloat(opts.DurationSec, 'f', 3, 64))
	}
	if opts.FPS > 0 {
		args = append(args, "-vf", fmt.Sprintf("fps=%d", opts.FPS))
	}
	if opts.MaxFrames > 0 {
		args = append(args, "-frames:v", strconv.Itoa(opts.MaxFrames))
	}
	return append(args, filepath.Join(outDir, extractPattern))
}

// ExtractFrames samples a video into numbered PNGs inside outDir.
func (p *FFmpegProcessor) ExtractFrames(ctx context.Context, src, outDir string, opts ExtractOpts) ([]string, error) {
	if err := os.MkdirAll(outDir, 0750); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	if err := p.runFFmpeg(ctx, BuildExtractArgs(src, outDir, opts)); err != nil {
		return nil, err
	}

	frames, err := filepath.Glob(filepath.Join(outDir, "frame_*.png"))
	if err != nil {
		return nil, fmt.Errorf("list extracted frames: %w", err)
	}
	if len(frames) == 0 {
		return nil, ErrNothingExtracted
	}
	// Zero-padded names sort in playback order.
	sort.Strings(frames)
	return frames, nil
}

// BuildPreviewArgs returns the ffmpeg arguments for a bounded PNG preview.
func BuildPreviewArgs(src, dst string, maxDim int) []string {
	filter := fmt.Sprintf("scale='min(%d,iw)':'min(%d,ih)':force_original_aspect_ratio=decrease", maxDim, maxDim)
	return []string{
		"-y",
		"-hide_banner",
		"-i", src,
		"-vf", filter,
		"-frames:v", "1", // Output single frame (image)
		"-f", "image2",
		"-c:v", "png",
		dst,
	}
}

// MakePreview writes a PNG no larger than maxDim on either side.
func (p *FFmpegProcessor) MakePreview(ctx context.Context, src, dst string, maxDim int) error {
	if maxDim <= 0 {
		return fmt.Errorf("%w: preview size %d", ErrInvalidDimensions, maxDim)
	}
	return p.runFFmpeg(ctx, BuildPreviewArgs(src, dst, maxDim))
}

// Render encodes spec.Frames into spec.Output.
func (p *FFmpegProcessor) Render(ctx context.Context, spec RenderSpec) error {
	if err := spec.Validate(); err != nil {
		return err
	}

	listFile, err := p.writeConcatList(spec)
	if err != nil {
		return fmt.Errorf("create concat list: %w", err)
	}
	defer func() { _ = os.Remove(listFile) }()

	return p.runFFmpeg(ctx, BuildRenderArgs(spec, listFile))
}

// writeConcatList writes the concat demuxer script to a temporary file.
// Frame paths are made absolute because the demuxer resolves relative
// paths against the list file.
func (p *FFmpegProcessor) writeConcatList(spec RenderSpec) (string, error) {
	frames := make([]FrameInput, len(spec.Frames))
	for i, f := range spec.Frames {
		abs, err := filepath.Abs(f.Path)
		if err != nil {
			return "", fmt.Errorf("get absolute path for %s: %w", f.Path, err)
		}
		frames[i] = FrameInput{Path: abs, Delay: f.Delay}
	}

	f, err := os.CreateTemp("", "ffmpeg-concat-*.txt")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if _, err := f.WriteString(BuildConcatList(frames, spec.FPS)); err != nil {
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("write concat list: %w", err)
	}
	return f.Name(), nil
}

// runFFmpeg executes ffmpeg with the given arguments and returns an error
// containing stderr output if the command fails.
func (p *FFmpegProcessor) runFFmpeg(ctx context.Context, args []string) error {
	// #nosec G204 - ffmpegPath is set by the application, not user input
	cmd := exec.CommandContext(ctx, p.ffmpegPath, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("ffmpeg cancelled: %w", ctx.Err())
		}
		return &FFmpegError{
			Args:   args,
			Stderr: stderr.String(),
			Err:    err,
		}
	}

	return nil
}

// FFmpegError represents an error from running ffmpeg, including the stderr output.
type FFmpegError struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *FFmpegError) Error() string {
	return fmt.Sprintf("ffmpeg error: %v\nargs: %v\nstderr: %s", e.Err, e.Args, e.Stderr)
}

func (e *FFmpegError) Unwrap() error {
	return e.Err
}
