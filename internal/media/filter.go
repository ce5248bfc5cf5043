package media

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Static errors for render specs.
var (
	// ErrNoFrames is returned when a render has no input frames.
	ErrNoFrames = errors.New("no frames to render")
	// ErrInvalidDimensions is returned when the provided dimensions are out of range.
	ErrInvalidDimensions = errors.New("invalid dimensions")
	// ErrInvalidFPS is returned when the frame rate is out of range.
	ErrInvalidFPS = errors.New("invalid fps: must be between 1 and 60")
	// ErrUnsupportedFormat is returned for unknown output formats.
	ErrUnsupportedFormat = errors.New("unsupported output format")
	// ErrInvalidOverlay is returned when overlay settings are out of range.
	ErrInvalidOverlay = errors.New("invalid overlay")
)

// Overlay defaults.
const (
	DefaultFontSize  = 24
	DefaultFontColor = "white"
	DefaultMargin    = 10
)

// Validate checks a render spec before any argument is built.
func (s RenderSpec) Validate() error {
	if len(s.Frames) == 0 {
		return ErrNoFrames
	}
	if !s.Format.IsValid() {
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, s.Format)
	}
	if s.FPS < 1 || s.FPS > 60 {
		return fmt.Errorf("%w: got %d", ErrInvalidFPS, s.FPS)
	}
	if s.Width < 0 || s.Height < 0 || s.Width > 4096 || s.Height > 4096 {
		return fmt.Errorf("%w: width=%d, height=%d", ErrInvalidDimensions, s.Width, s.Height)
	}
	if s.Format == FormatMP4 && (s.Width%2 != 0 || s.Height%2 != 0) {
		return fmt.Errorf("%w: mp4 requires even width and height, got %dx%d", ErrInvalidDimensions, s.Width, s.Height)
	}
	for i, f := range s.Frames {
		if f.Path == "" {
			return fmt.Errorf("frame %d: empty path", i)
		}
		if f.Delay < 0 {
			return fmt.Errorf("frame %d: negative delay", i)
		}
	}
	if o := s.Overlay; o != nil {
		if o.Opacity < 0 || o.Opacity > 1 {
			return fmt.Errorf("%w: opacity %.2f out of range", ErrInvalidOverlay, o.Opacity)
		}
		if o.Position != "" && !o.Position.IsValid() {
			return fmt.Errorf("%w: position %q", ErrInvalidOverlay, o.Position)
		}
	}
	return nil
}

// hasImage reports whether the render composites an overlay image.
func (s RenderSpec) hasImage() bool {
	return s.Overlay != nil && s.Overlay.ImagePath != ""
}

// hasText reports whether the render draws overlay text.
func (s RenderSpec) hasText() bool {
	return s.Overlay != nil && s.Overlay.Text != ""
}

// BuildFilterGraph assembles the -filter_complex graph for a render.
// Input 0 is the concat demuxer; input 1 is the overlay image if present.
// The final stream is labelled [out].
func BuildFilterGraph(spec RenderSpec) string {
	var chains []string

	// Geometry and timing on the frame stream.
	base := []string{}
	switch {
	case spec.Width > 0 && spec.Height > 0:
		base = append(base,
			fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=decrease", spec.Width, spec.Height),
			fmt.Sprintf("pad=%d:%d:(ow-iw)/2:(oh-ih)/2:color=black", spec.Width, spec.Height),
		)
	case spec.Width > 0:
		base = append(base, fmt.Sprintf("scale=%d:-2", spec.Width))
	case spec.Height > 0:
		base = append(base, fmt.Sprintf("scale=-2:%d", spec.Height))
	case spec.Format == FormatMP4:
		// yuv420p needs even dimensions.
		base = append(base, "scale=trunc(iw/2)*2:trunc(ih/2)*2")
	}
	base = append(base, fmt.Sprintf("fps=%d", spec.FPS), "setsar=1")
	chains = append(chains, "[0:v]"+strings.Join(base, ",")+"[base]")
	label := "base"

	if spec.hasImage() {
		o := spec.Overlay
		img := []string{"format=rgba"}
		if o.Opacity > 0 && o.Opacity < 1 {
			img = append(img, "colorchannelmixer=aa="+strconv.FormatFloat(o.Opacity, 'f', 2, 64))
		}
		chains = append(chains,
			"[1:v]"+strings.Join(img, ",")+"[ovl]",
			fmt.Sprintf("[%s][ovl]overlay=%s[comp]", label, overlayXY(o.Position, margin(o))),
		)
		label = "comp"
	}

	if spec.hasText() {
		chains = append(chains, fmt.Sprintf("[%s]%s[text]", label, drawtextFilter(spec.Overlay)))
		label = "text"
	}

	switch spec.Format {
	case FormatGIF:
		chains = append(chains,
			fmt.Sprintf("[%s]split[s0][s1]", label),
			"[s0]palettegen=stats_mode=full:max_colors=256[p]",
			"[s1][p]paletteuse=dither=bayer:bayer_scale=5:diff_mode=rectangle[out]",
		)
	case FormatMP4:
		chains = append(chains, fmt.Sprintf("[%s]format=yuv420p[out]", label))
	default:
		chains = append(chains, fmt.Sprintf("[%s]null[out]", label))
	}

	return strings.Join(chains, ";")
}

// BuildRenderArgs returns the ffmpeg arguments for spec, reading frames from
// the concat list at listPath.
func BuildRenderArgs(spec RenderSpec, listPath string) []string {
	args := []string{
		"-y", // Overwrite output file without asking
		"-hide_banner",
		"-f", "concat", // Frames come from the concat demuxer
		"-safe", "0", // Allow absolute paths
		"-i", listPath,
	}
	if spec.hasImage() {
		args = append(args, "-i", spec.Overlay.ImagePath)
	}
	args = append(args,
		"-filter_complex", BuildFilterGraph(spec),
		"-map", "[out]",
		"-an", // Never carry audio
	)

	switch spec.Format {
	case FormatGIF:
		args = append(args,
			"-loop", strconv.Itoa(spec.Loop),
			"-f", "gif",
		)
	case FormatWebP:
		args = append(args,
			"-c:v", "libwebp",
			"-lossless", "0",
			"-q:v", strconv.Itoa(clampQuality(spec.Quality)),
			"-loop", strconv.Itoa(spec.Loop),
			"-f", "webp",
		)
	case FormatMP4:
		args = append(args,
			"-c:v", "libx264",
			"-preset", "medium",
			"-crf", strconv.Itoa(QualityToCRF(spec.Quality)),
			"-pix_fmt", "yuv420p",
			"-movflags", "+faststart",
			"-f", "mp4",
		)
	}

	return append(args, spec.Output)
}

// BuildConcatList renders the concat demuxer script for frames. Each frame is
// shown for its Delay, or 1/fps when Delay is zero. The last file is listed
// twice because the demuxer ignores the final duration otherwise.
func BuildConcatList(frames []FrameInput, fps int) string {
	var b strings.Builder
	b.WriteString("ffconcat version 1.0\n")
	if len(frames) == 0 {
		return b.String()
	}

	fallback := time.Second / 10
	if fps > 0 {
		fallback = time.Second / time.Duration(fps)
	}

	for _, f := range frames {
		d := f.Delay
		if d <= 0 {
			d = fallback
		}
		fmt.Fprintf(&b, "file %s\n", quoteConcatPath(f.Path))
		fmt.Fprintf(&b, "duration %s\n", strconv.FormatFloat(d.Seconds(), 'f', 3, 64))
	}
	fmt.Fprintf(&b, "file %s\n", quoteConcatPath(frames[len(frames)-1].Path))

	return b.String()
}

// EscapeDrawtext escapes characters that are significant to drawtext and to
// the filter graph parser.
func EscapeDrawtext(s string) string {
	r := strings.NewReplacer(
		`\`, `\\`,
		`'`, `\'`,
		`:`, `\:`,
		`%`, `\%`,
		`,`, `\,`,
		`;`, `\;`,
		`[`, `\[`,
		`]`, `\]`,
	)
	return r.Replace(s)
}

// QualityToCRF maps quality 1..100 onto x264 CRF 51..0.
func QualityToCRF(q int) int {
	q = clampQuality(q)
	return 51 - (q*51)/100
}

func clampQuality(q int) int {
	if q < 1 {
		return 1
	}
	if q > 100 {
		return 100
	}
	return q
}

func margin(o *Overlay) int {
	if o.Margin > 0 {
		return o.Margin
	}
	return DefaultMargin
}

// overlayXY returns the x:y expression for the overlay filter.
func overlayXY(p Position, m int) string {
	switch p {
	case PositionTopLeft:
		return fmt.Sprintf("%d:%d", m, m)
	case PositionTopRight:
		return fmt.Sprintf("W-w-%d:%d", m, m)
	case PositionBottomLeft:
		return fmt.Sprintf("%d:H-h-%d", m, m)
	case PositionCenter:
		return "(W-w)/2:(H-h)/2"
	default:
		return fmt.Sprintf("W-w-%d:H-h-%d", m, m)
	}
}

// drawtextXY returns the x and y options for the drawtext filter.
func drawtextXY(p Position, m int) string {
	switch p {
	case PositionTopLeft:
		return fmt.Sprintf("x=%d:y=%d", m, m)
	case PositionTopRight:
		return fmt.Sprintf("x=w-tw-%d:y=%d", m, m)
	case PositionBottomLeft:
		return fmt.Sprintf("x=%d:y=h-th-%d", m, m)
	case PositionCenter:
		return "x=(w-tw)/2:y=(h-th)/2"
	default:
		return fmt.Sprintf("x=w-tw-%d:y=h-th-%d", m, m)
	}
}

func drawtextFilter(o *Overlay) string {
	size := o.FontSize
	if size <= 0 {
		size = DefaultFontSize
	}
	color := o.FontColor
	if color == "" {
		color = DefaultFontColor
	}

	opts := []string{"text=" + EscapeDrawtext(o.Text)}
	if o.FontFile != "" {
		opts = append(opts, "fontfile="+EscapeDrawtext(o.FontFile))
	}
	opts = append(opts,
		"fontsize="+strconv.Itoa(size),
		"fontcolor="+color,
		drawtextXY(o.Position, margin(o)),
	)
	return "drawtext=" + strings.Join(opts, ":")
}

// quoteConcatPath single-quotes a path for the concat demuxer.
func quoteConcatPath(p string) string {
	return "'" + strings.ReplaceAll(p, "'", `'\''`) + "'"
}
