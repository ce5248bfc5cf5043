package manifest

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maauso/gifstudio-api/internal/media"
	"github.com/maauso/gifstudio-api/internal/project"
)

const sample = `
format: webp
fps: 12
width: 320
height: 240
loop: 2
output: out/anim.webp
overlay:
  text: hello
  image: logo.png
  position: top-left
frames:
  - path: a.png
  - path: /abs/b.png
    delay_ms: 500
`

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "render.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_ResolvesRelativePaths(t *testing.T) {
	path := writeManifest(t, sample)
	dir := filepath.Dir(path)

	m, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "webp", m.Format)
	assert.Equal(t, filepath.Join(dir, "a.png"), m.Frames[0].Path)
	assert.Equal(t, "/abs/b.png", m.Frames[1].Path)
	assert.Equal(t, filepath.Join(dir, "out/anim.webp"), m.Output)
	assert.Equal(t, filepath.Join(dir, "logo.png"), m.Overlay.Image)
	assert.Empty(t, m.Overlay.FontFile)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestParse_RejectsUnknownKeys(t *testing.T) {
	_, err := Parse([]byte("format: gif\nspeed: 3\n"))
	assert.Error(t, err)
}

func TestRenderSpec(t *testing.T) {
	m, err := Load(writeManifest(t, sample))
	require.NoError(t, err)

	spec, err := m.RenderSpec("")
	require.NoError(t, err)

	assert.Equal(t, media.FormatWebP, spec.Format)
	assert.Equal(t, 12, spec.FPS)
	assert.Equal(t, 320, spec.Width)
	assert.Equal(t, 240, spec.Height)
	assert.Equal(t, 2, spec.Loop)
	assert.Equal(t, project.DefaultQuality, spec.Quality)
	assert.Equal(t, m.Output, spec.Output)
	require.Len(t, spec.Frames, 2)
	assert.Zero(t, spec.Frames[0].Delay)
	assert.Equal(t, 500*time.Millisecond, spec.Frames[1].Delay)

	require.NotNil(t, spec.Overlay)
	assert.Equal(t, "hello", spec.Overlay.Text)
	assert.Equal(t, media.PositionTopLeft, spec.Overlay.Position)
	assert.Equal(t, media.DefaultFontSize, spec.Overlay.FontSize)
	assert.Equal(t, project.DefaultOpacity, spec.Overlay.Opacity)
}

func TestRenderSpec_Defaults(t *testing.T) {
	m, err := Parse([]byte("frames:\n  - path: a.png\n"))
	require.NoError(t, err)

	spec, err := m.RenderSpec("/tmp/out.gif")
	require.NoError(t, err)

	assert.Equal(t, media.FormatGIF, spec.Format)
	assert.Equal(t, project.DefaultFPS, spec.FPS)
	assert.Equal(t, "/tmp/out.gif", spec.Output)
	assert.Nil(t, spec.Overlay)
}

func TestRenderSpec_ZeroOpacityMeansOpaque(t *testing.T) {
	m, err := Parse([]byte("output: x.gif\noverlay:\n  image: logo.png\n  opacity: 0\nframes:\n  - path: a.png\n"))
	require.NoError(t, err)

	spec, err := m.RenderSpec("")
	require.NoError(t, err)
	require.NotNil(t, spec.Overlay)
	assert.Equal(t, project.DefaultOpacity, spec.Overlay.Opacity)

	m.Overlay.Opacity = 0.25
	spec, err = m.RenderSpec("")
	require.NoError(t, err)
	assert.Equal(t, 0.25, spec.Overlay.Opacity)
}

func TestRenderSpec_Errors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		output  string
		wantErr error
	}{
		{"no output", "frames:\n  - path: a.png\n", "", ErrNoOutput},
		{"no frames", "output: x.gif\n", "", media.ErrNoFrames},
		{"bad format", "format: avi\noutput: x.avi\nframes:\n  - path: a.png\n", "", project.ErrInvalidSettings},
		{"bad fps", "fps: 90\nframes:\n  - path: a.png\n", "x.gif", project.ErrInvalidSettings},
		{"odd mp4 size", "format: mp4\nwidth: 101\nheight: 100\nframes:\n  - path: a.png\n", "x.mp4", project.ErrInvalidSettings},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Parse([]byte(tt.yaml))
			require.NoError(t, err)

			_, err = m.RenderSpec(tt.output)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestSave_LoadsBackRelativeFrames(t *testing.T) {
	dir := t.TempDir()
	delay := 250
	m := &Manifest{
		Format: "gif",
		FPS:    8,
		Frames: []Frame{{Path: "frame_00001.png"}, {Path: "frame_00002.png", DelayMs: &delay}},
	}
	path := filepath.Join(dir, "render.yaml")
	require.NoError(t, m.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8, loaded.FPS)
	assert.Nil(t, loaded.Overlay)
	require.Len(t, loaded.Frames, 2)
	assert.Equal(t, filepath.Join(dir, "frame_00001.png"), loaded.Frames[0].Path)
	require.NotNil(t, loaded.Frames[1].DelayMs)
	assert.Equal(t, 250, *loaded.Frames[1].DelayMs)
}
