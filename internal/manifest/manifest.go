// Package manifest loads YAML render descriptions for offline use.
//
// A manifest lists frames and output settings in the same shape as a studio
// project, so a render can be reproduced without running the HTTP service.
package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/maauso/gifstudio-api/internal/media"
	"github.com/maauso/gifstudio-api/internal/project"
)

// ErrNoOutput is returned when neither the manifest nor the caller names an output file.
var ErrNoOutput = errors.New("manifest: no output path")

// Manifest describes a render.
type Manifest struct {
	Format  string   `yaml:"format,omitempty"`
	FPS     int      `yaml:"fps,omitempty"`
	Width   int      `yaml:"width,omitempty"`
	Height  int      `yaml:"height,omitempty"`
	Loop    int      `yaml:"loop,omitempty"`
	Quality int      `yaml:"quality,omitempty"`
	Output  string   `yaml:"output,omitempty"`
	Overlay *Overlay `yaml:"overlay,omitempty"`
	Frames  []Frame  `yaml:"frames,omitempty"`
}

// Overlay mirrors media.Overlay with YAML field names.
type Overlay struct {
	Text      string  `yaml:"text,omitempty"`
	FontSize  int     `yaml:"font_size,omitempty"`
	FontColor string  `yaml:"font_color,omitempty"`
	FontFile  string  `yaml:"font_file,omitempty"`
	Image     string  `yaml:"image,omitempty"`
	Position  string  `yaml:"position,omitempty"`
	Margin    int     `yaml:"margin,omitempty"`
	Opacity   float64 `yaml:"opacity,omitempty"`
}

// Frame is one input image. DelayMs overrides 1/fps when set.
type Frame struct {
	Path    string `yaml:"path"`
	DelayMs *int   `yaml:"delay_ms,omitempty"`
}

// Load reads a manifest file. Relative paths inside it resolve against the
// directory that contains the manifest.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("manifest: read %s: %w", path, err)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("manifest: parse %s: %w", path, err)
	}
	m.resolve(filepath.Dir(path))
	return m, nil
}

// Parse decodes a manifest. Unknown keys are rejected.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *Manifest) resolve(dir string) {
	abs := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(dir, p)
	}
	for i := range m.Frames {
		m.Frames[i].Path = abs(m.Frames[i].Path)
	}
	m.Output = abs(m.Output)
	if m.Overlay != nil {
		m.Overlay.Image = abs(m.Overlay.Image)
		m.Overlay.FontFile = abs(m.Overlay.FontFile)
	}
}

// Save writes the manifest as YAML.
func (m *Manifest) Save(path string) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("manifest: encode: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("manifest: write %s: %w", path, err)
	}
	return nil
}

// Settings converts the output section into validated project settings.
func (m *Manifest) Settings() (project.Settings, error) {
	s := project.Settings{
		Format:  media.Format(m.Format),
		FPS:     m.FPS,
		Width:   m.Width,
		Height:  m.Height,
		Loop:    m.Loop,
		Quality: m.Quality,
	}
	if o := m.Overlay; o != nil {
		s.Overlay = &media.Overlay{
			Text:      o.Text,
			FontSize:  o.FontSize,
			FontColor: o.FontColor,
			FontFile:  o.FontFile,
			ImagePath: o.Image,
			Position:  media.Position(o.Position),
			Margin:    o.Margin,
			Opacity:   o.Opacity,
		}
	}
	s = s.WithDefaults()
	if err := s.Validate(); err != nil {
		return project.Settings{}, err
	}
	return s, nil
}

// RenderSpec builds the render request. A non-empty output overrides the
// manifest's own output path.
func (m *Manifest) RenderSpec(output string) (media.RenderSpec, error) {
	if output == "" {
		output = m.Output
	}
	if output == "" {
		return media.RenderSpec{}, ErrNoOutput
	}

	s, err := m.Settings()
	if err != nil {
		return media.RenderSpec{}, err
	}

	frames := make([]media.FrameInput, len(m.Frames))
	for i, f := range m.Frames {
		frames[i] = media.FrameInput{Path: f.Path}
		if f.DelayMs != nil {
			frames[i].Delay = time.Duration(*f.DelayMs) * time.Millisecond
		}
	}

	spec := media.RenderSpec{
		Frames:  frames,
		Output:  output,
		Format:  s.Format,
		FPS:     s.FPS,
		Width:   s.Width,
		Height:  s.Height,
		Loop:    s.Loop,
		Quality: s.Quality,
		Overlay: s.Overlay,
	}
	if err := spec.Validate(); err != nil {
		return media.RenderSpec{}, err
	}
	return spec, nil
}
