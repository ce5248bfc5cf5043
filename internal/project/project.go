// Package project provides the Project aggregate: an ordered list of frames,
// the output settings used to render them, and the undo/redo timeline that
// covers every change to the frame list.
package project

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/maauso/gifstudio-api/internal/history"
	"github.com/maauso/gifstudio-api/internal/id"
	"github.com/maauso/gifstudio-api/internal/media"
)

// Static errors for project edits.
var (
	// ErrFrameNotFound is returned when a frame ID is not part of the project.
	ErrFrameNotFound = errors.New("frame not found")
	// ErrInvalidIndex is returned when a move target is out of range.
	ErrInvalidIndex = errors.New("invalid frame index")
	// ErrInvalidOrder is returned when a reorder does not name every frame once.
	ErrInvalidOrder = errors.New("invalid frame order")
	// ErrInvalidDelay is returned for negative frame delays.
	ErrInvalidDelay = errors.New("invalid frame delay")
	// ErrInvalidSettings is returned when output settings are out of range.
	ErrInvalidSettings = errors.New("invalid settings")
)

// Settings defaults.
const (
	DefaultFormat  = media.FormatGIF
	DefaultFPS     = 10
	DefaultQuality = 80
	DefaultOpacity = 1.0
)

// Frame is one still image of a project.
// Frames are values: edits build new slices and never modify a Frame in place,
// so the frames captured by a history snapshot stay valid.
type Frame struct {
	// ID is the unique identifier for this frame.
	ID string
	// Name is the original upload name.
	Name string
	// SourcePath is the storage path of the full-resolution image.
	SourcePath string
	// PreviewPath is the storage path of the downscaled preview.
	PreviewPath string
	// DelayMs overrides the display time. Nil uses the project FPS.
	DelayMs *int
}

// NewFrame creates a Frame with a generated ID.
func NewFrame(name, sourcePath, previewPath string) Frame {
	return Frame{
		ID:          id.Generate(id.PrefixFrame),
		Name:        name,
		SourcePath:  sourcePath,
		PreviewPath: previewPath,
	}
}

// Delay returns the frame's display time override, or zero when unset.
func (f Frame) Delay() time.Duration {
	if f.DelayMs == nil {
		return 0
	}
	return time.Duration(*f.DelayMs) * time.Millisecond
}

// clone returns a copy that shares no DelayMs pointer.
func (f Frame) clone() Frame {
	if f.DelayMs != nil {
		d := *f.DelayMs
		f.DelayMs = &d
	}
	return f
}

func cloneFrames(frames []Frame) []Frame {
	out := make([]Frame, len(frames))
	for i, f := range frames {
		out[i] = f.clone()
	}
	return out
}

// Settings are the output parameters of a render.
type Settings struct {
	Format  media.Format
	FPS     int
	Width   int // 0 keeps source width
	Height  int // 0 keeps source height
	Loop    int
	Quality int
	Overlay *media.Overlay
}

// DefaultSettings returns the settings used for new projects.
func DefaultSettings() Settings {
	return Settings{
		Format:  DefaultFormat,
		FPS:     DefaultFPS,
		Quality: DefaultQuality,
	}
}

// WithDefaults fills zero-valued fields with their defaults.
func (s Settings) WithDefaults() Settings {
	if s.Format == "" {
		s.Format = DefaultFormat
	}
	if s.FPS == 0 {
		s.FPS = DefaultFPS
	}
	if s.Quality == 0 {
		s.Quality = DefaultQuality
	}
	if s.Overlay != nil {
		o := *s.Overlay
		if o.FontSize == 0 {
			o.FontSize = media.DefaultFontSize
		}
		if o.FontColor == "" {
			o.FontColor = media.DefaultFontColor
		}
		if o.Position == "" {
			o.Position = media.PositionBottomRight
		}
		if o.Margin == 0 {
			o.Margin = media.DefaultMargin
		}
		// Zero opacity reads as unset; an invisible overlay is never requested.
		if o.Opacity == 0 {
			o.Opacity = DefaultOpacity
		}
		s.Overlay = &o
	}
	return s
}

// Validate checks that all settings are in range.
func (s Settings) Validate() error {
	if !s.Format.IsValid() {
		return fmt.Errorf("%w: unsupported format %q", ErrInvalidSettings, s.Format)
	}
	if s.FPS < 1 || s.FPS > 60 {
		return fmt.Errorf("%w: fps must be between 1 and 60, got %d", ErrInvalidSettings, s.FPS)
	}
	if !validDimension(s.Width) || !validDimension(s.Height) {
		return fmt.Errorf("%w: width and height must be 0 or between 16 and 4096, got %dx%d",
			ErrInvalidSettings, s.Width, s.Height)
	}
	if s.Format == media.FormatMP4 && (s.Width%2 != 0 || s.Height%2 != 0) {
		return fmt.Errorf("%w: mp4 requires even width and height", ErrInvalidSettings)
	}
	if s.Loop < 0 {
		return fmt.Errorf("%w: loop must not be negative", ErrInvalidSettings)
	}
	if s.Quality < 1 || s.Quality > 100 {
		return fmt.Errorf("%w: quality must be between 1 and 100, got %d", ErrInvalidSettings, s.Quality)
	}
	if o := s.Overlay; o != nil {
		if o.Opacity < 0 || o.Opacity > 1 {
			return fmt.Errorf("%w: overlay opacity must be between 0 and 1", ErrInvalidSettings)
		}
		if o.Position != "" && !o.Position.IsValid() {
			return fmt.Errorf("%w: unknown overlay position %q", ErrInvalidSettings, o.Position)
		}
		if o.FontSize < 0 || o.Margin < 0 {
			return fmt.Errorf("%w: overlay font size and margin must not be negative", ErrInvalidSettings)
		}
	}
	return nil
}

func validDimension(v int) bool {
	return v == 0 || (v >= 16 && v <= 4096)
}

// clone returns a copy that shares no overlay pointer.
func (s Settings) clone() Settings {
	if s.Overlay != nil {
		o := *s.Overlay
		s.Overlay = &o
	}
	return s
}

// HistoryEntry summarizes one retained snapshot.
type HistoryEntry struct {
	FrameCount int
	CreatedAt  time.Time
}

// HistoryState describes the undo/redo timeline of a project.
type HistoryState struct {
	CanUndo    bool
	CanRedo    bool
	Length     int
	Cursor     int
	MaxHistory int
	Entries    []HistoryEntry
}

// View is a point-in-time copy of a project, safe to hand out.
type View struct {
	ID        string
	Name      string
	Frames    []Frame
	Settings  Settings
	History   HistoryState
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Project is the editing aggregate.
// All methods are safe for concurrent use.
type Project struct {
	mu sync.RWMutex

	id        string
	name      string
	frames    []Frame
	settings  Settings
	assets    map[string]struct{}
	history   *history.Manager[Frame]
	createdAt time.Time
	updatedAt time.Time
}

// New creates a project with a generated ID. Settings are defaulted and
// validated. The empty frame list is recorded as the first snapshot so the
// first edit can be undone.
func New(name string, settings Settings, maxHistory int, opts ...history.Option) (*Project, error) {
	return NewWithID(id.Generate(id.PrefixProject), name, settings, maxHistory, opts...)
}

// NewWithID creates a project with the specified ID.
func NewWithID(projectID, name string, settings Settings, maxHistory int, opts ...history.Option) (*Project, error) {
	settings = settings.WithDefaults()
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	h, err := history.New[Frame](maxHistory, opts...)
	if err != nil {
		return nil, err
	}

	if name == "" {
		name = "Untitled"
	}

	now := time.Now()
	p := &Project{
		id:        projectID,
		name:      name,
		settings:  settings,
		assets:    make(map[string]struct{}),
		history:   h,
		createdAt: now,
		updatedAt: now,
	}
	p.own(overlayImage(settings))
	p.setFrames([]Frame{})
	return p, nil
}

// ID returns the project identifier.
func (p *Project) ID() string {
	return p.id
}

// setFrames is the single mutation point for the frame list. Every edit and
// every undo/redo re-application goes through it; the history ignores the
// push while it is replaying. Callers hold p.mu.
func (p *Project) setFrames(frames []Frame) {
	p.frames = frames
	p.updatedAt = time.Now()
	p.history.PushState(frames)
}

// own records a storage path as belonging to the project until it is deleted.
// Callers hold p.mu.
func (p *Project) own(path string) {
	if path != "" {
		p.assets[path] = struct{}{}
	}
}

// AppendFrames adds frames at the end as a single edit.
func (p *Project) AppendFrames(frames ...Frame) {
	if len(frames) == 0 {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	next := make([]Frame, 0, len(p.frames)+len(frames))
	next = append(next, p.frames...)
	for _, f := range frames {
		p.own(f.SourcePath)
		p.own(f.PreviewPath)
		next = append(next, f.clone())
	}
	p.setFrames(next)
}

// RemoveFrame removes a frame and returns it. The frame's files are left
// alone because other snapshots may still reference them.
func (p *Project) RemoveFrame(frameID string) (Frame, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	i := p.indexOf(frameID)
	if i < 0 {
		return Frame{}, fmt.Errorf("%w: %s", ErrFrameNotFound, frameID)
	}

	removed := p.frames[i]
	p.setFrames(slices.Delete(slices.Clone(p.frames), i, i+1))
	return removed, nil
}

// MoveFrame moves a frame to position to. Moving a frame onto its own
// position records nothing.
func (p *Project) MoveFrame(frameID string, to int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	from := p.indexOf(frameID)
	if from < 0 {
		return fmt.Errorf("%w: %s", ErrFrameNotFound, frameID)
	}
	if to < 0 || to >= len(p.frames) {
		return fmt.Errorf("%w: %d not in [0, %d]", ErrInvalidIndex, to, len(p.frames)-1)
	}
	if from == to {
		return nil
	}

	moved := p.frames[from]
	next := slices.Delete(slices.Clone(p.frames), from, from+1)
	next = slices.Insert(next, to, moved)
	p.setFrames(next)
	return nil
}

// SetFrameDelay sets or, with nil, clears a frame's delay override.
func (p *Project) SetFrameDelay(frameID string, delayMs *int) error {
	if delayMs != nil && *delayMs < 0 {
		return fmt.Errorf("%w: %d ms", ErrInvalidDelay, *delayMs)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	i := p.indexOf(frameID)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrFrameNotFound, frameID)
	}

	next := slices.Clone(p.frames)
	if delayMs != nil {
		d := *delayMs
		next[i].DelayMs = &d
	} else {
		next[i].DelayMs = nil
	}
	p.setFrames(next)
	return nil
}

// ReorderFrames puts the frames in the order of frameIDs as a single edit.
// frameIDs must name every frame exactly once. The current order records nothing.
func (p *Project) ReorderFrames(frameIDs []string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(frameIDs) != len(p.frames) {
		return fmt.Errorf("%w: got %d ids for %d frames", ErrInvalidOrder, len(frameIDs), len(p.frames))
	}

	next := make([]Frame, len(frameIDs))
	seen := make(map[string]struct{}, len(frameIDs))
	for i, frameID := range frameIDs {
		if _, dup := seen[frameID]; dup {
			return fmt.Errorf("%w: duplicate id %s", ErrInvalidOrder, frameID)
		}
		seen[frameID] = struct{}{}

		j := p.indexOf(frameID)
		if j < 0 {
			return fmt.Errorf("%w: %s", ErrFrameNotFound, frameID)
		}
		next[i] = p.frames[j]
	}

	if slices.EqualFunc(next, p.frames, func(a, b Frame) bool { return a.ID == b.ID }) {
		return nil
	}
	p.setFrames(next)
	return nil
}

// Undo restores the previous frame list. It reports whether anything changed.
func (p *Project) Undo() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.history.UndoWith(p.setFrames)
}

// Redo restores the next frame list. It reports whether anything changed.
func (p *Project) Redo() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.history.RedoWith(p.setFrames)
}

// ClearHistory drops the timeline and records the current frames as its new
// base, so the project keeps an undo anchor.
func (p *Project) ClearHistory() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.history.ClearHistory()
	p.history.PushState(p.frames)
}

// HistoryState returns the current undo/redo state.
func (p *Project) HistoryState() HistoryState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.historyState()
}

func (p *Project) historyState() HistoryState {
	snaps := p.history.Snapshots()
	entries := make([]HistoryEntry, len(snaps))
	for i, s := range snaps {
		entries[i] = HistoryEntry{FrameCount: len(s.Items), CreatedAt: s.CreatedAt}
	}
	return HistoryState{
		CanUndo:    p.history.CanUndo(),
		CanRedo:    p.history.CanRedo(),
		Length:     len(snaps),
		Cursor:     p.history.Cursor(),
		MaxHistory: p.history.MaxHistory(),
		Entries:    entries,
	}
}

// Rename changes the display name.
func (p *Project) Rename(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if name != "" {
		p.name = name
		p.updatedAt = time.Now()
	}
}

// UpdateSettings replaces the output settings. Settings are not part of the
// undo timeline. A replaced overlay image stays in ReferencedAssets, since a
// render started earlier may still read it.
// A zero overlay opacity means the default (fully opaque); see WithDefaults.
func (p *Project) UpdateSettings(settings Settings) error {
	settings = settings.WithDefaults()
	if err := settings.Validate(); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.own(overlayImage(settings))
	p.settings = settings.clone()
	p.updatedAt = time.Now()
	return nil
}

func overlayImage(s Settings) string {
	if s.Overlay == nil {
		return ""
	}
	return s.Overlay.ImagePath
}

// Settings returns a copy of the output settings.
func (p *Project) Settings() Settings {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.settings.clone()
}

// Frames returns a copy of the current frame list.
func (p *Project) Frames() []Frame {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return cloneFrames(p.frames)
}

// Frame returns the frame with the given ID.
func (p *Project) Frame(frameID string) (Frame, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	i := p.indexOf(frameID)
	if i < 0 {
		return Frame{}, fmt.Errorf("%w: %s", ErrFrameNotFound, frameID)
	}
	return p.frames[i].clone(), nil
}

// View returns a copy of the whole project.
func (p *Project) View() View {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return View{
		ID:        p.id,
		Name:      p.name,
		Frames:    cloneFrames(p.frames),
		Settings:  p.settings.clone(),
		History:   p.historyState(),
		CreatedAt: p.createdAt,
		UpdatedAt: p.updatedAt,
	}
}

// ReferencedAssets returns every storage path the project has ever used:
// frame images and previews, including frames that were removed and have since
// left the timeline through eviction or ClearHistory, and every overlay image.
// The result is sorted.
func (p *Project) ReferencedAssets() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	paths := make([]string, 0, len(p.assets))
	for path := range p.assets {
		paths = append(paths, path)
	}
	slices.Sort(paths)
	return paths
}

func (p *Project) indexOf(frameID string) int {
	return slices.IndexFunc(p.frames, func(f Frame) bool { return f.ID == frameID })
}
