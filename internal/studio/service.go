// Package studio provides the editing and rendering use cases. It
// orchestrates projects, their undo/redo history, media processing, asset
// storage and render jobs.
package studio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/maauso/gifstudio-api/internal/history"
	"github.com/maauso/gifstudio-api/internal/job"
	"github.com/maauso/gifstudio-api/internal/media"
	"github.com/maauso/gifstudio-api/internal/project"
	"github.com/maauso/gifstudio-api/internal/storage"
)

// Static errors for studio operations.
var (
	// ErrNoFrames is returned when rendering a project without frames.
	ErrNoFrames = errors.New("project has no frames")
	// ErrEmptyUpload is returned when an upload carries no data.
	ErrEmptyUpload = errors.New("upload is empty")
	// ErrRenderInProgress is returned when an operation needs a finished render.
	ErrRenderInProgress = errors.New("render in progress")
	// ErrRenderNotPending is returned when ProcessRender finds no queued input for a job.
	ErrRenderNotPending = errors.New("render is not pending")
)

// Defaults for service options.
const (
	DefaultMaxConcurrentRenders = 2
	DefaultPreviewSize          = 320
	DefaultMaxImportFrames      = 300
)

// Upload is a named blob received from a client.
type Upload struct {
	Name string
	Data io.Reader
}

// RenderOptions configures a render request.
type RenderOptions struct {
	// Publish uploads the output through the storage publish target.
	Publish bool
}

// renderInput is the project state captured when a render is requested.
type renderInput struct {
	frames   []project.Frame
	settings project.Settings
}

// Service implements the studio use cases.
type Service struct {
	projects  project.Repository
	jobs      job.Repository
	processor media.Processor
	store     storage.Storage
	logger    *slog.Logger

	maxHistory      int
	previewSize     int
	maxImportFrames int
	renderSlots     chan struct{}

	mu      sync.Mutex
	pending map[string]renderInput
	cancels map[string]context.CancelFunc

	// lifecycle orders job creation in StartRender against DeleteProject,
	// so a project is never deleted while a render of it is being queued.
	lifecycle sync.Mutex
}

// Option configures a Service.
type Option func(*Service)

// WithMaxHistory sets the undo depth of new projects.
func WithMaxHistory(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxHistory = n
		}
	}
}

// WithMaxConcurrentRenders bounds the number of ffmpeg renders running at once.
func WithMaxConcurrentRenders(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.renderSlots = make(chan struct{}, n)
		}
	}
}

// WithPreviewSize sets the longest side of frame previews in pixels.
func WithPreviewSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.previewSize = n
		}
	}
}

// WithMaxImportFrames caps the number of frames extracted from one video.
func WithMaxImportFrames(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxImportFrames = n
		}
	}
}

// NewService creates a new studio Service.
func NewService(
	projects project.Repository,
	jobs job.Repository,
	processor media.Processor,
	store storage.Storage,
	logger *slog.Logger,
	opts ...Option,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		projects:        projects,
		jobs:            jobs,
		processor:       processor,
		store:           store,
		logger:          logger,
		maxHistory:      history.DefaultMaxHistory,
		previewSize:     DefaultPreviewSize,
		maxImportFrames: DefaultMaxImportFrames,
		renderSlots:     make(chan struct{}, DefaultMaxConcurrentRenders),
		pending:         make(map[string]renderInput),
		cancels:         make(map[string]context.CancelFunc),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateProject creates and stores an empty project.
func (s *Service) CreateProject(ctx context.Context, name string, settings project.Settings) (project.View, error) {
	p, err := project.New(name, settings, s.maxHistory, history.WithLogger(s.logger))
	if err != nil {
		return project.View{}, err
	}

	if err := s.projects.Save(ctx, p); err != nil {
		s.logger.Error("failed to save project",
			slog.String("project_id", p.ID()),
			slog.String("error", err.Error()),
		)
		return project.View{}, fmt.Errorf("save project: %w", err)
	}

	s.logger.Info("project created",
		slog.String("project_id", p.ID()),
		slog.String("format", string(p.Settings().Format)),
	)
	return p.View(), nil
}

// GetProject returns a project view.
func (s *Service) GetProject(ctx context.Context, projectID string) (project.View, error) {
	p, err := s.projects.FindByID(ctx, projectID)
	if err != nil {
		return project.View{}, err
	}
	return p.View(), nil
}

// ListProjects returns views of all projects.
func (s *Service) ListProjects(ctx context.Context) ([]project.View, error) {
	list, err := s.projects.List(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]project.View, len(list))
	for i, p := range list {
		views[i] = p.View()
	}
	return views, nil
}

// detachProject removes the project from the repository once none of its
// renders is queued or running, and returns it with its finished renders.
func (s *Service) detachProject(ctx context.Context, projectID string) (*project.Project, []*job.Job, error) {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	p, err := s.projects.FindByID(ctx, projectID)
	if err != nil {
		return nil, nil, err
	}

	renders, err := s.jobs.ListByProject(ctx, projectID)
	if err != nil {
		return nil, nil, fmt.Errorf("list renders: %w", err)
	}
	for _, j := range renders {
		if !j.IsTerminal() {
			return nil, nil, fmt.Errorf("%w: %s", ErrRenderInProgress, j.ID)
		}
	}

	if err := s.projects.Delete(ctx, projectID); err != nil {
		return nil, nil, err
	}
	return p, renders, nil
}

// DeleteProject removes a project with its render jobs and frees every asset
// any of its snapshots references. It fails with ErrRenderInProgress while a
// render of the project is queued or running.
func (s *Service) DeleteProject(ctx context.Context, projectID string) error {
	p, renders, err := s.detachProject(ctx, projectID)
	if err != nil {
		return err
	}

	paths := p.ReferencedAssets()
	for _, j := range renders {
		if j.OutputPath != "" {
			paths = append(paths, j.OutputPath)
		}
		if err := s.jobs.Delete(ctx, j.ID); err != nil && !errors.Is(err, job.ErrJobNotFound) {
			s.logger.Warn("failed to delete render job",
				slog.String("job_id", j.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	if err := s.store.Remove(ctx, paths); err != nil {
		s.logger.Warn("failed to remove some project assets",
			slog.String("project_id", projectID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.Info("project deleted",
		slog.String("project_id", projectID),
		slog.Int("assets", len(paths)),
	)
	return nil
}

// AddFrames stores each upload, builds its preview and appends all of them as
// a single edit.
func (s *Service) AddFrames(ctx context.Context, projectID string, uploads []Upload) (project.View, error) {
	p, err := s.projects.FindByID(ctx, projectID)
	if err != nil {
		return project.View{}, err
	}
	if len(uploads) == 0 {
		return project.View{}, ErrEmptyUpload
	}

	frames := make([]project.Frame, 0, len(uploads))
	var stored []string
	for _, u := range uploads {
		f, err := s.ingestImage(ctx, u.Name, u.Data)
		if err != nil {
			s.discard(ctx, stored)
			return project.View{}, err
		}
		stored = append(stored, f.SourcePath, f.PreviewPath)
		frames = append(frames, f)
	}

	p.AppendFrames(frames...)
	if err := s.projects.Save(ctx, p); err != nil {
		return project.View{}, fmt.Errorf("save project: %w", err)
	}

	s.logger.Info("frames added",
		slog.String("project_id", projectID),
		slog.Int("count", len(frames)),
	)
	return p.View(), nil
}

// ImportVideo extracts frames from a video and appends them as a single edit.
func (s *Service) ImportVideo(ctx context.Context, projectID string, u Upload, opts media.ExtractOpts) (project.View, error) {
	p, err := s.projects.FindByID(ctx, projectID)
	if err != nil {
		return project.View{}, err
	}

	if opts.MaxFrames <= 0 || opts.MaxFrames > s.maxImportFrames {
		opts.MaxFrames = s.maxImportFrames
	}

	if u.Data == nil {
		return project.View{}, ErrEmptyUpload
	}
	name := uploadName(u.Name, "video.mp4")
	videoPath, err := s.store.Put(ctx, name, u.Data)
	if err != nil {
		return project.View{}, fmt.Errorf("store video: %w", err)
	}
	workDir, err := s.store.WorkDir(ctx, "extract")
	if err != nil {
		s.discard(ctx, []string{videoPath})
		return project.View{}, fmt.Errorf("create work directory: %w", err)
	}
	defer s.discard(context.WithoutCancel(ctx), []string{videoPath, workDir})

	info, err := s.processor.Probe(ctx, videoPath)
	if err != nil {
		return project.View{}, fmt.Errorf("probe video: %w", err)
	}
	s.logger.Debug("video probed",
		slog.String("project_id", projectID),
		slog.Float64("duration", info.Duration),
		slog.Int("width", info.Width),
		slog.Int("height", info.Height),
		slog.Float64("frame_rate", info.FrameRate),
	)

	extracted, err := s.processor.ExtractFrames(ctx, videoPath, workDir, opts)
	if err != nil {
		return project.View{}, fmt.Errorf("extract frames: %w", err)
	}

	stem := strings.TrimSuffix(name, filepath.Ext(name))
	frames := make([]project.Frame, 0, len(extracted))
	var stored []string
	for i, path := range extracted {
		f, err := s.ingestExtracted(ctx, fmt.Sprintf("%s_%05d.png", stem, i+1), path)
		if err != nil {
			s.discard(ctx, stored)
			return project.View{}, err
		}
		stored = append(stored, f.SourcePath, f.PreviewPath)
		frames = append(frames, f)
	}

	p.AppendFrames(frames...)
	if err := s.projects.Save(ctx, p); err != nil {
		return project.View{}, fmt.Errorf("save project: %w", err)
	}

	s.logger.Info("video imported",
		slog.String("project_id", projectID),
		slog.Int("frames", len(frames)),
	)
	return p.View(), nil
}

// RemoveFrame removes a frame. Its files stay until the project is deleted.
func (s *Service) RemoveFrame(ctx context.Context, projectID, frameID string) (project.View, error) {
	return s.edit(ctx, projectID, func(p *project.Project) error {
		_, err := p.RemoveFrame(frameID)
		return err
	})
}

// MoveFrame moves a frame to a new position.
func (s *Service) MoveFrame(ctx context.Context, projectID, frameID string, to int) (project.View, error) {
	return s.edit(ctx, projectID, func(p *project.Project) error {
		return p.MoveFrame(frameID, to)
	})
}

// ReorderFrames puts every frame in the given order as one edit.
func (s *Service) ReorderFrames(ctx context.Context, projectID string, frameIDs []string) (project.View, error) {
	return s.edit(ctx, projectID, func(p *project.Project) error {
		return p.ReorderFrames(frameIDs)
	})
}

// RenameProject changes a project's display name. An empty name is ignored.
func (s *Service) RenameProject(ctx context.Context, projectID, name string) (project.View, error) {
	return s.edit(ctx, projectID, func(p *project.Project) error {
		p.Rename(name)
		return nil
	})
}

// SetFrameDelay sets or clears a frame's display time override.
func (s *Service) SetFrameDelay(ctx context.Context, projectID, frameID string, delayMs *int) (project.View, error) {
	return s.edit(ctx, projectID, func(p *project.Project) error {
		return p.SetFrameDelay(frameID, delayMs)
	})
}

// UpdateSettings replaces output settings. The overlay image is managed by
// SetOverlayImage only, so the current image is carried over when the new
// settings keep an overlay.
func (s *Service) UpdateSettings(ctx context.Context, projectID string, settings project.Settings) (project.View, error) {
	return s.edit(ctx, projectID, func(p *project.Project) error {
		if settings.Overlay != nil {
			o := *settings.Overlay
			o.ImagePath = ""
			o.FontFile = ""
			if cur := p.Settings().Overlay; cur != nil {
				o.ImagePath = cur.ImagePath
			}
			settings.Overlay = &o
		}
		return p.UpdateSettings(settings)
	})
}

// SetOverlayImage stores an image and uses it as the project's overlay image.
func (s *Service) SetOverlayImage(ctx context.Context, projectID string, u Upload) (project.View, error) {
	p, err := s.projects.FindByID(ctx, projectID)
	if err != nil {
		return project.View{}, err
	}

	if u.Data == nil {
		return project.View{}, ErrEmptyUpload
	}
	path, err := s.store.Put(ctx, uploadName(u.Name, "overlay.png"), u.Data)
	if err != nil {
		return project.View{}, fmt.Errorf("store overlay image: %w", err)
	}

	settings := p.Settings()
	if settings.Overlay == nil {
		settings.Overlay = &media.Overlay{}
	}
	settings.Overlay.ImagePath = path
	if err := p.UpdateSettings(settings); err != nil {
		s.discard(ctx, []string{path})
		return project.View{}, err
	}
	if err := s.projects.Save(ctx, p); err != nil {
		return project.View{}, fmt.Errorf("save project: %w", err)
	}

	s.logger.Info("overlay image set", slog.String("project_id", projectID))
	return p.View(), nil
}

// Undo restores the previous frame list. The bool reports whether a step was undone.
func (s *Service) Undo(ctx context.Context, projectID string) (project.View, bool, error) {
	return s.step(ctx, projectID, "undo", (*project.Project).Undo)
}

// Redo restores the next frame list. The bool reports whether a step was redone.
func (s *Service) Redo(ctx context.Context, projectID string) (project.View, bool, error) {
	return s.step(ctx, projectID, "redo", (*project.Project).Redo)
}

func (s *Service) step(ctx context.Context, projectID, op string, fn func(*project.Project) bool) (project.View, bool, error) {
	p, err := s.projects.FindByID(ctx, projectID)
	if err != nil {
		return project.View{}, false, err
	}

	applied := fn(p)
	if applied {
		if err := s.projects.Save(ctx, p); err != nil {
			return project.View{}, false, fmt.Errorf("save project: %w", err)
		}
	}

	s.logger.Debug("history step",
		slog.String("project_id", projectID),
		slog.String("op", op),
		slog.Bool("applied", applied),
	)
	return p.View(), applied, nil
}

// ClearHistory drops the undo timeline, keeping the current frames.
func (s *Service) ClearHistory(ctx context.Context, projectID string) (project.View, error) {
	return s.edit(ctx, projectID, func(p *project.Project) error {
		p.ClearHistory()
		return nil
	})
}

// History returns the undo/redo state of a project.
func (s *Service) History(ctx context.Context, projectID string) (project.HistoryState, error) {
	p, err := s.projects.FindByID(ctx, projectID)
	if err != nil {
		return project.HistoryState{}, err
	}
	return p.HistoryState(), nil
}

// OpenPreview opens the preview image of a frame.
// The caller is responsible for closing the returned ReadCloser.
func (s *Service) OpenPreview(ctx context.Context, projectID, frameID string) (io.ReadCloser, error) {
	p, err := s.projects.FindByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	f, err := p.Frame(frameID)
	if err != nil {
		return nil, err
	}
	return s.store.Open(ctx, f.PreviewPath)
}

// edit loads a project, applies fn and saves the result.
func (s *Service) edit(ctx context.Context, projectID string, fn func(*project.Project) error) (project.View, error) {
	p, err := s.projects.FindByID(ctx, projectID)
	if err != nil {
		return project.View{}, err
	}
	if err := fn(p); err != nil {
		return project.View{}, err
	}
	if err := s.projects.Save(ctx, p); err != nil {
		return project.View{}, fmt.Errorf("save project: %w", err)
	}
	return p.View(), nil
}

// ingestImage stores an uploaded image and its preview.
func (s *Service) ingestImage(ctx context.Context, name string, data io.Reader) (project.Frame, error) {
	if data == nil {
		return project.Frame{}, ErrEmptyUpload
	}
	name = uploadName(name, "frame.png")
	src, err := s.store.Put(ctx, name, data)
	if err != nil {
		return project.Frame{}, fmt.Errorf("store frame: %w", err)
	}

	preview, err := s.makePreview(ctx, src)
	if err != nil {
		s.discard(ctx, []string{src})
		return project.Frame{}, err
	}
	return project.NewFrame(name, src, preview), nil
}

// ingestExtracted copies an extracted frame out of the work directory.
func (s *Service) ingestExtracted(ctx context.Context, name, path string) (project.Frame, error) {
	r, err := s.store.Open(ctx, path)
	if err != nil {
		return project.Frame{}, fmt.Errorf("open extracted frame: %w", err)
	}
	defer func() { _ = r.Close() }()
	return s.ingestImage(ctx, name, r)
}

func (s *Service) makePreview(ctx context.Context, src string) (string, error) {
	stem := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
	dst, err := s.store.Reserve(ctx, stem+"_preview.png")
	if err != nil {
		return "", fmt.Errorf("reserve preview: %w", err)
	}
	if err := s.processor.MakePreview(ctx, src, dst, s.previewSize); err != nil {
		s.discard(ctx, []string{dst})
		return "", fmt.Errorf("make preview: %w", err)
	}
	return dst, nil
}

// discard removes files nothing references yet, logging failures.
func (s *Service) discard(ctx context.Context, paths []string) {
	if len(paths) == 0 {
		return
	}
	if err := s.store.Remove(ctx, paths); err != nil {
		s.logger.Warn("failed to remove files",
			slog.Int("count", len(paths)),
			slog.String("error", err.Error()),
		)
	}
}

// uploadName returns name, or fallback when the client sent none.
func uploadName(name, fallback string) string {
	if name = filepath.Base(strings.TrimSpace(name)); name == "" || name == "." || name == "/" {
		return fallback
	}
	return name
}
