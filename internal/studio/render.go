package studio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/maauso/gifstudio-api/internal/job"
	"github.com/maauso/gifstudio-api/internal/media"
)

// ErrNoOutput is returned when a render has no output file to serve.
var ErrNoOutput = errors.New("render has no output")

// Render progress checkpoints. ffmpeg runs as a single step.
const (
	progressStarted = 10
	progressEncoded = 90
)

// StartRender captures the project's current frames and settings into a new
// QUEUED render job. Later edits to the project do not affect the job.
// ProcessRender must be called to run it.
func (s *Service) StartRender(ctx context.Context, projectID string, opts RenderOptions) (*job.Job, error) {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	p, err := s.projects.FindByID(ctx, projectID)
	if err != nil {
		return nil, err
	}

	frames := p.Frames()
	if len(frames) == 0 {
		return nil, ErrNoFrames
	}
	settings := p.Settings()

	j := job.New(projectID, settings.Format)
	j.FrameCount = len(frames)
	j.Publish = opts.Publish

	if err := s.jobs.Save(ctx, j); err != nil {
		s.logger.Error("failed to save render job",
			slog.String("job_id", j.ID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("save render job: %w", err)
	}

	s.mu.Lock()
	s.pending[j.ID] = renderInput{frames: frames, settings: settings}
	s.mu.Unlock()

	s.logger.Info("render queued",
		slog.String("job_id", j.ID),
		slog.String("project_id", projectID),
		slog.String("format", string(settings.Format)),
		slog.Int("frames", len(frames)),
		slog.Bool("publish", opts.Publish),
	)
	return j.Clone(), nil
}

// ProcessRender runs a queued render to completion. It waits for a free render
// slot, encodes the captured frames and optionally publishes the output.
// The job ends COMPLETED, FAILED or CANCELLED; the returned error describes
// why it did not complete.
func (s *Service) ProcessRender(ctx context.Context, jobID string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	in, ok := s.pending[jobID]
	if ok {
		delete(s.pending, jobID)
		s.cancels[jobID] = cancel
	}
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrRenderNotPending, jobID)
	}
	defer func() {
		s.mu.Lock()
		delete(s.cancels, jobID)
		s.mu.Unlock()
	}()

	// Persisting the outcome must not depend on the render context.
	saveCtx := context.WithoutCancel(ctx)

	j, err := s.jobs.FindByID(saveCtx, jobID)
	if err != nil {
		return err
	}

	logger := s.logger.With(
		slog.String("job_id", jobID),
		slog.String("project_id", j.ProjectID),
	)

	select {
	case s.renderSlots <- struct{}{}:
	case <-ctx.Done():
		return s.finishFailed(saveCtx, logger, j, "", ctx.Err())
	}
	defer func() { <-s.renderSlots }()

	if err := j.Start(); err != nil {
		return err
	}
	j.UpdateProgress(progressStarted)
	if err := s.jobs.Save(saveCtx, j); err != nil {
		logger.Warn("failed to save render job", slog.String("error", err.Error()))
	}
	logger.Info("render started")

	output, err := s.store.Reserve(ctx, jobID+in.settings.Format.Extension())
	if err != nil {
		return s.finishFailed(saveCtx, logger, j, "", fmt.Errorf("reserve output: %w", err))
	}

	spec := renderSpec(in, output)
	if err := s.processor.Render(ctx, spec); err != nil {
		return s.finishFailed(saveCtx, logger, j, output, fmt.Errorf("render: %w", err))
	}
	j.UpdateProgress(progressEncoded)

	var url string
	if j.Publish {
		url, err = s.publish(ctx, jobID, in.settings.Format, output)
		if err != nil {
			return s.finishFailed(saveCtx, logger, j, output, fmt.Errorf("publish: %w", err))
		}
	}

	j.SetOutput(output, url)
	if err := j.Complete(); err != nil {
		return err
	}
	if err := s.jobs.Save(saveCtx, j); err != nil {
		logger.Error("failed to save completed render job", slog.String("error", err.Error()))
		return fmt.Errorf("save render job: %w", err)
	}

	logger.Info("render completed",
		slog.String("output", output),
		slog.String("url", url),
	)
	return nil
}

// Render queues and runs a render synchronously.
func (s *Service) Render(ctx context.Context, projectID string, opts RenderOptions) (*job.Job, error) {
	j, err := s.StartRender(ctx, projectID, opts)
	if err != nil {
		return nil, err
	}
	if err := s.ProcessRender(ctx, j.ID); err != nil {
		s.logger.Debug("render did not complete",
			slog.String("job_id", j.ID),
			slog.String("error", err.Error()),
		)
	}
	return s.GetRender(context.WithoutCancel(ctx), j.ID)
}

// GetRender returns a render job.
func (s *Service) GetRender(ctx context.Context, jobID string) (*job.Job, error) {
	return s.jobs.FindByID(ctx, jobID)
}

// ListRenders returns the render jobs of a project, oldest first.
func (s *Service) ListRenders(ctx context.Context, projectID string) ([]*job.Job, error) {
	if _, err := s.projects.FindByID(ctx, projectID); err != nil {
		return nil, err
	}
	return s.jobs.ListByProject(ctx, projectID)
}

// CancelRender cancels a queued or running render. Cancelling a job that has
// already finished is a no-op.
func (s *Service) CancelRender(ctx context.Context, jobID string) (*job.Job, error) {
	j, err := s.jobs.FindByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if j.IsTerminal() {
		return j, nil
	}

	s.mu.Lock()
	if cancel, ok := s.cancels[jobID]; ok {
		s.mu.Unlock()
		cancel()
		s.logger.Info("render cancellation requested", slog.String("job_id", jobID))
		return j, nil
	}
	_, queued := s.pending[jobID]
	delete(s.pending, jobID)
	s.mu.Unlock()

	if !queued {
		return j, nil
	}
	if err := j.Cancel(); err != nil {
		return nil, err
	}
	if err := s.jobs.Save(ctx, j); err != nil {
		return nil, fmt.Errorf("save render job: %w", err)
	}
	s.logger.Info("render cancelled", slog.String("job_id", jobID))
	return j, nil
}

// OpenRenderOutput opens the output file of a completed render.
// The caller is responsible for closing the returned ReadCloser.
func (s *Service) OpenRenderOutput(ctx context.Context, jobID string) (io.ReadCloser, *job.Job, error) {
	j, err := s.jobs.FindByID(ctx, jobID)
	if err != nil {
		return nil, nil, err
	}
	if !j.IsTerminal() {
		return nil, nil, ErrRenderInProgress
	}
	if j.OutputPath == "" {
		return nil, nil, ErrNoOutput
	}
	r, err := s.store.Open(ctx, j.OutputPath)
	if err != nil {
		return nil, nil, err
	}
	return r, j, nil
}

// DeleteRenderOutput deletes the output file of a finished render. Deleting
// an output that is already gone succeeds.
func (s *Service) DeleteRenderOutput(ctx context.Context, jobID string) (*job.Job, error) {
	j, err := s.jobs.FindByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if !j.IsTerminal() {
		return nil, ErrRenderInProgress
	}
	if j.OutputPath == "" {
		return j, nil
	}

	if err := s.store.Remove(ctx, []string{j.OutputPath}); err != nil {
		return nil, fmt.Errorf("remove render output: %w", err)
	}
	j.ClearOutput()
	if err := s.jobs.Save(ctx, j); err != nil {
		return nil, fmt.Errorf("save render job: %w", err)
	}

	s.logger.Info("render output deleted", slog.String("job_id", jobID))
	return j, nil
}

// finishFailed records a render that did not complete. A job that never
// started, or whose context was cancelled, ends CANCELLED; any other failure
// ends FAILED. A partial output is removed. It returns cause.
func (s *Service) finishFailed(ctx context.Context, logger *slog.Logger, j *job.Job, output string, cause error) error {
	if output != "" {
		s.discard(ctx, []string{output})
	}

	if errors.Is(cause, context.Canceled) || j.GetStatus() == job.StatusQueued {
		if err := j.Cancel(); err != nil {
			logger.Warn("failed to cancel render job", slog.String("error", err.Error()))
		}
		logger.Info("render cancelled")
	} else {
		if err := j.Fail(cause.Error()); err != nil {
			logger.Warn("failed to fail render job", slog.String("error", err.Error()))
		}
		logger.Error("render failed", slog.String("error", cause.Error()))
	}

	if err := s.jobs.Save(ctx, j); err != nil {
		logger.Error("failed to save render job", slog.String("error", err.Error()))
	}
	return cause
}

func (s *Service) publish(ctx context.Context, jobID string, format media.Format, output string) (string, error) {
	r, err := s.store.Open(ctx, output)
	if err != nil {
		return "", err
	}
	defer func() { _ = r.Close() }()
	return s.store.Publish(ctx, "renders/"+jobID+format.Extension(), format.ContentType(), r)
}

// renderSpec builds the media render spec from captured project state.
func renderSpec(in renderInput, output string) media.RenderSpec {
	frames := make([]media.FrameInput, len(in.frames))
	for i, f := range in.frames {
		frames[i] = media.FrameInput{Path: f.SourcePath, Delay: f.Delay()}
	}
	return media.RenderSpec{
		Frames:  frames,
		Output:  output,
		Format:  in.settings.Format,
		FPS:     in.settings.FPS,
		Width:   in.settings.Width,
		Height:  in.settings.Height,
		Loop:    in.settings.Loop,
		Quality: in.settings.Quality,
		Overlay: in.settings.Overlay,
	}
}
