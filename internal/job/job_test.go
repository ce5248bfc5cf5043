package job

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/maauso/gifstudio-api/internal/media"
)

func TestNew(t *testing.T) {
	job := New("prj-1", media.FormatGIF)

	if !strings.HasPrefix(job.ID, "rnd-") {
		t.Errorf("expected render ID prefix, got %s", job.ID)
	}
	if job.ProjectID != "prj-1" {
		t.Errorf("expected project prj-1, got %s", job.ProjectID)
	}
	if job.Format != media.FormatGIF {
		t.Errorf("expected format gif, got %s", job.Format)
	}
	if job.Status != StatusQueued {
		t.Errorf("expected status %s, got %s", StatusQueued, job.Status)
	}
	if job.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}
	if job.UpdatedAt.IsZero() {
		t.Error("expected UpdatedAt to be set")
	}
}

func TestNewWithID(t *testing.T) {
	job := NewWithID("rnd-test", "prj-1", media.FormatMP4)

	if job.ID != "rnd-test" {
		t.Errorf("expected ID rnd-test, got %s", job.ID)
	}
	if job.Status != StatusQueued {
		t.Errorf("expected status %s, got %s", StatusQueued, job.Status)
	}
}

func TestJob_ValidTransitions(t *testing.T) {
	tests := []struct {
		name    string
		from    Status
		to      Status
		wantErr bool
	}{
		// Valid transitions from QUEUED
		{"QUEUED to RUNNING", StatusQueued, StatusRunning, false},
		{"QUEUED to CANCELLED", StatusQueued, StatusCancelled, false},
		// Valid transitions from RUNNING
		{"RUNNING to COMPLETED", StatusRunning, StatusCompleted, false},
		{"RUNNING to FAILED", StatusRunning, StatusFailed, false},
		{"RUNNING to CANCELLED", StatusRunning, StatusCancelled, false},
		// Invalid transitions
		{"QUEUED to COMPLETED", StatusQueued, StatusCompleted, true},
		{"QUEUED to FAILED", StatusQueued, StatusFailed, true},
		{"RUNNING to QUEUED", StatusRunning, StatusQueued, true},
		{"COMPLETED to RUNNING", StatusCompleted, StatusRunning, true},
		{"FAILED to COMPLETED", StatusFailed, StatusCompleted, true},
		{"CANCELLED to RUNNING", StatusCancelled, StatusRunning, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := NewWithID("test", "prj", media.FormatGIF)
			job.Status = tt.from

			err := job.TransitionTo(tt.to)

			if tt.wantErr && !errors.Is(err, ErrInvalidTransition) {
				t.Errorf("expected ErrInvalidTransition for %s -> %s, got %v", tt.from, tt.to, err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error for transition %s -> %s: %v", tt.from, tt.to, err)
			}
		})
	}
}

func TestJob_Start(t *testing.T) {
	job := New("prj", media.FormatGIF)
	beforeStart := time.Now()

	if err := job.Start(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if job.Status != StatusRunning {
		t.Errorf("expected status %s, got %s", StatusRunning, job.Status)
	}
	if job.StartedAt.Before(beforeStart) {
		t.Error("expected StartedAt to be set after test start")
	}
}

func TestJob_Complete(t *testing.T) {
	job := New("prj", media.FormatGIF)
	_ = job.Start()
	job.UpdateProgress(40)

	if err := job.Complete(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if job.Status != StatusCompleted {
		t.Errorf("expected status %s, got %s", StatusCompleted, job.Status)
	}
	if job.Progress != 100 {
		t.Errorf("expected progress 100, got %d", job.Progress)
	}
	if job.CompletedAt.IsZero() {
		t.Error("expected CompletedAt to be set")
	}
}

func TestJob_Complete_FromQueuedFails(t *testing.T) {
	job := New("prj", media.FormatGIF)

	if err := job.Complete(); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}
	if job.Progress != 0 {
		t.Errorf("progress should be untouched, got %d", job.Progress)
	}
}

func TestJob_Fail(t *testing.T) {
	job := New("prj", media.FormatGIF)
	_ = job.Start()

	errMsg := "ffmpeg exited with status 1"
	if err := job.Fail(errMsg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if job.Status != StatusFailed {
		t.Errorf("expected status %s, got %s", StatusFailed, job.Status)
	}
	if job.Error != errMsg {
		t.Errorf("expected error %q, got %q", errMsg, job.Error)
	}
	if job.CompletedAt.IsZero() {
		t.Error("expected CompletedAt to be set on failure")
	}
}

func TestJob_Fail_InvalidKeepsMessageEmpty(t *testing.T) {
	job := New("prj", media.FormatGIF)
	_ = job.Start()
	_ = job.Complete()

	if err := job.Fail("late"); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}
	if job.Error != "" {
		t.Errorf("expected empty error, got %q", job.Error)
	}
}

func TestJob_Cancel(t *testing.T) {
	job := New("prj", media.FormatGIF)

	if err := job.Cancel(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if job.Status != StatusCancelled {
		t.Errorf("expected status %s, got %s", StatusCancelled, job.Status)
	}
}

func TestJob_CannotTransitionFromTerminalState(t *testing.T) {
	terminalStates := []Status{StatusCompleted, StatusFailed, StatusCancelled}
	allStates := []Status{StatusQueued, StatusRunning, StatusCompleted, StatusFailed, StatusCancelled}

	for _, terminal := range terminalStates {
		for _, target := range allStates {
			t.Run(string(terminal)+"_to_"+string(target), func(t *testing.T) {
				job := NewWithID("test", "prj", media.FormatGIF)
				job.Status = terminal

				if err := job.TransitionTo(target); !errors.Is(err, ErrInvalidTransition) {
					t.Errorf("expected ErrInvalidTransition, got %v", err)
				}
			})
		}
	}
}

func TestJob_IsTerminal(t *testing.T) {
	tests := []struct {
		status   Status
		terminal bool
	}{
		{StatusQueued, false},
		{StatusRunning, false},
		{StatusCompleted, true},
		{StatusFailed, true},
		{StatusCancelled, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			job := NewWithID("test", "prj", media.FormatGIF)
			job.Status = tt.status

			if got := job.IsTerminal(); got != tt.terminal {
				t.Errorf("IsTerminal() = %v, want %v", got, tt.terminal)
			}
		})
	}
}

func TestJob_UpdateProgress(t *testing.T) {
	job := New("prj", media.FormatGIF)

	tests := []struct {
		input    int
		expected int
	}{
		{50, 50},
		{0, 0},
		{100, 100},
		{-10, 0},   // Clamped to 0
		{150, 100}, // Clamped to 100
	}

	for _, tt := range tests {
		job.UpdateProgress(tt.input)
		if job.Progress != tt.expected {
			t.Errorf("UpdateProgress(%d): expected %d, got %d", tt.input, tt.expected, job.Progress)
		}
	}
}

func TestJob_SetAndClearOutput(t *testing.T) {
	job := New("prj", media.FormatGIF)

	job.SetOutput("/data/assets/out.gif", "https://bucket.s3.us-east-1.amazonaws.com/out.gif")

	if job.OutputPath != "/data/assets/out.gif" {
		t.Errorf("expected OutputPath /data/assets/out.gif, got %s", job.OutputPath)
	}
	if job.OutputURL != "https://bucket.s3.us-east-1.amazonaws.com/out.gif" {
		t.Errorf("unexpected OutputURL %s", job.OutputURL)
	}

	job.ClearOutput()
	if job.OutputPath != "" || job.OutputURL != "" {
		t.Error("expected output to be cleared")
	}
}

func TestJob_Clone(t *testing.T) {
	job := New("prj", media.FormatWebP)
	job.Status = StatusRunning
	job.Progress = 50
	job.FrameCount = 12
	job.Publish = true

	clone := job.Clone()

	if clone.ID != job.ID || clone.ProjectID != job.ProjectID || clone.Format != job.Format {
		t.Errorf("clone identity mismatch: %+v", clone)
	}
	if clone.Progress != 50 || clone.FrameCount != 12 || !clone.Publish {
		t.Errorf("clone fields mismatch: %+v", clone)
	}

	clone.Status = StatusCompleted
	if job.Status == StatusCompleted {
		t.Error("modifying clone should not affect original")
	}
}

func TestJob_GetStatus_ThreadSafe(t *testing.T) {
	job := New("prj", media.FormatGIF)

	done := make(chan bool)
	go func() {
		for i := 0; i < 100; i++ {
			_ = job.GetStatus()
		}
		done <- true
	}()

	go func() {
		for i := 0; i < 100; i++ {
			_ = job.Start()
		}
		done <- true
	}()

	<-done
	<-done
}
