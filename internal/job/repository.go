package job

import (
	"context"
	"errors"
)

// ErrJobNotFound is returned when no render job has the requested ID.
var ErrJobNotFound = errors.New("render job not found")

// Repository stores render jobs. Implementations must be safe for concurrent
// use and must not let callers mutate stored jobs through returned pointers.
type Repository interface {
	// Save inserts the job or replaces the stored copy with the same ID.
	Save(ctx context.Context, job *Job) error

	// FindByID returns ErrJobNotFound when the job does not exist.
	FindByID(ctx context.Context, id string) (*Job, error)

	// ListByProject returns the jobs of one project, oldest first.
	// A project without jobs yields an empty slice.
	ListByProject(ctx context.Context, projectID string) ([]*Job, error)

	// Delete returns ErrJobNotFound when the job does not exist.
	Delete(ctx context.Context, id string) error
}
