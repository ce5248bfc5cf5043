package job

import (
	"cmp"
	"context"
	"slices"
	"sync"
)

// Compile-time check that MemoryRepository implements Repository.
var _ Repository = (*MemoryRepository)(nil)

// MemoryRepository keeps render jobs in process memory, indexed by ID and by
// project. Stored jobs are clones, so callers never share state with it.
type MemoryRepository struct {
	mu        sync.RWMutex
	jobs      map[string]*Job
	byProject map[string]map[string]struct{}
}

// NewMemoryRepository creates an empty in-memory job repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		jobs:      make(map[string]*Job),
		byProject: make(map[string]map[string]struct{}),
	}
}

// Save inserts or replaces a job.
func (r *MemoryRepository) Save(_ context.Context, job *Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.jobs[job.ID] = job.Clone()
	ids, ok := r.byProject[job.ProjectID]
	if !ok {
		ids = make(map[string]struct{})
		r.byProject[job.ProjectID] = ids
	}
	ids[job.ID] = struct{}{}
	return nil
}

// FindByID returns a copy of the job with the given ID.
func (r *MemoryRepository) FindByID(_ context.Context, id string) (*Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	return job.Clone(), nil
}

// ListByProject returns copies of the project's jobs, oldest first.
func (r *MemoryRepository) ListByProject(_ context.Context, projectID string) ([]*Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := r.byProject[projectID]
	result := make([]*Job, 0, len(ids))
	for id := range ids {
		result = append(result, r.jobs[id].Clone())
	}
	slices.SortFunc(result, func(a, b *Job) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return result, nil
}

// Delete removes a job.
func (r *MemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok {
		return ErrJobNotFound
	}
	delete(r.jobs, id)
	if ids := r.byProject[job.ProjectID]; ids != nil {
		delete(ids, id)
		if len(ids) == 0 {
			delete(r.byProject, job.ProjectID)
		}
	}
	return nil
}
