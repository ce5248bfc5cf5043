// Package history provides a bounded, linear undo/redo timeline over
// immutable snapshots of an ordered item collection.
//
// The manager never inspects or frees the items it stores. Items usually
// reference caller-owned resources (files, previews); those may still be
// reachable from other snapshots or from the live state, so their lifetime
// stays entirely with the caller.
package history

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// DefaultMaxHistory is the retention depth used by callers that have no
// configured value.
const DefaultMaxHistory = 20

// ErrInvalidMaxHistory is returned by New when maxHistory is not positive.
var ErrInvalidMaxHistory = errors.New("history: max history must be positive")

// Snapshot is an immutable capture of the item collection at one point in time.
type Snapshot[T any] struct {
	Items     []T
	CreatedAt time.Time
}

// Manager maintains the timeline and cursor for one editing session.
//
// Undo and Redo put the manager into replay mode: the caller is expected to
// apply the returned state back onto its live collection and then call
// EndReplay. While replaying, PushState is ignored so that re-applying a
// historical state is not recorded as a new edit. UndoWith and RedoWith wrap
// the whole sequence.
type Manager[T any] struct {
	mu sync.Mutex

	timeline   []Snapshot[T]
	cursor     int
	maxHistory int
	replaying  bool

	now    func() time.Time
	logger *slog.Logger
}

// Option configures a Manager.
type Option func(*options)

type options struct {
	now    func() time.Time
	logger *slog.Logger
}

// WithClock sets the time source used to stamp snapshots.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithLogger sets the logger used for debug tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// New creates an empty Manager retaining at most maxHistory snapshots.
func New[T any](maxHistory int, opts ...Option) (*Manager[T], error) {
	if maxHistory <= 0 {
		return nil, ErrInvalidMaxHistory
	}

	o := options{
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	return &Manager[T]{
		timeline:   make([]Snapshot[T], 0, maxHistory),
		cursor:     -1,
		maxHistory: maxHistory,
		now:        o.now,
		logger:     o.logger,
	}, nil
}

// PushState records a copy of items as the newest state. Any redo branch
// beyond the cursor is discarded. The call is ignored while replaying.
func (m *Manager[T]) PushState(items []T) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.replaying {
		m.logger.Debug("history: push suppressed during replay",
			slog.Int("cursor", m.cursor),
		)
		return
	}

	// Drop the redo branch.
	m.timeline = m.timeline[:m.cursor+1]

	m.timeline = append(m.timeline, Snapshot[T]{
		Items:     cloneItems(items),
		CreatedAt: m.now(),
	})

	if excess := len(m.timeline) - m.maxHistory; excess > 0 {
		// Copy into a fresh backing array so evicted snapshots can be collected.
		kept := make([]Snapshot[T], m.maxHistory)
		copy(kept, m.timeline[excess:])
		m.timeline = kept
	}
	m.cursor = len(m.timeline) - 1

	m.logger.Debug("history: state recorded",
		slog.Int("cursor", m.cursor),
		slog.Int("length", len(m.timeline)),
		slog.Int("items", len(items)),
	)
}

// Undo steps back one snapshot and returns a copy of its items. It returns
// false, leaving the cursor untouched, when no earlier state exists. On
// success the manager is in replay mode until EndReplay is called.
func (m *Manager[T]) Undo() ([]T, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cursor <= 0 {
		return nil, false
	}
	m.cursor--
	m.replaying = true

	m.logger.Debug("history: undo", slog.Int("cursor", m.cursor))
	return cloneItems(m.timeline[m.cursor].Items), true
}

// Redo steps forward one snapshot and returns a copy of its items. It
// returns false when the cursor is already at the newest state. On success
// the manager is in replay mode until EndReplay is called.
func (m *Manager[T]) Redo() ([]T, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cursor >= len(m.timeline)-1 {
		return nil, false
	}
	m.cursor++
	m.replaying = true

	m.logger.Debug("history: redo", slog.Int("cursor", m.cursor))
	return cloneItems(m.timeline[m.cursor].Items), true
}

// UndoWith undoes one step and passes the restored items to apply inside the
// replay window. It reports whether a step was undone.
func (m *Manager[T]) UndoWith(apply func([]T)) bool {
	items, ok := m.Undo()
	if !ok {
		return false
	}
	defer m.EndReplay()
	apply(items)
	return true
}

// RedoWith redoes one step and passes the restored items to apply inside the
// replay window. It reports whether a step was redone.
func (m *Manager[T]) RedoWith(apply func([]T)) bool {
	items, ok := m.Redo()
	if !ok {
		return false
	}
	defer m.EndReplay()
	apply(items)
	return true
}

// BeginReplay suppresses PushState until EndReplay is called.
func (m *Manager[T]) BeginReplay() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replaying = true
}

// EndReplay closes the replay window opened by Undo, Redo or BeginReplay.
func (m *Manager[T]) EndReplay() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replaying = false
}

// Replaying reports whether pushes are currently suppressed.
func (m *Manager[T]) Replaying() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.replaying
}

// ClearHistory empties the timeline.
func (m *Manager[T]) ClearHistory() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.timeline = make([]Snapshot[T], 0, m.maxHistory)
	m.cursor = -1
	m.replaying = false

	m.logger.Debug("history: cleared")
}

// CanUndo reports whether an earlier state exists.
func (m *Manager[T]) CanUndo() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cursor > 0
}

// CanRedo reports whether a newer state exists.
func (m *Manager[T]) CanRedo() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cursor < len(m.timeline)-1
}

// Len returns the number of retained snapshots.
func (m *Manager[T]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.timeline)
}

// Cursor returns the index of the current snapshot, or -1 when empty.
func (m *Manager[T]) Cursor() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cursor
}

// MaxHistory returns the retention bound.
func (m *Manager[T]) MaxHistory() int {
	return m.maxHistory
}

// Current returns a copy of the snapshot at the cursor.
func (m *Manager[T]) Current() (Snapshot[T], bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cursor < 0 {
		return Snapshot[T]{}, false
	}
	s := m.timeline[m.cursor]
	return Snapshot[T]{Items: cloneItems(s.Items), CreatedAt: s.CreatedAt}, true
}

// Snapshots returns copies of all retained snapshots, oldest first.
func (m *Manager[T]) Snapshots() []Snapshot[T] {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Snapshot[T], len(m.timeline))
	for i, s := range m.timeline {
		out[i] = Snapshot[T]{Items: cloneItems(s.Items), CreatedAt: s.CreatedAt}
	}
	return out
}

// cloneItems returns a shallow copy that never aliases the input. A nil
// input yields an empty, non-nil slice so that "empty state" and "no state"
// stay distinguishable for callers.
func cloneItems[T any](items []T) []T {
	out := make([]T, len(items))
	copy(out, items)
	return out
}
