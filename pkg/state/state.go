// Package state holds the registry of live cooking sessions. Every session
// carries its own lock; all reads and writes of a session go through View or
// Update so a multi-step mutation is never observed half done.
package state

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/korjavin/cookalong/pkg/models"
	"github.com/korjavin/cookalong/pkg/timeline"
)

type entry struct {
	mu      sync.Mutex
	session *models.Session
	touched time.Time
	removed bool
}

// Manager manages live sessions
type Manager struct {
	sessions map[string]*entry
	mu       sync.RWMutex
	now      func() time.Time
}

// Option configures a Manager
type Option func(*Manager)

// WithClock replaces time.Now, mostly for tests
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// New creates a new, empty session registry
func New(opts ...Option) *Manager {
	m := &Manager{
		sessions: make(map[string]*entry),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create registers a new idle session that owns a sanitized copy of schedule
func (m *Manager) Create(schedule models.ScheduleResult) models.Session {
	sched := timeline.Sanitize(schedule)
	timeline.AssignIDs(&sched)

	now := m.now()
	session := &models.Session{
		ID:        uuid.NewString(),
		Schedule:  sched,
		Status:    models.StatusIdle,
		CreatedAt: now,
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[session.ID] = &entry{session: session, touched: now}
	return session.Clone()
}

// Get returns a copy of the session
func (m *Manager) Get(id string) (models.Session, bool) {
	var out models.Session
	ok := m.View(id, func(s *models.Session) {
		out = s.Clone()
	})
	return out, ok
}

// View runs fn with shared access to the session under its lock. fn must not
// keep the pointer. It reports whether the session exists.
func (m *Manager) View(id string, fn func(*models.Session)) bool {
	e := m.lookup(id)
	if e == nil {
		return false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.removed {
		return false
	}
	fn(e.session)
	return true
}

// Update runs mutate with exclusive access to the session and returns a copy
// of the result. Unknown ids are a no-op.
func (m *Manager) Update(id string, mutate func(*models.Session)) (models.Session, bool) {
	e := m.lookup(id)
	if e == nil {
		return models.Session{}, false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.removed {
		return models.Session{}, false
	}
	mutate(e.session)
	e.touched = m.now()
	return e.session.Clone(), true
}

// Delete removes the session. Unknown ids are a no-op.
func (m *Manager) Delete(id string) {
	m.mu.Lock()
	e, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return
	}
	e.mu.Lock()
	e.removed = true
	e.mu.Unlock()
}

// List returns copies of all sessions
func (m *Manager) List() []models.Session {
	m.mu.RLock()
	entries := make([]*entry, 0, len(m.sessions))
	for _, e := range m.sessions {
		entries = append(entries, e)
	}
	m.mu.RUnlock()

	out := make([]models.Session, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		if !e.removed {
			out = append(out, e.session.Clone())
		}
		e.mu.Unlock()
	}
	return out
}

// Len returns the number of registered sessions
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep removes sessions nobody has touched for maxIdle, unless they are
// still running inside their timeline. A zero maxIdle disables the sweep.
// Staleness is decided and acted on under the session's lock, so a session
// touched while the sweep runs is kept. It returns copies of the removed
// sessions as they were when removed.
func (m *Manager) Sweep(maxIdle time.Duration) []models.Session {
	if maxIdle <= 0 {
		return nil
	}

	now := m.now()
	var removed []models.Session

	m.mu.Lock()
	defer m.mu.Unlock()
	for id, e := range m.sessions {
		e.mu.Lock()
		if !e.removed && isStale(e, now, maxIdle) {
			e.removed = true
			delete(m.sessions, id)
			removed = append(removed, e.session.Clone())
		}
		e.mu.Unlock()
	}
	return removed
}

func isStale(e *entry, now time.Time, maxIdle time.Duration) bool {
	if now.Sub(e.touched) < maxIdle {
		return false
	}
	s := e.session
	if s.Status == models.StatusRunning {
		return timeline.ComputeElapsedSec(s, now) > s.Schedule.TotalDurationSec
	}
	return true
}

func (m *Manager) lookup(id string) *entry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessions[id]
}
