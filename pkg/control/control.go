// Package control exposes the session operations (create, start, pause,
// resume, skip, end, live subscription) on top of the session registry and
// the timeline engine. It owns the status state machine:
//
//	idle -> running -> paused -> running ... -> ended
//
// Every transition is checked and applied inside one registry update, so a
// check and its mutation can never interleave with another caller.
package control

import (
	"sync"
	"time"

	"github.com/korjavin/cookalong/pkg/engine"
	"github.com/korjavin/cookalong/pkg/logger"
	"github.com/korjavin/cookalong/pkg/models"
	"github.com/korjavin/cookalong/pkg/state"
	"github.com/korjavin/cookalong/pkg/timeline"
)

// Service provides session control
type Service struct {
	registry     *state.Manager
	now          func() time.Time
	tickInterval time.Duration
	freezeOnEnd  bool
	logger       *logger.Logger

	hooksMu sync.RWMutex
	started []func(models.Session)
	ended   []func(models.Session)
}

// Option configures a Service
type Option func(*Service)

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithTickInterval sets how often subscribers receive a snapshot
func WithTickInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.tickInterval = d
		}
	}
}

// WithFreezeElapsedOnEnd controls whether an ended session's elapsed time
// stops at the moment it ended (the default) or keeps following the wall clock
func WithFreezeElapsedOnEnd(freeze bool) Option {
	return func(s *Service) {
		s.freezeOnEnd = freeze
	}
}

// New creates a new control service over the given registry
func New(registry *state.Manager, opts ...Option) *Service {
	s := &Service{
		registry:     registry,
		now:          time.Now,
		tickInterval: time.Second,
		freezeOnEnd:  true,
		logger:       logger.New("control"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OnStarted registers fn to be called after a session first starts
func (s *Service) OnStarted(fn func(models.Session)) {
	s.hooksMu.Lock()
	defer s.hooksMu.Unlock()
	s.started = append(s.started, fn)
}

// OnEnded registers fn to be called after a session ends
func (s *Service) OnEnded(fn func(models.Session)) {
	s.hooksMu.Lock()
	defer s.hooksMu.Unlock()
	s.ended = append(s.ended, fn)
}

// CreateSession validates the schedule and registers a new idle session
func (s *Service) CreateSession(schedule models.ScheduleResult) (models.Session, error) {
	if err := timeline.Validate(schedule); err != nil {
		return models.Session{}, err
	}

	session := s.registry.Create(schedule)
	s.logger.Info("Created session %s with %d items (%ds)", session.ID, len(session.Schedule.Items), session.Schedule.TotalDurationSec)
	return session, nil
}

// Start starts the session clock. Starting a running session is a no-op.
func (s *Service) Start(id string) (models.SessionStatus, error) {
	var (
		err       error
		startedUp bool
	)
	session, ok := s.registry.Update(id, func(sess *models.Session) {
		switch sess.Status {
		case models.StatusEnded:
			err = conflict("Session already ended")
		case models.StatusPaused:
			err = conflict("Session is paused")
		case models.StatusIdle:
			sess.StartedAt = s.now()
			sess.TotalPaused = 0
			sess.PausedAt = time.Time{}
			sess.Status = models.StatusRunning
			startedUp = true
		}
	})
	if !ok {
		return "", notFound()
	}
	if err != nil {
		return session.Status, err
	}

	if startedUp {
		s.logger.Info("Session %s started", id)
		s.fire(s.startedHooks(), session)
	}
	return session.Status, nil
}

// Pause freezes the clock of a running session
func (s *Service) Pause(id string) (models.SessionStatus, error) {
	var err error
	session, ok := s.registry.Update(id, func(sess *models.Session) {
		if sess.Status != models.StatusRunning {
			err = conflict("Session not running")
			return
		}
		sess.PausedAt = s.now()
		sess.Status = models.StatusPaused
	})
	if !ok {
		return "", notFound()
	}
	if err != nil {
		return session.Status, err
	}

	s.logger.Info("Session %s paused", id)
	return session.Status, nil
}

// Resume restarts the clock of a paused session, adding the pause to the
// session's total paused time
func (s *Service) Resume(id string) (models.SessionStatus, error) {
	var err error
	session, ok := s.registry.Update(id, func(sess *models.Session) {
		if sess.Status != models.StatusPaused || sess.PausedAt.IsZero() || sess.StartedAt.IsZero() {
			err = conflict("Session not paused")
			return
		}
		sess.TotalPaused += s.now().Sub(sess.PausedAt)
		sess.PausedAt = time.Time{}
		sess.Status = models.StatusRunning
	})
	if !ok {
		return "", notFound()
	}
	if err != nil {
		return session.Status, err
	}

	s.logger.Info("Session %s resumed (paused %s in total)", id, session.TotalPaused)
	return session.Status, nil
}

// Skip force-advances past the current or next foreground step of a running
// session and returns the snapshot right after the skip
func (s *Service) Skip(id string) (models.TickState, error) {
	var (
		err  error
		snap models.TickState
	)
	_, ok := s.registry.Update(id, func(sess *models.Session) {
		if sess.Status != models.StatusRunning {
			err = conflict("Session not running")
			return
		}
		now := s.now()
		res := engine.SkipForegroundNow(sess, now)
		if !res.OK {
			err = conflict(res.Reason)
			return
		}
		sess.SkipCount++
		snap = engine.Snapshot(sess, now)
	})
	if !ok {
		return models.TickState{}, notFound()
	}
	if err != nil {
		return models.TickState{}, err
	}

	s.logger.Info("Session %s skipped ahead at %ds", id, snap.ElapsedSec)
	return snap, nil
}

// State returns the current snapshot of a session
func (s *Service) State(id string) (models.TickState, error) {
	var snap models.TickState
	ok := s.registry.View(id, func(sess *models.Session) {
		snap = engine.Snapshot(sess, s.now())
	})
	if !ok {
		return models.TickState{}, notFound()
	}
	return snap, nil
}

// Schedule returns the session's current timeline
func (s *Service) Schedule(id string) (models.ScheduleResult, error) {
	session, ok := s.registry.Get(id)
	if !ok {
		return models.ScheduleResult{}, notFound()
	}
	return session.Schedule, nil
}

// End moves a session to the terminal ended status. The session stays
// registered until it is deleted or swept.
func (s *Service) End(id string) (models.SessionStatus, error) {
	var err error
	session, ok := s.registry.Update(id, func(sess *models.Session) {
		if sess.Status == models.StatusEnded {
			err = conflict("Session already ended")
			return
		}
		s.markEnded(sess)
	})
	if !ok {
		return "", notFound()
	}
	if err != nil {
		return session.Status, err
	}

	s.logger.Info("Session %s ended", id)
	s.fire(s.endedHooks(), session)
	return session.Status, nil
}

// Delete ends the session if needed and removes it from the registry
func (s *Service) Delete(id string) error {
	endedNow := false
	session, ok := s.registry.Update(id, func(sess *models.Session) {
		if sess.Status != models.StatusEnded {
			s.markEnded(sess)
			endedNow = true
		}
	})
	if !ok {
		return notFound()
	}
	s.registry.Delete(id)

	s.logger.Info("Session %s deleted", id)
	if endedNow {
		s.fire(s.endedHooks(), session)
	}
	return nil
}

// Sweep drops sessions nobody touched for maxIdle. Swept sessions that had
// not ended yet are ended first, so the ended hooks see them. It returns the
// removed ids.
func (s *Service) Sweep(maxIdle time.Duration) []string {
	removed := s.registry.Sweep(maxIdle)
	ids := make([]string, 0, len(removed))
	for _, session := range removed {
		ids = append(ids, session.ID)
		if session.Status == models.StatusEnded {
			continue
		}
		s.markEnded(&session)
		s.logger.Info("Session %s ended by the janitor", session.ID)
		s.fire(s.endedHooks(), session)
	}
	return ids
}

func (s *Service) markEnded(sess *models.Session) {
	if s.freezeOnEnd && !sess.StartedAt.IsZero() {
		// a paused session ends at the instant its clock stopped
		sess.EndedAt = s.now()
		if !sess.PausedAt.IsZero() {
			sess.EndedAt = sess.PausedAt
		}
	}
	sess.Status = models.StatusEnded
	sess.PausedAt = time.Time{}
}

func (s *Service) startedHooks() []func(models.Session) {
	s.hooksMu.RLock()
	defer s.hooksMu.RUnlock()
	return s.started
}

func (s *Service) endedHooks() []func(models.Session) {
	s.hooksMu.RLock()
	defer s.hooksMu.RUnlock()
	return s.ended
}

func (s *Service) fire(hooks []func(models.Session), session models.Session) {
	for _, hook := range hooks {
		func() {
			defer func() {
				if r := recover(); r != nil {
					s.logger.Error("Session hook panicked for %s: %v", session.ID, r)
				}
			}()
			hook(session)
		}()
	}
}
