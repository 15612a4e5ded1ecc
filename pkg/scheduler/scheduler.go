package scheduler

import (
	"sync"
	"time"

	"github.com/korjavin/cookalong/pkg/logger"
)

// Sweeper removes sessions that sat untouched for longer than maxIdle
type Sweeper interface {
	Sweep(maxIdle time.Duration) []string
}

// Collector reclaims storage space
type Collector interface {
	RunGC() error
}

// Service runs the background housekeeping jobs
type Service struct {
	sessions    Sweeper
	store       Collector
	sessionTTL  time.Duration
	janitorTick time.Duration
	gcTick      time.Duration
	logger      *logger.Logger
	stopChan    chan struct{}
	stopOnce    sync.Once
	wg          sync.WaitGroup
}

// New creates a new scheduler service. A zero sessionTTL disables the session
// janitor; a nil store disables storage GC.
func New(sessions Sweeper, store Collector, sessionTTL, janitorInterval, gcInterval time.Duration) *Service {
	return &Service{
		sessions:    sessions,
		store:       store,
		sessionTTL:  sessionTTL,
		janitorTick: janitorInterval,
		gcTick:      gcInterval,
		logger:      logger.New("scheduler"),
		stopChan:    make(chan struct{}),
	}
}

// Start starts the scheduler
func (s *Service) Start() {
	s.logger.Info("Starting background jobs")

	if s.sessionTTL > 0 && s.janitorTick > 0 {
		s.run("session janitor", s.janitorTick, s.sweepSessions)
	}

	if s.store != nil && s.gcTick > 0 {
		s.run("storage GC", s.gcTick, s.collectGarbage)
	}
}

// Stop stops the scheduler and waits for running jobs to return
func (s *Service) Stop() {
	s.stopOnce.Do(func() {
		s.logger.Info("Stopping background jobs")
		close(s.stopChan)
	})
	s.wg.Wait()
}

// run calls job every interval until Stop
func (s *Service) run(name string, interval time.Duration, job func()) {
	s.logger.Info("Starting %s every %s", name, interval)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				job()
			case <-s.stopChan:
				s.logger.Info("Stopped %s", name)
				return
			}
		}
	}()
}

func (s *Service) sweepSessions() {
	removed := s.sessions.Sweep(s.sessionTTL)
	if len(removed) > 0 {
		s.logger.Info("Removed %d stale sessions: %v", len(removed), removed)
	}
}

func (s *Service) collectGarbage() {
	if err := s.store.RunGC(); err != nil {
		s.logger.Error("BadgerDB GC error: %v", err)
	}
}
