package stats

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/korjavin/cookalong/pkg/logger"
	"github.com/korjavin/cookalong/pkg/models"
	"github.com/korjavin/cookalong/pkg/storage"
)

const keyPrefix = "stats:recipe:"

// Service provides cooking statistics functionality
type Service struct {
	store  *storage.Store
	now    func() time.Time
	mu     sync.Mutex
	logger *logger.Logger
}

// New creates a new statistics service
func New(store *storage.Store) *Service {
	return &Service{
		store:  store,
		now:    time.Now,
		logger: logger.New("stats"),
	}
}

// Get retrieves the statistics for a recipe, or zero counts if it was never cooked
func (s *Service) Get(recipeID string) (models.RecipeStat, error) {
	var stat models.RecipeStat
	err := s.store.Get(keyPrefix+recipeID, &stat)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.RecipeStat{RecipeID: recipeID}, nil
		}
		return models.RecipeStat{}, fmt.Errorf("failed to get statistics: %w", err)
	}
	return stat, nil
}

// RecordStarted counts a started session for every recipe on its timeline
func (s *Service) RecordStarted(session models.Session) {
	at := session.StartedAt
	if at.IsZero() {
		at = s.now()
	}
	s.update(session, func(stat *models.RecipeStat) {
		stat.SessionsStarted++
		stat.LastCookedAt = at
	})
}

// RecordFinished counts an ended session for every recipe on its timeline.
// Sessions that never started are ignored.
func (s *Service) RecordFinished(session models.Session) {
	if session.StartedAt.IsZero() {
		return
	}
	s.update(session, func(stat *models.RecipeStat) {
		stat.SessionsFinished++
		stat.StepsSkipped += session.SkipCount
	})
}

func (s *Service) update(session models.Session, mutate func(*models.RecipeStat)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids, names := session.RecipeIDs()
	for _, id := range ids {
		stat, err := s.Get(id)
		if err != nil {
			s.logger.Error("Failed to load stats for recipe %s: %v", id, err)
			continue
		}
		if names[id] != "" {
			stat.RecipeName = names[id]
		}
		mutate(&stat)

		if err := s.store.Set(keyPrefix+id, stat); err != nil {
			s.logger.Error("Failed to save stats for recipe %s: %v", id, err)
		}
	}
}

// List returns the statistics of every cooked recipe, most finished first
func (s *Service) List() ([]models.RecipeStat, error) {
	keys, err := s.store.List(keyPrefix)
	if err != nil {
		return nil, err
	}

	stats := make([]models.RecipeStat, 0, len(keys))
	for _, key := range keys {
		var stat models.RecipeStat
		if err := s.store.Get(key, &stat); err != nil {
			s.logger.Error("Failed to get stats %s: %v", key, err)
			continue
		}
		stats = append(stats, stat)
	}

	// Sort by finished sessions (descending), then by most recently cooked
	sort.SliceStable(stats, func(i, j int) bool {
		if stats[i].SessionsFinished != stats[j].SessionsFinished {
			return stats[i].SessionsFinished > stats[j].SessionsFinished
		}
		return stats[i].LastCookedAt.After(stats[j].LastCookedAt)
	})

	return stats, nil
}
