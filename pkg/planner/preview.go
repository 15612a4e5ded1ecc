package planner

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/korjavin/cookalong/pkg/logger"
	"github.com/korjavin/cookalong/pkg/models"
	"github.com/korjavin/cookalong/pkg/storage"
	"github.com/korjavin/cookalong/pkg/timeline"
)

// previewVersion is part of every cache key. Bump it when planning changes so
// old previews stop matching.
const previewVersion = "v2"

const (
	keyByRecipes = "preview:key:"
	keyByID      = "preview:id:"
)

var (
	// ErrNoRecipes is returned when a preview is requested for an empty set
	ErrNoRecipes = errors.New("no valid recipe ids provided")
	// ErrPreviewNotFound is returned when a preview id is unknown
	ErrPreviewNotFound = errors.New("schedule preview not found")
)

// Generator produces an interleaved schedule for a set of recipes
type Generator interface {
	GenerateSchedule(ctx context.Context, recipes []models.Recipe) (models.ScheduleResult, error)
}

// RecipeSource looks recipes up by id
type RecipeSource interface {
	GetMany(ids []string) ([]models.Recipe, error)
}

// PreviewService generates schedules and caches them per recipe set
type PreviewService struct {
	store     *storage.Store
	recipes   RecipeSource
	generator Generator
	now       func() time.Time
	logger    *logger.Logger
}

// NewPreviewService creates a new preview service. generator may be nil, in
// which case every preview is a linear schedule.
func NewPreviewService(store *storage.Store, recipes RecipeSource, generator Generator) *PreviewService {
	return &PreviewService{
		store:     store,
		recipes:   recipes,
		generator: generator,
		now:       time.Now,
		logger:    logger.New("planner"),
	}
}

// NormalizeRecipeIDs drops blanks and duplicates and sorts the ids
func NormalizeRecipeIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	normalized := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		normalized = append(normalized, id)
	}
	sort.Strings(normalized)
	return normalized
}

// RecipeKey returns the cache key for a normalized recipe set
func RecipeKey(normalized []string) string {
	return previewVersion + ":" + strings.Join(normalized, ",")
}

// GetOrCreate returns the cached preview for the recipe set or plans a new one
func (s *PreviewService) GetOrCreate(ctx context.Context, recipeIDs []string) (models.SchedulePreview, error) {
	normalized := NormalizeRecipeIDs(recipeIDs)
	if len(normalized) == 0 {
		return models.SchedulePreview{}, ErrNoRecipes
	}
	key := RecipeKey(normalized)

	var existing models.SchedulePreview
	err := s.store.Get(keyByRecipes+key, &existing)
	if err == nil {
		s.logger.Debug("Reusing preview %s for %s", existing.ID, key)
		return existing, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return models.SchedulePreview{}, fmt.Errorf("failed to read preview cache: %w", err)
	}

	recipes, err := s.recipes.GetMany(normalized)
	if err != nil {
		return models.SchedulePreview{}, err
	}

	preview := models.SchedulePreview{
		ID:        uuid.NewString(),
		RecipeKey: key,
		RecipeIDs: normalized,
		Schedule:  s.plan(ctx, recipes),
		CreatedAt: s.now(),
	}

	err = s.store.SetMany(map[string]interface{}{
		keyByRecipes + key:   preview,
		keyByID + preview.ID: preview,
	})
	if err != nil {
		return models.SchedulePreview{}, fmt.Errorf("failed to store preview: %w", err)
	}

	s.logger.Info("Created preview %s for %s (%d items, %ds)", preview.ID, key, len(preview.Schedule.Items), preview.Schedule.TotalDurationSec)
	return preview, nil
}

// Get returns a stored preview by id
func (s *PreviewService) Get(previewID string) (models.SchedulePreview, error) {
	var preview models.SchedulePreview
	if err := s.store.Get(keyByID+previewID, &preview); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.SchedulePreview{}, fmt.Errorf("%w: %s", ErrPreviewNotFound, previewID)
		}
		return models.SchedulePreview{}, fmt.Errorf("failed to get preview: %w", err)
	}
	return preview, nil
}

func (s *PreviewService) plan(ctx context.Context, recipes []models.Recipe) models.ScheduleResult {
	if s.generator == nil {
		return Linear(recipes)
	}

	generated, err := s.generator.GenerateSchedule(ctx, recipes)
	if err != nil {
		s.logger.Warn("Schedule generation failed, using linear schedule: %v", err)
		return Linear(recipes)
	}

	generated = timeline.Sanitize(generated)
	if len(generated.Items) == 0 {
		s.logger.Warn("Generated schedule is empty, using linear schedule")
		return Linear(recipes)
	}
	if err := timeline.Validate(generated); err != nil {
		s.logger.Warn("Generated schedule rejected, using linear schedule: %v", err)
		return Linear(recipes)
	}
	return generated
}
