// Package recipes keeps the recipe book the schedule planner draws from.
package recipes

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/korjavin/cookalong/pkg/logger"
	"github.com/korjavin/cookalong/pkg/models"
	"github.com/korjavin/cookalong/pkg/storage"
	"gopkg.in/yaml.v3"
)

const keyPrefix = "recipe:"

var (
	// ErrNotFound is returned when a recipe id is unknown
	ErrNotFound = errors.New("recipe not found")
	// ErrInvalid is returned when a recipe cannot be cooked as written
	ErrInvalid = errors.New("invalid recipe")
)

// Service provides recipe book functionality
type Service struct {
	store  *storage.Store
	logger *logger.Logger
}

// New creates a new recipe service
func New(store *storage.Store) *Service {
	return &Service{
		store:  store,
		logger: logger.New("recipes"),
	}
}

// Validate checks a recipe and renumbers its steps by position
func Validate(recipe *models.Recipe) error {
	recipe.ID = strings.TrimSpace(recipe.ID)
	recipe.Name = strings.TrimSpace(recipe.Name)

	if recipe.ID == "" {
		return fmt.Errorf("%w: id is required", ErrInvalid)
	}
	if recipe.Name == "" {
		return fmt.Errorf("%w: %s: name is required", ErrInvalid, recipe.ID)
	}
	if len(recipe.Steps) == 0 {
		return fmt.Errorf("%w: %s: at least one step is required", ErrInvalid, recipe.ID)
	}
	for i := range recipe.Steps {
		step := &recipe.Steps[i]
		step.Index = i
		if strings.TrimSpace(step.Text) == "" {
			return fmt.Errorf("%w: %s: step %d has no text", ErrInvalid, recipe.ID, i)
		}
		if step.DurationSec <= 0 {
			return fmt.Errorf("%w: %s: step %d needs a positive duration", ErrInvalid, recipe.ID, i)
		}
		if step.Attention == "" {
			step.Attention = models.AttentionForeground
		}
		if !step.Attention.Valid() {
			return fmt.Errorf("%w: %s: step %d has unknown attention %q", ErrInvalid, recipe.ID, i, step.Attention)
		}
	}
	return nil
}

// Save validates and stores a recipe, replacing any recipe with the same id
func (s *Service) Save(recipe models.Recipe) (models.Recipe, error) {
	if err := Validate(&recipe); err != nil {
		return models.Recipe{}, err
	}

	if err := s.store.Set(keyPrefix+recipe.ID, recipe); err != nil {
		return models.Recipe{}, fmt.Errorf("failed to save recipe: %w", err)
	}

	s.logger.Info("Saved recipe %s (%s) with %d steps", recipe.ID, recipe.Name, len(recipe.Steps))
	return recipe, nil
}

// Get retrieves a recipe by id
func (s *Service) Get(id string) (models.Recipe, error) {
	var recipe models.Recipe
	if err := s.store.Get(keyPrefix+id, &recipe); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.Recipe{}, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return models.Recipe{}, fmt.Errorf("failed to get recipe: %w", err)
	}
	return recipe, nil
}

// GetMany retrieves recipes in the order of ids
func (s *Service) GetMany(ids []string) ([]models.Recipe, error) {
	recipes := make([]models.Recipe, 0, len(ids))
	for _, id := range ids {
		recipe, err := s.Get(id)
		if err != nil {
			return nil, err
		}
		recipes = append(recipes, recipe)
	}
	return recipes, nil
}

// List returns every recipe sorted by name
func (s *Service) List() ([]models.Recipe, error) {
	keys, err := s.store.List(keyPrefix)
	if err != nil {
		return nil, err
	}

	recipes := make([]models.Recipe, 0, len(keys))
	for _, key := range keys {
		var recipe models.Recipe
		if err := s.store.Get(key, &recipe); err != nil {
			s.logger.Warn("Skipping unreadable recipe %s: %v", key, err)
			continue
		}
		recipes = append(recipes, recipe)
	}

	sort.SliceStable(recipes, func(i, j int) bool {
		return strings.ToLower(recipes[i].Name) < strings.ToLower(recipes[j].Name)
	})
	return recipes, nil
}

// Delete removes a recipe
func (s *Service) Delete(id string) error {
	if _, err := s.Get(id); err != nil {
		return err
	}
	if err := s.store.Delete(keyPrefix + id); err != nil {
		return fmt.Errorf("failed to delete recipe: %w", err)
	}
	s.logger.Info("Deleted recipe %s", id)
	return nil
}

// File is the layout of a YAML recipe file
type File struct {
	Recipes []models.Recipe `yaml:"recipes"`
}

// ParseFile reads and validates recipes from a YAML file without storing them
func ParseFile(path string) ([]models.Recipe, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read recipe file: %w", err)
	}

	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse recipe file %s: %w", path, err)
	}

	for i := range file.Recipes {
		if err := Validate(&file.Recipes[i]); err != nil {
			return nil, fmt.Errorf("recipe file %s: %w", path, err)
		}
	}
	return file.Recipes, nil
}

// LoadFile stores every recipe from a YAML file and returns how many were loaded
func (s *Service) LoadFile(path string) (int, error) {
	recipes, err := ParseFile(path)
	if err != nil {
		return 0, err
	}

	for _, recipe := range recipes {
		if _, err := s.Save(recipe); err != nil {
			return 0, err
		}
	}

	s.logger.Info("Loaded %d recipes from %s", len(recipes), path)
	return len(recipes), nil
}
