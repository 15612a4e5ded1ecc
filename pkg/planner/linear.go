// Package planner turns a set of recipes into a schedule. A generator (the
// LLM client) may interleave the recipes; when it is missing or produces
// something unusable the planner falls back to cooking them one after another.
package planner

import (
	"github.com/korjavin/cookalong/pkg/models"
)

// Linear lays the recipes out back to back in the given order, each step
// starting when the previous one ends
func Linear(recipes []models.Recipe) models.ScheduleResult {
	items := make([]models.TimelineItem, 0)
	cursor := 0
	for _, recipe := range recipes {
		for i, step := range recipe.Steps {
			attention := step.Attention
			if !attention.Valid() {
				attention = models.AttentionForeground
			}
			duration := max(step.DurationSec, 1)
			items = append(items, models.TimelineItem{
				RecipeID:   recipe.ID,
				RecipeName: recipe.Name,
				StepIndex:  i,
				Text:       step.Text,
				Attention:  attention,
				StartSec:   cursor,
				EndSec:     cursor + duration,
			})
			cursor += duration
		}
	}
	return models.ScheduleResult{Items: items, TotalDurationSec: cursor}
}
