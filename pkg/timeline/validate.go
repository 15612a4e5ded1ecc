package timeline

import (
	"errors"
	"fmt"
	"sort"

	"github.com/korjavin/cookalong/pkg/models"
)

// ErrInvalidSchedule is returned for schedules that cannot become a session
var ErrInvalidSchedule = errors.New("invalid schedule")

// Validate checks that every item is well formed and that no two foreground
// items overlap
func Validate(schedule models.ScheduleResult) error {
	if schedule.TotalDurationSec < 0 {
		return fmt.Errorf("%w: totalDurationSec must not be negative", ErrInvalidSchedule)
	}

	var foreground []models.TimelineItem
	for i, item := range schedule.Items {
		switch {
		case item.RecipeID == "":
			return fmt.Errorf("%w: item %d: recipeId is required", ErrInvalidSchedule, i)
		case item.Text == "":
			return fmt.Errorf("%w: item %d: text is required", ErrInvalidSchedule, i)
		case !item.Attention.Valid():
			return fmt.Errorf("%w: item %d: unknown attention %q", ErrInvalidSchedule, i, item.Attention)
		case item.StartSec < 0:
			return fmt.Errorf("%w: item %d: startSec must not be negative", ErrInvalidSchedule, i)
		case item.EndSec <= item.StartSec:
			return fmt.Errorf("%w: item %d: endSec must be after startSec", ErrInvalidSchedule, i)
		case item.StepIndex < 0:
			return fmt.Errorf("%w: item %d: stepIndex must not be negative", ErrInvalidSchedule, i)
		}
		if item.Attention == models.AttentionForeground {
			foreground = append(foreground, item)
		}
	}

	sort.Slice(foreground, func(i, j int) bool {
		return foreground[i].StartSec < foreground[j].StartSec
	})
	for i := 1; i < len(foreground); i++ {
		prev, cur := foreground[i-1], foreground[i]
		if cur.StartSec < prev.EndSec {
			return fmt.Errorf("%w: foreground steps %q (%s) and %q (%s) overlap",
				ErrInvalidSchedule, prev.Text, prev.RecipeName, cur.Text, cur.RecipeName)
		}
	}

	return nil
}
