package timeline

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/korjavin/cookalong/pkg/models"
)

// Sanitize returns a copy of the schedule with items ordered by start then end
// and a total duration that covers every item
func Sanitize(schedule models.ScheduleResult) models.ScheduleResult {
	out := schedule.Clone()
	sortItems(out.Items)
	out.TotalDurationSec = max(out.TotalDurationSec, maxEnd(out.Items), 0)
	return out
}

// AssignIDs gives every item a fresh id. Ids that came with the schedule are
// replaced, since TruncateItem relies on them being unique.
func AssignIDs(schedule *models.ScheduleResult) {
	for i := range schedule.Items {
		schedule.Items[i].ID = uuid.NewString()
	}
}

// ShiftFutureItems moves every item starting at or after cutoffStartSec by
// shiftSec seconds. Shifted items never start before 0 and always keep at
// least one second of duration.
func ShiftFutureItems(session *models.Session, cutoffStartSec, shiftSec int) {
	if shiftSec == 0 {
		return
	}

	items := session.Schedule.Items
	for i := range items {
		if items[i].StartSec < cutoffStartSec {
			continue
		}
		start := max(0, items[i].StartSec+shiftSec)
		items[i].EndSec = max(start+1, items[i].EndSec+shiftSec)
		items[i].StartSec = start
	}
	sortItems(items)

	session.Schedule.TotalDurationSec = max(session.Schedule.TotalDurationSec+shiftSec, maxEnd(items))
}

// TruncateItem sets the end of the item with the given id. Zero-length items
// are allowed. It reports whether the item was found.
func TruncateItem(session *models.Session, id string, endSec int) bool {
	items := session.Schedule.Items
	for i := range items {
		if items[i].ID == id {
			items[i].EndSec = endSec
			sortItems(items)
			return true
		}
	}
	return false
}

// ComputeElapsedSec returns whole seconds of running time at now. Paused
// sessions are frozen at the moment the pause began, and ended sessions with
// an end time are frozen at that end time.
func ComputeElapsedSec(session *models.Session, now time.Time) int {
	if session.Status == models.StatusIdle || session.StartedAt.IsZero() {
		return 0
	}

	at := now
	switch session.Status {
	case models.StatusPaused:
		if session.PausedAt.IsZero() {
			return 0
		}
		at = session.PausedAt
	case models.StatusEnded:
		if !session.EndedAt.IsZero() {
			at = session.EndedAt
		}
	}

	raw := at.Sub(session.StartedAt) - session.TotalPaused
	if raw < 0 {
		return 0
	}
	return int(raw / time.Second)
}

// ActiveItemsAt returns the items covering elapsedSec, using half-open
// [start, end) intervals. The first foreground match wins.
func ActiveItemsAt(session *models.Session, elapsedSec int) (*models.TimelineItem, []models.TimelineItem) {
	var foreground *models.TimelineItem
	backgrounds := []models.TimelineItem{}

	for i, item := range session.Schedule.Items {
		if item.StartSec > elapsedSec || elapsedSec >= item.EndSec {
			continue
		}
		switch item.Attention {
		case models.AttentionForeground:
			if foreground == nil {
				fg := session.Schedule.Items[i]
				foreground = &fg
			}
		case models.AttentionBackground:
			backgrounds = append(backgrounds, item)
		}
	}

	return foreground, backgrounds
}

// NextForegroundAtOrAfter returns the first foreground item starting at or
// after elapsedSec, or nil
func NextForegroundAtOrAfter(session *models.Session, elapsedSec int) *models.TimelineItem {
	for _, item := range session.Schedule.Items {
		if item.Attention == models.AttentionForeground && item.StartSec >= elapsedSec {
			next := item
			return &next
		}
	}
	return nil
}

func sortItems(items []models.TimelineItem) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].StartSec != items[j].StartSec {
			return items[i].StartSec < items[j].StartSec
		}
		return items[i].EndSec < items[j].EndSec
	})
}

func maxEnd(items []models.TimelineItem) int {
	end := 0
	for _, item := range items {
		end = max(end, item.EndSec)
	}
	return end
}
