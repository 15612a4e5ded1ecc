// Package engine computes session snapshots and applies the skip operation on
// top of the timeline primitives. Callers hold the session's lock.
package engine

import (
	"time"

	"github.com/korjavin/cookalong/pkg/models"
	"github.com/korjavin/cookalong/pkg/timeline"
)

// ReasonNothingToSkip is reported when no foreground step is active or upcoming
const ReasonNothingToSkip = "No foreground step to skip."

// SkipResult reports whether a skip was applied
type SkipResult struct {
	OK     bool   `json:"ok"`
	Reason string `json:"reason,omitempty"`
}

// Snapshot returns the point-in-time view of a session at now. It does not
// mutate the session.
func Snapshot(session *models.Session, now time.Time) models.TickState {
	elapsed := timeline.ComputeElapsedSec(session, now)
	foreground, backgrounds := timeline.ActiveItemsAt(session, elapsed)

	state := models.TickState{
		ElapsedSec: elapsed,
		Current: models.CurrentItems{
			Background: make([]models.ActiveItem, 0, len(backgrounds)),
		},
		Session: models.SessionRef{ID: session.ID, Status: session.Status},
	}

	if foreground != nil {
		state.Current.Foreground = &models.ActiveItem{
			TimelineItem: *foreground,
			RemainingSec: max(0, foreground.EndSec-elapsed),
		}
	}
	for _, bg := range backgrounds {
		state.Current.Background = append(state.Current.Background, models.ActiveItem{
			TimelineItem: bg,
			RemainingSec: max(0, bg.EndSec-elapsed),
		})
	}

	if next := timeline.NextForegroundAtOrAfter(session, elapsed); next != nil {
		state.NextForeground = &models.UpcomingItem{
			TimelineItem: *next,
			StartsInSec:  max(0, next.StartSec-elapsed),
		}
	}

	return state
}

// SkipForegroundNow force-advances past the current foreground step, or pulls
// the next one forward to start now when nothing is active.
//
// A running step is truncated to end now and everything that has not started
// yet slides earlier by the unconsumed remainder. The elapsed part of the
// running step never moves.
func SkipForegroundNow(session *models.Session, now time.Time) SkipResult {
	elapsed := timeline.ComputeElapsedSec(session, now)
	foreground, _ := timeline.ActiveItemsAt(session, elapsed)

	if foreground != nil {
		remaining := max(0, foreground.EndSec-elapsed)
		if remaining > 0 {
			if !timeline.TruncateItem(session, foreground.ID, elapsed) {
				panic("engine: active foreground item vanished from its own schedule")
			}
			timeline.ShiftFutureItems(session, elapsed, -remaining)
			return SkipResult{OK: true}
		}
	}

	next := timeline.NextForegroundAtOrAfter(session, elapsed)
	if next == nil {
		return SkipResult{OK: false, Reason: ReasonNothingToSkip}
	}
	timeline.ShiftFutureItems(session, next.StartSec, elapsed-next.StartSec)
	return SkipResult{OK: true}
}
