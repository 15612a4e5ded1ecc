// Package messages renders session state as chat text
package messages

import (
	"errors"
	"fmt"
	"strings"

	"github.com/korjavin/cookalong/pkg/control"
	"github.com/korjavin/cookalong/pkg/models"
)

// FormatDuration renders seconds as m:ss, or h:mm:ss past an hour
func FormatDuration(sec int) string {
	if sec < 0 {
		sec = 0
	}
	h, m, s := sec/3600, (sec%3600)/60, sec%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// Status renders a status change
func Status(sessionID string, status models.SessionStatus) string {
	switch status {
	case models.StatusRunning:
		return "▶️ Cooking! Session " + sessionID + " is running."
	case models.StatusPaused:
		return "⏸️ Paused. Send /resume when you're back."
	case models.StatusEnded:
		return "🏁 Session ended. Enjoy your meal!"
	default:
		return "Session " + sessionID + " is " + string(status) + "."
	}
}

// SessionCreated renders the reply to a newly created session
func SessionCreated(session models.Session) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🍳 Session %s is ready: %d steps, about %s in total.\n",
		session.ID, len(session.Schedule.Items), FormatDuration(session.Schedule.TotalDurationSec))
	ids, names := session.RecipeIDs()
	for _, id := range ids {
		b.WriteString("• " + names[id] + "\n")
	}
	b.WriteString("Send /go to start the clock.")
	return b.String()
}

// Tick renders a point-in-time snapshot
func Tick(state models.TickState) string {
	var b strings.Builder

	fmt.Fprintf(&b, "⏱️ %s elapsed (%s)\n", FormatDuration(state.ElapsedSec), state.Session.Status)

	if fg := state.Current.Foreground; fg != nil {
		fmt.Fprintf(&b, "\n👩‍🍳 Now: %s (%s)\n   %s left\n", fg.Text, fg.RecipeName, FormatDuration(fg.RemainingSec))
	} else {
		b.WriteString("\n👩‍🍳 Nothing needs your hands right now.\n")
	}

	if len(state.Current.Background) > 0 {
		b.WriteString("\n🔥 Running:\n")
		for _, item := range state.Current.Background {
			fmt.Fprintf(&b, "• %s (%s), %s left\n", item.Text, item.RecipeName, FormatDuration(item.RemainingSec))
		}
	}

	if next := state.NextForeground; next != nil {
		fmt.Fprintf(&b, "\n⏭️ Next: %s (%s) in %s\n", next.Text, next.RecipeName, FormatDuration(next.StartsInSec))
	}

	return strings.TrimRight(b.String(), "\n")
}

// StepChanged renders a push notification for a new foreground step
func StepChanged(state models.TickState) string {
	fg := state.Current.Foreground
	if fg == nil {
		if next := state.NextForeground; next != nil {
			return fmt.Sprintf("☕ Take a break. Next up in %s: %s", FormatDuration(next.StartsInSec), next.Text)
		}
		return "☕ Nothing left to do by hand. Let it finish."
	}
	return fmt.Sprintf("👉 %s (%s), %s", fg.Text, fg.RecipeName, FormatDuration(fg.RemainingSec))
}

// Error renders an operation failure
func Error(err error) string {
	var ctrlErr *control.Error
	switch {
	case errors.As(err, &ctrlErr):
		return "⚠️ " + ctrlErr.Message
	case errors.Is(err, control.ErrInvalidSchedule):
		return "⚠️ That schedule can't be cooked: " + err.Error()
	default:
		return "😢 Sorry, something went wrong. Please try again later."
	}
}
