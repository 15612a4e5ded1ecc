package control

import (
	"context"
	"time"

	"github.com/korjavin/cookalong/pkg/engine"
	"github.com/korjavin/cookalong/pkg/models"
)

// EventType names a live update
type EventType string

const (
	EventTick EventType = "tick"
	EventEnd  EventType = "end"
)

// Event is one live update for a subscriber. End is always the last event.
type Event struct {
	Type   EventType         `json:"type"`
	State  *models.TickState `json:"state,omitempty"`
	Reason string            `json:"reason,omitempty"`
}

// Subscribe streams a snapshot of the session immediately and then once per
// tick interval. When the session ends or disappears it sends an end event and
// closes the channel. Cancelling ctx stops the stream.
func (s *Service) Subscribe(ctx context.Context, id string) (<-chan Event, error) {
	if _, ok := s.registry.Get(id); !ok {
		return nil, notFound()
	}

	events := make(chan Event, 1)
	go s.stream(ctx, id, events)
	return events, nil
}

func (s *Service) stream(ctx context.Context, id string, events chan<- Event) {
	defer close(events)

	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	s.logger.Debug("Subscriber attached to session %s", id)
	defer s.logger.Debug("Subscriber detached from session %s", id)

	for {
		ev, last := s.next(id)
		select {
		case events <- ev:
		case <-ctx.Done():
			return
		}
		if last {
			return
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}

// next builds the event for the session's current state and reports whether
// it is the final one
func (s *Service) next(id string) (Event, bool) {
	var (
		snap  models.TickState
		ended bool
	)
	ok := s.registry.View(id, func(sess *models.Session) {
		snap = engine.Snapshot(sess, s.now())
		ended = sess.Status == models.StatusEnded
	})

	switch {
	case !ok:
		return Event{Type: EventEnd, Reason: "deleted"}, true
	case ended:
		return Event{Type: EventEnd, State: &snap, Reason: "ended"}, true
	default:
		return Event{Type: EventTick, State: &snap}, false
	}
}
