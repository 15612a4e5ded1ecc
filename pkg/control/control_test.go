package control

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/korjavin/cookalong/pkg/engine"
	"github.com/korjavin/cookalong/pkg/models"
	"github.com/korjavin/cookalong/pkg/state"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func fixture(t *testing.T, opts ...Option) (*Service, *fakeClock, string) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2026, 10, 16, 18, 0, 0, 0, time.UTC)}
	registry := state.New(state.WithClock(clock.Now))
	svc := New(registry, append([]Option{WithClock(clock.Now), WithTickInterval(5 * time.Millisecond)}, opts...)...)

	session, err := svc.CreateSession(models.ScheduleResult{
		TotalDurationSec: 30,
		Items: []models.TimelineItem{
			{RecipeID: "1", RecipeName: "Pasta", StepIndex: 0, Text: "boil water", Attention: models.AttentionForeground, StartSec: 0, EndSec: 10},
			{RecipeID: "1", RecipeName: "Pasta", StepIndex: 1, Text: "simmer sauce", Attention: models.AttentionBackground, StartSec: 2, EndSec: 20},
			{RecipeID: "1", RecipeName: "Pasta", StepIndex: 2, Text: "drain pasta", Attention: models.AttentionForeground, StartSec: 10, EndSec: 15},
			{RecipeID: "1", RecipeName: "Pasta", StepIndex: 3, Text: "rest", Attention: models.AttentionBackground, StartSec: 15, EndSec: 30},
		},
	})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	return svc, clock, session.ID
}

func mustStatus(t *testing.T, got models.SessionStatus, err error, want models.SessionStatus) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != want {
		t.Fatalf("expected status %s, got %s", want, got)
	}
}

func TestCreateSessionRejectsMalformedSchedule(t *testing.T) {
	registry := state.New()
	svc := New(registry)

	_, err := svc.CreateSession(models.ScheduleResult{Items: []models.TimelineItem{
		{RecipeID: "1", Text: "bad", Attention: models.AttentionForeground, StartSec: 5, EndSec: 5},
	}})
	if !errors.Is(err, ErrInvalidSchedule) {
		t.Fatalf("expected ErrInvalidSchedule, got %v", err)
	}
	if registry.Len() != 0 {
		t.Errorf("expected no session to be left behind, have %d", registry.Len())
	}
}

func TestStartIsIdempotent(t *testing.T) {
	svc, clock, id := fixture(t)

	status, err := svc.Start(id)
	mustStatus(t, status, err, models.StatusRunning)

	clock.Advance(4 * time.Second)
	status, err = svc.Start(id)
	mustStatus(t, status, err, models.StatusRunning)

	snap, _ := svc.State(id)
	if snap.ElapsedSec != 4 {
		t.Errorf("second start reset the clock: elapsed %d", snap.ElapsedSec)
	}
}

func TestTransitions(t *testing.T) {
	testCases := []struct {
		name string
		prep []func(*Service, string) (models.SessionStatus, error)
		op   func(*Service, string) (models.SessionStatus, error)
		want models.SessionStatus
		err  error
	}{
		{name: "pause idle", op: (*Service).Pause, err: ErrConflict},
		{name: "resume idle", op: (*Service).Resume, err: ErrConflict},
		{name: "pause running", prep: steps((*Service).Start), op: (*Service).Pause, want: models.StatusPaused},
		{name: "resume running", prep: steps((*Service).Start), op: (*Service).Resume, err: ErrConflict},
		{name: "pause paused", prep: steps((*Service).Start, (*Service).Pause), op: (*Service).Pause, err: ErrConflict},
		{name: "start paused", prep: steps((*Service).Start, (*Service).Pause), op: (*Service).Start, err: ErrConflict},
		{name: "resume paused", prep: steps((*Service).Start, (*Service).Pause), op: (*Service).Resume, want: models.StatusRunning},
		{name: "end idle", op: (*Service).End, want: models.StatusEnded},
		{name: "end paused", prep: steps((*Service).Start, (*Service).Pause), op: (*Service).End, want: models.StatusEnded},
		{name: "start ended", prep: steps((*Service).End), op: (*Service).Start, err: ErrConflict},
		{name: "resume ended", prep: steps((*Service).End), op: (*Service).Resume, err: ErrConflict},
		{name: "end ended", prep: steps((*Service).End), op: (*Service).End, err: ErrConflict},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			svc, _, id := fixture(t)
			for _, p := range tc.prep {
				if _, err := p(svc, id); err != nil {
					t.Fatalf("prep failed: %v", err)
				}
			}

			status, err := tc.op(svc, id)
			if tc.err != nil {
				if !errors.Is(err, tc.err) {
					t.Fatalf("expected %v, got %v", tc.err, err)
				}
				return
			}
			mustStatus(t, status, err, tc.want)
		})
	}
}

func steps(ops ...func(*Service, string) (models.SessionStatus, error)) []func(*Service, string) (models.SessionStatus, error) {
	return ops
}

func TestUnknownSession(t *testing.T) {
	svc, _, _ := fixture(t)

	ops := map[string]func() error{
		"start":  func() error { _, err := svc.Start("missing"); return err },
		"pause":  func() error { _, err := svc.Pause("missing"); return err },
		"resume": func() error { _, err := svc.Resume("missing"); return err },
		"skip":   func() error { _, err := svc.Skip("missing"); return err },
		"state":  func() error { _, err := svc.State("missing"); return err },
		"end":    func() error { _, err := svc.End("missing"); return err },
		"delete": func() error { return svc.Delete("missing") },
		"subscribe": func() error {
			_, err := svc.Subscribe(context.Background(), "missing")
			return err
		},
	}
	for name, op := range ops {
		t.Run(name, func(t *testing.T) {
			if err := op(); !errors.Is(err, ErrNotFound) {
				t.Errorf("expected ErrNotFound, got %v", err)
			}
		})
	}
}

func TestPauseFreezesClock(t *testing.T) {
	svc, clock, id := fixture(t)
	_, _ = svc.Start(id)
	clock.Advance(6 * time.Second)

	before, _ := svc.State(id)
	_, _ = svc.Pause(id)
	clock.Advance(2 * time.Second)

	during, _ := svc.State(id)
	if during.ElapsedSec != before.ElapsedSec {
		t.Errorf("clock moved while paused: %d -> %d", before.ElapsedSec, during.ElapsedSec)
	}

	status, err := svc.Resume(id)
	mustStatus(t, status, err, models.StatusRunning)

	after, _ := svc.State(id)
	if after.ElapsedSec != before.ElapsedSec {
		t.Errorf("expected elapsed %d right after resume, got %d", before.ElapsedSec, after.ElapsedSec)
	}

	session, _ := svc.registry.Get(id)
	if session.TotalPaused != 2*time.Second {
		t.Errorf("expected 2s paused, got %s", session.TotalPaused)
	}

	clock.Advance(3 * time.Second)
	later, _ := svc.State(id)
	if later.ElapsedSec != before.ElapsedSec+3 {
		t.Errorf("expected clock to run again, got %d", later.ElapsedSec)
	}
}

func TestSkip(t *testing.T) {
	svc, clock, id := fixture(t)

	if _, err := svc.Skip(id); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected conflict on idle session, got %v", err)
	}

	_, _ = svc.Start(id)
	clock.Advance(5 * time.Second)

	snap, err := svc.Skip(id)
	if err != nil {
		t.Fatalf("Skip: %v", err)
	}
	if snap.Current.Foreground == nil || snap.Current.Foreground.Text != "drain pasta" {
		t.Errorf("expected drain pasta to be current, got %+v", snap.Current.Foreground)
	}
	if snap.Current.Foreground.RemainingSec != 5 {
		t.Errorf("expected 5s remaining, got %d", snap.Current.Foreground.RemainingSec)
	}

	session, _ := svc.registry.Get(id)
	if session.SkipCount != 1 {
		t.Errorf("expected skip count 1, got %d", session.SkipCount)
	}

	clock.Advance(time.Minute)
	_, err = svc.Skip(id)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected conflict with nothing to skip, got %v", err)
	}
	if err.Error() != engine.ReasonNothingToSkip {
		t.Errorf("expected reason %q verbatim, got %q", engine.ReasonNothingToSkip, err.Error())
	}
}

func TestSkipIgnoresClientItemIDs(t *testing.T) {
	svc, clock, _ := fixture(t)

	session, err := svc.CreateSession(models.ScheduleResult{
		TotalDurationSec: 15,
		Items: []models.TimelineItem{
			{ID: "x", RecipeID: "2", RecipeName: "Stir fry", StepIndex: 0, Text: "wash", Attention: models.AttentionForeground, StartSec: 0, EndSec: 3},
			{ID: "x", RecipeID: "2", RecipeName: "Stir fry", StepIndex: 1, Text: "chop", Attention: models.AttentionForeground, StartSec: 3, EndSec: 10},
			{ID: "x", RecipeID: "2", RecipeName: "Stir fry", StepIndex: 2, Text: "stir", Attention: models.AttentionForeground, StartSec: 10, EndSec: 15},
		},
	})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	_, _ = svc.Start(session.ID)
	clock.Advance(5 * time.Second)

	snap, err := svc.Skip(session.ID)
	if err != nil {
		t.Fatalf("Skip: %v", err)
	}
	if fg := snap.Current.Foreground; fg == nil || fg.Text != "stir" || fg.RemainingSec != 5 {
		t.Errorf("expected stir with 5s remaining, got %+v", fg)
	}

	sched, _ := svc.Schedule(session.ID)
	type span struct {
		Text       string
		Start, End int
	}
	var got []span
	for _, it := range sched.Items {
		got = append(got, span{it.Text, it.StartSec, it.EndSec})
	}
	want := []span{{"wash", 0, 3}, {"chop", 3, 5}, {"stir", 5, 10}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("schedule mismatch (-want +got):\n%s", diff)
	}
}

func TestEndFreezesElapsed(t *testing.T) {
	svc, clock, id := fixture(t)
	_, _ = svc.Start(id)
	clock.Advance(8 * time.Second)
	_, _ = svc.End(id)
	clock.Advance(time.Hour)

	snap, _ := svc.State(id)
	if snap.ElapsedSec != 8 {
		t.Errorf("expected elapsed frozen at 8, got %d", snap.ElapsedSec)
	}
	if snap.Session.Status != models.StatusEnded {
		t.Errorf("expected ended, got %s", snap.Session.Status)
	}
}

func TestEndWithoutFreezeFollowsWallClock(t *testing.T) {
	svc, clock, id := fixture(t, WithFreezeElapsedOnEnd(false))
	_, _ = svc.Start(id)
	clock.Advance(8 * time.Second)
	_, _ = svc.End(id)
	clock.Advance(10 * time.Second)

	snap, _ := svc.State(id)
	if snap.ElapsedSec != 18 {
		t.Errorf("expected elapsed 18, got %d", snap.ElapsedSec)
	}
}

func TestEndPausedSessionFreezesAtPause(t *testing.T) {
	svc, clock, id := fixture(t)
	_, _ = svc.Start(id)
	clock.Advance(4 * time.Second)
	_, _ = svc.Pause(id)
	clock.Advance(30 * time.Second)
	_, _ = svc.End(id)

	snap, _ := svc.State(id)
	if snap.ElapsedSec != 4 {
		t.Errorf("expected elapsed 4, got %d", snap.ElapsedSec)
	}
}

func TestDelete(t *testing.T) {
	svc, _, id := fixture(t)

	var ended []models.Session
	svc.OnEnded(func(s models.Session) { ended = append(ended, s) })

	if err := svc.Delete(id); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := svc.State(id); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected session to be gone, got %v", err)
	}
	if len(ended) != 1 || ended[0].Status != models.StatusEnded {
		t.Errorf("expected one ended hook call, got %+v", ended)
	}
	if err := svc.Delete(id); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected not found on second delete, got %v", err)
	}
}

func TestHooks(t *testing.T) {
	svc, _, id := fixture(t)

	var started, ended int
	svc.OnStarted(func(models.Session) { started++ })
	svc.OnStarted(func(models.Session) { panic("boom") })
	svc.OnEnded(func(models.Session) { ended++ })

	_, _ = svc.Start(id)
	_, _ = svc.Start(id)
	_, _ = svc.End(id)
	_ = svc.Delete(id)

	if started != 1 {
		t.Errorf("expected one started call, got %d", started)
	}
	if ended != 1 {
		t.Errorf("expected one ended call, got %d", ended)
	}
}

func TestSweepEndsAbandonedSessions(t *testing.T) {
	svc, clock, running := fixture(t)
	ended, _ := svc.CreateSession(models.ScheduleResult{
		TotalDurationSec: 5,
		Items: []models.TimelineItem{
			{RecipeID: "3", RecipeName: "Tea", Text: "steep", Attention: models.AttentionForeground, StartSec: 0, EndSec: 5},
		},
	})

	var finished []models.Session
	svc.OnEnded(func(sess models.Session) { finished = append(finished, sess) })

	_, _ = svc.Start(running)
	_, _ = svc.Start(ended.ID)
	_, _ = svc.End(ended.ID)
	finished = nil

	clock.Advance(time.Hour)
	removed := svc.Sweep(time.Minute)
	if len(removed) != 2 {
		t.Fatalf("expected both sessions swept, got %v", removed)
	}
	if len(finished) != 1 || finished[0].ID != running || finished[0].Status != models.StatusEnded {
		t.Fatalf("expected one ended hook for the running session, got %+v", finished)
	}
	if finished[0].EndedAt.IsZero() {
		t.Error("expected EndedAt to be set on the swept session")
	}
	if _, err := svc.State(running); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected swept session to be gone, got %v", err)
	}
}

func TestSubscribe(t *testing.T) {
	svc, clock, id := fixture(t)
	_, _ = svc.Start(id)
	clock.Advance(3 * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	events, err := svc.Subscribe(ctx, id)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	first := <-events
	if first.Type != EventTick || first.State == nil || first.State.ElapsedSec != 3 {
		t.Fatalf("expected immediate tick at 3s, got %+v", first)
	}

	_, _ = svc.End(id)

	var last Event
	for ev := range events {
		last = ev
	}
	if last.Type != EventEnd || last.Reason != "ended" {
		t.Errorf("expected terminal end event, got %+v", last)
	}
}

func TestSubscribeEndsOnDelete(t *testing.T) {
	svc, _, id := fixture(t)

	events, err := svc.Subscribe(context.Background(), id)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	<-events
	_ = svc.Delete(id)

	var last Event
	for ev := range events {
		last = ev
	}
	if last.Type != EventEnd {
		t.Errorf("expected end event, got %+v", last)
	}
}

func TestSubscribeStopsOnCancel(t *testing.T) {
	svc, _, id := fixture(t)

	ctx, cancel := context.WithCancel(context.Background())
	events, err := svc.Subscribe(ctx, id)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	<-events
	cancel()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, open := <-events:
			if !open {
				return
			}
		case <-deadline:
			t.Fatal("stream did not stop after cancel")
		}
	}
}
