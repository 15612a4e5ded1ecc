package timeline

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/korjavin/cookalong/pkg/models"
)

func item(id string, attention models.Attention, start, end int) models.TimelineItem {
	return models.TimelineItem{
		ID:         id,
		RecipeID:   "r1",
		RecipeName: "Test Recipe",
		Text:       string(attention) + " " + id,
		Attention:  attention,
		StartSec:   start,
		EndSec:     end,
	}
}

func fixtureSession() *models.Session {
	return &models.Session{
		ID:     "s1",
		Status: models.StatusRunning,
		Schedule: models.ScheduleResult{
			TotalDurationSec: 30,
			Items: []models.TimelineItem{
				item("a", models.AttentionForeground, 0, 10),
				item("b", models.AttentionBackground, 2, 20),
				item("c", models.AttentionForeground, 10, 15),
				item("d", models.AttentionBackground, 15, 30),
			},
		},
	}
}

type span struct {
	ID         string
	Start, End int
}

func spans(items []models.TimelineItem) []span {
	out := make([]span, len(items))
	for i, it := range items {
		out[i] = span{it.ID, it.StartSec, it.EndSec}
	}
	return out
}

func TestSanitize(t *testing.T) {
	testCases := []struct {
		name      string
		in        models.ScheduleResult
		wantOrder []span
		wantTotal int
	}{
		{
			name: "sorts by start then end",
			in: models.ScheduleResult{
				TotalDurationSec: 40,
				Items: []models.TimelineItem{
					item("x", models.AttentionForeground, 10, 20),
					item("y", models.AttentionBackground, 0, 30),
					item("z", models.AttentionForeground, 0, 5),
				},
			},
			wantOrder: []span{{"z", 0, 5}, {"y", 0, 30}, {"x", 10, 20}},
			wantTotal: 40,
		},
		{
			name: "total grows to cover last item",
			in: models.ScheduleResult{
				TotalDurationSec: 3,
				Items:            []models.TimelineItem{item("x", models.AttentionForeground, 0, 12)},
			},
			wantOrder: []span{{"x", 0, 12}},
			wantTotal: 12,
		},
		{
			name:      "empty schedule clamps negative total",
			in:        models.ScheduleResult{TotalDurationSec: -5},
			wantOrder: []span{},
			wantTotal: 0,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := Sanitize(tc.in)
			if diff := cmp.Diff(tc.wantOrder, spans(got.Items)); diff != "" {
				t.Errorf("order mismatch (-want +got):\n%s", diff)
			}
			if got.TotalDurationSec != tc.wantTotal {
				t.Errorf("expected total %d, got %d", tc.wantTotal, got.TotalDurationSec)
			}
		})
	}
}

func TestSanitizeDoesNotAliasInput(t *testing.T) {
	in := models.ScheduleResult{Items: []models.TimelineItem{
		item("b", models.AttentionForeground, 5, 6),
		item("a", models.AttentionForeground, 0, 1),
	}}
	_ = Sanitize(in)
	if in.Items[0].ID != "b" {
		t.Fatalf("input was reordered")
	}
}

func TestShiftFutureItems(t *testing.T) {
	t.Run("zero shift leaves schedule unchanged", func(t *testing.T) {
		s := fixtureSession()
		before := s.Clone()
		ShiftFutureItems(s, 0, 0)
		if diff := cmp.Diff(before.Schedule, s.Schedule); diff != "" {
			t.Errorf("schedule changed (-before +after):\n%s", diff)
		}
	})

	t.Run("negative shift moves suffix only", func(t *testing.T) {
		s := fixtureSession()
		ShiftFutureItems(s, 10, -4)
		want := []span{{"a", 0, 10}, {"b", 2, 20}, {"c", 6, 11}, {"d", 11, 26}}
		if diff := cmp.Diff(want, spans(s.Schedule.Items)); diff != "" {
			t.Errorf("mismatch (-want +got):\n%s", diff)
		}
		if s.Schedule.TotalDurationSec != 26 {
			t.Errorf("expected total 26, got %d", s.Schedule.TotalDurationSec)
		}
	})

	t.Run("positive shift extends total", func(t *testing.T) {
		s := fixtureSession()
		ShiftFutureItems(s, 15, 5)
		if got := s.Schedule.Items[3]; got.StartSec != 20 || got.EndSec != 35 {
			t.Errorf("expected d at [20,35), got [%d,%d)", got.StartSec, got.EndSec)
		}
		if s.Schedule.TotalDurationSec != 35 {
			t.Errorf("expected total 35, got %d", s.Schedule.TotalDurationSec)
		}
	})

	t.Run("large negative shift clamps at zero with positive duration", func(t *testing.T) {
		s := fixtureSession()
		ShiftFutureItems(s, 10, -100)
		for _, it := range s.Schedule.Items {
			if it.StartSec < 0 {
				t.Errorf("item %s starts before 0", it.ID)
			}
			if it.EndSec < it.StartSec+1 {
				t.Errorf("item %s has non-positive duration [%d,%d)", it.ID, it.StartSec, it.EndSec)
			}
		}
		assertSorted(t, s.Schedule.Items)
		if s.Schedule.TotalDurationSec < maxEnd(s.Schedule.Items) {
			t.Errorf("total %d below last end", s.Schedule.TotalDurationSec)
		}
	})
}

func TestTruncateItem(t *testing.T) {
	s := fixtureSession()
	if !TruncateItem(s, "a", 4) {
		t.Fatal("expected item to be found")
	}
	if s.Schedule.Items[0].EndSec != 4 {
		t.Errorf("expected end 4, got %d", s.Schedule.Items[0].EndSec)
	}
	if TruncateItem(s, "missing", 1) {
		t.Error("expected unknown id to be reported")
	}
}

func TestTruncateItemMatchesOnlyByID(t *testing.T) {
	twin := func(id string) models.TimelineItem {
		return models.TimelineItem{
			ID: id, RecipeID: "r1", RecipeName: "Test Recipe", Text: "stir",
			Attention: models.AttentionBackground, StartSec: 0, EndSec: 10,
		}
	}
	s := &models.Session{Schedule: models.ScheduleResult{
		TotalDurationSec: 10,
		Items:            []models.TimelineItem{twin("first"), twin("second")},
	}}

	if !TruncateItem(s, "second", 6) {
		t.Fatal("expected item to be found")
	}
	want := []span{{"second", 0, 6}, {"first", 0, 10}}
	if diff := cmp.Diff(want, spans(s.Schedule.Items)); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestComputeElapsedSec(t *testing.T) {
	start := time.Date(2026, 1, 2, 18, 0, 0, 0, time.UTC)

	testCases := []struct {
		name    string
		session models.Session
		now     time.Time
		want    int
	}{
		{
			name:    "idle is zero",
			session: models.Session{Status: models.StatusIdle, StartedAt: start},
			now:     start.Add(time.Minute),
			want:    0,
		},
		{
			name:    "not started is zero",
			session: models.Session{Status: models.StatusRunning},
			now:     start,
			want:    0,
		},
		{
			name:    "running floors to whole seconds",
			session: models.Session{Status: models.StatusRunning, StartedAt: start},
			now:     start.Add(7999 * time.Millisecond),
			want:    7,
		},
		{
			name:    "running excludes paused time",
			session: models.Session{Status: models.StatusRunning, StartedAt: start, TotalPaused: 3 * time.Second},
			now:     start.Add(10 * time.Second),
			want:    7,
		},
		{
			name: "paused is frozen at pause start",
			session: models.Session{
				Status:      models.StatusPaused,
				StartedAt:   start,
				PausedAt:    start.Add(12 * time.Second),
				TotalPaused: 2 * time.Second,
			},
			now:  start.Add(time.Hour),
			want: 10,
		},
		{
			name:    "clock skew clamps to zero",
			session: models.Session{Status: models.StatusRunning, StartedAt: start},
			now:     start.Add(-5 * time.Second),
			want:    0,
		},
		{
			name:    "ended with end time is frozen",
			session: models.Session{Status: models.StatusEnded, StartedAt: start, EndedAt: start.Add(20 * time.Second)},
			now:     start.Add(time.Hour),
			want:    20,
		},
		{
			name:    "ended without end time keeps running",
			session: models.Session{Status: models.StatusEnded, StartedAt: start},
			now:     start.Add(90 * time.Second),
			want:    90,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ComputeElapsedSec(&tc.session, tc.now); got != tc.want {
				t.Errorf("expected %d, got %d", tc.want, got)
			}
		})
	}
}

func TestActiveItemsAt(t *testing.T) {
	s := fixtureSession()

	fg, bgs := ActiveItemsAt(s, 7)
	if fg == nil || fg.ID != "a" {
		t.Fatalf("expected foreground a, got %+v", fg)
	}
	if len(bgs) != 1 || bgs[0].ID != "b" {
		t.Fatalf("expected background b, got %+v", bgs)
	}

	// half-open: included at start, excluded at end
	fg, _ = ActiveItemsAt(s, 10)
	if fg == nil || fg.ID != "c" {
		t.Errorf("expected c at its start second, got %+v", fg)
	}
	fg, bgs = ActiveItemsAt(s, 30)
	if fg != nil || len(bgs) != 0 {
		t.Errorf("expected nothing active at 30, got %+v %+v", fg, bgs)
	}
	if bgs == nil {
		t.Error("expected empty, non-nil background list")
	}
}

func TestActiveItemsAtFirstForegroundWins(t *testing.T) {
	s := &models.Session{Schedule: models.ScheduleResult{Items: []models.TimelineItem{
		item("first", models.AttentionForeground, 0, 10),
		item("second", models.AttentionForeground, 1, 10),
	}}}
	fg, _ := ActiveItemsAt(s, 5)
	if fg == nil || fg.ID != "first" {
		t.Errorf("expected first, got %+v", fg)
	}
}

func TestNextForegroundAtOrAfter(t *testing.T) {
	s := fixtureSession()
	if next := NextForegroundAtOrAfter(s, 7); next == nil || next.ID != "c" {
		t.Errorf("expected c, got %+v", next)
	}
	if next := NextForegroundAtOrAfter(s, 0); next == nil || next.ID != "a" {
		t.Errorf("expected a, got %+v", next)
	}
	if next := NextForegroundAtOrAfter(s, 11); next != nil {
		t.Errorf("expected nil, got %+v", next)
	}
}

func TestValidate(t *testing.T) {
	good := fixtureSession().Schedule
	if err := Validate(good); err != nil {
		t.Fatalf("expected valid schedule, got %v", err)
	}

	bad := map[string]func(*models.ScheduleResult){
		"missing recipe id": func(s *models.ScheduleResult) { s.Items[0].RecipeID = "" },
		"missing text":      func(s *models.ScheduleResult) { s.Items[0].Text = "" },
		"unknown attention": func(s *models.ScheduleResult) { s.Items[0].Attention = "sideways" },
		"negative start":    func(s *models.ScheduleResult) { s.Items[1].StartSec = -1 },
		"empty interval":    func(s *models.ScheduleResult) { s.Items[1].EndSec = s.Items[1].StartSec },
		"overlapping fg":    func(s *models.ScheduleResult) { s.Items[2].StartSec = 9 },
		"negative total":    func(s *models.ScheduleResult) { s.TotalDurationSec = -1 },
	}
	for name, mutate := range bad {
		t.Run(name, func(t *testing.T) {
			s := good.Clone()
			mutate(&s)
			if err := Validate(s); !errors.Is(err, ErrInvalidSchedule) {
				t.Errorf("expected ErrInvalidSchedule, got %v", err)
			}
		})
	}
}

func TestAssignIDs(t *testing.T) {
	s := models.ScheduleResult{Items: []models.TimelineItem{
		{ID: "x"},
		{ID: "x"},
		{},
	}}
	AssignIDs(&s)

	seen := make(map[string]bool)
	for i, it := range s.Items {
		if it.ID == "" || it.ID == "x" {
			t.Errorf("item %d kept id %q", i, it.ID)
		}
		if seen[it.ID] {
			t.Errorf("item %d reuses id %q", i, it.ID)
		}
		seen[it.ID] = true
	}
}

func assertSorted(t *testing.T, items []models.TimelineItem) {
	t.Helper()
	for i := 1; i < len(items); i++ {
		a, b := items[i-1], items[i]
		if a.StartSec > b.StartSec || (a.StartSec == b.StartSec && a.EndSec > b.EndSec) {
			t.Fatalf("items not sorted at %d: %+v before %+v", i, a, b)
		}
	}
}
