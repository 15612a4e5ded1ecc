package models

import (
	"time"
)

// Attention tells whether a step needs the cook's hands or runs on its own
type Attention string

const (
	// AttentionForeground marks a step that needs active attention
	AttentionForeground Attention = "foreground"
	// AttentionBackground marks a step that runs unattended
	AttentionBackground Attention = "background"
)

// Valid reports whether a is one of the known attention labels
func (a Attention) Valid() bool {
	return a == AttentionForeground || a == AttentionBackground
}

// TimelineItem represents one scheduled step on the session timeline.
// StartSec and EndSec are seconds of elapsed session time.
type TimelineItem struct {
	ID         string    `json:"id,omitempty"`
	RecipeID   string    `json:"recipeId"`
	RecipeName string    `json:"recipeName"`
	StepIndex  int       `json:"stepIndex"`
	Text       string    `json:"text"`
	Attention  Attention `json:"attention"`
	StartSec   int       `json:"startSec"`
	EndSec     int       `json:"endSec"`
}

// ScheduleResult represents an interleaved timeline across several recipes
type ScheduleResult struct {
	Items            []TimelineItem `json:"items"`
	TotalDurationSec int            `json:"totalDurationSec"`
}

// Clone returns a deep copy of the schedule
func (s ScheduleResult) Clone() ScheduleResult {
	items := make([]TimelineItem, len(s.Items))
	copy(items, s.Items)
	return ScheduleResult{Items: items, TotalDurationSec: s.TotalDurationSec}
}

// SessionStatus is the state of a live cooking session
type SessionStatus string

const (
	StatusIdle    SessionStatus = "idle"
	StatusRunning SessionStatus = "running"
	StatusPaused  SessionStatus = "paused"
	StatusEnded   SessionStatus = "ended"
)

// Session represents one live cooking run over a schedule.
// Zero time values mean "not set".
type Session struct {
	ID          string         `json:"id"`
	Schedule    ScheduleResult `json:"schedule"`
	Status      SessionStatus  `json:"status"`
	CreatedAt   time.Time      `json:"createdAt"`
	StartedAt   time.Time      `json:"startedAt"`
	PausedAt    time.Time      `json:"pausedAt"`
	EndedAt     time.Time      `json:"endedAt"`
	TotalPaused time.Duration  `json:"totalPaused"`
	SkipCount   int            `json:"skipCount"`
}

// Clone returns a deep copy of the session
func (s *Session) Clone() Session {
	c := *s
	c.Schedule = s.Schedule.Clone()
	return c
}

// RecipeIDs returns the distinct recipe ids on the session's timeline, in
// first-seen order, together with their names
func (s *Session) RecipeIDs() ([]string, map[string]string) {
	var ids []string
	names := make(map[string]string)
	for _, item := range s.Schedule.Items {
		if _, ok := names[item.RecipeID]; ok {
			continue
		}
		names[item.RecipeID] = item.RecipeName
		ids = append(ids, item.RecipeID)
	}
	return ids, names
}

// ActiveItem is a timeline item running right now
type ActiveItem struct {
	TimelineItem
	RemainingSec int `json:"remainingSec"`
}

// UpcomingItem is a timeline item that has not started yet
type UpcomingItem struct {
	TimelineItem
	StartsInSec int `json:"startsInSec"`
}

// CurrentItems holds what is active at a given instant
type CurrentItems struct {
	Foreground *ActiveItem  `json:"foreground"`
	Background []ActiveItem `json:"background"`
}

// SessionRef identifies a session inside a tick
type SessionRef struct {
	ID     string        `json:"id"`
	Status SessionStatus `json:"status"`
}

// TickState is a computed point-in-time view of a session. It is never stored.
type TickState struct {
	ElapsedSec     int           `json:"elapsedSec"`
	Current        CurrentItems  `json:"current"`
	NextForeground *UpcomingItem `json:"nextForeground"`
	Session        SessionRef    `json:"session"`
}

// Step represents a single instruction of a recipe
type Step struct {
	Index       int       `json:"index" yaml:"index"`
	Text        string    `json:"text" yaml:"text"`
	DurationSec int       `json:"durationSec" yaml:"durationSec"`
	Attention   Attention `json:"attention" yaml:"attention"`
}

// Recipe represents a recipe as consumed by the schedule planner
type Recipe struct {
	ID    string `json:"recipeId" yaml:"id"`
	Name  string `json:"recipeName" yaml:"name"`
	Steps []Step `json:"steps" yaml:"steps"`
}

// SchedulePreview represents a generated schedule cached for a set of recipes
type SchedulePreview struct {
	ID        string         `json:"id"`
	RecipeKey string         `json:"recipeKey"`
	RecipeIDs []string       `json:"recipeIds"`
	Schedule  ScheduleResult `json:"schedule"`
	CreatedAt time.Time      `json:"createdAt"`
}

// RecipeStat represents how often a recipe has been cooked
type RecipeStat struct {
	RecipeID         string    `json:"recipeId"`
	RecipeName       string    `json:"recipeName"`
	SessionsStarted  int       `json:"sessionsStarted"`
	SessionsFinished int       `json:"sessionsFinished"`
	StepsSkipped     int       `json:"stepsSkipped"`
	LastCookedAt     time.Time `json:"lastCookedAt"`
}
