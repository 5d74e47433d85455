package domain

import (
	"errors"
	"strings"
	"time"
)

var ErrInvalidCompletionEvent = errors.New("invalid completion event data")

const (
	// CompletionKindProgress is an incremental sub-completion that did not
	// reach the daily target.
	CompletionKindProgress = "progress"
	// CompletionKindMark is a full completion for the day.
	CompletionKindMark = "mark"
	// CompletionKindUndo reverses a same-day completion.
	CompletionKindUndo = "undo"
)

// CompletionEvent is one row of the append-only per-habit event log. The
// history worker replays it to recompute the longest streak; it is never
// read back into the live progress state.
type CompletionEvent struct {
	ID      string `json:"id" db:"id"`
	HabitID string `json:"habit_id" db:"habit_id"`
	UserID  string `json:"user_id" db:"user_id"`

	Kind      string    `json:"kind" db:"kind"`
	Progress  int       `json:"progress" db:"progress"`
	Streak    int       `json:"streak" db:"streak"`
	EventDate time.Time `json:"event_date" db:"event_date"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

func NewCompletionEvent(habitID, userID, kind string, progress, streak int, at time.Time) *CompletionEvent {
	return &CompletionEvent{
		HabitID:   habitID,
		UserID:    userID,
		Kind:      kind,
		Progress:  progress,
		Streak:    streak,
		EventDate: at.UTC(),
		CreatedAt: time.Now().UTC(),
	}
}

func (e *CompletionEvent) Validate() error {
	if strings.TrimSpace(e.HabitID) == "" {
		return errors.New("habit_id is required")
	}
	if strings.TrimSpace(e.UserID) == "" {
		return errors.New("user_id is required")
	}
	switch e.Kind {
	case CompletionKindProgress, CompletionKindMark, CompletionKindUndo:
	default:
		return ErrInvalidCompletionEvent
	}
	if e.Progress < 0 || e.Streak < 0 {
		return ErrInvalidCompletionEvent
	}
	if e.EventDate.IsZero() {
		return errors.New("event_date is required")
	}
	return nil
}
