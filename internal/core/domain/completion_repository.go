package domain

import (
	"context"
	"errors"
	"time"
)

var ErrCompletionNotFound = errors.New("completion event not found")

type CompletionRepository interface {
	// Create appends an event to the log. Events are never updated.
	Create(ctx context.Context, event *CompletionEvent) error

	// ListByHabitID returns the full log for one habit in append order.
	// The history worker replays it to rebuild the completed-day set.
	ListByHabitID(ctx context.Context, habitID string) ([]*CompletionEvent, error)

	// ListByHabitIDWithRange returns events whose event date falls within
	// [from, to], newest first. Backs calendar and chart views.
	ListByHabitIDWithRange(ctx context.Context, habitID string, from, to time.Time) ([]*CompletionEvent, error)
}
