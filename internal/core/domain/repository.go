package domain

import (
	"context"
	"time"
)

type HabitRepository interface {
	// Create persists a new habit with its zeroed progress state.
	Create(ctx context.Context, habit *Habit) error

	// GetByID retrieves a habit by its unique identifier.
	GetByID(ctx context.Context, id string) (*Habit, error)

	// ListByUserID retrieves all habits associated with a specific user.
	ListByUserID(ctx context.Context, userID string) ([]*Habit, error)

	// Update persists metadata and progress-state changes together.
	// Implementations must handle optimistic locking via Version.
	Update(ctx context.Context, habit *Habit) error

	// Delete soft-deletes a habit; its completion log is retained.
	Delete(ctx context.Context, id string) error

	// GetChanges returns the deltas occurring after a specific instant,
	// for offline-first client synchronization.
	GetChanges(ctx context.Context, userID string, since time.Time) ([]*Habit, error)

	// UpdateLongestStreak is the history worker's single write path.
	UpdateLongestStreak(ctx context.Context, id string, longest int) error
}
