package services

import (
	"context"
	"log"
	"time"

	"github.com/ritmoapp/progress-engine/internal/core/domain"
	"github.com/ritmoapp/progress-engine/internal/core/workers"
)

// ProgressService is the only writer of progress state. It owns the
// load-transition-persist cycle around the pure engine: day-rollover
// normalization runs here once per call, so the engine's ordering guarantee
// holds no matter how the UI sequences its requests.
type ProgressService struct {
	habits domain.HabitRepository
	events domain.CompletionRepository
	worker *workers.HistoryWorker
}

func NewProgressService(habits domain.HabitRepository, events domain.CompletionRepository, worker *workers.HistoryWorker) *ProgressService {
	return &ProgressService{
		habits: habits,
		events: events,
		worker: worker,
	}
}

// TodayView is the read model the UI renders for one habit on one day.
type TodayView struct {
	HabitID       string  `json:"habit_id"`
	Completed     bool    `json:"completed"`
	Active        bool    `json:"active"`
	Fraction      float64 `json:"fraction"`
	Streak        int     `json:"streak"`
	TodayProgress int     `json:"today_progress"`
	DailyTarget   int     `json:"daily_target"`
	LongestStreak int     `json:"longest_streak"`
}

func (s *ProgressService) loadOwned(ctx context.Context, habitID, userID string) (*domain.Habit, error) {
	habit, err := s.habits.GetByID(ctx, habitID)
	if err != nil {
		return nil, err
	}
	if habit.UserID != userID {
		return nil, domain.ErrHabitNotFound
	}
	return habit, nil
}

// Increment applies one user tap at now. For incremental habits it counts a
// sub-completion; for simple habits it completes the day. Redundant taps are
// no-ops and are not persisted or logged.
func (s *ProgressService) Increment(ctx context.Context, habitID, userID string, now time.Time) (*domain.Habit, error) {
	habit, err := s.loadOwned(ctx, habitID, userID)
	if err != nil {
		return nil, err
	}
	if habit.ArchivedAt != nil {
		return nil, domain.ErrHabitArchived
	}

	before := habit.Progress
	next := before
	// Day-rollover normalization, but only when a completion date anchors
	// "which day": with a nil date the reset would clear WasCompletedToday
	// and turn a same-day redo into a fresh completion.
	if next.LastCompletedDate != nil {
		next = next.ResetProgressIfNeeded(habit.Recurrence, now)
	}
	next = next.IncrementProgress(habit.Recurrence, now)

	if next.Equal(before) {
		return habit, nil
	}

	habit.Progress = next
	if err := s.habits.Update(ctx, habit); err != nil {
		return nil, err
	}

	kind := domain.CompletionKindProgress
	if next.IsCompletedToday(habit.Recurrence, now) && !before.IsCompletedToday(habit.Recurrence, now) {
		kind = domain.CompletionKindMark
	}
	s.logEvent(ctx, habit, kind, now)

	s.worker.Enqueue(habit.ID)

	return habit, nil
}

// Undo reverses a completion registered today. Undoing with nothing to undo
// is a no-op, mirroring the engine contract.
func (s *ProgressService) Undo(ctx context.Context, habitID, userID string, now time.Time) (*domain.Habit, error) {
	habit, err := s.loadOwned(ctx, habitID, userID)
	if err != nil {
		return nil, err
	}
	if habit.ArchivedAt != nil {
		return nil, domain.ErrHabitArchived
	}

	before := habit.Progress
	next := before.UndoCompletedToday(habit.Recurrence, now)

	if next.Equal(before) {
		return habit, nil
	}

	habit.Progress = next
	if err := s.habits.Update(ctx, habit); err != nil {
		return nil, err
	}

	s.logEvent(ctx, habit, domain.CompletionKindUndo, now)
	s.worker.Enqueue(habit.ID)

	return habit, nil
}

// Today returns the rollover-normalized view of one habit without persisting
// the normalization; the next write persists it anyway.
func (s *ProgressService) Today(ctx context.Context, habitID, userID string, now time.Time) (*TodayView, error) {
	habit, err := s.loadOwned(ctx, habitID, userID)
	if err != nil {
		return nil, err
	}

	st := habit.Progress.ResetProgressIfNeeded(habit.Recurrence, now)

	return &TodayView{
		HabitID:       habit.ID,
		Completed:     st.IsCompletedToday(habit.Recurrence, now),
		Active:        st.ShouldBeActiveToday(habit.Recurrence, now),
		Fraction:      st.Fraction(habit.Recurrence, now),
		Streak:        st.Streak,
		TodayProgress: st.TodayProgress,
		DailyTarget:   habit.Recurrence.DailyTarget,
		LongestStreak: habit.LongestStreak,
	}, nil
}

// History returns the completion log for a habit within a date range.
func (s *ProgressService) History(ctx context.Context, habitID, userID string, from, to time.Time) ([]*domain.CompletionEvent, error) {
	if _, err := s.loadOwned(ctx, habitID, userID); err != nil {
		return nil, err
	}
	return s.events.ListByHabitIDWithRange(ctx, habitID, from, to)
}

// logEvent appends to the audit log best-effort: the progress state is
// already persisted, so a log failure must not fail the user action.
func (s *ProgressService) logEvent(ctx context.Context, habit *domain.Habit, kind string, now time.Time) {
	event := domain.NewCompletionEvent(habit.ID, habit.UserID, kind, habit.Progress.TodayProgress, habit.Progress.Streak, now)
	if err := s.events.Create(ctx, event); err != nil {
		log.Printf("Failed to log %s event for habit %s: %v", kind, habit.ID, err)
	}
}
