package services_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ritmoapp/progress-engine/internal/core/domain"
	"github.com/ritmoapp/progress-engine/internal/core/services"
	"github.com/ritmoapp/progress-engine/internal/core/workers"
	"github.com/stretchr/testify/assert"
)

var now = time.Date(2026, 8, 30, 10, 0, 0, 0, time.Local)

type MockEventRepo struct {
	mu     sync.Mutex
	events []*domain.CompletionEvent
}

func (m *MockEventRepo) Create(ctx context.Context, event *domain.CompletionEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

func (m *MockEventRepo) ListByHabitID(ctx context.Context, habitID string) ([]*domain.CompletionEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.CompletionEvent
	for _, e := range m.events {
		if e.HabitID == habitID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *MockEventRepo) ListByHabitIDWithRange(ctx context.Context, habitID string, from, to time.Time) ([]*domain.CompletionEvent, error) {
	all, _ := m.ListByHabitID(ctx, habitID)
	var out []*domain.CompletionEvent
	for _, e := range all {
		if !e.EventDate.Before(from) && !e.EventDate.After(to) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *MockEventRepo) kinds() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, e := range m.events {
		out = append(out, e.Kind)
	}
	return out
}

func newProgressService(habits *MockRepo, events *MockEventRepo) *services.ProgressService {
	worker := workers.NewHistoryWorker(habits, events)
	return services.NewProgressService(habits, events, worker)
}

func seedHabit(t *testing.T, repo *MockRepo, rec domain.Recurrence) *domain.Habit {
	t.Helper()
	habit, err := domain.NewHabit("user-1", "Stretch", "", "", "", "", rec)
	assert.NoError(t, err)
	assert.NoError(t, repo.Create(context.Background(), habit))
	return habit
}

func simpleRec() domain.Recurrence {
	return domain.Recurrence{Frequency: domain.FrequencyDaily, HabitType: domain.HabitTypeSimple, DailyTarget: 1}
}

func incrementalRec(target int) domain.Recurrence {
	return domain.Recurrence{Frequency: domain.FrequencyDaily, HabitType: domain.HabitTypeIncremental, DailyTarget: target}
}

func TestProgressService_Increment(t *testing.T) {
	t.Run("simple habit completes and logs a mark event", func(t *testing.T) {
		repo := NewMockRepo()
		events := &MockEventRepo{}
		svc := newProgressService(repo, events)
		habit := seedHabit(t, repo, simpleRec())

		updated, err := svc.Increment(context.Background(), habit.ID, "user-1", now)

		assert.NoError(t, err)
		assert.Equal(t, 1, updated.Progress.Streak)
		assert.True(t, updated.Progress.IsCompletedToday(updated.Recurrence, now))
		assert.Equal(t, []string{domain.CompletionKindMark}, events.kinds())

		stored, _ := repo.GetByID(context.Background(), habit.ID)
		assert.Equal(t, 1, stored.Progress.Streak)
	})

	t.Run("incremental habit logs progress then mark", func(t *testing.T) {
		repo := NewMockRepo()
		events := &MockEventRepo{}
		svc := newProgressService(repo, events)
		habit := seedHabit(t, repo, incrementalRec(2))

		_, err := svc.Increment(context.Background(), habit.ID, "user-1", now)
		assert.NoError(t, err)

		updated, err := svc.Increment(context.Background(), habit.ID, "user-1", now)
		assert.NoError(t, err)

		assert.Equal(t, 2, updated.Progress.TodayProgress)
		assert.Equal(t, 1, updated.Progress.Streak)
		assert.Equal(t, []string{domain.CompletionKindProgress, domain.CompletionKindMark}, events.kinds())
	})

	t.Run("redundant tap is a no-op and logs nothing", func(t *testing.T) {
		repo := NewMockRepo()
		events := &MockEventRepo{}
		svc := newProgressService(repo, events)
		habit := seedHabit(t, repo, simpleRec())

		first, err := svc.Increment(context.Background(), habit.ID, "user-1", now)
		assert.NoError(t, err)

		second, err := svc.Increment(context.Background(), habit.ID, "user-1", now.Add(time.Hour))
		assert.NoError(t, err)

		assert.True(t, second.Progress.Equal(first.Progress))
		assert.Len(t, events.kinds(), 1)
	})

	t.Run("stale prior-day progress is cleared before counting", func(t *testing.T) {
		repo := NewMockRepo()
		events := &MockEventRepo{}
		svc := newProgressService(repo, events)
		habit := seedHabit(t, repo, incrementalRec(3))

		yesterday := now.AddDate(0, 0, -1)
		for i := 0; i < 3; i++ {
			_, err := svc.Increment(context.Background(), habit.ID, "user-1", yesterday)
			assert.NoError(t, err)
		}

		updated, err := svc.Increment(context.Background(), habit.ID, "user-1", now)

		assert.NoError(t, err)
		assert.Equal(t, 1, updated.Progress.TodayProgress)
		assert.False(t, updated.Progress.IsCompletedToday(updated.Recurrence, now))
	})

	t.Run("rejects foreign user", func(t *testing.T) {
		repo := NewMockRepo()
		svc := newProgressService(repo, &MockEventRepo{})
		habit := seedHabit(t, repo, simpleRec())

		_, err := svc.Increment(context.Background(), habit.ID, "user-2", now)

		assert.ErrorIs(t, err, domain.ErrHabitNotFound)
	})

	t.Run("rejects archived habit", func(t *testing.T) {
		repo := NewMockRepo()
		svc := newProgressService(repo, &MockEventRepo{})
		habit := seedHabit(t, repo, simpleRec())

		stored, _ := repo.GetByID(context.Background(), habit.ID)
		stored.Archive()
		assert.NoError(t, repo.Update(context.Background(), stored))

		_, err := svc.Increment(context.Background(), habit.ID, "user-1", now)

		assert.ErrorIs(t, err, domain.ErrHabitArchived)
	})
}

func TestProgressService_Undo(t *testing.T) {
	t.Run("undo reverses a completion and logs it", func(t *testing.T) {
		repo := NewMockRepo()
		events := &MockEventRepo{}
		svc := newProgressService(repo, events)
		habit := seedHabit(t, repo, simpleRec())

		_, err := svc.Increment(context.Background(), habit.ID, "user-1", now)
		assert.NoError(t, err)

		undone, err := svc.Undo(context.Background(), habit.ID, "user-1", now)

		assert.NoError(t, err)
		assert.Nil(t, undone.Progress.LastCompletedDate)
		assert.Equal(t, 0, undone.Progress.Streak)
		assert.Equal(t, []string{domain.CompletionKindMark, domain.CompletionKindUndo}, events.kinds())
	})

	t.Run("undo then redo restores the streak", func(t *testing.T) {
		repo := NewMockRepo()
		events := &MockEventRepo{}
		svc := newProgressService(repo, events)
		habit := seedHabit(t, repo, simpleRec())

		stored, _ := repo.GetByID(context.Background(), habit.ID)
		yesterday := now.AddDate(0, 0, -1)
		stored.Progress = domain.ProgressState{Streak: 5, LastCompletedDate: &yesterday}
		assert.NoError(t, repo.Update(context.Background(), stored))

		completed, err := svc.Increment(context.Background(), habit.ID, "user-1", now)
		assert.NoError(t, err)
		assert.Equal(t, 6, completed.Progress.Streak)

		undone, err := svc.Undo(context.Background(), habit.ID, "user-1", now)
		assert.NoError(t, err)
		assert.Equal(t, 5, undone.Progress.Streak)

		redone, err := svc.Increment(context.Background(), habit.ID, "user-1", now)
		assert.NoError(t, err)
		assert.Equal(t, 6, redone.Progress.Streak)
	})

	t.Run("undo with nothing to undo is a silent no-op", func(t *testing.T) {
		repo := NewMockRepo()
		events := &MockEventRepo{}
		svc := newProgressService(repo, events)
		habit := seedHabit(t, repo, simpleRec())

		undone, err := svc.Undo(context.Background(), habit.ID, "user-1", now)

		assert.NoError(t, err)
		assert.Equal(t, 0, undone.Progress.Streak)
		assert.Empty(t, events.kinds())
	})
}

func TestProgressService_Today(t *testing.T) {
	t.Run("reports normalized state without persisting it", func(t *testing.T) {
		repo := NewMockRepo()
		svc := newProgressService(repo, &MockEventRepo{})
		habit := seedHabit(t, repo, incrementalRec(4))

		yesterday := now.AddDate(0, 0, -1)
		stored, _ := repo.GetByID(context.Background(), habit.ID)
		stored.Progress = domain.ProgressState{
			Streak:            3,
			LastCompletedDate: &yesterday,
			WasCompletedToday: true,
			TodayProgress:     4,
		}
		assert.NoError(t, repo.Update(context.Background(), stored))

		view, err := svc.Today(context.Background(), habit.ID, "user-1", now)

		assert.NoError(t, err)
		assert.False(t, view.Completed)
		assert.True(t, view.Active)
		assert.InDelta(t, 0.0, view.Fraction, 1e-9)
		assert.Equal(t, 3, view.Streak)
		assert.Equal(t, 0, view.TodayProgress)
		assert.Equal(t, 4, view.DailyTarget)

		// Normalization is read-only; the stored row still has yesterday's
		// progress until the next write.
		after, _ := repo.GetByID(context.Background(), habit.ID)
		assert.Equal(t, 4, after.Progress.TodayProgress)
	})

	t.Run("completed today reads as done", func(t *testing.T) {
		repo := NewMockRepo()
		svc := newProgressService(repo, &MockEventRepo{})
		habit := seedHabit(t, repo, simpleRec())

		_, err := svc.Increment(context.Background(), habit.ID, "user-1", now)
		assert.NoError(t, err)

		view, err := svc.Today(context.Background(), habit.ID, "user-1", now)

		assert.NoError(t, err)
		assert.True(t, view.Completed)
		assert.InDelta(t, 1.0, view.Fraction, 1e-9)
		assert.Equal(t, 1, view.Streak)
	})
}

func TestProgressService_History(t *testing.T) {
	repo := NewMockRepo()
	events := &MockEventRepo{}
	svc := newProgressService(repo, events)
	habit := seedHabit(t, repo, simpleRec())

	_, err := svc.Increment(context.Background(), habit.ID, "user-1", now)
	assert.NoError(t, err)

	t.Run("owner sees the log", func(t *testing.T) {
		list, err := svc.History(context.Background(), habit.ID, "user-1", now.AddDate(0, 0, -7), now.AddDate(0, 0, 1))
		assert.NoError(t, err)
		assert.Len(t, list, 1)
	})

	t.Run("foreign user is rejected", func(t *testing.T) {
		_, err := svc.History(context.Background(), habit.ID, "user-2", now.AddDate(0, 0, -7), now)
		assert.ErrorIs(t, err, domain.ErrHabitNotFound)
	})
}
