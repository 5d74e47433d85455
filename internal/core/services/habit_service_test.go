package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ritmoapp/progress-engine/internal/core/domain"
	"github.com/ritmoapp/progress-engine/internal/core/services"
	"github.com/stretchr/testify/assert"
)

// MockRepo is the in-memory HabitRepository shared by the service tests.
type MockRepo struct {
	store         map[string]*domain.Habit
	simulateError error
}

func NewMockRepo() *MockRepo {
	return &MockRepo{
		store: make(map[string]*domain.Habit),
	}
}

func (m *MockRepo) Create(ctx context.Context, habit *domain.Habit) error {
	if m.simulateError != nil {
		return m.simulateError
	}

	if _, exists := m.store[habit.ID]; exists {
		return errors.New("duplicate key value violates unique constraint")
	}

	clone := *habit
	m.store[habit.ID] = &clone
	return nil
}

func (m *MockRepo) GetByID(ctx context.Context, id string) (*domain.Habit, error) {
	if m.simulateError != nil {
		return nil, m.simulateError
	}
	h, ok := m.store[id]
	if !ok || h.DeletedAt != nil {
		return nil, domain.ErrHabitNotFound
	}
	clone := *h
	return &clone, nil
}

func (m *MockRepo) ListByUserID(ctx context.Context, userID string) ([]*domain.Habit, error) {
	if m.simulateError != nil {
		return nil, m.simulateError
	}
	var list []*domain.Habit
	for _, h := range m.store {
		if h.UserID == userID && h.DeletedAt == nil {
			clone := *h
			list = append(list, &clone)
		}
	}
	return list, nil
}

func (m *MockRepo) Update(ctx context.Context, habit *domain.Habit) error {
	if m.simulateError != nil {
		return m.simulateError
	}

	if _, ok := m.store[habit.ID]; !ok {
		return domain.ErrHabitNotFound
	}

	clone := *habit
	clone.Version++
	m.store[habit.ID] = &clone
	habit.Version = clone.Version
	return nil
}

func (m *MockRepo) Delete(ctx context.Context, id string) error {
	if m.simulateError != nil {
		return m.simulateError
	}
	h, ok := m.store[id]
	if !ok {
		return domain.ErrHabitNotFound
	}
	now := time.Now().UTC()
	h.DeletedAt = &now
	h.Version++
	h.UpdatedAt = now
	return nil
}

func (m *MockRepo) GetChanges(ctx context.Context, userID string, since time.Time) ([]*domain.Habit, error) {
	var changes []*domain.Habit
	for _, h := range m.store {
		if h.UserID == userID && h.UpdatedAt.After(since) {
			clone := *h
			changes = append(changes, &clone)
		}
	}
	return changes, nil
}

func (m *MockRepo) UpdateLongestStreak(ctx context.Context, id string, longest int) error {
	if m.simulateError != nil {
		return m.simulateError
	}
	h, ok := m.store[id]
	if !ok {
		return domain.ErrHabitNotFound
	}
	h.LongestStreak = longest
	h.UpdatedAt = time.Now().UTC()
	return nil
}

func intPtr(v int) *int { return &v }

func TestHabitService_Create(t *testing.T) {
	t.Run("creates and persists a valid habit", func(t *testing.T) {
		repo := NewMockRepo()
		svc := services.NewHabitService(repo)
		ctx := context.Background()

		input := services.CreateHabitInput{
			UserID: "user-1",
			Title:  "Read Book",
			Recurrence: domain.Recurrence{
				Frequency: domain.FrequencyDaily,
				HabitType: domain.HabitTypeSimple,
			},
		}

		created, err := svc.Create(ctx, input)

		assert.NoError(t, err)
		assert.NotNil(t, created)
		assert.Equal(t, "Read Book", created.Title)
		assert.Equal(t, 1, created.Version)
		assert.NotEmpty(t, created.ID)
		assert.Equal(t, 0, created.Progress.Streak)

		stored, _ := repo.GetByID(ctx, created.ID)
		assert.NotNil(t, stored)
		assert.Equal(t, created.ID, stored.ID)
	})

	t.Run("defaults empty recurrence to simple daily", func(t *testing.T) {
		repo := NewMockRepo()
		svc := services.NewHabitService(repo)

		created, err := svc.Create(context.Background(), services.CreateHabitInput{
			UserID: "user-1",
			Title:  "Walk",
		})

		assert.NoError(t, err)
		assert.Equal(t, domain.FrequencyDaily, created.Recurrence.Frequency)
		assert.Equal(t, domain.HabitTypeSimple, created.Recurrence.HabitType)
		assert.Equal(t, 1, created.Recurrence.DailyTarget)
	})

	t.Run("domain validation blocks persistence", func(t *testing.T) {
		repo := NewMockRepo()
		svc := services.NewHabitService(repo)

		_, err := svc.Create(context.Background(), services.CreateHabitInput{
			UserID: "user-1",
			Title:  "",
		})

		assert.ErrorIs(t, err, domain.ErrHabitTitleEmpty)
		assert.Empty(t, repo.store)
	})
}

func TestHabitService_Update(t *testing.T) {
	t.Run("updates metadata for the owner", func(t *testing.T) {
		repo := NewMockRepo()
		svc := services.NewHabitService(repo)

		created, _ := svc.Create(context.Background(), services.CreateHabitInput{
			UserID: "user-1", Title: "Old Title",
		})

		updated, err := svc.Update(context.Background(), services.UpdateHabitInput{
			ID:     created.ID,
			UserID: "user-1",
			Title:  "New Title",
			Color:  "#FFFFFF",
		})

		assert.NoError(t, err)
		assert.Equal(t, "New Title", updated.Title)
		assert.Equal(t, "#FFFFFF", updated.Color)
		assert.Equal(t, 2, updated.Version)
	})

	t.Run("replaces recurrence when provided", func(t *testing.T) {
		repo := NewMockRepo()
		svc := services.NewHabitService(repo)

		created, _ := svc.Create(context.Background(), services.CreateHabitInput{
			UserID: "user-1", Title: "Pushups",
		})

		rec := domain.Recurrence{
			Frequency:   domain.FrequencyThreePerWeek,
			HabitType:   domain.HabitTypeIncremental,
			DailyTarget: 20,
		}
		updated, err := svc.Update(context.Background(), services.UpdateHabitInput{
			ID:         created.ID,
			UserID:     "user-1",
			Recurrence: &rec,
			SortOrder:  intPtr(4),
		})

		assert.NoError(t, err)
		assert.Equal(t, domain.FrequencyThreePerWeek, updated.Recurrence.Frequency)
		assert.Equal(t, 20, updated.Recurrence.DailyTarget)
		assert.Equal(t, 4, updated.SortOrder)
	})

	t.Run("cannot update another user's habit", func(t *testing.T) {
		repo := NewMockRepo()
		svc := services.NewHabitService(repo)

		created, _ := svc.Create(context.Background(), services.CreateHabitInput{
			UserID: "user-1", Title: "Secret Habit",
		})

		_, err := svc.Update(context.Background(), services.UpdateHabitInput{
			ID:     created.ID,
			UserID: "user-2",
			Title:  "Hacked Title",
		})

		assert.ErrorIs(t, err, domain.ErrHabitNotFound)
	})

	t.Run("stale version is rejected", func(t *testing.T) {
		repo := NewMockRepo()
		svc := services.NewHabitService(repo)

		created, _ := svc.Create(context.Background(), services.CreateHabitInput{
			UserID: "user-1", Title: "V2 Habit",
		})

		_, err := svc.Update(context.Background(), services.UpdateHabitInput{
			ID: created.ID, UserID: "user-1", Title: "First edit",
		})
		assert.NoError(t, err)

		_, err = svc.Update(context.Background(), services.UpdateHabitInput{
			ID:      created.ID,
			UserID:  "user-1",
			Title:   "Override attempt",
			Version: 1,
		})

		assert.ErrorIs(t, err, domain.ErrHabitConflict)
	})
}

func TestHabitService_ArchiveRestoreDelete(t *testing.T) {
	t.Run("archive then restore round-trips", func(t *testing.T) {
		repo := NewMockRepo()
		svc := services.NewHabitService(repo)

		created, _ := svc.Create(context.Background(), services.CreateHabitInput{
			UserID: "user-1", Title: "Nap",
		})

		assert.NoError(t, svc.Archive(context.Background(), created.ID, "user-1"))
		stored, _ := repo.GetByID(context.Background(), created.ID)
		assert.NotNil(t, stored.ArchivedAt)

		assert.NoError(t, svc.Restore(context.Background(), created.ID, "user-1"))
		stored, _ = repo.GetByID(context.Background(), created.ID)
		assert.Nil(t, stored.ArchivedAt)
	})

	t.Run("delete soft-deletes for the owner only", func(t *testing.T) {
		repo := NewMockRepo()
		svc := services.NewHabitService(repo)

		created, _ := svc.Create(context.Background(), services.CreateHabitInput{
			UserID: "user-1", Title: "To Delete",
		})

		assert.ErrorIs(t, svc.Delete(context.Background(), created.ID, "user-2"), domain.ErrHabitNotFound)

		assert.NoError(t, svc.Delete(context.Background(), created.ID, "user-1"))
		_, err := repo.GetByID(context.Background(), created.ID)
		assert.ErrorIs(t, err, domain.ErrHabitNotFound)
	})
}

func TestHabitService_ListAndSync(t *testing.T) {
	repo := NewMockRepo()
	svc := services.NewHabitService(repo)
	ctx := context.Background()

	h1, _ := svc.Create(ctx, services.CreateHabitInput{UserID: "user-1", Title: "H1"})
	h2, _ := svc.Create(ctx, services.CreateHabitInput{UserID: "user-1", Title: "H2"})
	h3, _ := svc.Create(ctx, services.CreateHabitInput{UserID: "user-2", Title: "H3"})

	t.Run("list returns only the user's habits", func(t *testing.T) {
		list, err := svc.ListByUserID(ctx, "user-1")

		assert.NoError(t, err)
		assert.Len(t, list, 2)
		found := make(map[string]bool)
		for _, h := range list {
			found[h.ID] = true
		}
		assert.True(t, found[h1.ID])
		assert.True(t, found[h2.ID])
		assert.False(t, found[h3.ID])
	})

	t.Run("delta returns only items changed since last sync", func(t *testing.T) {
		lastSync := time.Now().UTC()

		_, err := svc.Update(ctx, services.UpdateHabitInput{
			ID: h2.ID, UserID: "user-1", Title: "H2 edited",
		})
		assert.NoError(t, err)

		stored := repo.store[h2.ID]
		stored.UpdatedAt = time.Now().UTC().Add(time.Minute)

		deltas, err := svc.GetDelta(ctx, "user-1", lastSync)

		assert.NoError(t, err)
		assert.Len(t, deltas, 1)
		assert.Equal(t, h2.ID, deltas[0].ID)
	})
}
