package services

import (
	"context"
	"fmt"
	"time"

	"github.com/ritmoapp/progress-engine/internal/core/domain"
)

type HabitService struct {
	repo domain.HabitRepository
}

func NewHabitService(repo domain.HabitRepository) *HabitService {
	return &HabitService{
		repo: repo,
	}
}

type CreateHabitInput struct {
	UserID       string
	Title        string
	Description  string
	Color        string
	Icon         string
	ReminderTime string
	Recurrence   domain.Recurrence
}

type UpdateHabitInput struct {
	ID           string
	UserID       string
	Title        string
	Description  string
	Color        string
	Icon         string
	ReminderTime string
	Recurrence   *domain.Recurrence
	SortOrder    *int
	Version      int
}

func mergeString(newVal, oldVal string) string {
	if newVal == "" {
		return oldVal
	}
	return newVal
}

func (s *HabitService) Create(ctx context.Context, input CreateHabitInput) (*domain.Habit, error) {
	rec := input.Recurrence
	if rec.Frequency == "" {
		rec.Frequency = domain.FrequencyDaily
	}
	if rec.HabitType == "" {
		rec.HabitType = domain.HabitTypeSimple
	}
	if rec.HabitType == domain.HabitTypeIncremental && rec.DailyTarget < 1 {
		rec.DailyTarget = 1
	}

	habit, err := domain.NewHabit(
		input.UserID,
		input.Title,
		input.Description,
		input.Color,
		input.Icon,
		input.ReminderTime,
		rec,
	)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, habit); err != nil {
		return nil, err
	}

	return habit, nil
}

func (s *HabitService) GetByID(ctx context.Context, id, userID string) (*domain.Habit, error) {
	habit, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if habit.UserID != userID {
		return nil, domain.ErrHabitNotFound
	}
	return habit, nil
}

func (s *HabitService) ListByUserID(ctx context.Context, userID string) ([]*domain.Habit, error) {
	return s.repo.ListByUserID(ctx, userID)
}

func (s *HabitService) GetDelta(ctx context.Context, userID string, lastSync time.Time) ([]*domain.Habit, error) {
	return s.repo.GetChanges(ctx, userID, lastSync)
}

func (s *HabitService) Update(ctx context.Context, input UpdateHabitInput) (*domain.Habit, error) {
	habit, err := s.GetByID(ctx, input.ID, input.UserID)
	if err != nil {
		return nil, err
	}

	if input.Version > 0 && habit.Version != input.Version {
		return nil, fmt.Errorf("%w: client v%d vs server v%d", domain.ErrHabitConflict, input.Version, habit.Version)
	}

	title := mergeString(input.Title, habit.Title)
	desc := mergeString(input.Description, habit.Description)
	color := mergeString(input.Color, habit.Color)
	icon := mergeString(input.Icon, habit.Icon)

	reminder := input.ReminderTime
	if reminder == "" && habit.ReminderTime != nil {
		reminder = *habit.ReminderTime
	}

	rec := habit.Recurrence
	if input.Recurrence != nil {
		rec = *input.Recurrence
	}

	if err := habit.Update(title, desc, color, icon, reminder, rec); err != nil {
		return nil, err
	}

	if input.SortOrder != nil {
		if err := habit.ChangePosition(*input.SortOrder); err != nil {
			return nil, err
		}
	}

	if err := s.repo.Update(ctx, habit); err != nil {
		return nil, err
	}

	return habit, nil
}

func (s *HabitService) Archive(ctx context.Context, id, userID string) error {
	habit, err := s.GetByID(ctx, id, userID)
	if err != nil {
		return err
	}

	habit.Archive()
	return s.repo.Update(ctx, habit)
}

func (s *HabitService) Restore(ctx context.Context, id, userID string) error {
	habit, err := s.GetByID(ctx, id, userID)
	if err != nil {
		return err
	}

	habit.Restore()
	return s.repo.Update(ctx, habit)
}

func (s *HabitService) Delete(ctx context.Context, id string, userID string) error {
	if _, err := s.GetByID(ctx, id, userID); err != nil {
		return err
	}

	return s.repo.Delete(ctx, id)
}
