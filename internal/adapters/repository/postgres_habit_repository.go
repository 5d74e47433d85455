package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/ritmoapp/progress-engine/internal/core/domain"

	_ "github.com/jackc/pgx/v5/stdlib"
)

type PostgresHabitRepository struct {
	db *sqlx.DB
}

func NewPostgresHabitRepository(db *sqlx.DB) *PostgresHabitRepository {
	return &PostgresHabitRepository{db: db}
}

type scannable interface {
	Scan(dest ...interface{}) error
}

const habitColumns = `
	id, user_id, title, description, color, icon, sort_order, reminder_time,
	frequency, scheduled_days, interval_days, habit_type, daily_target,
	streak, last_completed_date, was_completed_today, today_progress,
	longest_streak, version, created_at, updated_at, archived_at, deleted_at`

func (r *PostgresHabitRepository) scanRow(row scannable) (*domain.Habit, error) {
	var h domain.Habit
	var scheduledDaysJSON []byte

	err := row.Scan(
		&h.ID, &h.UserID, &h.Title, &h.Description, &h.Color, &h.Icon, &h.SortOrder, &h.ReminderTime,
		&h.Recurrence.Frequency, &scheduledDaysJSON, &h.Recurrence.IntervalDays,
		&h.Recurrence.HabitType, &h.Recurrence.DailyTarget,
		&h.Progress.Streak, &h.Progress.LastCompletedDate, &h.Progress.WasCompletedToday, &h.Progress.TodayProgress,
		&h.LongestStreak, &h.Version, &h.CreatedAt, &h.UpdatedAt, &h.ArchivedAt, &h.DeletedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(scheduledDaysJSON) > 0 {
		if err := json.Unmarshal(scheduledDaysJSON, &h.Recurrence.ScheduledDays); err != nil {
			return nil, fmt.Errorf("failed to unmarshal scheduled days: %w", err)
		}
	}

	return &h, nil
}

func (r *PostgresHabitRepository) Create(ctx context.Context, h *domain.Habit) error {
	scheduledDaysJSON, err := json.Marshal(h.Recurrence.ScheduledDays)
	if err != nil {
		return fmt.Errorf("failed to marshal scheduled days: %w", err)
	}

	query := `
        INSERT INTO habits (
            id, user_id, title, description, color, icon, sort_order, reminder_time,
            frequency, scheduled_days, interval_days, habit_type, daily_target,
            streak, last_completed_date, was_completed_today, today_progress,
            longest_streak, version, created_at, updated_at, archived_at, deleted_at
        ) VALUES (
            $1, $2, $3, $4, $5, $6, $7, $8,
            $9, $10, $11, $12, $13,
            $14, $15, $16, $17,
            $18, 1, $19, $20, $21, NULL
        )`

	_, err = r.db.ExecContext(ctx, query,
		h.ID, h.UserID, h.Title, h.Description, h.Color, h.Icon, h.SortOrder, h.ReminderTime,
		h.Recurrence.Frequency, scheduledDaysJSON, h.Recurrence.IntervalDays,
		h.Recurrence.HabitType, h.Recurrence.DailyTarget,
		h.Progress.Streak, h.Progress.LastCompletedDate, h.Progress.WasCompletedToday, h.Progress.TodayProgress,
		h.LongestStreak, h.CreatedAt, h.UpdatedAt, h.ArchivedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to insert habit: %w", err)
	}

	h.Version = 1
	return nil
}

func (r *PostgresHabitRepository) GetByID(ctx context.Context, id string) (*domain.Habit, error) {
	query := `SELECT ` + habitColumns + ` FROM habits WHERE id = $1 AND deleted_at IS NULL`

	row := r.db.QueryRowContext(ctx, query, id)

	h, err := r.scanRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrHabitNotFound
		}
		return nil, fmt.Errorf("database scan error: %w", err)
	}

	return h, nil
}

func (r *PostgresHabitRepository) ListByUserID(ctx context.Context, userID string) ([]*domain.Habit, error) {
	query := `
        SELECT ` + habitColumns + ` FROM habits
        WHERE user_id = $1 AND deleted_at IS NULL
        ORDER BY sort_order ASC, created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}
	defer rows.Close()

	var habits []*domain.Habit

	for rows.Next() {
		h, err := r.scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("row scan error: %w", err)
		}
		habits = append(habits, h)
	}

	return habits, nil
}

func (r *PostgresHabitRepository) Update(ctx context.Context, h *domain.Habit) error {
	scheduledDaysJSON, err := json.Marshal(h.Recurrence.ScheduledDays)
	if err != nil {
		return err
	}

	query := `
        UPDATE habits SET
            title=$1, description=$2, color=$3, icon=$4, sort_order=$5, reminder_time=$6,
            frequency=$7, scheduled_days=$8, interval_days=$9, habit_type=$10, daily_target=$11,
            streak=$12, last_completed_date=$13, was_completed_today=$14, today_progress=$15,
            archived_at=$16,
            updated_at=NOW(), version = version + 1
        WHERE id=$17 AND version=$18 AND deleted_at IS NULL
        RETURNING version, updated_at`

	row := r.db.QueryRowContext(ctx, query,
		h.Title, h.Description, h.Color, h.Icon, h.SortOrder, h.ReminderTime,
		h.Recurrence.Frequency, scheduledDaysJSON, h.Recurrence.IntervalDays,
		h.Recurrence.HabitType, h.Recurrence.DailyTarget,
		h.Progress.Streak, h.Progress.LastCompletedDate, h.Progress.WasCompletedToday, h.Progress.TodayProgress,
		h.ArchivedAt,
		h.ID, h.Version,
	)

	var newVersion int
	var newUpdatedAt time.Time

	err = row.Scan(&newVersion, &newUpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			existsQuery := `SELECT count(*) FROM habits WHERE id = $1`
			var count int
			if checkErr := r.db.QueryRowContext(ctx, existsQuery, h.ID).Scan(&count); checkErr != nil {
				return fmt.Errorf("existence check failed: %w", checkErr)
			}

			if count == 0 {
				return domain.ErrHabitNotFound
			}
			return domain.ErrHabitConflict
		}
		return fmt.Errorf("update query failed: %w", err)
	}

	h.Version = newVersion
	h.UpdatedAt = newUpdatedAt

	return nil
}

func (r *PostgresHabitRepository) Delete(ctx context.Context, id string) error {
	query := `
        UPDATE habits
        SET deleted_at = NOW(), updated_at = NOW(), version = version + 1
        WHERE id = $1 AND deleted_at IS NULL`

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete query failed: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrHabitNotFound
	}

	return nil
}

func (r *PostgresHabitRepository) GetChanges(ctx context.Context, userID string, since time.Time) ([]*domain.Habit, error) {
	query := `
        SELECT ` + habitColumns + ` FROM habits
        WHERE user_id = $1 AND updated_at > $2
        ORDER BY updated_at ASC`

	rows, err := r.db.QueryContext(ctx, query, userID, since)
	if err != nil {
		return nil, fmt.Errorf("sync query error: %w", err)
	}
	defer rows.Close()

	var habits []*domain.Habit

	for rows.Next() {
		h, err := r.scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("sync row scan error: %w", err)
		}
		habits = append(habits, h)
	}

	return habits, nil
}

func (r *PostgresHabitRepository) UpdateLongestStreak(ctx context.Context, id string, longest int) error {
	query := `
        UPDATE habits
        SET longest_streak = $1, updated_at = NOW(), version = version + 1
        WHERE id = $2 AND deleted_at IS NULL`

	res, err := r.db.ExecContext(ctx, query, longest, id)
	if err != nil {
		return fmt.Errorf("longest streak update failed: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrHabitNotFound
	}

	return nil
}
