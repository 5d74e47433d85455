package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ritmoapp/progress-engine/internal/core/domain"
)

type PostgresCompletionRepository struct {
	db *sqlx.DB
}

func NewPostgresCompletionRepository(db *sqlx.DB) *PostgresCompletionRepository {
	return &PostgresCompletionRepository{db: db}
}

func (r *PostgresCompletionRepository) Create(ctx context.Context, event *domain.CompletionEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}

	query := `
		INSERT INTO completion_events (
			id, habit_id, user_id,
			kind, progress, streak,
			event_date, created_at
		) VALUES (
			:id, :habit_id, :user_id,
			:kind, :progress, :streak,
			:event_date, :created_at
		)`

	_, err := r.db.NamedExecContext(ctx, query, event)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Code == "23503" {
				return errors.New("referenced habit or user does not exist")
			}
			if pqErr.Code == "23505" {
				return errors.New("duplicate completion event id")
			}
		}
		return err
	}
	return nil
}

func (r *PostgresCompletionRepository) ListByHabitID(ctx context.Context, habitID string) ([]*domain.CompletionEvent, error) {
	events := []*domain.CompletionEvent{}

	query := `
		SELECT * FROM completion_events
		WHERE habit_id = $1
		ORDER BY event_date ASC`

	err := r.db.SelectContext(ctx, &events, query, habitID)
	if err != nil {
		return nil, err
	}
	return events, nil
}

func (r *PostgresCompletionRepository) ListByHabitIDWithRange(ctx context.Context, habitID string, from, to time.Time) ([]*domain.CompletionEvent, error) {
	events := []*domain.CompletionEvent{}

	query := `
		SELECT * FROM completion_events
		WHERE habit_id = $1
		  AND event_date >= $2
		  AND event_date <= $3
		ORDER BY event_date DESC`

	err := r.db.SelectContext(ctx, &events, query, habitID, from, to)
	if err != nil {
		return nil, err
	}
	return events, nil
}
