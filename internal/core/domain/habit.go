package domain

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrHabitTitleEmpty    = errors.New("habit title cannot be empty")
	ErrHabitTitleTooLong  = errors.New("habit title is too long (max 100 chars)")
	ErrHabitDescTooLong   = errors.New("habit description is too long (max 500 chars)")
	ErrHabitInvalidUserID = errors.New("invalid user id")
	ErrInvalidColor       = errors.New("invalid color format (must be #RRGGBB)")
	ErrInvalidReminder    = errors.New("invalid reminder format (must be HH:MM 24h)")
	ErrHabitArchived      = errors.New("cannot modify an archived habit")
	ErrHabitNotFound      = errors.New("habit not found")
	ErrHabitConflict      = errors.New("habit version conflict")
)

var colorRegex = regexp.MustCompile(`^#([A-Fa-f0-9]{6}|[A-Fa-f0-9]{3})$`)
var reminderRegex = regexp.MustCompile(`^([0-1][0-9]|2[0-3]):[0-5][0-9]$`)

const (
	DefaultIcon = "default_icon"
	MaxTitleLen = 100
	MaxDescLen  = 500
)

// Habit is the aggregate the service layer loads, transitions and persists.
// The engine itself only ever sees the Recurrence and Progress parts.
type Habit struct {
	ID           string  `json:"id"`
	UserID       string  `json:"user_id"`
	Title        string  `json:"title"`
	Description  string  `json:"description,omitempty"`
	Color        string  `json:"color"`
	Icon         string  `json:"icon"`
	SortOrder    int     `json:"sort_order"`
	ReminderTime *string `json:"reminder_time,omitempty"`

	Recurrence Recurrence    `json:"recurrence"`
	Progress   ProgressState `json:"progress"`

	// LongestStreak is recomputed asynchronously from the completion log;
	// the engine never writes it.
	LongestStreak int `json:"longest_streak"`

	Version    int        `json:"version"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	ArchivedAt *time.Time `json:"archived_at,omitempty"`
	DeletedAt  *time.Time `json:"deleted_at,omitempty"`
}

func validateMetadata(title, desc, color, reminder string) error {
	trimmed := strings.TrimSpace(title)
	if trimmed == "" {
		return ErrHabitTitleEmpty
	}
	if len(trimmed) > MaxTitleLen {
		return ErrHabitTitleTooLong
	}

	if len(strings.TrimSpace(desc)) > MaxDescLen {
		return ErrHabitDescTooLong
	}

	if color != "" && !colorRegex.MatchString(color) {
		return ErrInvalidColor
	}

	if reminder != "" && !reminderRegex.MatchString(reminder) {
		return ErrInvalidReminder
	}

	return nil
}

func NewHabit(userID, title, description, color, icon, reminder string, rec Recurrence) (*Habit, error) {
	if userID == "" {
		return nil, ErrHabitInvalidUserID
	}

	cleanDesc := strings.TrimSpace(description)

	if err := validateMetadata(title, cleanDesc, color, reminder); err != nil {
		return nil, err
	}

	if err := rec.Validate(); err != nil {
		return nil, err
	}
	rec.Normalize()

	if icon == "" {
		icon = DefaultIcon
	}

	var remPtr *string
	if reminder != "" {
		remPtr = &reminder
	}

	now := time.Now().UTC()

	return &Habit{
		ID:           uuid.New().String(),
		UserID:       userID,
		Title:        strings.TrimSpace(title),
		Description:  cleanDesc,
		Color:        color,
		Icon:         icon,
		ReminderTime: remPtr,
		Recurrence:   rec,
		Progress:     ProgressState{},
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func (h *Habit) Update(title, description, color, icon, reminder string, rec Recurrence) error {
	if h.ArchivedAt != nil {
		return ErrHabitArchived
	}

	cleanDesc := strings.TrimSpace(description)

	if err := validateMetadata(title, cleanDesc, color, reminder); err != nil {
		return err
	}

	if err := rec.Validate(); err != nil {
		return err
	}
	rec.Normalize()

	if icon == "" {
		icon = DefaultIcon
	}

	var remPtr *string
	if reminder != "" {
		remPtr = &reminder
	}

	h.Title = strings.TrimSpace(title)
	h.Description = cleanDesc
	h.Color = color
	h.Icon = icon
	h.ReminderTime = remPtr
	h.Recurrence = rec
	h.UpdatedAt = time.Now().UTC()

	return nil
}

func (h *Habit) ChangePosition(newOrder int) error {
	if h.ArchivedAt != nil {
		return ErrHabitArchived
	}

	h.SortOrder = newOrder
	h.UpdatedAt = time.Now().UTC()
	return nil
}

func (h *Habit) Archive() {
	if h.ArchivedAt != nil {
		return
	}

	now := time.Now().UTC()
	h.ArchivedAt = &now
	h.UpdatedAt = now
}

func (h *Habit) Restore() {
	if h.ArchivedAt == nil {
		return
	}
	h.ArchivedAt = nil
	h.UpdatedAt = time.Now().UTC()
}
