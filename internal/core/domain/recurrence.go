package domain

import (
	"errors"
	"sort"
	"time"
)

var (
	ErrInvalidFrequency = errors.New("invalid frequency")
	ErrInvalidHabitType = errors.New("invalid habit type (must be simple or incremental)")
	ErrInvalidWeekdays  = errors.New("invalid scheduled days (must be 1-7, Monday=1)")
	ErrInvalidInterval  = errors.New("interval days cannot be negative")
	ErrInvalidTarget    = errors.New("daily target must be at least 1")
)

type Frequency string

const (
	FrequencyDaily         Frequency = "daily"
	FrequencyEveryOtherDay Frequency = "every_other_day"
	FrequencyThreePerWeek  Frequency = "three_per_week"
	FrequencyTwicePerWeek  Frequency = "twice_per_week"
	FrequencyOncePerWeek   Frequency = "once_per_week"
	FrequencyCustom        Frequency = "custom"
)

type HabitType string

const (
	HabitTypeSimple      HabitType = "simple"
	HabitTypeIncremental HabitType = "incremental"
)

// Recurrence is the cadence configuration of a habit. It is treated as
// immutable during a single engine evaluation.
type Recurrence struct {
	// ScheduledDays uses ISO weekday numbers (1=Monday .. 7=Sunday).
	// An empty set means the habit is scheduled every day.
	ScheduledDays []int     `json:"scheduled_days,omitempty"`
	Frequency     Frequency `json:"frequency"`

	// IntervalDays applies to FrequencyCustom only. Zero means no gap limit.
	IntervalDays int `json:"interval_days,omitempty"`

	HabitType   HabitType `json:"habit_type"`
	DailyTarget int       `json:"daily_target"`
}

func normalizeScheduledDays(days []int) []int {
	if len(days) == 0 {
		return nil
	}

	seen := make(map[int]bool)
	var unique []int
	for _, d := range days {
		if !seen[d] {
			seen[d] = true
			unique = append(unique, d)
		}
	}

	sort.Ints(unique)
	return unique
}

func (r *Recurrence) Validate() error {
	switch r.Frequency {
	case FrequencyDaily, FrequencyEveryOtherDay, FrequencyThreePerWeek,
		FrequencyTwicePerWeek, FrequencyOncePerWeek, FrequencyCustom:
	default:
		return ErrInvalidFrequency
	}

	switch r.HabitType {
	case HabitTypeSimple, HabitTypeIncremental:
	default:
		return ErrInvalidHabitType
	}

	for _, day := range r.ScheduledDays {
		if day < 1 || day > 7 {
			return ErrInvalidWeekdays
		}
	}

	if r.IntervalDays < 0 {
		return ErrInvalidInterval
	}

	if r.HabitType == HabitTypeIncremental && r.DailyTarget < 1 {
		return ErrInvalidTarget
	}

	return nil
}

// Normalize dedupes and sorts the scheduled days and pins the daily target
// of simple habits to 1, so every stored recurrence has one canonical form.
func (r *Recurrence) Normalize() {
	r.ScheduledDays = normalizeScheduledDays(r.ScheduledDays)
	if r.HabitType == HabitTypeSimple {
		r.DailyTarget = 1
	}
	if r.Frequency != FrequencyCustom {
		r.IntervalDays = 0
	}
}

// ScheduledOn reports whether the habit is scheduled on the weekday of t.
func (r Recurrence) ScheduledOn(t time.Time) bool {
	if len(r.ScheduledDays) == 0 {
		return true
	}

	day := isoWeekday(t)
	for _, d := range r.ScheduledDays {
		if d == day {
			return true
		}
	}
	return false
}

func isoWeekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		wd = 7
	}
	return wd
}

// maxAllowedGap is the largest number of days between two completions that
// still extends a streak. ok=false means the gap is unbounded.
func (r Recurrence) maxAllowedGap() (gap int, ok bool) {
	switch r.Frequency {
	case FrequencyDaily:
		return 1, true
	case FrequencyEveryOtherDay:
		return 2, true
	case FrequencyThreePerWeek:
		return 3, true
	case FrequencyTwicePerWeek:
		return 4, true
	case FrequencyOncePerWeek:
		return 7, true
	case FrequencyCustom:
		if r.IntervalDays <= 0 {
			return 0, false
		}
		return r.IntervalDays, true
	default:
		return 0, false
	}
}

// minTriggerGap is the smallest gap after which the habit shows as due
// again. It deliberately differs from maxAllowedGap for every-other-day and
// three-per-week habits: both become due after 2 days even though
// three-per-week tolerates a 3-day gap before the streak breaks.
func (r Recurrence) minTriggerGap() (gap int, ok bool) {
	switch r.Frequency {
	case FrequencyEveryOtherDay, FrequencyThreePerWeek:
		return 2, true
	case FrequencyTwicePerWeek:
		return 4, true
	case FrequencyOncePerWeek:
		return 7, true
	case FrequencyCustom:
		if r.IntervalDays <= 0 {
			return 0, false
		}
		return r.IntervalDays, true
	default:
		return 0, false
	}
}
