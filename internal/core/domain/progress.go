package domain

import "time"

// ProgressState is the per-habit completion state the engine transitions.
// All transitions are value semantics: the receiver is copied, the new state
// is returned, and the caller decides whether to persist it. No transition
// reads a clock; now is always supplied by the caller.
type ProgressState struct {
	// Streak counts consecutive valid completions under the habit's cadence.
	Streak int `json:"streak" db:"streak"`

	// LastCompletedDate is the instant of the most recent full completion.
	// Nil means "not completed as of now": either never completed, or
	// today's completion was undone.
	LastCompletedDate *time.Time `json:"last_completed_date,omitempty" db:"last_completed_date"`

	// WasCompletedToday stays true for the rest of the day even after an
	// undo, so a later re-completion restores the streak instead of being
	// treated as a fresh one.
	WasCompletedToday bool `json:"was_completed_today" db:"was_completed_today"`

	// TodayProgress counts sub-completions registered today. Incremental
	// habits only; simple habits keep it at zero.
	TodayProgress int `json:"today_progress" db:"today_progress"`
}

// MarkCompleted registers a full completion at now.
//
// A second call on the same calendar day is a no-op, so double-taps from the
// UI cannot inflate the streak. A completion following an undo earlier the
// same day restores the streak value the undo decremented.
func (s ProgressState) MarkCompleted(r Recurrence, now time.Time) ProgressState {
	switch {
	case s.LastCompletedDate == nil && s.WasCompletedToday:
		// Completed earlier today, undone, completing again.
		s.Streak++
		if s.Streak < 1 {
			s.Streak = 1
		}

	case s.LastCompletedDate != nil && sameCalendarDay(*s.LastCompletedDate, now):
		return s

	case s.LastCompletedDate != nil && daysBetween(*s.LastCompletedDate, now) == 1:
		s.Streak++

	case s.LastCompletedDate != nil:
		if s.IsCompletionValid(r, now) {
			s.Streak++
		} else {
			s.Streak = 1
		}

	default:
		// First completion ever.
		s.Streak = 1
	}

	completedAt := now
	s.LastCompletedDate = &completedAt
	s.WasCompletedToday = true
	return s
}

// IncrementProgress is the entry point for a user tap. Simple habits
// complete in one step; incremental habits accumulate sub-completions and
// complete when TodayProgress reaches the daily target.
func (s ProgressState) IncrementProgress(r Recurrence, now time.Time) ProgressState {
	if r.HabitType == HabitTypeSimple {
		if s.IsCompletedToday(r, now) {
			return s
		}
		return s.MarkCompleted(r, now)
	}

	// Guard against counting on top of stale prior-day progress. Only runs
	// from zero: stale non-zero progress is a known edge case awaiting a
	// product decision, and is deliberately not healed here.
	if s.TodayProgress == 0 {
		s = s.ResetProgressIfNeeded(r, now)
	}

	if s.TodayProgress >= r.DailyTarget {
		return s
	}

	alreadyCompleted := s.IsCompletedToday(r, now)
	s.TodayProgress++

	if s.TodayProgress == r.DailyTarget && !alreadyCompleted {
		s = s.MarkCompleted(r, now)
	}

	return s
}

// UndoCompletedToday reverses a completion registered today. Undoing when
// nothing was completed today is a no-op. The streak floors at zero.
func (s ProgressState) UndoCompletedToday(r Recurrence, now time.Time) ProgressState {
	if s.LastCompletedDate == nil || !sameCalendarDay(*s.LastCompletedDate, now) {
		return s
	}

	s.LastCompletedDate = nil
	s.WasCompletedToday = true
	if r.HabitType == HabitTypeIncremental {
		s.TodayProgress = 0
	}
	if s.Streak > 0 {
		s.Streak--
	}
	return s
}

// IsCompletedToday reports whether the habit counts as complete for the
// calendar day of now.
func (s ProgressState) IsCompletedToday(r Recurrence, now time.Time) bool {
	if r.HabitType == HabitTypeIncremental {
		return s.TodayProgress >= r.DailyTarget
	}
	return s.LastCompletedDate != nil && sameCalendarDay(*s.LastCompletedDate, now)
}

// IsCompletionValid reports whether a completion at now would extend the
// current streak rather than reset it, given the frequency's allowed gap.
func (s ProgressState) IsCompletionValid(r Recurrence, now time.Time) bool {
	if s.LastCompletedDate == nil {
		return true
	}

	maxGap, bounded := r.maxAllowedGap()
	if !bounded {
		return true
	}

	return daysBetween(*s.LastCompletedDate, now) <= maxGap
}

// ResetProgressIfNeeded normalizes the state on day rollover. Callers run it
// once per session before any operation that depends on "is today different
// from the day of the last recorded event".
//
// Note: when LastCompletedDate is nil, TodayProgress is left untouched even
// for incremental habits. A habit completed yesterday, undone, then never
// touched today can therefore retain stale progress under certain call
// orders; that behavior is intentional and pinned by tests.
func (s ProgressState) ResetProgressIfNeeded(r Recurrence, now time.Time) ProgressState {
	if s.LastCompletedDate == nil {
		s.WasCompletedToday = false
		return s
	}

	if !sameCalendarDay(*s.LastCompletedDate, now) {
		s.WasCompletedToday = false
		if r.HabitType == HabitTypeIncremental {
			s.TodayProgress = 0
		}
	}

	return s
}

// ShouldBeActiveToday reports whether the habit is due on the calendar day
// of now: scheduled on this weekday, and past the frequency's minimum gap
// since the last completion.
func (s ProgressState) ShouldBeActiveToday(r Recurrence, now time.Time) bool {
	if !r.ScheduledOn(now) {
		return false
	}

	if r.Frequency == FrequencyDaily {
		return true
	}

	if s.LastCompletedDate == nil {
		return true
	}

	minGap, bounded := r.minTriggerGap()
	if !bounded {
		return true
	}

	return daysBetween(*s.LastCompletedDate, now) >= minGap
}

// Fraction is the completion fraction for today, in [0, 1]. UI layers render
// it directly.
func (s ProgressState) Fraction(r Recurrence, now time.Time) float64 {
	if r.HabitType == HabitTypeIncremental {
		if r.DailyTarget <= 0 {
			return 0
		}
		f := float64(s.TodayProgress) / float64(r.DailyTarget)
		if f > 1 {
			return 1
		}
		return f
	}

	if s.IsCompletedToday(r, now) {
		return 1
	}
	return 0
}

// Equal compares two states field by field. The engine's pure-function shape
// lets callers distinguish "applied" from "no-op" by comparing pre and post
// state.
func (s ProgressState) Equal(other ProgressState) bool {
	if s.Streak != other.Streak ||
		s.WasCompletedToday != other.WasCompletedToday ||
		s.TodayProgress != other.TodayProgress {
		return false
	}

	if s.LastCompletedDate == nil || other.LastCompletedDate == nil {
		return s.LastCompletedDate == other.LastCompletedDate
	}
	return s.LastCompletedDate.Equal(*other.LastCompletedDate)
}

// calendarDay collapses t to its calendar day in the location of ref,
// anchored at UTC midnight so day arithmetic is immune to DST shifts.
func calendarDay(t time.Time, ref time.Time) time.Time {
	y, m, d := t.In(ref.Location()).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// daysBetween is the whole number of calendar days from from to to,
// evaluated in to's location. Negative when from is after to.
func daysBetween(from, to time.Time) int {
	a := calendarDay(from, to)
	b := calendarDay(to, to)
	return int(b.Sub(a) / (24 * time.Hour))
}

func sameCalendarDay(a, b time.Time) bool {
	return daysBetween(a, b) == 0
}
