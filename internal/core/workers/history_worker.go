package workers

import (
	"context"
	"log"
	"sort"
	"time"

	"github.com/ritmoapp/progress-engine/internal/core/domain"
)

type HabitRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Habit, error)
	UpdateLongestStreak(ctx context.Context, id string, longest int) error
}

type CompletionRepository interface {
	ListByHabitID(ctx context.Context, habitID string) ([]*domain.CompletionEvent, error)
}

type RecomputeJob struct {
	HabitID string
}

// HistoryWorker keeps the longest-streak figure in sync with the completion
// log. The live streak stays engine-owned; this only rewrites history-derived
// data, so a dropped job costs nothing but a delayed recompute.
type HistoryWorker struct {
	habitRepo  HabitRepository
	eventsRepo CompletionRepository
	jobs       chan RecomputeJob
}

func NewHistoryWorker(hRepo HabitRepository, eRepo CompletionRepository) *HistoryWorker {
	return &HistoryWorker{
		habitRepo:  hRepo,
		eventsRepo: eRepo,
		jobs:       make(chan RecomputeJob, 100),
	}
}

func (w *HistoryWorker) Start(ctx context.Context) {
	go func() {
		log.Println("History Worker started in background...")
		for {
			select {
			case job := <-w.jobs:
				w.processJob(ctx, job)
			case <-ctx.Done():
				log.Println("History Worker shutting down...")
				return
			}
		}
	}()
}

func (w *HistoryWorker) Enqueue(habitID string) {
	select {
	case w.jobs <- RecomputeJob{HabitID: habitID}:
	default:
		log.Printf("History Worker queue full! Dropping job for habit %s", habitID)
	}
}

func (w *HistoryWorker) processJob(ctx context.Context, job RecomputeJob) {
	habit, err := w.habitRepo.GetByID(ctx, job.HabitID)
	if err != nil {
		log.Printf("Worker error fetching habit %s: %v", job.HabitID, err)
		return
	}

	events, err := w.eventsRepo.ListByHabitID(ctx, job.HabitID)
	if err != nil {
		log.Printf("Worker error fetching events for %s: %v", job.HabitID, err)
		return
	}

	longest := LongestStreak(events)

	if habit.LongestStreak != longest {
		if err := w.habitRepo.UpdateLongestStreak(ctx, job.HabitID, longest); err != nil {
			log.Printf("Worker failed to update longest streak for %s: %v", job.HabitID, err)
		} else {
			log.Printf("Longest streak updated for %q: %d", habit.Title, longest)
		}
	}
}

// LongestStreak replays the event log in append order, building the set of
// days that ended up completed (a mark adds its day, an undo removes it),
// then measures the longest run of consecutive days.
func LongestStreak(events []*domain.CompletionEvent) int {
	completedDays := make(map[string]bool)

	for _, e := range events {
		key := e.EventDate.UTC().Format("2006-01-02")
		switch e.Kind {
		case domain.CompletionKindMark:
			completedDays[key] = true
		case domain.CompletionKindUndo:
			delete(completedDays, key)
		}
	}

	if len(completedDays) == 0 {
		return 0
	}

	days := make([]time.Time, 0, len(completedDays))
	for key := range completedDays {
		t, err := time.Parse("2006-01-02", key)
		if err != nil {
			continue
		}
		days = append(days, t)
	}

	sort.Slice(days, func(i, j int) bool {
		return days[i].Before(days[j])
	})

	longest := 1
	run := 1
	for i := 1; i < len(days); i++ {
		if days[i].Sub(days[i-1]) == 24*time.Hour {
			run++
			if run > longest {
				longest = run
			}
		} else {
			run = 1
		}
	}

	return longest
}
