// Package activity tracks per-user dump counts, streaks and achievements.
// Writes are a best-effort side channel: they never fail the request that triggered them.
package activity

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/thebtf/braindump/pkg/models"
)

// Store is the persistence the tracker needs.
type Store interface {
	// GetUserStats returns the stats row, creating it with zeros on first access.
	GetUserStats(ctx context.Context, userID string) (*models.UserStats, error)
	IncrementDailyActivity(ctx context.Context, userID string, day time.Time) error
	ListDailyActivity(ctx context.Context, userID string, from, to time.Time) ([]models.DailyActivity, error)
	// UpdateStreak recomputes current and longest streak from the activity history.
	UpdateStreak(ctx context.Context, userID string, today time.Time) (*models.UserStats, error)
	// AddTotalDumps and AddTasksCompleted never take a counter below zero.
	AddTotalDumps(ctx context.Context, userID string, delta int) (*models.UserStats, error)
	AddTasksCompleted(ctx context.Context, userID string, delta int) (*models.UserStats, error)
	// UnlockAchievement is a no-op when already unlocked.
	UnlockAchievement(ctx context.Context, userID string, t models.AchievementType, at time.Time) error
	ListAchievements(ctx context.Context, userID string) ([]models.UnlockedAchievement, error)
}

// Outcome reports how a tracking call went. It is never returned as an error.
type Outcome struct {
	Err       error
	Op        string
	UserID    string
	Earned    []models.AchievementType
	Skipped   bool
	Succeeded bool
}

// OK reports whether the call completed without failure.
func (o Outcome) OK() bool { return o.Err == nil }

// Tracker records activity side effects.
type Tracker struct {
	store    Store
	now      func() time.Time
	failures metric.Int64Counter
}

// NewTracker creates a Tracker.
func NewTracker(store Store) *Tracker {
	failures, err := otel.Meter("github.com/thebtf/braindump/internal/activity").Int64Counter(
		"braindump.activity.failures",
		metric.WithDescription("Activity tracking calls that failed"),
	)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to create activity failure counter")
	}
	return &Tracker{store: store, now: time.Now, failures: failures}
}

// SetClock overrides the time source.
func (t *Tracker) SetClock(now func() time.Time) { t.now = now }

// RecordNoteCreated counts today's dump, refreshes the streak, increments total
// dumps and unlocks earned achievements.
func (t *Tracker) RecordNoteCreated(ctx context.Context, userID string) Outcome {
	return t.run(ctx, "note_created", userID, func(o *Outcome) error {
		now := t.now()
		if err := t.store.IncrementDailyActivity(ctx, userID, models.Day(now)); err != nil {
			return fmt.Errorf("increment daily activity: %w", err)
		}
		if _, err := t.store.UpdateStreak(ctx, userID, now); err != nil {
			return fmt.Errorf("update streak: %w", err)
		}
		stats, err := t.store.AddTotalDumps(ctx, userID, 1)
		if err != nil {
			return fmt.Errorf("add total dumps: %w", err)
		}
		return t.unlock(ctx, o, stats, now)
	})
}

// RecordTaskCompleted increments tasks completed and unlocks earned achievements.
func (t *Tracker) RecordTaskCompleted(ctx context.Context, userID string) Outcome {
	return t.run(ctx, "task_completed", userID, func(o *Outcome) error {
		stats, err := t.store.AddTasksCompleted(ctx, userID, 1)
		if err != nil {
			return fmt.Errorf("add tasks completed: %w", err)
		}
		return t.unlock(ctx, o, stats, t.now())
	})
}

// RecordTaskUncompleted decrements tasks completed, floored at zero.
func (t *Tracker) RecordTaskUncompleted(ctx context.Context, userID string) Outcome {
	return t.run(ctx, "task_uncompleted", userID, func(o *Outcome) error {
		if _, err := t.store.AddTasksCompleted(ctx, userID, -1); err != nil {
			return fmt.Errorf("subtract tasks completed: %w", err)
		}
		return nil
	})
}

func (t *Tracker) run(ctx context.Context, op, userID string, fn func(*Outcome) error) (out Outcome) {
	out = Outcome{Op: op, UserID: userID}
	if strings.TrimSpace(userID) == "" {
		out.Skipped = true
		return out
	}

	defer func() {
		if rec := recover(); rec != nil {
			out.Err = fmt.Errorf("panic: %v", rec)
			t.fail(ctx, out)
		}
	}()

	if err := fn(&out); err != nil {
		out.Err = err
		t.fail(ctx, out)
		return out
	}
	out.Succeeded = true
	return out
}

func (t *Tracker) fail(ctx context.Context, o Outcome) {
	log.Warn().Err(o.Err).Str("op", o.Op).Str("user_id", o.UserID).Msg("Activity tracking failed")
	if t.failures != nil {
		t.failures.Add(ctx, 1, metric.WithAttributes(attribute.String("op", o.Op)))
	}
}

func (t *Tracker) unlock(ctx context.Context, o *Outcome, stats *models.UserStats, at time.Time) error {
	if stats == nil {
		return nil
	}
	for _, a := range models.EarnedAchievements(*stats) {
		if err := t.store.UnlockAchievement(ctx, o.UserID, a, at); err != nil {
			return fmt.Errorf("unlock %s: %w", a, err)
		}
		o.Earned = append(o.Earned, a)
	}
	return nil
}

// Stats returns the user's stats, creating them on first access.
func (t *Tracker) Stats(ctx context.Context, userID string) (*models.UserStats, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: user id is required", models.ErrValidation)
	}
	return t.store.GetUserStats(ctx, userID)
}

// WeeklyActivity returns the last seven days of dump counts, oldest first, zero-filled.
func (t *Tracker) WeeklyActivity(ctx context.Context, userID string) ([]models.DailyActivity, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: user id is required", models.ErrValidation)
	}
	today := models.Day(t.now())
	from := today.AddDate(0, 0, -(models.ActivityWindowDays - 1))
	rows, err := t.store.ListDailyActivity(ctx, userID, from, today)
	if err != nil {
		return nil, err
	}
	return models.ActivityWindow(rows, today, models.ActivityWindowDays), nil
}

// Achievements returns the catalog with the user's unlock state.
func (t *Tracker) Achievements(ctx context.Context, userID string) ([]models.AchievementStatus, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: user id is required", models.ErrValidation)
	}
	unlocked, err := t.store.ListAchievements(ctx, userID)
	if err != nil {
		return nil, err
	}
	return models.AchievementStatuses(unlocked), nil
}
