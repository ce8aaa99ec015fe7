package gorm

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/thebtf/braindump/internal/activity"
	"github.com/thebtf/braindump/pkg/models"
)

var _ activity.Store = (*ActivityStore)(nil)

// ActivityStore provides stats, daily activity and achievement operations using GORM.
type ActivityStore struct {
	db *gorm.DB
}

// NewActivityStore creates a new activity store.
func NewActivityStore(store *Store) *ActivityStore {
	return &ActivityStore{db: store.DB}
}

// ensureStats creates the zero row for userID if it is missing.
func ensureStats(tx *gorm.DB, userID string) error {
	return tx.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&UserStats{UserID: userID, UpdatedAt: time.Now().UTC()}).Error
}

func loadStats(tx *gorm.DB, userID string) (*models.UserStats, error) {
	var row UserStats
	if err := tx.First(&row, "user_id = ?", userID).Error; err != nil {
		return nil, err
	}
	return toModelStats(&row), nil
}

// GetUserStats returns the stats row, creating it on first access.
func (s *ActivityStore) GetUserStats(ctx context.Context, userID string) (*models.UserStats, error) {
	db := s.db.WithContext(ctx)
	if err := ensureStats(db, userID); err != nil {
		return nil, err
	}
	return loadStats(db, userID)
}

// IncrementDailyActivity adds one dump to the user's row for day.
func (s *ActivityStore) IncrementDailyActivity(ctx context.Context, userID string, day time.Time) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "activity_date"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"dump_count": gorm.Expr("daily_activity.dump_count + 1")}),
	}).Create(&DailyActivity{UserID: userID, ActivityDate: models.Day(day), DumpCount: 1}).Error
}

// ListDailyActivity returns rows with from <= activity_date <= to, oldest first.
func (s *ActivityStore) ListDailyActivity(ctx context.Context, userID string, from, to time.Time) ([]models.DailyActivity, error) {
	var rows []DailyActivity
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND activity_date BETWEEN ? AND ?", userID, models.Day(from), models.Day(to)).
		Order("activity_date ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]models.DailyActivity, 0, len(rows))
	for _, r := range rows {
		out = append(out, models.DailyActivity{Date: models.Day(r.ActivityDate), UserID: r.UserID, DumpCount: r.DumpCount})
	}
	return out, nil
}

// UpdateStreak recomputes the streaks from the full activity history in one transaction.
// The longest streak never decreases.
func (s *ActivityStore) UpdateStreak(ctx context.Context, userID string, today time.Time) (*models.UserStats, error) {
	var stats *models.UserStats
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureStats(tx, userID); err != nil {
			return err
		}

		var days []time.Time
		err := tx.Model(&DailyActivity{}).
			Where("user_id = ? AND dump_count > 0", userID).
			Order("activity_date ASC").
			Pluck("activity_date", &days).Error
		if err != nil {
			return err
		}

		current, longest := models.ComputeStreaks(days, models.Day(today))
		updates := map[string]interface{}{
			"current_streak": current,
			"longest_streak": gorm.Expr("GREATEST(longest_streak, ?)", longest),
			"updated_at":     time.Now().UTC(),
		}
		if len(days) > 0 {
			updates["last_activity_date"] = models.Day(days[len(days)-1])
		}
		if err := tx.Model(&UserStats{}).Where("user_id = ?", userID).Updates(updates).Error; err != nil {
			return err
		}

		stats, err = loadStats(tx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// AddTotalDumps adjusts total_dumps, floored at zero.
func (s *ActivityStore) AddTotalDumps(ctx context.Context, userID string, delta int) (*models.UserStats, error) {
	return s.addCounter(ctx, userID, "total_dumps", delta)
}

// AddTasksCompleted adjusts tasks_completed, floored at zero.
func (s *ActivityStore) AddTasksCompleted(ctx context.Context, userID string, delta int) (*models.UserStats, error) {
	return s.addCounter(ctx, userID, "tasks_completed", delta)
}

func (s *ActivityStore) addCounter(ctx context.Context, userID, column string, delta int) (*models.UserStats, error) {
	var stats *models.UserStats
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureStats(tx, userID); err != nil {
			return err
		}
		err := tx.Model(&UserStats{}).Where("user_id = ?", userID).Updates(map[string]interface{}{
			column:       gorm.Expr(fmt.Sprintf("GREATEST(%s + ?, 0)", column), delta),
			"updated_at": time.Now().UTC(),
		}).Error
		if err != nil {
			return err
		}
		stats, err = loadStats(tx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// UnlockAchievement records an unlock. Unlocking twice keeps the first timestamp.
func (s *ActivityStore) UnlockAchievement(ctx context.Context, userID string, t models.AchievementType, at time.Time) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&UserAchievement{
		UserID:          userID,
		AchievementType: string(t),
		UnlockedAt:      at.UTC(),
	}).Error
}

// ListAchievements returns a user's unlocks, oldest first.
func (s *ActivityStore) ListAchievements(ctx context.Context, userID string) ([]models.UnlockedAchievement, error) {
	var rows []UserAchievement
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("unlocked_at ASC").Find(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]models.UnlockedAchievement, 0, len(rows))
	for _, r := range rows {
		out = append(out, models.UnlockedAchievement{
			UnlockedAt: r.UnlockedAt,
			UserID:     r.UserID,
			Type:       models.AchievementType(r.AchievementType),
		})
	}
	return out, nil
}
