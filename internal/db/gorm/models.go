package gorm

import (
	"time"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"

	"github.com/thebtf/braindump/pkg/models"
)

// Note is the notes row.
type Note struct {
	CreatedAt    time.Time        `gorm:"not null;index:idx_notes_user_created,priority:2,sort:desc"`
	UpdatedAt    time.Time        `gorm:"not null"`
	CompletedAt  *time.Time
	Embedding    *pgvector.Vector `gorm:"type:vector(384)"`
	ID           string           `gorm:"primaryKey;type:text"`
	UserID       string           `gorm:"type:text;not null;default:'';index:idx_notes_user_created,priority:1"`
	Title        string           `gorm:"type:text;not null;default:''"`
	Content      string           `gorm:"type:text;not null;default:''"`
	Category     string           `gorm:"type:text;not null;default:'Personal';check:category IN ('Health','Work','Personal','Ideas','Tasks','Learning')"`
	Insights     pq.StringArray   `gorm:"type:text[]"`
	ClusterLabel int              `gorm:"not null;default:-1"`
	IsTask       bool             `gorm:"not null;default:false"`
	IsCompleted  bool             `gorm:"not null;default:false"`
}

func (Note) TableName() string { return "notes" }

// BeforeCreate hook to ensure timestamps are set.
func (n *Note) BeforeCreate(tx *gorm.DB) error {
	now := time.Now().UTC()
	if n.CreatedAt.IsZero() {
		n.CreatedAt = now
	}
	if n.UpdatedAt.IsZero() {
		n.UpdatedAt = n.CreatedAt
	}
	return nil
}

// UserStats is the user_stats row.
type UserStats struct {
	LastActivityDate *time.Time `gorm:"type:date"`
	UpdatedAt        time.Time  `gorm:"not null"`
	UserID           string     `gorm:"primaryKey;type:text"`
	CurrentStreak    int        `gorm:"not null;default:0"`
	LongestStreak    int        `gorm:"not null;default:0"`
	TotalDumps       int        `gorm:"not null;default:0"`
	TasksCompleted   int        `gorm:"not null;default:0"`
}

func (UserStats) TableName() string { return "user_stats" }

// DailyActivity is one daily_activity row.
type DailyActivity struct {
	ActivityDate time.Time `gorm:"type:date;not null;uniqueIndex:idx_daily_activity_user_date,priority:2"`
	ID           int64     `gorm:"primaryKey;autoIncrement"`
	UserID       string    `gorm:"type:text;not null;uniqueIndex:idx_daily_activity_user_date,priority:1"`
	DumpCount    int       `gorm:"not null;default:0"`
}

func (DailyActivity) TableName() string { return "daily_activity" }

// UserAchievement records one unlocked achievement.
type UserAchievement struct {
	UnlockedAt      time.Time `gorm:"not null"`
	UserID          string    `gorm:"primaryKey;type:text"`
	AchievementType string    `gorm:"primaryKey;type:text"`
}

func (UserAchievement) TableName() string { return "user_achievements" }

func toModelNote(n *Note) *models.Note {
	out := &models.Note{
		CreatedAt:    n.CreatedAt,
		UpdatedAt:    n.UpdatedAt,
		CompletedAt:  n.CompletedAt,
		ID:           n.ID,
		UserID:       n.UserID,
		Title:        n.Title,
		Content:      n.Content,
		Category:     models.Category(n.Category),
		ClusterLabel: n.ClusterLabel,
		IsTask:       n.IsTask,
		IsCompleted:  n.IsCompleted,
	}
	if len(n.Insights) > 0 {
		out.Insights = []string(n.Insights)
	}
	if n.Embedding != nil {
		out.Embedding = n.Embedding.Slice()
	}
	return out
}

func toDBNote(n *models.Note) *Note {
	return &Note{
		CreatedAt:    n.CreatedAt,
		UpdatedAt:    n.UpdatedAt,
		CompletedAt:  n.CompletedAt,
		Embedding:    toVector(n.Embedding),
		ID:           n.ID,
		UserID:       n.UserID,
		Title:        n.Title,
		Content:      n.Content,
		Category:     string(n.Category),
		Insights:     pq.StringArray(n.Insights),
		ClusterLabel: n.ClusterLabel,
		IsTask:       n.IsTask,
		IsCompleted:  n.IsCompleted,
	}
}

func toModelStats(s *UserStats) *models.UserStats {
	return &models.UserStats{
		LastActivityDate: s.LastActivityDate,
		UpdatedAt:        s.UpdatedAt,
		UserID:           s.UserID,
		CurrentStreak:    s.CurrentStreak,
		LongestStreak:    s.LongestStreak,
		TotalDumps:       s.TotalDumps,
		TasksCompleted:   s.TasksCompleted,
	}
}
