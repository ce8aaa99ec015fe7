package models

import "time"

// AchievementType identifies an entry in the achievement catalog.
type AchievementType string

const (
	AchievementFirstDump    AchievementType = "first_dump"
	AchievementWeekStraight AchievementType = "week_straight"
	AchievementTaskComplete AchievementType = "task_complete"
)

// WeekStreakDays is the streak length that unlocks week_straight.
const WeekStreakDays = 7

// AchievementDef describes one achievement and when it unlocks.
type AchievementDef struct {
	Earned      func(UserStats) bool `json:"-"`
	Type        AchievementType      `json:"type"`
	Title       string               `json:"title"`
	Description string               `json:"description"`
}

// AchievementCatalog is the fixed set of achievements.
var AchievementCatalog = []AchievementDef{
	{
		Type:        AchievementFirstDump,
		Title:       "First Dump",
		Description: "Captured your first thought",
		Earned:      func(s UserStats) bool { return s.TotalDumps >= 1 },
	},
	{
		Type:        AchievementWeekStraight,
		Title:       "Week Straight",
		Description: "Dumped something seven days in a row",
		Earned:      func(s UserStats) bool { return s.CurrentStreak >= WeekStreakDays },
	},
	{
		Type:        AchievementTaskComplete,
		Title:       "Task Complete",
		Description: "Completed your first task",
		Earned:      func(s UserStats) bool { return s.TasksCompleted >= 1 },
	},
}

// EarnedAchievements returns the catalog entries satisfied by stats.
func EarnedAchievements(stats UserStats) []AchievementType {
	var earned []AchievementType
	for _, def := range AchievementCatalog {
		if def.Earned(stats) {
			earned = append(earned, def.Type)
		}
	}
	return earned
}

// UnlockedAchievement is a row of the unlock relation.
type UnlockedAchievement struct {
	UnlockedAt time.Time       `db:"unlocked_at" json:"unlocked_at"`
	UserID     string          `db:"user_id" json:"user_id"`
	Type       AchievementType `db:"achievement_type" json:"type"`
}

// AchievementStatus is a catalog entry with the user's unlock state.
type AchievementStatus struct {
	UnlockedAt  *time.Time      `json:"unlocked_at"`
	Type        AchievementType `json:"type"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Unlocked    bool            `json:"unlocked"`
}

// AchievementStatuses merges the catalog with the unlocked rows.
func AchievementStatuses(unlocked []UnlockedAchievement) []AchievementStatus {
	at := make(map[AchievementType]time.Time, len(unlocked))
	for _, u := range unlocked {
		at[u.Type] = u.UnlockedAt
	}
	out := make([]AchievementStatus, 0, len(AchievementCatalog))
	for _, def := range AchievementCatalog {
		st := AchievementStatus{Type: def.Type, Title: def.Title, Description: def.Description}
		if t, ok := at[def.Type]; ok {
			t := t
			st.Unlocked = true
			st.UnlockedAt = &t
		}
		out = append(out, st)
	}
	return out
}
