package models

import (
	"sort"
	"time"
)

// UserStats holds the per-user aggregates maintained by the activity tracker.
type UserStats struct {
	LastActivityDate *time.Time `db:"last_activity_date" json:"last_activity_date"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
	UserID           string     `db:"user_id" json:"user_id"`
	CurrentStreak    int        `db:"current_streak" json:"current_streak"`
	LongestStreak    int        `db:"longest_streak" json:"longest_streak"`
	TotalDumps       int        `db:"total_dumps" json:"total_dumps"`
	TasksCompleted   int        `db:"tasks_completed" json:"tasks_completed"`
}

// DailyActivity is the dump count of one user on one day.
type DailyActivity struct {
	Date      time.Time `db:"activity_date" json:"date"`
	UserID    string    `db:"user_id" json:"-"`
	DumpCount int       `db:"dump_count" json:"dump_count"`
}

// ActivityWindowDays is the length of the trailing activity window.
const ActivityWindowDays = 7

// ActivityDateLayout formats activity dates on the wire.
const ActivityDateLayout = "2006-01-02"

// Day truncates t to its UTC calendar day.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ActivityWindow returns one entry per day for the days window ending on today,
// oldest first, zero-filled where rows are missing.
func ActivityWindow(rows []DailyActivity, today time.Time, days int) []DailyActivity {
	counts := make(map[time.Time]int, len(rows))
	for _, r := range rows {
		counts[Day(r.Date)] += r.DumpCount
	}
	end := Day(today)
	out := make([]DailyActivity, 0, days)
	for i := days - 1; i >= 0; i-- {
		d := end.AddDate(0, 0, -i)
		out = append(out, DailyActivity{Date: d, DumpCount: counts[d]})
	}
	return out
}

// ComputeStreaks derives the current and longest streak from the set of days with activity.
// The current streak is the run of consecutive days ending on the latest active day,
// and is zero when that day is before yesterday.
func ComputeStreaks(activeDays []time.Time, today time.Time) (current, longest int) {
	if len(activeDays) == 0 {
		return 0, 0
	}
	seen := make(map[time.Time]struct{}, len(activeDays))
	days := make([]time.Time, 0, len(activeDays))
	for _, d := range activeDays {
		d = Day(d)
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	run := 0
	for i, d := range days {
		if i > 0 && days[i-1].AddDate(0, 0, 1).Equal(d) {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
	}

	last := days[len(days)-1]
	yesterday := Day(today).AddDate(0, 0, -1)
	if last.Before(yesterday) {
		return 0, longest
	}
	return run, longest
}
