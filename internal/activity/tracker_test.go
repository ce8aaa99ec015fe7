package activity

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"github.com/thebtf/braindump/pkg/models"
)

// memoryStore is an in-memory Store.
type memoryStore struct {
	mu           sync.Mutex
	stats        map[string]*models.UserStats
	daily        map[string]map[time.Time]int
	achievements map[string]map[models.AchievementType]time.Time
	failIncr     error
	failUnlock   error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		stats:        make(map[string]*models.UserStats),
		daily:        make(map[string]map[time.Time]int),
		achievements: make(map[string]map[models.AchievementType]time.Time),
	}
}

func (m *memoryStore) row(userID string) *models.UserStats {
	s, ok := m.stats[userID]
	if !ok {
		s = &models.UserStats{UserID: userID}
		m.stats[userID] = s
	}
	return s
}

func (m *memoryStore) GetUserStats(_ context.Context, userID string) (*models.UserStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := *m.row(userID)
	return &s, nil
}

func (m *memoryStore) IncrementDailyActivity(_ context.Context, userID string, day time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failIncr != nil {
		return m.failIncr
	}
	if m.daily[userID] == nil {
		m.daily[userID] = make(map[time.Time]int)
	}
	m.daily[userID][models.Day(day)]++
	return nil
}

func (m *memoryStore) ListDailyActivity(_ context.Context, userID string, from, to time.Time) ([]models.DailyActivity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.DailyActivity
	for d, c := range m.daily[userID] {
		if !d.Before(from) && !d.After(to) {
			out = append(out, models.DailyActivity{UserID: userID, Date: d, DumpCount: c})
		}
	}
	return out, nil
}

func (m *memoryStore) UpdateStreak(_ context.Context, userID string, today time.Time) (*models.UserStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var days []time.Time
	for d := range m.daily[userID] {
		days = append(days, d)
	}
	current, longest := models.ComputeStreaks(days, today)
	s := m.row(userID)
	s.CurrentStreak = current
	s.LongestStreak = max(s.LongestStreak, longest)
	c := *s
	return &c, nil
}

func (m *memoryStore) AddTotalDumps(_ context.Context, userID string, delta int) (*models.UserStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.row(userID)
	s.TotalDumps = max(s.TotalDumps+delta, 0)
	c := *s
	return &c, nil
}

func (m *memoryStore) AddTasksCompleted(_ context.Context, userID string, delta int) (*models.UserStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.row(userID)
	s.TasksCompleted = max(s.TasksCompleted+delta, 0)
	c := *s
	return &c, nil
}

func (m *memoryStore) UnlockAchievement(_ context.Context, userID string, t models.AchievementType, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failUnlock != nil {
		return m.failUnlock
	}
	if m.achievements[userID] == nil {
		m.achievements[userID] = make(map[models.AchievementType]time.Time)
	}
	if _, ok := m.achievements[userID][t]; !ok {
		m.achievements[userID][t] = at
	}
	return nil
}

func (m *memoryStore) ListAchievements(_ context.Context, userID string) ([]models.UnlockedAchievement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.UnlockedAchievement
	for t, at := range m.achievements[userID] {
		out = append(out, models.UnlockedAchievement{UserID: userID, Type: t, UnlockedAt: at})
	}
	return out, nil
}

type TrackerSuite struct {
	suite.Suite
	store   *memoryStore
	tracker *Tracker
	now     time.Time
	ctx     context.Context
}

func TestTrackerSuite(t *testing.T) {
	suite.Run(t, new(TrackerSuite))
}

func (s *TrackerSuite) SetupTest() {
	s.store = newMemoryStore()
	s.tracker = NewTracker(s.store)
	s.now = time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	s.tracker.SetClock(func() time.Time { return s.now })
	s.ctx = context.Background()
}

func (s *TrackerSuite) TestRecordNoteCreated_FirstDump() {
	out := s.tracker.RecordNoteCreated(s.ctx, "u1")
	s.True(out.OK())
	s.True(out.Succeeded)
	s.Equal([]models.AchievementType{models.AchievementFirstDump}, out.Earned)

	stats, err := s.tracker.Stats(s.ctx, "u1")
	s.Require().NoError(err)
	s.Equal(1, stats.TotalDumps)
	s.Equal(1, stats.CurrentStreak)
	s.Equal(1, stats.LongestStreak)
}

func (s *TrackerSuite) TestRecordNoteCreated_SameDayCountsOnce() {
	s.tracker.RecordNoteCreated(s.ctx, "u1")
	s.tracker.RecordNoteCreated(s.ctx, "u1")

	stats, _ := s.tracker.Stats(s.ctx, "u1")
	s.Equal(2, stats.TotalDumps)
	s.Equal(1, stats.CurrentStreak)

	week, err := s.tracker.WeeklyActivity(s.ctx, "u1")
	s.Require().NoError(err)
	s.Len(week, 7)
	s.Equal(2, week[6].DumpCount)
	s.Equal(0, week[0].DumpCount)
}

func (s *TrackerSuite) TestWeekStraightUnlocks() {
	start := s.now
	for i := 0; i < 7; i++ {
		s.now = start.AddDate(0, 0, i)
		s.tracker.RecordNoteCreated(s.ctx, "u1")
	}

	stats, _ := s.tracker.Stats(s.ctx, "u1")
	s.Equal(7, stats.CurrentStreak)

	achievements, err := s.tracker.Achievements(s.ctx, "u1")
	s.Require().NoError(err)
	unlocked := map[models.AchievementType]bool{}
	for _, a := range achievements {
		unlocked[a.Type] = a.Unlocked
	}
	s.True(unlocked[models.AchievementFirstDump])
	s.True(unlocked[models.AchievementWeekStraight])
	s.False(unlocked[models.AchievementTaskComplete])
}

func (s *TrackerSuite) TestGapResetsStreak() {
	s.tracker.RecordNoteCreated(s.ctx, "u1")
	s.now = s.now.AddDate(0, 0, 1)
	s.tracker.RecordNoteCreated(s.ctx, "u1")
	s.now = s.now.AddDate(0, 0, 3)
	s.tracker.RecordNoteCreated(s.ctx, "u1")

	stats, _ := s.tracker.Stats(s.ctx, "u1")
	s.Equal(1, stats.CurrentStreak)
	s.Equal(2, stats.LongestStreak)
}

func (s *TrackerSuite) TestTaskCounterNeverNegative() {
	s.True(s.tracker.RecordTaskUncompleted(s.ctx, "u1").OK())
	stats, _ := s.tracker.Stats(s.ctx, "u1")
	s.Equal(0, stats.TasksCompleted)

	out := s.tracker.RecordTaskCompleted(s.ctx, "u1")
	s.Contains(out.Earned, models.AchievementTaskComplete)
	s.tracker.RecordTaskUncompleted(s.ctx, "u1")
	s.tracker.RecordTaskUncompleted(s.ctx, "u1")

	stats, _ = s.tracker.Stats(s.ctx, "u1")
	s.Equal(0, stats.TasksCompleted)
}

func (s *TrackerSuite) TestFailuresAreSwallowed() {
	s.store.failIncr = errors.New("db down")
	out := s.tracker.RecordNoteCreated(s.ctx, "u1")
	s.False(out.OK())
	s.False(out.Succeeded)
	s.ErrorContains(out.Err, "db down")

	s.store.failIncr = nil
	s.store.failUnlock = errors.New("constraint")
	out = s.tracker.RecordTaskCompleted(s.ctx, "u1")
	s.False(out.OK())
}

func (s *TrackerSuite) TestAnonymousIsSkipped() {
	out := s.tracker.RecordNoteCreated(s.ctx, "")
	s.True(out.OK())
	s.True(out.Skipped)
	s.Empty(s.store.stats)
}

func (s *TrackerSuite) TestReadsRequireUser() {
	_, err := s.tracker.Stats(s.ctx, " ")
	s.True(errors.Is(err, models.ErrValidation))
	_, err = s.tracker.WeeklyActivity(s.ctx, "")
	s.True(errors.Is(err, models.ErrValidation))
	_, err = s.tracker.Achievements(s.ctx, "")
	s.True(errors.Is(err, models.ErrValidation))
}

func TestTracker_RecoversPanics(t *testing.T) {
	tr := NewTracker(nil)
	out := tr.RecordTaskCompleted(context.Background(), "u1")
	assert.False(t, out.OK())
	assert.ErrorContains(t, out.Err, "panic")
}
