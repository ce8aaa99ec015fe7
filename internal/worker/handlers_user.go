package worker

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// handleUserStats godoc
// @Summary Streaks and counters for a user
// @Tags user
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} models.UserStats
// @Failure 500 {object} errorResponse
// @Router /user/stats/{id} [get]
func (s *Service) handleUserStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.activity.Stats(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// handleUserActivity godoc
// @Summary Dump counts for the last 7 days, oldest first
// @Tags user
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {array} activityDay
// @Failure 500 {object} errorResponse
// @Router /user/activity/{id} [get]
func (s *Service) handleUserActivity(w http.ResponseWriter, r *http.Request) {
	days, err := s.activity.WeeklyActivity(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toActivityDays(days))
}

// handleUserAchievements godoc
// @Summary Achievement catalog with unlock state
// @Tags user
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {array} models.AchievementStatus
// @Failure 500 {object} errorResponse
// @Router /user/achievements/{id} [get]
func (s *Service) handleUserAchievements(w http.ResponseWriter, r *http.Request) {
	list, err := s.activity.Achievements(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}
