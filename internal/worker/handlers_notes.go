package worker

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/thebtf/braindump/pkg/models"
)

// handleHealth godoc
// @Summary Service health
// @Tags system
// @Produce json
// @Success 200 {object} healthResponse
// @Router /health [get]
func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:    "healthy",
		Version:   s.version,
		Database:  "ok",
		Uptime:    uptime(s.startTime),
	}
	if s.notes != nil {
		resp.Embedding, resp.LLM = s.notes.ProvidersAvailable()
	}
	if s.events != nil {
		resp.SSEClients = s.events.ClientCount()
	}
	if !s.ready.Load() {
		resp.Status = "stopping"
	}
	if s.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.db.Ping(ctx); err != nil {
			resp.Status = "degraded"
			resp.Database = err.Error()
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleListNotes godoc
// @Summary List notes, newest first
// @Tags notes
// @Produce json
// @Param user_id query string false "Only this user's notes"
// @Success 200 {array} models.Note
// @Failure 500 {object} errorResponse
// @Router /notes [get]
func (s *Service) handleListNotes(w http.ResponseWriter, r *http.Request) {
	list, err := s.notes.List(r.Context(), r.URL.Query().Get("user_id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// handleCreateNote godoc
// @Summary Create a note
// @Description Title or content is required. organize=true generates title, category and insights.
// @Tags notes
// @Accept json
// @Produce json
// @Param note body createNoteRequest true "Note"
// @Success 201 {object} models.Note
// @Failure 400 {object} errorResponse
// @Failure 500 {object} errorResponse
// @Router /notes [post]
func (s *Service) handleCreateNote(w http.ResponseWriter, r *http.Request) {
	var req createNoteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.checkStruct(req); err != nil {
		writeError(w, r, err)
		return
	}

	note, err := s.notes.Create(r.Context(), req.input())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, note)
}

// handleGetNote godoc
// @Summary Get a note
// @Tags notes
// @Produce json
// @Param id path string true "Note ID"
// @Success 200 {object} models.Note
// @Failure 404 {object} errorResponse
// @Router /notes/{id} [get]
func (s *Service) handleGetNote(w http.ResponseWriter, r *http.Request) {
	note, err := s.notes.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// handleUpdateNote godoc
// @Summary Update a note
// @Description Only fields present in the body change. A content change re-embeds the note.
// @Tags notes
// @Accept json
// @Produce json
// @Param id path string true "Note ID"
// @Param update body models.NoteUpdate true "Fields to change"
// @Success 200 {object} models.Note
// @Failure 400 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Router /notes/{id} [put]
func (s *Service) handleUpdateNote(w http.ResponseWriter, r *http.Request) {
	var upd models.NoteUpdate
	if err := decodeJSON(w, r, &upd); err != nil {
		writeError(w, r, err)
		return
	}

	note, err := s.notes.Update(r.Context(), chi.URLParam(r, "id"), upd)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// handleDeleteNote godoc
// @Summary Delete a note
// @Tags notes
// @Produce json
// @Param id path string true "Note ID"
// @Success 200 {object} map[string]string
// @Failure 404 {object} errorResponse
// @Router /notes/{id} [delete]
func (s *Service) handleDeleteNote(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.notes.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Note deleted", "id": id})
}

// handleCompleteNote godoc
// @Summary Mark a note as a completed task
// @Tags notes
// @Produce json
// @Param id path string true "Note ID"
// @Success 200 {object} models.Note
// @Failure 400 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Router /notes/{id}/complete [post]
func (s *Service) handleCompleteNote(w http.ResponseWriter, r *http.Request) {
	note, err := s.notes.Complete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// handleUncompleteNote godoc
// @Summary Reopen a completed task
// @Tags notes
// @Produce json
// @Param id path string true "Note ID"
// @Success 200 {object} models.Note
// @Failure 400 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Router /notes/{id}/uncomplete [post]
func (s *Service) handleUncompleteNote(w http.ResponseWriter, r *http.Request) {
	note, err := s.notes.Uncomplete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// handleRelatedNotes godoc
// @Summary Notes similar to a note, with common themes
// @Tags notes
// @Produce json
// @Param id path string true "Note ID"
// @Param user_id query string true "Owner of the note"
// @Param match_count query int false "Maximum related notes (default 5)"
// @Param match_threshold query number false "Minimum cosine similarity (default 0.3)"
// @Success 200 {object} search.Result
// @Failure 400 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Failure 500 {object} errorResponse
// @Router /notes/{id}/related [get]
func (s *Service) handleRelatedNotes(w http.ResponseWriter, r *http.Request) {
	q, err := parseRelatedQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.checkStruct(q); err != nil {
		writeError(w, r, err)
		return
	}

	result, err := s.related.Related(r.Context(), q.params(chi.URLParam(r, "id")))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleClusterNotes godoc
// @Summary Cluster all of a user's notes into topics
// @Description Answers 200 with a skipped reason when embeddings are unavailable.
// @Tags notes
// @Produce json
// @Param user_id query string true "User to cluster"
// @Success 200 {object} notes.ClusterResult
// @Failure 400 {object} errorResponse
// @Failure 500 {object} errorResponse
// @Router /notes/cluster [post]
func (s *Service) handleClusterNotes(w http.ResponseWriter, r *http.Request) {
	result, err := s.notes.ClusterUser(r.Context(), strings.TrimSpace(r.URL.Query().Get("user_id")))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleAdvice godoc
// @Summary Pick the task to do first
// @Description Provider failures come back as 200 with an error field.
// @Tags advice
// @Accept json
// @Produce json
// @Param request body adviceRequest true "Text with tasks"
// @Success 200 {object} llm.Advice
// @Failure 400 {object} errorResponse
// @Router /advice [post]
func (s *Service) handleAdvice(w http.ResponseWriter, r *http.Request) {
	var req adviceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.checkStruct(req); err != nil {
		writeError(w, r, err)
		return
	}

	advice, err := s.notes.Advice(r.Context(), req.Text)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, advice)
}
