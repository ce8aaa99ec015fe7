package worker

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/thebtf/braindump/internal/search"
	"github.com/thebtf/braindump/pkg/models"
)

// Field names in validation messages follow the json tags.
type createNoteRequest struct {
	UserID   string `json:"user_id" validate:"max=128"`
	Title    string `json:"title" validate:"max=500"`
	Content  string `json:"content" validate:"max=100000"`
	Category string `json:"category" validate:"omitempty,oneof=Health Work Personal Ideas Tasks Learning"`
	IsTask   bool   `json:"is_task"`
	Organize bool   `json:"organize"`
}

func (c createNoteRequest) input() models.NoteInput {
	return models.NoteInput{
		UserID:   c.UserID,
		Title:    c.Title,
		Content:  c.Content,
		Category: c.Category,
		IsTask:   c.IsTask,
		Organize: c.Organize,
	}
}

type adviceRequest struct {
	Text string `json:"text" validate:"required,max=20000"`
}

type relatedQuery struct {
	MatchThreshold *float64 `json:"match_threshold" validate:"omitempty,gte=-1,lt=1"`
	UserID         string   `json:"user_id" validate:"required"`
	MatchCount     int      `json:"match_count" validate:"omitempty,min=1,max=50"`
}

// parseRelatedQuery reads user_id, match_count and match_threshold.
func parseRelatedQuery(r *http.Request) (relatedQuery, error) {
	q := r.URL.Query()
	out := relatedQuery{UserID: strings.TrimSpace(q.Get("user_id"))}

	if v := q.Get("match_count"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return out, fmt.Errorf("%w: match_count must be an integer", models.ErrValidation)
		}
		out.MatchCount = n
	}
	if v := q.Get("match_threshold"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return out, fmt.Errorf("%w: match_threshold must be a number", models.ErrValidation)
		}
		out.MatchThreshold = &f
	}
	return out, nil
}

func (q relatedQuery) params(noteID string) search.Params {
	return search.Params{
		NoteID:         noteID,
		UserID:         q.UserID,
		MatchCount:     q.MatchCount,
		MatchThreshold: q.MatchThreshold,
	}
}

type activityDay struct {
	Date      string `json:"date"`
	DumpCount int    `json:"dump_count"`
}

func toActivityDays(rows []models.DailyActivity) []activityDay {
	out := make([]activityDay, 0, len(rows))
	for _, r := range rows {
		out = append(out, activityDay{Date: r.Date.Format(models.ActivityDateLayout), DumpCount: r.DumpCount})
	}
	return out
}

type healthResponse struct {
	Status     string `json:"status"`
	Version    string `json:"version,omitempty"`
	Database   string `json:"database"`
	Uptime     string `json:"uptime"`
	SSEClients int    `json:"sse_clients"`
	Embedding  bool   `json:"embedding"`
	LLM        bool   `json:"llm"`
}

func uptime(since time.Time) string {
	return time.Since(since).Truncate(time.Second).String()
}
