// Package search finds notes related to a given note by vector similarity.
package search

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/thebtf/braindump/pkg/models"
	"github.com/thebtf/braindump/pkg/privacy"
	"github.com/thebtf/braindump/pkg/similarity"
)

const (
	DefaultMatchCount     = 5
	DefaultMatchThreshold = 0.3
	MaxMatchCount         = 50
)

// ErrRetrieval is returned when the similarity backend fails.
var ErrRetrieval = errors.New("related-notes retrieval failed")

// Store is the read access the retriever needs.
type Store interface {
	// GetNote returns nil, nil when the note does not exist.
	GetNote(ctx context.Context, id string) (*models.Note, error)
	MatchNotes(ctx context.Context, q models.MatchQuery) ([]models.NoteMatch, error)
	GetNotesByIDs(ctx context.Context, ids []string) ([]*models.Note, error)
}

// Params selects the source note and how many neighbours to return.
// Zero MatchCount and nil MatchThreshold use the retriever defaults.
type Params struct {
	MatchThreshold *float64
	NoteID         string
	UserID         string
	MatchCount     int
}

// Result is the answer of Related.
type Result struct {
	SourceNote   *models.Note         `json:"source_note"`
	RelatedNotes []models.RelatedNote `json:"related_notes"`
	CommonThemes []string             `json:"common_themes"`
}

// Retriever ranks a user's notes by similarity to one of them.
type Retriever struct {
	store            Store
	defaultCount     int
	defaultThreshold float64
}

// NewRetriever creates a Retriever. A non-positive count falls back to 5. The
// threshold is used as given, zero included; values outside [-1, 1) fall back to 0.3.
func NewRetriever(store Store, defaultCount int, defaultThreshold float64) *Retriever {
	if defaultCount <= 0 {
		defaultCount = DefaultMatchCount
	}
	if defaultThreshold < -1 || defaultThreshold >= 1 {
		defaultThreshold = DefaultMatchThreshold
	}
	return &Retriever{store: store, defaultCount: defaultCount, defaultThreshold: defaultThreshold}
}

// Related returns notes of the same user similar to the source note, with their shared themes.
func (r *Retriever) Related(ctx context.Context, p Params) (*Result, error) {
	if strings.TrimSpace(p.UserID) == "" {
		return nil, fmt.Errorf("%w: user_id is required", models.ErrValidation)
	}
	count := p.MatchCount
	if count <= 0 {
		count = r.defaultCount
	}
	count = min(count, MaxMatchCount)
	threshold := r.defaultThreshold
	if p.MatchThreshold != nil {
		threshold = *p.MatchThreshold
	}
	if threshold < -1 || threshold >= 1 {
		return nil, fmt.Errorf("%w: match_threshold must be in [-1, 1)", models.ErrValidation)
	}

	source, err := r.store.GetNote(ctx, p.NoteID)
	if err != nil {
		return nil, fmt.Errorf("get note %s: %w", p.NoteID, err)
	}
	if source == nil || source.UserID != p.UserID {
		return nil, fmt.Errorf("%w: note %s", models.ErrNotFound, p.NoteID)
	}

	result := &Result{SourceNote: source, RelatedNotes: []models.RelatedNote{}, CommonThemes: []string{}}
	if !source.HasEmbedding() {
		return result, nil
	}

	matches, err := r.store.MatchNotes(ctx, models.MatchQuery{
		Embedding: source.Embedding,
		UserID:    p.UserID,
		ExcludeID: source.ID,
		Threshold: threshold,
		Count:     count,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRetrieval, err)
	}

	scores := make(map[string]float64, len(matches))
	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		if m.ID == source.ID || m.Similarity <= threshold {
			continue
		}
		if _, dup := scores[m.ID]; dup {
			continue
		}
		scores[m.ID] = m.Similarity
		ids = append(ids, m.ID)
	}
	if len(ids) == 0 {
		return result, nil
	}

	notes, err := r.store.GetNotesByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRetrieval, err)
	}
	for _, n := range notes {
		if n == nil || n.UserID != p.UserID {
			continue
		}
		result.RelatedNotes = append(result.RelatedNotes, models.RelatedNote{Note: n, Similarity: scores[n.ID]})
	}
	SortRelated(result.RelatedNotes)
	if len(result.RelatedNotes) > count {
		result.RelatedNotes = result.RelatedNotes[:count]
	}

	result.CommonThemes = commonThemes(source, result.RelatedNotes)
	return result, nil
}

// SortRelated orders by similarity descending, newest first on ties.
func SortRelated(related []models.RelatedNote) {
	sort.SliceStable(related, func(i, j int) bool {
		if related[i].Similarity != related[j].Similarity {
			return related[i].Similarity > related[j].Similarity
		}
		return related[i].Note.CreatedAt.After(related[j].Note.CreatedAt)
	})
}

// commonThemes never fails; any panic yields no themes.
func commonThemes(source *models.Note, related []models.RelatedNote) (themes []string) {
	if len(related) == 0 {
		return []string{}
	}
	defer func() {
		if rec := recover(); rec != nil {
			log.Warn().Interface("panic", rec).Str("note_id", source.ID).Msg("Theme extraction failed")
			themes = []string{}
		}
	}()

	texts := make([]string, 0, len(related)+1)
	texts = append(texts, privacy.StripPrivateTags(source.Content))
	for _, rn := range related {
		texts = append(texts, privacy.StripPrivateTags(rn.Note.Content))
	}
	return similarity.ExtractThemes(texts)
}
