// Package notes orchestrates the note pipeline: filtering, enrichment, embedding,
// persistence, clustering and activity side effects.
package notes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/thebtf/braindump/internal/activity"
	"github.com/thebtf/braindump/internal/clustering"
	"github.com/thebtf/braindump/internal/embedding"
	"github.com/thebtf/braindump/internal/llm"
	"github.com/thebtf/braindump/pkg/models"
	"github.com/thebtf/braindump/pkg/privacy"
	"github.com/thebtf/braindump/pkg/similarity"
)

// Event names published to subscribers.
const (
	EventNoteCreated    = "note.created"
	EventNoteUpdated    = "note.updated"
	EventNoteDeleted    = "note.deleted"
	EventNotesClustered = "notes.clustered"
)

// Store persists notes.
type Store interface {
	CreateNote(ctx context.Context, n *models.Note) error
	// GetNote returns nil, nil when the note does not exist.
	GetNote(ctx context.Context, id string) (*models.Note, error)
	// ListNotes lists a user's notes newest first, or every note when userID is empty.
	ListNotes(ctx context.Context, userID string) ([]*models.Note, error)
	// UpdateNote writes every column except the embedding.
	UpdateNote(ctx context.Context, n *models.Note) error
	// SetEmbedding replaces the embedding column; nil clears it.
	SetEmbedding(ctx context.Context, id string, vec []float32) error
	// DeleteNote reports whether a row was removed.
	DeleteNote(ctx context.Context, id string) (bool, error)
	SetClusterLabels(ctx context.Context, labels map[string]int) error
}

// Tracker receives activity side effects.
type Tracker interface {
	RecordNoteCreated(ctx context.Context, userID string) activity.Outcome
	RecordTaskCompleted(ctx context.Context, userID string) activity.Outcome
	RecordTaskUncompleted(ctx context.Context, userID string) activity.Outcome
}

// Clusterer labels batches of notes.
type Clusterer interface {
	Cluster(ctx context.Context, items []clustering.Item) (map[string]int, error)
}

// Publisher fans note events out to subscribers of a user.
type Publisher interface {
	Publish(event, userID string, payload interface{})
}

// Deps are the collaborators of a Service. Embedder, Clusterer, Tracker and
// Publisher may be nil.
type Deps struct {
	Store     Store
	Embedder  embedding.Embedder
	Enricher  *llm.Enricher
	Clusterer Clusterer
	Tracker   Tracker
	Publisher Publisher
}

// Service implements note operations.
type Service struct {
	store     Store
	embedder  embedding.Embedder
	enricher  *llm.Enricher
	clusterer Clusterer
	tracker   Tracker
	publisher Publisher
	now       func() time.Time
}

// NewService creates a Service.
func NewService(d Deps) *Service {
	enricher := d.Enricher
	if enricher == nil {
		enricher = llm.NewEnricher(nil)
	}
	return &Service{
		store:     d.Store,
		embedder:  d.Embedder,
		enricher:  enricher,
		clusterer: d.Clusterer,
		tracker:   d.Tracker,
		publisher: d.Publisher,
		now:       time.Now,
	}
}

// SetClock overrides the time source.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// ProvidersAvailable reports whether an embedder is configured and whether the
// language model currently accepts calls. An open circuit breaker counts as unavailable.
func (s *Service) ProvidersAvailable() (embedder, languageModel bool) {
	return s.embedder != nil, s.enricher.Available()
}

// ClusterResult summarises a clustering pass.
type ClusterResult struct {
	Labels   map[string]int `json:"labels"`
	UserID   string         `json:"user_id"`
	Skipped  string         `json:"skipped,omitempty"`
	Total    int            `json:"total"`
	Labelled int            `json:"labelled"`
	Clusters int            `json:"clusters"`
	Noise    int            `json:"noise"`
}

// List returns a user's notes, or all notes when userID is empty.
func (s *Service) List(ctx context.Context, userID string) ([]*models.Note, error) {
	notes, err := s.store.ListNotes(ctx, strings.TrimSpace(userID))
	if err != nil {
		return nil, err
	}
	if notes == nil {
		notes = []*models.Note{}
	}
	return notes, nil
}

// Get returns one note.
func (s *Service) Get(ctx context.Context, id string) (*models.Note, error) {
	return s.mustGet(ctx, id)
}

// Create validates, enriches, embeds and stores a new note.
func (s *Service) Create(ctx context.Context, in models.NoteInput) (*models.Note, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	note := &models.Note{
		ID:           uuid.NewString(),
		UserID:       strings.TrimSpace(in.UserID),
		Title:        strings.TrimSpace(in.Title),
		Content:      in.Content,
		IsTask:       in.IsTask,
		ClusterLabel: models.NoCluster,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if in.Category != "" {
		c, err := models.ParseCategory(in.Category)
		if err != nil {
			return nil, err
		}
		note.Category = c
	}

	text := providerText(note)
	meaningful := similarity.IsMeaningful(text)

	var enrichment *llm.Enrichment
	g, gctx := errgroup.WithContext(ctx)
	if in.Organize && meaningful {
		g.Go(func() error {
			e := s.enricher.Organize(gctx, text)
			enrichment = &e
			return nil
		})
	}
	if meaningful {
		g.Go(func() error {
			note.Embedding = s.embed(gctx, note.ID, text)
			return nil
		})
	}
	_ = g.Wait()

	if enrichment != nil {
		if note.Title == "" {
			note.Title = enrichment.Title
		}
		if note.Category == "" {
			note.Category = enrichment.Category
		}
		note.Insights = enrichment.Insights
	}
	if note.Title == "" {
		note.Title = models.UntitledNote
	}
	if note.Category == "" {
		note.Category = models.DefaultCategory
	}
	if note.Category == models.CategoryTasks {
		note.IsTask = true
	}

	if err := s.store.CreateNote(ctx, note); err != nil {
		return nil, fmt.Errorf("create note: %w", err)
	}

	log.Info().
		Str("note_id", note.ID).
		Str("user_id", note.UserID).
		Str("category", string(note.Category)).
		Bool("embedded", note.HasEmbedding()).
		Bool("organized", enrichment != nil).
		Msg("Note created")

	if s.tracker != nil {
		s.tracker.RecordNoteCreated(ctx, note.UserID)
	}
	s.publish(EventNoteCreated, note.UserID, note)
	return note, nil
}

// Update applies a partial update. Setting content always recomputes the embedding,
// and a changed content clears the cluster label. A title-only change leaves both alone.
func (s *Service) Update(ctx context.Context, id string, upd models.NoteUpdate) (*models.Note, error) {
	if err := upd.Validate(); err != nil {
		return nil, err
	}
	current, err := s.mustGet(ctx, id)
	if err != nil {
		return nil, err
	}

	note := current.Clone()
	contentSet := upd.Content.IsSet()
	contentChanged := upd.ContentChanged(current)
	if title, ok := upd.Title.Value(); ok {
		note.Title = strings.TrimSpace(title)
	}
	if content, ok := upd.Content.Value(); ok {
		note.Content = content
	}
	if c, ok := upd.Category.Value(); ok {
		parsed, err := models.ParseCategory(c)
		if err != nil {
			return nil, err
		}
		note.Category = parsed
	}
	if isTask, ok := upd.IsTask.Value(); ok {
		note.IsTask = isTask
	}
	if strings.TrimSpace(note.Title) == "" && strings.TrimSpace(note.Content) == "" {
		return nil, fmt.Errorf("%w: title or content is required", models.ErrValidation)
	}

	text := providerText(note)
	meaningful := similarity.IsMeaningful(text)

	var enrichment *llm.Enrichment
	g, gctx := errgroup.WithContext(ctx)
	if upd.Organize && meaningful {
		g.Go(func() error {
			e := s.enricher.Organize(gctx, text)
			enrichment = &e
			return nil
		})
	}
	if contentChanged {
		note.ClusterLabel = models.NoCluster
	}
	if contentSet {
		note.Embedding = nil
		if meaningful {
			g.Go(func() error {
				note.Embedding = s.embed(gctx, note.ID, text)
				return nil
			})
		}
	}
	_ = g.Wait()

	if enrichment != nil {
		if !upd.Category.IsSet() {
			note.Category = enrichment.Category
		}
		if !upd.Title.IsSet() && (note.Title == "" || note.Title == models.UntitledNote) {
			note.Title = enrichment.Title
		}
		note.Insights = enrichment.Insights
	} else if contentSet && !meaningful {
		note.Insights = nil
	}
	if note.Title == "" {
		note.Title = models.UntitledNote
	}
	if upd.Organize && note.Category == "" {
		note.Category = models.DefaultCategory
	}
	note.UpdatedAt = s.now().UTC()

	if err := s.store.UpdateNote(ctx, note); err != nil {
		return nil, fmt.Errorf("update note: %w", err)
	}
	if contentSet {
		if err := s.store.SetEmbedding(ctx, note.ID, note.Embedding); err != nil {
			return nil, fmt.Errorf("set embedding: %w", err)
		}
	}

	log.Info().
		Str("note_id", note.ID).
		Bool("content_changed", contentChanged).
		Bool("organized", enrichment != nil).
		Msg("Note updated")

	s.publish(EventNoteUpdated, note.UserID, note)
	return note, nil
}

// Delete removes a note.
func (s *Service) Delete(ctx context.Context, id string) error {
	note, err := s.mustGet(ctx, id)
	if err != nil {
		return err
	}
	deleted, err := s.store.DeleteNote(ctx, id)
	if err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	if !deleted {
		return fmt.Errorf("%w: note %s", models.ErrNotFound, id)
	}
	log.Info().Str("note_id", id).Msg("Note deleted")
	s.publish(EventNoteDeleted, note.UserID, map[string]string{"id": id})
	return nil
}

// Complete marks a note as a completed task. Completing twice is a validation error.
func (s *Service) Complete(ctx context.Context, id string) (*models.Note, error) {
	current, err := s.mustGet(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.IsCompleted {
		return nil, fmt.Errorf("%w: note %s is already completed", models.ErrValidation, id)
	}

	note := current.Clone()
	now := s.now().UTC()
	note.IsTask = true
	note.IsCompleted = true
	note.CompletedAt = &now
	note.UpdatedAt = now
	if err := s.store.UpdateNote(ctx, note); err != nil {
		return nil, fmt.Errorf("complete note: %w", err)
	}

	if s.tracker != nil {
		s.tracker.RecordTaskCompleted(ctx, note.UserID)
	}
	s.publish(EventNoteUpdated, note.UserID, note)
	return note, nil
}

// Uncomplete reopens a completed task. Uncompleting an open note is a validation error.
func (s *Service) Uncomplete(ctx context.Context, id string) (*models.Note, error) {
	current, err := s.mustGet(ctx, id)
	if err != nil {
		return nil, err
	}
	if !current.IsCompleted {
		return nil, fmt.Errorf("%w: note %s is not completed", models.ErrValidation, id)
	}

	note := current.Clone()
	note.IsCompleted = false
	note.CompletedAt = nil
	note.UpdatedAt = s.now().UTC()
	if err := s.store.UpdateNote(ctx, note); err != nil {
		return nil, fmt.Errorf("uncomplete note: %w", err)
	}

	if s.tracker != nil {
		s.tracker.RecordTaskUncompleted(ctx, note.UserID)
	}
	s.publish(EventNoteUpdated, note.UserID, note)
	return note, nil
}

// ClusterUser runs a clustering pass over all of a user's notes and stores the labels.
// Missing embeddings degrade to a skipped result rather than an error.
func (s *Service) ClusterUser(ctx context.Context, userID string) (*ClusterResult, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("%w: user_id is required", models.ErrValidation)
	}

	notes, err := s.store.ListNotes(ctx, userID)
	if err != nil {
		return nil, err
	}
	result := &ClusterResult{UserID: userID, Total: len(notes), Labels: map[string]int{}}
	if s.clusterer == nil {
		result.Skipped = clustering.ErrEmbeddingUnavailable.Error()
		return result, nil
	}

	items := make([]clustering.Item, 0, len(notes))
	for _, n := range notes {
		items = append(items, clustering.Item{ID: n.ID, Text: providerText(n), Embedding: n.Embedding})
	}

	labels, err := s.clusterer.Cluster(ctx, items)
	if errors.Is(err, clustering.ErrEmbeddingUnavailable) {
		log.Warn().Err(err).Str("user_id", userID).Msg("Clustering skipped")
		result.Skipped = err.Error()
		return result, nil
	}
	if err != nil {
		return nil, err
	}

	if len(labels) > 0 {
		if err := s.store.SetClusterLabels(ctx, labels); err != nil {
			return nil, fmt.Errorf("set cluster labels: %w", err)
		}
	}

	seen := map[int]bool{}
	for id, label := range labels {
		result.Labels[id] = label
		result.Labelled++
		if label == clustering.Noise {
			result.Noise++
		} else {
			seen[label] = true
		}
	}
	result.Clusters = len(seen)

	s.publish(EventNotesClustered, userID, result)
	return result, nil
}

// Advice asks the language model which task in text to do first.
func (s *Service) Advice(ctx context.Context, text string) (llm.Advice, error) {
	if strings.TrimSpace(text) == "" {
		return llm.Advice{}, fmt.Errorf("%w: text is required", models.ErrValidation)
	}
	return s.enricher.GiveAdvice(ctx, text), nil
}

func (s *Service) mustGet(ctx context.Context, id string) (*models.Note, error) {
	note, err := s.store.GetNote(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get note: %w", err)
	}
	if note == nil {
		return nil, fmt.Errorf("%w: note %s", models.ErrNotFound, id)
	}
	return note, nil
}

// embed returns nil when no embedder is configured or the call fails.
func (s *Service) embed(ctx context.Context, noteID, text string) []float32 {
	if s.embedder == nil {
		return nil
	}
	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		log.Warn().Err(err).Str("note_id", noteID).Msg("Embedding failed, storing note without embedding")
		return nil
	}
	return vec
}

func (s *Service) publish(event, userID string, payload interface{}) {
	if s.publisher != nil {
		s.publisher.Publish(event, userID, payload)
	}
}

// providerText is the text sent to providers: content, or the title for title-only notes,
// with private spans removed.
func providerText(n *models.Note) string {
	text := privacy.Clean(n.Content)
	if text == "" {
		text = privacy.Clean(n.Title)
	}
	return text
}
