package gorm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"

	"github.com/thebtf/braindump/internal/notes"
	"github.com/thebtf/braindump/internal/search"
	"github.com/thebtf/braindump/pkg/models"
)

var (
	_ notes.Store  = (*NoteStore)(nil)
	_ search.Store = (*NoteStore)(nil)
)

// NoteStore provides note-related database operations using GORM.
type NoteStore struct {
	db *gorm.DB
}

// NewNoteStore creates a new note store.
func NewNoteStore(store *Store) *NoteStore {
	return &NoteStore{db: store.DB}
}

// CreateNote inserts a note, embedding included.
func (s *NoteStore) CreateNote(ctx context.Context, n *models.Note) error {
	return s.db.WithContext(ctx).Create(toDBNote(n)).Error
}

// GetNote retrieves a note by ID. Returns nil, nil when it does not exist.
func (s *NoteStore) GetNote(ctx context.Context, id string) (*models.Note, error) {
	var row Note
	err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return toModelNote(&row), nil
}

// ListNotes lists notes newest first, scoped to userID unless it is empty.
func (s *NoteStore) ListNotes(ctx context.Context, userID string) ([]*models.Note, error) {
	query := s.db.WithContext(ctx).Order("created_at DESC")
	if userID != "" {
		query = query.Where("user_id = ?", userID)
	}

	var rows []Note
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return toModelNotes(rows), nil
}

// GetNotesByIDs retrieves notes by a list of IDs.
func (s *NoteStore) GetNotesByIDs(ctx context.Context, ids []string) ([]*models.Note, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []Note
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	return toModelNotes(rows), nil
}

// UpdateNote writes every mutable column except the embedding.
func (s *NoteStore) UpdateNote(ctx context.Context, n *models.Note) error {
	row := toDBNote(n)
	res := s.db.WithContext(ctx).Model(&Note{}).Where("id = ?", n.ID).Updates(map[string]interface{}{
		"title":         row.Title,
		"content":       row.Content,
		"category":      row.Category,
		"insights":      row.Insights,
		"cluster_label": row.ClusterLabel,
		"is_task":       row.IsTask,
		"is_completed":  row.IsCompleted,
		"completed_at":  row.CompletedAt,
		"updated_at":    row.UpdatedAt,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: note %s", models.ErrNotFound, n.ID)
	}
	return nil
}

// SetEmbedding replaces the embedding. An empty vector stores NULL.
func (s *NoteStore) SetEmbedding(ctx context.Context, id string, vec []float32) error {
	var value interface{} = gorm.Expr("NULL")
	if len(vec) > 0 {
		value = pgvector.NewVector(vec)
	}
	return s.db.WithContext(ctx).Model(&Note{}).Where("id = ?", id).Update("embedding", value).Error
}

// DeleteNote hard-deletes a note and reports whether it existed.
func (s *NoteStore) DeleteNote(ctx context.Context, id string) (bool, error) {
	res := s.db.WithContext(ctx).Delete(&Note{}, "id = ?", id)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// SetClusterLabels stores labels in one transaction, one statement per label.
func (s *NoteStore) SetClusterLabels(ctx context.Context, labels map[string]int) error {
	byLabel := make(map[int][]string)
	for id, label := range labels {
		byLabel[label] = append(byLabel[label], id)
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for label, ids := range byLabel {
			err := tx.Model(&Note{}).Where("id IN ?", ids).Updates(map[string]interface{}{
				"cluster_label": label,
				"updated_at":    time.Now().UTC(),
			}).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// MatchNotes calls the match_notes SQL function.
func (s *NoteStore) MatchNotes(ctx context.Context, q models.MatchQuery) ([]models.NoteMatch, error) {
	var rows []struct {
		ID         string
		Similarity float64
	}
	err := s.db.WithContext(ctx).
		Raw("SELECT id, similarity FROM match_notes(?, ?, ?, ?, ?)",
			pgvector.NewVector(q.Embedding), q.Threshold, q.Count, q.UserID, q.ExcludeID).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	matches := make([]models.NoteMatch, 0, len(rows))
	for _, r := range rows {
		matches = append(matches, models.NoteMatch{ID: r.ID, Similarity: r.Similarity})
	}
	return matches, nil
}

func toModelNotes(rows []Note) []*models.Note {
	out := make([]*models.Note, 0, len(rows))
	for i := range rows {
		out = append(out, toModelNote(&rows[i]))
	}
	return out
}
