// Package models contains domain models for braindump.
package models

import (
	"fmt"
	"strings"
	"time"
)

// EmbeddingDimensions is the length of every stored note embedding.
const EmbeddingDimensions = 384

// NoCluster is the cluster label of a note that is unclustered or noise.
const NoCluster = -1

// UntitledNote is the title used when none was given and none could be generated.
const UntitledNote = "Untitled"

// Category is the closed set of note categories.
type Category string

const (
	CategoryHealth   Category = "Health"
	CategoryWork     Category = "Work"
	CategoryPersonal Category = "Personal"
	CategoryIdeas    Category = "Ideas"
	CategoryTasks    Category = "Tasks"
	CategoryLearning Category = "Learning"
)

// DefaultCategory is used whenever a category is needed but none is known.
const DefaultCategory = CategoryPersonal

// AllCategories lists the valid categories in display order.
var AllCategories = []Category{
	CategoryHealth,
	CategoryWork,
	CategoryPersonal,
	CategoryIdeas,
	CategoryTasks,
	CategoryLearning,
}

// IsValid reports whether c is one of the closed set.
func (c Category) IsValid() bool {
	for _, known := range AllCategories {
		if c == known {
			return true
		}
	}
	return false
}

// ParseCategory validates a caller-supplied category.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.TrimSpace(s))
	if !c.IsValid() {
		return "", fmt.Errorf("%w: unknown category %q", ErrValidation, s)
	}
	return c, nil
}

// Note is a user's freeform entry.
type Note struct {
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
	CompletedAt  *time.Time `db:"completed_at" json:"completed_at"`
	ID           string     `db:"id" json:"id"`
	UserID       string     `db:"user_id" json:"user_id"`
	Title        string     `db:"title" json:"title"`
	Content      string     `db:"content" json:"content"`
	Category     Category   `db:"category" json:"category"`
	Insights     []string   `db:"insights" json:"insights"`
	Embedding    []float32  `db:"embedding" json:"-"`
	ClusterLabel int        `db:"cluster_label" json:"cluster_label"`
	IsTask       bool       `db:"is_task" json:"is_task"`
	IsCompleted  bool       `db:"is_completed" json:"is_completed"`
}

// HasEmbedding reports whether the note carries a stored embedding.
func (n *Note) HasEmbedding() bool {
	return n != nil && len(n.Embedding) > 0
}

// Clone returns a deep copy of the note.
func (n *Note) Clone() *Note {
	if n == nil {
		return nil
	}
	c := *n
	if n.Insights != nil {
		c.Insights = append([]string(nil), n.Insights...)
	}
	if n.Embedding != nil {
		c.Embedding = append([]float32(nil), n.Embedding...)
	}
	if n.CompletedAt != nil {
		t := *n.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}

// RelatedNote is a note ranked by similarity to a source note.
type RelatedNote struct {
	Note       *Note   `json:"note"`
	Similarity float64 `json:"similarity"`
}

// NoteMatch is one row of the store's similarity query.
type NoteMatch struct {
	ID         string
	Similarity float64
}

// MatchQuery is a similarity query scoped to one user.
type MatchQuery struct {
	Embedding []float32
	UserID    string
	ExcludeID string
	Threshold float64
	Count     int
}
