package models

import (
	"fmt"
	"strings"
)

// NoteUpdate is a partial update of a note. Only set fields are applied.
type NoteUpdate struct {
	Title    Optional[string] `json:"title"`
	Content  Optional[string] `json:"content"`
	Category Optional[string] `json:"category"`
	IsTask   Optional[bool]   `json:"is_task"`
	Organize bool             `json:"organize"`
}

// IsEmpty reports whether the update changes nothing.
func (u NoteUpdate) IsEmpty() bool {
	return !u.Title.IsSet() && !u.Content.IsSet() && !u.Category.IsSet() && !u.IsTask.IsSet() && !u.Organize
}

// Validate checks the update before it is applied.
func (u NoteUpdate) Validate() error {
	if u.IsEmpty() {
		return fmt.Errorf("%w: update sets no fields", ErrValidation)
	}
	if c, ok := u.Category.Value(); ok {
		if _, err := ParseCategory(c); err != nil {
			return err
		}
	}
	title, titleSet := u.Title.Value()
	content, contentSet := u.Content.Value()
	if titleSet && contentSet && strings.TrimSpace(title) == "" && strings.TrimSpace(content) == "" {
		return fmt.Errorf("%w: title or content is required", ErrValidation)
	}
	return nil
}

// ContentChanged reports whether applying the update to n changes its content.
func (u NoteUpdate) ContentChanged(n *Note) bool {
	content, ok := u.Content.Value()
	return ok && content != n.Content
}

// NoteInput is the payload for creating a note.
type NoteInput struct {
	UserID   string
	Title    string
	Content  string
	Category string
	IsTask   bool
	Organize bool
}

// Validate rejects a note with neither title nor content and unknown categories.
func (in NoteInput) Validate() error {
	if strings.TrimSpace(in.Title) == "" && strings.TrimSpace(in.Content) == "" {
		return fmt.Errorf("%w: title or content is required", ErrValidation)
	}
	if in.Category != "" {
		if _, err := ParseCategory(in.Category); err != nil {
			return err
		}
	}
	return nil
}
