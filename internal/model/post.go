// Package model defines core data structures and types for the posts application.
package model

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// MaxTitleLength matches the width of the title column.
const MaxTitleLength = 500

type PostID string

type Post struct {
	ID PostID `json:"id"`

	Title   string `json:"title"`
	Author  string `json:"author"`
	Content string `json:"content"`

	// Hash of the stored (compressed) content, used to detect changes.
	ContentHash string `json:"-"`

	CreatedDate  time.Time `json:"created_at"`
	ModifiedDate time.Time `json:"modified_at"`
}

// Update replaces the mutable fields. The author is fixed at creation.
func (p *Post) Update(u PostUpdate) {
	p.Title = u.Title
	p.Content = u.Content
}

// PostDraft is what the save form submits.
type PostDraft struct {
	Title   string `json:"title"`
	Author  string `json:"author"`
	Content string `json:"content"`

	// Date backdates an imported post. It is never part of a request body.
	Date time.Time `json:"-"`
}

// CreatedAt is the draft's date, or now when it has none.
func (d PostDraft) CreatedAt(now time.Time) time.Time {
	if d.Date.IsZero() {
		return now
	}
	return d.Date.UTC()
}

// UpdateBody drops the author; it is never sent on update.
func (d PostDraft) UpdateBody() PostUpdate {
	return PostUpdate{Title: d.Title, Content: d.Content}
}

// PostUpdate is what the update form submits.
type PostUpdate struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// PostCreated is the body returned by create, update and delete.
type PostCreated struct {
	ID PostID `json:"id"`
}

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// Validate enforces the storage constraints on a new post.
func (d PostDraft) Validate() error {
	return validateTitleContent(d.Title, d.Content)
}

// Validate enforces the storage constraints on an update.
func (u PostUpdate) Validate() error {
	return validateTitleContent(u.Title, u.Content)
}

func validateTitleContent(title, content string) error {
	if strings.TrimSpace(title) == "" {
		return &ValidationError{Field: "title", Message: "must not be empty"}
	}
	if n := utf8.RuneCountInString(title); n > MaxTitleLength {
		return &ValidationError{Field: "title", Message: fmt.Sprintf("must be at most %d characters, got %d", MaxTitleLength, n)}
	}
	if strings.TrimSpace(content) == "" {
		return &ValidationError{Field: "content", Message: "must not be empty"}
	}
	return nil
}
