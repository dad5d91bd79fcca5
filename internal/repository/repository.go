// Package repository stores posts behind a backend-agnostic interface.
package repository

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/debemdeboas/postboard/internal/model"
)

var ErrPostNotFound = errors.New("post not found")

var repoLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	repoLogger = l
}

type ChangeKind string

const (
	ChangeCreated ChangeKind = "created"
	ChangeUpdated ChangeKind = "updated"
	ChangeDeleted ChangeKind = "deleted"
)

type Change struct {
	Kind ChangeKind
	ID   model.PostID
}

func (c Change) String() string {
	return string(c.Kind) + ":" + string(c.ID)
}

type PostRepository interface {
	Init(ctx context.Context) error

	// List returns all posts, most recently modified first.
	List(ctx context.Context) ([]model.Post, error)
	Get(ctx context.Context, id model.PostID) (*model.Post, error)

	Create(ctx context.Context, draft model.PostDraft) (*model.Post, error)
	Update(ctx context.Context, id model.PostID, update model.PostUpdate) (*model.Post, error)
	Delete(ctx context.Context, id model.PostID) error

	// SetChangeNotifier sets a function that will be called after every change.
	SetChangeNotifier(notifier func(Change))
}
