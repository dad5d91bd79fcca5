// Package form binds the post form buttons to the posts API.
//
// The controller reads the form through UI and talks to the server through
// Requester; it holds no state of its own between clicks.
package form

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/debemdeboas/postboard/internal/config"
	"github.com/debemdeboas/postboard/internal/model"
)

const (
	ButtonSave   = "btn-save"
	ButtonUpdate = "btn-update"
	ButtonDelete = "btn-delete"

	FieldID      = "id"
	FieldTitle   = "title"
	FieldAuthor  = "author"
	FieldContent = "content"
)

const (
	MsgCreated = "Post created."
	MsgUpdated = "Post updated."
	MsgDeleted = "Post deleted."
)

// UI is the page the controller is attached to.
type UI interface {
	OnClick(elementID string, handler func())
	Value(fieldID string) string
	Alert(message string)
	Navigate(path string)
}

// Requester sends one HTTP request and returns the response body.
// Any non-2xx status or transport failure is an error.
type Requester interface {
	Request(ctx context.Context, method, url string, body []byte) ([]byte, error)
}

type Controller struct {
	ui        UI
	requester Requester
}

func NewController(ui UI, requester Requester) *Controller {
	return &Controller{
		ui:        ui,
		requester: requester,
	}
}

// Initialize registers the three button handlers. Handlers are never removed
// and calling Initialize twice registers them twice.
func (c *Controller) Initialize(ctx context.Context) {
	c.ui.OnClick(ButtonSave, func() {
		_ = c.Create(ctx, c.draft())
	})
	c.ui.OnClick(ButtonUpdate, func() {
		_ = c.Modify(ctx, c.ui.Value(FieldID), c.draft())
	})
	c.ui.OnClick(ButtonDelete, func() {
		_ = c.Remove(ctx, c.ui.Value(FieldID))
	})
}

func (c *Controller) draft() model.PostDraft {
	return model.PostDraft{
		Title:   c.ui.Value(FieldTitle),
		Author:  c.ui.Value(FieldAuthor),
		Content: c.ui.Value(FieldContent),
	}
}

// ItemEndpoint is the URL of one post. The id is path-escaped rather than
// concatenated as is, so an id containing "/" or "?" still names a single
// post: "x/y" becomes "/api/v1/posts/x%2Fy".
func ItemEndpoint(id string) string {
	return config.APIPostsPath + "/" + url.PathEscape(id)
}

// Create posts the whole draft to the collection endpoint.
func (c *Controller) Create(ctx context.Context, draft model.PostDraft) error {
	body, err := json.Marshal(draft)
	if err != nil {
		return c.complete(err, "")
	}
	_, err = c.requester.Request(ctx, http.MethodPost, config.APIPostsPath, body)
	return c.complete(err, MsgCreated)
}

// Modify puts title and content to the item endpoint; the author is not sent.
func (c *Controller) Modify(ctx context.Context, id string, draft model.PostDraft) error {
	body, err := json.Marshal(draft.UpdateBody())
	if err != nil {
		return c.complete(err, "")
	}
	_, err = c.requester.Request(ctx, http.MethodPut, ItemEndpoint(id), body)
	return c.complete(err, MsgUpdated)
}

// Remove deletes the post without a request body.
func (c *Controller) Remove(ctx context.Context, id string) error {
	_, err := c.requester.Request(ctx, http.MethodDelete, ItemEndpoint(id), nil)
	return c.complete(err, MsgDeleted)
}

func (c *Controller) complete(err error, success string) error {
	if err != nil {
		c.ui.Alert(SerializeError(err))
		return err
	}
	c.ui.Alert(success)
	c.ui.Navigate(config.RootPath)
	return nil
}

// SerializeError renders err as JSON, using its own encoding when it has one.
func SerializeError(err error) string {
	var m json.Marshaler
	if errors.As(err, &m) {
		if out, mErr := m.MarshalJSON(); mErr == nil {
			return string(out)
		}
	}

	out, _ := json.Marshal(struct {
		Message string `json:"message"`
	}{err.Error()})
	return string(out)
}
