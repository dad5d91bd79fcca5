package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/debemdeboas/postboard/internal/client"
	"github.com/debemdeboas/postboard/internal/db"
	"github.com/debemdeboas/postboard/internal/form"
	"github.com/debemdeboas/postboard/internal/form/term"
	"github.com/debemdeboas/postboard/internal/model"
	"github.com/debemdeboas/postboard/internal/repository"
	"github.com/debemdeboas/postboard/internal/sse"
)

func newTestServer(t *testing.T) (*Server, *repository.DBPostRepository) {
	t.Helper()

	quiet := zerolog.New(os.Stdout).Level(zerolog.Disabled)
	SetLogger(quiet)
	db.SetLogger(quiet)
	repository.SetLogger(quiet)

	testDB := db.NewSQLite(":memory:")
	require.NoError(t, testDB.InitDB())
	t.Cleanup(func() { testDB.Close() })

	repo := repository.NewDBPostRepository(testDB, nil)
	require.NoError(t, repo.Init(context.Background()))

	srv := NewServer(repo, sse.NewClients(), "")
	repo.SetChangeNotifier(srv.NotifyChange)
	return srv, repo
}

func do(t *testing.T, h http.Handler, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorBody {
	t.Helper()
	var body ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func TestCreatePost(t *testing.T) {
	srv, repo := newTestServer(t)
	h := srv.Handler()

	rec := do(t, h, http.MethodPost, "/api/v1/posts", `{"title":"Hello","author":"Bob","content":"World"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))

	var created model.PostCreated
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotEmpty(t, created.ID)

	post, err := repo.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hello", post.Title)
	assert.Equal(t, "Bob", post.Author)
	assert.Equal(t, "World", post.Content)

	assert.Empty(t, rec.Header().Get("HX-Redirect"), "plain clients are not redirected")
}

func TestCreatePostHtmx(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := do(t, srv.Handler(), http.MethodPost, "/api/v1/posts", `{"title":"Hello","author":"Bob","content":"World"}`,
		"HX-Request", "true")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("HX-Redirect"))
	assert.JSONEq(t, `{"postSaved":"Post created."}`, rec.Header().Get("HX-Trigger"))
}

func TestCreatePostRejected(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		message string
	}{
		{"malformed", `{"title":`, "Malformed request body"},
		{"trailing data", `{"title":"a","content":"b"} {}`, "Malformed request body"},
		{"empty title", `{"title":"  ","author":"Bob","content":"World"}`, "invalid title"},
		{"empty content", `{"title":"Hello","author":"Bob","content":""}`, "invalid content"},
		{"long title", `{"title":"` + strings.Repeat("x", model.MaxTitleLength+1) + `","content":"c"}`, "at most 500"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, repo := newTestServer(t)

			rec := do(t, srv.Handler(), http.MethodPost, "/api/v1/posts", tt.body)
			require.Equal(t, http.StatusBadRequest, rec.Code)

			body := decodeError(t, rec)
			assert.Equal(t, http.StatusBadRequest, body.Status)
			assert.Equal(t, "Bad Request", body.Error)
			assert.Contains(t, body.Message, tt.message)
			assert.Equal(t, "/api/v1/posts", body.Path)
			assert.False(t, body.Timestamp.IsZero())

			posts, _ := repo.List(context.Background())
			assert.Empty(t, posts)
		})
	}
}

func TestUpdatePost(t *testing.T) {
	srv, repo := newTestServer(t)
	ctx := context.Background()

	post, err := repo.Create(ctx, model.PostDraft{Title: "Old", Author: "Bob", Content: "Old body"})
	require.NoError(t, err)

	// The author is ignored on update
	rec := do(t, srv.Handler(), http.MethodPut, "/api/v1/posts/"+string(post.ID), `{"title":"New","content":"Body","author":"Eve"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"id":"`+string(post.ID)+`"}`, rec.Body.String())

	got, err := repo.Get(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "New", got.Title)
	assert.Equal(t, "Body", got.Content)
	assert.Equal(t, "Bob", got.Author)
}

func TestUpdateMissingPost(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := do(t, srv.Handler(), http.MethodPut, "/api/v1/posts/42", `{"title":"New","content":"Body"}`)
	require.Equal(t, http.StatusNotFound, rec.Code)

	body := decodeError(t, rec)
	assert.Equal(t, "Post not found", body.Message)
	assert.Equal(t, "/api/v1/posts/42", body.Path)
}

func TestDeletePost(t *testing.T) {
	srv, repo := newTestServer(t)
	ctx := context.Background()

	post, err := repo.Create(ctx, model.PostDraft{Title: "t", Content: "c"})
	require.NoError(t, err)

	rec := do(t, srv.Handler(), http.MethodDelete, "/api/v1/posts/"+string(post.ID), "")
	require.Equal(t, http.StatusOK, rec.Code)

	_, err = repo.Get(ctx, post.ID)
	assert.ErrorIs(t, err, repository.ErrPostNotFound)

	rec = do(t, srv.Handler(), http.MethodDelete, "/api/v1/posts/"+string(post.ID), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetAndListPosts(t *testing.T) {
	srv, repo := newTestServer(t)
	ctx := context.Background()
	h := srv.Handler()

	first, err := repo.Create(ctx, model.PostDraft{Title: "first", Content: "1"})
	require.NoError(t, err)
	time.Sleep(10 * time.Millisecond)
	second, err := repo.Create(ctx, model.PostDraft{Title: "second", Content: "2"})
	require.NoError(t, err)

	rec := do(t, h, http.MethodGet, "/api/v1/posts/"+string(first.ID), "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got model.Post
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "first", got.Title)
	assert.NotContains(t, rec.Body.String(), "content_hash")

	rec = do(t, h, http.MethodGet, "/api/v1/posts", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []model.Post
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)

	rec = do(t, h, http.MethodGet, "/api/v1/posts/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := do(t, srv.Handler(), http.MethodPatch, "/api/v1/posts/1", `{}`)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

type failingRepo struct {
	repository.PostRepository
}

func (failingRepo) List(context.Context) ([]model.Post, error) {
	return nil, errors.New("disk on fire")
}

func (failingRepo) Create(context.Context, model.PostDraft) (*model.Post, error) {
	return nil, errors.New("disk on fire")
}

func (failingRepo) Get(context.Context, model.PostID) (*model.Post, error) {
	return nil, errors.New("disk on fire")
}

func TestInternalErrors(t *testing.T) {
	SetLogger(zerolog.New(os.Stdout).Level(zerolog.Disabled))
	h := NewServer(failingRepo{}, nil, "").Handler()

	rec := do(t, h, http.MethodPost, "/api/v1/posts", `{"title":"a","content":"b"}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, "Internal server error", body.Message)
	assert.NotContains(t, rec.Body.String(), "disk on fire")

	rec = do(t, h, http.MethodGet, "/api/v1/posts", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	rec = do(t, h, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	for _, path := range []string{"/posts/update/1", "/posts/1"} {
		rec = do(t, h, http.MethodGet, path, "")
		assert.Equal(t, http.StatusInternalServerError, rec.Code, path)
		assert.NotContains(t, rec.Body.String(), "disk on fire", path)
	}
}

func TestCommonHeaders(t *testing.T) {
	srv, _ := newTestServer(t)

	for _, path := range []string{"/", "/api/v1/posts", "/posts/save", "/robots.txt"} {
		rec := do(t, srv.Handler(), http.MethodGet, path, "")
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"), path)
		assert.Equal(t, "deny", rec.Header().Get("X-Frame-Options"), path)
		assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"), path)
		assert.Equal(t, "1; mode=block", rec.Header().Get("X-XSS-Protection"), path)
	}
}

func TestPages(t *testing.T) {
	srv, repo := newTestServer(t)
	ctx := context.Background()
	h := srv.Handler()

	post, err := repo.Create(ctx, model.PostDraft{Title: "Hello <b>", Author: "Bob", Content: "# Heading\n\n```go\nfmt.Println(1)\n```\n"})
	require.NoError(t, err)

	t.Run("index", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, "/", "")
		require.Equal(t, http.StatusOK, rec.Code)
		body := rec.Body.String()
		assert.Contains(t, body, "Hello &lt;b&gt;")
		assert.Contains(t, body, "/posts/update/"+string(post.ID))
		assert.Contains(t, body, `href="/posts/save"`)
		assert.NotContains(t, body, "htmx.org")
	})

	t.Run("save form", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, "/posts/save", "")
		require.Equal(t, http.StatusOK, rec.Code)
		body := rec.Body.String()
		for _, id := range []string{"btn-save", `id="title"`, `id="author"`, `id="content"`} {
			assert.Contains(t, body, id)
		}
		assert.Contains(t, body, `hx-post="/api/v1/posts"`)
		assert.Contains(t, body, "htmx.org")
	})

	t.Run("update form", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, "/posts/update/"+string(post.ID), "")
		require.Equal(t, http.StatusOK, rec.Code)
		body := rec.Body.String()
		for _, id := range []string{"btn-update", "btn-delete", `value="` + string(post.ID) + `"`} {
			assert.Contains(t, body, id)
		}
		assert.Contains(t, body, `<input type="hidden" id="id" name="id"`)
		assert.Contains(t, body, "e.detail.error")
		assert.Contains(t, body, `hx-put="/api/v1/posts/`+string(post.ID)+`"`)
		assert.Contains(t, body, `hx-delete="/api/v1/posts/`+string(post.ID)+`"`)
	})

	t.Run("update form missing post", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, "/posts/update/missing", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("post view missing post", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, "/posts/missing", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("post view", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, "/posts/"+string(post.ID), "")
		require.Equal(t, http.StatusOK, rec.Code)
		body := rec.Body.String()
		assert.Contains(t, body, "<h1")
		assert.Contains(t, body, "Heading")
		assert.Contains(t, body, `class="highlight"`)
		assert.Contains(t, body, ".chroma")
	})

	t.Run("unknown path", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, "/nope/nope", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestEventsStreamChanges(t *testing.T) {
	srv, repo := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/sse", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	readData := func() string {
		for {
			line, err := reader.ReadString('\n')
			require.NoError(t, err)
			if strings.HasPrefix(line, "data: ") {
				return strings.TrimSpace(strings.TrimPrefix(line, "data: "))
			}
		}
	}

	// The client is registered before the greeting is written
	assert.Equal(t, "SSE connection established", readData())

	post, err := repo.Create(context.Background(), model.PostDraft{Title: "t", Content: "c"})
	require.NoError(t, err)
	assert.Equal(t, "created:"+string(post.ID), readData())

	require.NoError(t, repo.Delete(context.Background(), post.ID))
	assert.Equal(t, "deleted:"+string(post.ID), readData())
}

// The form controller, talking over real HTTP to the API, drives the whole flow.
func TestFormControllerAgainstServer(t *testing.T) {
	srv, repo := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	ctx := context.Background()
	client.SetLogger(zerolog.New(os.Stdout).Level(zerolog.Disabled))
	requester, err := client.NewHTTPRequester(ts.URL, 5*time.Second)
	require.NoError(t, err)

	run := func(t *testing.T, fields map[string]string, button string) *term.UI {
		t.Helper()
		ui := term.New(&bytes.Buffer{})
		for k, v := range fields {
			ui.SetValue(k, v)
		}
		form.NewController(ui, requester).Initialize(ctx)
		require.True(t, ui.Click(button))
		return ui
	}

	ui := run(t, map[string]string{form.FieldTitle: "Hello", form.FieldAuthor: "Bob", form.FieldContent: "World"}, form.ButtonSave)
	assert.Equal(t, []string{form.MsgCreated}, ui.Alerts())
	assert.Equal(t, []string{"/"}, ui.Navigations())

	posts, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	id := string(posts[0].ID)

	ui = run(t, map[string]string{form.FieldID: id, form.FieldTitle: "New", form.FieldAuthor: "Eve", form.FieldContent: "Body"}, form.ButtonUpdate)
	assert.Equal(t, []string{form.MsgUpdated}, ui.Alerts())
	got, err := repo.Get(ctx, posts[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "New", got.Title)
	assert.Equal(t, "Bob", got.Author)

	// A rejected update alerts the serialized failure and stays put
	ui = run(t, map[string]string{form.FieldID: id, form.FieldTitle: "", form.FieldContent: "Body"}, form.ButtonUpdate)
	require.Len(t, ui.Alerts(), 1)
	assert.Empty(t, ui.Navigations())
	var failure map[string]any
	require.NoError(t, json.Unmarshal([]byte(ui.Alerts()[0]), &failure))
	assert.Equal(t, float64(http.StatusBadRequest), failure["status"])
	assert.Contains(t, failure["responseText"], "invalid title")

	ui = run(t, map[string]string{form.FieldID: id}, form.ButtonDelete)
	assert.Equal(t, []string{form.MsgDeleted}, ui.Alerts())
	assert.Equal(t, []string{"/"}, ui.Navigations())

	ui = run(t, map[string]string{form.FieldID: id}, form.ButtonDelete)
	require.Len(t, ui.Alerts(), 1)
	assert.Contains(t, ui.Alerts()[0], `"status":404`)
	assert.Empty(t, ui.Navigations())
}
