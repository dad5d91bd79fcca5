package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/debemdeboas/postboard/internal/config"
	"github.com/debemdeboas/postboard/internal/form"
	"github.com/debemdeboas/postboard/internal/model"
)

const maxBodyBytes = 1 << 20

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("unexpected data after the JSON object")
	}
	return nil
}

// done answers a successful write. htmx callers get the notice as an event
// and are sent back to the index.
func done(w http.ResponseWriter, r *http.Request, id model.PostID, notice string) {
	if r.Header.Get(config.HHxRequest) == "true" {
		trigger, _ := json.Marshal(map[string]string{"postSaved": notice})
		w.Header().Set(config.HHxTrigger, string(trigger))
		w.Header().Set(config.HHxRedirect, config.RootPath)
	}
	writeJSON(w, http.StatusOK, model.PostCreated{ID: id})
}

func (s *Server) listPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := s.repo.List(r.Context())
	if err != nil {
		writeRepoError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

func (s *Server) getPost(w http.ResponseWriter, r *http.Request) {
	post, err := s.repo.Get(r.Context(), model.PostID(r.PathValue("id")))
	if err != nil {
		writeRepoError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

func (s *Server) createPost(w http.ResponseWriter, r *http.Request) {
	var draft model.PostDraft
	if err := decodeBody(w, r, &draft); err != nil {
		writeError(w, r, http.StatusBadRequest, config.ErrMalformedBody)
		return
	}
	if err := draft.Validate(); err != nil {
		writeRepoError(w, r, err)
		return
	}

	post, err := s.repo.Create(r.Context(), draft)
	if err != nil {
		writeRepoError(w, r, err)
		return
	}

	apiLogger.Info().Str("post_id", string(post.ID)).Msg("Post created")
	done(w, r, post.ID, form.MsgCreated)
}

func (s *Server) updatePost(w http.ResponseWriter, r *http.Request) {
	id := model.PostID(r.PathValue("id"))

	var update model.PostUpdate
	if err := decodeBody(w, r, &update); err != nil {
		writeError(w, r, http.StatusBadRequest, config.ErrMalformedBody)
		return
	}
	if err := update.Validate(); err != nil {
		writeRepoError(w, r, err)
		return
	}

	if _, err := s.repo.Update(r.Context(), id, update); err != nil {
		writeRepoError(w, r, err)
		return
	}

	apiLogger.Info().Str("post_id", string(id)).Msg("Post updated")
	done(w, r, id, form.MsgUpdated)
}

func (s *Server) deletePost(w http.ResponseWriter, r *http.Request) {
	id := model.PostID(r.PathValue("id"))

	if err := s.repo.Delete(r.Context(), id); err != nil {
		writeRepoError(w, r, err)
		return
	}

	apiLogger.Info().Str("post_id", string(id)).Msg("Post deleted")
	done(w, r, id, form.MsgDeleted)
}
