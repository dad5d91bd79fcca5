package api

import (
	"errors"
	"html/template"
	"net/http"

	"github.com/debemdeboas/postboard/internal/cache"
	"github.com/debemdeboas/postboard/internal/config"
	"github.com/debemdeboas/postboard/internal/form"
	"github.com/debemdeboas/postboard/internal/model"
	"github.com/debemdeboas/postboard/internal/render"
	"github.com/debemdeboas/postboard/internal/repository"
	"github.com/debemdeboas/postboard/internal/util"
)

var templateCache = cache.NewCache[string, *template.Template]()

func pageTemplate(name string) (*template.Template, error) {
	if tmpl, ok := templateCache.Get(name); ok {
		return tmpl, nil
	}

	tmpl, err := template.ParseFS(content,
		config.TemplatesLocalDir+"/"+config.TemplateLayout,
		config.TemplatesLocalDir+"/"+name,
	)
	if err != nil {
		return nil, err
	}

	templateCache.Set(name, tmpl)
	return tmpl, nil
}

func renderPage(w http.ResponseWriter, name string, data any) {
	tmpl, err := pageTemplate(name)
	if err != nil {
		apiLogger.Error().Err(err).Str("template", name).Msg("Failed to parse template")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set(config.HCType, config.CTypeHTML)
	if err := tmpl.ExecuteTemplate(w, config.TemplateLayout, data); err != nil {
		apiLogger.Error().Err(err).Str("template", name).Msg("Failed to render template")
	}
}

// formPage carries the element ids the form controller binds to.
type formPage struct {
	*model.PageData

	ButtonSave, ButtonUpdate, ButtonDelete string
	FieldID, FieldTitle, FieldAuthor       string
	FieldContent                           string

	APIPostsPath string
	Post         *model.Post
}

func newFormPage(pd *model.PageData, post *model.Post) formPage {
	return formPage{
		PageData:     pd,
		ButtonSave:   form.ButtonSave,
		ButtonUpdate: form.ButtonUpdate,
		ButtonDelete: form.ButtonDelete,
		FieldID:      form.FieldID,
		FieldTitle:   form.FieldTitle,
		FieldAuthor:  form.FieldAuthor,
		FieldContent: form.FieldContent,
		APIPostsPath: config.APIPostsPath,
		Post:         post,
	}
}

func (s *Server) serveIndex(w http.ResponseWriter, r *http.Request) {
	posts, err := s.repo.List(r.Context())
	if err != nil {
		apiLogger.Error().Err(err).Msg("Failed to list posts")
		http.Error(w, config.ErrInternalServerError, http.StatusInternalServerError)
		return
	}

	data := struct {
		*model.PageData
		PostsPath  string
		UpdatePath string
		SavePath   string
		Posts      []model.Post
	}{
		PageData:   model.NewPageData(r, "Posts", ""),
		PostsPath:  config.PostsViewPath,
		UpdatePath: config.PostsUpdatePath,
		SavePath:   config.PostsSavePath,
		Posts:      posts,
	}

	renderPage(w, config.TemplateIndex, data)
}

func (s *Server) servePostsSave(w http.ResponseWriter, r *http.Request) {
	renderPage(w, config.TemplateSave, newFormPage(model.NewPageData(r, "New post", ""), nil))
}

func (s *Server) servePostsUpdate(w http.ResponseWriter, r *http.Request) {
	post, err := s.repo.Get(r.Context(), model.PostID(r.PathValue("id")))
	if err != nil {
		pageError(w, r, err)
		return
	}

	renderPage(w, config.TemplateUpdate, newFormPage(model.NewPageData(r, "Edit post", ""), post))
}

func (s *Server) servePost(w http.ResponseWriter, r *http.Request) {
	post, err := s.repo.Get(r.Context(), model.PostID(r.PathValue("id")))
	if err != nil {
		pageError(w, r, err)
		return
	}

	hash := post.ContentHash
	if hash == "" {
		hash = util.ContentHashString(post.Content)
	}
	html := render.RenderMarkdownCached([]byte(post.Content), hash, s.syntaxTheme)

	data := struct {
		*model.PageData
		Post       *model.Post
		Content    template.HTML
		UpdatePath string
		SSEPath    string
	}{
		PageData:   model.NewPageData(r, post.Title, render.SyntaxCSS(s.syntaxTheme)),
		Post:       post,
		Content:    template.HTML(html),
		UpdatePath: config.PostsUpdatePath,
		SSEPath:    config.SSEPath,
	}

	renderPage(w, config.TemplatePost, data)
}

// pageError answers a failed page lookup: 404 for a missing post, 500 otherwise.
func pageError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, repository.ErrPostNotFound) {
		http.NotFound(w, r)
		return
	}
	apiLogger.Error().Err(err).Str("path", r.URL.Path).Msg("Failed to load post")
	http.Error(w, config.ErrInternalServerError, http.StatusInternalServerError)
}
