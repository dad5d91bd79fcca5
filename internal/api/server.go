// Package api serves the posts REST API, the form pages and the change event stream.
package api

import (
	"embed"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/debemdeboas/postboard/internal/config"
	"github.com/debemdeboas/postboard/internal/repository"
	"github.com/debemdeboas/postboard/internal/sse"
)

//go:embed templates/*
var content embed.FS

var apiLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	apiLogger = l
}

type Server struct {
	repo    repository.PostRepository
	clients *sse.Clients

	syntaxTheme string
}

func NewServer(repo repository.PostRepository, clients *sse.Clients, syntaxTheme string) *Server {
	if clients == nil {
		clients = sse.NewClients()
	}
	if syntaxTheme == "" {
		syntaxTheme = config.DefaultSyntaxTheme
	}

	return &Server{
		repo:        repo,
		clients:     clients,
		syntaxTheme: syntaxTheme,
	}
}

// NotifyChange forwards a repository change to the event stream subscribers.
func (s *Server) NotifyChange(c repository.Change) {
	s.clients.Broadcast(c.ID, c.String())
}

// Handler returns the full route table wrapped in the common middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /robots.txt", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(config.HCType, config.CTypeText)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("User-agent: *\nDisallow:"))
	})

	mux.HandleFunc("GET "+config.APIPostsPath, s.listPosts)
	mux.HandleFunc("POST "+config.APIPostsPath, s.createPost)
	mux.HandleFunc("GET "+config.APIPostsPath+"/{id}", s.getPost)
	mux.HandleFunc("PUT "+config.APIPostsPath+"/{id}", s.updatePost)
	mux.HandleFunc("DELETE "+config.APIPostsPath+"/{id}", s.deletePost)

	mux.HandleFunc("GET "+config.SSEPath, s.events)

	mux.HandleFunc("GET /{$}", s.serveIndex)
	mux.HandleFunc("GET "+config.PostsSavePath, s.servePostsSave)
	mux.HandleFunc("GET "+config.PostsUpdatePath+"{id}", s.servePostsUpdate)
	mux.HandleFunc("GET "+config.PostsViewPath+"{id}", s.servePost)

	return logRequests(cacheIt(secureHeaders(mux)))
}
