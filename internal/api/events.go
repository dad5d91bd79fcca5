package api

import (
	"fmt"
	"net/http"

	"github.com/debemdeboas/postboard/internal/config"
	"github.com/debemdeboas/postboard/internal/model"
	"github.com/debemdeboas/postboard/internal/sse"
)

// events streams change messages ("kind:id"). The optional post query
// parameter limits the stream to one post.
func (s *Server) events(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set(config.HCType, config.CTypeEvent)
	w.Header().Set(config.HCacheControl, "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Del("X-Content-Type-Options")

	client := sse.NewClient(model.PostID(r.URL.Query().Get("post")))
	s.clients.Add(client)
	defer s.clients.Delete(client)

	apiLogger.Debug().Str("post_id", string(client.PostID)).Int("clients", s.clients.Len()).Msg("SSE client connected")

	fmt.Fprintf(w, "event: connected\ndata: SSE connection established\n\n")
	flusher.Flush()

	for {
		select {
		case msg, ok := <-client.Msg:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		case <-r.Context().Done():
			apiLogger.Debug().Msg("SSE client disconnected")
			return
		}
	}
}
