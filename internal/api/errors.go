package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/debemdeboas/postboard/internal/config"
	"github.com/debemdeboas/postboard/internal/model"
	"github.com/debemdeboas/postboard/internal/repository"
)

// ErrorBody is the JSON body of every failed API call.
type ErrorBody struct {
	Status    int       `json:"status"`
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Path      string    `json:"path"`
	Timestamp time.Time `json:"timestamp"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set(config.HCType, config.CTypeJSON)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		apiLogger.Error().Err(err).Msg("Failed to write response")
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	writeJSON(w, status, ErrorBody{
		Status:    status,
		Error:     http.StatusText(status),
		Message:   message,
		Path:      r.URL.Path,
		Timestamp: time.Now().UTC(),
	})
}

// writeRepoError maps repository and validation errors onto status codes.
func writeRepoError(w http.ResponseWriter, r *http.Request, err error) {
	var validation *model.ValidationError
	switch {
	case errors.As(err, &validation):
		writeError(w, r, http.StatusBadRequest, validation.Error())
	case errors.Is(err, repository.ErrPostNotFound):
		writeError(w, r, http.StatusNotFound, config.ErrPostNotFound)
	default:
		apiLogger.Error().Err(err).Str("path", r.URL.Path).Msg("Request failed")
		writeError(w, r, http.StatusInternalServerError, config.ErrInternalServerError)
	}
}
