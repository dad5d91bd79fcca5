// Package client sends the form's JSON requests to the posts API over HTTP.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/debemdeboas/postboard/internal/config"
)

var clientLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	clientLogger = l
}

// ErrInvalidResponse is the cause of a RequestFailedError for a 2xx response
// whose body is not JSON.
var ErrInvalidResponse = errors.New("response body is not JSON")

// RequestFailedError is returned for any non-2xx response, for a 2xx response
// without a JSON body and for transport failures, in which case Status is 0
// and ResponseText holds the error text.
type RequestFailedError struct {
	Method       string
	URL          string
	Status       int
	StatusText   string
	ResponseText string

	cause error
}

func (e *RequestFailedError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%s %s failed: %s", e.Method, e.URL, e.ResponseText)
	}
	return fmt.Sprintf("%s %s failed: %d %s", e.Method, e.URL, e.Status, e.StatusText)
}

func (e *RequestFailedError) Unwrap() error {
	return e.cause
}

func (e *RequestFailedError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Method       string `json:"method"`
		URL          string `json:"url"`
		Status       int    `json:"status"`
		StatusText   string `json:"statusText"`
		ResponseText string `json:"responseText"`
	}{e.Method, e.URL, e.Status, e.StatusText, e.ResponseText})
}

type HTTPRequester struct {
	baseURL *url.URL
	client  *http.Client
}

// NewHTTPRequester resolves every request path against baseURL.
// A zero timeout means requests never time out on their own.
func NewHTTPRequester(baseURL string, timeout time.Duration) (*HTTPRequester, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url %q: %w", baseURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base url %q: scheme and host are required", baseURL)
	}

	return &HTTPRequester{
		baseURL: u,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

// WithHTTPClient replaces the underlying client.
func (r *HTTPRequester) WithHTTPClient(c *http.Client) *HTTPRequester {
	r.client = c
	return r
}

func (r *HTTPRequester) resolve(path string) (string, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return "", err
	}

	// Keep a base path prefix such as http://host/app when the path is absolute
	if strings.HasPrefix(path, "/") && r.baseURL.Path != "" && r.baseURL.Path != "/" {
		ref.Path = strings.TrimSuffix(r.baseURL.Path, "/") + ref.Path
		if ref.RawPath != "" {
			ref.RawPath = strings.TrimSuffix(r.baseURL.EscapedPath(), "/") + ref.RawPath
		}
	}
	return r.baseURL.ResolveReference(ref).String(), nil
}

func (r *HTTPRequester) Request(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	target, err := r.resolve(path)
	if err != nil {
		return nil, &RequestFailedError{Method: method, URL: path, ResponseText: err.Error(), cause: err}
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, &RequestFailedError{Method: method, URL: target, ResponseText: err.Error(), cause: err}
	}
	if body != nil {
		req.Header.Set(config.HCType, config.CTypeJSON)
	}
	req.Header.Set(config.HAccept, config.AcceptJSON)

	start := time.Now()
	resp, err := r.client.Do(req)
	if err != nil {
		clientLogger.Debug().Err(err).Str("method", method).Str("url", target).Msg("Request failed")
		return nil, &RequestFailedError{Method: method, URL: target, ResponseText: err.Error(), cause: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &RequestFailedError{
			Method:       method,
			URL:          target,
			Status:       resp.StatusCode,
			StatusText:   http.StatusText(resp.StatusCode),
			ResponseText: err.Error(),
			cause:        err,
		}
	}

	clientLogger.Debug().
		Str("method", method).
		Str("url", target).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("Request done")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &RequestFailedError{
			Method:       method,
			URL:          target,
			Status:       resp.StatusCode,
			StatusText:   http.StatusText(resp.StatusCode),
			ResponseText: string(data),
		}
	}

	// A success must carry a JSON body unless it is 204 No Content.
	if resp.StatusCode != http.StatusNoContent && !json.Valid(data) {
		return nil, &RequestFailedError{
			Method:       method,
			URL:          target,
			Status:       resp.StatusCode,
			StatusText:   http.StatusText(resp.StatusCode),
			ResponseText: string(data),
			cause:        ErrInvalidResponse,
		}
	}

	return data, nil
}
