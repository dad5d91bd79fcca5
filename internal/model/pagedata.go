package model

import (
	"html/template"
	"net/http"
	"strings"

	"github.com/debemdeboas/postboard/internal/config"
)

type PageData struct {
	PageTitle string
	PageURL   string

	SyntaxCSS template.CSS
}

func NewPageData(r *http.Request, title string, syntaxCSS template.CSS) *PageData {
	return &PageData{
		PageTitle: title,
		PageURL:   r.URL.Path,
		SyntaxCSS: syntaxCSS,
	}
}

// IsForm reports whether the page carries the post form and therefore needs htmx.
func (pd *PageData) IsForm() bool {
	return pd.PageURL == config.PostsSavePath || strings.HasPrefix(pd.PageURL, config.PostsUpdatePath)
}
