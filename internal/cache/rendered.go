package cache

import "html/template"

var renderedPostCache = NewCache[string, []byte]()

func renderedKey(contentHash, syntaxTheme string) string {
	return contentHash + ":" + syntaxTheme
}

func GetRenderedPost(contentHash, syntaxTheme string) ([]byte, bool) {
	return renderedPostCache.Get(renderedKey(contentHash, syntaxTheme))
}

func SetRenderedPost(contentHash, syntaxTheme string, html []byte) {
	renderedPostCache.Set(renderedKey(contentHash, syntaxTheme), html)
}

func ClearRenderedPostCache() {
	renderedPostCache.Clear()
}

var syntaxCache = NewCache[string, template.CSS]()

func GetSyntaxCSS(theme string) (template.CSS, bool) {
	return syntaxCache.Get(theme)
}

func SetSyntaxCSS(theme string, css template.CSS) {
	syntaxCache.Set(theme, css)
}
