package util

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/gomarkdown/markdown"
	"github.com/mmarkdown/mmark/v2/mast"
)

var ErrNoFrontMatter = errors.New("no front matter")

var frontMatterDelimiter = []byte("%%%")

// FrontMatter is the TOML block between %%% lines at the top of a markdown file.
type FrontMatter struct {
	*mast.TitleData

	// Body is the markdown after the block.
	Body []byte
}

// AuthorName is the first author's full name, if any.
func (f *FrontMatter) AuthorName() string {
	for _, a := range f.Author {
		if name := strings.TrimSpace(a.Fullname); name != "" {
			return name
		}
	}
	return ""
}

func GetFrontMatter(md []byte) (*FrontMatter, error) {
	md = markdown.NormalizeNewlines(md)
	md = bytes.TrimLeft(md, "\n \t")

	if !bytes.HasPrefix(md, frontMatterDelimiter) {
		return nil, ErrNoFrontMatter
	}

	rest := md[len(frontMatterDelimiter):]
	end := bytes.Index(rest, append([]byte("\n"), frontMatterDelimiter...))
	if end == -1 {
		return nil, fmt.Errorf("unterminated front matter")
	}

	info := &FrontMatter{TitleData: &mast.TitleData{}}
	if _, err := toml.Decode(string(rest[:end]), info.TitleData); err != nil {
		return nil, fmt.Errorf("failed to decode front matter: %w", err)
	}

	body := rest[end+1+len(frontMatterDelimiter):]
	info.Body = bytes.TrimLeft(body, "\n")

	return info, nil
}
