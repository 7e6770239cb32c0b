package resume

import (
	"errors"
	"fmt"
	"html"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/nguyenthenguyen/docx"

	"github.com/amishk599/jobsieve/internal/extract"
	"github.com/amishk599/jobsieve/internal/model"
)

var (
	paragraphEnd = regexp.MustCompile(`</w:p>|<w:br[^>]*/>|<w:cr[^>]*/>`)
	tabTag       = regexp.MustCompile(`<w:tab[^>]*/>`)
	xmlTag       = regexp.MustCompile(`<[^>]*>`)
)

// Load reads the resume at path. Word documents (.docx) are reduced to their
// paragraph text; any other file is read as UTF-8 text. A missing or empty
// file yields an error wrapping model.ErrMissingReferenceDocument.
func Load(path string) (string, error) {
	var (
		text string
		err  error
	)
	if strings.EqualFold(filepath.Ext(path), ".docx") {
		text, err = loadDocx(path)
	} else {
		text, err = loadText(path)
	}
	if err != nil {
		return "", err
	}

	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("resume %s is empty: %w", path, model.ErrMissingReferenceDocument)
	}
	return text, nil
}

func loadText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("resume %s not found: %w", path, model.ErrMissingReferenceDocument)
	}
	if err != nil {
		return "", fmt.Errorf("reading resume: %w", err)
	}
	return string(data), nil
}

func loadDocx(path string) (string, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("resume %s not found: %w", path, model.ErrMissingReferenceDocument)
	}

	r, err := docx.ReadDocxFile(path)
	if err != nil {
		return "", fmt.Errorf("opening docx resume: %w", err)
	}
	defer r.Close()

	return docxText(r.Editable().GetContent()), nil
}

// docxText strips WordprocessingML markup, keeping paragraph and line breaks.
func docxText(content string) string {
	s := paragraphEnd.ReplaceAllString(content, "\n")
	s = tabTag.ReplaceAllString(s, " ")
	s = xmlTag.ReplaceAllString(s, "")
	s = html.UnescapeString(s)
	return extract.Normalize(s)
}
