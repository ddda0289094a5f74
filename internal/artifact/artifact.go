// Package artifact derives output names from source documents and sanity
// checks downloaded slide decks.
package artifact

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/ledongthuc/pdf"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// Stem returns the output name stem for a source document: the base name
// without its extension, NFC-normalized so names coming off decomposed-form
// volumes compare equal to what the remote service echoes back. The worker
// appends _slides.pdf to the stem and uniquifies on collision.
func Stem(path string) string {
	base := filepath.Base(strings.TrimSpace(path))
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = norm.NFC.String(base)
	if base == "" || base == "." || base == string(filepath.Separator) {
		return "document"
	}
	return base
}

// DisplayTitle renders a human title for notifications and queue tables:
// separators collapse to single spaces and each word is title-cased.
func DisplayTitle(path string) string {
	if strings.TrimSpace(path) == "" {
		return "Untitled Document"
	}
	cleaned := strings.Builder{}
	prevSpace := false
	for _, r := range Stem(path) {
		switch {
		case unicode.IsLetter(r) || unicode.IsNumber(r):
			cleaned.WriteRune(r)
			prevSpace = false
		case unicode.IsSpace(r) || r == '-' || r == '_' || r == '.':
			if !prevSpace {
				cleaned.WriteRune(' ')
				prevSpace = true
			}
		}
	}
	title := strings.TrimSpace(cleaned.String())
	if title == "" {
		return "Untitled Document"
	}
	return cases.Title(language.Und).String(title)
}

// ValidatePDF checks that a downloaded deck is an openable PDF with at
// least one page. Callers decide whether a failure is advisory or fatal.
func ValidatePDF(path string) (err error) {
	// The parser panics on some malformed cross-reference tables; a bad
	// download must not take the daemon down.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parse pdf: %v", r)
		}
	}()

	f, reader, err := pdf.Open(path)
	if err != nil {
		return fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	if reader.NumPage() < 1 {
		return errors.New("pdf has no pages")
	}
	return nil
}
