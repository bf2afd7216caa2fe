package indexer

import (
	"strings"
	"unicode"
)

// Preprocess normalizes extracted text before chunking: it trims the ends and
// collapses every run of whitespace into a single space. Chunk offsets are
// defined against the preprocessed text.
func Preprocess(text string) string {
	text = strings.TrimSpace(text)
	var b strings.Builder
	b.Grow(len(text))
	wasSpace := false
	for _, r := range text {
		if unicode.IsSpace(r) {
			if !wasSpace {
				b.WriteRune(' ')
				wasSpace = true
			}
		} else {
			b.WriteRune(r)
			wasSpace = false
		}
	}
	return b.String()
}
