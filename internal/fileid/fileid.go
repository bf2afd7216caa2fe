// Package fileid derives stable ids for source documents.
package fileid

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
)

const (
	filePrefix = "file:"
	textPrefix = "text:"
	// hex digits kept from the digest
	idLength = 32
)

// FileDocID returns a stable id for the document at path. Equivalent spellings of
// the same path (trailing slash, "." segments) give the same id.
func FileDocID(path string) string {
	return filePrefix + digest([]byte(filepath.Clean(path)))
}

// TextDocID returns a stable id for a document supplied as text rather than a file.
func TextDocID(text string) string {
	return textPrefix + digest([]byte(text))
}

func digest(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])[:idLength]
}
