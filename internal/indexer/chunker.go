package indexer

import (
	"fmt"

	"github.com/hyperjump/docagent/internal/models"
)

// Chunker splits text into overlapping fixed-size windows. Sizes are counted in runes.
type Chunker struct {
	chunkSize    int
	chunkOverlap int
}

// NewChunker creates a chunker with the given window size and overlap.
// It requires chunkSize > 0 and 0 <= chunkOverlap < chunkSize.
func NewChunker(chunkSize, chunkOverlap int) (*Chunker, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be > 0, got %d", models.ErrConfig, chunkSize)
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		return nil, fmt.Errorf("%w: chunk overlap must be in [0, %d), got %d", models.ErrConfig, chunkSize, chunkOverlap)
	}
	return &Chunker{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
	}, nil
}

// Split is a convenience for NewChunker(chunkSize, overlap) followed by Split(text).
func Split(text string, chunkSize, overlap int) ([]string, error) {
	c, err := NewChunker(chunkSize, overlap)
	if err != nil {
		return nil, err
	}
	return c.Split(text), nil
}

// Split returns consecutive windows of text. Each window after the first starts
// chunkSize-chunkOverlap runes after the previous one; the last window ends at
// end-of-text and may be shorter. Empty text yields nil.
func (c *Chunker) Split(text string) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	step := c.chunkSize - c.chunkOverlap
	chunks := make([]string, 0, len(runes)/step+1)
	for start := 0; start < len(runes); start += step {
		end := start + c.chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return chunks
}

// Chunks is Split with each window tagged by its position in the document.
func (c *Chunker) Chunks(text string) []models.Chunk {
	parts := c.Split(text)
	if parts == nil {
		return nil
	}
	chunks := make([]models.Chunk, len(parts))
	for i, p := range parts {
		chunks[i] = models.Chunk{Index: i, Text: p}
	}
	return chunks
}

// Size returns the window size.
func (c *Chunker) Size() int { return c.chunkSize }

// Overlap returns the number of runes shared by adjacent windows.
func (c *Chunker) Overlap() int { return c.chunkOverlap }
