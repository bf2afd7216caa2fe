package indexer

import (
	"errors"
	"reflect"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/hyperjump/docagent/internal/models"
)

func reassemble(chunks []string, overlap int) string {
	var b strings.Builder
	for i, ch := range chunks {
		if i == 0 {
			b.WriteString(ch)
			continue
		}
		b.WriteString(string([]rune(ch)[overlap:]))
	}
	return b.String()
}

func TestSplit_example(t *testing.T) {
	got, err := Split("ABCDEFGHIJ", 4, 1)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"ABCD", "DEFG", "GHIJ"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Split = %q, want %q", got, want)
	}
}

func TestSplit_table(t *testing.T) {
	tests := []struct {
		name          string
		text          string
		size, overlap int
		want          []string
	}{
		{"no overlap", "abcdef", 2, 0, []string{"ab", "cd", "ef"}},
		{"short tail", "abcde", 4, 1, []string{"abcd", "de"}},
		{"text shorter than window", "abc", 10, 3, []string{"abc"}},
		{"exact fit", "abcd", 4, 2, []string{"abcd"}},
		{"window of one", "abc", 1, 0, []string{"a", "b", "c"}},
		{"max overlap", "abcd", 3, 2, []string{"abc", "bcd"}},
		{"multibyte runes", "héllo wörld", 4, 1, []string{"héll", "lo w", "wörl", "ld"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Split(tt.text, tt.size, tt.overlap)
			if err != nil {
				t.Fatal(err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Split(%q, %d, %d) = %q, want %q", tt.text, tt.size, tt.overlap, got, tt.want)
			}
		})
	}
}

func TestSplit_empty(t *testing.T) {
	got, err := Split("", 5, 1)
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Errorf("empty text should return nil, got %q", got)
	}
}

func TestSplit_invalidConfig(t *testing.T) {
	for _, tc := range []struct{ size, overlap int }{{0, 0}, {-1, 0}, {4, 4}, {4, 5}, {4, -1}} {
		_, err := Split("abc", tc.size, tc.overlap)
		if err == nil {
			t.Errorf("Split(size=%d, overlap=%d) expected error", tc.size, tc.overlap)
			continue
		}
		if !errors.Is(err, models.ErrConfig) {
			t.Errorf("error should wrap ErrConfig, got %v", err)
		}
	}
}

func TestSplit_properties(t *testing.T) {
	text := "Experience: Data Engineer at Acme. HR action: renew visa sponsorship. " +
		"Skills: Go, SQL, Spark. Education: BSc Computer Science. Languages: English, Hindi."
	for size := 1; size <= 30; size++ {
		for overlap := 0; overlap < size; overlap++ {
			chunks, err := Split(text, size, overlap)
			if err != nil {
				t.Fatal(err)
			}
			for i, ch := range chunks {
				if n := utf8.RuneCountInString(ch); n > size || n == 0 {
					t.Fatalf("size=%d overlap=%d chunk %d has %d runes", size, overlap, i, n)
				}
				if i+1 < len(chunks) {
					tail := string([]rune(ch)[size-overlap:])
					head := string([]rune(chunks[i+1])[:overlap])
					if tail != head {
						t.Fatalf("size=%d overlap=%d chunks %d/%d overlap %q != %q", size, overlap, i, i+1, tail, head)
					}
				}
			}
			if got := reassemble(chunks, overlap); got != text {
				t.Fatalf("size=%d overlap=%d round trip mismatch:\n%q\n%q", size, overlap, got, text)
			}
			again, _ := Split(text, size, overlap)
			if !reflect.DeepEqual(chunks, again) {
				t.Fatalf("size=%d overlap=%d not deterministic", size, overlap)
			}
		}
	}
}

func TestChunker_Chunks(t *testing.T) {
	c, err := NewChunker(3, 1)
	if err != nil {
		t.Fatal(err)
	}
	chunks := c.Chunks("one two three")
	if len(chunks) < 2 {
		t.Fatalf("expected at least 2 chunks, got %d", len(chunks))
	}
	for i, ch := range chunks {
		if ch.Index != i {
			t.Errorf("chunk %d Index=%d", i, ch.Index)
		}
		if ch.Text == "" {
			t.Errorf("chunk %d empty", i)
		}
	}
	if c.Chunks("") != nil {
		t.Error("empty text should return nil chunks")
	}
	if c.Size() != 3 || c.Overlap() != 1 {
		t.Errorf("Size/Overlap = %d/%d", c.Size(), c.Overlap())
	}
}

func TestPreprocess(t *testing.T) {
	if Preprocess("  a  b  ") != "a b" {
		t.Error("expected trimmed and collapsed spaces")
	}
	if Preprocess("line1\n\n\tline2") != "line1 line2" {
		t.Errorf("got %q", Preprocess("line1\n\n\tline2"))
	}
	if Preprocess(" \n ") != "" {
		t.Error("whitespace-only text should become empty")
	}
}
