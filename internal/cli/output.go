// Package cli formats pipeline results for the docagent command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/hyperjump/docagent/internal/models"
	"github.com/hyperjump/docagent/internal/pipeline"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// FailedAnswer is printed when no answer could be generated.
const FailedAnswer = "Failed to generate answer."

// ParseOutputFormat validates a --output value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case OutputText, "":
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("%w: unknown output format %q (want text or json)", models.ErrConfig, s)
	}
}

// StatusReport is what the status command prints.
type StatusReport struct {
	*pipeline.Status
	DatabasePath   string `json:"database_path"`
	DiskUsageBytes int64  `json:"disk_usage_bytes"`
}

// WriteAskResult writes the retrieved chunks, the detected intent and the answer.
func WriteAskResult(w io.Writer, res *models.AskResult, format OutputFormat) error {
	if format == OutputJSON {
		return WriteJSON(w, res)
	}
	st := stylesFor(w)
	fmt.Fprintln(w, st.Heading("Retrieved Chunks:"))
	if len(res.Chunks) == 0 {
		fmt.Fprintln(w, "\n(none)")
	}
	for i, chunk := range res.Chunks {
		fmt.Fprintf(w, "\n%s\n%s\n", st.Heading(fmt.Sprintf("Chunk %d:", i+1)), chunk)
	}
	fmt.Fprintf(w, "\n%s\n", st.Plan("[plan] intent → "+res.Intent.String()))
	fmt.Fprintf(w, "\n%s\n", st.Heading("--- Answer ---"))
	text := AnswerText(res.Answer)
	if text == FailedAnswer {
		text = st.Failed(text)
	}
	fmt.Fprintln(w, text)
	return nil
}

// AnswerText is the answer as shown to a user.
func AnswerText(a models.Answer) string {
	if !a.OK || a.Text == "" {
		return FailedAnswer
	}
	return a.Text
}

// WriteIngestResult reports what an ingest did.
func WriteIngestResult(w io.Writer, res *models.IngestResult, format OutputFormat) error {
	if format == OutputJSON {
		return WriteJSON(w, res)
	}
	switch {
	case res.Skipped():
		fmt.Fprintf(w, "Collection %q already populated; %d chunks not added.\n", res.Collection, res.Chunks)
	default:
		fmt.Fprintf(w, "Added %d chunks to collection %q (document %s).\n", res.Inserted, res.Collection, res.DocumentID)
	}
	return nil
}

// WriteStatus writes the collection status.
func WriteStatus(w io.Writer, rep *StatusReport, format OutputFormat) error {
	if format == OutputJSON {
		return WriteJSON(w, rep)
	}
	fmt.Fprintf(w, "Collection: %s\n", rep.Collection)
	if !rep.Exists {
		fmt.Fprintln(w, "Status:     not created")
	} else {
		fmt.Fprintf(w, "Entries:    %d\n", rep.Entries)
		fmt.Fprintf(w, "Embedder:   %s (%d dimensions)\n", rep.EmbedderName, rep.Dimensions)
		if rep.SourceID != "" {
			fmt.Fprintf(w, "Source:     %s\n", rep.SourceID)
		}
		if !rep.CreatedAt.IsZero() {
			fmt.Fprintf(w, "Created:    %s\n", rep.CreatedAt.Format(time.RFC3339))
		}
	}
	fmt.Fprintf(w, "Database:   %s (%s)\n", rep.DatabasePath, FormatBytes(rep.DiskUsageBytes))
	return nil
}

// FormatBytes renders n using binary units.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
