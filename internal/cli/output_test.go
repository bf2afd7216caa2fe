package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/docagent/internal/models"
	"github.com/hyperjump/docagent/internal/pipeline"
)

func askResult(answer models.Answer) *models.AskResult {
	return &models.AskResult{
		RunID:      "run-1",
		Query:      "What are the HR action items?",
		Collection: "rag_collection",
		Intent:     models.IntentExtractHRActions,
		Chunks:     []string{"cme. HR action: renew visa sponsorship.", "Experience: Data Engineer"},
		Answer:     answer,
	}
}

func TestWriteAskResult_Text(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteAskResult(&buf, askResult(models.Answer{Text: "- Renew visa", OK: true}), OutputText))
	out := buf.String()

	assert.Contains(t, out, "Chunk 1:\ncme. HR action: renew visa sponsorship.\n")
	assert.Contains(t, out, "Chunk 2:\nExperience: Data Engineer\n")
	assert.Contains(t, out, "[plan] intent → extract_hr")
	assert.True(t, strings.HasSuffix(out, "--- Answer ---\n- Renew visa\n"))

	// chunks come before the plan, the plan before the answer
	assert.Less(t, strings.Index(out, "Retrieved Chunks:"), strings.Index(out, "Chunk 1:"))
	assert.Less(t, strings.Index(out, "Chunk 2:"), strings.Index(out, "[plan]"))
	assert.Less(t, strings.Index(out, "[plan]"), strings.Index(out, "--- Answer ---"))
}

func TestWriteAskResult_NoAnswer(t *testing.T) {
	for _, a := range []models.Answer{models.NoAnswer, {Text: "", OK: true}} {
		var buf bytes.Buffer
		require.NoError(t, WriteAskResult(&buf, askResult(a), OutputText))
		assert.Contains(t, buf.String(), "--- Answer ---\n"+FailedAnswer+"\n")
	}
}

func TestWriteAskResult_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteAskResult(&buf, askResult(models.NoAnswer), OutputJSON))
	var decoded models.AskResult
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "run-1", decoded.RunID)
	assert.Equal(t, models.IntentExtractHRActions, decoded.Intent)
	assert.Len(t, decoded.Chunks, 2)
	assert.False(t, decoded.Answer.OK)
}

func TestWriteIngestResult(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteIngestResult(&buf, &models.IngestResult{DocumentID: "file:ab", Collection: "c", Chunks: 3, Inserted: 3}, OutputText))
	assert.Equal(t, "Added 3 chunks to collection \"c\" (document file:ab).\n", buf.String())

	buf.Reset()
	require.NoError(t, WriteIngestResult(&buf, &models.IngestResult{Collection: "c", Chunks: 3}, OutputText))
	assert.Contains(t, buf.String(), "already populated")
}

func TestWriteStatus(t *testing.T) {
	var buf bytes.Buffer
	rep := &StatusReport{
		Status:         &pipeline.Status{Collection: "rag_collection"},
		DatabasePath:   "/tmp/docagent.db",
		DiskUsageBytes: 2048,
	}
	require.NoError(t, WriteStatus(&buf, rep, OutputText))
	assert.Contains(t, buf.String(), "not created")
	assert.Contains(t, buf.String(), "/tmp/docagent.db (2.0 KiB)")

	rep.Status = &pipeline.Status{Collection: "rag_collection", Exists: true, Entries: 5, EmbedderName: "hash-bow", Dimensions: 384}
	buf.Reset()
	require.NoError(t, WriteStatus(&buf, rep, OutputJSON))
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.EqualValues(t, 5, decoded["entries"])
	assert.EqualValues(t, 2048, decoded["disk_usage_bytes"])
	assert.Equal(t, "hash-bow", decoded["embedder_name"])
}

func TestParseOutputFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    OutputFormat
		wantErr bool
	}{
		{"", OutputText, false},
		{"text", OutputText, false},
		{"json", OutputJSON, false},
		{"yaml", "", true},
	}
	for _, tt := range tests {
		got, err := ParseOutputFormat(tt.in)
		if tt.wantErr {
			assert.ErrorIs(t, err, models.ErrConfig)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 B", FormatBytes(512))
	assert.Equal(t, "1.5 KiB", FormatBytes(1536))
	assert.Equal(t, "3.0 MiB", FormatBytes(3*1024*1024))
}

func TestStylesFor_NonTerminal(t *testing.T) {
	var buf bytes.Buffer
	st := stylesFor(&buf)
	assert.False(t, st.enabled)
	assert.Equal(t, "Chunk 1:", st.Heading("Chunk 1:"))

	f, err := os.CreateTemp(t.TempDir(), "out")
	require.NoError(t, err)
	defer f.Close()
	assert.False(t, stylesFor(f).enabled, "regular files are not terminals")
}
