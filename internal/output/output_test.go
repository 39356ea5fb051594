package output

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriter_Status_PrintsIconAndMessage(t *testing.T) {
	// Given: a writer with a buffer
	buf := &bytes.Buffer{}
	w := New(buf)

	// When: printing a status message
	w.Status("🔍", "Checking cluster...")

	// Then: output contains icon and message
	assert.Equal(t, "🔍 Checking cluster...\n", buf.String())
}

func TestWriter_Status_NoIconIndents(t *testing.T) {
	buf := &bytes.Buffer{}

	New(buf).Status("", "detail")

	assert.Equal(t, "   detail\n", buf.String())
}

func TestWriter_Levels(t *testing.T) {
	tests := []struct {
		name  string
		print func(*Writer)
		want  string
	}{
		{"success", func(w *Writer) { w.Successf("Wrote %s", "config.yaml") }, "✅ Wrote config.yaml\n"},
		{"warning", func(w *Writer) { w.Warningf("%d backups pruned", 2) }, "⚠️  2 backups pruned\n"},
		{"error", func(w *Writer) { w.Errorf("connection %s", "refused") }, "❌ connection refused\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			buf := &bytes.Buffer{}

			tc.print(NewWithColor(buf, false))

			assert.Equal(t, tc.want, buf.String())
		})
	}
}

func TestWriter_Field_AlignsLabels(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewWithColor(buf, false)

	w.Field("status", "green")
	w.Field("number_of_nodes", 3)

	assert.Equal(t, "  status:          green\n  number_of_nodes: 3\n", buf.String())
}

func TestWriter_Fragment_StripsMarkTags(t *testing.T) {
	// Given: a plain writer
	buf := &bytes.Buffer{}
	w := NewWithColor(buf, false)

	// When: printing a fragment with two highlighted terms
	w.Fragment("the <mark>quick</mark> brown <mark>fox</mark>")

	// Then: tags are removed and the text kept
	assert.Equal(t, "    … the quick brown fox\n", buf.String())
}

func TestWriter_Fragment_UnclosedMarkKept(t *testing.T) {
	buf := &bytes.Buffer{}

	NewWithColor(buf, false).Fragment("a <mark>b")

	assert.Equal(t, "    … a <mark>b\n", buf.String())
}

func TestWriter_JSON_Indents(t *testing.T) {
	buf := &bytes.Buffer{}

	require.NoError(t, New(buf).JSON(map[string]int{"count": 42}))

	assert.Equal(t, "{\n  \"count\": 42\n}\n", buf.String())
}

func TestWriter_Code_IndentsLines(t *testing.T) {
	buf := &bytes.Buffer{}

	New(buf).Code("a\nb")

	assert.Equal(t, "\n  a\n  b\n\n", buf.String())
}

func TestWriter_Header(t *testing.T) {
	buf := &bytes.Buffer{}

	NewWithColor(buf, false).Header("Cluster")

	assert.Equal(t, "Cluster\n", buf.String())
}

func TestWriter_Newline_PrintsEmptyLine(t *testing.T) {
	buf := &bytes.Buffer{}

	New(buf).Newline()

	assert.Equal(t, "\n", buf.String())
}

func TestShouldColor_BufferIsNotTTY(t *testing.T) {
	assert.False(t, IsTTY(&bytes.Buffer{}))
	assert.False(t, ShouldColor(&bytes.Buffer{}))
}

func TestShouldColor_NoColorWins(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	assert.True(t, DetectNoColor())
	assert.False(t, ShouldColor(os.Stdout))
}

func TestGetStyles_NoColorRendersPlain(t *testing.T) {
	styles := GetStyles(true)

	assert.Equal(t, "text", styles.Header.Render("text"))
	assert.Equal(t, "text", styles.Error.Render("text"))
}
