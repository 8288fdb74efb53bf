package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/ancients-collective/hostready/internal/types"
	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	// Disable color for deterministic test output.
	color.NoColor = true
}

func renderText(t *testing.T, report *types.ProbeReport, opts ...func(*TextFormatter)) string {
	t.Helper()
	f := &TextFormatter{}
	for _, opt := range opts {
		opt(f)
	}
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf, report))
	return buf.String()
}

func TestTextFormatter_Write_Clean(t *testing.T) {
	out := renderText(t, newCleanReport())

	assert.Contains(t, out, "hostready v1.0.0")
	assert.Contains(t, out, "OK: redis is ready")
	assert.Contains(t, out, "2 passed")
	assert.Contains(t, out, "0 failed")
	assert.NotContains(t, out, "System")
	assert.NotContains(t, out, "Notes")
}

func TestTextFormatter_Write_WithFailures(t *testing.T) {
	out := renderText(t, newTestReport())

	assert.Contains(t, out, "CRITICAL: 1 check(s) require attention")
	assert.Contains(t, out, "/logs shares a partition with /data")
	assert.Contains(t, out, "2 passed")
	assert.Contains(t, out, "1 failed")
	assert.Contains(t, out, "Completed in")
	assert.Contains(t, out, "1.2s")
}

func TestTextFormatter_Write_System(t *testing.T) {
	out := renderText(t, newTestReport())

	assert.Contains(t, out, "Host:    kafka-01")
	assert.Contains(t, out, "OS:      linux 6.1.0 (amd64)")
	assert.Contains(t, out, "Distro:  amazon")
	assert.Contains(t, out, "Env:     vm (aws-nitro)")
}

func TestTextFormatter_Write_Notes(t *testing.T) {
	out := renderText(t, newTestReport())

	notesIdx := strings.Index(out, "Notes")
	summaryIdx := strings.Index(out, "Summary:")
	require.NotEqual(t, -1, notesIdx)
	assert.Less(t, notesIdx, summaryIdx, "notes should precede the summary")
	assert.Contains(t, out, "8.8 GiB free")
}

func TestTextFormatter_Write_OutcomeOrder(t *testing.T) {
	out := renderText(t, newTestReport())

	first := strings.Index(out, "instance-type")
	second := strings.Index(out, "filesystem")
	third := strings.Index(out, "timezone")
	assert.Less(t, first, second)
	assert.Less(t, second, third)
}

func TestTextFormatter_Write_Unknown(t *testing.T) {
	out := renderText(t, newUnreachableReport())

	assert.Contains(t, out, "(no checks ran)")
	assert.Contains(t, out, "UNKNOWN: kafka-broker")
	assert.NotContains(t, out, "hostready v")
}

func TestTextFormatter_DumbIcons(t *testing.T) {
	out := renderText(t, newTestReport(), func(f *TextFormatter) { f.Dumb = true })

	assert.Contains(t, out, "+ instance-type")
	assert.Contains(t, out, "x filesystem")
	assert.Contains(t, out, "> Checks")
	assert.NotContains(t, out, "✓")
	assert.NotContains(t, out, "▸")
}

func TestTextFormatter_UnicodeIcons(t *testing.T) {
	out := renderText(t, newTestReport())

	assert.Contains(t, out, "✓ instance-type")
	assert.Contains(t, out, "✗ filesystem")
}

func TestTextFormatter_Wrap(t *testing.T) {
	f := &TextFormatter{Width: 50}
	long := "the quick brown fox jumps over the lazy dog and keeps on running far away"
	wrapped := f.wrap(long, colMessage, colMessage)

	lines := strings.Split(wrapped, "\n")
	require.Greater(t, len(lines), 1)
	for _, l := range lines[1:] {
		assert.True(t, strings.HasPrefix(l, colPad(colMessage)))
	}
	assert.Equal(t, long, strings.Join(strings.Fields(wrapped), " "))
}

func TestTextFormatter_Wrap_ShortText(t *testing.T) {
	f := &TextFormatter{Width: 80}
	assert.Equal(t, "short", f.wrap("short", colMessage, colMessage))
}

func TestTextFormatter_WrapWidth(t *testing.T) {
	assert.Equal(t, maxLine, (&TextFormatter{}).wrapWidth())
	assert.Equal(t, 60, (&TextFormatter{Width: 60}).wrapWidth())
	assert.Equal(t, maxLine, (&TextFormatter{Width: 500}).wrapWidth())
}

func TestIsDumbTerm(t *testing.T) {
	t.Setenv("TERM", "dumb")
	assert.True(t, IsDumbTerm())
	t.Setenv("TERM", "")
	assert.True(t, IsDumbTerm())
	t.Setenv("TERM", "xterm-256color")
	assert.False(t, IsDumbTerm())
}
