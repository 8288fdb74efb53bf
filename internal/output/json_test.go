package output

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/ancients-collective/hostready/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONFormatter_Write(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&JSONFormatter{}).Write(&buf, newTestReport()))

	var got types.ProbeReport
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "kafka", got.Subject)
	assert.Equal(t, types.StatusCritical, got.Status)
	assert.Len(t, got.Outcomes, 3)
	assert.Equal(t, types.CheckFilesystem, got.Outcomes[1].Check)
	assert.Equal(t, types.OutcomeError, got.Outcomes[1].Status)
	require.NotNil(t, got.System)
	assert.Equal(t, "kafka-01", got.System.Hostname)
	assert.True(t, got.Timestamp.Equal(testTimestamp))
}

func TestJSONFormatter_Indented(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&JSONFormatter{}).Write(&buf, newCleanReport()))
	assert.Contains(t, buf.String(), "\n  \"subject\": \"redis\"")
}

func TestJSONFormatter_NoHTMLEscape(t *testing.T) {
	r := newCleanReport()
	r.Notes = []string{"<none> & nothing"}
	var buf bytes.Buffer
	require.NoError(t, (&JSONFormatter{}).Write(&buf, r))
	assert.Contains(t, buf.String(), "<none> & nothing")
}

func TestJSONFormatter_OmitsEmptySystem(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&JSONFormatter{}).Write(&buf, newUnreachableReport()))

	var raw map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &raw))
	assert.NotContains(t, raw, "system")
	assert.NotContains(t, raw, "notes")
	assert.Equal(t, "HOST UNREACHABLE", raw["trace"])
}
