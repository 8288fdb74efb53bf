package output

import (
	"encoding/json"
	"io"
	"time"

	"github.com/ancients-collective/hostready/internal/types"
)

// JSONLFormatter writes a probe report as newline-delimited JSON.
// The first line is a header with the verdict; each outcome and note
// follows on its own line.
type JSONLFormatter struct{}

// Write renders the header line, one line per outcome and one per note.
func (f *JSONLFormatter) Write(w io.Writer, report *types.ProbeReport) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	passed, failed := report.Counts()
	header := struct {
		Type       string              `json:"type"`
		Version    string              `json:"version,omitempty"`
		Timestamp  string              `json:"timestamp"`
		Subject    string              `json:"subject"`
		Status     types.Status        `json:"status"`
		ExitCode   int                 `json:"exit_code"`
		Passed     int                 `json:"passed"`
		Failed     int                 `json:"failed"`
		DurationMS int64               `json:"duration_ms"`
		System     *types.ReportSystem `json:"system,omitempty"`
	}{
		Type:       "header",
		Version:    report.Version,
		Timestamp:  report.Timestamp.Format(time.RFC3339),
		Subject:    report.Subject,
		Status:     report.Status,
		ExitCode:   report.ExitCode(),
		Passed:     passed,
		Failed:     failed,
		DurationMS: report.DurationMS,
		System:     report.System,
	}
	if err := enc.Encode(header); err != nil {
		return err
	}

	for _, o := range report.Outcomes {
		line := struct {
			Type    string             `json:"type"`
			Outcome types.CheckOutcome `json:"outcome"`
		}{Type: "outcome", Outcome: o}
		if err := enc.Encode(line); err != nil {
			return err
		}
	}

	for _, n := range report.Notes {
		line := struct {
			Type string `json:"type"`
			Note string `json:"note"`
		}{Type: "note", Note: n}
		if err := enc.Encode(line); err != nil {
			return err
		}
	}
	return nil
}
