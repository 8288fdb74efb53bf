package output

import (
	"fmt"
	"io"

	"github.com/ancients-collective/hostready/internal/types"
)

// PlainFormatter writes a monitoring-plugin style report: a one-line
// summary followed by the trace and any notes.
type PlainFormatter struct{}

// Write renders the summary line, the trace and the notes.
func (f *PlainFormatter) Write(w io.Writer, report *types.ProbeReport) error {
	passed, failed := report.Counts()
	summary := fmt.Sprintf("%s %s", report.Status, report.Subject)
	if passed+failed > 0 {
		summary += fmt.Sprintf(": %d ok, %d error", passed, failed)
	}
	if _, err := fmt.Fprintln(w, summary); err != nil {
		return err
	}
	if report.Trace != "" {
		if _, err := fmt.Fprintln(w, report.Trace); err != nil {
			return err
		}
	}
	for _, note := range report.Notes {
		if _, err := fmt.Fprintf(w, "NOTE %s\n", note); err != nil {
			return err
		}
	}
	return nil
}
