// Package output provides formatters that render probe reports in different formats.
package output

import (
	"fmt"
	"io"

	"github.com/ancients-collective/hostready/internal/types"
)

// Output formats.
const (
	FormatPlain = "plain"
	FormatText  = "text"
	FormatJSON  = "json"
	FormatJSONL = "jsonl"
)

// Formats lists the accepted --format values.
var Formats = []string{FormatPlain, FormatText, FormatJSON, FormatJSONL}

// Formatter writes a probe report to the given writer.
type Formatter interface {
	Write(w io.Writer, report *types.ProbeReport) error
}

// New returns the formatter for format. width and dumb only affect text output.
func New(format string, width int, dumb bool) (Formatter, error) {
	switch format {
	case FormatPlain, "":
		return &PlainFormatter{}, nil
	case FormatText:
		return &TextFormatter{Width: width, Dumb: dumb}, nil
	case FormatJSON:
		return &JSONFormatter{}, nil
	case FormatJSONL:
		return &JSONLFormatter{}, nil
	default:
		return nil, fmt.Errorf("unknown output format %q (valid: plain, text, json, jsonl)", format)
	}
}
