package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ancients-collective/hostready/internal/types"
	"github.com/fatih/color"
)

// ─── Layout constants ────────────────────────────────────────────────
//
// Every outcome line follows a fixed column grid:
//
//     col 0    4   6               22
//     │margin│ I │ CHECK NAME      │ MESSAGE ...
//
// Continuation lines of a wrapped message start at colMessage.
//
const (
	colMargin  = 4   // left margin (spaces) for outcome lines
	colName    = 6   // column where the check name starts
	nameWidth  = 16  // padded width of the check name field
	colMessage = 22  // column where the message starts (colName + nameWidth)
	maxLine    = 110 // hard wrap cap, even on ultra-wide terminals
	ruleWidth  = 64  // width of horizontal divider rules
)

// TextFormatter writes a colored, human-readable probe report.
type TextFormatter struct {
	Width int  // terminal width for text wrapping; 0 = unknown
	Dumb  bool // TERM=dumb: use single-char ASCII fallback icons
}

var (
	cBold  = color.New(color.Bold).SprintFunc()
	cGreen = color.New(color.FgGreen).SprintFunc()
	cRed   = color.New(color.FgRed).SprintFunc()
	cDim   = color.New(color.Faint).SprintFunc()

	cRedBold    = color.New(color.FgRed, color.Bold).SprintFunc()
	cGreenBold  = color.New(color.FgGreen, color.Bold).SprintFunc()
	cYellowBold = color.New(color.FgYellow, color.Bold).SprintFunc()
)

// IsDumbTerm returns true when the terminal doesn't support Unicode.
func IsDumbTerm() bool {
	t := os.Getenv("TERM")
	return t == "dumb" || t == ""
}

// wrapWidth returns the effective line width: min(terminal, maxLine).
func (f *TextFormatter) wrapWidth() int {
	if f.Width > 0 && f.Width < maxLine {
		return f.Width
	}
	return maxLine
}

// Write renders the full text report.
func (f *TextFormatter) Write(w io.Writer, report *types.ProbeReport) error {
	f.writeHeader(w, report)
	f.writeSystem(w, report)
	f.writeOutcomes(w, report)
	f.writeNotes(w, report)
	f.writeSummary(w, report)
	fmt.Fprintln(w)
	return nil
}

// ─── Header ──────────────────────────────────────────────────────────

func (f *TextFormatter) writeHeader(w io.Writer, r *types.ProbeReport) {
	fmt.Fprintln(w)
	title := "hostready"
	if r.Version != "" {
		title += " v" + r.Version
	}
	fmt.Fprintf(w, "  %s  %s\n", cBold(title), r.Subject)
	fmt.Fprintf(w, "  %s %s\n", cDim("Probe started:"), r.Timestamp.Format("2006-01-02T15:04:05Z07:00"))
	fmt.Fprintln(w)
}

// ─── System context ──────────────────────────────────────────────────

func (f *TextFormatter) writeSystem(w io.Writer, r *types.ProbeReport) {
	sys := r.System
	if sys == nil {
		return
	}
	fmt.Fprintf(w, "  %s\n", cBold(f.icon("section")+" System"))
	if sys.Hostname != "" {
		fmt.Fprintf(w, "    Host:    %s\n", sys.Hostname)
	}
	fmt.Fprintf(w, "    OS:      %s %s (%s)\n", sys.OS, sys.OSVersion, sys.Arch)
	if sys.Platform != "" {
		fmt.Fprintf(w, "    Distro:  %s\n", sys.Platform)
	}
	env := sys.EnvType
	if sys.Runtime != "" {
		env += fmt.Sprintf(" (%s)", sys.Runtime)
	}
	fmt.Fprintf(w, "    Env:     %s\n", env)
	fmt.Fprintln(w)
}

// ─── Outcomes ────────────────────────────────────────────────────────

func (f *TextFormatter) writeOutcomes(w io.Writer, r *types.ProbeReport) {
	fmt.Fprintf(w, "  %s\n", cBold(f.icon("section")+" Checks"))
	if len(r.Outcomes) == 0 {
		fmt.Fprintf(w, "%s(no checks ran)\n", colPad(colMargin))
		fmt.Fprintln(w)
		return
	}
	for _, o := range r.Outcomes {
		name := string(o.Check)
		if len(name) < nameWidth {
			name += colPad(nameWidth - len(name))
		} else {
			name += " "
		}
		fmt.Fprintf(w, "%s%s %s%s\n",
			colPad(colMargin), f.statusIcon(o), cBold(name), f.wrap(o.Message, colMessage, colMessage))
	}
	fmt.Fprintln(w)
}

// ─── Notes ───────────────────────────────────────────────────────────

func (f *TextFormatter) writeNotes(w io.Writer, r *types.ProbeReport) {
	if len(r.Notes) == 0 {
		return
	}
	fmt.Fprintf(w, "  %s\n", cBold(f.icon("section")+" Notes"))
	for _, n := range r.Notes {
		fmt.Fprintf(w, "%s%s %s\n", colPad(colMargin), cDim(f.icon("info")), f.wrap(n, colName, colName))
	}
	fmt.Fprintln(w)
}

// ─── Summary ─────────────────────────────────────────────────────────

func (f *TextFormatter) writeSummary(w io.Writer, r *types.ProbeReport) {
	rule := cDim(strings.Repeat("─", ruleWidth))
	fmt.Fprintf(w, "  %s\n", rule)

	f.writeVerdict(w, r)

	passed, failed := r.Counts()
	fmt.Fprintf(w, "  %s  %s · %s\n",
		cBold("Summary:"),
		cGreenBold(fmt.Sprintf("%d passed", passed)),
		cRedBold(fmt.Sprintf("%d failed", failed)))

	dur := fmt.Sprintf("%.1fs", float64(r.DurationMS)/1000.0)
	fmt.Fprintf(w, "  %s  %s\n", cDim("Completed in"), cBold(dur))
	fmt.Fprintf(w, "  %s\n", rule)
}

func (f *TextFormatter) writeVerdict(w io.Writer, r *types.ProbeReport) {
	_, failed := r.Counts()
	switch r.Status {
	case types.StatusOK:
		fmt.Fprintf(w, "  %s %s\n", cGreenBold(f.icon("pass")),
			cGreenBold(fmt.Sprintf("OK: %s is ready", r.Subject)))
	case types.StatusCritical:
		fmt.Fprintf(w, "  %s %s\n", cRedBold(f.icon("fail")),
			cRedBold(fmt.Sprintf("CRITICAL: %d check(s) require attention", failed)))
	default:
		fmt.Fprintf(w, "  %s %s\n", cYellowBold(f.icon("warn")),
			cYellowBold(fmt.Sprintf("%s: %s", r.Status, r.Subject)))
	}
}

// ─── Text wrapping ───────────────────────────────────────────────────

func (f *TextFormatter) wrap(text string, startCol, wrapCol int) string {
	w := f.wrapWidth()
	if startCol+len(text) <= w {
		return text
	}

	avail := w - startCol
	if avail < 20 {
		return text
	}

	wrapPad := strings.Repeat(" ", wrapCol)
	words := strings.Fields(text)
	if len(words) == 0 {
		return text
	}

	var b strings.Builder
	lineLen := 0

	for i, word := range words {
		if i == 0 {
			b.WriteString(word)
			lineLen = len(word)
			continue
		}
		if lineLen+1+len(word) > avail {
			b.WriteByte('\n')
			b.WriteString(wrapPad)
			b.WriteString(word)
			lineLen = len(word)
			avail = w - wrapCol
		} else {
			b.WriteByte(' ')
			b.WriteString(word)
			lineLen += 1 + len(word)
		}
	}

	return b.String()
}

// ─── Icons ───────────────────────────────────────────────────────────

func (f *TextFormatter) icon(name string) string {
	if f.Dumb {
		switch name {
		case "pass":
			return "+"
		case "fail":
			return "x"
		case "warn":
			return "!"
		case "info":
			return "i"
		case "section":
			return ">"
		default:
			return "?"
		}
	}
	switch name {
	case "pass":
		return "✓"
	case "fail":
		return "✗"
	case "warn":
		return "⚠"
	case "info":
		return "ℹ"
	case "section":
		return "▸"
	default:
		return "?"
	}
}

func (f *TextFormatter) statusIcon(o types.CheckOutcome) string {
	if o.OK() {
		return cGreen(f.icon("pass"))
	}
	return cRed(f.icon("fail"))
}

func colPad(n int) string {
	return strings.Repeat(" ", n)
}
