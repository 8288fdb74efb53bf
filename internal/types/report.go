package types

import (
	"strings"
	"time"
)

// Status is the overall verdict of a probe, using the monitoring-plugin vocabulary.
type Status string

// Report statuses.
const (
	StatusOK       Status = "OK"
	StatusWarning  Status = "WARNING"
	StatusCritical Status = "CRITICAL"
	StatusUnknown  Status = "UNKNOWN"
)

// Exit codes expected by the external monitoring system.
const (
	ExitOK       = 0
	ExitWarning  = 1
	ExitCritical = 2
	ExitUnknown  = 3
)

// ExitCode maps a status string to a monitoring exit code. Matching ignores
// case and surrounding whitespace; anything unrecognized maps to ExitUnknown.
func ExitCode(status string) int {
	switch Status(strings.ToUpper(strings.TrimSpace(status))) {
	case StatusOK:
		return ExitOK
	case StatusWarning:
		return ExitWarning
	case StatusCritical:
		return ExitCritical
	default:
		return ExitUnknown
	}
}

// ProbeReport is the aggregate of one invocation. It is consumed once, by the
// output formatter and then the exit mapper.
type ProbeReport struct {
	// Version is the hostready version that produced this report.
	Version string `json:"version,omitempty"`

	// Timestamp is when the probe started.
	Timestamp time.Time `json:"timestamp"`

	// Subject names what was probed: a machine type or a collaborator target.
	Subject string `json:"subject"`

	// Status is the overall verdict.
	Status Status `json:"status"`

	// Trace is the ordered, human-readable concatenation of outcome lines.
	Trace string `json:"trace"`

	// Outcomes holds every check outcome in dispatch order.
	Outcomes []CheckOutcome `json:"outcomes"`

	// Notes are informational lines that do not affect the verdict.
	Notes []string `json:"notes,omitempty"`

	// System describes the host the probe ran on, when known.
	System *ReportSystem `json:"system,omitempty"`

	// DurationMS is the total probe duration in milliseconds.
	DurationMS int64 `json:"duration_ms"`
}

// ExitCode returns the monitoring exit code for the report status.
func (r *ProbeReport) ExitCode() int {
	if r == nil {
		return ExitUnknown
	}
	return ExitCode(string(r.Status))
}

// Counts returns the number of passing and failing outcomes.
func (r *ProbeReport) Counts() (passed, failed int) {
	for _, o := range r.Outcomes {
		if o.OK() {
			passed++
		} else {
			failed++
		}
	}
	return passed, failed
}

// ReportSystem describes the host that ran the probe.
type ReportSystem struct {
	Hostname  string `json:"hostname"`
	OS        string `json:"os"`
	OSVersion string `json:"os_version,omitempty"`
	Arch      string `json:"arch"`
	Platform  string `json:"platform,omitempty"`
	EnvType   string `json:"env_type"`
	Runtime   string `json:"env_runtime,omitempty"`
}
