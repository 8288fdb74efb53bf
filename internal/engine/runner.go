package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ancients-collective/hostready/internal/types"
)

// Runner executes a plan sequentially and aggregates the outcomes.
type Runner struct {
	registry *Registry
	log      *zap.Logger
	system   *types.ReportSystem
	version  string
}

// NewRunner creates a Runner over registry.
func NewRunner(registry *Registry, log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{registry: registry, log: log}
}

// WithSystem records the host description in every report.
func (r *Runner) WithSystem(sys *types.ReportSystem) *Runner {
	r.system = sys
	return r
}

// WithVersion records the tool version in every report.
func (r *Runner) WithVersion(v string) *Runner {
	r.version = v
	return r
}

// Run executes every check in the plan, in order. A failing check never
// stops the ones after it.
func (r *Runner) Run(ctx context.Context, plan Plan) *types.ProbeReport {
	start := time.Now()

	var outcomes []types.CheckOutcome
	var notes []string
	for _, id := range plan.Checks {
		res := r.registry.Call(ctx, id, plan.Params)
		for _, o := range res.Outcomes {
			if o.OK() {
				r.log.Info("check passed", zap.String("check", string(o.Check)), zap.String("message", o.Message))
			} else {
				r.log.Warn("check failed", zap.String("check", string(o.Check)), zap.String("message", o.Message))
			}
		}
		outcomes = append(outcomes, res.Outcomes...)
		notes = append(notes, res.Notes...)
	}

	report := Aggregate(plan.Subject, outcomes, notes)
	report.Timestamp = start
	report.DurationMS = time.Since(start).Milliseconds()
	report.System = r.system
	report.Version = r.version
	return report
}

// Aggregate builds a report from outcomes kept in dispatch order. The
// status is OK only when every outcome passed, CRITICAL when any failed,
// and UNKNOWN when there are none.
func Aggregate(subject string, outcomes []types.CheckOutcome, notes []string) *types.ProbeReport {
	status := types.StatusOK
	if len(outcomes) == 0 {
		status = types.StatusUnknown
	}
	for _, o := range outcomes {
		if !o.OK() {
			status = types.StatusCritical
			break
		}
	}
	return &types.ProbeReport{
		Timestamp: time.Now(),
		Subject:   subject,
		Status:    status,
		Trace:     Trace(outcomes),
		Outcomes:  outcomes,
		Notes:     notes,
	}
}

// TraceUnreachable is the trace of a report whose target never answered.
const TraceUnreachable = "HOST UNREACHABLE"

// Unknown builds an UNKNOWN report carrying a single trace line. It is
// used when the target could not be reached at all.
func Unknown(subject, trace string) *types.ProbeReport {
	return &types.ProbeReport{
		Timestamp: time.Now(),
		Subject:   subject,
		Status:    types.StatusUnknown,
		Trace:     trace,
	}
}

// Trace renders one line per outcome: "OK <check>: <message>" or
// "ERROR <check>: <message>".
func Trace(outcomes []types.CheckOutcome) string {
	var b strings.Builder
	for i, o := range outcomes {
		if i > 0 {
			b.WriteByte('\n')
		}
		label := "OK"
		if !o.OK() {
			label = "ERROR"
		}
		fmt.Fprintf(&b, "%s %s: %s", label, o.Check, o.Message)
	}
	return b.String()
}
