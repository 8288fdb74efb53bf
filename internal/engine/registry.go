// Package engine contains the host-readiness checks, the machine-type
// dispatcher and the result aggregator.
package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"

	"go.uber.org/zap"

	"github.com/ancients-collective/hostready/internal/facts"
	"github.com/ancients-collective/hostready/internal/shell"
	"github.com/ancients-collective/hostready/internal/types"
)

// DefaultHostsFile is the hosts database read by the etc-hosts check.
const DefaultHostsFile = "/etc/hosts"

// Params are the per-check inputs resolved from a machine profile.
type Params struct {
	Mounts       []string
	Ports        []int
	CertsPath    string
	Timezone     string
	InstanceType string
	FQDN         string
	FQDNs        []string
	Services     []string
}

// Result is what a check produces: one or more outcomes, plus optional
// informational notes that never affect the verdict.
type Result struct {
	Outcomes []types.CheckOutcome
	Notes    []string
}

// CheckFunc is the uniform check signature. Checks never return errors;
// every failure becomes an error outcome.
type CheckFunc func(ctx context.Context, p Params) Result

// Registry holds the checks and the collaborators they read facts from.
type Registry struct {
	checks    map[types.CheckID]CheckFunc
	shell     shell.Runner
	facts     facts.Source
	resolver  Resolver
	hostsFile string
	log       *zap.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithShell sets the command runner used by command-backed checks.
func WithShell(s shell.Runner) Option {
	return func(r *Registry) { r.shell = s }
}

// WithFacts sets the fact source. It is chosen once per run.
func WithFacts(src facts.Source) Option {
	return func(r *Registry) { r.facts = src }
}

// WithResolver sets the resolver used by the dns check.
func WithResolver(res Resolver) Option {
	return func(r *Registry) { r.resolver = res }
}

// WithHostsFile overrides the hosts database path. Relative paths are
// taken from the working directory.
func WithHostsFile(path string) Option {
	return func(r *Registry) {
		if path == "" {
			return
		}
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
		r.hostsFile = path
	}
}

// WithLogger attaches a logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.log = l
		}
	}
}

// NewRegistry creates a registry with every check registered. Without
// options it uses the live system: the default shell allowlist, the live
// fact source and dig for DNS.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		checks:    make(map[types.CheckID]CheckFunc),
		hostsFile: DefaultHostsFile,
		log:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.shell == nil {
		r.shell = shell.New(shell.WithLogger(r.log))
	}
	if r.facts == nil {
		r.facts = facts.NewLiveSource(r.shell, "")
	}
	if r.resolver == nil {
		r.resolver = NewDigResolver(r.shell, "")
	}

	r.checks[types.CheckFilesystem] = r.filesystem
	r.checks[types.CheckIngress] = r.ingress
	r.checks[types.CheckEtcHosts] = r.etcHosts
	r.checks[types.CheckCerts] = r.certs
	r.checks[types.CheckTimezone] = r.timezone
	r.checks[types.CheckInstanceType] = r.instanceType
	r.checks[types.CheckDNS] = r.dns
	r.checks[types.CheckService] = r.service

	return r
}

// Names returns a sorted list of all registered check ids.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.checks))
	for id := range r.checks {
		names = append(names, string(id))
	}
	sort.Strings(names)
	return names
}

// Lookup returns the check registered under id.
func (r *Registry) Lookup(id types.CheckID) (CheckFunc, bool) {
	fn, ok := r.checks[id]
	return fn, ok
}

// Call runs a single check by id. Unknown ids produce an error outcome.
func (r *Registry) Call(ctx context.Context, id types.CheckID, p Params) Result {
	fn, ok := r.checks[id]
	if !ok {
		return failed(id, fmt.Sprintf("unknown check %q", id))
	}
	r.log.Debug("running check", zap.String("check", string(id)))
	res := fn(ctx, p)
	if len(res.Outcomes) == 0 {
		res.Outcomes = []types.CheckOutcome{types.Fail(id, "check produced no outcome")}
	}
	return res
}

func failed(id types.CheckID, msg string) Result {
	return Result{Outcomes: []types.CheckOutcome{types.Fail(id, msg)}}
}

func passed(id types.CheckID, msg string) Result {
	return Result{Outcomes: []types.CheckOutcome{types.Pass(id, msg)}}
}
