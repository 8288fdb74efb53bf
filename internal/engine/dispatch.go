package engine

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/multierr"

	"github.com/ancients-collective/hostready/internal/types"
)

var (
	// ErrMissingParameter is returned when a selected check lacks its input.
	ErrMissingParameter = errors.New("missing required parameter")

	// ErrWrongVantageHost is returned when a profile restricted to one host
	// is run from another.
	ErrWrongVantageHost = errors.New("wrong vantage host")

	// ErrUnknownCheck is returned for check ids outside the registry.
	ErrUnknownCheck = errors.New("unknown check")
)

// AllChecks lists every check id in registry order.
var AllChecks = []types.CheckID{
	types.CheckFilesystem,
	types.CheckIngress,
	types.CheckEtcHosts,
	types.CheckCerts,
	types.CheckTimezone,
	types.CheckInstanceType,
	types.CheckDNS,
	types.CheckService,
}

var hostChecks = []types.CheckID{
	types.CheckInstanceType,
	types.CheckFilesystem,
	types.CheckIngress,
	types.CheckEtcHosts,
	types.CheckCerts,
	types.CheckTimezone,
}

var serviceHostChecks = []types.CheckID{
	types.CheckInstanceType,
	types.CheckIngress,
	types.CheckCerts,
	types.CheckTimezone,
}

var defaultPlans = map[types.MachineType][]types.CheckID{
	types.MachineBastion: {types.CheckIngress},
	types.MachineKafka:   hostChecks,
	types.MachineStriim:  hostChecks,
	types.MachinePSQL:    hostChecks,
	types.MachineEMR:     hostChecks,
	types.MachineRedis:   serviceHostChecks,
	types.MachinePSQL2:   serviceHostChecks,
	types.MachineDNS:     {types.CheckDNS},
}

// DefaultPlan returns the checks a machine type runs when its profile has
// no override. The returned slice is a copy.
func DefaultPlan(mt types.MachineType) ([]types.CheckID, bool) {
	plan, ok := defaultPlans[mt]
	if !ok {
		return nil, false
	}
	return append([]types.CheckID(nil), plan...), true
}

// Plan is the dispatcher's output: the ordered checks and their inputs.
type Plan struct {
	Subject string
	Checks  []types.CheckID
	Params  Params
}

// PlanFor selects the checks for a profile and resolves their parameters.
// Every configuration problem is reported here, before any check runs.
// hostname is the detected host name, used for the vantage-host rule.
func PlanFor(profile types.MachineProfile, hostname string) (Plan, error) {
	checks, ok := DefaultPlan(profile.Type)
	if !ok {
		return Plan{}, fmt.Errorf("%w: %q", types.ErrUnknownMachineType, profile.Type)
	}

	var errs error
	if len(profile.Checks) > 0 {
		checks = checks[:0]
		for _, c := range profile.Checks {
			id := types.CheckID(c)
			if !knownCheck(id) {
				errs = multierr.Append(errs, fmt.Errorf("%w: %q", ErrUnknownCheck, c))
				continue
			}
			checks = append(checks, id)
		}
	}

	if profile.VantageHost != "" && !sameHost(hostname, profile.VantageHost) {
		errs = multierr.Append(errs, fmt.Errorf("%w: %s checks must run from %s, this is %q",
			ErrWrongVantageHost, profile.Type, profile.VantageHost, hostname))
	}

	params := paramsFrom(profile)
	for _, id := range checks {
		if field, ok := missingParameter(id, params); !ok {
			errs = multierr.Append(errs, fmt.Errorf("%w: check %s needs %s for type %s",
				ErrMissingParameter, id, field, profile.Type))
		}
	}
	if errs != nil {
		return Plan{}, errs
	}

	return Plan{Subject: string(profile.Type), Checks: checks, Params: params}, nil
}

func paramsFrom(profile types.MachineProfile) Params {
	hw := profile.Hardware
	return Params{
		Mounts:       hw.FS,
		Ports:        hw.Ingress,
		CertsPath:    hw.Certs,
		Timezone:     hw.TZ,
		InstanceType: hw.InstanceType,
		FQDN:         hw.FQDN,
		FQDNs:        profile.FQDNs,
		Services:     hw.Services,
	}
}

// missingParameter reports the profile field a check needs, and whether it is set.
func missingParameter(id types.CheckID, p Params) (string, bool) {
	switch id {
	case types.CheckFilesystem:
		return "hardware.fs", len(p.Mounts) > 0
	case types.CheckIngress:
		return "hardware.ingress", len(p.Ports) > 0
	case types.CheckCerts:
		return "hardware.certs", p.CertsPath != ""
	case types.CheckTimezone:
		return "hardware.tz", p.Timezone != ""
	case types.CheckInstanceType:
		return "hardware.instance_type", p.InstanceType != ""
	case types.CheckDNS:
		return "fqdns", len(p.FQDNs) > 0
	case types.CheckService:
		return "hardware.services", len(p.Services) > 0
	default:
		// etc-hosts falls back to the local-hostname fact
		return "", true
	}
}

func knownCheck(id types.CheckID) bool {
	for _, c := range AllChecks {
		if c == id {
			return true
		}
	}
	return false
}

// sameHost compares host names case-insensitively. When either side is a
// short name only the first labels are compared.
func sameHost(a, b string) bool {
	a = strings.TrimSuffix(strings.ToLower(a), ".")
	b = strings.TrimSuffix(strings.ToLower(b), ".")
	if a == "" || b == "" {
		return false
	}
	if a == b {
		return true
	}
	if strings.Contains(a, ".") && strings.Contains(b, ".") {
		return false
	}
	shortA, _, _ := strings.Cut(a, ".")
	shortB, _, _ := strings.Cut(b, ".")
	return shortA == shortB
}
