package engine

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/ancients-collective/hostready/internal/facts"
	"github.com/ancients-collective/hostready/internal/shell"
	"github.com/ancients-collective/hostready/internal/types"
)

// answerMarker is the section header a successful lookup prints.
const answerMarker = "ANSWER SECTION"

// ingress checks that every required port is in the listening-socket table.
func (r *Registry) ingress(ctx context.Context, p Params) Result {
	out, err := r.listeners(ctx)
	if err != nil {
		res := Result{}
		for _, port := range p.Ports {
			res.Outcomes = append(res.Outcomes, types.Fail(types.CheckIngress,
				fmt.Sprintf("cannot list listening sockets to check port %d: %v", port, err)))
		}
		return res
	}

	listening := ListeningPorts(shell.Lines(out))
	var res Result
	for _, port := range p.Ports {
		if listening[port] {
			res.Outcomes = append(res.Outcomes, types.Pass(types.CheckIngress,
				fmt.Sprintf("port %d is listening", port)))
		} else {
			res.Outcomes = append(res.Outcomes, types.Fail(types.CheckIngress,
				fmt.Sprintf("port %d is not listening", port)))
		}
	}
	return res
}

// listeners returns the TCP listening-socket table, falling back to
// netstat when ss cannot be run.
func (r *Registry) listeners(ctx context.Context) (string, error) {
	out, err := r.shell.Run(ctx, "ss", "-tln")
	if err == nil && strings.TrimSpace(out) != "" {
		return out, nil
	}
	r.log.Debug("ss unavailable, trying netstat", zap.Error(err))
	out, nerr := r.shell.Run(ctx, "netstat", "-tln")
	if nerr != nil {
		return "", errors.Join(err, nerr)
	}
	if strings.TrimSpace(out) == "" {
		return "", fmt.Errorf("no listening-socket output")
	}
	return out, nil
}

// ListeningPorts parses ss or netstat listening-socket output. The local
// address is the fourth column in both formats; its port is the suffix
// after the last colon. Header and blank lines are skipped.
func ListeningPorts(lines []string) map[int]bool {
	ports := make(map[int]bool)
	for _, line := range lines {
		fields := strings.Fields(line)
		if len(fields) < 4 {
			continue
		}
		local := fields[3]
		idx := strings.LastIndex(local, ":")
		if idx < 0 {
			continue
		}
		port, err := strconv.Atoi(local[idx+1:])
		if err != nil || port < 1 || port > 65535 {
			continue
		}
		ports[port] = true
	}
	return ports
}

// etcHosts checks that the host's FQDN is bound to the loopback address.
// The FQDN comes from the profile, or from the local-hostname fact.
func (r *Registry) etcHosts(ctx context.Context, p Params) Result {
	fqdn := p.FQDN
	if fqdn == "" {
		line, err := r.facts.Resolve(ctx, facts.LocalHostname)
		if err != nil {
			return failed(types.CheckEtcHosts, fmt.Sprintf("cannot determine local hostname: %v", err))
		}
		fqdn = facts.FactValue(line)
		if fqdn == "" {
			return failed(types.CheckEtcHosts, fmt.Sprintf("local hostname fact %q has no value", line))
		}
	}

	data, err := shell.ReadFileLimited(r.hostsFile)
	if err != nil {
		return failed(types.CheckEtcHosts, fmt.Sprintf("cannot read %s: %v", r.hostsFile, err))
	}

	if LoopbackBinds(strings.Split(string(data), "\n"), fqdn) {
		return passed(types.CheckEtcHosts, fmt.Sprintf("%s is bound to 127.0.0.1 in %s", fqdn, r.hostsFile))
	}
	return failed(types.CheckEtcHosts, fmt.Sprintf(
		"%s is not bound to 127.0.0.1 in %s; add the line \"127.0.0.1 %s\"",
		fqdn, r.hostsFile, fqdn))
}

// LoopbackBinds reports whether some hosts line maps 127.0.0.1 to fqdn.
// Comments and blank lines are ignored; the scan stops at the first match.
func LoopbackBinds(lines []string, fqdn string) bool {
	for _, line := range lines {
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		fields := strings.Fields(line)
		if len(fields) < 2 || fields[0] != "127.0.0.1" {
			continue
		}
		for _, name := range fields[1:] {
			if strings.EqualFold(name, fqdn) {
				return true
			}
		}
	}
	return false
}

// dns checks that every FQDN resolves. Each name is reported on its own;
// a failure does not stop the remaining lookups.
func (r *Registry) dns(ctx context.Context, p Params) Result {
	var res Result
	for _, fqdn := range p.FQDNs {
		out, err := r.resolver.Lookup(ctx, fqdn)
		switch {
		case err != nil:
			res.Outcomes = append(res.Outcomes, types.Fail(types.CheckDNS,
				fmt.Sprintf("%s: lookup failed: %v", fqdn, err)))
		case strings.Contains(out, answerMarker):
			res.Outcomes = append(res.Outcomes, types.Pass(types.CheckDNS,
				fmt.Sprintf("%s resolves", fqdn)))
		default:
			res.Outcomes = append(res.Outcomes, types.Fail(types.CheckDNS,
				fmt.Sprintf("%s does not resolve (no answer from %s)", fqdn, r.resolver.Name())))
		}
	}
	return res
}
