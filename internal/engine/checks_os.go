package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/ancients-collective/hostready/internal/facts"
	"github.com/ancients-collective/hostready/internal/shell"
	"github.com/ancients-collective/hostready/internal/types"
)

const timezoneLabel = "Time zone:"

// timezone compares the timezone reported by timedatectl with the expected name.
func (r *Registry) timezone(ctx context.Context, p Params) Result {
	out, err := r.shell.Run(ctx, "timedatectl", "status")
	if err != nil {
		return failed(types.CheckTimezone, fmt.Sprintf("cannot read system timezone: %v", err))
	}
	actual, ok := ParseTimezone(shell.Lines(out))
	if !ok {
		return failed(types.CheckTimezone, "timedatectl reported no timezone")
	}
	if actual != p.Timezone {
		return failed(types.CheckTimezone, fmt.Sprintf("timezone is %s, expected %s", actual, p.Timezone))
	}
	return passed(types.CheckTimezone, fmt.Sprintf("timezone is %s", actual))
}

// ParseTimezone extracts the zone name from timedatectl status output, e.g.
// "Time zone: Europe/Madrid (CET, +0100)" yields "Europe/Madrid".
func ParseTimezone(lines []string) (string, bool) {
	for _, line := range lines {
		_, rest, found := strings.Cut(line, timezoneLabel)
		if !found {
			continue
		}
		fields := strings.Fields(rest)
		if len(fields) == 0 {
			return "", false
		}
		return fields[0], true
	}
	return "", false
}

// instanceType compares the instance-type fact with the expected type.
func (r *Registry) instanceType(ctx context.Context, p Params) Result {
	line, err := r.facts.Resolve(ctx, facts.InstanceType)
	if err != nil {
		return failed(types.CheckInstanceType, fmt.Sprintf("cannot read instance type: %v", err))
	}
	actual := facts.FactValue(line)
	if actual != p.InstanceType {
		return failed(types.CheckInstanceType, fmt.Sprintf("instance type is %q, expected %q", actual, p.InstanceType))
	}
	return passed(types.CheckInstanceType, fmt.Sprintf("instance type is %s", actual))
}

// service checks that every listed systemd unit is active.
func (r *Registry) service(ctx context.Context, p Params) Result {
	var res Result
	for _, name := range p.Services {
		res.Outcomes = append(res.Outcomes, r.serviceOutcome(ctx, name))
	}
	return res
}

func (r *Registry) serviceOutcome(ctx context.Context, name string) types.CheckOutcome {
	if err := shell.ValidateServiceName(name); err != nil {
		return types.Fail(types.CheckService, err.Error())
	}
	out, err := r.shell.Run(ctx, "systemctl", "is-active", name)
	if err != nil {
		return types.Fail(types.CheckService, fmt.Sprintf("cannot query %s: %v", name, err))
	}
	state := strings.TrimSpace(out)
	if state == "active" {
		return types.Pass(types.CheckService, fmt.Sprintf("service %s is active", name))
	}
	if state == "" {
		state = "unknown"
	}
	return types.Fail(types.CheckService, fmt.Sprintf("service %s is %s", name, state))
}
