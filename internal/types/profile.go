// Package types defines shared type definitions used across all hostready packages.
package types

import "errors"

// ErrUnknownMachineType is returned when a machine type is not known or has
// no profile.
var ErrUnknownMachineType = errors.New("unknown machine type")

// MachineType identifies a class of host. Each type maps to a fixed plan of
// checks; see engine.PlanFor.
type MachineType string

// Known machine types.
const (
	MachineBastion MachineType = "bastion"
	MachineKafka   MachineType = "kafka"
	MachineStriim  MachineType = "striim"
	MachinePSQL    MachineType = "psql"
	MachineEMR     MachineType = "emr"
	MachineRedis   MachineType = "redis"
	MachinePSQL2   MachineType = "psql2"
	MachineDNS     MachineType = "dns"
)

// MachineTypes lists every known machine type in a stable order.
var MachineTypes = []MachineType{
	MachineBastion,
	MachineKafka,
	MachineStriim,
	MachinePSQL,
	MachineEMR,
	MachineRedis,
	MachinePSQL2,
	MachineDNS,
}

// Valid reports whether t is one of the known machine types.
func (t MachineType) Valid() bool {
	for _, known := range MachineTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Inventory is the top-level configuration document: one profile per machine type.
type Inventory struct {
	Machines []MachineProfile `yaml:"machines" json:"machines" validate:"required,min=1,dive"`
}

// MachineProfile describes the expected state of one machine type.
// Profiles are immutable once loaded.
type MachineProfile struct {
	// Type is the machine type this profile applies to. Unique within an Inventory.
	Type MachineType `yaml:"type" json:"type" validate:"required,machine_type"`

	// Hardware holds the per-check expectations.
	Hardware Hardware `yaml:"hardware" json:"hardware"`

	// FQDNs are the names the dns check must be able to resolve.
	FQDNs []string `yaml:"fqdns,omitempty" json:"fqdns,omitempty" validate:"omitempty,dive,host_name"`

	// Checks overrides the default plan for Type when non-empty.
	Checks []string `yaml:"checks,omitempty" json:"checks,omitempty" validate:"omitempty,dive,check_id"`

	// VantageHost restricts the profile to a single host (matched against the hostname).
	VantageHost string `yaml:"vantage_host,omitempty" json:"vantage_host,omitempty" validate:"omitempty,host_name"`
}

// Hardware holds the expected hardware, network and OS facts of a machine type.
type Hardware struct {
	// FS lists mount points that must be mounted, each on its own device.
	FS []string `yaml:"fs,omitempty" json:"fs,omitempty" validate:"omitempty,dive,startswith=/"`

	// Ingress lists TCP ports that must be listening.
	Ingress []int `yaml:"ingress,omitempty" json:"ingress,omitempty" validate:"omitempty,dive,min=1,max=65535"`

	// Certs is a path that must exist (certificate bundle or directory).
	Certs string `yaml:"certs,omitempty" json:"certs,omitempty" validate:"omitempty,startswith=/"`

	// TZ is the expected system timezone name (e.g. "Europe/Madrid").
	TZ string `yaml:"tz,omitempty" json:"tz,omitempty"`

	// InstanceType is the expected cloud instance type (e.g. "m5.xlarge").
	InstanceType string `yaml:"instance_type,omitempty" json:"instance_type,omitempty"`

	// FQDN is the name that must be bound to 127.0.0.1 in /etc/hosts.
	// When empty the local-hostname fact is used.
	FQDN string `yaml:"fqdn,omitempty" json:"fqdn,omitempty" validate:"omitempty,host_name"`

	// Services lists systemd units that must be active.
	Services []string `yaml:"services,omitempty" json:"services,omitempty" validate:"omitempty,dive,service_name"`
}
