package types

// Valid environment types.
const (
	EnvContainer = "container"
	EnvVM        = "vm"
	EnvBareMetal = "bare-metal"
)

// SystemContext holds information about the host the probe runs on.
// It is populated by the context detection package.
type SystemContext struct {
	// OS contains operating system information.
	OS OSInfo

	// Platform is the distribution or platform identifier (e.g. "amazon", "ubuntu").
	Platform string

	// Environment contains execution environment information.
	Environment EnvInfo
}

// OSInfo holds operating system details.
type OSInfo struct {
	// Name is the OS identifier (e.g., "linux", "darwin").
	Name string

	// Version is the kernel version string.
	Version string

	// Arch is the CPU architecture (e.g., "amd64", "arm64").
	Arch string
}

// EnvInfo holds execution environment details.
type EnvInfo struct {
	// Type is the environment category: "container", "vm", or "bare-metal".
	Type string

	// Runtime is the specific runtime (e.g., "docker", "kvm", "aws-nitro").
	Runtime string

	// Hostname is the system hostname.
	Hostname string
}

// ReportSystem converts the context into its report form.
func (c SystemContext) ReportSystem() *ReportSystem {
	return &ReportSystem{
		Hostname:  c.Environment.Hostname,
		OS:        c.OS.Name,
		OSVersion: c.OS.Version,
		Arch:      c.OS.Arch,
		Platform:  c.Platform,
		EnvType:   c.Environment.Type,
		Runtime:   c.Environment.Runtime,
	}
}
