//go:build linux

package context

import (
	"bytes"
	"os"
	"runtime"
	"strings"

	"github.com/shirou/gopsutil/v4/host"

	"github.com/ancients-collective/hostready/internal/types"
)

// LinuxDetector implements Detector for Linux systems using gopsutil.
type LinuxDetector struct{}

// NewDetector returns the Detector for the current platform.
func NewDetector() Detector {
	return &LinuxDetector{}
}

// DetectOS returns Linux OS information. The kernel version is best-effort.
func (d *LinuxDetector) DetectOS() (types.OSInfo, error) {
	osInfo := types.OSInfo{Name: runtime.GOOS, Arch: runtime.GOARCH}
	if v, err := host.KernelVersion(); err == nil {
		osInfo.Version = v
	}
	return osInfo, nil
}

// DetectPlatform returns the distribution id (e.g. "amzn", "ubuntu").
func (d *LinuxDetector) DetectPlatform() (string, error) {
	platform, _, _, err := host.PlatformInformation()
	if err != nil {
		return "", err
	}
	return platform, nil
}

// DetectEnvironment collects the hostname and classifies the environment.
func (d *LinuxDetector) DetectEnvironment() (types.EnvInfo, error) {
	env := types.EnvInfo{Type: types.EnvBareMetal}

	if h, err := os.Hostname(); err == nil {
		env.Hostname = h
	}

	virt, role, _ := host.Virtualization()
	if rt, ok := containerRuntime(role, virt, "/.dockerenv", "/run/.containerenv", "/proc/self/cgroup"); ok {
		env.Type = types.EnvContainer
		env.Runtime = rt
	} else if hv, ok := hypervisor(role, virt, "/sys/class/dmi/id/sys_vendor"); ok {
		env.Type = types.EnvVM
		env.Runtime = hv
	}
	return env, nil
}

var containerSystems = map[string]bool{
	"docker":         true,
	"lxc":            true,
	"podman":         true,
	"systemd-nspawn": true,
}

// containerRuntime reports whether the process runs in a container, using
// the gopsutil virtualization result first and marker files after.
func containerRuntime(role, virt, dockerenvPath, containerenvPath, cgroupPath string) (string, bool) {
	if role == "guest" && containerSystems[virt] {
		return virt, true
	}
	if _, err := os.Lstat(dockerenvPath); err == nil {
		return "docker", true
	}
	if _, err := os.Lstat(containerenvPath); err == nil {
		return "podman", true
	}
	if data, err := os.ReadFile(cgroupPath); err == nil {
		for _, marker := range []string{"docker", "kubepods", "lxc"} {
			if bytes.Contains(data, []byte(marker)) {
				if marker == "kubepods" {
					return "kubernetes", true
				}
				return marker, true
			}
		}
	}
	return "", false
}

// dmiVendors maps DMI sys_vendor substrings to hypervisor names.
var dmiVendors = []struct{ substr, name string }{
	{"amazon ec2", "aws-nitro"},
	{"qemu", "kvm"},
	{"innotek gmbh", "virtualbox"},
	{"vmware", "vmware"},
	{"microsoft corporation", "hyper-v"},
	{"xen", "xen"},
	{"google", "gce"},
}

// hypervisor reports whether the host is a virtual machine.
func hypervisor(role, virt, sysVendorPath string) (string, bool) {
	if role == "guest" && virt != "" && !containerSystems[virt] {
		return virt, true
	}
	data, err := os.ReadFile(sysVendorPath)
	if err != nil {
		return "", false
	}
	vendor := strings.ToLower(strings.TrimSpace(string(data)))
	for _, v := range dmiVendors {
		if strings.Contains(vendor, v.substr) {
			return v.name, true
		}
	}
	return "", false
}
