//go:build darwin

package context

import (
	"os"
	"runtime"

	"github.com/shirou/gopsutil/v4/host"

	"github.com/ancients-collective/hostready/internal/types"
)

// DarwinDetector implements Detector for macOS workstations.
type DarwinDetector struct{}

// NewDetector returns the Detector for the current platform.
func NewDetector() Detector {
	return &DarwinDetector{}
}

// DetectOS returns macOS OS information.
func (d *DarwinDetector) DetectOS() (types.OSInfo, error) {
	osInfo := types.OSInfo{Name: runtime.GOOS, Arch: runtime.GOARCH}
	if v, err := host.KernelVersion(); err == nil {
		osInfo.Version = v
	}
	return osInfo, nil
}

// DetectPlatform returns "darwin".
func (d *DarwinDetector) DetectPlatform() (string, error) {
	return runtime.GOOS, nil
}

// DetectEnvironment returns bare-metal with the hostname populated.
func (d *DarwinDetector) DetectEnvironment() (types.EnvInfo, error) {
	env := types.EnvInfo{Type: types.EnvBareMetal}
	if h, err := os.Hostname(); err == nil {
		env.Hostname = h
	}
	return env, nil
}
