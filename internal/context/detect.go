// Package context detects information about the host the probe runs on.
package context

import (
	"fmt"

	"github.com/ancients-collective/hostready/internal/types"
)

// Detector abstracts platform-specific system detection.
// Each supported OS provides an implementation via build tags.
type Detector interface {
	// DetectOS returns operating system information.
	DetectOS() (types.OSInfo, error)

	// DetectPlatform returns the distribution or platform identifier.
	DetectPlatform() (string, error)

	// DetectEnvironment returns the hostname and whether the probe runs in
	// a container, a VM, or on bare metal.
	DetectEnvironment() (types.EnvInfo, error)
}

// Detect runs layered detection. OS detection must succeed; platform and
// environment failures are returned as warnings and leave their fields empty.
func Detect(d Detector) (types.SystemContext, []string, error) {
	var sc types.SystemContext
	var warnings []string

	osInfo, err := d.DetectOS()
	if err != nil {
		return sc, nil, fmt.Errorf("OS detection failed: %w", err)
	}
	sc.OS = osInfo

	if platform, err := d.DetectPlatform(); err != nil {
		warnings = append(warnings, fmt.Sprintf("platform detection failed: %v", err))
	} else {
		sc.Platform = platform
	}

	if env, err := d.DetectEnvironment(); err != nil {
		warnings = append(warnings, fmt.Sprintf("environment detection failed: %v", err))
	} else {
		sc.Environment = env
	}

	return sc, warnings, nil
}
