package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/shirou/gopsutil/v4/disk"
	"go.uber.org/zap"

	"github.com/ancients-collective/hostready/internal/types"
)

// for testing
var (
	diskPartitions = disk.PartitionsWithContext
	diskUsage      = disk.UsageWithContext
)

// filesystem checks that every required mount point is mounted and that no
// two of them share a backing device. A mount point that shares a device
// with one listed earlier is the one reported.
func (r *Registry) filesystem(ctx context.Context, p Params) Result {
	partitions, err := diskPartitions(ctx, true)
	if err != nil {
		res := Result{}
		for _, mount := range p.Mounts {
			res.Outcomes = append(res.Outcomes, types.Fail(types.CheckFilesystem,
				fmt.Sprintf("cannot list partitions to check %s: %v", mount, err)))
		}
		return res
	}

	devices := make(map[string]string, len(partitions))
	for _, part := range partitions {
		// later entries shadow earlier ones mounted on the same path
		devices[filepath.Clean(part.Mountpoint)] = part.Device
	}

	var res Result
	claimed := make(map[string]string, len(p.Mounts))
	for _, mount := range p.Mounts {
		device, ok := devices[filepath.Clean(mount)]
		if !ok {
			res.Outcomes = append(res.Outcomes, types.Fail(types.CheckFilesystem,
				fmt.Sprintf("%s is not mounted", mount)))
			continue
		}

		if note := r.usageNote(ctx, mount); note != "" {
			res.Notes = append(res.Notes, note)
		}

		if owner, shared := claimed[device]; shared {
			res.Outcomes = append(res.Outcomes, types.Fail(types.CheckFilesystem,
				fmt.Sprintf("%s shares a partition with %s (device %s)", mount, owner, device)))
			continue
		}
		claimed[device] = mount
		res.Outcomes = append(res.Outcomes, types.Pass(types.CheckFilesystem,
			fmt.Sprintf("%s is mounted on %s", mount, device)))
	}
	return res
}

// usageNote renders a one-line disk usage summary, or "" when usage is unavailable.
func (r *Registry) usageNote(ctx context.Context, mount string) string {
	usage, err := diskUsage(ctx, mount)
	if err != nil || usage == nil {
		r.log.Debug("disk usage unavailable", zap.String("mount", mount), zap.Error(err))
		return ""
	}
	return fmt.Sprintf("%s: %s used of %s (%.1f%%), %s free",
		mount,
		humanize.IBytes(usage.Used),
		humanize.IBytes(usage.Total),
		usage.UsedPercent,
		humanize.IBytes(usage.Free),
	)
}

// certs checks that the certificate path exists.
func (r *Registry) certs(_ context.Context, p Params) Result {
	_, err := os.Stat(p.CertsPath)
	switch {
	case err == nil:
		return passed(types.CheckCerts, fmt.Sprintf("certificates present at %s", p.CertsPath))
	case errors.Is(err, os.ErrNotExist):
		return failed(types.CheckCerts, fmt.Sprintf("certificates not found at %s", p.CertsPath))
	default:
		return failed(types.CheckCerts, fmt.Sprintf("cannot stat %s: %v", p.CertsPath, err))
	}
}
