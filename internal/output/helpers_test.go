package output

import (
	"time"

	"github.com/ancients-collective/hostready/internal/types"
)

// testTimestamp is a fixed time for deterministic test output.
var testTimestamp = time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC)

// newTestReport builds a representative failing ProbeReport.
func newTestReport() *types.ProbeReport {
	return &types.ProbeReport{
		Version:   "1.0.0",
		Timestamp: testTimestamp,
		Subject:   "kafka",
		Status:    types.StatusCritical,
		Trace: "OK instance-type: instance type is m5.xlarge\n" +
			"ERROR filesystem: /logs shares a partition with /data (device /dev/xvda1)\n" +
			"OK timezone: timezone is UTC",
		Outcomes: []types.CheckOutcome{
			types.Pass(types.CheckInstanceType, "instance type is m5.xlarge"),
			types.Fail(types.CheckFilesystem, "/logs shares a partition with /data (device /dev/xvda1)"),
			types.Pass(types.CheckTimezone, "timezone is UTC"),
		},
		Notes: []string{"/data: 1.2 GiB used of 10 GiB (12.0%), 8.8 GiB free"},
		System: &types.ReportSystem{
			Hostname:  "kafka-01",
			OS:        "linux",
			OSVersion: "6.1.0",
			Arch:      "amd64",
			Platform:  "amazon",
			EnvType:   types.EnvVM,
			Runtime:   "aws-nitro",
		},
		DurationMS: 1234,
	}
}

// newCleanReport builds a passing ProbeReport with no notes and no system.
func newCleanReport() *types.ProbeReport {
	return &types.ProbeReport{
		Version:   "1.0.0",
		Timestamp: testTimestamp,
		Subject:   "redis",
		Status:    types.StatusOK,
		Trace:     "OK ingress: port 6379 is listening\nOK certs: /etc/pki/tls exists",
		Outcomes: []types.CheckOutcome{
			types.Pass(types.CheckIngress, "port 6379 is listening"),
			types.Pass(types.CheckCerts, "/etc/pki/tls exists"),
		},
		DurationMS: 20,
	}
}

// newUnreachableReport builds the report a collaborator produces when its target is down.
func newUnreachableReport() *types.ProbeReport {
	return &types.ProbeReport{
		Timestamp: testTimestamp,
		Subject:   "kafka-broker",
		Status:    types.StatusUnknown,
		Trace:     "HOST UNREACHABLE",
	}
}
