package engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ancients-collective/hostready/internal/types"
)

func fullProfile(mt types.MachineType) types.MachineProfile {
	return types.MachineProfile{
		Type: mt,
		Hardware: types.Hardware{
			FS:           []string{"/data", "/logs"},
			Ingress:      []int{22},
			Certs:        "/etc/pki/tls",
			TZ:           "UTC",
			InstanceType: "m5.xlarge",
		},
		FQDNs: []string{"kafka-01.example.com"},
	}
}

func TestDefaultPlan_AllTypes(t *testing.T) {
	for _, mt := range types.MachineTypes {
		t.Run(string(mt), func(t *testing.T) {
			first, ok := DefaultPlan(mt)
			require.True(t, ok)
			require.NotEmpty(t, first)

			second, _ := DefaultPlan(mt)
			assert.Equal(t, first, second, "plans are deterministic")

			first[0] = "mutated"
			third, _ := DefaultPlan(mt)
			assert.Equal(t, second, third, "callers get a copy")
		})
	}

	_, ok := DefaultPlan("mainframe")
	assert.False(t, ok)
}

func TestDefaultPlan_Table(t *testing.T) {
	kafka, _ := DefaultPlan(types.MachineKafka)
	assert.Equal(t, []types.CheckID{
		types.CheckInstanceType, types.CheckFilesystem, types.CheckIngress,
		types.CheckEtcHosts, types.CheckCerts, types.CheckTimezone,
	}, kafka)

	redis, _ := DefaultPlan(types.MachineRedis)
	assert.Equal(t, []types.CheckID{
		types.CheckInstanceType, types.CheckIngress, types.CheckCerts, types.CheckTimezone,
	}, redis)

	bastion, _ := DefaultPlan(types.MachineBastion)
	assert.Equal(t, []types.CheckID{types.CheckIngress}, bastion)

	dnsPlan, _ := DefaultPlan(types.MachineDNS)
	assert.Equal(t, []types.CheckID{types.CheckDNS}, dnsPlan)
}

func TestPlanFor(t *testing.T) {
	plan, err := PlanFor(fullProfile(types.MachineKafka), "kafka-01")
	require.NoError(t, err)
	assert.Equal(t, "kafka", plan.Subject)
	assert.Len(t, plan.Checks, 6)
	assert.Equal(t, []string{"/data", "/logs"}, plan.Params.Mounts)
	assert.Equal(t, "m5.xlarge", plan.Params.InstanceType)
}

func TestPlanFor_UnknownType(t *testing.T) {
	_, err := PlanFor(types.MachineProfile{Type: "mainframe"}, "h")
	assert.ErrorIs(t, err, types.ErrUnknownMachineType)
}

func TestPlanFor_MissingParameters(t *testing.T) {
	profile := types.MachineProfile{Type: types.MachinePSQL, Hardware: types.Hardware{Ingress: []int{5432}}}

	_, err := PlanFor(profile, "psql-01")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingParameter)
	for _, field := range []string{"hardware.instance_type", "hardware.fs", "hardware.certs", "hardware.tz"} {
		assert.Contains(t, err.Error(), field)
	}
	assert.NotContains(t, err.Error(), "hardware.ingress")
}

func TestPlanFor_Override(t *testing.T) {
	profile := types.MachineProfile{
		Type:     types.MachineBastion,
		Checks:   []string{"certs", "service"},
		Hardware: types.Hardware{Certs: "/etc/pki", Services: []string{"sshd"}},
	}

	plan, err := PlanFor(profile, "bastion-01")
	require.NoError(t, err)
	assert.Equal(t, []types.CheckID{types.CheckCerts, types.CheckService}, plan.Checks)

	profile.Checks = []string{"teleport"}
	_, err = PlanFor(profile, "bastion-01")
	assert.ErrorIs(t, err, ErrUnknownCheck)
}

func TestPlanFor_VantageHost(t *testing.T) {
	profile := types.MachineProfile{
		Type:        types.MachineDNS,
		FQDNs:       []string{"kafka-01.example.com"},
		VantageHost: "bastion-01.example.com",
	}

	for _, host := range []string{"bastion-01.example.com", "BASTION-01.example.com.", "bastion-01"} {
		_, err := PlanFor(profile, host)
		assert.NoError(t, err, host)
	}

	for _, host := range []string{"kafka-01", "bastion-01.other.com", ""} {
		_, err := PlanFor(profile, host)
		assert.ErrorIs(t, err, ErrWrongVantageHost, host)
	}
}

func TestPlanFor_AccumulatesAllProblems(t *testing.T) {
	profile := types.MachineProfile{Type: types.MachineDNS, VantageHost: "bastion-01"}

	_, err := PlanFor(profile, "kafka-01")

	assert.True(t, errors.Is(err, ErrWrongVantageHost))
	assert.True(t, errors.Is(err, ErrMissingParameter))
}
