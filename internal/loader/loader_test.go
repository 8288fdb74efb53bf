package loader

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ancients-collective/hostready/internal/types"
)

var testKnownChecks = []string{
	"filesystem",
	"ingress",
	"etc-hosts",
	"certs",
	"timezone",
	"instance-type",
	"dns",
	"service",
}

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const validInventoryYAML = `machines:
  - type: kafka
    hardware:
      fs: [/data, /logs]
      ingress: [9092, 22]
      certs: /etc/pki/kafka
      tz: Europe/Madrid
      instance_type: m5.xlarge
  - type: bastion
    hardware:
      ingress: [22]
  - type: dns
    fqdns:
      - kafka-01.example.com
      - redis-01.example.com
    vantage_host: bastion-01
`

func requireConfigError(t *testing.T, err error) *ConfigError {
	t.Helper()
	require.Error(t, err)
	var cfgErr *ConfigError
	require.True(t, errors.As(err, &cfgErr), "expected *ConfigError, got %T: %v", err, err)
	return cfgErr
}

func TestLoad_ValidYAML(t *testing.T) {
	path := writeConfig(t, "machines.yaml", validInventoryYAML)

	inv, err := New(testKnownChecks).Load(path)
	require.NoError(t, err)
	require.Len(t, inv.Machines, 3)

	kafka := inv.Machines[0]
	assert.Equal(t, types.MachineKafka, kafka.Type)
	assert.Equal(t, []string{"/data", "/logs"}, kafka.Hardware.FS)
	assert.Equal(t, []int{9092, 22}, kafka.Hardware.Ingress)
	assert.Equal(t, "Europe/Madrid", kafka.Hardware.TZ)
	assert.Equal(t, "m5.xlarge", kafka.Hardware.InstanceType)
	assert.Equal(t, "bastion-01", inv.Machines[2].VantageHost)
}

func TestLoad_ValidJSON(t *testing.T) {
	path := writeConfig(t, "machines.json", `{
  "machines": [
    {"type": "redis", "hardware": {"ingress": [6379], "certs": "/etc/pki/tls", "tz": "UTC", "instance_type": "r5.large"}}
  ]
}`)

	inv, err := New(testKnownChecks).Load(path)
	require.NoError(t, err)
	require.Len(t, inv.Machines, 1)
	assert.Equal(t, types.MachineRedis, inv.Machines[0].Type)
	assert.Equal(t, []int{6379}, inv.Machines[0].Hardware.Ingress)
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := New(testKnownChecks).Load(filepath.Join(t.TempDir(), "absent.yaml"))
	requireConfigError(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_InvalidSyntax(t *testing.T) {
	path := writeConfig(t, "bad.yaml", "machines:\n\t- type: kafka\n")
	_, err := New(testKnownChecks).Load(path)
	cfgErr := requireConfigError(t, err)
	assert.Contains(t, cfgErr.Error(), "failed to parse")
}

func TestLoad_UnknownField(t *testing.T) {
	path := writeConfig(t, "typo.yaml", "machines:\n  - type: kafka\n    hardwre: {}\n")
	_, err := New(testKnownChecks).Load(path)
	cfgErr := requireConfigError(t, err)
	assert.Contains(t, cfgErr.Error(), "hardwre")
}

func TestLoad_Empty(t *testing.T) {
	path := writeConfig(t, "empty.yaml", "")
	_, err := New(testKnownChecks).Load(path)
	cfgErr := requireConfigError(t, err)
	assert.Contains(t, cfgErr.Error(), "machines is required")
}

func TestLoad_AccumulatesProblems(t *testing.T) {
	path := writeConfig(t, "many.yaml", `machines:
  - type: mainframe
  - type: kafka
    hardware:
      fs: [data]
      ingress: [0, 70000]
      certs: relative/path
  - type: kafka
  - type: dns
    fqdns: ["bad..name"]
    checks: [dns, teleport]
  - type: psql
    hardware:
      services: ["nifi; rm -rf /"]
`)

	_, err := New(testKnownChecks).Load(path)
	cfgErr := requireConfigError(t, err)

	problems := cfgErr.Problems()
	assert.GreaterOrEqual(t, len(problems), 8, "got %v", problems)

	joined := cfgErr.Error()
	for _, want := range []string{
		`unknown machine type "mainframe"`,
		"machines[1].hardware.fs[0] must be an absolute path",
		"machines[1].hardware.ingress[0] must be at least 1",
		"machines[1].hardware.ingress[1] must be at most 65535",
		"machines[1].hardware.certs must be an absolute path",
		`duplicate type "kafka"`,
		`"bad..name" is not a valid host name`,
		`unknown check "teleport"`,
		"is not a valid service name",
	} {
		assert.Contains(t, joined, want)
	}
}

func TestLoad_AllMachineTypesAccepted(t *testing.T) {
	l := New(testKnownChecks)
	for _, mt := range types.MachineTypes {
		t.Run(string(mt), func(t *testing.T) {
			_, err := l.Parse("inline", []byte("machines:\n  - type: "+string(mt)+"\n"))
			assert.NoError(t, err)
		})
	}
}

func TestLoad_ChecksOverride(t *testing.T) {
	inv, err := New(testKnownChecks).Parse("inline", []byte(`machines:
  - type: psql
    checks: [certs, timezone]
    hardware:
      certs: /etc/pki
      tz: UTC
`))
	require.NoError(t, err)
	assert.Equal(t, []string{"certs", "timezone"}, inv.Machines[0].Checks)
}

func TestResolve(t *testing.T) {
	inv, err := New(testKnownChecks).Parse("inline", []byte(validInventoryYAML))
	require.NoError(t, err)

	p, err := Resolve(inv, types.MachineBastion)
	require.NoError(t, err)
	assert.Equal(t, types.MachineBastion, p.Type)
	assert.Equal(t, []int{22}, p.Hardware.Ingress)

	_, err = Resolve(inv, types.MachineRedis)
	assert.ErrorIs(t, err, ErrUnknownMachineType)
	assert.Contains(t, err.Error(), "kafka, bastion, dns")

	_, err = Resolve(inv, "mainframe")
	assert.ErrorIs(t, err, ErrUnknownMachineType)

	_, err = Resolve(nil, types.MachineKafka)
	assert.ErrorIs(t, err, ErrUnknownMachineType)
}

func TestResolve_DuplicateInUnvalidatedInventory(t *testing.T) {
	inv := &types.Inventory{Machines: []types.MachineProfile{
		{Type: types.MachineKafka},
		{Type: types.MachineKafka},
	}}
	_, err := Resolve(inv, types.MachineKafka)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "defined 2 times")
}

func TestConfigError_SingleProblem(t *testing.T) {
	_, err := New(testKnownChecks).Parse("one.yaml", []byte("machines:\n  - type: nope\n"))
	cfgErr := requireConfigError(t, err)
	assert.Len(t, cfgErr.Problems(), 1)
	assert.Contains(t, cfgErr.Error(), "invalid config one.yaml:")
}

func FuzzParse(f *testing.F) {
	f.Add([]byte(validInventoryYAML))
	f.Add([]byte(`{"machines":[{"type":"dns","fqdns":["a.b"]}]}`))
	f.Add([]byte("machines: 7"))
	l := New(testKnownChecks)
	f.Fuzz(func(t *testing.T, data []byte) {
		inv, err := l.Parse("fuzz", data)
		if err != nil {
			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("non-ConfigError returned: %T %v", err, err)
			}
			return
		}
		for _, m := range inv.Machines {
			if !m.Type.Valid() {
				t.Fatalf("invalid type %q accepted", m.Type)
			}
		}
	})
}
