package engine

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ancients-collective/hostready/internal/types"
)

func TestRegistry_NamesCoverAllChecks(t *testing.T) {
	r := NewRegistry(WithShell(newFakeShell()), WithFacts(fakeFacts{}))

	want := make([]string, 0, len(AllChecks))
	for _, id := range AllChecks {
		want = append(want, string(id))
	}
	sort.Strings(want)
	assert.Equal(t, want, r.Names())

	for _, id := range AllChecks {
		_, ok := r.Lookup(id)
		assert.True(t, ok, id)
	}
}

func TestRegistry_CallUnknown(t *testing.T) {
	r := NewRegistry(WithShell(newFakeShell()), WithFacts(fakeFacts{}))

	res := r.Call(context.Background(), "teleport", Params{})
	require.Len(t, res.Outcomes, 1)
	assert.False(t, res.Outcomes[0].OK())
	assert.Contains(t, res.Outcomes[0].Message, "unknown check")
}

func TestRegistry_CallNeverReturnsEmpty(t *testing.T) {
	r := NewRegistry(WithShell(newFakeShell()), WithFacts(fakeFacts{}))
	r.checks[types.CheckCerts] = func(context.Context, Params) Result { return Result{} }

	res := r.Call(context.Background(), types.CheckCerts, Params{})
	require.Len(t, res.Outcomes, 1)
	assert.Equal(t, types.OutcomeError, res.Outcomes[0].Status)
}

func TestRegistry_DefaultsUseDig(t *testing.T) {
	r := NewRegistry(WithShell(newFakeShell()))
	assert.Equal(t, ResolverDig, r.resolver.Name())
	assert.Equal(t, DefaultHostsFile, r.hostsFile)
}

func TestWithHostsFile_RelativePath(t *testing.T) {
	dir := t.TempDir()
	chdirForTest(t, dir)

	r := NewRegistry(WithShell(newFakeShell()), WithHostsFile("hosts"))
	assert.True(t, filepath.IsAbs(r.hostsFile))
	assert.Equal(t, "hosts", filepath.Base(r.hostsFile))
}

// chdirForTest changes the working directory for the duration of the test
// and restores it on cleanup (equivalent to testing.T.Chdir in Go 1.24+).
func chdirForTest(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(wd); err != nil {
			t.Fatal(err)
		}
	})
}
