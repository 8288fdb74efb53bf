package engine

import (
	"context"
	"strings"
	"sync"

	"github.com/ancients-collective/hostready/internal/facts"
	"github.com/ancients-collective/hostready/internal/shell"
)

type cmdResult struct {
	out string
	err error
}

// fakeShell answers commands from a table keyed by the full command line.
type fakeShell struct {
	mu        sync.Mutex
	responses map[string]cmdResult
	calls     []string
}

func newFakeShell() *fakeShell {
	return &fakeShell{responses: make(map[string]cmdResult)}
}

func (f *fakeShell) on(cmdline, out string, err error) *fakeShell {
	f.responses[cmdline] = cmdResult{out: out, err: err}
	return f
}

func (f *fakeShell) Run(_ context.Context, name string, args ...string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := strings.Join(append([]string{name}, args...), " ")
	f.calls = append(f.calls, key)
	r, ok := f.responses[key]
	if !ok {
		return "", shell.ErrNotAllowed
	}
	return r.out, r.err
}

func (f *fakeShell) Exec(ctx context.Context, name string, args ...string) (string, error) {
	return f.Run(ctx, name, args...)
}

func (f *fakeShell) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// fakeFacts serves facts from a map; missing facts are unavailable.
type fakeFacts map[string]string

func (f fakeFacts) Resolve(_ context.Context, fact string) (string, error) {
	if err := facts.ValidateFactName(fact); err != nil {
		return "", err
	}
	line, ok := f[fact]
	if !ok {
		return "", facts.ErrFactUnavailable
	}
	return line, nil
}

// fakeResolver answers lookups from a map of dig-style outputs.
type fakeResolver struct {
	answers map[string]string
	errs    map[string]error
	lookups []string
}

func (f *fakeResolver) Lookup(_ context.Context, fqdn string) (string, error) {
	f.lookups = append(f.lookups, fqdn)
	if err := f.errs[fqdn]; err != nil {
		return "", err
	}
	return f.answers[fqdn], nil
}

func (f *fakeResolver) Name() string { return "fake" }

const ssOutput = `State  Recv-Q Send-Q Local Address:Port  Peer Address:Port Process
LISTEN 0      128          0.0.0.0:22         0.0.0.0:*
LISTEN 0      50     127.0.0.53%lo:53         0.0.0.0:*

LISTEN 0      4096            [::]:9092          [::]:*
`

const netstatOutput = `Active Internet connections (only servers)
Proto Recv-Q Send-Q Local Address           Foreign Address         State
tcp        0      0 0.0.0.0:22              0.0.0.0:*               LISTEN
tcp6       0      0 :::6379                 :::*                    LISTEN
`

const timedatectlOutput = `               Local time: Fri 2026-10-16 10:00:00 CEST
           Universal time: Fri 2026-10-16 08:00:00 UTC
                 RTC time: Fri 2026-10-16 08:00:00
                Time zone: Europe/Madrid (CEST, +0200)
System clock synchronized: yes
              NTP service: active
          RTC in local TZ: no
`
