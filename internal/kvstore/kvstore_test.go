package kvstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ancients-collective/hostready/internal/engine"
	"github.com/ancients-collective/hostready/internal/types"
)

// fakeClient is an in-memory Redis keyspace.
type fakeClient struct {
	pingErr  error
	setErr   error
	data     map[string]string
	scanKeys [][]string // pages returned by successive SCAN calls
	scanCall int
	flushed  bool
	closed   bool
}

func newFakeClient() *fakeClient {
	return &fakeClient{data: map[string]string{}}
}

func (f *fakeClient) Ping(_ context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", f.pingErr)
}

func (f *fakeClient) Set(_ context.Context, key string, value interface{}, _ time.Duration) *redis.StatusCmd {
	if f.setErr != nil {
		return redis.NewStatusResult("", f.setErr)
	}
	f.data[key] = value.(string)
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeClient) Get(_ context.Context, key string) *redis.StringCmd {
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeClient) Scan(_ context.Context, _ uint64, _ string, _ int64) *redis.ScanCmd {
	if f.scanCall >= len(f.scanKeys) {
		return redis.NewScanCmdResult(nil, 0, nil)
	}
	page := f.scanKeys[f.scanCall]
	f.scanCall++
	var next uint64
	if f.scanCall < len(f.scanKeys) {
		next = uint64(f.scanCall)
	}
	return redis.NewScanCmdResult(page, next, nil)
}

func (f *fakeClient) Del(_ context.Context, keys ...string) *redis.IntCmd {
	var n int64
	for _, k := range keys {
		if _, ok := f.data[k]; ok {
			delete(f.data, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func (f *fakeClient) FlushDB(_ context.Context) *redis.StatusCmd {
	f.flushed = true
	f.data = map[string]string{}
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeClient) Close() error {
	f.closed = true
	return nil
}

func newProber(c *fakeClient, cfg Config) *Prober {
	if cfg.Host == "" {
		cfg.Host = "redis-01"
	}
	return New(cfg, WithClient(c))
}

func TestRun_Unreachable(t *testing.T) {
	c := newFakeClient()
	c.pingErr = errors.New("dial tcp: i/o timeout")

	report := newProber(c, Config{}).Run(context.Background(), Options{HelloTest: true})
	assert.Equal(t, types.StatusUnknown, report.Status)
	assert.Equal(t, engine.TraceUnreachable, report.Trace)
	assert.Empty(t, c.data, "no operation may run after a failed ping")
}

func TestRun_ConnectReportsMode(t *testing.T) {
	report := newProber(newFakeClient(), Config{SSL: true}).Run(context.Background(), Options{})
	assert.Equal(t, types.StatusOK, report.Status)
	assert.Equal(t, "OK redis-connect: connected to redis-01:6379 (tls)", report.Trace)
}

func TestRun_HelloTest(t *testing.T) {
	c := newFakeClient()
	report := newProber(c, Config{}).Run(context.Background(), Options{HelloTest: true})

	assert.Equal(t, types.StatusOK, report.Status)
	assert.Equal(t, HelloMessage, c.data[HelloKey])
	assert.Contains(t, report.Trace, `msg:hello round-trip returned "Hello Redis!!!"`)
}

func TestRun_HelloSetFails(t *testing.T) {
	c := newFakeClient()
	c.setErr = errors.New("READONLY You can't write against a read only replica")

	report := newProber(c, Config{}).Run(context.Background(), Options{HelloTest: true})
	assert.Equal(t, types.StatusCritical, report.Status)
	assert.Contains(t, report.Trace, "ERROR redis-hello: SET msg:hello: READONLY")
}

func TestRun_GetKey(t *testing.T) {
	c := newFakeClient()
	c.data["greeting"] = "hi"

	report := newProber(c, Config{}).Run(context.Background(), Options{GetKey: "greeting"})
	assert.Equal(t, types.StatusOK, report.Status)
	assert.Contains(t, report.Trace, `greeting = "hi"`)
}

func TestRun_GetMissingKey(t *testing.T) {
	report := newProber(newFakeClient(), Config{}).Run(context.Background(), Options{GetKey: "nope"})
	assert.Equal(t, types.StatusCritical, report.Status)
	assert.Contains(t, report.Trace, "key nope not found")
}

func TestRun_SetThenGet(t *testing.T) {
	c := newFakeClient()
	report := newProber(c, Config{}).Run(context.Background(), Options{SetKey: "k", SetValue: "v", GetKey: "k"})

	assert.Equal(t, types.StatusOK, report.Status)
	require.Len(t, report.Outcomes, 3)
	assert.Equal(t, CheckSet, report.Outcomes[1].Check)
	assert.Equal(t, CheckGet, report.Outcomes[2].Check)
}

func TestRun_ScanPages(t *testing.T) {
	c := newFakeClient()
	c.scanKeys = [][]string{{"user:1", "user:2"}, {"user:3"}}

	report := newProber(c, Config{}).Run(context.Background(), Options{ScanPattern: "user:*"})
	assert.Equal(t, types.StatusOK, report.Status)
	assert.Contains(t, report.Trace, "3 key(s) match user:*")
	assert.Equal(t, []string{"key user:1", "key user:2", "key user:3"}, report.Notes)
}

func TestRun_DeleteKey(t *testing.T) {
	c := newFakeClient()
	c.data["stale"] = "x"

	report := newProber(c, Config{}).Run(context.Background(), Options{DeleteKey: "stale"})
	assert.Equal(t, types.StatusOK, report.Status)
	assert.NotContains(t, c.data, "stale")

	report = newProber(c, Config{}).Run(context.Background(), Options{DeleteKey: "stale"})
	assert.Equal(t, types.StatusCritical, report.Status)
}

func TestRun_Flush(t *testing.T) {
	c := newFakeClient()
	c.data["a"] = "1"

	report := newProber(c, Config{DB: 2}).Run(context.Background(), Options{Flush: true})
	assert.Equal(t, types.StatusOK, report.Status)
	assert.True(t, c.flushed)
	assert.Contains(t, report.Trace, "database 2 flushed")
}

func TestConfig_RedisOptions(t *testing.T) {
	cfg := Config{Host: "cache.internal", Port: 6380, User: "app", Password: "pw", SSL: true, Timeout: 3 * time.Second}
	opts := cfg.RedisOptions()

	assert.Equal(t, "cache.internal:6380", opts.Addr)
	assert.Equal(t, "app", opts.Username)
	assert.Equal(t, 3*time.Second, opts.DialTimeout)
	require.NotNil(t, opts.TLSConfig)
	assert.Equal(t, "cache.internal", opts.TLSConfig.ServerName)

	assert.Nil(t, Config{Host: "h"}.RedisOptions().TLSConfig)
	assert.Equal(t, "h:6379", Config{Host: "h"}.Addr())
}

func TestParseAssignment(t *testing.T) {
	k, v, err := ParseAssignment("color=blue=ish")
	require.NoError(t, err)
	assert.Equal(t, "color", k)
	assert.Equal(t, "blue=ish", v)

	k, v, err = ParseAssignment("empty=")
	require.NoError(t, err)
	assert.Equal(t, "empty", k)
	assert.Empty(t, v)

	_, _, err = ParseAssignment("novalue")
	assert.Error(t, err)
	_, _, err = ParseAssignment("=v")
	assert.Error(t, err)
}

func TestClose(t *testing.T) {
	c := newFakeClient()
	require.NoError(t, newProber(c, Config{}).Close())
	assert.True(t, c.closed)
}
