// Package kvstore exercises a Redis deployment: connectivity (optionally
// over TLS), a hello round-trip and basic key operations.
package kvstore

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis/v9"
	"go.uber.org/zap"

	"github.com/ancients-collective/hostready/internal/engine"
	"github.com/ancients-collective/hostready/internal/types"
)

// Hello round-trip key and payload.
const (
	HelloKey     = "msg:hello"
	HelloMessage = "Hello Redis!!!"
)

// DefaultPort is the standard Redis port.
const DefaultPort = 6379

// maxScanKeys caps the keys listed as notes by a scan.
const maxScanKeys = 100

// Outcome identifiers reported by the Redis probe.
const (
	CheckConnect types.CheckID = "redis-connect"
	CheckHello   types.CheckID = "redis-hello"
	CheckGet     types.CheckID = "redis-get"
	CheckSet     types.CheckID = "redis-set"
	CheckScan    types.CheckID = "redis-scan"
	CheckDelete  types.CheckID = "redis-delete"
	CheckFlush   types.CheckID = "redis-flushdb"
)

// Client is the subset of *redis.Client the probe uses.
type Client interface {
	Ping(ctx context.Context) *redis.StatusCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	FlushDB(ctx context.Context) *redis.StatusCmd
	Close() error
}

// Config describes how to reach the server.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	DB       int
	SSL      bool
	Timeout  time.Duration
}

// Addr returns host:port.
func (c Config) Addr() string {
	port := c.Port
	if port == 0 {
		port = DefaultPort
	}
	return net.JoinHostPort(c.Host, strconv.Itoa(port))
}

// RedisOptions converts c into go-redis client options.
func (c Config) RedisOptions() *redis.Options {
	opts := &redis.Options{
		Addr:         c.Addr(),
		Username:     c.User,
		Password:     c.Password,
		DB:           c.DB,
		DialTimeout:  c.Timeout,
		ReadTimeout:  c.Timeout,
		WriteTimeout: c.Timeout,
	}
	if c.SSL {
		opts.TLSConfig = &tls.Config{
			MinVersion: tls.VersionTLS12,
			ServerName: c.Host,
		}
	}
	return opts
}

// Options select the operations to run after connecting.
type Options struct {
	HelloTest   bool
	GetKey      string
	SetKey      string
	SetValue    string
	ScanPattern string
	DeleteKey   string
	Flush       bool
}

// ParseAssignment splits a KEY=VALUE argument.
func ParseAssignment(s string) (key, value string, err error) {
	key, value, ok := strings.Cut(s, "=")
	if !ok || key == "" {
		return "", "", fmt.Errorf("expected KEY=VALUE, got %q", s)
	}
	return key, value, nil
}

// Prober runs Redis operations against one server.
type Prober struct {
	cfg    Config
	client Client
	log    *zap.Logger
}

// Option configures a Prober.
type Option func(*Prober)

// WithClient replaces the Redis client.
func WithClient(c Client) Option {
	return func(p *Prober) { p.client = c }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Prober) {
		if l != nil {
			p.log = l
		}
	}
}

// New creates a Prober for cfg.
func New(cfg Config, opts ...Option) *Prober {
	p := &Prober{cfg: cfg, log: zap.NewNop()}
	for _, opt := range opts {
		opt(p)
	}
	if p.client == nil {
		p.client = redis.NewClient(cfg.RedisOptions())
	}
	return p
}

// Subject names the probe target in reports.
func (p *Prober) Subject() string {
	return "redis " + p.cfg.Addr()
}

// Close releases the client connection pool.
func (p *Prober) Close() error {
	return p.client.Close()
}

// Run pings the server and performs the selected operations in a fixed
// order: hello, set, get, scan, delete, flush. A failed ping yields an
// UNKNOWN report.
func (p *Prober) Run(ctx context.Context, opts Options) *types.ProbeReport {
	if err := p.client.Ping(ctx).Err(); err != nil {
		p.log.Warn("redis unreachable", zap.String("addr", p.cfg.Addr()), zap.Error(err))
		return engine.Unknown(p.Subject(), engine.TraceUnreachable)
	}

	mode := "plain"
	if p.cfg.SSL {
		mode = "tls"
	}
	outcomes := []types.CheckOutcome{
		types.Pass(CheckConnect, fmt.Sprintf("connected to %s (%s)", p.cfg.Addr(), mode)),
	}
	var notes []string

	if opts.HelloTest {
		outcomes = append(outcomes, p.hello(ctx))
	}
	if opts.SetKey != "" {
		outcomes = append(outcomes, p.set(ctx, opts.SetKey, opts.SetValue))
	}
	if opts.GetKey != "" {
		outcomes = append(outcomes, p.get(ctx, opts.GetKey))
	}
	if opts.ScanPattern != "" {
		o, n := p.scan(ctx, opts.ScanPattern)
		outcomes = append(outcomes, o)
		notes = append(notes, n...)
	}
	if opts.DeleteKey != "" {
		outcomes = append(outcomes, p.del(ctx, opts.DeleteKey))
	}
	if opts.Flush {
		outcomes = append(outcomes, p.flush(ctx))
	}

	return engine.Aggregate(p.Subject(), outcomes, notes)
}

func (p *Prober) hello(ctx context.Context) types.CheckOutcome {
	if err := p.client.Set(ctx, HelloKey, HelloMessage, 0).Err(); err != nil {
		return types.Fail(CheckHello, fmt.Sprintf("SET %s: %v", HelloKey, err))
	}
	got, err := p.client.Get(ctx, HelloKey).Result()
	if err != nil {
		return types.Fail(CheckHello, fmt.Sprintf("GET %s: %v", HelloKey, err))
	}
	if got != HelloMessage {
		return types.Fail(CheckHello, fmt.Sprintf("%s returned %q, expected %q", HelloKey, got, HelloMessage))
	}
	return types.Pass(CheckHello, fmt.Sprintf("%s round-trip returned %q", HelloKey, got))
}

func (p *Prober) set(ctx context.Context, key, value string) types.CheckOutcome {
	if err := p.client.Set(ctx, key, value, 0).Err(); err != nil {
		return types.Fail(CheckSet, fmt.Sprintf("SET %s: %v", key, err))
	}
	return types.Pass(CheckSet, fmt.Sprintf("%s set", key))
}

func (p *Prober) get(ctx context.Context, key string) types.CheckOutcome {
	val, err := p.client.Get(ctx, key).Result()
	switch {
	case errors.Is(err, redis.Nil):
		return types.Fail(CheckGet, fmt.Sprintf("key %s not found", key))
	case err != nil:
		return types.Fail(CheckGet, fmt.Sprintf("GET %s: %v", key, err))
	}
	return types.Pass(CheckGet, fmt.Sprintf("%s = %q", key, val))
}

func (p *Prober) scan(ctx context.Context, pattern string) (types.CheckOutcome, []string) {
	var (
		cursor uint64
		total  int
		notes  []string
	)
	for {
		keys, next, err := p.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return types.Fail(CheckScan, fmt.Sprintf("SCAN %s: %v", pattern, err)), notes
		}
		for _, k := range keys {
			if len(notes) < maxScanKeys {
				notes = append(notes, "key "+k)
			}
		}
		total += len(keys)
		cursor = next
		if cursor == 0 {
			break
		}
	}
	if total > maxScanKeys {
		notes = append(notes, fmt.Sprintf("... %d more", total-maxScanKeys))
	}
	return types.Pass(CheckScan, fmt.Sprintf("%d key(s) match %s", total, pattern)), notes
}

func (p *Prober) del(ctx context.Context, key string) types.CheckOutcome {
	n, err := p.client.Del(ctx, key).Result()
	if err != nil {
		return types.Fail(CheckDelete, fmt.Sprintf("DEL %s: %v", key, err))
	}
	if n == 0 {
		return types.Fail(CheckDelete, fmt.Sprintf("key %s not found", key))
	}
	return types.Pass(CheckDelete, fmt.Sprintf("%s deleted", key))
}

func (p *Prober) flush(ctx context.Context) types.CheckOutcome {
	if err := p.client.FlushDB(ctx).Err(); err != nil {
		return types.Fail(CheckFlush, fmt.Sprintf("FLUSHDB: %v", err))
	}
	return types.Pass(CheckFlush, fmt.Sprintf("database %d flushed", p.cfg.DB))
}
