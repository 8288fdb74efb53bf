// Package database exercises a PostgreSQL deployment: it connects,
// optionally over TLS, and runs read-only probe queries.
package database

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/ancients-collective/hostready/internal/engine"
	"github.com/ancients-collective/hostready/internal/types"
)

// DefaultPort is the standard PostgreSQL port.
const DefaultPort = 5432

// Outcome identifiers reported by the PostgreSQL probe.
const (
	CheckConnect types.CheckID = "postgres-connect"
	CheckVersion types.CheckID = "postgres-version"
	CheckCount   types.CheckID = "postgres-count"
)

// Pool is the subset of *pgxpool.Pool the probe uses.
type Pool interface {
	Ping(ctx context.Context) error
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Connector opens a pool for a connection string.
type Connector func(ctx context.Context, dsn string) (Pool, error)

// Config describes how to reach the database.
type Config struct {
	Host     string
	Port     int
	DBName   string
	User     string
	Password string
	SSL      bool
	Timeout  time.Duration
}

// DSN renders c as a postgres:// URL. sslmode is require with SSL and
// disable otherwise.
func (c Config) DSN() string {
	port := c.Port
	if port == 0 {
		port = DefaultPort
	}
	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(c.Host, strconv.Itoa(port)),
		Path:   "/" + c.DBName,
	}
	if c.User != "" {
		if c.Password != "" {
			u.User = url.UserPassword(c.User, c.Password)
		} else {
			u.User = url.User(c.User)
		}
	}
	q := url.Values{}
	if c.SSL {
		q.Set("sslmode", "require")
	} else {
		q.Set("sslmode", "disable")
	}
	if c.Timeout > 0 {
		secs := int(c.Timeout.Round(time.Second) / time.Second)
		if secs < 1 {
			secs = 1
		}
		q.Set("connect_timeout", strconv.Itoa(secs))
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// Options select the queries to run after connecting.
type Options struct {
	GetVersion bool
	CountTable string // optionally schema-qualified: schema.table
}

// Prober runs PostgreSQL queries against one database.
type Prober struct {
	cfg     Config
	connect Connector
	log     *zap.Logger
}

// Option configures a Prober.
type Option func(*Prober)

// WithConnector replaces the pool constructor.
func WithConnector(c Connector) Option {
	return func(p *Prober) { p.connect = c }
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
	p := &Prober{cfg: cfg, connect: connectPool, log: zap.NewNop()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func connectPool(ctx context.Context, dsn string) (Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	cfg.MaxConns = 1
	return pgxpool.NewWithConfig(ctx, cfg)
}

// Subject names the probe target in reports.
func (p *Prober) Subject() string {
	return fmt.Sprintf("postgres %s/%s", p.cfg.Host, p.cfg.DBName)
}

// Run connects and performs the selected queries. A failed connection or
// ping yields an UNKNOWN report.
func (p *Prober) Run(ctx context.Context, opts Options) *types.ProbeReport {
	pool, err := p.connect(ctx, p.cfg.DSN())
	if err != nil {
		p.log.Warn("postgres connect failed", zap.String("host", p.cfg.Host), zap.Error(err))
		return engine.Unknown(p.Subject(), engine.TraceUnreachable)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		p.log.Warn("postgres ping failed", zap.String("host", p.cfg.Host), zap.Error(err))
		return engine.Unknown(p.Subject(), engine.TraceUnreachable)
	}

	mode := "sslmode=disable"
	if p.cfg.SSL {
		mode = "sslmode=require"
	}
	outcomes := []types.CheckOutcome{
		types.Pass(CheckConnect, fmt.Sprintf("connected to %s (%s)", p.cfg.DBName, mode)),
	}

	if opts.GetVersion {
		outcomes = append(outcomes, version(ctx, pool))
	}
	if opts.CountTable != "" {
		outcomes = append(outcomes, countRows(ctx, pool, opts.CountTable))
	}

	return engine.Aggregate(p.Subject(), outcomes, nil)
}

func version(ctx context.Context, pool Pool) types.CheckOutcome {
	var v string
	if err := pool.QueryRow(ctx, "SELECT version()").Scan(&v); err != nil {
		return types.Fail(CheckVersion, fmt.Sprintf("SELECT version(): %v", err))
	}
	return types.Pass(CheckVersion, v)
}

func countRows(ctx context.Context, pool Pool, table string) types.CheckOutcome {
	query, err := CountQuery(table)
	if err != nil {
		return types.Fail(CheckCount, err.Error())
	}
	var n int64
	if err := pool.QueryRow(ctx, query).Scan(&n); err != nil {
		return types.Fail(CheckCount, fmt.Sprintf("counting rows in %s: %v", table, err))
	}
	return types.Pass(CheckCount, fmt.Sprintf("%d row(s) in %s", n, table))
}

// CountQuery builds a row-count statement for table with the identifier
// quoted, so the name can never inject SQL.
func CountQuery(table string) (string, error) {
	parts := strings.Split(table, ".")
	if len(parts) > 2 {
		return "", fmt.Errorf("invalid table name %q", table)
	}
	for _, part := range parts {
		if part == "" {
			return "", fmt.Errorf("invalid table name %q", table)
		}
	}
	return "SELECT count(*) FROM " + pgx.Identifier(parts).Sanitize(), nil
}
