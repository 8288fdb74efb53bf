package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/ancients-collective/hostready/internal/broker"
	"github.com/ancients-collective/hostready/internal/database"
	"github.com/ancients-collective/hostready/internal/kvstore"
	"github.com/ancients-collective/hostready/internal/metrics"
)

// withTimeout bounds a collaborator run by the connect_timeout setting.
func (a *app) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, a.settings.ConnectTimeout)
}

func (a *app) newKafkaCmd() *cobra.Command {
	var (
		addr string
		opts broker.Options
	)
	cmd := &cobra.Command{
		Use:   "kafka --broker <host:port>",
		Short: "Exercise a Kafka broker",
		Long: `Connects to a Kafka broker and optionally produces lines read from stdin,
lists topics, deletes a topic or describes a resource's configuration.
Producing to the default topic creates it when the broker allows it.`,
		Example: `  printf 'one\ntwo\n' | hostready kafka -b 10.0.0.5:9092 --produce-lines
  hostready kafka -b 10.0.0.5:9092 --describe topic --config-filter utester
  hostready kafka -b 10.0.0.5:9092 --delete-topic`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := opts.Validate(); err != nil {
				return err
			}
			opts.Input = a.stdin

			ctx, cancel := a.withTimeout(cmd.Context())
			defer cancel()

			p := broker.New(addr, a.settings.ConnectTimeout, broker.WithLogger(a.log))
			return a.writeReport(p.Run(ctx, opts))
		},
	}
	f := cmd.Flags()
	f.StringVarP(&addr, "broker", "b", "", "broker address (host:port)")
	f.StringVarP(&opts.Topic, "topic", "t", broker.DefaultTopic, "topic to produce to or delete")
	f.BoolVar(&opts.ProduceLines, "produce-lines", false, "produce each stdin line as a message")
	f.BoolVar(&opts.ListTopics, "list-topics", false, "list topics")
	f.BoolVar(&opts.DeleteTopic, "delete-topic", false, "delete the topic")
	f.StringVar(&opts.Describe, "describe", "", "describe a resource: "+strings.Join(broker.ResourceTypes(), ", "))
	f.StringVar(&opts.ConfigFilter, "config-filter", "", "resource name to describe")
	_ = cmd.MarkFlagRequired("broker")
	return cmd
}

func (a *app) newRedisCmd() *cobra.Command {
	var (
		cfg    kvstore.Config
		opts   kvstore.Options
		setArg string
	)
	cmd := &cobra.Command{
		Use:   "redis --host <host>",
		Short: "Exercise a Redis server",
		Example: `  hostready redis --host 10.0.0.7 --ssl --hello-test
  hostready redis --host 10.0.0.7 --get-key msg:hello`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if setArg != "" {
				k, v, err := kvstore.ParseAssignment(setArg)
				if err != nil {
					return fmt.Errorf("--set-key: %w", err)
				}
				opts.SetKey, opts.SetValue = k, v
			}
			cfg.Timeout = a.settings.ConnectTimeout
			if cfg.Password == "" {
				cfg.Password = a.settings.Password
			}

			ctx, cancel := a.withTimeout(cmd.Context())
			defer cancel()

			p := kvstore.New(cfg, kvstore.WithLogger(a.log))
			defer p.Close()
			return a.writeReport(p.Run(ctx, opts))
		},
	}
	f := cmd.Flags()
	f.StringVar(&cfg.Host, "host", "", "server host")
	f.IntVarP(&cfg.Port, "port", "p", kvstore.DefaultPort, "server port")
	f.StringVarP(&cfg.User, "user", "u", "", "ACL user")
	addPasswordFlag(f, &cfg.Password)
	f.IntVar(&cfg.DB, "db", 0, "database number")
	f.BoolVar(&cfg.SSL, "ssl", false, "connect over TLS")
	f.BoolVar(&opts.HelloTest, "hello-test", false, "set and read back "+kvstore.HelloKey)
	f.StringVar(&opts.GetKey, "get-key", "", "read a key")
	f.StringVar(&setArg, "set-key", "", "write a key (KEY=VALUE)")
	f.StringVar(&opts.ScanPattern, "scan", "", "list keys matching a pattern")
	f.StringVar(&opts.DeleteKey, "delete-key", "", "delete a key")
	f.BoolVar(&opts.Flush, "flush", false, "flush the selected database")
	_ = cmd.MarkFlagRequired("host")
	return cmd
}

func (a *app) newPostgresCmd() *cobra.Command {
	var (
		cfg  database.Config
		opts database.Options
	)
	cmd := &cobra.Command{
		Use:   "postgres --host <host> --dbname <name>",
		Short: "Exercise a PostgreSQL database",
		Example: `  hostready postgres --host 10.0.0.9 --dbname orders --ssl --get-version
  hostready postgres --host 10.0.0.9 --dbname orders --count-table public.orders`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg.Timeout = a.settings.ConnectTimeout
			if cfg.Password == "" {
				cfg.Password = a.settings.Password
			}

			ctx, cancel := a.withTimeout(cmd.Context())
			defer cancel()

			p := database.New(cfg, database.WithLogger(a.log))
			return a.writeReport(p.Run(ctx, opts))
		},
	}
	f := cmd.Flags()
	f.StringVar(&cfg.Host, "host", "", "server host")
	f.IntVarP(&cfg.Port, "port", "p", database.DefaultPort, "server port")
	f.StringVar(&cfg.DBName, "dbname", "", "database name")
	f.StringVarP(&cfg.User, "user", "u", "", "user")
	addPasswordFlag(f, &cfg.Password)
	f.BoolVar(&cfg.SSL, "ssl", false, "require TLS (sslmode=require)")
	f.BoolVar(&opts.GetVersion, "get-version", false, "query the server version")
	f.StringVar(&opts.CountTable, "count-table", "", "count rows in a table")
	_ = cmd.MarkFlagRequired("host")
	_ = cmd.MarkFlagRequired("dbname")
	return cmd
}

func (a *app) newMetricCmd() *cobra.Command {
	var (
		req                                 metrics.Request
		counter, gauge, histogram, summary float64
	)
	cmd := &cobra.Command{
		Use:   "metric --file <path> --metric-name <name> --metric-description <text>",
		Short: "Write Prometheus metrics to a textfile",
		Example: `  hostready metric --file /var/lib/node_exporter/hostready.prom \
      --metric-name jobs --metric-description "processed jobs" --counter 2.5 --gauge 5.5`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f := cmd.Flags()
			if f.Changed("counter") {
				req.Counter = &counter
			}
			if f.Changed("gauge") {
				req.Gauge = &gauge
			}
			if f.Changed("histogram") {
				req.Histogram = &histogram
			}
			if f.Changed("summary") {
				req.Summary = &summary
			}
			if err := req.Validate(); err != nil {
				return err
			}
			return a.writeReport(metrics.NewEmitter(a.log).Emit(req))
		},
	}
	f := cmd.Flags()
	f.StringVar(&req.File, "file", "", "textfile to write")
	f.StringVar(&req.Name, "metric-name", "", "metric name (a type suffix is appended)")
	f.StringVar(&req.Description, "metric-description", "", "metric description")
	f.Float64Var(&counter, "counter", 0, "emit a counter incremented by this value")
	f.Float64Var(&gauge, "gauge", 0, "emit a gauge set to this value")
	f.Float64Var(&histogram, "histogram", 0, "emit a histogram observing this many seconds")
	f.Float64Var(&summary, "summary", 0, "emit a summary observing this many seconds")
	_ = cmd.MarkFlagRequired("file")
	_ = cmd.MarkFlagRequired("metric-name")
	_ = cmd.MarkFlagRequired("metric-description")
	return cmd
}

// addPasswordFlag registers --password. An empty value falls back to the
// password setting.
func addPasswordFlag(f *pflag.FlagSet, dst *string) {
	f.StringVarP(dst, "password", "w", "", "password (or set HOSTREADY_PASSWORD)")
}
