// Package broker exercises a Kafka deployment: it produces lines, lists,
// deletes and describes topics, and reports each step as a check outcome.
package broker

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/ancients-collective/hostready/internal/engine"
	"github.com/ancients-collective/hostready/internal/types"
)

// DefaultTopic is the topic used when none is given. Producing to it
// creates it on brokers that allow auto-creation.
const DefaultTopic = "utester"

// Outcome identifiers reported by the broker probe.
const (
	CheckConnect  types.CheckID = "kafka-connect"
	CheckProduce  types.CheckID = "kafka-produce"
	CheckList     types.CheckID = "kafka-list-topics"
	CheckDelete   types.CheckID = "kafka-delete-topic"
	CheckDescribe types.CheckID = "kafka-describe"
)

// resourceTypes maps --describe values to Kafka resource types.
var resourceTypes = map[string]kafka.ResourceType{
	"any":    kafka.ResourceTypeAny,
	"topic":  kafka.ResourceTypeTopic,
	"group":  kafka.ResourceTypeGroup,
	"broker": kafka.ResourceTypeBroker,
}

// ResourceTypes lists the accepted --describe values.
func ResourceTypes() []string {
	names := make([]string, 0, len(resourceTypes))
	for n := range resourceTypes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Admin is the subset of *kafka.Client the probe uses.
type Admin interface {
	Metadata(ctx context.Context, req *kafka.MetadataRequest) (*kafka.MetadataResponse, error)
	DeleteTopics(ctx context.Context, req *kafka.DeleteTopicsRequest) (*kafka.DeleteTopicsResponse, error)
	DescribeConfigs(ctx context.Context, req *kafka.DescribeConfigsRequest) (*kafka.DescribeConfigsResponse, error)
}

// MessageWriter is the subset of *kafka.Writer the probe uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Options select the operations to run against the broker.
type Options struct {
	Topic        string
	ProduceLines bool
	Input        io.Reader // source of lines for ProduceLines
	ListTopics   bool
	DeleteTopic  bool
	Describe     string // "" or one of ResourceTypes()
	ConfigFilter string // resource name to describe
}

// Validate reports option combinations that cannot run.
func (o Options) Validate() error {
	if o.Describe == "" {
		return nil
	}
	if _, ok := resourceTypes[o.Describe]; !ok {
		return fmt.Errorf("unknown resource type %q (valid: %s)", o.Describe, strings.Join(ResourceTypes(), ", "))
	}
	if o.ConfigFilter == "" {
		return fmt.Errorf("--describe %s requires --config-filter", o.Describe)
	}
	return nil
}

// Prober runs Kafka operations against one broker.
type Prober struct {
	broker    string
	admin     Admin
	newWriter func(topic string) MessageWriter
	log       *zap.Logger
}

// Option configures a Prober.
type Option func(*Prober)

// WithAdmin replaces the admin client.
func WithAdmin(a Admin) Option {
	return func(p *Prober) { p.admin = a }
}

// WithWriterFactory replaces the producer constructor.
func WithWriterFactory(fn func(topic string) MessageWriter) Option {
	return func(p *Prober) { p.newWriter = fn }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Prober) {
		if l != nil {
			p.log = l
		}
	}
}

// New creates a Prober for broker (host:port). timeout bounds every request.
func New(broker string, timeout time.Duration, opts ...Option) *Prober {
	p := &Prober{
		broker: broker,
		admin:  &kafka.Client{Addr: kafka.TCP(broker), Timeout: timeout},
		newWriter: func(topic string) MessageWriter {
			return &kafka.Writer{
				Addr:                   kafka.TCP(broker),
				Topic:                  topic,
				Balancer:               &kafka.LeastBytes{},
				AllowAutoTopicCreation: true,
				WriteTimeout:           timeout,
			}
		},
		log: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Subject names the probe target in reports.
func (p *Prober) Subject() string {
	return "kafka " + p.broker
}

// Run connects to the broker and performs the selected operations in a
// fixed order: produce, list, delete, describe. An unreachable broker
// yields an UNKNOWN report.
func (p *Prober) Run(ctx context.Context, opts Options) *types.ProbeReport {
	if opts.Topic == "" {
		opts.Topic = DefaultTopic
	}

	meta, err := p.admin.Metadata(ctx, &kafka.MetadataRequest{})
	if err != nil {
		p.log.Warn("broker unreachable", zap.String("broker", p.broker), zap.Error(err))
		return engine.Unknown(p.Subject(), engine.TraceUnreachable)
	}

	outcomes := []types.CheckOutcome{
		types.Pass(CheckConnect, fmt.Sprintf("connected to %s (%d broker(s), %d topic(s))",
			p.broker, len(meta.Brokers), len(meta.Topics))),
	}
	var notes []string

	if opts.ProduceLines {
		outcomes = append(outcomes, p.produce(ctx, opts.Topic, opts.Input))
	}
	if opts.ListTopics {
		o, n := p.listTopics(ctx)
		outcomes = append(outcomes, o)
		notes = append(notes, n...)
	}
	if opts.DeleteTopic {
		outcomes = append(outcomes, p.deleteTopic(ctx, opts.Topic))
	}
	if opts.Describe != "" {
		o, n := p.describe(ctx, opts.Describe, opts.ConfigFilter)
		outcomes = append(outcomes, o)
		notes = append(notes, n...)
	}

	return engine.Aggregate(p.Subject(), outcomes, notes)
}

func (p *Prober) produce(ctx context.Context, topic string, input io.Reader) types.CheckOutcome {
	if input == nil {
		return types.Fail(CheckProduce, "no input to produce from")
	}

	var msgs []kafka.Message
	scanner := bufio.NewScanner(input)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), " \t\r")
		msgs = append(msgs, kafka.Message{Value: []byte(line)})
	}
	if err := scanner.Err(); err != nil {
		return types.Fail(CheckProduce, fmt.Sprintf("reading input: %v", err))
	}
	if len(msgs) == 0 {
		return types.Fail(CheckProduce, "no lines read from input")
	}

	w := p.newWriter(topic)
	defer w.Close()

	if err := w.WriteMessages(ctx, msgs...); err != nil {
		return types.Fail(CheckProduce, fmt.Sprintf("message delivery to %s failed: %v", topic, err))
	}
	p.log.Debug("messages delivered", zap.String("topic", topic), zap.Int("count", len(msgs)))
	return types.Pass(CheckProduce, fmt.Sprintf("delivered %d message(s) to %s", len(msgs), topic))
}

func (p *Prober) listTopics(ctx context.Context) (types.CheckOutcome, []string) {
	meta, err := p.admin.Metadata(ctx, &kafka.MetadataRequest{})
	if err != nil {
		return types.Fail(CheckList, fmt.Sprintf("listing topics: %v", err)), nil
	}

	topics := make([]kafka.Topic, len(meta.Topics))
	copy(topics, meta.Topics)
	sort.Slice(topics, func(i, j int) bool { return topics[i].Name < topics[j].Name })

	notes := make([]string, 0, len(topics))
	for _, t := range topics {
		line := fmt.Sprintf("topic %s: %d partition(s)", t.Name, len(t.Partitions))
		if t.Internal {
			line += " (internal)"
		}
		notes = append(notes, line)
	}
	return types.Pass(CheckList, fmt.Sprintf("%d topic(s)", len(topics))), notes
}

func (p *Prober) deleteTopic(ctx context.Context, topic string) types.CheckOutcome {
	resp, err := p.admin.DeleteTopics(ctx, &kafka.DeleteTopicsRequest{Topics: []string{topic}})
	if err != nil {
		return types.Fail(CheckDelete, fmt.Sprintf("failed to delete topic %s: %v", topic, err))
	}
	if err := resp.Errors[topic]; err != nil {
		return types.Fail(CheckDelete, fmt.Sprintf("failed to delete topic %s: %v", topic, err))
	}
	return types.Pass(CheckDelete, fmt.Sprintf("topic %s deleted", topic))
}

func (p *Prober) describe(ctx context.Context, kind, name string) (types.CheckOutcome, []string) {
	rt, ok := resourceTypes[kind]
	if !ok {
		return types.Fail(CheckDescribe, fmt.Sprintf("unknown resource type %q", kind)), nil
	}

	resp, err := p.admin.DescribeConfigs(ctx, &kafka.DescribeConfigsRequest{
		Resources: []kafka.DescribeConfigRequestResource{{
			ResourceType: rt,
			ResourceName: name,
		}},
	})
	if err != nil {
		return types.Fail(CheckDescribe, fmt.Sprintf("failed to describe %s %s: %v", kind, name, err)), nil
	}

	var notes []string
	entries := 0
	for _, res := range resp.Resources {
		if res.Error != nil {
			return types.Fail(CheckDescribe, fmt.Sprintf("failed to describe %s %s: %v", kind, res.ResourceName, res.Error)), notes
		}
		for _, e := range res.ConfigEntries {
			value := e.ConfigValue
			if e.IsSensitive {
				value = "(sensitive)"
			}
			notes = append(notes, fmt.Sprintf("%s = %s [read-only=%t, default=%t]",
				e.ConfigName, value, e.ReadOnly, e.IsDefault))
			entries++
		}
	}
	return types.Pass(CheckDescribe, fmt.Sprintf("%s %s: %d config entries", kind, name, entries)), notes
}
