package engine

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/miekg/dns"

	"github.com/ancients-collective/hostready/internal/shell"
)

// Resolver names.
const (
	ResolverDig    = "dig"
	ResolverNative = "native"
)

// DefaultResolvConf is where the native resolver finds its nameserver.
const DefaultResolvConf = "/etc/resolv.conf"

// Resolver looks up a name and returns dig-style output.
type Resolver interface {
	Lookup(ctx context.Context, fqdn string) (string, error)
	Name() string
}

// DigResolver runs dig through the shell allowlist.
type DigResolver struct {
	runner shell.Runner
	server string
}

// NewDigResolver creates a dig-backed resolver. server is an optional
// nameserver address; empty uses the system default.
func NewDigResolver(runner shell.Runner, server string) *DigResolver {
	return &DigResolver{runner: runner, server: server}
}

// Lookup implements Resolver.
func (d *DigResolver) Lookup(ctx context.Context, fqdn string) (string, error) {
	if err := shell.ValidateHostname(fqdn); err != nil {
		return "", err
	}
	args := []string{fqdn}
	if d.server != "" {
		args = []string{"@" + d.server, fqdn}
	}
	return d.runner.Run(ctx, "dig", args...)
}

// Name implements Resolver.
func (d *DigResolver) Name() string {
	return ResolverDig
}

// NativeResolver queries a nameserver directly with an A lookup.
type NativeResolver struct {
	client *dns.Client
	server string
}

// NewNativeResolver creates an in-process resolver. An empty server uses
// the first nameserver from resolvConf.
func NewNativeResolver(server, resolvConf string, timeout time.Duration) (*NativeResolver, error) {
	if server == "" {
		if resolvConf == "" {
			resolvConf = DefaultResolvConf
		}
		cfg, err := dns.ClientConfigFromFile(resolvConf)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", resolvConf, err)
		}
		if len(cfg.Servers) == 0 {
			return nil, fmt.Errorf("no nameserver in %s", resolvConf)
		}
		server = net.JoinHostPort(cfg.Servers[0], cfg.Port)
	} else if _, _, err := net.SplitHostPort(server); err != nil {
		server = net.JoinHostPort(strings.Trim(server, "[]"), "53")
	}
	return &NativeResolver{
		client: &dns.Client{Net: "udp", Timeout: timeout},
		server: server,
	}, nil
}

// Lookup implements Resolver. The response is rendered the way dig prints it.
func (n *NativeResolver) Lookup(ctx context.Context, fqdn string) (string, error) {
	if err := shell.ValidateHostname(fqdn); err != nil {
		return "", err
	}
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(fqdn), dns.TypeA)
	msg.RecursionDesired = true

	resp, _, err := n.client.ExchangeContext(ctx, msg, n.server)
	if err != nil {
		return "", fmt.Errorf("query %s: %w", n.server, err)
	}
	return resp.String(), nil
}

// Name implements Resolver.
func (n *NativeResolver) Name() string {
	return ResolverNative
}

// Server returns the nameserver address queried.
func (n *NativeResolver) Server() string {
	return n.server
}
