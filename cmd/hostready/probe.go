package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	sysdetect "github.com/ancients-collective/hostready/internal/context"
	"github.com/ancients-collective/hostready/internal/engine"
	"github.com/ancients-collective/hostready/internal/facts"
	"github.com/ancients-collective/hostready/internal/loader"
	"github.com/ancients-collective/hostready/internal/shell"
	"github.com/ancients-collective/hostready/internal/types"
)

// probeOptions are the root command's flags.
type probeOptions struct {
	config      string
	machineType string
	dummy       string
}

// runProbe verifies this host against the profile for its machine type.
// Every configuration problem is reported before any check runs.
func (a *app) runProbe(ctx context.Context, opts *probeOptions) error {
	mt := types.MachineType(opts.machineType)
	if !mt.Valid() {
		return unknownTypeError(opts.machineType)
	}

	for _, w := range shell.VerifyConfigFile(opts.config) {
		a.log.Warn("config file", zap.String("path", opts.config), zap.String("warning", w))
	}

	inv, err := loader.New(checkNames()).Load(opts.config)
	if err != nil {
		return err
	}
	profile, err := loader.Resolve(inv, mt)
	if err != nil {
		return err
	}

	sys, hostname := a.detectSystem()

	plan, err := engine.PlanFor(profile, hostname)
	if err != nil {
		return fmt.Errorf("profile %s: %w", mt, err)
	}

	registry, err := a.buildRegistry(opts.dummy)
	if err != nil {
		return err
	}

	a.log.Debug("running plan", zap.String("type", string(mt)), zap.Strings("checks", checkIDs(plan.Checks)))
	report := engine.NewRunner(registry, a.log).
		WithSystem(sys).
		WithVersion(version).
		Run(ctx, plan)
	return a.writeReport(report)
}

// detectSystem describes this host. Detection failures are logged and
// leave the report without a system block; the hostname then comes from
// the kernel.
func (a *app) detectSystem() (*types.ReportSystem, string) {
	sc, warnings, err := sysdetect.Detect(a.detector)
	for _, w := range warnings {
		a.log.Debug("system detection", zap.String("warning", w))
	}
	if err != nil {
		a.log.Warn("system detection failed", zap.Error(err))
		hostname, _ := os.Hostname()
		return nil, hostname
	}
	sys := sc.ReportSystem()
	if sys.Hostname == "" {
		sys.Hostname, _ = os.Hostname()
	}
	return sys, sys.Hostname
}

// buildRegistry wires the checks to this run's collaborators: the shell
// allowlist, the fact source (recorded when dummy is set) and the resolver.
func (a *app) buildRegistry(dummy string) (*engine.Registry, error) {
	s := a.settings
	sh := shell.New(
		shell.WithTimeout(s.CommandTimeout),
		shell.WithLogger(a.log),
		shell.WithPath(facts.DefaultMetadataCommand, s.MetadataCommand),
	)

	var src facts.Source
	if dummy != "" {
		rec, err := facts.NewRecordedSource(dummy)
		if err != nil {
			return nil, err
		}
		a.log.Info("using recorded facts", zap.String("path", dummy))
		src = rec
	} else {
		src = facts.NewLiveSource(sh, facts.DefaultMetadataCommand)
	}

	var res engine.Resolver
	switch s.DNSResolver {
	case engine.ResolverNative:
		native, err := engine.NewNativeResolver(s.DNSServer, s.ResolvConf, s.DNSTimeout)
		if err != nil {
			return nil, err
		}
		res = native
	default:
		res = engine.NewDigResolver(sh, s.DNSServer)
	}

	return engine.NewRegistry(
		engine.WithShell(sh),
		engine.WithFacts(src),
		engine.WithResolver(res),
		engine.WithHostsFile(s.HostsFile),
		engine.WithLogger(a.log),
	), nil
}

func (a *app) newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <config>",
		Short: "Validate a machine inventory without running checks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			for _, w := range shell.VerifyConfigFile(path) {
				fmt.Fprintf(a.stderr, "  ! %s\n", w)
			}
			inv, err := loader.New(checkNames()).Load(path)
			if err != nil {
				var cfgErr *loader.ConfigError
				if errors.As(err, &cfgErr) {
					for _, p := range cfgErr.Problems() {
						fmt.Fprintf(a.stderr, "  ✗ %s\n", p)
					}
					fmt.Fprintf(a.stderr, "\n  Validation failed: %d problem(s)\n", len(cfgErr.Problems()))
					a.code = types.ExitUnknown
					return nil
				}
				return err
			}
			fmt.Fprintf(a.stdout, "  ✓ %s is valid (%d machine type(s))\n", path, len(inv.Machines))
			a.code = types.ExitOK
			return nil
		},
	}
}

func (a *app) newTypesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "types",
		Short: "List machine types and the checks each one runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TYPE\tCHECKS")
			for _, mt := range types.MachineTypes {
				checks, _ := engine.DefaultPlan(mt)
				fmt.Fprintf(tw, "%s\t%s\n", mt, strings.Join(checkIDs(checks), ", "))
			}
			a.code = types.ExitOK
			return tw.Flush()
		},
	}
}

func (a *app) newServiceCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "service --name <unit>",
		Short: "Check that a systemd unit is active",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := shell.ValidateServiceName(name); err != nil {
				return err
			}
			registry, err := a.buildRegistry("")
			if err != nil {
				return err
			}
			sys, _ := a.detectSystem()
			plan := engine.Plan{
				Subject: "service " + name,
				Checks:  []types.CheckID{types.CheckService},
				Params:  engine.Params{Services: []string{name}},
			}
			report := engine.NewRunner(registry, a.log).WithSystem(sys).WithVersion(version).Run(cmd.Context(), plan)
			return a.writeReport(report)
		},
	}
	cmd.Flags().StringVarP(&name, "name", "n", "nifi", "systemd unit name")
	return cmd
}

func checkNames() []string {
	return checkIDs(engine.AllChecks)
}

func checkIDs(ids []types.CheckID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}

func typeList() string {
	names := make([]string, len(types.MachineTypes))
	for i, mt := range types.MachineTypes {
		names[i] = string(mt)
	}
	return strings.Join(names, ", ")
}

func unknownTypeError(name string) error {
	err := fmt.Errorf("%w: %q (valid: %s)", types.ErrUnknownMachineType, name, typeList())
	if s := suggestTypes(name); len(s) > 0 {
		err = fmt.Errorf("%w; did you mean %s?", err, strings.Join(s, " or "))
	}
	return err
}
