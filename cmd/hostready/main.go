// Package main is the entry point for hostready, a readiness probe for
// provisioned machines and the services they run.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	sysdetect "github.com/ancients-collective/hostready/internal/context"
	"github.com/ancients-collective/hostready/internal/logging"
	"github.com/ancients-collective/hostready/internal/output"
	"github.com/ancients-collective/hostready/internal/settings"
	"github.com/ancients-collective/hostready/internal/types"
)

// version is set at build time via -ldflags.
var version = "1.0.0"

// envFile is the optional dotenv file read before settings resolve.
const envFile = ".env"

// app carries the streams, global flags and shared services of one invocation.
type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	// Global flags
	verbose    bool
	quiet      bool
	logToFile  bool
	format     string
	noColor    bool
	outputFile string

	settings *settings.Settings
	log      *zap.Logger
	detector sysdetect.Detector

	code int
}

func main() {
	os.Exit(execute(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// execute runs the command line and returns the monitoring exit code.
// Usage and configuration errors map to UNKNOWN.
func execute(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	a := &app{
		stdin:    stdin,
		stdout:   stdout,
		stderr:   stderr,
		detector: sysdetect.NewDetector(),
		code:     types.ExitOK,
	}
	return a.execute(context.Background(), args)
}

func (a *app) execute(ctx context.Context, args []string) int {
	root := a.newRootCmd()
	root.SetArgs(args)
	root.SetIn(a.stdin)
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	err := root.ExecuteContext(ctx)
	if a.log != nil {
		_ = a.log.Sync()
	}
	if err != nil {
		fmt.Fprintf(a.stderr, "  ✗ %v\n", err)
		return types.ExitUnknown
	}
	return a.code
}

func (a *app) newRootCmd() *cobra.Command {
	opts := &probeOptions{}
	root := &cobra.Command{
		Use:   "hostready --config <file> --type <machine-type>",
		Short: "Check that a provisioned machine is ready for service",
		Long: `hostready verifies that a machine matches the hardware and OS profile
declared for its type, then exits with a monitoring-plugin status:
0 OK, 1 WARNING, 2 CRITICAL, 3 UNKNOWN.`,
		Example: `  hostready --config machines.yaml --type kafka
  hostready --config machines.yaml --type redis --format text
  hostready --config machines.yaml --type kafka --dummy recorded-facts.txt
  hostready validate machines.yaml
  hostready kafka --broker 10.0.0.5:9092 --list-topics`,
		Version:       version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup()
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runProbe(cmd.Context(), opts)
		},
	}
	root.SetVersionTemplate("hostready {{.Version}}\n")

	pf := root.PersistentFlags()
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "increase output verbosity")
	pf.BoolVarP(&a.quiet, "quiet", "q", false, "log warnings and errors only")
	pf.BoolVarP(&a.logToFile, "logging", "l", false, "write a rotating JSON log ("+logging.DefaultFile+")")
	pf.StringVarP(&a.format, "format", "f", output.FormatPlain, "output format: "+strings.Join(output.Formats, ", "))
	pf.BoolVar(&a.noColor, "no-color", false, "disable colored output")
	pf.StringVarP(&a.outputFile, "output", "o", "", "write the report to a file (default: stdout)")
	root.MarkFlagsMutuallyExclusive("verbose", "quiet")

	root.Flags().BoolP("version", "V", false, "print the version and exit")
	root.Flags().StringVarP(&opts.config, "config", "c", "", "machine inventory file (YAML or JSON)")
	root.Flags().StringVarP(&opts.machineType, "type", "t", "", "machine type to verify: "+typeList())
	root.Flags().StringVarP(&opts.dummy, "dummy", "d", "", "read facts from a recorded file instead of the live system")
	_ = root.MarkFlagRequired("config")
	_ = root.MarkFlagRequired("type")

	root.AddCommand(
		a.newValidateCmd(),
		a.newTypesCmd(),
		a.newKafkaCmd(),
		a.newRedisCmd(),
		a.newPostgresCmd(),
		a.newMetricCmd(),
		a.newServiceCmd(),
	)
	return root
}

// setup resolves settings and builds the logger before any command runs.
func (a *app) setup() error {
	s, err := settings.Load(envFile)
	if err != nil {
		return err
	}
	a.settings = s

	log, err := logging.New(a.stderr, logging.Options{
		Verbose: a.verbose,
		Quiet:   a.quiet,
		File:    a.logToFile,
		Dir:     s.LogDir,
		Name:    s.LogFile,
	})
	if err != nil {
		return fmt.Errorf("failed to open log: %w", err)
	}
	a.log = log.With(zap.String("version", version))
	return nil
}

// writeReport renders report in the selected format and records its exit code.
func (a *app) writeReport(report *types.ProbeReport) error {
	isDumb := output.IsDumbTerm()
	if a.noColor || a.format != output.FormatText || a.outputFile != "" || isDumb {
		color.NoColor = true
	}

	termWidth := 0
	if a.outputFile == "" && a.format == output.FormatText {
		if f, ok := a.stdout.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
			if tw, _, err := term.GetSize(int(f.Fd())); err == nil && tw > 0 {
				termWidth = tw
			}
		} else {
			color.NoColor = true
		}
	}

	formatter, err := output.New(a.format, termWidth, isDumb)
	if err != nil {
		return err
	}

	w := a.stdout
	if a.outputFile != "" {
		if err := validateOutputPath(a.outputFile); err != nil {
			return fmt.Errorf("unsafe output path: %w", err)
		}
		f, err := os.Create(a.outputFile)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if err := formatter.Write(w, report); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	a.code = report.ExitCode()
	a.log.Info("probe finished",
		zap.String("subject", report.Subject),
		zap.String("status", string(report.Status)),
		zap.Int("exit_code", a.code))

	if a.outputFile != "" {
		passed, failed := report.Counts()
		fmt.Fprintf(a.stderr, "  %s: %d passed · %d failed, written to %s\n",
			report.Status, passed, failed, a.outputFile)
	}
	return nil
}

// unsafeOutputPrefixes are system directories reports must never overwrite.
var unsafeOutputPrefixes = []string{
	"/etc/", "/bin/", "/sbin/", "/usr/", "/boot/", "/dev/", "/proc/", "/sys/", "/lib/", "/lib64/",
}

func validateOutputPath(path string) error {
	cleaned := filepath.Clean(path)
	if filepath.IsAbs(cleaned) {
		for _, prefix := range unsafeOutputPrefixes {
			if strings.HasPrefix(cleaned+"/", prefix) {
				return fmt.Errorf("refusing to write to system path %q", cleaned)
			}
		}
	}
	return nil
}
