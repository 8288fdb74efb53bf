// Package shell runs a fixed allowlist of host commands with validated
// arguments and bounded timeouts. It never invokes a shell.
package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultTimeout bounds every command that has no explicit timeout.
const DefaultTimeout = 5 * time.Second

var (
	// ErrNotAllowed is returned for commands or arguments outside the allowlist.
	ErrNotAllowed = errors.New("not allowed")

	// ErrTimeout is returned when a command exceeds its timeout.
	ErrTimeout = errors.New("command timed out")

	// ErrNonZeroExit is returned by Exec when the command exits unsuccessfully.
	ErrNonZeroExit = errors.New("non-zero exit")
)

// Runner is the command-execution surface used by checks and fact sources.
type Runner interface {
	// Run executes a command and returns its stdout. A non-zero exit status
	// is not an error.
	Run(ctx context.Context, name string, args ...string) (string, error)

	// Exec is the strict variant of Run: a non-zero exit status is an error.
	Exec(ctx context.Context, name string, args ...string) (string, error)
}

// CommandSpec defines the constraints for an allowlisted command.
type CommandSpec struct {
	// Path is the resolved absolute path to the command binary.
	Path string

	// FallbackPath is used when the binary is not found in PATH.
	FallbackPath string

	// AllowedFlags are the flags and subcommands that may be passed.
	// Subcommands are listed here so they do not count as positional arguments.
	AllowedFlags []string

	// MaxArgs is the maximum number of positional arguments.
	MaxArgs int

	// Timeout is the maximum execution time. Zero means the executor default.
	Timeout time.Duration
}

// Executor executes only pre-approved commands with validated arguments.
type Executor struct {
	allowlist map[string]CommandSpec
	timeout   time.Duration
	log       *zap.Logger
}

// Option configures an Executor.
type Option func(*Executor)

// WithTimeout sets the default timeout applied to commands without one.
func WithTimeout(d time.Duration) Option {
	return func(e *Executor) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithLogger attaches a logger; commands are logged at debug level.
func WithLogger(l *zap.Logger) Option {
	return func(e *Executor) {
		if l != nil {
			e.log = l
		}
	}
}

// WithCommand adds or replaces an allowlist entry.
func WithCommand(name string, spec CommandSpec) Option {
	return func(e *Executor) {
		if spec.Path == "" {
			spec.Path = resolveCommandPath(name, spec.FallbackPath)
		}
		e.allowlist[name] = spec
	}
}

// WithPath overrides the binary path of an existing allowlist entry.
// Unknown names are ignored.
func WithPath(name, path string) Option {
	return func(e *Executor) {
		spec, ok := e.allowlist[name]
		if !ok || path == "" {
			return
		}
		spec.Path = resolveCommandPath(path, path)
		e.allowlist[name] = spec
	}
}

func resolveCommandPath(name, fallbackPath string) string {
	if path, err := exec.LookPath(name); err == nil {
		return path
	}
	return fallbackPath
}

// metadataFlags are the instance-metadata options the fact source may request.
var metadataFlags = []string{
	"--instance-type",
	"--local-hostname",
	"--local-ipv4",
	"--instance-id",
	"--availability-zone",
	"--public-hostname",
	"--public-ipv4",
	"--ami-id",
	"--region",
}

// New creates an executor with the default allowlist. Command paths are
// resolved via exec.LookPath at construction time.
func New(opts ...Option) *Executor {
	type entry struct {
		name         string
		fallbackPath string
		allowedFlags []string
		maxArgs      int
	}

	entries := []entry{
		{"ss", "/usr/bin/ss", []string{"-tln", "-t", "-l", "-n"}, 0},
		{"netstat", "/usr/bin/netstat", []string{"-tln", "-t", "-l", "-n"}, 0},
		{"timedatectl", "/usr/bin/timedatectl", []string{"status", "show"}, 0},
		{"dig", "/usr/bin/dig", nil, 2},
		{"ec2-metadata", "/usr/bin/ec2-metadata", metadataFlags, 0},
		{"systemctl", "/usr/bin/systemctl", []string{"is-active", "status"}, 1},
	}

	e := &Executor{
		allowlist: make(map[string]CommandSpec, len(entries)),
		timeout:   DefaultTimeout,
		log:       zap.NewNop(),
	}
	for _, en := range entries {
		e.allowlist[en.name] = CommandSpec{
			Path:         resolveCommandPath(en.name, en.fallbackPath),
			FallbackPath: en.fallbackPath,
			AllowedFlags: en.allowedFlags,
			MaxArgs:      en.maxArgs,
		}
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// IsAllowed reports whether a command is in the allowlist.
func (e *Executor) IsAllowed(name string) bool {
	_, ok := e.allowlist[name]
	return ok
}

// Run implements Runner.
func (e *Executor) Run(ctx context.Context, name string, args ...string) (string, error) {
	out, _, err := e.run(ctx, name, args)
	return out, err
}

// RunLines runs a command and splits its stdout into lines.
func (e *Executor) RunLines(ctx context.Context, name string, args ...string) ([]string, error) {
	out, err := e.Run(ctx, name, args...)
	if err != nil {
		return nil, err
	}
	return Lines(out), nil
}

// Exec implements Runner.
func (e *Executor) Exec(ctx context.Context, name string, args ...string) (string, error) {
	out, code, err := e.run(ctx, name, args)
	if err != nil {
		return out, err
	}
	if code != 0 {
		return out, fmt.Errorf("%s: %w (status %d)", name, ErrNonZeroExit, code)
	}
	return out, nil
}

func (e *Executor) run(ctx context.Context, name string, args []string) (string, int, error) {
	spec, ok := e.allowlist[name]
	if !ok {
		return "", -1, fmt.Errorf("command %q: %w", name, ErrNotAllowed)
	}
	if err := ValidateArgs(spec, args); err != nil {
		return "", -1, fmt.Errorf("command %q: %w", name, err)
	}

	timeout := spec.Timeout
	if timeout <= 0 {
		timeout = e.timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, spec.Path, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	e.log.Debug("command finished",
		zap.String("command", name),
		zap.Strings("args", args),
		zap.Duration("elapsed", time.Since(start)),
		zap.Error(err),
	)

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return "", -1, fmt.Errorf("%q after %v: %w", name, timeout, ErrTimeout)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			e.log.Debug("command stderr", zap.String("command", name), zap.String("stderr", msg))
		}
		return stdout.String(), exitErr.ExitCode(), nil
	}
	if err != nil {
		return "", -1, fmt.Errorf("running %q: %w", name, err)
	}
	return stdout.String(), 0, nil
}

// ValidateArgs checks that all arguments comply with the CommandSpec constraints.
func ValidateArgs(spec CommandSpec, args []string) error {
	positional := 0
	for _, arg := range args {
		if isAllowedFlag(spec.AllowedFlags, arg) {
			continue
		}
		if strings.HasPrefix(arg, "-") {
			return fmt.Errorf("flag %q %w (allowed: %s)",
				arg, ErrNotAllowed, strings.Join(spec.AllowedFlags, ", "))
		}
		positional++
	}
	if positional > spec.MaxArgs {
		return fmt.Errorf("too many positional arguments: got %d, max %d: %w",
			positional, spec.MaxArgs, ErrNotAllowed)
	}
	return nil
}

func isAllowedFlag(allowed []string, flag string) bool {
	for _, f := range allowed {
		if f == flag {
			return true
		}
	}
	return false
}

// Lines splits command output into lines, dropping a trailing empty line.
func Lines(out string) []string {
	out = strings.TrimRight(out, "\n")
	if out == "" {
		return nil
	}
	return strings.Split(out, "\n")
}
