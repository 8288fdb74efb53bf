// Package facts resolves named system facts either from a live metadata
// command or from a recorded substitute file.
package facts

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ancients-collective/hostready/internal/shell"
)

// Known facts.
const (
	InstanceType  = "--instance-type"
	LocalHostname = "--local-hostname"
)

// DefaultMetadataCommand is the allowlisted command used by LiveSource.
const DefaultMetadataCommand = "ec2-metadata"

var (
	// ErrFactUnavailable is returned when a fact cannot be read.
	ErrFactUnavailable = errors.New("fact unavailable")

	// ErrInvalidFactName is returned for fact names that are not in long form.
	ErrInvalidFactName = errors.New("invalid fact name")
)

var factNamePattern = regexp.MustCompile(`^--[a-z][a-z0-9-]*$`)

// Source resolves a named fact to its raw line, e.g. "instance-type: m5.xlarge".
type Source interface {
	Resolve(ctx context.Context, fact string) (string, error)
}

// ValidateFactName checks that fact is in long form ("--" followed by a
// lowercase letter, then lowercase letters, digits and hyphens).
func ValidateFactName(fact string) error {
	if !factNamePattern.MatchString(fact) {
		return fmt.Errorf("%w: %q (expected long form, e.g. --instance-type)", ErrInvalidFactName, fact)
	}
	return nil
}

// FactValue returns the second whitespace-delimited token of a fact line,
// or "" when there is none.
func FactValue(line string) string {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return ""
	}
	return fields[1]
}

// LiveSource reads facts by running the metadata command.
type LiveSource struct {
	runner  shell.Runner
	command string
}

// NewLiveSource creates a live source that runs command through runner.
// An empty command selects DefaultMetadataCommand.
func NewLiveSource(runner shell.Runner, command string) *LiveSource {
	if command == "" {
		command = DefaultMetadataCommand
	}
	return &LiveSource{runner: runner, command: command}
}

// Resolve runs "<command> <fact>" and returns the first non-blank output line.
func (s *LiveSource) Resolve(ctx context.Context, fact string) (string, error) {
	if err := ValidateFactName(fact); err != nil {
		return "", err
	}
	out, err := s.runner.Exec(ctx, s.command, fact)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrFactUnavailable, fact, err)
	}
	for _, line := range shell.Lines(out) {
		if strings.TrimSpace(line) != "" {
			return strings.TrimSuffix(line, "\r"), nil
		}
	}
	return "", fmt.Errorf("%w: %s: empty output", ErrFactUnavailable, fact)
}

// RecordedSource serves facts from a snapshot of a recorded file. The file
// is read once, at construction.
type RecordedSource struct {
	path  string
	lines []string
}

// NewRecordedSource reads the recorded file at path. Relative paths are
// taken from the working directory.
func NewRecordedSource(path string) (*RecordedSource, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("reading recorded facts: %w", err)
	}
	data, err := shell.ReadFileLimited(abs)
	if err != nil {
		return nil, fmt.Errorf("reading recorded facts: %w", err)
	}
	return &RecordedSource{path: abs, lines: strings.Split(string(data), "\n")}, nil
}

// Resolve returns the first recorded line starting with "<fact>:", e.g.
// "--instance-type: m5.xlarge", exactly as recorded. Only a CRLF line
// ending's carriage return is dropped.
func (s *RecordedSource) Resolve(_ context.Context, fact string) (string, error) {
	if err := ValidateFactName(fact); err != nil {
		return "", err
	}
	prefix := fact + ":"
	for _, line := range s.lines {
		if strings.HasPrefix(line, prefix) {
			return strings.TrimRight(line, " \t\r"), nil
		}
	}
	return "", fmt.Errorf("%w: %s not recorded in %s", ErrFactUnavailable, fact, s.path)
}
