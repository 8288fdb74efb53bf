package shell

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

const (
	// MaxFileReadBytes is the maximum number of bytes read from any file (10 MB).
	MaxFileReadBytes int64 = 10 * 1024 * 1024

	// MaxServiceNameLength is the maximum allowed length for systemd unit names.
	MaxServiceNameLength = 256

	// MaxHostnameLength is the maximum length of a fully qualified domain name.
	MaxHostnameLength = 253
)

var (
	serviceNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_@.\-]+$`)
	hostLabelPattern   = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9\-_]{0,61}[a-zA-Z0-9])?$`)
)

// ValidatePath checks that a file path is absolute and returns it cleaned.
func ValidatePath(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("path must not be empty")
	}
	if !filepath.IsAbs(path) {
		return "", fmt.Errorf("path must be absolute, got %q", path)
	}
	cleaned := filepath.Clean(path)
	for _, part := range strings.Split(cleaned, string(filepath.Separator)) {
		if part == ".." {
			return "", fmt.Errorf("path traversal (..) not allowed in %q", path)
		}
	}
	return cleaned, nil
}

// ReadFileLimited reads a regular file with a bounded read. Symlinks are
// followed; devices, pipes and sockets are refused.
func ReadFileLimited(path string) ([]byte, error) {
	cleaned, err := ValidatePath(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(cleaned)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("file not found: %s: %w", path, err)
		}
		return nil, fmt.Errorf("cannot open file %q: %w", cleaned, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("cannot stat file %q: %w", cleaned, err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("refusing to read non-regular file %q (mode: %s)", cleaned, info.Mode().Type())
	}
	if info.Size() > MaxFileReadBytes {
		return nil, fmt.Errorf("file %q too large: %d bytes (max: %d)", cleaned, info.Size(), MaxFileReadBytes)
	}

	data, err := io.ReadAll(io.LimitReader(f, MaxFileReadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("error reading file %q: %w", cleaned, err)
	}
	if int64(len(data)) > MaxFileReadBytes {
		return nil, fmt.Errorf("file %q exceeded size limit during read", cleaned)
	}
	return data, nil
}

// ValidateServiceName checks that a systemd unit name contains only safe characters.
func ValidateServiceName(name string) error {
	if name == "" {
		return fmt.Errorf("service name must not be empty")
	}
	if len(name) > MaxServiceNameLength {
		return fmt.Errorf("service name too long: %d chars (max: %d)", len(name), MaxServiceNameLength)
	}
	if strings.HasPrefix(name, "-") {
		return fmt.Errorf("service name %q must not start with '-'", name)
	}
	if !serviceNamePattern.MatchString(name) {
		return fmt.Errorf("invalid service name %q: only alphanumeric, underscores, dots, hyphens, @ allowed", name)
	}
	return nil
}

// ValidateHostname checks that name is a syntactically valid host name or
// FQDN. A single trailing dot is accepted.
func ValidateHostname(name string) error {
	trimmed := strings.TrimSuffix(name, ".")
	if trimmed == "" {
		return fmt.Errorf("host name must not be empty")
	}
	if len(trimmed) > MaxHostnameLength {
		return fmt.Errorf("host name too long: %d chars (max: %d)", len(trimmed), MaxHostnameLength)
	}
	for _, label := range strings.Split(trimmed, ".") {
		if !hostLabelPattern.MatchString(label) {
			return fmt.Errorf("invalid host name %q: bad label %q", name, label)
		}
	}
	return nil
}

// VerifyConfigFile checks that a configuration file cannot be altered by
// other users. Returns a list of warnings (empty means the file is safe).
func VerifyConfigFile(path string) []string {
	info, err := os.Lstat(path)
	if err != nil {
		return []string{fmt.Sprintf("cannot stat config %q: %v", path, err)}
	}

	var warnings []string
	if info.Mode()&os.ModeSymlink != 0 {
		target, err := filepath.EvalSymlinks(path)
		if err != nil {
			return []string{fmt.Sprintf("config symlink %q cannot be resolved: %v", path, err)}
		}
		warnings = append(warnings, fmt.Sprintf("config %q is a symlink to %s", path, target))
		if info, err = os.Stat(target); err != nil {
			return append(warnings, fmt.Sprintf("cannot stat config target %q: %v", target, err))
		}
	}
	if !info.Mode().IsRegular() {
		return append(warnings, fmt.Sprintf("config %q is not a regular file", path))
	}

	perm := info.Mode().Perm()
	if perm&0002 != 0 {
		warnings = append(warnings, fmt.Sprintf("config %q is world-writable (%04o)", path, perm))
	}
	if perm&0020 != 0 {
		warnings = append(warnings, fmt.Sprintf("config %q is group-writable (%04o)", path, perm))
	}
	return warnings
}
