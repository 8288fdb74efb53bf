// Package settings holds hostready runtime settings: command timeouts,
// resolver selection, log locations. Values come from defaults, an
// optional .env file and HOSTREADY_* environment variables.
package settings

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/ancients-collective/hostready/internal/engine"
)

// EnvPrefix is the environment variable prefix for every setting.
const EnvPrefix = "HOSTREADY"

// Settings is the resolved runtime configuration.
type Settings struct {
	CommandTimeout  time.Duration `mapstructure:"command_timeout"`
	MetadataCommand string        `mapstructure:"metadata_command"`
	HostsFile       string        `mapstructure:"hosts_file"`
	DNSResolver     string        `mapstructure:"dns_resolver"`
	DNSServer       string        `mapstructure:"dns_server"`
	DNSTimeout      time.Duration `mapstructure:"dns_timeout"`
	ResolvConf      string        `mapstructure:"resolv_conf"`
	LogFile         string        `mapstructure:"log_file"`
	LogDir          string        `mapstructure:"log_dir"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	Password        string        `mapstructure:"password"`
}

func setDefaults(v *viper.Viper) {
	// Shell
	v.SetDefault("command_timeout", 5*time.Second)
	v.SetDefault("metadata_command", "ec2-metadata")
	v.SetDefault("hosts_file", "/etc/hosts")

	// DNS
	v.SetDefault("dns_resolver", engine.ResolverDig)
	v.SetDefault("dns_server", "")
	v.SetDefault("dns_timeout", 5*time.Second)
	v.SetDefault("resolv_conf", "/etc/resolv.conf")

	// Logging
	v.SetDefault("log_file", "operations.log")
	v.SetDefault("log_dir", "")

	// Collaborators
	v.SetDefault("connect_timeout", 10*time.Second)
	v.SetDefault("password", "")
}

// Load reads envFile (ignored when missing) into the process environment and
// resolves settings from defaults and HOSTREADY_* variables.
func Load(envFile string) (*Settings, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read %s: %w", envFile, err)
		}
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal settings: %w", err)
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Settings) validate() error {
	switch s.DNSResolver {
	case engine.ResolverDig, engine.ResolverNative:
	default:
		return fmt.Errorf("dns_resolver: unknown resolver %q (valid: %s, %s)", s.DNSResolver, engine.ResolverDig, engine.ResolverNative)
	}
	if s.CommandTimeout <= 0 {
		return fmt.Errorf("command_timeout: must be positive, got %s", s.CommandTimeout)
	}
	if s.DNSTimeout <= 0 {
		return fmt.Errorf("dns_timeout: must be positive, got %s", s.DNSTimeout)
	}
	if s.ConnectTimeout <= 0 {
		return fmt.Errorf("connect_timeout: must be positive, got %s", s.ConnectTimeout)
	}
	return nil
}
