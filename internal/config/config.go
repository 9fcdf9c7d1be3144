// Package config handles provisioning configuration loading and defaults.
package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// TargetConfig describes an optional remote host to provision over WinRM.
// When Host is empty the tool provisions the local machine.
type TargetConfig struct {
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	Username  string `yaml:"username"` // DOMAIN\user format
	Password  string `yaml:"password"`
	UseSSL    bool   `yaml:"use_ssl"`
	VerifySSL bool   `yaml:"verify_ssl"`
}

// Config holds all provisioning parameters. The role configuration values
// (domain, zone file, forwarder, scope) were deliberately promoted from
// inline literals so the same binary serves different environments.
type Config struct {
	// Name resolution
	DomainName string `yaml:"domain_name"`
	ZoneFile   string `yaml:"zone_file"`
	Forwarder  string `yaml:"forwarder"`

	// Address leasing
	ScopeName  string `yaml:"scope_name"`
	ScopeStart string `yaml:"scope_start"`
	ScopeEnd   string `yaml:"scope_end"`
	SubnetMask string `yaml:"subnet_mask"`

	// Role installation
	IncludeManagementTools bool `yaml:"include_management_tools"`

	// Web role
	DefaultSite string `yaml:"default_site"`

	// Remote provisioning target (optional)
	Target TargetConfig `yaml:"target"`

	// Paths
	StateDir string `yaml:"state_dir"`

	// Behavior
	DryRun bool `yaml:"dry_run"`
}

// DefaultConfig returns a config with sane defaults for a small lab
// network (192.168.1.0/24).
func DefaultConfig() Config {
	stateDir := os.Getenv("PROGRAMDATA")
	if stateDir == "" {
		stateDir = `C:\ProgramData`
	}

	return Config{
		DomainName:             "corp.local",
		ZoneFile:               "corp.local.dns",
		Forwarder:              "8.8.8.8",
		ScopeName:              "LAN",
		ScopeStart:             "192.168.1.100",
		ScopeEnd:               "192.168.1.200",
		SubnetMask:             "255.255.255.0",
		IncludeManagementTools: true,
		DefaultSite:            "Default Web Site",
		StateDir:               filepath.Join(stateDir, "OsirisProvision"),
	}
}

// Load loads configuration from a YAML file (optional) with env overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("PROVISION_STATE_DIR"); v != "" {
		cfg.StateDir = v
	}
	if v := os.Getenv("PROVISION_DRY_RUN"); v != "" {
		cfg.DryRun = !isFalsy(v)
	}
	if v := os.Getenv("PROVISION_TARGET_PASSWORD"); v != "" {
		cfg.Target.Password = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks address fields and required values.
func (c *Config) Validate() error {
	if c.DomainName == "" {
		return fmt.Errorf("domain_name is required")
	}
	if c.ZoneFile == "" {
		return fmt.Errorf("zone_file is required")
	}
	if c.ScopeName == "" {
		return fmt.Errorf("scope_name is required")
	}

	for field, value := range map[string]string{
		"forwarder":   c.Forwarder,
		"scope_start": c.ScopeStart,
		"scope_end":   c.ScopeEnd,
		"subnet_mask": c.SubnetMask,
	} {
		ip := net.ParseIP(value)
		if ip == nil || ip.To4() == nil {
			return fmt.Errorf("%s: %q is not a valid IPv4 address", field, value)
		}
	}

	start := net.ParseIP(c.ScopeStart).To4()
	end := net.ParseIP(c.ScopeEnd).To4()
	for i := 0; i < net.IPv4len; i++ {
		if start[i] < end[i] {
			break
		}
		if start[i] > end[i] {
			return fmt.Errorf("scope_start %s is after scope_end %s", c.ScopeStart, c.ScopeEnd)
		}
	}

	if c.Target.Host != "" && c.Target.Username == "" {
		return fmt.Errorf("target.username is required when target.host is set")
	}

	return nil
}

// JournalPath returns the path to the run journal database.
func (c *Config) JournalPath() string {
	return filepath.Join(c.StateDir, "provision.db")
}

func isFalsy(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "false" || v == "0" || v == "no"
}
