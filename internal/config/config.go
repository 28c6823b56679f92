// Package config loads the application configuration.
//
// Configuration is read from ~/.config/secgate/config.yaml when present;
// every key can be overridden through SECGATE_* environment variables
// (e.g. SECGATE_AUDIT_LOG, SECGATE_AWS_PROFILE). Flags passed on the
// command line take precedence over both.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Configuration holds all user-tunable application settings.
type Configuration struct {
	Policy PolicyConfiguration
	Audit  AuditConfiguration
	AWS    AWSConfiguration
	Log    LogConfiguration
}

// PolicyConfiguration selects the default policy file.
type PolicyConfiguration struct {
	// Path is the policy file used when no --policy flag is given.
	// Empty means "use the built-in policy pack for the selected provider".
	Path string
}

// AuditConfiguration controls the decision audit trail.
type AuditConfiguration struct {
	// Log is the audit log file path. Empty disables the audit trail.
	Log string
}

// AWSConfiguration holds AWS defaults used when flags are not provided.
type AWSConfiguration struct {
	Profile string
	Region  string
}

// LogConfiguration controls diagnostic logging.
type LogConfiguration struct {
	// Level is a zap level name. Default "info".
	Level string
}

// Dir returns the configuration directory (~/.config/secgate).
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "secgate")
}

// Path returns the expected configuration file location.
func Path() string {
	return filepath.Join(Dir(), "config.yaml")
}

// Load reads the configuration file and environment overrides.
// A missing config file is not an error; defaults and environment variables
// apply.
func Load() (*Configuration, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if dir := Dir(); dir != "" {
		v.AddConfigPath(dir)
	}

	v.SetEnvPrefix("secgate")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("policy.path", "")
	v.SetDefault("audit.log", "")
	v.SetDefault("aws.profile", "")
	v.SetDefault("aws.region", "")
	v.SetDefault("log.level", "info")

	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Configuration
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse configuration: %w", err)
	}
	return &cfg, nil
}
