package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration settings
type Config struct {
	Core      CoreConfig      `mapstructure:"core"`
	Runner    RunnerConfig    `mapstructure:"runner"`
	Inventory InventoryConfig `mapstructure:"inventory"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	SSH       SSHConfig       `mapstructure:"ssh"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	DryRun    bool            `mapstructure:"dry_run"`
}

// CoreConfig holds settings that change how runs report failures
type CoreConfig struct {
	RaiseOnError bool `mapstructure:"raise_on_error"`
}

// RunnerConfig selects the runner plugin and its options
type RunnerConfig struct {
	Plugin  string        `mapstructure:"plugin"`
	Options RunnerOptions `mapstructure:"options"`
}

type RunnerOptions struct {
	NumWorkers int `mapstructure:"num_workers"`
}

// InventoryConfig selects the inventory plugin and the files it reads
type InventoryConfig struct {
	Plugin  string           `mapstructure:"plugin"`
	Options InventoryOptions `mapstructure:"options"`
}

// InventoryOptions are read by the inventory plugins. SimpleInventory uses the
// files, ScriptInventory runs Script.
type InventoryOptions struct {
	HostFile     string `mapstructure:"host_file"`
	GroupFile    string `mapstructure:"group_file"`
	DefaultsFile string `mapstructure:"defaults_file"`
	Script       string `mapstructure:"script"`
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	Format     string `mapstructure:"format"`
	Timestamps bool   `mapstructure:"timestamps"`
}

// SSHConfig holds settings used by the ssh connection plugin
type SSHConfig struct {
	KeyFile               string `mapstructure:"key_file"`
	KnownHostsFile        string `mapstructure:"known_hosts_file"`
	StrictHostKeyChecking bool   `mapstructure:"strict_host_key_checking"`
	Timeout               int    `mapstructure:"timeout"`
	MaxSessions           int    `mapstructure:"max_sessions"`
}

// MetricsConfig controls where run metrics are written
type MetricsConfig struct {
	File string `mapstructure:"file"`
}

// Load loads configuration from files and environment variables
func Load(configPaths ...string) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Read config files
	for _, path := range configPaths {
		v.SetConfigFile(path)
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	}

	// Environment variables
	v.SetEnvPrefix("HOSTRUN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Default returns the configuration Load would produce without files or environment.
func Default() *Config {
	cfg, err := Load()
	if err != nil {
		// Defaults are static and always valid.
		panic(err)
	}
	return cfg
}

// Validate checks values that viper cannot type-check for us.
func (c *Config) Validate() error {
	switch c.Runner.Plugin {
	case "threaded", "serial":
	default:
		return fmt.Errorf("invalid runner plugin %q, expected threaded or serial", c.Runner.Plugin)
	}
	if c.Runner.Options.NumWorkers < 1 {
		return fmt.Errorf("runner.options.num_workers must be at least 1, got %d", c.Runner.Options.NumWorkers)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("core.raise_on_error", false)
	v.SetDefault("dry_run", false)

	// Runner defaults
	v.SetDefault("runner.plugin", "threaded")
	v.SetDefault("runner.options.num_workers", 20)

	// Inventory defaults
	v.SetDefault("inventory.plugin", "SimpleInventory")
	v.SetDefault("inventory.options.host_file", "hosts.yaml")
	v.SetDefault("inventory.options.group_file", "groups.yaml")
	v.SetDefault("inventory.options.defaults_file", "defaults.yaml")
	v.SetDefault("inventory.options.script", "")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.file", "")
	v.SetDefault("logging.format", "plain")
	v.SetDefault("logging.timestamps", true)

	// SSH defaults
	v.SetDefault("ssh.key_file", "")
	v.SetDefault("ssh.known_hosts_file", "")
	v.SetDefault("ssh.strict_host_key_checking", false)
	v.SetDefault("ssh.timeout", 30)
	v.SetDefault("ssh.max_sessions", 10)

	v.SetDefault("metrics.file", "")
}
