package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultConfig() *Config {
	return &Config{
		Runner: RunnerConfig{
			Plugin:  "threaded",
			Options: RunnerOptions{NumWorkers: 20},
		},
		Inventory: InventoryConfig{
			Plugin: "SimpleInventory",
			Options: InventoryOptions{
				HostFile:     "hosts.yaml",
				GroupFile:    "groups.yaml",
				DefaultsFile: "defaults.yaml",
			},
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "plain",
			Timestamps: true,
		},
		SSH: SSHConfig{
			Timeout:     30,
			MaxSessions: 10,
		},
	}
}

func TestLoad(t *testing.T) {
	// Create a temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	configContent := `
core:
  raise_on_error: true

runner:
  plugin: "threaded"
  options:
    num_workers: 100

inventory:
  plugin: SimpleInventory
  options:
    host_file: "inventory/hosts.yaml"
    group_file: "inventory/groups.yaml"

logging:
  level: "debug"
  file: "test.log"
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	require.NoError(t, err)

	fromFile := defaultConfig()
	fromFile.Core.RaiseOnError = true
	fromFile.Runner.Options.NumWorkers = 100
	fromFile.Inventory.Options.HostFile = "inventory/hosts.yaml"
	fromFile.Inventory.Options.GroupFile = "inventory/groups.yaml"
	fromFile.Logging.Level = "debug"
	fromFile.Logging.File = "test.log"

	fromEnv := defaultConfig()
	fromEnv.Runner.Plugin = "serial"
	fromEnv.Logging.Level = "warn"
	fromEnv.DryRun = true

	tests := []struct {
		name        string
		configPaths []string
		envVars     map[string]string
		want        *Config
		wantErr     bool
	}{
		{
			name:        "default config",
			configPaths: []string{},
			want:        defaultConfig(),
		},
		{
			name:        "config from file",
			configPaths: []string{configPath},
			want:        fromFile,
		},
		{
			name:        "config from env vars",
			configPaths: []string{},
			envVars: map[string]string{
				"HOSTRUN_RUNNER_PLUGIN": "serial",
				"HOSTRUN_LOGGING_LEVEL": "warn",
				"HOSTRUN_DRY_RUN":       "true",
			},
			want: fromEnv,
		},
		{
			name:        "invalid config file",
			configPaths: []string{"nonexistent.yaml"},
			wantErr:     true,
		},
		{
			name:        "unknown runner plugin",
			configPaths: []string{},
			envVars:     map[string]string{"HOSTRUN_RUNNER_PLUGIN": "forked"},
			wantErr:     true,
		},
		{
			name:        "zero workers",
			configPaths: []string{},
			envVars:     map[string]string{"HOSTRUN_RUNNER_OPTIONS_NUM_WORKERS": "0"},
			wantErr:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Set environment variables
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			got, err := Load(tt.configPaths...)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDefault(t *testing.T) {
	assert.Equal(t, defaultConfig(), Default())
}
