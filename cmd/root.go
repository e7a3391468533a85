package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/AlexanderGrooff/hostrun/pkg/common"
	"github.com/AlexanderGrooff/hostrun/pkg/config"
	"github.com/AlexanderGrooff/hostrun/pkg/filter"
)

const defaultConfigFile = "hostrun.yaml"

var (
	configFile string
	envFile    string
	cfg        *config.Config
)

// LoadConfig loads configFile, or ./hostrun.yaml when it exists.
var LoadConfig = func(configFile string) (*config.Config, error) {
	configPaths := []string{}
	if configFile == "" {
		if _, err := os.Stat(defaultConfigFile); err == nil {
			configPaths = append(configPaths, defaultConfigFile)
		}
	} else {
		configPaths = append(configPaths, configFile)
	}

	c, err := config.Load(configPaths...)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration from %v: %w", configPaths, err)
	}
	return c, nil
}

// loadEnv exports the variables of envFile. Without envFile, ./.env is read when present.
func loadEnv(envFile string) error {
	if envFile != "" {
		return godotenv.Load(envFile)
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

var RootCmd = &cobra.Command{
	Use:          "hostrun",
	Short:        "Run tasks against an inventory of hosts",
	Long:         `hostrun loads an inventory of hosts, filters it and runs tasks against every host on a pool of workers.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadEnv(envFile); err != nil {
			return fmt.Errorf("failed to load env file: %w", err)
		}
		c, err := LoadConfig(configFile)
		if err != nil {
			return err
		}
		cfg = c
		if err := common.Configure(cfg.Logging); err != nil {
			return err
		}
		common.SetExecutionID(uuid.New().String())
		return nil
	},
}

func Execute(ctx context.Context) error {
	return RootCmd.ExecuteContext(ctx)
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Config file path (default: ./hostrun.yaml)")
	RootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "Load environment variables from this file (default: ./.env when present)")
}

// parseValue decodes a command line value as YAML so numbers, booleans and lists keep their type.
func parseValue(raw string) interface{} {
	var v interface{}
	if err := yaml.Unmarshal([]byte(raw), &v); err != nil || v == nil {
		return raw
	}
	return v
}

func splitKeyValue(arg string) (string, string, error) {
	key, value, ok := strings.Cut(arg, "=")
	if !ok || key == "" {
		return "", "", fmt.Errorf("expected key=value, got %q", arg)
	}
	return key, value, nil
}

// parseParams turns key=value arguments into task params.
func parseParams(args []string) (map[string]interface{}, error) {
	params := make(map[string]interface{}, len(args))
	for _, arg := range args {
		key, value, err := splitKeyValue(arg)
		if err != nil {
			return nil, err
		}
		params[key] = parseValue(value)
	}
	return params, nil
}

// parseFilters turns path=value arguments into filter predicates, see filter.Parse.
func parseFilters(args []string) ([]filter.Predicate, error) {
	predicates := make([]filter.Predicate, 0, len(args))
	for _, arg := range args {
		path, value, err := splitKeyValue(arg)
		if err != nil {
			return nil, err
		}
		expr, err := filter.Parse(path, parseValue(value))
		if err != nil {
			return nil, err
		}
		predicates = append(predicates, expr)
	}
	return predicates, nil
}
