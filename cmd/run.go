package cmd

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/AlexanderGrooff/hostrun/pkg"
	"github.com/AlexanderGrooff/hostrun/pkg/common"
	"github.com/AlexanderGrooff/hostrun/pkg/output"
	"github.com/AlexanderGrooff/hostrun/pkg/tasks"
)

var (
	runParams      []string
	runFilters     []string
	runSeverity    string
	runDryRun      bool
	runMetricsFile string
	runNoColor     bool
)

// ErrRunFailed is returned when at least one host failed the task.
var ErrRunFailed = errors.New("task failed on one or more hosts")

var runCmd = &cobra.Command{
	Use:   "run TASK",
	Short: "Run a built-in task against the inventory",
	Long: fmt.Sprintf(`Run a built-in task against every host of the (filtered) inventory.

Available tasks: %v`, tasks.Names()),
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fn, err := tasks.Lookup(args[0])
		if err != nil {
			return err
		}
		params, err := parseParams(runParams)
		if err != nil {
			return err
		}
		predicates, err := parseFilters(runFilters)
		if err != nil {
			return err
		}
		threshold, err := pkg.ParseSeverity(runSeverity)
		if err != nil {
			return err
		}
		if runDryRun {
			cfg.DryRun = true
		}
		if runMetricsFile != "" {
			cfg.Metrics.File = runMetricsFile
		}

		registry := prometheus.NewRegistry()
		session, err := pkg.Init(cmd.Context(), cfg,
			pkg.UseProcessors(pkg.LogProcessor{Threshold: threshold}, pkg.NewMetricsProcessor(registry)))
		if err != nil {
			return err
		}
		defer func() {
			if err := session.CloseConnections(); err != nil {
				common.LogWarn("Failed to close connections", common.Fields{}.WithError(err))
			}
		}()

		task := &pkg.Task{Name: args[0], Func: fn, Params: params}
		result, runErr := session.Filter(predicates...).Run(cmd.Context(), task)

		if err := output.PrintResult(cmd.OutOrStdout(), result, output.Options{Threshold: threshold, NoColor: runNoColor}); err != nil {
			return err
		}
		if cfg.Metrics.File != "" {
			if err := prometheus.WriteToTextfile(cfg.Metrics.File, registry); err != nil {
				return fmt.Errorf("failed to write metrics to %s: %w", cfg.Metrics.File, err)
			}
		}
		if runErr != nil {
			return runErr
		}
		if result.Failed() {
			return ErrRunFailed
		}
		return nil
	},
}

func init() {
	runCmd.Flags().StringArrayVarP(&runParams, "param", "p", nil, "Task parameter as key=value, values are parsed as YAML")
	runCmd.Flags().StringArrayVarP(&runFilters, "filter", "f", nil, "Only run on hosts matching path=value")
	runCmd.Flags().StringVar(&runSeverity, "severity", "info", "Hide results below this severity (debug, info, warning, error, critical)")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "Report changes without applying them")
	runCmd.Flags().StringVar(&runMetricsFile, "metrics-file", "", "Write Prometheus metrics of the run to this file")
	runCmd.Flags().BoolVar(&runNoColor, "no-color", false, "Disable colored output")
	RootCmd.AddCommand(runCmd)
}
