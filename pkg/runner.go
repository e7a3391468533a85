package pkg

import (
	"fmt"

	"github.com/sourcegraph/conc/pool"

	"github.com/AlexanderGrooff/hostrun/pkg/config"
	"github.com/AlexanderGrooff/hostrun/pkg/types"
)

// Runner runs a task against a list of hosts and collects the results.
// Failures of one host never stop the others.
type Runner interface {
	Run(task *Task, hosts []*types.Host) *AggregatedResult
}

// SerialRunner runs hosts one after the other.
type SerialRunner struct{}

func (SerialRunner) Run(task *Task, hosts []*types.Host) *AggregatedResult {
	result := NewAggregatedResult(task.Name)
	for _, host := range hosts {
		result.Add(host.Name, task.Start(host))
	}
	return result
}

// ThreadedRunner runs hosts on a pool of at most NumWorkers goroutines.
// Hooks fire in completion order; the result keeps host order.
type ThreadedRunner struct {
	NumWorkers int
}

func (r ThreadedRunner) Run(task *Task, hosts []*types.Host) *AggregatedResult {
	results := make([]*MultiResult, len(hosts))
	p := pool.New().WithMaxGoroutines(max(1, r.NumWorkers))
	for i, host := range hosts {
		p.Go(func() {
			results[i] = task.Start(host)
		})
	}
	p.Wait()

	aggregated := NewAggregatedResult(task.Name)
	for i, host := range hosts {
		aggregated.Add(host.Name, results[i])
	}
	return aggregated
}

// NewRunner returns the runner plugin named in cfg.
func NewRunner(cfg config.RunnerConfig) (Runner, error) {
	switch cfg.Plugin {
	case "threaded", "":
		if cfg.Options.NumWorkers < 1 {
			return nil, fmt.Errorf("runner.options.num_workers must be at least 1, got %d", cfg.Options.NumWorkers)
		}
		return ThreadedRunner{NumWorkers: cfg.Options.NumWorkers}, nil
	case "serial":
		return SerialRunner{}, nil
	}
	return nil, fmt.Errorf("unknown runner plugin %q", cfg.Plugin)
}
