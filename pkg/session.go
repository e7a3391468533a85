package pkg

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/AlexanderGrooff/hostrun/pkg/common"
	"github.com/AlexanderGrooff/hostrun/pkg/config"
	"github.com/AlexanderGrooff/hostrun/pkg/filter"
	"github.com/AlexanderGrooff/hostrun/pkg/inventory"
	"github.com/AlexanderGrooff/hostrun/pkg/types"
)

// Session ties an inventory to the configuration, runner, processors and
// failure registry used to run tasks against it. Views returned by Filter,
// WithProcessors and WithRunner share the registry and open connections.
type Session struct {
	Inventory  *inventory.Inventory
	Config     *config.Config
	Data       *GlobalState
	Processors Processors
	Runner     Runner

	connections *connectionCache
}

type initOptions struct {
	inventory  *inventory.Inventory
	runner     Runner
	transforms []inventory.TransformFunc
	processors Processors
}

// InitOption customizes Init.
type InitOption func(*initOptions)

// WithInventory uses inv instead of loading the configured inventory plugin.
func WithInventory(inv *inventory.Inventory) InitOption {
	return func(o *initOptions) { o.inventory = inv }
}

// UseRunner uses r instead of the configured runner plugin.
func UseRunner(r Runner) InitOption {
	return func(o *initOptions) { o.runner = r }
}

// WithTransform applies fn to every host when the inventory is loaded.
func WithTransform(fn inventory.TransformFunc) InitOption {
	return func(o *initOptions) { o.transforms = append(o.transforms, fn) }
}

// UseProcessors registers processors on the new session.
func UseProcessors(ps ...Processor) InitOption {
	return func(o *initOptions) { o.processors = append(o.processors, ps...) }
}

// Init builds a session from cfg: it loads the inventory with the configured
// plugin and creates the configured runner.
func Init(ctx context.Context, cfg *config.Config, opts ...InitOption) (*Session, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := &initOptions{}
	for _, opt := range opts {
		opt(o)
	}

	inv := o.inventory
	if inv == nil {
		var err error
		inv, err = inventory.Load(ctx, cfg.Inventory, o.transforms...)
		if err != nil {
			return nil, fmt.Errorf("failed to load inventory: %w", err)
		}
	}
	runner := o.runner
	if runner == nil {
		var err error
		runner, err = NewRunner(cfg.Runner)
		if err != nil {
			return nil, err
		}
	}

	s := New(inv, cfg)
	s.Runner = runner
	s.Processors = o.processors
	common.LogDebug("Session initialized", map[string]interface{}{
		"hosts":  inv.Len(),
		"runner": fmt.Sprintf("%T", runner),
	})
	return s, nil
}

// New returns a session over inv using the runner configured in cfg. It falls
// back to a serial runner when the runner configuration is invalid.
func New(inv *inventory.Inventory, cfg *config.Config) *Session {
	if cfg == nil {
		cfg = config.Default()
	}
	runner, err := NewRunner(cfg.Runner)
	if err != nil {
		common.LogWarn("Invalid runner configuration, running serially", common.Fields{}.WithError(err))
		runner = SerialRunner{}
	}
	return &Session{
		Inventory:   inv,
		Config:      cfg,
		Data:        NewGlobalState(cfg.DryRun),
		Runner:      runner,
		connections: newConnectionCache(cfg.SSH),
	}
}

func (s *Session) view() *Session {
	c := *s
	return &c
}

// Filter returns a view restricted to the hosts matching every predicate.
func (s *Session) Filter(predicates ...filter.Predicate) *Session {
	c := s.view()
	c.Inventory = s.Inventory.Filter(predicates...)
	return c
}

// WithProcessors returns a view that reports to ps instead of the current processors.
func (s *Session) WithProcessors(ps Processors) *Session {
	c := s.view()
	c.Processors = ps
	return c
}

// WithRunner returns a view that runs tasks with r.
func (s *Session) WithRunner(r Runner) *Session {
	c := s.view()
	c.Runner = r
	return c
}

type runOptions struct {
	onFailed     bool
	onGood       bool
	raiseOnError bool
}

// RunOption customizes a single Session.Run.
type RunOption func(*runOptions)

// OnFailed includes hosts that are in the failure registry.
func OnFailed(include bool) RunOption {
	return func(o *runOptions) { o.onFailed = include }
}

// OnGood includes hosts that are not in the failure registry.
func OnGood(include bool) RunOption {
	return func(o *runOptions) { o.onGood = include }
}

// RaiseOnError makes Run return an *ExecutionError when any host failed.
func RaiseOnError(raise bool) RunOption {
	return func(o *runOptions) { o.raiseOnError = raise }
}

// selectHosts returns the hosts of the view to run against, in inventory order.
func (s *Session) selectHosts(o runOptions) []*types.Host {
	var hosts []*types.Host
	for _, host := range s.Inventory.Hosts() {
		failed := s.Data.FailedHosts.IsFailed(host.Name)
		if (failed && o.onFailed) || (!failed && o.onGood) {
			hosts = append(hosts, host)
		}
	}
	return hosts
}

// Run runs task against every selected host of the view. By default hosts that
// failed an earlier task are skipped. The error is only set when raising on
// error is enabled and at least one host failed.
func (s *Session) Run(ctx context.Context, task *Task, opts ...RunOption) (*AggregatedResult, error) {
	o := runOptions{onGood: true, raiseOnError: s.Config.Core.RaiseOnError}
	for _, opt := range opts {
		opt(&o)
	}

	t := task.copy()
	t.session = s
	t.ctx = ctx
	t.processors = s.Processors

	runID := uuid.New().String()
	start := time.Now()
	s.Processors.TaskStarted(t)

	hosts := s.selectHosts(o)
	common.LogInfo("Running task", common.RunFields(t.Name, runID).With("hosts", len(hosts)))
	result := s.Runner.Run(t, hosts)
	s.Processors.TaskCompleted(t, result)

	common.LogInfo("Task completed", common.RunFields(t.Name, runID).
		With("failed", len(result.FailedHosts())).
		With("duration", time.Since(start).String()))
	if o.raiseOnError {
		if err := result.RaiseOnError(); err != nil {
			return result, err
		}
	}
	return result, nil
}

// CloseConnections closes every connection opened by tasks of this session and its views.
func (s *Session) CloseConnections() error {
	return s.connections.closeAll()
}
