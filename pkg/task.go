package pkg

import (
	"context"
	"fmt"
	"reflect"
	goruntime "runtime"
	"strconv"
	"strings"

	"github.com/AlexanderGrooff/hostrun/pkg/common"
	"github.com/AlexanderGrooff/hostrun/pkg/runtime"
	"github.com/AlexanderGrooff/hostrun/pkg/types"
)

// TaskFunc is the body of a task. It runs once per host with t bound to that host.
// Returning an error marks the result as failed.
type TaskFunc func(t *Task) (*Result, error)

// Params are the keyword arguments of a task.
type Params map[string]interface{}

func (p Params) Get(key string) (interface{}, bool) {
	v, ok := p[key]
	return v, ok
}

// String returns the param as a string, or fallback when it is missing.
func (p Params) String(key, fallback string) string {
	v, ok := p[key]
	if !ok || v == nil {
		return fallback
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

// Int returns the param as an int. Strings are parsed.
func (p Params) Int(key string, fallback int) int {
	v, ok := p[key]
	if !ok {
		return fallback
	}
	if s, ok := v.(string); ok {
		if i, err := strconv.Atoi(s); err == nil {
			return i
		}
		return fallback
	}
	if f, ok := common.NumericValue(v); ok {
		return int(f)
	}
	return fallback
}

// Bool returns the param as a bool. Strings are parsed.
func (p Params) Bool(key string, fallback bool) bool {
	v, ok := p[key]
	if !ok {
		return fallback
	}
	switch b := v.(type) {
	case bool:
		return b
	case string:
		if parsed, err := strconv.ParseBool(b); err == nil {
			return parsed
		}
	}
	return fallback
}

// Task is a named unit of work. The Task passed to Session.Run is a template:
// every host gets its own copy with Host bound.
type Task struct {
	Name     string
	Func     TaskFunc
	Params   Params
	Severity Severity
	// DryRun overrides the dry-run flag of the session for this task.
	DryRun *bool

	Host *types.Host

	session    *Session
	ctx        context.Context
	processors Processors
	results    []*Result
}

// NewTask returns a task named after fn.
func NewTask(fn TaskFunc, params Params) *Task {
	return &Task{Func: fn, Params: params}
}

func (t *Task) String() string {
	if t.Host != nil {
		return fmt.Sprintf("%s (%s)", t.Name, t.Host.Name)
	}
	return t.Name
}

// copy returns an unbound copy sharing the session, context and processors.
func (t *Task) copy() *Task {
	c := &Task{
		Name:       t.Name,
		Func:       t.Func,
		Params:     common.CopyMap(t.Params),
		Severity:   t.Severity,
		DryRun:     t.DryRun,
		session:    t.session,
		ctx:        t.ctx,
		processors: t.processors,
	}
	if c.Name == "" {
		c.Name = funcName(c.Func)
	}
	if c.Severity == 0 {
		c.Severity = SeverityInfo
	}
	return c
}

func funcName(fn TaskFunc) string {
	if fn == nil {
		return "<nil>"
	}
	name := goruntime.FuncForPC(reflect.ValueOf(fn).Pointer()).Name()
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	return strings.TrimSuffix(name, "-fm")
}

// Context returns the context of the run.
func (t *Task) Context() context.Context {
	if t.ctx == nil {
		return context.Background()
	}
	return t.ctx
}

// IsDryRun reports whether the task should only report what it would change.
func (t *Task) IsDryRun() bool {
	if t.DryRun != nil {
		return *t.DryRun
	}
	if t.session != nil && t.session.Data != nil {
		return t.session.Data.DryRun
	}
	return false
}

// Connection returns the connection to the bound host using plugin, opening it on first use.
func (t *Task) Connection(plugin string) (runtime.Connection, error) {
	if t.Host == nil {
		return nil, ErrNoHostContext
	}
	if t.session == nil {
		return runtime.Open(plugin, t.Host.ConnectionParams(plugin), defaultSSHConfig())
	}
	return t.session.connections.get(t.Host, plugin)
}

// Start runs the task against host and returns its results: the task itself
// first, followed by every subtask in the order it ran.
func (t *Task) Start(host *types.Host) *MultiResult {
	run := t.copy()
	run.Host = host

	run.processors.TaskInstanceStarted(run, host)
	result := run.finish()
	if result.Failed() && run.session != nil {
		run.session.Data.FailedHosts.MarkFailed(host.Name)
	}
	run.processors.TaskInstanceCompleted(run, host, result)
	return result
}

// Run runs sub against the host t is bound to. Its results are appended to the
// results of t. A failed subtask returns a *SubTaskError; the caller decides
// whether that fails t as well.
func (t *Task) Run(sub *Task) (*MultiResult, error) {
	if t.Host == nil {
		return nil, fmt.Errorf("%w: cannot run subtask %q", ErrNoHostContext, sub.Name)
	}
	run := sub.copy()
	run.Host = t.Host
	run.session = t.session
	run.ctx = t.ctx
	run.processors = t.processors

	t.processors.SubtaskInstanceStarted(run, t.Host)
	result := run.finish()
	t.results = append(t.results, result.Results...)
	t.processors.SubtaskInstanceCompleted(run, t.Host, result)

	if result.Failed() {
		return result, &SubTaskError{Task: run.Name, Result: result}
	}
	return result, nil
}

func (t *Task) finish() *MultiResult {
	top := t.execute()
	top.Host = t.Host
	top.Name = t.Name
	if top.Failed {
		top.Severity = SeverityError
	} else if top.Severity == 0 {
		top.Severity = t.Severity
	}
	results := make([]*Result, 0, len(t.results)+1)
	results = append(results, top)
	results = append(results, t.results...)
	return &MultiResult{Name: t.Name, Results: results}
}

func (t *Task) execute() (result *Result) {
	defer func() {
		p := recover()
		if p == nil {
			return
		}
		if pp, ok := p.(processorPanic); ok {
			panic(pp)
		}
		common.LogError("Task panicked", common.TaskFields(t.Name, t.Host.Name).With("panic", fmt.Sprintf("%v", p)))
		result = &Result{Failed: true, Exception: fmt.Errorf("%w: %v", ErrTaskPanic, p)}
	}()

	if t.Func == nil {
		return &Result{Failed: true, Exception: fmt.Errorf("task %q has no function", t.Name)}
	}
	r, err := t.Func(t)
	if r == nil {
		r = &Result{}
	}
	if err != nil {
		r.Failed = true
		if r.Exception == nil {
			r.Exception = err
		}
	}
	return r
}
