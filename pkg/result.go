package pkg

import (
	"fmt"
	"strings"
	"sync"

	"github.com/AlexanderGrooff/hostrun/pkg/types"
)

// Result is the outcome of one task on one host.
type Result struct {
	Host      *types.Host
	Name      string
	Result    interface{}
	Changed   bool
	Failed    bool
	Diff      string
	Stdout    string
	Stderr    string
	Exception error
	Severity  Severity
}

func (r *Result) String() string {
	if r.Exception != nil {
		return r.Exception.Error()
	}
	if r.Result == nil {
		return ""
	}
	return fmt.Sprintf("%v", r.Result)
}

// MultiResult holds a host's results for a task: index 0 is the task itself,
// the rest are its subtasks in the order they were run.
type MultiResult struct {
	Name    string
	Results []*Result
}

func (m *MultiResult) Len() int {
	return len(m.Results)
}

// At returns the i-th result.
func (m *MultiResult) At(i int) *Result {
	return m.Results[i]
}

// Result returns the payload of the top-level result.
func (m *MultiResult) Result() interface{} {
	if len(m.Results) == 0 {
		return nil
	}
	return m.Results[0].Result
}

// Exception returns the error of the top-level result.
func (m *MultiResult) Exception() error {
	if len(m.Results) == 0 {
		return nil
	}
	return m.Results[0].Exception
}

// Failed is true when any result failed.
func (m *MultiResult) Failed() bool {
	for _, r := range m.Results {
		if r.Failed {
			return true
		}
	}
	return false
}

// Changed is true when any result changed something.
func (m *MultiResult) Changed() bool {
	for _, r := range m.Results {
		if r.Changed {
			return true
		}
	}
	return false
}

// Visit calls fn for every result at or above threshold, in order.
func (m *MultiResult) Visit(threshold Severity, fn func(r *Result)) {
	for _, r := range m.Results {
		if r.Severity >= threshold {
			fn(r)
		}
	}
}

func (m *MultiResult) String() string {
	parts := make([]string, len(m.Results))
	for i, r := range m.Results {
		parts[i] = fmt.Sprintf("%s: %s", r.Name, r)
	}
	return fmt.Sprintf("MultiResult: [%s]", strings.Join(parts, ", "))
}

// AggregatedResult maps each host a task ran against to its MultiResult.
// It is safe for concurrent use.
type AggregatedResult struct {
	Name string

	mu      sync.RWMutex
	order   []string
	results map[string]*MultiResult
}

func NewAggregatedResult(name string) *AggregatedResult {
	return &AggregatedResult{
		Name:    name,
		results: make(map[string]*MultiResult),
	}
}

// Add records the result of a host. Keys keep the order hosts were added in.
func (a *AggregatedResult) Add(host string, result *MultiResult) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, exists := a.results[host]; !exists {
		a.order = append(a.order, host)
	}
	a.results[host] = result
}

// Get returns the MultiResult of host, or ErrHostNotFound.
func (a *AggregatedResult) Get(host string) (*MultiResult, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	r, ok := a.results[host]
	if !ok {
		return nil, fmt.Errorf("%w: %s in result of %q", ErrHostNotFound, host, a.Name)
	}
	return r, nil
}

// Keys returns the host names.
func (a *AggregatedResult) Keys() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]string(nil), a.order...)
}

func (a *AggregatedResult) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.order)
}

// Failed is true when any host failed.
func (a *AggregatedResult) Failed() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	for _, r := range a.results {
		if r.Failed() {
			return true
		}
	}
	return false
}

// FailedHosts returns the results of the hosts that failed.
func (a *AggregatedResult) FailedHosts() map[string]*MultiResult {
	a.mu.RLock()
	defer a.mu.RUnlock()
	failed := make(map[string]*MultiResult)
	for host, r := range a.results {
		if r.Failed() {
			failed[host] = r
		}
	}
	return failed
}

// RaiseOnError returns an *ExecutionError when any host failed.
func (a *AggregatedResult) RaiseOnError() error {
	if !a.Failed() {
		return nil
	}
	return newExecutionError(a)
}

// Visit calls fn for every result at or above threshold, host by host.
func (a *AggregatedResult) Visit(threshold Severity, fn func(host string, r *Result)) {
	for _, host := range a.Keys() {
		mr, err := a.Get(host)
		if err != nil {
			continue
		}
		mr.Visit(threshold, func(r *Result) { fn(host, r) })
	}
}

func (a *AggregatedResult) String() string {
	return fmt.Sprintf("AggregatedResult (%s): %v", a.Name, a.Keys())
}
