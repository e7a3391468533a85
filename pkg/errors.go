package pkg

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/multierr"
)

var (
	// ErrHostNotFound is returned when looking up a host that is not part of a result.
	ErrHostNotFound = errors.New("host not found")
	// ErrTaskPanic wraps a panic raised by a task body.
	ErrTaskPanic = errors.New("task panicked")
	// ErrNoHostContext is returned when a subtask is run from a task not bound to a host.
	ErrNoHostContext = errors.New("task is not bound to a host")
)

// ExecutionError summarizes every failed host of a run.
type ExecutionError struct {
	Result *AggregatedResult
	err    error
}

func newExecutionError(result *AggregatedResult) *ExecutionError {
	var errs []error
	failed := result.FailedHosts()
	for _, host := range result.Keys() {
		mr, ok := failed[host]
		if !ok {
			continue
		}
		for _, r := range mr.Results {
			if !r.Failed {
				continue
			}
			if r.Exception != nil {
				errs = append(errs, fmt.Errorf("%s: %s: %w", host, r.Name, r.Exception))
			} else {
				errs = append(errs, fmt.Errorf("%s: %s failed", host, r.Name))
			}
		}
	}
	return &ExecutionError{Result: result, err: multierr.Combine(errs...)}
}

// FailedHosts returns the names of the failed hosts in result order.
func (e *ExecutionError) FailedHosts() []string {
	failed := e.Result.FailedHosts()
	var hosts []string
	for _, host := range e.Result.Keys() {
		if _, ok := failed[host]; ok {
			hosts = append(hosts, host)
		}
	}
	return hosts
}

// Errors returns one error per failed result.
func (e *ExecutionError) Errors() []error {
	return multierr.Errors(e.err)
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("task %q failed on %s: %v", e.Result.Name, strings.Join(e.FailedHosts(), ", "), e.err)
}

func (e *ExecutionError) Unwrap() error {
	return e.err
}

// SubTaskError is returned by Task.Run when the subtask failed.
type SubTaskError struct {
	Task   string
	Result *MultiResult
}

func (e *SubTaskError) Error() string {
	var msgs []string
	for _, r := range e.Result.Results {
		if r.Failed && r.Exception != nil {
			msgs = append(msgs, r.Exception.Error())
		}
	}
	if len(msgs) == 0 {
		return fmt.Sprintf("subtask %s failed", e.Task)
	}
	return fmt.Sprintf("subtask %s failed: %s", e.Task, strings.Join(msgs, "; "))
}

// Unwrap returns the first exception raised while running the subtask.
func (e *SubTaskError) Unwrap() error {
	for _, r := range e.Result.Results {
		if r.Exception != nil {
			return r.Exception
		}
	}
	return nil
}
