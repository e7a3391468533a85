package pkg

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func multiResult(name string, results ...*Result) *MultiResult {
	return &MultiResult{Name: name, Results: results}
}

func TestMultiResult(t *testing.T) {
	mr := multiResult("deploy",
		&Result{Name: "deploy", Result: "top", Severity: SeverityInfo},
		&Result{Name: "render", Result: "cfg", Severity: SeverityDebug, Changed: true},
		&Result{Name: "push", Failed: true, Exception: errBoom, Severity: SeverityError},
	)

	assert.Equal(t, 3, mr.Len())
	assert.Equal(t, "top", mr.Result())
	assert.Nil(t, mr.Exception())
	assert.True(t, mr.Failed())
	assert.True(t, mr.Changed())
	assert.Equal(t, "push", mr.At(2).Name)
	assert.Equal(t, "MultiResult: [deploy: top, render: cfg, push: boom]", mr.String())

	var names []string
	mr.Visit(SeverityWarning, func(r *Result) { names = append(names, r.Name) })
	assert.Equal(t, []string{"push"}, names)

	empty := multiResult("empty")
	assert.Nil(t, empty.Result())
	assert.Nil(t, empty.Exception())
	assert.False(t, empty.Failed())
}

func TestAggregatedResult(t *testing.T) {
	agg := NewAggregatedResult("deploy")
	agg.Add("b", multiResult("deploy", &Result{Name: "deploy", Severity: SeverityInfo}))
	agg.Add("a", multiResult("deploy", &Result{Name: "deploy", Failed: true, Exception: errBoom, Severity: SeverityError}))
	agg.Add("c", multiResult("deploy",
		&Result{Name: "deploy", Severity: SeverityInfo},
		&Result{Name: "sub", Severity: SeverityDebug},
	))

	assert.Equal(t, []string{"b", "a", "c"}, agg.Keys())
	assert.Equal(t, 3, agg.Len())
	assert.True(t, agg.Failed())
	assert.Len(t, agg.FailedHosts(), 1)
	assert.Contains(t, agg.FailedHosts(), "a")
	assert.Equal(t, "AggregatedResult (deploy): [b a c]", agg.String())

	_, err := agg.Get("d")
	assert.ErrorIs(t, err, ErrHostNotFound)

	var visited []string
	agg.Visit(SeverityInfo, func(host string, r *Result) {
		visited = append(visited, host+"/"+r.Name)
	})
	assert.Equal(t, []string{"b/deploy", "a/deploy", "c/deploy"}, visited)

	err = agg.RaiseOnError()
	require.Error(t, err)
	var execErr *ExecutionError
	require.True(t, errors.As(err, &execErr))
	assert.Equal(t, []string{"a"}, execErr.FailedHosts())
	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, `task "deploy" failed on a: a: deploy: boom`, err.Error())
}

func TestAggregatedResultNoFailures(t *testing.T) {
	agg := NewAggregatedResult("noop")
	assert.False(t, agg.Failed())
	assert.NoError(t, agg.RaiseOnError())
	assert.Empty(t, agg.Keys())
}

func TestAggregatedResultConcurrentAdd(t *testing.T) {
	agg := NewAggregatedResult("concurrent")
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			agg.Add(fmt.Sprintf("host%d", i), multiResult("concurrent", &Result{}))
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, agg.Len())
}

func TestExecutionErrorWithoutException(t *testing.T) {
	agg := NewAggregatedResult("check")
	agg.Add("h1", multiResult("check", &Result{Name: "check", Failed: true}))
	agg.Add("h2", multiResult("check",
		&Result{Name: "check", Failed: true, Exception: errBoom},
		&Result{Name: "inner", Failed: true, Exception: errors.New("inner failed")},
	))

	err := agg.RaiseOnError()
	require.Error(t, err)
	var execErr *ExecutionError
	require.True(t, errors.As(err, &execErr))
	assert.Equal(t, []string{"h1", "h2"}, execErr.FailedHosts())
	assert.Len(t, execErr.Errors(), 3)
	assert.Contains(t, err.Error(), "h1: check failed")
	assert.Contains(t, err.Error(), "h2: inner: inner failed")
}

func TestSubTaskError(t *testing.T) {
	err := &SubTaskError{Task: "push", Result: multiResult("push",
		&Result{Name: "push", Failed: true, Exception: errBoom},
	)}
	assert.Equal(t, "subtask push failed: boom", err.Error())
	assert.ErrorIs(t, err, errBoom)

	silent := &SubTaskError{Task: "push", Result: multiResult("push", &Result{Name: "push", Failed: true})}
	assert.Equal(t, "subtask push failed", silent.Error())
	assert.Nil(t, errors.Unwrap(silent))
}

func TestSeverity(t *testing.T) {
	tests := []struct {
		name  string
		sev   Severity
		str   string
		level logrus.Level
	}{
		{"DEBUG", SeverityDebug, "DEBUG", logrus.DebugLevel},
		{"info", SeverityInfo, "INFO", logrus.InfoLevel},
		{"warn", SeverityWarning, "WARNING", logrus.WarnLevel},
		{"Error", SeverityError, "ERROR", logrus.ErrorLevel},
		{"critical", SeverityCritical, "CRITICAL", logrus.FatalLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed, err := ParseSeverity(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.sev, parsed)
			assert.Equal(t, tt.str, tt.sev.String())
			assert.Equal(t, tt.level, tt.sev.LogLevel())
		})
	}

	_, err := ParseSeverity("loud")
	assert.Error(t, err)
	assert.Equal(t, "Severity(15)", Severity(15).String())
	assert.True(t, SeverityDebug < SeverityInfo)
}

func TestFailedHosts(t *testing.T) {
	f := NewFailedHosts()
	var wg sync.WaitGroup
	for _, host := range []string{"c", "a", "b", "a"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.MarkFailed(host)
		}()
	}
	wg.Wait()

	assert.Equal(t, []string{"a", "b", "c"}, f.Hosts())
	assert.Equal(t, 3, f.Len())
	assert.True(t, f.IsFailed("b"))

	f.Recover("b")
	assert.False(t, f.IsFailed("b"))
	assert.Equal(t, []string{"a", "c"}, f.Hosts())

	f.Reset()
	assert.Equal(t, 0, f.Len())
	assert.Empty(t, f.Hosts())
}
