package pkg

import (
	"github.com/AlexanderGrooff/hostrun/pkg/common"
	"github.com/AlexanderGrooff/hostrun/pkg/types"
)

// LogProcessor logs every lifecycle event. Results are logged at the level
// matching their severity when they reach Threshold.
type LogProcessor struct {
	Threshold Severity
}

func (l LogProcessor) TaskStarted(task *Task) {
	common.LogInfo("Task started", common.TaskFields(task.Name, ""))
}

func (l LogProcessor) TaskCompleted(task *Task, result *AggregatedResult) {
	common.LogInfo("Task completed", common.TaskFields(task.Name, "").
		With("hosts", result.Len()).
		With("failed", result.Failed()))
}

func (l LogProcessor) TaskInstanceStarted(task *Task, host *types.Host) {
	common.LogDebug("Task instance started", common.TaskFields(task.Name, host.Name))
}

func (l LogProcessor) TaskInstanceCompleted(task *Task, host *types.Host, result *MultiResult) {
	l.logResults(host, result)
}

func (l LogProcessor) SubtaskInstanceStarted(task *Task, host *types.Host) {
	common.LogDebug("Subtask instance started", common.TaskFields(task.Name, host.Name))
}

func (l LogProcessor) SubtaskInstanceCompleted(task *Task, host *types.Host, result *MultiResult) {
	common.LogDebug("Subtask instance completed", common.TaskFields(task.Name, host.Name).
		With("failed", result.Failed()).
		With("changed", result.Changed()))
}

func (l LogProcessor) logResults(host *types.Host, result *MultiResult) {
	threshold := l.Threshold
	if threshold == 0 {
		threshold = SeverityInfo
	}
	result.Visit(threshold, func(r *Result) {
		fields := common.TaskFields(r.Name, host.Name).
			With("changed", r.Changed).
			With("failed", r.Failed).
			WithError(r.Exception)
		if r.Exception == nil && r.Result != nil {
			fields.With("result", r.Result)
		}
		common.Log(r.Severity.LogLevel(), "Task result", fields)
	})
}
