package pkg

import (
	"fmt"

	"github.com/AlexanderGrooff/hostrun/pkg/types"
)

// Processor observes a run. Hooks are called from worker goroutines, so
// implementations must be safe for concurrent use.
type Processor interface {
	TaskStarted(task *Task)
	TaskCompleted(task *Task, result *AggregatedResult)
	TaskInstanceStarted(task *Task, host *types.Host)
	TaskInstanceCompleted(task *Task, host *types.Host, result *MultiResult)
	SubtaskInstanceStarted(task *Task, host *types.Host)
	SubtaskInstanceCompleted(task *Task, host *types.Host, result *MultiResult)
}

// NoopProcessor implements every hook as a no-op. Embed it to implement only some hooks.
type NoopProcessor struct{}

func (NoopProcessor) TaskStarted(*Task) {}

func (NoopProcessor) TaskCompleted(*Task, *AggregatedResult) {}

func (NoopProcessor) TaskInstanceStarted(*Task, *types.Host) {}

func (NoopProcessor) TaskInstanceCompleted(*Task, *types.Host, *MultiResult) {}

func (NoopProcessor) SubtaskInstanceStarted(*Task, *types.Host) {}

func (NoopProcessor) SubtaskInstanceCompleted(*Task, *types.Host, *MultiResult) {}

// processorPanic marks a panic raised by a hook so task bodies do not recover it.
type processorPanic struct {
	value interface{}
}

func (p processorPanic) String() string {
	return fmt.Sprintf("processor panicked: %v", p.value)
}

func guard() {
	if p := recover(); p != nil {
		if _, ok := p.(processorPanic); ok {
			panic(p)
		}
		panic(processorPanic{value: p})
	}
}

// Processors fans every hook out to its members in registration order.
type Processors []Processor

func (ps Processors) TaskStarted(task *Task) {
	defer guard()
	for _, p := range ps {
		p.TaskStarted(task)
	}
}

func (ps Processors) TaskCompleted(task *Task, result *AggregatedResult) {
	defer guard()
	for _, p := range ps {
		p.TaskCompleted(task, result)
	}
}

func (ps Processors) TaskInstanceStarted(task *Task, host *types.Host) {
	defer guard()
	for _, p := range ps {
		p.TaskInstanceStarted(task, host)
	}
}

func (ps Processors) TaskInstanceCompleted(task *Task, host *types.Host, result *MultiResult) {
	defer guard()
	for _, p := range ps {
		p.TaskInstanceCompleted(task, host, result)
	}
}

func (ps Processors) SubtaskInstanceStarted(task *Task, host *types.Host) {
	defer guard()
	for _, p := range ps {
		p.SubtaskInstanceStarted(task, host)
	}
}

func (ps Processors) SubtaskInstanceCompleted(task *Task, host *types.Host, result *MultiResult) {
	defer guard()
	for _, p := range ps {
		p.SubtaskInstanceCompleted(task, host, result)
	}
}
