package tracing

import (
	"sync"

	"github.com/sarchlab/linecache/sim"
)

// TotalTimeTracer sums the duration of the tasks accepted by its filter.
// Overlapping tasks are summed independently.
type TotalTimeTracer struct {
	mu      sync.Mutex
	clock   sim.TimeTeller
	filter  TaskFilter
	started map[string]sim.VTimeInSec
	sum     sim.VTimeInSec
	done    uint64
}

// NewTotalTimeTracer creates a TotalTimeTracer that reads time from clock.
func NewTotalTimeTracer(
	clock sim.TimeTeller,
	filter TaskFilter,
) *TotalTimeTracer {
	return &TotalTimeTracer{
		clock:   clock,
		filter:  filter,
		started: make(map[string]sim.VTimeInSec),
	}
}

// TotalTime returns the summed duration of all completed tasks.
func (t *TotalTimeTracer) TotalTime() sim.VTimeInSec {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.sum
}

// AverageTime returns the mean duration of completed tasks, or 0 if none
// completed.
func (t *TotalTimeTracer) AverageTime() sim.VTimeInSec {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.done == 0 {
		return 0
	}

	return t.sum / sim.VTimeInSec(t.done)
}

// TaskCount returns the number of completed tasks.
func (t *TotalTimeTracer) TaskCount() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.done
}

// StartTask remembers when an accepted task started.
func (t *TotalTimeTracer) StartTask(task Task) {
	if !t.filter(task) {
		return
	}

	now := t.clock.CurrentTime()

	t.mu.Lock()
	t.started[task.ID] = now
	t.mu.Unlock()
}

// StepTask is a no-op.
func (t *TotalTimeTracer) StepTask(Task) {}

// EndTask adds the task's duration to the total.
func (t *TotalTimeTracer) EndTask(task Task) {
	now := t.clock.CurrentTime()

	t.mu.Lock()
	defer t.mu.Unlock()

	start, ok := t.started[task.ID]
	if !ok {
		return
	}

	delete(t.started, task.ID)
	t.sum += now - start
	t.done++
}
