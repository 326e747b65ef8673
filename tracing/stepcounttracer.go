package tracing

import "sync"

type stepTally struct {
	hits  uint64
	tasks uint64
}

// StepCountTracer counts how often each named step is reached and how many
// distinct tasks reach it.
type StepCountTracer struct {
	mu     sync.Mutex
	filter TaskFilter
	order  []string
	tally  map[string]*stepTally
	seen   map[string]map[string]struct{}
}

// NewStepCountTracer creates a StepCountTracer that follows the tasks
// accepted by filter.
func NewStepCountTracer(filter TaskFilter) *StepCountTracer {
	return &StepCountTracer{
		filter: filter,
		tally:  make(map[string]*stepTally),
		seen:   make(map[string]map[string]struct{}),
	}
}

// GetStepNames lists the step names in the order they were first reached.
func (t *StepCountTracer) GetStepNames() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	return append([]string(nil), t.order...)
}

// GetStepCount returns how many times the named step was reached.
func (t *StepCountTracer) GetStepCount(stepName string) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	if s, ok := t.tally[stepName]; ok {
		return s.hits
	}

	return 0
}

// GetTaskCount returns how many followed tasks reached the named step at
// least once.
func (t *StepCountTracer) GetTaskCount(stepName string) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	if s, ok := t.tally[stepName]; ok {
		return s.tasks
	}

	return 0
}

// StartTask begins following the task if the filter accepts it.
func (t *StepCountTracer) StartTask(task Task) {
	if !t.filter(task) {
		return
	}

	t.mu.Lock()
	t.seen[task.ID] = make(map[string]struct{})
	t.mu.Unlock()
}

// StepTask counts the step. Steps of tasks that are not followed still count
// toward the step total.
func (t *StepCountTracer) StepTask(task Task) {
	if len(task.Steps) == 0 {
		return
	}

	name := task.Steps[0].What

	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.tally[name]
	if !ok {
		s = &stepTally{}
		t.tally[name] = s
		t.order = append(t.order, name)
	}
	s.hits++

	steps, followed := t.seen[task.ID]
	if !followed {
		return
	}

	if _, dup := steps[name]; !dup {
		steps[name] = struct{}{}
		s.tasks++
	}
}

// EndTask stops following the task.
func (t *StepCountTracer) EndTask(task Task) {
	t.mu.Lock()
	delete(t.seen, task.ID)
	t.mu.Unlock()
}
