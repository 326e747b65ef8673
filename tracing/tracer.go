package tracing

// A Tracer receives the tasks reported by the domains it collects from.
// StepTask and EndTask carry only the task ID and, for steps, the new step.
type Tracer interface {
	StartTask(task Task)
	StepTask(task Task)
	EndTask(task Task)
}
