package tracing

import (
	"fmt"

	"github.com/sarchlab/linecache/sim"
)

type traceHook struct {
	tracer Tracer
}

func (h *traceHook) Func(ctx sim.HookCtx) {
	task, ok := ctx.Item.(Task)
	if !ok {
		return
	}

	switch ctx.Pos {
	case HookPosTaskStart:
		h.tracer.StartTask(task)
	case HookPosTaskStep:
		h.tracer.StepTask(task)
	case HookPosTaskEnd:
		h.tracer.EndTask(task)
	}
}

// A Traceable is anything named that accepts hooks, such as a sim.Component.
type Traceable interface {
	sim.Named
	sim.Hookable
}

// CollectTrace attaches tracer to domain. Attaching the same tracer twice
// panics.
func CollectTrace(domain Traceable, tracer Tracer) {
	for _, h := range domain.Hooks() {
		if th, ok := h.(*traceHook); ok && th.tracer == tracer {
			panic(fmt.Sprintf("tracing: %s already traced by %T",
				domain.Name(), tracer))
		}
	}

	domain.AcceptHook(&traceHook{tracer: tracer})
}
