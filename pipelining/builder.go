package pipelining

import (
	"fmt"

	"github.com/sarchlab/linecache/sim"
)

// Builder configures and creates pipelines. The zero-stage pipeline forwards
// items straight to the post-pipeline buffer.
type Builder struct {
	lanes, stages, cycles int
	out                   sim.Buffer
}

// MakeBuilder returns a Builder for a single-lane, five-stage pipeline with
// one cycle per stage.
func MakeBuilder() Builder {
	return Builder{lanes: 1, stages: 5, cycles: 1}
}

// WithPipelineWidth sets how many items may occupy one stage at once.
func (b Builder) WithPipelineWidth(n int) Builder {
	b.lanes = n
	return b
}

// WithNumStage sets the number of stages.
func (b Builder) WithNumStage(n int) Builder {
	b.stages = n
	return b
}

// WithCyclePerStage sets how many cycles an item spends in each stage.
func (b Builder) WithCyclePerStage(n int) Builder {
	b.cycles = n
	return b
}

// WithPostPipelineBuffer sets where items go after the last stage.
func (b Builder) WithPostPipelineBuffer(buf sim.Buffer) Builder {
	b.out = buf
	return b
}

// Build creates the pipeline. It panics on an invalid name, a missing
// post-pipeline buffer, or a non-positive width or cycle count.
func (b Builder) Build(name string) Pipeline {
	sim.NameMustBeValid(name)

	switch {
	case b.out == nil:
		panic(fmt.Sprintf("pipeline %s: no post-pipeline buffer", name))
	case b.lanes < 1:
		panic(fmt.Sprintf("pipeline %s: width %d", name, b.lanes))
	case b.cycles < 1:
		panic(fmt.Sprintf("pipeline %s: %d cycles per stage", name, b.cycles))
	case b.stages < 0:
		panic(fmt.Sprintf("pipeline %s: %d stages", name, b.stages))
	}

	p := &pipelineImpl{
		name:            name,
		width:           b.lanes,
		numStage:        b.stages,
		cyclePerStage:   b.cycles,
		postPipelineBuf: b.out,
	}
	p.Clear()

	return p
}
