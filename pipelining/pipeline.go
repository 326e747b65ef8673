// Package pipelining models fixed-latency, fixed-throughput hardware
// pipelines. Items enter the first stage, spend a configured number of cycles
// in every stage, and leave into a post-pipeline buffer.
package pipelining

import (
	"log"
	"reflect"

	"github.com/sarchlab/linecache/sim"
	"github.com/sarchlab/linecache/tracing"
)

// PipelineItem is an item that can pass through a pipeline.
type PipelineItem interface {
	TaskID() string
}

// Pipeline allows simulation designers to define pipeline structures.
type Pipeline interface {
	tracing.NamedHookable

	// Tick moves elements in the pipeline forward.
	Tick() (madeProgress bool)

	// CanAccept checks if the pipeline can accept a new element.
	CanAccept() bool

	// Accept adds an element to the pipeline. If the first pipeline stage is
	// currently occupied, this function panics.
	Accept(elem PipelineItem)

	// NumItems returns the number of items that are in the pipeline stages.
	NumItems() int

	// Clear discards all the items that are currently in the pipeline.
	Clear()
}

type slot struct {
	elem      PipelineItem
	cycleLeft int
}

type pipelineImpl struct {
	sim.HookableBase

	name            string
	width           int
	numStage        int
	cyclePerStage   int
	postPipelineBuf sim.Buffer

	// lanes[lane][stage]
	lanes [][]slot
}

func (p *pipelineImpl) Name() string {
	return p.name
}

func (p *pipelineImpl) Clear() {
	p.lanes = make([][]slot, p.width)
	for i := range p.lanes {
		p.lanes[i] = make([]slot, p.numStage)
	}
}

func (p *pipelineImpl) NumItems() int {
	n := 0

	for _, lane := range p.lanes {
		for _, s := range lane {
			if s.elem != nil {
				n++
			}
		}
	}

	return n
}

// Tick walks every lane from the last stage to the first so that an item
// vacating a stage makes room for the one behind it in the same cycle.
func (p *pipelineImpl) Tick() (madeProgress bool) {
	for lane := range p.lanes {
		for stage := p.numStage - 1; stage >= 0; stage-- {
			madeProgress = p.advance(lane, stage) || madeProgress
		}
	}

	return madeProgress
}

func (p *pipelineImpl) advance(lane, stage int) bool {
	s := &p.lanes[lane][stage]

	switch {
	case s.elem == nil:
		return false
	case s.cycleLeft > 0:
		s.cycleLeft--
		return true
	case stage == p.numStage-1:
		return p.retire(s)
	default:
		return p.shift(s, &p.lanes[lane][stage+1])
	}
}

func (p *pipelineImpl) retire(s *slot) bool {
	if !p.postPipelineBuf.CanPush() {
		return false
	}

	tracing.EndTask(s.elem.TaskID()+"_pipeline", p)

	p.postPipelineBuf.Push(s.elem)
	s.elem = nil

	return true
}

func (p *pipelineImpl) shift(from, to *slot) bool {
	if to.elem != nil {
		return false
	}

	to.elem = from.elem
	to.cycleLeft = p.cyclePerStage - 1
	from.elem = nil

	return true
}

func (p *pipelineImpl) CanAccept() bool {
	if p.numStage == 0 {
		return p.postPipelineBuf.CanPush()
	}

	for _, lane := range p.lanes {
		if lane[0].elem == nil {
			return true
		}
	}

	return false
}

func (p *pipelineImpl) Accept(elem PipelineItem) {
	if p.numStage == 0 {
		p.postPipelineBuf.Push(elem)
		return
	}

	for _, lane := range p.lanes {
		if lane[0].elem != nil {
			continue
		}

		lane[0].elem = elem
		lane[0].cycleLeft = p.cyclePerStage - 1

		tracing.StartTask(
			elem.TaskID()+"_pipeline",
			elem.TaskID(),
			p,
			"pipeline",
			reflect.TypeOf(elem).String(),
			nil,
		)

		return
	}

	log.Panic("pipeline is not free, check CanAccept before Accept")
}
