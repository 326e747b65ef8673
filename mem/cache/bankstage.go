package cache

import "github.com/sarchlab/linecache/tracing"

// bankStage serves hits once they have spent the hit latency in the bank
// pipeline.
type bankStage struct {
	cache *Comp
}

func (s *bankStage) Tick() bool {
	madeProgress := s.finalize()

	return s.cache.bankPipeline.Tick() || madeProgress
}

func (s *bankStage) finalize() bool {
	c := s.cache

	item := c.bankPostBuf.Peek()
	if item == nil {
		return false
	}

	t := item.(*transaction)

	var done bool

	switch t.action {
	case actionReadHit:
		done = s.finalizeReadHit(t)
	case actionWriteHit:
		done = s.finalizeWriteHit(t)
	default:
		panic("unexpected transaction in bank pipeline")
	}

	if done {
		c.bankPostBuf.Pop()
	}

	return done
}

func (s *bankStage) finalizeReadHit(t *transaction) bool {
	c := s.cache
	if !c.topSender.CanSend(t.req.NumTransfers) {
		return false
	}

	for i := 0; i < t.req.NumTransfers; i++ {
		c.sendReadData(t, i)
	}

	t.block.ReadCount--
	t.nextBeat = t.req.NumTransfers
	c.complete(t)

	return true
}

func (s *bankStage) finalizeWriteHit(t *transaction) bool {
	c := s.cache

	if c.writeThrough(t.req) {
		if !c.canForward() {
			return false
		}

		c.writeBlock(t.block, t.req)
		t.block.IsLocked = false
		tracing.AddTaskStep(c.taskID(t), c, "write-through")
		c.forward(t, t.req)

		return true
	}

	if !c.topSender.CanSend(t.req.NumTransfers) {
		return false
	}

	c.writeBlock(t.block, t.req)
	t.block.IsLocked = false
	c.directory.MarkDirty(t.block)
	c.sendWriteAcks(t.req)
	c.complete(t)

	return true
}
