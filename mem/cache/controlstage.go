package cache

import (
	"log"
	"reflect"

	"github.com/sarchlab/linecache/mem/cache/internal/tagging"
	"github.com/sarchlab/linecache/sim"
	"github.com/sarchlab/linecache/tracing"
)

// controlStage serves the flush, restart and reset requests that arrive at
// the control port.
type controlStage struct {
	cache *Comp

	flush      *FlushReq
	toFlush    []*tagging.Block
	numPending int
	numFlushed int
}

func (s *controlStage) Tick() bool {
	madeProgress := false

	madeProgress = s.processMsg() || madeProgress

	switch s.cache.state {
	case cacheStatePreFlushing:
		madeProgress = s.startFlushing() || madeProgress
	case cacheStateFlushing:
		madeProgress = s.processFlush() || madeProgress
		madeProgress = s.finalizeFlush() || madeProgress
	}

	return madeProgress
}

func (s *controlStage) processMsg() bool {
	c := s.cache

	msg := c.controlPort.PeekIncoming()
	if msg == nil {
		return false
	}

	switch req := msg.(type) {
	case *FlushReq:
		return s.startFlush(req)
	case *RestartReq:
		return s.restart(req)
	case *ResetReq:
		return s.reset(req)
	default:
		log.Panicf("cannot handle control message of type %s",
			reflect.TypeOf(msg))
	}

	return false
}

func (s *controlStage) startFlush(req *FlushReq) bool {
	c := s.cache
	if s.flush != nil {
		return false
	}

	c.controlPort.RetrieveIncoming()
	tracing.TraceReqReceive(req, c)

	s.flush = req
	s.numFlushed = 0
	c.state = cacheStatePreFlushing

	return true
}

// startFlushing waits for the transactions in flight to drain and then
// collects the dirty lines.
func (s *controlStage) startFlushing() bool {
	c := s.cache
	if len(c.inflight) > 0 {
		return false
	}

	s.toFlush = s.toFlush[:0]

	for _, set := range c.directory.Sets() {
		for _, block := range set.Blocks {
			if block.IsValid && block.IsDirty {
				s.toFlush = append(s.toFlush, block)
			}
		}
	}

	c.dispatcher.reset()
	c.state = cacheStateFlushing

	return true
}

func (s *controlStage) processFlush() bool {
	c := s.cache
	if len(s.toFlush) == 0 || !c.canForward() {
		return false
	}

	block := s.toFlush[0]
	s.toFlush = s.toFlush[1:]

	t := &transaction{
		id:     sim.GetIDGenerator().Generate(),
		action: actionFlush,
		flush:  s.flush,
		block:  block,
	}

	block.IsLocked = true
	c.profile.Evictions++
	s.numPending++
	c.startEviction(t, c.evictionReq(block))

	return true
}

// evictionDone is called by the bottom parser when the write-back of a
// flushed line has been acknowledged.
func (s *controlStage) evictionDone(t *transaction) {
	c := s.cache

	if t.failed() {
		log.Printf("%s: flush of line 0x%x failed: %s %v", c.Name(),
			c.addressMapper.Compose(t.block.Tag, t.block.SetID, 0),
			t.failStatus, t.failErr)
		c.profile.BackingStoreErrors++
	} else {
		c.directory.MarkClean(t.block)
		s.numFlushed++
	}

	t.block.IsLocked = false
	s.numPending--
}

func (s *controlStage) finalizeFlush() bool {
	c := s.cache
	if len(s.toFlush) > 0 || s.numPending > 0 {
		return false
	}

	if !c.controlPort.CanSend() {
		return false
	}

	req := s.flush

	if req.InvalidateAll {
		s.invalidateCleanLines()
	}

	rsp := &FlushRsp{
		MsgMeta:    newControlMeta(c.controlPort.AsRemote(), req.Src),
		RspTo:      req.ID,
		NumFlushed: s.numFlushed,
	}
	c.controlPort.Send(rsp)

	if req.PauseAfterFlushing {
		c.state = cacheStatePaused
	} else {
		c.state = cacheStateRunning
	}

	s.flush = nil
	tracing.TraceReqComplete(req, c)

	return true
}

// invalidateCleanLines drops every line that is not dirty. A line whose
// write-back failed keeps its data.
func (s *controlStage) invalidateCleanLines() {
	c := s.cache

	for _, set := range c.directory.Sets() {
		for _, block := range set.Blocks {
			if block.IsValid && !block.IsDirty {
				c.directory.Invalidate(block)
			}
		}
	}
}

func (s *controlStage) restart(req *RestartReq) bool {
	c := s.cache
	if !c.controlPort.CanSend() || s.flush != nil {
		return false
	}

	c.controlPort.RetrieveIncoming()
	tracing.TraceReqReceive(req, c)

	c.state = cacheStateRunning

	rsp := &RestartRsp{
		MsgMeta: newControlMeta(c.controlPort.AsRemote(), req.Src),
		RspTo:   req.ID,
	}
	c.controlPort.Send(rsp)
	tracing.TraceReqComplete(req, c)

	return true
}

func (s *controlStage) reset(req *ResetReq) bool {
	c := s.cache
	if !c.controlPort.CanSend() {
		return false
	}

	c.controlPort.RetrieveIncoming()
	tracing.TraceReqReceive(req, c)

	numAborted := c.abortAll(req.Hard)

	if s.flush != nil {
		numAborted += s.numPending
		s.flush = nil
	}

	s.toFlush = nil
	s.numPending = 0
	c.state = cacheStateRunning

	rsp := &ResetRsp{
		MsgMeta:    newControlMeta(c.controlPort.AsRemote(), req.Src),
		RspTo:      req.ID,
		NumAborted: numAborted,
	}
	c.controlPort.Send(rsp)
	tracing.TraceReqComplete(req, c)

	return true
}

// abortAll drops every transaction in flight and returns how many there were.
// Responses that are still on their way from the backing store are
// discarded when they arrive. A hard reset also drops the requests that have
// not left the cache yet, so queued write-backs never reach the backing store.
func (c *Comp) abortAll(hard bool) int {
	for _, e := range c.mshr.Entries() {
		c.discarded[e.Tag] = true
	}

	if !hard {
		for _, t := range c.inflight {
			aborted := (t.action == actionReadMiss ||
				t.action == actionWriteMiss) &&
				(t.phase == phaseEvicting || t.phase == phaseFilling)
			if aborted {
				c.directory.Invalidate(t.block)
			}
		}
	}

	for _, set := range c.directory.Sets() {
		for _, block := range set.Blocks {
			block.IsLocked = false
			block.ReadCount = 0
		}
	}

	if hard {
		c.directory.Reset()

		for _, msg := range c.bottomSender.Clear() {
			delete(c.discarded, msg.Meta().ID)
		}
	}

	numAborted := len(c.inflight)

	c.mshr.Reset()
	c.bankPipeline.Clear()
	c.bankPostBuf.Clear()
	c.topSender.Clear()
	c.inflight = nil
	c.dispatcher.reset()

	return numAborted
}
