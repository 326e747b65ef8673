package cache

import (
	"log"
	"reflect"

	"github.com/sarchlab/linecache/mem"
	"github.com/sarchlab/linecache/mem/cache/internal/mshr"
	"github.com/sarchlab/linecache/tracing"
)

// bottomParser processes the responses that the backing store sends back.
type bottomParser struct {
	cache *Comp
}

func (p *bottomParser) Tick() bool {
	c := p.cache

	msg := c.bottomPort.PeekIncoming()
	if msg == nil {
		return false
	}

	rsp, ok := msg.(*mem.AccessRsp)
	if !ok {
		log.Panicf("cannot handle response of type %s", reflect.TypeOf(msg))
	}

	if c.discarded[rsp.RespondTo] {
		return p.drop(rsp)
	}

	entry, found := c.mshr.Lookup(rsp.RespondTo)
	if !found {
		log.Panicf("%s: response to unknown request %s", c.Name(), rsp.RespondTo)
	}

	switch entry.Kind {
	case mshr.EntryForward:
		return p.relay(entry, rsp)
	case mshr.EntryEviction:
		return p.evictionAck(entry, rsp)
	default:
		return p.fillBeat(entry, rsp)
	}
}

// drop consumes a response to a request that a reset aborted.
func (p *bottomParser) drop(rsp *mem.AccessRsp) bool {
	c := p.cache

	c.bottomPort.RetrieveIncoming()
	log.Printf("%s: dropping response to aborted request %s",
		c.Name(), rsp.RespondTo)

	if rsp.LastTransfer {
		delete(c.discarded, rsp.RespondTo)
	}

	return true
}

// arrive counts rsp against its entry and reports whether the entry is done.
func (p *bottomParser) arrive(rsp *mem.AccessRsp) bool {
	c := p.cache

	c.bottomPort.RetrieveIncoming()

	_, complete, err := c.mshr.RecordArrival(rsp.RespondTo)
	if err != nil {
		log.Panicf("%s: %v", c.Name(), err)
	}

	return complete || rsp.LastTransfer
}

func (p *bottomParser) retire(entry *mshr.Entry[*transaction], down *mem.AccessReq) {
	c := p.cache

	if err := c.mshr.Clear(entry.Tag); err != nil {
		log.Panicf("%s: %v", c.Name(), err)
	}

	tracing.TraceReqFinalize(down, c)
}

// relay passes the response of a forwarded request to the requester.
func (p *bottomParser) relay(
	entry *mshr.Entry[*transaction],
	rsp *mem.AccessRsp,
) bool {
	c := p.cache
	if !c.topSender.CanSend(1) {
		return false
	}

	t := entry.Origin
	req := t.req

	firstFailure := rsp.Status != mem.StatusOK && !t.failed()
	t.recordFailure(rsp)

	done := p.arrive(rsp)

	builder := c.upstreamRsp(req, rsp.TransferIndex, done).
		WithStatus(rsp.Status).
		WithData(rsp.Data)

	if rsp.Status != mem.StatusOK {
		err := &BackingStoreError{
			Address: req.Address,
			Kind:    req.Kind,
			Status:  rsp.Status,
			Err:     rsp.Err,
		}
		builder = builder.WithErr(err)

		if firstFailure {
			log.Printf("%s: %v", c.Name(), err)
			c.profile.BackingStoreErrors++
		}
	}

	c.topSender.Send(builder.Build())
	t.nextBeat = rsp.TransferIndex + 1

	if done {
		p.retire(entry, t.forwardReq)
		c.complete(t)
	}

	return true
}

func (p *bottomParser) evictionAck(
	entry *mshr.Entry[*transaction],
	rsp *mem.AccessRsp,
) bool {
	c := p.cache
	if !c.bottomSender.CanSend(1) || !c.topSender.CanSend(1) {
		return false
	}

	t := entry.Origin
	t.recordFailure(rsp)

	if !p.arrive(rsp) {
		return true
	}

	p.retire(entry, t.evictReq)

	switch {
	case t.action == actionFlush:
		c.controlStage.evictionDone(t)
	case t.action == actionRCW && t.failed():
		// The line keeps the only up-to-date copy of the data.
		t.block.IsLocked = false
		c.respondBackingStoreError(t)
		c.complete(t)
	case t.action == actionRCW:
		c.directory.Invalidate(t.block)
		t.block.IsLocked = false
		c.forward(t, t.req)
	case t.failed():
		c.directory.Invalidate(t.block)
		t.block.IsLocked = false
		c.respondBackingStoreError(t)
		c.complete(t)
	default:
		c.startFill(t)
	}

	return true
}

// fillBeat stores one beat of a line fill. A read miss forwards every
// requested beat as soon as the data that covers it has arrived.
func (p *bottomParser) fillBeat(
	entry *mshr.Entry[*transaction],
	rsp *mem.AccessRsp,
) bool {
	c := p.cache
	t := entry.Origin
	fetch := t.fetchReq

	ok := rsp.Status == mem.StatusOK && !t.failed()
	pos := p.linePos(fetch.TransferAddress(rsp.TransferIndex))
	willFinish := entry.Received+1 >= entry.Expected || rsp.LastTransfer

	topNeed, bottomNeed := 0, 0
	if ok && t.action == actionReadMiss {
		topNeed = p.numDeliverable(t, pos)
	}

	if willFinish {
		switch {
		case t.action == actionWriteMiss && !c.writeThrough(t.req):
			topNeed += t.req.NumTransfers
		case t.action == actionWriteMiss:
			topNeed++
			bottomNeed++
		default:
			topNeed++
		}
	}

	if !c.topSender.CanSend(topNeed) {
		return false
	}

	if bottomNeed > 0 && !c.bottomSender.CanSend(bottomNeed) {
		return false
	}

	t.recordFailure(rsp)

	if ok {
		addr := t.block.CacheAddress + uint64(pos)*c.config.AccessByteWidth
		if err := c.dataStore.Write(addr, rsp.Data); err != nil {
			log.Panic(err)
		}

		t.fillArrived[pos] = true

		if t.action == actionReadMiss {
			p.deliver(t)
			entry.CriticalWordDone = t.nextBeat > 0
		}
	}

	if !p.arrive(rsp) {
		return true
	}

	p.retire(entry, fetch)
	p.finishFill(t)

	return true
}

func (p *bottomParser) finishFill(t *transaction) {
	c := p.cache
	block := t.block

	if t.failed() {
		c.directory.Invalidate(block)
		block.IsLocked = false

		if !t.upstreamDone() {
			c.respondBackingStoreError(t)
		}

		c.complete(t)

		return
	}

	block.IsLocked = false

	if t.action == actionReadMiss {
		c.complete(t)
		return
	}

	c.writeBlock(block, t.req)

	if c.writeThrough(t.req) {
		tracing.AddTaskStep(c.taskID(t), c, "write-through")
		c.forward(t, t.req)

		return
	}

	c.directory.MarkDirty(block)
	c.sendWriteAcks(t.req)
	c.complete(t)
}

func (p *bottomParser) linePos(addr uint64) int {
	return int(p.cache.lineOffset(addr) / p.cache.config.AccessByteWidth)
}

// covered reports whether the fill has brought in every byte of the i-th
// transfer of the request, treating the beat at extra as arrived.
func (p *bottomParser) covered(t *transaction, i, extra int) bool {
	req := t.req
	addr := req.TransferAddress(i)
	first := p.linePos(addr)
	last := p.linePos(addr + req.TransferByteSize() - 1)

	for pos := first; pos <= last; pos++ {
		if pos != extra && !t.fillArrived[pos] {
			return false
		}
	}

	return true
}

func (p *bottomParser) numDeliverable(t *transaction, extra int) int {
	n := 0
	for i := t.nextBeat; i < t.req.NumTransfers; i++ {
		if !p.covered(t, i, extra) {
			break
		}

		n++
	}

	return n
}

func (p *bottomParser) deliver(t *transaction) {
	c := p.cache

	for !t.upstreamDone() && p.covered(t, t.nextBeat, -1) {
		c.sendReadData(t, t.nextBeat)

		if t.nextBeat == 0 {
			tracing.AddTaskStep(c.taskID(t), c, "critical-word")
		}

		t.nextBeat++
	}
}
