// Package cache provides a cycle-level set-associative cache controller. The
// cache sits between one requester and one backing store and supports
// write-back and write-through operation, allocate-on-miss with
// critical-word-first fills, and RR, LRU and random replacement.
package cache

import (
	"log"

	"github.com/sarchlab/linecache/mem"
	"github.com/sarchlab/linecache/mem/cache/internal/mshr"
	"github.com/sarchlab/linecache/mem/cache/internal/tagging"
	"github.com/sarchlab/linecache/pipelining"
	"github.com/sarchlab/linecache/sim"
	"github.com/sarchlab/linecache/tracing"
)

type cacheState int

const (
	cacheStateRunning cacheState = iota
	cacheStatePreFlushing
	cacheStateFlushing
	cacheStatePaused
)

// Comp is a set-associative cache.
type Comp struct {
	*sim.TickingComponent

	topPort     sim.Port
	bottomPort  sim.Port
	controlPort sim.Port

	topSender    sim.BufferedSender
	bottomSender sim.BufferedSender

	bankPipeline pipelining.Pipeline
	bankPostBuf  sim.Buffer

	dispatcher   *dispatcher
	bankStage    *bankStage
	bottomParser *bottomParser
	controlStage *controlStage

	config          Config
	addressMapper   tagging.AddressMapper
	directory       tagging.Directory
	mshr            mshr.MSHR[*transaction]
	dataStore       *mem.Storage
	lowModuleFinder mem.AddressToPortMapper
	backingStore    mem.DebugAccessor
	numReqPerCycle  int

	state     cacheState
	inflight  []*transaction
	discarded map[string]bool
	profile   Profile
}

// Tick updates the internal states of the Cache.
func (c *Comp) Tick() bool {
	madeProgress := false

	madeProgress = c.controlStage.Tick() || madeProgress

	if c.state != cacheStatePaused {
		madeProgress = c.runPipeline() || madeProgress
	}

	return madeProgress
}

func (c *Comp) runPipeline() bool {
	madeProgress := false

	madeProgress = c.runStage(c.topSender) || madeProgress
	madeProgress = c.runStage(c.bottomSender) || madeProgress
	madeProgress = c.runStage(c.bottomParser) || madeProgress
	madeProgress = c.bankStage.Tick() || madeProgress
	madeProgress = c.runStage(c.dispatcher) || madeProgress

	return madeProgress
}

func (c *Comp) runStage(stage sim.Ticker) bool {
	madeProgress := false
	for i := 0; i < c.numReqPerCycle; i++ {
		madeProgress = stage.Tick() || madeProgress
	}

	return madeProgress
}

// TopPort returns the port that receives requests from the requester.
func (c *Comp) TopPort() sim.Port {
	return c.topPort
}

// BottomPort returns the port that talks to the backing store.
func (c *Comp) BottomPort() sim.Port {
	return c.bottomPort
}

// ControlPort returns the port that receives flush, restart and reset
// requests.
func (c *Comp) ControlPort() sim.Port {
	return c.controlPort
}

// DumpConfig returns the normalized configuration of the cache.
func (c *Comp) DumpConfig() Config {
	return c.config
}

// DumpProfile returns a snapshot of the cache counters.
func (c *Comp) DumpProfile() Profile {
	return c.profile
}

// NumInflight returns the number of transactions the cache is working on.
func (c *Comp) NumInflight() int {
	return len(c.inflight)
}

func (c *Comp) newTransaction(req *mem.AccessReq, a action) *transaction {
	t := &transaction{
		id:     sim.GetIDGenerator().Generate(),
		action: a,
		req:    req,
	}

	c.inflight = append(c.inflight, t)

	return t
}

func (c *Comp) taskID(t *transaction) string {
	if t.flush != nil {
		return tracing.MsgIDAtReceiver(t.flush, c)
	}

	return tracing.MsgIDAtReceiver(t.req, c)
}

func (c *Comp) complete(t *transaction) {
	for i, other := range c.inflight {
		if other == t {
			c.inflight = append(c.inflight[:i], c.inflight[i+1:]...)
			break
		}
	}

	tracing.TraceReqComplete(t.req, c)
}

func (c *Comp) writeThrough(req *mem.AccessReq) bool {
	return !c.config.WriteBack || req.NonBufferable
}

// lineOffset returns where addr sits in the line held by block.
func (c *Comp) lineOffset(addr uint64) uint64 {
	_, _, offset := c.addressMapper.Decompose(addr)
	return offset
}

func (c *Comp) readBlock(block *tagging.Block, addr, byteSize uint64) []byte {
	data, err := c.dataStore.Read(block.CacheAddress+c.lineOffset(addr), byteSize)
	if err != nil {
		log.Panic(err)
	}

	return data
}

func (c *Comp) writeBlock(block *tagging.Block, req *mem.AccessReq) {
	w := req.TransferByteSize()

	for i := 0; i < req.NumTransfers; i++ {
		lo, hi := uint64(i)*w, uint64(i+1)*w

		var mask []bool
		if req.ByteEnables != nil {
			mask = req.ByteEnables[lo:hi]
		}

		addr := block.CacheAddress + c.lineOffset(req.TransferAddress(i))

		err := c.dataStore.WriteMasked(addr, req.Data[lo:hi], mask)
		if err != nil {
			log.Panic(err)
		}
	}
}

func (c *Comp) upstreamRsp(
	req *mem.AccessReq,
	i int,
	last bool,
) mem.AccessRspBuilder {
	return mem.AccessRspBuilder{}.
		WithSrc(c.topPort.AsRemote()).
		WithDst(req.Src).
		WithRspTo(req.ID).
		WithKind(req.Kind).
		WithAddress(req.TransferAddress(i)).
		WithTransferIndex(i).
		WithLastTransfer(last)
}

func (c *Comp) sendReadData(t *transaction, i int) {
	req := t.req
	data := c.readBlock(t.block, req.TransferAddress(i), req.TransferByteSize())
	rsp := c.upstreamRsp(req, i, i == req.NumTransfers-1).
		WithData(data).
		Build()
	c.topSender.Send(rsp)
}

func (c *Comp) sendWriteAcks(req *mem.AccessReq) {
	for i := 0; i < req.NumTransfers; i++ {
		c.topSender.Send(c.upstreamRsp(req, i, i == req.NumTransfers-1).Build())
	}
}

func (c *Comp) respondBackingStoreError(t *transaction) {
	req := t.req
	err := &BackingStoreError{
		Address: req.Address,
		Kind:    req.Kind,
		Status:  t.failStatus,
		Err:     t.failErr,
	}

	log.Printf("%s: %v", c.Name(), err)
	c.profile.BackingStoreErrors++

	idx := t.nextBeat
	if idx >= req.NumTransfers {
		idx = req.NumTransfers - 1
	}

	rsp := c.upstreamRsp(req, idx, true).
		WithStatus(t.failStatus).
		WithErr(err).
		Build()
	c.topSender.Send(rsp)
}

func (c *Comp) canForward() bool {
	return !c.mshr.IsFull() && c.bottomSender.CanSend(1)
}

func (c *Comp) register(e *mshr.Entry[*transaction]) {
	if err := c.mshr.Register(e); err != nil {
		log.Panicf("%s: %v", c.Name(), err)
	}
}

// forward sends a copy of req to the backing store. The responses are
// relayed to the requester.
func (c *Comp) forward(t *transaction, req *mem.AccessReq) {
	down := mem.MakeAccessReqBuilder().
		WithSrc(c.bottomPort.AsRemote()).
		WithDst(c.lowModuleFinder.Find(req.Address)).
		WithKind(req.Kind).
		WithAddress(req.Address).
		WithByteSize(req.AccessByteSize).
		WithNumTransfers(req.NumTransfers).
		WithPriority(req.Priority).
		WithData(req.Data).
		WithByteEnables(req.ByteEnables).
		Build()
	down.Wrap = req.Wrap
	down.NonCacheable = req.NonCacheable
	down.NonBufferable = req.NonBufferable

	c.register(&mshr.Entry[*transaction]{
		Tag:      down.ID,
		Kind:     mshr.EntryForward,
		Origin:   t,
		SetID:    -1,
		WayID:    -1,
		Expected: down.NumTransfers,
	})

	t.forwardReq = down
	t.phase = phaseForwarding

	c.bottomSender.Send(down)
	tracing.TraceReqInitiate(down, c, c.taskID(t))
}

// evictionReq builds the write-back of a dirty line. It must be built before
// the block is retagged.
func (c *Comp) evictionReq(block *tagging.Block) *mem.AccessReq {
	addr := c.addressMapper.Compose(block.Tag, block.SetID, 0)

	data, err := c.dataStore.Read(block.CacheAddress, c.config.LineByteWidth)
	if err != nil {
		log.Panic(err)
	}

	return mem.MakeAccessReqBuilder().
		WithSrc(c.bottomPort.AsRemote()).
		WithDst(c.lowModuleFinder.Find(addr)).
		WithKind(mem.KindBlockWrite).
		WithAddress(addr).
		WithByteSize(c.config.LineByteWidth).
		WithNumTransfers(c.config.BeatsPerLine()).
		WithData(data).
		Build()
}

func (c *Comp) startEviction(t *transaction, evict *mem.AccessReq) {
	c.register(&mshr.Entry[*transaction]{
		Tag:      evict.ID,
		Kind:     mshr.EntryEviction,
		Origin:   t,
		SetID:    t.block.SetID,
		WayID:    t.block.WayID,
		Expected: evict.NumTransfers,
	})

	t.evictReq = evict
	t.phase = phaseEvicting
	c.profile.WriteBacks++

	c.bottomSender.Send(evict)
	tracing.TraceReqInitiate(evict, c, c.taskID(t))
	tracing.AddTaskStep(c.taskID(t), c, "evict")
}

// startFill reads the line that t allocated. A read miss starts from the beat
// that holds the requested word and wraps around the line. A write miss reads
// the line from its first byte.
func (c *Comp) startFill(t *transaction) {
	block := t.block
	lineBase := c.addressMapper.Compose(t.tag, block.SetID, 0)

	start := lineBase
	if t.action == actionReadMiss {
		start = t.req.TransferAddress(0) &^ (c.config.AccessByteWidth - 1)
	}

	fetch := mem.MakeAccessReqBuilder().
		WithSrc(c.bottomPort.AsRemote()).
		WithDst(c.lowModuleFinder.Find(lineBase)).
		WithKind(mem.KindBlockRead).
		WithAddress(start).
		WithByteSize(c.config.LineByteWidth).
		WithNumTransfers(c.config.BeatsPerLine()).
		WithWrap().
		Build()

	c.register(&mshr.Entry[*transaction]{
		Tag:      fetch.ID,
		Kind:     mshr.EntryFill,
		Origin:   t,
		SetID:    block.SetID,
		WayID:    block.WayID,
		Expected: fetch.NumTransfers,
	})

	t.fetchReq = fetch
	t.fillArrived = make([]bool, fetch.NumTransfers)
	t.phase = phaseFilling
	c.profile.Fills++

	c.bottomSender.Send(fetch)
	tracing.TraceReqInitiate(fetch, c, c.taskID(t))
	tracing.AddTaskStep(c.taskID(t), c, "fill")
}
