package cache

import (
	"fmt"
	"log"
	"reflect"

	"github.com/sarchlab/linecache/mem"
	"github.com/sarchlab/linecache/mem/cache/internal/tagging"
	"github.com/sarchlab/linecache/tracing"
)

// dispatcher takes requests from the top port in order and decides how each
// of them is served.
type dispatcher struct {
	cache *Comp

	// A miss that found its victim in use remembers the victim, so that the
	// replacement policy is consulted once per miss.
	hasStalledVictim bool
	stalledSetID     int
	stalledWayID     int
}

func (d *dispatcher) Tick() bool {
	c := d.cache
	if c.state != cacheStateRunning {
		return false
	}

	msg := c.topPort.PeekIncoming()
	if msg == nil {
		return false
	}

	req, ok := msg.(*mem.AccessReq)
	if !ok {
		log.Panicf("cannot handle request of type %s", reflect.TypeOf(msg))
	}

	if err := c.checkRequest(req); err != nil {
		return d.reject(req, err)
	}

	if req.NonCacheable {
		return d.bypass(req, false)
	}

	if req.Kind == mem.KindRCW {
		return d.rcw(req)
	}

	tag, setID, _ := c.addressMapper.Decompose(req.Address)

	block, hit := c.directory.Lookup(tag, setID)
	if hit {
		if req.Kind.IsRead() {
			return d.readHit(req, block)
		}

		return d.writeHit(req, block)
	}

	if (req.Kind.IsRead() && !c.config.ReadAllocate) ||
		(req.Kind.IsWrite() && !c.config.WriteAllocate) {
		return d.bypass(req, true)
	}

	return d.miss(req, tag, setID)
}

func (d *dispatcher) reset() {
	d.hasStalledVictim = false
}

// accept removes the request from the top port and starts its task.
func (d *dispatcher) accept(req *mem.AccessReq, step string) {
	c := d.cache

	c.topPort.RetrieveIncoming()
	d.hasStalledVictim = false

	switch {
	case req.Kind.IsRead():
		c.profile.Reads++
	case req.Kind.IsWrite():
		c.profile.Writes++
	}

	tracing.TraceReqReceive(req, c)
	tracing.AddTaskStep(tracing.MsgIDAtReceiver(req, c), c, step)
}

func (d *dispatcher) reject(req *mem.AccessReq, err error) bool {
	c := d.cache
	if !c.topSender.CanSend(1) {
		return false
	}

	log.Printf("%s: %v", c.Name(), err)

	c.topPort.RetrieveIncoming()
	c.profile.ProtocolErrors++
	tracing.TraceReqReceive(req, c)

	rsp := c.upstreamRsp(req, 0, true).
		WithStatus(mem.StatusProtocolError).
		WithErr(err).
		Build()
	c.topSender.Send(rsp)
	tracing.TraceReqComplete(req, c)

	return true
}

func (d *dispatcher) bypass(req *mem.AccessReq, isMiss bool) bool {
	c := d.cache
	if !c.canForward() {
		return false
	}

	d.accept(req, "bypass")
	c.profile.Bypasses++

	if isMiss {
		d.countMiss(req)
	}

	t := c.newTransaction(req, actionBypass)
	c.forward(t, req)

	return true
}

func (d *dispatcher) countMiss(req *mem.AccessReq) {
	if req.Kind.IsRead() {
		d.cache.profile.ReadMisses++
	} else {
		d.cache.profile.WriteMisses++
	}
}

func (d *dispatcher) readHit(req *mem.AccessReq, block *tagging.Block) bool {
	c := d.cache
	if block.IsLocked || !c.bankPipeline.CanAccept() {
		return false
	}

	d.accept(req, "read-hit")
	c.profile.ReadHits++

	block.ReadCount++
	c.directory.Visit(block)

	t := c.newTransaction(req, actionReadHit)
	t.block = block
	c.bankPipeline.Accept(t)

	return true
}

func (d *dispatcher) writeHit(req *mem.AccessReq, block *tagging.Block) bool {
	c := d.cache
	if block.IsLocked || !c.bankPipeline.CanAccept() {
		return false
	}

	d.accept(req, "write-hit")
	c.profile.WriteHits++

	block.IsLocked = true
	c.directory.Visit(block)

	t := c.newTransaction(req, actionWriteHit)
	t.block = block
	c.bankPipeline.Accept(t)

	return true
}

func (d *dispatcher) victim(setID int) (*tagging.Block, bool) {
	c := d.cache

	if d.hasStalledVictim && d.stalledSetID == setID {
		block := c.directory.Sets()[setID].Blocks[d.stalledWayID]
		if block.IsLocked || block.ReadCount > 0 {
			return nil, false
		}

		return block, true
	}

	block, ok := c.directory.FindVictim(setID)
	if !ok {
		d.hasStalledVictim = true
		d.stalledSetID = block.SetID
		d.stalledWayID = block.WayID

		return nil, false
	}

	return block, true
}

func (d *dispatcher) miss(req *mem.AccessReq, tag uint64, setID int) bool {
	c := d.cache
	if !c.canForward() {
		return false
	}

	block, ok := d.victim(setID)
	if !ok {
		return false
	}

	a, step := actionReadMiss, "read-miss"
	if req.Kind.IsWrite() {
		a, step = actionWriteMiss, "write-miss"
	}

	d.accept(req, step)
	d.countMiss(req)

	t := c.newTransaction(req, a)
	t.block = block
	t.tag = tag

	c.directory.Replace(block)
	block.IsLocked = true

	var evict *mem.AccessReq

	if block.IsValid {
		c.profile.Evictions++

		if block.IsDirty {
			evict = c.evictionReq(block)
		}
	}

	c.directory.SetTag(block, tag)
	c.directory.MarkValid(block)
	c.directory.MarkClean(block)

	if evict != nil {
		c.startEviction(t, evict)
	} else {
		c.startFill(t)
	}

	return true
}

func (d *dispatcher) rcw(req *mem.AccessReq) bool {
	c := d.cache

	tag, setID, _ := c.addressMapper.Decompose(req.Address)
	block, hit := c.directory.Lookup(tag, setID)

	if hit && (block.IsLocked || block.ReadCount > 0) {
		return false
	}

	if !c.canForward() {
		return false
	}

	d.accept(req, "rcw")
	c.profile.RCWs++

	t := c.newTransaction(req, actionRCW)

	if hit && block.IsDirty {
		t.block = block
		block.IsLocked = true
		c.profile.Evictions++
		c.startEviction(t, c.evictionReq(block))

		return true
	}

	if hit {
		c.directory.Invalidate(block)
	}

	c.forward(t, req)

	return true
}

// checkRequest returns a *ProtocolError if the cache cannot serve req.
func (c *Comp) checkRequest(req *mem.AccessReq) error {
	violation := func(format string, args ...any) error {
		return &ProtocolError{
			Address:    req.Address,
			Kind:       req.Kind,
			Constraint: fmt.Sprintf(format, args...),
		}
	}

	switch {
	case !req.Kind.IsValid():
		return violation("unsupported transaction kind")
	case c.config.ReadOnly && !req.Kind.IsRead():
		return violation("cache is read-only")
	case c.config.WriteOnly && !req.Kind.IsWrite():
		return violation("cache is write-only")
	case req.AccessByteSize == 0 || req.NumTransfers < 1 ||
		req.AccessByteSize%uint64(req.NumTransfers) != 0:
		return violation("%d bytes cannot be split into %d transfers",
			req.AccessByteSize, req.NumTransfers)
	case req.Kind == mem.KindRCW && req.NumTransfers != 1:
		return violation("RCW must be a single transfer")
	case (req.Kind.IsWrite() || req.Kind == mem.KindRCW) &&
		uint64(len(req.Data)) != req.AccessByteSize:
		return violation("%d bytes of data for a %d-byte write",
			len(req.Data), req.AccessByteSize)
	case req.ByteEnables != nil &&
		uint64(len(req.ByteEnables)) != req.AccessByteSize:
		return violation("%d byte enables for a %d-byte access",
			len(req.ByteEnables), req.AccessByteSize)
	case req.Wrap && !isPowerOfTwo(req.AccessByteSize):
		return violation("wrapping transfer of %d bytes", req.AccessByteSize)
	}

	if req.NonCacheable {
		return nil
	}

	base := req.Address
	if req.Wrap {
		base &^= req.AccessByteSize - 1
	}

	if req.AccessByteSize > c.config.LineByteWidth {
		return violation("%d bytes do not fit in a %d-byte line",
			req.AccessByteSize, c.config.LineByteWidth)
	}

	if !c.addressMapper.SameLine(base, req.AccessByteSize) {
		return violation("%d bytes cross a line boundary", req.AccessByteSize)
	}

	return nil
}
