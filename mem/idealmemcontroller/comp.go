// Package idealmemcontroller provides a backing store that serves every
// transaction after a fixed latency and streams block transfers one beat per
// cycle.
package idealmemcontroller

import (
	"errors"
	"fmt"
	"log"
	"reflect"

	"github.com/sarchlab/linecache/mem"
	"github.com/sarchlab/linecache/sim"
	"github.com/sarchlab/linecache/tracing"
)

// ErrRejected is attached to responses for addresses that the controller is
// configured to reject.
var ErrRejected = errors.New("access rejected by backing store")

type wakeupEvent struct {
	*sim.EventBase
}

type pendingRsp struct {
	readyTime sim.VTimeInSec
	req       *mem.AccessReq
	rsp       *mem.AccessRsp
}

// Comp is an ideal memory controller. Transactions take effect on the storage
// in arrival order, so the storage always reflects every accepted write.
// Responses leave after Latency cycles in arrival order, at most Width beats
// per cycle.
type Comp struct {
	*sim.TickingComponent
	sim.MiddlewareHolder

	topPort sim.Port
	Storage *mem.Storage
	Latency int
	Width   int

	rejectLow, rejectHigh uint64

	pending []pendingRsp
}

// Handle wakes the controller up when a response becomes ready.
func (c *Comp) Handle(e sim.Event) error {
	switch e := e.(type) {
	case *wakeupEvent:
		c.TickNow()
	case sim.TickEvent:
		return c.TickingComponent.Handle(e)
	default:
		log.Panicf("cannot handle event of %s", reflect.TypeOf(e))
	}

	return nil
}

// Tick runs the middlewares.
func (c *Comp) Tick() bool {
	return c.MiddlewareHolder.Tick()
}

// TopPort returns the port that receives transactions.
func (c *Comp) TopPort() sim.Port {
	return c.topPort
}

// NumPendingResponses returns the number of beats waiting to be sent.
func (c *Comp) NumPendingResponses() int {
	return len(c.pending)
}

// Peek returns the stored bytes without timing.
func (c *Comp) Peek(address, byteSize uint64) ([]byte, error) {
	return c.Storage.Read(address, byteSize)
}

// Poke overwrites the stored bytes without timing.
func (c *Comp) Poke(address uint64, data []byte) error {
	return c.Storage.Write(address, data)
}

func (c *Comp) isRejected(address, byteSize uint64) bool {
	if c.rejectHigh <= c.rejectLow {
		return false
	}

	return address < c.rejectHigh && address+byteSize > c.rejectLow
}

type memMiddleware struct {
	*Comp
}

func (m *memMiddleware) Tick() bool {
	madeProgress := false

	madeProgress = m.respond() || madeProgress
	madeProgress = m.takeNewReqs() || madeProgress

	return madeProgress
}

func (m *memMiddleware) takeNewReqs() bool {
	madeProgress := false

	for i := 0; i < m.Width; i++ {
		msg := m.topPort.RetrieveIncoming()
		if msg == nil {
			break
		}

		req, ok := msg.(*mem.AccessReq)
		if !ok {
			log.Panicf("cannot handle request of type %s", reflect.TypeOf(msg))
		}

		tracing.TraceReqReceive(req, m.Comp)
		m.serve(req)

		madeProgress = true
	}

	return madeProgress
}

func (m *memMiddleware) serve(req *mem.AccessReq) {
	status, err := m.check(req)

	var rsps []*mem.AccessRsp

	switch {
	case status != mem.StatusOK:
		rsps = m.errorRsps(req, status, err)
	case req.Kind.IsRead():
		rsps = m.read(req)
	case req.Kind.IsWrite():
		rsps = m.write(req)
	case req.Kind == mem.KindRCW:
		rsps = m.readModifyWrite(req)
	}

	m.enqueue(req, rsps)
}

func (m *memMiddleware) check(req *mem.AccessReq) (mem.Status, error) {
	if !req.Kind.IsValid() || req.NumTransfers < 1 ||
		req.AccessByteSize%uint64(req.NumTransfers) != 0 {
		return mem.StatusProtocolError,
			fmt.Errorf("malformed transaction %s", req)
	}

	if (req.Kind.IsWrite() || req.Kind == mem.KindRCW) &&
		uint64(len(req.Data)) != req.AccessByteSize {
		return mem.StatusProtocolError,
			fmt.Errorf("%s carries %d bytes of data", req, len(req.Data))
	}

	if req.ByteEnables != nil &&
		uint64(len(req.ByteEnables)) != req.AccessByteSize {
		return mem.StatusProtocolError,
			fmt.Errorf("%s carries %d byte enables", req, len(req.ByteEnables))
	}

	base := req.Address
	if req.Wrap {
		base = req.Address &^ (req.AccessByteSize - 1)
	}

	if base >= m.Storage.Capacity() ||
		req.AccessByteSize > m.Storage.Capacity()-base {
		return mem.StatusAddressError,
			fmt.Errorf("%w: %s", mem.ErrAddressOutOfRange, req)
	}

	if m.isRejected(base, req.AccessByteSize) {
		return mem.StatusRejected, fmt.Errorf("%w: %s", ErrRejected, req)
	}

	return mem.StatusOK, nil
}

func (m *memMiddleware) rspBuilder(req *mem.AccessReq, i int) mem.AccessRspBuilder {
	return mem.AccessRspBuilder{}.
		WithSrc(m.topPort.AsRemote()).
		WithDst(req.Src).
		WithRspTo(req.ID).
		WithKind(req.Kind).
		WithAddress(req.TransferAddress(i)).
		WithTransferIndex(i).
		WithLastTransfer(i == req.NumTransfers-1)
}

func (m *memMiddleware) errorRsps(
	req *mem.AccessReq,
	status mem.Status,
	err error,
) []*mem.AccessRsp {
	rsps := make([]*mem.AccessRsp, 0, req.NumTransfers)

	for i := 0; i < req.NumTransfers; i++ {
		rsps = append(rsps,
			m.rspBuilder(req, i).WithStatus(status).WithErr(err).Build())
	}

	return rsps
}

func (m *memMiddleware) read(req *mem.AccessReq) []*mem.AccessRsp {
	w := req.TransferByteSize()
	rsps := make([]*mem.AccessRsp, 0, req.NumTransfers)

	for i := 0; i < req.NumTransfers; i++ {
		data, err := m.Storage.Read(req.TransferAddress(i), w)
		if err != nil {
			log.Panic(err)
		}

		rsps = append(rsps, m.rspBuilder(req, i).WithData(data).Build())
	}

	return rsps
}

func (m *memMiddleware) write(req *mem.AccessReq) []*mem.AccessRsp {
	w := req.TransferByteSize()
	rsps := make([]*mem.AccessRsp, 0, req.NumTransfers)

	for i := 0; i < req.NumTransfers; i++ {
		lo, hi := uint64(i)*w, uint64(i+1)*w

		var mask []bool
		if req.ByteEnables != nil {
			mask = req.ByteEnables[lo:hi]
		}

		err := m.Storage.WriteMasked(
			req.TransferAddress(i), req.Data[lo:hi], mask)
		if err != nil {
			log.Panic(err)
		}

		rsps = append(rsps, m.rspBuilder(req, i).Build())
	}

	return rsps
}

func (m *memMiddleware) readModifyWrite(req *mem.AccessReq) []*mem.AccessRsp {
	old, err := m.Storage.Read(req.Address, req.AccessByteSize)
	if err != nil {
		log.Panic(err)
	}

	err = m.Storage.WriteMasked(req.Address, req.Data, req.ByteEnables)
	if err != nil {
		log.Panic(err)
	}

	rsp := mem.AccessRspBuilder{}.
		WithSrc(m.topPort.AsRemote()).
		WithDst(req.Src).
		WithRspTo(req.ID).
		WithKind(req.Kind).
		WithAddress(req.Address).
		WithLastTransfer(true).
		WithData(old).
		Build()

	return []*mem.AccessRsp{rsp}
}

func (m *memMiddleware) enqueue(req *mem.AccessReq, rsps []*mem.AccessRsp) {
	now := m.CurrentTime()

	for i, rsp := range rsps {
		readyTime := m.Freq.NCyclesLater(m.Latency+i, now)
		m.pending = append(m.pending, pendingRsp{
			readyTime: readyTime,
			req:       req,
			rsp:       rsp,
		})

		if i == 0 {
			m.Engine.Schedule(&wakeupEvent{
				EventBase: sim.NewEventBase(readyTime, m.Comp),
			})
		}
	}
}

func (m *memMiddleware) respond() bool {
	madeProgress := false
	now := m.CurrentTime()

	for i := 0; i < m.Width; i++ {
		if len(m.pending) == 0 {
			break
		}

		head := m.pending[0]
		if head.readyTime > now {
			break
		}

		if m.topPort.Send(head.rsp) != nil {
			break
		}

		if head.rsp.LastTransfer {
			tracing.TraceReqComplete(head.req, m.Comp)
		}

		m.pending = m.pending[1:]
		madeProgress = true
	}

	return madeProgress
}
