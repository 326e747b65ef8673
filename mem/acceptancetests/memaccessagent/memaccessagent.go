// Package memaccessagent provides a component that drives memory systems in
// tests. It either replays scripted transactions or generates random 4-byte
// reads and writes, checking every read against the last value written.
package memaccessagent

import (
	"encoding/binary"
	"fmt"
	"log"
	"math/rand"
	"reflect"

	"github.com/sarchlab/linecache/mem"
	"github.com/sarchlab/linecache/sim"
)

var dumpLog = false

// An Access is a transaction issued by the agent, together with the responses
// that it has received.
type Access struct {
	Req      *mem.AccessReq
	SendTime sim.VTimeInSec
	Rsps     []*mem.AccessRsp
	RspTimes []sim.VTimeInSec
	Done     bool
}

// Data concatenates the data of all responses in arrival order.
func (a *Access) Data() []byte {
	var data []byte
	for _, rsp := range a.Rsps {
		data = append(data, rsp.Data...)
	}

	return data
}

// A MemAccessAgent is a Component that issues memory transactions to a low
// module.
type MemAccessAgent struct {
	*sim.TickingComponent

	LowModule  sim.RemotePort
	MaxAddress uint64

	WriteLeft     int
	ReadLeft      int
	KnownMemValue map[uint64][]uint32
	Mismatches    []string
	ErrorRsps     []*mem.AccessRsp

	// Accesses lists every transaction in issue order.
	Accesses []*Access

	script  []*Access
	pending map[string]*Access
	rand    *rand.Rand
	memPort sim.Port
}

// MemPort returns the port that the agent sends transactions from.
func (a *MemAccessAgent) MemPort() sim.Port {
	return a.memPort
}

// Issue queues a transaction. Transactions are sent in the order they are
// issued, before any random traffic. The source and destination of the
// transaction are filled in by the agent.
func (a *MemAccessAgent) Issue(req *mem.AccessReq) *Access {
	req.Src = a.memPort.AsRemote()
	req.Dst = a.LowModule

	access := &Access{Req: req}
	a.script = append(a.script, access)
	a.Accesses = append(a.Accesses, access)

	a.TickLater()

	return access
}

// NumPending returns the number of transactions that have not completed.
func (a *MemAccessAgent) NumPending() int {
	return len(a.pending) + len(a.script)
}

// Tick updates the states of the agent and issues new transactions.
func (a *MemAccessAgent) Tick() bool {
	madeProgress := false

	madeProgress = a.processRsp() || madeProgress

	if len(a.script) > 0 {
		return a.sendScripted() || madeProgress
	}

	if a.ReadLeft == 0 && a.WriteLeft == 0 {
		return madeProgress
	}

	if a.shouldRead() {
		madeProgress = a.doRead() || madeProgress
	} else {
		madeProgress = a.doWrite() || madeProgress
	}

	return madeProgress
}

func (a *MemAccessAgent) processRsp() bool {
	msg := a.memPort.RetrieveIncoming()
	if msg == nil {
		return false
	}

	rsp, ok := msg.(*mem.AccessRsp)
	if !ok {
		log.Panicf("cannot process message of type %s", reflect.TypeOf(msg))
	}

	access, found := a.pending[rsp.RespondTo]
	if !found {
		log.Panicf("response %s does not match any request", rsp.ID)
	}

	access.Rsps = append(access.Rsps, rsp)
	access.RspTimes = append(access.RspTimes, a.CurrentTime())

	if rsp.Status != mem.StatusOK {
		a.ErrorRsps = append(a.ErrorRsps, rsp)
	}

	if !rsp.LastTransfer {
		return true
	}

	access.Done = true
	delete(a.pending, rsp.RespondTo)

	if dumpLog {
		log.Printf("%.10f, agent, complete, %s\n", a.CurrentTime(), access.Req)
	}

	a.check(access)

	return true
}

func (a *MemAccessAgent) check(access *Access) {
	req := access.Req
	if req.Kind != mem.KindRead || req.AccessByteSize != 4 {
		return
	}

	values, known := a.KnownMemValue[req.Address]
	if !known {
		return
	}

	data := access.Data()
	if len(data) != 4 {
		a.mismatch(fmt.Sprintf("read 0x%x returned %d bytes",
			req.Address, len(data)))

		return
	}

	expected := values[len(values)-1]
	actual := binary.LittleEndian.Uint32(data)

	if actual != expected {
		a.mismatch(fmt.Sprintf("read 0x%x: expected 0x%08x, got 0x%08x",
			req.Address, expected, actual))
	}
}

func (a *MemAccessAgent) mismatch(what string) {
	log.Printf("%.10f, agent, mismatch, %s\n", a.CurrentTime(), what)
	a.Mismatches = append(a.Mismatches, what)
}

func (a *MemAccessAgent) sendScripted() bool {
	access := a.script[0]

	if a.memPort.Send(access.Req) != nil {
		return false
	}

	access.SendTime = a.CurrentTime()
	a.pending[access.Req.ID] = access
	a.script = a.script[1:]

	return true
}

func (a *MemAccessAgent) shouldRead() bool {
	if len(a.KnownMemValue) == 0 {
		return false
	}

	if a.ReadLeft == 0 {
		return false
	}

	if a.WriteLeft == 0 {
		return true
	}

	return a.rand.Float64() > 0.5
}

func (a *MemAccessAgent) send(req *mem.AccessReq) bool {
	if a.memPort.Send(req) != nil {
		return false
	}

	access := &Access{Req: req, SendTime: a.CurrentTime()}
	a.pending[req.ID] = access

	return true
}

func (a *MemAccessAgent) doRead() bool {
	address := a.randomReadAddress()

	if a.isAddressInPendingReq(address) {
		return false
	}

	req := mem.MakeAccessReqBuilder().
		WithSrc(a.memPort.AsRemote()).
		WithDst(a.LowModule).
		WithKind(mem.KindRead).
		WithAddress(address).
		WithByteSize(4).
		Build()

	if !a.send(req) {
		return false
	}

	a.ReadLeft--

	if dumpLog {
		log.Printf("%.10f, agent, read, 0x%X\n", a.CurrentTime(), address)
	}

	return true
}

func (a *MemAccessAgent) randomReadAddress() uint64 {
	for {
		addr := a.rand.Uint64() % (a.MaxAddress / 4) * 4
		if _, written := a.KnownMemValue[addr]; written {
			return addr
		}
	}
}

func (a *MemAccessAgent) isAddressInPendingReq(addr uint64) bool {
	for _, access := range a.pending {
		if access.Req.Address == addr {
			return true
		}
	}

	return false
}

func uint32ToBytes(data uint32) []byte {
	bytes := make([]byte, 4)
	binary.LittleEndian.PutUint32(bytes, data)

	return bytes
}

func (a *MemAccessAgent) doWrite() bool {
	address := a.rand.Uint64() % (a.MaxAddress / 4) * 4
	data := a.rand.Uint32()

	if a.isAddressInPendingReq(address) {
		return false
	}

	req := mem.MakeAccessReqBuilder().
		WithSrc(a.memPort.AsRemote()).
		WithDst(a.LowModule).
		WithKind(mem.KindWrite).
		WithAddress(address).
		WithByteSize(4).
		WithData(uint32ToBytes(data)).
		Build()

	if !a.send(req) {
		return false
	}

	a.WriteLeft--
	a.addKnownValue(address, data)

	if dumpLog {
		log.Printf("%.10f, agent, write, 0x%X, %v\n",
			a.CurrentTime(), address, req.Data)
	}

	return true
}

func (a *MemAccessAgent) addKnownValue(address uint64, data uint32) {
	a.KnownMemValue[address] = append(a.KnownMemValue[address], data)
}
