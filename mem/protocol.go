// Package mem defines the memory-system protocol shared by requesters, caches
// and backing stores, together with the byte storage they keep data in.
package mem

import (
	"fmt"
	"reflect"

	"github.com/sarchlab/linecache/sim"
)

var accessReqByteOverhead = 12
var accessRspByteOverhead = 4

// AccessKind is the kind of a memory transaction.
type AccessKind int

// The kinds of memory transactions.
const (
	KindRead AccessKind = iota
	KindWrite
	KindBlockRead
	KindBlockWrite
	KindRCW
)

var accessKindNames = map[AccessKind]string{
	KindRead:       "READ",
	KindWrite:      "WRITE",
	KindBlockRead:  "BLOCK_READ",
	KindBlockWrite: "BLOCK_WRITE",
	KindRCW:        "RCW",
}

func (k AccessKind) String() string {
	name, ok := accessKindNames[k]
	if !ok {
		return fmt.Sprintf("AccessKind(%d)", int(k))
	}

	return name
}

// IsValid tells if the kind is one of the defined kinds.
func (k AccessKind) IsValid() bool {
	_, ok := accessKindNames[k]
	return ok
}

// IsRead returns true for READ and BLOCK_READ.
func (k AccessKind) IsRead() bool {
	return k == KindRead || k == KindBlockRead
}

// IsWrite returns true for WRITE and BLOCK_WRITE.
func (k AccessKind) IsWrite() bool {
	return k == KindWrite || k == KindBlockWrite
}

// IsBlock returns true for BLOCK_READ and BLOCK_WRITE.
func (k AccessKind) IsBlock() bool {
	return k == KindBlockRead || k == KindBlockWrite
}

// Status is the completion status carried by a response.
type Status int

// Response statuses. OK, Rejected and AddressError are produced by backing
// stores. ProtocolError is produced by components that refuse a malformed
// request.
const (
	StatusOK Status = iota
	StatusRejected
	StatusAddressError
	StatusProtocolError
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusRejected:
		return "REJECTED"
	case StatusAddressError:
		return "ADDRESS_ERROR"
	case StatusProtocolError:
		return "PROTOCOL_ERROR"
	}

	return fmt.Sprintf("Status(%d)", int(s))
}

// An AccessReq is a memory transaction. A transaction moves AccessByteSize
// bytes in NumTransfers equally sized transfers (beats). Every transfer is
// answered by one AccessRsp.
type AccessReq struct {
	sim.MsgMeta

	Kind           AccessKind
	Address        uint64
	AccessByteSize uint64
	NumTransfers   int
	Priority       int

	// Wrap makes the transfers of a block read start at Address and wrap at
	// the AccessByteSize-aligned boundary.
	Wrap bool

	// ByteEnables selects the bytes of Data that are written. A nil slice
	// enables all bytes.
	ByteEnables []bool
	Data        []byte

	NonCacheable  bool
	NonBufferable bool
}

// Meta returns the message meta.
func (r *AccessReq) Meta() *sim.MsgMeta {
	return &r.MsgMeta
}

// Clone returns a copy of the request with a new ID.
func (r *AccessReq) Clone() sim.Msg {
	c := *r
	c.ID = sim.GetIDGenerator().Generate()
	c.ByteEnables = append([]bool(nil), r.ByteEnables...)
	c.Data = append([]byte(nil), r.Data...)

	return &c
}

// TransferByteSize returns the number of bytes moved by each transfer.
func (r *AccessReq) TransferByteSize() uint64 {
	return r.AccessByteSize / uint64(r.NumTransfers)
}

// TransferAddress returns the first address covered by the i-th transfer.
func (r *AccessReq) TransferAddress(i int) uint64 {
	offset := uint64(i) * r.TransferByteSize()

	if !r.Wrap {
		return r.Address + offset
	}

	base := r.Address &^ (r.AccessByteSize - 1)
	start := r.Address - base

	return base + (start+offset)%r.AccessByteSize
}

// ByteEnabled tells if the i-th byte of the request is written.
func (r *AccessReq) ByteEnabled(i int) bool {
	if r.ByteEnables == nil {
		return true
	}

	return r.ByteEnables[i]
}

func (r *AccessReq) String() string {
	return fmt.Sprintf("%s 0x%x (%d bytes, %d transfers)",
		r.Kind, r.Address, r.AccessByteSize, r.NumTransfers)
}

// AccessReqBuilder can build AccessReqs.
type AccessReqBuilder struct {
	src, dst      sim.RemotePort
	kind          AccessKind
	address       uint64
	byteSize      uint64
	numTransfers  int
	priority      int
	wrap          bool
	byteEnables   []bool
	data          []byte
	nonCacheable  bool
	nonBufferable bool
}

// MakeAccessReqBuilder creates a builder for a single-transfer read.
func MakeAccessReqBuilder() AccessReqBuilder {
	return AccessReqBuilder{
		kind:         KindRead,
		numTransfers: 1,
	}
}

// WithSrc sets the source of the request to build.
func (b AccessReqBuilder) WithSrc(src sim.RemotePort) AccessReqBuilder {
	b.src = src
	return b
}

// WithDst sets the destination of the request to build.
func (b AccessReqBuilder) WithDst(dst sim.RemotePort) AccessReqBuilder {
	b.dst = dst
	return b
}

// WithKind sets the kind of the transaction.
func (b AccessReqBuilder) WithKind(kind AccessKind) AccessReqBuilder {
	b.kind = kind
	return b
}

// WithAddress sets the address of the request to build.
func (b AccessReqBuilder) WithAddress(address uint64) AccessReqBuilder {
	b.address = address
	return b
}

// WithByteSize sets the total number of bytes of the transaction.
func (b AccessReqBuilder) WithByteSize(byteSize uint64) AccessReqBuilder {
	b.byteSize = byteSize
	return b
}

// WithNumTransfers sets how many transfers the transaction is split into.
func (b AccessReqBuilder) WithNumTransfers(n int) AccessReqBuilder {
	b.numTransfers = n
	return b
}

// WithPriority sets the priority of the request.
func (b AccessReqBuilder) WithPriority(priority int) AccessReqBuilder {
	b.priority = priority
	return b
}

// WithWrap makes a block transfer wrap at its size-aligned boundary.
func (b AccessReqBuilder) WithWrap() AccessReqBuilder {
	b.wrap = true
	return b
}

// WithData sets the data to write.
func (b AccessReqBuilder) WithData(data []byte) AccessReqBuilder {
	b.data = data
	return b
}

// WithByteEnables sets the byte enables of a write.
func (b AccessReqBuilder) WithByteEnables(enables []bool) AccessReqBuilder {
	b.byteEnables = enables
	return b
}

// NonCacheable marks that the request must not be cached.
func (b AccessReqBuilder) NonCacheable() AccessReqBuilder {
	b.nonCacheable = true
	return b
}

// NonBufferable marks that a write must reach the backing store before it
// completes.
func (b AccessReqBuilder) NonBufferable() AccessReqBuilder {
	b.nonBufferable = true
	return b
}

// Build creates a new AccessReq.
func (b AccessReqBuilder) Build() *AccessReq {
	r := &AccessReq{
		Kind:           b.kind,
		Address:        b.address,
		AccessByteSize: b.byteSize,
		NumTransfers:   b.numTransfers,
		Priority:       b.priority,
		Wrap:           b.wrap,
		ByteEnables:    b.byteEnables,
		Data:           b.data,
		NonCacheable:   b.nonCacheable,
		NonBufferable:  b.nonBufferable,
	}
	r.ID = sim.GetIDGenerator().Generate()
	r.Src = b.src
	r.Dst = b.dst
	r.TrafficClass = reflect.TypeOf(AccessReq{}).String()
	r.TrafficBytes = accessReqByteOverhead

	if b.kind.IsWrite() || b.kind == KindRCW {
		r.TrafficBytes += len(b.data)
	}

	return r
}

// An AccessRsp answers one transfer of an AccessReq.
type AccessRsp struct {
	sim.MsgMeta

	RespondTo     string
	Kind          AccessKind
	Status        Status
	Address       uint64
	TransferIndex int
	LastTransfer  bool
	Data          []byte

	// Err explains a non-OK status, if the responder knows more.
	Err error
}

// Meta returns the message meta.
func (r *AccessRsp) Meta() *sim.MsgMeta {
	return &r.MsgMeta
}

// Clone returns a copy of the response with a new ID.
func (r *AccessRsp) Clone() sim.Msg {
	c := *r
	c.ID = sim.GetIDGenerator().Generate()
	c.Data = append([]byte(nil), r.Data...)

	return &c
}

// GetRspTo returns the ID of the request that the response answers.
func (r *AccessRsp) GetRspTo() string {
	return r.RespondTo
}

// AccessRspBuilder can build AccessRsps.
type AccessRspBuilder struct {
	src, dst      sim.RemotePort
	rspTo         string
	kind          AccessKind
	status        Status
	address       uint64
	transferIndex int
	last          bool
	data          []byte
	err           error
}

// WithSrc sets the source of the response.
func (b AccessRspBuilder) WithSrc(src sim.RemotePort) AccessRspBuilder {
	b.src = src
	return b
}

// WithDst sets the destination of the response.
func (b AccessRspBuilder) WithDst(dst sim.RemotePort) AccessRspBuilder {
	b.dst = dst
	return b
}

// WithRspTo sets the ID of the request being answered.
func (b AccessRspBuilder) WithRspTo(id string) AccessRspBuilder {
	b.rspTo = id
	return b
}

// WithKind sets the kind of the answered transaction.
func (b AccessRspBuilder) WithKind(kind AccessKind) AccessRspBuilder {
	b.kind = kind
	return b
}

// WithStatus sets the status of the response.
func (b AccessRspBuilder) WithStatus(status Status) AccessRspBuilder {
	b.status = status
	return b
}

// WithAddress sets the address of the transfer answered.
func (b AccessRspBuilder) WithAddress(address uint64) AccessRspBuilder {
	b.address = address
	return b
}

// WithTransferIndex sets which transfer of the request is answered.
func (b AccessRspBuilder) WithTransferIndex(i int) AccessRspBuilder {
	b.transferIndex = i
	return b
}

// WithLastTransfer marks the response as the last of the transaction.
func (b AccessRspBuilder) WithLastTransfer(last bool) AccessRspBuilder {
	b.last = last
	return b
}

// WithData sets the data carried by the response.
func (b AccessRspBuilder) WithData(data []byte) AccessRspBuilder {
	b.data = data
	return b
}

// WithErr attaches an explanation for a non-OK status.
func (b AccessRspBuilder) WithErr(err error) AccessRspBuilder {
	b.err = err
	return b
}

// Build creates a new AccessRsp.
func (b AccessRspBuilder) Build() *AccessRsp {
	r := &AccessRsp{
		RespondTo:     b.rspTo,
		Kind:          b.kind,
		Status:        b.status,
		Address:       b.address,
		TransferIndex: b.transferIndex,
		LastTransfer:  b.last,
		Data:          b.data,
		Err:           b.err,
	}
	r.ID = sim.GetIDGenerator().Generate()
	r.Src = b.src
	r.Dst = b.dst
	r.TrafficClass = reflect.TypeOf(AccessRsp{}).String()
	r.TrafficBytes = accessRspByteOverhead + len(b.data)

	return r
}

// DebugAccessor gives untimed access to the content of a component. Peek and
// Poke never generate traffic and never change timing state.
type DebugAccessor interface {
	Peek(address, byteSize uint64) ([]byte, error)
	Poke(address uint64, data []byte) error
}
