package cache

import (
	"github.com/sarchlab/linecache/sim"
)

// FlushReq asks a cache to write all its dirty lines back. If InvalidateAll
// is set, all the lines are invalidated after the write-back; otherwise the
// clean lines stay cached.
type FlushReq struct {
	sim.MsgMeta
	InvalidateAll      bool
	PauseAfterFlushing bool
}

// Meta returns the meta data associated with the message.
func (r *FlushReq) Meta() *sim.MsgMeta {
	return &r.MsgMeta
}

// Clone returns cloned FlushReq with different ID
func (r *FlushReq) Clone() sim.Msg {
	c := *r
	c.ID = sim.GetIDGenerator().Generate()

	return &c
}

// FlushReqBuilder can build flush requests.
type FlushReqBuilder struct {
	src, dst           sim.RemotePort
	invalidateAll      bool
	pauseAfterFlushing bool
}

// WithSrc sets the source of the request to build.
func (b FlushReqBuilder) WithSrc(src sim.RemotePort) FlushReqBuilder {
	b.src = src
	return b
}

// WithDst sets the destination of the request to build.
func (b FlushReqBuilder) WithDst(dst sim.RemotePort) FlushReqBuilder {
	b.dst = dst
	return b
}

// InvalidateAll makes the flush invalidate every line.
func (b FlushReqBuilder) InvalidateAll() FlushReqBuilder {
	b.invalidateAll = true
	return b
}

// PauseAfterFlushing keeps the cache paused until it receives a RestartReq.
func (b FlushReqBuilder) PauseAfterFlushing() FlushReqBuilder {
	b.pauseAfterFlushing = true
	return b
}

// Build creates a new FlushReq.
func (b FlushReqBuilder) Build() *FlushReq {
	r := &FlushReq{
		InvalidateAll:      b.invalidateAll,
		PauseAfterFlushing: b.pauseAfterFlushing,
	}
	r.ID = sim.GetIDGenerator().Generate()
	r.Src = b.src
	r.Dst = b.dst

	return r
}

// FlushRsp is the response to a FlushReq. NumFlushed counts the dirty lines
// written back.
type FlushRsp struct {
	sim.MsgMeta
	RspTo      string
	NumFlushed int
}

// Meta returns the meta data associated with the message.
func (r *FlushRsp) Meta() *sim.MsgMeta {
	return &r.MsgMeta
}

// Clone returns cloned FlushRsp with different ID
func (r *FlushRsp) Clone() sim.Msg {
	c := *r
	c.ID = sim.GetIDGenerator().Generate()

	return &c
}

// GetRspTo returns the ID of the request that the response responds to.
func (r *FlushRsp) GetRspTo() string {
	return r.RspTo
}

// RestartReq resumes a cache paused after flushing.
type RestartReq struct {
	sim.MsgMeta
}

// Meta returns the meta data associated with the message.
func (r *RestartReq) Meta() *sim.MsgMeta {
	return &r.MsgMeta
}

// Clone returns cloned RestartReq with different ID
func (r *RestartReq) Clone() sim.Msg {
	c := *r
	c.ID = sim.GetIDGenerator().Generate()

	return &c
}

// RestartRsp is the response to a RestartReq.
type RestartRsp struct {
	sim.MsgMeta
	RspTo string
}

// Meta returns the meta data associated with the message.
func (r *RestartRsp) Meta() *sim.MsgMeta {
	return &r.MsgMeta
}

// Clone returns cloned RestartRsp with different ID
func (r *RestartRsp) Clone() sim.Msg {
	c := *r
	c.ID = sim.GetIDGenerator().Generate()

	return &c
}

// GetRspTo returns the ID of the request that the response responds to.
func (r *RestartRsp) GetRspTo() string {
	return r.RspTo
}

// ResetReq aborts all the transactions in flight. A hard reset also
// invalidates every line, dropping dirty data. A soft reset keeps the lines.
type ResetReq struct {
	sim.MsgMeta
	Hard bool
}

// Meta returns the meta data associated with the message.
func (r *ResetReq) Meta() *sim.MsgMeta {
	return &r.MsgMeta
}

// Clone returns cloned ResetReq with different ID
func (r *ResetReq) Clone() sim.Msg {
	c := *r
	c.ID = sim.GetIDGenerator().Generate()

	return &c
}

// ResetRsp is the response to a ResetReq. NumAborted counts the
// transactions that were dropped.
type ResetRsp struct {
	sim.MsgMeta
	RspTo      string
	NumAborted int
}

// Meta returns the meta data associated with the message.
func (r *ResetRsp) Meta() *sim.MsgMeta {
	return &r.MsgMeta
}

// Clone returns cloned ResetRsp with different ID
func (r *ResetRsp) Clone() sim.Msg {
	c := *r
	c.ID = sim.GetIDGenerator().Generate()

	return &c
}

// GetRspTo returns the ID of the request that the response responds to.
func (r *ResetRsp) GetRspTo() string {
	return r.RspTo
}

func newControlMeta(src, dst sim.RemotePort) sim.MsgMeta {
	return sim.MsgMeta{
		ID:  sim.GetIDGenerator().Generate(),
		Src: src,
		Dst: dst,
	}
}

// NewRestartReq creates a RestartReq.
func NewRestartReq(src, dst sim.RemotePort) *RestartReq {
	return &RestartReq{MsgMeta: newControlMeta(src, dst)}
}

// NewResetReq creates a ResetReq.
func NewResetReq(src, dst sim.RemotePort, hard bool) *ResetReq {
	return &ResetReq{MsgMeta: newControlMeta(src, dst), Hard: hard}
}
