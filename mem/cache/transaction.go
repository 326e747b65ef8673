package cache

import (
	"github.com/sarchlab/linecache/mem"
	"github.com/sarchlab/linecache/mem/cache/internal/tagging"
)

type action int

const (
	actionBypass action = iota
	actionReadHit
	actionWriteHit
	actionReadMiss
	actionWriteMiss
	actionRCW
	actionFlush
)

type phase int

const (
	phaseDispatched phase = iota
	phaseEvicting
	phaseFilling
	phaseForwarding
)

type transaction struct {
	id     string
	action action
	phase  phase

	req   *mem.AccessReq
	flush *FlushReq

	block *tagging.Block
	tag   uint64

	evictReq   *mem.AccessReq
	fetchReq   *mem.AccessReq
	forwardReq *mem.AccessReq

	// fillArrived marks the access-width beats of the line that hold data.
	fillArrived []bool

	// nextBeat is the next upstream transfer to deliver during a read miss.
	nextBeat int

	failStatus mem.Status
	failErr    error
}

func (t *transaction) TaskID() string {
	return "cache-trans-" + t.id
}

func (t *transaction) failed() bool {
	return t.failStatus != mem.StatusOK
}

func (t *transaction) recordFailure(rsp *mem.AccessRsp) {
	if rsp.Status == mem.StatusOK || t.failed() {
		return
	}

	t.failStatus = rsp.Status
	t.failErr = rsp.Err
}

func (t *transaction) upstreamDone() bool {
	return t.nextBeat >= t.req.NumTransfers
}
