package cache

import (
	"github.com/sarchlab/linecache/datarecording"
	"github.com/sarchlab/linecache/sim"
	"github.com/sarchlab/linecache/tracing"
)

// Profile holds the counters that a cache keeps. The counters are owned by
// the cache instance and survive resets.
type Profile struct {
	Reads              uint64
	Writes             uint64
	ReadHits           uint64
	ReadMisses         uint64
	WriteHits          uint64
	WriteMisses        uint64
	Bypasses           uint64
	RCWs               uint64
	Evictions          uint64
	WriteBacks         uint64
	Fills              uint64
	ProtocolErrors     uint64
	BackingStoreErrors uint64
}

// HitRate returns the share of cached reads and writes that hit.
func (p Profile) HitRate() float64 {
	hits := p.ReadHits + p.WriteHits
	total := hits + p.ReadMisses + p.WriteMisses

	if total == 0 {
		return 0
	}

	return float64(hits) / float64(total)
}

const profileTableName = "cache_profile"

type profileEntry struct {
	Cache              string
	Time               float64
	Reads              uint64
	Writes             uint64
	ReadHits           uint64
	ReadMisses         uint64
	WriteHits          uint64
	WriteMisses        uint64
	Bypasses           uint64
	RCWs               uint64
	Evictions          uint64
	WriteBacks         uint64
	Fills              uint64
	ProtocolErrors     uint64
	BackingStoreErrors uint64
}

// ProfileRecorder writes snapshots of the cache profile into a data recorder.
// A snapshot is taken every Interval completed requests and once more when
// the simulation ends.
type ProfileRecorder struct {
	cache      *Comp
	timeTeller sim.TimeTeller
	recorder   datarecording.DataRecorder
	interval   int
	numEnded   int
}

// NewProfileRecorder creates a ProfileRecorder and attaches it to the cache
// and the engine.
func NewProfileRecorder(
	c *Comp,
	engine sim.Engine,
	recorder datarecording.DataRecorder,
	interval int,
) *ProfileRecorder {
	if interval < 1 {
		interval = 1
	}

	r := &ProfileRecorder{
		cache:      c,
		timeTeller: engine,
		recorder:   recorder,
		interval:   interval,
	}

	recorder.CreateTable(profileTableName, profileEntry{})
	c.AcceptHook(r)
	engine.RegisterSimulationEndHandler(r)

	return r
}

// Func counts the requests the cache completes.
func (r *ProfileRecorder) Func(ctx sim.HookCtx) {
	if ctx.Pos != tracing.HookPosTaskEnd {
		return
	}

	r.numEnded++
	if r.numEnded%r.interval == 0 {
		r.record(r.timeTeller.CurrentTime())
	}
}

// Handle records the final snapshot.
func (r *ProfileRecorder) Handle(now sim.VTimeInSec) {
	r.record(now)
	r.recorder.Flush()
}

func (r *ProfileRecorder) record(now sim.VTimeInSec) {
	p := r.cache.DumpProfile()

	r.recorder.InsertData(profileTableName, profileEntry{
		Cache:              r.cache.Name(),
		Time:               float64(now),
		Reads:              p.Reads,
		Writes:             p.Writes,
		ReadHits:           p.ReadHits,
		ReadMisses:         p.ReadMisses,
		WriteHits:          p.WriteHits,
		WriteMisses:        p.WriteMisses,
		Bypasses:           p.Bypasses,
		RCWs:               p.RCWs,
		Evictions:          p.Evictions,
		WriteBacks:         p.WriteBacks,
		Fills:              p.Fills,
		ProtocolErrors:     p.ProtocolErrors,
		BackingStoreErrors: p.BackingStoreErrors,
	})
}
