package idealmemcontroller

import (
	"github.com/sarchlab/linecache/mem"
	"github.com/sarchlab/linecache/sim"
)

// A Builder can build ideal memory controllers.
type Builder struct {
	engine     sim.Engine
	freq       sim.Freq
	latency    int
	width      int
	topBufSize int
	capacity   uint64
	storage    *mem.Storage
	rejectLow  uint64
	rejectHigh uint64
}

// MakeBuilder returns a builder with default parameters.
func MakeBuilder() Builder {
	return Builder{
		freq:       1 * sim.GHz,
		latency:    100,
		width:      1,
		topBufSize: 16,
		capacity:   4 * mem.GB,
	}
}

// WithEngine sets the engine that the controller runs on.
func (b Builder) WithEngine(engine sim.Engine) Builder {
	b.engine = engine
	return b
}

// WithFreq sets the frequency of the controller.
func (b Builder) WithFreq(freq sim.Freq) Builder {
	b.freq = freq
	return b
}

// WithLatency sets the number of cycles before the first transfer of a
// transaction is answered.
func (b Builder) WithLatency(latency int) Builder {
	b.latency = latency
	return b
}

// WithWidth sets how many transactions the controller accepts and how many
// transfers it answers per cycle.
func (b Builder) WithWidth(width int) Builder {
	b.width = width
	return b
}

// WithTopBufSize sets the incoming buffer size of the top port.
func (b Builder) WithTopBufSize(n int) Builder {
	b.topBufSize = n
	return b
}

// WithNewStorage creates a fresh storage of the given capacity.
func (b Builder) WithNewStorage(capacity uint64) Builder {
	b.capacity = capacity
	b.storage = nil

	return b
}

// WithStorage lets the controller serve an existing storage.
func (b Builder) WithStorage(s *mem.Storage) Builder {
	b.storage = s
	return b
}

// WithRejectedRange makes the controller answer REJECTED for any transaction
// touching [low, high).
func (b Builder) WithRejectedRange(low, high uint64) Builder {
	b.rejectLow = low
	b.rejectHigh = high

	return b
}

// Build creates a new controller.
func (b Builder) Build(name string) *Comp {
	c := &Comp{
		Latency:    b.latency,
		Width:      b.width,
		rejectLow:  b.rejectLow,
		rejectHigh: b.rejectHigh,
	}

	c.TickingComponent = sim.NewTickingComponent(name, b.engine, b.freq, c)
	c.AddMiddleware(&memMiddleware{Comp: c})

	c.Storage = b.storage
	if c.Storage == nil {
		c.Storage = mem.NewStorage(b.capacity)
	}

	c.topPort = sim.NewPort(c, b.topBufSize, b.topBufSize, name+".TopPort")
	c.AddPort("Top", c.topPort)

	return c
}
