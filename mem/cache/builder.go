package cache

import (
	"github.com/sarchlab/linecache/mem"
	"github.com/sarchlab/linecache/mem/cache/internal/mshr"
	"github.com/sarchlab/linecache/mem/cache/internal/tagging"
	"github.com/sarchlab/linecache/pipelining"
	"github.com/sarchlab/linecache/sim"
)

// A Builder can build caches.
type Builder struct {
	engine          sim.Engine
	freq            sim.Freq
	config          Config
	numReqPerCycle  int
	bufSize         int
	lowModuleFinder mem.AddressToPortMapper
	backingStore    mem.DebugAccessor
}

// MakeBuilder returns a Builder with the default configuration.
func MakeBuilder() Builder {
	return Builder{
		freq:           1 * sim.GHz,
		config:         DefaultConfig(),
		numReqPerCycle: 1,
		bufSize:        16,
	}
}

// WithEngine sets the event-driven simulation engine that the cache uses.
func (b Builder) WithEngine(engine sim.Engine) Builder {
	b.engine = engine
	return b
}

// WithFreq sets the frequency that the cache works at.
func (b Builder) WithFreq(freq sim.Freq) Builder {
	b.freq = freq
	return b
}

// WithConfig replaces the whole cache configuration.
func (b Builder) WithConfig(config Config) Builder {
	b.config = config
	return b
}

// WithByteSize sets the capacity of the cache.
func (b Builder) WithByteSize(byteSize uint64) Builder {
	b.config.ByteSize = byteSize
	return b
}

// WithLineByteWidth sets the size of a cache line.
func (b Builder) WithLineByteWidth(n uint64) Builder {
	b.config.LineByteWidth = n
	return b
}

// WithAccessByteWidth sets the width of one transfer to the backing store.
func (b Builder) WithAccessByteWidth(n uint64) Builder {
	b.config.AccessByteWidth = n
	return b
}

// WithNumWays sets the associativity. 0 makes the cache fully associative.
func (b Builder) WithNumWays(n int) Builder {
	b.config.NumWays = n
	return b
}

// WithPolicy sets the replacement policy.
func (b Builder) WithPolicy(p Policy) Builder {
	b.config.Policy = p
	return b
}

// WithRandomSeed sets the seed of the random replacement policy.
func (b Builder) WithRandomSeed(seed uint32) Builder {
	b.config.RandomSeed = seed
	return b
}

// WithReadAllocate sets if read misses allocate lines.
func (b Builder) WithReadAllocate(v bool) Builder {
	b.config.ReadAllocate = v
	return b
}

// WithWriteAllocate sets if write misses allocate lines.
func (b Builder) WithWriteAllocate(v bool) Builder {
	b.config.WriteAllocate = v
	return b
}

// WithWriteBack selects write-back (true) or write-through (false).
func (b Builder) WithWriteBack(v bool) Builder {
	b.config.WriteBack = v
	return b
}

// WithReadOnly makes the cache reject writes.
func (b Builder) WithReadOnly(v bool) Builder {
	b.config.ReadOnly = v
	return b
}

// WithWriteOnly makes the cache reject reads.
func (b Builder) WithWriteOnly(v bool) Builder {
	b.config.WriteOnly = v
	return b
}

// WithHitLatency sets the number of cycles a hit spends in the data store.
func (b Builder) WithHitLatency(n int) Builder {
	b.config.HitLatency = n
	return b
}

// WithNumMSHREntry sets the number of backing-store requests that can be
// outstanding at the same time.
func (b Builder) WithNumMSHREntry(n int) Builder {
	b.config.NumMSHREntry = n
	return b
}

// WithNumReqPerCycle sets how many messages each stage can handle per cycle.
func (b Builder) WithNumReqPerCycle(n int) Builder {
	b.numReqPerCycle = n
	return b
}

// WithBufSize sets the size of the port and sender buffers.
func (b Builder) WithBufSize(n int) Builder {
	b.bufSize = n
	return b
}

// WithAddressToPortMapper sets how the cache finds the backing store port
// for an address.
func (b Builder) WithAddressToPortMapper(m mem.AddressToPortMapper) Builder {
	b.lowModuleFinder = m
	return b
}

// WithLowModule sends all the backing-store requests to the given port.
func (b Builder) WithLowModule(port sim.RemotePort) Builder {
	b.lowModuleFinder = &mem.SinglePortMapper{Port: port}
	return b
}

// WithBackingStore sets the debug accessor that Peek and Poke use on a miss.
func (b Builder) WithBackingStore(store mem.DebugAccessor) Builder {
	b.backingStore = store
	return b
}

// Build creates a cache. It fails with a *ConfigError if the configuration is
// invalid.
func (b Builder) Build(name string) (*Comp, error) {
	config, err := b.config.Validate()
	if err != nil {
		return nil, err
	}

	c := &Comp{
		config:          config,
		lowModuleFinder: b.lowModuleFinder,
		backingStore:    b.backingStore,
		numReqPerCycle:  b.numReqPerCycle,
		discarded:       make(map[string]bool),
	}
	c.TickingComponent = sim.NewTickingComponent(name, b.engine, b.freq, c)

	numSets := config.NumSets()
	c.addressMapper = tagging.NewAddressMapper(config.LineByteWidth, numSets)
	policy := tagging.NewReplacementPolicy(
		config.Policy, numSets, config.NumWays, config.RandomSeed)
	c.directory = tagging.NewDirectory(
		numSets, config.NumWays, config.LineByteWidth, policy)
	c.dataStore = mem.NewStorage(config.ByteSize)
	c.mshr = mshr.NewMSHR[*transaction](config.NumMSHREntry)

	b.createPorts(name, c)
	b.createPipeline(name, c)

	c.dispatcher = &dispatcher{cache: c}
	c.bankStage = &bankStage{cache: c}
	c.bottomParser = &bottomParser{cache: c}
	c.controlStage = &controlStage{cache: c}

	return c, nil
}

func (b Builder) createPorts(name string, c *Comp) {
	newPort := func(elem string) sim.Port {
		return sim.NewPort(c, b.bufSize, b.bufSize, sim.BuildName(name, elem))
	}

	c.topPort = newPort("TopPort")
	c.AddPort("Top", c.topPort)

	c.bottomPort = newPort("BottomPort")
	c.AddPort("Bottom", c.bottomPort)

	c.controlPort = newPort("ControlPort")
	c.AddPort("Control", c.controlPort)

	// A fill may release a whole line of single-byte beats plus an error
	// response in one step.
	topBufSize := b.bufSize
	if need := int(c.config.LineByteWidth) + 1; topBufSize < need {
		topBufSize = need
	}

	c.topSender = sim.NewBufferedSender(c.topPort,
		sim.NewBuffer(sim.BuildName(name, "TopSenderBuffer"), topBufSize))
	c.bottomSender = sim.NewBufferedSender(c.bottomPort,
		sim.NewBuffer(sim.BuildName(name, "BottomSenderBuffer"), b.bufSize))
}

func (b Builder) createPipeline(name string, c *Comp) {
	c.bankPostBuf = sim.NewBuffer(
		sim.BuildName(name, "BankPostPipelineBuffer"), 1)
	c.bankPipeline = pipelining.MakeBuilder().
		WithPipelineWidth(1).
		WithNumStage(c.config.HitLatency).
		WithCyclePerStage(1).
		WithPostPipelineBuffer(c.bankPostBuf).
		Build(sim.BuildName(name, "BankPipeline"))
}
