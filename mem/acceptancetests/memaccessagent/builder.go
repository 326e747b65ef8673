package memaccessagent

import (
	"math/rand"

	"github.com/sarchlab/linecache/sim"
)

// Builder creates MemAccessAgents.
type Builder struct {
	engine     sim.Engine
	freq       sim.Freq
	maxAddress uint64
	writeLeft  int
	readLeft   int
	seed       int64
	bufSize    int
	lowModule  sim.RemotePort
}

// MakeBuilder returns a builder with default parameters. By default the
// agent generates no random traffic.
func MakeBuilder() Builder {
	return Builder{
		freq:       1 * sim.GHz,
		maxAddress: 1024 * 1024,
		seed:       1,
		bufSize:    4,
	}
}

func (b Builder) WithEngine(engine sim.Engine) Builder {
	b.engine = engine
	return b
}

func (b Builder) WithFreq(freq sim.Freq) Builder {
	b.freq = freq
	return b
}

func (b Builder) WithMaxAddress(addr uint64) Builder {
	b.maxAddress = addr
	return b
}

func (b Builder) WithWriteLeft(write int) Builder {
	b.writeLeft = write
	return b
}

func (b Builder) WithReadLeft(read int) Builder {
	b.readLeft = read
	return b
}

// WithSeed sets the seed of the random traffic.
func (b Builder) WithSeed(seed int64) Builder {
	b.seed = seed
	return b
}

func (b Builder) WithBufSize(n int) Builder {
	b.bufSize = n
	return b
}

func (b Builder) WithLowModule(port sim.RemotePort) Builder {
	b.lowModule = port
	return b
}

func (b Builder) Build(name string) *MemAccessAgent {
	agent := new(MemAccessAgent)
	agent.TickingComponent = sim.NewTickingComponent(
		name, b.engine, b.freq, agent)

	agent.MaxAddress = b.maxAddress
	agent.WriteLeft = b.writeLeft
	agent.ReadLeft = b.readLeft
	agent.LowModule = b.lowModule
	agent.KnownMemValue = make(map[uint64][]uint32)
	agent.pending = make(map[string]*Access)
	agent.rand = rand.New(rand.NewSource(b.seed))

	agent.memPort = sim.NewPort(agent, b.bufSize, b.bufSize, name+".MemPort")
	agent.AddPort("Mem", agent.memPort)

	return agent
}
