package sim

import (
	"log"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/rs/xid"
)

// IDGenerator can generate IDs
type IDGenerator interface {
	Generate() string
}

var (
	idGenLock sync.Mutex
	idGen     atomic.Pointer[IDGenerator]
)

// UseSequentialIDGenerator makes message and event IDs increasing integers.
// This is the default. IDs are reproducible from run to run.
func UseSequentialIDGenerator() {
	setIDGenerator(&sequentialIDGenerator{})
}

// UseParallelIDGenerator makes IDs globally unique xids. The IDs are no
// longer reproducible.
func UseParallelIDGenerator() {
	setIDGenerator(xidGenerator{})
}

func setIDGenerator(g IDGenerator) {
	idGenLock.Lock()
	defer idGenLock.Unlock()

	if idGen.Load() != nil {
		log.Panic("cannot change id generator type after using it")
	}

	idGen.Store(&g)
}

// GetIDGenerator returns the ID generator in use, picking the sequential one
// if none is selected yet.
func GetIDGenerator() IDGenerator {
	if g := idGen.Load(); g != nil {
		return *g
	}

	idGenLock.Lock()
	defer idGenLock.Unlock()

	if idGen.Load() == nil {
		var g IDGenerator = &sequentialIDGenerator{}
		idGen.Store(&g)
	}

	return *idGen.Load()
}

type sequentialIDGenerator struct {
	last atomic.Uint64
}

func (g *sequentialIDGenerator) Generate() string {
	return strconv.FormatUint(g.last.Add(1), 10)
}

type xidGenerator struct{}

func (xidGenerator) Generate() string {
	return xid.New().String()
}
