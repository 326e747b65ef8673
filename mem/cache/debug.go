package cache

import (
	"errors"

	"github.com/sarchlab/linecache/mem"
	"github.com/sarchlab/linecache/mem/cache/internal/tagging"
)

// ErrNoBackingStore is returned by Peek and Poke on a miss when the cache has
// no debug access to its backing store.
var ErrNoBackingStore = errors.New("no backing store for debug access")

func (c *Comp) checkDebugAccess(
	kind mem.AccessKind,
	address, byteSize uint64,
) error {
	if byteSize == 0 || !c.addressMapper.SameLine(address, byteSize) {
		return &ProtocolError{
			Address:    address,
			Kind:       kind,
			Constraint: "debug access must stay within one line",
		}
	}

	return nil
}

// debugLookup finds the line that holds address. A line that is still being
// filled does not count as a hit.
func (c *Comp) debugLookup(address uint64) (*tagging.Block, bool) {
	tag, setID, _ := c.addressMapper.Decompose(address)

	block, hit := c.directory.Lookup(tag, setID)
	if !hit {
		return nil, false
	}

	if e, busy := c.mshr.LookupLine(block.SetID, block.WayID); busy {
		a := e.Origin.action
		if a == actionReadMiss || a == actionWriteMiss {
			return nil, false
		}
	}

	return block, true
}

// Peek returns the current value of memory without timing or side effects.
// Lines held by the cache are read from the data store.
func (c *Comp) Peek(address, byteSize uint64) ([]byte, error) {
	if err := c.checkDebugAccess(mem.KindRead, address, byteSize); err != nil {
		return nil, err
	}

	if block, hit := c.debugLookup(address); hit {
		return c.readBlock(block, address, byteSize), nil
	}

	if c.backingStore == nil {
		return nil, ErrNoBackingStore
	}

	return c.backingStore.Peek(address, byteSize)
}

// Poke overwrites memory without timing. A cached line is updated in place;
// in write-back mode it becomes dirty, in write-through mode the backing
// store is updated as well.
func (c *Comp) Poke(address uint64, data []byte) error {
	byteSize := uint64(len(data))
	if err := c.checkDebugAccess(mem.KindWrite, address, byteSize); err != nil {
		return err
	}

	block, hit := c.debugLookup(address)

	if !hit || !c.config.WriteBack {
		if c.backingStore == nil {
			return ErrNoBackingStore
		}

		if err := c.backingStore.Poke(address, data); err != nil {
			return err
		}
	}

	if !hit {
		return nil
	}

	err := c.dataStore.Write(block.CacheAddress+c.lineOffset(address), data)
	if err != nil {
		return err
	}

	if c.config.WriteBack {
		c.directory.MarkDirty(block)
	}

	return nil
}
