// Package tagging keeps track of which memory lines a cache holds and decides
// which line to replace.
package tagging

import "log"

// A Block is the directory entry of one cache line.
type Block struct {
	Tag          uint64
	SetID        int
	WayID        int
	CacheAddress uint64
	IsValid      bool
	IsDirty      bool

	// IsLocked is set while a transaction owns the line, for example during a
	// fill or a write. Locked lines can neither be hit nor replaced.
	IsLocked bool

	// ReadCount counts the reads that are being served from the line.
	ReadCount int
}

// A Set is a list of blocks where a certain piece memory can be stored at.
type Set struct {
	Blocks []*Block
}

// A Directory records what lines are cached where.
type Directory interface {
	NumSets() int
	NumWays() int
	Sets() []Set

	// Lookup returns the valid block that holds the tag in the set.
	Lookup(tag uint64, setID int) (*Block, bool)

	// Visit notifies the replacement policy that the block is hit.
	Visit(block *Block)

	// FindVictim picks the block to replace in the set. It returns false if
	// the chosen block is in use.
	FindVictim(setID int) (*Block, bool)

	// Replace notifies the replacement policy that the block is filled.
	Replace(block *Block)

	SetTag(block *Block, tag uint64)
	MarkValid(block *Block)
	MarkDirty(block *Block)
	MarkClean(block *Block)
	Invalidate(block *Block)

	// Reset invalidates all the blocks and resets the replacement state.
	Reset()
}

type directoryImpl struct {
	numSets       int
	numWays       int
	lineByteWidth uint64
	sets          []Set
	policy        ReplacementPolicy
}

// NewDirectory creates a directory with all the blocks invalid.
func NewDirectory(
	numSets, numWays int,
	lineByteWidth uint64,
	policy ReplacementPolicy,
) Directory {
	d := &directoryImpl{
		numSets:       numSets,
		numWays:       numWays,
		lineByteWidth: lineByteWidth,
		policy:        policy,
	}

	d.Reset()

	return d
}

func (d *directoryImpl) NumSets() int {
	return d.numSets
}

func (d *directoryImpl) NumWays() int {
	return d.numWays
}

func (d *directoryImpl) Sets() []Set {
	return d.sets
}

func (d *directoryImpl) Lookup(tag uint64, setID int) (*Block, bool) {
	var found *Block

	for _, block := range d.sets[setID].Blocks {
		if !block.IsValid || block.Tag != tag {
			continue
		}

		if found != nil {
			log.Panicf("tag 0x%x is cached in both way %d and way %d of set %d",
				tag, found.WayID, block.WayID, setID)
		}

		found = block
	}

	return found, found != nil
}

func (d *directoryImpl) Visit(block *Block) {
	d.policy.OnHit(block.SetID, block.WayID)
}

func (d *directoryImpl) FindVictim(setID int) (*Block, bool) {
	set := d.sets[setID]

	for _, block := range set.Blocks {
		if !block.IsValid && !block.IsLocked && block.ReadCount == 0 {
			return block, true
		}
	}

	block := set.Blocks[d.policy.Victim(setID)]
	if block.IsLocked || block.ReadCount > 0 {
		return block, false
	}

	return block, true
}

func (d *directoryImpl) Replace(block *Block) {
	d.policy.OnFill(block.SetID, block.WayID)
}

func (d *directoryImpl) SetTag(block *Block, tag uint64) {
	block.Tag = tag
}

func (d *directoryImpl) MarkValid(block *Block) {
	block.IsValid = true
}

func (d *directoryImpl) MarkDirty(block *Block) {
	if !block.IsValid {
		log.Panicf("cannot mark invalid block (%d, %d) dirty",
			block.SetID, block.WayID)
	}

	block.IsDirty = true
}

func (d *directoryImpl) MarkClean(block *Block) {
	block.IsDirty = false
}

func (d *directoryImpl) Invalidate(block *Block) {
	block.IsValid = false
	block.IsDirty = false
	d.policy.OnInvalidate(block.SetID, block.WayID)
}

func (d *directoryImpl) Reset() {
	d.sets = make([]Set, d.numSets)

	for i := 0; i < d.numSets; i++ {
		for j := 0; j < d.numWays; j++ {
			block := &Block{
				SetID:        i,
				WayID:        j,
				CacheAddress: uint64(i*d.numWays+j) * d.lineByteWidth,
			}

			d.sets[i].Blocks = append(d.sets[i].Blocks, block)
		}
	}

	d.policy.Reset()
}
