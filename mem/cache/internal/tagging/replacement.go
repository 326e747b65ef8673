package tagging

import (
	"fmt"
	"strings"
)

// A ReplacementPolicy decides which way of a set to replace. OnHit and OnFill
// are the only points where a policy updates its bookkeeping for a way that
// holds data.
type ReplacementPolicy interface {
	// Victim selects the way to replace in the set.
	Victim(setID int) int

	OnHit(setID, wayID int)
	OnFill(setID, wayID int)

	// OnInvalidate makes the way the preferred victim of the set.
	OnInvalidate(setID, wayID int)

	Reset()
}

// PolicyKind selects a replacement policy.
type PolicyKind int

// The supported replacement policies.
const (
	PolicyRoundRobin PolicyKind = iota
	PolicyLRU
	PolicyRandom
)

func (k PolicyKind) String() string {
	switch k {
	case PolicyRoundRobin:
		return "RR"
	case PolicyLRU:
		return "LRU"
	case PolicyRandom:
		return "RANDOM"
	}

	return fmt.Sprintf("PolicyKind(%d)", int(k))
}

// ParsePolicyKind converts "RR", "LRU" or "RANDOM" (case-insensitive) to a
// PolicyKind.
func ParsePolicyKind(s string) (PolicyKind, bool) {
	switch strings.ToUpper(s) {
	case "RR", "ROUNDROBIN", "ROUND_ROBIN":
		return PolicyRoundRobin, true
	case "LRU":
		return PolicyLRU, true
	case "RANDOM":
		return PolicyRandom, true
	}

	return 0, false
}

// NewReplacementPolicy creates a policy of the given kind. The seed is only
// used by the random policy.
func NewReplacementPolicy(
	kind PolicyKind,
	numSets, numWays int,
	seed uint32,
) ReplacementPolicy {
	switch kind {
	case PolicyRoundRobin:
		return NewRoundRobin(numSets, numWays)
	case PolicyLRU:
		return NewLRU(numSets, numWays)
	case PolicyRandom:
		return NewRandom(numWays, seed)
	}

	panic(fmt.Sprintf("unknown replacement policy %s", kind))
}

// RoundRobin keeps a one-bit flag per way. The victim is the first way whose
// flag differs from the flag of way 0, or way 0 if all the flags agree.
// Filling a way flips its flag, so the ways are replaced in order.
type RoundRobin struct {
	numWays int
	flags   [][]bool
}

// NewRoundRobin creates a round-robin policy.
func NewRoundRobin(numSets, numWays int) *RoundRobin {
	p := &RoundRobin{numWays: numWays, flags: make([][]bool, numSets)}
	p.Reset()

	return p
}

func (p *RoundRobin) Victim(setID int) int {
	flags := p.flags[setID]

	for way := 1; way < p.numWays; way++ {
		if flags[way] != flags[0] {
			return way
		}
	}

	return 0
}

func (p *RoundRobin) OnHit(_, _ int) {}

func (p *RoundRobin) OnFill(setID, wayID int) {
	p.flags[setID][wayID] = !p.flags[setID][wayID]
}

func (p *RoundRobin) OnInvalidate(_, _ int) {}

func (p *RoundRobin) Reset() {
	for i := range p.flags {
		p.flags[i] = make([]bool, p.numWays)
	}
}

// Flags returns a copy of the flags of a set.
func (p *RoundRobin) Flags(setID int) []bool {
	return append([]bool(nil), p.flags[setID]...)
}

// LRU ranks the ways of every set from the most recently used (rank 0) to the
// least recently used (rank numWays-1).
type LRU struct {
	numWays int
	ranks   [][]int
}

// NewLRU creates an LRU policy.
func NewLRU(numSets, numWays int) *LRU {
	p := &LRU{numWays: numWays, ranks: make([][]int, numSets)}
	p.Reset()

	return p
}

func (p *LRU) Victim(setID int) int {
	for way, rank := range p.ranks[setID] {
		if rank == p.numWays-1 {
			return way
		}
	}

	panic("ranks are not a permutation")
}

func (p *LRU) OnHit(setID, wayID int) {
	p.moveToFront(setID, wayID)
}

func (p *LRU) OnFill(setID, wayID int) {
	p.moveToFront(setID, wayID)
}

func (p *LRU) OnInvalidate(setID, wayID int) {
	ranks := p.ranks[setID]
	old := ranks[wayID]

	for way, rank := range ranks {
		if rank > old {
			ranks[way]--
		}
	}

	ranks[wayID] = p.numWays - 1
}

func (p *LRU) moveToFront(setID, wayID int) {
	ranks := p.ranks[setID]
	old := ranks[wayID]

	for way, rank := range ranks {
		if rank < old {
			ranks[way]++
		}
	}

	ranks[wayID] = 0
}

func (p *LRU) Reset() {
	for i := range p.ranks {
		p.ranks[i] = make([]int, p.numWays)
		for way := range p.ranks[i] {
			p.ranks[i][way] = way
		}
	}
}

// Ranks returns a copy of the ranks of a set.
func (p *LRU) Ranks(setID int) []int {
	return append([]int(nil), p.ranks[setID]...)
}

const (
	defaultMWCZ = 362436069
	defaultMWCW = 521288629
)

// Random picks victims with a Marsaglia multiply-with-carry generator. Two
// policies created with the same seed select the same sequence of victims.
type Random struct {
	numWays int
	seed    uint32
	z, w    uint32
}

// NewRandom creates a random policy. Seed 0 selects the default seed.
func NewRandom(numWays int, seed uint32) *Random {
	p := &Random{numWays: numWays, seed: seed}
	p.Reset()

	return p
}

func (p *Random) next() uint32 {
	p.z = 36969*(p.z&65535) + (p.z >> 16)
	p.w = 18000*(p.w&65535) + (p.w >> 16)

	return (p.z << 16) + p.w
}

func (p *Random) Victim(_ int) int {
	return int(p.next() % uint32(p.numWays))
}

func (p *Random) OnHit(_, _ int) {}

func (p *Random) OnFill(_, _ int) {}

func (p *Random) OnInvalidate(_, _ int) {}

// Reset restarts the generator from its seed.
func (p *Random) Reset() {
	p.z, p.w = defaultMWCZ, defaultMWCW

	if p.seed != 0 {
		p.z = p.seed
		p.w = p.seed ^ defaultMWCW
	}
}
