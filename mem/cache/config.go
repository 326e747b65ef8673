package cache

import (
	"errors"
	"fmt"
	"math/bits"
	"strings"

	"github.com/sarchlab/linecache/mem/cache/internal/tagging"
)

// Configuration errors. A *ConfigError wraps one of them.
var (
	ErrNotPowerOfTwo = errors.New("not a power of two")
	ErrLineRatio     = errors.New("line to access width ratio must be 1, 2, 4, 8 or 16")
	ErrCapacity      = errors.New("cache size is not a multiple of line size times ways")
	ErrPolicy        = errors.New("unknown replacement policy")
	ErrAccessMode    = errors.New("a cache cannot be both read-only and write-only")
	ErrOutOfRange    = errors.New("value out of range")
)

// A ConfigError reports an invalid configuration field.
type ConfigError struct {
	Field string
	Value any
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid cache config %s=%v: %v", e.Field, e.Value, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Policy selects the replacement policy of a cache.
type Policy = tagging.PolicyKind

// The replacement policies.
const (
	PolicyRoundRobin = tagging.PolicyRoundRobin
	PolicyLRU        = tagging.PolicyLRU
	PolicyRandom     = tagging.PolicyRandom
)

// ParsePolicy converts "RR", "LRU" or "RANDOM" to a Policy.
func ParsePolicy(s string) (Policy, error) {
	p, ok := tagging.ParsePolicyKind(s)
	if !ok {
		return 0, &ConfigError{Field: "Policy", Value: s, Err: ErrPolicy}
	}

	return p, nil
}

// Config is the configuration of a cache. It is validated once when the
// cache is built and never changes afterwards.
type Config struct {
	ByteSize        uint64
	LineByteWidth   uint64
	AccessByteWidth uint64

	// NumWays is the associativity. 0 means fully associative.
	NumWays int

	Policy        Policy
	ReadAllocate  bool
	WriteAllocate bool
	WriteBack     bool
	ReadOnly      bool
	WriteOnly     bool

	// RandomSeed seeds the random replacement policy. 0 selects the default
	// seed.
	RandomSeed uint32

	HitLatency   int
	NumMSHREntry int
}

// DefaultConfig returns a 16KB, 4-way, 64B-line write-back LRU cache.
func DefaultConfig() Config {
	return Config{
		ByteSize:        16 * 1024,
		LineByteWidth:   64,
		AccessByteWidth: 4,
		NumWays:         4,
		Policy:          PolicyLRU,
		ReadAllocate:    true,
		WriteAllocate:   true,
		WriteBack:       true,
		HitLatency:      2,
		NumMSHREntry:    4,
	}
}

// NumLines returns the number of lines in the cache.
func (c Config) NumLines() int {
	return int(c.ByteSize / c.LineByteWidth)
}

// NumSets returns the number of sets of a normalized configuration.
func (c Config) NumSets() int {
	return c.NumLines() / c.NumWays
}

// BeatsPerLine returns how many access-width transfers make up a line.
func (c Config) BeatsPerLine() int {
	return int(c.LineByteWidth / c.AccessByteWidth)
}

func isPowerOfTwo(v uint64) bool {
	return v != 0 && bits.OnesCount64(v) == 1
}

// Validate checks the configuration and returns its normalized form, where
// a fully associative NumWays is replaced by the number of lines.
func (c Config) Validate() (Config, error) {
	if !isPowerOfTwo(c.LineByteWidth) {
		return c, &ConfigError{"LineByteWidth", c.LineByteWidth, ErrNotPowerOfTwo}
	}

	if !isPowerOfTwo(c.AccessByteWidth) {
		return c, &ConfigError{"AccessByteWidth", c.AccessByteWidth, ErrNotPowerOfTwo}
	}

	if c.LineByteWidth < c.AccessByteWidth ||
		c.LineByteWidth/c.AccessByteWidth > 16 {
		ratio := fmt.Sprintf("%d/%d", c.LineByteWidth, c.AccessByteWidth)
		return c, &ConfigError{"LineByteWidth", ratio, ErrLineRatio}
	}

	if c.NumWays < 0 {
		return c, &ConfigError{"NumWays", c.NumWays, ErrOutOfRange}
	}

	if c.ByteSize == 0 || c.ByteSize%c.LineByteWidth != 0 {
		return c, &ConfigError{"ByteSize", c.ByteSize, ErrCapacity}
	}

	if c.NumWays == 0 {
		c.NumWays = c.NumLines()
	}

	if c.NumLines()%c.NumWays != 0 {
		return c, &ConfigError{"ByteSize", c.ByteSize, ErrCapacity}
	}

	if !isPowerOfTwo(uint64(c.NumSets())) {
		return c, &ConfigError{"NumSets", c.NumSets(), ErrNotPowerOfTwo}
	}

	if _, ok := tagging.ParsePolicyKind(c.Policy.String()); !ok {
		return c, &ConfigError{"Policy", c.Policy, ErrPolicy}
	}

	if c.ReadOnly && c.WriteOnly {
		return c, &ConfigError{"WriteOnly", c.WriteOnly, ErrAccessMode}
	}

	if c.HitLatency < 1 {
		return c, &ConfigError{"HitLatency", c.HitLatency, ErrOutOfRange}
	}

	if c.NumMSHREntry < 1 {
		return c, &ConfigError{"NumMSHREntry", c.NumMSHREntry, ErrOutOfRange}
	}

	return c, nil
}

// String lists the configuration in a key=value form.
func (c Config) String() string {
	fields := []string{
		fmt.Sprintf("size=%d", c.ByteSize),
		fmt.Sprintf("line=%d", c.LineByteWidth),
		fmt.Sprintf("access=%d", c.AccessByteWidth),
		fmt.Sprintf("ways=%d", c.NumWays),
		fmt.Sprintf("policy=%s", c.Policy),
		fmt.Sprintf("read_allocate=%t", c.ReadAllocate),
		fmt.Sprintf("write_allocate=%t", c.WriteAllocate),
		fmt.Sprintf("write_back=%t", c.WriteBack),
		fmt.Sprintf("read_only=%t", c.ReadOnly),
		fmt.Sprintf("write_only=%t", c.WriteOnly),
		fmt.Sprintf("seed=%d", c.RandomSeed),
		fmt.Sprintf("hit_latency=%d", c.HitLatency),
		fmt.Sprintf("mshr=%d", c.NumMSHREntry),
	}

	return strings.Join(fields, " ")
}
