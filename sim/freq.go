package sim

import (
	"log"
	"math"
)

// Freq is a clock frequency in Hz.
type Freq float64

// Frequency units.
const (
	Hz  Freq = 1
	KHz Freq = 1e3
	MHz Freq = 1e6
	GHz Freq = 1e9
)

// Period returns the length of one cycle.
func (f Freq) Period() VTimeInSec {
	if f == 0 {
		log.Panic("frequency cannot be 0")
	}

	return VTimeInSec(1.0 / f)
}

// Cycle returns the number of cycles from time 0 to t.
func (f Freq) Cycle(t VTimeInSec) uint64 {
	return uint64(math.Round(float64(t) * float64(f)))
}

// cycles returns t in cycles, rounded to a tenth of a cycle so that
// floating-point noise does not push a time onto the wrong edge.
func (f Freq) cycles(t VTimeInSec) float64 {
	if math.IsNaN(float64(t)) {
		log.Panic("invalid time")
	}

	return math.Round(float64(t)*10*float64(f)) / 10
}

// ThisTick returns the first clock edge at or after now.
func (f Freq) ThisTick(now VTimeInSec) VTimeInSec {
	return VTimeInSec(math.Ceil(f.cycles(now)) / float64(f))
}

// NextTick returns the first clock edge strictly after now.
func (f Freq) NextTick(now VTimeInSec) VTimeInSec {
	return VTimeInSec((math.Floor(f.cycles(now)) + 1) / float64(f))
}

// NCyclesLater returns the clock edge n cycles after now. A time between two
// edges is first moved to the next edge.
func (f Freq) NCyclesLater(n int, now VTimeInSec) VTimeInSec {
	return f.ThisTick(now + VTimeInSec(Freq(n)/f))
}
