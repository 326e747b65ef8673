package sim

import (
	"sync"
)

// TickEvent asks a component to update its state for one cycle.
type TickEvent struct {
	EventBase
}

// MakeTickEvent creates a primary TickEvent.
func MakeTickEvent(handler Handler, time VTimeInSec) TickEvent {
	return TickEvent{EventBase: *NewEventBase(time, handler)}
}

// A Ticker is an object that updates states with ticks. Tick reports whether
// anything changed; a ticker that made no progress is not ticked again until
// something wakes it up.
type Ticker interface {
	Tick() bool
}

// TickScheduler schedules at most one tick per cycle for a handler.
type TickScheduler struct {
	Freq   Freq
	Engine Engine

	lock      sync.Mutex
	handler   Handler
	secondary bool
	scheduled VTimeInSec
}

// NewTickScheduler creates a scheduler for primary tick events.
func NewTickScheduler(handler Handler, engine Engine, freq Freq) *TickScheduler {
	return &TickScheduler{
		Freq:      freq,
		Engine:    engine,
		handler:   handler,
		scheduled: -1,
	}
}

// NewSecondaryTickScheduler creates a scheduler for secondary tick events.
func NewSecondaryTickScheduler(
	handler Handler,
	engine Engine,
	freq Freq,
) *TickScheduler {
	t := NewTickScheduler(handler, engine, freq)
	t.secondary = true

	return t
}

// TickNow ticks in the current cycle unless a tick is already pending.
func (t *TickScheduler) TickNow() {
	t.scheduleAt(t.Freq.ThisTick(t.CurrentTime()))
}

// TickLater ticks in the next cycle unless a tick is already pending.
func (t *TickScheduler) TickLater() {
	t.scheduleAt(t.Freq.NextTick(t.CurrentTime()))
}

func (t *TickScheduler) scheduleAt(at VTimeInSec) {
	t.lock.Lock()
	defer t.lock.Unlock()

	if t.scheduled >= at {
		return
	}

	t.scheduled = at

	tick := MakeTickEvent(t.handler, at)
	tick.secondary = t.secondary
	t.Engine.Schedule(tick)
}

// CurrentTime returns the time of the engine.
func (t *TickScheduler) CurrentTime() VTimeInSec {
	return t.Engine.CurrentTime()
}

// TickingComponent is a component driven by a Ticker. It keeps ticking while
// the ticker makes progress and wakes up on port activity.
type TickingComponent struct {
	*ComponentBase
	*TickScheduler

	ticker Ticker
}

// NewTickingComponent creates a component that ticks with primary events.
func NewTickingComponent(
	name string,
	engine Engine,
	freq Freq,
	ticker Ticker,
) *TickingComponent {
	tc := &TickingComponent{
		ComponentBase: NewComponentBase(name),
		ticker:        ticker,
	}
	tc.TickScheduler = NewTickScheduler(tc, engine, freq)

	return tc
}

// NewSecondaryTickingComponent creates a component that ticks after the
// primary events of each cycle.
func NewSecondaryTickingComponent(
	name string,
	engine Engine,
	freq Freq,
	ticker Ticker,
) *TickingComponent {
	tc := &TickingComponent{
		ComponentBase: NewComponentBase(name),
		ticker:        ticker,
	}
	tc.TickScheduler = NewSecondaryTickScheduler(tc, engine, freq)

	return tc
}

// NotifyRecv wakes the component up.
func (c *TickingComponent) NotifyRecv(_ Port) {
	c.TickLater()
}

// NotifyPortFree wakes the component up.
func (c *TickingComponent) NotifyPortFree(_ Port) {
	c.TickLater()
}

// Handle runs one tick.
func (c *TickingComponent) Handle(_ Event) error {
	if c.ticker.Tick() {
		c.TickLater()
	}

	return nil
}
