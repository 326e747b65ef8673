package sim

// VTimeInSec is a point on the simulated time line, in seconds.
type VTimeInSec float64

// An Event is something that happens to a Handler at a given time.
type Event interface {
	Time() VTimeInSec
	Handler() Handler

	// Secondary events at a time run after all the primary events at that
	// time. Connections use them to move messages after the components tick.
	IsSecondary() bool
}

// A Handler owns the events scheduled for it and is the only state they may
// change.
type Handler interface {
	Handle(e Event) error
}

// EventBase carries the fields that every event needs.
type EventBase struct {
	ID        string
	time      VTimeInSec
	handler   Handler
	secondary bool
}

// NewEventBase creates a primary EventBase.
func NewEventBase(t VTimeInSec, handler Handler) *EventBase {
	return &EventBase{
		ID:      GetIDGenerator().Generate(),
		time:    t,
		handler: handler,
	}
}

// Time returns when the event happens.
func (e EventBase) Time() VTimeInSec {
	return e.time
}

// Handler returns the handler of the event.
func (e EventBase) Handler() Handler {
	return e.handler
}

// IsSecondary tells if the event is a secondary event.
func (e EventBase) IsSecondary() bool {
	return e.secondary
}
