package sim

// TimeTeller can be used to get the current time.
type TimeTeller interface {
	CurrentTime() VTimeInSec
}

// EventScheduler can be used to schedule future events.
type EventScheduler interface {
	TimeTeller

	Schedule(e Event)
}

// A SimulationEndHandler runs once the simulation is over, for example to
// write out the final statistics.
type SimulationEndHandler interface {
	Handle(now VTimeInSec)
}

// An Engine runs events in time order.
type Engine interface {
	Hookable
	EventScheduler

	// Run handles events until none is left. It can be called again after
	// new events are scheduled.
	Run() error

	// Pause blocks the engine before its next event. Continue releases it.
	Pause()
	Continue()

	RegisterSimulationEndHandler(handler SimulationEndHandler)

	// Finished calls the registered SimulationEndHandlers.
	Finished()
}
