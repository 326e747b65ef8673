package sim

import (
	"log"
	"reflect"
	"sync"
)

// A SerialEngine handles events one at a time on the calling goroutine.
// Primary events at a time are handled before the secondary events at the
// same time.
type SerialEngine struct {
	HookableBase

	timeLock sync.RWMutex
	now      VTimeInSec

	primary   EventQueue
	secondary EventQueue

	// gate is held while an event runs and while the engine is paused.
	gate       sync.Mutex
	pausedLock sync.Mutex
	paused     bool
	runLock    sync.Mutex

	endHandlers []SimulationEndHandler
}

// NewSerialEngine creates a SerialEngine
func NewSerialEngine() *SerialEngine {
	return &SerialEngine{
		primary:   NewEventQueue(),
		secondary: NewEventQueue(),
	}
}

// Schedule queues an event. Events cannot be scheduled in the past.
func (e *SerialEngine) Schedule(evt Event) {
	if evt.Time() < e.CurrentTime() {
		log.Panic("scheduling an event earlier than current time")
	}

	if evt.IsSecondary() {
		e.secondary.Push(evt)
	} else {
		e.primary.Push(evt)
	}
}

// CurrentTime returns the time of the event being handled, or of the last
// event handled.
func (e *SerialEngine) CurrentTime() VTimeInSec {
	e.timeLock.RLock()
	defer e.timeLock.RUnlock()

	return e.now
}

func (e *SerialEngine) setTime(t VTimeInSec) {
	e.timeLock.Lock()
	e.now = t
	e.timeLock.Unlock()
}

// Run handles events until both queues are empty. It stops at the first
// event whose handler returns an error and returns that error.
func (e *SerialEngine) Run() error {
	e.runLock.Lock()
	defer e.runLock.Unlock()

	for e.primary.Len() > 0 || e.secondary.Len() > 0 {
		e.gate.Lock()
		err := e.handle(e.pop())
		e.gate.Unlock()

		if err != nil {
			return err
		}
	}

	return nil
}

func (e *SerialEngine) handle(evt Event) error {
	if now := e.CurrentTime(); evt.Time() < now {
		log.Panicf("cannot run event in the past, evt %s @ %.10f, now %.10f",
			reflect.TypeOf(evt), evt.Time(), now)
	}

	e.setTime(evt.Time())

	ctx := HookCtx{Domain: e, Pos: HookPosBeforeEvent, Item: evt}
	e.InvokeHook(ctx)

	err := evt.Handler().Handle(evt)

	ctx.Pos = HookPosAfterEvent
	e.InvokeHook(ctx)

	return err
}

func (e *SerialEngine) pop() Event {
	switch {
	case e.primary.Len() == 0:
		return e.secondary.Pop()
	case e.secondary.Len() == 0:
		return e.primary.Pop()
	case e.primary.Peek().Time() <= e.secondary.Peek().Time():
		return e.primary.Pop()
	default:
		return e.secondary.Pop()
	}
}

// Pause stops the engine before its next event.
func (e *SerialEngine) Pause() {
	e.pausedLock.Lock()
	defer e.pausedLock.Unlock()

	if !e.paused {
		e.gate.Lock()
		e.paused = true
	}
}

// Continue lets a paused engine run again.
func (e *SerialEngine) Continue() {
	e.pausedLock.Lock()
	defer e.pausedLock.Unlock()

	if e.paused {
		e.paused = false
		e.gate.Unlock()
	}
}

// RegisterSimulationEndHandler adds a handler that Finished calls.
func (e *SerialEngine) RegisterSimulationEndHandler(
	handler SimulationEndHandler,
) {
	e.endHandlers = append(e.endHandlers, handler)
}

// Finished calls the simulation end handlers in registration order.
func (e *SerialEngine) Finished() {
	now := e.CurrentTime()
	for _, h := range e.endHandlers {
		h.Handle(now)
	}
}
