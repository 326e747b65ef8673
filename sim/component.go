package sim

import (
	"sync"
)

// A Named object is an object that has a name.
type Named interface {
	Name() string
}

// A Component is a simulated hardware unit. It handles its own events and
// talks to other components only through its ports.
type Component interface {
	Named
	Handler
	Hookable
	PortOwner

	// NotifyRecv is called when a message arrives at one of its ports.
	NotifyRecv(port Port)

	// NotifyPortFree is called when a port that was full can send again.
	NotifyPortFree(port Port)
}

// ComponentBase holds the name, the hooks and the ports of a component.
type ComponentBase struct {
	HookableBase
	*PortOwnerBase
	sync.Mutex

	name string
}

// NewComponentBase creates a ComponentBase. The name must follow the naming
// convention checked by NameMustBeValid.
func NewComponentBase(name string) *ComponentBase {
	NameMustBeValid(name)

	return &ComponentBase{
		PortOwnerBase: NewPortOwnerBase(),
		name:          name,
	}
}

// Name returns the name of the component.
func (c *ComponentBase) Name() string {
	return c.name
}
