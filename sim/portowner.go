package sim

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// A PortOwner is an element that can communicate with others through ports.
type PortOwner interface {
	AddPort(name string, port Port)
	GetPortByName(name string) Port
	Ports() []Port
}

// PortOwnerBase keeps the ports of a component by their local names.
type PortOwnerBase struct {
	ports map[string]Port
}

// NewPortOwnerBase creates a new PortOwnerBase
func NewPortOwnerBase() *PortOwnerBase {
	return &PortOwnerBase{ports: make(map[string]Port)}
}

// AddPort adds a port under a local name. Names must be unique.
func (po *PortOwnerBase) AddPort(name string, port Port) {
	if _, found := po.ports[name]; found {
		panic(fmt.Sprintf("port %s already exists", name))
	}

	po.ports[name] = port
}

// GetPortByName returns a port by its local name and panics if there is no
// such port.
func (po *PortOwnerBase) GetPortByName(name string) Port {
	port, found := po.ports[name]
	if !found {
		panic(fmt.Sprintf("port %s not found, available ports: %s",
			name, strings.Join(po.names(), ", ")))
	}

	return port
}

// Ports returns the ports ordered by their local names.
func (po *PortOwnerBase) Ports() []Port {
	list := make([]Port, 0, len(po.ports))
	for _, name := range po.names() {
		list = append(list, po.ports[name])
	}

	return list
}

func (po *PortOwnerBase) names() []string {
	return slices.Sorted(maps.Keys(po.ports))
}
