package sim

import (
	"fmt"
	"slices"
)

// DirectConnection delivers messages between its ports with no latency. A
// message sent in one cycle arrives in the same cycle unless the destination
// is full, in which case it stays in the sender's outgoing buffer.
type DirectConnection struct {
	*TickingComponent

	ports  []Port
	byAddr map[RemotePort]Port
	start  int
}

// NewDirectConnection creates a DirectConnection. It ticks after ordinary
// components within the same cycle.
func NewDirectConnection(
	name string,
	engine Engine,
	freq Freq,
) *DirectConnection {
	c := &DirectConnection{byAddr: make(map[RemotePort]Port)}
	c.TickingComponent = NewSecondaryTickingComponent(name, engine, freq, c)

	return c
}

// PlugIn attaches port to the connection.
func (c *DirectConnection) PlugIn(port Port) {
	c.Lock()
	c.ports = append(c.ports, port)
	c.byAddr[port.AsRemote()] = port
	c.Unlock()

	port.SetConnection(c)
}

// Unplug detaches port from the connection.
func (c *DirectConnection) Unplug(port Port) {
	c.Lock()
	defer c.Unlock()

	delete(c.byAddr, port.AsRemote())
	c.ports = slices.DeleteFunc(c.ports, func(p Port) bool { return p == port })
	c.start = 0
}

// NotifyAvailable wakes the connection when a destination has room again.
func (c *DirectConnection) NotifyAvailable(Port) {
	c.TickNow()
}

// NotifySend wakes the connection when a port has something to send.
func (c *DirectConnection) NotifySend() {
	c.TickNow()
}

// Tick drains the outgoing buffers of all ports. The port drained first
// rotates every tick.
func (c *DirectConnection) Tick() bool {
	n := len(c.ports)
	if n == 0 {
		return false
	}

	progress := false
	for i := range n {
		progress = c.drain(c.ports[(c.start+i)%n]) || progress
	}

	c.start = (c.start + 1) % n

	return progress
}

func (c *DirectConnection) drain(src Port) bool {
	moved := false

	for msg := src.PeekOutgoing(); msg != nil; msg = src.PeekOutgoing() {
		dst, ok := c.byAddr[msg.Meta().Dst]
		if !ok {
			panic(fmt.Sprintf("%s: no port %s", c.Name(), msg.Meta().Dst))
		}

		if dst.Deliver(msg) != nil {
			break
		}

		src.RetrieveOutgoing()
		moved = true
	}

	return moved
}
