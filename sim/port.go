package sim

import (
	"fmt"
	"sync"
)

// Port hook positions. The item is the message.
var (
	HookPosPortMsgSend             = &HookPos{Name: "Port Msg Send"}
	HookPosPortMsgRecvd            = &HookPos{Name: "Port Msg Recv"}
	HookPosPortMsgRetrieveIncoming = &HookPos{Name: "Port Msg Retrieve Incoming"}
	HookPosPortMsgRetrieveOutgoing = &HookPos{Name: "Port Msg Retrieve Outgoing"}
)

// A RemotePort is the name of a port that messages are addressed to.
type RemotePort string

// A Port connects a component to a connection. Each direction has its own
// bounded buffer.
type Port interface {
	Named
	Hookable

	AsRemote() RemotePort

	SetConnection(conn Connection)
	Component() Component

	// Called by the connection.
	Deliver(msg Msg) *SendError
	RetrieveOutgoing() Msg
	PeekOutgoing() Msg

	// Called by the owning component.
	CanSend() bool
	Send(msg Msg) *SendError
	RetrieveIncoming() Msg
	PeekIncoming() Msg
}

type defaultPort struct {
	HookableBase

	lock sync.Mutex
	name string
	comp Component
	conn Connection

	incomingBuf Buffer
	outgoingBuf Buffer
}

// NewPort creates a port owned by comp. The buffers are named after the port.
func NewPort(
	comp Component,
	incomingBufCap, outgoingBufCap int,
	name string,
) Port {
	return &defaultPort{
		name:        name,
		comp:        comp,
		incomingBuf: NewBuffer(BuildName(name, "IncomingBuf"), incomingBufCap),
		outgoingBuf: NewBuffer(BuildName(name, "OutgoingBuf"), outgoingBufCap),
	}
}

func (p *defaultPort) Name() string {
	return p.name
}

func (p *defaultPort) AsRemote() RemotePort {
	return RemotePort(p.name)
}

// SetConnection plugs the port into a connection. A port can only be plugged
// once.
func (p *defaultPort) SetConnection(conn Connection) {
	if p.conn != nil {
		panic(fmt.Sprintf("port %s: connection already set to %s, "+
			"now connecting to %s", p.name, p.conn.Name(), conn.Name()))
	}

	p.conn = conn
}

func (p *defaultPort) Component() Component {
	return p.comp
}

func (p *defaultPort) CanSend() bool {
	p.lock.Lock()
	defer p.lock.Unlock()

	return p.outgoingBuf.CanPush()
}

// Send queues msg in the outgoing buffer. It fails if the buffer is full.
// The connection is notified when the buffer turns non-empty.
func (p *defaultPort) Send(msg Msg) *SendError {
	p.lock.Lock()

	p.msgMustBeValid(msg)

	if !p.outgoingBuf.CanPush() {
		p.lock.Unlock()
		return NewSendError()
	}

	wasEmpty := p.outgoingBuf.Size() == 0
	p.outgoingBuf.Push(msg)
	p.notify(HookPosPortMsgSend, msg)

	p.lock.Unlock()

	if wasEmpty {
		p.conn.NotifySend()
	}

	return nil
}

// Deliver puts msg in the incoming buffer. It fails if the buffer is full.
// The component is notified when the buffer turns non-empty.
func (p *defaultPort) Deliver(msg Msg) *SendError {
	p.lock.Lock()

	if !p.incomingBuf.CanPush() {
		p.lock.Unlock()
		return NewSendError()
	}

	wasEmpty := p.incomingBuf.Size() == 0
	p.notify(HookPosPortMsgRecvd, msg)
	p.incomingBuf.Push(msg)

	p.lock.Unlock()

	if p.comp != nil && wasEmpty {
		p.comp.NotifyRecv(p)
	}

	return nil
}

// RetrieveIncoming takes the oldest incoming message. The connection is told
// when a full buffer frees a slot.
func (p *defaultPort) RetrieveIncoming() Msg {
	p.lock.Lock()

	msg := p.pop(p.incomingBuf)
	if msg != nil && p.justFreed(p.incomingBuf) {
		p.conn.NotifyAvailable(p)
	}

	p.lock.Unlock()

	if msg != nil {
		p.notify(HookPosPortMsgRetrieveIncoming, msg)
	}

	return msg
}

// RetrieveOutgoing takes the oldest outgoing message. The component is told
// when a full buffer frees a slot.
func (p *defaultPort) RetrieveOutgoing() Msg {
	p.lock.Lock()

	msg := p.pop(p.outgoingBuf)
	if msg != nil && p.comp != nil && p.justFreed(p.outgoingBuf) {
		p.comp.NotifyPortFree(p)
	}

	p.lock.Unlock()

	if msg != nil {
		p.notify(HookPosPortMsgRetrieveOutgoing, msg)
	}

	return msg
}

func (p *defaultPort) PeekIncoming() Msg {
	p.lock.Lock()
	defer p.lock.Unlock()

	return asMsg(p.incomingBuf.Peek())
}

func (p *defaultPort) PeekOutgoing() Msg {
	p.lock.Lock()
	defer p.lock.Unlock()

	return asMsg(p.outgoingBuf.Peek())
}

func (p *defaultPort) pop(buf Buffer) Msg {
	return asMsg(buf.Pop())
}

func (p *defaultPort) justFreed(buf Buffer) bool {
	return buf.Size() == buf.Capacity()-1
}

func (p *defaultPort) notify(pos *HookPos, msg Msg) {
	p.InvokeHook(HookCtx{Domain: p, Pos: pos, Item: msg})
}

func asMsg(item interface{}) Msg {
	if item == nil {
		return nil
	}

	return item.(Msg)
}

func (p *defaultPort) msgMustBeValid(msg Msg) {
	meta := msg.Meta()

	switch {
	case string(meta.Src) != p.name:
		panic("sending port is not msg src")
	case meta.Dst == "":
		panic("dst is not given")
	case meta.Src == meta.Dst:
		panic("sending back to src")
	}
}
