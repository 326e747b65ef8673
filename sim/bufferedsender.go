package sim

import (
	"log"
)

// BufferedSender queues messages for a port and sends at most one per Tick.
// It lets a stage produce several messages in one cycle, such as all the
// beats of a response, and drain them over the following cycles.
type BufferedSender interface {
	// CanSend tells if count more messages fit. Asking for more than the
	// capacity is a programming error.
	CanSend(count int) bool

	Send(msg Msg)

	// Clear drops the queued messages and returns them, oldest first.
	Clear() []Msg

	// Tick sends the oldest message. It returns false if nothing was sent.
	Tick() bool
}

// NewBufferedSender creates a BufferedSender that queues in buffer and sends
// through port.
func NewBufferedSender(port Port, buffer Buffer) BufferedSender {
	return &bufferedSender{port: port, buffer: buffer}
}

type bufferedSender struct {
	port   Port
	buffer Buffer
}

func (s *bufferedSender) CanSend(count int) bool {
	if count > s.buffer.Capacity() {
		log.Panicf("%s: %d messages exceed the capacity of %d",
			s.buffer.Name(), count, s.buffer.Capacity())
	}

	return s.buffer.Size()+count <= s.buffer.Capacity()
}

func (s *bufferedSender) Send(msg Msg) {
	s.buffer.Push(msg)
}

func (s *bufferedSender) Clear() []Msg {
	var dropped []Msg
	for s.buffer.Size() > 0 {
		dropped = append(dropped, asMsg(s.buffer.Pop()))
	}

	return dropped
}

func (s *bufferedSender) Tick() bool {
	msg := asMsg(s.buffer.Peek())
	if msg == nil || s.port.Send(msg) != nil {
		return false
	}

	s.buffer.Pop()

	return true
}
