package sim

// SendError tells the sender that the message was not taken. The sender
// keeps the message and retries once it is notified.
type SendError struct{}

// NewSendError creates a SendError
func NewSendError() *SendError {
	return &SendError{}
}

// A Connection moves messages from the outgoing buffer of a port to the
// incoming buffer of the destination port.
type Connection interface {
	Named
	Hookable

	PlugIn(port Port)
	Unplug(port Port)

	// NotifyAvailable is called by a port that has room in its incoming
	// buffer again.
	NotifyAvailable(port Port)

	// NotifySend is called by a port whose outgoing buffer turned non-empty.
	NotifySend()
}
