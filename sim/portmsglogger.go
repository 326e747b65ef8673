package sim

import (
	"log"
	"reflect"
)

// PortMsgLogger is a port hook that writes one line per message event:
// time, port, hook position, source, destination, message type and ID.
type PortMsgLogger struct {
	*log.Logger

	timeTeller TimeTeller
}

// NewPortMsgLogger creates a PortMsgLogger that writes to logger.
func NewPortMsgLogger(logger *log.Logger, timeTeller TimeTeller) *PortMsgLogger {
	return &PortMsgLogger{Logger: logger, timeTeller: timeTeller}
}

// Func logs the message of a port hook invocation. Other items are ignored.
func (h *PortMsgLogger) Func(ctx HookCtx) {
	msg, ok := ctx.Item.(Msg)
	if !ok {
		return
	}

	port, ok := ctx.Domain.(Port)
	if !ok {
		return
	}

	meta := msg.Meta()
	h.Printf("%.10f,%s,%s,%s,%s,%s,%s\n",
		h.timeTeller.CurrentTime(), port.Name(), ctx.Pos.Name,
		meta.Src, meta.Dst, reflect.TypeOf(msg), meta.ID)
}
