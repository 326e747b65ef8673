package sim

// A Msg is what ports carry between components.
type Msg interface {
	Meta() *MsgMeta
	Clone() Msg
}

// MsgMeta is embedded in every message. TrafficClass and TrafficBytes describe
// the message to connections that model bandwidth.
type MsgMeta struct {
	ID           string
	Src, Dst     RemotePort
	TrafficClass string
	TrafficBytes int
}

// Rsp is a message that answers a request.
type Rsp interface {
	Msg
	GetRspTo() string
}
