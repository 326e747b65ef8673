// Package tracing lets components report the tasks they work on so that
// tracers can measure latency, count events, or persist traces.
package tracing

import (
	"reflect"

	"github.com/sarchlab/linecache/sim"
)

// NamedHookable is a named component that can carry hooks.
type NamedHookable interface {
	sim.Named
	sim.Hookable
	InvokeHook(sim.HookCtx)
}

// Hook positions at which task events are delivered.
var (
	HookPosTaskStart = &sim.HookPos{Name: "HookPosTaskStart"}
	HookPosTaskStep  = &sim.HookPos{Name: "HookPosTaskStep"}
	HookPosTaskEnd   = &sim.HookPos{Name: "HookPosTaskEnd"}
)

func emit(domain NamedHookable, pos *sim.HookPos, task Task) {
	domain.InvokeHook(sim.HookCtx{Domain: domain, Pos: pos, Item: task})
}

// StartTask announces that domain started working on a task. Nothing is
// delivered when domain has no hooks.
func StartTask(
	id, parentID string,
	domain NamedHookable,
	kind, what string,
	detail any,
) {
	if domain == nil {
		panic("tracing: nil domain")
	}

	if domain.NumHooks() == 0 {
		return
	}

	switch {
	case id == "":
		panic("tracing: empty task id")
	case kind == "":
		panic("tracing: empty task kind")
	case what == "":
		panic("tracing: empty task what")
	case domain.Name() == "":
		panic("tracing: unnamed domain")
	}

	emit(domain, HookPosTaskStart, Task{
		ID:       id,
		ParentID: parentID,
		Kind:     kind,
		What:     what,
		Location: domain.Name(),
		Detail:   detail,
	})
}

// AddTaskStep marks a milestone of a running task, such as "read-hit".
func AddTaskStep(id string, domain NamedHookable, what string) {
	if domain.NumHooks() == 0 {
		return
	}

	emit(domain, HookPosTaskStep, Task{
		ID:    id,
		Steps: []TaskStep{{What: what}},
	})
}

// EndTask announces that a task is finished. Only the ID is delivered.
func EndTask(id string, domain NamedHookable) {
	if domain.NumHooks() == 0 {
		return
	}

	emit(domain, HookPosTaskEnd, Task{ID: id})
}

func outgoingID(msg sim.Msg) string {
	return msg.Meta().ID + "_req_out"
}

// MsgIDAtReceiver is the ID of the task that handles msg at domain.
func MsgIDAtReceiver(msg sim.Msg, domain NamedHookable) string {
	return msg.Meta().ID + "@" + domain.Name()
}

// TraceReqInitiate starts a "req_out" task at the sender of msg.
func TraceReqInitiate(msg sim.Msg, domain NamedHookable, parentID string) {
	StartTask(outgoingID(msg), parentID, domain,
		"req_out", reflect.TypeOf(msg).String(), msg)
}

// TraceReqReceive starts a "req_in" task at the receiver of msg. Its parent
// is the sender's "req_out" task.
func TraceReqReceive(msg sim.Msg, domain NamedHookable) {
	StartTask(MsgIDAtReceiver(msg, domain), outgoingID(msg), domain,
		"req_in", reflect.TypeOf(msg).String(), msg)
}

// TraceReqComplete ends the task started by TraceReqReceive.
func TraceReqComplete(msg sim.Msg, domain NamedHookable) {
	EndTask(MsgIDAtReceiver(msg, domain), domain)
}

// TraceReqFinalize ends the task started by TraceReqInitiate, once the
// sender has the response.
func TraceReqFinalize(msg sim.Msg, domain NamedHookable) {
	EndTask(outgoingID(msg), domain)
}
