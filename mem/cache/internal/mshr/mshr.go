// Package mshr tracks the requests that a cache has sent to the backing store
// and are still waiting for responses.
package mshr

import (
	"errors"
	"fmt"
)

// Errors returned by the MSHR.
var (
	ErrFull        = errors.New("mshr is full")
	ErrDuplicate   = errors.New("tag is already registered")
	ErrLineBusy    = errors.New("line already has an entry in flight")
	ErrUnknownTag  = errors.New("unknown tag")
	ErrOverArrival = errors.New("more transfers than expected")
)

// EntryKind tells what an entry waits for.
type EntryKind int

// Entry kinds.
const (
	EntryFill EntryKind = iota
	EntryEviction
	EntryForward
)

func (k EntryKind) String() string {
	switch k {
	case EntryFill:
		return "fill"
	case EntryEviction:
		return "eviction"
	case EntryForward:
		return "forward"
	}

	return fmt.Sprintf("EntryKind(%d)", int(k))
}

// An Entry correlates a multi-transfer request to the backing store with the
// cache line and the transaction that issued it. Entries of kind forward are
// not tied to a line and have SetID and WayID set to -1.
type Entry[T any] struct {
	Tag    string
	Kind   EntryKind
	Origin T

	SetID, WayID int

	Expected int
	Received int

	// CriticalWordDone is set once the transfer the origin waits for has been
	// delivered.
	CriticalWordDone bool
}

// IsComplete tells if all the expected transfers have arrived.
func (e *Entry[T]) IsComplete() bool {
	return e.Received >= e.Expected
}

func (e *Entry[T]) hasLine() bool {
	return e.SetID >= 0 && e.WayID >= 0
}

// MSHR is the table of in-flight requests.
type MSHR[T any] interface {
	// Register adds an entry. At most one entry may be registered for a
	// line at a time.
	Register(entry *Entry[T]) error

	// RecordArrival counts a transfer for the tag and tells if it was the
	// last expected one.
	RecordArrival(tag string) (entry *Entry[T], complete bool, err error)

	Lookup(tag string) (*Entry[T], bool)
	LookupLine(setID, wayID int) (*Entry[T], bool)
	Clear(tag string) error

	// Entries lists the entries in registration order.
	Entries() []*Entry[T]
	Len() int
	IsFull() bool
	Reset()
}

type mshrImpl[T any] struct {
	capacity int
	entries  []*Entry[T]
	byTag    map[string]*Entry[T]
}

// NewMSHR creates a new MSHR.
func NewMSHR[T any](capacity int) MSHR[T] {
	m := &mshrImpl[T]{capacity: capacity}
	m.Reset()

	return m
}

func (m *mshrImpl[T]) Register(entry *Entry[T]) error {
	if _, found := m.byTag[entry.Tag]; found {
		return fmt.Errorf("%w: %s", ErrDuplicate, entry.Tag)
	}

	if entry.hasLine() {
		if other, busy := m.LookupLine(entry.SetID, entry.WayID); busy {
			return fmt.Errorf("%w: (%d, %d) is held by %s %s",
				ErrLineBusy, entry.SetID, entry.WayID, other.Kind, other.Tag)
		}
	}

	if m.IsFull() {
		return ErrFull
	}

	m.entries = append(m.entries, entry)
	m.byTag[entry.Tag] = entry

	return nil
}

func (m *mshrImpl[T]) RecordArrival(tag string) (*Entry[T], bool, error) {
	entry, found := m.byTag[tag]
	if !found {
		return nil, false, fmt.Errorf("%w: %s", ErrUnknownTag, tag)
	}

	if entry.IsComplete() {
		return entry, true, fmt.Errorf("%w: %s", ErrOverArrival, tag)
	}

	entry.Received++

	return entry, entry.IsComplete(), nil
}

func (m *mshrImpl[T]) Lookup(tag string) (*Entry[T], bool) {
	entry, found := m.byTag[tag]
	return entry, found
}

func (m *mshrImpl[T]) LookupLine(setID, wayID int) (*Entry[T], bool) {
	for _, e := range m.entries {
		if e.SetID == setID && e.WayID == wayID {
			return e, true
		}
	}

	return nil, false
}

func (m *mshrImpl[T]) Clear(tag string) error {
	if _, found := m.byTag[tag]; !found {
		return fmt.Errorf("%w: %s", ErrUnknownTag, tag)
	}

	delete(m.byTag, tag)

	for i, e := range m.entries {
		if e.Tag == tag {
			m.entries = append(m.entries[:i], m.entries[i+1:]...)
			break
		}
	}

	return nil
}

func (m *mshrImpl[T]) Entries() []*Entry[T] {
	return append([]*Entry[T](nil), m.entries...)
}

func (m *mshrImpl[T]) Len() int {
	return len(m.entries)
}

func (m *mshrImpl[T]) IsFull() bool {
	return len(m.entries) >= m.capacity
}

func (m *mshrImpl[T]) Reset() {
	m.entries = nil
	m.byTag = make(map[string]*Entry[T])
}
