package cache

import (
	"fmt"

	"github.com/sarchlab/linecache/mem"
)

// A ProtocolError reports a request that the cache refuses to serve.
type ProtocolError struct {
	Address    uint64
	Kind       mem.AccessKind
	Constraint string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error: %s at 0x%x: %s",
		e.Kind, e.Address, e.Constraint)
}

// A BackingStoreError reports a fill or a write-back that the backing store
// did not complete.
type BackingStoreError struct {
	Address uint64
	Kind    mem.AccessKind
	Status  mem.Status
	Err     error
}

func (e *BackingStoreError) Error() string {
	msg := fmt.Sprintf("backing store answered %s to %s at 0x%x",
		e.Status, e.Kind, e.Address)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	return msg
}

func (e *BackingStoreError) Unwrap() error {
	return e.Err
}
