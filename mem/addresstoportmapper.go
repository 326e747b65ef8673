package mem

import "github.com/sarchlab/linecache/sim"

// AddressToPortMapper helps a cache find the port of the module below it that
// holds the data at a certain address.
type AddressToPortMapper interface {
	Find(address uint64) sim.RemotePort
}

// SinglePortMapper is used when a unit is connected with only one
// low module
type SinglePortMapper struct {
	Port sim.RemotePort
}

// Find simply returns the solo unit that it connects to
func (f *SinglePortMapper) Find(_ uint64) sim.RemotePort {
	return f.Port
}
