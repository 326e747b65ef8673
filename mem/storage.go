package mem

import "fmt"

// For capacity
const (
	KB uint64 = 1 << 10
	MB uint64 = 1 << 20
	GB uint64 = 1 << 30
)

type constError string

func (e constError) Error() string { return string(e) }

// ErrAddressOutOfRange is returned when an access touches bytes beyond the
// capacity of a storage.
const ErrAddressOutOfRange = constError("address out of range")

// A Storage keeps bytes addressed from 0 to its capacity.
//
// The storage manages the bytes in units, similar to pages. A unit is only
// allocated when it is first touched, so a large storage that is sparsely
// used costs little memory. Untouched bytes read as zero.
type Storage struct {
	unitSize uint64
	capacity uint64
	data     map[uint64][]byte
}

// NewStorage creates a storage object with the specified capacity
func NewStorage(capacity uint64) *Storage {
	return NewStorageWithUnitSize(capacity, 4096)
}

// NewStorageWithUnitSize creates a storage that allocates memory in units of
// the given size.
func NewStorageWithUnitSize(capacity, unitSize uint64) *Storage {
	return &Storage{
		unitSize: unitSize,
		capacity: capacity,
		data:     make(map[uint64][]byte),
	}
}

// Capacity returns the number of bytes the storage can hold.
func (s *Storage) Capacity() uint64 {
	return s.capacity
}

func (s *Storage) mustBeInRange(address, length uint64) error {
	if address >= s.capacity || length > s.capacity-address {
		return fmt.Errorf("%w: [0x%x, 0x%x) exceeds capacity 0x%x",
			ErrAddressOutOfRange, address, address+length, s.capacity)
	}

	return nil
}

func (s *Storage) unit(address uint64) (unit []byte, inUnitAddr uint64) {
	inUnitAddr = address % s.unitSize
	baseAddr := address - inUnitAddr

	unit, ok := s.data[baseAddr]
	if !ok {
		unit = make([]byte, s.unitSize)
		s.data[baseAddr] = unit
	}

	return unit, inUnitAddr
}

// Read returns a copy of length bytes starting at address.
func (s *Storage) Read(address, length uint64) ([]byte, error) {
	if err := s.mustBeInRange(address, length); err != nil {
		return nil, err
	}

	res := make([]byte, length)
	done := uint64(0)

	for done < length {
		unit, inUnitAddr := s.unit(address + done)
		n := uint64(copy(res[done:], unit[inUnitAddr:]))
		done += n
	}

	return res, nil
}

// Write stores data starting at address.
func (s *Storage) Write(address uint64, data []byte) error {
	return s.WriteMasked(address, data, nil)
}

// WriteMasked stores the bytes of data whose entry in mask is true. A nil
// mask writes every byte.
func (s *Storage) WriteMasked(address uint64, data []byte, mask []bool) error {
	length := uint64(len(data))
	if err := s.mustBeInRange(address, length); err != nil {
		return err
	}

	if mask != nil && len(mask) != len(data) {
		return fmt.Errorf("mask of %d bytes does not match %d bytes of data",
			len(mask), len(data))
	}

	for i := uint64(0); i < length; i++ {
		if mask != nil && !mask[i] {
			continue
		}

		unit, inUnitAddr := s.unit(address + i)
		unit[inUnitAddr] = data[i]
	}

	return nil
}
