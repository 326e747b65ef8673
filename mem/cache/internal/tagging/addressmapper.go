package tagging

import "math/bits"

// An AddressMapper splits byte addresses into tag, set and offset. Both the
// line size and the number of sets must be powers of two.
type AddressMapper struct {
	lineBits uint
	setBits  uint
}

// NewAddressMapper creates an AddressMapper.
func NewAddressMapper(lineByteWidth uint64, numSets int) AddressMapper {
	return AddressMapper{
		lineBits: uint(bits.TrailingZeros64(lineByteWidth)),
		setBits:  uint(bits.TrailingZeros64(uint64(numSets))),
	}
}

// LineByteWidth returns the number of bytes in a line.
func (m AddressMapper) LineByteWidth() uint64 {
	return 1 << m.lineBits
}

// NumSets returns the number of sets.
func (m AddressMapper) NumSets() int {
	return 1 << m.setBits
}

// Decompose returns the tag, the set and the line offset of an address.
func (m AddressMapper) Decompose(addr uint64) (tag uint64, setID int, offset uint64) {
	offset = addr & (m.LineByteWidth() - 1)
	setID = int((addr >> m.lineBits) & uint64(m.NumSets()-1))
	tag = addr >> (m.lineBits + m.setBits)

	return tag, setID, offset
}

// Compose is the inverse of Decompose.
func (m AddressMapper) Compose(tag uint64, setID int, offset uint64) uint64 {
	return tag<<(m.lineBits+m.setBits) | uint64(setID)<<m.lineBits | offset
}

// LineBase returns the address of the first byte of the line that holds addr.
func (m AddressMapper) LineBase(addr uint64) uint64 {
	return addr &^ (m.LineByteWidth() - 1)
}

// SameLine tells if the byteSize bytes starting at addr fall in one line.
func (m AddressMapper) SameLine(addr, byteSize uint64) bool {
	if byteSize == 0 {
		return true
	}

	return m.LineBase(addr) == m.LineBase(addr+byteSize-1)
}
