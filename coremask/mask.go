// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package coremask implements the 80-bit bitmask algebra used to carve a
// core's workload into assignable fractions ("parts"). It mirrors the
// fixed-width bit-set conventions of utils/set.Bits, specialized to a
// constant 80-bit width so region algebra in the purchase/assign hot path
// stays allocation free.
package coremask

import (
	"fmt"
	"math/bits"
)

// Width is the number of addressable parts a core is divided into.
const Width = 80

// PartsPerCore is the total area of a fully assigned core, expressed in
// "parts-per-57600" units (57600 = 80 * 720).
const PartsPerCore = Width * 720

// Mask is an 80-bit set identifying fractions of a core's workload. Bit i
// represents part i of the core, i in [0, Width). The zero value is void
// (no parts set).
type Mask struct {
	// lo holds bits [0, 64), hi holds bits [64, 80) in its low 16 bits.
	lo uint64
	hi uint64
}

const hiMask = (uint64(1) << (Width - 64)) - 1

// Complete returns a mask with every bit set.
func Complete() Mask {
	return Mask{lo: ^uint64(0), hi: hiMask}
}

// Void returns a mask with no bits set.
func Void() Mask {
	return Mask{}
}

// FromChunk returns a mask with bits [a, b) set. Panics if the range is
// invalid; callers at trust boundaries should validate with ValidChunk
// first.
func FromChunk(a, b int) Mask {
	if !ValidChunk(a, b) {
		panic(fmt.Sprintf("coremask: invalid chunk [%d, %d)", a, b))
	}
	var m Mask
	for i := a; i < b; i++ {
		m = m.set(i)
	}
	return m
}

// ValidChunk reports whether 0 <= a <= b <= Width.
func ValidChunk(a, b int) bool {
	return a >= 0 && a <= b && b <= Width
}

func (m Mask) set(i int) Mask {
	if i < 64 {
		m.lo |= 1 << uint(i)
	} else {
		m.hi |= 1 << uint(i-64)
	}
	return m
}

// Contains reports whether bit i is set.
func (m Mask) Contains(i int) bool {
	if i < 0 || i >= Width {
		return false
	}
	if i < 64 {
		return m.lo&(1<<uint(i)) != 0
	}
	return m.hi&(1<<uint(i-64)) != 0
}

// Union returns m | other.
func (m Mask) Union(other Mask) Mask {
	return Mask{lo: m.lo | other.lo, hi: m.hi | other.hi}
}

// Intersect returns m & other.
func (m Mask) Intersect(other Mask) Mask {
	return Mask{lo: m.lo & other.lo, hi: m.hi & other.hi}
}

// Complement returns the parts not in m.
func (m Mask) Complement() Mask {
	return Mask{lo: ^m.lo & ^uint64(0), hi: ^m.hi & hiMask}
}

// Without returns the parts in m that are not in other (m &^ other).
func (m Mask) Without(other Mask) Mask {
	return m.Intersect(other.Complement())
}

// IsSubsetOf reports whether every part of m is also set in other.
func (m Mask) IsSubsetOf(other Mask) bool {
	return m.Intersect(other) == m
}

// IsVoid reports whether no bit is set.
func (m Mask) IsVoid() bool {
	return m.lo == 0 && m.hi == 0
}

// IsComplete reports whether every bit is set.
func (m Mask) IsComplete() bool {
	return m.lo == ^uint64(0) && m.hi == hiMask
}

// CountOnes returns the number of set bits.
func (m Mask) CountOnes() int {
	return bits.OnesCount64(m.lo) + bits.OnesCount64(m.hi)
}

// Area returns the mask's area in parts-per-57600 units, i.e.
// CountOnes() * 720.
func (m Mask) Area() uint64 {
	return uint64(m.CountOnes()) * (PartsPerCore / Width)
}

// Equal reports structural equality; provided for readability at call
// sites, equivalent to m == other.
func (m Mask) Equal(other Mask) bool {
	return m == other
}

// String renders the mask as a hex string of its two words, most
// significant first, for logging.
func (m Mask) String() string {
	return fmt.Sprintf("%04x%016x", m.hi, m.lo)
}
