// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package region implements RegionId / RegionRecord identity and the
// region operations (transfer, partition, interlace, assign, pool) that
// mutate ownership of coretime while preserving total area.
package region

import (
	"fmt"

	"github.com/holiman/uint256"
	"github.com/luxfi/broker/coremask"
)

// Timeslice is the minimum unit of sellable coretime. One timeslice spans
// a fixed number of relay blocks (Configuration.TimeslicePeriod).
type Timeslice = uint64

// CoreIndex names a schedulable core.
type CoreIndex = uint16

// TaskID identifies the tenant a core (or a fraction of it) is assigned
// to run workloads for.
type TaskID = uint64

// Account identifies a balance holder. Kept as a plain fixed-size value
// type rather than importing a currency module's concrete address type,
// per spec.md's "currency module... referenced only by interface."
type Account [20]byte

// Balance is a coretime price or amount, represented as an unsigned
// 256-bit integer the same way the rest of the Lux EVM stack represents
// large monetary amounts.
type Balance = *uint256.Int

// NewBalance returns a Balance set to v.
func NewBalance(v uint64) Balance {
	return uint256.NewInt(v)
}

// Finality controls whether an assign/pool operation consumes the
// region's handle (Final) or retains it for further mutation (Provisional).
type Finality uint8

const (
	Provisional Finality = iota
	Final
)

func (f Finality) String() string {
	if f == Final {
		return "Final"
	}
	return "Provisional"
}

// Origin records how a region was created. Informational only: it is
// stored on the record but is not part of the NFT attribute surface or
// the event log, and never drives business-logic branching (which keys
// strictly off Owner/Paid).
type Origin uint8

const (
	OriginPurchase Origin = iota
	OriginRenewal
	OriginReservation
	OriginLease
)

// ID uniquely identifies a region by (begin timeslice, core, mask).
// Invariant R1 (enforced by the region store): two live records with the
// same Begin and Core have disjoint masks.
type ID struct {
	Begin Timeslice
	Core  CoreIndex
	Mask  coremask.Mask
}

func (id ID) String() string {
	return fmt.Sprintf("Region(begin=%d, core=%d, mask=%s)", id.Begin, id.Core, id.Mask)
}

// Record is the mutable state attached to a RegionId.
type Record struct {
	End   Timeslice
	Owner *Account // nil means "burned": mintable once by anyone.
	Paid  Balance  // non-nil only for regions bought on the open market.
	Origin Origin
}

// Region is a convenience pairing of identity and state, returned by
// operations that both look up and mutate a record.
type Region struct {
	ID     ID
	Record Record
}
