// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package lease implements the lease registry: tasks reserved a core
// until a deadline timeslice, auto-enrolled into renewal before expiry.
package lease

import (
	"errors"

	"github.com/luxfi/broker/region"
)

// ErrTooManyLeases is returned when inserting would exceed Limit.
var ErrTooManyLeases = errors.New("lease: too many leases")

// ErrUnknownLease is returned when removing a lease that isn't present.
var ErrUnknownLease = errors.New("lease: unknown lease")

// Lease holds a core (assigned by position, not recorded here — cores
// are allocated to leases in registry order) until Until.
type Lease struct {
	Task  region.TaskID
	Until region.Timeslice
}

// Registry is the bounded set of active leases, per spec.md §3.
type Registry struct {
	limit   int
	leases  []Lease
}

// NewRegistry returns an empty registry bounded to limit entries.
func NewRegistry(limit int) *Registry {
	return &Registry{limit: limit}
}

// Set inserts a new lease for task until the given timeslice.
func (r *Registry) Set(task region.TaskID, until region.Timeslice) error {
	if len(r.leases) >= r.limit {
		return ErrTooManyLeases
	}
	r.leases = append(r.leases, Lease{Task: task, Until: until})
	return nil
}

// All returns the leases in registry (core-assignment) order. The
// returned slice must not be mutated.
func (r *Registry) All() []Lease {
	return r.leases
}

// Len reports the number of active leases.
func (r *Registry) Len() int {
	return len(r.leases)
}

// RemoveExpiring removes every lease whose Until falls within
// (windowBegin, windowEnd] and returns them in registry order, for
// conversion into PotentialRenewals at sale rotation (spec.md §4.3).
func (r *Registry) RemoveExpiring(windowBegin, windowEnd region.Timeslice) []Lease {
	var expiring []Lease
	kept := r.leases[:0]
	for _, l := range r.leases {
		if l.Until > windowBegin && l.Until <= windowEnd {
			expiring = append(expiring, l)
		} else {
			kept = append(kept, l)
		}
	}
	r.leases = kept
	return expiring
}

// RemoveEnded removes every lease whose Until is at or before now,
// without converting them to a renewal. Used at start_sales: a lease
// that ended before the first sale begins is dropped, never renewed.
func (r *Registry) RemoveEnded(now region.Timeslice) []Lease {
	var ended []Lease
	kept := r.leases[:0]
	for _, l := range r.leases {
		if l.Until <= now {
			ended = append(ended, l)
		} else {
			kept = append(kept, l)
		}
	}
	r.leases = kept
	return ended
}
