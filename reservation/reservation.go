// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package reservation implements the reservation registry: system-level
// permanent schedules re-applied to the lowest-numbered cores in every
// sale, per spec.md §3.
package reservation

import (
	"errors"

	"github.com/luxfi/broker/region"
	"github.com/luxfi/broker/workplan"
)

// ErrTooManyReservations is returned when inserting would exceed Limit.
var ErrTooManyReservations = errors.New("reservation: too many reservations")

// ErrUnknownReservation is returned when removing an index that isn't
// present.
var ErrUnknownReservation = errors.New("reservation: unknown reservation")

// Schedule is the ordered list of (mask, assignment) items a reservation
// applies across a whole region period, mirroring workplan.Item without
// a timeslice (reservations repeat the same schedule every timeslice of
// the period they cover).
type Schedule []workplan.Item

// Registry is the bounded, ordered list of reservations.
type Registry struct {
	limit        int
	reservations []Schedule
}

// NewRegistry returns an empty registry bounded to limit entries.
func NewRegistry(limit int) *Registry {
	return &Registry{limit: limit}
}

// Reserve appends a new reservation schedule.
func (r *Registry) Reserve(schedule Schedule) error {
	if len(r.reservations) >= r.limit {
		return ErrTooManyReservations
	}
	r.reservations = append(r.reservations, schedule)
	return nil
}

// Unreserve removes the reservation at index.
func (r *Registry) Unreserve(index int) error {
	if index < 0 || index >= len(r.reservations) {
		return ErrUnknownReservation
	}
	r.reservations = append(r.reservations[:index], r.reservations[index+1:]...)
	return nil
}

// All returns the reservations in application order (lowest-numbered
// core first). The returned slice must not be mutated.
func (r *Registry) All() []Schedule {
	return r.reservations
}

// Len reports the number of active reservations.
func (r *Registry) Len() int {
	return len(r.reservations)
}

// Apply installs every reservation into plan for every timeslice in
// [begin, end), onto cores starting at firstCore and counting up — "the
// lowest-numbered cores" of spec.md §4.3's sale rotation. It returns the
// first core index after those it used (firstCore plus the number of
// reservations), so the caller can offer sale cores starting there.
func (r *Registry) Apply(plan *workplan.Plan, begin, end region.Timeslice, firstCore region.CoreIndex) region.CoreIndex {
	core := firstCore
	for _, sched := range r.reservations {
		for _, item := range sched {
			plan.Insert(begin, end, core, item.Mask, item.Assignment)
		}
		core++
	}
	return core
}
