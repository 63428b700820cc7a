// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package workplan implements the Workplan: the mapping from (timeslice,
// core) to the ordered, mask-disjoint list of schedule items that will be
// emitted to the coretime provider once that timeslice becomes active.
package workplan

import (
	"errors"
	"sort"

	"github.com/luxfi/broker/coremask"
	"github.com/luxfi/broker/region"
)

// ErrMaskOverlap is returned by Validate when two schedule items on the
// same (timeslice, core) have intersecting masks or exceed a core's
// area. Insert never returns it: it drops any prior item it overlaps.
var ErrMaskOverlap = errors.New("workplan: schedule item masks overlap")

// AssignmentKind discriminates a ScheduleItem's target, the Pool | Task |
// Idle sum type of spec.md §9.
type AssignmentKind uint8

const (
	Idle AssignmentKind = iota
	Task
	Pool
)

// Assignment is the sum type CoreAssignment = Pool | Task(id) | Idle.
type Assignment struct {
	Kind AssignmentKind
	Task region.TaskID // meaningful only when Kind == Task
}

// TaskAssignment returns an Assignment targeting task.
func TaskAssignment(task region.TaskID) Assignment {
	return Assignment{Kind: Task, Task: task}
}

// PoolAssignment returns an Assignment delegating to the instantaneous
// pool.
func PoolAssignment() Assignment {
	return Assignment{Kind: Pool}
}

// IdleAssignment returns the Idle assignment.
func IdleAssignment() Assignment {
	return Assignment{Kind: Idle}
}

// Item is one entry of a (timeslice, core)'s schedule list.
type Item struct {
	Mask       coremask.Mask
	Assignment Assignment
}

// key addresses one (timeslice, core) schedule.
type key struct {
	T    region.Timeslice
	Core region.CoreIndex
}

// Plan is the Workplan: (T, core) -> ordered list of ScheduleItem. The
// list's masks are pairwise disjoint; unclaimed bits are implicitly Idle
// and are never materialized as explicit Idle items.
type Plan struct {
	entries map[key][]Item
}

// New returns an empty Workplan.
func New() *Plan {
	return &Plan{entries: make(map[key][]Item)}
}

// Items returns the schedule for (t, core), nil if none exists. The
// returned slice must not be mutated by the caller.
func (p *Plan) Items(t region.Timeslice, core region.CoreIndex) []Item {
	return p.entries[key{T: t, Core: core}]
}

// totalMask returns the union of all item masks at (t, core).
func (p *Plan) totalMask(k key) coremask.Mask {
	m := coremask.Void()
	for _, it := range p.entries[k] {
		m = m.Union(it.Mask)
	}
	return m
}

// Insert adds an assignment for mask over every timeslice in [begin, end)
// on core, dropping any prior item intersecting mask at each timeslice
// (spec.md §4.2: "inserts/merges ScheduleItem{mask, Task(task)}, dropping
// any prior item intersecting mask"). This is the core editing primitive
// Assign and Pool both reduce to.
func (p *Plan) Insert(begin, end region.Timeslice, core region.CoreIndex, mask coremask.Mask, assignment Assignment) {
	for t := begin; t < end; t++ {
		k := key{T: t, Core: core}
		items := p.entries[k]
		kept := items[:0]
		for _, it := range items {
			if it.Mask.Intersect(mask).IsVoid() {
				kept = append(kept, it)
			}
		}
		kept = append(kept, Item{Mask: mask, Assignment: assignment})
		sort.Slice(kept, func(i, j int) bool { return kept[i].Mask.String() < kept[j].Mask.String() })
		p.entries[k] = kept
	}
}

// Pop removes and returns the schedule for (t, core), used by the tick
// driver once a timeslice becomes active and its assignment is emitted.
func (p *Plan) Pop(t region.Timeslice, core region.CoreIndex) []Item {
	k := key{T: t, Core: core}
	items := p.entries[k]
	delete(p.entries, k)
	return items
}

// Prune drops every entry whose timeslice is strictly before `before`,
// bounding storage growth once those timeslices have been committed to
// the provider (spec.md §2: "maintains bounded storage").
func (p *Plan) Prune(before region.Timeslice) {
	for k := range p.entries {
		if k.T < before {
			delete(p.entries, k)
		}
	}
}

// TotalArea returns the sum of item mask areas at (t, core), in
// parts-per-57600 units. Used to assert the invariant that total area
// never exceeds coremask.PartsPerCore.
func (p *Plan) TotalArea(t region.Timeslice, core region.CoreIndex) uint64 {
	return p.totalMask(key{T: t, Core: core}).Area()
}

// Validate asserts invariant spec.md §8: for every (t, core), the sum of
// item mask areas is at most coremask.PartsPerCore, and masks are
// pairwise disjoint. Intended for tests and debug assertions, not the
// hot path.
func (p *Plan) Validate() error {
	for _, items := range p.entries {
		seen := coremask.Void()
		for _, it := range items {
			if !seen.Intersect(it.Mask).IsVoid() {
				return ErrMaskOverlap
			}
			seen = seen.Union(it.Mask)
		}
		if seen.Area() > coremask.PartsPerCore {
			return ErrMaskOverlap
		}
	}
	return nil
}
