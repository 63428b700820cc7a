// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package broker

import (
	"github.com/luxfi/broker/provider"
	"github.com/luxfi/broker/region"
)

// Tick advances the broker by one relay block, spec.md §4.5's tick
// driver. It is the single entry point the outer chain's
// block-processing loop calls once per block, always last within that
// block (spec.md §5's ordering guarantee: "tick driver's workplan
// commit happens last"):
//
//  1. compute now_timeslice = block / timeslice_period and advance
//     Status.LastTimeslice;
//  2. commit every Workplan entry whose advance notice has elapsed,
//     dispatching AssignCore directives to the provider;
//  3. rotate the sale state machine if the current period's region span
//     has elapsed;
//  4. drain any revenue reports queued by NotifyRevenue.
//
// Tick never returns a hard failure for malformed background state: per
// spec.md §4.6, "background tick actions... log and continue on
// malformed inputs but never corrupt invariants." It returns an error
// only when the broker itself is not configured.
func (b *Broker) Tick(block uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.requireConfigured(); err != nil {
		return err
	}

	now := region.Timeslice(block / b.cfg.TimeslicePeriod)
	if now > b.status.LastTimeslice {
		b.status.LastTimeslice = now
	}

	b.commitDue(block)

	if b.currentSale != nil {
		periodEndBlock := b.currentSale.RegionEnd * b.cfg.TimeslicePeriod
		if block >= periodEndBlock {
			if err := b.rotateSaleLocked(); err != nil {
				b.log.Error("sale rotation failed", "block", block, "error", err)
			} else if err := b.requestCoreCountLocked(); err != nil {
				b.log.Error("request_core_count directive failed after rotation", "error", err)
			}
		}
	}

	b.drainRevenue()
	b.updateGauges()
	return nil
}

// commitDue dispatches AssignCore for every timeslice whose advance
// notice has elapsed by block, i.e. every T with (T - advance_notice) *
// timeslice_period <= block that has not yet been committed, per
// spec.md §4.5 step 2. T may run ahead of now_timeslice: advance notice
// exists precisely so the provider learns of an assignment before the
// timeslice it governs becomes active. Must be called with mu held.
func (b *Broker) commitDue(block uint64) {
	notice := b.cfg.AdvanceNotice
	for {
		t := b.nextCommit
		var noticeBlock uint64
		if t >= notice {
			noticeBlock = (t - notice) * b.cfg.TimeslicePeriod
		}
		if noticeBlock > block {
			return
		}
		b.commitTimeslice(t)
		b.nextCommit = t + 1
		b.status.LastCommittedTimeslice = t
	}
}

// commitTimeslice pops t's Workplan entry for every live core and
// dispatches it as an AssignCore directive, per spec.md §4.5 step 2 and
// §6's Consumer interface. A core with no Workplan entry still gets a
// directive with an empty (all-Idle) assignment list, matching the
// literal reading of spec.md §4.5 ("pop Workplan[T,c] for each live core
// c, emit AssignCore"): the provider needs an explicit notice that a
// core is idle for t just as much as it needs one for an occupied core.
// Must be called with mu held.
func (b *Broker) commitTimeslice(t region.Timeslice) {
	beginBlock := t * b.cfg.TimeslicePeriod
	for c := region.CoreIndex(0); c < b.status.CoreCount; c++ {
		items := b.plan.Pop(t, c)
		parts := make([]provider.AssignmentPart, 0, len(items))
		for _, it := range items {
			parts = append(parts, provider.AssignmentPart{
				Assignment: it.Assignment,
				Parts:      it.Mask.Area(),
			})
		}
		directive := provider.AssignCore{
			Core:       c,
			BeginBlock: beginBlock,
			Assignment: parts,
		}
		if _, err := b.providerClient.DispatchAssignCore(directive); err != nil {
			b.log.Error("assign_core directive rejected by provider", "core", c, "timeslice", t, "error", err)
			continue
		}
		b.metrics.AssignCoreEmitted.Inc()
	}
}

// updateGauges refreshes the diagnostic Prometheus gauges brokermetrics
// exposes. Must be called with mu held.
func (b *Broker) updateGauges() {
	b.metrics.LastTimeslice.Set(float64(b.status.LastTimeslice))
	b.metrics.LastCommitted.Set(float64(b.status.LastCommittedTimeslice))
	b.metrics.RegionsLive.Set(float64(b.regions.Len()))
	if b.currentSale != nil {
		b.metrics.CoresSold.Set(float64(b.currentSale.CoresSold))
		b.metrics.CoresOffered.Set(float64(b.currentSale.CoresOffered))
	}
}
