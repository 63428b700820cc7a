// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package broker

import (
	"github.com/luxfi/broker/coremask"
	"github.com/luxfi/broker/region"
	"github.com/luxfi/broker/workplan"
)

// Transfer changes id's owner, spec.md §6's `transfer`.
func (b *Broker) Transfer(id region.ID, caller, to region.Account) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return region.Transfer(b.regions, id, caller, to)
}

// Partition splits id at pivotOffset timeslices, spec.md §6's
// `partition(region, pivot)`.
func (b *Broker) Partition(id region.ID, caller region.Account, pivotOffset region.Timeslice) (left, right region.ID, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return region.Partition(b.regions, id, caller, pivotOffset)
}

// Interlace splits id's mask into newMask and its complement, spec.md
// §6's `interlace(region, mask)`.
func (b *Broker) Interlace(id region.ID, caller region.Account, newMask coremask.Mask) (left, right region.ID, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return region.Interlace(b.regions, id, caller, newMask)
}

// Assign installs task onto id's (timeslice, core) schedule for the
// region's whole span, spec.md §6's `assign(region, task, finality)`
// and §4.2's Assign operation.
func (b *Broker) Assign(id region.ID, caller region.Account, task region.TaskID, finality region.Finality) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.installAssignment(id, caller, workplan.TaskAssignment(task), finality)
}

// Pool delegates id to the instantaneous pool under payee, spec.md §6's
// `pool(region, payee, finality)` and §4.2's Pool operation.
func (b *Broker) Pool(id region.ID, caller, payee region.Account, finality region.Finality) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	rec, err := b.regions.Get(id)
	if err != nil {
		return err
	}
	length := uint32(rec.End - id.Begin)
	if err := b.installAssignment(id, caller, workplan.PoolAssignment(), finality); err != nil {
		return err
	}
	b.pool.Contribute(id, payee, length)
	return nil
}

// installAssignment is the shared body of Assign and Pool: it edits the
// Workplan for every timeslice the region spans and, on Final finality,
// removes the region's handle. If the region's begin has already been
// committed to the provider (stale), it is dropped with a RegionDropped
// event instead of edited, per spec.md §4.2.
func (b *Broker) installAssignment(id region.ID, caller region.Account, assignment workplan.Assignment, finality region.Finality) error {
	rec, err := b.regions.Get(id)
	if err != nil {
		return err
	}
	if rec.Owner == nil || *rec.Owner != caller {
		return region.ErrNotOwner
	}

	if id.Begin < b.nextCommit {
		b.regions.Delete(id)
		b.emit(Event{Kind: RegionDropped, Region: id})
		return nil
	}

	for t := id.Begin; t < rec.End; t++ {
		b.plan.Insert(t, t+1, id.Core, id.Mask, assignment)
	}

	if finality == region.Final {
		b.regions.Delete(id)
	}
	return nil
}

// DropRegion removes id's record once its recorded end has elapsed
// relative to Status.LastTimeslice, per SPEC_FULL.md §6.2: the caller
// must supply the region's recorded end, which must match and must have
// already elapsed, else StillValid.
func (b *Broker) DropRegion(id region.ID, end region.Timeslice) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	rec, err := b.regions.Get(id)
	if err != nil {
		return err
	}
	if rec.End != end {
		return ErrStillValid
	}
	if b.status.LastTimeslice <= end {
		return ErrStillValid
	}
	b.regions.Delete(id)
	b.emit(Event{Kind: RegionDropped, Region: id})
	return nil
}

// DropRenewal removes the potential renewal at (core, when), spec.md
// §6's `drop_renewal`.
func (b *Broker) DropRenewal(core region.CoreIndex, when region.Timeslice) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.saleEngine.Renewals().Remove(core, when)
}

// DropContribution removes id's live pool contribution, spec.md §6's
// `drop_contribution`.
func (b *Broker) DropContribution(id region.ID) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pool.DropContribution(id)
}

// DropHistory removes the pool revenue history for timeslice t, once its
// contribution timeout has elapsed, spec.md §6's `drop_history`.
func (b *Broker) DropHistory(t region.Timeslice) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pool.DropHistory(t, b.status.LastTimeslice)
}

// ClaimRevenue pays out id's share of up to maxTimeslices of retained
// pool revenue history, spec.md §6's `claim_revenue(region, max_timeslices)`.
func (b *Broker) ClaimRevenue(id region.ID, maxTimeslices uint32) (region.Balance, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if maxTimeslices == 0 {
		return nil, ErrNoClaimTimeslices
	}
	if _, err := b.pool.Contribution(id); err != nil {
		return nil, err
	}
	payout, _, err := b.pool.Claim(id, id.Mask.Area(), id.Begin, maxTimeslices)
	if err != nil {
		return nil, err
	}
	b.metrics.PoolClaimsTotal.Inc()
	b.emit(Event{Kind: RevenueClaimed, Region: id, Amount: payout})
	return payout, nil
}

// revenueReport is one queued notify_revenue call, drained by the tick
// driver rather than processed inline, since the provider may call
// NotifyRevenue concurrently with block processing (spec.md §6:
// `notify_revenue` "invoked up to CT timeslices after T").
type revenueReport struct {
	when   region.Timeslice
	amount region.Balance
}

// NotifyRevenue implements provider.Producer: it queues when/amount for
// the next Tick to drain, rather than mutating pool state inline.
func (b *Broker) NotifyRevenue(when region.Timeslice, amount region.Balance) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pendingRevenue = append(b.pendingRevenue, revenueReport{when: when, amount: amount})
	return nil
}

// drainRevenue processes every queued revenue report: crediting the
// system's immediate share and retaining the remainder in the pool's
// claim-window pot, per spec.md §4.4. Must be called with mu held.
func (b *Broker) drainRevenue() {
	for _, r := range b.pendingRevenue {
		total := b.status.SystemPoolSize + b.status.PrivatePoolSize
		systemShare, err := b.pool.IngestRevenue(r.when, r.amount, b.status.SystemPoolSize, total)
		if err != nil {
			b.log.Error("failed to ingest revenue report", "when", r.when, "error", err)
			continue
		}
		b.metrics.InstaPoolRevenue.Add(float64(r.amount.Uint64()))
		if systemShare.Sign() > 0 {
			b.emit(Event{Kind: SystemRevenueCredited, Amount: systemShare})
		}
	}
	b.pendingRevenue = b.pendingRevenue[:0]
}
