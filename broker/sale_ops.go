// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package broker

import (
	"github.com/luxfi/broker/coremask"
	"github.com/luxfi/broker/region"
	"github.com/luxfi/broker/sale"
	"github.com/luxfi/broker/workplan"
)

// StartSales opens a new sale period with the given end_price and
// additional core count, spec.md §6's `start_sales(end_price,
// extra_cores)`. Any lease that ended before this call is dropped
// without conversion to a renewal.
func (b *Broker) StartSales(endPrice region.Balance, extraCores region.CoreIndex, block uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.requireConfigured(); err != nil {
		return err
	}

	b.leases.RemoveEnded(b.status.LastTimeslice)

	regionBegin := b.status.LastTimeslice
	regionEnd := regionBegin + region.Timeslice(b.cfg.RegionLength)
	firstCore := b.reservations.Apply(b.plan, regionBegin, regionEnd, 0)

	b.currentSale = &sale.Info{
		SaleStart:      block + b.cfg.InterludeLength,
		LeadinLength:   b.cfg.LeadinLength,
		EndPrice:       endPrice,
		RegionBegin:    regionBegin,
		RegionEnd:      regionEnd,
		FirstCore:      firstCore,
		IdealCoresSold: region.CoreIndex(b.cfg.IdealBulkProportion.Apply(region.NewBalance(uint64(b.cfg.LimitCoresOffered))).Uint64()),
		CoresOffered:   b.cfg.LimitCoresOffered + extraCores,
	}
	b.nextCore = firstCore + b.currentSale.CoresOffered
	b.log.Info("sale started", "sale_start", b.currentSale.SaleStart, "region_begin", regionBegin, "region_end", regionEnd, "first_core", firstCore)
	return b.requestCoreCountLocked()
}

// Purchase buys the next core of the active sale at the current price,
// provided it does not exceed priceLimit, spec.md §6's
// `purchase(price_limit)`.
func (b *Broker) Purchase(buyer region.Account, priceLimit region.Balance, block uint64) (region.ID, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.requireConfigured(); err != nil {
		return region.ID{}, err
	}
	if b.currentSale == nil {
		return region.ID{}, ErrNoSales
	}
	if block < b.currentSale.SaleStart {
		return region.ID{}, sale.ErrTooEarly
	}

	core := b.currentSale.FirstCore + b.currentSale.CoresSold
	price, err := b.saleEngine.Purchase(b.currentSale, priceLimit, block)
	if err != nil {
		return region.ID{}, err
	}

	id := region.ID{Begin: b.currentSale.RegionBegin, Core: core, Mask: coremask.Complete()}
	rec := region.Record{
		End:    b.currentSale.RegionEnd,
		Owner:  &buyer,
		Paid:   price,
		Origin: region.OriginPurchase,
	}
	if err := b.regions.Put(id, rec); err != nil {
		return region.ID{}, err
	}
	b.metrics.PurchasesTotal.Inc()
	b.emit(Event{Kind: RegionPurchased, Region: id, Amount: price})
	return id, nil
}

// Renew consumes the potential renewal recorded at (core, region_begin)
// of the active sale, installing its schedule and deducting price, spec.md
// §6's `renew(core)`.
func (b *Broker) Renew(core region.CoreIndex, block uint64) (region.Balance, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.requireConfigured(); err != nil {
		return nil, err
	}
	if b.currentSale == nil {
		return nil, ErrNoSales
	}

	when := b.currentSale.RegionBegin
	renewal, err := b.saleEngine.Renewals().Get(core, when)
	if err != nil {
		return nil, err
	}
	charged, next, err := b.saleEngine.Renew(core, when, b.currentSale.EndPrice)
	if err != nil {
		return nil, err
	}

	assignedCore := b.nextCore
	b.nextCore++
	if renewal.Completion.Schedule != nil {
		for _, item := range renewal.Completion.Schedule {
			b.plan.Insert(b.currentSale.RegionBegin, b.currentSale.RegionEnd, assignedCore, item.Mask, item.Assignment)
		}
	}

	b.saleEngine.Renewals().Set(assignedCore, b.currentSale.RegionEnd, sale.PotentialRenewal{
		Price:      next,
		Completion: renewal.Completion,
	})

	b.metrics.RenewalsTotal.Inc()
	b.emit(Event{Kind: RegionRenewed, Core: assignedCore, Amount: charged})
	return charged, nil
}

// PurchaseCredit dispatches a purchase_credit directive crediting who's
// relay-chain account with amount of coretime-purchasing credit, spec.md
// §6's `purchase_credit(amount, beneficiary)`. Debiting the buyer's
// balance is the currency module's concern and delivering the credit to
// the relay chain is the provider's concern (both external collaborators
// per spec.md §1 and SPEC_FULL.md's purchase_credit supplement); the
// broker's own responsibility is just deciding to dispatch the
// directive, the same shape as request_core_count and assign_core.
func (b *Broker) PurchaseCredit(who region.Account, amount region.Balance) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.requireConfigured(); err != nil {
		return err
	}
	if err := b.providerClient.CreditAccount(who, amount); err != nil {
		return err
	}
	b.metrics.CreditPurchasesTotal.Inc()
	b.emit(Event{Kind: CreditPurchased, Who: who, Amount: amount})
	return nil
}

// RotateSale closes the active sale period and opens the next one,
// spec.md §4.3's sale rotation: end_price adjusts toward (or away from)
// the observed sellout, region bounds advance by region_length, leases
// whose Until lies after the closing period's region_begin and at or
// before the new period's region_end convert to PotentialRenewals keyed
// at the new region_end, and reservations are re-applied to the
// lowest-numbered cores.
func (b *Broker) RotateSale() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.rotateSaleLocked()
}

// rotateSaleLocked is RotateSale's body, callable by Tick which already
// holds mu (spec.md §5: tick driver rotates the sale itself rather than
// reentering through the locking public method).
func (b *Broker) rotateSaleLocked() error {
	if err := b.requireConfigured(); err != nil {
		return err
	}
	if b.currentSale == nil {
		return ErrNoSales
	}
	prev := b.currentSale

	nextEndPrice := sale.AdjustEndPrice(prev.EndPrice, prev.SelloutPrice, prev.CoresSold, prev.IdealCoresSold, b.cfg.IdealBulkProportion)
	regionBegin := prev.RegionEnd
	regionEnd := regionBegin + region.Timeslice(b.cfg.RegionLength)
	firstCore := b.reservations.Apply(b.plan, regionBegin, regionEnd, 0)

	for _, expiring := range b.leases.RemoveExpiring(prev.RegionBegin, regionEnd) {
		schedule := []workplan.Item{{Mask: coremask.Complete(), Assignment: workplan.TaskAssignment(expiring.Task)}}
		b.saleEngine.Renewals().Set(firstCore, regionEnd, sale.PotentialRenewal{
			Price:      sale.OpenMarketFloor(nextEndPrice),
			Completion: sale.Completion{Schedule: schedule},
		})
		firstCore++
		b.emit(Event{Kind: SaleRotated, Task: expiring.Task})
	}

	b.currentSale = &sale.Info{
		SaleStart:      prev.SaleStart + b.cfg.RegionLength*b.cfg.TimeslicePeriod,
		LeadinLength:   b.cfg.LeadinLength,
		EndPrice:       nextEndPrice,
		RegionBegin:    regionBegin,
		RegionEnd:      regionEnd,
		FirstCore:      firstCore,
		IdealCoresSold: prev.IdealCoresSold,
		CoresOffered:   b.cfg.LimitCoresOffered,
	}
	b.nextCore = firstCore + b.currentSale.CoresOffered
	return nil
}
