// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package sale implements the sale engine: the rotating sale-period
// state machine, its price curve, and purchase/renewal bookkeeping, per
// spec.md §4.3.
package sale

import (
	"errors"

	"github.com/holiman/uint256"
	"github.com/luxfi/broker/coremask"
	"github.com/luxfi/broker/region"
	"github.com/luxfi/broker/workplan"
)

// Errors returned by the sale engine, mapped from spec.md §7's Market
// and Lifecycle error kinds.
var (
	ErrNoSales       = errors.New("sale: no sale in progress")
	ErrTooEarly      = errors.New("sale: sale has not started")
	ErrSoldOut       = errors.New("sale: all offered cores are sold")
	ErrOverpriced    = errors.New("sale: price exceeds the caller's limit")
	ErrUnknownRenewal = errors.New("sale: unknown potential renewal")
	ErrInvalidConfig = errors.New("sale: invalid configuration")
)

// Phase names the sale-period state machine's current phase.
type Phase uint8

const (
	Interlude Phase = iota
	LeadIn
	Active
)

// Info is the current sale period's parameters, SaleInfo of spec.md §3.
type Info struct {
	SaleStart       uint64 // relay block at which the lead-in begins.
	LeadinLength    uint64 // relay blocks.
	EndPrice        region.Balance
	SelloutPrice    region.Balance // nil until a sellout is observed.
	RegionBegin     region.Timeslice
	RegionEnd       region.Timeslice
	FirstCore       region.CoreIndex
	IdealCoresSold  region.CoreIndex
	CoresOffered    region.CoreIndex
	CoresSold       region.CoreIndex
}

// Remaining returns the number of cores still unsold this period.
func (i Info) Remaining() region.CoreIndex {
	return i.CoresOffered - i.CoresSold
}

// Phase returns the sale's current phase given the current relay block
// and the configured interlude length.
func (i Info) Phase(block uint64, interludeLength uint64) Phase {
	switch {
	case block < i.SaleStart:
		return Interlude
	case block < i.SaleStart+i.LeadinLength:
		return LeadIn
	default:
		return Active
	}
}

// PotentialRenewal is a reservation priced at a core's prior occupant to
// extend into the next period, keyed by (core, when) per spec.md §3.
type PotentialRenewal struct {
	Price      region.Balance
	Completion Completion
}

// Completion is Complete(schedule) | Partial(mask), the renewal's
// installable payload once consumed by renew, spec.md §3's
// CompletionStatus.
type Completion struct {
	// Schedule is non-nil for a Complete completion: the full-core
	// schedule to install on renewal.
	Schedule []workplan.Item
	// Partial is non-void for a Partial completion: only this mask of
	// the core renews, the rest stays open for other mutations.
	Partial coremask.Mask
}

// Renewals is the keyed (core, when) -> PotentialRenewal registry.
type Renewals struct {
	entries map[renewalKey]PotentialRenewal
}

type renewalKey struct {
	Core region.CoreIndex
	When region.Timeslice
}

// NewRenewals returns an empty renewal registry.
func NewRenewals() *Renewals {
	return &Renewals{entries: make(map[renewalKey]PotentialRenewal)}
}

// Set records a potential renewal at (core, when).
func (r *Renewals) Set(core region.CoreIndex, when region.Timeslice, renewal PotentialRenewal) {
	r.entries[renewalKey{Core: core, When: when}] = renewal
}

// Get returns the potential renewal at (core, when).
func (r *Renewals) Get(core region.CoreIndex, when region.Timeslice) (PotentialRenewal, error) {
	v, ok := r.entries[renewalKey{Core: core, When: when}]
	if !ok {
		return PotentialRenewal{}, ErrUnknownRenewal
	}
	return v, nil
}

// Remove drops the potential renewal at (core, when).
func (r *Renewals) Remove(core region.CoreIndex, when region.Timeslice) error {
	k := renewalKey{Core: core, When: when}
	if _, ok := r.entries[k]; !ok {
		return ErrUnknownRenewal
	}
	delete(r.entries, k)
	return nil
}

// Fraction is an integer numerator/denominator used for the renewal-bump
// and ideal-proportion arithmetic, avoiding floating point in on-ledger
// price computations.
type Fraction struct {
	Num   uint64 `json:"num"`
	Denom uint64 `json:"denom"`
}

// Apply returns floor(x * f), the integer-truncating fraction of x.
func (f Fraction) Apply(x region.Balance) region.Balance {
	if f.Denom == 0 {
		return region.NewBalance(0)
	}
	r := new(uint256.Int).Mul(x, region.NewBalance(f.Num))
	return r.Div(r, region.NewBalance(f.Denom))
}

// curveBreakpoint is one (progress fraction, price multiplier) vertex of
// the lead-in price curve.
type curveBreakpoint struct {
	Progress   Fraction
	Multiplier Fraction
}

// leadinCurve is the piecewise-linear lead-in price curve: starting price
// is 10x end_price at progress=0, decaying to 1x end_price at
// progress=leadin_length, per spec.md §4.3 ("starting price = 10 ×
// end_price; curve decays piecewise-linearly... monotonically
// non-increasing"). The interior breakpoints are this package's Open
// Question resolution (see DESIGN.md): two interior vertices at 1/3 and
// 2/3 progress, multipliers 4x and 2x, giving three linear segments
// between {10x, 4x, 2x, 1x}.
var leadinCurve = []curveBreakpoint{
	{Progress: Fraction{0, 3}, Multiplier: Fraction{10, 1}},
	{Progress: Fraction{1, 3}, Multiplier: Fraction{4, 1}},
	{Progress: Fraction{2, 3}, Multiplier: Fraction{2, 1}},
	{Progress: Fraction{3, 3}, Multiplier: Fraction{1, 1}},
}

// OpenMarketFloor returns the open-market price floor: the lead-in
// curve's starting (progress=0) price, 10x end_price. Renew applies the
// renewal bump to the higher of a renewal's price and this floor, and a
// lease converted at sale rotation is priced at it. Renewal prices
// already recorded are not reset to this floor when a period ends,
// whether or not that period sold out.
func OpenMarketFloor(endPrice region.Balance) region.Balance {
	return new(uint256.Int).Mul(endPrice, region.NewBalance(10))
}

// Config is the subset of brokercfg.Configuration the sale engine needs.
type Config struct {
	AdvanceNotice       uint64
	InterludeLength     uint64
	LeadinLength        uint64
	IdealBulkProportion Fraction
	LimitCoresOffered   region.CoreIndex
	RegionLength        region.Timeslice
	RenewalBump         Fraction
}

// Engine drives the sale-period state machine: the price curve, purchase
// and renewal bookkeeping, and period rotation.
type Engine struct {
	cfg      Config
	renewals *Renewals
}

// NewEngine returns a sale engine for cfg.
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg, renewals: NewRenewals()}
}

// Renewals returns the engine's potential-renewal registry.
func (e *Engine) Renewals() *Renewals { return e.renewals }

// Progress returns the lead-in progress fraction (in [0, leadin_length])
// for the given relay block, per spec.md §4.3: "relay blocks since
// sale_start - interlude_length, capped at leadin_length."
func (e *Engine) Progress(info Info, block uint64) uint64 {
	start := info.SaleStart - e.cfg.InterludeLength
	if block <= start {
		return 0
	}
	elapsed := block - start
	if elapsed > e.cfg.LeadinLength {
		return e.cfg.LeadinLength
	}
	return elapsed
}

// Price returns the current purchase price at the given relay block: the
// lead-in curve while progress < leadin_length, end_price once Active.
func (e *Engine) Price(info Info, block uint64) region.Balance {
	progress := e.Progress(info, block)
	if progress >= e.cfg.LeadinLength || e.cfg.LeadinLength == 0 {
		return new(uint256.Int).Set(info.EndPrice)
	}
	return interpolate(leadinCurve, progress, e.cfg.LeadinLength, info.EndPrice)
}

// interpolate evaluates the piecewise-linear curve at progress/length
// against the breakpoint table, scaled by endPrice.
func interpolate(curve []curveBreakpoint, progress, length uint64, endPrice region.Balance) region.Balance {
	// Locate the segment [lo, hi) containing progress, expressed as
	// Fraction(progress, length) against each breakpoint's Progress.
	for i := 0; i < len(curve)-1; i++ {
		lo, hi := curve[i], curve[i+1]
		loBlock := lo.Progress.Num * length / lo.Progress.Denom
		hiBlock := hi.Progress.Num * length / hi.Progress.Denom
		if progress < loBlock || progress > hiBlock {
			continue
		}
		if hiBlock == loBlock {
			return lo.Multiplier.Apply(endPrice)
		}
		// Linear interpolation between the two multipliers over
		// [loBlock, hiBlock], truncating integer division.
		loPrice := lo.Multiplier.Apply(endPrice)
		hiPrice := hi.Multiplier.Apply(endPrice)
		span := loPrice
		if hiPrice.Cmp(loPrice) >= 0 {
			span = new(uint256.Int).Sub(hiPrice, loPrice)
		} else {
			span = new(uint256.Int).Sub(loPrice, hiPrice)
		}
		delta := new(uint256.Int).Mul(span, region.NewBalance(progress-loBlock))
		delta = delta.Div(delta, region.NewBalance(hiBlock-loBlock))
		if hiPrice.Cmp(loPrice) >= 0 {
			return new(uint256.Int).Add(loPrice, delta)
		}
		return new(uint256.Int).Sub(loPrice, delta)
	}
	return new(uint256.Int).Set(endPrice)
}

// Purchase buys the next core at the current price, provided it does not
// exceed limit and cores remain. It mutates info's CoresSold (and, on
// sellout, SelloutPrice) in place and returns the paid price.
func (e *Engine) Purchase(info *Info, limit region.Balance, block uint64) (region.Balance, error) {
	if info.Remaining() == 0 {
		return nil, ErrSoldOut
	}
	price := e.Price(*info, block)
	if price.Cmp(limit) > 0 {
		return nil, ErrOverpriced
	}
	info.CoresSold++
	if info.Remaining() == 0 {
		info.SelloutPrice = new(uint256.Int).Set(price)
	}
	return price, nil
}

// Renew consumes the potential renewal at (core, when), deducting its
// current Price and bumping that price by renewal_bump against
// max(price, open_market_floor) for the *next* period's potential
// renewal, per spec.md §4.2/§8 scenario 4: the renewal being consumed is
// charged the prior period's pinned price (e.g. 910), while only the
// newly-inserted PotentialRenewal carries the bumped value (1001) that a
// later redemption will charge. charged is the amount to deduct now;
// next is the price to record in the new PotentialRenewal the caller
// (package broker) inserts one period ahead, since this engine has no
// notion of "next period" identity on its own.
func (e *Engine) Renew(core region.CoreIndex, when region.Timeslice, endPrice region.Balance) (charged region.Balance, next region.Balance, err error) {
	renewal, err := e.renewals.Get(core, when)
	if err != nil {
		return nil, nil, err
	}
	floor := OpenMarketFloor(endPrice)
	base := renewal.Price
	if floor.Cmp(base) > 0 {
		base = floor
	}
	bump := e.cfg.RenewalBump.Apply(base)
	next = new(uint256.Int).Add(renewal.Price, bump)
	if err := e.renewals.Remove(core, when); err != nil {
		return nil, nil, err
	}
	return renewal.Price, next, nil
}

// AdjustEndPrice computes the next period's end_price' per spec.md §4.3:
// if a sellout was observed (selloutPrice non-nil) and cores_sold >=
// ideal_cores_sold, raise end_price toward sellout_price; otherwise
// decay it toward end_price × ideal_bulk_proportion. Never below the
// floor of 1.
func AdjustEndPrice(prev region.Balance, selloutPrice region.Balance, coresSold, idealCoresSold region.CoreIndex, idealBulkProportion Fraction) region.Balance {
	floor := region.NewBalance(1)
	if prev.Sign() == 0 {
		return floor
	}
	var next region.Balance
	if selloutPrice != nil && coresSold >= idealCoresSold {
		if selloutPrice.Cmp(prev) > 0 {
			// Move halfway from prev toward sellout_price.
			delta := new(uint256.Int).Sub(selloutPrice, prev)
			next = new(uint256.Int).Add(prev, Fraction{1, 2}.Apply(delta))
		} else {
			next = new(uint256.Int).Set(prev)
		}
	} else {
		next = idealBulkProportion.Apply(prev)
	}
	if next.Sign() == 0 {
		return floor
	}
	return next
}
