// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package brokercfg holds the coretime broker's Configuration: the
// governance-settable parameters of spec.md §3, their defaults, and
// validation, in the style of the teacher's params/extras chain-config
// allowlists (hand-rolled Validate, package-level defaults, no magic
// reflection-based loading).
package brokercfg

import (
	"errors"
	"fmt"

	"github.com/luxfi/broker/sale"
)

// Validation errors for Configuration, spec.md §7's InvalidConfig kind.
var (
	ErrLeadinTooShort       = errors.New("brokercfg: leadin_length must be at least 1")
	ErrRegionTooShort       = errors.New("brokercfg: region_length must be at least 1")
	ErrTimeslicePeriodZero  = errors.New("brokercfg: timeslice_period must be non-zero")
	ErrRenewalBumpZeroDenom = errors.New("brokercfg: renewal_bump denominator must be non-zero")
	ErrBulkProportionDenom  = errors.New("brokercfg: ideal_bulk_proportion denominator must be non-zero")
	ErrLimitCoresZero       = errors.New("brokercfg: limit_cores_offered must be non-zero")
)

// Configuration is the broker's governance-settable parameter set,
// spec.md §3's Configuration record.
type Configuration struct {
	// AdvanceNotice is how many timeslices before a timeslice becomes
	// active its AssignCore directive is emitted to the provider.
	AdvanceNotice uint64 `json:"advanceNotice"`
	// InterludeLength is the renewals-only window, in relay blocks,
	// preceding a sale's lead-in.
	InterludeLength uint64 `json:"interludeLength"`
	// LeadinLength is the declining-price window, in relay blocks. Must
	// be at least 1.
	LeadinLength uint64 `json:"leadinLength"`
	// IdealBulkProportion is the target fraction of offered cores a
	// sale should sell, used by the end_price adjustment curve.
	IdealBulkProportion sale.Fraction `json:"idealBulkProportion"`
	// LimitCoresOffered bounds how many cores a single sale period
	// offers.
	LimitCoresOffered uint16 `json:"limitCoresOffered"`
	// RegionLength is the number of timeslices a sold region spans.
	// Must be at least 1.
	RegionLength uint64 `json:"regionLength"`
	// RenewalBump is the fractional price increase applied to a
	// renewal against its prior price (or the open-market floor,
	// whichever is larger).
	RenewalBump sale.Fraction `json:"renewalBump"`
	// ContributionTimeout is how many timeslices an instantaneous-pool
	// revenue report remains claimable after its timeslice elapses.
	ContributionTimeout uint64 `json:"contributionTimeout"`
	// TimeslicePeriod is the number of relay blocks spanned by one
	// timeslice.
	TimeslicePeriod uint64 `json:"timeslicePeriod"`
	// LeaseReservationLimit bounds the lease and reservation registries.
	LeaseReservationLimit int `json:"leaseReservationLimit"`
}

// Default returns the package's reference default configuration, the
// parameters scenario 1-6 of spec.md §8 are pinned against.
func Default() Configuration {
	return Configuration{
		AdvanceNotice:         2,
		InterludeLength:       10,
		LeadinLength:          30,
		IdealBulkProportion:   sale.Fraction{1, 2},
		LimitCoresOffered:     10,
		RegionLength:          3,
		RenewalBump:           sale.Fraction{1, 10},
		ContributionTimeout:   5,
		TimeslicePeriod:       2,
		LeaseReservationLimit: 32,
	}
}

// Validate checks the configuration's invariants, returning a wrapped
// sentinel error naming the first violation found.
func (c Configuration) Validate() error {
	if c.LeadinLength < 1 {
		return fmt.Errorf("%w: got %d", ErrLeadinTooShort, c.LeadinLength)
	}
	if c.RegionLength < 1 {
		return fmt.Errorf("%w: got %d", ErrRegionTooShort, c.RegionLength)
	}
	if c.TimeslicePeriod == 0 {
		return ErrTimeslicePeriodZero
	}
	if c.RenewalBump.Denom == 0 {
		return ErrRenewalBumpZeroDenom
	}
	if c.IdealBulkProportion.Denom == 0 {
		return ErrBulkProportionDenom
	}
	if c.LimitCoresOffered == 0 {
		return ErrLimitCoresZero
	}
	return nil
}

// SaleConfig projects the subset of Configuration the sale engine
// consumes.
func (c Configuration) SaleConfig() sale.Config {
	return sale.Config{
		AdvanceNotice:       c.AdvanceNotice,
		InterludeLength:     c.InterludeLength,
		LeadinLength:        c.LeadinLength,
		IdealBulkProportion: c.IdealBulkProportion,
		LimitCoresOffered:   c.LimitCoresOffered,
		RegionLength:        c.RegionLength,
		RenewalBump:         c.RenewalBump,
	}
}
