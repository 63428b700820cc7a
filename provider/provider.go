// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package provider defines the narrow interfaces the broker uses to talk
// to the downstream coretime provider. Only the provider's directive
// surface is modeled here; the provider's own scheduling, consensus and
// transport are out of this module's scope (spec.md §1).
package provider

import (
	"github.com/luxfi/broker/region"
	"github.com/luxfi/broker/workplan"
)

// AssignmentPart is one (assignment, parts) pair of an AssignCore
// directive; parts are in parts-per-57600 units and sum to at most
// coremask.PartsPerCore, with any remainder implicitly Idle.
type AssignmentPart struct {
	Assignment workplan.Assignment
	Parts      uint64
}

// AssignCore is the directive committing a core's schedule for the
// block at which it takes effect, per spec.md §6.
type AssignCore struct {
	Core       region.CoreIndex
	BeginBlock uint64
	Assignment []AssignmentPart
	EndHint    *uint64
}

// Consumer is the directive sink the broker drives: the coretime
// provider that consumes assignment and capacity directives.
type Consumer interface {
	// RequestCoreCount sets the provider's active core capacity.
	RequestCoreCount(n uint16) error
	// AssignCore commits a core's schedule, to take effect at
	// directive.BeginBlock.
	AssignCore(directive AssignCore) error
	// CreditAccount credits who's relay-chain account with amount of
	// coretime-purchasing credit, spec.md §6's `purchase_credit(...)`.
	// The balance debit from the buyer and the cross-chain delivery of
	// the credit are the currency module's and the provider's concern
	// respectively (both external collaborators per spec.md §1); this
	// directive is the broker's only responsibility, the same shape as
	// RequestCoreCount and AssignCore.
	CreditAccount(who region.Account, amount region.Balance) error
}

// Producer is the interface the provider uses to report revenue back to
// the broker. notify_revenue in spec.md §6.
type Producer interface {
	NotifyRevenue(when region.Timeslice, amount region.Balance) error
}
