// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package broker

import (
	"github.com/ethereum/go-ethereum/event"
	"github.com/luxfi/broker/region"
)

// EventKind discriminates the broker's event log entries, spec.md §6's
// event log and §4.2's RegionDropped.
type EventKind uint8

const (
	// RegionDropped fires when a stale region (one whose begin has
	// already been committed to the provider) is edited, or when
	// drop_region removes an elapsed record.
	RegionDropped EventKind = iota
	// RegionPurchased fires on a successful bulk-sale purchase.
	RegionPurchased
	// RegionRenewed fires on a successful renewal.
	RegionRenewed
	// CoreCountRequested fires whenever the broker recomputes and
	// changes its requested core capacity.
	CoreCountRequested
	// RevenueClaimed fires on a successful claim_revenue payout.
	RevenueClaimed
	// SaleRotated fires during a sale rotation once for each expiring
	// lease converted into a PotentialRenewal, with Task naming the
	// lease's task; a rotation that converts no lease emits none.
	SaleRotated
	// SystemRevenueCredited fires when a drained revenue report's
	// system-pool share is computed, standing in for the currency
	// module transfer spec.md §4.4 describes ("credited to the system
	// account immediately"); the transfer itself is out of scope per
	// spec.md §1.
	SystemRevenueCredited
	// CreditPurchased fires when purchase_credit dispatches a
	// CreditAccount directive to the provider.
	CreditPurchased
)

// Event is the broker's single event type, sent over the Broker's
// event.Feed the way core/txpool sends a single reset/promote event
// struct per subscriber rather than one Feed per kind.
type Event struct {
	Kind   EventKind
	Region region.ID
	Core   region.CoreIndex
	Task   region.TaskID
	Amount region.Balance
	N      uint16
	Who    region.Account
}

// SubscribeEvents registers ch to receive the broker's event log,
// mirroring core/txpool's SubscribeTransactions built on
// github.com/ethereum/go-ethereum/event.Feed.
func (b *Broker) SubscribeEvents(ch chan<- Event) event.Subscription {
	return b.feed.Subscribe(ch)
}

func (b *Broker) emit(e Event) {
	b.feed.Send(e)
}
