// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package broker implements the Broker aggregate root: the coretime
// broker's mutable state and the user extrinsics and tick driver that
// operate on it, wiring together region, workplan, sale, lease,
// reservation, instapool and provider.
package broker

import (
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/ethereum/go-ethereum/event"
	"github.com/luxfi/broker/brokercfg"
	"github.com/luxfi/broker/brokermetrics"
	"github.com/luxfi/broker/instapool"
	"github.com/luxfi/broker/lease"
	"github.com/luxfi/broker/provider"
	"github.com/luxfi/broker/region"
	"github.com/luxfi/broker/reservation"
	"github.com/luxfi/broker/sale"
	"github.com/luxfi/broker/workplan"
	"github.com/luxfi/log"
)

// Broker is the single mutable aggregate root, spec.md §5's "single
// logical transaction per extrinsic" model: one goroutine (the outer
// chain's block-processing loop) drives every method, guarded by mu only
// so concurrent read-only diagnostics (metrics scrapes, status queries)
// are race-free.
type Broker struct {
	mu sync.Mutex

	cfg         brokercfg.Configuration
	configured  bool
	status      Status
	currentSale *sale.Info

	regions      *region.Store
	plan         *workplan.Plan
	saleEngine   *sale.Engine
	leases       *lease.Registry
	reservations *reservation.Registry
	pool         *instapool.Pool

	providerClient *provider.Client
	metrics        *brokermetrics.Metrics
	log            log.Logger
	feed           event.Feed

	nextCore    region.CoreIndex
	nextCommit  region.Timeslice

	pendingRevenue []revenueReport
}

// New returns an unconfigured Broker dispatching directives through
// consumer, reporting metrics under namespace.
func New(consumer provider.Consumer, namespace string) *Broker {
	return &Broker{
		regions:        region.NewStore(),
		plan:           workplan.New(),
		providerClient: provider.NewClient(consumer),
		metrics:        brokermetrics.New(namespace),
		log:            log.New(),
	}
}

// Configure installs cfg, validating it first. It may be called again
// later to update governance parameters; doing so does not affect an
// in-progress sale.
func (b *Broker) Configure(cfg brokercfg.Configuration) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cfg = cfg
	b.configured = true
	if b.saleEngine == nil {
		b.saleEngine = sale.NewEngine(cfg.SaleConfig())
	}
	if b.leases == nil {
		b.leases = lease.NewRegistry(cfg.LeaseReservationLimit)
	}
	if b.reservations == nil {
		b.reservations = reservation.NewRegistry(cfg.LeaseReservationLimit)
	}
	if b.pool == nil {
		pool, err := instapool.New(region.Timeslice(cfg.ContributionTimeout), 4096)
		if err != nil {
			return err
		}
		b.pool = pool
	}
	b.log.Info("broker configured", "leadin_length", cfg.LeadinLength, "region_length", cfg.RegionLength)
	return nil
}

func (b *Broker) requireConfigured() error {
	if !b.configured {
		return ErrUninitialized
	}
	return nil
}

// Reserve appends a reservation schedule, spec.md §6's `reserve`. Since
// this changes the union of demand spec.md §4.3's core-count-request
// rule tracks, it also recomputes and, if changed, dispatches
// request_core_count.
func (b *Broker) Reserve(schedule reservation.Schedule) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.requireConfigured(); err != nil {
		return err
	}
	if err := b.reservations.Reserve(schedule); err != nil {
		return err
	}
	return b.requestCoreCountLocked()
}

// Unreserve removes the reservation at index, spec.md §6's `unreserve`.
func (b *Broker) Unreserve(index int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.requireConfigured(); err != nil {
		return err
	}
	if err := b.reservations.Unreserve(index); err != nil {
		return err
	}
	return b.requestCoreCountLocked()
}

// SetLease records a lease holding a core for task until the given
// timeslice, spec.md §6's `set_lease`. Also recomputes
// request_core_count, per spec.md §4.3.
func (b *Broker) SetLease(task region.TaskID, until region.Timeslice) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.requireConfigured(); err != nil {
		return err
	}
	if err := b.leases.Set(task, until); err != nil {
		return err
	}
	return b.requestCoreCountLocked()
}

// RequestCoreCount recomputes and, if changed, dispatches a
// request_core_count directive reflecting the union of reservations,
// active leases, this sale's offered cores, and both pool sizes, per
// spec.md §4.3's core-count-request rule.
func (b *Broker) RequestCoreCount() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.requestCoreCountLocked()
}

// requestCoreCountLocked is RequestCoreCount's body, callable by Tick
// (which already holds mu) after a sale rotation changes the union of
// demand, per spec.md §4.3's core-count-request rule.
func (b *Broker) requestCoreCountLocked() error {
	n := b.desiredCoreCount()
	if n == b.status.CoreCount {
		return nil
	}
	b.status.CoreCount = n
	if err := b.providerClient.RequestCoreCount(n); err != nil {
		return err
	}
	b.emit(Event{Kind: CoreCountRequested, N: n})
	return nil
}

// desiredCoreCount computes the union-of-demand core count. Reservation
// and lease core indices are deduplicated with a set, per spec.md §4.3:
// "the union of (reservations + active leases + cores offered this sale
// + system pool + private pool)". Must be called with mu held.
func (b *Broker) desiredCoreCount() uint16 {
	cores := mapset.NewThreadUnsafeSet[region.CoreIndex]()
	if b.reservations != nil {
		core := region.CoreIndex(0)
		for range b.reservations.All() {
			cores.Add(core)
			core++
		}
	}
	if b.leases != nil {
		core := region.CoreIndex(cores.Cardinality())
		for range b.leases.All() {
			cores.Add(core)
			core++
		}
	}
	offered := region.CoreIndex(0)
	if b.currentSale != nil {
		offered = b.currentSale.CoresOffered
	}
	total := uint32(cores.Cardinality()) + uint32(offered)
	if b.status.SystemPoolSize > 0 || b.status.PrivatePoolSize > 0 {
		total++
	}
	if total > 0xffff {
		total = 0xffff
	}
	return uint16(total)
}
