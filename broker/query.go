// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package broker

import (
	"github.com/luxfi/broker/coremask"
	"github.com/luxfi/broker/region"
	"github.com/luxfi/broker/sale"
)

// Status returns a snapshot of the broker's scalar runtime state,
// spec.md §3's Status record.
func (b *Broker) Status() Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.status
}

// CurrentSale returns a snapshot of the active sale period's parameters
// and whether one is in progress.
func (b *Broker) CurrentSale() (sale.Info, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.currentSale == nil {
		return sale.Info{}, false
	}
	return *b.currentSale, true
}

// Regions exposes the underlying region store for read-only queries
// (owner lookups, attribute surfaces, test/diagnostic iteration). It
// returns the broker's own *Store, so the store's exported Put/Delete
// are reachable through it; callers are expected to treat it as
// read-only, mirroring how core/txpool exposes its Pending snapshot
// without a separate read-only wrapper type.
func (b *Broker) Regions() *region.Store {
	return b.regions
}

// Owner returns the owner of id, or nil if the region is burned, per
// spec.md §6's non-fungible surface: owner(id).
func (b *Broker) Owner(id region.ID) (*region.Account, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return region.Owner(b.regions, id)
}

// Attributes is the NFT attribute surface spec.md §6 defines for a
// region: begin, length, end, owner, part (mask), core, paid.
// set_attribute is unsupported, per spec.md §6: there is deliberately no
// corresponding setter.
type Attributes struct {
	Begin  region.Timeslice
	Length region.Timeslice
	End    region.Timeslice
	Owner  *region.Account
	Part   coremask.Mask
	Core   region.CoreIndex
	Paid   region.Balance
}

// RegionAttributes returns id's NFT attribute surface.
func (b *Broker) RegionAttributes(id region.ID) (Attributes, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	rec, err := b.regions.Get(id)
	if err != nil {
		return Attributes{}, err
	}
	return Attributes{
		Begin:  id.Begin,
		Length: rec.End - id.Begin,
		End:    rec.End,
		Owner:  rec.Owner,
		Part:   id.Mask,
		Core:   id.Core,
		Paid:   rec.Paid,
	}, nil
}

// MintInto mints a burned region to who, per spec.md §6's non-fungible
// surface: mint_into(id, who) only succeeds on a currently-burned
// region.
func (b *Broker) MintInto(id region.ID, who region.Account) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return region.MintInto(b.regions, id, who)
}

// BurnRegion clears id's owner, spec.md §6's non-fungible surface:
// burn(id, from).
func (b *Broker) BurnRegion(id region.ID, from region.Account) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return region.Burn(b.regions, id, from)
}
