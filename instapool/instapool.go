// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package instapool implements the instantaneous-pool accounting: the
// per-region contribution set, the per-timeslice net-io ledger, the
// revenue-report/claim history, and the claim itself, per spec.md §4.4.
package instapool

import (
	"errors"

	lru "github.com/hashicorp/golang-lru"
	"github.com/holiman/uint256"
	"github.com/luxfi/broker/region"
)

var (
	// ErrUnknownContribution is returned when a region has no live pool
	// contribution.
	ErrUnknownContribution = errors.New("instapool: unknown contribution")
	// ErrNoHistory is returned when there is no revenue history for a
	// timeslice.
	ErrNoHistory = errors.New("instapool: no history for timeslice")
	// ErrStillValid is returned by DropHistory when the contribution
	// timeout has not yet elapsed.
	ErrStillValid = errors.New("instapool: history has not yet timed out")
	// ErrAlreadyClaimed names the "nothing left to pay out" case. Claim
	// does not return it: it skips timeslices already claimed for a
	// region and returns a zero payout with a nil error.
	ErrAlreadyClaimed = errors.New("instapool: already claimed")
)

// Contribution is the live InstaPoolContribution for a pooled region:
// its owed payee and the number of timeslices of capacity it covers.
type Contribution struct {
	Payee  region.Account
	Length uint32
}

// IO is the net private/system capacity entering or leaving the pool at
// a timeslice, from reservation/lease churn and sale rotation.
type IO struct {
	PrivateDelta int64
	SystemDelta  int64
}

// History is the retained revenue-report record for one timeslice:
// the total contributions at that timeslice (the divisor used when a
// claim is paid out) and the remainder pot still available for claim.
type History struct {
	TotalContributions uint64
	Pot                region.Balance
}

// Pool is the instantaneous-pool ledger.
type Pool struct {
	contributions map[region.ID]Contribution
	io            map[region.Timeslice]IO
	history       *lru.Cache // Timeslice -> *History
	// claimed tracks, per (region, timeslice), whether a claim has
	// already been paid, so a region cannot double-claim the same
	// timeslice's pot.
	claimed map[claimKey]bool

	contributionTimeout region.Timeslice
}

type claimKey struct {
	ID region.ID
	T  region.Timeslice
}

// New returns an empty Pool. historyCapacity bounds the size of the
// revenue-history cache as a storage safety net on top of the explicit
// contribution-timeout removal done by DropHistory.
func New(contributionTimeout region.Timeslice, historyCapacity int) (*Pool, error) {
	cache, err := lru.New(historyCapacity)
	if err != nil {
		return nil, err
	}
	return &Pool{
		contributions:       make(map[region.ID]Contribution),
		io:                  make(map[region.Timeslice]IO),
		history:             cache,
		claimed:             make(map[claimKey]bool),
		contributionTimeout: contributionTimeout,
	}, nil
}

// Contribute records a region's pool delegation.
func (p *Pool) Contribute(id region.ID, payee region.Account, length uint32) {
	p.contributions[id] = Contribution{Payee: payee, Length: length}
}

// Contribution returns the live contribution for id.
func (p *Pool) Contribution(id region.ID) (Contribution, error) {
	c, ok := p.contributions[id]
	if !ok {
		return Contribution{}, ErrUnknownContribution
	}
	return c, nil
}

// DropContribution removes a region's live contribution (it has been
// consumed into a Final pool assignment and is retained only until its
// revenue claim handle expires, which is tracked via claimed/history,
// not via this map).
func (p *Pool) DropContribution(id region.ID) error {
	if _, ok := p.contributions[id]; !ok {
		return ErrUnknownContribution
	}
	delete(p.contributions, id)
	return nil
}

// TotalContributionsAt sums, over every live contribution, the area
// areas gives for its region. Callers pass the per-region area directly;
// contributions are not filtered by timeslice here.
func (p *Pool) TotalContributionsAt(areas map[region.ID]uint64) uint64 {
	var total uint64
	for id := range p.contributions {
		total += areas[id]
	}
	return total
}

// RecordIO adds a net capacity delta at timeslice t (positive or
// negative), from reservation/lease churn entering or leaving the pool.
func (p *Pool) RecordIO(t region.Timeslice, private, system int64) {
	io := p.io[t]
	io.PrivateDelta += private
	io.SystemDelta += system
	p.io[t] = io
}

// IOAt returns the net io recorded at timeslice t.
func (p *Pool) IOAt(t region.Timeslice) IO {
	return p.io[t]
}

// IngestRevenue splits a revenue report of amount earned during
// timeslice when, per spec.md §4.4: system_fraction = system_pool_size /
// total_pool_at(when) is credited immediately (returned to the caller to
// transfer), and the remainder is retained in a pot keyed by when,
// together with the total mask area of the live contributions covering
// when (the divisor claims are paid against). total is the total pool
// capacity (private + system) active at `when`.
func (p *Pool) IngestRevenue(when region.Timeslice, amount region.Balance, systemPoolSize, totalPool uint64) (systemShare region.Balance, err error) {
	if totalPool == 0 {
		// Nothing to attribute the revenue to; the whole amount is
		// system revenue by convention.
		zero := region.NewBalance(0)
		p.setHistory(when, 0, zero)
		return amount, nil
	}

	systemShare = new(uint256.Int).Mul(amount, region.NewBalance(systemPoolSize))
	systemShare = systemShare.Div(systemShare, region.NewBalance(totalPool))

	remainder := new(uint256.Int).Sub(amount, systemShare)
	var contributed uint64
	for id, c := range p.contributions {
		if id.Begin <= when && when < id.Begin+region.Timeslice(c.Length) {
			contributed += id.Mask.Area()
		}
	}
	p.setHistory(when, contributed, remainder)
	return systemShare, nil
}

func (p *Pool) setHistory(when region.Timeslice, totalContributions uint64, pot region.Balance) {
	p.history.Add(when, &History{TotalContributions: totalContributions, Pot: pot})
}

// HistoryAt returns the retained history for timeslice t.
func (p *Pool) HistoryAt(t region.Timeslice) (*History, error) {
	v, ok := p.history.Get(t)
	if !ok {
		return nil, ErrNoHistory
	}
	return v.(*History), nil
}

// DropHistory removes the history entry for t, provided its contribution
// timeout has elapsed relative to now, per the Open Question resolution
// in SPEC_FULL.md §6.6: droppable once now > t + contributionTimeout.
func (p *Pool) DropHistory(t region.Timeslice, now region.Timeslice) error {
	if !p.history.Contains(t) {
		return ErrNoHistory
	}
	if now <= t+p.contributionTimeout {
		return ErrStillValid
	}
	p.history.Remove(t)
	return nil
}

// Claim pays out a pooled region's share of up to maxTimeslices of
// retained history, starting at region's begin, per spec.md §4.4:
// pot[T*] * (region area / total contributions at T*). regionArea is the
// claiming region's mask area. It returns the total payable amount and
// the list of timeslices it claimed against; each of them is marked
// claimed for id, so a later Claim skips it.
func (p *Pool) Claim(id region.ID, regionArea uint64, begin region.Timeslice, maxTimeslices uint32) (payout region.Balance, claimed []region.Timeslice, err error) {
	payout = region.NewBalance(0)
	for i := uint32(0); i < maxTimeslices; i++ {
		t := begin + region.Timeslice(i)
		v, ok := p.history.Get(t)
		if !ok {
			continue
		}
		if p.claimed[claimKey{ID: id, T: t}] {
			continue
		}
		h := v.(*History)
		if h.TotalContributions == 0 || h.Pot.Sign() == 0 {
			continue
		}
		share := new(uint256.Int).Mul(h.Pot, region.NewBalance(regionArea))
		share = share.Div(share, region.NewBalance(h.TotalContributions))
		payout = new(uint256.Int).Add(payout, share)
		p.claimed[claimKey{ID: id, T: t}] = true
		claimed = append(claimed, t)
	}
	return payout, claimed, nil
}
