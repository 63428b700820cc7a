// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package region

import "github.com/luxfi/broker/coremask"

// Owner returns the owner of id, or nil if unknown/burned. Implements
// part of the NFT surface (spec.md §6: owner(id)).
func Owner(s *Store, id ID) (*Account, error) {
	rec, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	return rec.Owner, nil
}

// Transfer changes the owner of id and clears Paid, per spec.md §4.2.
func Transfer(s *Store, id ID, caller Account, to Account) error {
	rec, err := s.Get(id)
	if err != nil {
		return err
	}
	if rec.Owner == nil || *rec.Owner != caller {
		return ErrNotOwner
	}
	rec.Owner = &to
	rec.Paid = nil
	s.records[id] = rec
	return nil
}

// Partition splits id at pivotOffset timeslices into [begin,
// begin+pivot) and [begin+pivot, end). Both children inherit the owner;
// Paid carries to the first child only, per spec.md §4.2.
func Partition(s *Store, id ID, caller Account, pivotOffset Timeslice) (ID, ID, error) {
	rec, err := s.Get(id)
	if err != nil {
		return ID{}, ID{}, err
	}
	if rec.Owner == nil || *rec.Owner != caller {
		return ID{}, ID{}, ErrNotOwner
	}
	if pivotOffset == 0 {
		return ID{}, ID{}, ErrPivotTooEarly
	}
	if id.Begin+pivotOffset >= rec.End {
		return ID{}, ID{}, ErrPivotTooLate
	}

	left := ID{Begin: id.Begin, Core: id.Core, Mask: id.Mask}
	right := ID{Begin: id.Begin + pivotOffset, Core: id.Core, Mask: id.Mask}

	leftRec := Record{End: id.Begin + pivotOffset, Owner: rec.Owner, Paid: rec.Paid, Origin: rec.Origin}
	rightRec := Record{End: rec.End, Owner: rec.Owner, Paid: nil, Origin: rec.Origin}

	s.Delete(id)
	s.records[left] = leftRec
	s.records[right] = rightRec
	return left, right, nil
}

// Interlace splits id's mask into newMask and its complement within the
// region's mask, preserving owner on both children and clearing Paid on
// both, per spec.md §4.2.
func Interlace(s *Store, id ID, caller Account, newMask coremask.Mask) (ID, ID, error) {
	rec, err := s.Get(id)
	if err != nil {
		return ID{}, ID{}, err
	}
	if rec.Owner == nil || *rec.Owner != caller {
		return ID{}, ID{}, ErrNotOwner
	}
	if newMask.IsVoid() {
		return ID{}, ID{}, ErrVoidPivot
	}
	if newMask.Equal(id.Mask) {
		return ID{}, ID{}, ErrCompletePivot
	}
	if !newMask.IsSubsetOf(id.Mask) {
		return ID{}, ID{}, ErrNotSubsetMask
	}

	remainder := id.Mask.Without(newMask)

	r1 := ID{Begin: id.Begin, Core: id.Core, Mask: newMask}
	r2 := ID{Begin: id.Begin, Core: id.Core, Mask: remainder}

	childRec := Record{End: rec.End, Owner: rec.Owner, Paid: nil, Origin: rec.Origin}

	s.Delete(id)
	s.records[r1] = childRec
	s.records[r2] = childRec
	return r1, r2, nil
}

// MintInto mints a burned region to who. Only succeeds if the region is
// currently burned (Owner == nil), per spec.md §6.
func MintInto(s *Store, id ID, who Account) error {
	rec, err := s.Get(id)
	if err != nil {
		return err
	}
	if rec.Owner != nil {
		return ErrNotBurned
	}
	rec.Owner = &who
	s.records[id] = rec
	return nil
}

// Burn clears the owner of id, provided from currently owns it.
func Burn(s *Store, id ID, from Account) error {
	rec, err := s.Get(id)
	if err != nil {
		return err
	}
	if rec.Owner == nil || *rec.Owner != from {
		return ErrNotOwner
	}
	rec.Owner = nil
	s.records[id] = rec
	return nil
}
