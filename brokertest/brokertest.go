// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package brokertest provides a shared in-memory fake of the coretime
// provider's Consumer interface, plus fixture helpers, for table-driven
// tests of package broker. It is hand-written rather than generated,
// matching how warp/warptest hand-writes a fake backend instead of
// reaching for a mocking framework (SPEC_FULL.md §4: go.uber.org/mock
// dropped for exactly this reason).
package brokertest

import (
	"sync"

	"github.com/luxfi/broker/provider"
	"github.com/luxfi/broker/region"
)

// Credit is one recorded CreditAccount directive.
type Credit struct {
	Who    region.Account
	Amount region.Balance
}

// Consumer is an in-memory fake of provider.Consumer: it records every
// directive dispatched to it, in order, for assertions.
type Consumer struct {
	mu sync.Mutex

	AssignCores []provider.AssignCore
	CoreCounts  []uint16
	Credits     []Credit

	// FailNext, if non-nil, is returned by the next call to any of its
	// directive methods (and then cleared), for exercising the broker's error
	// propagation from a failing provider.
	FailNext error
}

// NewConsumer returns an empty fake Consumer.
func NewConsumer() *Consumer {
	return &Consumer{}
}

// RequestCoreCount implements provider.Consumer.
func (c *Consumer) RequestCoreCount(n uint16) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.FailNext != nil {
		err := c.FailNext
		c.FailNext = nil
		return err
	}
	c.CoreCounts = append(c.CoreCounts, n)
	return nil
}

// AssignCore implements provider.Consumer.
func (c *Consumer) AssignCore(d provider.AssignCore) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.FailNext != nil {
		err := c.FailNext
		c.FailNext = nil
		return err
	}
	c.AssignCores = append(c.AssignCores, d)
	return nil
}

// CreditAccount implements provider.Consumer.
func (c *Consumer) CreditAccount(who region.Account, amount region.Balance) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.FailNext != nil {
		err := c.FailNext
		c.FailNext = nil
		return err
	}
	c.Credits = append(c.Credits, Credit{Who: who, Amount: amount})
	return nil
}

// Assignments returns a snapshot of every AssignCore directive recorded
// so far.
func (c *Consumer) Assignments() []provider.AssignCore {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]provider.AssignCore, len(c.AssignCores))
	copy(out, c.AssignCores)
	return out
}

// LastCoreCount returns the most recently requested core count and
// whether any request has been made yet.
func (c *Consumer) LastCoreCount() (uint16, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.CoreCounts) == 0 {
		return 0, false
	}
	return c.CoreCounts[len(c.CoreCounts)-1], true
}
