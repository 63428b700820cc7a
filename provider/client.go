// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package provider

import (
	"sync"

	"github.com/luxfi/broker/region"
	"github.com/luxfi/log"
)

// Client wraps a Consumer with request tracking, logging and shutdown
// semantics. It is adapted from the EVM state-sync Network type's
// request-ID bookkeeping (allocateRequestID/freeRequestID over a
// mutex-guarded pending map): here each dispatched directive is assigned
// a monotonic sequence number that the caller can correlate against
// provider acknowledgements delivered out of band, instead of tracking
// connected peers.
type Client struct {
	consumer Consumer
	log      log.Logger

	mu            sync.Mutex
	pending       map[uint64]AssignCore
	nextRequestID uint64
	closed        bool
}

// NewClient returns a Client dispatching directives to consumer.
func NewClient(consumer Consumer) *Client {
	return &Client{
		consumer: consumer,
		log:      log.New(),
		pending:  make(map[uint64]AssignCore),
	}
}

// Close prevents further dispatch and drops all pending bookkeeping.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.pending = make(map[uint64]AssignCore)
}

// ErrClosed is returned by Dispatch* once Close has been called.
var ErrClosed = errClosed{}

type errClosed struct{}

func (errClosed) Error() string { return "provider: client is closed" }

// DispatchAssignCore sends directive to the provider, tracking it under
// a fresh request ID until Ack is called (or it is dropped on Close).
func (c *Client) DispatchAssignCore(directive AssignCore) (requestID uint64, err error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return 0, ErrClosed
	}
	requestID = c.nextRequestID
	c.nextRequestID++
	c.pending[requestID] = directive
	c.mu.Unlock()

	if err := c.consumer.AssignCore(directive); err != nil {
		c.mu.Lock()
		delete(c.pending, requestID)
		c.mu.Unlock()
		c.log.Error("assign_core directive rejected by provider", "core", directive.Core, "begin", directive.BeginBlock, "error", err)
		return 0, err
	}
	c.log.Debug("assign_core directive dispatched", "requestID", requestID, "core", directive.Core, "begin", directive.BeginBlock)
	return requestID, nil
}

// RequestCoreCount forwards a core-count directive to the provider.
func (c *Client) RequestCoreCount(n uint16) error {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return ErrClosed
	}
	if err := c.consumer.RequestCoreCount(n); err != nil {
		c.log.Error("request_core_count directive rejected by provider", "n", n, "error", err)
		return err
	}
	c.log.Debug("request_core_count directive dispatched", "n", n)
	return nil
}

// CreditAccount forwards a purchase_credit directive to the provider,
// crediting who's relay-chain account with amount.
func (c *Client) CreditAccount(who region.Account, amount region.Balance) error {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return ErrClosed
	}
	if err := c.consumer.CreditAccount(who, amount); err != nil {
		c.log.Error("purchase_credit directive rejected by provider", "amount", amount, "error", err)
		return err
	}
	c.log.Debug("purchase_credit directive dispatched", "amount", amount)
	return nil
}

// Ack marks requestID as acknowledged by the provider, freeing its
// bookkeeping. Acking an unknown or already-acked ID is a no-op.
func (c *Client) Ack(requestID uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.pending, requestID)
}

// PendingCount returns the number of dispatched-but-unacknowledged
// directives, for diagnostics.
func (c *Client) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}
