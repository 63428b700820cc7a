// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package provider_test

import (
	"errors"
	"testing"

	"github.com/luxfi/broker/provider"
	"github.com/luxfi/broker/region"
	"github.com/stretchr/testify/require"
)

type fakeConsumer struct {
	assigned   []provider.AssignCore
	coreCounts []uint16
	credited   []uint64
	failNext   error
}

func (f *fakeConsumer) RequestCoreCount(n uint16) error {
	if f.failNext != nil {
		err := f.failNext
		f.failNext = nil
		return err
	}
	f.coreCounts = append(f.coreCounts, n)
	return nil
}

func (f *fakeConsumer) AssignCore(d provider.AssignCore) error {
	if f.failNext != nil {
		err := f.failNext
		f.failNext = nil
		return err
	}
	f.assigned = append(f.assigned, d)
	return nil
}

func (f *fakeConsumer) CreditAccount(who region.Account, amount region.Balance) error {
	if f.failNext != nil {
		err := f.failNext
		f.failNext = nil
		return err
	}
	f.credited = append(f.credited, amount.Uint64())
	return nil
}

func TestDispatchAssignCoreTracksRequestIDs(t *testing.T) {
	t.Parallel()
	fc := &fakeConsumer{}
	c := provider.NewClient(fc)

	id1, err := c.DispatchAssignCore(provider.AssignCore{Core: 0, BeginBlock: 8})
	require.NoError(t, err)
	id2, err := c.DispatchAssignCore(provider.AssignCore{Core: 1, BeginBlock: 8})
	require.NoError(t, err)
	require.NotEqual(t, id1, id2)
	require.Equal(t, 2, c.PendingCount())

	c.Ack(id1)
	require.Equal(t, 1, c.PendingCount())
	require.Len(t, fc.assigned, 2)
}

func TestDispatchFailureDoesNotLeavePending(t *testing.T) {
	t.Parallel()
	fc := &fakeConsumer{failNext: errors.New("provider unavailable")}
	c := provider.NewClient(fc)

	_, err := c.DispatchAssignCore(provider.AssignCore{Core: 0, BeginBlock: 8})
	require.Error(t, err)
	require.Equal(t, 0, c.PendingCount())
}

func TestClosedClientRejectsDispatch(t *testing.T) {
	t.Parallel()
	c := provider.NewClient(&fakeConsumer{})
	c.Close()

	_, err := c.DispatchAssignCore(provider.AssignCore{})
	require.ErrorIs(t, err, provider.ErrClosed)

	require.ErrorIs(t, c.RequestCoreCount(4), provider.ErrClosed)
}

func TestDispatchCreditAccount(t *testing.T) {
	t.Parallel()
	fc := &fakeConsumer{}
	c := provider.NewClient(fc)

	require.NoError(t, c.CreditAccount(region.Account{}, region.NewBalance(500)))
	require.Len(t, fc.credited, 1)
	require.Equal(t, uint64(500), fc.credited[0])
}
