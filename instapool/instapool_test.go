// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package instapool_test

import (
	"testing"

	"github.com/luxfi/broker/coremask"
	"github.com/luxfi/broker/instapool"
	"github.com/luxfi/broker/region"
	"github.com/stretchr/testify/require"
)

func TestPoolPayoutScenario5(t *testing.T) {
	t.Parallel()
	// Scenario 5: pool spends 10, system:private = 6:4 at T -> system
	// gets 6 immediately, 4 held in pot; claim_revenue(region, 100)
	// transfers 4 to the payee.
	p, err := instapool.New(5, 100)
	require.NoError(t, err)

	id := region.ID{Begin: 10, Core: 0, Mask: coremask.Complete()}
	payee := region.Account{9}
	p.Contribute(id, payee, 1)

	systemShare, err := p.IngestRevenue(10, region.NewBalance(10), 6, 10)
	require.NoError(t, err)
	require.Equal(t, uint64(6), systemShare.Uint64())

	payout, claimed, err := p.Claim(id, coremask.Complete().Area(), 10, 100)
	require.NoError(t, err)
	require.Equal(t, []region.Timeslice{10}, claimed)
	require.Equal(t, uint64(4), payout.Uint64())

	// A second claim over the same window pays nothing more.
	payout2, claimed2, err := p.Claim(id, coremask.Complete().Area(), 10, 100)
	require.NoError(t, err)
	require.Empty(t, claimed2)
	require.True(t, payout2.IsZero())
}

func TestDropHistoryRespectsTimeout(t *testing.T) {
	t.Parallel()
	p, err := instapool.New(5, 10)
	require.NoError(t, err)

	_, err = p.IngestRevenue(10, region.NewBalance(100), 5, 10)
	require.NoError(t, err)

	require.ErrorIs(t, p.DropHistory(10, 15), instapool.ErrStillValid)
	require.NoError(t, p.DropHistory(10, 16))

	_, err = p.HistoryAt(10)
	require.ErrorIs(t, err, instapool.ErrNoHistory)
}

func TestUnknownContribution(t *testing.T) {
	t.Parallel()
	p, err := instapool.New(5, 10)
	require.NoError(t, err)

	id := region.ID{Begin: 0, Core: 0, Mask: coremask.Complete()}
	_, err = p.Contribution(id)
	require.ErrorIs(t, err, instapool.ErrUnknownContribution)
	require.ErrorIs(t, p.DropContribution(id), instapool.ErrUnknownContribution)
}
