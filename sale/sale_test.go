// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package sale_test

import (
	"testing"

	"github.com/luxfi/broker/region"
	"github.com/luxfi/broker/sale"
	"github.com/stretchr/testify/require"
)

func testConfig() sale.Config {
	return sale.Config{
		AdvanceNotice:       0,
		InterludeLength:     10,
		LeadinLength:        30,
		IdealBulkProportion: sale.Fraction{1, 2},
		LimitCoresOffered:   10,
		RegionLength:        28,
		RenewalBump:         sale.Fraction{1, 10},
	}
}

// TestRenewalBumpScenario4 pins spec.md §8 scenario 4's exact renewal
// bump sequence: with renewal_bump=10%, a renewal priced at 910 is
// consumed (charged) at 910 and bumps to 1001 for the next period's
// entry; that entry is then charged 1001 and bumps to 1101; with
// end_price=10 the open-market floor is 100.
func TestRenewalBumpScenario4(t *testing.T) {
	t.Parallel()
	e := sale.NewEngine(testConfig())
	endPrice := region.NewBalance(10)

	e.Renewals().Set(0, 1, sale.PotentialRenewal{Price: region.NewBalance(910)})
	charged1, next1, err := e.Renew(0, 1, endPrice)
	require.NoError(t, err)
	require.Equal(t, uint64(910), charged1.Uint64())
	require.Equal(t, uint64(1001), next1.Uint64())

	e.Renewals().Set(0, 2, sale.PotentialRenewal{Price: next1})
	charged2, next2, err := e.Renew(0, 2, endPrice)
	require.NoError(t, err)
	require.Equal(t, uint64(1001), charged2.Uint64())
	require.Equal(t, uint64(1101), next2.Uint64())

	floor := sale.OpenMarketFloor(endPrice)
	require.Equal(t, uint64(100), floor.Uint64())
}

func TestRenewUnknownRenewal(t *testing.T) {
	t.Parallel()
	e := sale.NewEngine(testConfig())
	_, _, err := e.Renew(0, 1, region.NewBalance(10))
	require.ErrorIs(t, err, sale.ErrUnknownRenewal)
}

// TestPriceCurveMonotonicAndBounded pins spec.md §4.3: the lead-in price
// is monotonically non-increasing in block number, starts at 10x
// end_price, and reaches end_price exactly at progress=leadin_length.
func TestPriceCurveMonotonicAndBounded(t *testing.T) {
	t.Parallel()
	cfg := testConfig()
	e := sale.NewEngine(cfg)
	endPrice := region.NewBalance(10)
	info := sale.Info{
		SaleStart:    cfg.InterludeLength,
		LeadinLength: cfg.LeadinLength,
		EndPrice:     endPrice,
	}

	start := info.SaleStart - cfg.InterludeLength
	require.Equal(t, uint64(100), e.Price(info, start).Uint64())
	require.Equal(t, uint64(10), e.Price(info, start+cfg.LeadinLength).Uint64())
	require.Equal(t, uint64(10), e.Price(info, start+cfg.LeadinLength+100).Uint64())

	var prev uint64 = ^uint64(0)
	for b := start; b <= start+cfg.LeadinLength; b++ {
		p := e.Price(info, b).Uint64()
		require.LessOrEqualf(t, p, prev, "price rose at block %d", b)
		prev = p
	}
}

func TestPurchaseTracksSelloutPrice(t *testing.T) {
	t.Parallel()
	cfg := testConfig()
	cfg.LimitCoresOffered = 1
	e := sale.NewEngine(cfg)
	info := &sale.Info{
		SaleStart:    cfg.InterludeLength,
		LeadinLength: cfg.LeadinLength,
		EndPrice:     region.NewBalance(10),
		CoresOffered: 1,
	}

	block := info.SaleStart + cfg.LeadinLength
	price, err := e.Purchase(info, region.NewBalance(10), block)
	require.NoError(t, err)
	require.Equal(t, uint64(10), price.Uint64())
	require.Equal(t, region.CoreIndex(0), info.Remaining())
	require.NotNil(t, info.SelloutPrice)
	require.Equal(t, uint64(10), info.SelloutPrice.Uint64())

	_, err = e.Purchase(info, region.NewBalance(1000), block)
	require.ErrorIs(t, err, sale.ErrSoldOut)
}

func TestPurchaseOverpriced(t *testing.T) {
	t.Parallel()
	cfg := testConfig()
	e := sale.NewEngine(cfg)
	info := &sale.Info{
		SaleStart:    cfg.InterludeLength,
		LeadinLength: cfg.LeadinLength,
		EndPrice:     region.NewBalance(10),
		CoresOffered: 5,
	}

	_, err := e.Purchase(info, region.NewBalance(1), info.SaleStart)
	require.ErrorIs(t, err, sale.ErrOverpriced)
}

func TestAdjustEndPrice(t *testing.T) {
	t.Parallel()
	prev := region.NewBalance(100)
	half := sale.Fraction{1, 2}

	// Sold out at or above ideal, with a sellout price above prev: moves
	// halfway toward it.
	selloutAbove := region.NewBalance(300)
	require.Equal(t, uint64(200), sale.AdjustEndPrice(prev, selloutAbove, 5, 5, half).Uint64())

	// No sellout observed: decays toward prev * ideal_bulk_proportion.
	require.Equal(t, uint64(50), sale.AdjustEndPrice(prev, nil, 2, 5, half).Uint64())

	// Sold out but below ideal_cores_sold: also decays.
	require.Equal(t, uint64(50), sale.AdjustEndPrice(prev, selloutAbove, 2, 5, half).Uint64())
}
