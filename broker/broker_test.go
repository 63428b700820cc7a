// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package broker_test

import (
	"testing"

	"github.com/luxfi/broker/broker"
	"github.com/luxfi/broker/brokercfg"
	"github.com/luxfi/broker/brokertest"
	"github.com/luxfi/broker/coremask"
	"github.com/luxfi/broker/region"
	"github.com/luxfi/broker/reservation"
	"github.com/stretchr/testify/require"
)

func acct(b byte) region.Account {
	var a region.Account
	a[19] = b
	return a
}

// testConfig mirrors spec.md §8's fixture parameters (timeslice_period=2,
// region_length=3) but with a 0-length interlude, a 1-block lead-in and
// no advance notice, so a sale opens for purchase at the same block it
// starts and a timeslice's AssignCore fires at the first block of that
// timeslice, keeping these tests' block arithmetic simple.
// LimitCoresOffered=1 with no extra cores keeps exactly one live core in
// play, so Tick never emits an incidental Idle directive for a second,
// unused core.
func testConfig() brokercfg.Configuration {
	cfg := brokercfg.Default()
	cfg.TimeslicePeriod = 2
	cfg.RegionLength = 3
	cfg.InterludeLength = 0
	cfg.LeadinLength = 1
	cfg.AdvanceNotice = 0
	cfg.LimitCoresOffered = 1
	return cfg
}

func newConfiguredBroker(t *testing.T) (*broker.Broker, *brokertest.Consumer) {
	t.Helper()
	consumer := brokertest.NewConsumer()
	b := broker.New(consumer, "broker_test")
	require.NoError(t, b.Configure(testConfig()))
	return b, consumer
}

func TestConfigureRejectsInvalidConfig(t *testing.T) {
	t.Parallel()
	b := broker.New(brokertest.NewConsumer(), "broker_test_invalid")
	cfg := testConfig()
	cfg.RegionLength = 0
	require.Error(t, b.Configure(cfg))
}

func TestPurchaseAssignAndCommit(t *testing.T) {
	t.Parallel()
	b, consumer := newConfiguredBroker(t)

	require.NoError(t, b.StartSales(region.NewBalance(100), 0, 0))

	buyer := acct(1)
	id, err := b.Purchase(buyer, region.NewBalance(1_000_000), 0)
	require.NoError(t, err)
	require.Equal(t, region.Timeslice(0), id.Begin)
	require.Equal(t, region.CoreIndex(0), id.Core)

	require.NoError(t, b.Assign(id, buyer, 1000, region.Final))
	require.NoError(t, b.Tick(0))

	assigned := consumer.Assignments()
	require.Len(t, assigned, 1)
	require.Equal(t, region.CoreIndex(0), assigned[0].Core)
	require.Equal(t, uint64(0), assigned[0].BeginBlock)
	require.Len(t, assigned[0].Assignment, 1)
	require.Equal(t, uint64(1000), assigned[0].Assignment[0].Assignment.Task)
	require.EqualValues(t, 57600, assigned[0].Assignment[0].Parts)

	// Assigned with Final finality: the region's handle is consumed.
	_, err = b.Owner(id)
	require.ErrorIs(t, err, region.ErrUnknownRegion)
}

func TestAssignByNonOwnerFails(t *testing.T) {
	t.Parallel()
	b, _ := newConfiguredBroker(t)
	require.NoError(t, b.StartSales(region.NewBalance(100), 0, 0))

	buyer := acct(1)
	stranger := acct(2)
	id, err := b.Purchase(buyer, region.NewBalance(1_000_000), 0)
	require.NoError(t, err)

	err = b.Assign(id, stranger, 1000, region.Final)
	require.ErrorIs(t, err, region.ErrNotOwner)
}

func TestPartitionThenAssignBothChildren(t *testing.T) {
	t.Parallel()
	b, consumer := newConfiguredBroker(t)
	require.NoError(t, b.StartSales(region.NewBalance(100), 0, 0))

	buyer := acct(1)
	id, err := b.Purchase(buyer, region.NewBalance(1_000_000), 0)
	require.NoError(t, err)

	left, right, err := b.Partition(id, buyer, 1)
	require.NoError(t, err)
	require.Equal(t, id.Begin, left.Begin)
	require.Equal(t, id.Begin+1, right.Begin)

	require.NoError(t, b.Assign(left, buyer, 1001, region.Final))
	require.NoError(t, b.Assign(right, buyer, 1002, region.Final))

	require.NoError(t, b.Tick(0))
	require.NoError(t, b.Tick(2))
	require.NoError(t, b.Tick(4))

	assigned := consumer.Assignments()
	require.Len(t, assigned, 3)
	require.Equal(t, uint64(0), assigned[0].BeginBlock)
	require.Equal(t, uint64(1001), assigned[0].Assignment[0].Assignment.Task)
	require.Equal(t, uint64(2), assigned[1].BeginBlock)
	require.Equal(t, uint64(1002), assigned[1].Assignment[0].Assignment.Task)
	require.Equal(t, uint64(4), assigned[2].BeginBlock)
	require.Equal(t, uint64(1002), assigned[2].Assignment[0].Assignment.Task)
}

func TestInterlaceThenAssignYieldsSplitParts(t *testing.T) {
	t.Parallel()
	b, consumer := newConfiguredBroker(t)
	require.NoError(t, b.StartSales(region.NewBalance(100), 0, 0))

	buyer := acct(1)
	id, err := b.Purchase(buyer, region.NewBalance(1_000_000), 0)
	require.NoError(t, err)

	left, right, err := b.Interlace(id, buyer, coremask.FromChunk(0, 30))
	require.NoError(t, err)

	require.NoError(t, b.Assign(left, buyer, 1001, region.Final))
	require.NoError(t, b.Assign(right, buyer, 1002, region.Final))
	require.NoError(t, b.Tick(0))

	assigned := consumer.Assignments()
	require.Len(t, assigned, 1)
	require.Len(t, assigned[0].Assignment, 2)

	var total uint64
	for _, p := range assigned[0].Assignment {
		total += p.Parts
	}
	require.EqualValues(t, 57600, total)
}

func TestSaleRotationConvertsExpiringLeaseToRenewal(t *testing.T) {
	t.Parallel()
	b, _ := newConfiguredBroker(t)
	require.NoError(t, b.StartSales(region.NewBalance(100), 0, 0))
	require.NoError(t, b.SetLease(2001, 2))

	// region_length=3, timeslice_period=2: the first period spans
	// timeslices [0,3); the lease expires at timeslice 2, inside that
	// span, so rotation at block 6 (region_end*timeslice_period)
	// converts it into a PotentialRenewal keyed at the *next* rotated
	// region_end (spec.md §4.3), redeemable once a second rotation
	// makes that value the current sale's region_begin.
	require.NoError(t, b.Tick(6))
	require.NoError(t, b.Tick(12))

	price, err := b.Renew(0, 12)
	require.NoError(t, err)
	require.NotNil(t, price)
}

func TestDropRegionRequiresElapsedEnd(t *testing.T) {
	t.Parallel()
	b, _ := newConfiguredBroker(t)
	require.NoError(t, b.StartSales(region.NewBalance(100), 0, 0))

	buyer := acct(1)
	id, err := b.Purchase(buyer, region.NewBalance(1_000_000), 0)
	require.NoError(t, err)

	rec, err := b.Regions().Get(id)
	require.NoError(t, err)

	err = b.DropRegion(id, rec.End)
	require.ErrorIs(t, err, broker.ErrStillValid)

	require.NoError(t, b.Tick(200))
	require.NoError(t, b.DropRegion(id, rec.End))
}

func TestPoolAndClaimRevenue(t *testing.T) {
	t.Parallel()
	b, _ := newConfiguredBroker(t)
	require.NoError(t, b.StartSales(region.NewBalance(100), 0, 0))

	buyer := acct(1)
	payee := acct(2)
	id, err := b.Purchase(buyer, region.NewBalance(1_000_000), 0)
	require.NoError(t, err)

	require.NoError(t, b.Pool(id, buyer, payee, region.Final))
	require.NoError(t, b.Tick(0))

	require.NoError(t, b.NotifyRevenue(id.Begin, region.NewBalance(10)))
	require.NoError(t, b.Tick(2))

	payout, err := b.ClaimRevenue(id, 10)
	require.NoError(t, err)
	require.NotNil(t, payout)
}

func TestPurchaseCreditDispatchesDirective(t *testing.T) {
	t.Parallel()
	b, consumer := newConfiguredBroker(t)

	beneficiary := acct(9)
	require.NoError(t, b.PurchaseCredit(beneficiary, region.NewBalance(500)))

	require.Len(t, consumer.Credits, 1)
	require.Equal(t, beneficiary, consumer.Credits[0].Who)
	require.Equal(t, uint64(500), consumer.Credits[0].Amount.Uint64())
}

func TestPurchaseCreditRequiresConfigured(t *testing.T) {
	t.Parallel()
	b := broker.New(brokertest.NewConsumer(), "broker_test_unconfigured_credit")
	err := b.PurchaseCredit(acct(1), region.NewBalance(500))
	require.ErrorIs(t, err, broker.ErrUninitialized)
}

func TestRequestCoreCountReflectsReservations(t *testing.T) {
	t.Parallel()
	b, consumer := newConfiguredBroker(t)
	require.NoError(t, b.Reserve(reservation.Schedule{}))

	n, ok := consumer.LastCoreCount()
	require.True(t, ok)
	require.GreaterOrEqual(t, n, uint16(1))
}
