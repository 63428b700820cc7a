// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package brokercfg_test

import (
	"testing"

	"github.com/luxfi/broker/brokercfg"
	"github.com/luxfi/broker/sale"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	t.Parallel()
	require.NoError(t, brokercfg.Default().Validate())
}

func TestValidateCatchesEachViolation(t *testing.T) {
	t.Parallel()
	tests := map[string]struct {
		mutate func(*brokercfg.Configuration)
		expect error
	}{
		"leadin too short": {
			mutate: func(c *brokercfg.Configuration) { c.LeadinLength = 0 },
			expect: brokercfg.ErrLeadinTooShort,
		},
		"region too short": {
			mutate: func(c *brokercfg.Configuration) { c.RegionLength = 0 },
			expect: brokercfg.ErrRegionTooShort,
		},
		"timeslice period zero": {
			mutate: func(c *brokercfg.Configuration) { c.TimeslicePeriod = 0 },
			expect: brokercfg.ErrTimeslicePeriodZero,
		},
		"renewal bump zero denom": {
			mutate: func(c *brokercfg.Configuration) { c.RenewalBump = sale.Fraction{1, 0} },
			expect: brokercfg.ErrRenewalBumpZeroDenom,
		},
		"bulk proportion zero denom": {
			mutate: func(c *brokercfg.Configuration) { c.IdealBulkProportion = sale.Fraction{1, 0} },
			expect: brokercfg.ErrBulkProportionDenom,
		},
		"limit cores zero": {
			mutate: func(c *brokercfg.Configuration) { c.LimitCoresOffered = 0 },
			expect: brokercfg.ErrLimitCoresZero,
		},
	}

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			cfg := brokercfg.Default()
			tt.mutate(&cfg)
			require.ErrorIs(t, cfg.Validate(), tt.expect)
		})
	}
}

func TestSaleConfigProjection(t *testing.T) {
	t.Parallel()
	cfg := brokercfg.Default()
	sc := cfg.SaleConfig()
	require.Equal(t, cfg.LeadinLength, sc.LeadinLength)
	require.Equal(t, cfg.RenewalBump, sc.RenewalBump)
}
