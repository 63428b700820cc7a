// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package brokermetrics_test

import (
	"net/http/httptest"
	"testing"

	"github.com/luxfi/broker/brokermetrics"
	"github.com/stretchr/testify/require"
)

func TestNewRegistersAllSeries(t *testing.T) {
	t.Parallel()
	m := brokermetrics.NewForTest("broker_test_new_registers_all_series")
	require.NotNil(t, m.RegionsLive)
	require.NotNil(t, m.CoresSold)
	require.NotNil(t, m.AssignCoreEmitted)
	require.NotNil(t, m.PurchasesTotal)
}

func TestHandlerServesExposition(t *testing.T) {
	t.Parallel()
	brokermetrics.NewForTest("broker_test_handler_serves_exposition")

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	brokermetrics.Handler().ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)
	require.NotEmpty(t, rec.Body.String())
}
