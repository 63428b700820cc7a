// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package brokermetrics exposes the coretime broker's Prometheus
// metrics through github.com/luxfi/metric, the same registry the
// teacher's caches and network layer register their gauges and
// counters against.
package brokermetrics

import (
	"net/http"

	"github.com/luxfi/metric"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is the broker's metrics surface, registered once per Broker
// instance under its own namespace.
type Metrics struct {
	RegionsLive          metric.Gauge
	CoresSold            metric.Gauge
	CoresOffered         metric.Gauge
	LastTimeslice        metric.Gauge
	LastCommitted        metric.Gauge
	AssignCoreEmitted    metric.Counter
	PurchasesTotal       metric.Counter
	RenewalsTotal        metric.Counter
	PoolClaimsTotal      metric.Counter
	InstaPoolRevenue     metric.Counter
	CreditPurchasesTotal metric.Counter
}

// New registers the broker's metrics under namespace. Call once per
// Broker instance; registering the same namespace twice against the
// default registry panics, as with the teacher's other metric.NewGauge
// call sites.
func New(namespace string) *Metrics {
	return &Metrics{
		RegionsLive:       metric.NewGauge(metric.GaugeOpts{Name: namespace + "/regions_live", Help: "live region records"}),
		CoresSold:         metric.NewGauge(metric.GaugeOpts{Name: namespace + "/cores_sold", Help: "cores sold in the current sale period"}),
		CoresOffered:      metric.NewGauge(metric.GaugeOpts{Name: namespace + "/cores_offered", Help: "cores offered in the current sale period"}),
		LastTimeslice:     metric.NewGauge(metric.GaugeOpts{Name: namespace + "/last_timeslice", Help: "most recently advanced timeslice"}),
		LastCommitted:     metric.NewGauge(metric.GaugeOpts{Name: namespace + "/last_committed_timeslice", Help: "most recently committed timeslice"}),
		AssignCoreEmitted: metric.NewCounter(metric.CounterOpts{Name: namespace + "/assign_core_emitted", Help: "AssignCore directives emitted to the provider"}),
		PurchasesTotal:    metric.NewCounter(metric.CounterOpts{Name: namespace + "/purchases_total", Help: "bulk-sale purchases accepted"}),
		RenewalsTotal:     metric.NewCounter(metric.CounterOpts{Name: namespace + "/renewals_total", Help: "renewals accepted"}),
		PoolClaimsTotal:   metric.NewCounter(metric.CounterOpts{Name: namespace + "/pool_claims_total", Help: "instantaneous pool revenue claims paid"}),
		InstaPoolRevenue:  metric.NewCounter(metric.CounterOpts{Name: namespace + "/instapool_revenue_total", Help: "instantaneous pool gross revenue ingested"}),
		CreditPurchasesTotal: metric.NewCounter(metric.CounterOpts{Name: namespace + "/credit_purchases_total", Help: "purchase_credit directives dispatched to the provider"}),
	}
}

// NewForTest returns metrics registered under a namespace unique to the
// calling test, since the default registry panics on a duplicate
// namespace and package tests register brokermetrics repeatedly.
func NewForTest(namespace string) *Metrics {
	return New(namespace)
}

// Handler returns an http.Handler exposing the default registry in the
// Prometheus exposition format, for a node to mount alongside its other
// /metrics endpoints.
func Handler() http.Handler {
	return promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{})
}
