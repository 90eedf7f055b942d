// Copyright 2025 The Pulsegraph Authors.
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.txt.
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0, included in the file
// licenses/APL.txt.

package flow

import "github.com/prometheus/client_golang/prometheus"

// Metrics tracks engine and operator activity. All fields are live
// prometheus collectors; pass a non-nil Registerer to NewMetrics to
// expose them.
type Metrics struct {
	PulsesRun        prometheus.Counter
	TuplesRouted     prometheus.Counter
	SubflowsCreated  prometheus.Counter
	SubflowsDetached prometheus.Counter
	SubflowsLive     prometheus.Gauge
	CacheCompactions prometheus.Counter
}

// NewMetrics builds the metric set and, if reg is non-nil, registers it.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		PulsesRun: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "flow_pulses_run_total",
			Help: "Pulses admitted and fully propagated.",
		}),
		TuplesRouted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "flow_tuples_routed_total",
			Help: "Tuple-level events forwarded into subflows.",
		}),
		SubflowsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "flow_subflows_created_total",
			Help: "Subflows instantiated on first sight of a key.",
		}),
		SubflowsDetached: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "flow_subflows_detached_total",
			Help: "Empty subflows removed by cleanup passes.",
		}),
		SubflowsLive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "flow_subflows_live",
			Help: "Subflows currently registered.",
		}),
		CacheCompactions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "flow_cache_compactions_total",
			Help: "Key cache compaction passes.",
		}),
	}
	if reg != nil {
		reg.MustRegister(
			m.PulsesRun,
			m.TuplesRouted,
			m.SubflowsCreated,
			m.SubflowsDetached,
			m.SubflowsLive,
			m.CacheCompactions,
		)
	}
	return m
}
