// Copyright (c) 2026 The stakechain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricsNamespace = "chaind"
	metricsSubsystem = "blockchain"
)

// These are the results a processed block is counted under.
const (
	resultAccepted  = "accepted"
	resultSideChain = "sidechain"
	resultOrphan    = "orphan"
	resultDuplicate = "duplicate"
	resultInvalid   = "invalid"
	resultError     = "error"
)

// chainMetrics houses the collectors describing block processing.
type chainMetrics struct {
	processed     *prometheus.CounterVec
	reorgs        prometheus.Counter
	reorgDepth    prometheus.Histogram
	orphans       prometheus.Gauge
	commitRetries prometheus.Counter
	bestHeight    prometheus.Gauge
}

// newChainMetrics creates the collectors and registers them with the passed
// registerer when it is not nil.
func newChainMetrics(registerer prometheus.Registerer) (*chainMetrics, error) {
	m := &chainMetrics{
		processed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "blocks_processed_total",
			Help:      "Number of processed blocks by result.",
		}, []string{"result"}),
		reorgs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "reorganizations_total",
			Help:      "Number of main chain reorganizations.",
		}),
		reorgDepth: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "reorganization_depth",
			Help:      "Number of blocks disconnected by a reorganization.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 8),
		}),
		orphans: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "orphan_blocks",
			Help:      "Number of blocks in the orphan pool.",
		}),
		commitRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "commit_retries_total",
			Help:      "Number of retried block commits.",
		}),
		bestHeight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "best_height",
			Help:      "Height of the main chain tip.",
		}),
	}
	if registerer == nil {
		return m, nil
	}
	collectors := []prometheus.Collector{m.processed, m.reorgs,
		m.reorgDepth, m.orphans, m.commitRetries, m.bestHeight}
	for _, c := range collectors {
		if err := registerer.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}
