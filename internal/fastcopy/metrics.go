// Copyright (c) 2018 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

package fastcopy

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the process-wide Prometheus collectors for an
// Orchestrator, following the top-of-file promauto.New*Vec convention used
// throughout the teacher's client package.
type Metrics struct {
	blockCopyOutcomes *prometheus.CounterVec
	fileCopyLatencies *prometheus.SummaryVec
	filesInFlight     prometheus.Gauge
}

var (
	metricsOnce   sync.Once
	sharedMetrics *Metrics
)

// NewMetrics returns the process-wide set of collectors, registering them
// with the default registry on the first call only; every later call
// returns the same set. Safe to call once per Orchestrator, however many
// Orchestrators share the process.
func NewMetrics() *Metrics {
	metricsOnce.Do(func() { sharedMetrics = newMetrics() })
	return sharedMetrics
}

func newMetrics() *Metrics {
	return &Metrics{
		blockCopyOutcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "fastcopy_block_copy_outcomes_total",
			Help: "Count of block-copy RPC outcomes by destination datanode and result.",
		}, []string{"datanode", "outcome"}),

		fileCopyLatencies: promauto.NewSummaryVec(prometheus.SummaryOpts{
			Name:       "fastcopy_file_copy_latency_seconds",
			Help:       "Latency of a complete file copy, from create() to complete().",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		}, []string{"result"}),

		filesInFlight: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "fastcopy_files_in_flight",
			Help: "Number of FileCopyJobs currently running.",
		}),
	}
}

// ObserveBlockCopy records one block-copy RPC outcome for the destination
// datanode that the replica was copied onto.
func (m *Metrics) ObserveBlockCopy(dstDatanode string, success bool) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	m.blockCopyOutcomes.WithLabelValues(dstDatanode, outcome).Inc()
}

// ObserveFileCopy records the latency of one completed file copy.
func (m *Metrics) ObserveFileCopy(seconds float64, success bool) {
	result := "success"
	if !success {
		result = "failure"
	}
	m.fileCopyLatencies.WithLabelValues(result).Observe(seconds)
}

// FileStarted/FileFinished track the in-flight file gauge.
func (m *Metrics) FileStarted()  { m.filesInFlight.Inc() }
func (m *Metrics) FileFinished() { m.filesInFlight.Dec() }
