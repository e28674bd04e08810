// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package metrics exposes Prometheus counters and histograms for process
// execution, satisfying internal/scheduler.MetricsRecorder.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	processesStarted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tuttle_processes_started_total",
			Help: "Total processes dispatched, by processor kind",
		},
		[]string{"processor"},
	)

	processDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tuttle_process_duration_seconds",
			Help:    "Process run duration, by processor kind and outcome",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"processor", "status"},
	)

	processesCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tuttle_processes_completed_total",
			Help: "Total processes completed, by processor kind and outcome",
		},
		[]string{"processor", "status"},
	)
)

// Recorder implements internal/scheduler.MetricsRecorder against the
// package-level Prometheus collectors.
type Recorder struct{}

// NewRecorder returns a Recorder. It carries no state; the collectors it
// drives are package-level so a process only ever registers them once
// regardless of how many Recorders are created.
func NewRecorder() Recorder {
	return Recorder{}
}

// RecordProcessStart increments the started counter for processor.
func (Recorder) RecordProcessStart(processor string) {
	processesStarted.WithLabelValues(processor).Inc()
}

// RecordProcessComplete records the outcome and duration of one process run.
func (Recorder) RecordProcessComplete(processor string, success bool, duration time.Duration) {
	status := "success"
	if !success {
		status = "failure"
	}
	processDuration.WithLabelValues(processor, status).Observe(duration.Seconds())
	processesCompleted.WithLabelValues(processor, status).Inc()
}
