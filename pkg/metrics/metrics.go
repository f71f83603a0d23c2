/*
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package metrics holds the scheduler's Prometheus instrumentation, registered through
// controller-runtime's shared registry the way the rest of the control-plane stack does.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	crmetrics "sigs.k8s.io/controller-runtime/pkg/metrics"
)

const (
	Namespace = "cluster_priority_scheduler"
	subsystem = "scheduling"

	ResultLabel = "result"
)

var (
	CycleDurationSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: Namespace,
		Subsystem: subsystem,
		Name:      "cycle_duration_seconds",
		Help:      "Time to drain and process one batch of the pending queue.",
		Buckets:   prometheus.DefBuckets,
	})
	BindsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: subsystem,
		Name:      "binds_total",
		Help:      "Bind attempts, labeled by outcome (committed, conflicted, failed).",
	}, []string{ResultLabel})
	PreemptionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: subsystem,
		Name:      "preemptions_total",
		Help:      "Lower-priority pods evicted to make room for a higher-priority pod.",
	})
	RequeuesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: subsystem,
		Name:      "requeues_total",
		Help:      "Queue entries put back after a cycle pass failed to place them.",
	})
	QueueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: Namespace,
		Subsystem: subsystem,
		Name:      "queue_depth",
		Help:      "Pending pods currently held in the priority queue.",
	})
)

// MustRegister registers every scheduler metric with the shared controller-runtime
// registry. Call once during process startup.
func MustRegister() {
	crmetrics.Registry.MustRegister(CycleDurationSeconds, BindsTotal, PreemptionsTotal, RequeuesTotal, QueueDepth)
}
