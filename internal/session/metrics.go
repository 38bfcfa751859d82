// Copyright (c) 2025 AssistBridge
// Licensed under the MIT License. See LICENSE file in the project root for details.

package session

import "github.com/prometheus/client_golang/prometheus"

var (
	lockWaitSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "assistbridge",
			Subsystem: "session",
			Name:      "guard_wait_seconds",
			Help:      "Time spent waiting for the backend session guard",
			Buckets:   []float64{.001, .01, .05, .1, .5, 1, 5, 15, 60},
		},
		[]string{"op"},
	)

	callsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "assistbridge",
			Subsystem: "session",
			Name:      "calls_total",
			Help:      "Guarded session operations by outcome",
		},
		[]string{"op", "result"},
	)
)

func init() {
	prometheus.MustRegister(lockWaitSeconds, callsTotal)
}
