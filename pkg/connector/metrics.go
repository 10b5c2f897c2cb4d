// Copyright 2024-2026 Aiku AI

package connector

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	notificationsDispatched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sockbot_notifications_dispatched_total",
		Help: "Messages classified and routed to the command resolver.",
	}, []string{"type"})

	eventsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sockbot_events_dropped_total",
		Help: "Inbound events dropped before dispatch.",
	}, []string{"reason"})

	dispatchFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sockbot_dispatch_failures_total",
		Help: "Dispatches that failed, by error kind.",
	}, []string{"kind"})

	listenerFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sockbot_listener_failures_total",
		Help: "Event bus listeners that returned an error or panicked.",
	}, []string{"event"})

	commandDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sockbot_command_duration_seconds",
		Help:    "Time spent resolving and executing commands.",
		Buckets: prometheus.DefBuckets,
	})
)
