// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package metrics exposes client-side counters for the sync engine, the
// playback scheduler and the remote gateway.
//
// A nil *Metrics is valid and records nothing, so components can take one
// unconditionally.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "rigchat"

// Metrics holds the collectors registered on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	sends                *prometheus.CounterVec
	rollbacks            prometheus.Counter
	conversationsCreated prometheus.Counter
	conversationsDeleted prometheus.Counter
	playbacksActive      prometheus.Gauge
	playbacks            *prometheus.CounterVec
	gatewayDuration      *prometheus.HistogramVec
}

// New creates and registers the collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		sends: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sends_total",
			Help:      "Messages sent, by result.",
		}, []string{"result"}),
		rollbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provisional_rollbacks_total",
			Help:      "Provisional message pairs removed after a failed send.",
		}),
		conversationsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conversations_created_total",
			Help:      "Conversations created by this client.",
		}),
		conversationsDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conversations_deleted_total",
			Help:      "Conversations deleted by this client.",
		}),
		playbacksActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "playbacks_active",
			Help:      "Replies currently being revealed.",
		}),
		playbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "playbacks_total",
			Help:      "Finished playbacks, by outcome.",
		}, []string{"outcome"}),
		gatewayDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "gateway_request_duration_seconds",
			Help:      "Latency of chat service requests.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"operation", "status"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		m.sends,
		m.rollbacks,
		m.conversationsCreated,
		m.conversationsDeleted,
		m.playbacksActive,
		m.playbacks,
		m.gatewayDuration,
	)
	return m
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// SendSucceeded counts a reconciled send.
func (m *Metrics) SendSucceeded() {
	if m == nil {
		return
	}
	m.sends.WithLabelValues("ok").Inc()
}

// SendFailed counts a failed send and its rollback.
func (m *Metrics) SendFailed() {
	if m == nil {
		return
	}
	m.sends.WithLabelValues("failed").Inc()
	m.rollbacks.Inc()
}

// ConversationCreated counts a created conversation.
func (m *Metrics) ConversationCreated() {
	if m == nil {
		return
	}
	m.conversationsCreated.Inc()
}

// ConversationDeleted counts a deleted conversation.
func (m *Metrics) ConversationDeleted() {
	if m == nil {
		return
	}
	m.conversationsDeleted.Inc()
}

// PlaybackStarted marks a playback as running.
func (m *Metrics) PlaybackStarted() {
	if m == nil {
		return
	}
	m.playbacksActive.Inc()
}

// PlaybackFinished marks a playback as done. completed is false when it was
// cancelled or superseded.
func (m *Metrics) PlaybackFinished(completed bool) {
	if m == nil {
		return
	}
	m.playbacksActive.Dec()
	outcome := "cancelled"
	if completed {
		outcome = "completed"
	}
	m.playbacks.WithLabelValues(outcome).Inc()
}

// ObserveGateway records the duration of one gateway call.
func (m *Metrics) ObserveGateway(operation, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.gatewayDuration.WithLabelValues(operation, status).Observe(d.Seconds())
}
