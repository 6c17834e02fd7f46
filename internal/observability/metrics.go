// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Taskroster Contributors

package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the application's Prometheus collectors.
// All methods are safe to call on a nil *Metrics, which records nothing.
type Metrics struct {
	Registrations  *prometheus.CounterVec
	Invitations    *prometheus.CounterVec
	SessionsPurged prometheus.Counter
	HTTPRequests   *prometheus.CounterVec
	HTTPDuration   *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Registrations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taskroster_registrations_total",
				Help: "Registration attempts by terminal state",
			},
			[]string{"outcome"},
		),
		Invitations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taskroster_invitations_total",
				Help: "Invitation attempts by result",
			},
			[]string{"outcome"},
		),
		SessionsPurged: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "taskroster_sessions_purged_total",
				Help: "Expired sessions removed by the cleanup loop",
			},
		),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taskroster_http_requests_total",
				Help: "HTTP requests by route and status code",
			},
			[]string{"route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "taskroster_http_request_duration_seconds",
				Help:    "HTTP request latency by route",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
	}

	reg.MustRegister(m.Registrations, m.Invitations, m.SessionsPurged, m.HTTPRequests, m.HTTPDuration)
	return m
}

// ObserveRegistration counts one registration that ended in outcome.
func (m *Metrics) ObserveRegistration(outcome string) {
	if m == nil {
		return
	}
	m.Registrations.WithLabelValues(outcome).Inc()
}

// ObserveInvitation counts one invitation attempt.
func (m *Metrics) ObserveInvitation(outcome string) {
	if m == nil {
		return
	}
	m.Invitations.WithLabelValues(outcome).Inc()
}

// ObserveSessionsPurged adds n purged sessions.
func (m *Metrics) ObserveSessionsPurged(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.SessionsPurged.Add(float64(n))
}

// ObserveHTTP records one served request.
func (m *Metrics) ObserveHTTP(route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}
