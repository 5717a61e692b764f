// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Result label values.
const (
	ResultSuccess  = "success"
	ResultRejected = "rejected"
	ResultError    = "error"
)

// Metrics holds the authcore collectors.
type Metrics struct {
	AuthAttempts    *prometheus.CounterVec
	RoleChanges     *prometheus.CounterVec
	HTTPRequests    *prometheus.CounterVec
	HTTPDuration    *prometheus.HistogramVec
	RoleCacheHits   prometheus.CounterFunc
	RoleCacheMisses prometheus.CounterFunc
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		AuthAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "authcore_auth_attempts_total",
				Help: "Register and login attempts by operation and result",
			},
			[]string{"operation", "result"},
		),
		RoleChanges: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "authcore_role_changes_total",
				Help: "Role add and remove requests by operation and result",
			},
			[]string{"operation", "result"},
		),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "authcore_http_requests_total",
				Help: "HTTP requests by method, route template and status code",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "authcore_http_request_duration_seconds",
				Help:    "HTTP request latency by method and route template",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}
	reg.MustRegister(m.AuthAttempts, m.RoleChanges, m.HTTPRequests, m.HTTPDuration)
	return m
}

// RoleCacheStats is satisfied by auth.CachedRoleRepository.
type RoleCacheStats interface {
	Stats() (hits, misses int64)
}

// RegisterRoleCache exposes the cache hit and miss counts on reg.
func (m *Metrics) RegisterRoleCache(reg prometheus.Registerer, cache RoleCacheStats) {
	m.RoleCacheHits = prometheus.NewCounterFunc(prometheus.CounterOpts{
		Name: "authcore_role_cache_hits_total",
		Help: "Role lookups answered from the cache",
	}, func() float64 {
		hits, _ := cache.Stats()
		return float64(hits)
	})
	m.RoleCacheMisses = prometheus.NewCounterFunc(prometheus.CounterOpts{
		Name: "authcore_role_cache_misses_total",
		Help: "Role lookups that reached the store",
	}, func() float64 {
		_, misses := cache.Stats()
		return float64(misses)
	})
	reg.MustRegister(m.RoleCacheHits, m.RoleCacheMisses)
}

// AuthAttempt counts one register or login outcome.
func (m *Metrics) AuthAttempt(operation, result string) {
	if m == nil {
		return
	}
	m.AuthAttempts.WithLabelValues(operation, result).Inc()
}

// RoleChange counts one role add or remove outcome.
func (m *Metrics) RoleChange(operation, result string) {
	if m == nil {
		return
	}
	m.RoleChanges.WithLabelValues(operation, result).Inc()
}

// ObserveRequest records a finished HTTP request.
func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
