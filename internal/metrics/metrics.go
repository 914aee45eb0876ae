package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	admissionDecisionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gatekeeper_admission_decisions_total",
		Help: "Total number of admission decisions, by outcome",
	}, []string{"outcome"})
	geoLookupsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gatekeeper_geo_lookups_total",
		Help: "Total number of geolocation lookups, by result (found, unknown, error, skipped)",
	}, []string{"result"})
	accessLogErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gatekeeper_access_log_errors_total",
		Help: "Total number of access log lines that could not be formatted or written",
	})
	notificationsDroppedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gatekeeper_notifications_dropped_total",
		Help: "Total number of security notifications dropped because the queue was full",
	})
)

// Register registers Prometheus collectors. Call once at startup.
func Register(registry *prometheus.Registry) {
	registry.MustRegister(admissionDecisionsTotal, geoLookupsTotal, accessLogErrorsTotal, notificationsDroppedTotal)
}

// IncDecision counts one admission outcome.
func IncDecision(outcome string) { admissionDecisionsTotal.WithLabelValues(outcome).Inc() }

// IncGeoLookup counts one geolocation lookup result.
func IncGeoLookup(result string) { geoLookupsTotal.WithLabelValues(result).Inc() }

// IncAccessLogError counts a dropped or degraded access log line.
func IncAccessLogError() { accessLogErrorsTotal.Inc() }

// IncNotificationDropped counts a security notification that was not queued.
func IncNotificationDropped() { notificationsDroppedTotal.Inc() }

