// Package metrics registra los colectores Prometheus del proceso.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequests cuenta requests por ruta/método/status.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bhoomi_http_requests_total",
		Help: "HTTP requests processed, by route, method and status class.",
	}, []string{"route", "method", "status"})

	// HTTPDuration mide latencia por ruta.
	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bhoomi_http_request_duration_seconds",
		Help:    "HTTP request latency by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})

	// ConsentGrants cuenta grants creados (incluye supersedes).
	ConsentGrants = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bhoomi_consent_grants_total",
		Help: "Consent grants recorded.",
	})

	// ConsentRevocations cuenta revocaciones efectivas.
	ConsentRevocations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bhoomi_consent_revocations_total",
		Help: "Consent revocations that deactivated an active grant.",
	})

	// CascadeRejections cuenta data requests rechazados por cascada.
	CascadeRejections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bhoomi_cascade_rejections_total",
		Help: "Data requests auto-rejected by consent revocation.",
	})

	// ProjectionsDenied cuenta lecturas scoped negadas en el re-check.
	ProjectionsDenied = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bhoomi_projections_denied_total",
		Help: "Scoped data reads denied at ledger re-check.",
	})
)
