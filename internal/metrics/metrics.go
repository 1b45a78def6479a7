// Package metrics exposes the Prometheus collectors for the marketplace.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PurchasesTotal counts purchase attempts by outcome: committed,
	// rejected (validation, stock, not found), duplicate, or error.
	PurchasesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marketplace_purchases_total",
		Help: "Purchase attempts by outcome.",
	}, []string{"outcome"})

	// CommitConflicts counts transient storage conflicts retried by the
	// purchase coordinator.
	CommitConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "marketplace_commit_conflicts_total",
		Help: "Transient storage conflicts during purchase commits.",
	})

	// ListingsTotal counts successfully created listings.
	ListingsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "marketplace_listings_total",
		Help: "Listings created.",
	})

	// RequestDuration observes HTTP request latency per route and status.
	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "marketplace_http_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "method", "status"})
)
