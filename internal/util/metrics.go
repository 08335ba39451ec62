package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BookingsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bookings_created_total",
		Help: "Total number of reservations created via order issuance",
	})

	DirectBookingsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "direct_bookings_total",
		Help: "Total number of reservations created via the direct path",
	})

	BookingsConfirmedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bookings_confirmed_total",
		Help: "Total number of reservations confirmed by settlement",
	})

	BookingsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bookings_failed_total",
		Help: "Total number of failed booking attempts",
	}, []string{"reason"})

	GatewayOrdersCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gateway_orders_created_total",
		Help: "Total number of payment orders created at the gateway",
	})

	GatewayOrderFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gateway_order_failures_total",
		Help: "Total number of failed gateway order creations",
	})

	GatewayOrderLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "gateway_order_latency_seconds",
		Help:    "Latency of gateway order creation",
		Buckets: prometheus.DefBuckets,
	})

	WebhookEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_total",
		Help: "Total number of webhook deliveries by outcome",
	}, []string{"event", "result"})

	WebhookRejectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "webhook_rejected_total",
		Help: "Total number of webhook deliveries rejected for bad signatures",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
