package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BookingsCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bookings_created_total",
		Help: "Total number of bookings created",
	}, []string{"product_type"})

	BookingsRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bookings_rejected_total",
		Help: "Total number of booking creations rejected",
	}, []string{"reason"})

	PaymentIntentsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payment_intents_created_total",
		Help: "Total number of PaymentIntents created",
	})

	WebhookEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_total",
		Help: "Total number of payment webhook events received",
	}, []string{"type"})

	PaymentsVerifiedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payments_verified_total",
		Help: "Total number of payments verified against the payment provider",
	})

	PaymentVerificationRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_verification_rejected_total",
		Help: "Webhook success events rejected by independent verification",
	}, []string{"reason"})

	PaymentsFailedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payments_failed_total",
		Help: "Total number of failed payments",
	})

	RefundsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "refunds_total",
		Help: "Total number of refunds applied to bookings",
	}, []string{"kind"})

	ProviderOrdersCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "provider_orders_created_total",
		Help: "Total number of provider orders created after settlement",
	}, []string{"provider"})

	ProviderOrderFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "provider_order_failures_total",
		Help: "Total number of provider order creation failures",
	}, []string{"provider"})

	ProviderOrderLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "provider_order_latency_seconds",
		Help:    "Latency of provider order creation calls",
		Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 40, 60},
	}, []string{"provider"})

	MarginChargesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "margin_charges_total",
		Help: "Total number of successful margin-only charges",
	})

	MarginChargeFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "margin_charge_failures_total",
		Help: "Margin charges that failed after the provider order succeeded",
	})

	VouchersConsumedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vouchers_consumed_total",
		Help: "Total number of vouchers consumed at settlement",
	})

	SideEffectFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "side_effect_failures_total",
		Help: "Failures of fire-and-forget settlement side effects",
	}, []string{"task"})

	EmailJobsScheduledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "email_jobs_scheduled_total",
		Help: "Total number of delayed email jobs scheduled",
	})

	EmailJobsFailedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "email_jobs_failed_total",
		Help: "Total number of delayed email jobs that exhausted retries",
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
