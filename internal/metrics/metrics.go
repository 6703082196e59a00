package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	JobsCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wrapgen_jobs_created_total",
			Help: "Total number of generation jobs created",
		},
		[]string{"kind", "category"},
	)

	JobsCompletedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wrapgen_jobs_completed_total",
			Help: "Total number of generation jobs that reached a terminal state",
		},
		[]string{"kind", "status"},
	)

	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wrapgen_job_duration_seconds",
			Help:    "Wall time of the synchronous generation pipeline",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		},
		[]string{"kind"},
	)

	CreditsConsumedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wrapgen_credits_consumed_total",
			Help: "Total credits debited for completed generations",
		},
	)

	CreditsPurchasedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wrapgen_credits_purchased_total",
			Help: "Total credits granted through payment webhooks",
		},
	)

	WebhookEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wrapgen_webhook_events_total",
			Help: "Payment webhook deliveries by outcome",
		},
		[]string{"outcome"},
	)
)
