package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ConfirmationsSent tracks dispatch attempts by outcome
	ConfirmationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "confirmation_service_sent_total",
			Help: "Total number of confirmation messages dispatched",
		},
		[]string{"game_id", "status"},
	)

	// ConfirmationsSkipped tracks recipients skipped during tier processing
	ConfirmationsSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "confirmation_service_skipped_total",
			Help: "Total number of recipients skipped during tier processing",
		},
		[]string{"reason"}, // answered, already_sent, no_phone, exhausted, conflict
	)

	// EngineRunDuration tracks engine run duration
	EngineRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "confirmation_service_run_duration_seconds",
			Help:    "Confirmation engine run duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// SchedulerTicks tracks scheduler tick outcomes
	SchedulerTicks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "confirmation_service_scheduler_ticks_total",
			Help: "Total number of scheduler ticks by outcome",
		},
		[]string{"outcome"}, // run, skipped
	)

	// RepliesProcessed tracks inbound reply resolution outcomes
	RepliesProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "confirmation_service_replies_total",
			Help: "Total number of inbound replies by resolution outcome",
		},
		[]string{"outcome"}, // confirmed, declined, undecided, unrecognized, not_found
	)

	// DLQSize tracks the number of dead-lettered dispatch keys
	DLQSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "confirmation_service_dlq_size",
			Help: "Number of dispatch keys flagged for manual attention",
		},
	)

	// TransportRetries tracks transient transport retries
	TransportRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "confirmation_service_transport_retries_total",
			Help: "Total number of transient transport retries",
		},
	)

	// RateLimitExceeded tracks rate limit violations on the admin surface
	RateLimitExceeded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "confirmation_service_rate_limit_exceeded_total",
			Help: "Total number of rate limit exceeded events",
		},
		[]string{"game_id"},
	)

	// BroadcastQueueSize tracks pending broadcast jobs
	BroadcastQueueSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "confirmation_service_broadcast_queue_size",
			Help: "Current number of queued broadcast messages",
		},
	)
)
