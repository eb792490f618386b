package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	BookingsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bookings_created_total",
			Help: "Bookings committed",
		},
	)

	BookingsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookings_rejected_total",
			Help: "Booking attempts that did not commit, by reason",
		},
		[]string{"reason"},
	)

	BookingTxRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "booking_tx_retries_total",
			Help: "Booking transactions retried after a write conflict",
		},
	)

	BookingTxDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "booking_tx_duration_seconds",
			Help:    "Duration of booking units of work",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	BookingStatusChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_status_changes_total",
			Help: "Booking status transitions",
		},
		[]string{"to"},
	)

	StockRestoreFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stock_restore_failures_total",
			Help: "Line items whose stock could not be restored on cancellation",
		},
	)

	KafkaDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_messages_dropped_total",
			Help: "Messages dropped because the producer inbox was full",
		},
		[]string{"topic"},
	)

	KafkaGivenUp = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_messages_given_up_total",
			Help: "Consumed messages whose handler kept failing after every retry",
		},
		[]string{"topic"},
	)

	Notifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_total",
			Help: "Email notifications handed to a sender",
		},
		[]string{"kind", "status"},
	)
)

func Handler() http.Handler { return promhttp.Handler() }
