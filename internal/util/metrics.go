package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TransactionsSubmittedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "transactions_submitted_total",
		Help: "Total number of transactions staged as pending",
	}, []string{"type"})

	TransactionsAcceptedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "transactions_accepted_total",
		Help: "Total number of pending transactions confirmed",
	}, []string{"type"})

	TransactionsRejectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "transactions_rejected_total",
		Help: "Total number of pending transactions rejected",
	})

	TransactionsDeletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "transactions_deleted_total",
		Help: "Total number of confirmed transactions deleted with inventory restored",
	})

	OutOfStockTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "out_of_stock_refusals_total",
		Help: "Total number of operations refused for insufficient stock",
	}, []string{"operation"})

	PaymentsRecordedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payments_recorded_total",
		Help: "Total number of consignee payments recorded",
	}, []string{"payment_type"})

	PaymentsRefusedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payments_refused_total",
		Help: "Total number of consignee payments refused",
	}, []string{"reason"})

	PaymentAmount = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "payment_amount",
		Help:    "Distribution of recorded payment amounts",
		Buckets: prometheus.ExponentialBuckets(50, 2, 10),
	})

	AuditEventsPublishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "audit_events_published_total",
		Help: "Total number of audit events published to the stream",
	}, []string{"event_type"})

	AuditEventsConsumedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "audit_events_consumed_total",
		Help: "Total number of audit events consumed from the stream",
	}, []string{"event_type"})

	InventorySyncFailedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "inventory_sync_failed_total",
		Help: "Total number of failed Redis inventory mirror syncs",
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
