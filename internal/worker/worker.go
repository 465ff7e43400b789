package worker

import (
	"context"
	"encoding/json"
	"log"

	"consignment-service/internal/broker"
	"consignment-service/internal/models"
	"consignment-service/internal/util"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// AuditWorker tails the audit event stream and surfaces it through logs
// and metrics. It is an observer only; the in-document audit trail stays
// the durable record.
type AuditWorker struct {
	consumer *broker.Consumer
	logger   *zap.Logger
}

// NewAuditWorker creates a new audit worker
func NewAuditWorker(consumer *broker.Consumer) *AuditWorker {
	return &AuditWorker{
		consumer: consumer,
		logger:   util.GetLogger(),
	}
}

// Start starts consuming the audit stream
func (w *AuditWorker) Start(ctx context.Context) error {
	log.Println("Starting audit worker...")

	return w.consumer.StartConsuming(ctx, func(ctx context.Context, msg kafka.Message) error {
		var base models.BaseEvent
		if err := json.Unmarshal(msg.Value, &base); err != nil {
			w.logger.Warn("Skipping malformed audit event", zap.Error(err))
			return nil
		}

		util.AuditEventsConsumedTotal.WithLabelValues(base.EventType).Inc()
		w.logger.Info("Audit event",
			zap.String("event_id", base.EventID),
			zap.String("event_type", base.EventType),
			zap.Time("event_time", base.Timestamp),
			zap.String("key", string(msg.Key)))
		return nil
	})
}

// Stop stops the worker
func (w *AuditWorker) Stop() error {
	log.Println("Stopping audit worker...")
	return w.consumer.Close()
}
