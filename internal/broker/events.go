package broker

import (
	"context"
	"fmt"

	"consignment-service/internal/models"
	"consignment-service/internal/util"
)

// AuditPublisher streams audit events for every state-changing operation.
// Publishing is best-effort: callers log failures and carry on, the
// in-document audit trail is the durable record.
type AuditPublisher struct {
	producer *Producer
}

// NewAuditPublisher creates a new audit event publisher
func NewAuditPublisher(producer *Producer) *AuditPublisher {
	return &AuditPublisher{producer: producer}
}

func (ap *AuditPublisher) publish(ctx context.Context, key, eventType string, event interface{}) error {
	if err := ap.producer.PublishEvent(ctx, key, event); err != nil {
		return err
	}
	util.AuditEventsPublishedTotal.WithLabelValues(eventType).Inc()
	return nil
}

// PublishTransactionCreated publishes a transaction_created event
func (ap *AuditPublisher) PublishTransactionCreated(ctx context.Context, event *models.TransactionCreatedEvent) error {
	key := fmt.Sprintf("pending-%d", event.TransactionID)
	return ap.publish(ctx, key, event.EventType, event)
}

// PublishTransactionAccepted publishes a transaction_accepted event
func (ap *AuditPublisher) PublishTransactionAccepted(ctx context.Context, event *models.TransactionAcceptedEvent) error {
	key := fmt.Sprintf("transaction-%d", event.TransactionID)
	return ap.publish(ctx, key, event.EventType, event)
}

// PublishTransactionRejected publishes a transaction_rejected event
func (ap *AuditPublisher) PublishTransactionRejected(ctx context.Context, event *models.TransactionRejectedEvent) error {
	key := fmt.Sprintf("pending-%d", event.TransactionID)
	return ap.publish(ctx, key, event.EventType, event)
}

// PublishTransactionDeleted publishes a transaction_deleted event
func (ap *AuditPublisher) PublishTransactionDeleted(ctx context.Context, event *models.TransactionDeletedEvent) error {
	key := fmt.Sprintf("transaction-%d", event.TransactionID)
	return ap.publish(ctx, key, event.EventType, event)
}

// PublishPaymentRecorded publishes a consignee payment event
func (ap *AuditPublisher) PublishPaymentRecorded(ctx context.Context, event *models.PaymentRecordedEvent) error {
	key := fmt.Sprintf("consignee-%s", event.Consignee)
	return ap.publish(ctx, key, event.EventType, event)
}

// PublishBulkConsignment publishes a bulk_consignment_added event
func (ap *AuditPublisher) PublishBulkConsignment(ctx context.Context, event *models.BulkConsignmentEvent) error {
	key := fmt.Sprintf("consignee-%s", event.Consignee)
	return ap.publish(ctx, key, event.EventType, event)
}
