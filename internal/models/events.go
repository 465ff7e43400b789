package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Audit stream event types
const (
	EventTypeTransactionCreated  = "transaction_created"
	EventTypeTransactionAccepted = "transaction_accepted"
	EventTypeTransactionRejected = "transaction_rejected"
	EventTypeTransactionDeleted  = "transaction_deleted"
	EventTypeFullPayment         = "consignee_full_payment"
	EventTypePartialPayment      = "consignee_partial_payment"
	EventTypeBulkConsignment     = "bulk_consignment_added"
)

// BaseEvent contains common fields for all streamed events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// TransactionCreatedEvent published when a transaction is staged as pending
type TransactionCreatedEvent struct {
	BaseEvent
	TransactionID int             `json:"transaction_id"`
	Type          string          `json:"type"`
	Flavor        string          `json:"flavor"`
	Quantity      int             `json:"quantity"`
	Price         decimal.Decimal `json:"price"`
	Consignee     string          `json:"consignee,omitempty"`
}

// TransactionAcceptedEvent published when a pending transaction is confirmed
type TransactionAcceptedEvent struct {
	BaseEvent
	TransactionID int             `json:"transaction_id"`
	Type          string          `json:"type"`
	Flavor        string          `json:"flavor"`
	Quantity      int             `json:"quantity"`
	Price         decimal.Decimal `json:"price"`
	Consignee     string          `json:"consignee,omitempty"`
}

// TransactionRejectedEvent published when a pending transaction is discarded
type TransactionRejectedEvent struct {
	BaseEvent
	TransactionID int    `json:"transaction_id"`
	Type          string `json:"type"`
	Flavor        string `json:"flavor"`
	Quantity      int    `json:"quantity"`
}

// TransactionDeletedEvent published when a confirmed transaction is removed
// and its inventory restored
type TransactionDeletedEvent struct {
	BaseEvent
	TransactionID int    `json:"transaction_id"`
	Type          string `json:"type"`
	Flavor        string `json:"flavor"`
	Quantity      int    `json:"quantity"`
	Consignee     string `json:"consignee,omitempty"`
}

// PaymentRecordedEvent published when a settlement is applied against a
// consignee's unpaid items
type PaymentRecordedEvent struct {
	BaseEvent
	Consignee     string          `json:"consignee"`
	Amount        decimal.Decimal `json:"amount"`
	RemainingDebt decimal.Decimal `json:"remaining_debt"`
	PaymentType   string          `json:"payment_type"`
	ItemsPaid     []ItemPayment   `json:"items_paid,omitempty"`
}

// BulkConsignmentEvent published when a bulk consignment is applied
type BulkConsignmentEvent struct {
	BaseEvent
	Consignee  string          `json:"consignee"`
	ItemsCount int             `json:"items_count"`
	Total      decimal.Decimal `json:"total"`
}
