package models

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Monetary values are serialized as plain JSON numbers in the state
	// document, matching the historical on-disk format.
	decimal.MarshalJSONWithoutQuotes = true
}

// Transaction types
const (
	TxTypeDirectSale  = "Direct Sale"
	TxTypePersonalUse = "Personal Use"
	TxTypeConsignment = "Consignment"
)

// Pending transaction status
const (
	PendingStatus = "pending"
)

// Payment allocation statuses
const (
	ItemFullyPaid     = "fully_paid"
	ItemPartiallyPaid = "partially_paid"
)

// Transaction is a confirmed ledger entry. Its id is scoped to the
// confirmed ledger sequence, not the pending queue.
type Transaction struct {
	ID          int             `json:"id"`
	Type        string          `json:"type"`
	Flavor      string          `json:"flavor"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	Consignee   string          `json:"consignee,omitempty"`
	Timestamp   time.Time       `json:"timestamp"`
	ConfirmedAt *time.Time      `json:"confirmed_at,omitempty"`
	Paid        bool            `json:"paid"`
}

// PendingTransaction is a proposed transaction awaiting approval.
// It never touches inventory; its id is scoped to the pending queue.
type PendingTransaction struct {
	ID        int             `json:"id"`
	Type      string          `json:"type"`
	Flavor    string          `json:"flavor"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Consignee string          `json:"consignee,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Status    string          `json:"status"`
}

// ConsigneeItem is one consigned line item. One entry per accepted
// consignment transaction; identical lines are not merged.
type ConsigneeItem struct {
	Flavor         string          `json:"flavor"`
	Quantity       int             `json:"quantity"`
	Price          decimal.Decimal `json:"price"`
	Paid           bool            `json:"paid"`
	PartialPayment decimal.Decimal `json:"partial_payment"`
}

// Total returns the full nominal value of the line.
func (ci ConsigneeItem) Total() decimal.Decimal {
	return ci.Price.Mul(decimal.NewFromInt(int64(ci.Quantity)))
}

// Remaining returns the unpaid balance of the line: quantity*price minus
// whatever partial payments have accumulated.
func (ci ConsigneeItem) Remaining() decimal.Decimal {
	return ci.Total().Sub(ci.PartialPayment)
}

// ItemPayment is one allocation inside a PaymentRecord.
type ItemPayment struct {
	Flavor   string          `json:"flavor"`
	Quantity int             `json:"quantity"`
	Amount   decimal.Decimal `json:"amount"`
	Status   string          `json:"status"`
}

// PaymentRecord is an append-only record of a settlement; never mutated
// after creation.
type PaymentRecord struct {
	Amount        decimal.Decimal `json:"amount"`
	Timestamp     time.Time       `json:"timestamp"`
	RemainingDebt decimal.Decimal `json:"remaining_debt"`
	ItemsPaid     []ItemPayment   `json:"items_paid"`
}

// AuditEvent is one row of the append-only audit trail. Informational
// only; no engine invariant reads it back.
type AuditEvent struct {
	ID        int            `json:"id"`
	EventType string         `json:"event_type"`
	Timestamp time.Time      `json:"timestamp"`
	Details   map[string]any `json:"details"`
}

// Settings holds the mutable pricing defaults. They seed historical data
// and feed the financial summary's base cost; new transactions carry
// caller-supplied prices and are not checked against them.
type Settings struct {
	BaseCost         decimal.Decimal `json:"base_cost"`
	PriceStandard    decimal.Decimal `json:"price_standard"`
	PriceDiscount    decimal.Decimal `json:"price_discount"`
	PriceConsignment decimal.Decimal `json:"price_consignment"`
	PricePersonal    decimal.Decimal `json:"price_personal"`
}

// State is the whole persisted document. Every operation loads it, mutates
// an in-memory copy and writes it back wholesale.
type State struct {
	Inventory           map[string]int             `json:"inventory"`
	Transactions        []Transaction              `json:"transactions"`
	PendingTransactions []PendingTransaction       `json:"pending_transactions"`
	Consignees          map[string][]ConsigneeItem `json:"consignees"`
	Payments            map[string][]PaymentRecord `json:"payments"`
	TransactionHistory  []AuditEvent               `json:"transaction_history"`
	Settings            Settings                   `json:"settings"`
}

// AppendAudit appends an audit event with the next sequence id
// (log length + 1).
func (s *State) AppendAudit(eventType string, details map[string]any) AuditEvent {
	event := AuditEvent{
		ID:        len(s.TransactionHistory) + 1,
		EventType: eventType,
		Timestamp: time.Now(),
		Details:   details,
	}
	s.TransactionHistory = append(s.TransactionHistory, event)
	return event
}

// FinancialSummary is the read-side aggregation over ledger + inventory.
// All values pass through the currency rounding rule.
type FinancialSummary struct {
	CashOnHand          decimal.Decimal `json:"cash_on_hand"`
	TotalReceivables    decimal.Decimal `json:"total_receivables"`
	InventoryValue      decimal.Decimal `json:"inventory_value"`
	NetProfit           decimal.Decimal `json:"net_profit"`
	TotalCostSold       decimal.Decimal `json:"total_cost_sold"`
	PersonalUseRecovery decimal.Decimal `json:"personal_use_recovery"`
}

// ConsigneeSummary is the debt view for one consignee: total over unpaid
// items at full nominal value, plus the unpaid items themselves.
type ConsigneeSummary struct {
	TotalDebt decimal.Decimal `json:"total_debt"`
	Items     []ConsigneeItem `json:"items"`
}
