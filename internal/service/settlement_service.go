package service

import (
	"context"
	"fmt"
	"time"

	"consignment-service/internal/broker"
	"consignment-service/internal/models"
	"consignment-service/internal/money"
	"consignment-service/internal/store"
	"consignment-service/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// SettlementService applies payments against a consignee's unpaid items
// and keeps the consignee ledger and transaction ledger in sync.
type SettlementService struct {
	store  *store.Store
	audit  *broker.AuditPublisher
	logger *zap.Logger
}

// NewSettlementService creates a new settlement service. audit may be nil.
func NewSettlementService(store *store.Store, audit *broker.AuditPublisher) *SettlementService {
	return &SettlementService{
		store:  store,
		audit:  audit,
		logger: util.GetLogger(),
	}
}

// debtOf sums quantity*price over unpaid items. Partially-paid items count
// at full nominal value in this view; only the allocation inside Pay nets
// out accumulated partial payments.
func debtOf(state *models.State, consignee string) decimal.Decimal {
	total := decimal.Zero
	for _, item := range state.Consignees[consignee] {
		if !item.Paid {
			total = total.Add(item.Total())
		}
	}
	return total
}

// ListConsigneeDebts returns the debt summary for every consignee:
// outstanding total and the unpaid items behind it.
func (s *SettlementService) ListConsigneeDebts(ctx context.Context) (map[string]models.ConsigneeSummary, error) {
	summary := make(map[string]models.ConsigneeSummary)
	err := s.store.View(func(state *models.State) error {
		for name, items := range state.Consignees {
			unpaid := []models.ConsigneeItem{}
			for _, item := range items {
				if !item.Paid {
					unpaid = append(unpaid, item)
				}
			}
			summary[name] = models.ConsigneeSummary{
				TotalDebt: money.Round(debtOf(state, name)),
				Items:     unpaid,
			}
		}
		return nil
	})
	return summary, err
}

// PayRequest applies an amount against a consignee's unpaid items.
// SelectedItems are indices into the consignee's item list; when empty the
// allocation walks the full list in insertion order (FIFO).
type PayRequest struct {
	Amount        decimal.Decimal `json:"amount"`
	SelectedItems []int           `json:"selected_items"`
}

// Pay runs the partial-payment allocation: candidates are either the
// selected indices in the given order or the whole list FIFO. Each
// candidate still unpaid absorbs payment up to its remaining value; a
// fully covered item is marked paid and its first structurally matching
// unpaid transaction is marked paid too. The last item touched may end up
// with only its partial-payment accumulator increased.
func (s *SettlementService) Pay(ctx context.Context, consignee string, req *PayRequest) (*models.PaymentRecord, error) {
	ctx, span := util.StartSpan(ctx, "SettlementService.Pay")
	defer span.End()

	var record models.PaymentRecord
	err := s.store.Mutate(func(state *models.State) error {
		if _, ok := state.Consignees[consignee]; !ok {
			util.PaymentsRefusedTotal.WithLabelValues("unknown_consignee").Inc()
			return fmt.Errorf("%w: consignee %q", ErrNotFound, consignee)
		}
		if !req.Amount.IsPositive() {
			util.PaymentsRefusedTotal.WithLabelValues("invalid_amount").Inc()
			return ErrInvalidAmount
		}

		totalDebt := debtOf(state, consignee)
		if req.Amount.GreaterThan(totalDebt) {
			util.PaymentsRefusedTotal.WithLabelValues("exceeds_debt").Inc()
			return fmt.Errorf("%w: payment %s exceeds total debt %s",
				ErrExceedsDebt, money.Round(req.Amount), money.Round(totalDebt))
		}

		record = models.PaymentRecord{
			Amount:        money.Round(req.Amount),
			Timestamp:     time.Now(),
			RemainingDebt: money.Round(totalDebt.Sub(req.Amount)),
			ItemsPaid:     []models.ItemPayment{},
		}

		items := state.Consignees[consignee]
		remaining := req.Amount

		candidates := req.SelectedItems
		if len(candidates) == 0 {
			candidates = make([]int, len(items))
			for i := range items {
				candidates[i] = i
			}
		}

		for _, idx := range candidates {
			if idx < 0 || idx >= len(items) || !remaining.IsPositive() {
				continue
			}
			item := &items[idx]
			if item.Paid {
				continue
			}

			itemRemaining := item.Remaining()
			if remaining.GreaterThanOrEqual(itemRemaining) {
				item.Paid = true
				remaining = remaining.Sub(itemRemaining)
				record.ItemsPaid = append(record.ItemsPaid, models.ItemPayment{
					Flavor:   item.Flavor,
					Quantity: item.Quantity,
					Amount:   money.Round(itemRemaining),
					Status:   models.ItemFullyPaid,
				})
				markTransactionPaid(state, consignee, item.Flavor, item.Quantity)
			} else {
				item.PartialPayment = money.Round(item.PartialPayment.Add(remaining))
				record.ItemsPaid = append(record.ItemsPaid, models.ItemPayment{
					Flavor:   item.Flavor,
					Quantity: item.Quantity,
					Amount:   money.Round(remaining),
					Status:   models.ItemPartiallyPaid,
				})
				remaining = decimal.Zero
			}
		}
		state.Consignees[consignee] = items

		state.Payments[consignee] = append(state.Payments[consignee], record)

		state.AppendAudit(models.EventTypePartialPayment, map[string]any{
			"consignee":      consignee,
			"amount":         record.Amount,
			"remaining_debt": record.RemainingDebt,
			"payment_type":   "partial",
			"items_paid":     record.ItemsPaid,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	util.PaymentsRecordedTotal.WithLabelValues("partial").Inc()
	amount, _ := record.Amount.Float64()
	util.PaymentAmount.Observe(amount)
	s.logger.Info("Payment recorded",
		zap.String("consignee", consignee),
		zap.String("amount", record.Amount.String()),
		zap.String("remaining_debt", record.RemainingDebt.String()),
		zap.Int("items_paid", len(record.ItemsPaid)))

	s.publishPayment(ctx, consignee, record.Amount, record.RemainingDebt, "partial", record.ItemsPaid)
	return &record, nil
}

// markTransactionPaid flags the first unpaid transaction matching
// (consignee, flavor, quantity). Matching is structural; with duplicate
// identical lines the earliest one wins.
func markTransactionPaid(state *models.State, consignee, flavor string, quantity int) {
	for i := range state.Transactions {
		txn := &state.Transactions[i]
		if txn.Consignee == consignee && txn.Flavor == flavor && txn.Quantity == quantity && !txn.Paid {
			txn.Paid = true
			return
		}
	}
}

// MarkPaid settles everything for a consignee at once: every item is
// marked paid, bypassing the allocation algorithm, and every unpaid
// transaction for that consignee is flagged paid.
func (s *SettlementService) MarkPaid(ctx context.Context, consignee string) error {
	ctx, span := util.StartSpan(ctx, "SettlementService.MarkPaid")
	defer span.End()

	var settled decimal.Decimal
	err := s.store.Mutate(func(state *models.State) error {
		items, ok := state.Consignees[consignee]
		if !ok {
			return fmt.Errorf("%w: consignee %q", ErrNotFound, consignee)
		}

		settled = debtOf(state, consignee)
		for i := range items {
			items[i].Paid = true
		}
		state.Consignees[consignee] = items

		for i := range state.Transactions {
			txn := &state.Transactions[i]
			if txn.Consignee == consignee && !txn.Paid {
				txn.Paid = true
			}
		}

		state.AppendAudit(models.EventTypeFullPayment, map[string]any{
			"consignee":    consignee,
			"amount":       money.Round(settled),
			"payment_type": "full",
		})
		return nil
	})
	if err != nil {
		return err
	}

	util.PaymentsRecordedTotal.WithLabelValues("full").Inc()
	s.logger.Info("Consignee marked fully paid",
		zap.String("consignee", consignee),
		zap.String("amount", money.Round(settled).String()))

	s.publishPayment(ctx, consignee, money.Round(settled), decimal.Zero, "full", nil)
	return nil
}

// PaymentHistory returns the append-only payment records for a consignee.
func (s *SettlementService) PaymentHistory(ctx context.Context, consignee string) ([]models.PaymentRecord, error) {
	var history []models.PaymentRecord
	err := s.store.View(func(state *models.State) error {
		if _, ok := state.Consignees[consignee]; !ok {
			return fmt.Errorf("%w: consignee %q", ErrNotFound, consignee)
		}
		history = append([]models.PaymentRecord{}, state.Payments[consignee]...)
		return nil
	})
	return history, err
}

func (s *SettlementService) publishPayment(ctx context.Context, consignee string, amount, remaining decimal.Decimal, paymentType string, itemsPaid []models.ItemPayment) {
	if s.audit == nil {
		return
	}
	eventType := models.EventTypePartialPayment
	if paymentType == "full" {
		eventType = models.EventTypeFullPayment
	}
	event := &models.PaymentRecordedEvent{
		BaseEvent:     newBaseEvent(eventType),
		Consignee:     consignee,
		Amount:        amount,
		RemainingDebt: remaining,
		PaymentType:   paymentType,
		ItemsPaid:     itemsPaid,
	}
	if err := s.audit.PublishPaymentRecorded(ctx, event); err != nil {
		s.logger.Error("Failed to publish payment event", zap.Error(err))
	}
}
