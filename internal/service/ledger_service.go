package service

import (
	"context"
	"fmt"
	"time"

	"consignment-service/internal/broker"
	"consignment-service/internal/models"
	"consignment-service/internal/money"
	"consignment-service/internal/redisclient"
	"consignment-service/internal/store"
	"consignment-service/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// LedgerService owns the transaction lifecycle: staging, confirmation,
// rejection and deletion, plus the inventory mutations they imply.
type LedgerService struct {
	store  *store.Store
	mirror *redisclient.Client
	audit  *broker.AuditPublisher
	logger *zap.Logger
}

// NewLedgerService creates a new ledger service. mirror and audit may be
// nil; both are best-effort side channels.
func NewLedgerService(store *store.Store, mirror *redisclient.Client, audit *broker.AuditPublisher) *LedgerService {
	return &LedgerService{
		store:  store,
		mirror: mirror,
		audit:  audit,
		logger: util.GetLogger(),
	}
}

// SubmitTransactionRequest stages a new transaction for approval.
type SubmitTransactionRequest struct {
	Type      string          `json:"type" binding:"required"`
	Flavor    string          `json:"flavor" binding:"required"`
	Quantity  int             `json:"quantity" binding:"required,min=1"`
	Price     decimal.Decimal `json:"price" binding:"required"`
	Consignee string          `json:"consignee"`
}

// SubmitTransaction validates stock and appends a pending transaction.
// Inventory is not touched until the transaction is accepted. The pending
// id is scoped to the pending queue, independent of confirmed ids.
func (s *LedgerService) SubmitTransaction(ctx context.Context, req *SubmitTransactionRequest) (*models.PendingTransaction, error) {
	ctx, span := util.StartSpan(ctx, "LedgerService.SubmitTransaction")
	defer span.End()

	var pending models.PendingTransaction
	err := s.store.Mutate(func(state *models.State) error {
		if err := reserveStock(state, req.Flavor, req.Quantity); err != nil {
			util.OutOfStockTotal.WithLabelValues("submit").Inc()
			return err
		}

		pending = models.PendingTransaction{
			ID:        len(state.PendingTransactions) + 1,
			Type:      req.Type,
			Flavor:    req.Flavor,
			Quantity:  req.Quantity,
			Price:     req.Price,
			Consignee: req.Consignee,
			Timestamp: time.Now(),
			Status:    models.PendingStatus,
		}
		state.PendingTransactions = append(state.PendingTransactions, pending)

		state.AppendAudit(models.EventTypeTransactionCreated, map[string]any{
			"transaction_id": pending.ID,
			"type":           pending.Type,
			"flavor":         pending.Flavor,
			"quantity":       pending.Quantity,
			"price":          pending.Price,
			"consignee":      pending.Consignee,
			"status":         models.PendingStatus,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	util.TransactionsSubmittedTotal.WithLabelValues(req.Type).Inc()
	s.logger.Info("Transaction staged as pending",
		zap.Int("pending_id", pending.ID),
		zap.String("type", pending.Type),
		zap.String("flavor", pending.Flavor),
		zap.Int("quantity", pending.Quantity))

	s.publishCreated(ctx, &pending)
	return &pending, nil
}

// ListPending returns all transactions awaiting approval.
func (s *LedgerService) ListPending(ctx context.Context) ([]models.PendingTransaction, error) {
	var pending []models.PendingTransaction
	err := s.store.View(func(state *models.State) error {
		pending = append([]models.PendingTransaction{}, state.PendingTransactions...)
		return nil
	})
	return pending, err
}

// ListTransactions returns the confirmed ledger.
func (s *LedgerService) ListTransactions(ctx context.Context) ([]models.Transaction, error) {
	var txns []models.Transaction
	err := s.store.View(func(state *models.State) error {
		txns = append([]models.Transaction{}, state.Transactions...)
		return nil
	})
	return txns, err
}

// AcceptPending confirms a pending transaction: re-validates stock,
// assigns a fresh id from the confirmed sequence, decrements inventory and
// updates the consignee ledger for consignments. Consignments are
// confirmed unpaid; everything else is paid on confirmation.
func (s *LedgerService) AcceptPending(ctx context.Context, pendingID int) (*models.Transaction, error) {
	ctx, span := util.StartSpan(ctx, "LedgerService.AcceptPending")
	defer span.End()

	var (
		confirmed models.Transaction
		counts    map[string]int
	)
	err := s.store.Mutate(func(state *models.State) error {
		idx := -1
		for i, p := range state.PendingTransactions {
			if p.ID == pendingID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return fmt.Errorf("%w: pending transaction %d", ErrNotFound, pendingID)
		}
		pending := state.PendingTransactions[idx]

		// Stock may have moved since submission.
		if err := reserveStock(state, pending.Flavor, pending.Quantity); err != nil {
			util.OutOfStockTotal.WithLabelValues("accept").Inc()
			return err
		}

		now := time.Now()
		confirmed = models.Transaction{
			ID:          len(state.Transactions) + 1,
			Type:        pending.Type,
			Flavor:      pending.Flavor,
			Quantity:    pending.Quantity,
			Price:       pending.Price,
			Consignee:   pending.Consignee,
			Timestamp:   pending.Timestamp,
			ConfirmedAt: &now,
			Paid:        pending.Type != models.TxTypeConsignment,
		}

		state.Transactions = append(state.Transactions, confirmed)
		state.Inventory[pending.Flavor] -= pending.Quantity

		if pending.Type == models.TxTypeConsignment && pending.Consignee != "" {
			state.Consignees[pending.Consignee] = append(state.Consignees[pending.Consignee], models.ConsigneeItem{
				Flavor:         pending.Flavor,
				Quantity:       pending.Quantity,
				Price:          pending.Price,
				Paid:           false,
				PartialPayment: decimal.Zero,
			})
		}

		state.PendingTransactions = append(state.PendingTransactions[:idx], state.PendingTransactions[idx+1:]...)

		state.AppendAudit(models.EventTypeTransactionAccepted, map[string]any{
			"transaction_id": confirmed.ID,
			"type":           confirmed.Type,
			"flavor":         confirmed.Flavor,
			"quantity":       confirmed.Quantity,
			"price":          confirmed.Price,
			"consignee":      confirmed.Consignee,
		})

		counts = state.Inventory
		return nil
	})
	if err != nil {
		return nil, err
	}

	util.TransactionsAcceptedTotal.WithLabelValues(confirmed.Type).Inc()
	s.logger.Info("Transaction accepted",
		zap.Int("transaction_id", confirmed.ID),
		zap.String("type", confirmed.Type),
		zap.String("flavor", confirmed.Flavor))

	mirrorInventory(ctx, s.mirror, s.logger, counts)
	s.publishAccepted(ctx, &confirmed)
	return &confirmed, nil
}

// RejectPending discards a pending transaction. Inventory was never
// touched for it, so nothing is restored.
func (s *LedgerService) RejectPending(ctx context.Context, pendingID int) error {
	ctx, span := util.StartSpan(ctx, "LedgerService.RejectPending")
	defer span.End()

	var rejected models.PendingTransaction
	err := s.store.Mutate(func(state *models.State) error {
		idx := -1
		for i, p := range state.PendingTransactions {
			if p.ID == pendingID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return fmt.Errorf("%w: pending transaction %d", ErrNotFound, pendingID)
		}
		rejected = state.PendingTransactions[idx]
		state.PendingTransactions = append(state.PendingTransactions[:idx], state.PendingTransactions[idx+1:]...)

		state.AppendAudit(models.EventTypeTransactionRejected, map[string]any{
			"transaction_id": rejected.ID,
			"type":           rejected.Type,
			"flavor":         rejected.Flavor,
			"quantity":       rejected.Quantity,
			"price":          rejected.Price,
			"consignee":      rejected.Consignee,
		})
		return nil
	})
	if err != nil {
		return err
	}

	util.TransactionsRejectedTotal.Inc()
	s.logger.Info("Transaction rejected", zap.Int("pending_id", pendingID))

	s.publishRejected(ctx, &rejected)
	return nil
}

// RestoredStock reports what a delete put back on the shelf.
type RestoredStock struct {
	Flavor   string `json:"flavor"`
	Quantity int    `json:"quantity"`
}

// DeleteTransaction removes a confirmed transaction and restores its
// inventory. For consignments the first consignee item with equal flavor
// and quantity is removed; the consignee entry disappears once empty.
func (s *LedgerService) DeleteTransaction(ctx context.Context, transactionID int) (*RestoredStock, error) {
	ctx, span := util.StartSpan(ctx, "LedgerService.DeleteTransaction")
	defer span.End()

	var (
		deleted models.Transaction
		counts  map[string]int
	)
	err := s.store.Mutate(func(state *models.State) error {
		idx := -1
		for i, t := range state.Transactions {
			if t.ID == transactionID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return fmt.Errorf("%w: transaction %d", ErrNotFound, transactionID)
		}
		deleted = state.Transactions[idx]

		state.Inventory[deleted.Flavor] += deleted.Quantity

		if deleted.Type == models.TxTypeConsignment && deleted.Consignee != "" {
			removeConsigneeItem(state, deleted.Consignee, deleted.Flavor, deleted.Quantity)
		}

		state.Transactions = append(state.Transactions[:idx], state.Transactions[idx+1:]...)

		state.AppendAudit(models.EventTypeTransactionDeleted, map[string]any{
			"transaction_id":     deleted.ID,
			"type":               deleted.Type,
			"flavor":             deleted.Flavor,
			"quantity":           deleted.Quantity,
			"price":              deleted.Price,
			"consignee":          deleted.Consignee,
			"inventory_restored": true,
		})

		counts = state.Inventory
		return nil
	})
	if err != nil {
		return nil, err
	}

	util.TransactionsDeletedTotal.Inc()
	s.logger.Info("Transaction deleted, inventory restored",
		zap.Int("transaction_id", deleted.ID),
		zap.String("flavor", deleted.Flavor),
		zap.Int("quantity", deleted.Quantity))

	mirrorInventory(ctx, s.mirror, s.logger, counts)
	s.publishDeleted(ctx, &deleted)
	return &RestoredStock{Flavor: deleted.Flavor, Quantity: deleted.Quantity}, nil
}

// removeConsigneeItem removes the first item matching (flavor, quantity).
// Matching is structural; with duplicate identical lines the earliest one
// goes.
func removeConsigneeItem(state *models.State, consignee, flavor string, quantity int) {
	items := state.Consignees[consignee]
	for i, item := range items {
		if item.Flavor == flavor && item.Quantity == quantity {
			items = append(items[:i], items[i+1:]...)
			break
		}
	}
	if len(items) == 0 {
		delete(state.Consignees, consignee)
		return
	}
	state.Consignees[consignee] = items
}

// BulkConsignmentRequest adds several consignment lines for one consignee
// in a single operation.
type BulkConsignmentRequest struct {
	Consignee string                `json:"consignee" binding:"required"`
	Items     []BulkConsignmentItem `json:"items" binding:"required,min=1,dive"`
}

// BulkConsignmentItem is one line of a bulk consignment.
type BulkConsignmentItem struct {
	Flavor   string          `json:"flavor" binding:"required"`
	Quantity int             `json:"quantity" binding:"required,min=1"`
	Price    decimal.Decimal `json:"price" binding:"required"`
}

// BulkConsignmentResult reports the applied lines and their total value.
type BulkConsignmentResult struct {
	Items []BulkLineResult `json:"items"`
	Total decimal.Decimal  `json:"total"`
}

// BulkLineResult is one applied bulk line with its rounded line total.
type BulkLineResult struct {
	Flavor   string          `json:"flavor"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	Total    decimal.Decimal `json:"total"`
}

// BulkConsignment validates every line first, then applies all of them as
// confirmed consignment transactions, bypassing the pending queue. Any
// out-of-stock line aborts the whole request with nothing applied.
func (s *LedgerService) BulkConsignment(ctx context.Context, req *BulkConsignmentRequest) (*BulkConsignmentResult, error) {
	ctx, span := util.StartSpan(ctx, "LedgerService.BulkConsignment")
	defer span.End()

	result := &BulkConsignmentResult{Total: decimal.Zero}
	var counts map[string]int
	err := s.store.Mutate(func(state *models.State) error {
		// Lines for the same flavor must fit within stock together.
		needed := make(map[string]int)
		for _, item := range req.Items {
			needed[item.Flavor] += item.Quantity
			if err := reserveStock(state, item.Flavor, needed[item.Flavor]); err != nil {
				util.OutOfStockTotal.WithLabelValues("bulk_consignment").Inc()
				return err
			}
		}

		now := time.Now()
		for _, item := range req.Items {
			state.Transactions = append(state.Transactions, models.Transaction{
				ID:        len(state.Transactions) + 1,
				Type:      models.TxTypeConsignment,
				Flavor:    item.Flavor,
				Quantity:  item.Quantity,
				Price:     item.Price,
				Consignee: req.Consignee,
				Timestamp: now,
				Paid:      false,
			})
			state.Inventory[item.Flavor] -= item.Quantity
			state.Consignees[req.Consignee] = append(state.Consignees[req.Consignee], models.ConsigneeItem{
				Flavor:         item.Flavor,
				Quantity:       item.Quantity,
				Price:          item.Price,
				Paid:           false,
				PartialPayment: decimal.Zero,
			})

			lineTotal := money.Round(money.Line(item.Quantity, item.Price))
			result.Items = append(result.Items, BulkLineResult{
				Flavor:   item.Flavor,
				Quantity: item.Quantity,
				Price:    item.Price,
				Total:    lineTotal,
			})
			result.Total = result.Total.Add(lineTotal)
		}
		result.Total = money.Round(result.Total)

		state.AppendAudit(models.EventTypeBulkConsignment, map[string]any{
			"consignee":   req.Consignee,
			"items_count": len(req.Items),
			"items":       result.Items,
			"total":       result.Total,
		})

		counts = state.Inventory
		return nil
	})
	if err != nil {
		return nil, err
	}

	util.TransactionsAcceptedTotal.WithLabelValues(models.TxTypeConsignment).Add(float64(len(req.Items)))
	s.logger.Info("Bulk consignment applied",
		zap.String("consignee", req.Consignee),
		zap.Int("items", len(req.Items)))

	mirrorInventory(ctx, s.mirror, s.logger, counts)
	s.publishBulk(ctx, req.Consignee, len(req.Items), result.Total)
	return result, nil
}

// GetInventory returns the current per-flavor counts.
func (s *LedgerService) GetInventory(ctx context.Context) (map[string]int, error) {
	var counts map[string]int
	err := s.store.View(func(state *models.State) error {
		counts = make(map[string]int, len(state.Inventory))
		for flavor, count := range state.Inventory {
			counts[flavor] = count
		}
		return nil
	})
	return counts, err
}

// GetSettings returns the current pricing defaults.
func (s *LedgerService) GetSettings(ctx context.Context) (models.Settings, error) {
	var settings models.Settings
	err := s.store.View(func(state *models.State) error {
		settings = state.Settings
		return nil
	})
	return settings, err
}

// UpdateSettings replaces the pricing defaults wholesale.
func (s *LedgerService) UpdateSettings(ctx context.Context, settings models.Settings) error {
	return s.store.Mutate(func(state *models.State) error {
		state.Settings = settings
		return nil
	})
}

// Reset discards the document and reseeds the initial fixture, then
// refreshes the inventory mirror.
func (s *LedgerService) Reset(ctx context.Context) error {
	ctx, span := util.StartSpan(ctx, "LedgerService.Reset")
	defer span.End()

	if err := s.store.Reset(); err != nil {
		return err
	}
	s.logger.Info("State reset to initial fixture")

	counts, err := s.GetInventory(ctx)
	if err != nil {
		return err
	}
	mirrorInventory(ctx, s.mirror, s.logger, counts)
	return nil
}

// SyncInventoryMirror pushes the current counts to Redis. Called once at
// startup so dashboards have data before the first mutation.
func (s *LedgerService) SyncInventoryMirror(ctx context.Context) error {
	counts, err := s.GetInventory(ctx)
	if err != nil {
		return err
	}
	if s.mirror == nil {
		return nil
	}
	return s.mirror.SyncInventory(ctx, counts)
}

func (s *LedgerService) publishCreated(ctx context.Context, pending *models.PendingTransaction) {
	if s.audit == nil {
		return
	}
	event := &models.TransactionCreatedEvent{
		BaseEvent:     newBaseEvent(models.EventTypeTransactionCreated),
		TransactionID: pending.ID,
		Type:          pending.Type,
		Flavor:        pending.Flavor,
		Quantity:      pending.Quantity,
		Price:         pending.Price,
		Consignee:     pending.Consignee,
	}
	if err := s.audit.PublishTransactionCreated(ctx, event); err != nil {
		s.logger.Error("Failed to publish transaction_created event", zap.Error(err))
	}
}

func (s *LedgerService) publishAccepted(ctx context.Context, txn *models.Transaction) {
	if s.audit == nil {
		return
	}
	event := &models.TransactionAcceptedEvent{
		BaseEvent:     newBaseEvent(models.EventTypeTransactionAccepted),
		TransactionID: txn.ID,
		Type:          txn.Type,
		Flavor:        txn.Flavor,
		Quantity:      txn.Quantity,
		Price:         txn.Price,
		Consignee:     txn.Consignee,
	}
	if err := s.audit.PublishTransactionAccepted(ctx, event); err != nil {
		s.logger.Error("Failed to publish transaction_accepted event", zap.Error(err))
	}
}

func (s *LedgerService) publishRejected(ctx context.Context, pending *models.PendingTransaction) {
	if s.audit == nil {
		return
	}
	event := &models.TransactionRejectedEvent{
		BaseEvent:     newBaseEvent(models.EventTypeTransactionRejected),
		TransactionID: pending.ID,
		Type:          pending.Type,
		Flavor:        pending.Flavor,
		Quantity:      pending.Quantity,
	}
	if err := s.audit.PublishTransactionRejected(ctx, event); err != nil {
		s.logger.Error("Failed to publish transaction_rejected event", zap.Error(err))
	}
}

func (s *LedgerService) publishDeleted(ctx context.Context, txn *models.Transaction) {
	if s.audit == nil {
		return
	}
	event := &models.TransactionDeletedEvent{
		BaseEvent:     newBaseEvent(models.EventTypeTransactionDeleted),
		TransactionID: txn.ID,
		Type:          txn.Type,
		Flavor:        txn.Flavor,
		Quantity:      txn.Quantity,
		Consignee:     txn.Consignee,
	}
	if err := s.audit.PublishTransactionDeleted(ctx, event); err != nil {
		s.logger.Error("Failed to publish transaction_deleted event", zap.Error(err))
	}
}

func (s *LedgerService) publishBulk(ctx context.Context, consignee string, count int, total decimal.Decimal) {
	if s.audit == nil {
		return
	}
	event := &models.BulkConsignmentEvent{
		BaseEvent:  newBaseEvent(models.EventTypeBulkConsignment),
		Consignee:  consignee,
		ItemsCount: count,
		Total:      total,
	}
	if err := s.audit.PublishBulkConsignment(ctx, event); err != nil {
		s.logger.Error("Failed to publish bulk_consignment_added event", zap.Error(err))
	}
}

func newBaseEvent(eventType string) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now(),
	}
}
