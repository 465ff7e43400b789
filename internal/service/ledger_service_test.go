package service

import (
	"context"
	"path/filepath"
	"testing"

	"consignment-service/internal/models"
	"consignment-service/internal/store"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	return store.NewStore(filepath.Join(t.TempDir(), "state.json"))
}

func newTestLedger(t *testing.T) (*LedgerService, *store.Store) {
	t.Helper()
	s := newTestStore(t)
	return NewLedgerService(s, nil, nil), s
}

func stockOf(t *testing.T, s *store.Store, flavor string) int {
	t.Helper()
	var count int
	require.NoError(t, s.View(func(state *models.State) error {
		count = state.Inventory[flavor]
		return nil
	}))
	return count
}

func submitReq(txType, flavor string, qty int, price int64, consignee string) *SubmitTransactionRequest {
	return &SubmitTransactionRequest{
		Type:      txType,
		Flavor:    flavor,
		Quantity:  qty,
		Price:     decimal.NewFromInt(price),
		Consignee: consignee,
	}
}

func TestSubmitStagesPendingWithoutTouchingInventory(t *testing.T) {
	ledger, s := newTestLedger(t)
	ctx := context.Background()

	before := stockOf(t, s, "Watermelon")

	pending, err := ledger.SubmitTransaction(ctx, submitReq(models.TxTypeDirectSale, "Watermelon", 2, 300, ""))
	require.NoError(t, err)
	assert.Equal(t, 1, pending.ID)
	assert.Equal(t, models.PendingStatus, pending.Status)

	assert.Equal(t, before, stockOf(t, s, "Watermelon"))

	list, err := ledger.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Watermelon", list[0].Flavor)
}

func TestSubmitOutOfStock(t *testing.T) {
	ledger, s := newTestLedger(t)
	ctx := context.Background()

	// Seeded Mango stock is down to 1 unit.
	require.Equal(t, 1, stockOf(t, s, "Mango"))

	_, err := ledger.SubmitTransaction(ctx, submitReq(models.TxTypeDirectSale, "Mango", 2, 300, ""))
	assert.ErrorIs(t, err, ErrOutOfStock)

	list, err := ledger.ListPending(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestSubmitUnknownFlavor(t *testing.T) {
	ledger, _ := newTestLedger(t)

	_, err := ledger.SubmitTransaction(context.Background(), submitReq(models.TxTypeDirectSale, "Durian", 1, 300, ""))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAcceptConfirmsAndDecrementsInventory(t *testing.T) {
	ledger, s := newTestLedger(t)
	ctx := context.Background()

	before := stockOf(t, s, "Watermelon")

	pending, err := ledger.SubmitTransaction(ctx, submitReq(models.TxTypeDirectSale, "Watermelon", 2, 300, ""))
	require.NoError(t, err)

	txn, err := ledger.AcceptPending(ctx, pending.ID)
	require.NoError(t, err)

	// Confirmed id comes from the ledger sequence (48 seeded transactions),
	// not the pending queue.
	assert.Equal(t, 49, txn.ID)
	assert.True(t, txn.Paid)
	assert.NotNil(t, txn.ConfirmedAt)
	assert.Equal(t, before-2, stockOf(t, s, "Watermelon"))

	list, err := ledger.ListPending(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestAcceptConsignmentCreatesUnpaidItem(t *testing.T) {
	ledger, s := newTestLedger(t)
	ctx := context.Background()

	pending, err := ledger.SubmitTransaction(ctx, submitReq(models.TxTypeConsignment, "Blueberry", 3, 250, "Mika"))
	require.NoError(t, err)

	txn, err := ledger.AcceptPending(ctx, pending.ID)
	require.NoError(t, err)
	assert.False(t, txn.Paid)

	require.NoError(t, s.View(func(state *models.State) error {
		items := state.Consignees["Mika"]
		require.Len(t, items, 1)
		assert.Equal(t, "Blueberry", items[0].Flavor)
		assert.Equal(t, 3, items[0].Quantity)
		assert.False(t, items[0].Paid)
		assert.True(t, items[0].PartialPayment.IsZero())
		return nil
	}))
}

func TestAcceptNotFound(t *testing.T) {
	ledger, _ := newTestLedger(t)

	_, err := ledger.AcceptPending(context.Background(), 99)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAcceptFailsWhenStockDroppedSinceSubmission(t *testing.T) {
	ledger, s := newTestLedger(t)
	ctx := context.Background()

	pending, err := ledger.SubmitTransaction(ctx, submitReq(models.TxTypeDirectSale, "Mango", 1, 300, ""))
	require.NoError(t, err)

	// Stock moves between submission and approval.
	require.NoError(t, s.Mutate(func(state *models.State) error {
		state.Inventory["Mango"] = 0
		return nil
	}))

	_, err = ledger.AcceptPending(ctx, pending.ID)
	assert.ErrorIs(t, err, ErrOutOfStock)

	// Neither inventory nor the pending queue changed.
	assert.Equal(t, 0, stockOf(t, s, "Mango"))
	list, err := ledger.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, pending.ID, list[0].ID)
}

func TestRejectDiscardsWithoutInventory(t *testing.T) {
	ledger, s := newTestLedger(t)
	ctx := context.Background()

	before := stockOf(t, s, "Strawberry")

	pending, err := ledger.SubmitTransaction(ctx, submitReq(models.TxTypeDirectSale, "Strawberry", 4, 300, ""))
	require.NoError(t, err)

	require.NoError(t, ledger.RejectPending(ctx, pending.ID))
	assert.Equal(t, before, stockOf(t, s, "Strawberry"))

	list, err := ledger.ListPending(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	assert.ErrorIs(t, ledger.RejectPending(ctx, pending.ID), ErrNotFound)
}

func TestPendingIDsAreScopedToTheQueue(t *testing.T) {
	ledger, _ := newTestLedger(t)
	ctx := context.Background()

	first, err := ledger.SubmitTransaction(ctx, submitReq(models.TxTypeDirectSale, "Watermelon", 1, 300, ""))
	require.NoError(t, err)
	assert.Equal(t, 1, first.ID)

	_, err = ledger.AcceptPending(ctx, first.ID)
	require.NoError(t, err)

	// Queue is empty again, so the counter restarts. Intentional: pending
	// ids are local to the queue, confirmed ids to the ledger.
	second, err := ledger.SubmitTransaction(ctx, submitReq(models.TxTypeDirectSale, "Watermelon", 1, 300, ""))
	require.NoError(t, err)
	assert.Equal(t, 1, second.ID)
}

func TestDeleteRestoresInventoryAndRemovesOneConsigneeItem(t *testing.T) {
	ledger, s := newTestLedger(t)
	ctx := context.Background()

	// Seeded transaction 25 is KJ's Mango consignment (5 units @250).
	var target models.Transaction
	require.NoError(t, s.View(func(state *models.State) error {
		for _, txn := range state.Transactions {
			if txn.Consignee == "KJ" && txn.Flavor == "Mango" {
				target = txn
				return nil
			}
		}
		t.Fatal("seed is missing KJ's Mango consignment")
		return nil
	}))

	before := stockOf(t, s, "Mango")

	restored, err := ledger.DeleteTransaction(ctx, target.ID)
	require.NoError(t, err)
	assert.Equal(t, "Mango", restored.Flavor)
	assert.Equal(t, 5, restored.Quantity)
	assert.Equal(t, before+5, stockOf(t, s, "Mango"))

	require.NoError(t, s.View(func(state *models.State) error {
		items := state.Consignees["KJ"]
		assert.Len(t, items, 11)
		for _, item := range items {
			assert.NotEqual(t, "Mango", item.Flavor)
		}
		for _, txn := range state.Transactions {
			assert.NotEqual(t, target.ID, txn.ID)
		}
		return nil
	}))
}

func TestDeleteRemovesEmptyConsignee(t *testing.T) {
	ledger, s := newTestLedger(t)
	ctx := context.Background()

	pending, err := ledger.SubmitTransaction(ctx, submitReq(models.TxTypeConsignment, "Matcha", 2, 250, "Solo"))
	require.NoError(t, err)
	txn, err := ledger.AcceptPending(ctx, pending.ID)
	require.NoError(t, err)

	_, err = ledger.DeleteTransaction(ctx, txn.ID)
	require.NoError(t, err)

	require.NoError(t, s.View(func(state *models.State) error {
		_, ok := state.Consignees["Solo"]
		assert.False(t, ok)
		return nil
	}))
}

func TestDeleteNotFound(t *testing.T) {
	ledger, _ := newTestLedger(t)

	_, err := ledger.DeleteTransaction(context.Background(), 9999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInventoryConservation(t *testing.T) {
	ledger, s := newTestLedger(t)
	ctx := context.Background()

	initial := stockOf(t, s, "Bubblegum")

	p1, err := ledger.SubmitTransaction(ctx, submitReq(models.TxTypeDirectSale, "Bubblegum", 2, 300, ""))
	require.NoError(t, err)
	t1, err := ledger.AcceptPending(ctx, p1.ID)
	require.NoError(t, err)

	p2, err := ledger.SubmitTransaction(ctx, submitReq(models.TxTypePersonalUse, "Bubblegum", 1, 150, ""))
	require.NoError(t, err)
	_, err = ledger.AcceptPending(ctx, p2.ID)
	require.NoError(t, err)

	_, err = ledger.DeleteTransaction(ctx, t1.ID)
	require.NoError(t, err)

	// initial - confirmed deductions + deleted restorations == current
	assert.Equal(t, initial-2-1+2, stockOf(t, s, "Bubblegum"))
}

func TestBulkConsignmentRejectsWholeRequestOnAnyShortage(t *testing.T) {
	ledger, s := newTestLedger(t)
	ctx := context.Background()

	beforeMatcha := stockOf(t, s, "Matcha")

	_, err := ledger.BulkConsignment(ctx, &BulkConsignmentRequest{
		Consignee: "Nina",
		Items: []BulkConsignmentItem{
			{Flavor: "Matcha", Quantity: 1, Price: decimal.NewFromInt(250)},
			{Flavor: "Mango", Quantity: 10, Price: decimal.NewFromInt(250)},
		},
	})
	assert.ErrorIs(t, err, ErrOutOfStock)

	// First line must not have been applied.
	assert.Equal(t, beforeMatcha, stockOf(t, s, "Matcha"))
	require.NoError(t, s.View(func(state *models.State) error {
		_, ok := state.Consignees["Nina"]
		assert.False(t, ok)
		return nil
	}))
}

func TestBulkConsignmentCountsRepeatedFlavorsTogether(t *testing.T) {
	ledger, s := newTestLedger(t)

	// Matcha has 7 units; each line fits alone but not together.
	before := stockOf(t, s, "Matcha")
	require.Equal(t, 7, before)

	_, err := ledger.BulkConsignment(context.Background(), &BulkConsignmentRequest{
		Consignee: "Nina",
		Items: []BulkConsignmentItem{
			{Flavor: "Matcha", Quantity: 4, Price: decimal.NewFromInt(250)},
			{Flavor: "Matcha", Quantity: 4, Price: decimal.NewFromInt(250)},
		},
	})
	assert.ErrorIs(t, err, ErrOutOfStock)
	assert.Equal(t, before, stockOf(t, s, "Matcha"))
}

func TestBulkConsignmentAppliesAllLines(t *testing.T) {
	ledger, s := newTestLedger(t)
	ctx := context.Background()

	result, err := ledger.BulkConsignment(ctx, &BulkConsignmentRequest{
		Consignee: "Nina",
		Items: []BulkConsignmentItem{
			{Flavor: "Matcha", Quantity: 2, Price: decimal.NewFromInt(250)},
			{Flavor: "Blueberry", Quantity: 1, Price: decimal.NewFromInt(250)},
		},
	})
	require.NoError(t, err)
	require.Len(t, result.Items, 2)
	assert.True(t, result.Total.Equal(decimal.NewFromInt(750)))

	require.NoError(t, s.View(func(state *models.State) error {
		require.Len(t, state.Consignees["Nina"], 2)
		assert.Len(t, state.Transactions, 50)
		last := state.Transactions[len(state.Transactions)-1]
		assert.Equal(t, models.TxTypeConsignment, last.Type)
		assert.False(t, last.Paid)
		return nil
	}))
}

func TestUpdateSettings(t *testing.T) {
	ledger, _ := newTestLedger(t)
	ctx := context.Background()

	settings, err := ledger.GetSettings(ctx)
	require.NoError(t, err)
	assert.True(t, settings.BaseCost.Equal(decimal.NewFromInt(150)))

	settings.BaseCost = decimal.NewFromInt(160)
	require.NoError(t, ledger.UpdateSettings(ctx, settings))

	updated, err := ledger.GetSettings(ctx)
	require.NoError(t, err)
	assert.True(t, updated.BaseCost.Equal(decimal.NewFromInt(160)))
}
