package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"

	"consignment-service/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertMoney(t *testing.T, expected int64, actual decimal.Decimal, label string) {
	t.Helper()
	assert.True(t, actual.Equal(decimal.NewFromInt(expected)), "%s: want %d, got %s", label, expected, actual)
}

func TestSummarySeeded(t *testing.T) {
	s := newTestStore(t)
	finance := NewFinanceService(s, 0)

	summary, err := finance.Summary(context.Background())
	require.NoError(t, err)

	// 9 standard sales at 300 plus 13 discounted at 280.
	assertMoney(t, 6340, summary.CashOnHand, "cash on hand")
	// 95 consigned units at 250, all still unpaid.
	assertMoney(t, 23750, summary.TotalReceivables, "receivables")
	// 120 units moved at base cost 150.
	assertMoney(t, 18000, summary.TotalCostSold, "cost sold")
	// 3 personal-use units at 150.
	assertMoney(t, 450, summary.PersonalUseRecovery, "personal use")
	// 60 units left on the shelf at base cost.
	assertMoney(t, 9000, summary.InventoryValue, "inventory value")
	assertMoney(t, 12540, summary.NetProfit, "net profit")
}

func TestSummarySingleDirectSale(t *testing.T) {
	s := newTestStore(t)
	finance := NewFinanceService(s, 0)

	require.NoError(t, s.Mutate(func(state *models.State) error {
		state.Transactions = []models.Transaction{{
			ID:       1,
			Type:     models.TxTypeDirectSale,
			Flavor:   "Mango",
			Quantity: 1,
			Price:    decimal.NewFromInt(300),
			Paid:     true,
		}}
		state.Inventory = map[string]int{}
		return nil
	}))

	summary, err := finance.Summary(context.Background())
	require.NoError(t, err)
	assertMoney(t, 300, summary.CashOnHand, "cash on hand")
	assertMoney(t, 150, summary.TotalCostSold, "cost sold")
	assertMoney(t, 150, summary.NetProfit, "net profit")
	assert.True(t, summary.TotalReceivables.IsZero())
	assert.True(t, summary.InventoryValue.IsZero())
}

func TestSummaryReceivablesMoveToCashWhenSettled(t *testing.T) {
	s := newTestStore(t)
	ledger := NewLedgerService(s, nil, nil)
	settlement := NewSettlementService(s, nil)
	finance := NewFinanceService(s, 0)
	ctx := context.Background()

	consign(t, ledger, "Tari", BulkConsignmentItem{Flavor: "Blueberry", Quantity: 2, Price: decimal.NewFromInt(250)})

	before, err := finance.Summary(ctx)
	require.NoError(t, err)

	require.NoError(t, settlement.MarkPaid(ctx, "Tari"))

	after, err := finance.Summary(ctx)
	require.NoError(t, err)
	assert.True(t, after.CashOnHand.Sub(before.CashOnHand).Equal(decimal.NewFromInt(500)))
	assert.True(t, before.TotalReceivables.Sub(after.TotalReceivables).Equal(decimal.NewFromInt(500)))
	// Net profit is unchanged: the revenue was already booked as a receivable.
	assert.True(t, after.NetProfit.Equal(before.NetProfit))
}

func TestDashboardLowStock(t *testing.T) {
	s := newTestStore(t)
	finance := NewFinanceService(s, 0)

	dash, err := finance.GetDashboard(context.Background())
	require.NoError(t, err)

	// Grapes and Mango are both down to a single unit after the seed.
	assert.Equal(t, []string{"Grapes", "Mango"}, dash.LowStock)
	assert.Equal(t, 1, dash.Inventory["Mango"])
	assertMoney(t, 6340, dash.Financials.CashOnHand, "cash on hand")
}

func TestAuditTrailFilters(t *testing.T) {
	s := newTestStore(t)
	ledger := NewLedgerService(s, nil, nil)
	settlement := NewSettlementService(s, nil)
	finance := NewFinanceService(s, 0)
	ctx := context.Background()

	pending, err := ledger.SubmitTransaction(ctx, submitReq(models.TxTypeDirectSale, "Watermelon", 1, 300, ""))
	require.NoError(t, err)
	_, err = ledger.AcceptPending(ctx, pending.ID)
	require.NoError(t, err)

	consign(t, ledger, "Tari", BulkConsignmentItem{Flavor: "Blueberry", Quantity: 1, Price: decimal.NewFromInt(250)})
	_, err = settlement.Pay(ctx, "Tari", &PayRequest{Amount: decimal.NewFromInt(250)})
	require.NoError(t, err)

	all, err := finance.AuditTrail(ctx, AuditTrailQuery{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	// Newest first.
	assert.Equal(t, models.EventTypePartialPayment, all[0].EventType)

	created, err := finance.AuditTrail(ctx, AuditTrailQuery{EventType: models.EventTypeTransactionCreated})
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, models.EventTypeTransactionCreated, created[0].EventType)

	tari, err := finance.AuditTrail(ctx, AuditTrailQuery{Consignee: "Tari"})
	require.NoError(t, err)
	require.Len(t, tari, 2)

	limited, err := finance.AuditTrail(ctx, AuditTrailQuery{Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, models.EventTypePartialPayment, limited[0].EventType)
}

func TestExportCSV(t *testing.T) {
	s := newTestStore(t)
	finance := NewFinanceService(s, 0)

	out, err := finance.ExportCSV(context.Background())
	require.NoError(t, err)

	r := csv.NewReader(bytes.NewReader(out))
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	require.NoError(t, err)

	// 12 flavor rows, the financial summary and 34 consignee items,
	// each section with a header.
	require.Len(t, records, 54)
	assert.Equal(t, []string{"Flavor", "Initial", "Sold", "Consigned", "Personal", "Remaining", "Status"}, records[0])

	var mango []string
	for _, record := range records[1:13] {
		if record[0] == "Mango" {
			mango = record
		}
	}
	require.NotNil(t, mango)
	assert.Equal(t, []string{"Mango", "15", "6", "7", "1", "1", "Low Stock"}, mango)

	assert.Contains(t, records, []string{"Cash on Hand", "6340.00"})
	assert.Contains(t, records, []string{"Net Profit", "12540.00"})

	// Consignee section is sorted by name; Gerbe's Black Currant line first.
	assert.Contains(t, records, []string{"Gerbe", "Black Currant", "1", "250.00", "250.00", "No"})
}
