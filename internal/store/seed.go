package store

import (
	"time"

	"consignment-service/internal/catalog"
	"consignment-service/internal/models"

	"github.com/shopspring/decimal"
)

type seedLine struct {
	flavor   string
	quantity int
}

// Historical transactions the business recorded before this system took
// over. Reproduced verbatim so a fresh document matches the books.
var (
	seedCashSalesStandard = []seedLine{
		{"Bubblegum", 1},
		{"Matcha", 1},
		{"Yakult", 1},
		{"Mango", 3},
		{"Banana", 1},
		{"Grapes", 2},
	}

	seedCashSalesDiscount = []seedLine{
		{"Banana", 1}, {"Grapes", 3}, {"Mango", 3}, {"Lemon Cola", 3}, {"Yakult", 3},
	}

	seedPersonalUse = []seedLine{
		{"Lemon Cola", 1}, {"Mango", 1}, {"Grapes", 1},
	}

	seedGerbeItems = []seedLine{
		{"Black Currant", 1}, {"Watermelon", 1}, {"Bubblegum", 1}, {"Grapes", 1},
		{"Lemon Cola", 1}, {"Mixed Berries", 1}, {"Blueberry", 1}, {"Strawberry", 1},
		{"Banana", 2}, {"Yakult", 1},
	}
)

func seedDay(day int) time.Time {
	return time.Date(2024, 1, day, 10, 0, 0, 0, time.UTC)
}

// InitialState builds the seeded document: full starting stock minus the
// historical sales, personal use and consignments.
func InitialState() *models.State {
	settings := catalog.DefaultSettings()

	state := &models.State{
		Inventory:           make(map[string]int, len(catalog.Flavors)),
		Transactions:        []models.Transaction{},
		PendingTransactions: []models.PendingTransaction{},
		Consignees:          make(map[string][]models.ConsigneeItem),
		Payments:            make(map[string][]models.PaymentRecord),
		TransactionHistory:  []models.AuditEvent{},
		Settings:            settings,
	}
	for _, flavor := range catalog.Flavors {
		state.Inventory[flavor] = catalog.InitialStock
	}

	for _, line := range seedCashSalesStandard {
		appendSeedTx(state, models.TxTypeDirectSale, line.flavor, line.quantity, settings.PriceStandard, "", seedDay(1), true)
	}
	for _, line := range seedCashSalesDiscount {
		appendSeedTx(state, models.TxTypeDirectSale, line.flavor, line.quantity, settings.PriceDiscount, "", seedDay(2), true)
	}
	for _, line := range seedPersonalUse {
		appendSeedTx(state, models.TxTypePersonalUse, line.flavor, line.quantity, settings.PricePersonal, "", seedDay(3), true)
	}

	for _, flavor := range catalog.Flavors {
		seedConsignment(state, "KJ", flavor, 5, settings.PriceConsignment, seedDay(4))
	}
	for _, flavor := range catalog.Flavors {
		seedConsignment(state, "Jross", flavor, 2, settings.PriceConsignment, seedDay(5))
	}
	for _, line := range seedGerbeItems {
		seedConsignment(state, "Gerbe", line.flavor, line.quantity, settings.PriceConsignment, seedDay(6))
	}

	return state
}

func appendSeedTx(state *models.State, txType, flavor string, quantity int, price decimal.Decimal, consignee string, ts time.Time, paid bool) {
	state.Transactions = append(state.Transactions, models.Transaction{
		ID:        len(state.Transactions) + 1,
		Type:      txType,
		Flavor:    flavor,
		Quantity:  quantity,
		Price:     price,
		Consignee: consignee,
		Timestamp: ts,
		Paid:      paid,
	})
	state.Inventory[flavor] -= quantity
}

func seedConsignment(state *models.State, consignee, flavor string, quantity int, price decimal.Decimal, ts time.Time) {
	appendSeedTx(state, models.TxTypeConsignment, flavor, quantity, price, consignee, ts, false)
	state.Consignees[consignee] = append(state.Consignees[consignee], models.ConsigneeItem{
		Flavor:         flavor,
		Quantity:       quantity,
		Price:          price,
		Paid:           false,
		PartialPayment: decimal.Zero,
	})
}
