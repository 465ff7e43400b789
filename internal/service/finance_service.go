package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"sort"
	"strconv"

	"consignment-service/internal/catalog"
	"consignment-service/internal/models"
	"consignment-service/internal/money"
	"consignment-service/internal/store"
	"consignment-service/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// FinanceService is the pure read side: aggregations over the confirmed
// ledger, inventory and catalog. It never mutates state.
type FinanceService struct {
	store             *store.Store
	lowStockThreshold int
	logger            *zap.Logger
}

// NewFinanceService creates a new finance service.
func NewFinanceService(store *store.Store, lowStockThreshold int) *FinanceService {
	if lowStockThreshold <= 0 {
		lowStockThreshold = catalog.LowStockThreshold
	}
	return &FinanceService{
		store:             store,
		lowStockThreshold: lowStockThreshold,
		logger:            util.GetLogger(),
	}
}

// summarize walks the confirmed ledger once. Direct sales accrue to cash,
// personal use to its own recovery bucket (cost recovery, not revenue),
// consignments to cash or receivables depending on paid state at read
// time. Every output passes through the currency rounding rule.
func summarize(state *models.State) models.FinancialSummary {
	cashOnHand := decimal.Zero
	receivables := decimal.Zero
	costSold := decimal.Zero
	personalUse := decimal.Zero

	baseCost := state.Settings.BaseCost

	for _, txn := range state.Transactions {
		revenue := money.Line(txn.Quantity, txn.Price)
		cost := money.Line(txn.Quantity, baseCost)

		switch txn.Type {
		case models.TxTypeDirectSale:
			cashOnHand = cashOnHand.Add(revenue)
			costSold = costSold.Add(cost)
		case models.TxTypePersonalUse:
			personalUse = personalUse.Add(revenue)
			costSold = costSold.Add(cost)
		case models.TxTypeConsignment:
			if txn.Paid {
				cashOnHand = cashOnHand.Add(revenue)
			} else {
				receivables = receivables.Add(revenue)
			}
			costSold = costSold.Add(cost)
		}
	}

	units := 0
	for _, count := range state.Inventory {
		units += count
	}
	inventoryValue := baseCost.Mul(decimal.NewFromInt(int64(units)))

	netProfit := cashOnHand.Add(receivables).Add(personalUse).Sub(costSold)

	return models.FinancialSummary{
		CashOnHand:          money.Round(cashOnHand),
		TotalReceivables:    money.Round(receivables),
		InventoryValue:      money.Round(inventoryValue),
		NetProfit:           money.Round(netProfit),
		TotalCostSold:       money.Round(costSold),
		PersonalUseRecovery: money.Round(personalUse),
	}
}

// Summary computes the financial summary from the current state.
func (s *FinanceService) Summary(ctx context.Context) (models.FinancialSummary, error) {
	var summary models.FinancialSummary
	err := s.store.View(func(state *models.State) error {
		summary = summarize(state)
		return nil
	})
	return summary, err
}

// Dashboard bundles financials, inventory counts and low-stock alerts.
type Dashboard struct {
	Financials models.FinancialSummary `json:"financials"`
	Inventory  map[string]int          `json:"inventory"`
	LowStock   []string                `json:"low_stock"`
}

// GetDashboard returns the dashboard view.
func (s *FinanceService) GetDashboard(ctx context.Context) (*Dashboard, error) {
	ctx, span := util.StartSpan(ctx, "FinanceService.GetDashboard")
	defer span.End()

	var dash Dashboard
	err := s.store.View(func(state *models.State) error {
		dash.Financials = summarize(state)
		dash.Inventory = make(map[string]int, len(state.Inventory))
		for flavor, count := range state.Inventory {
			dash.Inventory[flavor] = count
		}
		dash.LowStock = lowStockFlavors(state, s.lowStockThreshold)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &dash, nil
}

// AuditTrailQuery filters the audit trail. Zero values mean no filter.
type AuditTrailQuery struct {
	EventType string
	Consignee string
	Limit     int
}

// AuditTrail returns audit events newest first, optionally filtered by
// event type and by the consignee named in the event details.
func (s *FinanceService) AuditTrail(ctx context.Context, query AuditTrailQuery) ([]models.AuditEvent, error) {
	var events []models.AuditEvent
	err := s.store.View(func(state *models.State) error {
		for _, event := range state.TransactionHistory {
			if query.EventType != "" && event.EventType != query.EventType {
				continue
			}
			if query.Consignee != "" {
				name, _ := event.Details["consignee"].(string)
				if name != query.Consignee {
					continue
				}
			}
			events = append(events, event)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp.After(events[j].Timestamp)
	})
	if query.Limit > 0 && len(events) > query.Limit {
		events = events[:query.Limit]
	}
	return events, nil
}

// ExportCSV renders the business report: inventory movement per flavor,
// the financial summary, and every consignee line item. One CSV document,
// three sections separated by blank rows.
func (s *FinanceService) ExportCSV(ctx context.Context) ([]byte, error) {
	ctx, span := util.StartSpan(ctx, "FinanceService.ExportCSV")
	defer span.End()

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	err := s.store.View(func(state *models.State) error {
		w.Write([]string{"Flavor", "Initial", "Sold", "Consigned", "Personal", "Remaining", "Status"})
		for _, flavor := range catalog.Flavors {
			sold, consigned, personal := 0, 0, 0
			for _, txn := range state.Transactions {
				if txn.Flavor != flavor {
					continue
				}
				switch txn.Type {
				case models.TxTypeDirectSale:
					sold += txn.Quantity
				case models.TxTypeConsignment:
					consigned += txn.Quantity
				case models.TxTypePersonalUse:
					personal += txn.Quantity
				}
			}
			remaining := state.Inventory[flavor]
			status := "OK"
			if remaining < s.lowStockThreshold {
				status = "Low Stock"
			}
			w.Write([]string{
				flavor,
				strconv.Itoa(catalog.InitialStock),
				strconv.Itoa(sold),
				strconv.Itoa(consigned),
				strconv.Itoa(personal),
				strconv.Itoa(remaining),
				status,
			})
		}

		w.Write(nil)
		summary := summarize(state)
		w.Write([]string{"Metric", "Value"})
		w.Write([]string{"Cash on Hand", summary.CashOnHand.StringFixed(2)})
		w.Write([]string{"Total Receivables", summary.TotalReceivables.StringFixed(2)})
		w.Write([]string{"Inventory Value", summary.InventoryValue.StringFixed(2)})
		w.Write([]string{"Total Cost Sold", summary.TotalCostSold.StringFixed(2)})
		w.Write([]string{"Net Profit", summary.NetProfit.StringFixed(2)})

		w.Write(nil)
		w.Write([]string{"Consignee", "Flavor", "Quantity", "Price", "Total", "Paid"})
		names := make([]string, 0, len(state.Consignees))
		for name := range state.Consignees {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			for _, item := range state.Consignees[name] {
				paid := "No"
				if item.Paid {
					paid = "Yes"
				}
				w.Write([]string{
					name,
					item.Flavor,
					strconv.Itoa(item.Quantity),
					item.Price.StringFixed(2),
					money.Round(item.Total()).StringFixed(2),
					paid,
				})
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to write export: %w", err)
	}
	return buf.Bytes(), nil
}
