// Package catalog defines the fixed product catalog. Flavors are not
// created or destroyed at runtime.
package catalog

import (
	"consignment-service/internal/models"

	"github.com/shopspring/decimal"
)

// Flavors is the fixed set of product variants, in catalog order.
var Flavors = []string{
	"Black Currant", "Matcha", "Watermelon", "Bubblegum", "Mango", "Grapes",
	"Lemon Cola", "Mixed Berries", "Blueberry", "Strawberry", "Banana", "Yakult",
}

// InitialStock is the starting unit count per flavor.
const InitialStock = 15

// LowStockThreshold is the default count below which a flavor is flagged.
const LowStockThreshold = 3

// IsFlavor reports whether name is part of the catalog.
func IsFlavor(name string) bool {
	for _, f := range Flavors {
		if f == name {
			return true
		}
	}
	return false
}

// DefaultSettings returns the default pricing configuration.
func DefaultSettings() models.Settings {
	return models.Settings{
		BaseCost:         decimal.NewFromInt(150),
		PriceStandard:    decimal.NewFromInt(300),
		PriceDiscount:    decimal.NewFromInt(280),
		PriceConsignment: decimal.NewFromInt(250),
		PricePersonal:    decimal.NewFromInt(150),
	}
}
