package service

import (
	"context"
	"fmt"
	"sort"

	"consignment-service/internal/models"
	"consignment-service/internal/redisclient"
	"consignment-service/internal/util"

	"go.uber.org/zap"
)

// reserveStock validates that quantity units of flavor are available. It
// never decrements; accept paths perform the decrement separately after
// all checks pass.
func reserveStock(state *models.State, flavor string, quantity int) error {
	current, ok := state.Inventory[flavor]
	if !ok {
		return fmt.Errorf("%w: unknown flavor %q", ErrNotFound, flavor)
	}
	if current < quantity {
		return fmt.Errorf("%w: only %d units of %s available", ErrOutOfStock, current, flavor)
	}
	return nil
}

// lowStockFlavors returns the flavors below threshold, in catalog-stable
// sorted order.
func lowStockFlavors(state *models.State, threshold int) []string {
	var low []string
	for flavor, count := range state.Inventory {
		if count < threshold {
			low = append(low, flavor)
		}
	}
	sort.Strings(low)
	return low
}

// mirrorInventory pushes the current counts to the Redis mirror.
// Best-effort: failures are logged and counted, never surfaced.
func mirrorInventory(ctx context.Context, mirror *redisclient.Client, logger *zap.Logger, counts map[string]int) {
	if mirror == nil {
		return
	}
	snapshot := make(map[string]int, len(counts))
	for flavor, count := range counts {
		snapshot[flavor] = count
	}
	if err := mirror.SyncInventory(ctx, snapshot); err != nil {
		util.InventorySyncFailedTotal.Inc()
		logger.Warn("Failed to sync inventory mirror", zap.Error(err))
	}
}
