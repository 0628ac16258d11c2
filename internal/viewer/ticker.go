package viewer

import (
	"context"
)

// TickerStats is the PLEX price summary shown in the header strip. Pointer
// fields are nil when no orders of that side exist anywhere.
type TickerStats struct {
	TypeID      int32    `json:"type_id"`
	HighestBuy  *float64 `json:"highest_buy"`
	LowestSell  *float64 `json:"lowest_sell"`
	Average     *float64 `json:"average"`
	OrderCount  int      `json:"order_count"`
	RegionCount int      `json:"region_count"`
}

// Ticker aggregates orders for typeID across every known region and reduces
// them to the header summary. Independent of the current selection.
func (c *Controller) Ticker(ctx context.Context, typeID int32) (TickerStats, error) {
	set, err := c.orders.FetchOrders(ctx, typeID, "all")
	if err != nil {
		return TickerStats{}, err
	}

	stats := TickerStats{TypeID: typeID, OrderCount: set.Total()}

	regions := make(map[int32]bool)
	var sum float64
	for _, o := range set.BuyOrders {
		regions[o.RegionID] = true
		sum += o.Price
		if stats.HighestBuy == nil || o.Price > *stats.HighestBuy {
			p := o.Price
			stats.HighestBuy = &p
		}
	}
	for _, o := range set.SellOrders {
		regions[o.RegionID] = true
		sum += o.Price
		if stats.LowestSell == nil || o.Price < *stats.LowestSell {
			p := o.Price
			stats.LowestSell = &p
		}
	}
	stats.RegionCount = len(regions)
	if stats.OrderCount > 0 {
		avg := sum / float64(stats.OrderCount)
		stats.Average = &avg
	}
	return stats, nil
}
