package viewer

import (
	"fmt"

	"eve-data-hub/internal/esi"
	"eve-data-hub/internal/history"
	"eve-data-hub/internal/logger"
)

// ConsoleSink logs render notifications. It stands in for the browser
// renderers in headless runs so the notification path stays live.
type ConsoleSink struct{}

// RenderOrders logs a committed order aggregation.
func (ConsoleSink) RenderOrders(typeID int32, set esi.OrderSet) {
	logger.Info("Render", fmt.Sprintf("Orders for %d: %d buy / %d sell", typeID, len(set.BuyOrders), len(set.SellOrders)))
}

// RenderHistory logs a committed history refresh.
func (ConsoleSink) RenderHistory(typeID, regionID int32, points []history.HistoryPoint) {
	logger.Info("Render", fmt.Sprintf("History for %d in region %d: %d points", typeID, regionID, len(points)))
}
