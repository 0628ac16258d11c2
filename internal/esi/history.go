package esi

import (
	"context"
	"fmt"
)

// HistoryEntry mirrors one daily record of the external history schema.
type HistoryEntry struct {
	Date       string  `json:"date"`
	Average    float64 `json:"average"`
	Highest    float64 `json:"highest"`
	Lowest     float64 `json:"lowest"`
	Volume     int64   `json:"volume"`
	OrderCount int64   `json:"order_count"`
}

// FetchMarketHistory fetches the daily price history for a type in a region.
func (c *Client) FetchMarketHistory(ctx context.Context, regionID, typeID int32) ([]HistoryEntry, error) {
	if regionID <= 0 || typeID <= 0 {
		return nil, fmt.Errorf("%w: regionID=%d typeID=%d", ErrInvalidInput, regionID, typeID)
	}
	url := fmt.Sprintf("%s/%d/history/?type_id=%d", c.baseURL, regionID, typeID)

	var entries []HistoryEntry
	if err := c.GetJSON(ctx, url, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}
