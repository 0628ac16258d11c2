package esi

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"eve-data-hub/internal/logger"
	"eve-data-hub/internal/staticdata"
)

// MarketOrder mirrors one row of the external order schema. Read-only input;
// RegionID is stamped on by the fetcher.
type MarketOrder struct {
	OrderID      int64   `json:"order_id"`
	TypeID       int32   `json:"type_id"`
	LocationID   int64   `json:"location_id"`
	SystemID     int32   `json:"system_id"`
	Price        float64 `json:"price"`
	VolumeRemain int32   `json:"volume_remain"`
	MinVolume    int32   `json:"min_volume"`
	Duration     int32   `json:"duration"`
	Range        string  `json:"range"`
	IsBuyOrder   bool    `json:"is_buy_order"`
	RegionID     int32   `json:"-"`
}

// OrderSet is the aggregation result for one (item, region) pair. Ephemeral:
// recomputed on every fetch, never merged with stale data. RegionID is zero
// for an all-region aggregate.
type OrderSet struct {
	BuyOrders  []MarketOrder `json:"buyOrders"`
	SellOrders []MarketOrder `json:"sellOrders"`
	RegionID   int32         `json:"regionID"`
	FetchedAt  time.Time     `json:"fetchTimestamp"`
}

// Total returns the combined row count of both partitions.
func (s OrderSet) Total() int { return len(s.BuyOrders) + len(s.SellOrders) }

// RegionSource supplies canonical region ids and the full region list.
// Implemented by region.Resolver.
type RegionSource interface {
	Resolve(ref string) int32
	Regions() []staticdata.RegionInfo
}

// OrderService aggregates market orders across one or all regions.
type OrderService struct {
	client  *Client
	regions RegionSource
}

// NewOrderService creates an OrderService over the given client and region
// source.
func NewOrderService(client *Client, regions RegionSource) *OrderService {
	return &OrderService{client: client, regions: regions}
}

// FetchRegionOrders fetches every page of orders for one type in one region.
// Page 1 is requested first; the X-Pages header declares the total and pages
// are walked in sequence until that total is reached. A failing page stops
// the walk and whatever has accumulated is returned: partial results are
// acceptable, not an error. Only a failure on the very first page reports
// ErrResourceUnavailable.
func (s *OrderService) FetchRegionOrders(ctx context.Context, regionID, typeID int32) ([]MarketOrder, error) {
	url := fmt.Sprintf("%s/%d/orders/?type_id=%d", s.client.baseURL, regionID, typeID)

	var all []MarketOrder
	page := 1
	for {
		var rows []MarketOrder
		totalPages, err := s.client.getPage(ctx, url, page, &rows)
		if err != nil {
			if page == 1 {
				return nil, fmt.Errorf("region %d page 1: %w", regionID, err)
			}
			logger.Warn("Orders", fmt.Sprintf("Region %d page %d failed, keeping %d rows: %v", regionID, page, len(all), err))
			return all, nil
		}
		for i := range rows {
			rows[i].RegionID = regionID
		}
		all = append(all, rows...)

		if page >= totalPages {
			return all, nil
		}
		page++
	}
}

// FetchAllRegionOrders fans out one paginated fetch per known region and
// joins all of them before returning the concatenation. A slow region delays
// the aggregate; a failing region contributes nothing. Only when every region
// fails is the aggregate itself an error.
func (s *OrderService) FetchAllRegionOrders(ctx context.Context, typeID int32) ([]MarketOrder, error) {
	regions := s.regions.Regions()
	if len(regions) == 0 {
		return nil, fmt.Errorf("%w: no regions known", ErrInvalidInput)
	}

	results := make([][]MarketOrder, len(regions))
	var mu sync.Mutex
	failed := 0

	g, gctx := errgroup.WithContext(ctx)
	for i, r := range regions {
		g.Go(func() error {
			rows, err := s.FetchRegionOrders(gctx, r.RegionID, typeID)
			if err != nil {
				logger.Warn("Orders", fmt.Sprintf("Region %d (%s) fetch failed: %v", r.RegionID, r.RegionName, err))
				mu.Lock()
				failed++
				mu.Unlock()
				return nil
			}
			results[i] = rows
			return nil
		})
	}
	// Per-region failures are absorbed above, so the group never errors;
	// Wait is only the join barrier.
	_ = g.Wait()

	if failed == len(regions) {
		return nil, fmt.Errorf("all %d regions: %w", len(regions), ErrResourceUnavailable)
	}

	var all []MarketOrder
	for _, rows := range results {
		all = append(all, rows...)
	}
	return all, nil
}

// FetchOrders resolves regionRef ("all", a region name, or a numeric id) and
// returns the buy/sell partition of the matching orders. Invalid input yields
// an empty OrderSet and ErrInvalidInput rather than a panic or partial state;
// a failed fetch is distinguishable from "no orders" by the error return.
func (s *OrderService) FetchOrders(ctx context.Context, typeID int32, regionRef string) (OrderSet, error) {
	if typeID <= 0 {
		logger.Warn("Orders", fmt.Sprintf("Missing or invalid typeID %d (region %q)", typeID, regionRef))
		return OrderSet{FetchedAt: time.Now().UTC()}, ErrInvalidInput
	}

	var (
		orders   []MarketOrder
		regionID int32
		err      error
	)
	if regionRef == "all" {
		orders, err = s.FetchAllRegionOrders(ctx, typeID)
	} else {
		regionID = s.regions.Resolve(regionRef)
		if regionID == 0 {
			logger.Warn("Orders", fmt.Sprintf("Unresolvable region %q for typeID %d", regionRef, typeID))
			return OrderSet{FetchedAt: time.Now().UTC()}, ErrInvalidInput
		}
		orders, err = s.FetchRegionOrders(ctx, regionID, typeID)
	}
	if err != nil {
		logger.Warn("Orders", fmt.Sprintf("Fetch failed for typeID %d region %q: %v", typeID, regionRef, err))
		return OrderSet{RegionID: regionID, FetchedAt: time.Now().UTC()}, err
	}

	set := OrderSet{RegionID: regionID, FetchedAt: time.Now().UTC()}
	for _, o := range orders {
		if o.IsBuyOrder {
			set.BuyOrders = append(set.BuyOrders, o)
		} else {
			set.SellOrders = append(set.SellOrders, o)
		}
	}
	return set, nil
}
