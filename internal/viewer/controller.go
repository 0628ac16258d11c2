package viewer

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"

	"eve-data-hub/internal/esi"
	"eve-data-hub/internal/history"
	"eve-data-hub/internal/logger"
	"eve-data-hub/internal/region"
	"eve-data-hub/internal/staticdata"
)

// prefSelectedTypeID is the persistence key for the selected item.
const prefSelectedTypeID = "selectedTypeID"

// OrderFetcher aggregates market orders. Implemented by esi.OrderService.
type OrderFetcher interface {
	FetchOrders(ctx context.Context, typeID int32, regionRef string) (esi.OrderSet, error)
}

// HistoryFetcher fetches cached price history. Implemented by
// history.Service.
type HistoryFetcher interface {
	Fetch(ctx context.Context, typeID int32, regionRef string) ([]history.HistoryPoint, error)
}

// RegionSelector is the controller's view of the region resolver.
type RegionSelector interface {
	Selected() region.Change
	SelectedRef() string
	OnChange(func(region.Change))
}

// Store persists selection state and the quickbar. Implemented by db.DB;
// may be nil for ephemeral sessions.
type Store interface {
	GetPref(key string) (string, bool)
	SetPref(key, value string)
	LoadQuickbar() []staticdata.FlatItem
	SaveQuickbar([]staticdata.FlatItem)
}

// OrderSink is the rendering collaborator for the market view.
type OrderSink interface {
	RenderOrders(typeID int32, set esi.OrderSet)
}

// ChartSink is the rendering collaborator for the history view.
type ChartSink interface {
	RenderHistory(typeID, regionID int32, points []history.HistoryPoint)
}

// Controller is the only mutator of the shared State. On item or region
// change it re-runs the active view's fetch and hands the result to the
// registered sink.
//
// Stale-response policy: every fetch captures a generation number; a result
// is committed to State only if no newer selection has started in the
// meantime, so a slow fetch for a superseded item can never overwrite the
// current one.
type Controller struct {
	state     *State
	items     map[int32]staticdata.FlatItem
	flatIndex []staticdata.FlatItem
	taxonomy  *staticdata.TaxonomyNode
	regions   RegionSelector
	orders    OrderFetcher
	history   HistoryFetcher
	store     Store
	orderSink OrderSink
	chartSink ChartSink

	searchMinLength  int
	searchMaxResults int

	gen atomic.Uint64
}

// NewController wires the controller and subscribes it to region changes.
// orderSink and chartSink may be nil when no renderer is attached.
func NewController(
	state *State,
	flatIndex []staticdata.FlatItem,
	taxonomy *staticdata.TaxonomyNode,
	regions RegionSelector,
	orders OrderFetcher,
	historyService HistoryFetcher,
	store Store,
) *Controller {
	c := &Controller{
		state:            state,
		items:            make(map[int32]staticdata.FlatItem, len(flatIndex)),
		flatIndex:        flatIndex,
		taxonomy:         taxonomy,
		regions:          regions,
		orders:           orders,
		history:          historyService,
		store:            store,
		searchMinLength:  3,
		searchMaxResults: 100,
	}
	for _, it := range flatIndex {
		c.items[it.TypeID] = it
	}
	if store != nil {
		state.setQuickbar(store.LoadQuickbar())
	}
	// Sole path by which a region change causes a re-fetch; there is no
	// polling. The callback must not call SetRegion (see region.Resolver).
	regions.OnChange(func(region.Change) {
		if typeID := c.state.SelectedTypeID(); typeID != 0 {
			c.refresh(context.Background(), typeID)
		}
	})
	return c
}

// SetSinks attaches the rendering collaborators.
func (c *Controller) SetSinks(orderSink OrderSink, chartSink ChartSink) {
	c.orderSink = orderSink
	c.chartSink = chartSink
}

// SetSearchLimits overrides the search defaults.
func (c *Controller) SetSearchLimits(minLength, maxResults int) {
	c.searchMinLength = minLength
	c.searchMaxResults = maxResults
}

// SelectItem makes typeID the current selection and refreshes the active
// view. A typeID absent from the loaded taxonomy is a stale reference, not
// an error: it is logged and ignored.
func (c *Controller) SelectItem(ctx context.Context, typeID int32) {
	item, ok := c.items[typeID]
	if !ok {
		logger.Warn("Viewer", fmt.Sprintf("Item %d not in flat index, ignoring selection", typeID))
		return
	}

	// State first, fetch second: a fast-resolving fetch must observe the
	// new selection.
	c.state.setSelection(item)
	if c.store != nil {
		c.store.SetPref(prefSelectedTypeID, strconv.FormatInt(int64(typeID), 10))
	}
	c.refresh(ctx, typeID)
}

// SetView activates a detail view tab and refreshes its data for the
// current selection, if any.
func (c *Controller) SetView(ctx context.Context, v View) {
	if v != ViewMarket && v != ViewHistory {
		logger.Warn("Viewer", fmt.Sprintf("Unknown view %q, ignoring", v))
		return
	}
	c.state.setView(v)
	if typeID := c.state.SelectedTypeID(); typeID != 0 {
		c.refresh(ctx, typeID)
	}
}

// refresh re-runs the active view's fetch for typeID, committing the result
// only if the selection generation is still current when it resolves. Fetch
// failures leave previously rendered data untouched.
func (c *Controller) refresh(ctx context.Context, typeID int32) {
	gen := c.gen.Add(1)
	regionRef := c.regions.SelectedRef()

	if c.state.ActiveView() == ViewHistory {
		points, err := c.history.Fetch(ctx, typeID, regionRef)
		if err != nil {
			logger.Warn("Viewer", fmt.Sprintf("History fetch failed for %d: %v", typeID, err))
			return
		}
		if c.gen.Load() != gen {
			logger.Info("Viewer", fmt.Sprintf("Discarding stale history response for %d", typeID))
			return
		}
		c.state.setHistory(points)
		if c.chartSink != nil {
			c.chartSink.RenderHistory(typeID, c.regions.Selected().RegionID, points)
		}
		return
	}

	set, err := c.orders.FetchOrders(ctx, typeID, regionRef)
	if err != nil {
		logger.Warn("Viewer", fmt.Sprintf("Order fetch failed for %d: %v", typeID, err))
		return
	}
	if c.gen.Load() != gen {
		logger.Info("Viewer", fmt.Sprintf("Discarding stale order response for %d", typeID))
		return
	}
	c.state.setOrders(set)
	if c.orderSink != nil {
		c.orderSink.RenderOrders(typeID, set)
	}
}

// Search returns up to the configured number of flat-index entries whose
// name contains the query, case-insensitively, in index order. Queries
// shorter than the minimum length return nothing.
func (c *Controller) Search(query string) []staticdata.FlatItem {
	query = strings.ToLower(strings.TrimSpace(query))
	if len(query) < c.searchMinLength {
		return nil
	}
	var out []staticdata.FlatItem
	for _, it := range c.flatIndex {
		if strings.Contains(strings.ToLower(it.Name), query) {
			out = append(out, it)
			if len(out) >= c.searchMaxResults {
				break
			}
		}
	}
	return out
}

// Breadcrumb returns the category path for typeID, with the
// "Unknown Category" sentinel for unresolvable items.
func (c *Controller) Breadcrumb(typeID int32) []string {
	return staticdata.Breadcrumb(c.taxonomy, typeID)
}

// RestoreSession re-selects the item persisted by a previous session.
// An id that no longer resolves against the current taxonomy is ignored.
func (c *Controller) RestoreSession(ctx context.Context) {
	if c.store == nil {
		return
	}
	stored, ok := c.store.GetPref(prefSelectedTypeID)
	if !ok {
		return
	}
	typeID, err := strconv.ParseInt(stored, 10, 32)
	if err != nil || typeID <= 0 {
		return
	}
	c.SelectItem(ctx, int32(typeID))
}
