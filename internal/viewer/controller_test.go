package viewer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eve-data-hub/internal/esi"
	"eve-data-hub/internal/history"
	"eve-data-hub/internal/region"
	"eve-data-hub/internal/staticdata"
)

const testTaxonomy = `{
	"Ships": {
		"_info": {"marketGroupID": 4, "name": "Ships"},
		"Frigates": {
			"_info": {"marketGroupID": 25, "name": "Frigates"},
			"items": [
				{"typeID": 587, "typeName": "Rifter", "published": true},
				{"typeID": 589, "typeName": "Executioner", "published": true}
			]
		}
	},
	"Minerals": {
		"_info": {"marketGroupID": 18, "name": "Minerals"},
		"items": [
			{"typeID": 34, "typeName": "Tritanium", "published": true}
		]
	}
}`

func testItems() []staticdata.FlatItem {
	return []staticdata.FlatItem{
		{TypeID: 587, Name: "Rifter"},
		{TypeID: 589, Name: "Executioner"},
		{TypeID: 34, Name: "Tritanium"},
		{TypeID: 44992, Name: "PLEX"},
	}
}

func testTaxonomyRoot(t *testing.T) *staticdata.TaxonomyNode {
	t.Helper()
	var root staticdata.TaxonomyNode
	require.NoError(t, json.Unmarshal([]byte(testTaxonomy), &root))
	return &root
}

type fakeOrderFetcher struct {
	calls int
	set   *esi.OrderSet
	err   error
	// hook runs before returning, with the requested typeID. Used to
	// interleave a competing selection mid-fetch.
	hook func(typeID int32)
}

func (f *fakeOrderFetcher) FetchOrders(_ context.Context, typeID int32, _ string) (esi.OrderSet, error) {
	f.calls++
	if f.hook != nil {
		hook := f.hook
		f.hook = nil
		hook(typeID)
	}
	if f.err != nil {
		return esi.OrderSet{}, f.err
	}
	if f.set != nil {
		return *f.set, nil
	}
	return esi.OrderSet{SellOrders: []esi.MarketOrder{{OrderID: int64(typeID), TypeID: typeID, Price: 5}}}, nil
}

type fakeHistoryFetcher struct {
	calls  int
	points []history.HistoryPoint
	err    error
}

func (f *fakeHistoryFetcher) Fetch(_ context.Context, typeID int32, _ string) ([]history.HistoryPoint, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.points, nil
}

type fakeSelector struct {
	ref       string
	change    region.Change
	callbacks []func(region.Change)
}

func (f *fakeSelector) Selected() region.Change         { return f.change }
func (f *fakeSelector) SelectedRef() string             { return f.ref }
func (f *fakeSelector) OnChange(fn func(region.Change)) { f.callbacks = append(f.callbacks, fn) }

func (f *fakeSelector) fire() {
	for _, fn := range f.callbacks {
		fn(f.change)
	}
}

type fakeOrderSink struct {
	calls      int
	lastTypeID int32
	lastSet    esi.OrderSet
}

func (f *fakeOrderSink) RenderOrders(typeID int32, set esi.OrderSet) {
	f.calls++
	f.lastTypeID = typeID
	f.lastSet = set
}

type fakeChartSink struct {
	calls      int
	lastTypeID int32
	lastPoints []history.HistoryPoint
}

func (f *fakeChartSink) RenderHistory(typeID, _ int32, points []history.HistoryPoint) {
	f.calls++
	f.lastTypeID = typeID
	f.lastPoints = points
}

type memStore struct {
	prefs    map[string]string
	quickbar []staticdata.FlatItem
}

func newMemStore() *memStore { return &memStore{prefs: make(map[string]string)} }

func (m *memStore) GetPref(key string) (string, bool) {
	v, ok := m.prefs[key]
	return v, ok
}
func (m *memStore) SetPref(key, value string) { m.prefs[key] = value }
func (m *memStore) LoadQuickbar() []staticdata.FlatItem {
	return append([]staticdata.FlatItem(nil), m.quickbar...)
}
func (m *memStore) SaveQuickbar(items []staticdata.FlatItem) {
	m.quickbar = append([]staticdata.FlatItem(nil), items...)
}

type testRig struct {
	state     *State
	orders    *fakeOrderFetcher
	history   *fakeHistoryFetcher
	selector  *fakeSelector
	store     *memStore
	orderSink *fakeOrderSink
	chartSink *fakeChartSink
	ctrl      *Controller
}

func newTestRig(t *testing.T) *testRig {
	t.Helper()
	rig := &testRig{
		state:     NewState(),
		orders:    &fakeOrderFetcher{},
		history:   &fakeHistoryFetcher{},
		selector:  &fakeSelector{ref: "all", change: region.Change{Region: "all", RegionID: 10000002}},
		store:     newMemStore(),
		orderSink: &fakeOrderSink{},
		chartSink: &fakeChartSink{},
	}
	rig.ctrl = NewController(rig.state, testItems(), testTaxonomyRoot(t), rig.selector, rig.orders, rig.history, rig.store)
	rig.ctrl.SetSinks(rig.orderSink, rig.chartSink)
	return rig
}

func TestSelectItem_MarketView(t *testing.T) {
	rig := newTestRig(t)

	rig.ctrl.SelectItem(context.Background(), 587)

	assert.EqualValues(t, 587, rig.state.SelectedTypeID())
	require.NotNil(t, rig.state.SelectedItem())
	assert.Equal(t, "Rifter", rig.state.SelectedItem().Name)
	assert.Equal(t, 1, rig.orders.calls)
	assert.Equal(t, 0, rig.history.calls, "market view must not fetch history")
	assert.Equal(t, 1, rig.state.Orders().Total())

	stored, ok := rig.store.GetPref(prefSelectedTypeID)
	require.True(t, ok)
	assert.Equal(t, "587", stored)
}

func TestSelectItem_UnknownIgnored(t *testing.T) {
	rig := newTestRig(t)

	rig.ctrl.SelectItem(context.Background(), 999999)

	assert.Zero(t, rig.state.SelectedTypeID())
	assert.Equal(t, 0, rig.orders.calls)
	_, ok := rig.store.GetPref(prefSelectedTypeID)
	assert.False(t, ok, "failed selection must not persist")
}

func TestSelectItem_HistoryView(t *testing.T) {
	rig := newTestRig(t)
	rig.history.points = []history.HistoryPoint{{Date: "2025-01-15", Average: 100}}

	rig.ctrl.SetView(context.Background(), ViewHistory)
	rig.ctrl.SelectItem(context.Background(), 34)

	assert.Equal(t, 1, rig.history.calls)
	assert.Equal(t, 0, rig.orders.calls, "history view must not fetch orders")
	require.Len(t, rig.state.History(), 1)
	assert.Equal(t, "2025-01-15", rig.state.History()[0].Date)
}

func TestSelectItem_FetchFailureKeepsPriorData(t *testing.T) {
	rig := newTestRig(t)

	rig.ctrl.SelectItem(context.Background(), 587)
	require.Equal(t, 1, rig.state.Orders().Total())

	rig.orders.err = errors.New("boom")
	rig.ctrl.SelectItem(context.Background(), 34)

	// Selection moved on, but the last good orders stay rendered and the
	// renderer is not re-notified.
	assert.EqualValues(t, 34, rig.state.SelectedTypeID())
	assert.Equal(t, 1, rig.state.Orders().Total())
	assert.EqualValues(t, 587, rig.state.Orders().SellOrders[0].TypeID)
	assert.Equal(t, 1, rig.orderSink.calls, "failed fetch must not notify the sink")
	assert.EqualValues(t, 587, rig.orderSink.lastTypeID)
}

func TestSelectItem_StaleResponseDiscarded(t *testing.T) {
	rig := newTestRig(t)

	// While the fetch for 587 is in flight, the user selects 34. The 34
	// selection completes first; 587's result must then be discarded.
	rig.orders.hook = func(typeID int32) {
		if typeID == 587 {
			rig.ctrl.SelectItem(context.Background(), 34)
		}
	}
	rig.ctrl.SelectItem(context.Background(), 587)

	assert.EqualValues(t, 34, rig.state.SelectedTypeID())
	require.Equal(t, 1, rig.state.Orders().Total())
	assert.EqualValues(t, 34, rig.state.Orders().SellOrders[0].TypeID,
		"stale 587 response must not overwrite the 34 orders")
	assert.Equal(t, 1, rig.orderSink.calls, "only the winning fetch notifies the sink")
	assert.EqualValues(t, 34, rig.orderSink.lastTypeID)
}

func TestSinks_NotifiedOncePerCommit(t *testing.T) {
	rig := newTestRig(t)

	rig.ctrl.SelectItem(context.Background(), 587)
	assert.Equal(t, 1, rig.orderSink.calls)
	assert.EqualValues(t, 587, rig.orderSink.lastTypeID)
	assert.Equal(t, rig.state.Orders(), rig.orderSink.lastSet, "sink sees exactly the committed set")
	assert.Equal(t, 0, rig.chartSink.calls, "market view must not notify the chart")

	rig.history.points = []history.HistoryPoint{{Date: "2025-01-15", Average: 100}}
	rig.ctrl.SetView(context.Background(), ViewHistory)
	assert.Equal(t, 1, rig.chartSink.calls)
	assert.EqualValues(t, 587, rig.chartSink.lastTypeID)
	assert.Equal(t, rig.state.History(), rig.chartSink.lastPoints)
	assert.Equal(t, 1, rig.orderSink.calls, "history view must not re-notify the order sink")
}

func TestSinks_HistoryFailureNotNotified(t *testing.T) {
	rig := newTestRig(t)
	rig.ctrl.SetView(context.Background(), ViewHistory)
	rig.history.err = errors.New("boom")

	rig.ctrl.SelectItem(context.Background(), 587)
	assert.Equal(t, 0, rig.chartSink.calls)
}

func TestSetView_Invalid(t *testing.T) {
	rig := newTestRig(t)

	rig.ctrl.SetView(context.Background(), View("graph"))
	assert.Equal(t, ViewMarket, rig.state.ActiveView())
}

func TestSetView_RefetchesCurrentSelection(t *testing.T) {
	rig := newTestRig(t)

	rig.ctrl.SelectItem(context.Background(), 587)
	require.Equal(t, 1, rig.orders.calls)

	rig.ctrl.SetView(context.Background(), ViewHistory)
	assert.Equal(t, 1, rig.history.calls)

	rig.ctrl.SetView(context.Background(), ViewMarket)
	assert.Equal(t, 2, rig.orders.calls)
}

func TestRegionChange_RefetchesSelection(t *testing.T) {
	rig := newTestRig(t)

	// No selection yet: a region change fetches nothing.
	rig.selector.fire()
	assert.Equal(t, 0, rig.orders.calls)

	rig.ctrl.SelectItem(context.Background(), 587)
	rig.selector.fire()
	assert.Equal(t, 2, rig.orders.calls)
	assert.EqualValues(t, 587, rig.state.SelectedTypeID())
}

func TestSearch(t *testing.T) {
	rig := newTestRig(t)

	assert.Nil(t, rig.ctrl.Search("ri"), "below minimum length")
	assert.Nil(t, rig.ctrl.Search("  ri  "), "trimmed below minimum length")

	got := rig.ctrl.Search("RIFT")
	require.Len(t, got, 1)
	assert.Equal(t, "Rifter", got[0].Name)

	got = rig.ctrl.Search("tri")
	require.Len(t, got, 1)
	assert.Equal(t, "Tritanium", got[0].Name)

	assert.Empty(t, rig.ctrl.Search("nosuchitem"))
}

func TestSearch_ResultCap(t *testing.T) {
	items := make([]staticdata.FlatItem, 150)
	for i := range items {
		items[i] = staticdata.FlatItem{TypeID: int32(i + 1), Name: "Widget " + strconv.Itoa(i)}
	}
	state := NewState()
	ctrl := NewController(state, items, testTaxonomyRoot(t), &fakeSelector{ref: "all"}, &fakeOrderFetcher{}, &fakeHistoryFetcher{}, nil)

	assert.Len(t, ctrl.Search("widget"), 100)

	ctrl.SetSearchLimits(3, 10)
	assert.Len(t, ctrl.Search("widget"), 10)
}

func TestBreadcrumb(t *testing.T) {
	rig := newTestRig(t)

	assert.Equal(t, []string{"Ships", "Frigates"}, rig.ctrl.Breadcrumb(587))
	assert.Equal(t, []string{"Minerals"}, rig.ctrl.Breadcrumb(34))
	assert.Equal(t, []string{"Unknown Category"}, rig.ctrl.Breadcrumb(999999))
}

func TestRestoreSession(t *testing.T) {
	store := newMemStore()
	store.SetPref(prefSelectedTypeID, "589")

	state := NewState()
	orders := &fakeOrderFetcher{}
	ctrl := NewController(state, testItems(), testTaxonomyRoot(t), &fakeSelector{ref: "all"}, orders, &fakeHistoryFetcher{}, store)

	ctrl.RestoreSession(context.Background())
	assert.EqualValues(t, 589, state.SelectedTypeID())
	assert.Equal(t, 1, orders.calls)
}

func TestRestoreSession_StaleID(t *testing.T) {
	store := newMemStore()
	store.SetPref(prefSelectedTypeID, "424242")

	state := NewState()
	ctrl := NewController(state, testItems(), testTaxonomyRoot(t), &fakeSelector{ref: "all"}, &fakeOrderFetcher{}, &fakeHistoryFetcher{}, store)

	ctrl.RestoreSession(context.Background())
	assert.Zero(t, state.SelectedTypeID())
}

// TestSelectItem_AllRegionAggregation drives a selection through the real
// order service against a paginated test server: two regions, one serving
// two pages and one serving one, must produce exactly three requests and a
// complete buy/sell partition.
func TestSelectItem_AllRegionAggregation(t *testing.T) {
	makePage := func(regionID int32, n int, buy bool) []esi.MarketOrder {
		rows := make([]esi.MarketOrder, n)
		for i := range rows {
			rows[i] = esi.MarketOrder{
				OrderID:    int64(regionID)*1000 + int64(i),
				TypeID:     587,
				Price:      100 + float64(i),
				IsBuyOrder: buy,
			}
		}
		return rows
	}
	pages := map[int32][][]esi.MarketOrder{
		10000002: {makePage(10000002, 3, true), makePage(10000002, 2, false)},
		10000043: {makePage(10000043, 4, false)},
	}

	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		var regionID int32
		fmt.Sscanf(r.URL.Path, "/%d/orders/", &regionID)
		page := 1
		if p := r.URL.Query().Get("page"); p != "" {
			page, _ = strconv.Atoi(p)
		}
		regionPages := pages[regionID]
		if page > len(regionPages) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		w.Header().Set("X-Pages", strconv.Itoa(len(regionPages)))
		json.NewEncoder(w).Encode(regionPages[page-1])
	}))
	defer srv.Close()

	index := &staticdata.RegionIndex{
		ByName: map[string]staticdata.RegionInfo{
			"The Forge": {RegionID: 10000002, RegionName: "The Forge"},
			"Domain":    {RegionID: 10000043, RegionName: "Domain"},
		},
		ByID: map[int32]staticdata.RegionInfo{
			10000002: {RegionID: 10000002, RegionName: "The Forge"},
			10000043: {RegionID: 10000043, RegionName: "Domain"},
		},
	}
	resolver := region.NewResolver(index, 10000002, nil)
	service := esi.NewOrderService(esi.NewClient(srv.URL), resolver)

	state := NewState()
	ctrl := NewController(state, testItems(), testTaxonomyRoot(t), resolver, service, &fakeHistoryFetcher{}, nil)

	ctrl.SelectItem(context.Background(), 587)

	assert.EqualValues(t, 587, state.SelectedTypeID())
	assert.EqualValues(t, 3, calls.Load(), "2 pages + 1 page across the two regions")

	set := state.Orders()
	assert.Equal(t, 9, set.Total())
	assert.Len(t, set.BuyOrders, 3)
	assert.Len(t, set.SellOrders, 6)
}
