// Package viewer holds the shared selection/view state and the controller
// that keeps it coherent across search, tree, region, and tab events.
package viewer

import (
	"sync"

	"eve-data-hub/internal/esi"
	"eve-data-hub/internal/history"
	"eve-data-hub/internal/staticdata"
)

// View is the active detail view.
type View string

const (
	// ViewMarket shows the buy/sell order tables.
	ViewMarket View = "market"
	// ViewHistory shows the price history chart.
	ViewHistory View = "history"
)

// State is the single shared selection state for a page session. It is
// mutated only by the Controller; rendering collaborators read it. Tests
// instantiate isolated copies, nothing here is package-global.
type State struct {
	mu             sync.RWMutex
	selectedTypeID int32
	selectedItem   *staticdata.FlatItem
	activeView     View
	orders         esi.OrderSet
	historyPoints  []history.HistoryPoint
	quickbar       []staticdata.FlatItem
}

// NewState creates a State with the market view active and nothing selected.
func NewState() *State {
	return &State{activeView: ViewMarket}
}

// SelectedTypeID returns the currently selected item id, zero when nothing
// is selected.
func (s *State) SelectedTypeID() int32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selectedTypeID
}

// SelectedItem returns a copy of the selected item, nil when nothing is
// selected.
func (s *State) SelectedItem() *staticdata.FlatItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.selectedItem == nil {
		return nil
	}
	item := *s.selectedItem
	return &item
}

// ActiveView returns the active detail view.
func (s *State) ActiveView() View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeView
}

// Orders returns the last committed order aggregation result.
func (s *State) Orders() esi.OrderSet {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.orders
}

// History returns the last committed history points. Read-only.
func (s *State) History() []history.HistoryPoint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.historyPoints
}

// Quickbar returns a copy of the quickbar list.
func (s *State) Quickbar() []staticdata.FlatItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]staticdata.FlatItem, len(s.quickbar))
	copy(out, s.quickbar)
	return out
}

func (s *State) setSelection(item staticdata.FlatItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selectedTypeID = item.TypeID
	s.selectedItem = &item
}

func (s *State) setView(v View) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeView = v
}

func (s *State) setOrders(set esi.OrderSet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders = set
}

func (s *State) setHistory(points []history.HistoryPoint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.historyPoints = points
}

func (s *State) setQuickbar(items []staticdata.FlatItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quickbar = items
}
