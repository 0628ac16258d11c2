// Package region resolves user-facing region selections to canonical region
// ids and fans change notifications out to dependent fetchers.
package region

import (
	"fmt"
	"sort"
	"strconv"
	"sync"

	"eve-data-hub/internal/logger"
	"eve-data-hub/internal/staticdata"
)

// AllRegions is the display name of the aggregate selection.
const AllRegions = "all"

// Change is the payload delivered to subscribers on every region change.
type Change struct {
	Region   string `json:"region"`
	RegionID int32  `json:"regionID"`
}

// Store persists the selected region across sessions. Implemented by
// internal/db; absence of a stored value means "no prior session".
type Store interface {
	GetPref(key string) (string, bool)
	SetPref(key, value string)
}

// prefSelectedRegion is the persistence key for the selected region.
const prefSelectedRegion = "selectedRegion"

// Resolver owns the selected region. SetRegion persists the resolved id and
// synchronously notifies subscribers in registration order.
//
// Subscribers must be idempotent and must not call SetRegion from inside a
// callback: delivery is synchronous and unguarded, so re-entrant selection
// would recurse without bound. This contract is intentional, there is no
// re-entrancy guard.
type Resolver struct {
	index     *staticdata.RegionIndex
	defaultID int32
	store     Store

	mu           sync.RWMutex
	selectedName string
	selectedID   int32
	subscribers  []func(Change)
}

// NewResolver creates a Resolver over the given index with the configured
// default region. The initial selection is "all". store may be nil.
func NewResolver(index *staticdata.RegionIndex, defaultID int32, store Store) *Resolver {
	return &Resolver{
		index:        index,
		defaultID:    defaultID,
		store:        store,
		selectedName: AllRegions,
		selectedID:   defaultID,
	}
}

// RegionList returns the name-keyed region map for dropdown population.
func (r *Resolver) RegionList() map[string]staticdata.RegionInfo {
	return r.index.ByName
}

// Regions returns all known regions sorted by name, for deterministic
// fan-out order.
func (r *Resolver) Regions() []staticdata.RegionInfo {
	out := make([]staticdata.RegionInfo, 0, len(r.index.ByName))
	for _, info := range r.index.ByName {
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RegionName < out[j].RegionName })
	return out
}

// Selected returns the current selection: the display name (possibly "all")
// and its canonical id.
func (r *Resolver) Selected() Change {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return Change{Region: r.selectedName, RegionID: r.selectedID}
}

// SelectedRef returns the selection as a fetch reference: "all" or the
// region name.
func (r *Resolver) SelectedRef() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.selectedName
}

// RegionID returns the canonical id backing the current selection. For the
// aggregate "all" selection this is the configured default region.
func (r *Resolver) RegionID() int32 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.selectedID
}

// Summary renders the current selection for display and logs.
func (r *Resolver) Summary() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.selectedName == AllRegions {
		return fmt.Sprintf("all regions (default %d)", r.selectedID)
	}
	return fmt.Sprintf("%s (%d)", r.selectedName, r.selectedID)
}

// Resolve maps a region reference (name, numeric id, or "all") to a
// canonical region id. Unknown references fall back to the default id;
// Resolve never fails.
func (r *Resolver) Resolve(ref string) int32 {
	if ref == "" || ref == AllRegions {
		return r.defaultID
	}
	if info, ok := r.index.ByName[ref]; ok {
		return info.RegionID
	}
	if n, err := strconv.ParseInt(ref, 10, 32); err == nil {
		if info, ok := r.index.ByID[int32(n)]; ok {
			return info.RegionID
		}
	}
	return r.defaultID
}

// SetRegion selects a region by name. "all" selects the aggregate view
// backed by the default id; unknown names fall back to the default id
// without error. The resolved id is persisted and subscribers are notified
// synchronously in registration order.
func (r *Resolver) SetRegion(name string) {
	r.mu.Lock()
	if name == AllRegions || name == "" {
		r.selectedName = AllRegions
		r.selectedID = r.defaultID
	} else if info, ok := r.index.ByName[name]; ok {
		r.selectedName = name
		r.selectedID = info.RegionID
	} else {
		logger.Warn("Region", fmt.Sprintf("Unknown region %q, falling back to default %d", name, r.defaultID))
		r.selectedName = name
		r.selectedID = r.defaultID
	}
	change := Change{Region: r.selectedName, RegionID: r.selectedID}
	subscribers := r.subscribers
	r.mu.Unlock()

	if r.store != nil {
		if change.Region == AllRegions {
			r.store.SetPref(prefSelectedRegion, AllRegions)
		} else {
			r.store.SetPref(prefSelectedRegion, strconv.FormatInt(int64(change.RegionID), 10))
		}
	}
	for _, fn := range subscribers {
		fn(change)
	}
}

// OnChange registers a callback for region changes. Delivery is synchronous,
// in registration order. See the re-entrancy contract on Resolver.
func (r *Resolver) OnChange(fn func(Change)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subscribers = append(r.subscribers, fn)
}

// Restore re-applies a previously persisted region selection, if any.
// A stored value that no longer resolves selects "all".
func (r *Resolver) Restore() {
	if r.store == nil {
		return
	}
	stored, ok := r.store.GetPref(prefSelectedRegion)
	if !ok || stored == "" || stored == AllRegions {
		return
	}
	if n, err := strconv.ParseInt(stored, 10, 32); err == nil {
		if info, found := r.index.ByID[int32(n)]; found {
			r.SetRegion(info.RegionName)
			return
		}
	}
	logger.Warn("Region", fmt.Sprintf("Stored region %q no longer resolves, keeping %q", stored, AllRegions))
}
