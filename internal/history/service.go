// Package history fetches per-item daily price history with a time-windowed
// cache and computes derived chart statistics.
package history

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"eve-data-hub/internal/esi"
	"eve-data-hub/internal/logger"
)

// HistoryPoint is one normalized daily record: numeric fields coerced,
// spread and timestamp computed from the raw entry.
type HistoryPoint struct {
	Date       string  `json:"date"`
	Average    float64 `json:"average"`
	High       float64 `json:"high"`
	Low        float64 `json:"low"`
	Spread     float64 `json:"spread"`
	Volume     int64   `json:"volume"`
	OrderCount int64   `json:"order_count"`
	Timestamp  int64   `json:"timestamp"` // unix milliseconds of Date
}

// Fetcher fetches raw history entries. Implemented by esi.Client.
type Fetcher interface {
	FetchMarketHistory(ctx context.Context, regionID, typeID int32) ([]esi.HistoryEntry, error)
}

// RegionSource resolves a region reference to a canonical id.
type RegionSource interface {
	Resolve(ref string) int32
}

type cacheKey struct {
	TypeID   int32
	RegionID int32
}

type cacheEntry struct {
	points    []HistoryPoint
	fetchedAt time.Time
}

// Service caches normalized history per (typeID, regionID). An entry older
// than the freshness window is stale and refetched; a refetch replaces the
// whole array, never part of it. Concurrent fetches for the same key are
// coalesced.
type Service struct {
	fetcher Fetcher
	regions RegionSource
	ttl     time.Duration
	maxDays int

	mu      sync.RWMutex
	entries map[cacheKey]*cacheEntry
	group   singleflight.Group

	now func() time.Time // injectable for freshness tests
}

// NewService creates a history service with the given freshness window and
// retention (most recent maxDays points are kept).
func NewService(fetcher Fetcher, regions RegionSource, ttl time.Duration, maxDays int) *Service {
	return &Service{
		fetcher: fetcher,
		regions: regions,
		ttl:     ttl,
		maxDays: maxDays,
		entries: make(map[cacheKey]*cacheEntry),
		now:     time.Now,
	}
}

// Fetch returns the history for typeID in the referenced region, from cache
// when fresh, otherwise from the network.
func (s *Service) Fetch(ctx context.Context, typeID int32, regionRef string) ([]HistoryPoint, error) {
	if typeID <= 0 {
		logger.Warn("History", fmt.Sprintf("Missing or invalid typeID %d (region %q)", typeID, regionRef))
		return nil, esi.ErrInvalidInput
	}
	regionID := s.regions.Resolve(regionRef)
	if regionID <= 0 {
		logger.Warn("History", fmt.Sprintf("Unresolvable region %q for typeID %d", regionRef, typeID))
		return nil, esi.ErrInvalidInput
	}

	key := cacheKey{TypeID: typeID, RegionID: regionID}
	if points, ok := s.cached(key); ok {
		return points, nil
	}

	sfKey := fmt.Sprintf("%d:%d", typeID, regionID)
	result, err, _ := s.group.Do(sfKey, func() (interface{}, error) {
		// Re-check under singleflight: a concurrent caller may have
		// populated the entry while this one waited.
		if points, ok := s.cached(key); ok {
			return points, nil
		}
		raw, err := s.fetcher.FetchMarketHistory(ctx, regionID, typeID)
		if err != nil {
			return nil, err
		}
		points := Normalize(raw)
		if len(points) > s.maxDays {
			points = points[len(points)-s.maxDays:]
		}
		s.mu.Lock()
		s.entries[key] = &cacheEntry{points: points, fetchedAt: s.now()}
		s.mu.Unlock()
		return points, nil
	})
	if err != nil {
		logger.Warn("History", fmt.Sprintf("Fetch failed for typeID %d region %d: %v", typeID, regionID, err))
		return nil, err
	}
	return result.([]HistoryPoint), nil
}

// Cached returns the cached points for the pair regardless of freshness, or
// nil when nothing is cached. Callers must treat the slice as read-only.
func (s *Service) Cached(typeID, regionID int32) []HistoryPoint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if e, ok := s.entries[cacheKey{TypeID: typeID, RegionID: regionID}]; ok {
		return e.points
	}
	return nil
}

// ClearCache drops entries for the given typeIDs, or every entry when called
// with no arguments.
func (s *Service) ClearCache(typeIDs ...int32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(typeIDs) == 0 {
		s.entries = make(map[cacheKey]*cacheEntry)
		return
	}
	for key := range s.entries {
		for _, id := range typeIDs {
			if key.TypeID == id {
				delete(s.entries, key)
				break
			}
		}
	}
}

func (s *Service) cached(key cacheKey) ([]HistoryPoint, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	if !ok || s.now().Sub(e.fetchedAt) >= s.ttl {
		return nil, false
	}
	return e.points, true
}

// Normalize converts raw entries to HistoryPoints sorted ascending by date.
// Entries missing a date or an average price are logged and dropped without
// aborting the rest.
func Normalize(raw []esi.HistoryEntry) []HistoryPoint {
	points := make([]HistoryPoint, 0, len(raw))
	for _, e := range raw {
		t, err := time.Parse("2006-01-02", e.Date)
		if err != nil {
			logger.Warn("History", fmt.Sprintf("Dropping point with bad date %q", e.Date))
			continue
		}
		if e.Average <= 0 {
			logger.Warn("History", fmt.Sprintf("Dropping point %s with missing average", e.Date))
			continue
		}
		points = append(points, HistoryPoint{
			Date:       e.Date,
			Average:    e.Average,
			High:       e.Highest,
			Low:        e.Lowest,
			Spread:     e.Highest - e.Lowest,
			Volume:     e.Volume,
			OrderCount: e.OrderCount,
			Timestamp:  t.UTC().UnixMilli(),
		})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Timestamp < points[j].Timestamp })
	return points
}
