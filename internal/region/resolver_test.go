package region

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eve-data-hub/internal/staticdata"
)

const defaultRegion = int32(10000002)

func testIndex() *staticdata.RegionIndex {
	forge := staticdata.RegionInfo{RegionID: 10000002, RegionName: "The Forge"}
	domain := staticdata.RegionInfo{RegionID: 10000043, RegionName: "Domain"}
	return &staticdata.RegionIndex{
		ByName: map[string]staticdata.RegionInfo{"The Forge": forge, "Domain": domain},
		ByID:   map[int32]staticdata.RegionInfo{10000002: forge, 10000043: domain},
	}
}

type memStore struct{ prefs map[string]string }

func newMemStore() *memStore { return &memStore{prefs: make(map[string]string)} }

func (m *memStore) GetPref(key string) (string, bool) {
	v, ok := m.prefs[key]
	return v, ok
}

func (m *memStore) SetPref(key, value string) { m.prefs[key] = value }

func TestSetRegion_KnownName(t *testing.T) {
	store := newMemStore()
	r := NewResolver(testIndex(), defaultRegion, store)

	r.SetRegion("Domain")

	sel := r.Selected()
	assert.Equal(t, "Domain", sel.Region)
	assert.Equal(t, int32(10000043), sel.RegionID)
	assert.Equal(t, "10000043", store.prefs["selectedRegion"])
}

func TestSetRegion_UnknownNameFallsBack(t *testing.T) {
	r := NewResolver(testIndex(), defaultRegion, newMemStore())

	assert.NotPanics(t, func() { r.SetRegion("Atlantis") })
	assert.Equal(t, defaultRegion, r.Selected().RegionID)
}

func TestSetRegion_All(t *testing.T) {
	store := newMemStore()
	r := NewResolver(testIndex(), defaultRegion, store)
	r.SetRegion("Domain")

	r.SetRegion("all")

	sel := r.Selected()
	assert.Equal(t, "all", sel.Region)
	assert.Equal(t, defaultRegion, sel.RegionID)
	assert.Equal(t, "all", store.prefs["selectedRegion"])
}

func TestResolve(t *testing.T) {
	r := NewResolver(testIndex(), defaultRegion, nil)

	assert.Equal(t, int32(10000043), r.Resolve("Domain"))
	assert.Equal(t, int32(10000043), r.Resolve("10000043"), "numeric id reference")
	assert.Equal(t, defaultRegion, r.Resolve("all"))
	assert.Equal(t, defaultRegion, r.Resolve(""))
	assert.Equal(t, defaultRegion, r.Resolve("Nowhere"))
	assert.Equal(t, defaultRegion, r.Resolve("99999999"), "unknown id falls back")
}

func TestOnChange_RegistrationOrder(t *testing.T) {
	r := NewResolver(testIndex(), defaultRegion, nil)

	var order []string
	r.OnChange(func(c Change) { order = append(order, "first:"+c.Region) })
	r.OnChange(func(c Change) { order = append(order, "second:"+c.Region) })

	r.SetRegion("Domain")

	require.Equal(t, []string{"first:Domain", "second:Domain"}, order)
}

func TestOnChange_PayloadCarriesCanonicalID(t *testing.T) {
	r := NewResolver(testIndex(), defaultRegion, nil)

	var got Change
	r.OnChange(func(c Change) { got = c })

	r.SetRegion("all")
	assert.Equal(t, Change{Region: "all", RegionID: defaultRegion}, got)
}

func TestRegionIDAndSummary(t *testing.T) {
	r := NewResolver(testIndex(), defaultRegion, nil)

	assert.Equal(t, defaultRegion, r.RegionID(), "all backs onto the default id")
	assert.Equal(t, "all regions (default 10000002)", r.Summary())

	r.SetRegion("Domain")
	assert.Equal(t, int32(10000043), r.RegionID())
	assert.Equal(t, "Domain (10000043)", r.Summary())
}

func TestRegions_SortedByName(t *testing.T) {
	r := NewResolver(testIndex(), defaultRegion, nil)

	regions := r.Regions()
	require.Len(t, regions, 2)
	assert.Equal(t, "Domain", regions[0].RegionName)
	assert.Equal(t, "The Forge", regions[1].RegionName)
}

func TestRestore(t *testing.T) {
	store := newMemStore()
	store.prefs["selectedRegion"] = "10000043"

	r := NewResolver(testIndex(), defaultRegion, store)
	r.Restore()

	sel := r.Selected()
	assert.Equal(t, "Domain", sel.Region)
	assert.Equal(t, int32(10000043), sel.RegionID)
}

func TestRestore_NoPriorSession(t *testing.T) {
	r := NewResolver(testIndex(), defaultRegion, newMemStore())
	r.Restore()

	assert.Equal(t, "all", r.Selected().Region)
}

func TestRestore_StaleStoredRegion(t *testing.T) {
	store := newMemStore()
	store.prefs["selectedRegion"] = "12345678"

	r := NewResolver(testIndex(), defaultRegion, store)
	r.Restore()

	assert.Equal(t, "all", r.Selected().Region)
}
