package staticdata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleLocations = `{
	"The Forge": {
		"regionID": 10000002,
		"Kimotoro": {
			"constellationID": 20000020,
			"Jita": {
				"systemID": 30000142,
				"security": 0.946,
				"stations": {
					"60003760": {"stationID": 60003760, "stationName": "Jita IV - Moon 4 - Caldari Navy Assembly Plant"}
				}
			}
		}
	},
	"Domain": {
		"regionID": 10000043,
		"Throne Worlds": {
			"constellationID": 20000322,
			"Amarr": {
				"systemID": 30002187,
				"security": 1.0,
				"stations": {
					"60008494": {"stationID": 60008494, "stationName": "Amarr VIII (Oris) - Emperor Family Academy"}
				}
			}
		}
	}
}`

func newStaticServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/globals/data/locations.json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sampleLocations))
	})
	mux.HandleFunc("/market/data/market.json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sampleTaxonomy))
	})
	mux.HandleFunc("/bad.json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[1, 2, 3]`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestLoadLocations(t *testing.T) {
	srv := newStaticServer(t)
	l := NewLoader(srv.URL)

	tree, err := l.LoadLocations(context.Background(), "globals/data/locations.json")
	require.NoError(t, err)
	require.Contains(t, tree, "The Forge")
	assert.Equal(t, int32(10000002), tree["The Forge"].RegionID)

	jita := tree["The Forge"].Constellations["Kimotoro"].Systems["Jita"]
	require.NotNil(t, jita)
	assert.Equal(t, int64(30000142), jita.SystemID)
	assert.InDelta(t, 0.946, jita.Security, 1e-9)
}

func TestBuildLocationIndex(t *testing.T) {
	srv := newStaticServer(t)
	l := NewLoader(srv.URL)

	tree, err := l.LoadLocations(context.Background(), "globals/data/locations.json")
	require.NoError(t, err)

	regions, stations := BuildLocationIndex(tree)

	require.Len(t, regions.ByName, 2)
	assert.Equal(t, int32(10000043), regions.ByName["Domain"].RegionID)
	assert.Equal(t, "Domain", regions.ByID[10000043].RegionName)

	st, ok := stations[60003760]
	require.True(t, ok)
	assert.Equal(t, "Jita IV - Moon 4 - Caldari Navy Assembly Plant", st.StationName)
	assert.Equal(t, int32(10000002), st.RegionID)
	assert.Equal(t, "The Forge", st.RegionName)
	assert.Equal(t, "Jita", st.SystemName)
}

func TestLoadTaxonomy(t *testing.T) {
	srv := newStaticServer(t)
	l := NewLoader(srv.URL)

	root, err := l.LoadTaxonomy(context.Background(), "market/data/market.json")
	require.NoError(t, err)
	assert.Len(t, FlattenItems(root), 4)
}

func TestLoad_ResourceUnavailable(t *testing.T) {
	srv := newStaticServer(t)
	l := NewLoader(srv.URL)

	_, err := l.LoadLocations(context.Background(), "missing.json")
	assert.ErrorIs(t, err, ErrResourceUnavailable)
}

func TestLoad_MalformedPayload(t *testing.T) {
	srv := newStaticServer(t)
	l := NewLoader(srv.URL)

	_, err := l.LoadTaxonomy(context.Background(), "bad.json")
	assert.ErrorIs(t, err, ErrMalformedPayload)
}
