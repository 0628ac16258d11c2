package staticdata

import (
	"fmt"

	json "github.com/goccy/go-json"
)

// LocationTree is the bundled region/constellation/system/station tree,
// keyed by region name. Immutable after load; rebuilt only by a fresh fetch.
type LocationTree map[string]*RegionNode

// RegionNode is one region entry. The source JSON mixes the numeric
// "regionID" key with constellation names at the same level, so decoding
// separates them explicitly instead of sniffing value types.
type RegionNode struct {
	RegionID       int32
	Constellations map[string]*ConstellationNode
}

// ConstellationNode is one constellation entry, same mixed-key shape as
// RegionNode.
type ConstellationNode struct {
	ConstellationID int32
	Systems         map[string]*SystemNode
}

// SystemNode is one solar system with its stations.
type SystemNode struct {
	SystemID int64                   `json:"systemID"`
	Security float64                 `json:"security"`
	Stations map[string]*StationInfo `json:"stations"`
}

// StationInfo is one station row from the locations resource.
type StationInfo struct {
	StationID   int64  `json:"stationID"`
	StationName string `json:"stationName"`
}

// RegionInfo identifies one region for selection and display.
type RegionInfo struct {
	RegionID   int32  `json:"regionID"`
	RegionName string `json:"regionName"`
}

// RegionIndex maps region names and ids to RegionInfo. Built once per load;
// every region name maps to exactly one id for the lifetime of the session.
type RegionIndex struct {
	ByName map[string]RegionInfo
	ByID   map[int32]RegionInfo
}

// StationDetail is the display record for one station.
type StationDetail struct {
	StationName string `json:"stationName"`
	RegionID    int32  `json:"regionID"`
	RegionName  string `json:"regionName"`
	SystemName  string `json:"systemName"`
}

// StationIndex maps stationID to its display record. Never mutated after
// construction.
type StationIndex map[int64]StationDetail

// UnmarshalJSON splits the region object into its id and its constellations.
func (r *RegionNode) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.Constellations = make(map[string]*ConstellationNode, len(raw))
	for key, val := range raw {
		if key == "regionID" {
			if err := json.Unmarshal(val, &r.RegionID); err != nil {
				return fmt.Errorf("regionID: %w", err)
			}
			continue
		}
		var c ConstellationNode
		if err := json.Unmarshal(val, &c); err != nil {
			return fmt.Errorf("constellation %q: %w", key, err)
		}
		r.Constellations[key] = &c
	}
	return nil
}

// UnmarshalJSON splits the constellation object into its id and its systems.
func (c *ConstellationNode) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	c.Systems = make(map[string]*SystemNode, len(raw))
	for key, val := range raw {
		if key == "constellationID" {
			if err := json.Unmarshal(val, &c.ConstellationID); err != nil {
				return fmt.Errorf("constellationID: %w", err)
			}
			continue
		}
		var s SystemNode
		if err := json.Unmarshal(val, &s); err != nil {
			return fmt.Errorf("system %q: %w", key, err)
		}
		c.Systems[key] = &s
	}
	return nil
}

// BuildLocationIndex derives the flat region and station lookups from the
// location tree in a single traversal.
func BuildLocationIndex(tree LocationTree) (*RegionIndex, StationIndex) {
	regions := &RegionIndex{
		ByName: make(map[string]RegionInfo, len(tree)),
		ByID:   make(map[int32]RegionInfo, len(tree)),
	}
	stations := make(StationIndex)

	for regionName, region := range tree {
		info := RegionInfo{RegionID: region.RegionID, RegionName: regionName}
		regions.ByName[regionName] = info
		regions.ByID[region.RegionID] = info

		for _, constellation := range region.Constellations {
			for systemName, system := range constellation.Systems {
				for _, st := range system.Stations {
					stations[st.StationID] = StationDetail{
						StationName: st.StationName,
						RegionID:    region.RegionID,
						RegionName:  regionName,
						SystemName:  systemName,
					}
				}
			}
		}
	}
	return regions, stations
}
