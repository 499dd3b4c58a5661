// pkg/core/terrain.go
package core

import (
	"encoding/json"
	"fmt"
)

// TerrainType classifies a terrain feature.
type TerrainType string

const (
	TerrainForest   TerrainType = "FOREST"
	TerrainRoad     TerrainType = "ROAD"
	TerrainField    TerrainType = "FIELD"
	TerrainWater    TerrainType = "WATER"
	TerrainBuilding TerrainType = "BUILDING"
)

// Valid reports whether t is a known terrain type.
func (t TerrainType) Valid() bool {
	switch t {
	case TerrainForest, TerrainRoad, TerrainField, TerrainWater, TerrainBuilding:
		return true
	}
	return false
}

// UnmarshalJSON rejects unknown terrain types.
func (t *TerrainType) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("terrain type: %w", err)
	}
	if !TerrainType(raw).Valid() {
		return fmt.Errorf("terrain type: unknown value %q", raw)
	}
	*t = TerrainType(raw)
	return nil
}

// Terrain is a polygonal terrain feature.
// Vertices are local space; world space is rotate(Vertices, Degrees) + Position.
type Terrain struct {
	TerrainID   int         `json:"terrainId"`
	TerrainType TerrainType `json:"terrainType"`
	Position    Vec2        `json:"position"`
	Degrees     float64     `json:"degrees"`
	Vertices    []Vec2      `json:"vertices"`
}

// Clone returns a copy with its own vertex slice.
func (t Terrain) Clone() Terrain {
	out := t
	out.Vertices = make([]Vec2, len(t.Vertices))
	copy(out.Vertices, t.Vertices)
	return out
}

// FindTerrain returns the feature with the given id.
func FindTerrain(terrain []Terrain, terrainID int) (Terrain, bool) {
	for _, t := range terrain {
		if t.TerrainID == terrainID {
			return t, true
		}
	}
	return Terrain{}, false
}
