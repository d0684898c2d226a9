package gamemap

import (
	"github.com/gravitas-games/millworks/pkg/hexcore/hex"
)

// Terrain is the ground type of a hex.
type Terrain string

const (
	TerrainPlains   Terrain = "plains"
	TerrainForest   Terrain = "forest"
	TerrainHills    Terrain = "hills"
	TerrainWater    Terrain = "water"
	TerrainMountain Terrain = "mountain"
)

// Buildable reports whether roads and structures may be placed on the terrain.
func (t Terrain) Buildable() bool {
	return t != TerrainWater && t != TerrainMountain
}

// Hex represents a single hex cell in the world
type Hex struct {
	Pos       hex.Axial `json:"pos"`
	Terrain   Terrain   `json:"terrain"`
	Road      bool      `json:"road,omitempty"`
	Structure string    `json:"structure,omitempty"` // ID of the occupying building or warehouse
}
