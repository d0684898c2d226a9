package gamemap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gravitas-games/millworks/pkg/hexcore/hex"
	"github.com/gravitas-games/millworks/pkg/hexcore/path"
	"github.com/gravitas-games/millworks/pkg/logistics"
)

var (
	_ path.Graph     = (*GameMap)(nil)
	_ logistics.Grid = (*GameMap)(nil)
)

func TestNew_DiskSize(t *testing.T) {
	gm, err := New(3)
	require.NoError(t, err)

	assert.Equal(t, 37, gm.HexCount())
	assert.True(t, gm.InBounds(hex.Axial{Q: 3, R: -3}))
	assert.False(t, gm.InBounds(hex.Axial{Q: 4, R: 0}))

	_, err = New(-1)
	assert.Error(t, err)
}

func TestRoads_GraphView(t *testing.T) {
	gm, err := New(5)
	require.NoError(t, err)

	require.NoError(t, gm.BuildRoad(hex.Axial{Q: 0, R: 0}, hex.Axial{Q: 1, R: 0}, hex.Axial{Q: 2, R: 0}))
	assert.True(t, gm.Contains(hex.Axial{Q: 1, R: 0}))
	assert.Equal(t, []hex.Axial{{Q: 2, R: 0}, {Q: 0, R: 0}}, gm.Neighbors(hex.Axial{Q: 1, R: 0}))

	dist := path.MultiSourceDistances([]hex.Axial{{Q: 0, R: 0}}, 10, gm)
	assert.Equal(t, 2, dist[hex.Axial{Q: 2, R: 0}])

	assert.Equal(t, 1, gm.RemoveRoad(hex.Axial{Q: 1, R: 0}, hex.Axial{Q: 4, R: 0}))
	assert.False(t, gm.Contains(hex.Axial{Q: 1, R: 0}))
	assert.Len(t, gm.Roads(), 2)
}

func TestBuildRoad_AllOrNothing(t *testing.T) {
	gm, err := New(2)
	require.NoError(t, err)

	err = gm.BuildRoad(hex.Axial{Q: 0, R: 0}, hex.Axial{Q: 9, R: 9})
	assert.ErrorIs(t, err, ErrOutOfBounds)
	assert.Empty(t, gm.Roads())

	require.NoError(t, gm.SetTerrain(hex.Axial{Q: 1, R: 0}, TerrainWater))
	err = gm.BuildRoad(hex.Axial{Q: 1, R: 0})
	assert.ErrorIs(t, err, ErrOccupied)
}

func TestStructures_Footprint(t *testing.T) {
	gm, err := New(4)
	require.NoError(t, err)

	root := hex.Axial{Q: 0, R: 0}
	fp := hex.Footprint{{Q: 0, R: 0}, {Q: 1, R: 0}}
	require.NoError(t, gm.PlaceStructure("sawmill-1", root, fp))

	assert.Equal(t, []hex.Axial{{Q: 0, R: 0}, {Q: 1, R: 0}}, gm.Footprint(root))
	id, ok := gm.StructureAt(hex.Axial{Q: 1, R: 0})
	assert.True(t, ok)
	assert.Equal(t, "sawmill-1", id)

	assert.ErrorIs(t, gm.PlaceStructure("other", hex.Axial{Q: 1, R: 0}, nil), ErrOccupied)
	assert.ErrorIs(t, gm.BuildRoad(hex.Axial{Q: 1, R: 0}), ErrOccupied)

	require.NoError(t, gm.BuildRoad(hex.Axial{Q: 0, R: 1}))
	assert.ErrorIs(t, gm.PlaceStructure("on-road", hex.Axial{Q: 0, R: 1}, nil), ErrOccupied)

	removed, err := gm.RemoveStructure(root)
	require.NoError(t, err)
	assert.Equal(t, "sawmill-1", removed)
	assert.Nil(t, gm.Footprint(root))
	assert.Zero(t, gm.StructureCount())

	_, err = gm.RemoveStructure(root)
	assert.ErrorIs(t, err, ErrNoStructure)
}

func TestAccessPointsOverMap(t *testing.T) {
	gm, err := New(6)
	require.NoError(t, err)

	root := hex.Axial{Q: 0, R: 0}
	require.NoError(t, gm.PlaceStructure("b", root, hex.Footprint{{Q: 0, R: 0}, {Q: 1, R: 0}}))
	require.NoError(t, gm.BuildRoad(hex.Axial{Q: 2, R: 0}, hex.Axial{Q: 3, R: 0}, hex.Axial{Q: -1, R: 0}))

	access := logistics.FindAccessPoints(root, gm, gm)
	assert.Equal(t, []hex.Axial{{Q: -1, R: 0}, {Q: 2, R: 0}}, access)
}
