package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDissolve(t *testing.T) {
	fc := collectionOf(t, WGS84,
		"POLYGON ((0 0, 1 0, 1 1, 0 1, 0 0))",
		"POLYGON ((1 0, 2 0, 2 1, 1 1, 1 0))",
		"POLYGON ((0.5 0.5, 1.5 0.5, 1.5 1.5, 0.5 1.5, 0.5 0.5))",
	)

	dissolved, err := Dissolve(fc, 0)
	require.NoError(t, err)
	require.Len(t, dissolved.Features, 1)
	assert.Equal(t, WGS84, dissolved.CRS)
	assert.Equal(t, 0, dissolved.Features[0].Properties["ref"])
	assert.Equal(t, KindPolygon, KindOf(dissolved.Features[0].Geom))
	assert.InDelta(t, 2.5, dissolved.Features[0].Geom.Area(), 1e-9)

	again, err := Dissolve(dissolved, 0)
	require.NoError(t, err)
	require.Len(t, again.Features, 1)
	assert.True(t, again.Features[0].Geom.Equals(dissolved.Features[0].Geom))
}

func TestDissolvePrecision(t *testing.T) {
	fc := collectionOf(t, "EPSG:32632",
		"POLYGON ((0.4 0.4, 100.2 0.3, 100.3 100.4, 0.2 99.8, 0.4 0.4))",
	)

	dissolved, err := Dissolve(fc, 10)
	require.NoError(t, err)
	require.Len(t, dissolved.Features, 1)
	assert.InDelta(t, 10000, dissolved.Features[0].Geom.Area(), 1e-9)
}

func TestDissolveEmpty(t *testing.T) {
	dissolved, err := Dissolve(FeatureCollection{CRS: WGS84}, 0)
	require.NoError(t, err)
	assert.Empty(t, dissolved.Features)

	_, err = Dissolve(collectionOf(t, WGS84, "LINESTRING (0 0, 1 1)"), 0)
	assert.ErrorIs(t, err, ErrNoPolygons)
}

func TestDissolveKeepsInputProperties(t *testing.T) {
	fc := collectionOf(t, WGS84, "POLYGON ((0 0, 1 0, 1 1, 0 1, 0 0))")

	dissolved, err := Dissolve(fc, 0)
	require.NoError(t, err)
	dissolved.Features[0].Properties["ref"] = 42
	assert.Equal(t, 0, fc.Features[0].Properties["ref"])
}

func TestCascadedUnion(t *testing.T) {
	_, err := CascadedUnion(nil)
	assert.Error(t, err)

	fc := collectionOf(t, WGS84,
		"POLYGON ((0 0, 1 0, 1 1, 0 1, 0 0))",
		"POLYGON ((1 0, 2 0, 2 1, 1 1, 1 0))",
		"POLYGON ((0 1, 1 1, 1 2, 0 2, 0 1))",
		"POLYGON ((5 5, 6 5, 6 6, 5 6, 5 5))",
	)
	union, err := CascadedUnion(fc.Geoms())
	require.NoError(t, err)
	assert.InDelta(t, 4, union.Area(), 1e-9)
	assert.Len(t, Parts(union), 2)

	// Inputs stay usable.
	for _, g := range fc.Geoms() {
		assert.InDelta(t, 1, g.Area(), 1e-9)
	}
}
