package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUTMZoneCRS(t *testing.T) {
	var tests = []struct {
		lon, lat float64
		crs      CRS
	}{
		0: {lon: 10, lat: 50, crs: "EPSG:32632"},
		1: {lon: -74, lat: 40.7, crs: "EPSG:32618"},
		2: {lon: 151.2, lat: -33.9, crs: "EPSG:32756"},
		3: {lon: 180, lat: 0, crs: "EPSG:32660"},
		4: {lon: -180, lat: -10, crs: "EPSG:32701"},
	}

	for k, test := range tests {
		assert.Equal(t, test.crs, utmZoneCRS(test.lon, test.lat), "test %d", k)
	}
}

func TestSelectProjection(t *testing.T) {
	assert.Equal(t, CRS("EPSG:32632"), SelectProjection(mustWKT(t, "POLYGON ((9 49, 11 49, 11 51, 9 51, 9 49))")))
	assert.Equal(t, WebMercator, SelectProjection(mustWKT(t, "POLYGON EMPTY")))
	assert.Equal(t, WebMercator, SelectProjection(nil))
}

func TestReprojectRoundTrip(t *testing.T) {
	g := mustWKT(t, "POLYGON ((10 50, 10.1 50, 10.1 50.1, 10 50.1, 10 50))")

	projected, err := Reproject(g, WGS84, "EPSG:32632")
	require.NoError(t, err)
	// A 0.1 degree square at 50N is roughly 7 by 11 km.
	assert.InDelta(t, 7.9e7, projected.Area(), 0.5e7)
	assert.Greater(t, projected.Bounds().MinX, 100000.0)

	back, err := Reproject(projected, "EPSG:32632", WGS84)
	require.NoError(t, err)
	assert.Less(t, back.HausdorffDistance(g), 1e-9)
}

func TestReprojectNoop(t *testing.T) {
	g := mustWKT(t, "POLYGON ((10 50, 10.1 50, 10.1 50.1, 10 50.1, 10 50))")

	same, err := Reproject(g, "", WGS84)
	require.NoError(t, err)
	assert.Same(t, g, same)

	_, err = Reproject(g, "EPSG:not-a-code", WGS84)
	assert.Error(t, err)
}

func TestReprojectCollection(t *testing.T) {
	fc := collectionOf(t, WGS84, "POLYGON ((10 50, 10.1 50, 10.1 50.1, 10 50.1, 10 50))")

	projected, failed := ReprojectCollection(fc, WebMercator)
	assert.Equal(t, 0, failed)
	assert.Equal(t, WebMercator, projected.CRS)
	require.Len(t, projected.Features, 1)
	assert.Equal(t, 0, projected.Features[0].Properties["ref"])
	assert.Greater(t, projected.Features[0].Geom.Bounds().MinX, 1e6)
}
