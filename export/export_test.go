package export

import (
	"archive/zip"
	"bytes"
	"errors"
	"regexp"
	"sort"
	"strings"
	"testing"

	"github.com/paulmach/orb"
	orbgeojson "github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geos"

	"github.com/bsaid97/go-border-snapper/handlers"
)

func resultCollection(t *testing.T, wkts ...string) handlers.FeatureCollection {
	t.Helper()
	fc := handlers.FeatureCollection{CRS: handlers.WGS84}
	for _, wkt := range wkts {
		g, err := geos.NewGeomFromWKT(wkt)
		require.NoError(t, err)
		fc.Features = append(fc.Features, handlers.GeomFeature{
			Geom:       g,
			Properties: map[string]interface{}{"country": "KEN", "level": 1, "run_id": "abc"},
		})
	}
	return fc
}

const (
	nairobi = "POLYGON ((36.66 -1.44, 37.1 -1.44, 37.1 -1.16, 36.66 -1.16, 36.66 -1.44), (36.8 -1.3, 36.8 -1.25, 36.9 -1.25, 36.9 -1.3, 36.8 -1.3))"
	islands = "MULTIPOLYGON (((39.6 -4.1, 39.7 -4.1, 39.7 -4.0, 39.6 -4.0, 39.6 -4.1)), ((40.8 -2.3, 40.95 -2.3, 40.95 -2.2, 40.8 -2.2, 40.8 -2.3)))"
)

func TestGeoJSONPreservesArea(t *testing.T) {
	fc := resultCollection(t, nairobi, islands)

	data, err := GeoJSON(fc)
	require.NoError(t, err)
	assert.NotContains(t, string(data), `"crs"`)

	decoded, err := orbgeojson.UnmarshalFeatureCollection(data)
	require.NoError(t, err)
	require.Len(t, decoded.Features, 2)

	for i, feature := range decoded.Features {
		want := fc.Features[i].Geom.Area()
		got := planar.Area(feature.Geometry)
		assert.InEpsilon(t, want, got, 1e-4, "feature %d", i)
		assert.Equal(t, "KEN", feature.Properties["country"])
	}
	_, isPolygon := decoded.Features[0].Geometry.(orb.Polygon)
	assert.True(t, isPolygon)
	_, isMultiPolygon := decoded.Features[1].Geometry.(orb.MultiPolygon)
	assert.True(t, isMultiPolygon)
}

func TestGeoJSONRejectsProjected(t *testing.T) {
	fc := resultCollection(t, nairobi)
	fc.CRS = "EPSG:32737"
	_, err := GeoJSON(fc)
	assert.Error(t, err)
}

var kmlCoordinate = regexp.MustCompile(`^-?\d+(\.\d+)?,-?\d+(\.\d+)?,0$`)

func TestKML(t *testing.T) {
	data, err := KML(resultCollection(t, nairobi, islands), "KEN_adm1")
	require.NoError(t, err)
	doc := string(data)

	assert.Equal(t, 3, strings.Count(doc, "<Placemark>"))
	assert.Contains(t, doc, "<name>KEN_adm1</name>")
	assert.Contains(t, doc, "<name>KEN_adm1 3</name>")
	// Holes are not written.
	assert.NotContains(t, doc, "innerBoundaryIs")

	coordinates := regexp.MustCompile(`(?s)<coordinates>(.*?)</coordinates>`).FindAllStringSubmatch(doc, -1)
	require.Len(t, coordinates, 3)
	for _, match := range coordinates {
		for _, tuple := range strings.Fields(match[1]) {
			assert.Regexp(t, kmlCoordinate, tuple)
		}
	}
	assert.Contains(t, coordinates[0][1], "36.66,-1.44,0")
}

func TestShapefileZip(t *testing.T) {
	data, err := ShapefileZip(resultCollection(t, nairobi), "KEN adm1.zip")
	require.NoError(t, err)

	archive, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	var names []string
	for _, f := range archive.File {
		names = append(names, f.Name)
	}
	sort.Strings(names)
	assert.Equal(t, []string{"KEN_adm1.dbf", "KEN_adm1.prj", "KEN_adm1.shp", "KEN_adm1.shx"}, names)

	_, err = ShapefileZip(handlers.FeatureCollection{CRS: handlers.WGS84}, "empty")
	assert.Error(t, err)
}

func TestFieldsFromProperties(t *testing.T) {
	fields, keys := fieldsFromProperties(map[string]interface{}{
		"administrative_name": "Nairobi",
		"administrative_code": "KE-30",
		"population":          4397073,
		"area_km2":            696.1,
	})
	assert.Equal(t, []string{"administrative_code", "area_km2", "population"}, keys)
	require.Len(t, fields, 3)
	assert.Equal(t, "administra", fields[0].String())
	assert.Equal(t, byte('F'), fields[1].Fieldtype)
	assert.Equal(t, byte('N'), fields[2].Fieldtype)

	fields, keys = fieldsFromProperties(nil)
	require.Len(t, fields, 1)
	assert.Equal(t, "ID", fields[0].String())
	assert.Equal(t, []string{""}, keys)
}

func TestParseFormat(t *testing.T) {
	var tests = []struct {
		name    string
		format  Format
		wantErr bool
	}{
		0: {name: "GeoJSON", format: FormatGeoJSON},
		1: {name: "json", format: FormatGeoJSON},
		2: {name: "kml", format: FormatKML},
		3: {name: "shp", format: FormatShapefile},
		4: {name: "zip", format: FormatShapefile},
		5: {name: "gpx", wantErr: true},
	}

	for k, test := range tests {
		format, err := ParseFormat(test.name)
		if test.wantErr {
			assert.ErrorIs(t, err, ErrUnknownFormat, "test %d", k)
			continue
		}
		assert.NoError(t, err, "test %d", k)
		assert.Equal(t, test.format, format, "test %d", k)
		assert.NotEmpty(t, format.ContentType())
		assert.True(t, strings.HasPrefix(format.Extension(), "."))
	}
}

func TestAllIsolatesFailures(t *testing.T) {
	fc := resultCollection(t, nairobi)
	// A line cannot be written as a polygon shapefile or KML part, but GeoJSON
	// takes any geometry.
	line, err := geos.NewGeomFromWKT("LINESTRING (36 -1, 37 -1)")
	require.NoError(t, err)
	fc.Features = append(fc.Features, handlers.GeomFeature{Geom: line})

	outputs := All(fc, "mixed")
	assert.Contains(t, outputs.Files, FormatGeoJSON)
	assert.Contains(t, outputs.Files, FormatKML)
	assert.Contains(t, outputs.Errors, FormatShapefile)

	var formatErr *FormatError
	require.True(t, errors.As(outputs.Err(), &formatErr))
	assert.Equal(t, FormatShapefile, formatErr.Format)
}

func TestAllSucceeds(t *testing.T) {
	outputs := All(resultCollection(t, nairobi), "KEN_adm1")
	assert.Len(t, outputs.Files, len(Formats))
	assert.Empty(t, outputs.Errors)
	assert.NoError(t, outputs.Err())
}
