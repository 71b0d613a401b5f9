package export

import (
	"encoding/json"
	"fmt"

	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/bsaid97/go-border-snapper/handlers"
)

// GeoJSON encodes fc as an RFC 7946 FeatureCollection. Coordinates are
// expected in WGS84 and no crs member is written.
func GeoJSON(fc handlers.FeatureCollection) ([]byte, error) {
	if fc.CRS != "" && fc.CRS != handlers.WGS84 {
		return nil, fmt.Errorf("geojson output must be %s, got %s", handlers.WGS84, fc.CRS)
	}
	out := geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(fc.Features))}
	for i, feature := range fc.Features {
		t, err := handlers.ToGeom(feature.Geom)
		if err != nil {
			return nil, fmt.Errorf("feature %d: %w", i, err)
		}
		properties := feature.Properties
		if properties == nil {
			properties = map[string]interface{}{}
		}
		out.Features = append(out.Features, &geojson.Feature{Geometry: t, Properties: properties})
	}
	return json.Marshal(&out)
}
