package loader

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/bsaid97/go-border-snapper/handlers"
	"github.com/bsaid97/go-border-snapper/logger"
)

type geojsonHeader struct {
	Type string       `json:"type"`
	CRS  *geojson.CRS `json:"crs"`
}

func loadGeoJSON(data []byte) (handlers.FeatureCollection, error) {
	var header geojsonHeader
	if err := json.Unmarshal(data, &header); err != nil {
		return handlers.FeatureCollection{}, err
	}
	fc := handlers.FeatureCollection{CRS: crsFromGeoJSON(header.CRS)}

	switch header.Type {
	case "FeatureCollection":
		var collection geojson.FeatureCollection
		if err := json.Unmarshal(data, &collection); err != nil {
			return fc, err
		}
		for i, feature := range collection.Features {
			appendFeature(&fc, i, feature.Geometry, feature.Properties)
		}
	case "Feature":
		var feature geojson.Feature
		if err := json.Unmarshal(data, &feature); err != nil {
			return fc, err
		}
		appendFeature(&fc, 0, feature.Geometry, feature.Properties)
	case "":
		return fc, fmt.Errorf("missing GeoJSON type")
	default:
		var t geom.T
		if err := geojson.Unmarshal(data, &t); err != nil {
			return fc, err
		}
		appendFeature(&fc, 0, t, nil)
	}
	return fc, nil
}

func appendFeature(fc *handlers.FeatureCollection, index int, t geom.T, properties map[string]interface{}) {
	if t == nil {
		logger.L().Debug("geojson_null_geometry", "index", index)
		return
	}
	g, err := handlers.FromGeom(t)
	if err != nil {
		logger.L().Warn("geojson_geometry_skipped", "index", index, "err", err)
		return
	}
	if properties == nil {
		properties = map[string]interface{}{}
	}
	fc.Features = append(fc.Features, handlers.GeomFeature{Geom: g, Properties: properties})
}

// crsFromGeoJSON reads a legacy named crs member. CRS84 and unknown names map
// to WGS84.
func crsFromGeoJSON(crs *geojson.CRS) handlers.CRS {
	if crs == nil || crs.Properties == nil {
		return handlers.WGS84
	}
	name, _ := crs.Properties["name"].(string)
	return normalizeCRSName(name)
}

func normalizeCRSName(name string) handlers.CRS {
	upper := strings.ToUpper(strings.TrimSpace(name))
	if upper == "" || strings.HasSuffix(upper, "CRS84") {
		return handlers.WGS84
	}
	// urn:ogc:def:crs:EPSG::3857, EPSG:3857, http://www.opengis.net/def/crs/EPSG/0/3857
	if i := strings.LastIndexAny(upper, ":/"); i >= 0 && strings.Contains(upper, "EPSG") {
		code := upper[i+1:]
		if code != "" {
			return handlers.CRS("EPSG:" + code)
		}
	}
	return handlers.WGS84
}
