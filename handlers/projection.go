package handlers

import (
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geos"
	"github.com/twpayne/go-proj/v10"

	"github.com/bsaid97/go-border-snapper/logger"
)

// SelectProjection picks the UTM zone of the centroid of g (EPSG:326zz north,
// EPSG:327zz south). g must be in geographic coordinates. Empty geometries and
// failing centroids fall back to Web Mercator.
func SelectProjection(g *geos.Geom) CRS {
	lon, lat, err := centroidLonLat(g)
	if err != nil {
		logger.L().Debug("projection_fallback", "crs", WebMercator, "err", err)
		return WebMercator
	}
	return utmZoneCRS(lon, lat)
}

func utmZoneCRS(lon, lat float64) CRS {
	zone := int(math.Floor((lon+180)/6)) + 1
	zone = min(max(zone, 1), 60)
	if lat >= 0 {
		return CRS(fmt.Sprintf("EPSG:%d", 32600+zone))
	}
	return CRS(fmt.Sprintf("EPSG:%d", 32700+zone))
}

func centroidLonLat(g *geos.Geom) (lon, lat float64, err error) {
	if isEmpty(g) {
		return 0, 0, fmt.Errorf("empty geometry has no centroid")
	}
	centroid, err := safe("centroid", g.Centroid)
	if err != nil {
		return 0, 0, err
	}
	if centroid.IsEmpty() {
		return 0, 0, fmt.Errorf("empty centroid")
	}
	lon, lat = centroid.X(), centroid.Y()
	if math.IsNaN(lon) || math.IsNaN(lat) {
		return 0, 0, fmt.Errorf("centroid is not a number")
	}
	return lon, lat, nil
}

var transformers sync.Map // "from>to" -> *proj.PJ

func transformer(from, to CRS) (*proj.PJ, error) {
	key := string(from) + ">" + string(to)
	if pj, ok := transformers.Load(key); ok {
		return pj.(*proj.PJ), nil
	}
	pj, err := proj.NewCRSToCRS(string(from), string(to), nil)
	if err != nil {
		return nil, fmt.Errorf("create transformation %s: %w", key, err)
	}
	// Geographic CRSs are defined lat/lon; everything here is lon/lat.
	normalized, err := pj.NormalizeForVisualization()
	if err != nil {
		return nil, fmt.Errorf("normalize transformation %s: %w", key, err)
	}
	actual, _ := transformers.LoadOrStore(key, normalized)
	return actual.(*proj.PJ), nil
}

// IdentifyCRS turns a CRS definition (authority code, PROJ string or WKT as
// found in a .prj file) into a CRS usable by Reproject. Geographic WGS 84
// definitions map onto WGS84; an empty definition is read as WGS84.
func IdentifyCRS(definition string) (CRS, error) {
	definition = strings.TrimSpace(strings.TrimPrefix(definition, "\ufeff"))
	if definition == "" || isGeographicWGS84(definition) {
		return WGS84, nil
	}
	crs := CRS(definition)
	if _, err := transformer(crs, WGS84); err != nil {
		return "", fmt.Errorf("unknown CRS: %w", err)
	}
	return crs, nil
}

func isGeographicWGS84(definition string) bool {
	upper := strings.ToUpper(definition)
	if upper == string(WGS84) || upper == "OGC:CRS84" {
		return true
	}
	if !strings.HasPrefix(upper, "GEOGCS[") && !strings.HasPrefix(upper, "GEOGCRS[") {
		return false
	}
	return strings.Contains(upper, "WGS_1984") || strings.Contains(upper, "WGS 84")
}

// Reproject returns a copy of g expressed in the to CRS.
// An empty CRS is read as WGS84.
func Reproject(g *geos.Geom, from, to CRS) (*geos.Geom, error) {
	if from == "" {
		from = WGS84
	}
	if to == "" {
		to = WGS84
	}
	if isEmpty(g) || from == to {
		return g, nil
	}
	pj, err := transformer(from, to)
	if err != nil {
		return nil, err
	}
	t, err := ToGeom(g)
	if err != nil {
		return nil, err
	}
	if err := transformFlatCoords(pj, t); err != nil {
		return nil, err
	}
	return FromGeom(t)
}

// transformFlatCoords transforms the XY of t in place; Z and M are left alone.
func transformFlatCoords(pj *proj.PJ, t geom.T) error {
	if err := pj.ForwardFlatCoords(t.FlatCoords(), t.Stride(), -1, -1); err != nil {
		return fmt.Errorf("transform coordinates: %w", err)
	}
	return nil
}

// ReprojectCollection reprojects every feature; features that fail are dropped
// and counted.
func ReprojectCollection(fc FeatureCollection, to CRS) (FeatureCollection, int) {
	out := FeatureCollection{CRS: to, Features: make([]GeomFeature, 0, len(fc.Features))}
	failed := 0
	for _, feature := range fc.Features {
		projected, err := Reproject(feature.Geom, fc.CRS, to)
		if err != nil {
			failed++
			logger.L().Warn("reproject_feature_failed", "from", fc.CRS, "to", to, "err", err)
			continue
		}
		out.Features = append(out.Features, GeomFeature{Geom: projected, Properties: feature.Properties})
	}
	return out, failed
}
