package handlers

import (
	"errors"
	"fmt"

	"github.com/twpayne/go-geos"
)

// CRS identifies a coordinate reference system, e.g. "EPSG:4326".
type CRS string

const (
	// WGS84 is the geographic CRS every final result is expressed in.
	WGS84 CRS = "EPSG:4326"
	// WebMercator is the global metric fallback projection.
	WebMercator CRS = "EPSG:3857"
)

var (
	ErrEmptyInput    = errors.New("input contains no features")
	ErrNoPolygons    = errors.New("no polygon geometries found in input")
	ErrEmptyBoundary = errors.New("boundary collection is empty")
)

type GeomFeature struct {
	Geom       *geos.Geom
	Properties map[string]interface{}
}

// FeatureCollection is an ordered set of features sharing one CRS.
type FeatureCollection struct {
	CRS      CRS
	Features []GeomFeature
}

func (fc FeatureCollection) Len() int {
	return len(fc.Features)
}

// Geoms returns the non-nil geometries of the collection in order.
func (fc FeatureCollection) Geoms() []*geos.Geom {
	geoms := make([]*geos.Geom, 0, len(fc.Features))
	for _, feature := range fc.Features {
		if feature.Geom != nil {
			geoms = append(geoms, feature.Geom)
		}
	}
	return geoms
}

// PolygonKind is the tagged variant of polygonal geometries the engine works with.
type PolygonKind int

const (
	KindNone PolygonKind = iota
	KindPolygon
	KindMultiPolygon
)

func KindOf(g *geos.Geom) PolygonKind {
	if g == nil || g.IsEmpty() {
		return KindNone
	}
	switch g.TypeID() {
	case geos.TypeIDPolygon:
		return KindPolygon
	case geos.TypeIDMultiPolygon:
		return KindMultiPolygon
	default:
		return KindNone
	}
}

// Parts returns every polygon of g. Collections are searched recursively so
// that the polygonal output of make-valid can be recovered.
func Parts(g *geos.Geom) []*geos.Geom {
	if g == nil || g.IsEmpty() {
		return nil
	}
	switch g.TypeID() {
	case geos.TypeIDPolygon:
		return []*geos.Geom{g}
	case geos.TypeIDMultiPolygon, geos.TypeIDGeometryCollection:
		parts := make([]*geos.Geom, 0, g.NumGeometries())
		for i := range g.NumGeometries() {
			parts = append(parts, Parts(g.Geometry(i))...)
		}
		return parts
	default:
		return nil
	}
}

// LargestPolygon returns a copy of the polygon of g with the largest area.
func LargestPolygon(g *geos.Geom) *geos.Geom {
	var largest *geos.Geom
	largestArea := -1.0
	for _, part := range Parts(g) {
		if area := part.Area(); area > largestArea {
			largest, largestArea = part, area
		}
	}
	if largest == nil {
		return nil
	}
	return largest.Clone()
}

// PolygonFeatures keeps the features whose geometry has at least one polygon.
func PolygonFeatures(fc FeatureCollection) (FeatureCollection, error) {
	if len(fc.Features) == 0 {
		return fc, ErrEmptyInput
	}
	out := FeatureCollection{CRS: fc.CRS}
	for _, feature := range fc.Features {
		parts := Parts(feature.Geom)
		if len(parts) == 0 {
			continue
		}
		out.Features = append(out.Features, GeomFeature{
			Geom:       multiPolygonOf(parts),
			Properties: feature.Properties,
		})
	}
	if len(out.Features) == 0 {
		return out, ErrNoPolygons
	}
	return out, nil
}

// multiPolygonOf builds a Polygon (one part) or MultiPolygon from copies of parts.
func multiPolygonOf(parts []*geos.Geom) *geos.Geom {
	switch len(parts) {
	case 0:
		return emptyPolygon()
	case 1:
		return parts[0].Clone()
	}
	clones := make([]*geos.Geom, len(parts))
	for i, part := range parts {
		clones[i] = part.Clone()
	}
	return geos.NewCollection(geos.TypeIDMultiPolygon, clones)
}

func emptyPolygon() *geos.Geom {
	g, err := geos.NewGeomFromWKT("MULTIPOLYGON EMPTY")
	if err != nil {
		panic(err)
	}
	return g
}

// isEmpty also treats a geometry GEOS cannot inspect as empty.
func isEmpty(g *geos.Geom) (empty bool) {
	if g == nil {
		return true
	}
	defer func() {
		if r := recover(); r != nil {
			empty = true
		}
	}()
	return g.IsEmpty()
}

// checkValid is IsValid with GEOS exceptions returned as errors.
func checkValid(g *geos.Geom) (valid bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			valid, err = false, fmt.Errorf("validity check: %v", r)
		}
	}()
	return g.IsValid(), nil
}

// safe runs a GEOS operation and turns a GEOS panic or a nil result into an error.
func safe(op string, f func() *geos.Geom) (result *geos.Geom, err error) {
	defer func() {
		if r := recover(); r != nil {
			result, err = nil, fmt.Errorf("%s: %v", op, r)
		}
	}()
	result = f()
	if result == nil {
		return nil, fmt.Errorf("%s: no geometry returned", op)
	}
	return result, nil
}
