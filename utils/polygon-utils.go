package utils

import (
	"fmt"
	"math"

	"github.com/twpayne/go-geos"
)

type routineResult struct {
	Result *geos.Geom
	Index  int
}

// QuantizeFullGeometry snaps every coordinate of a polygonal geometry to the
// nearest multiple of gridSize. Rings that collapse below four coordinates are
// dropped; interior rings that become invalid are dropped as well.
func QuantizeFullGeometry(feature *geos.Geom, gridSize float64) (*geos.Geom, error) {
	if feature == nil {
		return nil, fmt.Errorf(`geometry is nil`)
	}
	if gridSize <= 0 {
		return nil, fmt.Errorf("grid size must be positive, got %v", gridSize)
	}

	var singles []*geos.Geom
	switch feature.TypeID() {
	case geos.TypeIDPolygon:
		singles = append(singles, feature)
	case geos.TypeIDMultiPolygon:
		for i := range feature.NumGeometries() {
			singles = append(singles, feature.Geometry(i))
		}
	default:
		return nil, fmt.Errorf("unsupported geometry type %v", feature.TypeID())
	}

	polygons := make(chan routineResult, len(singles))
	for i, polygon := range singles {
		go func(polygon *geos.Geom, index int) {
			polygons <- routineResult{Result: QuantizeSinglePolygon(polygon, gridSize), Index: index}
		}(polygon, i)
	}

	newPolygons := make([]*geos.Geom, len(singles))
	for range singles {
		res := <-polygons
		newPolygons[res.Index] = res.Result
	}

	kept := newPolygons[:0]
	for _, polygon := range newPolygons {
		if polygon != nil {
			kept = append(kept, polygon)
		}
	}
	switch len(kept) {
	case 0:
		return nil, fmt.Errorf("geometry collapsed on a %v grid", gridSize)
	case 1:
		return kept[0], nil
	}
	return geos.NewCollection(geos.TypeIDMultiPolygon, kept), nil
}

// QuantizeSinglePolygon returns a new polygon with quantized coordinates, or
// nil when the exterior ring collapses.
func QuantizeSinglePolygon(polygon *geos.Geom, gridSize float64) *geos.Geom {
	exterior := polygon.ExteriorRing()
	if exterior == nil {
		return nil
	}
	outerRing := quantizeRing(exterior.CoordSeq(), gridSize)
	if len(outerRing) < 4 {
		return nil
	}
	rings := [][][]float64{outerRing}

	for r := range polygon.NumInteriorRings() {
		ringCoords := quantizeRing(polygon.InteriorRing(r).CoordSeq(), gridSize)
		if len(ringCoords) < 4 {
			continue
		}
		testPolygon := geos.NewPolygon([][][]float64{ringCoords})
		if testPolygon.IsValid() && testPolygon.Area() > 0 {
			rings = append(rings, ringCoords)
		}
	}

	return geos.NewPolygon(rings)
}

// quantizeRing rounds the ring onto the grid and removes the consecutive
// duplicates that rounding produces.
func quantizeRing(seq *geos.CoordSeq, gridSize float64) [][]float64 {
	ring := make([][]float64, 0, seq.Size())
	for j := range seq.Size() {
		x, y := QuantizeCoordinates(seq.X(j), seq.Y(j), gridSize)
		if n := len(ring); n > 0 && ring[n-1][0] == x && ring[n-1][1] == y {
			continue
		}
		ring = append(ring, []float64{x, y})
	}
	if n := len(ring); n > 1 && (ring[0][0] != ring[n-1][0] || ring[0][1] != ring[n-1][1]) {
		ring = append(ring, []float64{ring[0][0], ring[0][1]})
	}
	return ring
}

func QuantizeCoordinates(x float64, y float64, gridSize float64) (float64, float64) {
	return roundToGrid(x, gridSize), roundToGrid(y, gridSize)
}

func roundToGrid(val float64, gridSize float64) float64 {
	return math.Round(val/gridSize) * gridSize
}
