package utils

import (
	"fmt"
	"math"
	"sort"

	"github.com/twpayne/go-geos"
)

// SpatialIndex is a uniform grid over geometry envelopes. It only answers
// envelope queries; exact predicates are left to the caller.
type SpatialIndex struct {
	geometries []*IndexedGeometry
	cellSize   float64
	grid       map[string][]*IndexedGeometry
}

type IndexedGeometry struct {
	Geom  *geos.Geom
	Index int
}

func NewSpatialIndex(cellSize float64) *SpatialIndex {
	if cellSize <= 0 || math.IsNaN(cellSize) || math.IsInf(cellSize, 0) {
		cellSize = 1
	}
	return &SpatialIndex{
		geometries: make([]*IndexedGeometry, 0),
		cellSize:   cellSize,
		grid:       make(map[string][]*IndexedGeometry),
	}
}

// CellSizeFor picks a cell size so that the combined envelope of geoms spans
// roughly cellsPerSide cells, never smaller than minSize.
func CellSizeFor(geoms []*geos.Geom, cellsPerSide int, minSize float64) float64 {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, g := range geoms {
		if g == nil || g.IsEmpty() {
			continue
		}
		b := g.Bounds()
		minX, minY = math.Min(minX, b.MinX), math.Min(minY, b.MinY)
		maxX, maxY = math.Max(maxX, b.MaxX), math.Max(maxY, b.MaxY)
	}
	if math.IsInf(minX, 0) || cellsPerSide <= 0 {
		return minSize
	}
	size := math.Max(maxX-minX, maxY-minY) / float64(cellsPerSide)
	return math.Max(size, minSize)
}

func (si *SpatialIndex) Len() int {
	return len(si.geometries)
}

func (si *SpatialIndex) AddGeometry(geom *geos.Geom, index int) error {
	if geom == nil || geom.IsEmpty() {
		return fmt.Errorf("empty geometry at index %d", index)
	}

	indexedGeom := &IndexedGeometry{
		Geom:  geom,
		Index: index,
	}

	si.geometries = append(si.geometries, indexedGeom)
	si.addToGrid(indexedGeom)
	return nil
}

func (si *SpatialIndex) addToGrid(indexedGeom *IndexedGeometry) {
	bounds := indexedGeom.Geom.Bounds()
	minCellX, minCellY, maxCellX, maxCellY := si.cellRange(bounds.MinX, bounds.MinY, bounds.MaxX, bounds.MaxY)

	for x := minCellX; x <= maxCellX; x++ {
		for y := minCellY; y <= maxCellY; y++ {
			cellKey := getCellKey(x, y)
			si.grid[cellKey] = append(si.grid[cellKey], indexedGeom)
		}
	}
}

// Query returns the indexed geometries whose envelope may intersect the
// envelope of geom, ordered by insertion index.
func (si *SpatialIndex) Query(geom *geos.Geom) []*IndexedGeometry {
	if geom == nil || geom.IsEmpty() {
		return nil
	}
	bounds := geom.Bounds()
	minCellX, minCellY, maxCellX, maxCellY := si.cellRange(bounds.MinX, bounds.MinY, bounds.MaxX, bounds.MaxY)

	// Degenerate queries covering a huge cell range scan everything instead.
	if float64(maxCellX-minCellX+1)*float64(maxCellY-minCellY+1) > float64(4*len(si.grid)+16) {
		return si.filterEnvelope(si.geometries, bounds)
	}

	candidates := make(map[int]*IndexedGeometry)
	for x := minCellX; x <= maxCellX; x++ {
		for y := minCellY; y <= maxCellY; y++ {
			for _, candidate := range si.grid[getCellKey(x, y)] {
				candidates[candidate.Index] = candidate
			}
		}
	}

	found := make([]*IndexedGeometry, 0, len(candidates))
	for _, candidate := range candidates {
		found = append(found, candidate)
	}
	return si.filterEnvelope(found, bounds)
}

func (si *SpatialIndex) filterEnvelope(geoms []*IndexedGeometry, bounds *geos.Box2D) []*IndexedGeometry {
	out := make([]*IndexedGeometry, 0, len(geoms))
	for _, candidate := range geoms {
		b := candidate.Geom.Bounds()
		if b.MaxX < bounds.MinX || b.MinX > bounds.MaxX || b.MaxY < bounds.MinY || b.MinY > bounds.MaxY {
			continue
		}
		out = append(out, candidate)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

func (si *SpatialIndex) cellRange(minX, minY, maxX, maxY float64) (int, int, int, int) {
	return int(math.Floor(minX / si.cellSize)),
		int(math.Floor(minY / si.cellSize)),
		int(math.Floor(maxX / si.cellSize)),
		int(math.Floor(maxY / si.cellSize))
}

func getCellKey(x, y int) string {
	return fmt.Sprintf("%d,%d", x, y)
}

// CalculateWGS84ToleranceFromMeters converts meters to WGS84 degrees
// For WGS84, 1 degree ≈ 111,000 meters at the equator
func CalculateWGS84ToleranceFromMeters(meters float64) float64 {
	const metersPerDegree = 111000.0
	return meters / metersPerDegree
}
