package handlers

import (
	"math"

	"github.com/golang/geo/s2"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geos"

	"github.com/bsaid97/go-border-snapper/logger"
)

const earthRadiusKm = 6371.0088

// Report describes one reconciliation run. It is diagnostic only.
type Report struct {
	RunID             string           `json:"run_id"`
	Projection        CRS              `json:"projection"`
	ToleranceM        float64          `json:"tolerance_m"`
	ToleranceUsedM    float64          `json:"tolerance_used_m"`
	IslandRadiusM     float64          `json:"island_radius_m"`
	IslandsIncluded   bool             `json:"islands_included"`
	IslandParts       int              `json:"island_parts"`
	SimplifyM         float64          `json:"simplify_m"`
	PrecisionGridM    float64          `json:"precision_grid_m"`
	SearchRadiusM     float64          `json:"search_radius_m"`
	Contiguity        ContiguityPolicy `json:"contiguity"`
	MatchStrategy     MatchStrategy    `json:"match_strategy,omitempty"`
	InputFeatures     int              `json:"input_features"`
	BoundaryFeatures  int              `json:"boundary_features"`
	CandidateFeatures int              `json:"candidate_features"`
	SubjectVertices   int              `json:"subject_vertices"`
	SnappedVertices   int              `json:"snapped_vertices"`
	ResultVertices    int              `json:"result_vertices"`
	ResultParts       int              `json:"result_parts"`
	AreaKm2           float64          `json:"area_km2"`
	AreaChangeRatio   float64          `json:"area_change_ratio"`
	HausdorffM        float64          `json:"hausdorff_m"`
	SnapFallback      bool             `json:"snap_fallback"`
	ClipFallback      bool             `json:"clip_fallback"`
	EmptyResult       bool             `json:"empty_result"`
	DurationMs        int64            `json:"duration_ms"`
}

// Map flattens the report for display or logging.
func (r Report) Map() map[string]interface{} {
	return map[string]interface{}{
		"run_id":             r.RunID,
		"projection":         string(r.Projection),
		"tolerance_m":        r.ToleranceM,
		"tolerance_used_m":   r.ToleranceUsedM,
		"island_radius_m":    r.IslandRadiusM,
		"islands_included":   r.IslandsIncluded,
		"island_parts":       r.IslandParts,
		"simplify_m":         r.SimplifyM,
		"precision_grid_m":   r.PrecisionGridM,
		"search_radius_m":    r.SearchRadiusM,
		"contiguity":         string(r.Contiguity),
		"match_strategy":     string(r.MatchStrategy),
		"input_features":     r.InputFeatures,
		"boundary_features":  r.BoundaryFeatures,
		"candidate_features": r.CandidateFeatures,
		"subject_vertices":   r.SubjectVertices,
		"snapped_vertices":   r.SnappedVertices,
		"result_vertices":    r.ResultVertices,
		"result_parts":       r.ResultParts,
		"area_km2":           r.AreaKm2,
		"area_change_ratio":  r.AreaChangeRatio,
		"hausdorff_m":        r.HausdorffM,
		"snap_fallback":      r.SnapFallback,
		"clip_fallback":      r.ClipFallback,
		"empty_result":       r.EmptyResult,
		"duration_ms":        r.DurationMs,
	}
}

// WithMatch returns a copy of r carrying the matcher outcome.
func (r Report) WithMatch(boundaryFeatures int, strategy MatchStrategy) Report {
	r.BoundaryFeatures = boundaryFeatures
	r.MatchStrategy = strategy
	return r
}

// VertexCount counts the coordinates of g, closing vertices included.
func VertexCount(g *geos.Geom) int {
	t, err := decode(g)
	if err != nil {
		return 0
	}
	return len(t.FlatCoords()) / t.Stride()
}

// VerticesOnLinework counts the vertices of g lying within eps of lines.
func VerticesOnLinework(g, lines *geos.Geom, eps float64) (count int) {
	t, err := decode(g)
	if err != nil || isEmpty(lines) {
		return 0
	}
	defer func() {
		if r := recover(); r != nil {
			logger.L().Debug("linework_count_failed", "err", r)
			count = 0
		}
	}()
	prepared := lines.Prepare()
	flatCoords, stride := t.FlatCoords(), t.Stride()
	for i := 0; i < len(flatCoords); i += stride {
		if prepared.DistanceWithin(geos.NewPointFromXY(flatCoords[i], flatCoords[i+1]), eps) {
			count++
		}
	}
	return count
}

// GeodesicAreaKm2 is the area on the sphere of a polygonal geometry in
// longitude/latitude.
func GeodesicAreaKm2(g *geos.Geom) float64 {
	total := 0.0
	for _, part := range Parts(g) {
		t, err := decode(part)
		if err != nil {
			continue
		}
		polygon, ok := t.(*geom.Polygon)
		if !ok {
			continue
		}
		for i := range polygon.NumLinearRings() {
			area := ringSteradians(polygon.LinearRing(i))
			if i == 0 {
				total += area
			} else {
				total -= area
			}
		}
	}
	return math.Max(total, 0) * earthRadiusKm * earthRadiusKm
}

func ringSteradians(ring *geom.LinearRing) float64 {
	n := ring.NumCoords()
	if n < 4 {
		return 0
	}
	points := make([]s2.Point, 0, n-1)
	for j := range n - 1 {
		c := ring.Coord(j)
		points = append(points, s2.PointFromLatLng(s2.LatLngFromDegrees(c.Y(), c.X())))
	}
	loop := s2.LoopFromPoints(points)
	loop.Normalize()
	return loop.Area()
}

func decode(g *geos.Geom) (geom.T, error) {
	if isEmpty(g) {
		return nil, ErrEmptyInput
	}
	return ToGeom(g)
}
