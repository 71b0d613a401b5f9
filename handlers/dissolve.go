package handlers

import (
	"errors"
	"fmt"

	"github.com/bsaid97/go-border-snapper/logger"
	"github.com/bsaid97/go-border-snapper/utils"
	"github.com/twpayne/go-geos"
)

// CascadedUnion unions geometries pairwise in a balanced tree. The inputs are
// left untouched.
func CascadedUnion(geometries []*geos.Geom) (*geos.Geom, error) {
	if len(geometries) == 0 {
		return nil, errors.New("cascaded union of no geometries")
	}
	// Base case: if there is only one geometry, return a copy of it
	if len(geometries) == 1 {
		return geometries[0].Clone(), nil
	}

	mid := len(geometries) / 2
	left, err := CascadedUnion(geometries[:mid])
	if err != nil {
		return nil, err
	}
	right, err := CascadedUnion(geometries[mid:])
	if err != nil {
		return nil, err
	}

	return safe("union", func() *geos.Geom { return left.Union(right) })
}

// unionRepaired repairs every geometry without precision and unions them.
func unionRepaired(geometries []*geos.Geom) (*geos.Geom, error) {
	repaired := make([]*geos.Geom, 0, len(geometries))
	for _, g := range geometries {
		if r := Repair(g, 0, false); !isEmpty(r) {
			repaired = append(repaired, r)
		}
	}
	if len(repaired) == 0 {
		return nil, ErrNoPolygons
	}
	union, err := CascadedUnion(repaired)
	if err != nil {
		return nil, err
	}
	return Repair(union, 0, false), nil
}

// Dissolve merges every feature of fc into one feature carrying the original
// CRS. precisionGridM quantizes the result when positive; for geographic
// collections it is converted to degrees. An empty collection is returned
// unchanged.
func Dissolve(fc FeatureCollection, precisionGridM float64) (FeatureCollection, error) {
	if len(fc.Features) == 0 {
		return fc, nil
	}
	logger.L().Debug("dissolve_start", "features", len(fc.Features), "precision_grid_m", precisionGridM)

	union, err := unionRepaired(fc.Geoms())
	if err != nil {
		return fc, fmt.Errorf("dissolve: %w", err)
	}

	if precisionGridM > 0 {
		union = Repair(union, gridInCRS(precisionGridM, fc.CRS), true)
	}

	return FeatureCollection{
		CRS: fc.CRS,
		Features: []GeomFeature{{
			Geom:       union,
			Properties: copyProperties(fc.Features[0].Properties),
		}},
	}, nil
}

func gridInCRS(meters float64, crs CRS) float64 {
	if crs == WGS84 || crs == "" {
		return utils.CalculateWGS84ToleranceFromMeters(meters)
	}
	return meters
}

func copyProperties(properties map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(properties))
	for k, v := range properties {
		out[k] = v
	}
	return out
}
