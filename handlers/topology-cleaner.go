package handlers

import (
	"context"
	"math"
	"runtime"

	"github.com/bsaid97/go-border-snapper/logger"
	"github.com/bsaid97/go-border-snapper/utils"
	"github.com/twpayne/go-geos"
)

// RepairCollectionParallel repairs every feature without precision on a worker
// pool and drops the features whose geometry does not survive. Feature order is
// kept.
func RepairCollectionParallel(ctx context.Context, fc FeatureCollection) (FeatureCollection, error) {
	processor := utils.NewParallelProcessor(runtime.NumCPU(), logger.L())

	repaired, err := utils.ProcessBatch(ctx, processor, fc.Features, func(feature GeomFeature) (GeomFeature, bool) {
		g := Repair(feature.Geom, 0, false)
		if isEmpty(g) {
			return GeomFeature{}, false
		}
		return GeomFeature{Geom: g, Properties: feature.Properties}, true
	}, "repair boundary")
	if err != nil {
		return FeatureCollection{}, err
	}

	if dropped := len(fc.Features) - len(repaired); dropped > 0 {
		logger.L().Warn("repair_dropped_features", "dropped", dropped, "total", len(fc.Features))
	}
	return FeatureCollection{CRS: fc.CRS, Features: repaired}, nil
}

// Distortion measures how far modified moved away from original: the relative
// area change plus the Hausdorff distance, both in the units of the CRS.
func Distortion(original, modified *geos.Geom) (areaChange, hausdorff float64) {
	if isEmpty(original) || isEmpty(modified) {
		return 0, 0
	}

	if originalArea := original.Area(); originalArea > 0 {
		areaChange = math.Abs(modified.Area()-originalArea) / originalArea
	}

	func() {
		defer func() {
			if r := recover(); r != nil {
				logger.L().Debug("hausdorff_failed", "err", r)
				hausdorff = 0
			}
		}()
		hausdorff = original.HausdorffDistance(modified)
	}()
	return areaChange, hausdorff
}

// CoverageReport summarizes gaps and overlaps between the features of an
// administrative boundary.
type CoverageReport struct {
	Features     int     `json:"features"`
	OverlapCount int     `json:"overlapCount"`
	OverlapArea  float64 `json:"overlapArea"`
	GapCount     int     `json:"gapCount"`
	MaxGapWidth  float64 `json:"maxGapWidth"`
}

// CheckCoverage looks for overlapping neighbours and for features separated
// from their nearest neighbour by more than tolerance but less than ten times
// it. Distances are in the units of the collection CRS.
func CheckCoverage(fc FeatureCollection, tolerance float64) CoverageReport {
	report := CoverageReport{Features: len(fc.Features)}
	geoms := make([]*geos.Geom, len(fc.Features))
	for i, feature := range fc.Features {
		if !isEmpty(feature.Geom) {
			geoms[i] = feature.Geom
		}
	}

	present := make([]*geos.Geom, 0, len(geoms))
	for _, g := range geoms {
		if g != nil {
			present = append(present, g)
		}
	}
	if len(present) < 2 {
		return report
	}

	index := utils.NewSpatialIndex(utils.CellSizeFor(present, 32, tolerance))
	for i, g := range geoms {
		if g == nil {
			continue
		}
		if err := index.AddGeometry(g, i); err != nil {
			logger.L().Debug("coverage_index_skip", "index", i, "err", err)
		}
	}

	for i, g := range geoms {
		if g == nil {
			continue
		}
		search, err := safe("coverage search", func() *geos.Geom { return g.Buffer(tolerance*10, 4) })
		if err != nil {
			continue
		}

		nearest := math.Inf(1)
		for _, neighbour := range index.Query(search) {
			if neighbour.Index == i {
				continue
			}
			d := g.Distance(neighbour.Geom)
			nearest = math.Min(nearest, d)

			// Each pair is counted once.
			if neighbour.Index < i || !g.Overlaps(neighbour.Geom) {
				continue
			}
			overlap, err := safe("coverage overlap", func() *geos.Geom { return g.Intersection(neighbour.Geom) })
			if err == nil && overlap.Area() > tolerance*tolerance {
				report.OverlapCount++
				report.OverlapArea += overlap.Area()
				logger.L().Debug("coverage_overlap", "a", i, "b", neighbour.Index, "area", overlap.Area())
			}
		}

		if nearest > tolerance && nearest < tolerance*10 {
			report.GapCount++
			report.MaxGapWidth = math.Max(report.MaxGapWidth, nearest)
		}
	}

	logger.L().Info("coverage_checked", "features", report.Features, "overlaps", report.OverlapCount, "gaps", report.GapCount)
	return report
}
