package handlers

import (
	"errors"
	"fmt"
	"math"

	"github.com/bsaid97/go-border-snapper/logger"
	"github.com/bsaid97/go-border-snapper/utils"
	"github.com/twpayne/go-geos"
)

// MatchStrategy records which rule selected the candidates.
type MatchStrategy string

const (
	MatchProximity       MatchStrategy = "proximity"
	MatchContainment     MatchStrategy = "containment"
	MatchNearestCentroid MatchStrategy = "nearest_centroid"
)

type MatchResult struct {
	Candidates FeatureCollection
	Strategy   MatchStrategy
	Projection CRS
}

// Match selects the boundary features relevant to subject. Both inputs share
// the boundary CRS (geographic); distances are evaluated in the projection
// chosen for the subject. The result is never empty for a non-empty boundary.
func Match(subject *geos.Geom, boundary FeatureCollection, searchRadiusM float64) (*MatchResult, error) {
	if len(boundary.Features) == 0 {
		return nil, ErrEmptyBoundary
	}
	if isEmpty(subject) {
		return nil, fmt.Errorf("match: %w", ErrEmptyInput)
	}

	crs := SelectProjection(subject)
	projectedSubject, err := Reproject(subject, boundary.CRS, crs)
	if err != nil {
		return nil, fmt.Errorf("match: project subject: %w", err)
	}

	projected := make([]*geos.Geom, len(boundary.Features))
	projectedList := make([]*geos.Geom, 0, len(boundary.Features))
	for i, feature := range boundary.Features {
		if isEmpty(feature.Geom) {
			continue
		}
		g, err := Reproject(feature.Geom, boundary.CRS, crs)
		if err != nil {
			logger.L().Warn("match_project_feature_failed", "index", i, "err", err)
			continue
		}
		projected[i] = g
		projectedList = append(projectedList, g)
	}
	if len(projectedList) == 0 {
		return nil, errors.New("match: no boundary feature could be projected")
	}

	index := utils.NewSpatialIndex(utils.CellSizeFor(projectedList, 64, math.Max(searchRadiusM, 1)))
	for i, g := range projected {
		if g == nil {
			continue
		}
		if err := index.AddGeometry(g, i); err != nil {
			logger.L().Debug("match_index_skip", "index", i, "err", err)
		}
	}

	picked := func(indexes []int, strategy MatchStrategy) *MatchResult {
		out := FeatureCollection{CRS: boundary.CRS}
		for _, i := range indexes {
			out.Features = append(out.Features, boundary.Features[i])
		}
		logger.L().Info("match_done", "strategy", strategy, "candidates", len(out.Features), "boundary", len(boundary.Features), "crs", crs)
		return &MatchResult{Candidates: out, Strategy: strategy, Projection: crs}
	}

	search, err := safe("buffer subject", func() *geos.Geom {
		return projectedSubject.Buffer(math.Max(searchRadiusM, 0), 8)
	})
	if err != nil {
		logger.L().Warn("match_buffer_failed", "err", err)
	} else {
		var hits []int
		for _, candidate := range index.Query(search) {
			if candidate.Geom.Intersects(search) {
				hits = append(hits, candidate.Index)
			}
		}
		if len(hits) > 0 {
			return picked(hits, MatchProximity), nil
		}
	}

	if centroid, err := safe("centroid", projectedSubject.Centroid); err == nil && !centroid.IsEmpty() {
		var hits []int
		for _, candidate := range index.Query(centroid) {
			if candidate.Geom.Contains(centroid) {
				hits = append(hits, candidate.Index)
			}
		}
		if len(hits) > 0 {
			return picked(hits, MatchContainment), nil
		}
	}

	return picked([]int{nearestCentroid(projectedSubject, projected)}, MatchNearestCentroid), nil
}

// nearestCentroid returns the index of the non-nil geometry whose centroid is
// closest to the centroid of subject.
func nearestCentroid(subject *geos.Geom, geoms []*geos.Geom) int {
	best, bestDistance := -1, math.Inf(1)
	subjectCentroid, err := safe("centroid", subject.Centroid)
	for i, g := range geoms {
		if g == nil {
			continue
		}
		if best < 0 {
			best = i
		}
		if err != nil {
			break
		}
		centroid, cerr := safe("centroid", g.Centroid)
		if cerr != nil || centroid.IsEmpty() {
			continue
		}
		if d := subjectCentroid.Distance(centroid); d < bestDistance {
			best, bestDistance = i, d
		}
	}
	return best
}
