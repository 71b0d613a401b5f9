package handlers

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/twpayne/go-geos"

	"github.com/bsaid97/go-border-snapper/logger"
)

// snapRetryFactor divides the tolerance for the single retry after a failed snap.
const snapRetryFactor = 5

// coincidenceEpsM is how close (meters) a vertex must be to count as lying on
// the boundary line-work.
const coincidenceEpsM = 1e-6

// Steps of SnapAndClip that can be replaced to force their failure paths.
var (
	snapOnto = snap
	reattach = reattachIslands
)

type SnapResult struct {
	// Geom is the reconciled geometry in WGS84. It may be empty, in which
	// case Report.EmptyResult is set.
	Geom   *geos.Geom
	Report Report
}

// SnapAndClip pulls the subject onto the line-work of the candidate boundary,
// clips it to the boundary, optionally reattaches islands and simplifies, and
// returns the result in WGS84.
func SnapAndClip(subject, candidates FeatureCollection, params SnapParameters) (*SnapResult, error) {
	start := time.Now()
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if len(subject.Features) == 0 {
		return nil, ErrEmptyInput
	}
	if len(candidates.Features) == 0 {
		return nil, ErrEmptyBoundary
	}

	report := Report{
		RunID:             uuid.NewString(),
		ToleranceM:        params.ToleranceM,
		IslandRadiusM:     params.IslandRadiusM,
		SimplifyM:         params.SimplifyM,
		PrecisionGridM:    params.PrecisionGridM,
		SearchRadiusM:     params.SearchRadiusM,
		Contiguity:        params.Contiguity,
		InputFeatures:     len(subject.Features),
		BoundaryFeatures:  len(candidates.Features),
		CandidateFeatures: len(candidates.Features),
	}
	log := logger.L().With("run_id", report.RunID)
	log.Info("=== snap and clip started ===", "subject_features", len(subject.Features), "candidates", len(candidates.Features))

	subjectUnion, err := unionRepaired(subject.Geoms())
	if err != nil {
		return nil, fmt.Errorf("union subject: %w", err)
	}
	targetUnion, err := unionRepaired(candidates.Geoms())
	if err != nil {
		return nil, fmt.Errorf("union boundary: %w", err)
	}

	subjectGeo, err := Reproject(subjectUnion, subject.CRS, WGS84)
	if err != nil {
		return nil, fmt.Errorf("subject to WGS84: %w", err)
	}
	crs := SelectProjection(subjectGeo)
	report.Projection = crs

	subjectP, err := Reproject(subjectUnion, subject.CRS, crs)
	if err != nil {
		return nil, fmt.Errorf("project subject: %w", err)
	}
	target, err := Reproject(targetUnion, candidates.CRS, crs)
	if err != nil {
		return nil, fmt.Errorf("project boundary: %w", err)
	}
	// Boundary is repaired without precision so fine border detail survives.
	target = Repair(target, 0, false)
	subjectP = Repair(subjectP, params.PrecisionGridM, params.PrecisionGridM > 0)
	if isEmpty(subjectP) {
		return nil, fmt.Errorf("project subject: %w", ErrNoPolygons)
	}
	report.SubjectVertices = VertexCount(subjectP)

	lines, err := safe("boundary line-work", target.Boundary)
	if err != nil {
		return nil, fmt.Errorf("extract boundary line-work: %w", err)
	}

	snapped, usedTolerance, snapErr := snapWithRetry(subjectP, lines, params.ToleranceM)
	report.ToleranceUsedM = usedTolerance
	if snapErr != nil {
		log.Warn("snap_fallback", "err", snapErr)
		report.SnapFallback = true
		snapped = subjectP
	}
	snapped = Repair(snapped, params.PrecisionGridM, params.PrecisionGridM > 0)
	report.SnappedVertices = VerticesOnLinework(snapped, lines, coincidenceEpsM)

	result, err := clip(snapped, target)
	if err != nil || isEmpty(result) {
		log.Warn("clip_fallback", "err", err)
		report.ClipFallback = true
		result, err = clip(subjectP, target)
		if err != nil {
			log.Warn("clip_failed", "err", err)
			result = emptyPolygon()
		}
	}
	result = Repair(result, params.PrecisionGridM, params.PrecisionGridM > 0)

	if !isEmpty(result) {
		switch params.Contiguity {
		case LargestPart:
			result = LargestPolygon(result)
		default:
			if params.IslandRadiusM > 0 {
				withIslands, parts, err := reattach(result, target, subjectP, params.IslandRadiusM)
				if err != nil {
					log.Warn("island_reattach_failed", "err", err)
				} else if parts > 0 {
					result = Repair(withIslands, params.PrecisionGridM, params.PrecisionGridM > 0)
					report.IslandsIncluded = true
					report.IslandParts = parts
				}
			}
		}
	}

	if !isEmpty(result) && params.SimplifyM > 0 {
		simplified, err := simplify(result, target, params.SimplifyM)
		if err != nil {
			log.Warn("simplify_skipped", "err", err)
		} else {
			result = Repair(simplified, params.PrecisionGridM, params.PrecisionGridM > 0)
		}
	}

	if isEmpty(result) {
		report.EmptyResult = true
		result = emptyPolygon()
	} else {
		report.ResultParts = len(Parts(result))
		report.AreaChangeRatio, report.HausdorffM = Distortion(subjectP, result)
		result, err = Reproject(result, crs, WGS84)
		if err != nil {
			return nil, fmt.Errorf("result to WGS84: %w", err)
		}
		report.ResultVertices = VertexCount(result)
		report.AreaKm2 = GeodesicAreaKm2(result)
	}

	report.DurationMs = time.Since(start).Milliseconds()
	log.Info("=== snap and clip finished ===",
		"projection", crs,
		"tolerance_used_m", report.ToleranceUsedM,
		"islands", report.IslandParts,
		"parts", report.ResultParts,
		"empty", report.EmptyResult,
		"duration_ms", report.DurationMs)
	return &SnapResult{Geom: result, Report: report}, nil
}

// snapWithRetry snaps subject onto lines, retrying once at a fifth of the
// tolerance. A non-positive tolerance leaves the subject untouched.
func snapWithRetry(subject, lines *geos.Geom, tolerance float64) (*geos.Geom, float64, error) {
	if tolerance <= 0 {
		return subject, 0, nil
	}
	snapped, err := snapOnto(subject, lines, tolerance)
	if err == nil {
		return snapped, tolerance, nil
	}
	logger.L().Debug("snap_retry", "tolerance", tolerance, "err", err)
	retryTolerance := tolerance / snapRetryFactor
	snapped, retryErr := snapOnto(subject, lines, retryTolerance)
	if retryErr != nil {
		return nil, 0, fmt.Errorf("snap at %vm: %v; at %vm: %w", tolerance, err, retryTolerance, retryErr)
	}
	return snapped, retryTolerance, nil
}

func snap(subject, lines *geos.Geom, tolerance float64) (*geos.Geom, error) {
	snapped, err := safe("snap", func() *geos.Geom { return subject.Snap(lines, tolerance) })
	if err != nil {
		return nil, err
	}
	if snapped.IsEmpty() {
		return nil, fmt.Errorf("snap at %vm produced an empty geometry", tolerance)
	}
	return snapped, nil
}

func clip(g, target *geos.Geom) (*geos.Geom, error) {
	return safe("clip", func() *geos.Geom { return g.Intersection(target) })
}

// reattachIslands adds back the pieces of target not covered by result that do
// not touch result and intersect a disk of radiusM around the subject centroid.
func reattachIslands(result, target, subject *geos.Geom, radiusM float64) (merged *geos.Geom, parts int, err error) {
	defer func() {
		if r := recover(); r != nil {
			merged, parts, err = nil, 0, fmt.Errorf("island reattachment: %v", r)
		}
	}()

	remainder := target.Difference(result)
	if remainder == nil || remainder.IsEmpty() {
		return result, 0, nil
	}
	disk := subject.Centroid().Buffer(radiusM, 16)

	islands := make([]*geos.Geom, 0)
	for _, piece := range Parts(remainder) {
		if piece.Intersects(result) || !piece.Intersects(disk) {
			continue
		}
		islands = append(islands, piece.Clone())
	}
	if len(islands) == 0 {
		return result, 0, nil
	}
	merged, err = CascadedUnion(append([]*geos.Geom{result}, islands...))
	if err != nil {
		return nil, 0, err
	}
	return merged, len(islands), nil
}

// simplify runs topology preserving simplification and clips again when the
// simplified edges leave the target.
func simplify(g, target *geos.Geom, toleranceM float64) (*geos.Geom, error) {
	simplified, err := safe("simplify", func() *geos.Geom { return g.TopologyPreserveSimplify(toleranceM) })
	if err != nil {
		return nil, err
	}
	if simplified.IsEmpty() {
		return nil, fmt.Errorf("simplify at %vm produced an empty geometry", toleranceM)
	}
	outside, err := safe("simplify overflow", func() *geos.Geom { return simplified.Difference(target) })
	if err == nil && outside.Area() > 0 {
		return clip(simplified, target)
	}
	return simplified, nil
}
