// Package pipeline runs one reconciliation end to end: load, resolve, fetch,
// match, snap and clip, dissolve.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bsaid97/go-border-snapper/boundary"
	"github.com/bsaid97/go-border-snapper/country"
	"github.com/bsaid97/go-border-snapper/handlers"
	"github.com/bsaid97/go-border-snapper/loader"
	"github.com/bsaid97/go-border-snapper/logger"
	"github.com/bsaid97/go-border-snapper/metrics"
	"github.com/bsaid97/go-border-snapper/session"
)

// ErrInvalidRequest marks requests rejected before any work is done.
var ErrInvalidRequest = errors.New("invalid request")

// BoundarySource returns the GeoJSON document of one boundary dataset.
type BoundarySource interface {
	Load(ctx context.Context, key boundary.Key, fidelity boundary.Fidelity) ([]byte, error)
}

type CountryResolver interface {
	Resolve(ctx context.Context, name string) (string, country.Strategy, error)
}

type Request struct {
	Upload []byte
	Format loader.Format
	// Country is a free-text name; CountryCode, when set, bypasses resolution.
	Country     string
	CountryCode string
	Level       int
	Release     string
	Fidelity    boundary.Fidelity
	Params      handlers.SnapParameters
}

type Result struct {
	Collection handlers.FeatureCollection
	Report     handlers.Report
	Key        boundary.Key
	Strategy   country.Strategy
	// Cached is set when the result came from the session cache.
	Cached bool
}

type Runner struct {
	Boundaries BoundarySource
	Countries  CountryResolver
	Session    *session.Cache[*Result]
}

func NewRunner(boundaries BoundarySource, countries CountryResolver) *Runner {
	return &Runner{Boundaries: boundaries, Countries: countries, Session: &session.Cache[*Result]{}}
}

// Run executes req. Inputs without polygons fail before the boundary is
// fetched. An identical request returns the previous result.
func (r *Runner) Run(ctx context.Context, req Request) (result *Result, err error) {
	start := time.Now()
	metrics.RunsTotal.Inc()
	defer func() {
		if err != nil {
			metrics.RunFailuresTotal.WithLabelValues(Class(err)).Inc()
			logger.L().Warn("run_failed", "class", Class(err), "err", err)
			return
		}
		metrics.RunDurationMs.Observe(float64(time.Since(start).Milliseconds()))
	}()

	if err := req.Params.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if err := (boundary.Key{Level: req.Level}).Validate(); err != nil {
		return nil, fmt.Errorf("%w: level must be between 0 and 5, got %d: %v", ErrInvalidRequest, req.Level, err)
	}
	fidelity := req.Fidelity
	if fidelity == "" {
		fidelity = boundary.Full
	}

	logger.L().Info("=== reconciliation started ===", "format", req.Format, "country", req.Country, "country_code", req.CountryCode, "level", req.Level)
	uploaded, err := loader.Load(req.Upload, req.Format)
	if err != nil {
		return nil, err
	}
	subject, err := handlers.PolygonFeatures(uploaded)
	if err != nil {
		return nil, err
	}
	if subject.CRS != handlers.WGS84 {
		projected, failed := handlers.ReprojectCollection(subject, handlers.WGS84)
		if len(projected.Features) == 0 {
			return nil, fmt.Errorf("reproject upload from %s: %w", subject.CRS, handlers.ErrNoPolygons)
		}
		if failed > 0 {
			logger.L().Warn("upload_features_dropped", "failed", failed)
		}
		subject = projected
	}

	code, strategy, err := r.resolveCountry(ctx, req)
	if err != nil {
		return nil, err
	}
	key := boundary.Key{Country: code, Level: req.Level, Release: req.Release}

	fp, err := fingerprint(subject, key, fidelity, req.Params)
	if err != nil {
		return nil, err
	}
	if cached, ok := r.Session.Get(fp); ok {
		metrics.SessionHitsTotal.Inc()
		logger.L().Info("session_hit", "run_id", cached.Report.RunID)
		out := *cached
		out.Cached = true
		return &out, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	document, err := r.Boundaries.Load(ctx, key, fidelity)
	if err != nil {
		return nil, err
	}
	boundaryFC, err := loader.Load(document, loader.GeoJSON)
	if err != nil {
		return nil, fmt.Errorf("%w: boundary %s: %v", boundary.ErrFetch, key, err)
	}
	// Boundary features are repaired without a precision grid.
	boundaryFC, err = handlers.RepairCollectionParallel(ctx, boundaryFC)
	if err != nil {
		return nil, err
	}
	if len(boundaryFC.Features) == 0 {
		return nil, fmt.Errorf("%w: boundary %s has no usable polygons", boundary.ErrFetch, key)
	}

	merged, err := handlers.Dissolve(subject, 0)
	if err != nil {
		return nil, err
	}
	match, err := handlers.Match(merged.Features[0].Geom, boundaryFC, req.Params.SearchRadiusM)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	snapped, err := handlers.SnapAndClip(subject, match.Candidates, req.Params)
	if err != nil {
		return nil, err
	}
	report := snapped.Report.WithMatch(len(boundaryFC.Features), match.Strategy)

	collection := handlers.FeatureCollection{
		CRS: handlers.WGS84,
		Features: []handlers.GeomFeature{{
			Geom: snapped.Geom,
			Properties: map[string]interface{}{
				"country": key.Country,
				"level":   key.Level,
				"run_id":  report.RunID,
			},
		}},
	}
	if report.EmptyResult {
		metrics.EmptyResultsTotal.Inc()
	} else {
		// Precision was applied in metric space already.
		collection, err = handlers.Dissolve(collection, 0)
		if err != nil {
			return nil, err
		}
	}

	result = &Result{Collection: collection, Report: report, Key: key, Strategy: strategy}
	r.Session.Put(fp, result)
	logger.L().Info("=== reconciliation finished ===", "run_id", report.RunID, "strategy", report.MatchStrategy,
		"empty", report.EmptyResult, "area_km2", report.AreaKm2)
	return result, nil
}

// Last is the most recent result, if any.
func (r *Runner) Last() (*Result, bool) {
	return r.Session.Last()
}

// Reset forgets the session result. The boundary cache is kept.
func (r *Runner) Reset() {
	r.Session.Reset()
}

func (r *Runner) resolveCountry(ctx context.Context, req Request) (string, country.Strategy, error) {
	if code := strings.ToUpper(strings.TrimSpace(req.CountryCode)); code != "" {
		if len(code) != 3 {
			return "", "", fmt.Errorf("%w: country code must have three letters, got %q", ErrInvalidRequest, req.CountryCode)
		}
		return code, country.StrategyCode, nil
	}
	if r.Countries == nil {
		return "", "", fmt.Errorf("%w: no resolver configured", country.ErrUnresolved)
	}
	return r.Countries.Resolve(ctx, req.Country)
}

func fingerprint(subject handlers.FeatureCollection, key boundary.Key, fidelity boundary.Fidelity, params handlers.SnapParameters) (string, error) {
	parts := make([][]byte, 0, len(subject.Features)+3)
	for _, feature := range subject.Features {
		parts = append(parts, feature.Geom.ToWKB())
	}
	p, err := json.Marshal(params)
	if err != nil {
		return "", err
	}
	parts = append(parts, []byte(key.String()), []byte(fidelity), p, []byte(strconv.Itoa(len(subject.Features))))
	return session.Fingerprint(parts...), nil
}

// Class groups errors for metrics and HTTP status mapping: input,
// resolution, fetch or internal.
func Class(err error) string {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, loader.ErrUnsupportedFormat),
		errors.Is(err, loader.ErrDecode),
		errors.Is(err, handlers.ErrEmptyInput),
		errors.Is(err, handlers.ErrNoPolygons):
		return "input"
	case errors.Is(err, country.ErrUnresolved):
		return "resolution"
	case errors.Is(err, boundary.ErrFetch), errors.Is(err, boundary.ErrNoGeometryURL):
		return "fetch"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	}
	return "internal"
}
